package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maisgestor/portal/internal/model"
)

// MenuItemRow はmenu_itemsテーブルの1行を表す。
type MenuItemRow struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Href          string    `json:"href"`
	OrderPosition int       `json:"order_position"`
	IsActive      bool      `json:"is_active"`
	HasSubmenu    bool      `json:"has_submenu"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToModel はドメインモデルに変換する。
func (r MenuItemRow) ToModel() model.MenuItem {
	return model.MenuItem{
		ID:         r.ID,
		Name:       r.Name,
		Href:       r.Href,
		IsActive:   r.IsActive,
		Order:      r.OrderPosition,
		HasSubmenu: r.HasSubmenu,
	}
}

// MenuItemRowFromModel はドメインモデルから行を組み立てる。
func MenuItemRowFromModel(item model.MenuItem) MenuItemRow {
	return MenuItemRow{
		ID:            item.ID,
		Name:          item.Name,
		Href:          item.Href,
		OrderPosition: item.Order,
		IsActive:      item.IsActive,
		HasSubmenu:    item.HasSubmenu,
	}
}

// SubMenuItemRow はmenu_subitemsテーブルの1行を表す。
type SubMenuItemRow struct {
	ID            string    `json:"id"`
	ParentID      string    `json:"parent_id"`
	Name          string    `json:"name"`
	Href          string    `json:"href"`
	OrderPosition int       `json:"order_position"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToModel はドメインモデルに変換する。
func (r SubMenuItemRow) ToModel() model.SubMenuItem {
	return model.SubMenuItem{
		ID:       r.ID,
		Name:     r.Name,
		Href:     r.Href,
		IsActive: r.IsActive,
		Order:    r.OrderPosition,
	}
}

// SubMenuItemRowFromModel はドメインモデルから行を組み立てる。
func SubMenuItemRowFromModel(parentID string, sub model.SubMenuItem) SubMenuItemRow {
	return SubMenuItemRow{
		ID:            sub.ID,
		ParentID:      parentID,
		Name:          sub.Name,
		Href:          sub.Href,
		OrderPosition: sub.Order,
		IsActive:      sub.IsActive,
	}
}

// NewsRow はnewsテーブルの1行を表す。
type NewsRow struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Excerpt     string         `json:"excerpt"`
	ImageURL    sql.NullString `json:"image_url"`
	Category    string         `json:"category"`
	Author      string         `json:"author"`
	IsActive    bool           `json:"is_active"`
	PublishedAt time.Time      `json:"published_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ToModel はドメインモデルに変換する。
func (r NewsRow) ToModel() model.NewsItem {
	return model.NewsItem{
		ID:          r.ID,
		Title:       r.Title,
		Content:     r.Content,
		Excerpt:     r.Excerpt,
		ImageURL:    nullStringValue(r.ImageURL),
		PublishedAt: r.PublishedAt,
		IsActive:    r.IsActive,
		Category:    r.Category,
		Author:      r.Author,
	}
}

// NewsRowFromModel はドメインモデルから行を組み立てる。
func NewsRowFromModel(item model.NewsItem) NewsRow {
	return NewsRow{
		ID:          item.ID,
		Title:       item.Title,
		Content:     item.Content,
		Excerpt:     item.Excerpt,
		ImageURL:    nullString(item.ImageURL),
		Category:    item.Category,
		Author:      item.Author,
		IsActive:    item.IsActive,
		PublishedAt: item.PublishedAt,
	}
}

// CategoryRow はcategoriesテーブルの1行を表す。
type CategoryRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToModel はドメインモデルに変換する。
func (r CategoryRow) ToModel() model.NewsCategory {
	return model.NewsCategory{ID: r.ID, Name: r.Name, Color: r.Color}
}

// nullString は空文字列をNULLとして扱うsql.NullStringを返す。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// ErrRowNotFound は更新・削除の対象行がRemoteStoreに存在しないことを表す。
// ローカルIDで採番された項目への操作などで発生する。
var ErrRowNotFound = errors.New("対象の行が存在しません")

// requireAffected は1行以上が更新・削除されたことを確認する。
func requireAffected(result sql.Result, table, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrRowNotFound)
	}
	return nil
}

// updateBuilder は部分更新用のUPDATE文を組み立てる。
// 追加されたカラムのみがSET句に含まれ、updated_atは常に更新される。
type updateBuilder struct {
	table string
	cols  []string
	args  []any
}

func newUpdateBuilder(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

func (b *updateBuilder) set(col string, val any) {
	b.args = append(b.args, val)
	b.cols = append(b.cols, fmt.Sprintf("%s = $%d", col, len(b.args)))
}

// empty はSET対象のカラムが無い場合にtrueを返す。
func (b *updateBuilder) empty() bool {
	return len(b.cols) == 0
}

// build はidを条件とするUPDATE文と引数を返す。
func (b *updateBuilder) build(id string) (string, []any) {
	args := append(append([]any(nil), b.args...), id)
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE id = $%d",
		b.table, strings.Join(b.cols, ", "), len(args))
	return query, args
}

func menuItemUpdate(patch model.MenuItemPatch) *updateBuilder {
	b := newUpdateBuilder("menu_items")
	if patch.Name != nil {
		b.set("name", *patch.Name)
	}
	if patch.Href != nil {
		b.set("href", *patch.Href)
	}
	if patch.Order != nil {
		b.set("order_position", *patch.Order)
	}
	if patch.IsActive != nil {
		b.set("is_active", *patch.IsActive)
	}
	if patch.HasSubmenu != nil {
		b.set("has_submenu", *patch.HasSubmenu)
	}
	return b
}

func subMenuItemUpdate(patch model.SubMenuItemPatch) *updateBuilder {
	b := newUpdateBuilder("menu_subitems")
	if patch.Name != nil {
		b.set("name", *patch.Name)
	}
	if patch.Href != nil {
		b.set("href", *patch.Href)
	}
	if patch.Order != nil {
		b.set("order_position", *patch.Order)
	}
	if patch.IsActive != nil {
		b.set("is_active", *patch.IsActive)
	}
	return b
}

func newsUpdate(patch model.NewsPatch) *updateBuilder {
	b := newUpdateBuilder("news")
	if patch.Title != nil {
		b.set("title", *patch.Title)
	}
	if patch.Content != nil {
		b.set("content", *patch.Content)
	}
	if patch.Excerpt != nil {
		b.set("excerpt", *patch.Excerpt)
	}
	if patch.ImageURL != nil {
		b.set("image_url", nullString(*patch.ImageURL))
	}
	if patch.Category != nil {
		b.set("category", *patch.Category)
	}
	if patch.Author != nil {
		b.set("author", *patch.Author)
	}
	if patch.IsActive != nil {
		b.set("is_active", *patch.IsActive)
	}
	if patch.PublishedAt != nil {
		b.set("published_at", *patch.PublishedAt)
	}
	return b
}
