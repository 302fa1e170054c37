// Package repository はRemoteStoreへの永続化インターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/maisgestor/portal/internal/model"
)

// MenuRepository はメニュー項目（menu_items / menu_subitems）の永続化インターフェース。
type MenuRepository interface {
	// ListMenuItems はトップレベルのメニュー項目をorder_position昇順で取得する。
	// Submenuは設定されない。
	ListMenuItems(ctx context.Context) ([]model.MenuItem, error)

	// ListSubMenuItems は全サブメニュー項目を親IDとともに取得する。
	ListSubMenuItems(ctx context.Context) ([]SubMenuRecord, error)

	// CreateMenuItem はメニュー項目を作成し、採番されたIDを含む行を返す。
	CreateMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error)

	// UpdateMenuItem はパッチに含まれるカラムのみを更新する。
	UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) error

	// DeleteMenuItem はメニュー項目を削除する。サブメニューはCASCADE削除される。
	DeleteMenuItem(ctx context.Context, id string) error

	// CreateSubMenuItem はサブメニュー項目を作成し、採番されたIDを含む行を返す。
	CreateSubMenuItem(ctx context.Context, parentID string, sub model.SubMenuItem) (model.SubMenuItem, error)

	// UpdateSubMenuItem はパッチに含まれるカラムのみを更新する。
	UpdateSubMenuItem(ctx context.Context, id string, patch model.SubMenuItemPatch) error

	// DeleteSubMenuItem はサブメニュー項目を削除する。
	DeleteSubMenuItem(ctx context.Context, id string) error

	// ResetMenu は両テーブルの全行を削除し、seedを同一トランザクションで投入する。
	ResetMenu(ctx context.Context, seed []model.MenuItem) error
}

// NewsRepository はニュース記事の永続化インターフェース。
type NewsRepository interface {
	// ListNews は全記事をpublished_at降順で取得する。
	ListNews(ctx context.Context) ([]model.NewsItem, error)

	// CreateNews は記事を作成し、採番されたIDを含む行を返す。
	CreateNews(ctx context.Context, item model.NewsItem) (model.NewsItem, error)

	// UpdateNews はパッチに含まれるカラムのみを更新する。
	UpdateNews(ctx context.Context, id string, patch model.NewsPatch) error

	// DeleteNews は記事を削除する。
	DeleteNews(ctx context.Context, id string) error
}

// CategoryRepository はニュースカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// ListCategories は全カテゴリをname昇順で取得する。
	ListCategories(ctx context.Context) ([]model.NewsCategory, error)
}

// Prober はRemoteStoreへの疎通確認を行う。
type Prober interface {
	Probe(ctx context.Context) error
}

// SubMenuRecord はサブメニュー項目と親メニューIDの組。
type SubMenuRecord struct {
	ParentID string
	Item     model.SubMenuItem
}

// NewsStore はニュース・カテゴリ・疎通確認をまとめたRemoteStoreのインターフェース。
type NewsStore interface {
	NewsRepository
	CategoryRepository
	Prober
}

// PostgresNewsStore はPostgresNewsRepoとPostgresCategoryRepoを束ねたNewsStore実装。
type PostgresNewsStore struct {
	*PostgresNewsRepo
	*PostgresCategoryRepo
}

// NewPostgresNewsStore はPostgresNewsStoreを生成する。
func NewPostgresNewsStore(db *sql.DB) *PostgresNewsStore {
	return &PostgresNewsStore{
		PostgresNewsRepo:     NewPostgresNewsRepo(db),
		PostgresCategoryRepo: NewPostgresCategoryRepo(db),
	}
}

var _ NewsStore = (*PostgresNewsStore)(nil)
