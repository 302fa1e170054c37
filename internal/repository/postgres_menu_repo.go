package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/maisgestor/portal/internal/model"
)

// PostgresMenuRepo はPostgreSQLを使用したメニューリポジトリ。
type PostgresMenuRepo struct {
	db *sql.DB
}

// NewPostgresMenuRepo はPostgresMenuRepoを生成する。
func NewPostgresMenuRepo(db *sql.DB) *PostgresMenuRepo {
	return &PostgresMenuRepo{db: db}
}

// ListMenuItems はトップレベルのメニュー項目をorder_position昇順で取得する。
func (r *PostgresMenuRepo) ListMenuItems(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, href, order_position, is_active, has_submenu, created_at, updated_at
		 FROM menu_items ORDER BY order_position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("メニュー項目の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []model.MenuItem
	for rows.Next() {
		var row MenuItemRow
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Href, &row.OrderPosition,
			&row.IsActive, &row.HasSubmenu, &row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("メニュー項目のスキャンに失敗しました: %w", err)
		}
		items = append(items, row.ToModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メニュー項目の走査に失敗しました: %w", err)
	}
	return items, nil
}

// ListSubMenuItems は全サブメニュー項目を親IDとともに取得する。
func (r *PostgresMenuRepo) ListSubMenuItems(ctx context.Context) ([]SubMenuRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, parent_id, name, href, order_position, is_active, created_at, updated_at
		 FROM menu_subitems ORDER BY parent_id, order_position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("サブメニュー項目の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var records []SubMenuRecord
	for rows.Next() {
		var row SubMenuItemRow
		if err := rows.Scan(
			&row.ID, &row.ParentID, &row.Name, &row.Href, &row.OrderPosition,
			&row.IsActive, &row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("サブメニュー項目のスキャンに失敗しました: %w", err)
		}
		records = append(records, SubMenuRecord{ParentID: row.ParentID, Item: row.ToModel()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("サブメニュー項目の走査に失敗しました: %w", err)
	}
	return records, nil
}

// CreateMenuItem はメニュー項目を作成する。IDはリポジトリで採番する。
func (r *PostgresMenuRepo) CreateMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	row := MenuItemRowFromModel(item)
	row.ID = uuid.New().String()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO menu_items (id, name, href, order_position, is_active, has_submenu)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		row.ID, row.Name, row.Href, row.OrderPosition, row.IsActive, row.HasSubmenu,
	).Scan(&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("メニュー項目の作成に失敗しました: %w", err)
	}

	created := row.ToModel()
	created.Submenu = item.Submenu
	return created, nil
}

// UpdateMenuItem はパッチに含まれるカラムのみを更新する。
func (r *PostgresMenuRepo) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) error {
	b := menuItemUpdate(patch)
	if b.empty() {
		return nil
	}
	query, args := b.build(id)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("メニュー項目の更新に失敗しました: %w", err)
	}
	return requireAffected(result, "menu_items", id)
}

// DeleteMenuItem はメニュー項目を削除する。
func (r *PostgresMenuRepo) DeleteMenuItem(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("メニュー項目の削除に失敗しました: %w", err)
	}
	return requireAffected(result, "menu_items", id)
}

// CreateSubMenuItem はサブメニュー項目を作成する。IDはリポジトリで採番する。
func (r *PostgresMenuRepo) CreateSubMenuItem(ctx context.Context, parentID string, sub model.SubMenuItem) (model.SubMenuItem, error) {
	row := SubMenuItemRowFromModel(parentID, sub)
	row.ID = uuid.New().String()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO menu_subitems (id, parent_id, name, href, order_position, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		row.ID, row.ParentID, row.Name, row.Href, row.OrderPosition, row.IsActive,
	).Scan(&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return model.SubMenuItem{}, fmt.Errorf("サブメニュー項目の作成に失敗しました: %w", err)
	}
	return row.ToModel(), nil
}

// UpdateSubMenuItem はパッチに含まれるカラムのみを更新する。
func (r *PostgresMenuRepo) UpdateSubMenuItem(ctx context.Context, id string, patch model.SubMenuItemPatch) error {
	b := subMenuItemUpdate(patch)
	if b.empty() {
		return nil
	}
	query, args := b.build(id)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("サブメニュー項目の更新に失敗しました: %w", err)
	}
	return requireAffected(result, "menu_subitems", id)
}

// DeleteSubMenuItem はサブメニュー項目を削除する。
func (r *PostgresMenuRepo) DeleteSubMenuItem(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM menu_subitems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("サブメニュー項目の削除に失敗しました: %w", err)
	}
	return requireAffected(result, "menu_subitems", id)
}

// ResetMenu は両テーブルの全行を削除し、seedを同一トランザクションで投入する。
func (r *PostgresMenuRepo) ResetMenu(ctx context.Context, seed []model.MenuItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_subitems`); err != nil {
		return fmt.Errorf("サブメニュー項目の全削除に失敗しました: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_items`); err != nil {
		return fmt.Errorf("メニュー項目の全削除に失敗しました: %w", err)
	}

	for _, item := range seed {
		row := MenuItemRowFromModel(item)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO menu_items (id, name, href, order_position, is_active, has_submenu)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			row.ID, row.Name, row.Href, row.OrderPosition, row.IsActive, row.HasSubmenu,
		); err != nil {
			return fmt.Errorf("初期メニュー項目の投入に失敗しました: %w", err)
		}
		for _, sub := range item.Submenu {
			subRow := SubMenuItemRowFromModel(item.ID, sub)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO menu_subitems (id, parent_id, name, href, order_position, is_active)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				subRow.ID, subRow.ParentID, subRow.Name, subRow.Href, subRow.OrderPosition, subRow.IsActive,
			); err != nil {
				return fmt.Errorf("初期サブメニュー項目の投入に失敗しました: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ MenuRepository = (*PostgresMenuRepo)(nil)
