package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maisgestor/portal/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
// 疎通確認（Probe）もcategoriesテーブルに対して行う。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// ListCategories は全カテゴリをname昇順で取得する。
func (r *PostgresCategoryRepo) ListCategories(ctx context.Context) ([]model.NewsCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, created_at, updated_at FROM categories ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []model.NewsCategory
	for rows.Next() {
		var row CategoryRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Color, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("カテゴリのスキャンに失敗しました: %w", err)
		}
		categories = append(categories, row.ToModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリの走査に失敗しました: %w", err)
	}
	return categories, nil
}

// Probe はcategoriesテーブルへの軽量クエリでRemoteStoreへの疎通を確認する。
func (r *PostgresCategoryRepo) Probe(ctx context.Context) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM categories LIMIT 1`).Scan(&one)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("RemoteStoreへの疎通確認に失敗しました: %w", err)
	}
	return nil
}

var (
	_ CategoryRepository = (*PostgresCategoryRepo)(nil)
	_ Prober             = (*PostgresCategoryRepo)(nil)
)
