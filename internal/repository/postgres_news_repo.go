package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/maisgestor/portal/internal/model"
)

// PostgresNewsRepo はPostgreSQLを使用したニュースリポジトリ。
type PostgresNewsRepo struct {
	db *sql.DB
}

// NewPostgresNewsRepo はPostgresNewsRepoを生成する。
func NewPostgresNewsRepo(db *sql.DB) *PostgresNewsRepo {
	return &PostgresNewsRepo{db: db}
}

// ListNews は全記事をpublished_at降順で取得する。
func (r *PostgresNewsRepo) ListNews(ctx context.Context) ([]model.NewsItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, content, excerpt, image_url, category, author,
		        is_active, published_at, created_at, updated_at
		 FROM news ORDER BY published_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ニュースの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []model.NewsItem
	for rows.Next() {
		var row NewsRow
		if err := rows.Scan(
			&row.ID, &row.Title, &row.Content, &row.Excerpt, &row.ImageURL,
			&row.Category, &row.Author, &row.IsActive, &row.PublishedAt,
			&row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ニュースのスキャンに失敗しました: %w", err)
		}
		items = append(items, row.ToModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ニュースの走査に失敗しました: %w", err)
	}
	return items, nil
}

// CreateNews は記事を作成する。IDはリポジトリで採番する。
func (r *PostgresNewsRepo) CreateNews(ctx context.Context, item model.NewsItem) (model.NewsItem, error) {
	row := NewsRowFromModel(item)
	row.ID = uuid.New().String()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO news (id, title, content, excerpt, image_url, category, author, is_active, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING published_at, created_at, updated_at`,
		row.ID, row.Title, row.Content, row.Excerpt, row.ImageURL,
		row.Category, row.Author, row.IsActive, row.PublishedAt,
	).Scan(&row.PublishedAt, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return model.NewsItem{}, fmt.Errorf("ニュースの作成に失敗しました: %w", err)
	}
	return row.ToModel(), nil
}

// UpdateNews はパッチに含まれるカラムのみを更新する。
func (r *PostgresNewsRepo) UpdateNews(ctx context.Context, id string, patch model.NewsPatch) error {
	b := newsUpdate(patch)
	if b.empty() {
		return nil
	}
	query, args := b.build(id)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ニュースの更新に失敗しました: %w", err)
	}
	return requireAffected(result, "news", id)
}

// DeleteNews は記事を削除する。
func (r *PostgresNewsRepo) DeleteNews(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM news WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ニュースの削除に失敗しました: %w", err)
	}
	return requireAffected(result, "news", id)
}

var _ NewsRepository = (*PostgresNewsRepo)(nil)
