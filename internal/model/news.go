// Package model はドメインモデルを定義する。
package model

import "time"

// NewsItem はサイトに掲載するニュース記事を表す。
// Categoryはカテゴリ名を保持する（NewsCategory.IDではない）。
// カテゴリ名の変更は既存記事に伝播しない。
type NewsItem struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Content     string    `json:"content" yaml:"content"`
	Excerpt     string    `json:"excerpt" yaml:"excerpt"`
	ImageURL    string    `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt" yaml:"publishedAt"`
	IsActive    bool      `json:"isActive" yaml:"isActive"`
	Category    string    `json:"category" yaml:"category"`
	Author      string    `json:"author" yaml:"author"`
}

// NewsCategory はニュースのカテゴリを表す。Colorは#RRGGBB形式。
type NewsCategory struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

// NewsInput はニュース記事の作成入力。
// PublishedAtがゼロ値の場合は作成時刻が使われる。
type NewsInput struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
	IsActive    bool      `json:"isActive"`
	Category    string    `json:"category"`
	Author      string    `json:"author"`
}

// ToItem はIDを付与してNewsItemに変換する。
func (in NewsInput) ToItem(id string) NewsItem {
	return NewsItem{
		ID:          id,
		Title:       in.Title,
		Content:     in.Content,
		Excerpt:     in.Excerpt,
		ImageURL:    in.ImageURL,
		PublishedAt: in.PublishedAt,
		IsActive:    in.IsActive,
		Category:    in.Category,
		Author:      in.Author,
	}
}

// InputFromItem はNewsItemから検証用の入力を組み立てる。
func InputFromItem(item NewsItem) NewsInput {
	return NewsInput{
		Title:       item.Title,
		Content:     item.Content,
		Excerpt:     item.Excerpt,
		ImageURL:    item.ImageURL,
		PublishedAt: item.PublishedAt,
		IsActive:    item.IsActive,
		Category:    item.Category,
		Author:      item.Author,
	}
}

// NewsPatch はニュース記事の部分更新。nilのフィールドは変更しない。
type NewsPatch struct {
	Title       *string    `json:"title,omitempty"`
	Content     *string    `json:"content,omitempty"`
	Excerpt     *string    `json:"excerpt,omitempty"`
	ImageURL    *string    `json:"imageUrl,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Author      *string    `json:"author,omitempty"`
	IsActive    *bool      `json:"isActive,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// TouchesContent はパッチが検証対象のテキストフィールドを含むかを返す。
func (p NewsPatch) TouchesContent() bool {
	return p.Title != nil || p.Content != nil || p.Excerpt != nil ||
		p.Author != nil || p.ImageURL != nil || p.Category != nil
}

// Apply はパッチをNewsItemに適用した新しい値を返す。
func (p NewsPatch) Apply(item NewsItem) NewsItem {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Content != nil {
		item.Content = *p.Content
	}
	if p.Excerpt != nil {
		item.Excerpt = *p.Excerpt
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Author != nil {
		item.Author = *p.Author
	}
	if p.IsActive != nil {
		item.IsActive = *p.IsActive
	}
	if p.PublishedAt != nil {
		item.PublishedAt = *p.PublishedAt
	}
	return item
}

// WithSanitized は検証済みの入力値でパッチ済みフィールドを置き換える。
// パッチに含まれないフィールドは変更しない。
func (p NewsPatch) WithSanitized(in NewsInput) NewsPatch {
	out := p
	if p.Title != nil {
		out.Title = &in.Title
	}
	if p.Content != nil {
		out.Content = &in.Content
	}
	if p.Excerpt != nil {
		out.Excerpt = &in.Excerpt
	}
	if p.ImageURL != nil {
		out.ImageURL = &in.ImageURL
	}
	if p.Category != nil {
		out.Category = &in.Category
	}
	if p.Author != nil {
		out.Author = &in.Author
	}
	return out
}
