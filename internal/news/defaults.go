package news

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/maisgestor/portal/internal/model"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	defaultCategories []model.NewsCategory
	defaultNews       []model.NewsItem
)

func init() {
	var f struct {
		Categories []model.NewsCategory `yaml:"categories"`
		News       []model.NewsItem     `yaml:"news"`
	}
	if err := yaml.Unmarshal(defaultsYAML, &f); err != nil {
		panic(fmt.Sprintf("news: defaults.yaml の読み込みに失敗しました: %v", err))
	}
	defaultCategories = f.Categories
	defaultNews = f.News
}

// DefaultCategories は初期カテゴリのコピーを返す。
func DefaultCategories() []model.NewsCategory {
	return slices.Clone(defaultCategories)
}

// DefaultNews は初期ニュースのコピーを返す。
func DefaultNews() []model.NewsItem {
	return slices.Clone(defaultNews)
}
