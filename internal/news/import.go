package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/maisgestor/portal/internal/model"
)

// ImportResult はImportNewsの処理結果。
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportNews は外部フィードから取得した記事をまとめて追加する。
// 試行回数制限はバッチ全体で1回だけ消費する。既存記事と同じタイトルの記事はスキップし、
// 検証に失敗した記事はErrorsに記録して残りの処理を続ける。
func (m *Manager) ImportNews(ctx context.Context, inputs []model.NewsInput) (ImportResult, error) {
	if !m.limiter.CanProceed(rateKeyImportNews) {
		m.metrics.RecordRateLimited(rateKeyImportNews)
		return ImportResult{}, model.NewRateLimitError(rateKeyImportNews)
	}

	seen := make(map[string]bool)
	for _, it := range m.News() {
		seen[titleKey(it.Title)] = true
	}

	var res ImportResult
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		key := titleKey(in.Title)
		if seen[key] {
			res.Skipped++
			continue
		}

		validated, err := m.validator.ValidateNews(in)
		if err != nil {
			m.metrics.RecordValidationFailure(entity)
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", in.Title, err))
			continue
		}

		m.insert(ctx, "import_news", validated)
		seen[key] = true
		res.Imported++
	}

	m.metrics.RecordImportedItems(res.Imported, res.Skipped)
	return res, nil
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
