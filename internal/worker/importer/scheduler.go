// Package importer は外部RSS/Atomフィードからのニュース取り込みを提供する。
// スケジューラ、フェッチャー、HTTPステータスの分類とバックオフを含む。
package importer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/maisgestor/portal/internal/model"
	"github.com/maisgestor/portal/internal/news"
)

// FeedFetcherService はフィード取得の実行インターフェース。
type FeedFetcherService interface {
	Fetch(ctx context.Context, feedURL string) ([]model.NewsInput, error)
}

// NewsImporter は取得した記事を保存するインターフェース。
// IsOnlineとFetchNewsは重複判定の前に他プロセスの登録分を読み直すために使う。
type NewsImporter interface {
	ImportNews(ctx context.Context, inputs []model.NewsInput) (news.ImportResult, error)
	IsOnline() bool
	FetchNews(ctx context.Context) []model.NewsItem
}

// defaultInterval はintervalが0以下の場合に使う取り込み間隔。
const defaultInterval = 30 * time.Minute

// Scheduler は取り込み元フィードの定期取得と並列制御を行う。
// 各サイクルで全フィードをsemaphoreパターンで並列取得し、
// 結果をまとめて1回のImportNewsで保存する。
type Scheduler struct {
	feedURLs       []string
	fetcher        FeedFetcherService
	importer       NewsImporter
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewScheduler(
	feedURLs []string,
	fetcher FeedFetcherService,
	importer NewsImporter,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Scheduler{
		feedURLs:       feedURLs,
		fetcher:        fetcher,
		importer:       importer,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start はintervalごとのティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Warn("取り込み間隔が不正なためデフォルト値を使用します",
			slog.Duration("interval", interval),
			slog.Duration("default", defaultInterval),
		)
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("取り込みスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("feed_count", len(s.feedURLs)),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	s.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("取り込みスケジューラを停止しました")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("取り込みサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は全フィードを1回取得し、取得できた記事をまとめて保存する。
func (s *Scheduler) RunOnce(ctx context.Context) (news.ImportResult, error) {
	start := time.Now()

	if len(s.feedURLs) == 0 {
		s.logger.Info("取り込み対象のフィードはありません")
		return news.ImportResult{}, nil
	}

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		inputs []model.NewsInput
	)

	for _, feedURL := range s.feedURLs {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			items, err := s.fetcher.Fetch(ctx, u)
			if errors.Is(err, ErrNotDue) {
				return
			}
			if err != nil {
				s.logger.Error("フィード取得に失敗しました",
					slog.String("feed_url", u),
					slog.String("error", err.Error()),
				)
				return
			}

			mu.Lock()
			inputs = append(inputs, items...)
			mu.Unlock()
		}(feedURL)
	}

	wg.Wait()

	if len(inputs) == 0 {
		s.logger.Info("取り込む記事はありません")
		return news.ImportResult{}, nil
	}

	// APIなど他の経路で登録された記事を重複判定に含める
	if s.importer.IsOnline() {
		s.importer.FetchNews(ctx)
	}

	res, err := s.importer.ImportNews(ctx, inputs)
	if err != nil {
		return res, err
	}

	for _, msg := range res.Errors {
		s.logger.Warn("記事の検証に失敗しました", slog.String("error", msg))
	}
	s.logger.Info("取り込みサイクルが完了しました",
		slog.Int("items_imported", res.Imported),
		slog.Int("items_skipped", res.Skipped),
		slog.Int("items_invalid", len(res.Errors)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return res, nil
}
