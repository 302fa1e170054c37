package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/maisgestor/portal/internal/metrics"
	"github.com/maisgestor/portal/internal/model"
)

// defaultAuthor はフィードに著者情報が無い場合に使う著者名。
const defaultAuthor = "Redação"

// ErrNotDue はバックオフ中のため取得を見送ったことを表す。
var ErrNotDue = errors.New("バックオフ中のため取得を見送りました")

// URLGuard はSSRF対策のURL検証と安全なHTTPクライアントを提供するインターフェース。
type URLGuard interface {
	ValidateFeedURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// Fetcher は取り込み元フィードのHTTP取得とパースを行い、ニュースの入力に変換する。
// ETag/Last-Modifiedによる条件付きGETと、失敗時の指数バックオフを行う。
type Fetcher struct {
	guard       URLGuard
	metrics     metrics.Recorder
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
	category    string
	now         func() time.Time

	mu     sync.Mutex
	states map[string]*feedState
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// categoryは取り込んだ記事に設定するカテゴリ名。
func NewFetcher(
	guard URLGuard,
	rec metrics.Recorder,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	category string,
) *Fetcher {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Fetcher{
		guard:       guard,
		metrics:     rec,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		category:    category,
		now:         time.Now,
		states:      make(map[string]*feedState),
	}
}

func (f *Fetcher) state(feedURL string) *feedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[feedURL]
	if !ok {
		s = &feedState{}
		f.states[feedURL] = s
	}
	return s
}

// Fetch はフィードを取得してニュースの入力に変換する。
// 304の場合は空のスライスを返す。バックオフ中の場合はErrNotDueを返す。
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]model.NewsInput, error) {
	st := f.state(feedURL)

	f.mu.Lock()
	due := st.due(f.now())
	etag, lastModified := st.etag, st.lastModified
	f.mu.Unlock()
	if !due {
		return nil, ErrNotDue
	}

	start := time.Now()
	inputs, err := f.fetch(ctx, feedURL, etag, lastModified, st)
	f.metrics.RecordFeedFetch(err == nil, time.Since(start))

	f.mu.Lock()
	if err != nil {
		st.applyFailure(f.now())
	} else {
		st.applySuccess()
	}
	f.mu.Unlock()

	return inputs, err
}

func (f *Fetcher) fetch(ctx context.Context, feedURL, etag, lastModified string, st *feedState) ([]model.NewsInput, error) {
	// SSRF検証
	if err := f.guard.ValidateFeedURL(feedURL); err != nil {
		f.logger.Error("SSRF検証に失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := f.guard.NewSafeClient(f.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "MaisGestorPortal/1.0 News Importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := client.Do(req)
	if err != nil {
		f.logger.Error("HTTPリクエストに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	f.metrics.RecordHTTPStatus(resp.StatusCode)

	switch ClassifyHTTPStatus(resp.StatusCode) {
	case FetchResultOK:
	case FetchResultNotModified:
		f.logger.Info("フィードは未変更です（304）",
			slog.String("feed_url", feedURL),
		)
		return []model.NewsInput{}, nil
	case FetchResultBackoff:
		f.logger.Warn("フィード取得にバックオフを適用します",
			slog.String("feed_url", feedURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("HTTPステータス %d", resp.StatusCode)
	default:
		f.logger.Warn("予期しないHTTPステータスコード",
			slog.String("feed_url", feedURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("予期しないHTTPステータス: %d", resp.StatusCode)
	}

	// レスポンスボディを読み込み（最大サイズ制限付き）
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		f.logger.Error("フィードのパースに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	f.mu.Lock()
	if v := resp.Header.Get("ETag"); v != "" {
		st.etag = v
	}
	if v := resp.Header.Get("Last-Modified"); v != "" {
		st.lastModified = v
	}
	f.mu.Unlock()

	inputs := f.convertItems(parsed)
	f.logger.Info("フィードを取得しました",
		slog.String("feed_url", feedURL),
		slog.Int("items_total", len(inputs)),
	)
	return inputs, nil
}

// convertItems はgofeedの記事をニュースの入力に変換する。タイトルの無い記事は除外する。
func (f *Fetcher) convertItems(feed *gofeed.Feed) []model.NewsInput {
	inputs := make([]model.NewsInput, 0, len(feed.Items))

	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}

		in := model.NewsInput{
			Title:    strings.TrimSpace(item.Title),
			Content:  item.Content,
			Excerpt:  buildExcerpt(item.Description, item.Content),
			IsActive: true,
			Category: f.category,
			Author:   itemAuthor(item, feed),
		}

		// Contentが空の場合はDescriptionを使用
		if in.Content == "" {
			in.Content = item.Description
		}
		if in.Content == "" {
			in.Content = in.Excerpt
		}

		if item.Image != nil {
			in.ImageURL = item.Image.URL
		}

		if item.PublishedParsed != nil {
			in.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			in.PublishedAt = *item.UpdatedParsed
		}

		inputs = append(inputs, in)
	}

	return inputs
}

func itemAuthor(item *gofeed.Item, feed *gofeed.Feed) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil && item.Authors[0].Name != "" {
		return item.Authors[0].Name
	}
	if feed.Title != "" {
		return truncateRunes(feed.Title, 100)
	}
	return defaultAuthor
}
