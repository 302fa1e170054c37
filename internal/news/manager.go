// Package news はニュース記事とカテゴリの状態管理を提供する。
//
// 起動時の疎通確認でRemoteStoreに到達できた場合はRemoteStoreを主、
// PersistentCacheをバックアップとして扱う。到達できない場合は
// PersistentCacheのみで動作する。判定は起動時に1回だけ行う。
package news

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maisgestor/portal/internal/cache"
	"github.com/maisgestor/portal/internal/metrics"
	"github.com/maisgestor/portal/internal/model"
	"github.com/maisgestor/portal/internal/repository"
)

const entity = "news"

// 試行回数制限のキー
const (
	rateKeyAddNews    = "add_news"
	rateKeyImportNews = "import_news"
)

func rateKeyUpdateNews(id string) string {
	return "update_news_" + id
}

// RateLimiter はキーごとの試行回数制限のインターフェース。
type RateLimiter interface {
	CanProceed(key string) bool
}

// Validator はニュースとカテゴリの検証・サニタイズのインターフェース。
type Validator interface {
	ValidateNews(in model.NewsInput) (model.NewsInput, error)
	ValidateCategory(c model.NewsCategory) (model.NewsCategory, error)
}

// Manager はニュース記事とカテゴリを管理する。
type Manager struct {
	remote    repository.NewsStore
	store     cache.Store
	limiter   RateLimiter
	validator Validator
	metrics   metrics.Recorder
	logger    *slog.Logger
	ids       *model.LocalIDGenerator
	now       func() time.Time

	mu         sync.RWMutex
	items      []model.NewsItem
	categories []model.NewsCategory
	loading    bool
	isOnline   bool
	lastSync   model.SyncStatus
}

// NewManager はManagerを生成する。remoteがnilの場合は常にオフラインとして動作する。
func NewManager(
	remote repository.NewsStore,
	store cache.Store,
	limiter RateLimiter,
	validator Validator,
	rec metrics.Recorder,
	logger *slog.Logger,
) *Manager {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		remote:     remote,
		store:      store,
		limiter:    limiter,
		validator:  validator,
		metrics:    rec,
		logger:     logger,
		ids:        model.NewLocalIDGenerator(time.Now),
		now:        time.Now,
		items:      []model.NewsItem{},
		categories: []model.NewsCategory{},
		loading:    true,
	}
}

// Init はRemoteStoreへの疎通を確認し、カテゴリとニュースを並行して読み込む。
func (m *Manager) Init(ctx context.Context) {
	m.setLoading(true)
	defer m.setLoading(false)

	online := false
	if m.remote != nil {
		if err := m.remote.Probe(ctx); err != nil {
			m.logger.Warn("remote store unreachable, using persistent cache as fallback",
				slog.String("error", err.Error()),
			)
		} else {
			online = true
		}
	}
	if online {
		m.logger.Info("connected to remote store")
	}

	m.mu.Lock()
	m.isOnline = online
	m.mu.Unlock()
	m.metrics.SetOnline(online)

	var g errgroup.Group
	g.Go(func() error {
		m.FetchCategories(ctx)
		return nil
	})
	g.Go(func() error {
		m.FetchNews(ctx)
		return nil
	})
	_ = g.Wait()
}

// FetchCategories はカテゴリを読み込んで返す。
// オンライン時はRemoteStoreからname昇順で取得してキャッシュにバックアップする。
// 取得できない場合はキャッシュ、それも無ければ初期カテゴリを使う。
func (m *Manager) FetchCategories(ctx context.Context) []model.NewsCategory {
	if m.IsOnline() {
		list, err := m.remote.ListCategories(ctx)
		if err == nil {
			m.setCategories(list)
			m.backup(cache.KeyCategoriesBackup, list)
			return slices.Clone(list)
		}
		m.logger.Warn("failed to fetch categories from remote store",
			slog.String("error", err.Error()),
		)
		if cached, ok := readCache[model.NewsCategory](m, cache.KeyCategoriesBackup); ok {
			m.setCategories(cached)
			return cached
		}
		defaults := DefaultCategories()
		m.setCategories(defaults)
		return defaults
	}

	if cached, ok := readCache[model.NewsCategory](m, cache.KeyCategoriesBackup); ok {
		m.setCategories(cached)
		return cached
	}
	defaults := DefaultCategories()
	m.setCategories(defaults)
	m.backup(cache.KeyCategoriesBackup, defaults)
	return defaults
}

// FetchNews はニュースを読み込んで返す。
// オンライン時はRemoteStoreからpublished_at降順で取得してキャッシュにバックアップする。
func (m *Manager) FetchNews(ctx context.Context) []model.NewsItem {
	if m.IsOnline() {
		list, err := m.remote.ListNews(ctx)
		if err == nil {
			m.setItems(list)
			m.backup(cache.KeyNewsBackup, list)
			return slices.Clone(list)
		}
		m.logger.Warn("failed to fetch news from remote store",
			slog.String("error", err.Error()),
		)
		if cached, ok := readCache[model.NewsItem](m, cache.KeyNewsBackup); ok {
			m.setItems(cached)
			return cached
		}
		defaults := DefaultNews()
		m.setItems(defaults)
		return defaults
	}

	if cached, ok := readCache[model.NewsItem](m, cache.KeyNewsBackup); ok {
		m.setItems(cached)
		return cached
	}
	defaults := DefaultNews()
	m.setItems(defaults)
	m.backup(cache.KeyNewsBackup, defaults)
	return defaults
}

// AddNews は記事を検証して追加する。
// 試行回数制限と検証に失敗した場合は状態を変更せずエラーを返す。
// RemoteStoreへの登録に失敗した場合はローカルIDで追加する。
func (m *Manager) AddNews(ctx context.Context, in model.NewsInput) (model.NewsItem, error) {
	if !m.limiter.CanProceed(rateKeyAddNews) {
		m.metrics.RecordRateLimited(rateKeyAddNews)
		return model.NewsItem{}, model.NewRateLimitError(rateKeyAddNews)
	}

	validated, err := m.validator.ValidateNews(in)
	if err != nil {
		m.metrics.RecordValidationFailure(entity)
		return model.NewsItem{}, err
	}

	return m.insert(ctx, "add_news", validated), nil
}

// insert は検証済みの入力を保存する。
// オンライン時は先頭に、オフライン時は末尾に追加する。
func (m *Manager) insert(ctx context.Context, operation string, in model.NewsInput) model.NewsItem {
	if in.PublishedAt.IsZero() {
		in.PublishedAt = m.now()
	}

	if !m.IsOnline() {
		item := in.ToItem(m.ids.Next())
		m.recordSync(operation, false, nil)
		m.mutate(func(items []model.NewsItem) []model.NewsItem {
			return append(items, item)
		})
		return item
	}

	created, err := m.remote.CreateNews(ctx, in.ToItem(""))
	m.afterRemote(operation, err)
	item := created
	if err != nil {
		item = in.ToItem(m.ids.Next())
	}
	m.mutate(func(items []model.NewsItem) []model.NewsItem {
		return slices.Insert(items, 0, item)
	})
	return item
}

// UpdateNews は記事を部分更新する。
// 本文系のフィールドを含むパッチはマージ後の記事全体を再検証し、サニタイズ済みの値で更新する。
func (m *Manager) UpdateNews(ctx context.Context, id string, patch model.NewsPatch) (model.NewsItem, error) {
	key := rateKeyUpdateNews(id)
	if !m.limiter.CanProceed(key) {
		m.metrics.RecordRateLimited("update_news")
		return model.NewsItem{}, model.NewRateLimitError(key)
	}

	current, ok := m.find(id)
	if !ok {
		return model.NewsItem{}, model.NewNewsNotFoundError(id)
	}

	if patch.TouchesContent() {
		validated, err := m.validator.ValidateNews(model.InputFromItem(patch.Apply(current)))
		if err != nil {
			m.metrics.RecordValidationFailure(entity)
			return model.NewsItem{}, err
		}
		patch = patch.WithSanitized(validated)
	}

	if m.IsOnline() {
		err := m.remote.UpdateNews(ctx, id, patch)
		m.afterRemote("update_news", err)
	} else {
		m.recordSync("update_news", false, nil)
	}

	updated := patch.Apply(current)
	m.mutate(func(items []model.NewsItem) []model.NewsItem {
		for i := range items {
			if items[i].ID == id {
				items[i] = patch.Apply(items[i])
				updated = items[i]
			}
		}
		return items
	})
	return updated, nil
}

// DeleteNews は記事を削除する。RemoteStoreの結果に関わらずローカルからは削除する。
func (m *Manager) DeleteNews(ctx context.Context, id string) error {
	if m.IsOnline() {
		err := m.remote.DeleteNews(ctx, id)
		m.afterRemote("delete_news", err)
	} else {
		m.recordSync("delete_news", false, nil)
	}

	m.mutate(func(items []model.NewsItem) []model.NewsItem {
		return slices.DeleteFunc(items, func(it model.NewsItem) bool { return it.ID == id })
	})
	return nil
}

// SaveCategories はカテゴリ一覧を検証してPersistentCacheにのみ保存する。
// カテゴリ名を変更しても既存記事のcategoryは変更しない。
func (m *Manager) SaveCategories(ctx context.Context, list []model.NewsCategory) ([]model.NewsCategory, error) {
	out := make([]model.NewsCategory, 0, len(list))
	for _, c := range list {
		validated, err := m.validator.ValidateCategory(c)
		if err != nil {
			m.metrics.RecordValidationFailure("category")
			return nil, err
		}
		if validated.ID == "" {
			validated.ID = m.ids.Next()
		}
		out = append(out, validated)
	}

	m.setCategories(out)
	m.backup(cache.KeyCategoriesBackup, out)
	return slices.Clone(out), nil
}

// ActiveNews は公開中の記事をpublishedAt降順で返す。
func (m *Manager) ActiveNews() []model.NewsItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.NewsItem, 0, len(m.items))
	for _, it := range m.items {
		if it.IsActive {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b model.NewsItem) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	return out
}

// NewsByCategory はカテゴリ名が完全一致する公開中の記事を返す。
func (m *Manager) NewsByCategory(name string) []model.NewsItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.NewsItem, 0)
	for _, it := range m.items {
		if it.IsActive && it.Category == name {
			out = append(out, it)
		}
	}
	return out
}

// News は全記事のコピーを返す。
func (m *Manager) News() []model.NewsItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items)
}

// Categories は全カテゴリのコピーをname順で返す。
func (m *Manager) Categories() []model.NewsCategory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.categories)
	slices.SortStableFunc(out, func(a, b model.NewsCategory) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// Loading は読み込み中かを返す。
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// IsOnline は起動時の疎通確認でRemoteStoreに到達できたかを返す。
func (m *Manager) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// LastSync は直近の書き込み操作の同期状態を返す。
func (m *Manager) LastSync() model.SyncStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

func (m *Manager) find(id string) (model.NewsItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.items {
		if it.ID == id {
			return it, true
		}
	}
	return model.NewsItem{}, false
}

// mutate は現在の記事一覧のコピーにfnを適用して置き換え、キャッシュにバックアップする。
func (m *Manager) mutate(fn func(items []model.NewsItem) []model.NewsItem) {
	m.mu.Lock()
	next := fn(slices.Clone(m.items))
	if next == nil {
		next = []model.NewsItem{}
	}
	m.items = next
	m.mu.Unlock()

	m.backup(cache.KeyNewsBackup, next)
}

func (m *Manager) setItems(items []model.NewsItem) {
	if items == nil {
		items = []model.NewsItem{}
	}
	m.mu.Lock()
	m.items = slices.Clone(items)
	m.mu.Unlock()
}

func (m *Manager) setCategories(list []model.NewsCategory) {
	if list == nil {
		list = []model.NewsCategory{}
	}
	m.mu.Lock()
	m.categories = slices.Clone(list)
	m.mu.Unlock()
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

// afterRemote はRemoteStoreへの書き込み結果をログ・メトリクス・同期状態に反映する。
func (m *Manager) afterRemote(operation string, err error) {
	m.metrics.RecordRemoteWrite(entity, operation, err == nil)
	if err != nil {
		m.logger.Warn("remote write failed, applying locally",
			slog.String("entity", entity),
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}
	m.recordSync(operation, err == nil, err)
}

func (m *Manager) recordSync(operation string, ok bool, err error) {
	status := model.SyncStatus{Operation: operation, Remote: ok, At: m.now()}
	if err != nil {
		status.Error = err.Error()
	}
	m.mu.Lock()
	m.lastSync = status
	m.mu.Unlock()
}

func (m *Manager) backup(key string, v any) {
	err := m.store.Put(key, v)
	m.metrics.RecordCacheWrite(key, err == nil)
	if err != nil {
		m.logger.Warn("failed to write backup to cache",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// readCache はキャッシュからスナップショットを読み込む。存在しないか壊れている場合はfalseを返す。
func readCache[T any](m *Manager, key string) ([]T, bool) {
	var out []T
	found, err := m.store.Get(key, &out)
	if err != nil {
		m.logger.Warn("failed to read backup from cache",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if !found {
		return nil, false
	}
	if out == nil {
		out = []T{}
	}
	return out, true
}
