// Package menu はサイトのナビゲーションメニューの状態管理を提供する。
// メモリ上の状態をセッション中の正とし、RemoteStoreとPersistentCacheへ
// ベストエフォートで反映する。
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/maisgestor/portal/internal/cache"
	"github.com/maisgestor/portal/internal/metrics"
	"github.com/maisgestor/portal/internal/model"
	"github.com/maisgestor/portal/internal/repository"
)

const entity = "menu"

// Manager はメニュー項目のCRUDと並び替えを行う。
// repoがnilの場合はRemoteStoreを使わずPersistentCacheのみで動作する。
type Manager struct {
	repo    repository.MenuRepository
	store   cache.Store
	metrics metrics.Recorder
	logger  *slog.Logger
	ids     *model.LocalIDGenerator
	now     func() time.Time

	mu            sync.RWMutex
	items         []model.MenuItem
	loading       bool
	updateTrigger int
	lastSync      model.SyncStatus
}

// NewManager はManagerを生成する。Loadを呼ぶまでloadingはtrueのまま。
func NewManager(repo repository.MenuRepository, store cache.Store, rec metrics.Recorder, logger *slog.Logger) *Manager {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:    repo,
		store:   store,
		metrics: rec,
		logger:  logger,
		ids:     model.NewLocalIDGenerator(time.Now),
		now:     time.Now,
		items:   []model.MenuItem{},
		loading: true,
	}
}

// Load はRemoteStoreからメニューを読み込む。
// 失敗した場合はPersistentCacheのスナップショット、それも無ければ初期構成を使う。
func (m *Manager) Load(ctx context.Context) {
	m.setLoading(true)
	defer m.setLoading(false)

	if m.repo != nil {
		items, err := m.fetchRemote(ctx)
		if err == nil {
			m.mu.Lock()
			m.saveLocked(items)
			m.mu.Unlock()
			m.recordSync("load", true, nil)
			return
		}
		m.logger.Warn("failed to load menu from remote store, falling back to cache",
			slog.String("error", err.Error()),
		)
		m.recordSync("load", false, err)
	}

	var conf model.MenuConfiguration
	found, err := m.store.Get(cache.KeyMenuConfiguration, &conf)
	if err != nil {
		m.logger.Warn("failed to read menu snapshot from cache",
			slog.String("error", err.Error()),
		)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if found && err == nil {
		m.items = model.CloneMenuItems(conf.Items)
		if m.items == nil {
			m.items = []model.MenuItem{}
		}
		m.updateTrigger++
		return
	}
	m.saveLocked(DefaultMenuItems())
}

// fetchRemote はトップレベル項目とサブメニュー項目を取得し、親IDで結合する。
func (m *Manager) fetchRemote(ctx context.Context) ([]model.MenuItem, error) {
	items, err := m.repo.ListMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("メニュー項目の取得に失敗しました: %w", err)
	}
	subs, err := m.repo.ListSubMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("サブメニュー項目の取得に失敗しました: %w", err)
	}

	byParent := make(map[string][]model.SubMenuItem)
	for _, rec := range subs {
		byParent[rec.ParentID] = append(byParent[rec.ParentID], rec.Item)
	}

	joined := make([]model.MenuItem, len(items))
	for i, it := range items {
		if children, ok := byParent[it.ID]; ok {
			sortSubmenu(children)
			it.Submenu = children
		}
		joined[i] = it
	}
	return sortByOrder(joined), nil
}

// saveLocked は共通の保存処理。
// スライスを丸ごと置き換え、updateTriggerを進め、スナップショットをキャッシュに書き込む。
// m.muのロックを保持した状態で呼ぶこと。
func (m *Manager) saveLocked(items []model.MenuItem) {
	if items == nil {
		items = []model.MenuItem{}
	}
	m.items = items
	m.updateTrigger++

	conf := model.MenuConfiguration{Items: items, LastUpdated: m.now()}
	err := m.store.Put(cache.KeyMenuConfiguration, conf)
	m.metrics.RecordCacheWrite(cache.KeyMenuConfiguration, err == nil)
	if err != nil {
		m.logger.Warn("failed to write menu snapshot to cache",
			slog.String("error", err.Error()),
		)
	}
}

// mutate は現在の状態のコピーにfnを適用し、結果を共通の保存処理で反映する。
func (m *Manager) mutate(fn func(items []model.MenuItem) []model.MenuItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveLocked(fn(model.CloneMenuItems(m.items)))
}

// remote はRemoteStoreへの書き込みを実行する。
// オフライン時または失敗時はfalseを返し、呼び出し側はローカルのみで処理を続ける。
func (m *Manager) remote(operation string, fn func() error) bool {
	if m.repo == nil {
		m.recordSync(operation, false, nil)
		return false
	}
	err := fn()
	m.metrics.RecordRemoteWrite(entity, operation, err == nil)
	if err != nil {
		m.logger.Warn("remote write failed, applying locally",
			slog.String("entity", entity),
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}
	m.recordSync(operation, err == nil, err)
	return err == nil
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

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

func validateInput(name, href string) error {
	var violations []string
	if strings.TrimSpace(name) == "" {
		violations = append(violations, "Nome é obrigatório")
	}
	if strings.TrimSpace(href) == "" {
		violations = append(violations, "Link é obrigatório")
	}
	if len(violations) > 0 {
		return model.NewValidationError(violations)
	}
	return nil
}

// AddMenuItem はメニュー項目を末尾に追加する。
// orderを省略した場合は既存の最大値+1を使う。RemoteStoreへの登録に失敗した場合はローカルIDを採番する。
func (m *Manager) AddMenuItem(ctx context.Context, in model.MenuItemInput) (model.MenuItem, error) {
	if err := validateInput(in.Name, in.Href); err != nil {
		return model.MenuItem{}, err
	}

	m.mu.RLock()
	order := nextOrder(m.items)
	m.mu.RUnlock()

	item := model.MenuItem{
		Name:     in.Name,
		Href:     in.Href,
		IsActive: true,
		Order:    order,
	}
	if in.Order != nil {
		item.Order = *in.Order
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}

	var created model.MenuItem
	if m.remote("add_menu_item", func() (err error) {
		created, err = m.repo.CreateMenuItem(ctx, item)
		return err
	}) {
		item.ID = created.ID
	} else {
		item.ID = m.ids.Next()
	}

	m.mutate(func(items []model.MenuItem) []model.MenuItem {
		return append(items, item)
	})
	return item, nil
}

// UpdateMenuItem はパッチに含まれるフィールドのみを更新する。
func (m *Manager) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) error {
	if !m.hasItem(id) {
		return model.NewMenuItemNotFoundError(id)
	}
	patch.HasSubmenu = nil
	if patch.IsEmpty() {
		return nil
	}

	m.remote("update_menu_item", func() error {
		return m.repo.UpdateMenuItem(ctx, id, patch)
	})

	m.mutate(func(items []model.MenuItem) []model.MenuItem {
		for i := range items {
			if items[i].ID == id {
				items[i] = patch.Apply(items[i])
			}
		}
		return items
	})
	return nil
}

// DeleteMenuItem はメニュー項目をサブメニューごと削除する。存在しないIDは何もしない。
func (m *Manager) DeleteMenuItem(ctx context.Context, id string) error {
	if !m.hasItem(id) {
		return nil
	}

	m.remote("delete_menu_item", func() error {
		return m.repo.DeleteMenuItem(ctx, id)
	})

	m.mutate(func(items []model.MenuItem) []model.MenuItem {
		return slices.DeleteFunc(items, func(it model.MenuItem) bool { return it.ID == id })
	})
	return nil
}

// AddSubMenuItem は親項目のサブメニューに項目を追加し、親のhasSubmenuをtrueにする。
func (m *Manager) AddSubMenuItem(ctx context.Context, parentID string, in model.SubMenuItemInput) (model.SubMenuItem, error) {
	if err := validateInput(in.Name, in.Href); err != nil {
		return model.SubMenuItem{}, err
	}

	parent, ok := m.findItem(parentID)
	if !ok {
		return model.SubMenuItem{}, model.NewMenuItemNotFoundError(parentID)
	}

	sub := model.SubMenuItem{
		Name:     in.Name,
		Href:     in.Href,
		IsActive: true,
		Order:    nextSubOrder(parent.Submenu),
	}
	if in.Order != nil {
		sub.Order = *in.Order
	}
	if in.IsActive != nil {
		sub.IsActive = *in.IsActive
	}

	var created model.SubMenuItem
	if m.remote("add_submenu_item", func() (err error) {
		created, err = m.repo.CreateSubMenuItem(ctx, parentID, sub)
		if err != nil {
			return err
		}
		if !parent.HasSubmenu {
			hasSubmenu := true
			return m.repo.UpdateMenuItem(ctx, parentID, model.MenuItemPatch{HasSubmenu: &hasSubmenu})
		}
		return nil
	}) || created.ID != "" {
		sub.ID = created.ID
	} else {
		sub.ID = m.ids.Next()
	}

	m.mutate(func(items []model.MenuItem) []model.MenuItem {
		for i := range items {
			if items[i].ID != parentID {
				continue
			}
			subs := append(items[i].Submenu, sub)
			sortSubmenu(subs)
			items[i].Submenu = subs
			items[i].HasSubmenu = true
		}
		return items
	})
	return sub, nil
}

// UpdateSubMenuItem はサブメニュー項目を更新し、親のサブメニューをorder順に並べ直す。
func (m *Manager) UpdateSubMenuItem(ctx context.Context, parentID, subID string, patch model.SubMenuItemPatch) error {
	if !m.hasSubItem(parentID, subID) {
		return model.NewSubMenuItemNotFoundError(parentID, subID)
	}
	if patch.IsEmpty() {
		return nil
	}

	m.remote("update_submenu_item", func() error {
		return m.repo.UpdateSubMenuItem(ctx, subID, patch)
	})

	m.mutate(func(items []model.MenuItem) []model.MenuItem {
		for i := range items {
			if items[i].ID != parentID {
				continue
			}
			for j := range items[i].Submenu {
				if items[i].Submenu[j].ID == subID {
					items[i].Submenu[j] = patch.Apply(items[i].Submenu[j])
				}
			}
			sortSubmenu(items[i].Submenu)
		}
		return items
	})
	return nil
}

// DeleteSubMenuItem はサブメニュー項目を削除し、親のhasSubmenuを残りの件数から再計算する。
func (m *Manager) DeleteSubMenuItem(ctx context.Context, parentID, subID string) error {
	parent, ok := m.findItem(parentID)
	if !ok || !slices.ContainsFunc(parent.Submenu, func(s model.SubMenuItem) bool { return s.ID == subID }) {
		return nil
	}
	remaining := len(parent.Submenu) - 1

	m.remote("delete_submenu_item", func() error {
		if err := m.repo.DeleteSubMenuItem(ctx, subID); err != nil {
			return err
		}
		if remaining == 0 {
			hasSubmenu := false
			return m.repo.UpdateMenuItem(ctx, parentID, model.MenuItemPatch{HasSubmenu: &hasSubmenu})
		}
		return nil
	})

	m.mutate(func(items []model.MenuItem) []model.MenuItem {
		for i := range items {
			if items[i].ID != parentID {
				continue
			}
			rest := slices.DeleteFunc(items[i].Submenu, func(s model.SubMenuItem) bool { return s.ID == subID })
			items[i].Submenu = rest
			items[i].HasSubmenu = len(rest) > 0
		}
		return items
	})
	return nil
}

// MoveItemUp は項目を1つ前に移動する。既に先頭の場合はfalseを返し状態を変更しない。
func (m *Manager) MoveItemUp(ctx context.Context, id string) (bool, error) {
	return m.move(ctx, id, true)
}

// MoveItemDown は項目を1つ後ろに移動する。既に末尾の場合はfalseを返し状態を変更しない。
func (m *Manager) MoveItemDown(ctx context.Context, id string) (bool, error) {
	return m.move(ctx, id, false)
}

// move は全項目のorderを振り直し、1項目ずつRemoteStoreに書き込む。
// 途中で失敗してもロールバックせず、ローカルには振り直した結果を反映する。
func (m *Manager) move(ctx context.Context, id string, up bool) (bool, error) {
	m.mu.RLock()
	snapshot := model.CloneMenuItems(m.items)
	m.mu.RUnlock()

	renumbered, moved, found := moveItem(snapshot, id, up)
	if !found {
		return false, model.NewMenuItemNotFoundError(id)
	}
	if !moved {
		return false, nil
	}

	operation := "move_item_down"
	if up {
		operation = "move_item_up"
	}
	m.remote(operation, func() error {
		var errs []error
		for _, it := range renumbered {
			order := it.Order
			if err := m.repo.UpdateMenuItem(ctx, it.ID, model.MenuItemPatch{Order: &order}); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", it.ID, err))
			}
		}
		return errors.Join(errs...)
	})

	m.mu.Lock()
	m.saveLocked(renumbered)
	m.mu.Unlock()
	return true, nil
}

// ResetToDefault はRemoteStoreのメニューを初期構成に戻して読み込み直す。
// RemoteStoreが使えない場合はローカルの初期構成を使う。
func (m *Manager) ResetToDefault(ctx context.Context) {
	if m.repo != nil {
		err := m.repo.ResetMenu(ctx, DefaultMenuItems())
		var items []model.MenuItem
		if err == nil {
			items, err = m.fetchRemote(ctx)
		}
		m.metrics.RecordRemoteWrite(entity, "reset_to_default", err == nil)
		if err == nil {
			m.mu.Lock()
			m.saveLocked(items)
			m.mu.Unlock()
			m.recordSync("reset_to_default", true, nil)
			return
		}
		m.logger.Warn("failed to reset menu in remote store, using local defaults",
			slog.String("error", err.Error()),
		)
		m.recordSync("reset_to_default", false, err)
	} else {
		m.recordSync("reset_to_default", false, nil)
	}

	m.mu.Lock()
	m.saveLocked(DefaultMenuItems())
	m.mu.Unlock()
}

// ActiveMenuItems はアクティブな項目のみをorder順に返す。保持している状態は変更しない。
func (m *Manager) ActiveMenuItems() []model.MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return activeView(m.items)
}

// MenuItems は全メニュー項目のコピーを返す。
func (m *Manager) MenuItems() []model.MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.CloneMenuItems(m.items)
}

// Loading は読み込み中かを返す。
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// UpdateTrigger は保存のたびに増加するカウンタを返す。
func (m *Manager) UpdateTrigger() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updateTrigger
}

// LastSync は直近の操作の同期状態を返す。
func (m *Manager) LastSync() model.SyncStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

func (m *Manager) findItem(id string) (model.MenuItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.items {
		if it.ID == id {
			it.Submenu = slices.Clone(it.Submenu)
			return it, true
		}
	}
	return model.MenuItem{}, false
}

func (m *Manager) hasItem(id string) bool {
	_, ok := m.findItem(id)
	return ok
}

func (m *Manager) hasSubItem(parentID, subID string) bool {
	parent, ok := m.findItem(parentID)
	if !ok {
		return false
	}
	return slices.ContainsFunc(parent.Submenu, func(s model.SubMenuItem) bool { return s.ID == subID })
}
