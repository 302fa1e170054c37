package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maisgestor/portal/internal/middleware"
	"github.com/maisgestor/portal/internal/model"
	"github.com/maisgestor/portal/internal/news"
)

const testAdminToken = "test-admin-token"

// mockMenuService はMenuServiceInterfaceのモック実装。
type mockMenuService struct {
	activeMenuItemsFn   func() []model.MenuItem
	menuItemsFn         func() []model.MenuItem
	addMenuItemFn       func(ctx context.Context, in model.MenuItemInput) (model.MenuItem, error)
	updateMenuItemFn    func(ctx context.Context, id string, patch model.MenuItemPatch) error
	deleteMenuItemFn    func(ctx context.Context, id string) error
	addSubMenuItemFn    func(ctx context.Context, parentID string, in model.SubMenuItemInput) (model.SubMenuItem, error)
	updateSubMenuItemFn func(ctx context.Context, parentID, subID string, patch model.SubMenuItemPatch) error
	deleteSubMenuItemFn func(ctx context.Context, parentID, subID string) error
	moveItemUpFn        func(ctx context.Context, id string) (bool, error)
	moveItemDownFn      func(ctx context.Context, id string) (bool, error)
	resetCalls          int
}

func (m *mockMenuService) ActiveMenuItems() []model.MenuItem {
	if m.activeMenuItemsFn != nil {
		return m.activeMenuItemsFn()
	}
	return []model.MenuItem{}
}

func (m *mockMenuService) MenuItems() []model.MenuItem {
	if m.menuItemsFn != nil {
		return m.menuItemsFn()
	}
	return []model.MenuItem{}
}

func (m *mockMenuService) AddMenuItem(ctx context.Context, in model.MenuItemInput) (model.MenuItem, error) {
	if m.addMenuItemFn != nil {
		return m.addMenuItemFn(ctx, in)
	}
	return model.MenuItem{}, nil
}

func (m *mockMenuService) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) error {
	if m.updateMenuItemFn != nil {
		return m.updateMenuItemFn(ctx, id, patch)
	}
	return nil
}

func (m *mockMenuService) DeleteMenuItem(ctx context.Context, id string) error {
	if m.deleteMenuItemFn != nil {
		return m.deleteMenuItemFn(ctx, id)
	}
	return nil
}

func (m *mockMenuService) AddSubMenuItem(ctx context.Context, parentID string, in model.SubMenuItemInput) (model.SubMenuItem, error) {
	if m.addSubMenuItemFn != nil {
		return m.addSubMenuItemFn(ctx, parentID, in)
	}
	return model.SubMenuItem{}, nil
}

func (m *mockMenuService) UpdateSubMenuItem(ctx context.Context, parentID, subID string, patch model.SubMenuItemPatch) error {
	if m.updateSubMenuItemFn != nil {
		return m.updateSubMenuItemFn(ctx, parentID, subID, patch)
	}
	return nil
}

func (m *mockMenuService) DeleteSubMenuItem(ctx context.Context, parentID, subID string) error {
	if m.deleteSubMenuItemFn != nil {
		return m.deleteSubMenuItemFn(ctx, parentID, subID)
	}
	return nil
}

func (m *mockMenuService) MoveItemUp(ctx context.Context, id string) (bool, error) {
	if m.moveItemUpFn != nil {
		return m.moveItemUpFn(ctx, id)
	}
	return true, nil
}

func (m *mockMenuService) MoveItemDown(ctx context.Context, id string) (bool, error) {
	if m.moveItemDownFn != nil {
		return m.moveItemDownFn(ctx, id)
	}
	return true, nil
}

func (m *mockMenuService) ResetToDefault(ctx context.Context) { m.resetCalls++ }
func (m *mockMenuService) Loading() bool                      { return false }
func (m *mockMenuService) UpdateTrigger() int                 { return 3 }
func (m *mockMenuService) LastSync() model.SyncStatus {
	return model.SyncStatus{Operation: "move", Remote: false, Error: "connection refused"}
}

// mockNewsService はNewsServiceInterfaceのモック実装。
type mockNewsService struct {
	activeNewsFn     func() []model.NewsItem
	newsByCategoryFn func(name string) []model.NewsItem
	newsFn           func() []model.NewsItem
	categoriesFn     func() []model.NewsCategory
	addNewsFn        func(ctx context.Context, in model.NewsInput) (model.NewsItem, error)
	updateNewsFn     func(ctx context.Context, id string, patch model.NewsPatch) (model.NewsItem, error)
	deleteNewsFn     func(ctx context.Context, id string) error
	saveCategoriesFn func(ctx context.Context, list []model.NewsCategory) ([]model.NewsCategory, error)
	importNewsFn     func(ctx context.Context, inputs []model.NewsInput) (news.ImportResult, error)
}

func (m *mockNewsService) ActiveNews() []model.NewsItem {
	if m.activeNewsFn != nil {
		return m.activeNewsFn()
	}
	return []model.NewsItem{}
}

func (m *mockNewsService) NewsByCategory(name string) []model.NewsItem {
	if m.newsByCategoryFn != nil {
		return m.newsByCategoryFn(name)
	}
	return []model.NewsItem{}
}

func (m *mockNewsService) News() []model.NewsItem {
	if m.newsFn != nil {
		return m.newsFn()
	}
	return []model.NewsItem{}
}

func (m *mockNewsService) Categories() []model.NewsCategory {
	if m.categoriesFn != nil {
		return m.categoriesFn()
	}
	return []model.NewsCategory{}
}

func (m *mockNewsService) AddNews(ctx context.Context, in model.NewsInput) (model.NewsItem, error) {
	if m.addNewsFn != nil {
		return m.addNewsFn(ctx, in)
	}
	return in.ToItem("1"), nil
}

func (m *mockNewsService) UpdateNews(ctx context.Context, id string, patch model.NewsPatch) (model.NewsItem, error) {
	if m.updateNewsFn != nil {
		return m.updateNewsFn(ctx, id, patch)
	}
	return model.NewsItem{ID: id}, nil
}

func (m *mockNewsService) DeleteNews(ctx context.Context, id string) error {
	if m.deleteNewsFn != nil {
		return m.deleteNewsFn(ctx, id)
	}
	return nil
}

func (m *mockNewsService) SaveCategories(ctx context.Context, list []model.NewsCategory) ([]model.NewsCategory, error) {
	if m.saveCategoriesFn != nil {
		return m.saveCategoriesFn(ctx, list)
	}
	return list, nil
}

func (m *mockNewsService) ImportNews(ctx context.Context, inputs []model.NewsInput) (news.ImportResult, error) {
	if m.importNewsFn != nil {
		return m.importNewsFn(ctx, inputs)
	}
	return news.ImportResult{Imported: len(inputs)}, nil
}

func (m *mockNewsService) IsOnline() bool { return true }
func (m *mockNewsService) Loading() bool  { return false }
func (m *mockNewsService) LastSync() model.SyncStatus {
	return model.SyncStatus{Operation: "add", Remote: true}
}

// mockImportRunner はImportRunnerのモック実装。
type mockImportRunner struct {
	runOnceFn func(ctx context.Context) (news.ImportResult, error)
}

func (m *mockImportRunner) RunOnce(ctx context.Context) (news.ImportResult, error) {
	return m.runOnceFn(ctx)
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error { return m.err }

// --- テストヘルパー ---

// newTestRouter はモックサービスを使ったルーターを生成する。
func newTestRouter(t *testing.T, deps RouterDeps) http.Handler {
	t.Helper()
	if deps.MenuService == nil {
		deps.MenuService = &mockMenuService{}
	}
	if deps.NewsService == nil {
		deps.NewsService = &mockNewsService{}
	}
	if deps.AdminToken == "" {
		deps.AdminToken = testAdminToken
	}
	if deps.RateLimiter == nil {
		rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(0), nil, nil)
		t.Cleanup(rl.Stop)
		deps.RateLimiter = rl
	}
	deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(&deps)
}

// doRequest はリクエストを実行してレスポンスを返す。adminがtrueの場合は管理者トークンを付与する。
func doRequest(t *testing.T, h http.Handler, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをvにデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}

// parseAPIErrorResponse はレスポンスボディからエラーレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	decodeBody(t, w, &body)
	return body
}
