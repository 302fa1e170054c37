package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maisgestor/portal/internal/model"
	"github.com/maisgestor/portal/internal/news"
)

// NewsServiceInterface はニュースハンドラーが必要とするサービスインターフェース。
// news.Managerが実装する。
type NewsServiceInterface interface {
	ActiveNews() []model.NewsItem
	NewsByCategory(name string) []model.NewsItem
	News() []model.NewsItem
	Categories() []model.NewsCategory
	AddNews(ctx context.Context, in model.NewsInput) (model.NewsItem, error)
	UpdateNews(ctx context.Context, id string, patch model.NewsPatch) (model.NewsItem, error)
	DeleteNews(ctx context.Context, id string) error
	SaveCategories(ctx context.Context, list []model.NewsCategory) ([]model.NewsCategory, error)
	ImportNews(ctx context.Context, inputs []model.NewsInput) (news.ImportResult, error)
	IsOnline() bool
	Loading() bool
	LastSync() model.SyncStatus
}

// ImportRunner は取り込み元フィードの取得を即時実行するインターフェース。
// importer.Schedulerが実装する。
type ImportRunner interface {
	RunOnce(ctx context.Context) (news.ImportResult, error)
}

// NewsHandler はニュース管理のHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
	runner  ImportRunner
}

// NewNewsHandler はNewsHandlerを生成する。runnerはnilでもよい。
func NewNewsHandler(service NewsServiceInterface, runner ImportRunner) *NewsHandler {
	return &NewsHandler{service: service, runner: runner}
}

type newsListResponse struct {
	Items []model.NewsItem `json:"items"`
}

type categoryListResponse struct {
	Categories []model.NewsCategory `json:"categories"`
}

type saveCategoriesRequest struct {
	Categories []model.NewsCategory `json:"categories"`
}

type importNewsRequest struct {
	Items []model.NewsInput `json:"items"`
}

// ListPublic は公開中の記事を返す。categoryクエリがある場合はカテゴリ名で絞り込む。
// GET /api/news
func (h *NewsHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		writeJSON(w, http.StatusOK, newsListResponse{Items: h.service.NewsByCategory(category)})
		return
	}
	writeJSON(w, http.StatusOK, newsListResponse{Items: h.service.ActiveNews()})
}

// ListAll は非公開を含む全記事を返す。
// GET /api/admin/news
func (h *NewsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newsListResponse{Items: h.service.News()})
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *NewsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoryListResponse{Categories: h.service.Categories()})
}

// Create は記事を追加する。
// POST /api/admin/news
func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NewsInput
	if !decodeJSON(w, r, &in) {
		return
	}

	item, err := h.service.AddNews(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Update は記事を部分更新する。
// PATCH /api/admin/news/{id}
func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.NewsPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	item, err := h.service.UpdateNews(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete は記事を削除する。
// DELETE /api/admin/news/{id}
func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteNews(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveCategories はカテゴリ一覧を置き換える。
// PUT /api/admin/categories
func (h *NewsHandler) SaveCategories(w http.ResponseWriter, r *http.Request) {
	var req saveCategoriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	saved, err := h.service.SaveCategories(r.Context(), req.Categories)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryListResponse{Categories: saved})
}

// Import はリクエストボディの記事を一括で取り込む。
// POST /api/admin/news/import
func (h *NewsHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importNewsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.ImportNews(r.Context(), req.Items)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RunImport は取り込み元フィードの取得を即時実行する。
// POST /api/admin/news/import/run
func (h *NewsHandler) RunImport(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
			Code:     "IMPORT_DISABLED",
			Message:  "Importação de notícias não configurada.",
			Category: "news",
			Action:   "IMPORT_FEED_URLSを設定してください。",
		})
		return
	}

	res, err := h.runner.RunOnce(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
