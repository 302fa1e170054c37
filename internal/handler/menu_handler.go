package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maisgestor/portal/internal/model"
)

// MenuServiceInterface はメニューハンドラーが必要とするサービスインターフェース。
// menu.Managerが実装する。
type MenuServiceInterface interface {
	ActiveMenuItems() []model.MenuItem
	MenuItems() []model.MenuItem
	AddMenuItem(ctx context.Context, in model.MenuItemInput) (model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) error
	DeleteMenuItem(ctx context.Context, id string) error
	AddSubMenuItem(ctx context.Context, parentID string, in model.SubMenuItemInput) (model.SubMenuItem, error)
	UpdateSubMenuItem(ctx context.Context, parentID, subID string, patch model.SubMenuItemPatch) error
	DeleteSubMenuItem(ctx context.Context, parentID, subID string) error
	MoveItemUp(ctx context.Context, id string) (bool, error)
	MoveItemDown(ctx context.Context, id string) (bool, error)
	ResetToDefault(ctx context.Context)
	Loading() bool
	UpdateTrigger() int
	LastSync() model.SyncStatus
}

// MenuHandler はメニュー管理のHTTPハンドラー。
type MenuHandler struct {
	service MenuServiceInterface
}

// NewMenuHandler はMenuHandlerを生成する。
func NewMenuHandler(service MenuServiceInterface) *MenuHandler {
	return &MenuHandler{service: service}
}

// menuListResponse はメニュー一覧のAPIレスポンス。
type menuListResponse struct {
	Items []model.MenuItem `json:"items"`
}

// moveResponse は並べ替え結果のAPIレスポンス。
type moveResponse struct {
	Moved bool             `json:"moved"`
	Items []model.MenuItem `json:"items"`
}

// ListActive は公開中のメニューを返す。
// GET /api/menu
func (h *MenuHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, menuListResponse{Items: h.service.ActiveMenuItems()})
}

// ListAll は非公開を含む全メニューを返す。
// GET /api/admin/menu
func (h *MenuHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, menuListResponse{Items: h.service.MenuItems()})
}

// CreateItem はメニュー項目を追加する。
// POST /api/admin/menu
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var in model.MenuItemInput
	if !decodeJSON(w, r, &in) {
		return
	}

	item, err := h.service.AddMenuItem(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem はメニュー項目を部分更新する。
// PATCH /api/admin/menu/{id}
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch model.MenuItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	if err := h.service.UpdateMenuItem(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteItem はメニュー項目を削除する。存在しないIDでも204を返す。
// DELETE /api/admin/menu/{id}
func (h *MenuHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMenuItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSubItem はサブメニュー項目を追加する。
// POST /api/admin/menu/{id}/submenu
func (h *MenuHandler) CreateSubItem(w http.ResponseWriter, r *http.Request) {
	var in model.SubMenuItemInput
	if !decodeJSON(w, r, &in) {
		return
	}

	sub, err := h.service.AddSubMenuItem(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// UpdateSubItem はサブメニュー項目を部分更新する。
// PATCH /api/admin/menu/{id}/submenu/{subId}
func (h *MenuHandler) UpdateSubItem(w http.ResponseWriter, r *http.Request) {
	var patch model.SubMenuItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	err := h.service.UpdateSubMenuItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "subId"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSubItem はサブメニュー項目を削除する。
// DELETE /api/admin/menu/{id}/submenu/{subId}
func (h *MenuHandler) DeleteSubItem(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteSubMenuItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "subId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveUp はメニュー項目を1つ上に移動する。先頭の場合は409を返す。
// POST /api/admin/menu/{id}/move-up
func (h *MenuHandler) MoveUp(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.service.MoveItemUp)
}

// MoveDown はメニュー項目を1つ下に移動する。末尾の場合は409を返す。
// POST /api/admin/menu/{id}/move-down
func (h *MenuHandler) MoveDown(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.service.MoveItemDown)
}

func (h *MenuHandler) move(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (bool, error)) {
	id := chi.URLParam(r, "id")

	moved, err := fn(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !moved {
		handleServiceError(w, model.NewMoveAtBoundaryError(id))
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{Moved: true, Items: h.service.MenuItems()})
}

// Reset はメニューを既定の構成に戻す。
// POST /api/admin/menu/reset
func (h *MenuHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.service.ResetToDefault(r.Context())
	writeJSON(w, http.StatusOK, menuListResponse{Items: h.service.MenuItems()})
}
