package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/maisgestor/portal/internal/model"
)

func TestMenuHandler_ListActive(t *testing.T) {
	items := []model.MenuItem{{ID: "1", Name: "INÍCIO", Href: "/", IsActive: true, Order: 1}}
	svc := &mockMenuService{activeMenuItemsFn: func() []model.MenuItem { return items }}
	h := newTestRouter(t, RouterDeps{MenuService: svc})

	w := doRequest(t, h, http.MethodGet, "/api/menu", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body menuListResponse
	decodeBody(t, w, &body)
	if diff := cmp.Diff(items, body.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestMenuHandler_CreateItem(t *testing.T) {
	var got model.MenuItemInput
	svc := &mockMenuService{
		addMenuItemFn: func(_ context.Context, in model.MenuItemInput) (model.MenuItem, error) {
			got = in
			return model.MenuItem{ID: "remote-id", Name: in.Name, Href: in.Href, IsActive: true, Order: 7}, nil
		},
	}
	h := newTestRouter(t, RouterDeps{MenuService: svc})

	w := doRequest(t, h, http.MethodPost, "/api/admin/menu", `{"name":"CONTATO","href":"/contato"}`, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if got.Name != "CONTATO" || got.Href != "/contato" || got.Order != nil {
		t.Errorf("input = %+v", got)
	}

	var item model.MenuItem
	decodeBody(t, w, &item)
	if item.ID != "remote-id" || item.Order != 7 {
		t.Errorf("item = %+v", item)
	}
}

func TestMenuHandler_CreateItem_ValidationError(t *testing.T) {
	svc := &mockMenuService{
		addMenuItemFn: func(context.Context, model.MenuItemInput) (model.MenuItem, error) {
			return model.MenuItem{}, model.NewValidationError([]string{"Nome é obrigatório"})
		},
	}
	h := newTestRouter(t, RouterDeps{MenuService: svc})

	w := doRequest(t, h, http.MethodPost, "/api/admin/menu", `{"name":"","href":"/x"}`, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := parseAPIErrorResponse(t, w)
	if body.Code != model.ErrCodeValidationFailed {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeValidationFailed)
	}
	if len(body.Details) != 1 {
		t.Errorf("details = %v, want 1 entry", body.Details)
	}
}

func TestMenuHandler_CreateItem_InvalidJSON(t *testing.T) {
	h := newTestRouter(t, RouterDeps{})

	w := doRequest(t, h, http.MethodPost, "/api/admin/menu", `{"name":`, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body.Code != "INVALID_REQUEST" {
		t.Errorf("code = %q, want %q", body.Code, "INVALID_REQUEST")
	}
}

func TestMenuHandler_UpdateItem(t *testing.T) {
	var gotID string
	var gotPatch model.MenuItemPatch
	svc := &mockMenuService{
		updateMenuItemFn: func(_ context.Context, id string, patch model.MenuItemPatch) error {
			gotID, gotPatch = id, patch
			return nil
		},
	}
	h := newTestRouter(t, RouterDeps{MenuService: svc})

	w := doRequest(t, h, http.MethodPatch, "/api/admin/menu/3", `{"isActive":false}`, true)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotID != "3" {
		t.Errorf("id = %q, want %q", gotID, "3")
	}
	if gotPatch.IsActive == nil || *gotPatch.IsActive || gotPatch.Name != nil {
		t.Errorf("patch = %+v", gotPatch)
	}
}

func TestMenuHandler_UpdateItem_NotFound(t *testing.T) {
	svc := &mockMenuService{
		updateMenuItemFn: func(_ context.Context, id string, _ model.MenuItemPatch) error {
			return model.NewMenuItemNotFoundError(id)
		},
	}
	h := newTestRouter(t, RouterDeps{MenuService: svc})

	w := doRequest(t, h, http.MethodPatch, "/api/admin/menu/nope", `{"name":"X"}`, true)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMenuHandler_DeleteItem(t *testing.T) {
	var gotID string
	svc := &mockMenuService{
		deleteMenuItemFn: func(_ context.Context, id string) error {
			gotID = id
			return nil
		},
	}
	h := newTestRouter(t, RouterDeps{MenuService: svc})

	w := doRequest(t, h, http.MethodDelete, "/api/admin/menu/5", "", true)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotID != "5" {
		t.Errorf("id = %q, want %q", gotID, "5")
	}
}

func TestMenuHandler_SubItems(t *testing.T) {
	var calls []string
	svc := &mockMenuService{
		addSubMenuItemFn: func(_ context.Context, parentID string, in model.SubMenuItemInput) (model.SubMenuItem, error) {
			calls = append(calls, "add:"+parentID+":"+in.Name)
			return model.SubMenuItem{ID: "s1", Name: in.Name, Href: in.Href, IsActive: true, Order: 1}, nil
		},
		updateSubMenuItemFn: func(_ context.Context, parentID, subID string, _ model.SubMenuItemPatch) error {
			calls = append(calls, "update:"+parentID+":"+subID)
			return nil
		},
		deleteSubMenuItemFn: func(_ context.Context, parentID, subID string) error {
			calls = append(calls, "delete:"+parentID+":"+subID)
			return nil
		},
	}
	h := newTestRouter(t, RouterDeps{MenuService: svc})

	if w := doRequest(t, h, http.MethodPost, "/api/admin/menu/2/submenu", `{"name":"e-SUS APS","href":"/esus"}`, true); w.Code != http.StatusCreated {
		t.Errorf("add status = %d, want %d", w.Code, http.StatusCreated)
	}
	if w := doRequest(t, h, http.MethodPatch, "/api/admin/menu/2/submenu/s1", `{"name":"PEC"}`, true); w.Code != http.StatusNoContent {
		t.Errorf("update status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w := doRequest(t, h, http.MethodDelete, "/api/admin/menu/2/submenu/s1", "", true); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", w.Code, http.StatusNoContent)
	}

	want := []string{"add:2:e-SUS APS", "update:2:s1", "delete:2:s1"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestMenuHandler_SubItem_ParentNotFound(t *testing.T) {
	svc := &mockMenuService{
		addSubMenuItemFn: func(_ context.Context, parentID string, _ model.SubMenuItemInput) (model.SubMenuItem, error) {
			return model.SubMenuItem{}, model.NewMenuItemNotFoundError(parentID)
		},
	}
	h := newTestRouter(t, RouterDeps{MenuService: svc})

	w := doRequest(t, h, http.MethodPost, "/api/admin/menu/99/submenu", `{"name":"X","href":"/x"}`, true)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMenuHandler_Move(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		moved      bool
		err        error
		wantStatus int
	}{
		{"up moved", "/api/admin/menu/2/move-up", true, nil, http.StatusOK},
		{"down moved", "/api/admin/menu/2/move-down", true, nil, http.StatusOK},
		{"up at boundary", "/api/admin/menu/1/move-up", false, nil, http.StatusConflict},
		{"down at boundary", "/api/admin/menu/6/move-down", false, nil, http.StatusConflict},
		{"unknown id", "/api/admin/menu/x/move-up", false, model.NewMenuItemNotFoundError("x"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := func(context.Context, string) (bool, error) { return tt.moved, tt.err }
			svc := &mockMenuService{moveItemUpFn: fn, moveItemDownFn: fn}
			h := newTestRouter(t, RouterDeps{MenuService: svc})

			w := doRequest(t, h, http.MethodPost, tt.path, "", true)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusConflict {
				if body := parseAPIErrorResponse(t, w); body.Code != model.ErrCodeMoveAtBoundary {
					t.Errorf("code = %q, want %q", body.Code, model.ErrCodeMoveAtBoundary)
				}
			}
		})
	}
}

func TestMenuHandler_Reset(t *testing.T) {
	svc := &mockMenuService{}
	h := newTestRouter(t, RouterDeps{MenuService: svc})

	w := doRequest(t, h, http.MethodPost, "/api/admin/menu/reset", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if svc.resetCalls != 1 {
		t.Errorf("ResetToDefault calls = %d, want 1", svc.resetCalls)
	}
}
