package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/maisgestor/portal/internal/model"
)

// HealthChecker はリモートストアへの疎通確認を行うインターフェース。
// *sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// StatusHandler はヘルスチェックと同期状態のHTTPハンドラー。
type StatusHandler struct {
	menu   MenuServiceInterface
	news   NewsServiceInterface
	health HealthChecker
}

// NewStatusHandler はStatusHandlerを生成する。healthがnilの場合はオフライン動作とみなす。
func NewStatusHandler(menu MenuServiceInterface, news NewsServiceInterface, health HealthChecker) *StatusHandler {
	return &StatusHandler{menu: menu, news: news, health: health}
}

type healthResponse struct {
	Status string `json:"status"`
	Remote string `json:"remote"`
}

type menuStatus struct {
	Loading       bool             `json:"loading"`
	UpdateTrigger int              `json:"updateTrigger"`
	LastSync      model.SyncStatus `json:"lastSync"`
}

type newsStatus struct {
	IsOnline bool             `json:"isOnline"`
	Loading  bool             `json:"loading"`
	LastSync model.SyncStatus `json:"lastSync"`
}

type statusResponse struct {
	Menu menuStatus `json:"menu"`
	News newsStatus `json:"news"`
}

// Health はプロセスの稼働状態を返す。
// リモートストアが設定されていて疎通できない場合は503を返す。
// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Remote: "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.PingContext(ctx); err != nil {
		slog.Warn("health check ping failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Remote: "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Remote: "ok"})
}

// Status はメニューとニュースの読み込み・同期状態を返す。
// GET /api/admin/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Menu: menuStatus{
			Loading:       h.menu.Loading(),
			UpdateTrigger: h.menu.UpdateTrigger(),
			LastSync:      h.menu.LastSync(),
		},
		News: newsStatus{
			IsOnline: h.news.IsOnline(),
			Loading:  h.news.Loading(),
			LastSync: h.news.LastSync(),
		},
	})
}
