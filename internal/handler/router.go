// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/maisgestor/portal/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	AdminToken        string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ヘルスチェック（nilの場合はオフライン動作）
	HealthChecker HealthChecker

	// メニュー
	MenuService MenuServiceInterface

	// ニュース
	NewsService  NewsServiceInterface
	ImportRunner ImportRunner

	// Prometheusメトリクス（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → Logging → SecurityHeaders → CORS → RateLimit(General) → AdminAuth（/api/admin のみ）
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	menuHandler := NewMenuHandler(deps.MenuService)
	newsHandler := NewNewsHandler(deps.NewsService, deps.ImportRunner)
	statusHandler := NewStatusHandler(deps.MenuService, deps.NewsService, deps.HealthChecker)

	// --- レート制限なしのルート ---
	r.Get("/health", statusHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// --- 公開API ---
		r.Get("/api/menu", menuHandler.ListActive)
		r.Get("/api/news", newsHandler.ListPublic)
		r.Get("/api/categories", newsHandler.ListCategories)

		// --- 管理API ---
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewAdminAuthMiddleware(deps.AdminToken))

			r.Get("/status", statusHandler.Status)

			// メニュー管理
			r.Route("/menu", func(r chi.Router) {
				r.Get("/", menuHandler.ListAll)
				r.Post("/", menuHandler.CreateItem)
				r.Post("/reset", menuHandler.Reset)

				r.Route("/{id}", func(r chi.Router) {
					r.Patch("/", menuHandler.UpdateItem)
					r.Delete("/", menuHandler.DeleteItem)
					r.Post("/move-up", menuHandler.MoveUp)
					r.Post("/move-down", menuHandler.MoveDown)

					r.Post("/submenu", menuHandler.CreateSubItem)
					r.Patch("/submenu/{subId}", menuHandler.UpdateSubItem)
					r.Delete("/submenu/{subId}", menuHandler.DeleteSubItem)
				})
			})

			// ニュース管理
			r.Route("/news", func(r chi.Router) {
				r.Get("/", newsHandler.ListAll)
				r.Post("/", newsHandler.Create)

				// 一括取り込み（取り込み専用レート制限を追加）
				r.With(deps.RateLimiter.ImportMiddleware()).Post("/import", newsHandler.Import)
				r.With(deps.RateLimiter.ImportMiddleware()).Post("/import/run", newsHandler.RunImport)

				r.Patch("/{id}", newsHandler.Update)
				r.Delete("/{id}", newsHandler.Delete)
			})

			r.Put("/categories", newsHandler.SaveCategories)
		})
	})

	return r
}
