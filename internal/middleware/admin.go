// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/maisgestor/portal/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// adminContextKey はリクエストが管理者として認証済みかを格納するためのキー。
var adminContextKey = contextKey("is_admin")

// NewAdminAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// 認証済みリクエストのコンテキストに管理者フラグを注入する。
// tokenが空の場合は管理APIを無効化し、すべてのリクエストに503を返す。
func NewAdminAuthMiddleware(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				WriteErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
					Code:     "ADMIN_DISABLED",
					Message:  "Administração desativada.",
					Category: "auth",
					Action:   "ADMIN_TOKENを設定してください。",
				})
				return
			}

			got, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:     "UNAUTHORIZED",
					Message:  "Acesso não autorizado.",
					Category: "auth",
					Action:   "管理者トークンを確認してください。",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAdmin(r.Context())))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// IsAdmin はリクエストコンテキストが管理者として認証済みかを返す。
// 管理者認証ミドルウェアを通過したリクエストでのみtrueになる。
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminContextKey).(bool)
	return v
}

// ContextWithAdmin はコンテキストに管理者フラグを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminContextKey, true)
}
