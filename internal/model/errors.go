// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, menu, news, system
	Action   string   // ユーザー向け対処方法
	Details  []string // 違反した制約の一覧（バリデーションエラーのみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeNewsNotFound        = "NEWS_NOT_FOUND"
	ErrCodeMenuItemNotFound    = "MENU_ITEM_NOT_FOUND"
	ErrCodeSubMenuItemNotFound = "SUBMENU_ITEM_NOT_FOUND"
	ErrCodeMoveAtBoundary      = "MOVE_AT_BOUNDARY"
)

// NewValidationError は入力検証エラーを生成する。
// violationsには違反したすべての制約を列挙する。
func NewValidationError(violations []string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "Dados inválidos: " + strings.Join(violations, ", "),
		Category: "validation",
		Action:   "入力内容を確認してください。",
		Details:  violations,
	}
}

// NewRateLimitError は試行回数超過エラーを生成する。
func NewRateLimitError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  fmt.Sprintf("Muitas tentativas (%s). Aguarde alguns minutos antes de tentar novamente.", key),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNewsNotFoundError はニュース未検出エラーを生成する。
func NewNewsNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeNewsNotFound,
		Message:  fmt.Sprintf("Notícia não encontrada: %s", id),
		Category: "news",
		Action:   "ニュースIDを確認してください。",
	}
}

// NewMenuItemNotFoundError はメニュー項目未検出エラーを生成する。
func NewMenuItemNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeMenuItemNotFound,
		Message:  fmt.Sprintf("Item de menu não encontrado: %s", id),
		Category: "menu",
		Action:   "メニュー項目IDを確認してください。",
	}
}

// NewSubMenuItemNotFoundError はサブメニュー項目未検出エラーを生成する。
func NewSubMenuItemNotFoundError(parentID, subID string) *APIError {
	return &APIError{
		Code:     ErrCodeSubMenuItemNotFound,
		Message:  fmt.Sprintf("Subitem de menu não encontrado: %s/%s", parentID, subID),
		Category: "menu",
		Action:   "親メニューIDとサブメニューIDを確認してください。",
	}
}

// NewMoveAtBoundaryError は先頭・末尾の項目を更に移動しようとした場合のエラーを生成する。
func NewMoveAtBoundaryError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeMoveAtBoundary,
		Message:  fmt.Sprintf("O item já está no limite da lista: %s", id),
		Category: "menu",
		Action:   "移動方向を確認してください。",
	}
}

// IsValidationError はerrが入力検証エラーかを判定する。
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidationFailed)
}

// IsRateLimitError はerrが試行回数超過エラーかを判定する。
func IsRateLimitError(err error) bool {
	return hasCode(err, ErrCodeRateLimited)
}

// IsNotFoundError はerrが対象未検出エラーかを判定する。
func IsNotFoundError(err error) bool {
	return hasCode(err, ErrCodeNewsNotFound) ||
		hasCode(err, ErrCodeMenuItemNotFound) ||
		hasCode(err, ErrCodeSubMenuItemNotFound)
}

func hasCode(err error, code string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == code
}
