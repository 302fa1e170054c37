// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はニュース記事の入力値をサニタイズする。
// 本文はbluemondayの許可リストポリシーで安全なHTMLのみを通過させ、
// タイトル・概要・著者などのテキスト項目はタグと危険なスキームを除去する。
package security

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はHTML・テキスト・URLのサニタイズ機能を提供する。
// 保持するbluemondayポリシーはスレッドセーフに使用できる。
type ContentSanitizer struct {
	htmlPolicy *bluemonday.Policy
	textPolicy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
// 本文用ポリシーの内容:
//   - 許可タグ: p, br, strong, em, u, ol, ul, li, h1〜h6（属性はすべて除去）
//   - script, style, img, object, embed等は許可リストに含めないことで除去される
func NewContentSanitizer() *ContentSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "strong", "em", "u",
		"ol", "ul", "li",
		"h1", "h2", "h3", "h4", "h5", "h6",
	)

	return &ContentSanitizer{
		htmlPolicy: p,
		textPolicy: bluemonday.StrictPolicy(),
	}
}

// 除去対象のパターン。
var (
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	dangerousSchemes   = regexp.MustCompile(`(?i)javascript:|data:|vbscript:`)
	eventHandlerAssign = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// HTML は本文HTMLを許可タグのみにサニタイズする。
func (s *ContentSanitizer) HTML(raw string) string {
	if raw == "" {
		return ""
	}
	return s.htmlPolicy.Sanitize(raw)
}

// Text はテキスト項目からタグと危険なスキーム、イベントハンドラ代入を除去して前後の空白を取り除く。
// script要素はその内容ごと除去される。
func (s *ContentSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	out := html.UnescapeString(s.textPolicy.Sanitize(raw))
	out = tagPattern.ReplaceAllString(out, "")
	out = dangerousSchemes.ReplaceAllString(out, "")
	out = eventHandlerAssign.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// URL はhttp/httpsの絶対URL、またはサイト内のルート相対パスのみを通過させる。
// それ以外は空文字列を返す。
func (s *ContentSanitizer) URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if isRootRelativePath(raw) {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !isAllowedScheme(u.Scheme) || u.Host == "" {
		return ""
	}
	return u.String()
}

// isRootRelativePath は"/placeholder.svg"のようなサイト内パスかを判定する。
// "//host"形式のスキーム相対URLは含まない。
func isRootRelativePath(raw string) bool {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "" && u.Host == ""
}
