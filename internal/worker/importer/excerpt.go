package importer

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// maxExcerptRunes は概要の最大文字数。
const maxExcerptRunes = 500

// extractText はHTML断片からテキストのみを取り出し、連続する空白を1つにまとめる。
// script/style要素の中身は含めない。
func extractText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if isSkippedElement(string(name)) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isSkippedElement(string(name)) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isSkippedElement(name string) bool {
	return name == "script" || name == "style"
}

// truncateRunes はsを最大n文字に切り詰める。切り詰めた場合は末尾に"…"を付ける。
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}

// buildExcerpt はdescriptionを優先し、無ければ本文から概要を作る。
func buildExcerpt(description, content string) string {
	text := extractText(description)
	if text == "" {
		text = extractText(content)
	}
	return truncateRunes(text, maxExcerptRunes)
}
