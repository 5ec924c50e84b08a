package security

import "github.com/microcosm-cc/bluemonday"

// DisplaySanitizer はプロバイダー由来の表示名等をHTML出力向けにサニタイズする。
// 表示名はGitHub側でユーザーが自由に設定できる信用できない入力であり、
// ページに埋め込む前にタグを全て除去する。
type DisplaySanitizer struct {
	policy *bluemonday.Policy
}

// NewDisplaySanitizer はDisplaySanitizerを生成する。
// タグを一切許可しないStrictPolicyを使用する。
func NewDisplaySanitizer() *DisplaySanitizer {
	return &DisplaySanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize は文字列からHTMLタグを除去して返す。
// 同一入力に対して常に同一出力を返す（冪等）。
func (s *DisplaySanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
