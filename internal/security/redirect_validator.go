// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// allowedSchemes はリダイレクト先として許可されるURLスキーム。
// オープンリダイレクト経由でjavascript:やftp:等へ誘導されることを防ぐ。
var allowedSchemes = []string{"http", "https"}

// RedirectValidator はクライアント指定のリダイレクト先を検証する。
// リダイレクト先はサードパーティを往復した信用できない入力として扱い、
// 輸送経路に関わらず戻ってきた時点で毎回検証する。
type RedirectValidator struct {
	// DefaultURL は宛先が数値（ユーザーID）だった場合の書き換え先。
	DefaultURL string
}

// NewRedirectValidator はRedirectValidatorを生成する。
func NewRedirectValidator(defaultURL string) *RedirectValidator {
	return &RedirectValidator{DefaultURL: defaultURL}
}

// Validate はリダイレクト先URLを検証し、正規化済みの行き先を返す。
//
// 数値のみの値はリソース名ではなくユーザーIDとして解釈し、
// デフォルトの行き先にuser=<id>を付けて書き換える。
// パース不能または許可外スキームのURLはエラーを返す（黙って握り潰さない）。
func (v *RedirectValidator) Validate(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("redirect url is empty")
	}

	// 数値はユーザーIDとみなしてデフォルト宛先に書き換える
	if id, err := strconv.ParseInt(rawURL, 10, 64); err == nil {
		dest, err := url.Parse(v.DefaultURL)
		if err != nil {
			return "", fmt.Errorf("default redirect url is invalid: %w", err)
		}
		q := dest.Query()
		q.Set("user", strconv.FormatInt(id, 10))
		dest.RawQuery = q.Encode()
		return dest.String(), nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect url: %w", err)
	}

	if !isAllowedScheme(parsed.Scheme) {
		return "", fmt.Errorf("scheme %q is not allowed for redirects", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("redirect url has no host")
	}

	return parsed.String(), nil
}

// AppendUser は検証済みの行き先URLにuserクエリパラメータを付与する。
// validatedはValidateを通過した値であることを前提とする。
func (v *RedirectValidator) AppendUser(validated, user string) string {
	if user == "" {
		return validated
	}
	parsed, err := url.Parse(validated)
	if err != nil {
		return validated
	}
	q := parsed.Query()
	q.Set("user", user)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}
