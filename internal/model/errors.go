// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, lookup, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeOAuthNotConfigured = "OAUTH_NOT_CONFIGURED"
	ErrCodeMissingCode        = "MISSING_AUTH_CODE"
	ErrCodeTokenExchange      = "TOKEN_EXCHANGE_FAILED"
	ErrCodeMissingUser        = "MISSING_USER"
	ErrCodeInvalidRedirectURL = "INVALID_REDIRECT_URL"
	ErrCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// NewOAuthNotConfiguredError はOAuth認証情報未設定エラーを生成する。
// 設定不備は縮退運転せず、即座に500として通知する。
func NewOAuthNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthNotConfigured,
		Message:  "GitHub OAuthのクライアント認証情報が設定されていません。",
		Category: "system",
		Action:   "GITHUB_CLIENT_IDとGITHUB_CLIENT_SECRETを設定してください。",
	}
}

// NewMissingCodeError は認可コード欠落エラーを生成する。
func NewMissingCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCode,
		Message:  "認可コードがありません。",
		Category: "validation",
		Action:   "認証フローを最初からやり直してください。",
	}
}

// NewTokenExchangeError はトークン交換・プロフィール取得失敗エラーを生成する。
func NewTokenExchangeError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExchange,
		Message:  "GitHubとの認証処理に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewMissingUserError はユーザー識別子欠落エラーを生成する。
func NewMissingUserError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingUser,
		Message:  "userは必須です。",
		Category: "validation",
		Action:   "リクエストボディにuserフィールドを指定してください。",
	}
}

// NewInvalidRedirectURLError は無効なリダイレクト先エラーを生成する。
func NewInvalidRedirectURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRedirectURL,
		Message:  fmt.Sprintf("無効なリダイレクト先です: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まるURLを指定してください。",
	}
}

// NewNotAuthenticatedError は未認証エラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(identifier string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", identifier),
		Category: "lookup",
		Action:   "ユーザーIDまたはログイン名を確認してください。",
	}
}
