// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/vxauth/internal/model"
	"github.com/hitoshi/vxauth/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("session_user")

// SessionVerifier はセッションCookieの検証に必要なインターフェース。
// session.Codecの部分集合として定義する。
type SessionVerifier interface {
	Verify(r *http.Request) (*model.User, error)
	Clear(w http.ResponseWriter)
}

// NewSessionMiddleware は署名付きCookieからセッションを読み取り、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
//
// Cookieが無い・期限切れ・改ざん・不正形式の場合は未認証として通過させる
// （可否の判断は各ハンドラーが行う）。検証に失敗した不正なCookieは
// この時点で破棄し、以後のリクエストで再送させない。
func NewSessionMiddleware(verifier SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := verifier.Verify(r)
			if err != nil {
				if errors.Is(err, session.ErrInvalidSession) {
					verifier.Clear(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// セッションミドルウェアを通過し、有効なセッションを持つ場合のみ非nilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// ContextWithUser はコンテキストにユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
