// Package session は署名付きCookieによるセッションの発行と検証を提供する。
// セッションはサーバー側に状態を持たず、正規化済みユーザーを
// HMAC署名付きでクライアントに保持させる。
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"

	"github.com/hitoshi/vxauth/internal/model"
)

// CookieName はセッションCookieの名前。
const CookieName = "user_session"

var (
	// ErrNoSession はCookieが存在しないことを示す。
	ErrNoSession = errors.New("no session cookie")

	// ErrInvalidSession は署名不正・改竄・期限切れ・ペイロード不正を示す。
	// 呼び出し側はCookieを削除するべき。別人のセッションとして扱ってはならない。
	ErrInvalidSession = errors.New("invalid session cookie")
)

// Codec はセッションCookieの発行・検証・削除を行う。
type Codec struct {
	sc     *securecookie.SecureCookie
	maxAge int
}

// NewCodec はCodecを生成する。
// secretが空の場合は設定不備としてエラーを返す（認証ミスとは区別される）。
// maxAgeはセッションの有効期間（秒）。署名プリミティブ側のタイムスタンプ検証と
// Cookie自体のMax-Ageの両方で期限を強制する。
func NewCodec(secret string, maxAge int) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("cookie secret is not configured")
	}

	sc := securecookie.New([]byte(secret), nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(maxAge)

	return &Codec{sc: sc, maxAge: maxAge}, nil
}

// Issue はユーザーを署名付きCookieとして発行する。
// HTTP-only・SameSite=Lax固定。SecureフラグはリクエストがHTTPSと
// 確認できた場合のみ付与する。
func (c *Codec) Issue(w http.ResponseWriter, r *http.Request, user *model.User) error {
	encoded, err := c.sc.Encode(CookieName, user)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   c.maxAge,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Verify はリクエストのセッションCookieを検証し、ユーザーを返す。
// Cookieなし → ErrNoSession。署名不正・期限切れ・ペイロード不正 → ErrInvalidSession
// （呼び出し側はClearを呼ぶべき）。
func (c *Codec) Verify(r *http.Request) (*model.User, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	// 署名検証と復号。改竄・別シークレット・期限切れはすべてここで弾かれる。
	var payload map[string]any
	if err := c.sc.Decode(CookieName, cookie.Value, &payload); err != nil {
		return nil, ErrInvalidSession
	}

	// ペイロードは信用せず、取得時と同じ正規化を通す
	user := model.Normalize(payload)
	if user == nil {
		return nil, ErrInvalidSession
	}

	return user, nil
}

// Clear はセッションCookieを削除する。
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// IsSecureRequest はリクエストがHTTPS経由かを判定する。
// リバースプロキシ配下を考慮し、X-Forwarded-Protoの先頭値を優先する。
func IsSecureRequest(r *http.Request) bool {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		first := strings.TrimSpace(strings.Split(proto, ",")[0])
		if first != "" {
			return strings.EqualFold(first, "https")
		}
	}
	return r.TLS != nil
}
