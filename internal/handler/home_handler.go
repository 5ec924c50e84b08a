package handler

import (
	"fmt"
	"net/http"

	"github.com/hitoshi/vxauth/internal/middleware"
	"github.com/hitoshi/vxauth/internal/security"
)

// HomeHandler はトップページとヘルスチェックのハンドラー。
type HomeHandler struct {
	sanitizer *security.DisplaySanitizer
}

// NewHomeHandler はHomeHandlerを生成する。
func NewHomeHandler(sanitizer *security.DisplaySanitizer) *HomeHandler {
	return &HomeHandler{sanitizer: sanitizer}
}

// Home はログイン状態に応じたトップページを返す。
// GET /
//
// 表示名はプロバイダー側でユーザーが自由に設定できるため、
// HTMLに埋め込む前にサニタイズする。
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		fmt.Fprint(w, `<h1>Welcome</h1>
<p><a href="/auth">Login with GitHub</a></p>
`)
		return
	}

	name := h.sanitizer.Sanitize(user.DisplayName())
	fmt.Fprintf(w, `<h1>Welcome, %s!</h1>
<p>You are logged in.</p>
<a href="/auth/me">View My Data</a> | <a href="/logout">Logout</a>
`, name)
}

// Health はヘルスチェックエンドポイント。
// GET /health
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
