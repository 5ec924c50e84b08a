package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/vxauth/internal/middleware"
	"github.com/hitoshi/vxauth/internal/model"
	"github.com/hitoshi/vxauth/internal/security"
)

// RedirectHandler はログイン後のリダイレクトを検証して実行するハンドラー。
type RedirectHandler struct {
	validator *security.RedirectValidator
}

// NewRedirectHandler はRedirectHandlerを生成する。
func NewRedirectHandler(validator *security.RedirectValidator) *RedirectHandler {
	return &RedirectHandler{validator: validator}
}

// Redirect は検証済みの外部リダイレクトを実行する。
// GET /redirect?url=xxx&user=yyy
//
// urlは必須。数値のみの値はユーザーIDとみなしデフォルトの行き先に
// 書き換える。http/https以外のスキームは400で拒否する（黙って無視しない）。
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRedirectURLError("url is required"))
		return
	}

	validated, err := h.validator.Validate(raw)
	if err != nil {
		slog.Warn("redirect destination rejected",
			slog.String("url", raw),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRedirectURLError(err.Error()))
		return
	}

	target := h.validator.AppendUser(validated, strings.TrimSpace(r.URL.Query().Get("user")))
	http.Redirect(w, r, target, http.StatusFound)
}
