package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/vxauth/internal/middleware"
	"github.com/hitoshi/vxauth/internal/model"
)

// UserHandler はユーザー検索のHTTPハンドラー。
type UserHandler struct {
	lookup LookupServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(lookup LookupServiceInterface) *UserHandler {
	return &UserHandler{lookup: lookup}
}

// GetUser は識別子（数値IDまたはログイン名）でユーザーを検索して返す。
// GET /users/{id}
//
// 検索ミスは404であり、認証失敗（401）とは区別される。
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	identifier := strings.TrimSpace(chi.URLParam(r, "id"))

	user := h.lookup.Resolve(r.Context(), identifier)
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(identifier))
		return
	}

	respondJSON(w, http.StatusOK, user)
}
