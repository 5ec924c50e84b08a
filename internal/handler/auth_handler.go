// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/vxauth/internal/metrics"
	"github.com/hitoshi/vxauth/internal/middleware"
	"github.com/hitoshi/vxauth/internal/model"
	"github.com/hitoshi/vxauth/internal/security"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Configured() bool
	AuthorizeURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.User, error)
}

// LookupServiceInterface は識別子からユーザーを解決するインターフェース。
type LookupServiceInterface interface {
	Resolve(ctx context.Context, identifier string) *model.User
}

// SessionIssuer はセッションCookieの発行・破棄に必要なインターフェース。
// session.Codecの部分集合として定義する。
type SessionIssuer interface {
	Issue(w http.ResponseWriter, r *http.Request, user *model.User) error
	Clear(w http.ResponseWriter)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	AuthHost           string // サービス自身の公開ホスト（例: https://auth.example.com）
	DefaultRedirectURL string // 行き先未指定時のリダイレクト先
}

// AuthHandler はOAuth認証とセッション関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	lookup    LookupServiceInterface
	sessions  SessionIssuer
	validator *security.RedirectValidator
	config    AuthHandlerConfig
	metrics   metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, lookup LookupServiceInterface, sessions SessionIssuer, validator *security.RedirectValidator, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &AuthHandler{
		service:   service,
		lookup:    lookup,
		sessions:  sessions,
		validator: validator,
		config:    config,
		metrics:   collector,
	}
}

// Auth はユーザーをGitHubの認証ページにリダイレクトする。
// GET /auth?redirect_url=xxx
//
// redirect_urlはOAuthのstateパラメータに載せてプロバイダーを往復させる
// （サーバー側に状態を持たないパススルー方式）。
func (h *AuthHandler) Auth(w http.ResponseWriter, r *http.Request) {
	if !h.service.Configured() {
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewOAuthNotConfiguredError())
		return
	}

	state := strings.TrimSpace(r.URL.Query().Get("redirect_url"))
	http.Redirect(w, r, h.service.AuthorizeURL(state), http.StatusFound)
}

// Callback はGitHubからのOAuthコールバックを処理する。
// GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.metrics.RecordLoginFailure("missing_code")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingCodeError())
		return
	}

	user, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewTokenExchangeError())
		return
	}

	if err := h.sessions.Issue(w, r, user); err != nil {
		slog.Error("failed to issue session cookie", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	userID := strconv.FormatInt(user.ID, 10)

	// 行き先: state（パススルー）→ url → send の順で採用。
	// プロバイダーを往復した値は信用せず、/redirect側で再検証させる。
	dest := firstNonEmptyQuery(r, "state", "url", "send")
	if dest != "" {
		target := "/redirect?" + url.Values{"url": {dest}, "user": {userID}}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	http.Redirect(w, r, h.validator.AppendUser(h.config.DefaultRedirectURL, userID), http.StatusFound)
}

// Login は識別子による直接ログインを処理する。
// POST /auth/login（ボディ: user必須、redirect_url任意）
//
// 識別子が解決できればセッションCookieを発行し、解決済みユーザーと
// リダイレクト先・認証開始URLをJSONで返す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	payload := readBodyPayload(r)

	rawUser, _ := payloadString(payload, "user")
	identifier := strings.TrimSpace(rawUser)
	if identifier == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingUserError())
		return
	}

	redirectURL := ""
	if raw, ok := payloadString(payload, "redirect_url"); ok {
		redirectURL = strings.TrimSpace(raw)
		if redirectURL == "" {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRedirectURLError("redirect_url must be a non-empty string"))
			return
		}
	}

	user := h.lookup.Resolve(r.Context(), identifier)
	if user == nil {
		h.metrics.RecordLoginFailure("unknown_user")
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return
	}

	if err := h.sessions.Issue(w, r, user); err != nil {
		slog.Error("failed to issue session cookie", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.metrics.RecordLoginSuccess()
	slog.Info("direct login",
		slog.Int64("user_id", user.ID),
		slog.String("login", user.Login),
	)

	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"user":     user,
		"redirect": h.loginRedirect(redirectURL, user.ID),
		"authurl":  h.authStartURL(identifier, redirectURL),
	})
}

// Status はセッションの有効性と（任意の）識別子一致を検査する。
// POST /auth/status（ボディ: user任意）
//
// レスポンスのcodeは0が認証済み、1が未認証。
// 識別子不一致は「認証済みだが別人」として403で返す。
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	payload := readBodyPayload(r)
	rawRequested, _ := payloadString(payload, "user")
	requested := strings.TrimSpace(rawRequested)

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respondJSON(w, http.StatusUnauthorized, map[string]any{"status": "Not Authenticated", "code": 1})
		return
	}

	if requested != "" && !user.MatchesIdentifier(requested) {
		respondJSON(w, http.StatusForbidden, map[string]any{"status": "Not Authenticated", "code": 1})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"status": "Authenticated", "code": 0})
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Logout はセッションCookieを破棄する。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// loginRedirect はログイン後のリダイレクト先にuserパラメータを付与して返す。
// 相対URLはAuthHost基準で解決し、どうしても組み立てられない場合はnilを返す。
func (h *AuthHandler) loginRedirect(redirectURL string, id int64) *string {
	if redirectURL == "" {
		return nil
	}

	dest, err := url.Parse(redirectURL)
	if err != nil {
		return nil
	}
	if !dest.IsAbs() {
		base, err := url.Parse(h.config.AuthHost)
		if err != nil {
			return nil
		}
		dest = base.ResolveReference(dest)
	}

	q := dest.Query()
	q.Set("user", strconv.FormatInt(id, 10))
	dest.RawQuery = q.Encode()

	result := dest.String()
	return &result
}

// authStartURL はOAuthフローの開始URL（GET /auth）を組み立てる。
func (h *AuthHandler) authStartURL(identifier, redirectURL string) string {
	authURL := fmt.Sprintf("%s/auth?user=%s",
		strings.TrimSuffix(h.config.AuthHost, "/"),
		url.QueryEscape(identifier),
	)
	if redirectURL != "" {
		authURL += "&redirect_url=" + url.QueryEscape(redirectURL)
	}
	return authURL
}

// firstNonEmptyQuery は指定されたクエリキーのうち最初の非空値を返す。
func firstNonEmptyQuery(r *http.Request, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
			return v
		}
	}
	return ""
}
