package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/vxauth/internal/auth"
	"github.com/hitoshi/vxauth/internal/database"
	"github.com/hitoshi/vxauth/internal/lookup"
	"github.com/hitoshi/vxauth/internal/model"
	"github.com/hitoshi/vxauth/internal/repository"
	"github.com/hitoshi/vxauth/internal/security"
	"github.com/hitoshi/vxauth/internal/session"
)

// newGitHubStub はトークン交換とプロフィール取得に応答する
// GitHubのスタブサーバーを起動する。
func newGitHubStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if req["code"] != "good-code" {
			json.NewEncoder(w).Encode(map[string]string{
				"error":             "bad_verification_code",
				"error_description": "The code passed is incorrect or expired.",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "gho_testtoken",
			"token_type":   "bearer",
			"scope":        "read:user",
		})
	})

	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_testtoken" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":         42,
			"login":      "octo",
			"name":       "Octo Cat",
			"avatar_url": "https://avatars.example/a.png",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// newTestStack はSQLiteストア・実Codec・スタブGitHubで完全なルーターを組み立てる。
func newTestStack(t *testing.T) (http.Handler, []repository.UserStore) {
	t.Helper()

	github := newGitHubStub(t)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("OpenSQLite error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stores := []repository.UserStore{repository.NewSQLiteUserStore(db)}

	provider := auth.NewGitHubOAuthProvider(auth.GitHubOAuthConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "https://auth.example.com/auth/github/callback",
		TokenURL:     github.URL + "/login/oauth/access_token",
		UserURL:      github.URL + "/user",
	})
	authService := auth.NewService(provider, stores, nil)
	lookupService := lookup.NewService(stores, nil, nil)

	codec, err := session.NewCodec("integration-test-secret", 86400)
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	validator := security.NewRedirectValidator("https://auth.example.com/auth/me")

	router := NewRouter(&RouterDeps{
		SessionVerifier:   codec,
		CORSAllowedOrigin: "http://localhost:3000",
		AuthService:       authService,
		AuthConfig: AuthHandlerConfig{
			AuthHost:           "https://auth.example.com",
			DefaultRedirectURL: "https://auth.example.com/auth/me",
		},
		Sessions:          codec,
		Lookup:            lookupService,
		RedirectValidator: validator,
		Sanitizer:         security.NewDisplaySanitizer(),
	})

	return router, stores
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

// TestLoginFlow_EndToEnd はOAuthコールバックからセッション利用までの一連の流れを検証する。
func TestLoginFlow_EndToEnd(t *testing.T) {
	router, stores := newTestStack(t)

	// 1. 認証開始: GET /auth はプロバイダーへの302を返し、行き先をstateに載せる
	req := httptest.NewRequest(http.MethodGet, "/auth?redirect_url=https%3A%2F%2Fapp.example.com%2Fdash", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusFound {
		t.Fatalf("GET /auth status = %d, want %d", w.Result().StatusCode, http.StatusFound)
	}
	authorizeURL, err := url.Parse(w.Result().Header.Get("Location"))
	if err != nil {
		t.Fatalf("invalid authorize URL: %v", err)
	}
	if authorizeURL.Query().Get("state") != "https://app.example.com/dash" {
		t.Errorf("state = %q, want pass-through destination", authorizeURL.Query().Get("state"))
	}
	if authorizeURL.Query().Get("client_id") != "test-client" {
		t.Errorf("client_id = %q", authorizeURL.Query().Get("client_id"))
	}

	// 2. コールバック: コード交換・永続化・セッション発行・リダイレクト
	req = httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=good-code&state=https%3A%2F%2Fapp.example.com%2Fdash", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("callback status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("invalid callback Location: %v", err)
	}
	if !strings.Contains(loc.RawQuery, "user=42") {
		t.Errorf("callback redirect query = %q, want user=42", loc.RawQuery)
	}
	cookie := sessionCookie(t, resp)

	// 3. /auth/me は発行済みCookieでユーザーを返す
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("/auth/me status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	var meBody struct {
		User model.User `json:"user"`
	}
	if err := json.NewDecoder(w.Result().Body).Decode(&meBody); err != nil {
		t.Fatalf("failed to decode /auth/me body: %v", err)
	}
	if meBody.User.ID != 42 || meBody.User.Login != "octo" {
		t.Errorf("user = %+v, want ID 42 / octo", meBody.User)
	}
	if meBody.User.Name == nil || *meBody.User.Name != "Octo Cat" {
		t.Errorf("name = %v, want Octo Cat", meBody.User.Name)
	}

	// 4. コールバックがユーザーをストアに永続化していること
	stored, err := stores[0].GetByID(req.Context(), 42)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if stored == nil || stored.Login != "octo" {
		t.Fatalf("stored = %+v, want persisted octo", stored)
	}

	// 5. /users/{id} は永続化済みユーザーを返す（ログイン名・大文字でも）
	for _, identifier := range []string{"42", "octo", "OCTO"} {
		req = httptest.NewRequest(http.MethodGet, "/users/"+identifier, nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("/users/%s status = %d, want %d", identifier, w.Result().StatusCode, http.StatusOK)
		}
	}

	// 6. /auth/status はCookieで認証済みと判定する
	req = httptest.NewRequest(http.MethodPost, "/auth/status", strings.NewReader(`{"user":"octo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("/auth/status status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	// 別人の識別子は403
	req = httptest.NewRequest(http.MethodPost, "/auth/status", strings.NewReader(`{"user":"someone-else"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("/auth/status mismatch status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}

	// 7. ログアウトでCookieが破棄される
	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout should clear the session cookie")
	}
}

// TestLoginFlow_BadCode_Returns500 はプロバイダーがコードを拒否した場合の失敗経路を検証する。
func TestLoginFlow_BadCode_Returns500(t *testing.T) {
	router, _ := newTestStack(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=wrong-code", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			t.Error("no session cookie should be issued for a rejected code")
		}
	}
}

// TestDirectLogin_EndToEnd はPOST /auth/loginの直接ログイン経路を検証する。
func TestDirectLogin_EndToEnd(t *testing.T) {
	router, stores := newTestStack(t)

	// 事前にユーザーを永続化しておく
	name := "Octo Cat"
	seedReq := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := stores[0].Upsert(seedReq.Context(), &model.User{ID: 42, Login: "octo", Name: &name}); err != nil {
		t.Fatalf("seed upsert error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"user":"octo","redirect_url":"https://app.example.com/dash"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Status   string     `json:"status"`
		User     model.User `json:"user"`
		Redirect *string    `json:"redirect"`
		AuthURL  string     `json:"authurl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode login body: %v", err)
	}
	if body.Status != "ok" || body.User.ID != 42 {
		t.Errorf("body = %+v", body)
	}
	if body.Redirect == nil || !strings.Contains(*body.Redirect, "user=42") {
		t.Errorf("redirect = %v, want destination with user=42", body.Redirect)
	}

	// 発行されたCookieはそのまま/auth/meで使える
	cookie := sessionCookie(t, resp)
	meReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	meReq.AddCookie(cookie)
	mw := httptest.NewRecorder()
	router.ServeHTTP(mw, meReq)
	if mw.Result().StatusCode != http.StatusOK {
		t.Errorf("/auth/me with login cookie status = %d, want %d", mw.Result().StatusCode, http.StatusOK)
	}
}
