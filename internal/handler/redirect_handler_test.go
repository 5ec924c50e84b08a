package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/vxauth/internal/model"
	"github.com/hitoshi/vxauth/internal/security"
)

func newTestRedirectHandler() *RedirectHandler {
	return NewRedirectHandler(security.NewRedirectValidator("https://auth.example.com/auth/me"))
}

func TestRedirect_MissingURL_Returns400(t *testing.T) {
	h := newTestRedirectHandler()

	req := httptest.NewRequest(http.MethodGet, "/redirect", nil)
	w := httptest.NewRecorder()

	h.Redirect(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	body := decodeJSONBody(t, resp)
	if body["code"] != model.ErrCodeInvalidRedirectURL {
		t.Errorf("code = %v, want %v", body["code"], model.ErrCodeInvalidRedirectURL)
	}
}

func TestRedirect_ValidURL_RedirectsWithUser(t *testing.T) {
	h := newTestRedirectHandler()

	req := httptest.NewRequest(http.MethodGet, "/redirect?url=https%3A%2F%2Fapp.example.com%2Fdash&user=42", nil)
	w := httptest.NewRecorder()

	h.Redirect(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("invalid Location: %v", err)
	}
	if loc.Host != "app.example.com" || loc.Path != "/dash" {
		t.Errorf("Location = %q", resp.Header.Get("Location"))
	}
	if loc.Query().Get("user") != "42" {
		t.Errorf("user param = %q, want 42", loc.Query().Get("user"))
	}
}

func TestRedirect_NumericURL_TreatedAsUserID(t *testing.T) {
	h := newTestRedirectHandler()

	req := httptest.NewRequest(http.MethodGet, "/redirect?url=123", nil)
	w := httptest.NewRecorder()

	h.Redirect(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	loc := resp.Header.Get("Location")
	// 123という名前のリソースではなく、デフォルト行き先+user=123になる
	if !strings.HasPrefix(loc, "https://auth.example.com/auth/me") {
		t.Errorf("Location = %q, want default destination", loc)
	}
	if !strings.Contains(loc, "user=123") {
		t.Errorf("Location = %q, want user=123 appended", loc)
	}
}

func TestRedirect_DisallowedScheme_Returns400(t *testing.T) {
	h := newTestRedirectHandler()

	for _, raw := range []string{"ftp://evil.example", "javascript:alert(1)", "data:text/html,x"} {
		req := httptest.NewRequest(http.MethodGet, "/redirect?url="+url.QueryEscape(raw), nil)
		w := httptest.NewRecorder()

		h.Redirect(w, req)

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("url %q: status = %d, want %d", raw, w.Result().StatusCode, http.StatusBadRequest)
		}
		if loc := w.Result().Header.Get("Location"); loc != "" {
			t.Errorf("url %q: must never redirect, got Location %q", raw, loc)
		}
	}
}

func TestRedirect_NoUserParam_DestinationUntouched(t *testing.T) {
	h := newTestRedirectHandler()

	req := httptest.NewRequest(http.MethodGet, "/redirect?url=https%3A%2F%2Fapp.example.com%2Fdash", nil)
	w := httptest.NewRecorder()

	h.Redirect(w, req)

	loc := w.Result().Header.Get("Location")
	if strings.Contains(loc, "user=") {
		t.Errorf("Location = %q, want no user param", loc)
	}
}
