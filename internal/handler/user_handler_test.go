package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/vxauth/internal/model"
)

func userRouter(lookup *mockLookup) http.Handler {
	r := chi.NewRouter()
	r.Get("/users/{id}", NewUserHandler(lookup).GetUser)
	return r
}

func TestGetUser_Found_ReturnsUserJSON(t *testing.T) {
	name := "Octo Cat"
	lookup := &mockLookup{
		resolveFn: func(ctx context.Context, identifier string) *model.User {
			if identifier != "octo" {
				t.Errorf("identifier = %q, want octo", identifier)
			}
			return &model.User{ID: 42, Login: "octo", Name: &name}
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/users/octo", nil)
	w := httptest.NewRecorder()
	userRouter(lookup).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body := decodeJSONBody(t, resp)
	if body["login"] != "octo" || body["id"] != float64(42) {
		t.Errorf("body = %v", body)
	}
	if body["name"] != "Octo Cat" {
		t.Errorf("name = %v, want Octo Cat", body["name"])
	}
}

func TestGetUser_NumericIdentifier_PassedThrough(t *testing.T) {
	lookup := &mockLookup{
		resolveFn: func(ctx context.Context, identifier string) *model.User {
			if identifier != "42" {
				t.Errorf("identifier = %q, want 42", identifier)
			}
			return &model.User{ID: 42, Login: "octo"}
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	w := httptest.NewRecorder()
	userRouter(lookup).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestGetUser_NotFound_Returns404(t *testing.T) {
	lookup := &mockLookup{}

	req := httptest.NewRequest(http.MethodGet, "/users/ghost", nil)
	w := httptest.NewRecorder()
	userRouter(lookup).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	body := decodeJSONBody(t, resp)
	if body["code"] != model.ErrCodeUserNotFound {
		t.Errorf("code = %v, want %v", body["code"], model.ErrCodeUserNotFound)
	}
}
