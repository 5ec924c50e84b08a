package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/vxauth/internal/metrics"
	"github.com/hitoshi/vxauth/internal/middleware"
	"github.com/hitoshi/vxauth/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionVerifier   middleware.SessionVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	Sessions    SessionIssuer

	// 検索
	Lookup LookupServiceInterface

	// セキュリティ
	RedirectValidator *security.RedirectValidator
	Sanitizer         *security.DisplaySanitizer

	// 計測
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer // nilの場合/metricsルートを公開しない
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → Session
//
// レート制限（IPキー）は認証フロー入口（/auth, /auth/github/callback,
// /auth/login）にのみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSessionMiddleware(deps.SessionVerifier))

	authHandler := NewAuthHandler(deps.AuthService, deps.Lookup, deps.Sessions, deps.RedirectValidator, deps.AuthConfig, deps.Metrics)
	userHandler := NewUserHandler(deps.Lookup)
	redirectHandler := NewRedirectHandler(deps.RedirectValidator)
	homeHandler := NewHomeHandler(deps.Sanitizer)

	// --- 認証フロー入口（レート制限あり） ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Get("/auth", authHandler.Auth)
		r.Get("/auth/github/callback", authHandler.Callback)
		r.Post("/auth/login", authHandler.Login)
	})

	// --- セッション状態系 ---
	r.Post("/auth/status", authHandler.Status)
	r.Get("/auth/me", authHandler.Me)
	r.Get("/logout", authHandler.Logout)

	// --- 検索・リダイレクト ---
	r.Get("/users/{id}", userHandler.GetUser)
	r.Get("/redirect", redirectHandler.Redirect)

	// --- その他 ---
	r.Get("/", homeHandler.Home)
	r.Get("/health", homeHandler.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	return r
}
