package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/vxauth/internal/auth"
	"github.com/hitoshi/vxauth/internal/config"
	"github.com/hitoshi/vxauth/internal/database"
	"github.com/hitoshi/vxauth/internal/github"
	"github.com/hitoshi/vxauth/internal/handler"
	"github.com/hitoshi/vxauth/internal/logger"
	"github.com/hitoshi/vxauth/internal/lookup"
	"github.com/hitoshi/vxauth/internal/metrics"
	"github.com/hitoshi/vxauth/internal/middleware"
	"github.com/hitoshi/vxauth/internal/repository"
	"github.com/hitoshi/vxauth/internal/security"
	"github.com/hitoshi/vxauth/internal/session"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("auth_host", cfg.AuthHost),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 設定されたストアバックエンドを開き、全依存関係をワイヤリングし、
// HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ユーザーストアの初期化（設定されたバックエンドのみ）
	// 解決順はSQLite→PostgreSQL→GitHub API。
	var stores []repository.UserStore

	if cfg.SQLitePath != "" {
		sqliteDB, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		defer sqliteDB.Close()
		stores = append(stores, repository.NewSQLiteUserStore(sqliteDB))
		slog.Info("sqlite store enabled", slog.String("path", cfg.SQLitePath))
	}

	if cfg.DatabaseURL != "" {
		pgDB, err := database.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open postgres database: %w", err)
		}
		defer pgDB.Close()

		if err := pgDB.Ping(); err != nil {
			return fmt.Errorf("failed to connect to postgres database: %w", err)
		}
		stores = append(stores, repository.NewPostgresUserStore(pgDB))
		slog.Info("postgres store enabled")
	}

	if len(stores) == 0 {
		// ストアなしでも起動は継続する。ユーザー解決はGitHub APIのみになる。
		slog.Warn("no store backend configured; users will not be persisted")
	}

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. ドメインサービスの初期化
	oauthProvider := auth.NewGitHubOAuthProvider(auth.GitHubOAuthConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.CallbackURL(),
	})
	authService := auth.NewService(oauthProvider, stores, collector)

	githubClient := github.NewClient(&http.Client{Timeout: 10 * time.Second}, slog.Default())
	lookupService := lookup.NewService(stores, githubClient, collector)

	// 4. セッションコーデックの初期化
	codec, err := session.NewCodec(cfg.CookieSecret, cfg.SessionMaxAge)
	if err != nil {
		return fmt.Errorf("failed to initialize session codec: %w", err)
	}

	// 5. セキュリティサービスの初期化
	validator := security.NewRedirectValidator(cfg.DefaultRedirectURL)
	sanitizer := security.NewDisplaySanitizer()

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitAuth))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionVerifier:   codec,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			AuthHost:           cfg.AuthHost,
			DefaultRedirectURL: cfg.DefaultRedirectURL,
		},
		Sessions: codec,
		Lookup:   lookupService,

		RedirectValidator: validator,
		Sanitizer:         sanitizer,

		Metrics:  collector,
		Gatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// マイグレーションはPostgreSQLバックエンドのみが対象となる
// （SQLiteはストア初期化時にスキーマを自動作成する）。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("migrate requires DATABASE_URL to be set")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
