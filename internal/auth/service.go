// Package auth はGitHub OAuth認証フローを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/vxauth/internal/metrics"
	"github.com/hitoshi/vxauth/internal/model"
	"github.com/hitoshi/vxauth/internal/repository"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// Configured はクライアント認証情報が設定されているかを返す。
	Configured() bool
	// AuthorizeURL は認証URLを生成する。stateはパススルー値。
	AuthorizeURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、正規化済みユーザーを返す。
	ExchangeCode(ctx context.Context, code string) (*model.User, error)
}

// Service は認証に関するビジネスロジックを提供する。
// ストアを所有せず、コールバック1回分のトランザクションを調停する。
type Service struct {
	oauth   OAuthProvider
	stores  []repository.UserStore
	metrics metrics.MetricsCollector
}

// NewService はServiceを生成する。
// storesには設定済みのバックエンドを順に渡す（空でもよい）。
func NewService(oauth OAuthProvider, stores []repository.UserStore, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		oauth:   oauth,
		stores:  stores,
		metrics: collector,
	}
}

// Configured はOAuthクライアント認証情報が設定されているかを返す。
func (s *Service) Configured() bool {
	return s.oauth.Configured()
}

// AuthorizeURL はOAuth認証URLを生成する。
func (s *Service) AuthorizeURL(state string) string {
	return s.oauth.AuthorizeURL(state)
}

// HandleCallback はOAuthコールバックを処理する。
// 認可コードをトークンに交換し、プロフィールを取得・正規化した上で、
// 設定済みの全ストアにベストエフォートで書き込む。
// 永続化の失敗はログに残して処理を継続する（ログイン可用性を保存性より優先する）。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.User, error) {
	start := time.Now()
	user, err := s.oauth.ExchangeCode(ctx, code)
	s.metrics.RecordProviderLatency(time.Since(start))
	if err != nil {
		s.metrics.RecordTokenExchangeFailure()
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	s.Persist(ctx, user)

	s.metrics.RecordLoginSuccess()
	slog.Info("user authenticated",
		slog.Int64("user_id", user.ID),
		slog.String("login", user.Login),
	)

	return user, nil
}

// Persist はユーザーを設定済みの全ストアにベストエフォートで書き込む。
// 1つのバックエンドの失敗が他のバックエンドへの書き込みを妨げることはない。
func (s *Service) Persist(ctx context.Context, user *model.User) {
	for _, store := range s.stores {
		if err := store.Upsert(ctx, user); err != nil {
			s.metrics.RecordUpsertFailure(store.Name())
			slog.Warn("failed to persist user; continuing",
				slog.String("backend", store.Name()),
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
