// Package lookup は自由形式の識別子からユーザーを解決するサービスを提供する。
package lookup

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hitoshi/vxauth/internal/metrics"
	"github.com/hitoshi/vxauth/internal/model"
	"github.com/hitoshi/vxauth/internal/repository"
)

// ProviderClient はリモートIDプロバイダーへのフォールバック検索インターフェース。
// 失敗はnil（未検出）に写像済みであることを前提とする。
type ProviderClient interface {
	FetchByID(ctx context.Context, id int64) *model.User
	FetchByLogin(ctx context.Context, login string) *model.User
}

// Service は識別子からユーザーを解決する。
// ローカルストアが正であり、リモートプロバイダーは未永続の識別子のための
// フォールバックとして機能する。
type Service struct {
	stores   []repository.UserStore
	provider ProviderClient
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。
// storesは優先順に渡す。providerはnil可（リモートフォールバック無効）。
func NewService(stores []repository.UserStore, provider ProviderClient, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		stores:   stores,
		provider: provider,
		metrics:  collector,
	}
}

// Resolve は識別子をユーザーに解決する。最初のヒットで打ち切る。
//
// 探索順序: 各ストアについてID検索（数値の場合）→ログイン名検索を試し、
// 全ストアで見つからなければリモートプロバイダーにフォールバックする。
// ストア障害はログに残して次の段階へ進む（ベストエフォートの連鎖であり、
// 全段階が失敗して初めて未検出となる）。
func (s *Service) Resolve(ctx context.Context, identifier string) *model.User {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}

	id, err := strconv.ParseInt(identifier, 10, 64)
	isNumeric := err == nil

	for _, store := range s.stores {
		if isNumeric {
			user, err := store.GetByID(ctx, id)
			if err != nil {
				slog.Warn("store lookup by id failed; trying next step",
					slog.String("backend", store.Name()),
					slog.String("error", err.Error()),
				)
			} else if user != nil {
				s.metrics.RecordLookupHit(store.Name())
				return user
			}
		}

		user, err := store.GetByLogin(ctx, identifier)
		if err != nil {
			slog.Warn("store lookup by login failed; trying next step",
				slog.String("backend", store.Name()),
				slog.String("error", err.Error()),
			)
		} else if user != nil {
			s.metrics.RecordLookupHit(store.Name())
			return user
		}
	}

	if s.provider != nil {
		if isNumeric {
			if user := s.provider.FetchByID(ctx, id); user != nil {
				s.metrics.RecordLookupHit("github")
				return user
			}
		}
		if user := s.provider.FetchByLogin(ctx, identifier); user != nil {
			s.metrics.RecordLookupHit("github")
			return user
		}
	}

	s.metrics.RecordLookupMiss()
	return nil
}
