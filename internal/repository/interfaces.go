// Package repository はユーザーデータ永続化のインターフェースと実装を定義する。
package repository

import (
	"context"

	"github.com/hitoshi/vxauth/internal/model"
)

// UserStore はユーザーレコードの永続化インターフェース。
// 組み込みSQLiteとPostgreSQLの2実装があり、設定に応じて選択される。
// 呼び出し側はこのインターフェースにのみ依存する。
type UserStore interface {
	// Upsert はユーザーをidをキーに挿入または上書きする（last-write-wins）。
	// スキーマが存在しない場合は書き込み前に冪等に作成する。
	Upsert(ctx context.Context, user *model.User) error

	// GetByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	GetByID(ctx context.Context, id int64) (*model.User, error)

	// GetByLogin はログイン名でユーザーを検索する。大文字小文字は区別しない。
	// 見つからない場合はnilを返す。
	GetByLogin(ctx context.Context, login string) (*model.User, error)

	// Name はログ・メトリクス用のバックエンド名を返す（"sqlite" / "postgres"）。
	Name() string
}
