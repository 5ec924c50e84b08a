package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/vxauth/internal/model"
)

// PostgresUserStore はPostgreSQLを使用したユーザーストア。
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgresUserStore はPostgresUserStoreを生成する。
func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// Name はバックエンド名を返す。
func (s *PostgresUserStore) Name() string { return "postgres" }

// ensureSchema はusersテーブルを冪等に作成する。
// 通常はmigrateサブコマンドで適用済みだが、Upsertは前提なしで呼べる契約のため
// 書き込み前に必ず確認する。
func (s *PostgresUserStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id bigint PRIMARY KEY,
			login text NOT NULL,
			name text,
			avatar_url text
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure users table: %w", err)
	}
	return nil
}

// Upsert はユーザーをidをキーに挿入または上書きする。
func (s *PostgresUserStore) Upsert(ctx context.Context, user *model.User) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, login, name, avatar_url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		   login = EXCLUDED.login,
		   name = EXCLUDED.name,
		   avatar_url = EXCLUDED.avatar_url`,
		user.ID, user.Login, nullString(user.Name), nullString(user.AvatarURL),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (s *PostgresUserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, login, name, avatar_url FROM users WHERE id = $1 LIMIT 1`, id)
	return scanUser(row)
}

// GetByLogin はログイン名でユーザーを検索する。大文字小文字は区別しない。
func (s *PostgresUserStore) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, login, name, avatar_url FROM users WHERE LOWER(login) = LOWER($1) LIMIT 1`, login)
	return scanUser(row)
}

// compile-time interface check
var _ UserStore = (*PostgresUserStore)(nil)
