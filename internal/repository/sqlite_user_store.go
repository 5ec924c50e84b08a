package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/vxauth/internal/model"
)

// SQLiteUserStore は組み込みSQLiteを使用したユーザーストア。
type SQLiteUserStore struct {
	db *sql.DB
}

// NewSQLiteUserStore はSQLiteUserStoreを生成する。
func NewSQLiteUserStore(db *sql.DB) *SQLiteUserStore {
	return &SQLiteUserStore{db: db}
}

// Name はバックエンド名を返す。
func (s *SQLiteUserStore) Name() string { return "sqlite" }

// ensureSchema はusersテーブルを冪等に作成する。
func (s *SQLiteUserStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			login TEXT NOT NULL,
			name TEXT,
			avatar_url TEXT
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure users table: %w", err)
	}
	return nil
}

// Upsert はユーザーをidをキーに挿入または上書きする。
// スキーマが存在しない場合は書き込み前に作成する。
func (s *SQLiteUserStore) Upsert(ctx context.Context, user *model.User) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (id, login, name, avatar_url)
		 VALUES (?, ?, ?, ?)`,
		user.ID, user.Login, nullString(user.Name), nullString(user.AvatarURL),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (s *SQLiteUserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, login, name, avatar_url FROM users WHERE id = ? LIMIT 1`, id)
	return scanUser(row)
}

// GetByLogin はログイン名でユーザーを検索する。大文字小文字は区別しない。
func (s *SQLiteUserStore) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, login, name, avatar_url FROM users WHERE login = ? COLLATE NOCASE LIMIT 1`, login)
	return scanUser(row)
}

// compile-time interface check
var _ UserStore = (*SQLiteUserStore)(nil)

// scanUser は1行をmodel.Userに変換する。sql.ErrNoRowsはnilに写像する。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var name, avatarURL sql.NullString

	err := row.Scan(&user.ID, &user.Login, &name, &avatarURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if name.Valid {
		user.Name = &name.String
	}
	if avatarURL.Valid {
		user.AvatarURL = &avatarURL.String
	}
	return user, nil
}

// nullString は*stringをsql.NullStringに変換する。
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
