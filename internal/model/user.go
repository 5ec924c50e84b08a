// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// User はGitHubから取得した正規化済みユーザーを表す。
// 永続化・セッションCookie・APIレスポンスで共通に使用する。
type User struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// DisplayName は表示用の名前を返す。Nameが未設定の場合はLoginを返す。
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Login
}

// MatchesIdentifier は識別子がこのユーザーを指しているかを返す。
// ログイン名とは大文字小文字を区別して比較し、数値はIDの文字列表現と比較する。
func (u *User) MatchesIdentifier(identifier string) bool {
	return u.Login == identifier || strconv.FormatInt(u.ID, 10) == identifier
}

// Normalize は任意のデコード済みJSON値をUserに正規化する。
// idが有限な整数に解釈でき、loginが空でない文字列の場合のみUserを返し、
// それ以外はnilを返す。エラーは返さない全域関数（呼び出し側は欠損として扱う）。
func Normalize(v any) *User {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	id, ok := coerceID(m["id"])
	if !ok {
		return nil
	}

	login, ok := m["login"].(string)
	if !ok || login == "" {
		return nil
	}

	user := &User{ID: id, Login: login}
	if name, ok := m["name"].(string); ok {
		user.Name = &name
	}
	if avatar, ok := m["avatar_url"].(string); ok {
		user.AvatarURL = &avatar
	}
	return user
}

// coerceID はidフィールドを64bit整数に変換する。
// encoding/jsonのデコード結果（float64、json.Number）と
// 文字列表現の数値を受け付ける。
func coerceID(v any) (int64, bool) {
	switch id := v.(type) {
	case float64:
		if math.IsNaN(id) || math.IsInf(id, 0) || id != math.Trunc(id) {
			return 0, false
		}
		return int64(id), true
	case int64:
		return id, true
	case int:
		return int64(id), true
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
