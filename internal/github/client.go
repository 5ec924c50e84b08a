// Package github はGitHub公開プロフィールAPIのクライアントを提供する。
// 認証なしで参照できるユーザー情報の取得に使用する。
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/vxauth/internal/model"
)

const (
	// defaultAPIBaseURL はGitHub REST APIのベースURL。
	defaultAPIBaseURL = "https://api.github.com"
	// userAgent はGitHub APIで必須のUser-Agentヘッダー値。
	userAgent = "VX-API-Server"
)

// Client はGitHub公開プロフィールAPIのクライアント。
// ログイン名またはIDでユーザープロフィールを取得し、正規化して返す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にベースURLを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientがnilの場合は10秒タイムアウトのクライアントを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    defaultAPIBaseURL,
	}
}

// SetBaseURL はAPIのベースURLを差し替える。テスト用。
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// FetchByLogin はログイン名でユーザープロフィールを取得する。
// ネットワークエラー・非2xxステータス・正規化失敗はいずれもnil（未検出）に写像する。
// この層では「存在しない」と「一時的な障害」を区別しない（ログには残す）。
func (c *Client) FetchByLogin(ctx context.Context, login string) *model.User {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil
	}
	return c.fetch(ctx, c.baseURL+"/users/"+url.PathEscape(login))
}

// FetchByID は数値IDでユーザープロフィールを取得する。
func (c *Client) FetchByID(ctx context.Context, id int64) *model.User {
	return c.fetch(ctx, fmt.Sprintf("%s/user/%d", c.baseURL, id))
}

// fetch は指定URLからプロフィールを取得し正規化する。失敗はnilに写像する。
func (c *Client) fetch(ctx context.Context, reqURL string) *model.User {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("failed to create github request",
			slog.String("url", reqURL),
			slog.String("error", err.Error()),
		)
		return nil
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("github profile request failed",
			slog.String("url", reqURL),
			slog.String("error", err.Error()),
		)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("github profile request returned non-OK status",
			slog.String("url", reqURL),
			slog.Int("status", resp.StatusCode),
		)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("failed to read github response",
			slog.String("error", err.Error()),
		)
		return nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.logger.Warn("failed to parse github response",
			slog.String("error", err.Error()),
		)
		return nil
	}

	return model.Normalize(decoded)
}
