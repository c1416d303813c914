package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OAuthUserInfo はOAuthプロバイダーから取得した外部アイデンティティを表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "facebook", "google", "instagram"
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 具体的なプロバイダーのトークン交換手順はこの背後に隠蔽し、
// ゲートウェイ側はプロバイダー非依存に保つ。
type OAuthProvider interface {
	// Name はプロバイダー識別子（ルーティングとusersフィールドの切替に使う）を返す。
	Name() string
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// fetchJSON はアクセストークン付きでユーザー情報エンドポイントを取得し、
// レスポンスJSONをtargetにデコードする。
// httpClientにはoauth2.Config.Clientが返すトークン注入済みクライアントを渡す。
func fetchJSON(ctx context.Context, httpClient *http.Client, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create user info request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to parse user info response: %w", err)
	}

	return nil
}
