package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const defaultInstagramUserInfoURL = "https://graph.instagram.com/me?fields=id,username"

// InstagramOAuthConfig はInstagram OAuthプロバイダーの設定。
type InstagramOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なエンドポイント
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// InstagramOAuthProvider はInstagram基本表示APIによる認証を提供する。
// メールアドレスは取得できないため、OAuthUserInfoのEmailは常に空になる。
type InstagramOAuthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewInstagramOAuthProvider はInstagramOAuthProviderを生成する。
func NewInstagramOAuthProvider(config InstagramOAuthConfig) *InstagramOAuthProvider {
	endpoint := config.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = endpoints.Instagram
	}
	userInfoURL := config.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultInstagramUserInfoURL
	}

	return &InstagramOAuthProvider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"user_profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// Name はプロバイダー識別子を返す。
func (p *InstagramOAuthProvider) Name() string {
	return "instagram"
}

// GetLoginURL はInstagramの認証URLを生成する。
func (p *InstagramOAuthProvider) GetLoginURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// instagramUserInfo は/meエンドポイントのレスポンス。
type instagramUserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *InstagramOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	var userInfo instagramUserInfo
	if err := fetchJSON(ctx, p.config.Client(ctx, token), p.userInfoURL, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	if userInfo.ID == "" {
		return nil, fmt.Errorf("empty id in user info response")
	}

	return &OAuthUserInfo{
		ProviderUserID: userInfo.ID,
		Name:           userInfo.Username,
		Provider:       p.Name(),
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*InstagramOAuthProvider)(nil)
