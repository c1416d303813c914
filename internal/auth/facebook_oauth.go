package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const defaultFacebookUserInfoURL = "https://graph.facebook.com/v19.0/me?fields=id,name,email"

// FacebookOAuthConfig はFacebook OAuthプロバイダーの設定。
type FacebookOAuthConfig struct {
	AppID       string
	AppSecret   string
	RedirectURL string

	// テスト用にオーバーライド可能なエンドポイント
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// FacebookOAuthProvider はFacebookログインによる認証を提供する。
type FacebookOAuthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewFacebookOAuthProvider はFacebookOAuthProviderを生成する。
func NewFacebookOAuthProvider(config FacebookOAuthConfig) *FacebookOAuthProvider {
	endpoint := config.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = endpoints.Facebook
	}
	userInfoURL := config.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultFacebookUserInfoURL
	}

	return &FacebookOAuthProvider{
		config: &oauth2.Config{
			ClientID:     config.AppID,
			ClientSecret: config.AppSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// Name はプロバイダー識別子を返す。
func (p *FacebookOAuthProvider) Name() string {
	return "facebook"
}

// GetLoginURL はFacebookログインの認証URLを生成する。
func (p *FacebookOAuthProvider) GetLoginURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// facebookUserInfo はGraph APIの/meエンドポイントのレスポンス。
type facebookUserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *FacebookOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	var userInfo facebookUserInfo
	if err := fetchJSON(ctx, p.config.Client(ctx, token), p.userInfoURL, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	if userInfo.ID == "" {
		return nil, fmt.Errorf("empty id in user info response")
	}

	return &OAuthUserInfo{
		ProviderUserID: userInfo.ID,
		Email:          userInfo.Email,
		Name:           userInfo.Name,
		Provider:       p.Name(),
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*FacebookOAuthProvider)(nil)
