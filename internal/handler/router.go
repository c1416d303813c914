package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/travelmate/internal/metrics"
	"github.com/hitoshi/travelmate/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	SecurityHeaders   middleware.SecurityHeadersConfig
	RateLimiter       *middleware.RateLimiter
	SessionFinder     middleware.SessionFinder

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー
	UserService UserServiceInterface

	// ロビー（WebSocket）
	LobbyHandler http.Handler
	RoomCounter  RoomCounter

	// ヘルスチェック
	DB HealthChecker

	// メトリクス
	Collector       metrics.LobbyCollector
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → Logging → Recovery → RateLimit(General)
//
// 認証ルート（/auth/*）には一般レート制限の代わりに認証専用レート制限を適用する。
// /lobby はWebSocketアップグレードを伴うためレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.SecurityHeaders))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	pageHandler := NewPageHandler(deps.DB, deps.RoomCounter)

	// --- 認証ルート ---
	// OAuthフローはIdPからのリダイレクトを受けるため認証専用レート制限のみ適用
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())

		r.Get("/{provider}", authHandler.Login)
		r.Get("/{provider}/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- ロビー（WebSocket） ---
	r.Get("/lobby", deps.LobbyHandler.ServeHTTP)

	// --- 認証が必要なAPIルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		userHandler := NewUserHandler(deps.UserService)
		r.Post("/api/users/me/lobby-complete", userHandler.CompleteLobby)
	})

	// --- ページ・運用系ルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", pageHandler.Home)
		r.Get("/chat", pageHandler.Chat)
		r.Get("/health", pageHandler.Health)
		r.Get("/metrics", metrics.Handler(deps.MetricsGatherer).ServeHTTP)
	})

	return r
}
