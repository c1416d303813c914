// Package app はアプリケーションの初期化・ワイヤリング・ライフサイクル管理を行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/travelmate/internal/auth"
	"github.com/hitoshi/travelmate/internal/config"
	"github.com/hitoshi/travelmate/internal/database"
	"github.com/hitoshi/travelmate/internal/handler"
	"github.com/hitoshi/travelmate/internal/lobby"
	"github.com/hitoshi/travelmate/internal/logger"
	"github.com/hitoshi/travelmate/internal/metrics"
	"github.com/hitoshi/travelmate/internal/middleware"
	"github.com/hitoshi/travelmate/internal/repository"
	"github.com/hitoshi/travelmate/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "3000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーとロビーハブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
//
// DB接続に失敗してもプロセスは終了しない（既知の挙動の踏襲）:
// ロビーと静的ページは動き続け、認証系のリクエストだけがエラーになる。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close(context.Background())

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := db.Ping(pingCtx); err != nil {
		slog.Error("database unreachable at startup, continuing without it",
			slog.String("error", err.Error()),
		)
	} else {
		slog.Info("database connection established")
	}
	pingCancel()

	// 2. リポジトリの初期化
	userRepo := repository.NewMongoUserRepo(db.Database())
	sessionRepo := repository.NewMongoSessionRepo(db.Database())

	// 3. OAuthプロバイダーの初期化
	// 資格情報が未設定のプロバイダーもルーティング上は有効で、IdP側で失敗する
	providers := []auth.OAuthProvider{
		auth.NewFacebookOAuthProvider(auth.FacebookOAuthConfig{
			AppID:       cfg.FacebookAppID,
			AppSecret:   cfg.FacebookAppSecret,
			RedirectURL: cfg.RedirectURL("facebook"),
		}),
		auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL("google"),
		}),
		auth.NewInstagramOAuthProvider(auth.InstagramOAuthConfig{
			ClientID:     cfg.InstagramClientID,
			ClientSecret: cfg.InstagramClientSecret,
			RedirectURL:  cfg.RedirectURL("instagram"),
		}),
	}

	authService := auth.NewService(
		providers, userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	// 4. メトリクスとロビーハブの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sanitizer := security.NewMessageSanitizer()

	hubConfig := lobby.DefaultConfig()
	hubConfig.CleanupOnDisconnect = cfg.LobbyCleanupOnDisconnect
	hubConfig.SendBuffer = cfg.LobbySendBuffer
	hubConfig.MaxMessageSize = cfg.LobbyMaxMessageSize
	hubConfig.EventRate = cfg.LobbyEventRate
	hubConfig.EventBurst = cfg.LobbyEventBurst

	hub := lobby.NewHub(hubConfig, slog.Default(), collector, sanitizer)
	go hub.Run()

	// 5. レート制限の初期化（req/min -> req/sec に変換）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AuthRate = rate.Limit(float64(cfg.RateLimitAuth) / 60.0)
	rateLimiterCfg.AuthBurst = cfg.RateLimitAuth
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		Logger: slog.Default(),

		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		SecurityHeaders: middleware.SecurityHeadersConfig{
			EnableHSTS: cfg.CookieSecure,
		},
		RateLimiter:   rateLimiter,
		SessionFinder: sessionRepo,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		UserService: authService,

		LobbyHandler: lobby.NewHandler(hub, cfg.CORSAllowedOrigin),
		RoomCounter:  hub,

		DB: db,

		Collector:       collector,
		MetricsGatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// ロビーハブを停止（全WebSocketコネクションのクローズを待つ）
	if err := hub.Shutdown(10 * time.Second); err != nil {
		slog.Warn("lobby hub shutdown timed out", slog.String("error", err.Error()))
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runMigrate はデータベースのインデックスマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
