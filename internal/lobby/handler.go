package lobby

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// Handler は"/lobby"エンドポイントのWebSocketアップグレードを処理する。
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler はHandlerを生成する。
// allowedOriginはブラウザからのクロスオリジン接続を許可するオリジン。
// Originヘッダーなし（非ブラウザクライアント）と同一ホストからの接続は常に許可する。
func NewHandler(hub *Hub, allowedOrigin string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     newOriginChecker(allowedOrigin),
		},
	}
}

// ServeHTTP はHTTPコネクションをWebSocketにアップグレードし、
// クライアントをハブに登録する。ポンプの起動はハブ側で行う。
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeは失敗時に自身でエラーレスポンスを書いている
		slog.Warn("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	h.hub.Register(NewClient(h.hub, conn, r.RemoteAddr))
}

// newOriginChecker はアップグレード時のOriginヘッダー検証関数を返す。
func newOriginChecker(allowedOrigin string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if origin == allowedOrigin {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	}
}
