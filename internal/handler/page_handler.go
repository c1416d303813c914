package handler

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"
)

//go:embed chat.html
var chatPage []byte

// HealthChecker はヘルスチェックが必要とするDB疎通確認インターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RoomCounter はロビーの現在のルーム数を返すインターフェース。
type RoomCounter interface {
	RoomCount() int
}

// PageHandler は静的ページとヘルスチェックのハンドラー。
type PageHandler struct {
	db    HealthChecker
	rooms RoomCounter
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(db HealthChecker, rooms RoomCounter) *PageHandler {
	return &PageHandler{
		db:    db,
		rooms: rooms,
	}
}

// Home はトップページを返す。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Hello World!"))
}

// Chat はロビー接続用のテストページを返す。
// GET /chat
func (h *PageHandler) Chat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(chatPage)
}

// Health はサーバーとDBの状態を返す。
// GET /health
// DBに接続できなくてもサーバー自体は動作し続けるため、
// その場合はdegradedとして503を返す。
func (h *PageHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "ok"
	code := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		status = "degraded"
		dbStatus = "unreachable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"database":   dbStatus,
		"lobbyRooms": h.rooms.RoomCount(),
	})
}
