package lobby

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// pongWait は次のpongを待つ最大時間。これを超えると切断とみなす。
	pongWait = 60 * time.Second
	// pingInterval はpong待ち時間より短くする必要がある。
	pingInterval = 54 * time.Second
	// writeWait は1フレームの書き込みに許す最大時間。
	writeWait = 10 * time.Second
)

// Client はロビーに接続している1つのWebSocketコネクションを表す。
// 受信はreadPump、送信はwritePumpの各ゴルーチンが専有し、
// ハブへのイベント伝達はチャネル経由で行う。
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	addr string

	// closed はハブのイベントループのみが読み書きする。
	closed bool

	// limiter はこのコネクションからの受信イベントを制限する。
	limiter *rate.Limiter
}

// NewClient はClientを生成する。
func NewClient(hub *Hub, conn *websocket.Conn, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(hub.config.MaxMessageSize)
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.config.SendBuffer),
		addr:    addr,
		limiter: rate.NewLimiter(rate.Limit(hub.config.EventRate), hub.config.EventBurst),
	}
}

// readPump はコネクションからフレームを読み続け、
// join/leaveイベントをハブへ到着順に転送する。
// 読み取りエラーで抜け、コネクションの登録解除とクローズを行う。
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				slog.Warn("unexpected websocket close",
					slog.String("remote_addr", c.addr),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		if !c.limiter.Allow() {
			slog.Warn("lobby event rate limit exceeded; discarding frame",
				slog.String("remote_addr", c.addr),
			)
			continue
		}

		c.dispatch(raw)
	}
}

// dispatch は受信フレームをデコードし、対応するイベントをハブへ送る。
// 不正なフレームや未知のイベントは破棄するだけでコネクションは維持する。
func (c *Client) dispatch(raw []byte) {
	ev, err := decodeClientEvent(raw)
	if err != nil {
		slog.Warn("invalid lobby frame",
			slog.String("remote_addr", c.addr),
			slog.String("error", err.Error()),
		)
		return
	}

	var kind eventKind
	switch ev.Event {
	case EventJoin:
		kind = eventJoin
	case EventLeave:
		kind = eventLeave
	default:
		slog.Warn("unknown lobby event",
			slog.String("remote_addr", c.addr),
			slog.String("event", ev.Event),
		)
		return
	}

	select {
	case c.hub.events <- event{client: c, kind: kind, userID: ev.UserID}:
	case <-c.hub.ctx.Done():
	}
}

// writePump は送信チャネルのフレームをコネクションへ書き続け、
// 定期的にpingを打って接続を維持する。
// 送信チャネルが閉じられたらcloseフレームを送って抜ける。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
