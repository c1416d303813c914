// Package lobby は"/lobby"名前空間のリアルタイム在室中継を提供する。
//
// 中継の仕組みは薄いpub/subで、クライアント発の2つのイベント
// （join/leave）をユーザーID名のルームのメンバーシップ変更に変換し、
// 同じルームの他メンバーへ通知文字列をブロードキャストする。
// ルーム名にユーザーIDそのものを使うことで、「ユーザーXの全セッション」への
// ブロードキャストをメンバーシップ索引なしでO(1)に保っている。
// その代償として、同一ユーザーの複数コネクションはルームメンバーとして
// 区別できず、個別にはアドレスできない。
package lobby

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/travelmate/internal/metrics"
	"github.com/hitoshi/travelmate/internal/security"
)

// Config はロビーハブの設定。
type Config struct {
	// CleanupOnDisconnect は切断時にコネクションのルームメンバーシップを
	// 掃除するかどうか。falseの場合、クライアントがleaveを送らずに切断すると
	// メンバーシップエントリがプロセスの生存期間中残留する
	// （切断済みコネクションへの配信は黙って破棄されるため実害はないが、
	// 長期稼働ではリークになる）。既定はfalse。
	CleanupOnDisconnect bool
	// SendBuffer はクライアントごとの送信チャネルのバッファサイズ。
	SendBuffer int
	// MaxMessageSize は受信フレームの最大バイト数。
	MaxMessageSize int64
	// EventRate はコネクションごとの受信イベントレート（events/sec）。
	EventRate float64
	// EventBurst はコネクションごとの受信イベントのバーストサイズ。
	EventBurst int
}

// DefaultConfig はロビーハブの既定設定を返す。
func DefaultConfig() Config {
	return Config{
		CleanupOnDisconnect: false,
		SendBuffer:          256,
		MaxMessageSize:      4096,
		EventRate:           10,
		EventBurst:          20,
	}
}

// eventKind はクライアント発イベントの種別。
type eventKind int

const (
	eventJoin eventKind = iota
	eventLeave
)

// event はハブのイベントループに渡されるクライアント発イベント。
type event struct {
	client *Client
	kind   eventKind
	userID string
}

// Hub はロビー名前空間の全コネクションとルームメンバーシップを管理する。
// 状態の変更はすべてRunの単一ゴルーチンに集約されるため、
// clients/roomsへのアクセスにロックは不要。
type Hub struct {
	config    Config
	logger    *slog.Logger
	collector metrics.LobbyCollector
	sanitizer security.MessageSanitizer

	register   chan *Client
	unregister chan *Client
	events     chan event

	// Runゴルーチンのみが触る状態
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewHub はHubを生成する。Runを呼ぶまでイベントは処理されない。
func NewHub(config Config, logger *slog.Logger, collector metrics.LobbyCollector, sanitizer security.MessageSanitizer) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:     config,
		logger:     logger,
		collector:  collector,
		sanitizer:  sanitizer,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan event),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register はコネクションをハブに登録する。
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Run はハブのイベントループを開始する。
// 登録・登録解除・join/leaveイベントをすべてこのゴルーチンで逐次処理する
// （コネクションごとのFIFO順序は読み取りポンプの到着順で保たれる）。
// 別ゴルーチンで呼び出すこと。
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllClients()
			return

		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unregister:
			h.handleDisconnect(c)

		case ev := <-h.events:
			switch ev.kind {
			case eventJoin:
				h.handleJoin(ev.client, ev.userID)
			case eventLeave:
				h.handleLeave(ev.client, ev.userID)
			}
		}
	}
}

// handleRegister はコネクションを受け入れ、読み書きポンプを起動する。
func (h *Hub) handleRegister(c *Client) {
	h.clients[c] = true
	h.collector.RecordConnect()
	h.logger.Info("a user connected to the lobby",
		slog.String("remote_addr", c.addr),
		slog.Int("total_connections", len(h.clients)),
	)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// handleJoin はコネクションをルームuserIDのメンバーにし、
// 同じルームの他メンバーへ参加通知をブロードキャストする。
// userIDは呼び出し側が自由に指定する文字列で、対応するユーザーの存在確認や
// 形式検証は行わない。既にメンバーであっても状態は変わらないが、
// 通知は再度ブロードキャストされる。
func (h *Hub) handleJoin(c *Client, userID string) {
	members, ok := h.rooms[userID]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[userID] = members
	}
	members[c] = true

	h.collector.RecordJoin()
	h.collector.SetRoomCount(len(h.rooms))
	h.logger.Info("user joined the lobby", slog.String("user_id", userID))

	h.broadcastToRoom(userID, c, fmt.Sprintf("User %s joined the lobby", h.sanitizer.Sanitize(userID)))
}

// handleLeave はコネクションをルームuserIDから外し、
// 残りのメンバーへ退出通知をブロードキャストする。
// メンバーでないルームからのleaveは何もしない（通知もエラーもなし）。
func (h *Hub) handleLeave(c *Client, userID string) {
	members, ok := h.rooms[userID]
	if !ok || !members[c] {
		return
	}

	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, userID)
	}

	h.collector.RecordLeave()
	h.collector.SetRoomCount(len(h.rooms))
	h.logger.Info("user left the lobby", slog.String("user_id", userID))

	h.broadcastToRoom(userID, c, fmt.Sprintf("User %s left the lobby", h.sanitizer.Sanitize(userID)))
}

// handleDisconnect はコネクションをハブから登録解除する。
// 退出通知はブロードキャストしない。CleanupOnDisconnectが無効の場合、
// コネクションが残していったルームメンバーシップはそのまま残る。
func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	c.closed = true
	close(c.send)

	if h.config.CleanupOnDisconnect {
		h.cleanupMemberships(c)
	}

	h.collector.RecordDisconnect()
	h.collector.SetRoomCount(len(h.rooms))
	h.logger.Info("a user disconnected from the lobby",
		slog.String("remote_addr", c.addr),
		slog.Int("total_connections", len(h.clients)),
	)
}

// cleanupMemberships はコネクションの全ルームメンバーシップを黙って取り除く。
func (h *Hub) cleanupMemberships(c *Client) {
	for userID, members := range h.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, userID)
			}
		}
	}
}

// broadcastToRoom はルームのsender以外の全メンバーへmessageイベントを送る。
// 切断済みメンバーや送信バッファが満杯のメンバーへの配信は黙って破棄する
// （メンバーシップは変更しない）。
func (h *Hub) broadcastToRoom(userID string, sender *Client, text string) {
	members, ok := h.rooms[userID]
	if !ok {
		return
	}

	payload, err := encodeServerMessage(text)
	if err != nil {
		h.logger.Error("failed to encode broadcast message", slog.String("error", err.Error()))
		return
	}

	delivered := 0
	for member := range members {
		if member == sender {
			continue
		}
		if h.trySend(member, payload) {
			delivered++
		} else {
			h.collector.RecordDroppedSend()
		}
	}

	h.collector.RecordBroadcast(delivered)
}

// trySend はブロックせずにクライアントへ配信を試みる。
func (h *Hub) trySend(c *Client, payload []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeAllClients はシャットダウン時に全コネクションを閉じる。
func (h *Hub) closeAllClients() {
	h.logger.Info("closing all lobby connections", slog.Int("count", len(h.clients)))
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

// RoomCount は現在のルーム数を返す。テストおよびメトリクス用。
// Runゴルーチンが停止している状態でのみ呼ぶこと。
func (h *Hub) RoomCount() int {
	return len(h.rooms)
}

// Shutdown はハブを停止し、全ゴルーチンの終了をタイムアウト付きで待つ。
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.logger.Info("lobby hub stopped gracefully")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("lobby hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
