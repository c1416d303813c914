package lobby

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/travelmate/internal/metrics"
	"github.com/hitoshi/travelmate/internal/security"
)

// --- テストヘルパー ---

// newTestHub はイベントループを起動せずにHubを生成する。
// ハンドラーメソッドを直接呼ぶことで、単一ゴルーチン前提の状態遷移を
// 決定的にテストする。
func newTestHub(config Config) *Hub {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	collector := metrics.NewCollector(prometheus.NewRegistry())
	return NewHub(config, logger, collector, security.NewMessageSanitizer())
}

// newTestClient はWebSocketコネクションなしのClientを生成する。
// ポンプを起動しないため、送信チャネルから直接フレームを検査できる。
func newTestClient(h *Hub) *Client {
	c := NewClient(h, nil, "127.0.0.1:12345")
	h.clients[c] = true
	return c
}

// drainMessages はクライアントの送信チャネルに溜まった通知文字列を取り出す。
func drainMessages(t *testing.T, c *Client) []string {
	t.Helper()
	var msgs []string
	for {
		select {
		case payload := <-c.send:
			var m ServerMessage
			if err := json.Unmarshal(payload, &m); err != nil {
				t.Fatalf("invalid server frame: %v", err)
			}
			if m.Event != EventMessage {
				t.Errorf("event = %q, want %q", m.Event, EventMessage)
			}
			msgs = append(msgs, m.Data)
		default:
			return msgs
		}
	}
}

// --- テスト ---

func TestHandleJoin_BroadcastsToOtherMembersOnly(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "u1")

	// 最初の参加者には誰も通知を受け取らない
	if msgs := drainMessages(t, a); len(msgs) != 0 {
		t.Errorf("a received %v, want none", msgs)
	}

	h.handleJoin(b, "u1")

	// 既存メンバーaにのみ通知され、参加者b自身には届かない
	aMsgs := drainMessages(t, a)
	if len(aMsgs) != 1 {
		t.Fatalf("a received %d messages, want 1", len(aMsgs))
	}
	if aMsgs[0] != "User u1 joined the lobby" {
		t.Errorf("message = %q, want %q", aMsgs[0], "User u1 joined the lobby")
	}
	if msgs := drainMessages(t, b); len(msgs) != 0 {
		t.Errorf("b received %v, want none", msgs)
	}
}

func TestHandleJoin_CreatesRoomImplicitly(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)

	if len(h.rooms) != 0 {
		t.Fatalf("rooms = %d, want 0", len(h.rooms))
	}

	h.handleJoin(a, "u1")

	if !h.rooms["u1"][a] {
		t.Error("a should be a member of room u1")
	}
	if h.RoomCount() != 1 {
		t.Errorf("RoomCount() = %d, want 1", h.RoomCount())
	}
}

func TestHandleJoin_DoubleJoin_MembershipUnchangedButBroadcastsAgain(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "u1")
	h.handleJoin(b, "u1")
	drainMessages(t, a)
	drainMessages(t, b)

	// aが同じルームに再joinする
	h.handleJoin(a, "u1")

	if len(h.rooms["u1"]) != 2 {
		t.Errorf("room u1 has %d members, want 2", len(h.rooms["u1"]))
	}

	// 通知はbにちょうど1回、aには届かない
	bMsgs := drainMessages(t, b)
	if len(bMsgs) != 1 {
		t.Fatalf("b received %d messages, want 1", len(bMsgs))
	}
	if bMsgs[0] != "User u1 joined the lobby" {
		t.Errorf("message = %q, want %q", bMsgs[0], "User u1 joined the lobby")
	}
	if msgs := drainMessages(t, a); len(msgs) != 0 {
		t.Errorf("a received %v, want none", msgs)
	}
}

func TestHandleLeave_BroadcastsToRemainingMembers(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "u1")
	h.handleJoin(b, "u1")
	drainMessages(t, a)
	drainMessages(t, b)

	h.handleLeave(a, "u1")

	bMsgs := drainMessages(t, b)
	if len(bMsgs) != 1 {
		t.Fatalf("b received %d messages, want 1", len(bMsgs))
	}
	if bMsgs[0] != "User u1 left the lobby" {
		t.Errorf("message = %q, want %q", bMsgs[0], "User u1 left the lobby")
	}
	if msgs := drainMessages(t, a); len(msgs) != 0 {
		t.Errorf("a received %v, want none", msgs)
	}
	if h.rooms["u1"][a] {
		t.Error("a should no longer be a member of room u1")
	}
}

func TestHandleLeave_NonMember_SilentNoop(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "u1")
	drainMessages(t, a)

	// bはu1のメンバーではない
	h.handleLeave(b, "u1")

	if msgs := drainMessages(t, a); len(msgs) != 0 {
		t.Errorf("a received %v, want none", msgs)
	}
	if msgs := drainMessages(t, b); len(msgs) != 0 {
		t.Errorf("b received %v, want none", msgs)
	}
	if len(h.rooms["u1"]) != 1 {
		t.Errorf("room u1 has %d members, want 1", len(h.rooms["u1"]))
	}
}

func TestHandleLeave_LastMember_DeletesRoom(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)

	h.handleJoin(a, "u1")
	h.handleLeave(a, "u1")

	if _, ok := h.rooms["u1"]; ok {
		t.Error("empty room u1 should be deleted")
	}
	if h.RoomCount() != 0 {
		t.Errorf("RoomCount() = %d, want 0", h.RoomCount())
	}
}

func TestHandleDisconnect_Default_NoCleanupAndNoBroadcast(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "u1")
	h.handleJoin(b, "u1")
	drainMessages(t, a)
	drainMessages(t, b)

	h.handleDisconnect(a)

	// 退出通知は流れない
	if msgs := drainMessages(t, b); len(msgs) != 0 {
		t.Errorf("b received %v, want none", msgs)
	}

	// 既定ではメンバーシップが残留する
	if !h.rooms["u1"][a] {
		t.Error("a's stale membership should remain with cleanup disabled")
	}
	if _, ok := h.clients[a]; ok {
		t.Error("a should be removed from clients")
	}
}

func TestHandleDisconnect_CleanupEnabled_RemovesMemberships(t *testing.T) {
	config := DefaultConfig()
	config.CleanupOnDisconnect = true
	h := newTestHub(config)
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "u1")
	h.handleJoin(a, "u2")
	h.handleJoin(b, "u1")
	drainMessages(t, a)
	drainMessages(t, b)

	h.handleDisconnect(a)

	// 掃除は黙って行われ、通知は流れない
	if msgs := drainMessages(t, b); len(msgs) != 0 {
		t.Errorf("b received %v, want none", msgs)
	}
	if h.rooms["u1"][a] {
		t.Error("a should be removed from room u1")
	}
	if _, ok := h.rooms["u2"]; ok {
		t.Error("room u2 should be deleted after its last member disconnects")
	}
}

func TestHandleDisconnect_Twice_SecondIsNoop(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)

	h.handleDisconnect(a)
	// 2回目はsendチャネルの二重closeを起こさないこと
	h.handleDisconnect(a)
}

func TestBroadcastToRoom_StaleMember_SilentlyDropped(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "u1")
	h.handleJoin(b, "u1")
	drainMessages(t, a)
	drainMessages(t, b)

	// aが切断し、残留メンバーシップを残す
	h.handleDisconnect(a)

	// bの再joinはaへの配信を黙って破棄する（panicしない）
	h.handleJoin(b, "u1")

	if msgs := drainMessages(t, b); len(msgs) != 0 {
		t.Errorf("b received %v, want none", msgs)
	}
}

func TestBroadcastToRoom_FullSendBuffer_SilentlyDropped(t *testing.T) {
	config := DefaultConfig()
	config.SendBuffer = 1
	h := newTestHub(config)
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "u1")
	h.handleJoin(b, "u1")
	drainMessages(t, a)
	drainMessages(t, b)

	// aの送信バッファを満杯にする
	a.send <- []byte("{}")

	// 配信は破棄されるがメンバーシップは維持される
	h.handleJoin(b, "u1")

	if !h.rooms["u1"][a] {
		t.Error("a should remain a member after a dropped delivery")
	}
}

func TestHandleJoin_SanitizesUserIDInBroadcast(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "<script>alert(1)</script>u1")
	h.handleJoin(b, "<script>alert(1)</script>u1")

	aMsgs := drainMessages(t, a)
	if len(aMsgs) != 1 {
		t.Fatalf("a received %d messages, want 1", len(aMsgs))
	}
	if strings.Contains(aMsgs[0], "<script>") {
		t.Errorf("broadcast contains raw HTML: %q", aMsgs[0])
	}
	if !strings.Contains(aMsgs[0], "u1") {
		t.Errorf("broadcast should keep the text content: %q", aMsgs[0])
	}

	// ルームキーは生のuserIDのまま（サニタイズは通知文字列のみ）
	if _, ok := h.rooms["<script>alert(1)</script>u1"]; !ok {
		t.Error("room key should be the raw userId")
	}
}

// 後からの参加が既存メンバーにちょうど1通ずつ届くシナリオ。
func TestScenario_RejoinDeliversExactlyOneMessageToPeer(t *testing.T) {
	h := newTestHub(DefaultConfig())
	a := newTestClient(h)
	b := newTestClient(h)

	h.handleJoin(a, "u1")
	h.handleJoin(b, "u1")
	drainMessages(t, a)
	drainMessages(t, b)

	h.handleJoin(a, "u1")

	if msgs := drainMessages(t, b); len(msgs) != 1 {
		t.Errorf("b received %d messages, want exactly 1", len(msgs))
	}
	if msgs := drainMessages(t, a); len(msgs) != 0 {
		t.Errorf("a received %v, want none", msgs)
	}
}

func TestDecodeClientEvent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ClientEvent
		wantErr bool
	}{
		{
			name: "joinイベント",
			raw:  `{"event":"join","userId":"u1"}`,
			want: ClientEvent{Event: "join", UserID: "u1"},
		},
		{
			name: "leaveイベント",
			raw:  `{"event":"leave","userId":"u1"}`,
			want: ClientEvent{Event: "leave", UserID: "u1"},
		},
		{
			name:    "不正なJSON",
			raw:     `{"event":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := decodeClientEvent([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if *ev != tt.want {
				t.Errorf("decodeClientEvent() = %+v, want %+v", *ev, tt.want)
			}
		})
	}
}

func TestEncodeServerMessage(t *testing.T) {
	payload, err := encodeServerMessage("User u1 joined the lobby")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var m ServerMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m.Event != EventMessage {
		t.Errorf("event = %q, want %q", m.Event, EventMessage)
	}
	if m.Data != "User u1 joined the lobby" {
		t.Errorf("data = %q", m.Data)
	}
}
