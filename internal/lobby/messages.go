package lobby

import (
	"encoding/json"
	"fmt"
)

// イベント名。クライアントとのワイヤプロトコルを構成する。
const (
	// EventJoin はルームへの参加要求（client→server）。
	EventJoin = "join"
	// EventLeave はルームからの退出要求（client→server）。
	EventLeave = "leave"
	// EventMessage は在室通知（server→同室の他クライアント）。
	EventMessage = "message"
)

// ClientEvent はクライアントから受信するJSONフレーム。
//
//	{"event": "join", "userId": "u1"}
type ClientEvent struct {
	Event  string `json:"event"`
	UserID string `json:"userId"`
}

// ServerMessage はサーバーから送出するJSONフレーム。
// dataは人間可読の文字列のみで、構造化フィールドは持たない。
//
//	{"event": "message", "data": "User u1 joined the lobby"}
type ServerMessage struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// decodeClientEvent は受信フレームをデコードする。
func decodeClientEvent(raw []byte) (*ClientEvent, error) {
	ev := &ClientEvent{}
	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, fmt.Errorf("failed to decode client event: %w", err)
	}
	return ev, nil
}

// encodeServerMessage はmessageイベントのフレームを組み立てる。
func encodeServerMessage(text string) ([]byte, error) {
	payload, err := json.Marshal(ServerMessage{
		Event: EventMessage,
		Data:  text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode server message: %w", err)
	}
	return payload, nil
}
