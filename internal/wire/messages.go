// Package wire implements the per-client connection handler: the hello
// handshake, input sanitization, and message-type dispatch described in
// spec.md §4.6, plus the JSON envelope types the client sends.
package wire

import (
	"encoding/json"

	"github.com/snowline-games/roomserver/internal/treeroom"
)

// incomingEnvelope is the shape of every client->server message:
// {"type": "...", "payload": {...}}. Payload is kept raw so each handler
// can decode only the fields it expects.
type incomingEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type helloPayload struct {
	Name   string `json:"name"`
	RoomID string `json:"room_id"`
}

type setNamePayload struct {
	Name string `json:"name"`
}

type moveInputPayload struct {
	Seq          int64   `json:"seq"`
	AX           float64 `json:"ax"`
	AZ           float64 `json:"az"`
	ClientTimeMs int64   `json:"client_time_ms"`
}

type cosmeticPayload struct {
	Hat *bool `json:"hat"`
}

type decorationSlot struct {
	Angle  *float64 `json:"angle"`
	Height *float64 `json:"height"`
}

type placeDecorationPayload struct {
	Type string          `json:"type"`
	Slot *decorationSlot `json:"slot"`
}

type chatSendPayload struct {
	Text string `json:"text"`
}

type chatClearPayload struct {
	Password string `json:"password"`
}

// Server -> client message types the handler (rather than the room) emits.
const (
	typeWelcome     = "welcome"
	typeChatHistory = "chat.history"
	typeEventError  = "event.error"
	typeEventNotice = "event.notice"
)

type welcomePayload struct {
	PlayerID string `json:"player_id"`
	RoomID   string `json:"room_id"`
	Phase    string `json:"phase"`
}

type chatHistoryPayload struct {
	Messages []treeroom.ChatMessagePayload `json:"messages"`
}

type errorPayload struct {
	Code string `json:"code"`
}

type noticePayload struct {
	Code    string `json:"code"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}
