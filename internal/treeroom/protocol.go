package treeroom

// Envelope is the wire shape every message takes in both directions:
// {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Message types the room itself emits. Connection-handler-level types
// (welcome, chat.history, event.error, event.notice) live in internal/wire,
// since the room never sends them directly.
const (
	TypeStateSnapshot = "state.snapshot"
	TypeTreePlaced    = "tree.placed"
	TypeChatMessage   = "chat.message"
	TypeChatCleared   = "chat.cleared"
)

// CosmeticPayload is the wire shape of PlayerCosmetic.
type CosmeticPayload struct {
	Hat bool `json:"hat"`
}

// PlayerSnapshotPayload is one player's entry in a state.snapshot, carrying
// every field a receiving client needs to render every player in the room.
type PlayerSnapshotPayload struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Z           float64         `json:"z"`
	VX          float64         `json:"vx"`
	VZ          float64         `json:"vz"`
	Yaw         float64         `json:"yaw"`
	Cosmetic    CosmeticPayload `json:"cosmetic"`
	PlacedCount int             `json:"placed_count"`
}

// DecorationPayload is the wire shape of Decoration.
type DecorationPayload struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Angle    float64 `json:"angle"`
	Height   float64 `json:"height"`
	PlacedBy string  `json:"placed_by"`
	PlacedMs int64   `json:"placed_ms"`
}

func decorationToPayload(d *Decoration) DecorationPayload {
	return DecorationPayload{
		ID:       d.DecoID,
		Type:     string(d.DecoType),
		Angle:    d.Angle,
		Height:   d.Height,
		PlacedBy: d.PlacedBy,
		PlacedMs: d.PlacedMs,
	}
}

// TreePayload wraps the decoration list as it appears in a snapshot.
type TreePayload struct {
	Decorations []DecorationPayload `json:"decorations"`
}

// SnapshotPayload is the payload of a state.snapshot message.
type SnapshotPayload struct {
	ServerTimeMs int64                   `json:"server_time_ms"`
	RoomID       string                  `json:"room_id"`
	Phase        string                  `json:"phase"`
	Players      []PlayerSnapshotPayload `json:"players"`
	Ack          map[string]int64        `json:"ack"`
	Tree         TreePayload             `json:"tree"`
}

// ChatMessagePayload is the payload of a chat.message message and the shape
// persisted into the chat cache ring.
type ChatMessagePayload struct {
	ID           string `json:"id"`
	RoomID       string `json:"room_id"`
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	Text         string `json:"text"`
	ServerTimeMs int64  `json:"server_time_ms"`
}

// treeStateDoc is the JSON document stored under the tree cache key / the
// durable store's json_blob column. hydrateState reads its decorations back
// one entry at a time.
type treeStateDoc struct {
	RoomID      string              `json:"room_id"`
	Decorations []DecorationPayload `json:"decorations"`
}
