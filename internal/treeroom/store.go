package treeroom

import "context"

// CacheStore is the hot, optional key/value collaborator described in
// spec.md §4.2/§6.3. Every method is a best-effort operation: an
// unavailable backend must behave as a no-op rather than propagate an
// error, so the simulation never stalls on it.
type CacheStore interface {
	UpsertPlayer(ctx context.Context, roomID, playerID, name string)
	RemovePlayer(ctx context.Context, roomID, playerID string)
	SetSnapshot(ctx context.Context, roomID string, blob []byte)
	SetTreeState(ctx context.Context, roomID string, blob []byte)
	GetTreeState(ctx context.Context, roomID string) ([]byte, bool)
	PushChatMessage(ctx context.Context, roomID string, blob []byte)
	DeleteChatHistory(ctx context.Context, roomID string)
	// GetChatHistory returns up to 50 messages, oldest first.
	GetChatHistory(ctx context.Context, roomID string) [][]byte
}

// DurableStore is the authoritative relational collaborator described in
// spec.md §4.2/§6.4. Like CacheStore, every method is best-effort from the
// room's point of view: an unavailable backend is a silent no-op.
type DurableStore interface {
	GetRoomState(ctx context.Context, roomID string) ([]byte, bool)
	UpsertRoomState(ctx context.Context, roomID string, blob []byte, updatedMs int64)
	InsertChatMessage(ctx context.Context, roomID, playerID, playerName, playerIP, message string, createdMs int64)
	DeleteChatHistory(ctx context.Context, roomID string)
}
