package treeroom

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/snowline-games/roomserver/internal/config"
)

// fakeConn is an in-memory Conn used so room tests never touch a real
// socket. Send is non-blocking and records every envelope it receives.
type fakeConn struct {
	mu     sync.Mutex
	sent   []Envelope
	closed bool
	addr   string
}

func newFakeConn(addr string) *fakeConn { return &fakeConn{addr: addr} }

func (c *fakeConn) Send(msg Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() string { return c.addr }

func (c *fakeConn) snapshotCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.sent {
		if m.Type == TypeStateSnapshot {
			n++
		}
	}
	return n
}

// noopCache/noopDurable satisfy CacheStore/DurableStore with no backing
// store, matching the production behavior when neither REDIS_URL nor
// MYSQL_DSN is configured.
type noopCache struct{}

func (noopCache) UpsertPlayer(ctx context.Context, roomID, playerID, name string) {}
func (noopCache) RemovePlayer(ctx context.Context, roomID, playerID string)       {}
func (noopCache) SetSnapshot(ctx context.Context, roomID string, blob []byte)     {}
func (noopCache) SetTreeState(ctx context.Context, roomID string, blob []byte)    {}
func (noopCache) GetTreeState(ctx context.Context, roomID string) ([]byte, bool) {
	return nil, false
}
func (noopCache) PushChatMessage(ctx context.Context, roomID string, blob []byte) {}
func (noopCache) DeleteChatHistory(ctx context.Context, roomID string)            {}
func (noopCache) GetChatHistory(ctx context.Context, roomID string) [][]byte      { return nil }

type noopDurable struct{}

func (noopDurable) GetRoomState(ctx context.Context, roomID string) ([]byte, bool) {
	return nil, false
}
func (noopDurable) UpsertRoomState(ctx context.Context, roomID string, blob []byte, updatedMs int64) {
}
func (noopDurable) InsertChatMessage(ctx context.Context, roomID, playerID, playerName, playerIP, message string, createdMs int64) {
}
func (noopDurable) DeleteChatHistory(ctx context.Context, roomID string) {}

func testSettings() *config.Settings {
	return &config.Settings{
		MaxPlayersPerRoom:  2,
		ServerTickHz:       20,
		SnapshotHz:         15,
		InputRateLimitHz:   5,
		PlayerMaxSpeed:     3.5,
		PlayerMaxAccel:     25,
		WorldMinX:          -14,
		WorldMaxX:          14,
		WorldMinZ:          -14,
		WorldMaxZ:          14,
		TreeCenterX:        0,
		TreeCenterZ:        0,
		TreeInteractRadius: 5,
		TreeMaxDecorations: 2,
	}
}

func newTestRoom() *Room {
	return NewRoom("test-room", testSettings(), noopCache{}, noopDurable{}, nil)
}

// TestAddPlayer_ScenarioRoomFull matches S1-adjacent capacity behavior: the
// third player into a two-player room is rejected with ErrRoomFull and
// never registered.
func TestAddPlayer_ScenarioRoomFull(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()

	if _, err := r.AddPlayer(ctx, newFakeConn("a"), "Alice", "127.0.0.1"); err != nil {
		t.Fatalf("first AddPlayer: %v", err)
	}
	if _, err := r.AddPlayer(ctx, newFakeConn("b"), "Bob", "127.0.0.1"); err != nil {
		t.Fatalf("second AddPlayer: %v", err)
	}
	if _, err := r.AddPlayer(ctx, newFakeConn("c"), "Carl", "127.0.0.1"); err != ErrRoomFull {
		t.Fatalf("third AddPlayer: got err=%v, want ErrRoomFull", err)
	}
	if r.PlayerCount() != 2 {
		t.Fatalf("PlayerCount() = %d, want 2", r.PlayerCount())
	}
}

func TestSetName_ReSanitizesAtRoomBoundary(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()

	pid, err := r.AddPlayer(ctx, newFakeConn("a"), "Alice", "127.0.0.1")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}

	r.SetName(ctx, pid, strings.Repeat("x", 100))

	r.mu.Lock()
	name := r.players[pid].runtime.Name
	r.mu.Unlock()

	if len([]rune(name)) > 16 {
		t.Fatalf("SetName left an over-long name: %q (%d runes)", name, len([]rune(name)))
	}
}

// TestSubmitMoveInput_ScenarioRateLimit exercises S1: burning through more
// inputs than InputRateLimitHz allows in an instant must mark RateLimited.
func TestSubmitMoveInput_ScenarioRateLimit(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()
	pid, err := r.AddPlayer(ctx, newFakeConn("a"), "Alice", "127.0.0.1")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}

	var rateLimited bool
	for i := int64(1); i <= 50; i++ {
		r.SubmitMoveInput(pid, i, 1, 0, 0)
		r.mu.Lock()
		if r.players[pid].runtime.CheatFlags.RateLimited {
			rateLimited = true
		}
		r.mu.Unlock()
	}

	if !rateLimited {
		t.Fatalf("expected RateLimited to trip after bursting inputs past the %d Hz bucket", r.settings.InputRateLimitHz)
	}
}

func TestSubmitMoveInput_IgnoresStaleSequence(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()
	pid, _ := r.AddPlayer(ctx, newFakeConn("a"), "Alice", "127.0.0.1")

	r.SubmitMoveInput(pid, 5, 1, 0, 100)
	r.SubmitMoveInput(pid, 3, -1, 0, 200)

	r.mu.Lock()
	ax := r.players[pid].runtime.CheatFlags.LastAxisX
	seq := r.players[pid].runtime.LastInputSeq
	r.mu.Unlock()

	if seq != 5 || ax != 1 {
		t.Fatalf("stale lower-seq input was applied: seq=%d ax=%v", seq, ax)
	}
}

// TestPlaceDecoration_ScenarioInteractRadius exercises S3: a player outside
// TreeInteractRadius cannot place a decoration.
func TestPlaceDecoration_ScenarioInteractRadius(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()
	pid, _ := r.AddPlayer(ctx, newFakeConn("a"), "Alice", "127.0.0.1")

	r.mu.Lock()
	r.players[pid].runtime.Kin.X = 100
	r.players[pid].runtime.Kin.Z = 100
	r.mu.Unlock()

	r.PlaceDecoration(ctx, pid, string(DecorationBell), 0, 0.5)

	r.mu.Lock()
	n := len(r.decorations)
	r.mu.Unlock()
	if n != 0 {
		t.Fatalf("decoration placed from outside interact radius: %d decorations", n)
	}
}

func TestPlaceDecoration_ScenarioMaxDecorationsGate(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()
	pid, _ := r.AddPlayer(ctx, newFakeConn("a"), "Alice", "127.0.0.1")

	r.mu.Lock()
	r.players[pid].runtime.Kin.X = 0
	r.players[pid].runtime.Kin.Z = 0
	r.mu.Unlock()

	for i := 0; i < 5; i++ {
		r.PlaceDecoration(ctx, pid, string(DecorationBell), 0, 0.5)
	}

	r.mu.Lock()
	n := len(r.decorations)
	r.mu.Unlock()
	if n != r.settings.TreeMaxDecorations {
		t.Fatalf("decorations = %d, want capped at %d", n, r.settings.TreeMaxDecorations)
	}
}

func TestPlaceDecoration_RejectsUnknownType(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()
	pid, _ := r.AddPlayer(ctx, newFakeConn("a"), "Alice", "127.0.0.1")

	r.PlaceDecoration(ctx, pid, "not_a_real_type", 0, 0.5)

	r.mu.Lock()
	n := len(r.decorations)
	r.mu.Unlock()
	if n != 0 {
		t.Fatalf("placed a decoration with an invalid type")
	}
}

// TestSendChat_ScenarioTruncation exercises S4: chat text longer than 120
// characters is truncated to exactly 120 runes, counting runes not bytes.
func TestSendChat_ScenarioTruncation(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()
	conn := newFakeConn("a")
	pid, _ := r.AddPlayer(ctx, conn, "Alice", "127.0.0.1")

	long := strings.Repeat("漢", 200)
	r.SendChat(ctx, pid, long)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	var found bool
	for _, msg := range conn.sent {
		payload, ok := msg.Payload.(ChatMessagePayload)
		if !ok {
			continue
		}
		found = true
		if n := len([]rune(payload.Text)); n != 120 {
			t.Fatalf("chat text has %d runes, want 120", n)
		}
	}
	if !found {
		t.Fatalf("no chat.message broadcast observed")
	}
}

func TestSendChat_IgnoresBlankText(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()
	conn := newFakeConn("a")
	pid, _ := r.AddPlayer(ctx, conn, "Alice", "127.0.0.1")

	r.SendChat(ctx, pid, "   ")

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.sent) != 0 {
		t.Fatalf("blank chat text produced a broadcast")
	}
}

// TestClearChat_ScenarioBroadcastsCleared exercises S6: clearing chat
// broadcasts chat.cleared to every connected player. Authorization (the
// admin password check) is the connection handler's job, not the room's.
func TestClearChat_ScenarioBroadcastsCleared(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()
	conn := newFakeConn("a")
	_, _ = r.AddPlayer(ctx, conn, "Alice", "127.0.0.1")

	r.ClearChat(ctx)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	var sawCleared bool
	for _, msg := range conn.sent {
		if msg.Type == TypeChatCleared {
			sawCleared = true
		}
	}
	if !sawCleared {
		t.Fatalf("ClearChat did not broadcast chat.cleared")
	}
}

func TestHydrateState_ClampsOutOfRangeDecorations(t *testing.T) {
	r := newTestRoom()
	r.cache = fakeTreeCache{blob: []byte(`{
		"room_id": "test-room",
		"decorations": [
			{"id": "d1", "type": "bell", "angle": 100, "height": 999, "placed_by": "p1", "placed_ms": 0}
		]
	}`)}

	r.hydrateState(context.Background())

	d, ok := r.decorations["d1"]
	if !ok {
		t.Fatalf("valid-typed decoration was dropped instead of clamped")
	}
	if d.Height > decorationMaxHeight || d.Height < decorationMinHeight {
		t.Fatalf("height %v not clamped into slot range", d.Height)
	}
	if d.Angle < 0 || d.Angle >= tau {
		t.Fatalf("angle %v not normalized into [0, 2pi)", d.Angle)
	}
}

type fakeTreeCache struct {
	noopCache
	blob []byte
}

func (f fakeTreeCache) GetTreeState(ctx context.Context, roomID string) ([]byte, bool) {
	return f.blob, true
}

func TestRemovePlayer_UnknownIDIsSafe(t *testing.T) {
	r := newTestRoom()
	r.RemovePlayer(context.Background(), "does-not-exist")
	if r.PlayerCount() != 0 {
		t.Fatalf("PlayerCount() = %d, want 0", r.PlayerCount())
	}
}

func TestIdleSince_ReportsEmptyAfterLastPlayerLeaves(t *testing.T) {
	r := newTestRoom()
	ctx := context.Background()
	pid, _ := r.AddPlayer(ctx, newFakeConn("a"), "Alice", "127.0.0.1")

	if _, empty := r.IdleSince(); empty {
		t.Fatalf("room reported empty while a player is connected")
	}

	r.RemovePlayer(ctx, pid)

	if _, empty := r.IdleSince(); !empty {
		t.Fatalf("room did not report empty after its only player left")
	}
}
