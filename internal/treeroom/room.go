package treeroom

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snowline-games/roomserver/internal/config"
)

// ErrRoomFull is returned by AddPlayer when the room is already at
// MaxPlayersPerRoom.
var ErrRoomFull = errors.New("room_full")

// Room holds one room's full authoritative state: its players, its
// decorations, and the tick loop driving both. Every mutating operation
// acquires mu before touching room state; see spec.md §5 for the exact
// discipline (mutation under lock, I/O after release, except snapshot
// assembly which must hold the lock across every player/decoration read).
type Room struct {
	log *log.Logger

	roomID    string
	phase     string
	createdMs int64

	settings *config.Settings
	cache    CacheStore
	durable  DurableStore

	mu          sync.Mutex
	players     map[string]*PlayerConn
	decorations map[string]*Decoration
	closed      bool
	emptySince  time.Time

	started  bool
	stopCh   chan struct{}
	tickDone chan struct{}
}

// NewRoom constructs a Room. It does not hydrate state or start the tick
// loop; call Start for that.
func NewRoom(roomID string, settings *config.Settings, cache CacheStore, durable DurableStore, logger *log.Logger) *Room {
	if logger == nil {
		logger = log.Default()
	}
	return &Room{
		log:         logger,
		roomID:      roomID,
		phase:       "PLAY",
		createdMs:   nowMs(),
		settings:    settings,
		cache:       cache,
		durable:     durable,
		players:     make(map[string]*PlayerConn),
		decorations: make(map[string]*Decoration),
		emptySince:  time.Now(),
	}
}

// ID returns the room's id.
func (r *Room) ID() string { return r.roomID }

// Phase returns the room's current phase.
func (r *Room) Phase() string { return r.phase }

func nowMs() int64 { return time.Now().UnixMilli() }

func newOpaqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Start hydrates decorations from the cache (falling back to the durable
// store) and launches the tick loop. Calling Start twice is a no-op: only
// the first call does anything, guaranteeing exactly one tick goroutine
// per Room for its lifetime.
func (r *Room) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.stopCh = make(chan struct{})
	r.tickDone = make(chan struct{})
	r.mu.Unlock()

	r.hydrateState(ctx)

	go r.runTicks()
}

// Close marks the room closed, stops the tick loop, and closes every
// connected player's transport. Errors closing individual connections are
// swallowed, per spec.md §7's "never let a single failing backend/client
// take down a room."
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	stop := r.stopCh
	done := r.tickDone
	conns := make([]*PlayerConn, 0, len(r.players))
	for _, c := range r.players {
		conns = append(conns, c)
	}
	r.players = make(map[string]*PlayerConn)
	r.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}
	for _, c := range conns {
		_ = c.conn.Close()
	}
}

// hydrateState reconstructs decorations from whichever store has them,
// preferring the cache. Malformed entries are dropped; entries whose
// angle/height fall outside the accepted range are clamped into it rather
// than tolerated, resolving spec.md §9's open question in favor of
// invariants holding universally.
func (r *Room) hydrateState(ctx context.Context) {
	blob, ok := r.cache.GetTreeState(ctx, r.roomID)
	if !ok {
		blob, ok = r.durable.GetRoomState(ctx, r.roomID)
	}
	if !ok || len(blob) == 0 {
		return
	}

	var doc struct {
		Decorations []json.RawMessage `json:"decorations"`
	}
	if err := json.Unmarshal(blob, &doc); err != nil {
		r.log.Printf("room %s: discarding unparseable tree state: %v", r.roomID, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, raw := range doc.Decorations {
		var d DecorationPayload
		if err := json.Unmarshal(raw, &d); err != nil {
			continue
		}
		if d.ID == "" || !IsValidDecorationType(d.Type) {
			continue
		}
		r.decorations[d.ID] = &Decoration{
			DecoID:   d.ID,
			DecoType: DecorationType(d.Type),
			Angle:    NormalizeDecorationAngle(d.Angle),
			Height:   ClampDecorationHeight(d.Height),
			PlacedBy: d.PlacedBy,
			PlacedMs: d.PlacedMs,
		}
	}
}

// AddPlayer admits a new connection to the room, returning the freshly
// minted player id. Fails with ErrRoomFull at capacity.
func (r *Room) AddPlayer(ctx context.Context, conn Conn, name, ip string) (string, error) {
	r.mu.Lock()
	if len(r.players) >= r.settings.MaxPlayersPerRoom {
		r.mu.Unlock()
		return "", ErrRoomFull
	}

	n := len(r.players)
	playerID := newOpaqueID()
	runtime := &PlayerRuntime{
		PlayerID: playerID,
		Name:     SanitizeName(name),
		IP:       ip,
	}
	runtime.Kin.X = Clamp(float64(n-2)*1.2, r.settings.WorldMinX, r.settings.WorldMaxX)
	runtime.Kin.Z = Clamp(8.0, r.settings.WorldMinZ, r.settings.WorldMaxZ)

	pc := &PlayerConn{
		conn:    conn,
		runtime: runtime,
		limiter: newInputLimiter(r.settings.InputRateLimitHz),
	}
	r.players[playerID] = pc
	r.emptySince = time.Time{}
	r.mu.Unlock()

	r.cache.UpsertPlayer(ctx, r.roomID, playerID, runtime.Name)
	return playerID, nil
}

// RemovePlayer drops a player from the room and its cache index. Safe to
// call with an unknown id.
func (r *Room) RemovePlayer(ctx context.Context, playerID string) {
	r.mu.Lock()
	_, existed := r.players[playerID]
	delete(r.players, playerID)
	if len(r.players) == 0 {
		r.emptySince = time.Now()
	}
	r.mu.Unlock()

	if existed {
		r.cache.RemovePlayer(ctx, r.roomID, playerID)
	}
}

// SetName updates a player's display name, re-sanitizing it at the room
// boundary (spec.md §9: don't trust the caller to have already done so).
// Silently ignores an unknown player.
func (r *Room) SetName(ctx context.Context, playerID, name string) {
	name = SanitizeName(name)
	r.mu.Lock()
	pc, ok := r.players[playerID]
	if ok {
		pc.runtime.Name = name
	}
	r.mu.Unlock()
	if ok {
		r.cache.UpsertPlayer(ctx, r.roomID, playerID, name)
	}
}

// SetCosmetic updates a player's hat flag. Ignores unknown players.
func (r *Room) SetCosmetic(playerID string, hat bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc, ok := r.players[playerID]
	if !ok {
		return
	}
	pc.runtime.Cosmetic.Hat = hat
}

// SubmitMoveInput consumes one rate-limit token and, if allowed and the
// sequence is newer than the player's last-accepted input, records the
// normalized input axis as the back-channel the tick loop integrates from.
func (r *Room) SubmitMoveInput(playerID string, seq int64, ax, az float64, clientTimeMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pc, ok := r.players[playerID]
	if !ok {
		return
	}
	if !pc.limiter.Allow() {
		pc.runtime.CheatFlags.RateLimited = true
		return
	}
	if seq <= pc.runtime.LastInputSeq {
		return
	}
	pc.runtime.LastInputSeq = seq
	pc.runtime.LastInputClientTimeMs = clientTimeMs
	nax, naz := NormalizeAxis(ax, az)
	pc.runtime.CheatFlags.LastAxisX = nax
	pc.runtime.CheatFlags.LastAxisZ = naz
}

// PlaceDecoration validates and places a new ornament, then broadcasts
// tree.placed and persists the updated tree state. decoType must be one of
// the enum values; angle/height are coerced into their accepted ranges
// before the interact-radius and capacity gates are checked.
func (r *Room) PlaceDecoration(ctx context.Context, playerID, decoType string, angle, height float64) {
	if !IsValidDecorationType(decoType) {
		return
	}
	angle = NormalizeDecorationAngle(angle)
	height = ClampDecorationHeight(height)
	now := nowMs()

	var placed *Decoration
	r.mu.Lock()
	pc, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	dx := pc.runtime.Kin.X - r.settings.TreeCenterX
	dz := pc.runtime.Kin.Z - r.settings.TreeCenterZ
	if math.Hypot(dx, dz) > r.settings.TreeInteractRadius {
		r.mu.Unlock()
		return
	}
	if len(r.decorations) >= r.settings.TreeMaxDecorations {
		r.mu.Unlock()
		return
	}

	deco := &Decoration{
		DecoID:   newOpaqueID(),
		DecoType: DecorationType(decoType),
		Angle:    angle,
		Height:   height,
		PlacedBy: playerID,
		PlacedMs: now,
	}
	r.decorations[deco.DecoID] = deco
	pc.runtime.PlacedCount++
	placed = deco
	r.mu.Unlock()

	r.broadcast(ctx, Envelope{Type: TypeTreePlaced, Payload: decorationToPayload(placed)})
	r.persistTreeState(ctx)
}

// SendChat validates, truncates, broadcasts, and persists a chat message.
// Returns without effect for empty/whitespace-only text or an unknown
// player.
func (r *Room) SendChat(ctx context.Context, playerID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(text) > 120 {
		text = truncateRunes(text, 120)
	}
	now := nowMs()

	r.mu.Lock()
	pc, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	msg := ChatMessagePayload{
		ID:           newOpaqueID(),
		RoomID:       r.roomID,
		PlayerID:     pc.runtime.PlayerID,
		Name:         pc.runtime.Name,
		Text:         text,
		ServerTimeMs: now,
	}
	playerIP := pc.runtime.IP
	r.mu.Unlock()

	blob, err := json.Marshal(msg)
	if err == nil {
		r.cache.PushChatMessage(ctx, r.roomID, blob)
	}
	r.broadcast(ctx, Envelope{Type: TypeChatMessage, Payload: msg})
	r.durable.InsertChatMessage(ctx, r.roomID, msg.PlayerID, msg.Name, playerIP, msg.Text, msg.ServerTimeMs)
}

// truncateRunes trims s to at most n runes (spec.md measures chat length in
// characters, not bytes).
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// ClearChat empties both the cache ring and the durable log for this room
// and broadcasts chat.cleared. Authorization is the caller's
// responsibility (the connection handler checks the admin password); the
// room trusts whoever calls this.
func (r *Room) ClearChat(ctx context.Context) {
	r.cache.DeleteChatHistory(ctx, r.roomID)
	r.durable.DeleteChatHistory(ctx, r.roomID)
	r.broadcast(ctx, Envelope{Type: TypeChatCleared, Payload: struct{}{}})
}

// GetChatHistory returns the cached chat ring, oldest first.
func (r *Room) GetChatHistory(ctx context.Context) []ChatMessagePayload {
	blobs := r.cache.GetChatHistory(ctx, r.roomID)
	out := make([]ChatMessagePayload, 0, len(blobs))
	for _, b := range blobs {
		var msg ChatMessagePayload
		if err := json.Unmarshal(b, &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// PlayerCount returns the number of currently connected players.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// IdleSince reports the time the room became empty, and whether it is
// currently empty at all.
func (r *Room) IdleSince() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) > 0 {
		return time.Time{}, false
	}
	return r.emptySince, true
}

func (r *Room) persistTreeState(ctx context.Context) {
	r.mu.Lock()
	doc := treeStateDoc{RoomID: r.roomID, Decorations: make([]DecorationPayload, 0, len(r.decorations))}
	for _, d := range r.decorations {
		doc.Decorations = append(doc.Decorations, decorationToPayload(d))
	}
	r.mu.Unlock()

	blob, err := json.Marshal(doc)
	if err != nil {
		r.log.Printf("room %s: marshal tree state: %v", r.roomID, err)
		return
	}
	r.cache.SetTreeState(ctx, r.roomID, blob)
	r.durable.UpsertRoomState(ctx, r.roomID, blob, nowMs())
}

// Notify sends msg to a single connected player. An unknown id yields nil;
// otherwise the transport's Send error is returned. This is used for
// handler-local feedback (bad input, wrong admin password) that has no
// bearing on room state.
func (r *Room) Notify(playerID string, msg Envelope) error {
	r.mu.Lock()
	pc, ok := r.players[playerID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return pc.conn.Send(msg)
}

// broadcast fans a message out to every currently connected player.
// Connections list is captured under the lock; sends happen after release
// so a slow client cannot backpressure the simulation. Any connection that
// fails to receive the message is torn down.
func (r *Room) broadcast(ctx context.Context, msg Envelope) {
	r.mu.Lock()
	conns := make([]*PlayerConn, 0, len(r.players))
	for _, c := range r.players {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	var dead []string
	for _, c := range conns {
		if err := c.conn.Send(msg); err != nil {
			dead = append(dead, c.runtime.PlayerID)
		}
	}
	for _, id := range dead {
		r.RemovePlayer(ctx, id)
	}
}
