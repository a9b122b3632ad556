// Package cache implements treeroom.CacheStore against Redis: the hot,
// optional key/value layer described in spec.md §6.3.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	playersTTL  = 6 * time.Hour
	snapshotTTL = 1 * time.Hour
	treeTTL     = 24 * time.Hour
	chatTTL     = 6 * time.Hour
	chatMaxLen  = 50
)

// Store wraps a *redis.Client, or nil when no REDIS_URL was configured or
// the initial ping failed. Every method tolerates a nil client by doing
// nothing, so a room never notices the cache is absent beyond losing
// hydration/durability across restarts.
type Store struct {
	log    *log.Logger
	client *redis.Client
}

// Connect parses rawURL and pings the resulting client. On any failure it
// returns a Store with a nil client rather than an error: the cache is
// best-effort infrastructure, never a startup blocker (spec.md §7).
func Connect(ctx context.Context, rawURL string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{log: logger}
	if rawURL == "" {
		return s
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		logger.Printf("cache: invalid REDIS_URL, running without cache: %v", err)
		return s
	}
	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Printf("cache: redis ping failed, running without cache: %v", err)
		_ = client.Close()
		return s
	}

	s.client = client
	return s
}

// Close releases the underlying client, if any.
func (s *Store) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

func playersKey(roomID string) string  { return "room:" + roomID + ":players" }
func snapshotKey(roomID string) string { return "room:" + roomID + ":snapshot" }
func treeKey(roomID string) string     { return "room:" + roomID + ":tree" }
func chatKey(roomID string) string     { return "room:" + roomID + ":chat" }

func (s *Store) UpsertPlayer(ctx context.Context, roomID, playerID, name string) {
	if s.client == nil {
		return
	}
	key := playersKey(roomID)
	if err := s.client.HSet(ctx, key, playerID, name).Err(); err != nil {
		s.log.Printf("cache: upsert player %s/%s: %v", roomID, playerID, err)
		return
	}
	s.client.Expire(ctx, key, playersTTL)
}

func (s *Store) RemovePlayer(ctx context.Context, roomID, playerID string) {
	if s.client == nil {
		return
	}
	if err := s.client.HDel(ctx, playersKey(roomID), playerID).Err(); err != nil {
		s.log.Printf("cache: remove player %s/%s: %v", roomID, playerID, err)
	}
}

func (s *Store) SetSnapshot(ctx context.Context, roomID string, blob []byte) {
	if s.client == nil {
		return
	}
	if err := s.client.Set(ctx, snapshotKey(roomID), blob, snapshotTTL).Err(); err != nil {
		s.log.Printf("cache: set snapshot %s: %v", roomID, err)
	}
}

func (s *Store) SetTreeState(ctx context.Context, roomID string, blob []byte) {
	if s.client == nil {
		return
	}
	if err := s.client.Set(ctx, treeKey(roomID), blob, treeTTL).Err(); err != nil {
		s.log.Printf("cache: set tree state %s: %v", roomID, err)
	}
}

func (s *Store) GetTreeState(ctx context.Context, roomID string) ([]byte, bool) {
	if s.client == nil {
		return nil, false
	}
	raw, err := s.client.Get(ctx, treeKey(roomID)).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

// PushChatMessage pushes blob to the head of the room's chat list, trims it
// to the newest chatMaxLen entries, and refreshes the TTL.
func (s *Store) PushChatMessage(ctx context.Context, roomID string, blob []byte) {
	if s.client == nil {
		return
	}
	key := chatKey(roomID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, blob)
	pipe.LTrim(ctx, key, 0, chatMaxLen-1)
	pipe.Expire(ctx, key, chatTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Printf("cache: push chat message %s: %v", roomID, err)
	}
}

func (s *Store) DeleteChatHistory(ctx context.Context, roomID string) {
	if s.client == nil {
		return
	}
	if err := s.client.Del(ctx, chatKey(roomID)).Err(); err != nil {
		s.log.Printf("cache: delete chat history %s: %v", roomID, err)
	}
}

// GetChatHistory returns up to chatMaxLen messages oldest-first: the list
// is newest-at-head, so the raw LRANGE result is reversed before return.
func (s *Store) GetChatHistory(ctx context.Context, roomID string) [][]byte {
	if s.client == nil {
		return nil
	}
	raw, err := s.client.LRange(ctx, chatKey(roomID), 0, chatMaxLen-1).Result()
	if err != nil {
		s.log.Printf("cache: get chat history %s: %v", roomID, err)
		return nil
	}
	out := make([][]byte, len(raw))
	for i, v := range raw {
		out[len(raw)-1-i] = []byte(v)
	}
	return out
}
