// Package rooms implements the process-wide room registry: lazy creation,
// a single live Room per id, and idle-room reaping.
package rooms

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/snowline-games/roomserver/internal/config"
	"github.com/snowline-games/roomserver/internal/treeroom"
)

// Manager owns every Room in the process, keyed by room id.
type Manager struct {
	log      *log.Logger
	settings *config.Settings
	cache    treeroom.CacheStore
	durable  treeroom.DurableStore

	mu    sync.Mutex
	rooms map[string]*treeroom.Room
}

// NewManager constructs an empty Manager.
func NewManager(settings *config.Settings, cache treeroom.CacheStore, durable treeroom.DurableStore, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		log:      logger,
		settings: settings,
		cache:    cache,
		durable:  durable,
		rooms:    make(map[string]*treeroom.Room),
	}
}

// GetOrCreate returns the single live Room for roomID, creating and
// starting it on first use. Start is idempotent, so calling GetOrCreate
// concurrently for a brand new id is safe even though Start happens
// outside the registry lock.
func (m *Manager) GetOrCreate(ctx context.Context, roomID string) *treeroom.Room {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		room = treeroom.NewRoom(roomID, m.settings, m.cache, m.durable, m.log)
		m.rooms[roomID] = room
	}
	m.mu.Unlock()

	room.Start(ctx)
	return room
}

// Stats summarizes the manager's current registry, for a /stats endpoint.
type Stats struct {
	TotalRooms   int
	TotalPlayers int
}

// Stats returns a snapshot of room/player counts across the registry.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{TotalRooms: len(m.rooms)}
	for _, room := range m.rooms {
		stats.TotalPlayers += room.PlayerCount()
	}
	return stats
}

// ReapIdle closes and evicts every room that has had no players for at
// least idleFor. This is additive to spec.md (see SPEC_FULL.md §4): rooms
// are otherwise never destroyed, which spec.md §9 calls out as a known
// limitation.
func (m *Manager) ReapIdle(idleFor time.Duration) int {
	now := time.Now()

	m.mu.Lock()
	var doomed []*treeroom.Room
	for id, room := range m.rooms {
		since, empty := room.IdleSince()
		if empty && now.Sub(since) >= idleFor {
			doomed = append(doomed, room)
			delete(m.rooms, id)
		}
	}
	m.mu.Unlock()

	for _, room := range doomed {
		room.Close()
	}
	return len(doomed)
}

// RunIdleReaper ticks ReapIdle every interval until ctx is canceled. Meant
// to be launched as a background goroutine from main, mirroring the
// teacher's 30-second CleanupEmptyRooms ticker.
func (m *Manager) RunIdleReaper(ctx context.Context, interval, idleFor time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.ReapIdle(idleFor); n > 0 {
				m.log.Printf("reaped %d idle room(s)", n)
			}
		}
	}
}
