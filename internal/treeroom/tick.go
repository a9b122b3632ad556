package treeroom

import (
	"context"
	"encoding/json"
	"time"
)

// runTicks paces the simulation at settings.ServerTickHz using a monotonic
// clock, as spec.md §4.4 describes: if less than one tick interval has
// elapsed, sleep the remainder rather than drift forward. A paused
// scheduler simply resumes; there is no catch-up.
func (r *Room) runTicks() {
	defer close(r.tickDone)

	hz := r.settings.ServerTickHz
	if hz <= 0 {
		hz = 1
	}
	tickDt := time.Second / time.Duration(hz)

	snapshotHz := r.settings.SnapshotHz
	if snapshotHz <= 0 {
		snapshotHz = 1
	}
	snapshotIntervalMs := int64(1000 / snapshotHz)

	constraints := MoveConstraints{
		MaxSpeed: r.settings.PlayerMaxSpeed,
		MaxAccel: r.settings.PlayerMaxAccel,
		MinX:     r.settings.WorldMinX,
		MaxX:     r.settings.WorldMaxX,
		MinZ:     r.settings.WorldMinZ,
		MaxZ:     r.settings.WorldMaxZ,
	}

	ctx := context.Background()
	lastTick := time.Now()
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		now := time.Now()
		elapsed := now.Sub(lastTick)
		if elapsed < tickDt {
			select {
			case <-r.stopCh:
				return
			case <-time.After(tickDt - elapsed):
			}
			continue
		}
		lastTick = now

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Printf("room %s: tick panic: %v", r.roomID, rec)
				}
			}()
			r.tick(ctx, constraints, elapsed.Seconds(), snapshotIntervalMs)
		}()
	}
}

// tick runs one simulation step: integrate every player's kinematics, apply
// movement constraints, and — at the snapshot cadence — assemble and
// dispatch a state.snapshot. Integration and snapshot assembly happen under
// the room mutex for a consistent read; persistence and broadcast happen
// after release.
func (r *Room) tick(ctx context.Context, constraints MoveConstraints, dt float64, snapshotIntervalMs int64) {
	nowMsVal := nowMs()

	r.mu.Lock()

	conns := make([]*PlayerConn, 0, len(r.players))
	for _, c := range r.players {
		conns = append(conns, c)
	}

	maxSpeed := r.settings.PlayerMaxSpeed
	maxAccel := r.settings.PlayerMaxAccel

	for _, c := range conns {
		kin := &c.runtime.Kin
		ax, az := c.runtime.CheatFlags.LastAxisX, c.runtime.CheatFlags.LastAxisZ

		targetVX := ax * maxSpeed
		targetVZ := az * maxSpeed

		dvx := Clamp(targetVX-kin.VX, -maxAccel*dt, maxAccel*dt)
		dvz := Clamp(targetVZ-kin.VZ, -maxAccel*dt, maxAccel*dt)
		kin.VX += dvx
		kin.VZ += dvz
		kin.X += kin.VX * dt
		kin.Z += kin.VZ * dt

		x, z, vx, vz, flags := constraints.Apply(kin.X, kin.Z, kin.VX, kin.VZ)
		kin.X, kin.Z, kin.VX, kin.VZ = x, z, vx, vz
		c.runtime.CheatFlags.Merge(flags)
	}

	var targets []*PlayerConn
	for _, c := range conns {
		if nowMsVal-c.lastSentSnapshotMs >= snapshotIntervalMs {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		r.mu.Unlock()
		return
	}

	players := make([]PlayerSnapshotPayload, 0, len(conns))
	ack := make(map[string]int64, len(conns))
	for _, c := range conns {
		players = append(players, PlayerSnapshotPayload{
			ID:          c.runtime.PlayerID,
			Name:        c.runtime.Name,
			X:           c.runtime.Kin.X,
			Y:           c.runtime.Kin.Y,
			Z:           c.runtime.Kin.Z,
			VX:          c.runtime.Kin.VX,
			VZ:          c.runtime.Kin.VZ,
			Yaw:         c.runtime.Kin.Yaw,
			Cosmetic:    CosmeticPayload{Hat: c.runtime.Cosmetic.Hat},
			PlacedCount: c.runtime.PlacedCount,
		})
		ack[c.runtime.PlayerID] = c.runtime.LastInputSeq
	}

	decos := make([]DecorationPayload, 0, len(r.decorations))
	for _, d := range r.decorations {
		decos = append(decos, decorationToPayload(d))
	}

	snapshot := SnapshotPayload{
		ServerTimeMs: nowMsVal,
		RoomID:       r.roomID,
		Phase:        r.phase,
		Players:      players,
		Ack:          ack,
		Tree:         TreePayload{Decorations: decos},
	}

	for _, c := range targets {
		c.lastSentSnapshotMs = nowMsVal
	}

	r.mu.Unlock()

	msg := Envelope{Type: TypeStateSnapshot, Payload: snapshot}
	if blob, err := json.Marshal(snapshot); err == nil {
		r.cache.SetSnapshot(ctx, r.roomID, blob)
	}
	r.broadcast(ctx, msg)
}
