package treeroom

import "golang.org/x/time/rate"

// Conn abstracts the transport a PlayerConn writes to, mirroring the
// teacher's PlayerConnection interface so the room never imports
// gorilla/websocket directly and can be driven by fakes in tests.
//
// Send must be non-blocking (buffer-and-drop on a full outbound queue, per
// spec.md §9's permitted backpressure extension) so a slow client can never
// stall the broadcast loop; the actual write to the wire happens on a
// dedicated per-connection pump goroutine owned by the Conn implementation,
// not inside Send itself.
type Conn interface {
	Send(msg Envelope) error
	Close() error
	RemoteAddr() string
}

// PlayerConn binds a live transport connection to a PlayerRuntime and the
// per-connection rate limiter and snapshot-pacing state. It lives only in
// memory and is owned exclusively by its Room.
type PlayerConn struct {
	conn    Conn
	runtime *PlayerRuntime

	lastSentSnapshotMs int64
	limiter            *rate.Limiter
}
