package wire

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/snowline-games/roomserver/internal/config"
	"github.com/snowline-games/roomserver/internal/rooms"
	"github.com/snowline-games/roomserver/internal/treeroom"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

var errConnClosed = errors.New("connection closed")

// wsConn adapts a *websocket.Conn to treeroom.Conn. Sends never touch the
// socket directly: they enqueue onto a buffered channel drained by a
// dedicated writePump goroutine, so concurrent broadcasts from the room's
// tick loop and chat/decoration handlers can never race on the same
// websocket connection (gorilla/websocket requires a single writer).
type wsConn struct {
	ws     *websocket.Conn
	send   chan treeroom.Envelope
	closed chan struct{}
	once   sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:     ws,
		send:   make(chan treeroom.Envelope, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// Send enqueues msg for the write pump. If the outbound buffer is full, an
// incoming state.snapshot is dropped and the queue is left unchanged; any
// other message type evicts the oldest queued message, whatever its type,
// to make room. Queued events are therefore not guaranteed to be delivered.
func (c *wsConn) Send(msg treeroom.Envelope) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.closed:
		return errConnClosed
	default:
	}

	if msg.Type == treeroom.TypeStateSnapshot {
		return nil
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
	return nil
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.ws.Close()
}

func (c *wsConn) RemoteAddr() string {
	if addr := c.ws.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Handler upgrades incoming HTTP requests to websockets and runs the
// per-client state machine described in spec.md §4.6: hello handshake,
// sanitize, join, dispatch loop, teardown.
type Handler struct {
	manager  *rooms.Manager
	settings *config.Settings
	log      *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds a Handler. CORS origin checking mirrors the teacher's
// upgrader.CheckOrigin callback, gated on settings.CORSAllowOrigins.
func NewHandler(manager *rooms.Manager, settings *config.Settings, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	allowAll := false
	origins := make(map[string]bool, len(settings.CORSAllowOrigins))
	for _, o := range settings.CORSAllowOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return &Handler{
		manager:  manager,
		settings: settings,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				return origins[r.Header.Get("Origin")]
			},
		},
	}
}

// ServeWS is the http.HandlerFunc to register on settings.WSPath.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Printf("websocket upgrade failed: %v", err)
		return
	}

	conn := newWSConn(ws)
	go conn.writePump()

	ip := peerIP(r.RemoteAddr)
	h.serve(r.Context(), conn, ip)
}

func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		if remoteAddr != "" {
			return remoteAddr
		}
		return "unknown"
	}
	return host
}

// serve runs the read side of the connection: hello, join, then the
// dispatch loop. It returns only on error or disconnect, at which point
// the player (if ever joined) is removed from its room.
func (h *Handler) serve(ctx context.Context, conn *wsConn, ip string) {
	ws := conn.ws
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var room *treeroom.Room
	var playerID string
	defer func() {
		if room != nil && playerID != "" {
			room.RemovePlayer(ctx, playerID)
		}
		conn.Close()
	}()

	var env incomingEnvelope
	if err := ws.ReadJSON(&env); err != nil || env.Type != "hello" {
		_ = ws.WriteJSON(treeroom.Envelope{Type: typeEventError, Payload: errorPayload{Code: "bad_hello"}})
		return
	}

	var hello helloPayload
	_ = json.Unmarshal(env.Payload, &hello)

	name := treeroom.SanitizeName(hello.Name)
	roomID := sanitizeRoomID(hello.RoomID)

	room = h.manager.GetOrCreate(ctx, roomID)
	pid, err := room.AddPlayer(ctx, conn, name, ip)
	if err != nil {
		_ = ws.WriteJSON(treeroom.Envelope{Type: typeEventError, Payload: errorPayload{Code: "room_full"}})
		room = nil
		return
	}
	playerID = pid

	_ = conn.Send(treeroom.Envelope{Type: typeWelcome, Payload: welcomePayload{
		PlayerID: playerID,
		RoomID:   roomID,
		Phase:    room.Phase(),
	}})

	if history := room.GetChatHistory(ctx); len(history) > 0 {
		_ = conn.Send(treeroom.Envelope{Type: typeChatHistory, Payload: chatHistoryPayload{Messages: history}})
	}

	for {
		var msg incomingEnvelope
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		h.dispatch(ctx, room, playerID, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, room *treeroom.Room, playerID string, msg incomingEnvelope) {
	switch msg.Type {
	case "set_name":
		var p setNamePayload
		_ = json.Unmarshal(msg.Payload, &p)
		room.SetName(ctx, playerID, p.Name)

	case "input.move":
		var p moveInputPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		room.SubmitMoveInput(playerID, p.Seq, p.AX, p.AZ, p.ClientTimeMs)

	case "player.cosmetic":
		var p cosmeticPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Hat == nil {
			return
		}
		room.SetCosmetic(playerID, *p.Hat)

	case "tree.place":
		var p placeDecorationPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		angle, height := 0.0, 0.5
		if p.Slot != nil {
			if p.Slot.Angle != nil {
				angle = *p.Slot.Angle
			}
			if p.Slot.Height != nil {
				height = *p.Slot.Height
			}
		}
		room.PlaceDecoration(ctx, playerID, p.Type, angle, height)

	case "chat.send":
		var p chatSendPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		room.SendChat(ctx, playerID, p.Text)

	case "chat.clear":
		var p chatClearPayload
		_ = json.Unmarshal(msg.Payload, &p)
		if p.Password == h.settings.ChatAdminPassword {
			room.ClearChat(ctx)
		} else {
			_ = sendNotice(room, playerID, "wrong_password", "")
		}

	default:
		_ = sendNotice(room, playerID, "unknown_type", msg.Type)
	}
}

// sendNotice routes an event.notice straight to the originating connection
// by reusing the room's own Send plumbing, since the handler has no direct
// reference back to the wsConn once AddPlayer has taken ownership of it.
func sendNotice(room *treeroom.Room, playerID, code, msgType string) error {
	return room.Notify(playerID, treeroom.Envelope{
		Type:    typeEventNotice,
		Payload: noticePayload{Code: code, Type: msgType},
	})
}
