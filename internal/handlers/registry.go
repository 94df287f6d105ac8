// internal/handlers/registry.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizgrid/quizgrid/internal/session"
)

// Sender delivers one event toward a client connection. The WebSocket
// implementation writes asynchronously; tests substitute a recorder.
type Sender interface {
	Send(ev session.Event)
	// CloseWithCode tears the connection down with a close code. No-op for
	// senders without a real transport.
	CloseWithCode(code int, reason string)
}

// Registry tracks which connections belong to which room so broadcasts can
// fan out without touching session state. Session methods fire BroadcastFn
// while holding the session lock, so nothing here may lock a session.
type Registry struct {
	mu sync.Mutex
	// conns: sessionID -> connID -> sender
	conns map[uuid.UUID]map[string]Sender
	// players: sessionID -> playerID -> connID
	players map[uuid.UUID]map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[uuid.UUID]map[string]Sender),
		players: make(map[uuid.UUID]map[string]string),
	}
}

// Attach registers a connection in a room. playerID is empty for the host.
func (r *Registry) Attach(sessionID uuid.UUID, connID, playerID string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[sessionID] == nil {
		r.conns[sessionID] = make(map[string]Sender)
		r.players[sessionID] = make(map[string]string)
	}
	r.conns[sessionID][connID] = s
	if playerID != "" {
		r.players[sessionID][playerID] = connID
	}
}

// Detach removes a connection. The player mapping is dropped only if it
// still points at this connID, so a reconnect that already re-attached is
// not clobbered by the old socket's teardown.
func (r *Registry) Detach(sessionID uuid.UUID, connID, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.conns[sessionID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.conns, sessionID)
			delete(r.players, sessionID)
			return
		}
	}
	if playerID != "" {
		if pm := r.players[sessionID]; pm != nil && pm[playerID] == connID {
			delete(pm, playerID)
		}
	}
}

// DropRoom removes every connection of a room, returning the senders so the
// caller can close them.
func (r *Registry) DropRoom(sessionID uuid.UUID) []Sender {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sender
	for _, s := range r.conns[sessionID] {
		out = append(out, s)
	}
	delete(r.conns, sessionID)
	delete(r.players, sessionID)
	return out
}

// Broadcast fans an event out to every connection in the room.
func (r *Registry) Broadcast(sessionID uuid.UUID, ev session.Event) {
	r.mu.Lock()
	senders := make([]Sender, 0, len(r.conns[sessionID]))
	for _, s := range r.conns[sessionID] {
		senders = append(senders, s)
	}
	r.mu.Unlock()

	for _, s := range senders {
		s.Send(ev)
	}
}

// SendToPlayer delivers an event to one player's current connection, if any.
func (r *Registry) SendToPlayer(sessionID uuid.UUID, playerID string, ev session.Event) {
	r.mu.Lock()
	var target Sender
	if pm := r.players[sessionID]; pm != nil {
		if connID, ok := pm[playerID]; ok {
			target = r.conns[sessionID][connID]
		}
	}
	r.mu.Unlock()

	if target != nil {
		target.Send(ev)
	}
}

// PlayerSender returns the sender currently bound to a player, or nil.
func (r *Registry) PlayerSender(sessionID uuid.UUID, playerID string) Sender {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pm := r.players[sessionID]; pm != nil {
		if connID, ok := pm[playerID]; ok {
			return r.conns[sessionID][connID]
		}
	}
	return nil
}

// sendQueueSize bounds how far a slow client may fall behind before the
// connection is dropped.
const (
	sendQueueSize  = 64
	sendWriteLimit = 3 * time.Second
)

// wsFrame is one entry in a sender's outbound queue: either an event to
// write or an instruction to close the socket after everything queued before
// it has been flushed.
type wsFrame struct {
	ev     session.Event
	close  bool
	code   websocket.StatusCode
	reason string
}

// wsSender adapts a coder/websocket connection to the Sender interface. A
// single writer goroutine drains a per-connection queue, so events reach the
// client in the order they were sent and a slow client never blocks the
// session lock or the broadcast loop.
type wsSender struct {
	conn   *websocket.Conn
	logger *logrus.Logger
	queue  chan wsFrame
	done   chan struct{}
	once   sync.Once
}

func newWSSender(conn *websocket.Conn, logger *logrus.Logger) *wsSender {
	s := &wsSender{
		conn:   conn,
		logger: logger,
		queue:  make(chan wsFrame, sendQueueSize),
		done:   make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *wsSender) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case fr := <-s.queue:
			if fr.close {
				s.shutdown(fr.code, fr.reason)
				return
			}
			data, err := json.Marshal(fr.ev)
			if err != nil {
				s.logger.Errorf("failed to marshal event %s: %v", fr.ev.Type, err)
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), sendWriteLimit)
			err = s.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Warnf("failed to write event %s: %v", fr.ev.Type, err)
				s.shutdown(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (s *wsSender) Send(ev session.Event) {
	select {
	case s.queue <- wsFrame{ev: ev}:
	case <-s.done:
	default:
		// A full queue means the client has stalled for many events; cut it
		// loose rather than block or reorder.
		s.logger.Warnf("send queue overflow, dropping connection")
		s.shutdown(websocket.StatusPolicyViolation, "send queue overflow")
	}
}

// CloseWithCode closes the socket after flushing everything queued before
// the call, so a final event and its close code arrive in order.
func (s *wsSender) CloseWithCode(code int, reason string) {
	select {
	case s.queue <- wsFrame{close: true, code: websocket.StatusCode(code), reason: reason}:
	case <-s.done:
	default:
		s.shutdown(websocket.StatusCode(code), reason)
	}
}

func (s *wsSender) shutdown(code websocket.StatusCode, reason string) {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close(code, reason)
	})
}
