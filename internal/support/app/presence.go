package app

import (
	"context"
	"fmt"
	"sync"

	"support_chat_service/internal/support/domain"
	"support_chat_service/internal/support/repository"
	"support_chat_service/pkg/logger"

	errprocess "support_chat_service/pkg/err"

	"github.com/gofiber/websocket/v2"
)

// Session one live websocket connection and its room subscriptions
type Session struct {
	Conn     *websocket.Conn
	Identity string
	Role     string
	TenantID string

	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

// NewSession create Session
func NewSession(conn *websocket.Conn, identity, role, tenantID string) *Session {
	return &Session{
		Conn:     conn,
		Identity: identity,
		Role:     role,
		TenantID: tenantID,
		subs:     make(map[string]context.CancelFunc),
	}
}

// Write serialize writes, fiber websocket conn is not safe for concurrent use
func (s *Session) Write(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Conn.WriteMessage(messageType, data)
}

// Presence track which rooms each session listens on. Backed entirely by the
// event bus, reachability is answered from channel subscriber counts so it
// holds across service instances.
type Presence struct {
	bus repository.EventBus
}

// NewPresence create Presence
func NewPresence(bus repository.EventBus) *Presence {
	return &Presence{bus: bus}
}

// Join subscribe the session to a room. Joining a room twice is a no-op.
func (p *Presence) Join(sess *Session, room string, handler func(domain.Event)) error {
	if p.bus == nil {
		return errprocess.NotInitialized("event bus")
	}
	if sess == nil {
		return errprocess.NotInitialized("session")
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if _, ok := sess.subs[room]; ok {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.bus.Subscribe(ctx, room, handler); err != nil {
		cancel()
		return err
	}
	sess.subs[room] = cancel

	logger.Log.Info(fmt.Sprintf("presence join: identity=%s room=%s", sess.Identity, room))
	return nil
}

// Leave drop one room subscription. Leaving a room never joined is a no-op.
func (p *Presence) Leave(sess *Session, room string) {
	if sess == nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if cancel, ok := sess.subs[room]; ok {
		cancel()
		delete(sess.subs, room)
		logger.Log.Info(fmt.Sprintf("presence leave: identity=%s room=%s", sess.Identity, room))
	}
}

// Release drop every subscription, called on disconnect
func (p *Presence) Release(sess *Session) {
	if sess == nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for room, cancel := range sess.subs {
		cancel()
		delete(sess.subs, room)
	}
	logger.Log.Infof("presence release: identity=", sess.Identity)
}

// IsReachable report whether anyone listens on the user's private room
func (p *Presence) IsReachable(identity string) (bool, error) {
	if p.bus == nil {
		return false, errprocess.NotInitialized("event bus")
	}
	n, err := p.bus.NumSub(domain.UserRoom(identity))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
