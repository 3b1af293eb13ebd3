package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
	"tictactoe/internal/metrics"
	"tictactoe/internal/service"
)

// Engine is the session engine as seen by the transport.
type Engine interface {
	Create(ctx context.Context, host domain.Player) (service.Result, error)
	Join(ctx context.Context, inviteCode string, player domain.Player) (service.Result, error)
	MakeMove(ctx context.Context, sessionID string, playerID int64, cell int) (service.Result, error)
	CheckTimeout(ctx context.Context, sessionID string) (service.Result, error)
	RequestReplay(ctx context.Context, sessionID string, playerID int64) (service.Result, error)
	GetState(ctx context.Context, sessionID string) (domain.Session, error)
}

// PlayerResolver maps an authenticated user id to a display identity.
type PlayerResolver interface {
	Player(ctx context.Context, userID int64) (domain.Player, error)
}

// ActionLimiter throttles actions per user; nil allows everything.
type ActionLimiter interface {
	Allow(ctx context.Context, userID int64) bool
}

// Hub tracks open connections and which sessions each one follows.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	sessions map[string]map[*Client]struct{}
	// versions is the latest snapshot version fanned out per followed session.
	versions map[string]uint64

	engine  Engine
	players PlayerResolver
	limiter ActionLimiter
	log     *slog.Logger
}

var _ service.EventPublisher = (*Hub)(nil)

func NewHub(engine Engine, players PlayerResolver, limiter ActionLimiter) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		sessions: make(map[string]map[*Client]struct{}),
		versions: make(map[string]uint64),
		engine:   engine,
		players:  players,
		limiter:  limiter,
		log:      logger.With("component", "ws_hub"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WSConnections.Inc()
}

// OnDisconnect drops c from every session it followed and closes its queue.
func (h *Hub) OnDisconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for id := range c.subs {
		if subs, ok := h.sessions[id]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.sessions, id)
				delete(h.versions, id)
			}
		}
	}
	c.subs = nil
	close(c.Send)
	metrics.WSConnections.Dec()
	h.log.Debug("client disconnected", "user_id", c.UserID)
}

func (h *Hub) Subscribe(c *Client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	subs, ok := h.sessions[sessionID]
	if !ok {
		subs = make(map[*Client]struct{})
		h.sessions[sessionID] = subs
	}
	subs[c] = struct{}{}
	c.subs[sessionID] = struct{}{}
}

// Subscribers returns the number of connections following sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Publish fans events out to every connection following sessionID.
// A batch older than one already fanned out for the session is dropped.
func (h *Hub) Publish(sessionID string, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	var version uint64
	for _, e := range events {
		version = max(version, e.Session.Version)
	}
	frames := make([][]byte, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(EventMessage(e))
		if err != nil {
			h.log.Error("marshal event", "kind", e.Kind, "error", err)
			continue
		}
		frames = append(frames, data)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if version != 0 {
		if version < h.versions[sessionID] {
			h.log.Debug("dropping stale events", "session_id", sessionID, "version", version, "latest", h.versions[sessionID])
			return
		}
		h.versions[sessionID] = version
	}
	for c := range subs {
		for _, data := range frames {
			h.enqueue(c, data)
		}
	}
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

func (h *Hub) send(c *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal message", "type", msg.Type, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.enqueue(c, data)
	}
}

// enqueue never blocks; a full queue means the peer stopped reading.
// Caller holds h.mu.
func (h *Hub) enqueue(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		h.log.Warn("send queue full, dropping message", "user_id", c.UserID)
	}
}
