// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pokerhost/dealer/internal/game"
	"github.com/pokerhost/dealer/internal/models"
	"github.com/pokerhost/dealer/internal/session"
)

// Identity is the result of verifying a bearer token.
type Identity struct {
	ID   uuid.UUID
	Name string
}

// Verifier resolves an opaque bearer token to a player identity. The hub
// invokes it on every single message, not just at connect time. All failure
// modes (malformed, unknown, expired) look the same to clients.
type Verifier func(ctx context.Context, token string) (Identity, error)

// Event is the outbound envelope. Exactly one wire shape for every event
// type; unused fields are omitted.
type Event struct {
	Type              string         `json:"type"`
	Data              interface{}    `json:"data,omitempty"`
	Message           string         `json:"message,omitempty"`
	Phase             game.Phase     `json:"phase,omitempty"`
	Dealer            *models.Player `json:"dealer,omitempty"`
	User              *models.Player `json:"user,omitempty"`
	PlayerID          *uuid.UUID     `json:"playerId,omitempty"`
	PlayerName        string         `json:"playerName,omitempty"`
	ActivePlayerCount *int           `json:"activePlayerCount,omitempty"`
	IsBroke           *bool          `json:"isBroke,omitempty"`
}

// client is one connected viewer. writeFn abstracts the underlying socket
// so the hub logic is testable without a live WebSocket.
type client struct {
	userID  uuid.UUID // uuid.Nil until a message with a valid token arrives
	name    string
	public  bool
	writeFn func(ctx context.Context, data []byte) error
}

// send marshals and writes one event. Failures are isolated: a dead socket
// only loses its own delivery.
func (c *client) send(ctx context.Context, logger *logrus.Logger, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("failed to marshal event %s: %v", ev.Type, err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.writeFn(writeCtx, data); err != nil {
		logger.Warnf("failed to write %s event: %v", ev.Type, err)
	}
}

// Hub owns the connection sets and routes commands to the session manager.
// It never mutates the game model directly, and the manager never talks to
// connections; every mutation flows hub -> manager -> broadcast.
type Hub struct {
	mu      sync.Mutex
	players map[uuid.UUID]*client
	public  map[*client]struct{}

	manager *session.Manager
	verify  Verifier
	logger  *logrus.Logger
}

// NewHub wires a hub to its coordinator and identity collaborator.
func NewHub(manager *session.Manager, verify Verifier, logger *logrus.Logger) *Hub {
	return &Hub{
		players: make(map[uuid.UUID]*client),
		public:  make(map[*client]struct{}),
		manager: manager,
		verify:  verify,
		logger:  logger,
	}
}

// unregister drops a connection from the broadcast sets. Disconnecting does
// not remove the player from the roster; only an explicit removal does.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.public {
		delete(h.public, c)
		return
	}
	if c.userID != uuid.Nil && h.players[c.userID] == c {
		delete(h.players, c.userID)
	}
}

// registerPlayer records the connection for a verified identity, replacing
// any previous connection for the same player.
func (h *Hub) registerPlayer(c *client, id Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.userID = id.ID
	c.name = id.Name
	h.players[id.ID] = c
}

// registerPublic adds a read-only community display connection.
func (h *Hub) registerPublic(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.public = true
	h.public[c] = struct{}{}
}

// snapshotClients copies the connection sets so broadcasts run without the
// hub lock held.
func (h *Hub) snapshotClients() (players map[uuid.UUID]*client, public []*client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	players = make(map[uuid.UUID]*client, len(h.players))
	for id, c := range h.players {
		players[id] = c
	}
	public = make([]*client, 0, len(h.public))
	for c := range h.public {
		public = append(public, c)
	}
	return players, public
}

// broadcastState pushes the per-viewer projection to every player and the
// public projection to every community display. Safe with zero connections.
func (h *Hub) broadcastState(ctx context.Context) {
	players, public := h.snapshotClients()

	for id, c := range players {
		snap := h.manager.State(id)
		go c.send(ctx, h.logger, Event{Type: "game-state", Data: snap})
	}

	if len(public) > 0 {
		pub := h.manager.PublicState()
		for _, c := range public {
			go c.send(ctx, h.logger, Event{Type: "community-state", Data: pub})
		}
	}
}

// broadcast pushes one notification event to every player connection.
func (h *Hub) broadcast(ctx context.Context, ev Event) {
	players, _ := h.snapshotClients()
	for _, c := range players {
		go c.send(ctx, h.logger, ev)
	}
}

// RemovePlayer removes a player from the roster (the explicit logout path)
// and pushes fresh state to everyone.
func (h *Hub) RemovePlayer(ctx context.Context, id uuid.UUID) {
	h.manager.Remove(ctx, id)
	h.broadcastState(ctx)
}

// RunClockLoop polls the blind clock at a fixed interval until the context
// is cancelled. An edge-fired expiry is broadcast exactly once, followed by
// fresh snapshots. The check still runs and persists with zero clients
// connected.
func (h *Hub) RunClockLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.manager.CheckClockExpiry(ctx) {
				h.logger.Info("blind timer expired, blinds increase on next deal")
				h.broadcast(ctx, Event{
					Type:    "timer-expired",
					Message: "Blind level timer expired. Blinds increase when the next hand is dealt.",
				})
				h.broadcastState(ctx)
			}
		}
	}
}
