// internal/handlers/commands.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/pokerhost/dealer/internal/models"
)

// CommandType enumerates every inbound message type. The dispatch switch in
// handleCommand covers each member exactly once.
type CommandType string

const (
	CmdJoin               CommandType = "join"
	CmdDealCards          CommandType = "deal-cards"
	CmdFlipNextPhase      CommandType = "flip-next-phase"
	CmdShuffleDeck        CommandType = "shuffle-deck"
	CmdChooseDealerRandom CommandType = "choose-dealer-random"
	CmdChooseDealerByID   CommandType = "choose-dealer-by-id"
	CmdReorderPlayers     CommandType = "reorder-players"
	CmdRevealOwnCards     CommandType = "reveal-own-cards"
	CmdFold               CommandType = "fold"
	CmdToggleBroke        CommandType = "toggle-player-broke"
	CmdResetSession       CommandType = "reset-session"
	CmdGetState           CommandType = "get-state"

	// Public commands carry no token and never mutate state.
	CmdSubscribe      CommandType = "subscribe"
	CmdGetPublicState CommandType = "get-public-state"
)

// Command is the inbound envelope. Every non-public command must carry a
// token that verifies on that message.
type Command struct {
	Type      CommandType `json:"type"`
	Token     string      `json:"token,omitempty"`
	PlayerID  string      `json:"playerId,omitempty"`
	PlayerIDs []string    `json:"playerIds,omitempty"`
}

// handleCommand parses and dispatches one inbound frame. Validation and
// authorization failures are reported only to the originating connection;
// they never mutate state or broadcast.
func (h *Hub) handleCommand(ctx context.Context, c *client, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		h.logger.Warnf("invalid JSON frame: %v", err)
		h.sendError(ctx, c, "Invalid JSON format")
		return
	}

	h.logger.Debugf("received command %q", cmd.Type)

	// Public read-only commands require no identity.
	switch cmd.Type {
	case CmdSubscribe:
		h.registerPublic(c)
		c.send(ctx, h.logger, Event{Type: "community-state", Data: h.manager.PublicState()})
		return
	case CmdGetPublicState:
		c.send(ctx, h.logger, Event{Type: "community-state", Data: h.manager.PublicState()})
		return
	}

	// Everything else verifies the bearer token on this message.
	ident, err := h.verify(ctx, cmd.Token)
	if err != nil {
		h.logger.Warnf("token verification failed: %v", err)
		h.sendError(ctx, c, "Not authenticated")
		return
	}

	firstAuth := c.userID == uuid.Nil
	h.registerPlayer(c, ident)
	if firstAuth {
		c.send(ctx, h.logger, Event{
			Type: "authenticated",
			User: &models.Player{ID: ident.ID, Name: ident.Name},
		})
		c.send(ctx, h.logger, Event{Type: "game-state", Data: h.manager.State(ident.ID)})
	}

	switch cmd.Type {
	case CmdJoin:
		h.handleJoin(ctx, c, ident)
	case CmdDealCards:
		h.handleDealCards(ctx, c, ident)
	case CmdFlipNextPhase:
		h.handleFlipNextPhase(ctx, c, ident)
	case CmdShuffleDeck:
		h.handleShuffleDeck(ctx, c, ident)
	case CmdChooseDealerRandom:
		h.handleChooseDealerRandom(ctx, c, ident)
	case CmdChooseDealerByID:
		h.handleChooseDealerByID(ctx, c, ident, cmd.PlayerID)
	case CmdReorderPlayers:
		h.handleReorderPlayers(ctx, c, ident, cmd.PlayerIDs)
	case CmdRevealOwnCards:
		h.handleRevealOwnCards(ctx, c, ident)
	case CmdFold:
		h.handleFold(ctx, c, ident)
	case CmdToggleBroke:
		h.handleToggleBroke(ctx, c, ident, cmd.PlayerID)
	case CmdResetSession:
		h.handleResetSession(ctx, c, ident)
	case CmdGetState:
		c.send(ctx, h.logger, Event{Type: "game-state", Data: h.manager.State(ident.ID)})
	case CmdSubscribe, CmdGetPublicState:
		// handled above
	default:
		h.sendError(ctx, c, fmt.Sprintf("Unknown message type: %s", cmd.Type))
	}
}

func (h *Hub) sendError(ctx context.Context, c *client, msg string) {
	c.send(ctx, h.logger, Event{Type: "error", Message: msg})
}

// requireDealer gates dealer-only commands. The reply goes only to the
// originating connection.
func (h *Hub) requireDealer(ctx context.Context, c *client, ident Identity, action string) bool {
	if h.manager.IsDealer(ident.ID) {
		return true
	}
	h.sendError(ctx, c, fmt.Sprintf("Only the dealer can %s", action))
	return false
}

func (h *Hub) handleJoin(ctx context.Context, c *client, ident Identity) {
	if !h.manager.CanJoin() {
		c.send(ctx, h.logger, Event{
			Type:    "join-rejected",
			Message: "Cannot join game - cards already dealt or game is full",
		})
		return
	}

	added, err := h.manager.Join(ctx, ident.ID, ident.Name)
	if err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	if !added {
		c.send(ctx, h.logger, Event{Type: "join-rejected", Message: "Already in game"})
		return
	}

	h.broadcastState(ctx)
	c.send(ctx, h.logger, Event{Type: "join-accepted", Message: "Successfully joined the game"})
}

func (h *Hub) handleDealCards(ctx context.Context, c *client, ident Identity) {
	if !h.requireDealer(ctx, c, ident, "deal cards") {
		return
	}
	if err := h.manager.Deal(ctx, ident.ID); err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	h.broadcastState(ctx)
	h.broadcast(ctx, Event{Type: "cards-dealt", Message: "Cards have been dealt"})
}

func (h *Hub) handleFlipNextPhase(ctx context.Context, c *client, ident Identity) {
	if !h.requireDealer(ctx, c, ident, "flip community cards") {
		return
	}
	phase, err := h.manager.FlipNext(ctx, ident.ID)
	if err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	h.broadcastState(ctx)
	h.broadcast(ctx, Event{Type: "community-revealed", Phase: phase})
}

func (h *Hub) handleShuffleDeck(ctx context.Context, c *client, ident Identity) {
	if !h.requireDealer(ctx, c, ident, "shuffle the deck") {
		return
	}
	if err := h.manager.ShuffleDeck(ctx, ident.ID); err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	h.broadcastState(ctx)
}

func (h *Hub) handleChooseDealerRandom(ctx context.Context, c *client, ident Identity) {
	dealer, err := h.manager.ChooseRandomDealer(ctx, ident.ID)
	if err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	h.broadcastState(ctx)
	h.broadcast(ctx, Event{Type: "dealer-selected", Dealer: dealer})
}

func (h *Hub) handleChooseDealerByID(ctx context.Context, c *client, ident Identity, playerID string) {
	target, err := uuid.Parse(playerID)
	if err != nil {
		h.sendError(ctx, c, "Invalid player id")
		return
	}
	dealer, err := h.manager.ChooseDealerByID(ctx, ident.ID, target)
	if err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	h.broadcastState(ctx)
	h.broadcast(ctx, Event{Type: "dealer-selected", Dealer: dealer})
}

func (h *Hub) handleReorderPlayers(ctx context.Context, c *client, ident Identity, playerIDs []string) {
	if !h.requireDealer(ctx, c, ident, "reorder players") {
		return
	}
	ids := make([]uuid.UUID, 0, len(playerIDs))
	for _, s := range playerIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			h.sendError(ctx, c, "Invalid player id in order list")
			return
		}
		ids = append(ids, id)
	}
	if err := h.manager.Reorder(ctx, ident.ID, ids); err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	h.broadcastState(ctx)
	h.broadcast(ctx, Event{Type: "players-reordered"})
}

func (h *Hub) handleRevealOwnCards(ctx context.Context, c *client, ident Identity) {
	revealed, err := h.manager.RevealCards(ctx, ident.ID)
	if err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	if !revealed {
		// Already revealed: a no-op, not an error. No broadcast.
		c.send(ctx, h.logger, Event{Type: "cards-revealed", Message: "Cards already revealed"})
		return
	}
	h.broadcastState(ctx)
	h.broadcast(ctx, Event{
		Type:       "cards-revealed",
		PlayerID:   &ident.ID,
		PlayerName: ident.Name,
	})
}

func (h *Hub) handleFold(ctx context.Context, c *client, ident Identity) {
	folded, remaining, err := h.manager.Fold(ctx, ident.ID)
	if err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	if !folded {
		c.send(ctx, h.logger, Event{Type: "fold-confirmed", Message: "Already folded"})
		return
	}
	c.send(ctx, h.logger, Event{Type: "fold-confirmed", Message: "You have folded"})
	h.broadcastState(ctx)
	h.broadcast(ctx, Event{
		Type:              "player-folded",
		PlayerID:          &ident.ID,
		PlayerName:        ident.Name,
		ActivePlayerCount: &remaining,
	})
}

func (h *Hub) handleToggleBroke(ctx context.Context, c *client, ident Identity, playerID string) {
	if !h.requireDealer(ctx, c, ident, "change broke status") {
		return
	}
	target, err := uuid.Parse(playerID)
	if err != nil {
		h.sendError(ctx, c, "Invalid player id")
		return
	}
	broke, err := h.manager.ToggleBroke(ctx, ident.ID, target)
	if err != nil {
		h.sendError(ctx, c, err.Error())
		return
	}
	h.broadcastState(ctx)
	h.broadcast(ctx, Event{Type: "player-broke-toggled", PlayerID: &target, IsBroke: &broke})
}

func (h *Hub) handleResetSession(ctx context.Context, c *client, ident Identity) {
	if !h.requireDealer(ctx, c, ident, "reset the session") {
		return
	}
	h.manager.Reset(ctx, ident.ID)
	h.broadcast(ctx, Event{Type: "game-reset", Message: "The session has been reset"})
	h.broadcastState(ctx)
}
