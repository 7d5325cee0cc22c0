package game

import (
	"github.com/google/uuid"
	"github.com/pokerhost/dealer/internal/models"
)

// CardState is the wire form of a card. Face-down cards carry only the
// visibility flag; suit and rank are omitted so concealed faces never reach
// a client that is not allowed to see them.
type CardState struct {
	Suit    string `json:"suit,omitempty"`
	Rank    string `json:"rank,omitempty"`
	Visible bool   `json:"visible"`
}

func cardState(c *models.Card) CardState {
	if !c.Visible {
		return CardState{Visible: false}
	}
	return CardState{Suit: c.Suit, Rank: c.Rank, Visible: true}
}

func cardStates(cards []*models.Card) []CardState {
	out := make([]CardState, len(cards))
	for i, c := range cards {
		out[i] = cardState(c)
	}
	return out
}

// PlayerState is one roster entry in a projection, with the derived seat
// flags every viewer may see.
type PlayerState struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	IsDealer     bool      `json:"isDealer"`
	IsSmallBlind bool      `json:"isSmallBlind"`
	IsBigBlind   bool      `json:"isBigBlind"`
	HasFolded    bool      `json:"hasFolded"`
	IsBroke      bool      `json:"isBroke"`
}

// RevealedHand is a voluntarily exposed hand. Every viewer sees these; that
// is the point of revealing.
type RevealedHand struct {
	PlayerID   uuid.UUID   `json:"userId"`
	PlayerName string      `json:"playerName"`
	Cards      []CardState `json:"cards"`
}

// Blinds is the current small/big blind amounts.
type Blinds struct {
	Small int `json:"small"`
	Big   int `json:"big"`
}

// Snapshot is the per-viewer projection of the table. HoleCards is populated
// only when the snapshot was built for a specific player who holds a hand;
// no other player's concealed cards are ever included.
type Snapshot struct {
	Players           []PlayerState  `json:"players"`
	DealerIndex       int            `json:"dealerIndex"`
	CommunityCards    []CardState    `json:"communityCards"`
	Phase             Phase          `json:"phase"`
	CardsDealt        bool           `json:"cardsDealt"`
	ActivePlayerCount int            `json:"activePlayerCount"`
	RevealedHands     []RevealedHand `json:"revealedHands"`
	HoleCards         []CardState    `json:"holeCards,omitempty"`
	Blinds            *Blinds        `json:"blinds,omitempty"`
	TimerState        *TimerState    `json:"timerState,omitempty"`
}

// PublicSnapshot is the reduced, player-agnostic projection served to the
// unauthenticated community display.
type PublicSnapshot struct {
	CommunityCards []CardState `json:"communityCards"`
	Phase          Phase       `json:"phase"`
	CardsDealt     bool        `json:"cardsDealt"`
}

// GameState builds the projection for the given viewer. Pass uuid.Nil for
// the public (no hole card) variant.
func (t *Table) GameState(forID uuid.UUID) Snapshot {
	dealerIdx := t.DealerIndex()
	sb, bb := t.BlindSeats()

	players := make([]PlayerState, len(t.Players))
	for i, p := range t.Players {
		players[i] = PlayerState{
			ID:           p.ID,
			Name:         p.Name,
			IsDealer:     i == dealerIdx,
			IsSmallBlind: i == sb,
			IsBigBlind:   i == bb,
			HasFolded:    t.FoldedPlayers[p.ID],
			IsBroke:      t.BrokePlayers[p.ID],
		}
	}

	revealed := make([]RevealedHand, 0)
	for _, p := range t.Players {
		if !t.RevealedHands[p.ID] {
			continue
		}
		hand, ok := t.PlayerHands[p.ID]
		if !ok {
			continue
		}
		revealed = append(revealed, RevealedHand{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Cards:      cardStates(hand),
		})
	}

	snap := Snapshot{
		Players:           players,
		DealerIndex:       dealerIdx,
		CommunityCards:    cardStates(t.CommunityCards),
		Phase:             t.Phase,
		CardsDealt:        t.CardsDealt,
		ActivePlayerCount: t.ActivePlayerCount(),
		RevealedHands:     revealed,
	}

	if forID != uuid.Nil {
		if hand, ok := t.PlayerHands[forID]; ok {
			snap.HoleCards = cardStates(hand)
		}
	}
	return snap
}

// PublicState builds the community display projection.
func (t *Table) PublicState() PublicSnapshot {
	return PublicSnapshot{
		CommunityCards: cardStates(t.CommunityCards),
		Phase:          t.Phase,
		CardsDealt:     t.CardsDealt,
	}
}
