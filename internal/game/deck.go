package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/pokerhost/dealer/internal/models"
)

var (
	deckSuits = []string{models.SuitHearts, models.SuitDiamonds, models.SuitClubs, models.SuitSpades}
	deckRanks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
)

// Deck is an ordered sequence of cards owned exclusively by one session
// model. Reset rebuilds the canonical 52-card order; Deal removes from the
// head.
type Deck struct {
	Cards []*models.Card `json:"cards"`

	rng *rand.Rand
}

// NewDeck returns a freshly reset deck with a time-seeded random source.
func NewDeck() *Deck {
	d := &Deck{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	d.Reset()
	return d
}

// NewDeckWithRand returns a reset deck using the provided source, for
// deterministic tests.
func NewDeckWithRand(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.Reset()
	return d
}

// Reset rebuilds the canonical 52-card sequence, all face down.
func (d *Deck) Reset() {
	d.Cards = make([]*models.Card, 0, 52)
	for _, suit := range deckSuits {
		for _, rank := range deckRanks {
			d.Cards = append(d.Cards, &models.Card{Suit: suit, Rank: rank})
		}
	}
}

// Shuffle performs a Fisher-Yates shuffle over the current sequence.
func (d *Deck) Shuffle() {
	if d.rng == nil {
		d.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d.rng.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

// Deal removes and returns the first n cards.
func (d *Deck) Deal(n int) ([]*models.Card, error) {
	if n > len(d.Cards) {
		return nil, fmt.Errorf("deal %d with %d remaining: %w", n, len(d.Cards), ErrInsufficientCards)
	}
	dealt := d.Cards[:n]
	d.Cards = d.Cards[n:]
	return dealt, nil
}

// Remaining reports how many cards are left undealt.
func (d *Deck) Remaining() int {
	return len(d.Cards)
}
