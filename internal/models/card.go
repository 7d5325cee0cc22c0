package models

import "fmt"

// Suits in canonical deck order.
const (
	SuitHearts   = "hearts"
	SuitDiamonds = "diamonds"
	SuitClubs    = "clubs"
	SuitSpades   = "spades"
)

// Card is a single playing card. Suit and Rank never change once the card is
// built; Visible is the only mutable field and flips when the card is exposed
// to viewers (hole cards at deal time, community cards as phases advance).
type Card struct {
	Suit    string `json:"suit"`
	Rank    string `json:"rank"`
	Visible bool   `json:"visible"`
}

func (c *Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}
