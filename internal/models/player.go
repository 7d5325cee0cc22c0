package models

import "github.com/google/uuid"

// Player is one seat at the table. Seating order lives in the session model's
// roster slice; the player itself carries only identity.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
