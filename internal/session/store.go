package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Key is the fixed id of the single session row. There is only ever one
// session per process.
const Key = "table-1"

// Record is the durable snapshot of the session written after every applied
// mutation. Game is the full serialized table, concealed cards included; the
// sibling columns mirror the fields useful to inspect without parsing the
// blob.
type Record struct {
	DealerIndex      int             `json:"dealerIndex"`
	PlayerOrder      []uuid.UUID     `json:"playerOrder"`
	Game             json.RawMessage `json:"game"`
	CommunityCards   json.RawMessage `json:"communityCards"`
	Phase            string          `json:"phase"`
	CardsDealt       bool            `json:"cardsDealt"`
	ClockStart       *time.Time      `json:"clockStart,omitempty"`
	ClockDurationSec int             `json:"clockDurationSec"`
	EscalatePending  bool            `json:"escalatePending"`
	BlindLevel       int             `json:"blindLevel"`
	ActionIndex      int             `json:"actionIndex"`
}

// Store is the durable storage collaborator. It is a cache of the running
// state, not the source of truth: Load returning (nil, nil) means "start
// fresh", and a Save failure never rolls back an applied mutation.
type Store interface {
	Load(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, key string, rec *Record) error
	Clear(ctx context.Context, key string) error
}
