// internal/database/state.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pokerhost/dealer/internal/session"
)

// StateStore persists the single session row in Postgres. It implements
// session.Store.
type StateStore struct{}

// NewStateStore returns a store backed by the global pool.
func NewStateStore() *StateStore {
	return &StateStore{}
}

// Load fetches the session record, or (nil, nil) when no row exists.
func (s *StateStore) Load(ctx context.Context, key string) (*session.Record, error) {
	q := `
		SELECT dealer_index, player_order, game_state, community_cards,
		       phase, cards_dealt, clock_started_at, clock_duration_sec,
		       escalate_pending, blind_level, action_index
		FROM session_state
		WHERE id = $1
	`
	var rec session.Record
	var orderJSON []byte
	err := DB.QueryRow(ctx, q, key).Scan(
		&rec.DealerIndex, &orderJSON, &rec.Game, &rec.CommunityCards,
		&rec.Phase, &rec.CardsDealt, &rec.ClockStart, &rec.ClockDurationSec,
		&rec.EscalatePending, &rec.BlindLevel, &rec.ActionIndex,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session state: %w", err)
	}

	if len(orderJSON) > 0 {
		if err := json.Unmarshal(orderJSON, &rec.PlayerOrder); err != nil {
			return nil, fmt.Errorf("decode player order: %w", err)
		}
	}
	return &rec, nil
}

// Save upserts the session record.
func (s *StateStore) Save(ctx context.Context, key string, rec *session.Record) error {
	orderJSON, err := json.Marshal(orderOrEmpty(rec.PlayerOrder))
	if err != nil {
		return fmt.Errorf("encode player order: %w", err)
	}

	q := `
		INSERT INTO session_state (
			id, dealer_index, player_order, game_state, community_cards,
			phase, cards_dealt, clock_started_at, clock_duration_sec,
			escalate_pending, blind_level, action_index, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			dealer_index = EXCLUDED.dealer_index,
			player_order = EXCLUDED.player_order,
			game_state = EXCLUDED.game_state,
			community_cards = EXCLUDED.community_cards,
			phase = EXCLUDED.phase,
			cards_dealt = EXCLUDED.cards_dealt,
			clock_started_at = EXCLUDED.clock_started_at,
			clock_duration_sec = EXCLUDED.clock_duration_sec,
			escalate_pending = EXCLUDED.escalate_pending,
			blind_level = EXCLUDED.blind_level,
			action_index = EXCLUDED.action_index,
			updated_at = NOW()
	`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			key, rec.DealerIndex, orderJSON, rec.Game, rec.CommunityCards,
			rec.Phase, rec.CardsDealt, rec.ClockStart, rec.ClockDurationSec,
			rec.EscalatePending, rec.BlindLevel, rec.ActionIndex,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

// Clear removes the session row.
func (s *StateStore) Clear(ctx context.Context, key string) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, `DELETE FROM session_state WHERE id = $1`, key)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}

func orderOrEmpty(order []uuid.UUID) []uuid.UUID {
	if order == nil {
		return []uuid.UUID{}
	}
	return order
}
