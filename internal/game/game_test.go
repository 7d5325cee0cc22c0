// internal/game/game_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerhost/dealer/internal/models"
)

// setupTestTable seats numPlayers named players on a deterministic table.
func setupTestTable(t *testing.T, numPlayers int) (*Table, []uuid.UUID) {
	tbl := NewTableWithRand(rand.New(rand.NewSource(99)))
	ids := make([]uuid.UUID, numPlayers)
	for i := 0; i < numPlayers; i++ {
		ids[i] = uuid.New()
		added, err := tbl.AddPlayer(ids[i], playerName(i))
		require.NoError(t, err)
		require.True(t, added)
	}
	return tbl, ids
}

func playerName(i int) string {
	names := []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank", "Grace", "Heidi", "Ivan", "Judy"}
	return names[i%len(names)]
}

// dealTo runs a table up to a dealt hand with the first player as dealer.
func dealTo(t *testing.T, tbl *Table, ids []uuid.UUID) {
	_, err := tbl.SelectDealerByID(ids[0])
	require.NoError(t, err)
	require.NoError(t, tbl.DealCards())
}

func TestAddPlayer(t *testing.T) {
	tbl, ids := setupTestTable(t, 2)

	// Rejoining is a no-op, not an error.
	added, err := tbl.AddPlayer(ids[0], "Alice")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, tbl.Players, 2)

	// No joins while a hand is live.
	dealTo(t, tbl, ids)
	_, err = tbl.AddPlayer(uuid.New(), "Zoe")
	assert.ErrorIs(t, err, ErrDealInProgress)
}

func TestAddPlayerRosterCap(t *testing.T) {
	tbl, _ := setupTestTable(t, MaxPlayers)
	_, err := tbl.AddPlayer(uuid.New(), "Overflow")
	assert.ErrorIs(t, err, ErrRosterFull)
}

func TestRemovePlayerClearsDealerAndState(t *testing.T) {
	tbl, ids := setupTestTable(t, 3)
	_, err := tbl.SelectDealerByID(ids[1])
	require.NoError(t, err)

	tbl.RemovePlayer(ids[1])

	assert.Len(t, tbl.Players, 2)
	assert.Equal(t, uuid.Nil, tbl.DealerID, "removing the dealer leaves the seat empty")
	assert.Equal(t, -1, tbl.DealerIndex())
	assert.Nil(t, tbl.CurrentDealer())

	// Removing an unknown id is a no-op.
	tbl.RemovePlayer(uuid.New())
	assert.Len(t, tbl.Players, 2)
}

func TestSelectRandomDealer(t *testing.T) {
	tbl, ids := setupTestTable(t, 4)

	dealer, err := tbl.SelectRandomDealer()
	require.NoError(t, err)
	assert.Contains(t, ids, dealer.ID)

	// A second random pick is rejected while a dealer is set.
	_, err = tbl.SelectRandomDealer()
	assert.ErrorIs(t, err, ErrDealerAlreadySet)
}

func TestSelectRandomDealerEmptyTable(t *testing.T) {
	tbl := NewTableWithRand(rand.New(rand.NewSource(1)))
	_, err := tbl.SelectRandomDealer()
	assert.ErrorIs(t, err, ErrNoPlayers)
}

func TestSelectDealerByID(t *testing.T) {
	tbl, ids := setupTestTable(t, 3)

	dealer, err := tbl.SelectDealerByID(ids[2])
	require.NoError(t, err)
	assert.Equal(t, ids[2], dealer.ID)

	// Explicit reassignment is allowed between hands.
	dealer, err = tbl.SelectDealerByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], dealer.ID)

	_, err = tbl.SelectDealerByID(uuid.New())
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	require.NoError(t, tbl.DealCards())
	_, err = tbl.SelectDealerByID(ids[1])
	assert.ErrorIs(t, err, ErrDealInProgress)
}

func TestReorderPlayers(t *testing.T) {
	tbl, ids := setupTestTable(t, 3)
	_, err := tbl.SelectDealerByID(ids[0])
	require.NoError(t, err)

	require.NoError(t, tbl.ReorderPlayers([]uuid.UUID{ids[2], ids[0], ids[1]}))
	assert.Equal(t, ids[2], tbl.Players[0].ID)
	// The dealer follows their identity to the new seat.
	assert.Equal(t, 1, tbl.DealerIndex())

	// Not a permutation: wrong length, foreign id, duplicate id.
	assert.ErrorIs(t, tbl.ReorderPlayers(ids[:2]), ErrInvalidRoster)
	assert.ErrorIs(t, tbl.ReorderPlayers([]uuid.UUID{ids[0], ids[1], uuid.New()}), ErrInvalidRoster)
	assert.ErrorIs(t, tbl.ReorderPlayers([]uuid.UUID{ids[0], ids[0], ids[1]}), ErrInvalidRoster)
}

func TestReorderRequiresDealerAndIdleHand(t *testing.T) {
	tbl, ids := setupTestTable(t, 2)
	assert.ErrorIs(t, tbl.ReorderPlayers([]uuid.UUID{ids[1], ids[0]}), ErrNoDealer)

	dealTo(t, tbl, ids)
	assert.ErrorIs(t, tbl.ReorderPlayers([]uuid.UUID{ids[1], ids[0]}), ErrDealInProgress)
}

func TestDealCards(t *testing.T) {
	tbl, ids := setupTestTable(t, 3)
	dealTo(t, tbl, ids)

	assert.Equal(t, PhasePreFlop, tbl.Phase)
	assert.True(t, tbl.CardsDealt)
	require.Len(t, tbl.CommunityCards, 5)
	for _, c := range tbl.CommunityCards {
		assert.False(t, c.Visible, "community cards start face down")
	}
	for _, id := range ids {
		hand := tbl.PlayerHands[id]
		require.Len(t, hand, 2)
		for _, c := range hand {
			assert.True(t, c.Visible)
		}
	}
	// 3 players x 2 hole + 5 community = 11 dealt.
	assert.Equal(t, 41, tbl.Deck.Remaining())
}

func TestDealPartitionsDeckWithoutDuplicates(t *testing.T) {
	for n := 2; n <= MaxPlayers; n++ {
		tbl, ids := setupTestTable(t, n)
		dealTo(t, tbl, ids)

		// Every card lands in exactly one place: a hand, the community,
		// or the remaining deck.
		seen := make(map[string]int)
		total := 0
		record := func(cards []*models.Card) {
			for _, c := range cards {
				seen[c.Suit+"-"+c.Rank]++
				total++
			}
		}
		for _, id := range ids {
			record(tbl.PlayerHands[id])
		}
		record(tbl.CommunityCards)
		record(tbl.Deck.Cards)

		assert.Equal(t, 52, total, "%d players", n)
		for key, occurrences := range seen {
			assert.Equal(t, 1, occurrences, "card %s appears %d times with %d players", key, occurrences, n)
		}
	}
}

func TestDealCardsGuards(t *testing.T) {
	tbl, ids := setupTestTable(t, 2)
	_, err := tbl.SelectDealerByID(ids[0])
	require.NoError(t, err)

	// Marking a player broke below the 2-active floor blocks the deal.
	_, err = tbl.ToggleBroke(ids[1])
	require.NoError(t, err)
	assert.ErrorIs(t, tbl.DealCards(), ErrNotEnoughPlayers)

	_, err = tbl.ToggleBroke(ids[1])
	require.NoError(t, err)
	require.NoError(t, tbl.DealCards())

	// Double deal.
	assert.ErrorIs(t, tbl.DealCards(), ErrDealInProgress)
}

func TestBrokePlayersAreNotDealtIn(t *testing.T) {
	tbl, ids := setupTestTable(t, 3)
	_, err := tbl.SelectDealerByID(ids[0])
	require.NoError(t, err)
	_, err = tbl.ToggleBroke(ids[2])
	require.NoError(t, err)

	require.NoError(t, tbl.DealCards())
	assert.NotContains(t, tbl.PlayerHands, ids[2])
	assert.Len(t, tbl.PlayerHands, 2)
}

func TestPhaseProgression(t *testing.T) {
	tbl, ids := setupTestTable(t, 2)
	dealTo(t, tbl, ids)

	// Out-of-order reveals are rejected at every stage.
	assert.ErrorIs(t, tbl.RevealTurn(), ErrWrongPhase)
	assert.ErrorIs(t, tbl.RevealRiver(), ErrWrongPhase)
	assert.ErrorIs(t, tbl.CompleteHand(), ErrWrongPhase)

	require.NoError(t, tbl.RevealFlop())
	assert.Equal(t, PhaseFlop, tbl.Phase)
	for i, c := range tbl.CommunityCards {
		assert.Equal(t, i < 3, c.Visible, "index %d", i)
	}
	assert.ErrorIs(t, tbl.RevealFlop(), ErrWrongPhase)

	require.NoError(t, tbl.RevealTurn())
	assert.Equal(t, PhaseTurn, tbl.Phase)
	assert.True(t, tbl.CommunityCards[3].Visible)
	assert.False(t, tbl.CommunityCards[4].Visible)

	require.NoError(t, tbl.RevealRiver())
	assert.Equal(t, PhaseRiver, tbl.Phase)
	assert.True(t, tbl.CommunityCards[4].Visible)

	require.NoError(t, tbl.CompleteHand())
	assert.Equal(t, PhaseWaiting, tbl.Phase)
	assert.False(t, tbl.CardsDealt)
	assert.Empty(t, tbl.PlayerHands)
	assert.Empty(t, tbl.CommunityCards)
}

func TestCompleteHandRotatesDealer(t *testing.T) {
	tbl, ids := setupTestTable(t, 3)
	dealTo(t, tbl, ids)

	playHand := func() {
		require.NoError(t, tbl.RevealFlop())
		require.NoError(t, tbl.RevealTurn())
		require.NoError(t, tbl.RevealRiver())
		require.NoError(t, tbl.CompleteHand())
	}

	playHand()
	assert.Equal(t, ids[1], tbl.DealerID)

	require.NoError(t, tbl.DealCards())
	playHand()
	assert.Equal(t, ids[2], tbl.DealerID)

	require.NoError(t, tbl.DealCards())
	playHand()
	// Wraps back to the first seat.
	assert.Equal(t, ids[0], tbl.DealerID)
}

func TestRevealPlayerCards(t *testing.T) {
	tbl, ids := setupTestTable(t, 2)

	_, err := tbl.RevealPlayerCards(ids[0])
	assert.ErrorIs(t, err, ErrWrongPhase)

	dealTo(t, tbl, ids)

	revealed, err := tbl.RevealPlayerCards(ids[0])
	require.NoError(t, err)
	assert.True(t, revealed)

	// Re-reveal is a no-op, not an error.
	revealed, err = tbl.RevealPlayerCards(ids[0])
	require.NoError(t, err)
	assert.False(t, revealed)

	_, err = tbl.RevealPlayerCards(uuid.New())
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestFoldPlayer(t *testing.T) {
	tbl, ids := setupTestTable(t, 3)

	_, err := tbl.FoldPlayer(ids[0])
	assert.ErrorIs(t, err, ErrWrongPhase)

	dealTo(t, tbl, ids)
	assert.Equal(t, 3, tbl.PlayersInHand())

	folded, err := tbl.FoldPlayer(ids[1])
	require.NoError(t, err)
	assert.True(t, folded)
	assert.Equal(t, 2, tbl.PlayersInHand())

	// Re-fold is a no-op.
	folded, err = tbl.FoldPlayer(ids[1])
	require.NoError(t, err)
	assert.False(t, folded)
	assert.Equal(t, 2, tbl.PlayersInHand())
}

func TestToggleBroke(t *testing.T) {
	tbl, ids := setupTestTable(t, 3)

	broke, err := tbl.ToggleBroke(ids[2])
	require.NoError(t, err)
	assert.True(t, broke)
	assert.Equal(t, 2, tbl.ActivePlayerCount())

	broke, err = tbl.ToggleBroke(ids[2])
	require.NoError(t, err)
	assert.False(t, broke)
	assert.Equal(t, 3, tbl.ActivePlayerCount())

	_, err = tbl.ToggleBroke(uuid.New())
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	dealTo(t, tbl, ids)
	_, err = tbl.ToggleBroke(ids[2])
	assert.ErrorIs(t, err, ErrDealInProgress)
}

func TestBlindSeatsHeadsUp(t *testing.T) {
	tbl, ids := setupTestTable(t, 2)
	_, err := tbl.SelectDealerByID(ids[0])
	require.NoError(t, err)

	sb, bb := tbl.BlindSeats()
	// Heads-up: dealer posts the small blind.
	assert.Equal(t, 0, sb)
	assert.Equal(t, 1, bb)
}

func TestBlindSeatsHeadsUpBrokeDealer(t *testing.T) {
	tbl, ids := setupTestTable(t, 4)
	_, err := tbl.SelectDealerByID(ids[0])
	require.NoError(t, err)
	for _, id := range []uuid.UUID{ids[0], ids[1]} {
		_, err := tbl.ToggleBroke(id)
		require.NoError(t, err)
	}

	// Two active players remain; the broke dealer passes the small blind
	// to the first active seat clockwise.
	sb, bb := tbl.BlindSeats()
	assert.Equal(t, 2, sb)
	assert.Equal(t, 3, bb)
}

func TestBlindSeatsThreePlus(t *testing.T) {
	tbl, ids := setupTestTable(t, 4)
	_, err := tbl.SelectDealerByID(ids[3])
	require.NoError(t, err)

	sb, bb := tbl.BlindSeats()
	assert.Equal(t, 0, sb, "small blind wraps to the seat after the dealer")
	assert.Equal(t, 1, bb)
}

func TestBlindSeatsSkipBrokePlayers(t *testing.T) {
	tbl, ids := setupTestTable(t, 4)
	_, err := tbl.SelectDealerByID(ids[0])
	require.NoError(t, err)
	_, err = tbl.ToggleBroke(ids[1])
	require.NoError(t, err)

	sb, bb := tbl.BlindSeats()
	assert.Equal(t, 2, sb, "broke seat is skipped for the small blind")
	assert.Equal(t, 3, bb)
}

func TestBlindSeatsUnassignable(t *testing.T) {
	tbl, ids := setupTestTable(t, 2)

	// No dealer selected yet.
	sb, bb := tbl.BlindSeats()
	assert.Equal(t, -1, sb)
	assert.Equal(t, -1, bb)

	// Fewer than two active players.
	_, err := tbl.SelectDealerByID(ids[0])
	require.NoError(t, err)
	_, err = tbl.ToggleBroke(ids[1])
	require.NoError(t, err)
	sb, bb = tbl.BlindSeats()
	assert.Equal(t, -1, sb)
	assert.Equal(t, -1, bb)
}

func TestShuffleDeckGuard(t *testing.T) {
	tbl, ids := setupTestTable(t, 2)
	require.NoError(t, tbl.ShuffleDeck())
	assert.Equal(t, 52, tbl.Deck.Remaining())

	dealTo(t, tbl, ids)
	assert.ErrorIs(t, tbl.ShuffleDeck(), ErrDealInProgress)
}

func TestNormalizeRepairsRehydratedTable(t *testing.T) {
	tbl := &Table{}
	tbl.Normalize()

	assert.NotNil(t, tbl.PlayerHands)
	assert.NotNil(t, tbl.RevealedHands)
	assert.NotNil(t, tbl.FoldedPlayers)
	assert.NotNil(t, tbl.BrokePlayers)
	assert.NotNil(t, tbl.Deck)
	assert.Equal(t, PhaseWaiting, tbl.Phase)
}
