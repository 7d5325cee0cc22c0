// internal/session/manager_test.go
package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pokerhost/dealer/internal/cache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for exercising the manager without a
// database.
type memStore struct {
	mu      sync.Mutex
	rec     *Record
	saves   int
	clears  int
	failing bool
}

func (s *memStore) Load(ctx context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, nil
}

func (s *memStore) Save(ctx context.Context, key string, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("store unavailable")
	}
	s.saves++
	s.rec = rec
	return nil
}

func (s *memStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.rec = nil
	return nil
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestManager(t *testing.T) (*Manager, *memStore) {
	store := &memStore{}
	m := NewManager(context.Background(), store, testLogger())
	return m, store
}

// seatPlayers joins n players and returns their ids.
func seatPlayers(t *testing.T, m *Manager, n int) []uuid.UUID {
	ctx := context.Background()
	ids := make([]uuid.UUID, n)
	names := []string{"Alice", "Bob", "Carol", "Dave"}
	for i := 0; i < n; i++ {
		ids[i] = uuid.New()
		added, err := m.Join(ctx, ids[i], names[i%len(names)])
		require.NoError(t, err)
		require.True(t, added)
	}
	return ids
}

func TestManagerPersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)
	ids := seatPlayers(t, m, 2)
	assert.Equal(t, 2, store.saveCount())

	_, err := m.ChooseDealerByID(ctx, ids[0], ids[0])
	require.NoError(t, err)
	assert.Equal(t, 3, store.saveCount())

	require.NoError(t, m.Deal(ctx, ids[0]))
	assert.Equal(t, 4, store.saveCount())
	require.NotNil(t, store.rec)
	assert.True(t, store.rec.CardsDealt)
	assert.Equal(t, "pre-flop", store.rec.Phase)
	assert.Equal(t, 0, store.rec.DealerIndex)
	assert.Len(t, store.rec.PlayerOrder, 2)
}

func TestManagerDuplicateJoinDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)
	ids := seatPlayers(t, m, 1)

	before := store.saveCount()
	added, err := m.Join(ctx, ids[0], "Alice")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, before, store.saveCount())
}

func TestManagerRehydratesFromStore(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)
	ids := seatPlayers(t, m, 3)
	_, err := m.ChooseDealerByID(ctx, ids[1], ids[1])
	require.NoError(t, err)
	require.NoError(t, m.Deal(ctx, ids[1]))

	// A fresh manager over the same store sees the same session.
	restored := NewManager(ctx, store, testLogger())
	snap := restored.State(ids[0])
	assert.Len(t, snap.Players, 3)
	assert.Equal(t, 1, snap.DealerIndex)
	assert.True(t, snap.CardsDealt)
	require.Len(t, snap.HoleCards, 2)
	assert.Equal(t, snap.HoleCards, m.State(ids[0]).HoleCards)
	require.NotNil(t, snap.TimerState)
	assert.True(t, snap.TimerState.IsRunning)
}

func TestManagerPersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)
	store.failing = true

	id := uuid.New()
	added, err := m.Join(ctx, id, "Alice")
	require.NoError(t, err, "a storage outage must not reject the mutation")
	assert.True(t, added)
	assert.Len(t, m.State(uuid.Nil).Players, 1)
}

func TestManagerOnlyOneDealWins(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	ids := seatPlayers(t, m, 2)
	_, err := m.ChooseDealerByID(ctx, ids[0], ids[0])
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Deal(ctx, ids[0])
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one racing deal may succeed")
}

func TestManagerBlindEscalation(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	m := NewManager(ctx, store, testLogger(), WithClockDuration(10*time.Second))
	ids := seatPlayers(t, m, 2)
	_, err := m.ChooseDealerByID(ctx, ids[0], ids[0])
	require.NoError(t, err)

	assert.Equal(t, 1, m.Blinds().Small)
	assert.Equal(t, 2, m.Blinds().Big)

	// First deal starts the countdown but does not escalate.
	require.NoError(t, m.Deal(ctx, ids[0]))
	assert.Equal(t, 1, m.Blinds().Small)

	fakeTime := time.Now()
	m.clock.SetNowFunc(func() time.Time { return fakeTime })
	fakeTime = fakeTime.Add(11 * time.Second)

	require.True(t, m.CheckClockExpiry(ctx))
	assert.False(t, m.CheckClockExpiry(ctx), "expiry fires once per level")
	// Amounts hold until the next deal applies the pending escalation.
	assert.Equal(t, 1, m.Blinds().Small)

	_, err = m.FlipNext(ctx, ids[0]) // flop
	require.NoError(t, err)
	_, err = m.FlipNext(ctx, ids[0]) // turn
	require.NoError(t, err)
	_, err = m.FlipNext(ctx, ids[0]) // river
	require.NoError(t, err)
	phase, err := m.FlipNext(ctx, ids[0]) // complete -> waiting
	require.NoError(t, err)
	assert.Equal(t, "waiting", string(phase))

	require.NoError(t, m.Deal(ctx, ids[0]))
	assert.Equal(t, 2, m.Blinds().Small)
	assert.Equal(t, 4, m.Blinds().Big)

	snap := m.State(ids[0])
	require.NotNil(t, snap.TimerState)
	assert.False(t, snap.TimerState.BlindsWillIncrease)
}

func TestManagerFlipNextSequence(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	ids := seatPlayers(t, m, 2)
	_, err := m.ChooseDealerByID(ctx, ids[0], ids[0])
	require.NoError(t, err)

	_, err = m.FlipNext(ctx, ids[0])
	assert.Error(t, err, "no reveal before dealing")

	require.NoError(t, m.Deal(ctx, ids[0]))
	want := []string{"flop", "turn", "river", "waiting"}
	for _, expected := range want {
		phase, err := m.FlipNext(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, expected, string(phase))
	}

	// The completed hand rotated the dealer one seat.
	assert.True(t, m.IsDealer(ids[1]))
	assert.False(t, m.IsDealer(ids[0]))
}

func TestManagerRevealAndFoldNoOps(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)
	ids := seatPlayers(t, m, 3)
	_, err := m.ChooseDealerByID(ctx, ids[0], ids[0])
	require.NoError(t, err)
	require.NoError(t, m.Deal(ctx, ids[0]))

	revealed, err := m.RevealCards(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, revealed)

	before := store.saveCount()
	revealed, err = m.RevealCards(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, revealed)
	assert.Equal(t, before, store.saveCount(), "a no-op reveal does not persist")

	folded, remaining, err := m.Fold(ctx, ids[2])
	require.NoError(t, err)
	assert.True(t, folded)
	assert.Equal(t, 2, remaining)

	folded, remaining, err = m.Fold(ctx, ids[2])
	require.NoError(t, err)
	assert.False(t, folded)
	assert.Equal(t, 2, remaining)
}

func TestManagerReset(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)
	ids := seatPlayers(t, m, 2)
	_, err := m.ChooseDealerByID(ctx, ids[0], ids[0])
	require.NoError(t, err)
	require.NoError(t, m.Deal(ctx, ids[0]))

	m.Reset(ctx, ids[0])

	assert.Equal(t, 1, store.clears)
	assert.Nil(t, store.rec)
	snap := m.State(uuid.Nil)
	assert.Empty(t, snap.Players)
	assert.False(t, snap.CardsDealt)
	assert.Equal(t, 1, m.Blinds().Small, "blind level resets")
	assert.True(t, m.CanJoin())
}

func TestManagerActionJournal(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}

	var mu sync.Mutex
	var types []string
	done := make(chan struct{}, 16)

	m := NewManager(ctx, store, testLogger(), WithActionLogger(func(ctx context.Context, rec cache.ActionRecord) {
		mu.Lock()
		types = append(types, rec.ActionType)
		mu.Unlock()
		done <- struct{}{}
	}))

	id := uuid.New()
	_, err := m.Join(ctx, id, "Alice")
	require.NoError(t, err)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, types, 1)
	assert.Equal(t, "player_join", types[0])
}

func TestManagerActionIndexSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}

	var mu sync.Mutex
	var indices []int
	done := make(chan struct{}, 16)
	newJournaled := func() *Manager {
		return NewManager(ctx, store, testLogger(), WithActionLogger(func(ctx context.Context, rec cache.ActionRecord) {
			mu.Lock()
			indices = append(indices, rec.ActionIndex)
			mu.Unlock()
			done <- struct{}{}
		}))
	}

	m := newJournaled()
	ids := seatPlayers(t, m, 2)
	<-done
	<-done
	_, err := m.ChooseDealerByID(ctx, ids[0], ids[0])
	require.NoError(t, err)
	<-done

	// A fresh manager over the same store continues numbering after the
	// last journaled action instead of starting over at 1.
	restored := newJournaled()
	require.NoError(t, restored.Deal(ctx, ids[0]))
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, indices)
	assert.Equal(t, 4, indices[len(indices)-1], "post-restart action gets the next index")
}
