package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pokerhost/dealer/internal/cache"
	"github.com/pokerhost/dealer/internal/game"
	"github.com/pokerhost/dealer/internal/models"
)

// ActionLogger journals an applied mutation. Best-effort: the manager fires
// it asynchronously and ignores failures beyond logging.
type ActionLogger func(ctx context.Context, record cache.ActionRecord)

// Manager is the coordinator that owns the single table and its blind
// clock. Every mutation entry point runs inside one mutex, so commands are
// fully validated and applied one at a time no matter how many connections
// race their asynchronous pre-checks. On success the manager persists a
// snapshot; persistence failure is logged but the in-memory state remains
// the operative truth for the running process.
type Manager struct {
	mu    sync.Mutex
	table *game.Table
	clock *game.Clock

	blindLevel  int
	actionIndex int

	store     Store
	logger    *logrus.Logger
	logAction ActionLogger

	clockDuration time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithActionLogger attaches an action journal sink.
func WithActionLogger(fn ActionLogger) Option {
	return func(m *Manager) { m.logAction = fn }
}

// WithClockDuration overrides the blind level duration.
func WithClockDuration(d time.Duration) Option {
	return func(m *Manager) { m.clockDuration = d }
}

// NewManager builds a coordinator and rehydrates it from the durable record
// if one exists. A missing record means "start fresh", never an error.
func NewManager(ctx context.Context, store Store, logger *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		logger:        logger,
		clockDuration: game.DefaultBlindDuration,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.table = game.NewTable()
	m.clock = game.NewClock(m.clockDuration)
	m.load(ctx)
	return m
}

func (m *Manager) load(ctx context.Context) {
	rec, err := m.store.Load(ctx, Key)
	if err != nil {
		m.logger.Warnf("failed to load session state, starting fresh: %v", err)
		return
	}
	if rec == nil {
		m.logger.Info("no saved session state, starting fresh")
		return
	}

	var t game.Table
	if err := json.Unmarshal(rec.Game, &t); err != nil {
		m.logger.Warnf("corrupt session record, starting fresh: %v", err)
		return
	}
	t.Normalize()
	m.table = &t

	m.clock = game.NewClock(time.Duration(rec.ClockDurationSec) * time.Second)
	m.clock.StartTime = rec.ClockStart
	m.clock.EscalatePending = rec.EscalatePending
	m.blindLevel = rec.BlindLevel
	m.actionIndex = rec.ActionIndex

	m.logger.Infof("loaded session state: %d players, phase %s", len(m.table.Players), m.table.Phase)
}

// persist writes the current snapshot to durable storage. Called with the
// manager lock held, after the mutation has been applied.
func (m *Manager) persist(ctx context.Context) {
	gameJSON, err := json.Marshal(m.table)
	if err != nil {
		m.logger.Errorf("failed to serialize session state: %v", err)
		return
	}
	communityJSON, err := json.Marshal(m.table.CommunityCards)
	if err != nil {
		m.logger.Errorf("failed to serialize community cards: %v", err)
		return
	}

	order := make([]uuid.UUID, len(m.table.Players))
	for i, p := range m.table.Players {
		order[i] = p.ID
	}

	rec := &Record{
		DealerIndex:      m.table.DealerIndex(),
		PlayerOrder:      order,
		Game:             gameJSON,
		CommunityCards:   communityJSON,
		Phase:            string(m.table.Phase),
		CardsDealt:       m.table.CardsDealt,
		ClockStart:       m.clock.StartTime,
		ClockDurationSec: int(m.clock.Duration / time.Second),
		EscalatePending:  m.clock.EscalatePending,
		BlindLevel:       m.blindLevel,
		ActionIndex:      m.actionIndex,
	}
	if err := m.store.Save(ctx, Key, rec); err != nil {
		// The in-memory model stays operative; only restart durability is at risk.
		m.logger.Errorf("failed to persist session state: %v", err)
	}
}

// journal assigns the next action index and publishes a record
// asynchronously. The index advances even with no sink attached, and callers
// journal before persisting so the snapshot always carries the last assigned
// index; a restarted process resumes numbering after it instead of reusing
// it.
func (m *Manager) journal(actor uuid.UUID, actionType string, payload map[string]interface{}) {
	m.actionIndex++
	if m.logAction == nil {
		return
	}
	rec := cache.ActionRecord{
		SessionID:     Key,
		ActionIndex:   m.actionIndex,
		ActorUserID:   actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go m.logAction(context.Background(), rec)
}

// Join seats a player. Returns false when the id was already seated.
func (m *Manager) Join(ctx context.Context, id uuid.UUID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added, err := m.table.AddPlayer(id, name)
	if err != nil {
		return false, err
	}
	if added {
		m.journal(id, "player_join", map[string]interface{}{"name": name})
		m.persist(ctx)
	}
	return added, nil
}

// Remove unseats a player (explicit removal, e.g. logout).
func (m *Manager) Remove(ctx context.Context, id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.table.RemovePlayer(id)
	m.journal(id, "player_remove", nil)
	m.persist(ctx)
}

// Deal starts a new hand. The first deal starts the blind clock; a deal that
// observes a pending escalation advances the blind level and restarts the
// countdown for the new level.
func (m *Manager) Deal(ctx context.Context, actor uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.table.DealCards(); err != nil {
		return err
	}

	if m.clock.ConsumeEscalation() {
		m.blindLevel++
		m.clock.Restart()
	} else {
		m.clock.Start()
	}

	m.journal(actor, "deal_cards", map[string]interface{}{"blindLevel": m.blindLevel})
	m.persist(ctx)
	return nil
}

// FlipNext advances the hand by exactly one reveal step and returns the
// resulting phase. From the river it completes the hand, which rotates the
// dealer and returns the table to waiting.
func (m *Manager) FlipNext(ctx context.Context, actor uuid.UUID) (game.Phase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	switch m.table.Phase {
	case game.PhasePreFlop:
		err = m.table.RevealFlop()
	case game.PhaseFlop:
		err = m.table.RevealTurn()
	case game.PhaseTurn:
		err = m.table.RevealRiver()
	case game.PhaseRiver:
		err = m.table.CompleteHand()
	default:
		err = game.ErrWrongPhase
	}
	if err != nil {
		return m.table.Phase, err
	}

	m.journal(actor, "flip_phase", map[string]interface{}{"phase": string(m.table.Phase)})
	m.persist(ctx)
	return m.table.Phase, nil
}

// ShuffleDeck performs a manual reshuffle between hands.
func (m *Manager) ShuffleDeck(ctx context.Context, actor uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.table.ShuffleDeck(); err != nil {
		return err
	}
	m.journal(actor, "shuffle_deck", nil)
	m.persist(ctx)
	return nil
}

// ChooseRandomDealer uniformly picks a dealer among the seated players.
func (m *Manager) ChooseRandomDealer(ctx context.Context, actor uuid.UUID) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dealer, err := m.table.SelectRandomDealer()
	if err != nil {
		return nil, err
	}
	m.journal(actor, "dealer_random", map[string]interface{}{"dealer": dealer.ID.String()})
	m.persist(ctx)
	return dealer, nil
}

// ChooseDealerByID assigns the dealer seat to the named player.
func (m *Manager) ChooseDealerByID(ctx context.Context, actor, dealerID uuid.UUID) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dealer, err := m.table.SelectDealerByID(dealerID)
	if err != nil {
		return nil, err
	}
	m.journal(actor, "dealer_select", map[string]interface{}{"dealer": dealer.ID.String()})
	m.persist(ctx)
	return dealer, nil
}

// Reorder replaces the seating order with the given permutation.
func (m *Manager) Reorder(ctx context.Context, actor uuid.UUID, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.table.ReorderPlayers(ids); err != nil {
		return err
	}
	m.journal(actor, "reorder_players", nil)
	m.persist(ctx)
	return nil
}

// RevealCards exposes the caller's hand to every viewer. A second reveal is
// a no-op reported as false, with no persist or journal.
func (m *Manager) RevealCards(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	revealed, err := m.table.RevealPlayerCards(id)
	if err != nil || !revealed {
		return revealed, err
	}
	m.journal(id, "reveal_cards", nil)
	m.persist(ctx)
	return true, nil
}

// Fold folds the caller's hand and reports how many dealt hands remain
// unfolded. A second fold is a no-op reported as false.
func (m *Manager) Fold(ctx context.Context, id uuid.UUID) (folded bool, remaining int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	folded, err = m.table.FoldPlayer(id)
	if err != nil || !folded {
		return folded, m.table.PlayersInHand(), err
	}
	m.journal(id, "fold", nil)
	m.persist(ctx)
	return true, m.table.PlayersInHand(), nil
}

// ToggleBroke flips a player's broke status between hands. Returns the new
// status.
func (m *Manager) ToggleBroke(ctx context.Context, actor, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	broke, err := m.table.ToggleBroke(id)
	if err != nil {
		return false, err
	}
	m.journal(actor, "toggle_broke", map[string]interface{}{"player": id.String(), "broke": broke})
	m.persist(ctx)
	return broke, nil
}

// CheckClockExpiry polls the blind clock. True exactly once per expiry; the
// expiry itself is persisted so the latch survives a restart.
func (m *Manager) CheckClockExpiry(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.clock.CheckExpiry() {
		return false
	}
	m.journal(uuid.Nil, "timer_expired", nil)
	m.persist(ctx)
	return true
}

// Reset discards the in-memory table and clock and erases the durable
// record. The session restarts empty.
func (m *Manager) Reset(ctx context.Context, actor uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.table = game.NewTable()
	m.clock = game.NewClock(m.clockDuration)
	m.blindLevel = 0
	if err := m.store.Clear(ctx, Key); err != nil {
		m.logger.Errorf("failed to clear session record: %v", err)
	}
	m.journal(actor, "session_reset", nil)
}

// CanJoin is the hub's pre-check: seats free and no hand live.
func (m *Manager) CanJoin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.table.CardsDealt && len(m.table.Players) < game.MaxPlayers
}

// IsDealer reports whether the id currently occupies the dealer seat.
func (m *Manager) IsDealer(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	dealer := m.table.CurrentDealer()
	return dealer != nil && dealer.ID == id
}

// Blinds returns the current small/big blind amounts for the doubling
// schedule (1/2, 2/4, 4/8, ...).
func (m *Manager) Blinds() game.Blinds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blindsLocked()
}

func (m *Manager) blindsLocked() game.Blinds {
	return game.Blinds{Small: 1 << m.blindLevel, Big: 2 << m.blindLevel}
}

// State builds the per-viewer projection, including blinds and timer state.
// Pass uuid.Nil for the public no-hole-card variant.
func (m *Manager) State(forID uuid.UUID) game.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.table.GameState(forID)
	blinds := m.blindsLocked()
	snap.Blinds = &blinds
	timer := m.clock.State()
	snap.TimerState = &timer
	return snap
}

// PublicState builds the reduced community display projection.
func (m *Manager) PublicState() game.PublicSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.PublicState()
}
