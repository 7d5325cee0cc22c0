package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pokerhost/dealer/internal/models"
)

// Phase is the hand lifecycle state. Transitions travel in exactly one
// direction: waiting -> pre-flop -> flop -> turn -> river -> complete, and
// complete collapses back to waiting inside the same operation.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePreFlop  Phase = "pre-flop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseComplete Phase = "complete"
)

// MaxPlayers caps the roster.
const MaxPlayers = 10

// Table holds the authoritative state for the single shared session. It is
// not safe for concurrent use; the session manager serializes every mutation
// behind its own lock.
//
// The dealer is tracked by player identity, not by roster index, so roster
// mutations can never leave a stale index behind. DealerIndex resolves the
// identity to a seat at the projection boundary.
type Table struct {
	Players        []*models.Player            `json:"players"`
	DealerID       uuid.UUID                   `json:"dealerId"`
	Deck           *Deck                       `json:"deck"`
	CommunityCards []*models.Card              `json:"communityCards"`
	PlayerHands    map[uuid.UUID][]*models.Card `json:"playerHands"`
	RevealedHands  map[uuid.UUID]bool          `json:"revealedHands"`
	FoldedPlayers  map[uuid.UUID]bool          `json:"foldedPlayers"`
	BrokePlayers   map[uuid.UUID]bool          `json:"brokePlayers"`
	Phase          Phase                       `json:"phase"`
	CardsDealt     bool                        `json:"cardsDealt"`

	rng *rand.Rand
}

// NewTable builds an empty table in the waiting phase.
func NewTable() *Table {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return newTable(rng)
}

// NewTableWithRand builds a table with a caller-supplied random source, for
// deterministic tests.
func NewTableWithRand(rng *rand.Rand) *Table {
	return newTable(rng)
}

func newTable(rng *rand.Rand) *Table {
	return &Table{
		Players:       []*models.Player{},
		Deck:          NewDeckWithRand(rng),
		PlayerHands:   make(map[uuid.UUID][]*models.Card),
		RevealedHands: make(map[uuid.UUID]bool),
		FoldedPlayers: make(map[uuid.UUID]bool),
		BrokePlayers:  make(map[uuid.UUID]bool),
		Phase:         PhaseWaiting,
		rng:           rng,
	}
}

// Normalize repairs nil maps and zero-value fields after a JSON rehydration.
func (t *Table) Normalize() {
	if t.PlayerHands == nil {
		t.PlayerHands = make(map[uuid.UUID][]*models.Card)
	}
	if t.RevealedHands == nil {
		t.RevealedHands = make(map[uuid.UUID]bool)
	}
	if t.FoldedPlayers == nil {
		t.FoldedPlayers = make(map[uuid.UUID]bool)
	}
	if t.BrokePlayers == nil {
		t.BrokePlayers = make(map[uuid.UUID]bool)
	}
	if t.Deck == nil {
		t.Deck = NewDeck()
	}
	if t.Phase == "" {
		t.Phase = PhaseWaiting
	}
}

func (t *Table) random() *rand.Rand {
	if t.rng == nil {
		t.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return t.rng
}

// AddPlayer appends a player to the roster. Returns false (and no error) if
// the id is already seated.
func (t *Table) AddPlayer(id uuid.UUID, name string) (bool, error) {
	if t.CardsDealt {
		return false, ErrDealInProgress
	}
	if len(t.Players) >= MaxPlayers {
		return false, ErrRosterFull
	}
	for _, p := range t.Players {
		if p.ID == id {
			return false, nil
		}
	}
	t.Players = append(t.Players, &models.Player{ID: id, Name: name})
	return true, nil
}

// RemovePlayer drops a player from the roster along with any hand and status
// they held. Removing the current dealer leaves the table with no dealer; a
// replacement must be selected explicitly.
func (t *Table) RemovePlayer(id uuid.UUID) {
	idx := t.playerIndex(id)
	if idx == -1 {
		return
	}
	t.Players = append(t.Players[:idx], t.Players[idx+1:]...)
	delete(t.PlayerHands, id)
	delete(t.RevealedHands, id)
	delete(t.FoldedPlayers, id)
	delete(t.BrokePlayers, id)
	if t.DealerID == id {
		t.DealerID = uuid.Nil
	}
}

func (t *Table) playerIndex(id uuid.UUID) int {
	for i, p := range t.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// PlayerByID returns the seated player with the given id, or nil.
func (t *Table) PlayerByID(id uuid.UUID) *models.Player {
	if idx := t.playerIndex(id); idx != -1 {
		return t.Players[idx]
	}
	return nil
}

// DealerIndex resolves the dealer identity to a seat index, or -1.
func (t *Table) DealerIndex() int {
	if t.DealerID == uuid.Nil {
		return -1
	}
	return t.playerIndex(t.DealerID)
}

// CurrentDealer returns the dealer, or nil when no dealer is set.
func (t *Table) CurrentDealer() *models.Player {
	if idx := t.DealerIndex(); idx != -1 {
		return t.Players[idx]
	}
	return nil
}

// SelectRandomDealer uniformly picks a dealer among the current players.
// Only legal while no dealer is set and no hand is live.
func (t *Table) SelectRandomDealer() (*models.Player, error) {
	if t.CardsDealt {
		return nil, ErrDealInProgress
	}
	if t.DealerID != uuid.Nil {
		return nil, ErrDealerAlreadySet
	}
	if len(t.Players) == 0 {
		return nil, ErrNoPlayers
	}
	p := t.Players[t.random().Intn(len(t.Players))]
	t.DealerID = p.ID
	return p, nil
}

// SelectDealerByID assigns the dealer seat to the named player. Reassignment
// is allowed as long as no hand is live.
func (t *Table) SelectDealerByID(id uuid.UUID) (*models.Player, error) {
	if t.CardsDealt {
		return nil, ErrDealInProgress
	}
	p := t.PlayerByID(id)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	t.DealerID = id
	return p, nil
}

// ReorderPlayers replaces the seating order. The id list must be exactly a
// permutation of the current roster. The dealer follows their identity to
// wherever the new order puts them.
func (t *Table) ReorderPlayers(ids []uuid.UUID) error {
	if t.CardsDealt {
		return ErrDealInProgress
	}
	if t.DealerID == uuid.Nil {
		return ErrNoDealer
	}
	if len(ids) != len(t.Players) {
		return ErrInvalidRoster
	}
	byID := make(map[uuid.UUID]*models.Player, len(t.Players))
	for _, p := range t.Players {
		byID[p.ID] = p
	}
	reordered := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return ErrInvalidRoster
		}
		reordered = append(reordered, p)
		delete(byID, id) // reject duplicate ids
	}
	t.Players = reordered
	return nil
}

// ShuffleDeck resets and reshuffles without dealing.
func (t *Table) ShuffleDeck() error {
	if t.CardsDealt {
		return ErrDealInProgress
	}
	t.Deck.Reset()
	t.Deck.Shuffle()
	return nil
}

// IsActive reports whether a seated player is eligible to receive cards.
func (t *Table) IsActive(id uuid.UUID) bool {
	return !t.BrokePlayers[id]
}

// ActivePlayers returns the seated, non-broke players in seat order.
func (t *Table) ActivePlayers() []*models.Player {
	var active []*models.Player
	for _, p := range t.Players {
		if t.IsActive(p.ID) {
			active = append(active, p)
		}
	}
	return active
}

// ActivePlayerCount counts seated players not currently marked broke.
func (t *Table) ActivePlayerCount() int {
	return len(t.ActivePlayers())
}

// PlayersInHand counts players who were dealt cards and have not folded.
func (t *Table) PlayersInHand() int {
	n := 0
	for id := range t.PlayerHands {
		if !t.FoldedPlayers[id] {
			n++
		}
	}
	return n
}

// DealCards starts a new hand: fresh shuffled deck, 2 hole cards to every
// active player, 5 face-down community cards. Prior hands, reveals, and
// folds are cleared; broke status persists.
func (t *Table) DealCards() error {
	if t.CardsDealt {
		return ErrDealInProgress
	}
	if t.Phase != PhaseWaiting && t.Phase != PhaseComplete {
		return ErrWrongPhase
	}
	active := t.ActivePlayers()
	if len(active) < 2 {
		return ErrNotEnoughPlayers
	}

	t.Deck.Reset()
	t.Deck.Shuffle()

	t.PlayerHands = make(map[uuid.UUID][]*models.Card)
	t.RevealedHands = make(map[uuid.UUID]bool)
	t.FoldedPlayers = make(map[uuid.UUID]bool)
	t.CommunityCards = nil

	for _, p := range active {
		hole, err := t.Deck.Deal(2)
		if err != nil {
			return err
		}
		for _, c := range hole {
			c.Visible = true // visible to the owner only; projection enforces it
		}
		t.PlayerHands[p.ID] = hole
	}

	community, err := t.Deck.Deal(5)
	if err != nil {
		return err
	}
	t.CommunityCards = community

	t.Phase = PhasePreFlop
	t.CardsDealt = true
	return nil
}

// RevealFlop flips the first three community cards. Legal only from pre-flop.
func (t *Table) RevealFlop() error {
	if t.Phase != PhasePreFlop {
		return ErrWrongPhase
	}
	for i := 0; i < 3; i++ {
		t.CommunityCards[i].Visible = true
	}
	t.Phase = PhaseFlop
	return nil
}

// RevealTurn flips the fourth community card. Legal only from flop.
func (t *Table) RevealTurn() error {
	if t.Phase != PhaseFlop {
		return ErrWrongPhase
	}
	t.CommunityCards[3].Visible = true
	t.Phase = PhaseTurn
	return nil
}

// RevealRiver flips the fifth community card. Legal only from turn.
func (t *Table) RevealRiver() error {
	if t.Phase != PhaseTurn {
		return ErrWrongPhase
	}
	t.CommunityCards[4].Visible = true
	t.Phase = PhaseRiver
	return nil
}

// CompleteHand finishes the hand: clears per-hand state, rotates the dealer
// one seat clockwise, and returns the table to waiting. The complete phase
// is transient and never observable from outside this call.
func (t *Table) CompleteHand() error {
	if t.Phase != PhaseRiver {
		return ErrWrongPhase
	}
	t.Phase = PhaseComplete
	t.CardsDealt = false
	t.PlayerHands = make(map[uuid.UUID][]*models.Card)
	t.RevealedHands = make(map[uuid.UUID]bool)
	t.FoldedPlayers = make(map[uuid.UUID]bool)
	t.CommunityCards = nil
	t.rotateDealer()
	t.Phase = PhaseWaiting
	return nil
}

// rotateDealer advances the dealer to the next seat, wrapping, regardless of
// broke or folded status. With no dealer set it falls back to seat 0.
func (t *Table) rotateDealer() {
	if len(t.Players) == 0 {
		t.DealerID = uuid.Nil
		return
	}
	idx := t.DealerIndex()
	if idx == -1 {
		t.DealerID = t.Players[0].ID
		return
	}
	t.DealerID = t.Players[(idx+1)%len(t.Players)].ID
}

// RevealPlayerCards voluntarily exposes a player's hand to every viewer.
// Returns false if the hand is already revealed (a no-op, not an error).
func (t *Table) RevealPlayerCards(id uuid.UUID) (bool, error) {
	if !t.CardsDealt {
		return false, ErrWrongPhase
	}
	if _, ok := t.PlayerHands[id]; !ok {
		return false, ErrPlayerNotFound
	}
	if t.RevealedHands[id] {
		return false, nil
	}
	t.RevealedHands[id] = true
	return true, nil
}

// FoldPlayer marks a player's hand as folded for the rest of this hand.
// Returns false if already folded.
func (t *Table) FoldPlayer(id uuid.UUID) (bool, error) {
	if !t.CardsDealt {
		return false, ErrWrongPhase
	}
	if _, ok := t.PlayerHands[id]; !ok {
		return false, ErrPlayerNotFound
	}
	if t.FoldedPlayers[id] {
		return false, nil
	}
	t.FoldedPlayers[id] = true
	return true, nil
}

// ToggleBroke flips a seated player's broke status. Broke controls who is
// dealt into the next hand, so it can only change between hands. Returns the
// new status.
func (t *Table) ToggleBroke(id uuid.UUID) (bool, error) {
	if t.CardsDealt {
		return false, ErrDealInProgress
	}
	if t.playerIndex(id) == -1 {
		return false, ErrPlayerNotFound
	}
	if t.BrokePlayers[id] {
		delete(t.BrokePlayers, id)
		return false, nil
	}
	t.BrokePlayers[id] = true
	return true, nil
}

// BlindSeats computes the small and big blind seat indexes, or (-1, -1) when
// they cannot be assigned. Blinds are derived, never stored.
//
// Heads-up (exactly 2 active): the dealer posts the small blind when active;
// a broke dealer passes it to the first active seat found scanning clockwise
// from the dealer. The other active player posts the big blind. With 3+
// active players the small blind is the first active seat clockwise after
// the dealer and the big blind the first active seat after that. Broke
// players are skipped entirely when scanning.
func (t *Table) BlindSeats() (small, big int) {
	small, big = -1, -1
	dealerIdx := t.DealerIndex()
	if dealerIdx == -1 {
		return small, big
	}
	active := t.ActivePlayerCount()
	if active < 2 {
		return small, big
	}
	if active == 2 {
		if t.IsActive(t.Players[dealerIdx].ID) {
			small = dealerIdx
		} else {
			small = t.nextActiveSeat(dealerIdx)
		}
		big = t.nextActiveSeat(small)
		return small, big
	}

	small = t.nextActiveSeat(dealerIdx)
	big = t.nextActiveSeat(small)
	return small, big
}

// nextActiveSeat returns the first non-broke seat strictly clockwise after
// from, or -1 when none exists.
func (t *Table) nextActiveSeat(from int) int {
	n := len(t.Players)
	for step := 1; step <= n; step++ {
		idx := (from + step) % n
		if t.IsActive(t.Players[idx].ID) {
			return idx
		}
	}
	return -1
}
