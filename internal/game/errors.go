package game

import "errors"

// Validation errors returned by session model operations. The hub reports
// these to the originating connection only; none of them mutate state.
var (
	// ErrDealInProgress rejects roster changes while a hand is live.
	ErrDealInProgress = errors.New("cards have already been dealt for this hand")

	// ErrRosterFull rejects joins beyond the 10-seat cap.
	ErrRosterFull = errors.New("maximum 10 players allowed")

	// ErrNotEnoughPlayers rejects a deal with fewer than 2 active players.
	ErrNotEnoughPlayers = errors.New("need at least 2 active players to deal")

	// ErrPlayerNotFound indicates an id that is not seated at the table.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrInvalidRoster rejects a reorder whose id list is not a permutation
	// of the current roster.
	ErrInvalidRoster = errors.New("player ids do not match the current roster")

	// ErrNoDealer rejects operations that require a dealer seat to be set.
	ErrNoDealer = errors.New("no dealer selected")

	// ErrDealerAlreadySet rejects a random dealer pick while a dealer exists.
	ErrDealerAlreadySet = errors.New("dealer has already been selected")

	// ErrWrongPhase rejects a reveal attempted out of phase order.
	ErrWrongPhase = errors.New("operation not allowed in the current phase")

	// ErrInsufficientCards signals deck underflow. A 52-card deck with at
	// most 10 players cannot hit this during a normal hand.
	ErrInsufficientCards = errors.New("not enough cards remaining in deck")

	// ErrNoPlayers rejects a random dealer pick at an empty table.
	ErrNoPlayers = errors.New("no players in game to select as dealer")
)
