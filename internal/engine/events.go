package engine

import "github.com/lox/ploroom/internal/deck"

// Command is the tagged union of inputs the processor accepts.
type Command interface {
	CommandName() string
}

// StartHandCmd begins a new hand on a freshly built hand state.
type StartHandCmd struct{}

func (StartHandCmd) CommandName() string { return "START_HAND" }

// PlayerActionCmd is a seat's betting decision.
type PlayerActionCmd struct {
	Seat   int
	Action ActionType
	Amount int
}

func (PlayerActionCmd) CommandName() string { return "PLAYER_ACTION" }

// TimeoutCmd is a server-originated action deadline expiry: the seat
// checks when legal, otherwise folds.
type TimeoutCmd struct {
	Seat int
}

func (TimeoutCmd) CommandName() string { return "TIMEOUT" }

// Event is the tagged union of outputs the processor emits.
type Event interface {
	EventName() string
}

// HandStarted announces the new hand. HoleCards is keyed by seat and
// must only ever be unicast per seat.
type HandStarted struct {
	DealerSeat int
	HoleCards  map[int][4]deck.Card
}

func (HandStarted) EventName() string { return "HAND_STARTED" }

// ActionApplied reports an accepted betting action.
type ActionApplied struct {
	Seat   int
	Action ActionType
	Amount int
}

func (ActionApplied) EventName() string { return "ACTION_APPLIED" }

// StreetAdvanced reports a street transition with the newly revealed
// community cards.
type StreetAdvanced struct {
	Street   Street
	NewCards []deck.Card
}

func (StreetAdvanced) EventName() string { return "STREET_ADVANCED" }

// AllInRunout reports that the remaining board was dealt atomically
// because no further betting was possible.
type AllInRunout struct {
	CommunityCards []deck.Card
}

func (AllInRunout) EventName() string { return "ALL_IN_RUNOUT" }

// ShowdownReached reports that more than one live hand reached showdown.
type ShowdownReached struct{}

func (ShowdownReached) EventName() string { return "SHOWDOWN_REACHED" }

// HandCompleted is always the final event of a hand.
type HandCompleted struct {
	Winners []Winner
	Rake    int
}

func (HandCompleted) EventName() string { return "HAND_COMPLETED" }
