package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ploroom/internal/deck"
)

func eventNames(events []Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName()
	}
	return names
}

func TestProcessStartHand(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	next, events := ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	require.NotSame(t, state, next)
	require.Len(t, events, 1)
	started, ok := events[0].(HandStarted)
	require.True(t, ok)
	assert.Equal(t, 0, started.DealerSeat)
	assert.Len(t, started.HoleCards, 3)
}

func TestProcessStartHandIdempotent(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	next, _ := ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	// Blinds are in the pot; a second start must be a no-op.
	again, events := ProcessCommand(next, StartHandCmd{}, ProcessOptions{})
	assert.Same(t, next, again)
	assert.Nil(t, events)
}

func TestProcessInvalidActionNoEvents(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	state, _ = ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	// Out of turn.
	next, events := ProcessCommand(state, PlayerActionCmd{Seat: 1, Action: Call}, ProcessOptions{})
	assert.Same(t, state, next)
	assert.Nil(t, events)

	// Illegal amount.
	next, events = ProcessCommand(state, PlayerActionCmd{Seat: 0, Action: Raise, Amount: 4}, ProcessOptions{})
	assert.Same(t, state, next)
	assert.Nil(t, events)
}

func TestProcessWalkOverEvents(t *testing.T) {
	opts := ProcessOptions{Rake: RakeConfig{Percent: 0.05, CapBB: 1}}
	state := newTestHand(t, 300, 300, 300)
	state, _ = ProcessCommand(state, StartHandCmd{}, opts)

	state, events := ProcessCommand(state, PlayerActionCmd{Seat: 0, Action: Fold}, opts)
	assert.Equal(t, []string{"ACTION_APPLIED"}, eventNames(events))

	state, events = ProcessCommand(state, PlayerActionCmd{Seat: 1, Action: Fold}, opts)
	require.Equal(t, []string{"ACTION_APPLIED", "HAND_COMPLETED"}, eventNames(events))

	completed := events[1].(HandCompleted)
	require.Len(t, completed.Winners, 1)
	assert.Equal(t, Winner{Seat: 2, Amount: 4}, completed.Winners[0])
	assert.Equal(t, 0, completed.Rake)
	assert.True(t, state.IsHandComplete)
}

func TestProcessStreetAdvanceEventOrder(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	state, _ = ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	var all []string
	apply := func(seat int, action ActionType) {
		var events []Event
		state, events = ProcessCommand(state, PlayerActionCmd{Seat: seat, Action: action}, ProcessOptions{})
		all = append(all, eventNames(events)...)
	}

	apply(0, Call)
	apply(1, Call)
	apply(2, Check) // closes preflop
	apply(1, Check)
	apply(2, Check)
	apply(0, Check) // closes flop
	apply(1, Check)
	apply(2, Check)
	apply(0, Check) // closes turn
	apply(1, Check)
	apply(2, Check)
	apply(0, Check) // closes river, showdown

	var streets, showdowns, completed int
	for i, name := range all {
		switch name {
		case "STREET_ADVANCED":
			streets++
		case "SHOWDOWN_REACHED":
			showdowns++
		case "HAND_COMPLETED":
			completed++
			assert.Equal(t, len(all)-1, i, "HAND_COMPLETED must be last")
		case "ALL_IN_RUNOUT":
			t.Fatalf("unexpected runout in a checked-down hand")
		}
	}
	assert.Equal(t, 3, streets)
	assert.Equal(t, 1, showdowns)
	assert.Equal(t, 1, completed)

	// Each street event follows its closing action immediately.
	for i, name := range all {
		if name == "STREET_ADVANCED" {
			assert.Equal(t, "ACTION_APPLIED", all[i-1])
		}
	}
}

func TestProcessStreetAdvancedCards(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	state, _ = ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	state, _ = ProcessCommand(state, PlayerActionCmd{Seat: 0, Action: Call}, ProcessOptions{})
	state, _ = ProcessCommand(state, PlayerActionCmd{Seat: 1, Action: Call}, ProcessOptions{})
	state, events := ProcessCommand(state, PlayerActionCmd{Seat: 2, Action: Check}, ProcessOptions{})

	require.Len(t, events, 2)
	advanced := events[1].(StreetAdvanced)
	assert.Equal(t, Flop, advanced.Street)
	assert.Len(t, advanced.NewCards, 3)
	assert.Equal(t, state.CommunityCards, advanced.NewCards)
}

func TestProcessAllInRunoutEvents(t *testing.T) {
	state := newTestHand(t, 100, 100)
	state, _ = ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	state, events := ProcessCommand(state, PlayerActionCmd{Seat: 0, Action: AllIn}, ProcessOptions{})
	assert.Equal(t, []string{"ACTION_APPLIED"}, eventNames(events))

	state, events = ProcessCommand(state, PlayerActionCmd{Seat: 1, Action: AllIn}, ProcessOptions{})
	require.Equal(t, []string{"ACTION_APPLIED", "ALL_IN_RUNOUT", "SHOWDOWN_REACHED", "HAND_COMPLETED"}, eventNames(events))

	runout := events[1].(AllInRunout)
	assert.Len(t, runout.CommunityCards, 5)
	assert.True(t, state.IsHandComplete)
}

func TestProcessTimeoutChecksWhenFree(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	state, _ = ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	state, _ = ProcessCommand(state, PlayerActionCmd{Seat: 0, Action: Call}, ProcessOptions{})
	state, _ = ProcessCommand(state, PlayerActionCmd{Seat: 1, Action: Call}, ProcessOptions{})

	// Big blind faces no bet: the timeout checks.
	state, events := ProcessCommand(state, TimeoutCmd{Seat: 2}, ProcessOptions{})
	require.NotEmpty(t, events)
	applied := events[0].(ActionApplied)
	assert.Equal(t, Check, applied.Action)
	assert.Equal(t, 2, applied.Seat)
	assert.False(t, state.Players[2].Folded)
}

func TestProcessTimeoutFoldsWhenFacingBet(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	state, _ = ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	state, events := ProcessCommand(state, TimeoutCmd{Seat: 0}, ProcessOptions{})
	require.NotEmpty(t, events)
	applied := events[0].(ActionApplied)
	assert.Equal(t, Fold, applied.Action)
	assert.True(t, state.Players[0].Folded)
}

func TestProcessTimeoutWrongSeatIgnored(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	state, _ = ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	next, events := ProcessCommand(state, TimeoutCmd{Seat: 1}, ProcessOptions{})
	assert.Same(t, state, next)
	assert.Nil(t, events)
}

func TestProcessForceFoldEvents(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	state, _ = ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	next, events := ProcessForceFold(state, 1, ProcessOptions{})
	require.NotSame(t, state, next)
	require.NotEmpty(t, events)
	applied := events[0].(ActionApplied)
	assert.Equal(t, Fold, applied.Action)
	assert.Equal(t, 1, applied.Seat)

	// Already folded: no-op, no events.
	again, events := ProcessForceFold(next, 1, ProcessOptions{})
	assert.Same(t, next, again)
	assert.Nil(t, events)
}

func TestProcessForceFoldCompletesHand(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	state, _ = ProcessCommand(state, StartHandCmd{}, ProcessOptions{})
	state, _ = ProcessCommand(state, PlayerActionCmd{Seat: 0, Action: Fold}, ProcessOptions{})

	_, events := ProcessForceFold(state, 1, ProcessOptions{})
	names := eventNames(events)
	require.NotEmpty(t, names)
	assert.Equal(t, "HAND_COMPLETED", names[len(names)-1])
}

func TestProcessNilState(t *testing.T) {
	next, events := ProcessCommand(nil, StartHandCmd{}, ProcessOptions{})
	assert.Nil(t, next)
	assert.Nil(t, events)

	next, events = ProcessForceFold(nil, 0, ProcessOptions{})
	assert.Nil(t, next)
	assert.Nil(t, events)
}

func TestProcessHoleCardsMatchState(t *testing.T) {
	state := newTestHand(t, 300, 300, 300)
	next, events := ProcessCommand(state, StartHandCmd{}, ProcessOptions{})

	started := events[0].(HandStarted)
	for seat, cards := range started.HoleCards {
		assert.Equal(t, next.Players[seat].HoleCards, cards)
		assert.NotEqual(t, deck.Card{}, cards[3])
	}
}
