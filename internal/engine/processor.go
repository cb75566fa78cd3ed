package engine

import "github.com/lox/ploroom/internal/deck"

// ProcessOptions carries per-table settings the processor applies.
type ProcessOptions struct {
	Rake RakeConfig
}

// ProcessCommand is the sole bridge between the engine and the transport
// layer. It applies one command and returns the resulting state with the
// events it produced, in a stable order: the input-derived event first,
// then structural transitions, then the terminal HAND_COMPLETED.
//
// Invalid input returns the state unchanged with no events. The input
// state is never mutated.
func ProcessCommand(state *HandState, cmd Command, opts ProcessOptions) (*HandState, []Event) {
	switch c := cmd.(type) {
	case StartHandCmd:
		return processStartHand(state, opts)
	case PlayerActionCmd:
		return processPlayerAction(state, c.Seat, c.Action, c.Amount, opts)
	case TimeoutCmd:
		return processTimeout(state, c.Seat, opts)
	default:
		return state, nil
	}
}

func processStartHand(state *HandState, opts ProcessOptions) (*HandState, []Event) {
	// Blinds are posted the moment a hand starts, so a non-zero pot
	// means a hand is already in progress.
	if state == nil || state.Pot > 0 || state.IsHandComplete {
		return state, nil
	}

	next, err := StartNewHand(state, opts.Rake)
	if err != nil {
		return state, nil
	}

	holeCards := make(map[int][4]deck.Card)
	for i, p := range next.Players {
		if p != nil && p.InHand {
			holeCards[i] = p.HoleCards
		}
	}

	events := []Event{HandStarted{DealerSeat: next.DealerPosition, HoleCards: holeCards}}
	events = append(events, structuralEvents(state, next)...)
	return next, events
}

func processPlayerAction(state *HandState, seat int, action ActionType, amount int, opts ProcessOptions) (*HandState, []Event) {
	if state == nil || state.IsHandComplete {
		return state, nil
	}

	next, err := ApplyAction(state, seat, action, amount, opts.Rake)
	if err != nil {
		return state, nil
	}

	applied := next.HandHistory[len(next.HandHistory)-1]
	events := []Event{ActionApplied{Seat: applied.Seat, Action: applied.Action, Amount: applied.Amount}}
	events = append(events, structuralEvents(state, next)...)
	return next, events
}

func processTimeout(state *HandState, seat int, opts ProcessOptions) (*HandState, []Event) {
	if state == nil || state.IsHandComplete || seat != state.CurrentPlayerIndex {
		return state, nil
	}

	action := Fold
	for _, va := range GetValidActions(state, seat) {
		if va.Action == Check {
			action = Check
			break
		}
	}
	return processPlayerAction(state, seat, action, 0, opts)
}

// ProcessForceFold folds a seat out of turn (disconnect, fast-fold) and
// emits the same event sequence an in-turn fold would. A no-op for seats
// already out of the hand.
func ProcessForceFold(state *HandState, seat int, opts ProcessOptions) (*HandState, []Event) {
	if state == nil || state.IsHandComplete {
		return state, nil
	}

	next := ForceFold(state, seat, opts.Rake)
	if next == state {
		return state, nil
	}

	events := []Event{ActionApplied{Seat: seat, Action: Fold}}
	events = append(events, structuralEvents(state, next)...)
	return next, events
}

// structuralEvents derives street/runout/showdown/completion events by
// comparing the prior and resulting states.
func structuralEvents(prev, next *HandState) []Event {
	var events []Event
	grew := len(next.CommunityCards) > len(prev.CommunityCards)

	if next.IsHandComplete {
		if grew {
			events = append(events, AllInRunout{
				CommunityCards: append([]deck.Card(nil), next.CommunityCards...),
			})
		}
		if next.LiveCount() > 1 {
			events = append(events, ShowdownReached{})
		}
		events = append(events, HandCompleted{Winners: next.Winners, Rake: next.Rake})
		return events
	}

	if next.CurrentStreet != prev.CurrentStreet && grew {
		events = append(events, StreetAdvanced{
			Street:   next.CurrentStreet,
			NewCards: next.CommunityCards[len(prev.CommunityCards):],
		})
	}
	return events
}
