package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ploroom/internal/deck"
)

// newTestHand builds a pre-deal state for len(chips) seats with blinds
// 1/3 and an ordered deck. StartNewHand advances the dealer to seat 0.
func newTestHand(t *testing.T, chips ...int) *HandState {
	t.Helper()
	return newTestHandWithDeck(t, deck.NewOrdered(), chips...)
}

func newTestHandWithDeck(t *testing.T, d *deck.Deck, chips ...int) *HandState {
	t.Helper()
	require.LessOrEqual(t, len(chips), NumSeats)

	var seats [NumSeats]*SeatState
	for i, c := range chips {
		seats[i] = &SeatState{
			UserID: fmt.Sprintf("user-%d", i),
			Name:   fmt.Sprintf("player-%d", i),
			Chips:  c,
			BuyIn:  c,
			InHand: true,
		}
	}
	return NewHandState(seats, -1, 1, 3, d)
}

// totalChips sums seat stacks plus the pot still in the middle.
func totalChips(h *HandState) int {
	total := h.Pot
	for _, p := range h.Players {
		if p != nil {
			total += p.Chips
		}
	}
	return total
}

func mustApply(t *testing.T, h *HandState, seat int, action ActionType, amount int) *HandState {
	t.Helper()
	next, err := ApplyAction(h, seat, action, amount, RakeConfig{})
	require.NoError(t, err)
	return next
}

func TestStartNewHandPositions(t *testing.T) {
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), RakeConfig{})
	require.NoError(t, err)

	assert.Equal(t, 0, h.DealerPosition)
	// SB seat 1 posted 1, BB seat 2 posted 3.
	assert.Equal(t, 299, h.Players[1].Chips)
	assert.Equal(t, 297, h.Players[2].Chips)
	assert.Equal(t, 4, h.Pot)
	assert.Equal(t, 3, h.CurrentBet)
	// UTG acts first at three-handed.
	assert.Equal(t, 0, h.CurrentPlayerIndex)

	for i := 0; i < 3; i++ {
		for _, c := range h.Players[i].HoleCards {
			assert.NotEqual(t, deck.Card{}, c, "seat %d missing hole cards", i)
		}
	}
	assert.Equal(t, 900, totalChips(h))
}

func TestStartNewHandHeadsUpButtonPostsSmallBlind(t *testing.T) {
	h, err := StartNewHand(newTestHand(t, 100, 100), RakeConfig{})
	require.NoError(t, err)

	assert.Equal(t, 0, h.DealerPosition)
	assert.Equal(t, 99, h.Players[0].Chips, "button posts the small blind heads-up")
	assert.Equal(t, 97, h.Players[1].Chips)
	// The button acts first preflop.
	assert.Equal(t, 0, h.CurrentPlayerIndex)
}

func TestStartNewHandNeedsTwoPlayers(t *testing.T) {
	state := newTestHand(t, 300)
	next, err := StartNewHand(state, RakeConfig{})
	assert.Error(t, err)
	assert.Same(t, state, next)
}

func TestApplyActionDoesNotMutateInput(t *testing.T) {
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), RakeConfig{})
	require.NoError(t, err)

	before := h.Clone()
	_ = mustApply(t, h, 0, Call, 0)

	assert.Equal(t, before.Pot, h.Pot)
	assert.Equal(t, before.Players[0].Chips, h.Players[0].Chips)
	assert.Equal(t, before.CurrentPlayerIndex, h.CurrentPlayerIndex)
}

func TestInvalidActionReturnsInputUnchanged(t *testing.T) {
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), RakeConfig{})
	require.NoError(t, err)

	// Out of turn.
	next, err := ApplyAction(h, 1, Call, 0, RakeConfig{})
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Same(t, h, next)

	// Check while facing a bet.
	next, err = ApplyAction(h, 0, Check, 0, RakeConfig{})
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Same(t, h, next)

	// Raise below the minimum.
	next, err = ApplyAction(h, 0, Raise, 4, RakeConfig{})
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Same(t, h, next)
}

func TestWalkOverFoldsToBigBlind(t *testing.T) {
	rake := RakeConfig{Percent: 0.05, CapBB: 1}
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), rake)
	require.NoError(t, err)

	h, err = ApplyAction(h, 0, Fold, 0, rake)
	require.NoError(t, err)
	assert.False(t, h.IsHandComplete)

	h, err = ApplyAction(h, 1, Fold, 0, rake)
	require.NoError(t, err)

	require.True(t, h.IsHandComplete)
	require.Len(t, h.Winners, 1)
	assert.Equal(t, Winner{Seat: 2, Amount: 4}, h.Winners[0])
	// No rake on a preflop walk-over.
	assert.Equal(t, 0, h.Rake)

	assert.Equal(t, 300, h.Players[0].Chips)
	assert.Equal(t, 299, h.Players[1].Chips)
	assert.Equal(t, 301, h.Players[2].Chips)
	assert.Equal(t, 900, totalChips(h)-h.Pot)
}

func TestAllCallToShowdown(t *testing.T) {
	rake := RakeConfig{Percent: 0.05, CapBB: 1}
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), rake)
	require.NoError(t, err)

	// Preflop: UTG calls 3, SB completes, BB checks.
	h, err = ApplyAction(h, 0, Call, 0, rake)
	require.NoError(t, err)
	h, err = ApplyAction(h, 1, Call, 0, rake)
	require.NoError(t, err)
	h, err = ApplyAction(h, 2, Check, 0, rake)
	require.NoError(t, err)

	assert.Equal(t, Flop, h.CurrentStreet)
	assert.Len(t, h.CommunityCards, 3)
	assert.Equal(t, 9, h.Pot)
	// First to act postflop is the small blind.
	assert.Equal(t, 1, h.CurrentPlayerIndex)

	for _, street := range []struct {
		name  Street
		cards int
	}{{Turn, 4}, {River, 5}} {
		for _, seat := range []int{1, 2, 0} {
			h, err = ApplyAction(h, seat, Check, 0, rake)
			require.NoError(t, err)
		}
		assert.Equal(t, street.name, h.CurrentStreet)
		assert.Len(t, h.CommunityCards, street.cards)
	}

	for _, seat := range []int{1, 2, 0} {
		h, err = ApplyAction(h, seat, Check, 0, rake)
		require.NoError(t, err)
	}

	require.True(t, h.IsHandComplete)
	assert.Equal(t, Showdown, h.CurrentStreet)
	// min(floor(9*0.05), 3) = 0: the pot is paid out whole.
	assert.Equal(t, 0, h.Rake)
	paid := 0
	for _, w := range h.Winners {
		paid += w.Amount
	}
	assert.Equal(t, 9, paid)
	assert.Equal(t, 900, totalChips(h)-h.Pot)
}

func TestShortAllInDoesNotReopenAction(t *testing.T) {
	// Seat 2 (BB) is short: posting 3 leaves 11 behind, an all-in total
	// of 14 over seat 0's raise to 10, a 4-chip increment less than
	// the 7-chip full raise before it.
	h, err := StartNewHand(newTestHand(t, 300, 300, 14), RakeConfig{})
	require.NoError(t, err)

	h = mustApply(t, h, 0, Raise, 10)
	h = mustApply(t, h, 1, Call, 0)
	h = mustApply(t, h, 2, AllIn, 0)

	assert.Equal(t, 14, h.CurrentBet)

	// Seat 0 already acted; the short all-in must not reopen raising.
	actions := GetValidActions(h, 0)
	names := actionNames(actions)
	assert.Contains(t, names, Fold)
	assert.Contains(t, names, Call)
	assert.NotContains(t, names, Raise)
	for _, a := range actions {
		if a.Action == Call {
			assert.Equal(t, 4, a.Min)
		}
	}

	h = mustApply(t, h, 0, Call, 0)
	actions = GetValidActions(h, 1)
	assert.NotContains(t, actionNames(actions), Raise)
}

func TestFullRaiseReopensAction(t *testing.T) {
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), RakeConfig{})
	require.NoError(t, err)

	h = mustApply(t, h, 0, Raise, 10)
	h = mustApply(t, h, 1, Call, 0)
	// BB raises a full amount; seat 0 must be offered a re-raise.
	h = mustApply(t, h, 2, Raise, 20)

	assert.Contains(t, actionNames(GetValidActions(h, 0)), Raise)
}

func actionNames(actions []ValidAction) []ActionType {
	names := make([]ActionType, len(actions))
	for i, a := range actions {
		names[i] = a.Action
	}
	return names
}

func TestPotLimitBetCap(t *testing.T) {
	// Checked-to flop with a 10-chip pot: the maximum bet is the pot.
	h := newTestHand(t, 300, 300)
	for i := 0; i < 2; i++ {
		h.Players[i].TotalBet = 5
	}
	h.Pot = 10
	h.CurrentStreet = Flop
	h.CurrentPlayerIndex = 0
	h.recomputeSidePots()

	actions := GetValidActions(h, 0)
	var bet *ValidAction
	for i := range actions {
		if actions[i].Action == Bet {
			bet = &actions[i]
		}
	}
	require.NotNil(t, bet)
	assert.Equal(t, 3, bet.Min, "minimum bet is the big blind")
	assert.Equal(t, 10, bet.Max, "maximum bet is the pot")
}

func TestPotLimitRaiseCap(t *testing.T) {
	// Pot 6 (blind 3 called), 3 to call: raise cap is 6+3+3 = 12.
	h := newTestHand(t, 300, 300, 300)
	h.Players[1].CurrentBet = 3
	h.Players[1].TotalBet = 3
	h.Players[2].CurrentBet = 3
	h.Players[2].TotalBet = 3
	h.Pot = 6
	h.CurrentBet = 3
	h.MinRaise = 3
	h.LastFullRaiseBet = 3
	h.CurrentPlayerIndex = 0

	actions := GetValidActions(h, 0)
	var raise *ValidAction
	for i := range actions {
		if actions[i].Action == Raise {
			raise = &actions[i]
		}
	}
	require.NotNil(t, raise)
	assert.Equal(t, 6, raise.Min, "minimum raise is a full increment")
	assert.Equal(t, 12, raise.Max)
}

func TestHeadsUpAllInRunout(t *testing.T) {
	// Stack the deck so seat 0 holds aces into a dry board.
	top := deck.MustParseAll(
		"As", "2c", "Ah", "7h", "Ks", "8s", "Kd", "Td", // hole cards, SB first
		"Ac", "Kh", "4d", "9c", "5s", // board
	)
	rake := RakeConfig{Percent: 0.05, CapBB: 1}
	h, err := StartNewHand(newTestHandWithDeck(t, deck.NewStacked(top), 100, 100), rake)
	require.NoError(t, err)

	h, err = ApplyAction(h, 0, AllIn, 0, rake)
	require.NoError(t, err)
	assert.False(t, h.IsHandComplete)

	h, err = ApplyAction(h, 1, AllIn, 0, rake)
	require.NoError(t, err)

	require.True(t, h.IsHandComplete)
	assert.Len(t, h.CommunityCards, 5)
	// Pot 200, rake min(floor(200*0.05), 3) = 3.
	assert.Equal(t, 3, h.Rake)
	require.Len(t, h.Winners, 1)
	assert.Equal(t, 0, h.Winners[0].Seat)
	assert.Equal(t, 197, h.Winners[0].Amount)
	assert.Equal(t, 197, h.Players[0].Chips)
	assert.Equal(t, 0, h.Players[1].Chips)
}

func TestSidePotLayering(t *testing.T) {
	// Stacks 300/50/100: an all-in cascade builds a 150 main pot, a 100
	// side pot between the two bigger stacks, and a 200 top layer only
	// seat 0 can win.
	h, err := StartNewHand(newTestHand(t, 300, 50, 100), RakeConfig{})
	require.NoError(t, err)

	h = mustApply(t, h, 0, AllIn, 0)  // 300
	h = mustApply(t, h, 1, AllIn, 0)  // 50 total
	h = mustApply(t, h, 2, AllIn, 0)  // 100 total

	require.True(t, h.IsHandComplete)

	// Winners' amounts must respect the layering: seat 1 can win at
	// most 150, seat 2 at most 350, and 200 returns to seat 0's layer.
	paid := 0
	for _, w := range h.Winners {
		paid += w.Amount
		switch w.Seat {
		case 1:
			assert.LessOrEqual(t, w.Amount, 150)
		case 2:
			assert.LessOrEqual(t, w.Amount, 350)
		}
	}
	assert.Equal(t, 450, paid)
	assert.Equal(t, 450, totalChips(h)-h.Pot)
}

func TestForceFoldOutOfTurn(t *testing.T) {
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), RakeConfig{})
	require.NoError(t, err)

	// Seat 1 is not the actor; the fold applies immediately.
	next := ForceFold(h, 1, RakeConfig{})
	require.NotSame(t, h, next)
	assert.True(t, next.Players[1].Folded)
	assert.Equal(t, 0, next.CurrentPlayerIndex, "turn unchanged")

	// Folding a seat already out is a no-op.
	again := ForceFold(next, 1, RakeConfig{})
	assert.Same(t, next, again)
}

func TestForceFoldCompletesHand(t *testing.T) {
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), RakeConfig{})
	require.NoError(t, err)

	h, err = ApplyAction(h, 0, Fold, 0, RakeConfig{})
	require.NoError(t, err)

	// Two live seats remain; force-folding one awards the pot.
	next := ForceFold(h, 1, RakeConfig{})
	require.True(t, next.IsHandComplete)
	require.Len(t, next.Winners, 1)
	assert.Equal(t, 2, next.Winners[0].Seat)
}

func TestChipConservationThroughRaises(t *testing.T) {
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), RakeConfig{})
	require.NoError(t, err)
	require.Equal(t, 900, totalChips(h))

	h = mustApply(t, h, 0, Raise, 10)
	assert.Equal(t, 900, totalChips(h))
	h = mustApply(t, h, 1, Raise, 30)
	assert.Equal(t, 900, totalChips(h))
	h = mustApply(t, h, 2, Fold, 0)
	h = mustApply(t, h, 0, Call, 0)
	assert.Equal(t, 900, totalChips(h))
	assert.Equal(t, Flop, h.CurrentStreet)

	// Side-pot invariant: pots plus outstanding bets equal the pot.
	potSum := 0
	for _, pot := range h.SidePots {
		potSum += pot.Amount
	}
	outstanding := 0
	for _, p := range h.Players {
		if p != nil {
			outstanding += p.CurrentBet
		}
	}
	assert.Equal(t, h.Pot, potSum+outstanding)
}

func TestBigBlindOptionPreflop(t *testing.T) {
	h, err := StartNewHand(newTestHand(t, 300, 300, 300), RakeConfig{})
	require.NoError(t, err)

	h = mustApply(t, h, 0, Call, 0)
	h = mustApply(t, h, 1, Call, 0)

	// Limped pot: the big blind may check or raise.
	assert.Equal(t, 2, h.CurrentPlayerIndex)
	names := actionNames(GetValidActions(h, 2))
	assert.Contains(t, names, Check)
	assert.Contains(t, names, Raise)
}
