package engine

import (
	"fmt"
	"math"

	"github.com/lox/ploroom/internal/deck"
	"github.com/lox/ploroom/internal/evaluator"
)

// ErrInvalidAction is returned when an action fails validation. The
// input state is never mutated on error.
var ErrInvalidAction = fmt.Errorf("invalid action")

// ValidAction describes one legal action at the current decision point.
// Min/Max are total amounts for bet and raise, the chips required for
// call, and zero otherwise.
type ValidAction struct {
	Action ActionType
	Min    int
	Max    int
}

// StartNewHand advances the dealer button, posts blinds, deals four hole
// cards per eligible seat, and opens preflop betting. If the blinds leave
// no further action possible the board is run out and the hand resolved
// in the same call.
func StartNewHand(state *HandState, rake RakeConfig) (*HandState, error) {
	h := state.Clone()

	inHand := func(p *SeatState) bool { return p != nil && p.InHand }
	n := 0
	for _, p := range h.Players {
		if inHand(p) {
			n++
		}
	}
	if n < 2 {
		return state, fmt.Errorf("need at least 2 players, have %d", n)
	}

	h.DealerPosition = h.nextSeat(h.DealerPosition+1, inHand)

	var sbPos, bbPos int
	if n == 2 {
		// Heads-up: the button posts the small blind
		sbPos = h.DealerPosition
		bbPos = h.nextSeat(sbPos+1, inHand)
	} else {
		sbPos = h.nextSeat(h.DealerPosition+1, inHand)
		bbPos = h.nextSeat(sbPos+1, inHand)
	}

	h.postBlind(sbPos, h.SmallBlind)
	h.postBlind(bbPos, h.BigBlind)

	// Four passes, one card per seat per pass, small blind first
	order := h.dealOrder(sbPos)
	for pass := 0; pass < 4; pass++ {
		for _, seat := range order {
			card, ok := h.Deck.DealOne()
			if !ok {
				return state, fmt.Errorf("deck exhausted dealing hole cards")
			}
			h.Players[seat].HoleCards[pass] = card
		}
	}

	h.CurrentStreet = Preflop
	h.CurrentBet = h.BigBlind
	h.MinRaise = h.BigBlind
	h.LastFullRaiseBet = h.BigBlind
	h.LastRaiserIndex = bbPos
	h.CurrentPlayerIndex = h.nextSeat(bbPos+1, func(p *SeatState) bool { return p.Actionable() })
	h.recomputeSidePots()

	// Blinds may leave no one able to act (both all-in short stacks)
	if h.noFurtherActionPossible() {
		h.runOutBoard()
		h.resolve(rake)
	}

	return h, nil
}

func (h *HandState) postBlind(seat, amount int) {
	p := h.Players[seat]
	wager := min(amount, p.Chips)
	p.Chips -= wager
	p.CurrentBet += wager
	p.TotalBet += wager
	h.Pot += wager
	if p.Chips == 0 {
		p.AllIn = true
	}
}

// dealOrder returns in-hand seats clockwise starting from the small blind.
func (h *HandState) dealOrder(sbPos int) []int {
	var order []int
	for i := 0; i < NumSeats; i++ {
		pos := (sbPos + i) % NumSeats
		if p := h.Players[pos]; p != nil && p.InHand {
			order = append(order, pos)
		}
	}
	return order
}

// GetValidActions returns the actions legal for seat at the current
// decision point. A function of the state only; repeated calls agree.
func GetValidActions(state *HandState, seat int) []ValidAction {
	if state.IsHandComplete || seat != state.CurrentPlayerIndex {
		return nil
	}
	p := state.Players[seat]
	if !p.Actionable() {
		return nil
	}

	var actions []ValidAction
	toCall := state.CurrentBet - p.CurrentBet

	if state.LiveCount() > 1 {
		actions = append(actions, ValidAction{Action: Fold})
	}

	if toCall == 0 {
		actions = append(actions, ValidAction{Action: Check})
	} else {
		actions = append(actions, ValidAction{Action: Call, Min: min(toCall, p.Chips), Max: min(toCall, p.Chips)})
	}

	capTotal := state.potLimitCap(seat)
	if state.CurrentBet == 0 {
		maxBet := min(capTotal, p.Chips)
		if maxBet >= state.BigBlind {
			actions = append(actions, ValidAction{Action: Bet, Min: state.BigBlind, Max: maxBet})
		}
	} else if !p.HasActed {
		// Raising requires the action to be open for this seat: a short
		// all-in does not clear HasActed, so already-acted callers are
		// limited to call or fold. The big blind's option on a limped
		// pot arrives here with nothing to call.
		minTotal := state.CurrentBet + state.MinRaise
		maxTotal := min(capTotal, p.CurrentBet+p.Chips)
		if maxTotal >= minTotal {
			actions = append(actions, ValidAction{Action: Raise, Min: minTotal, Max: maxTotal})
		}
	}

	if p.Chips > 0 {
		actions = append(actions, ValidAction{Action: AllIn, Min: p.CurrentBet + p.Chips, Max: p.CurrentBet + p.Chips})
	}

	return actions
}

// potLimitCap returns the maximum total wager for the acting seat:
// pot + currentBet + to-call.
func (h *HandState) potLimitCap(seat int) int {
	toCall := h.CurrentBet - h.Players[seat].CurrentBet
	return h.Pot + h.CurrentBet + toCall
}

// WouldAdvanceStreet reports whether applying the action would close the
// current street (including completing the hand). Pure predicate.
func WouldAdvanceStreet(state *HandState, seat int, action ActionType, amount int) bool {
	next, err := ApplyAction(state, seat, action, amount, RakeConfig{})
	if err != nil {
		return false
	}
	return next.CurrentStreet != state.CurrentStreet || next.IsHandComplete
}

// ApplyAction validates and applies one action, advancing streets and
// resolving the hand where the action closes them. Returns the input
// state unchanged alongside an error for invalid input.
func ApplyAction(state *HandState, seat int, action ActionType, amount int, rake RakeConfig) (*HandState, error) {
	valid := GetValidActions(state, seat)
	var chosen *ValidAction
	for i := range valid {
		if valid[i].Action == action {
			chosen = &valid[i]
			break
		}
	}
	if chosen == nil {
		return state, fmt.Errorf("%w: %s not legal for seat %d", ErrInvalidAction, action, seat)
	}
	if (action == Bet || action == Raise) && (amount < chosen.Min || amount > chosen.Max) {
		return state, fmt.Errorf("%w: %s amount %d outside [%d, %d]", ErrInvalidAction, action, amount, chosen.Min, chosen.Max)
	}

	h := state.Clone()
	p := h.Players[seat]
	recorded := 0

	switch action {
	case Fold:
		p.Folded = true

	case Check:
		// No chips move

	case Call:
		wager := min(h.CurrentBet-p.CurrentBet, p.Chips)
		h.wager(seat, wager)
		recorded = wager

	case Bet:
		h.wager(seat, amount)
		h.CurrentBet = amount
		h.MinRaise = amount
		h.LastFullRaiseBet = amount
		h.LastRaiserIndex = seat
		h.reopenAction(seat)
		recorded = amount

	case Raise:
		h.wager(seat, amount-p.CurrentBet)
		increment := amount - h.CurrentBet
		h.CurrentBet = amount
		h.MinRaise = increment
		h.LastRaiserIndex = seat
		if increment >= h.LastFullRaiseBet {
			h.LastFullRaiseBet = increment
			h.reopenAction(seat)
		}
		recorded = amount

	case AllIn:
		newTotal := p.CurrentBet + p.Chips
		h.wager(seat, p.Chips)
		if newTotal > h.CurrentBet {
			increment := newTotal - h.CurrentBet
			h.CurrentBet = newTotal
			h.LastRaiserIndex = seat
			if increment >= h.LastFullRaiseBet {
				// Full raise: action reopens to earlier callers
				h.MinRaise = increment
				h.LastFullRaiseBet = increment
				h.reopenAction(seat)
			}
		}
		recorded = newTotal
	}

	p.HasActed = true
	h.HandHistory = append(h.HandHistory, ActionRecord{Seat: seat, Action: action, Amount: recorded, Street: h.CurrentStreet})
	h.recomputeSidePots()
	h.advanceAfterAction(seat, rake)

	return h, nil
}

// ForceFold folds a seat immediately regardless of turn order. Used for
// disconnects and fast-fold early folds. A no-op for seats already out.
func ForceFold(state *HandState, seat int, rake RakeConfig) *HandState {
	if state.IsHandComplete || seat < 0 || seat >= NumSeats {
		return state
	}
	p := state.Players[seat]
	if !p.Live() {
		return state
	}

	h := state.Clone()
	p = h.Players[seat]
	p.Folded = true
	p.HasActed = true
	h.HandHistory = append(h.HandHistory, ActionRecord{Seat: seat, Action: Fold, Street: h.CurrentStreet})
	if h.LastRaiserIndex == seat {
		h.LastRaiserIndex = -1
	}
	h.recomputeSidePots()

	if seat == h.CurrentPlayerIndex {
		h.advanceAfterAction(seat, rake)
	} else if h.LiveCount() <= 1 {
		h.CurrentPlayerIndex = -1
		h.resolve(rake)
	} else if h.streetBettingComplete() && h.CurrentPlayerIndex == -1 {
		h.closeStreet()
		if h.CurrentStreet == Showdown {
			h.resolve(rake)
		} else if h.noFurtherActionPossible() {
			h.runOutBoard()
			h.resolve(rake)
		}
	}

	return h
}

func (h *HandState) wager(seat, amount int) {
	p := h.Players[seat]
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalBet += amount
	h.Pot += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
}

// reopenAction clears HasActed on every other actionable seat after a
// full raise, granting them a fresh decision.
func (h *HandState) reopenAction(raiser int) {
	for i, p := range h.Players {
		if i != raiser && p.Actionable() {
			p.HasActed = false
		}
	}
}

// advanceAfterAction moves the turn, closes the street, or resolves the
// hand depending on what the action left behind.
func (h *HandState) advanceAfterAction(seat int, rake RakeConfig) {
	if h.LiveCount() <= 1 {
		h.CurrentPlayerIndex = -1
		h.resolve(rake)
		return
	}

	if !h.streetBettingComplete() {
		h.CurrentPlayerIndex = h.nextSeat(seat+1, func(p *SeatState) bool {
			return p.Actionable() && (!p.HasActed || p.CurrentBet != h.CurrentBet)
		})
		if h.CurrentPlayerIndex != -1 {
			return
		}
		// No seat owes action after all; fall through to close the street
	}

	h.closeStreet()

	if h.CurrentStreet == Showdown {
		h.resolve(rake)
		return
	}

	if h.noFurtherActionPossible() {
		h.runOutBoard()
		h.resolve(rake)
	}
}

// streetBettingComplete reports whether every actionable seat has acted
// and matched the current bet.
func (h *HandState) streetBettingComplete() bool {
	for _, p := range h.Players {
		if p.Actionable() && (!p.HasActed || p.CurrentBet != h.CurrentBet) {
			return false
		}
	}
	return true
}

// closeStreet resets per-street betting state, advances the street, and
// reveals community cards.
func (h *HandState) closeStreet() {
	for _, p := range h.Players {
		if p != nil && p.InHand {
			p.CurrentBet = 0
			p.HasActed = false
		}
	}
	h.CurrentBet = 0
	h.MinRaise = h.BigBlind
	h.LastFullRaiseBet = h.BigBlind
	h.LastRaiserIndex = -1
	h.recomputeSidePots()

	switch h.CurrentStreet {
	case Preflop:
		h.CurrentStreet = Flop
		h.CommunityCards = append(h.CommunityCards, h.Deck.Deal(3)...)
	case Flop:
		h.CurrentStreet = Turn
		h.CommunityCards = append(h.CommunityCards, h.Deck.Deal(1)...)
	case Turn:
		h.CurrentStreet = River
		h.CommunityCards = append(h.CommunityCards, h.Deck.Deal(1)...)
	case River:
		h.CurrentStreet = Showdown
		h.CurrentPlayerIndex = -1
		return
	}

	h.CurrentPlayerIndex = h.nextSeat(h.DealerPosition+1, func(p *SeatState) bool { return p.Actionable() })
}

// noFurtherActionPossible reports whether at most one seat can act and
// that seat faces nothing to call, with the pot still contested.
func (h *HandState) noFurtherActionPossible() bool {
	if h.LiveCount() < 2 {
		return false
	}
	actionable := -1
	for i, p := range h.Players {
		if p.Actionable() {
			if actionable != -1 {
				return false
			}
			actionable = i
		}
	}
	if actionable == -1 {
		return true
	}
	return h.Players[actionable].CurrentBet >= h.CurrentBet
}

// runOutBoard deals the remaining community cards atomically.
func (h *HandState) runOutBoard() {
	for _, p := range h.Players {
		if p != nil && p.InHand {
			p.CurrentBet = 0
			p.HasActed = false
		}
	}
	h.CurrentBet = 0
	h.CurrentPlayerIndex = -1
	h.recomputeSidePots()

	for len(h.CommunityCards) < 5 {
		need := 1
		if len(h.CommunityCards) == 0 {
			need = 3
		}
		h.CommunityCards = append(h.CommunityCards, h.Deck.Deal(need)...)
	}
	h.CurrentStreet = Showdown
}

// resolve distributes pots to winners and completes the hand.
func (h *HandState) resolve(rake RakeConfig) {
	if h.IsHandComplete {
		return
	}

	// Sweep any outstanding street bets into the pots
	for _, p := range h.Players {
		if p != nil && p.InHand {
			p.CurrentBet = 0
		}
	}
	h.CurrentBet = 0
	h.CurrentPlayerIndex = -1
	h.recomputeSidePots()

	h.Rake = h.computeRake(rake)
	h.applyRake()

	if h.LiveCount() == 1 {
		// Lone survivor sweeps without showing cards
		for i, p := range h.Players {
			if p.Live() {
				total := 0
				for _, pot := range h.SidePots {
					total += pot.Amount
				}
				p.Chips += total
				h.Winners = append(h.Winners, Winner{Seat: i, Amount: total})
				break
			}
		}
		h.IsHandComplete = true
		return
	}

	h.CurrentStreet = Showdown
	h.awardShowdown()
	h.IsHandComplete = true
}

// computeRake applies the percentage-and-cap rule. A hand that ends
// preflop with a single survivor is not raked.
func (h *HandState) computeRake(rake RakeConfig) int {
	if rake.Percent <= 0 {
		return 0
	}
	if h.LiveCount() == 1 && len(h.CommunityCards) == 0 {
		return 0
	}
	raked := int(math.Floor(float64(h.Pot) * rake.Percent))
	if capped := rake.CapBB * h.BigBlind; raked > capped {
		raked = capped
	}
	return raked
}

// applyRake subtracts the rake from the first (main) pot.
func (h *HandState) applyRake() {
	if h.Rake == 0 || len(h.SidePots) == 0 {
		return
	}
	h.SidePots[0].Amount -= h.Rake
	if h.SidePots[0].Amount < 0 {
		h.SidePots[0].Amount = 0
	}
}

// awardShowdown evaluates every live hand and pays each side pot to its
// best eligible holder, splitting ties with remainder chips going to the
// earliest position after the button.
func (h *HandState) awardShowdown() {
	var board [5]deck.Card
	copy(board[:], h.CommunityCards)

	ranks := make(map[int]evaluator.HandRank)
	for i, p := range h.Players {
		if p.Live() {
			ranks[i] = evaluator.EvaluatePLO(p.HoleCards, board)
		}
	}

	awards := make(map[int]int)
	for _, pot := range h.SidePots {
		var winners []int
		var best evaluator.HandRank
		for _, seat := range orderFromButton(h.DealerPosition, pot.Eligible) {
			rank, ok := ranks[seat]
			if !ok {
				continue
			}
			if len(winners) == 0 {
				best = rank
				winners = append(winners, seat)
				continue
			}
			switch evaluator.Compare(rank, best) {
			case 1:
				best = rank
				winners = []int{seat}
			case 0:
				winners = append(winners, seat)
			}
		}
		if len(winners) == 0 {
			continue
		}
		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for i, seat := range winners {
			amount := share
			if i == 0 {
				amount += remainder // winners are already in position order
			}
			awards[seat] += amount
		}
	}

	for seat, amount := range awards {
		h.Players[seat].Chips += amount
	}
	for _, seat := range orderFromButton(h.DealerPosition, seatsOf(awards)) {
		h.Winners = append(h.Winners, Winner{
			Seat:     seat,
			Amount:   awards[seat],
			HandDesc: ranks[seat].Category.String(),
		})
	}
}

// orderFromButton sorts seats clockwise starting one past the button.
func orderFromButton(button int, seats []int) []int {
	ordered := append([]int(nil), seats...)
	pos := func(seat int) int { return ((seat-button-1)%NumSeats + NumSeats) % NumSeats }
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && pos(ordered[j]) < pos(ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

func seatsOf(m map[int]int) []int {
	seats := make([]int, 0, len(m))
	for seat := range m {
		seats = append(seats, seat)
	}
	return seats
}
