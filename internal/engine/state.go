// Package engine implements the pure PLO hand engine: value-typed hand
// state, legal-action computation, action application, and winner
// resolution. Engine functions never mutate their input state; each
// returns a fresh state derived from a deep copy.
package engine

import (
	"github.com/lox/ploroom/internal/deck"
	"github.com/lox/ploroom/internal/evaluator"
)

// NumSeats is the fixed number of seats at a table.
const NumSeats = 6

// Street represents the betting round
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	return [...]string{"preflop", "flop", "turn", "river", "showdown"}[s]
}

// ActionType represents a player action
type ActionType int

const (
	Fold ActionType = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a ActionType) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "allin"}[a]
}

// ParseActionType parses an action name off the wire.
func ParseActionType(s string) (ActionType, bool) {
	switch s {
	case "fold":
		return Fold, true
	case "check":
		return Check, true
	case "call":
		return Call, true
	case "bet":
		return Bet, true
	case "raise":
		return Raise, true
	case "allin":
		return AllIn, true
	}
	return 0, false
}

// SeatState is the engine's snapshot of a seat for one hand.
type SeatState struct {
	UserID string
	Name   string
	IsBot  bool

	Chips int
	BuyIn int

	// InHand marks seats dealt into the current hand. Seats that joined
	// mid-hand or sat down broke are excluded.
	InHand    bool
	HoleCards [4]deck.Card

	CurrentBet int // chips wagered on the current street
	TotalBet   int // chips wagered across the whole hand
	Folded     bool
	AllIn      bool
	HasActed   bool // acted since the last full raise this street
}

// Live reports whether the seat still contests the pot.
func (s *SeatState) Live() bool {
	return s != nil && s.InHand && !s.Folded
}

// Actionable reports whether the seat can still make a betting decision.
func (s *SeatState) Actionable() bool {
	return s.Live() && !s.AllIn
}

func (s *SeatState) clone() *SeatState {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// SidePot is a pot layer with the seats eligible to win it.
type SidePot struct {
	Amount   int
	Eligible []int
}

// ActionRecord is one entry in the ordered hand history.
type ActionRecord struct {
	Seat   int
	Action ActionType
	Amount int
	Street Street
}

// Winner records a pot award at hand completion.
type Winner struct {
	Seat     int
	Amount   int
	HandDesc string
}

// RakeConfig is the percentage-and-cap rake rule.
type RakeConfig struct {
	Percent float64 // e.g. 0.05
	CapBB   int     // cap expressed in big blinds
}

// HandState is the complete state of one hand. Owned by exactly one
// table; mutated only by engine functions operating on clones.
type HandState struct {
	Players        [NumSeats]*SeatState
	Deck           *deck.Deck
	CommunityCards []deck.Card

	Pot      int // total chips committed this hand, all seats
	SidePots []SidePot

	CurrentStreet      Street
	DealerPosition     int
	CurrentPlayerIndex int // -1 when no one is to act
	CurrentBet         int
	MinRaise           int
	SmallBlind         int
	BigBlind           int
	LastRaiserIndex    int
	LastFullRaiseBet   int // incremental size of the last full raise

	HandHistory    []ActionRecord
	IsHandComplete bool
	Winners        []Winner
	Rake           int
}

// NewHandState builds the pre-deal state for a hand. DealerPosition is
// the previous hand's dealer (-1 before the first hand); StartNewHand
// advances it. The caller marks participation via each seat's InHand
// flag (seats waiting for the next hand stay out); broke seats are
// excluded regardless.
func NewHandState(seats [NumSeats]*SeatState, dealerPosition, smallBlind, bigBlind int, d *deck.Deck) *HandState {
	s := &HandState{
		Deck:               d,
		DealerPosition:     dealerPosition,
		CurrentPlayerIndex: -1,
		SmallBlind:         smallBlind,
		BigBlind:           bigBlind,
		LastRaiserIndex:    -1,
	}
	for i, seat := range seats {
		s.Players[i] = seat.clone()
		if s.Players[i] != nil && seat.Chips <= 0 {
			s.Players[i].InHand = false
		}
	}
	return s
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (h *HandState) Clone() *HandState {
	c := *h
	for i, p := range h.Players {
		c.Players[i] = p.clone()
	}
	if h.Deck != nil {
		c.Deck = h.Deck.Clone()
	}
	c.CommunityCards = append([]deck.Card(nil), h.CommunityCards...)
	c.SidePots = cloneSidePots(h.SidePots)
	c.HandHistory = append([]ActionRecord(nil), h.HandHistory...)
	c.Winners = append([]Winner(nil), h.Winners...)
	return &c
}

func cloneSidePots(pots []SidePot) []SidePot {
	if pots == nil {
		return nil
	}
	out := make([]SidePot, len(pots))
	for i, p := range pots {
		out[i] = SidePot{Amount: p.Amount, Eligible: append([]int(nil), p.Eligible...)}
	}
	return out
}

// LiveCount returns the number of seats still contesting the pot.
func (h *HandState) LiveCount() int {
	n := 0
	for _, p := range h.Players {
		if p.Live() {
			n++
		}
	}
	return n
}

// ActionableCount returns the number of seats that can still act.
func (h *HandState) ActionableCount() int {
	n := 0
	for _, p := range h.Players {
		if p.Actionable() {
			n++
		}
	}
	return n
}

// nextSeat returns the first seat at or after from (wrapping) satisfying
// pred, or -1.
func (h *HandState) nextSeat(from int, pred func(*SeatState) bool) int {
	for i := 0; i < NumSeats; i++ {
		pos := ((from+i)%NumSeats + NumSeats) % NumSeats
		if pred(h.Players[pos]) {
			return pos
		}
	}
	return -1
}

// recomputeSidePots rebuilds the side-pot layering from each seat's
// collected (previous-street) contributions. The invariant holds at all
// times: sum of side pots plus current-street outstanding bets equals
// the total pot.
func (h *HandState) recomputeSidePots() {
	collected := make([]int, NumSeats)
	total := 0
	for i, p := range h.Players {
		if p == nil || !p.InHand {
			continue
		}
		collected[i] = p.TotalBet - p.CurrentBet
		total += collected[i]
	}

	h.SidePots = nil
	if total == 0 {
		return
	}

	// Layer boundaries come from all-in seats' collected contributions.
	levels := map[int]bool{}
	for i, p := range h.Players {
		if p != nil && p.InHand && p.AllIn && collected[i] > 0 {
			levels[collected[i]] = true
		}
	}
	bounds := make([]int, 0, len(levels)+1)
	for level := range levels {
		bounds = append(bounds, level)
	}
	// Highest collected amount closes the final layer.
	maxCollected := 0
	for _, c := range collected {
		if c > maxCollected {
			maxCollected = c
		}
	}
	bounds = append(bounds, maxCollected)
	sortInts(bounds)

	prev := 0
	for _, bound := range bounds {
		if bound <= prev {
			continue
		}
		pot := SidePot{}
		for i, p := range h.Players {
			if p == nil || !p.InHand {
				continue
			}
			contribution := min(collected[i], bound) - min(collected[i], prev)
			pot.Amount += contribution
			if !p.Folded && collected[i] > prev {
				pot.Eligible = append(pot.Eligible, i)
			}
		}
		if pot.Amount > 0 {
			h.SidePots = append(h.SidePots, pot)
		}
		prev = bound
	}
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

// EquityHands converts the hand's seats into evaluator inputs, including
// folded seats so their cards count as dead in equity runs.
func (h *HandState) EquityHands() []evaluator.SeatHand {
	var hands []evaluator.SeatHand
	for i, p := range h.Players {
		if p == nil || !p.InHand {
			continue
		}
		hands = append(hands, evaluator.SeatHand{Seat: i, Hole: p.HoleCards, Folded: p.Folded})
	}
	return hands
}
