// Package bot is the reference opponent: a pure four-card strategy and
// a websocket runner that plays it against a live server.
package bot

import (
	"math/rand"

	"github.com/lox/ploroom/internal/deck"
	"github.com/lox/ploroom/internal/evaluator"
)

// ValidAction mirrors the server's advertised action with its bounds.
type ValidAction struct {
	Action string
	Min    int
	Max    int
}

// View is everything the strategy sees for one decision.
type View struct {
	HoleCards    []deck.Card
	Community    []deck.Card
	Pot          int
	Chips        int
	BigBlind     int
	ValidActions []ValidAction
}

// Decision is the strategy's answer to an action request.
type Decision struct {
	Action string
	Amount int
}

// HandStrength buckets a decision point by how hard it can be played.
type HandStrength int

const (
	VeryWeak HandStrength = iota
	Weak
	Medium
	Strong
	VeryStrong
)

func (hs HandStrength) String() string {
	return [...]string{"very weak", "weak", "medium", "strong", "very strong"}[hs]
}

// Strategy makes pot-odds-driven Omaha decisions. Not safe for
// concurrent use; each runner owns one.
type Strategy struct {
	rng *rand.Rand
}

// NewStrategy creates a strategy with its own randomness.
func NewStrategy(rng *rand.Rand) *Strategy {
	return &Strategy{rng: rng}
}

// Decide picks an action from the advertised set. It only ever returns
// one of the actions in v.ValidActions, so a legal answer is guaranteed.
func (s *Strategy) Decide(v View) Decision {
	if len(v.HoleCards) != 4 || len(v.ValidActions) == 0 {
		return s.passive(v)
	}

	if len(v.Community) == 0 {
		return s.decidePreflop(v)
	}
	return s.decidePostflop(v)
}

// passive checks when possible, otherwise calls, otherwise folds.
func (s *Strategy) passive(v View) Decision {
	if a, ok := findAction(v.ValidActions, "check"); ok {
		return Decision{Action: a.Action}
	}
	if a, ok := findAction(v.ValidActions, "call"); ok {
		return Decision{Action: a.Action}
	}
	return Decision{Action: "fold"}
}

func findAction(actions []ValidAction, name string) (ValidAction, bool) {
	for _, a := range actions {
		if a.Action == name {
			return a, true
		}
	}
	return ValidAction{}, false
}

func toCall(v View) int {
	if a, ok := findAction(v.ValidActions, "call"); ok {
		return a.Min
	}
	return 0
}

// --- preflop ---

// PreflopScore rates a four-card starting hand. Pairs, suitedness and
// connectivity add points; danglers subtract. Roughly: 30+ premium,
// 20+ strong, 13+ speculative.
func PreflopScore(hole []deck.Card) int {
	if len(hole) != 4 {
		return 0
	}

	score := 0

	// Pairs. A third card of the same rank cripples the pair, so only
	// exact pairs count.
	rankCount := map[deck.Rank]int{}
	for _, c := range hole {
		rankCount[c.Rank]++
	}
	for rank, n := range rankCount {
		if n == 2 {
			switch {
			case rank == deck.Ace:
				score += 16
			case rank >= deck.Queen:
				score += 12
			case rank >= deck.Nine:
				score += 8
			default:
				score += 5
			}
		}
		if n >= 3 {
			score -= 4
		}
	}

	// Suitedness. Two cards of a suit make a flush possibility; the
	// value lives in the highest card of the suit. Double-suited hands
	// collect twice.
	suitHigh := map[deck.Suit]deck.Rank{}
	suitCount := map[deck.Suit]int{}
	for _, c := range hole {
		suitCount[c.Suit]++
		if c.Rank > suitHigh[c.Suit] {
			suitHigh[c.Suit] = c.Rank
		}
	}
	for suit, n := range suitCount {
		if n < 2 {
			continue
		}
		switch {
		case suitHigh[suit] == deck.Ace:
			score += 6
		case suitHigh[suit] >= deck.Jack:
			score += 4
		default:
			score += 2
		}
		if n >= 3 {
			// The third suited card is dead weight.
			score -= 2
		}
	}

	// Connectivity. Close ranks work together in straights. Compare
	// every pair of distinct ranks; a gap of zero (adjacent) is worth
	// the most, and nothing four or more apart connects.
	var ranks []int
	for rank := range rankCount {
		ranks = append(ranks, int(rank))
	}
	for i := 0; i < len(ranks); i++ {
		for j := i + 1; j < len(ranks); j++ {
			gap := ranks[i] - ranks[j]
			if gap < 0 {
				gap = -gap
			}
			switch gap {
			case 1:
				score += 4
			case 2:
				score += 2
			case 3:
				score += 1
			}
		}
	}

	// High cards carry showdown value on their own.
	for _, c := range hole {
		if c.Rank >= deck.Queen {
			score += 1
		}
	}

	// Danglers: a card more than three away from every other card
	// plays no part in the hand.
	for i, c := range hole {
		dangler := true
		for j, o := range hole {
			if i == j {
				continue
			}
			gap := int(c.Rank) - int(o.Rank)
			if gap < 0 {
				gap = -gap
			}
			if gap <= 3 || c.Rank == o.Rank {
				dangler = false
				break
			}
		}
		if dangler {
			score -= 3
		}
	}

	return score
}

func (s *Strategy) decidePreflop(v View) Decision {
	score := PreflopScore(v.HoleCards)
	call := toCall(v)
	bb := v.BigBlind
	if bb == 0 {
		bb = 1
	}

	switch {
	case score >= 30:
		// Premium: build the pot now.
		if d, ok := s.raisePot(v, 1.0); ok {
			return d
		}
		return s.passive(v)
	case score >= 20:
		// Strong: raise unopened pots, call raises up to a stackable
		// price.
		if call <= bb && s.rng.Float64() < 0.7 {
			if d, ok := s.raisePot(v, 0.8); ok {
				return d
			}
		}
		if call <= v.Chips/4 {
			return s.passive(v)
		}
		return s.foldOrCheck(v)
	case score >= 13:
		// Speculative: see a cheap flop, never pay a big raise.
		if call <= 4*bb {
			return s.passive(v)
		}
		return s.foldOrCheck(v)
	default:
		return s.foldOrCheck(v)
	}
}

// --- postflop ---

func (s *Strategy) decidePostflop(v View) Decision {
	made := bestMade(v.HoleCards, v.Community)
	strength := s.madeStrength(made, v.Community)
	equity := madeEquity(strength)

	// Draws only matter with cards to come.
	if len(v.Community) < 5 {
		outs := s.flushDrawOuts(v.HoleCards, v.Community) + straightOuts(v.HoleCards, v.Community)
		multiplier := 4 // two cards to come
		if len(v.Community) == 4 {
			multiplier = 2
		}
		drawEquity := float64(outs*multiplier) / 100
		if drawEquity > 0.6 {
			drawEquity = 0.6
		}
		equity += (1 - equity) * drawEquity
	}

	call := toCall(v)
	price := 0.0
	if call > 0 {
		price = float64(call) / float64(v.Pot+call)
	}

	switch {
	case equity >= 0.75:
		if d, ok := s.raisePot(v, 1.0); ok {
			return d
		}
		return s.passive(v)
	case equity >= 0.55:
		if call == 0 && s.rng.Float64() < 0.6 {
			if d, ok := s.raisePot(v, 0.65); ok {
				return d
			}
		}
		if call == 0 || equity > price+0.05 {
			return s.passive(v)
		}
		return s.foldOrCheck(v)
	case equity >= 0.3:
		if call == 0 {
			// Occasional stab keeps checks from being face-up.
			if s.rng.Float64() < 0.2 {
				if d, ok := s.raisePot(v, 0.5); ok {
					return d
				}
			}
			return s.passive(v)
		}
		if equity > price {
			return s.passive(v)
		}
		return s.foldOrCheck(v)
	default:
		return s.foldOrCheck(v)
	}
}

// madeStrength buckets the current best made hand against the board.
func (s *Strategy) madeStrength(made evaluator.HandRank, community []deck.Card) HandStrength {
	switch {
	case made.Category >= evaluator.FullHouse:
		return VeryStrong
	case made.Category == evaluator.Flush:
		if made.Tiebreaks[0] == deck.Ace {
			return VeryStrong
		}
		return Strong
	case made.Category == evaluator.Straight:
		return Strong
	case made.Category == evaluator.ThreeOfAKind:
		return Strong
	case made.Category == evaluator.TwoPair:
		return Medium
	case made.Category == evaluator.Pair:
		// Top pair is marginal in Omaha; anything less is air.
		if made.Tiebreaks[0] >= highestBoardRank(community) {
			return Weak
		}
		return VeryWeak
	default:
		return VeryWeak
	}
}

func madeEquity(strength HandStrength) float64 {
	switch strength {
	case VeryStrong:
		return 0.85
	case Strong:
		return 0.65
	case Medium:
		return 0.45
	case Weak:
		return 0.25
	default:
		return 0.1
	}
}

func highestBoardRank(community []deck.Card) deck.Rank {
	var high deck.Rank
	for _, c := range community {
		if c.Rank > high {
			high = c.Rank
		}
	}
	return high
}

// bestMade evaluates the best currently-made hand: exactly two hole
// cards with three board cards, over however much board has been dealt.
func bestMade(hole []deck.Card, community []deck.Card) evaluator.HandRank {
	var best evaluator.HandRank
	var hand [5]deck.Card

	for i := 0; i < len(hole); i++ {
		for j := i + 1; j < len(hole); j++ {
			hand[0] = hole[i]
			hand[1] = hole[j]
			forEachBoardTriple(community, func(triple [3]deck.Card) {
				hand[2], hand[3], hand[4] = triple[0], triple[1], triple[2]
				rank := evaluator.Evaluate5(hand)
				if best.Category == 0 || evaluator.Compare(rank, best) > 0 {
					best = rank
				}
			})
		}
	}
	return best
}

func forEachBoardTriple(board []deck.Card, visit func([3]deck.Card)) {
	for i := 0; i < len(board); i++ {
		for j := i + 1; j < len(board); j++ {
			for k := j + 1; k < len(board); k++ {
				visit([3]deck.Card{board[i], board[j], board[k]})
			}
		}
	}
}

// flushDrawOuts counts flush outs: two suited hole cards with exactly
// two board cards of the suit. Non-nut draws count for less since a
// bigger flush may be out against us.
func (s *Strategy) flushDrawOuts(hole []deck.Card, community []deck.Card) int {
	holeSuits := map[deck.Suit][]deck.Card{}
	for _, c := range hole {
		holeSuits[c.Suit] = append(holeSuits[c.Suit], c)
	}
	boardSuits := map[deck.Suit]int{}
	for _, c := range community {
		boardSuits[c.Suit]++
	}

	outs := 0
	for suit, cards := range holeSuits {
		if len(cards) < 2 || boardSuits[suit] != 2 {
			continue
		}
		nut := false
		for _, c := range cards {
			if c.Rank == deck.Ace {
				nut = true
			}
		}
		if nut {
			outs += 9
		} else {
			outs += 6
		}
	}
	return outs
}

// straightOuts approximates straight outs by scanning every five-rank
// window: a window with four of its ranks present, at least two from
// the hole, has the missing rank as an out.
func straightOuts(hole []deck.Card, community []deck.Card) int {
	holeRanks := map[int]bool{}
	for _, c := range hole {
		holeRanks[int(c.Rank)] = true
		if c.Rank == deck.Ace {
			holeRanks[1] = true
		}
	}
	boardRanks := map[int]bool{}
	for _, c := range community {
		boardRanks[int(c.Rank)] = true
		if c.Rank == deck.Ace {
			boardRanks[1] = true
		}
	}

	missing := map[int]bool{}
	for low := 1; low <= 10; low++ {
		present, fromHole, gap := 0, 0, 0
		for r := low; r < low+5; r++ {
			switch {
			case holeRanks[r]:
				present++
				fromHole++
			case boardRanks[r]:
				present++
			default:
				gap = r
			}
		}
		// Omaha straights use exactly two hole cards, and the board
		// must supply at least two of the window.
		if present == 4 && fromHole >= 2 && present-fromHole+1 >= 2 {
			missing[gap] = true
		}
	}

	outs := 4 * len(missing)
	if outs > 17 {
		outs = 17
	}
	return outs
}

// raisePot returns a raise or bet sized by fraction of the allowed
// range, or all-in when that is the only aggressive option left.
func (s *Strategy) raisePot(v View, fraction float64) (Decision, bool) {
	for _, name := range []string{"raise", "bet"} {
		if a, ok := findAction(v.ValidActions, name); ok {
			amount := a.Min + int(float64(a.Max-a.Min)*fraction)
			if amount > a.Max {
				amount = a.Max
			}
			return Decision{Action: a.Action, Amount: amount}, true
		}
	}
	// No raise available: short-stack spots where all-in is the only
	// way to continue aggressively.
	if a, ok := findAction(v.ValidActions, "allin"); ok && fraction >= 1.0 {
		return Decision{Action: a.Action, Amount: a.Min}, true
	}
	return Decision{}, false
}

// foldOrCheck never folds when checking is free.
func (s *Strategy) foldOrCheck(v View) Decision {
	if a, ok := findAction(v.ValidActions, "check"); ok {
		return Decision{Action: a.Action}
	}
	return Decision{Action: "fold"}
}
