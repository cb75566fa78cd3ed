// Package evaluator implements PLO hand evaluation and multiway equity.
//
// Omaha hands use exactly two of the four hole cards and exactly three
// board cards, so evaluation enumerates the C(4,2)*C(5,3) = 60 candidate
// five-card hands and keeps the best.
package evaluator

import (
	"sort"

	"github.com/lox/ploroom/internal/deck"
)

// Category is the standard hand-category ladder, strongest last.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "high card"
	case Pair:
		return "pair"
	case TwoPair:
		return "two pair"
	case ThreeOfAKind:
		return "three of a kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full house"
	case FourOfAKind:
		return "four of a kind"
	case StraightFlush:
		return "straight flush"
	default:
		return "unknown"
	}
}

// HandRank is a totally ordered hand strength: category first, then
// lexicographic tie-break ranks in descending significance.
type HandRank struct {
	Category  Category
	Tiebreaks [5]deck.Rank
	Best      [5]deck.Card // the five cards forming the ranked hand
}

// Compare returns the sign of a-b: 1 if a beats b, -1 if b beats a, 0 on tie.
func Compare(a, b HandRank) int {
	if a.Category != b.Category {
		if a.Category > b.Category {
			return 1
		}
		return -1
	}
	for i := range a.Tiebreaks {
		if a.Tiebreaks[i] != b.Tiebreaks[i] {
			if a.Tiebreaks[i] > b.Tiebreaks[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// holePairs enumerates the C(4,2) = 6 two-card selections.
var holePairs = [6][2]int{
	{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3},
}

// boardTriples enumerates the C(5,3) = 10 three-card selections.
var boardTriples = [10][3]int{
	{0, 1, 2}, {0, 1, 3}, {0, 1, 4}, {0, 2, 3}, {0, 2, 4},
	{0, 3, 4}, {1, 2, 3}, {1, 2, 4}, {1, 3, 4}, {2, 3, 4},
}

// EvaluatePLO returns the best five-card hand formed by exactly two hole
// cards and exactly three board cards.
func EvaluatePLO(hole [4]deck.Card, board [5]deck.Card) HandRank {
	var best HandRank
	var hand [5]deck.Card

	for _, hp := range holePairs {
		hand[0] = hole[hp[0]]
		hand[1] = hole[hp[1]]
		for _, bt := range boardTriples {
			hand[2] = board[bt[0]]
			hand[3] = board[bt[1]]
			hand[4] = board[bt[2]]

			rank := Evaluate5(hand)
			if best.Category == 0 || Compare(rank, best) > 0 {
				best = rank
			}
		}
	}

	return best
}

// Evaluate5 classifies a five-card hand on the standard ladder.
func Evaluate5(cards [5]deck.Card) HandRank {
	ranks := make([]deck.Rank, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = c.Rank
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })

	straightHigh, straight := straightHighRank(ranks)

	if straight && flush {
		return rankOf(StraightFlush, cards, straightTiebreaks(straightHigh))
	}

	// Group ranks by multiplicity
	counts := map[deck.Rank]int{}
	for _, r := range ranks {
		counts[r]++
	}
	groups := make([]rankGroup, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, rankGroup{rank: r, count: n})
	}
	// Higher multiplicity first, then higher rank
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	tb := groupTiebreaks(groups)

	switch {
	case groups[0].count == 4:
		return rankOf(FourOfAKind, cards, tb)
	case groups[0].count == 3 && groups[1].count == 2:
		return rankOf(FullHouse, cards, tb)
	case flush:
		var fb [5]deck.Rank
		copy(fb[:], ranks)
		return rankOf(Flush, cards, fb)
	case straight:
		return rankOf(Straight, cards, straightTiebreaks(straightHigh))
	case groups[0].count == 3:
		return rankOf(ThreeOfAKind, cards, tb)
	case groups[0].count == 2 && groups[1].count == 2:
		return rankOf(TwoPair, cards, tb)
	case groups[0].count == 2:
		return rankOf(Pair, cards, tb)
	default:
		var fb [5]deck.Rank
		copy(fb[:], ranks)
		return rankOf(HighCard, cards, fb)
	}
}

type rankGroup struct {
	rank  deck.Rank
	count int
}

func rankOf(cat Category, cards [5]deck.Card, tb [5]deck.Rank) HandRank {
	return HandRank{Category: cat, Tiebreaks: tb, Best: cards}
}

// groupTiebreaks flattens grouped ranks into the five tie-break slots,
// repeating each group's rank by its multiplicity.
func groupTiebreaks(groups []rankGroup) [5]deck.Rank {
	var tb [5]deck.Rank
	i := 0
	for _, g := range groups {
		for n := 0; n < g.count && i < 5; n++ {
			tb[i] = g.rank
			i++
		}
	}
	return tb
}

func straightTiebreaks(high deck.Rank) [5]deck.Rank {
	// Only the top card matters for straights; remaining slots stay zero
	// so equal straights compare equal regardless of the wheel's ace.
	return [5]deck.Rank{high}
}

// straightHighRank reports whether the descending-sorted ranks form a
// straight, and its high card. The wheel (A-5-4-3-2) ranks below 6-high.
func straightHighRank(sorted []deck.Rank) (deck.Rank, bool) {
	distinct := true
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			distinct = false
			break
		}
	}
	if !distinct {
		return 0, false
	}

	if sorted[0]-sorted[4] == 4 {
		return sorted[0], true
	}

	// Wheel: A,5,4,3,2 sorts as [A 5 4 3 2]
	if sorted[0] == deck.Ace && sorted[1] == deck.Five &&
		sorted[2] == deck.Four && sorted[3] == deck.Three && sorted[4] == deck.Two {
		return deck.Five, true
	}

	return 0, false
}
