package evaluator

import (
	"math"
	"math/rand"

	"github.com/lox/ploroom/internal/deck"
)

// monteCarloTrials is the fixed sample size used when three or more
// board cards are missing.
const monteCarloTrials = 2000

// SeatHand pairs a seat index with its four hole cards.
type SeatHand struct {
	Seat   int
	Hole   [4]deck.Card
	Folded bool
}

// Pot is a pot or side-pot with the seats eligible to win it.
type Pot struct {
	Amount   int
	Eligible []int
}

// CalculateEquities returns each seat's share of the pot over all board
// completions. With two or fewer cards to come the boards are enumerated
// exhaustively; otherwise a fixed Monte-Carlo sample is drawn. Equities
// sum to 1 across the given hands.
func CalculateEquities(community []deck.Card, active []SeatHand, dead []deck.Card, rng *rand.Rand) map[int]float64 {
	equities := make(map[int]float64, len(active))
	if len(active) == 0 {
		return equities
	}
	for _, h := range active {
		equities[h.Seat] = 0
	}

	k := 5 - len(community)
	shares := make(map[int]float64, len(active))

	if k <= 0 {
		awardBoard(community, active, shares)
		for seat, s := range shares {
			equities[seat] = s
		}
		return equities
	}

	remaining := remainingCards(community, active, dead)

	var trials int
	board := make([]deck.Card, 5)
	copy(board, community)

	if k <= 2 {
		trials = forEachCombination(remaining, k, func(draw []deck.Card) {
			copy(board[len(community):], draw)
			awardBoard(board, active, shares)
		})
	} else {
		trials = monteCarloTrials
		pool := make([]deck.Card, len(remaining))
		for t := 0; t < trials; t++ {
			copy(pool, remaining)
			// Partial Fisher-Yates: only the first k positions are drawn.
			for i := 0; i < k; i++ {
				j := i + rng.Intn(len(pool)-i)
				pool[i], pool[j] = pool[j], pool[i]
			}
			copy(board[len(community):], pool[:k])
			awardBoard(board, active, shares)
		}
	}

	if trials == 0 {
		return equities
	}
	for seat, s := range shares {
		equities[seat] = s / float64(trials)
	}
	return equities
}

// CalculateAllInEVProfits computes each seat's expected profit across the
// given pots: per-pot equity times pot amount, minus the seat's total
// contribution, rounded half-to-even. Folded seats contribute their hole
// cards as dead cards and win nothing.
func CalculateAllInEVProfits(community []deck.Card, hands []SeatHand, pots []Pot, totalBets map[int]int, rng *rand.Rand) map[int]int {
	winnings := make(map[int]float64, len(hands))
	bySeat := make(map[int]SeatHand, len(hands))
	for _, h := range hands {
		bySeat[h.Seat] = h
	}

	var dead []deck.Card
	for _, h := range hands {
		if h.Folded {
			dead = append(dead, h.Hole[:]...)
		}
	}

	for _, pot := range pots {
		var eligible []SeatHand
		for _, seat := range pot.Eligible {
			if h, ok := bySeat[seat]; ok && !h.Folded {
				eligible = append(eligible, h)
			}
		}

		switch {
		case len(eligible) == 0:
			// No live claimant; nothing to distribute for EV purposes.
		case len(eligible) == 1:
			winnings[eligible[0].Seat] += float64(pot.Amount)
		default:
			equities := CalculateEquities(community, eligible, dead, rng)
			for seat, eq := range equities {
				winnings[seat] += eq * float64(pot.Amount)
			}
		}
	}

	profits := make(map[int]int, len(hands))
	for _, h := range hands {
		profits[h.Seat] = int(math.RoundToEven(winnings[h.Seat] - float64(totalBets[h.Seat])))
	}
	return profits
}

// awardBoard evaluates one complete board and adds 1/|winners| to each
// winner's share.
func awardBoard(board []deck.Card, hands []SeatHand, shares map[int]float64) {
	var full [5]deck.Card
	copy(full[:], board)

	var best HandRank
	var winners []int
	for _, h := range hands {
		rank := EvaluatePLO(h.Hole, full)
		if len(winners) == 0 {
			best = rank
			winners = append(winners, h.Seat)
			continue
		}
		switch Compare(rank, best) {
		case 1:
			best = rank
			winners = winners[:0]
			winners = append(winners, h.Seat)
		case 0:
			winners = append(winners, h.Seat)
		}
	}

	if len(winners) == 0 {
		return
	}
	share := 1.0 / float64(len(winners))
	for _, seat := range winners {
		shares[seat] += share
	}
}

// remainingCards returns the deck minus community, hole, and dead cards.
func remainingCards(community []deck.Card, hands []SeatHand, dead []deck.Card) []deck.Card {
	var used [52]bool
	for _, c := range community {
		used[c.Index()] = true
	}
	for _, h := range hands {
		for _, c := range h.Hole {
			used[c.Index()] = true
		}
	}
	for _, c := range dead {
		used[c.Index()] = true
	}

	remaining := make([]deck.Card, 0, 52)
	for rank := deck.Two; rank <= deck.Ace; rank++ {
		for suit := deck.Hearts; suit <= deck.Spades; suit++ {
			c := deck.NewCard(rank, suit)
			if !used[c.Index()] {
				remaining = append(remaining, c)
			}
		}
	}
	return remaining
}

// forEachCombination visits every k-combination of cards, returning the
// number visited. Only k ∈ {1, 2} occurs in practice.
func forEachCombination(cards []deck.Card, k int, visit func([]deck.Card)) int {
	count := 0
	switch k {
	case 1:
		draw := make([]deck.Card, 1)
		for _, c := range cards {
			draw[0] = c
			visit(draw)
			count++
		}
	case 2:
		draw := make([]deck.Card, 2)
		for i := 0; i < len(cards); i++ {
			for j := i + 1; j < len(cards); j++ {
				draw[0], draw[1] = cards[i], cards[j]
				visit(draw)
				count++
			}
		}
	}
	return count
}
