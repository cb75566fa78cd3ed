package evaluator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ploroom/internal/deck"
)

func TestEquitiesSumToOne(t *testing.T) {
	tests := []struct {
		name      string
		community []string
	}{
		{"preflop monte carlo", nil},
		{"flop enumerated", []string{"2h", "7d", "Jc"}},
		{"turn enumerated", []string{"2h", "7d", "Jc", "Qs"}},
		{"river direct", []string{"2h", "7d", "Jc", "Qs", "3d"}},
	}

	active := []SeatHand{
		{Seat: 0, Hole: hole("Ah", "Ad", "Kh", "Kd")},
		{Seat: 2, Hole: hole("8c", "9c", "Tc", "6s")},
		{Seat: 4, Hole: hole("2c", "3s", "4d", "5h")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			community := deck.MustParseAll(tt.community...)
			rng := rand.New(rand.NewSource(42))
			equities := CalculateEquities(community, active, nil, rng)

			require.Len(t, equities, 3)
			sum := 0.0
			for _, eq := range equities {
				assert.GreaterOrEqual(t, eq, 0.0)
				assert.LessOrEqual(t, eq, 1.0)
				sum += eq
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}
}

func TestEquityFavoursDominatingHand(t *testing.T) {
	active := []SeatHand{
		{Seat: 0, Hole: hole("Ah", "Ad", "Kh", "Kd")},
		{Seat: 1, Hole: hole("2c", "3s", "7d", "8h")},
	}
	rng := rand.New(rand.NewSource(1))
	equities := CalculateEquities(nil, active, nil, rng)

	assert.Greater(t, equities[0], equities[1])
	assert.Greater(t, equities[0], 0.6)
}

func TestEquityLockedOnRiver(t *testing.T) {
	community := deck.MustParseAll("Ah", "Kd", "Qc", "2s", "7h")
	active := []SeatHand{
		{Seat: 0, Hole: hole("As", "Ac", "5d", "6h")}, // top set
		{Seat: 1, Hole: hole("3c", "4s", "8d", "9h")}, // nothing
	}
	equities := CalculateEquities(community, active, nil, rand.New(rand.NewSource(1)))

	assert.Equal(t, 1.0, equities[0])
	assert.Equal(t, 0.0, equities[1])
}

func TestEquitySplitPot(t *testing.T) {
	// Both seats hold pocket tens that cannot straighten (only three
	// board cards may play), leaving identical pair hands.
	community := deck.MustParseAll("Ah", "Kd", "Qc", "Js", "7h")
	active := []SeatHand{
		{Seat: 0, Hole: hole("Th", "Td", "2c", "3c")},
		{Seat: 1, Hole: hole("Ts", "Tc", "4d", "5d")},
	}
	equities := CalculateEquities(community, active, nil, rand.New(rand.NewSource(1)))

	assert.InDelta(t, 0.5, equities[0], 1e-9)
	assert.InDelta(t, 0.5, equities[1], 1e-9)
}

func TestAllInEVProfitsSinglePot(t *testing.T) {
	// Locked river: seat 0 wins the whole pot.
	community := deck.MustParseAll("Ah", "Kd", "Qc", "2s", "7h")
	hands := []SeatHand{
		{Seat: 0, Hole: hole("As", "Ac", "5d", "6h")},
		{Seat: 1, Hole: hole("3c", "4s", "8d", "9h")},
	}
	pots := []Pot{{Amount: 200, Eligible: []int{0, 1}}}
	totalBets := map[int]int{0: 100, 1: 100}

	profits := CalculateAllInEVProfits(community, hands, pots, totalBets, rand.New(rand.NewSource(1)))
	assert.Equal(t, 100, profits[0])
	assert.Equal(t, -100, profits[1])
}

func TestAllInEVProfitsSidePots(t *testing.T) {
	// Seat 1's short stack is only eligible for the main pot; seat 0
	// takes the side pot uncontested.
	community := deck.MustParseAll("Ah", "Kd", "Qc", "2s", "7h")
	hands := []SeatHand{
		{Seat: 0, Hole: hole("As", "Ac", "5d", "6h")},
		{Seat: 1, Hole: hole("3c", "4s", "8d", "9h")},
	}
	pots := []Pot{
		{Amount: 100, Eligible: []int{0, 1}},
		{Amount: 50, Eligible: []int{0}},
	}
	totalBets := map[int]int{0: 100, 1: 50}

	profits := CalculateAllInEVProfits(community, hands, pots, totalBets, rand.New(rand.NewSource(1)))
	assert.Equal(t, 50, profits[0])
	assert.Equal(t, -50, profits[1])
}

func TestAllInEVProfitsFoldedSeatLosesStake(t *testing.T) {
	hands := []SeatHand{
		{Seat: 0, Hole: hole("As", "Ac", "5d", "6h")},
		{Seat: 1, Hole: hole("Ks", "Kc", "8d", "9h")},
		{Seat: 2, Hole: hole("3c", "4s", "Td", "Jh"), Folded: true},
	}
	pots := []Pot{{Amount: 230, Eligible: []int{0, 1}}}
	totalBets := map[int]int{0: 100, 1: 100, 2: 30}

	profits := CalculateAllInEVProfits(nil, hands, pots, totalBets, rand.New(rand.NewSource(1)))
	assert.Equal(t, -30, profits[2])
	// The live seats split the folded stake between their EVs.
	assert.Equal(t, 30, profits[0]+profits[1])
}
