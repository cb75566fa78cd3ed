// Package stats derives per-player statistic increments from completed
// hands. Increments are plain counters; percentage views (VPIP%, AFq)
// are computed downstream from the accumulated cache.
package stats

import (
	"github.com/lox/ploroom/internal/engine"
)

// Increment is one hand's contribution to a player's cached counters.
type Increment struct {
	Hands          int `json:"hands"`
	VPIP           int `json:"vpip"`
	PFR            int `json:"pfr"`
	ThreeBet       int `json:"threeBet"`
	FourBet        int `json:"fourBet"`
	CBet           int `json:"cBet"`
	CBetFaced      int `json:"cBetFaced"`
	FoldToCBet     int `json:"foldToCBet"`
	SawFlop        int `json:"sawFlop"`
	WTSD           int `json:"wtsd"`
	WonAtShowdown  int `json:"wonAtShowdown"`
	AggActions     int `json:"aggActions"`     // bets and raises, all streets
	PassiveActions int `json:"passiveActions"` // calls, checks, folds
	Profit         int `json:"profit"`
	AllInEVProfit  int `json:"allInEvProfit"`
	WentAllIn      int `json:"wentAllIn"`
}

// ComputeIncrements walks a completed hand and produces one increment
// per dealt-in seat, keyed by seat index. allInEV carries the equity-
// based profit for hands that were all-in before the river; pass nil
// when the hand resolved normally.
func ComputeIncrements(h *engine.HandState, allInEV map[int]int) map[int]Increment {
	if h == nil || !h.IsHandComplete {
		return nil
	}

	incs := make(map[int]Increment)
	for i, p := range h.Players {
		if p != nil && p.InHand {
			incs[i] = Increment{Hands: 1}
		}
	}

	won := make(map[int]int)
	for _, w := range h.Winners {
		won[w.Seat] += w.Amount
	}

	// Preflop raise levels: the big blind counts as the first bet, so
	// the open raise is level 2, a 3-bet level 3, a 4-bet level 4.
	raiseLevel := 1
	var preflopAggressor = -1
	sawCBet := false
	cBettor := -1

	for _, rec := range h.HandHistory {
		inc := incs[rec.Seat]

		switch rec.Action {
		case engine.Bet, engine.Raise:
			inc.AggActions++
		case engine.AllIn:
			// All-ins that increase the bet are aggressive
			inc.AggActions++
			inc.WentAllIn = 1
		default:
			inc.PassiveActions++
		}

		if rec.Street == engine.Preflop {
			switch rec.Action {
			case engine.Call, engine.Bet, engine.Raise, engine.AllIn:
				inc.VPIP = 1
			}
			if rec.Action == engine.Raise || rec.Action == engine.AllIn {
				raiseLevel++
				inc.PFR = 1
				preflopAggressor = rec.Seat
				switch raiseLevel {
				case 3:
					inc.ThreeBet = 1
				case 4:
					inc.FourBet = 1
				}
			}
		}

		if rec.Street == engine.Flop {
			if !sawCBet && (rec.Action == engine.Bet || rec.Action == engine.AllIn) && rec.Seat == preflopAggressor {
				sawCBet = true
				cBettor = rec.Seat
				inc.CBet = 1
			} else if sawCBet && rec.Seat != cBettor {
				inc.CBetFaced = 1
				if rec.Action == engine.Fold {
					inc.FoldToCBet = 1
				}
			}
		}

		incs[rec.Seat] = inc
	}

	reachedShowdown := h.LiveCount() > 1 && h.CurrentStreet == engine.Showdown
	reachedFlop := len(h.CommunityCards) >= 3

	for i, p := range h.Players {
		if p == nil || !p.InHand {
			continue
		}
		inc := incs[i]

		if reachedFlop && !foldedPreflop(h, i) {
			inc.SawFlop = 1
		}
		if reachedShowdown && !p.Folded {
			inc.WTSD = 1
			if won[i] > 0 {
				inc.WonAtShowdown = 1
			}
		}

		inc.Profit = won[i] - p.TotalBet
		if allInEV != nil {
			inc.AllInEVProfit = allInEV[i]
		} else {
			inc.AllInEVProfit = inc.Profit
		}

		incs[i] = inc
	}

	return incs
}

// foldedPreflop reports whether the seat's fold happened before the flop.
func foldedPreflop(h *engine.HandState, seat int) bool {
	for _, rec := range h.HandHistory {
		if rec.Seat == seat && rec.Action == engine.Fold {
			return rec.Street == engine.Preflop
		}
	}
	return false
}
