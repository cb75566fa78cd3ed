package table

import (
	"github.com/lox/ploroom/internal/deck"
	"github.com/lox/ploroom/internal/engine"
)

// Client-facing payloads. Hole cards appear only in per-seat unicasts
// and in the showdown reveal.

type SeatView struct {
	Seat               int      `json:"seat"`
	PlayerID           string   `json:"playerId"`
	Name               string   `json:"name"`
	Avatar             string   `json:"avatar,omitempty"`
	IsBot              bool     `json:"isBot,omitempty"`
	Chips              int      `json:"chips"`
	Bet                int      `json:"bet"`
	Folded             bool     `json:"folded"`
	AllIn              bool     `json:"allIn"`
	WaitingForNextHand bool     `json:"waitingForNextHand"`
	HoleCards          []string `json:"holeCards,omitempty"`
}

type StateView struct {
	TableID    string     `json:"tableId"`
	Blinds     string     `json:"blinds"`
	IsFastFold bool       `json:"isFastFold"`
	HandNumber uint64     `json:"handNumber"`
	Phase      string     `json:"phase"`
	Street     string     `json:"street,omitempty"`
	Community  []string   `json:"communityCards"`
	Pot        int        `json:"pot"`
	CurrentBet int        `json:"currentBet"`
	DealerSeat int        `json:"dealerSeat"`
	ActionSeat int        `json:"actionSeat"`
	Seats      []SeatView `json:"seats"`
}

type ActionTakenView struct {
	PlayerID      string `json:"playerId"`
	Seat          int    `json:"seat"`
	Action        string `json:"action"`
	Amount        int    `json:"amount"`
	StreetChanged bool   `json:"streetChanged"`
}

type ValidActionView struct {
	Action string `json:"action"`
	Min    int    `json:"minAmount,omitempty"`
	Max    int    `json:"maxAmount,omitempty"`
}

type ActionRequiredView struct {
	PlayerID     string            `json:"playerId"`
	Seat         int               `json:"seat"`
	ValidActions []ValidActionView `json:"validActions"`
	TimeoutMs    int               `json:"timeoutMs"`
}

type HoleCardsView struct {
	Cards []string `json:"cards"`
}

type SeatHoleCardsView struct {
	Seat     int      `json:"seatIndex"`
	PlayerID string   `json:"playerId"`
	Cards    []string `json:"cards"`
}

type AllHoleCardsView struct {
	Players []SeatHoleCardsView `json:"players"`
}

type WinnerView struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
	HandDesc string `json:"handDesc,omitempty"`
}

type HandCompleteView struct {
	HandNumber uint64       `json:"handNumber"`
	Winners    []WinnerView `json:"winners"`
	Rake       int          `json:"rake"`
	Community  []string     `json:"communityCards"`
}

func cardsToStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func validActionViews(actions []engine.ValidAction) []ValidActionView {
	out := make([]ValidActionView, len(actions))
	for i, a := range actions {
		out[i] = ValidActionView{Action: a.Action.String(), Min: a.Min, Max: a.Max}
	}
	return out
}
