// Package store is the narrow persistence contract the table core writes
// through: transactional bankroll debits/credits, hand history, and the
// per-player statistics cache. No other database access is permitted.
package store

import (
	"context"
	"errors"

	"github.com/lox/ploroom/internal/deck"
	"github.com/lox/ploroom/internal/engine"
	"github.com/lox/ploroom/internal/stats"
)

var (
	// ErrInsufficientBalance indicates a buy-in debit would overdraw.
	ErrInsufficientBalance = errors.New("store: insufficient balance")

	// ErrUnknownUser indicates the user has no bankroll row.
	ErrUnknownUser = errors.New("store: unknown user")
)

// HandPlayer is one seat's row in a persisted hand.
type HandPlayer struct {
	UserID        string
	Seat          int
	HoleCards     [4]deck.Card
	FinalHand     string
	Profit        int
	AllInEVProfit int
}

// HandRecord is the single record dispatched at hand completion.
type HandRecord struct {
	TableID    string
	HandNumber uint64
	Blinds     string
	Community  []deck.Card
	Pot        int
	Rake       int
	DealerPos  int
	Winners    []engine.Winner
	Actions    []engine.ActionRecord
	Players    []HandPlayer
}

// cardStrings renders cards in the compact "Ah Kd" form used by the
// persisted JSON columns.
func cardStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

// Store is the transactional persistence interface. Debits and credits
// are atomic per user; RecordHand and IncrementStats are fire-and-forget
// from the table's point of view.
type Store interface {
	// EnsureUser creates the user and bankroll rows if absent.
	EnsureUser(ctx context.Context, userID, name string, startingBalance int) error

	// DeductBuyIn atomically debits a buy-in. Returns
	// ErrInsufficientBalance without any partial debit on overdraw.
	DeductBuyIn(ctx context.Context, userID string, amount int, tableID string) error

	// CashOut atomically credits chips back to the bankroll.
	CashOut(ctx context.Context, userID string, amount int, tableID string) error

	Balance(ctx context.Context, userID string) (int, error)

	RecordHand(ctx context.Context, rec HandRecord) error

	IncrementStats(ctx context.Context, userID string, inc stats.Increment) error

	Close() error
}
