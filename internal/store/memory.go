package store

import (
	"context"
	"sync"

	"github.com/lox/ploroom/internal/stats"
)

// MemoryStore is an in-process Store used in tests and when persistence
// is disabled. Hands and stats are retained for inspection.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]int
	names    map[string]string
	hands    []HandRecord
	stats    map[string]stats.Increment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[string]int),
		names:    make(map[string]string),
		stats:    make(map[string]stats.Increment),
	}
}

func (m *MemoryStore) EnsureUser(_ context.Context, userID, name string, startingBalance int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[userID] = name
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = startingBalance
	}
	return nil
}

func (m *MemoryStore) DeductBuyIn(_ context.Context, userID string, amount int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok {
		return ErrUnknownUser
	}
	if balance < amount {
		return ErrInsufficientBalance
	}
	m.balances[userID] = balance - amount
	return nil
}

func (m *MemoryStore) CashOut(_ context.Context, userID string, amount int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
	return nil
}

func (m *MemoryStore) Balance(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok {
		return 0, ErrUnknownUser
	}
	return balance, nil
}

func (m *MemoryStore) RecordHand(_ context.Context, rec HandRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = append(m.hands, rec)
	return nil
}

func (m *MemoryStore) IncrementStats(_ context.Context, userID string, inc stats.Increment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.stats[userID]
	cur.Hands += inc.Hands
	cur.VPIP += inc.VPIP
	cur.PFR += inc.PFR
	cur.ThreeBet += inc.ThreeBet
	cur.FourBet += inc.FourBet
	cur.CBet += inc.CBet
	cur.CBetFaced += inc.CBetFaced
	cur.FoldToCBet += inc.FoldToCBet
	cur.SawFlop += inc.SawFlop
	cur.WTSD += inc.WTSD
	cur.WonAtShowdown += inc.WonAtShowdown
	cur.AggActions += inc.AggActions
	cur.PassiveActions += inc.PassiveActions
	cur.Profit += inc.Profit
	cur.AllInEVProfit += inc.AllInEVProfit
	cur.WentAllIn += inc.WentAllIn
	m.stats[userID] = cur
	return nil
}

// Hands returns a copy of every recorded hand.
func (m *MemoryStore) Hands() []HandRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HandRecord(nil), m.hands...)
}

// Stats returns the accumulated counters for a user.
func (m *MemoryStore) Stats(userID string) stats.Increment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats[userID]
}

func (m *MemoryStore) Close() error { return nil }
