package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ploroom/internal/deck"
	"github.com/lox/ploroom/internal/engine"
	"github.com/lox/ploroom/internal/stats"
)

func TestEnsureUserIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.EnsureUser(ctx, "u1", "alice", 10000))
	balance, err := st.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10000, balance)

	// Re-ensuring must not reset the balance.
	require.NoError(t, st.DeductBuyIn(ctx, "u1", 300, "t1"))
	require.NoError(t, st.EnsureUser(ctx, "u1", "alice", 10000))
	balance, err = st.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 9700, balance)
}

func TestDeductBuyInErrors(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	err := st.DeductBuyIn(ctx, "ghost", 100, "t1")
	assert.ErrorIs(t, err, ErrUnknownUser)

	require.NoError(t, st.EnsureUser(ctx, "u1", "alice", 200))
	err = st.DeductBuyIn(ctx, "u1", 300, "t1")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// A failed debit leaves the balance untouched.
	balance, err := st.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 200, balance)
}

func TestBuyInCashOutRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.EnsureUser(ctx, "u1", "alice", 1000))

	require.NoError(t, st.DeductBuyIn(ctx, "u1", 300, "t1"))
	require.NoError(t, st.CashOut(ctx, "u1", 450, "t1"))

	balance, err := st.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1150, balance)
}

func TestUnknownBalance(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.Balance(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestRecordHand(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	rec := HandRecord{
		TableID:    "t1",
		HandNumber: 7,
		Blinds:     "1/3",
		Community:  deck.MustParseAll("Ah", "Kd", "2c", "7s", "9h"),
		Pot:        60,
		Rake:       3,
		DealerPos:  2,
		Winners:    []engine.Winner{{Seat: 0, Amount: 57, HandDesc: "two pair"}},
		Players: []HandPlayer{
			{UserID: "u1", Seat: 0, Profit: 27},
			{UserID: "u2", Seat: 1, Profit: -30},
		},
	}
	require.NoError(t, st.RecordHand(ctx, rec))

	hands := st.Hands()
	require.Len(t, hands, 1)
	assert.Equal(t, uint64(7), hands[0].HandNumber)
	assert.Equal(t, rec.Winners, hands[0].Winners)
	assert.Len(t, hands[0].Players, 2)
}

func TestIncrementStatsAccumulates(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.IncrementStats(ctx, "u1", stats.Increment{Hands: 1, VPIP: 1, Profit: 10}))
	require.NoError(t, st.IncrementStats(ctx, "u1", stats.Increment{Hands: 1, PFR: 1, Profit: -4}))

	got := st.Stats("u1")
	assert.Equal(t, 2, got.Hands)
	assert.Equal(t, 1, got.VPIP)
	assert.Equal(t, 1, got.PFR)
	assert.Equal(t, 6, got.Profit)
}
