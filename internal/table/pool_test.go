package table

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ploroom/internal/store"
)

func newTestPool(t *testing.T) (*Pool, *Manager, *store.MemoryStore, *atomic.Bool, *quartz.Mock) {
	t.Helper()
	m, st, mock := newTestManager(t)
	var maintenance atomic.Bool
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	p := NewPool(m, st, mock, logger, maintenance.Load)
	t.Cleanup(p.Stop)
	return p, m, st, &maintenance, mock
}

func ensureUser(t *testing.T, st store.Store, userID string, balance int) {
	t.Helper()
	require.NoError(t, st.EnsureUser(context.Background(), userID, userID, balance))
}

func joinReq(userID string, sess Session) JoinRequest {
	return JoinRequest{
		UserID:  userID,
		Name:    userID,
		Session: sess,
		Blinds:  "1/3",
		BuyIn:   300,
	}
}

func TestPoolJoinValidation(t *testing.T) {
	p, _, st, maintenance, _ := newTestPool(t)
	maintenance.Store(true) // keep everyone queued
	ensureUser(t, st, "u1", 1000)

	req := joinReq("u1", newFakeSession("u1"))
	req.Blinds = "bogus"
	_, err := p.Join(req)
	assert.Error(t, err)

	req = joinReq("u1", newFakeSession("u1"))
	req.BuyIn = 0
	_, err = p.Join(req)
	assert.Error(t, err)

	pos, err := p.Join(joinReq("u1", newFakeSession("u1")))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	_, err = p.Join(joinReq("u1", newFakeSession("u1")))
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	pos, err = p.Join(joinReq("u2", newFakeSession("u2")))
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
	assert.Equal(t, 2, p.QueuedCount())
}

func TestPoolRejectsSeatedPlayer(t *testing.T) {
	p, m, _, maintenance, _ := newTestPool(t)
	maintenance.Store(true)

	tbl, err := m.CreateTable("1/3", false)
	require.NoError(t, err)
	m.SetPlayerTable("u1", tbl.ID())

	_, err = p.Join(joinReq("u1", newFakeSession("u1")))
	assert.ErrorIs(t, err, ErrAlreadySeated)
}

func TestPoolSeatsQueuedPlayers(t *testing.T) {
	p, m, st, _, _ := newTestPool(t)
	ensureUser(t, st, "u1", 1000)
	ensureUser(t, st, "u2", 1000)

	s1 := newFakeSession("u1")
	s2 := newFakeSession("u2")
	_, err := p.Join(joinReq("u1", s1))
	require.NoError(t, err)
	_, err = p.Join(joinReq("u2", s2))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return m.TableFor("u1") != nil && m.TableFor("u2") != nil
	}, 2*time.Second, 10*time.Millisecond, "players never seated")

	assert.Equal(t, m.TableFor("u1").ID(), m.TableFor("u2").ID(), "same blinds share a table")
	assert.Equal(t, 0, p.QueuedCount())
	assert.True(t, s1.sawEvent("matchmaking:table_assigned"))
	assert.True(t, s1.sawEvent("table:joined"))

	// Both buy-ins debited.
	for _, user := range []string{"u1", "u2"} {
		balance, err := st.Balance(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, 700, balance)
	}
}

func TestPoolInsufficientBalance(t *testing.T) {
	p, m, st, _, _ := newTestPool(t)
	ensureUser(t, st, "broke", 100)

	sess := newFakeSession("broke")
	_, err := p.Join(joinReq("broke", sess))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return sess.sawEvent("table:error")
	}, 2*time.Second, 10*time.Millisecond)

	assert.Nil(t, m.TableFor("broke"))
	assert.Equal(t, 0, p.QueuedCount(), "failed buy-in is discarded, not requeued")

	balance, err := st.Balance(context.Background(), "broke")
	require.NoError(t, err)
	assert.Equal(t, 100, balance)
}

func TestPoolDeadSessionPurged(t *testing.T) {
	p, m, st, _, _ := newTestPool(t)
	ensureUser(t, st, "ghost", 1000)

	sess := newFakeSession("ghost")
	sess.setConnected(false)
	_, err := p.Join(joinReq("ghost", sess))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return p.QueuedCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Nil(t, m.TableFor("ghost"))
	balance, err := st.Balance(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, 1000, balance, "no debit for a dead session")
}

func TestPoolLeaveRemovesFromQueue(t *testing.T) {
	p, _, st, maintenance, _ := newTestPool(t)
	maintenance.Store(true)
	ensureUser(t, st, "u1", 1000)

	_, err := p.Join(joinReq("u1", newFakeSession("u1")))
	require.NoError(t, err)
	require.Equal(t, 1, p.QueuedCount())

	p.Leave("u1")
	assert.Equal(t, 0, p.QueuedCount())

	// Re-joining after a leave is fine.
	_, err = p.Join(joinReq("u1", newFakeSession("u1")))
	require.NoError(t, err)

	p.HandleDisconnect("u1")
	assert.Equal(t, 0, p.QueuedCount())
}

func TestPoolStatus(t *testing.T) {
	p, _, st, maintenance, _ := newTestPool(t)
	maintenance.Store(true)
	ensureUser(t, st, "u1", 1000)
	ensureUser(t, st, "u2", 1000)

	_, err := p.Join(joinReq("u1", newFakeSession("u1")))
	require.NoError(t, err)

	ff := joinReq("u2", newFakeSession("u2"))
	ff.FastFold = true
	_, err = p.Join(ff)
	require.NoError(t, err)

	status := p.Status()
	require.Len(t, status, 2)
	assert.Equal(t, 1, status["1/3"].Count)
	assert.Equal(t, 1, status["1/3 (fast-fold)"].Count)
}

func TestPoolMaintenanceHoldsQueue(t *testing.T) {
	p, m, st, maintenance, mock := newTestPool(t)
	maintenance.Store(true)
	ensureUser(t, st, "u1", 1000)
	ensureUser(t, st, "u2", 1000)

	_, err := p.Join(joinReq("u1", newFakeSession("u1")))
	require.NoError(t, err)
	_, err = p.Join(joinReq("u2", newFakeSession("u2")))
	require.NoError(t, err)

	// Nothing drains while maintenance is on.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, p.QueuedCount())
	assert.Equal(t, 0, m.TableCount())

	// Lifting maintenance lets the next ticker sweep seat everyone.
	maintenance.Store(false)
	advance(t, mock, drainInterval)

	require.Eventually(t, func() bool {
		return m.TableFor("u1") != nil && m.TableFor("u2") != nil
	}, 2*time.Second, 10*time.Millisecond)
}
