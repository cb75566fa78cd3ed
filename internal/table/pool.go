package table

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/ploroom/internal/store"
)

// drainInterval is how often queued players are swept into tables; a
// join also triggers an immediate drain.
const drainInterval = 500 * time.Millisecond

// ErrAlreadyQueued indicates the user is already waiting for a seat.
var ErrAlreadyQueued = errors.New("matchmaking: already queued")

type queueKey struct {
	blinds   string
	fastFold bool
}

func (k queueKey) String() string {
	if k.fastFold {
		return k.blinds + " (fast-fold)"
	}
	return k.blinds
}

type poolEntry struct {
	userID   string
	name     string
	avatar   string
	isBot    bool
	session  Session
	buyIn    int
	queuedAt time.Time
}

// JoinRequest enqueues a player for a seat.
type JoinRequest struct {
	UserID   string
	Name     string
	Avatar   string
	IsBot    bool
	Session  Session
	Blinds   string
	FastFold bool
	BuyIn    int
}

// QueueStatus is the observable state of one blind-level queue.
type QueueStatus struct {
	Count     int   `json:"count"`
	AvgWaitMs int64 `json:"avgWaitMs"`
}

// Pool is the matchmaking pool: per-blind FIFO queues drained into
// tables every drainInterval and on enqueue.
type Pool struct {
	mu     sync.Mutex
	queues map[queueKey][]*poolEntry

	manager     *Manager
	store       store.Store
	clock       quartz.Clock
	logger      *log.Logger
	maintenance func() bool

	trigger  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPool(manager *Manager, st store.Store, clock quartz.Clock, logger *log.Logger, maintenance func() bool) *Pool {
	p := &Pool{
		queues:      make(map[queueKey][]*poolEntry),
		manager:     manager,
		store:       st,
		clock:       clock,
		logger:      logger.WithPrefix("pool"),
		maintenance: maintenance,
		trigger:     make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *Pool) run() {
	ticker := p.clock.NewTicker(drainInterval, "pool", "drain")
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.drain()
		case <-p.trigger:
			p.drain()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) kick() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Join enqueues the player and returns their queue position (1-based).
func (p *Pool) Join(req JoinRequest) (int, error) {
	if _, _, err := ParseBlinds(req.Blinds); err != nil {
		return 0, err
	}
	if req.BuyIn <= 0 {
		return 0, fmt.Errorf("matchmaking: invalid buy-in %d", req.BuyIn)
	}
	if p.manager.TableFor(req.UserID) != nil {
		return 0, ErrAlreadySeated
	}

	key := queueKey{blinds: req.Blinds, fastFold: req.FastFold}
	p.mu.Lock()
	for _, q := range p.queues {
		for _, e := range q {
			if e.userID == req.UserID {
				p.mu.Unlock()
				return 0, ErrAlreadyQueued
			}
		}
	}
	p.queues[key] = append(p.queues[key], &poolEntry{
		userID:   req.UserID,
		name:     req.Name,
		avatar:   req.Avatar,
		isBot:    req.IsBot,
		session:  req.Session,
		buyIn:    req.BuyIn,
		queuedAt: p.clock.Now(),
	})
	pos := len(p.queues[key])
	p.mu.Unlock()

	p.logger.Debug("player queued", "user", req.UserID, "blinds", req.Blinds, "fast_fold", req.FastFold, "position", pos)
	p.kick()
	return pos, nil
}

// Leave removes the user from every queue.
func (p *Pool) Leave(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, q := range p.queues {
		for i, e := range q {
			if e.userID == userID {
				p.queues[key] = append(q[:i:i], q[i+1:]...)
				break
			}
		}
	}
}

// HandleDisconnect removes the user from every queue. Entries whose
// sessions dropped without notice are also discarded lazily at drain.
func (p *Pool) HandleDisconnect(userID string) {
	p.Leave(userID)
}

// QueuedCount returns the total number of waiting players.
func (p *Pool) QueuedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, q := range p.queues {
		n += len(q)
	}
	return n
}

// Status reports per-queue counts and average wait.
func (p *Pool) Status() map[string]QueueStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	out := make(map[string]QueueStatus, len(p.queues))
	for key, q := range p.queues {
		if len(q) == 0 {
			continue
		}
		var total time.Duration
		for _, e := range q {
			total += now.Sub(e.queuedAt)
		}
		out[key.String()] = QueueStatus{
			Count:     len(q),
			AvgWaitMs: (total / time.Duration(len(q))).Milliseconds(),
		}
	}
	return out
}

func (p *Pool) drain() {
	if p.maintenance != nil && p.maintenance() {
		return
	}

	p.mu.Lock()
	keys := make([]queueKey, 0, len(p.queues))
	for key, q := range p.queues {
		if len(q) > 0 {
			keys = append(keys, key)
		}
	}
	p.mu.Unlock()

	for _, key := range keys {
		p.drainQueue(key)
	}
}

func (p *Pool) drainQueue(key queueKey) {
	exclude := ""
	for {
		if p.queueLen(key) == 0 {
			return
		}
		tbl, err := p.manager.GetOrCreateTable(key.blinds, key.fastFold, exclude)
		if err != nil {
			p.logger.Error("table create failed", "blinds", key.blinds, "err", err)
			return
		}
		if !p.fillTable(key, tbl) {
			return
		}
		// A full table's worth still waiting justifies another table
		if p.queueLen(key) < NumSeats {
			return
		}
		exclude = tbl.ID()
	}
}

// fillTable seats queued players until the table or the queue runs out.
// Returns false when draining should stop for this sweep.
func (p *Pool) fillTable(key queueKey, tbl *Table) bool {
	seated := false
	for tbl.HasAvailableSeat() {
		entry := p.pop(key)
		if entry == nil {
			break
		}
		// Lazy purge of dead sessions
		if entry.session == nil || !entry.session.Connected() {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := p.store.DeductBuyIn(ctx, entry.userID, entry.buyIn, tbl.ID())
		cancel()
		if err != nil {
			if errors.Is(err, store.ErrInsufficientBalance) || errors.Is(err, store.ErrUnknownUser) {
				entry.session.Send("table:error", map[string]any{"message": "Insufficient balance"})
				continue
			}
			p.logger.Warn("buy-in debit failed, requeueing", "user", entry.userID, "err", err)
			p.pushBack(key, entry)
			return false
		}

		p.manager.SetPlayerTable(entry.userID, tbl.ID())
		_, err = tbl.SeatPlayer(SeatRequest{
			UserID:    entry.userID,
			Name:      entry.name,
			Avatar:    entry.avatar,
			IsBot:     entry.isBot,
			Chips:     entry.buyIn,
			BuyIn:     entry.buyIn,
			Preferred: -1,
			Session:   entry.session,
		})
		if err != nil {
			// Compensate the debit before the player hears anything
			p.manager.RemovePlayer(entry.userID)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if rerr := p.store.CashOut(ctx, entry.userID, entry.buyIn, tbl.ID()); rerr != nil {
				p.logger.Error("buy-in refund failed", "user", entry.userID, "err", rerr)
			}
			cancel()
			p.pushBack(key, entry)
			return false
		}

		entry.session.Send("matchmaking:table_assigned", map[string]any{"tableId": tbl.ID()})
		seated = true
	}

	if seated {
		tbl.TriggerMaybeStartHand()
	}
	return true
}

func (p *Pool) queueLen(key queueKey) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queues[key])
}

func (p *Pool) pop(key queueKey) *poolEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.queues[key]
	if len(q) == 0 {
		return nil
	}
	entry := q[0]
	p.queues[key] = q[1:]
	return entry
}

func (p *Pool) pushBack(key queueKey, entry *poolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues[key] = append(p.queues[key], entry)
}
