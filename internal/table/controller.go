package table

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Timer keys. One outstanding timer per key; rescheduling a key cancels
// the prior callback through the generation counter.
const (
	keyAction           = "action"
	keyRunOut           = "runOut"
	keyStreetTransition = "streetTransition"
	keyNextHand         = "nextHand"
)

// PendingAction describes the decision a seat currently owes, kept for
// observability while the action timer runs.
type PendingAction struct {
	Seat     int
	Deadline time.Time
}

// Controller owns the table's timers. Every schedule on a key bumps a
// monotone generation; callbacks capture the generation at schedule time
// and no-op on mismatch, so a late fire after reschedule or cancel can
// never reach the table.
type Controller struct {
	mu      sync.Mutex
	clock   quartz.Clock
	gens    map[string]uint64
	timers  map[string]*quartz.Timer
	pending *PendingAction
}

func NewController(clock quartz.Clock) *Controller {
	return &Controller{
		clock:  clock,
		gens:   make(map[string]uint64),
		timers: make(map[string]*quartz.Timer),
	}
}

func (c *Controller) schedule(key string, d time.Duration, cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[key]++
	gen := c.gens[key]
	if t, ok := c.timers[key]; ok {
		t.Stop()
	}
	c.timers[key] = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		stale := c.gens[key] != gen
		if !stale && key == keyAction {
			c.pending = nil
		}
		c.mu.Unlock()
		if stale {
			return
		}
		cb()
	})
}

// ScheduleAction starts the per-decision countdown for a seat.
func (c *Controller) ScheduleAction(seat int, timeout time.Duration, onTimeout func()) {
	c.mu.Lock()
	c.pending = &PendingAction{Seat: seat, Deadline: c.clock.Now().Add(timeout)}
	c.mu.Unlock()
	c.schedule(keyAction, timeout, onTimeout)
}

// CancelAction stops the action countdown, typically because the seat
// acted in time.
func (c *Controller) CancelAction() {
	c.cancel(keyAction)
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

// ScheduleActionAnimation pauses briefly after a visible action so
// clients can render it before the next transition.
func (c *Controller) ScheduleActionAnimation(d time.Duration, cb func()) {
	c.schedule(keyRunOut, d, cb)
}

// ScheduleStreetTransition pauses between the street-closing action
// broadcast and the community-card reveal.
func (c *Controller) ScheduleStreetTransition(d time.Duration, cb func()) {
	c.schedule(keyStreetTransition, d, cb)
}

// ScheduleNextHand delays between hand completion and the next deal.
func (c *Controller) ScheduleNextHand(d time.Duration, cb func()) {
	c.schedule(keyNextHand, d, cb)
}

func (c *Controller) cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	if t, ok := c.timers[key]; ok {
		t.Stop()
		delete(c.timers, key)
	}
}

// CancelAll invalidates every outstanding timer. Idempotent; called at
// hand end, table close, and player departure.
func (c *Controller) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.gens {
		c.gens[key]++
	}
	for key, t := range c.timers {
		t.Stop()
		delete(c.timers, key)
	}
	c.pending = nil
}

// Pending returns the decision currently awaited, or nil.
func (c *Controller) Pending() *PendingAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	return &p
}
