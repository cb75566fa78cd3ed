package table

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/ploroom/internal/engine"
	"github.com/lox/ploroom/internal/store"
)

// ParseBlinds parses an "sb/bb" blinds string.
func ParseBlinds(s string) (int, int, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid blinds format %q", s)
	}
	sb, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid small blind in %q", s)
	}
	bb, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid big blind in %q", s)
	}
	if sb < 1 || bb <= sb {
		return 0, 0, fmt.Errorf("invalid blinds %q: need 1 <= sb < bb", s)
	}
	return sb, bb, nil
}

// ManagerConfig carries the defaults every created table inherits.
type ManagerConfig struct {
	Rake        engine.RakeConfig
	Timing      Timing
	Maintenance func() bool

	// Metric hooks, fanned into every table.
	HandCompleted func()
	ActionApplied func()
	ActionTimeout func()
}

// Manager owns the table registry and the one-table-per-player index.
// Fast-fold reassignments flow through a dedicated worker so a table
// goroutine never seats a player synchronously.
type Manager struct {
	mu            sync.Mutex
	tables        map[string]*Table
	playerToTable map[string]string
	inviteCodes   map[string]string
	seedRng       *rand.Rand

	cfg    ManagerConfig
	clock  quartz.Clock
	store  store.Store
	logger *log.Logger

	reassignCh chan ReassignRequest
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewManager(cfg ManagerConfig, clock quartz.Clock, st store.Store, seedRng *rand.Rand, logger *log.Logger) *Manager {
	m := &Manager{
		tables:        make(map[string]*Table),
		playerToTable: make(map[string]string),
		inviteCodes:   make(map[string]string),
		seedRng:       seedRng,
		cfg:           cfg,
		clock:         clock,
		store:         st,
		logger:        logger.WithPrefix("manager"),
		reassignCh:    make(chan ReassignRequest, 64),
		stopCh:        make(chan struct{}),
	}
	go m.reassignWorker()
	return m
}

// Stop tears down every table and the reassignment worker.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, tbl := range m.tables {
			tbl.Stop()
		}
	})
}

// GetOrCreateTable returns a public table matching the attributes with a
// free seat, preferring one other than excludeID; creates one if needed.
func (m *Manager) GetOrCreateTable(blinds string, isFastFold bool, excludeID string) (*Table, error) {
	m.mu.Lock()
	var fallback *Table
	var picked *Table
	for _, tbl := range m.tables {
		if tbl.Blinds() != blinds || tbl.IsFastFold() != isFastFold || tbl.IsPrivate() {
			continue
		}
		if !tbl.HasAvailableSeat() {
			continue
		}
		if tbl.ID() == excludeID {
			fallback = tbl
			continue
		}
		picked = tbl
		break
	}
	m.mu.Unlock()

	if picked == nil {
		picked = fallback
	}
	if picked != nil {
		return picked, nil
	}
	return m.CreateTable(blinds, isFastFold)
}

// CreateTable creates and registers a public table.
func (m *Manager) CreateTable(blinds string, isFastFold bool) (*Table, error) {
	return m.createTable(blinds, isFastFold, false, "")
}

// CreatePrivateTable creates an invite-only table and returns it with
// its invite code.
func (m *Manager) CreatePrivateTable(blinds string) (*Table, string, error) {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	tbl, err := m.createTable(blinds, false, true, code)
	if err != nil {
		return nil, "", err
	}
	return tbl, code, nil
}

func (m *Manager) createTable(blinds string, isFastFold, isPrivate bool, inviteCode string) (*Table, error) {
	sb, bb, err := ParseBlinds(blinds)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	m.mu.Lock()
	rng := rand.New(rand.NewSource(m.seedRng.Int63()))
	m.mu.Unlock()

	tbl := New(Config{
		ID:         id,
		Blinds:     blinds,
		SmallBlind: sb,
		BigBlind:   bb,
		IsFastFold: isFastFold,
		IsPrivate:  isPrivate,
		InviteCode: inviteCode,
		Rake:       m.cfg.Rake,
		Timing:     m.cfg.Timing,
	}, m.clock, m.store, rng, m.logger, Hooks{
		Maintenance:   m.cfg.Maintenance,
		Reassign:      m.enqueueReassign,
		PlayerLeft:    m.RemovePlayer,
		Emptied:       m.RemoveTable,
		HandCompleted: m.cfg.HandCompleted,
		ActionApplied: m.cfg.ActionApplied,
		ActionTimeout: m.cfg.ActionTimeout,
	})

	m.mu.Lock()
	m.tables[id] = tbl
	if inviteCode != "" {
		m.inviteCodes[inviteCode] = id
	}
	m.mu.Unlock()

	m.logger.Info("table created", "table_id", id, "blinds", blinds, "fast_fold", isFastFold, "private", isPrivate)
	return tbl, nil
}

// FindTable returns the table by id, or nil.
func (m *Manager) FindTable(id string) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[id]
}

// FindByInvite resolves an invite code to its private table, or nil.
func (m *Manager) FindByInvite(code string) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.inviteCodes[strings.ToUpper(code)]
	if !ok {
		return nil
	}
	return m.tables[id]
}

// TableFor returns the table the user is seated at, or nil.
func (m *Manager) TableFor(userID string) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.playerToTable[userID]
	if !ok {
		return nil
	}
	return m.tables[id]
}

// SetPlayerTable records the user's residency. Must happen before the
// session is told it is seated, closing the double-seat race.
func (m *Manager) SetPlayerTable(userID, tableID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerToTable[userID] = tableID
}

// RemovePlayer drops the user's residency tracking.
func (m *Manager) RemovePlayer(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.playerToTable, userID)
}

// RemoveTable stops and deregisters a table.
func (m *Manager) RemoveTable(id string) {
	m.mu.Lock()
	tbl, ok := m.tables[id]
	if ok {
		delete(m.tables, id)
		if tbl.InviteCode() != "" {
			delete(m.inviteCodes, tbl.InviteCode())
		}
	}
	m.mu.Unlock()
	if ok {
		tbl.Stop()
		m.logger.Info("table removed", "table_id", id)
	}
}

// TableCount returns the number of registered tables.
func (m *Manager) TableCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables)
}

func (m *Manager) enqueueReassign(req ReassignRequest) {
	select {
	case m.reassignCh <- req:
	case <-m.stopCh:
	}
}

func (m *Manager) reassignWorker() {
	for {
		select {
		case req := <-m.reassignCh:
			m.handleReassign(req)
		case <-m.stopCh:
			return
		}
	}
}

// handleReassign seats a fast-fold mover at another table of the same
// blinds, creating one if needed. On failure the chips are cashed out
// and the player is told they left.
func (m *Manager) handleReassign(req ReassignRequest) {
	tbl, err := m.GetOrCreateTable(req.Blinds, true, req.FromTableID)
	if err == nil {
		m.SetPlayerTable(req.UserID, tbl.ID())
		var seat int
		seat, err = tbl.SeatPlayer(SeatRequest{
			UserID:    req.UserID,
			Name:      req.Name,
			Avatar:    req.Avatar,
			IsBot:     req.IsBot,
			Chips:     req.Chips,
			BuyIn:     req.Chips,
			Preferred: -1,
			Session:   req.Session,
		})
		if err == nil {
			if req.Session != nil {
				req.Session.Send("table:change", map[string]any{
					"tableId": tbl.ID(),
					"seat":    seat,
				})
			}
			tbl.TriggerMaybeStartHand()
			return
		}
	}

	m.logger.Warn("fast-fold reassign failed, cashing out", "user", req.UserID, "err", err)
	m.RemovePlayer(req.UserID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if req.Chips > 0 {
		if err := m.store.CashOut(ctx, req.UserID, req.Chips, req.FromTableID); err != nil {
			m.logger.Error("cashout failed", "user", req.UserID, "chips", req.Chips, "err", err)
		}
	}
	if req.Session != nil {
		req.Session.Send("table:left", map[string]any{"tableId": req.FromTableID})
	}
}
