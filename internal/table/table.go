// Package table drives six-seat PLO tables: seat management, the
// per-table hand loop over the pure engine, timers, broadcast fan-out,
// matchmaking, and fast-fold reassignment.
package table

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/ploroom/internal/deck"
	"github.com/lox/ploroom/internal/engine"
	"github.com/lox/ploroom/internal/evaluator"
	"github.com/lox/ploroom/internal/stats"
	"github.com/lox/ploroom/internal/store"
)

// Phase is the table's position in the hand lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDealing
	PhaseAwaitingAction
	PhaseStreetTransition
	PhaseRunout
	PhaseResolving
	PhasePostingResults
)

func (p Phase) String() string {
	return [...]string{"idle", "dealing", "awaiting-action", "street-transition", "runout", "resolving", "posting-results"}[p]
}

// Timing bundles the table's presentation and decision delays.
type Timing struct {
	ActionTimeout   time.Duration
	ActionAnimation time.Duration
	StreetDelay     time.Duration
	ResultDelay     time.Duration
}

// Config is a table's immutable identity and rules.
type Config struct {
	ID         string
	Blinds     string // "sb/bb"
	SmallBlind int
	BigBlind   int
	IsFastFold bool
	IsPrivate  bool
	InviteCode string
	Rake       engine.RakeConfig
	Timing     Timing
}

// ReassignRequest asks the manager to re-seat a fast-fold player at a
// different table of the same blinds. Chips travel with the player; no
// additional buy-in is deducted.
type ReassignRequest struct {
	UserID      string
	Name        string
	Avatar      string
	IsBot       bool
	Chips       int
	Session     Session
	FromTableID string
	Blinds      string
}

// Hooks are the table's outbound dependencies. All optional.
type Hooks struct {
	// Maintenance gates new hand starts globally.
	Maintenance func() bool

	// Reassign is invoked on fast-fold departures. Must not call back
	// into this table synchronously.
	Reassign func(ReassignRequest)

	// PlayerLeft is invoked whenever a seat is vacated, so the manager
	// can drop its player-to-table tracking.
	PlayerLeft func(userID string)

	// Emptied is invoked when a private table loses its last seat.
	Emptied func(tableID string)

	HandCompleted func()
	ActionApplied func()
	ActionTimeout func()
}

// SeatRequest carries everything needed to seat a player. The buy-in
// has already been debited by the caller.
type SeatRequest struct {
	UserID    string
	Name      string
	Avatar    string
	IsBot     bool
	Chips     int
	BuyIn     int
	Preferred int // -1 for no preference
	Session   Session
}

// Table is one six-seat PLO table. All hand-state mutation happens on
// the table's own goroutine; commands are funneled through a serial
// queue so no two can touch the hand concurrently.
type Table struct {
	cfg        Config
	seats      seatManager
	room       *Room
	controller *Controller
	clock      quartz.Clock
	store      store.Store
	hooks      Hooks
	logger     *log.Logger
	rng        *rand.Rand

	// Owned by the run goroutine.
	hand           *engine.HandState
	handNumber     uint64
	phase          Phase
	dealerPosition int
	ranAllInRunout bool

	cmds     chan func()
	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(cfg Config, clock quartz.Clock, st store.Store, rng *rand.Rand, logger *log.Logger, hooks Hooks) *Table {
	t := &Table{
		cfg:            cfg,
		clock:          clock,
		store:          st,
		hooks:          hooks,
		logger:         logger.WithPrefix("table").With("table_id", cfg.ID),
		rng:            rng,
		dealerPosition: -1,
		cmds:           make(chan func(), 64),
		stopCh:         make(chan struct{}),
	}
	t.room = NewRoom(func() time.Time { return clock.Now() })
	t.controller = NewController(clock)
	go t.run()
	return t
}

func (t *Table) ID() string          { return t.cfg.ID }
func (t *Table) Blinds() string      { return t.cfg.Blinds }
func (t *Table) IsFastFold() bool    { return t.cfg.IsFastFold }
func (t *Table) IsPrivate() bool     { return t.cfg.IsPrivate }
func (t *Table) InviteCode() string  { return t.cfg.InviteCode }
func (t *Table) Room() *Room         { return t.room }
func (t *Table) Pending() *PendingAction {
	return t.controller.Pending()
}

func (t *Table) HasAvailableSeat() bool { return t.seats.hasAvailableSeat() }
func (t *Table) SeatedCount() int       { return t.seats.seatedCount() }

// Stop tears the table down. Outstanding timers are invalidated.
func (t *Table) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
		t.controller.CancelAll()
	})
}

func (t *Table) run() {
	for {
		select {
		case fn := <-t.cmds:
			fn()
		case <-t.stopCh:
			return
		}
	}
}

// do enqueues fn on the table's serial queue.
func (t *Table) do(fn func()) {
	select {
	case t.cmds <- fn:
	case <-t.stopCh:
	}
}

// call runs fn on the table goroutine and waits for it.
func (t *Table) call(fn func()) {
	done := make(chan struct{})
	t.do(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-t.stopCh:
	}
}

// SeatPlayer places the player at the table. The caller has already
// debited the buy-in; a seating failure must be compensated upstream.
func (t *Table) SeatPlayer(req SeatRequest) (int, error) {
	var (
		seat int
		err  error
	)
	t.call(func() {
		seat, err = t.seatPlayer(req)
	})
	return seat, err
}

func (t *Table) seatPlayer(req SeatRequest) (int, error) {
	handInProgress := t.hand != nil && !t.hand.IsHandComplete
	seat, err := t.seats.seatPlayer(&Seat{
		UserID:  req.UserID,
		Name:    req.Name,
		Avatar:  req.Avatar,
		IsBot:   req.IsBot,
		Chips:   req.Chips,
		BuyIn:   req.BuyIn,
		Session: req.Session,
	}, req.Preferred, handInProgress)
	if err != nil {
		return -1, err
	}

	if req.Session != nil {
		t.room.Join(req.Session)
		t.room.EmitToSession(req.Session, "table:joined", map[string]any{
			"tableId": t.cfg.ID,
			"seat":    seat,
		})
	}
	t.logger.Info("player seated", "user", req.UserID, "seat", seat, "chips", req.Chips)
	t.broadcastState()
	t.maybeStartHand()
	return seat, nil
}

// Leave unseats the player, folding their live hand first, and cashes
// their chips out to the bankroll.
func (t *Table) Leave(userID string) {
	t.do(func() { t.leave(userID, true) })
}

// HandleDisconnect is Leave without the goodbye message; the transport
// is already gone.
func (t *Table) HandleDisconnect(userID string) {
	t.do(func() { t.leave(userID, false) })
}

func (t *Table) leave(userID string, notify bool) {
	seat := t.seats.seatOf(userID)
	if seat == -1 {
		return
	}
	s := t.seats.seat(seat)

	if t.hand != nil && !t.hand.IsHandComplete && t.hand.Players[seat].Live() {
		next, events := engine.ProcessForceFold(t.hand, seat, t.opts())
		t.hand = next
		t.handleEvents(events)
	}
	// A still-running hand holds the seat's authoritative chip count
	if t.hand != nil && !t.hand.IsHandComplete && t.hand.Players[seat] != nil && t.hand.Players[seat].InHand {
		t.seats.setChips(seat, t.hand.Players[seat].Chips)
	}

	chips := t.seats.unseatPlayer(seat)
	t.cashOut(userID, chips)
	if s != nil && s.Session != nil {
		if notify {
			t.room.EmitToSession(s.Session, "table:left", map[string]any{"tableId": t.cfg.ID})
		}
		t.room.Leave(s.Session)
	}
	if t.hooks.PlayerLeft != nil {
		t.hooks.PlayerLeft(userID)
	}
	t.logger.Info("player left", "user", userID, "seat", seat, "cashout", chips)
	t.broadcastState()
	t.checkEmptied()
}

func (t *Table) cashOut(userID string, chips int) {
	if chips <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.store.CashOut(ctx, userID, chips, t.cfg.ID); err != nil {
		t.logger.Error("cashout failed", "user", userID, "chips", chips, "err", err)
	}
}

func (t *Table) checkEmptied() {
	if t.cfg.IsPrivate && t.seats.seatedCount() == 0 && t.hooks.Emptied != nil {
		t.hooks.Emptied(t.cfg.ID)
	}
}

// HandleAction applies a betting action from a session. Out-of-turn
// actions are ignored silently; in-turn invalid ones get a soft error.
func (t *Table) HandleAction(userID, action string, amount int) {
	t.do(func() { t.handleAction(userID, action, amount) })
}

func (t *Table) handleAction(userID, action string, amount int) {
	seat := t.seats.seatOf(userID)
	if seat == -1 || t.hand == nil || t.hand.IsHandComplete {
		return
	}
	if seat != t.hand.CurrentPlayerIndex {
		return
	}
	act, ok := engine.ParseActionType(action)
	if !ok {
		t.sendError(seat, "Unknown action")
		return
	}

	next, events := engine.ProcessCommand(t.hand, engine.PlayerActionCmd{Seat: seat, Action: act, Amount: amount}, t.opts())
	if len(events) == 0 {
		t.sendError(seat, "Invalid action")
		return
	}
	t.hand = next
	if t.hooks.ActionApplied != nil {
		t.hooks.ActionApplied()
	}
	if t.cfg.IsFastFold && act == engine.Fold {
		t.reassignSeat(seat)
	}
	t.handleEvents(events)
}

// FastFold folds the seat before its turn and moves the player to a
// fresh table. Fast-fold tables only.
func (t *Table) FastFold(userID string) {
	t.do(func() { t.fastFold(userID) })
}

func (t *Table) fastFold(userID string) {
	if !t.cfg.IsFastFold {
		return
	}
	seat := t.seats.seatOf(userID)
	if seat == -1 {
		return
	}

	if t.hand != nil && !t.hand.IsHandComplete && t.hand.Players[seat].Live() {
		next, events := engine.ProcessForceFold(t.hand, seat, t.opts())
		t.hand = next
		t.reassignSeat(seat)
		t.handleEvents(events)
		return
	}
	t.reassignSeat(seat)
}

// reassignSeat vacates the seat for a fast-fold move, chips traveling
// with the player, and hands the request to the manager.
func (t *Table) reassignSeat(seat int) {
	s := t.seats.seat(seat)
	if s == nil || s.LeftForFastFold {
		return
	}

	chips := s.Chips
	if t.hand != nil && t.hand.Players[seat] != nil && t.hand.Players[seat].InHand {
		chips = t.hand.Players[seat].Chips
	}

	req := ReassignRequest{
		UserID:      s.UserID,
		Name:        s.Name,
		Avatar:      s.Avatar,
		IsBot:       s.IsBot,
		Chips:       chips,
		Session:     s.Session,
		FromTableID: t.cfg.ID,
		Blinds:      t.cfg.Blinds,
	}
	t.seats.markLeftForFastFold(seat)
	if s.Session != nil {
		t.room.Leave(s.Session)
	}
	t.logger.Debug("fast-fold reassign", "user", s.UserID, "seat", seat, "chips", chips)

	if t.hooks.Reassign != nil {
		t.hooks.Reassign(req)
		return
	}
	// No manager wired: cash out instead
	t.cashOut(req.UserID, chips)
	if req.Session != nil {
		req.Session.Send("table:left", map[string]any{"tableId": t.cfg.ID})
	}
	if t.hooks.PlayerLeft != nil {
		t.hooks.PlayerLeft(req.UserID)
	}
}

// Spectate joins a session to the room read-only.
func (t *Table) Spectate(sess Session) {
	t.do(func() {
		t.room.Join(sess)
		t.room.EmitToSession(sess, "table:spectating", map[string]any{"tableId": t.cfg.ID})
		t.room.EmitToSession(sess, "game:state", t.stateView(sess.UserID()))
	})
}

// Unspectate removes a read-only session from the room.
func (t *Table) Unspectate(sess Session) {
	t.do(func() { t.room.Leave(sess) })
}

// TriggerMaybeStartHand asks the table to deal if it can. Safe to call
// redundantly; a no-op unless the table is idle with two ready seats.
func (t *Table) TriggerMaybeStartHand() {
	t.do(t.maybeStartHand)
}

func (t *Table) opts() engine.ProcessOptions {
	return engine.ProcessOptions{Rake: t.cfg.Rake}
}

func (t *Table) maybeStartHand() {
	if t.phase != PhaseIdle || t.hand != nil {
		return
	}
	if t.hooks.Maintenance != nil && t.hooks.Maintenance() {
		return
	}
	t.seats.clearWaiting()
	if t.seats.readyCount() < 2 {
		return
	}

	var seats [engine.NumSeats]*engine.SeatState
	for i := 0; i < NumSeats; i++ {
		s := t.seats.seat(i)
		if s == nil {
			continue
		}
		seats[i] = &engine.SeatState{
			UserID: s.UserID,
			Name:   s.Name,
			IsBot:  s.IsBot,
			Chips:  s.Chips,
			BuyIn:  s.BuyIn,
			InHand: !s.WaitingForNextHand && s.Chips > 0,
		}
	}

	state := engine.NewHandState(seats, t.dealerPosition, t.cfg.SmallBlind, t.cfg.BigBlind, deck.New(t.rng))
	next, events := engine.ProcessCommand(state, engine.StartHandCmd{}, t.opts())
	if len(events) == 0 {
		return
	}

	t.phase = PhaseDealing
	t.hand = next
	t.handNumber++
	t.ranAllInRunout = false
	t.logger.Info("hand started", "hand", t.handNumber, "dealer", next.DealerPosition)
	t.handleEvents(events)
}

// handleEvents walks one processor event batch, driving broadcasts and
// the phase machine. A batch ends in exactly one of: next action
// requested, a street-transition delay scheduled, or hand completion.
func (t *Table) handleEvents(events []engine.Event) {
	t.controller.CancelAction()

	for i, ev := range events {
		switch e := ev.(type) {
		case engine.HandStarted:
			t.broadcastState()
			t.sendHoleCards(e)

		case engine.ActionApplied:
			t.room.EmitToRoom("game:action_taken", ActionTakenView{
				PlayerID:      t.playerID(e.Seat),
				Seat:          e.Seat,
				Action:        e.Action.String(),
				Amount:        e.Amount,
				StreetChanged: followedByStreetChange(events[i+1:]),
			})

		case engine.StreetAdvanced:
			// Pause so clients can render the closing action before the
			// board reveal
			t.phase = PhaseStreetTransition
			t.controller.ScheduleStreetTransition(t.cfg.Timing.StreetDelay, func() {
				t.do(t.revealStreet)
			})
			return

		case engine.AllInRunout:
			t.ranAllInRunout = true
			t.phase = PhaseRunout
			t.broadcastState()
			t.emitAllHoleCards()

		case engine.ShowdownReached:
			t.phase = PhaseResolving
			t.emitAllHoleCards()

		case engine.HandCompleted:
			t.completeHand(e)
			return
		}
	}

	t.requestNextAction()
}

func followedByStreetChange(rest []engine.Event) bool {
	for _, ev := range rest {
		switch ev.(type) {
		case engine.StreetAdvanced, engine.AllInRunout:
			return true
		}
	}
	return false
}

func (t *Table) revealStreet() {
	if t.hand == nil || t.hand.IsHandComplete {
		return
	}
	t.broadcastState()
	t.requestNextAction()
}

func (t *Table) requestNextAction() {
	if t.hand == nil || t.hand.IsHandComplete {
		return
	}
	seat := t.hand.CurrentPlayerIndex
	if seat == -1 {
		return
	}
	t.phase = PhaseAwaitingAction

	s := t.seats.seat(seat)
	if s == nil || s.Session == nil || !s.Session.Connected() {
		// Absent players fold immediately
		t.logger.Debug("folding disconnected seat", "seat", seat)
		next, events := engine.ProcessForceFold(t.hand, seat, t.opts())
		t.hand = next
		t.handleEvents(events)
		return
	}

	t.broadcastState()
	valid := engine.GetValidActions(t.hand, seat)
	t.room.EmitToSession(s.Session, "game:action_required", ActionRequiredView{
		PlayerID:     s.UserID,
		Seat:         seat,
		ValidActions: validActionViews(valid),
		TimeoutMs:    int(t.cfg.Timing.ActionTimeout.Milliseconds()),
	})
	t.controller.ScheduleAction(seat, t.cfg.Timing.ActionTimeout, func() {
		t.do(func() { t.onActionTimeout(seat) })
	})
}

func (t *Table) onActionTimeout(seat int) {
	if t.hand == nil || t.hand.IsHandComplete || t.hand.CurrentPlayerIndex != seat {
		return
	}
	t.logger.Debug("action timeout", "seat", seat)
	if t.hooks.ActionTimeout != nil {
		t.hooks.ActionTimeout()
	}
	next, events := engine.ProcessCommand(t.hand, engine.TimeoutCmd{Seat: seat}, t.opts())
	t.hand = next
	t.handleEvents(events)
}

func (t *Table) completeHand(e engine.HandCompleted) {
	t.phase = PhasePostingResults
	t.controller.CancelAll()
	hand := t.hand

	// The engine's final chip counts become the seats' ground truth
	for i := 0; i < NumSeats; i++ {
		s := t.seats.seat(i)
		p := hand.Players[i]
		if s == nil || p == nil || !p.InHand || s.LeftForFastFold {
			continue
		}
		t.seats.setChips(i, p.Chips)
	}
	t.dealerPosition = hand.DealerPosition

	t.broadcastState()
	if hand.LiveCount() > 1 {
		t.emitAllHoleCards()
	}

	winners := make([]WinnerView, len(e.Winners))
	for i, w := range e.Winners {
		winners[i] = WinnerView{
			Seat:     w.Seat,
			PlayerID: t.playerID(w.Seat),
			Amount:   w.Amount,
			HandDesc: w.HandDesc,
		}
	}
	t.room.EmitToRoom("game:hand_complete", HandCompleteView{
		HandNumber: t.handNumber,
		Winners:    winners,
		Rake:       e.Rake,
		Community:  cardsToStrings(hand.CommunityCards),
	})
	t.logger.Info("hand complete", "hand", t.handNumber, "pot", hand.Pot, "rake", e.Rake)
	if t.hooks.HandCompleted != nil {
		t.hooks.HandCompleted()
	}

	t.dispatchPersistence(hand)
	t.controller.ScheduleNextHand(t.cfg.Timing.ResultDelay, func() {
		t.do(t.finishHand)
	})
}

// dispatchPersistence computes the hand record and stats increments
// synchronously, then writes them fire-and-forget. Failures log and are
// dropped; gameplay never blocks on the store.
func (t *Table) dispatchPersistence(hand *engine.HandState) {
	var allInEV map[int]int
	if t.ranAllInRunout {
		pots := make([]evaluator.Pot, len(hand.SidePots))
		for i, p := range hand.SidePots {
			pots[i] = evaluator.Pot{Amount: p.Amount, Eligible: append([]int(nil), p.Eligible...)}
		}
		totalBets := make(map[int]int)
		for i, p := range hand.Players {
			if p != nil && p.InHand {
				totalBets[i] = p.TotalBet
			}
		}
		allInEV = evaluator.CalculateAllInEVProfits(hand.CommunityCards, hand.EquityHands(), pots, totalBets, t.rng)
	}
	incs := stats.ComputeIncrements(hand, allInEV)

	desc := make(map[int]string)
	for _, w := range hand.Winners {
		desc[w.Seat] = w.HandDesc
	}
	rec := store.HandRecord{
		TableID:    t.cfg.ID,
		HandNumber: t.handNumber,
		Blinds:     t.cfg.Blinds,
		Community:  append([]deck.Card(nil), hand.CommunityCards...),
		Pot:        hand.Pot,
		Rake:       hand.Rake,
		DealerPos:  hand.DealerPosition,
		Winners:    append([]engine.Winner(nil), hand.Winners...),
		Actions:    append([]engine.ActionRecord(nil), hand.HandHistory...),
	}
	users := make(map[int]string)
	for i, p := range hand.Players {
		if p == nil || !p.InHand {
			continue
		}
		users[i] = p.UserID
		rec.Players = append(rec.Players, store.HandPlayer{
			UserID:        p.UserID,
			Seat:          i,
			HoleCards:     p.HoleCards,
			FinalHand:     desc[i],
			Profit:        incs[i].Profit,
			AllInEVProfit: incs[i].AllInEVProfit,
		})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.store.RecordHand(ctx, rec); err != nil {
			t.logger.Warn("record hand failed", "hand", rec.HandNumber, "err", err)
		}
		for seat, inc := range incs {
			if err := t.store.IncrementStats(ctx, users[seat], inc); err != nil {
				t.logger.Warn("stats write failed", "user", users[seat], "err", err)
			}
		}
	}()
}

// finishHand retires the completed hand, removes busted seats, and tries
// to deal again.
func (t *Table) finishHand() {
	if t.hand == nil || !t.hand.IsHandComplete {
		return
	}
	t.hand = nil
	t.phase = PhaseIdle

	for i := 0; i < NumSeats; i++ {
		s := t.seats.seat(i)
		if s == nil || s.LeftForFastFold || s.Chips > 0 {
			continue
		}
		t.seats.unseatPlayer(i)
		if s.Session != nil {
			t.room.EmitToSession(s.Session, "table:busted", map[string]any{
				"message": "You are out of chips",
			})
			t.room.Leave(s.Session)
		}
		if t.hooks.PlayerLeft != nil {
			t.hooks.PlayerLeft(s.UserID)
		}
		t.logger.Info("seat busted", "user", s.UserID, "seat", i)
	}

	t.broadcastState()
	t.maybeStartHand()
	t.checkEmptied()
}

func (t *Table) sendError(seat int, msg string) {
	s := t.seats.seat(seat)
	if s != nil && s.Session != nil {
		t.room.EmitToSession(s.Session, "table:error", map[string]any{"message": msg})
	}
}

func (t *Table) playerID(seat int) string {
	if t.hand != nil && t.hand.Players[seat] != nil {
		return t.hand.Players[seat].UserID
	}
	if s := t.seats.seat(seat); s != nil {
		return s.UserID
	}
	return ""
}

func (t *Table) sendHoleCards(e engine.HandStarted) {
	for seat, cards := range e.HoleCards {
		s := t.seats.seat(seat)
		if s == nil || s.Session == nil {
			continue
		}
		t.room.EmitToSession(s.Session, "game:hole_cards", HoleCardsView{
			Cards: cardsToStrings(cards[:]),
		})
	}
}

func (t *Table) emitAllHoleCards() {
	if t.hand == nil {
		return
	}
	var players []SeatHoleCardsView
	for i, p := range t.hand.Players {
		if p.Live() {
			players = append(players, SeatHoleCardsView{
				Seat:     i,
				PlayerID: p.UserID,
				Cards:    cardsToStrings(p.HoleCards[:]),
			})
		}
	}
	t.room.EmitToRoom("game:all_hole_cards", AllHoleCardsView{Players: players})
}

// broadcastState sends each session its own masked snapshot.
func (t *Table) broadcastState() {
	for _, sess := range t.room.Sessions() {
		t.room.EmitToSession(sess, "game:state", t.stateView(sess.UserID()))
	}
}

// stateView builds the client snapshot visible to observer: hole cards
// are included only for the observer's own seat.
func (t *Table) stateView(observerID string) StateView {
	view := StateView{
		TableID:    t.cfg.ID,
		Blinds:     t.cfg.Blinds,
		IsFastFold: t.cfg.IsFastFold,
		HandNumber: t.handNumber,
		Phase:      t.phase.String(),
		Community:  []string{},
		DealerSeat: t.dealerPosition,
		ActionSeat: -1,
	}

	if t.hand != nil {
		view.Street = t.hand.CurrentStreet.String()
		view.Community = cardsToStrings(t.hand.CommunityCards)
		view.Pot = t.hand.Pot
		view.CurrentBet = t.hand.CurrentBet
		view.DealerSeat = t.hand.DealerPosition
		view.ActionSeat = t.hand.CurrentPlayerIndex
	}

	for i := 0; i < NumSeats; i++ {
		s := t.seats.seat(i)
		if s == nil {
			continue
		}
		sv := SeatView{
			Seat:               i,
			PlayerID:           s.UserID,
			Name:               s.Name,
			Avatar:             s.Avatar,
			IsBot:              s.IsBot,
			Chips:              s.Chips,
			WaitingForNextHand: s.WaitingForNextHand,
		}
		if t.hand != nil && t.hand.Players[i] != nil && t.hand.Players[i].InHand {
			p := t.hand.Players[i]
			sv.Chips = p.Chips
			sv.Bet = p.CurrentBet
			sv.Folded = p.Folded
			sv.AllIn = p.AllIn
			if p.UserID == observerID && observerID != "" {
				sv.HoleCards = cardsToStrings(p.HoleCards[:])
			}
		}
		view.Seats = append(view.Seats, sv)
	}
	return view
}
