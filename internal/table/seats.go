package table

import (
	"errors"
	"sync"

	"github.com/lox/ploroom/internal/engine"
)

// NumSeats is the fixed seat count per table.
const NumSeats = engine.NumSeats

var (
	// ErrTableFull indicates no seat slot is free.
	ErrTableFull = errors.New("table: no available seat")

	// ErrAlreadySeated indicates the user already occupies a slot here.
	ErrAlreadySeated = errors.New("table: already seated")
)

// Seat is one of the six fixed slots. The slot owns the chip balance;
// Session is nil while the player is disconnected.
type Seat struct {
	UserID string
	Name   string
	Avatar string
	IsBot  bool

	Chips int
	BuyIn int

	// WaitingForNextHand excludes seats that joined mid-hand from the
	// hand in progress.
	WaitingForNextHand bool

	// LeftForFastFold marks a slot whose player has moved tables but
	// whose folded hand is still in flight. The slot is socket-less and
	// is reclaimed at the next hand boundary.
	LeftForFastFold bool

	Session Session
}

// seatManager owns the six slots. Safe for concurrent use; the table
// goroutine mutates, the manager and pool read.
type seatManager struct {
	mu    sync.Mutex
	slots [NumSeats]*Seat
}

// seatPlayer places s in the first free slot, or the preferred index if
// free (pass -1 for no preference). handInProgress marks the seat as
// waiting for the next hand.
func (m *seatManager) seatPlayer(s *Seat, preferred int, handInProgress bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, slot := range m.slots {
		if slot != nil && slot.UserID == s.UserID && !slot.LeftForFastFold {
			return -1, ErrAlreadySeated
		}
	}

	idx := -1
	if preferred >= 0 && preferred < NumSeats && m.slots[preferred] == nil {
		idx = preferred
	} else {
		for i, slot := range m.slots {
			if slot == nil {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		return -1, ErrTableFull
	}

	s.WaitingForNextHand = handInProgress
	m.slots[idx] = s
	return idx, nil
}

// unseatPlayer clears the slot and returns its chip balance for refund.
func (m *seatManager) unseatPlayer(idx int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx < 0 || idx >= NumSeats || m.slots[idx] == nil {
		return 0
	}
	chips := m.slots[idx].Chips
	m.slots[idx] = nil
	return chips
}

// markLeftForFastFold detaches the session and zeroes the chips (they
// travel with the player) while keeping the slot occupied so in-flight
// hand events still have a seat to reference.
func (m *seatManager) markLeftForFastFold(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx < 0 || idx >= NumSeats || m.slots[idx] == nil {
		return
	}
	m.slots[idx].LeftForFastFold = true
	m.slots[idx].Session = nil
	m.slots[idx].Chips = 0
}

// clearWaiting makes every seated player eligible for the next hand and
// reclaims slots abandoned by fast-fold moves.
func (m *seatManager) clearWaiting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, slot := range m.slots {
		if slot == nil {
			continue
		}
		if slot.LeftForFastFold {
			m.slots[i] = nil
			continue
		}
		slot.WaitingForNextHand = false
	}
}

// seat returns a copy of the slot; mutations go through the dedicated
// methods so readers never race the table goroutine.
func (m *seatManager) seat(idx int) *Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx < 0 || idx >= NumSeats || m.slots[idx] == nil {
		return nil
	}
	c := *m.slots[idx]
	return &c
}

func (m *seatManager) setChips(idx, chips int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx >= 0 && idx < NumSeats && m.slots[idx] != nil {
		m.slots[idx].Chips = chips
	}
}

func (m *seatManager) seatOf(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, slot := range m.slots {
		if slot != nil && slot.UserID == userID && !slot.LeftForFastFold {
			return i
		}
	}
	return -1
}

func (m *seatManager) seatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, slot := range m.slots {
		if slot != nil && !slot.LeftForFastFold {
			n++
		}
	}
	return n
}

// readyCount returns seats eligible to be dealt the next hand.
func (m *seatManager) readyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, slot := range m.slots {
		if slot != nil && !slot.LeftForFastFold && !slot.WaitingForNextHand && slot.Chips > 0 {
			n++
		}
	}
	return n
}

func (m *seatManager) hasAvailableSeat() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range m.slots {
		if slot == nil {
			return true
		}
	}
	return false
}
