package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/ploroom/internal/deck"
)

// RunnerConfig configures a single bot client.
type RunnerConfig struct {
	ServerURL string
	Name      string
	Avatar    string
	Blinds    string
	FastFold  bool
	BuyIn     int
}

// Runner connects a Strategy to a server as an ordinary websocket
// client: it authenticates with a bot credential, queues for a table
// and answers action requests until its context is cancelled.
type Runner struct {
	cfg      RunnerConfig
	strategy *Strategy
	logger   *log.Logger
	conn     *websocket.Conn

	playerID  string
	bigBlind  int
	hole      []deck.Card
	community []deck.Card
	pot       int
	chips     int
}

// envelope is the wire format in both directions.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewRunner creates a runner for one bot.
func NewRunner(cfg RunnerConfig, strategy *Strategy, logger *log.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		strategy: strategy,
		logger:   logger.WithPrefix("bot." + cfg.Name),
	}
}

// Run connects, authenticates and plays until ctx is cancelled or the
// connection drops.
func (r *Runner) Run(ctx context.Context) error {
	u, err := url.Parse(r.cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	r.logger.Info("connecting", "url", u.String())
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	r.conn = conn
	defer conn.Close()

	if err := r.send("auth", map[string]any{
		"isBot":     true,
		"botName":   r.cfg.Name,
		"botAvatar": r.cfg.Avatar,
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		default:
		}

		// Short read deadline so cancellation is noticed promptly.
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
				continue
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		if err := r.handle(msg); err != nil {
			r.logger.Error("handler error", "event", msg.Event, "err", err)
		}
	}
}

func (r *Runner) send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.conn.WriteJSON(envelope{Event: event, Payload: raw})
}

func (r *Runner) handle(msg envelope) error {
	switch msg.Event {
	case "connection:established":
		var p struct {
			PlayerID string `json:"playerId"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		r.playerID = p.PlayerID
		r.logger.Info("authenticated", "playerId", r.playerID)
		return r.joinQueue()

	case "auth:error", "table:error":
		var p struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(msg.Payload, &p)
		r.logger.Warn("server error", "event", msg.Event, "message", p.Message)

	case "matchmaking:table_assigned", "table:joined":
		r.resetHand()

	case "table:change":
		// Fast-fold moved us mid-hand; the new table deals fresh cards.
		r.resetHand()

	case "table:left", "table:busted":
		// Seat is gone. Queue again and keep playing.
		r.resetHand()
		return r.joinQueue()

	case "game:hole_cards":
		var p struct {
			Cards []string `json:"cards"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		cards, err := parseCards(p.Cards)
		if err != nil {
			return err
		}
		r.hole = cards

	case "game:state":
		return r.handleState(msg.Payload)

	case "game:action_required":
		return r.handleActionRequired(msg.Payload)

	case "game:hand_complete":
		r.resetHand()
	}
	return nil
}

func (r *Runner) joinQueue() error {
	return r.send("matchmaking:join", map[string]any{
		"blinds":     r.cfg.Blinds,
		"isFastFold": r.cfg.FastFold,
		"buyIn":      r.cfg.BuyIn,
	})
}

func (r *Runner) resetHand() {
	r.hole = nil
	r.community = nil
	r.pot = 0
}

func (r *Runner) handleState(payload json.RawMessage) error {
	var p struct {
		Blinds    string   `json:"blinds"`
		Community []string `json:"communityCards"`
		Pot       int      `json:"pot"`
		Seats     []struct {
			PlayerID string `json:"playerId"`
			Chips    int    `json:"chips"`
		} `json:"seats"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}

	community, err := parseCards(p.Community)
	if err != nil {
		return err
	}
	r.community = community
	r.pot = p.Pot
	r.bigBlind = bigBlindOf(p.Blinds)
	for _, seat := range p.Seats {
		if seat.PlayerID == r.playerID {
			r.chips = seat.Chips
		}
	}
	return nil
}

func (r *Runner) handleActionRequired(payload json.RawMessage) error {
	var p struct {
		PlayerID     string `json:"playerId"`
		ValidActions []struct {
			Action string `json:"action"`
			Min    int    `json:"minAmount"`
			Max    int    `json:"maxAmount"`
		} `json:"validActions"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if p.PlayerID != r.playerID {
		return nil
	}

	actions := make([]ValidAction, len(p.ValidActions))
	for i, a := range p.ValidActions {
		actions[i] = ValidAction{Action: a.Action, Min: a.Min, Max: a.Max}
	}

	decision := r.strategy.Decide(View{
		HoleCards:    r.hole,
		Community:    r.community,
		Pot:          r.pot,
		Chips:        r.chips,
		BigBlind:     r.bigBlind,
		ValidActions: actions,
	})

	r.logger.Debug("acting",
		"action", decision.Action,
		"amount", decision.Amount,
		"pot", r.pot,
		"hole", r.hole,
		"board", r.community)

	return r.send("game:action", map[string]any{
		"action": decision.Action,
		"amount": decision.Amount,
	})
}

func parseCards(codes []string) ([]deck.Card, error) {
	cards := make([]deck.Card, len(codes))
	for i, code := range codes {
		c, err := deck.Parse(code)
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}

func bigBlindOf(blinds string) int {
	parts := strings.Split(blinds, "/")
	if len(parts) != 2 {
		return 0
	}
	bb, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return bb
}
