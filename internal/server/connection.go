package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/ploroom/internal/auth"
	"github.com/lox/ploroom/internal/table"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection is one client session. It implements table.Session; the
// table layer holds it only as a weak routing reference.
type Connection struct {
	conn   *websocket.Conn
	send   chan *Message
	server *Server
	logger *log.Logger

	mu       sync.RWMutex
	userID   string
	username string
	isBot    bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewConnection(conn *websocket.Conn, server *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: server,
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down. Idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// UserID implements table.Session.
func (c *Connection) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Username returns the display name resolved at auth.
func (c *Connection) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// Connected implements table.Session.
func (c *Connection) Connected() bool {
	return c.ctx.Err() == nil
}

// Send implements table.Session. Never blocks: a full buffer closes the
// connection, since a client that cannot keep up is indistinguishable
// from a dead one.
func (c *Connection) Send(event string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			// Channel closed during shutdown
			c.logger.Debug("send on closed connection", "event", event)
		}
	}()

	msg, err := NewMessage(event, payload)
	if err != nil {
		c.logger.Error("failed to encode message", "event", event, "err", err)
		return
	}

	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("send buffer full, closing connection", "user", c.UserID())
		_ = c.Close()
	}
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "err", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("failed to write message", "err", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) sendError(msg string) {
	c.Send("table:error", ErrorPayload{Message: msg})
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "event", msg.Event, "user", c.UserID())

	if c.UserID() == "" && msg.Event != "auth" {
		c.Send("auth:error", ErrorPayload{Message: "Authentication required"})
		_ = c.Close()
		return
	}

	switch msg.Event {
	case "auth":
		var p AuthPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.Send("auth:error", ErrorPayload{Message: "Malformed auth payload"})
			_ = c.Close()
			return
		}
		c.handleAuth(p)

	case "matchmaking:join":
		var p MatchmakingJoinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError("Malformed payload")
			return
		}
		c.handleMatchmakingJoin(p)

	case "matchmaking:leave":
		c.server.pool.Leave(c.UserID())
		c.leaveTable()

	case "table:leave":
		c.leaveTable()

	case "game:action":
		var p GameActionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError("Malformed payload")
			return
		}
		if tbl := c.server.manager.TableFor(c.UserID()); tbl != nil {
			tbl.HandleAction(c.UserID(), p.Action, p.Amount)
		}

	case "game:fast_fold":
		if tbl := c.server.manager.TableFor(c.UserID()); tbl != nil {
			tbl.FastFold(c.UserID())
		}

	case "table:spectate":
		var p SpectatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError("Malformed payload")
			return
		}
		tbl := c.server.manager.FindTable(p.TableID)
		if tbl == nil {
			c.sendError("Unknown table")
			return
		}
		tbl.Spectate(c)

	case "private:create":
		var p PrivateCreatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError("Malformed payload")
			return
		}
		c.handlePrivateCreate(p)

	case "private:join":
		var p PrivateJoinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError("Malformed payload")
			return
		}
		c.handlePrivateJoin(p)

	default:
		c.sendError("Unknown event: " + msg.Event)
	}
}

// handleAuth resolves the session's identity: a bearer token validated
// externally, or a bot credential mapping deterministically to a
// provisioned bot user.
func (c *Connection) handleAuth(p AuthPayload) {
	if c.UserID() != "" {
		c.sendError("Already authenticated")
		return
	}

	var userID, username string
	isBot := false

	switch {
	case p.IsBot:
		if p.BotName == "" {
			c.Send("auth:error", ErrorPayload{Message: "Bot name required"})
			_ = c.Close()
			return
		}
		userID = "bot:" + p.BotName
		username = p.BotName
		isBot = true

	default:
		identity, err := c.server.validator.Validate(c.ctx, p.Token)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			c.Send("auth:error", ErrorPayload{Message: "Invalid token"})
			_ = c.Close()
			return
		case err != nil:
			c.Send("auth:error", ErrorPayload{Message: "Authentication unavailable"})
			_ = c.Close()
			return
		case identity != nil:
			userID = identity.UserID
			username = identity.Username
			isBot = identity.IsBot
		default:
			// Validation disabled: the token is the identity
			userID = p.Token
			username = p.Name
		}
		if username == "" {
			username = userID
		}
	}

	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	if err := c.server.store.EnsureUser(ctx, userID, username, c.server.cfg.Game.StartingBalance); err != nil {
		c.logger.Error("ensure user failed", "user", userID, "err", err)
		c.Send("auth:error", ErrorPayload{Message: "Authentication unavailable"})
		_ = c.Close()
		return
	}

	c.mu.Lock()
	c.userID = userID
	c.username = username
	c.isBot = isBot
	c.mu.Unlock()

	c.logger.Info("session authenticated", "user", userID, "bot", isBot)
	c.Send("connection:established", EstablishedPayload{PlayerID: userID})
	c.Send("maintenance:status", MaintenancePayload{Active: c.server.Maintenance()})
	if msg := c.server.Announcement(); msg != "" {
		c.Send("announcement:status", AnnouncementPayload{Message: msg})
	}
}

func (c *Connection) handleMatchmakingJoin(p MatchmakingJoinPayload) {
	_, bb, err := table.ParseBlinds(p.Blinds)
	if err != nil {
		c.sendError("Invalid blinds format")
		return
	}
	buyIn := p.BuyIn
	if buyIn <= 0 {
		buyIn = bb * c.server.cfg.Game.DefaultBuyInBB
	}

	c.mu.RLock()
	isBot := c.isBot
	c.mu.RUnlock()

	pos, err := c.server.pool.Join(table.JoinRequest{
		UserID:   c.UserID(),
		Name:     c.Username(),
		IsBot:    isBot,
		Session:  c,
		Blinds:   p.Blinds,
		FastFold: p.IsFastFold,
		BuyIn:    buyIn,
	})
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.Send("matchmaking:queued", QueuedPayload{Position: pos})
}

func (c *Connection) leaveTable() {
	if tbl := c.server.manager.TableFor(c.UserID()); tbl != nil {
		tbl.Leave(c.UserID())
	}
}

func (c *Connection) handlePrivateCreate(p PrivateCreatePayload) {
	if c.server.Maintenance() {
		c.sendError("Maintenance in progress")
		return
	}
	if c.server.manager.TableFor(c.UserID()) != nil {
		c.sendError("Already seated")
		return
	}

	tbl, code, err := c.server.manager.CreatePrivateTable(p.Blinds)
	if err != nil {
		c.sendError("Invalid blinds format")
		return
	}
	c.Send("private:created", PrivateCreatedPayload{TableID: tbl.ID(), InviteCode: code})
	c.seatAt(tbl, p.BuyIn)
}

func (c *Connection) handlePrivateJoin(p PrivateJoinPayload) {
	if c.server.Maintenance() {
		c.sendError("Maintenance in progress")
		return
	}
	if c.server.manager.TableFor(c.UserID()) != nil {
		c.sendError("Already seated")
		return
	}

	tbl := c.server.manager.FindByInvite(p.InviteCode)
	if tbl == nil {
		c.sendError("Unknown invite code")
		return
	}
	c.seatAt(tbl, p.BuyIn)
}

// seatAt debits the buy-in and seats the session, compensating the
// debit if seating fails.
func (c *Connection) seatAt(tbl *table.Table, buyIn int) {
	_, bb, err := table.ParseBlinds(tbl.Blinds())
	if err != nil {
		c.sendError("Invalid table")
		return
	}
	if buyIn <= 0 {
		buyIn = bb * c.server.cfg.Game.DefaultBuyInBB
	}

	userID := c.UserID()
	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	if err := c.server.store.DeductBuyIn(ctx, userID, buyIn, tbl.ID()); err != nil {
		c.sendError("Insufficient balance")
		return
	}

	c.mu.RLock()
	isBot := c.isBot
	c.mu.RUnlock()

	c.server.manager.SetPlayerTable(userID, tbl.ID())
	_, err = tbl.SeatPlayer(table.SeatRequest{
		UserID:    userID,
		Name:      c.Username(),
		IsBot:     isBot,
		Chips:     buyIn,
		BuyIn:     buyIn,
		Preferred: -1,
		Session:   c,
	})
	if err != nil {
		c.server.manager.RemovePlayer(userID)
		if cerr := c.server.store.CashOut(ctx, userID, buyIn, tbl.ID()); cerr != nil {
			c.logger.Error("buy-in refund failed", "user", userID, "err", cerr)
		}
		c.sendError("Table is full")
		return
	}
	tbl.TriggerMaybeStartHand()
}
