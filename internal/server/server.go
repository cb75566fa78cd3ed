// Package server is the websocket front door: session handshake and
// routing, the table manager and matchmaking pool wiring, maintenance
// gating, and the HTTP health/metrics surface.
package server

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/ploroom/internal/auth"
	"github.com/lox/ploroom/internal/store"
	"github.com/lox/ploroom/internal/table"
)

// Server accepts websocket sessions and routes them to tables.
type Server struct {
	cfg       *Config
	upgrader  websocket.Upgrader
	logger    *log.Logger
	store     store.Store
	validator auth.Validator
	manager   *table.Manager
	pool      *table.Pool
	metrics   *Metrics

	mu           sync.RWMutex
	connections  map[*Connection]bool
	maintenance  bool
	announcement string

	register   chan *Connection
	unregister chan *Connection
	ctx        context.Context
	cancel     context.CancelFunc
}

// New wires the full service. The store and validator are the only
// injected collaborators; everything else is built here.
func New(cfg *Config, st store.Store, validator auth.Validator, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	clock := quartz.NewReal()

	s := &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.WithPrefix("server"),
		store:       st,
		validator:   validator,
		connections: make(map[*Connection]bool),
		maintenance: cfg.Game.Maintenance,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
	}
	s.upgrader.CheckOrigin = s.checkOrigin

	s.manager = table.NewManager(table.ManagerConfig{
		Rake:        cfg.Rake(),
		Timing:      cfg.Timing(),
		Maintenance: s.Maintenance,
		HandCompleted: func() {
			if s.metrics != nil {
				s.metrics.HandsCompleted.Inc()
			}
		},
		ActionApplied: func() {
			if s.metrics != nil {
				s.metrics.ActionsApplied.Inc()
			}
		},
		ActionTimeout: func() {
			if s.metrics != nil {
				s.metrics.ActionTimeouts.Inc()
			}
		},
	}, clock, st, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	s.pool = table.NewPool(s.manager, st, clock, logger, s.Maintenance)

	s.metrics = NewMetrics(
		func() float64 { return float64(s.manager.TableCount()) },
		func() float64 { return float64(s.pool.QueuedCount()) },
	)

	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := s.cfg.Server.ClientOrigin
	if origin == "" {
		return true
	}
	return r.Header.Get("Origin") == origin
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())

	httpServer := &http.Server{
		Addr:    s.cfg.ListenAddress(),
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.run()
		return nil
	})
	g.Go(func() error {
		s.logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Stop tears everything down.
func (s *Server) Stop() {
	s.cancel()
	s.pool.Stop()
	s.manager.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.connections {
		_ = conn.Close()
	}
}

func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.metrics.Sessions.Set(float64(total))
			s.logger.Info("client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			if ok {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()
			if ok {
				s.cleanupSession(conn)
				_ = conn.Close()
			}
			s.metrics.Sessions.Set(float64(total))
			s.logger.Info("client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// cleanupSession handles a dropped connection: out of the matchmaking
// queue, folded and cashed out at its table.
func (s *Server) cleanupSession(conn *Connection) {
	userID := conn.UserID()
	if userID == "" {
		return
	}
	s.pool.HandleDisconnect(userID)
	if tbl := s.manager.TableFor(userID); tbl != nil {
		s.logger.Info("cleaning up disconnected player", "user", userID, "table", tbl.ID())
		tbl.HandleDisconnect(userID)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "err", err)
		return
	}

	client := NewConnection(conn, s, s.logger)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// Maintenance reports whether new hands and seating are gated.
func (s *Server) Maintenance() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maintenance
}

// SetMaintenance flips the global maintenance gate and notifies every
// session. Tables finish their current hand and then stay idle.
func (s *Server) SetMaintenance(active bool) {
	s.mu.Lock()
	changed := s.maintenance != active
	s.maintenance = active
	s.mu.Unlock()
	if !changed {
		return
	}
	s.logger.Info("maintenance mode changed", "active", active)
	s.broadcast("maintenance:status", MaintenancePayload{Active: active})
}

// Announcement returns the current service-wide announcement.
func (s *Server) Announcement() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.announcement
}

// SetAnnouncement updates and broadcasts the service-wide announcement.
func (s *Server) SetAnnouncement(msg string) {
	s.mu.Lock()
	s.announcement = msg
	s.mu.Unlock()
	s.broadcast("announcement:status", AnnouncementPayload{Message: msg})
}

func (s *Server) broadcast(event string, payload any) {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()
	for _, conn := range conns {
		conn.Send(event, payload)
	}
}

// Manager exposes the table registry, used by the CLI for admin output.
func (s *Server) Manager() *table.Manager { return s.manager }

// Pool exposes the matchmaking pool for observability.
func (s *Server) Pool() *table.Pool { return s.pool }
