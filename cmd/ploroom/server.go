package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/lox/ploroom/cmd/ploroom/shared"
	"github.com/lox/ploroom/internal/auth"
	"github.com/lox/ploroom/internal/server"
	"github.com/lox/ploroom/internal/store"
)

// ServerCmd runs the websocket table service.
type ServerCmd struct {
	Config    string `kong:"default='ploroom.hcl',env='PLOROOM_CONFIG',help='Path to HCL config file'"`
	Addr      string `kong:"env='PLOROOM_ADDR',help='Override listen address (host:port)'"`
	StorePath string `kong:"env='PLOROOM_STORE',help='Override sqlite store path (empty = in-memory)'"`
	LogLevel  string `kong:"env='PLOROOM_LOG_LEVEL',help='Override log level (debug|info|warn|error)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel)

	var st store.Store
	if cfg.Store.Path != "" {
		sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		st = sqlStore
		logger.Info("using sqlite store", "path", cfg.Store.Path)
	} else {
		st = store.NewMemoryStore()
		logger.Info("using in-memory store")
	}
	defer st.Close()

	var validator auth.Validator
	if cfg.Auth.URL != "" {
		validator = auth.NewHTTPValidator(cfg.Auth.URL, cfg.Auth.AdminSecret)
		logger.Info("using external auth", "url", cfg.Auth.URL)
	} else {
		// Dev mode: tokens are accepted as identities.
		validator = auth.NewStaticValidator(nil)
		logger.Warn("no auth url configured, accepting all tokens")
	}

	s := server.New(cfg, st, validator, logger)

	logger.Info("starting service",
		"addr", cfg.ListenAddress(),
		"blinds", cfg.Game.DefaultBlinds,
		"rake_percent", cfg.Game.RakePercent,
		"rake_cap_bb", cfg.Game.RakeCapBB,
		"action_timeout_ms", cfg.Game.ActionTimeoutMs)

	ctx := shared.SetupSignalHandler(logger)
	return s.Run(ctx)
}

func (c *ServerCmd) applyOverrides(cfg *server.Config) {
	if c.Addr != "" {
		if host, portStr, err := net.SplitHostPort(c.Addr); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				cfg.Server.Address = host
				cfg.Server.Port = port
			}
		}
	}
	if c.StorePath != "" {
		cfg.Store.Path = c.StorePath
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
}
