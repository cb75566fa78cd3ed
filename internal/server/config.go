package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/ploroom/internal/engine"
	"github.com/lox/ploroom/internal/table"
)

// Config is the complete service configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
	Store  StoreSettings  `hcl:"store,block"`
	Auth   AuthSettings   `hcl:"auth,block"`
}

// ServerSettings contains network-level configuration.
type ServerSettings struct {
	Address      string `hcl:"address,optional"`
	Port         int    `hcl:"port,optional"`
	ClientOrigin string `hcl:"client_origin,optional"`
	LogLevel     string `hcl:"log_level,optional"`
}

// GameSettings contains table and hand pacing configuration.
type GameSettings struct {
	DefaultBlinds   string  `hcl:"default_blinds,optional"`
	RakePercent     float64 `hcl:"rake_percent,optional"`
	RakeCapBB       int     `hcl:"rake_cap_bb,optional"`
	ActionTimeoutMs int     `hcl:"action_timeout_ms,optional"`
	StreetDelayMs   int     `hcl:"street_delay_ms,optional"`
	ResultDelayMs   int     `hcl:"result_delay_ms,optional"`
	DefaultBuyInBB  int     `hcl:"default_buy_in_bb,optional"`
	StartingBalance int     `hcl:"starting_balance,optional"`
	Maintenance     bool    `hcl:"maintenance,optional"`
}

// StoreSettings points at the transactional store. An empty path keeps
// everything in memory.
type StoreSettings struct {
	Path string `hcl:"path,optional"`
}

// AuthSettings configures external token validation. An empty URL means
// tokens are accepted as-is (dev mode).
type AuthSettings struct {
	URL         string `hcl:"url,optional"`
	AdminSecret string `hcl:"admin_secret,optional"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Game.DefaultBlinds == "" {
		c.Game.DefaultBlinds = "1/3"
	}
	if c.Game.RakePercent == 0 {
		c.Game.RakePercent = 0.05
	}
	if c.Game.RakeCapBB == 0 {
		c.Game.RakeCapBB = 1
	}
	if c.Game.ActionTimeoutMs == 0 {
		c.Game.ActionTimeoutMs = 25000
	}
	if c.Game.StreetDelayMs == 0 {
		c.Game.StreetDelayMs = 900
	}
	if c.Game.ResultDelayMs == 0 {
		c.Game.ResultDelayMs = 5000
	}
	if c.Game.DefaultBuyInBB == 0 {
		c.Game.DefaultBuyInBB = 100
	}
	if c.Game.StartingBalance == 0 {
		c.Game.StartingBalance = 10000
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, _, err := table.ParseBlinds(c.Game.DefaultBlinds); err != nil {
		return err
	}
	if c.Game.RakePercent < 0 || c.Game.RakePercent >= 1 {
		return fmt.Errorf("rake percent must be in [0, 1): %f", c.Game.RakePercent)
	}
	if c.Game.RakeCapBB < 0 {
		return fmt.Errorf("rake cap must be non-negative: %d", c.Game.RakeCapBB)
	}
	if c.Game.ActionTimeoutMs < 1000 {
		return fmt.Errorf("action timeout too short: %dms", c.Game.ActionTimeoutMs)
	}
	if c.Game.DefaultBuyInBB < 20 {
		return fmt.Errorf("default buy-in too small: %d big blinds", c.Game.DefaultBuyInBB)
	}
	return nil
}

// ListenAddress returns the host:port to bind.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Rake returns the engine rake configuration.
func (c *Config) Rake() engine.RakeConfig {
	return engine.RakeConfig{Percent: c.Game.RakePercent, CapBB: c.Game.RakeCapBB}
}

// Timing returns the table pacing configuration.
func (c *Config) Timing() table.Timing {
	return table.Timing{
		ActionTimeout:   time.Duration(c.Game.ActionTimeoutMs) * time.Millisecond,
		ActionAnimation: 300 * time.Millisecond,
		StreetDelay:     time.Duration(c.Game.StreetDelayMs) * time.Millisecond,
		ResultDelay:     time.Duration(c.Game.ResultDelayMs) * time.Millisecond,
	}
}
