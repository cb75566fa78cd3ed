package main

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/ploroom/cmd/ploroom/shared"
	"github.com/lox/ploroom/internal/bot"
)

// BotCmd spawns reference bots against a running server.
type BotCmd struct {
	Server   string `kong:"default='ws://localhost:8080/ws',env='PLOROOM_SERVER',help='WebSocket server URL'"`
	Count    int    `kong:"default='5',help='Number of bots to spawn'"`
	Blinds   string `kong:"default='1/3',help='Blind level to queue for'"`
	FastFold bool   `kong:"help='Queue for fast-fold tables'"`
	BuyIn    int    `kong:"default='300',help='Buy-in amount in chips'"`
	Prefix   string `kong:"default='plobot',help='Bot name prefix'"`
	Seed     *int64 `kong:"help='Deterministic RNG seed (optional)'"`
	LogLevel string `kong:"default='info',help='Log level (debug|info|warn|error)'"`
}

func (c *BotCmd) Run() error {
	if c.Count < 1 {
		return fmt.Errorf("count must be at least 1")
	}

	logger := shared.SetupLogger(c.LogLevel)

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	seedRng := rand.New(rand.NewSource(seed))

	ctx := shared.SetupSignalHandler(logger)

	logger.Info("spawning bots",
		"count", c.Count,
		"server", c.Server,
		"blinds", c.Blinds,
		"fastFold", c.FastFold,
		"seed", seed)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.Count; i++ {
		runner := bot.NewRunner(bot.RunnerConfig{
			ServerURL: c.Server,
			Name:      fmt.Sprintf("%s-%d", c.Prefix, i+1),
			Blinds:    c.Blinds,
			FastFold:  c.FastFold,
			BuyIn:     c.BuyIn,
		}, bot.NewStrategy(rand.New(rand.NewSource(seedRng.Int63()))), logger)

		// Stagger connections so the pool seats bots across tables
		// instead of in one burst.
		delay := time.Duration(i) * 100 * time.Millisecond
		g.Go(func() error {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}
