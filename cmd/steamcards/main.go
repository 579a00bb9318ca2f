// Command steamcards runs the trading-card arbitrage pipeline: crawl cheap
// games off the search listings, discover their card drops, keep prices
// fresh, estimate flip profit, and prune the hopeless entries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/alekxeyuk/steam-cards-profit/internal/cache"
	"github.com/alekxeyuk/steam-cards-profit/internal/config"
	"github.com/alekxeyuk/steam-cards-profit/internal/orchestrator"
	"github.com/alekxeyuk/steam-cards-profit/internal/report"
	"github.com/alekxeyuk/steam-cards-profit/internal/steam"
	"github.com/alekxeyuk/steam-cards-profit/internal/storage/postgres"
)

const usage = `usage: steamcards <command>

commands:
  discover            crawl the search listings and upsert games
  refresh-ownership   reconcile ownership flags against the live library
  refresh-prices      discover cards, then reprice cards and games
  compute-profit      estimate per-game flip profit
  cleanup             prune unowned games at or below the loss threshold
  cycle               run all five operations in order
  watch               run the full cycle on a schedule
  export              write the games table as CSV to stdout
  migrate             apply database migrations and exit
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := log.ParseLevel(lvl); err == nil {
			log.SetLevel(parsed)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof("Received %v, shutting down", sig)
		cancel()
	}()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer pool.Close()

	if command == "migrate" {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalf("Migration error: %v", err)
		}
		log.Info("Migrations applied")
		return
	}

	games := postgres.NewGameStore(pool)
	cards := postgres.NewCardStore(pool)

	var cardCache *cache.Cache
	if cfg.CacheFile != "" {
		cardCache, err = cache.Open(cfg.CacheFile)
		if err != nil {
			log.Fatalf("Cache error: %v", err)
		}
	}

	// Each cycle gets a fresh Orchestrator so the ownership snapshot is
	// taken once per run, never reused across runs.
	newOrchestrator := func() *orchestrator.Orchestrator {
		market := steam.New(steam.Config{
			SessionSecret: cfg.SessionSecret,
			MaxPrice:      cfg.MaxPrice,
			Interval:      cfg.RequestInterval,
		})
		return orchestrator.New(market, games, cards, orchestrator.Config{
			SearchPages:      cfg.SearchPages,
			PageSize:         cfg.PageSize,
			QuoteAttempts:    cfg.QuoteAttempts,
			QuoteDelay:       cfg.QuoteDelay,
			CleanupThreshold: cfg.CleanupThreshold,
			CardCache:        cardCache,
			CardCacheTTL:     cfg.CacheTTL,
		})
	}

	switch command {
	case "discover":
		err = newOrchestrator().Discover(ctx)
	case "refresh-ownership":
		err = newOrchestrator().RefreshOwnership(ctx)
	case "refresh-prices":
		err = newOrchestrator().RefreshPrices(ctx)
	case "compute-profit":
		err = newOrchestrator().ComputeProfit(ctx)
	case "cleanup":
		err = newOrchestrator().Cleanup(ctx)
	case "cycle":
		err = runCycle(ctx, newOrchestrator())
	case "watch":
		err = watch(ctx, cfg.WatchSchedule, newOrchestrator)
	case "export":
		err = exportGames(ctx, games)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("Command %s failed: %v", command, err)
	}
}

// runCycle executes the five pipeline operations in their canonical order,
// stopping at the first failure.
func runCycle(ctx context.Context, o *orchestrator.Orchestrator) error {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"discover", o.Discover},
		{"refresh-ownership", o.RefreshOwnership},
		{"refresh-prices", o.RefreshPrices},
		{"compute-profit", o.ComputeProfit},
		{"cleanup", o.Cleanup},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithField("step", step.name).Info("Cycle step starting")
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

// exportGames dumps every unowned game with its estimates as CSV.
func exportGames(ctx context.Context, games *postgres.GameStore) error {
	unowned, err := games.ListByOwned(ctx, false)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	return report.WriteGamesCSV(os.Stdout, unowned)
}

// watch runs full cycles on the configured cron schedule until the context
// is cancelled. An immediate first cycle runs before the schedule kicks in.
func watch(ctx context.Context, schedule string, build func() *orchestrator.Orchestrator) error {
	if err := runCycle(ctx, build()); err != nil {
		log.WithField("error", err).Error("Cycle failed")
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := runCycle(ctx, build()); err != nil {
			log.WithField("error", err).Error("Cycle failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}

	c.Start()
	log.WithField("schedule", schedule).Info("Watch mode started")

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
