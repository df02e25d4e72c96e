package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/arbiter"
)

// Settings are read from ARBITER_* environment variables
type Settings struct {
	Port        string        `envconfig:"PORT" default:"8081"`
	Fixture     string        `envconfig:"FIXTURE" default:"draft.yaml"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	PingPeriod  time.Duration `envconfig:"PING_INTERVAL" default:"30s"`
	Seed        int64         `envconfig:"AUTOPICK_SEED"`
	BestPlayers bool          `envconfig:"AUTOPICK_BEST"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var settings Settings
	if err := envconfig.Process("arbiter", &settings); err != nil {
		log.Fatal().Err(err).Msg("failed to process settings")
	}

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", settings.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	fixture, err := arbiter.LoadFixture(settings.Fixture)
	if err != nil {
		log.Fatal().Err(err).Str("fixture", settings.Fixture).Msg("failed to load fixture")
	}

	connConfig := arbiter.DefaultConnectionConfig()
	connConfig.PingInterval = settings.PingPeriod

	var strategy arbiter.AutoPickStrategy = arbiter.NewRandomStrategy()
	switch {
	case settings.BestPlayers:
		strategy = arbiter.BestAvailableStrategy{}
	case settings.Seed != 0:
		strategy = arbiter.NewSeededStrategy(settings.Seed)
	}

	arb, err := arbiter.New(fixture, connConfig, arbiter.WithStrategy(strategy))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create arbiter")
	}

	server := arbiter.NewServer(fmt.Sprintf(":%s", settings.Port), arb)

	log.Info().
		Str("league_id", fixture.LeagueID).
		Int("teams", len(fixture.Teams)).
		Int("players", len(fixture.Players)).
		Str("addr", server.Addr).
		Msg("starting draft arbiter")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return arb.Run(ctx)
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down draft arbiter")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("draft arbiter failed")
	}
	log.Info().Msg("draft arbiter shutdown complete")
}
