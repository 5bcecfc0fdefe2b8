package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/baseball-sim/sim-engine/config"
	"github.com/baseball-sim/sim-engine/models"
	"github.com/baseball-sim/sim-engine/server"
	"github.com/baseball-sim/sim-engine/simulation"
	"github.com/baseball-sim/sim-engine/store"
)

type app struct {
	deps    server.Deps
	park    *models.ParkFactors
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// loadRosters builds the roster repository named by ROSTER_SOURCE and the
// result sinks that go with it
func loadRosters(ctx context.Context, cfg *config.Config, a *app) error {
	switch cfg.RosterSource {
	case config.SourceMemory:
		a.deps.Repository = store.NewMemoryRepository()

	case config.SourceFile:
		league, err := store.LoadLeague(cfg.LeagueFile)
		if err != nil {
			return err
		}
		a.deps.Repository = league.Repository
		a.deps.Schedule = league.Schedule
		a.park = league.Park
		log.Info().Str("file", cfg.LeagueFile).Strs("teams", league.Repository.Mascots()).
			Int("scheduled", len(league.Schedule)).Msg("league loaded")

	case config.SourcePostgres:
		pool, err := store.NewPool(ctx, cfg.DatabaseURL(), cfg.Workers)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)

		repo := store.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		if err := importLeague(ctx, cfg.LeagueFile, repo, a); err != nil {
			return err
		}

		a.deps.Repository = repo
		a.deps.Sinks = append(a.deps.Sinks, repo)
		a.deps.Standings = repo
		a.deps.Pool = pool
		a.deps.Checks["database"] = pool.Ping
	}
	return nil
}

// importLeague copies a league file, when one exists, into postgres
func importLeague(ctx context.Context, path string, repo *store.PostgresRepository, a *app) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Info().Str("file", path).Msg("No league file to import, using stored rosters")
		return nil
	}

	league, err := store.LoadLeague(path)
	if err != nil {
		return err
	}
	for _, mascot := range league.Repository.Mascots() {
		team, err := league.Repository.FindByMascot(ctx, mascot)
		if err != nil {
			return err
		}
		if err := repo.SaveTeam(ctx, team); err != nil {
			return err
		}
	}
	a.deps.Schedule = league.Schedule
	a.park = league.Park
	log.Info().Str("file", path).Int("teams", len(league.Repository.Mascots())).Msg("league imported")
	return nil
}

func connectRedis(ctx context.Context, cfg *config.Config, a *app) error {
	if cfg.RedisURL == "" {
		log.Info().Msg("No REDIS_URL configured, results will not be published")
		return nil
	}

	client, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { client.Close() })

	pub := store.NewRedisPublisher(client)
	a.deps.Sinks = append(a.deps.Sinks, pub)
	// Postgres keeps standings for good; Redis only until they expire
	if a.deps.Standings == nil {
		a.deps.Standings = pub
	}
	a.deps.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{deps: server.Deps{Checks: make(map[string]server.HealthCheck)}}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := loadRosters(connectCtx, cfg, a); err != nil {
		a.close()
		return nil, err
	}
	if err := connectRedis(connectCtx, cfg, a); err != nil {
		a.close()
		return nil, err
	}

	var opts []models.OutcomeOption
	if a.park != nil {
		opts = append(opts, models.WithParkFactors(*a.park))
		log.Info().Bool("hitters_park", a.park.IsHittersFriendly()).
			Bool("pitchers_park", a.park.IsPitchersFriendly()).Msg("Using park factors")
	}
	model := models.NewOutcomeModel(opts...)

	sim, err := simulation.NewGameSimulator(model, cfg.Rules())
	if err != nil {
		a.close()
		return nil, err
	}
	gameLog, err := simulation.NewGameSimulator(model, cfg.Rules(), simulation.WithPlayLog())
	if err != nil {
		a.close()
		return nil, err
	}

	a.deps.Simulator = sim
	a.deps.GameLog = gameLog
	a.deps.Engine = simulation.NewSimulationEngine(sim, cfg.Workers, cfg.SimulationRuns)
	return a, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(log.Logger.WithContext(context.Background()))
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}
	defer a.close()

	srv, err := server.NewServer(cfg, a.deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}
	go srv.RunCleanup(ctx, time.Hour, 24*time.Hour)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
		log.Info().Msg("Server shutdown complete")
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server failed")
		return
	}
	<-done
}
