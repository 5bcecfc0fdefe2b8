// Package server exposes the simulation engine over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/baseball-sim/sim-engine/config"
	"github.com/baseball-sim/sim-engine/models"
	"github.com/baseball-sim/sim-engine/simulation"
)

// Repository resolves teams for simulations and stores edited rosters
type Repository interface {
	simulation.RosterRepository
	SaveTeam(ctx context.Context, team *models.Team) error
}

// StandingsReader loads standings stored by an earlier season. An unknown
// season yields an empty map.
type StandingsReader interface {
	ReadStandings(ctx context.Context, seasonID string) (map[string]models.WonLossRecord, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators a Server is built from. Simulator, Engine and
// Repository are required.
type Deps struct {
	Repository Repository
	Simulator  *simulation.GameSimulator
	// GameLog, if set, serves single-game requests so their boxscores carry
	// the play-by-play log
	GameLog *simulation.GameSimulator
	Engine  *simulation.SimulationEngine
	Sinks   []simulation.ResultSink
	// Schedule is played by season requests that bring none
	Schedule simulation.Schedule
	// Standings, if set, answers standings requests for seasons no longer
	// held in memory
	Standings StandingsReader
	Pool      *pgxpool.Pool
	Checks    map[string]HealthCheck
}

type Server struct {
	Deps
	config     *config.Config
	router     *mux.Router
	httpServer *http.Server
	metrics    *Metrics

	mu      sync.RWMutex
	seasons map[string]*seasonEntry
}

type seasonEntry struct {
	season  *simulation.SeasonAggregator
	created time.Time
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Repository == nil || deps.Simulator == nil || deps.Engine == nil {
		return nil, fmt.Errorf("server requires a repository, a simulator and an engine")
	}
	if deps.GameLog == nil {
		deps.GameLog = deps.Simulator
	}

	s := &Server{
		Deps:    deps,
		config:  cfg,
		router:  mux.NewRouter(),
		metrics: NewMetrics(),
		seasons: make(map[string]*seasonEntry),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/metrics", s.metricsHandler).Methods("GET")

	s.router.HandleFunc("/teams/{mascot}", s.teamHandler).Methods("GET")
	s.router.HandleFunc("/teams/{mascot}", s.saveTeamHandler).Methods("PUT")

	s.router.HandleFunc("/simulate", s.simulateHandler).Methods("POST")
	s.router.HandleFunc("/simulations", s.startSimulationHandler).Methods("POST")
	s.router.HandleFunc("/simulation/{id}/status", s.simulationStatusHandler).Methods("GET")
	s.router.HandleFunc("/simulation/{id}/result", s.simulationResultHandler).Methods("GET")

	s.router.HandleFunc("/seasons", s.seasonHandler).Methods("POST")
	s.router.HandleFunc("/seasons/{id}/standings", s.standingsHandler).Methods("GET")
	s.router.HandleFunc("/seasons/{id}/teams/{mascot}/record", s.recordHandler).Methods("GET")

	s.router.Use(hlog.NewHandler(log.Logger))
}

// Handler returns the router wrapped in recovery, request logging and CORS
func (s *Server) Handler() http.Handler {
	logged := handlers.CustomLoggingHandler(io.Discard, s.router, s.logRequest)
	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log.Logger}),
		handlers.PrintRecoveryStack(true),
	)(logged)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         86400,
	})
	return c.Handler(recovered)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // seasons and long matchups
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("port", s.config.Port).Int("workers", s.config.Workers).Msg("Starting Simulation Engine")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down Simulation Engine...")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// CleanupOldSeasons drops seasons created more than maxAge ago and returns
// how many were removed
func (s *Server) CleanupOldSeasons(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, entry := range s.seasons {
		if !entry.created.After(cutoff) {
			delete(s.seasons, id)
			removed++
		}
	}
	return removed
}

// RunCleanup evicts Monte Carlo runs and seasons older than maxAge every
// interval until ctx is done
func (s *Server) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runs := s.Engine.CleanupOldRuns(maxAge)
			seasons := s.CleanupOldSeasons(maxAge)
			zerolog.Ctx(ctx).Debug().Int("runs_removed", runs).Int("seasons_removed", seasons).
				Int("active_runs", s.Engine.ActiveRuns()).Msg("server cleanup")
		}
	}
}

func (s *Server) logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	duration := time.Since(params.TimeStamp)
	s.metrics.ObserveRequest(params.StatusCode, duration)

	var event *zerolog.Event
	switch {
	case params.StatusCode >= 500:
		event = log.Error()
	case params.StatusCode >= 400:
		event = log.Warn()
	default:
		event = log.Info()
	}
	event.Str("method", params.Request.Method).
		Str("uri", params.URL.RequestURI()).
		Int("status", params.StatusCode).
		Int("size", params.Size).
		Dur("duration", duration).
		Msg("request")
}

type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
