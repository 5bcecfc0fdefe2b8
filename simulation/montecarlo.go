package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/baseball-sim/sim-engine/models"
	"github.com/baseball-sim/sim-engine/random"
)

// Run states reported by GetRunStatus
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "error"
)

// ErrRunNotFound is returned for unknown or evicted run IDs
var ErrRunNotFound = errors.New("simulation run not found")

// ErrRunIncomplete is returned when a run's result is requested before it finishes
var ErrRunIncomplete = errors.New("simulation run not complete")

// SimulationEngine replays one matchup many times on a worker pool
type SimulationEngine struct {
	sim            *GameSimulator
	workers        int
	simulationRuns int
	mu             sync.RWMutex
	activeRuns     map[string]*RunStatus
}

// RunStatus tracks the progress of a simulation run
type RunStatus struct {
	RunID            string                   `json:"run_id"`
	Home             string                   `json:"home"`
	Away             string                   `json:"away"`
	TotalRuns        int                      `json:"total_runs"`
	CompletedRuns    int                      `json:"completed_runs"`
	Status           string                   `json:"status"`
	Error            string                   `json:"error,omitempty"`
	StartTime        time.Time                `json:"start_time"`
	CompletedTime    *time.Time               `json:"completed_time,omitempty"`
	AggregatedResult *models.AggregatedResult `json:"-"`
}

// NewSimulationEngine creates a new simulation engine. simulationRuns is the
// default number of games per run when callers pass zero.
func NewSimulationEngine(sim *GameSimulator, workers, simulationRuns int) *SimulationEngine {
	if workers < 1 {
		workers = 1
	}
	if simulationRuns < 1 {
		simulationRuns = 1000
	}
	return &SimulationEngine{
		sim:            sim,
		workers:        workers,
		simulationRuns: simulationRuns,
		activeRuns:     make(map[string]*RunStatus),
	}
}

// RunMatchup simulates home vs away runs times and aggregates the results.
// Game i is seeded with random.Derive(seed, i), so the outcome is independent
// of the worker count.
func (se *SimulationEngine) RunMatchup(ctx context.Context, home, away *models.Team, runs int, seed int64) (*models.AggregatedResult, error) {
	return se.runMatchup(ctx, uuid.NewString(), home, away, runs, seed)
}

func (se *SimulationEngine) runMatchup(ctx context.Context, runID string, home, away *models.Team, runs int, seed int64) (*models.AggregatedResult, error) {
	logger := zerolog.Ctx(ctx)

	if runs < 1 {
		runs = se.simulationRuns
	}
	if err := se.sim.Validate(ctx, home, away); err != nil {
		return nil, err
	}

	tstart := time.Now()
	results := make([]*models.Boxscore, runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(se.workers)
	for i := 0; i < runs; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			gameSeed := random.Derive(seed, i)
			results[i] = se.sim.play(home, away, random.NewSource(gameSeed))
			results[i].Seed = gameSeed
			se.updateProgress(runID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aggregated := calculateAggregatedResults(runID, home.Mascot, away.Mascot, results, se.sim.rules.Innings)

	logger.Info().Str("run", runID).Int("simulations", runs).Dur("elapsed", time.Since(tstart)).
		Float64("home_win_probability", aggregated.HomeWinProbability).Msg("matchup-simulated")
	return aggregated, nil
}

// StartMatchup launches RunMatchup in the background and returns its run ID.
// The run keeps going after the caller's request ends; only the logger is taken
// from ctx.
func (se *SimulationEngine) StartMatchup(ctx context.Context, home, away *models.Team, runs int, seed int64) (string, error) {
	if err := se.sim.Validate(ctx, home, away); err != nil {
		return "", err
	}
	if runs < 1 {
		runs = se.simulationRuns
	}

	runID := uuid.NewString()
	se.mu.Lock()
	se.activeRuns[runID] = &RunStatus{
		RunID:     runID,
		Home:      home.Mascot,
		Away:      away.Mascot,
		TotalRuns: runs,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}
	se.mu.Unlock()

	bg := zerolog.Ctx(ctx).WithContext(context.Background())
	go func() {
		result, err := se.runMatchup(bg, runID, home, away, runs, seed)

		se.mu.Lock()
		defer se.mu.Unlock()
		status, exists := se.activeRuns[runID]
		if !exists {
			return
		}
		completedTime := time.Now()
		status.CompletedTime = &completedTime
		if err != nil {
			zerolog.Ctx(bg).Err(err).Str("run", runID).Msg("simulation run failed")
			status.Status = StatusFailed
			status.Error = err.Error()
			return
		}
		status.Status = StatusCompleted
		status.CompletedRuns = runs
		status.AggregatedResult = result
	}()

	return runID, nil
}

// updateProgress updates the completed runs count
func (se *SimulationEngine) updateProgress(runID string) {
	se.mu.Lock()
	defer se.mu.Unlock()

	if status, exists := se.activeRuns[runID]; exists {
		status.CompletedRuns++
	}
}

// GetRunStatus returns a snapshot of a simulation run's progress
func (se *SimulationEngine) GetRunStatus(runID string) (RunStatus, bool) {
	se.mu.RLock()
	defer se.mu.RUnlock()

	status, exists := se.activeRuns[runID]
	if !exists {
		return RunStatus{}, false
	}
	return *status, true
}

// GetRunResult returns the completed result of a simulation run
func (se *SimulationEngine) GetRunResult(runID string) (*models.AggregatedResult, error) {
	se.mu.RLock()
	defer se.mu.RUnlock()

	status, exists := se.activeRuns[runID]
	if !exists {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	switch status.Status {
	case StatusCompleted:
		return status.AggregatedResult, nil
	case StatusFailed:
		return nil, fmt.Errorf("run %s failed: %s", runID, status.Error)
	default:
		return nil, fmt.Errorf("run %s: %w (%d/%d)", runID, ErrRunIncomplete, status.CompletedRuns, status.TotalRuns)
	}
}

// ActiveRuns returns the number of runs held in memory
func (se *SimulationEngine) ActiveRuns() int {
	se.mu.RLock()
	defer se.mu.RUnlock()
	return len(se.activeRuns)
}

// CleanupOldRuns removes runs started before maxAge ago
func (se *SimulationEngine) CleanupOldRuns(maxAge time.Duration) int {
	se.mu.Lock()
	defer se.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for runID, status := range se.activeRuns {
		if status.StartTime.Before(cutoff) {
			delete(se.activeRuns, runID)
			removed++
		}
	}
	return removed
}
