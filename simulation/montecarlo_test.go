package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseball-sim/sim-engine/models"
)

func TestRunMatchup(t *testing.T) {
	home := newTestTeam(t, "Wildcats", 9, slugger)
	away := newTestTeam(t, "Hornets", 9, quarterHitter)
	engine := NewSimulationEngine(newTestSimulator(t), 4, 100)

	result, err := engine.RunMatchup(context.Background(), home, away, 200, 42)
	require.NoError(t, err)

	assert.Equal(t, 200, result.TotalSimulations)
	assert.Equal(t, 200, result.HomeWins+result.AwayWins)
	assert.InDelta(t, 1.0, result.HomeWinProbability+result.AwayWinProbability, 1e-12)
	assert.Greater(t, result.HomeWinProbability, 0.5)
	assert.Greater(t, result.ExpectedHomeScore, result.ExpectedAwayScore)
	assert.GreaterOrEqual(t, result.AverageInnings, 9.0)
	assert.Equal(t, "Wildcats", result.Home)
	assert.NotEmpty(t, result.RunID)

	total := 0
	for _, n := range result.HomeScoreDistribution {
		total += n
	}
	assert.Equal(t, 200, total)

	for _, key := range []string{"total_runs_average", "score_variance", "run_differential_stddev",
		"extra_innings_percentage", "walk_off_percentage", "home_win_ci95"} {
		assert.Contains(t, result.Statistics, key)
	}
}

func TestRunMatchupIndependentOfWorkers(t *testing.T) {
	home := newTestTeam(t, "Wildcats", 9, slugger)
	away := newTestTeam(t, "Hornets", 9, slugger)

	serial, err := NewSimulationEngine(newTestSimulator(t), 1, 0).RunMatchup(context.Background(), home, away, 150, 9)
	require.NoError(t, err)
	parallel, err := NewSimulationEngine(newTestSimulator(t), 6, 0).RunMatchup(context.Background(), home, away, 150, 9)
	require.NoError(t, err)

	assert.Equal(t, serial.HomeWins, parallel.HomeWins)
	assert.Equal(t, serial.HomeScoreDistribution, parallel.HomeScoreDistribution)
	assert.Equal(t, serial.AwayScoreDistribution, parallel.AwayScoreDistribution)
	assert.Equal(t, serial.Statistics, parallel.Statistics)
}

func TestRunMatchupDefaultsRuns(t *testing.T) {
	team := newTestTeam(t, "Wildcats", 9, quarterHitter)
	engine := NewSimulationEngine(newTestSimulator(t), 2, 25)

	result, err := engine.RunMatchup(context.Background(), team, team, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 25, result.TotalSimulations)
}

func TestRunMatchupInvalid(t *testing.T) {
	hitless := newTestTeam(t, "Zeros", 9, models.StatProfile{AtBats: 10})
	engine := NewSimulationEngine(newTestSimulator(t), 2, 10)

	_, err := engine.RunMatchup(context.Background(), hitless, hitless, 10, 1)
	assert.ErrorIs(t, err, models.ErrScorelessMatchup)

	_, err = engine.StartMatchup(context.Background(), hitless, hitless, 10, 1)
	assert.ErrorIs(t, err, models.ErrScorelessMatchup)
	assert.Zero(t, engine.ActiveRuns())
}

func TestStartMatchup(t *testing.T) {
	home := newTestTeam(t, "Wildcats", 9, slugger)
	away := newTestTeam(t, "Hornets", 9, quarterHitter)
	engine := NewSimulationEngine(newTestSimulator(t), 2, 50)

	runID, err := engine.StartMatchup(context.Background(), home, away, 50, 3)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		status, ok := engine.GetRunStatus(runID)
		return ok && status.Status == StatusCompleted
	}, 10*time.Second, 10*time.Millisecond)

	status, _ := engine.GetRunStatus(runID)
	assert.Equal(t, 50, status.CompletedRuns)
	assert.NotNil(t, status.CompletedTime)

	result, err := engine.GetRunResult(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, result.RunID)
	assert.Equal(t, 50, result.TotalSimulations)

	assert.Equal(t, 1, engine.CleanupOldRuns(0))
	_, err = engine.GetRunResult(runID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetRunUnknown(t *testing.T) {
	engine := NewSimulationEngine(newTestSimulator(t), 1, 1)

	_, ok := engine.GetRunStatus("missing")
	assert.False(t, ok)

	_, err := engine.GetRunResult("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestCleanupOldRunsKeepsRecent(t *testing.T) {
	engine := NewSimulationEngine(newTestSimulator(t), 1, 1)
	engine.activeRuns["recent"] = &RunStatus{RunID: "recent", StartTime: time.Now()}
	engine.activeRuns["stale"] = &RunStatus{RunID: "stale", StartTime: time.Now().Add(-25 * time.Hour)}

	assert.Equal(t, 1, engine.CleanupOldRuns(24*time.Hour))
	_, ok := engine.GetRunStatus("recent")
	assert.True(t, ok)
}

func TestCalculateAggregatedResults(t *testing.T) {
	results := []*models.Boxscore{
		{HomeScore: 5, AwayScore: 4, Innings: 9},
		{HomeScore: 0, AwayScore: 8, Innings: 9},
		{HomeScore: 3, AwayScore: 2, Innings: 11, WalkOff: true},
		{HomeScore: 10, AwayScore: 2, Innings: 9},
	}

	agg := calculateAggregatedResults("run-1", "Wildcats", "Hornets", results, 9)

	assert.Equal(t, 3, agg.HomeWins)
	assert.Equal(t, 1, agg.AwayWins)
	assert.InDelta(t, 0.75, agg.HomeWinProbability, 1e-12)
	assert.InDelta(t, 4.5, agg.ExpectedHomeScore, 1e-12)
	assert.InDelta(t, 4.0, agg.ExpectedAwayScore, 1e-12)
	assert.InDelta(t, 9.5, agg.AverageInnings, 1e-12)

	assert.InDelta(t, 50.0, agg.Statistics["one_run_game_percentage"], 1e-12)
	assert.InDelta(t, 50.0, agg.Statistics["blowout_percentage"], 1e-12)
	assert.InDelta(t, 25.0, agg.Statistics["shutout_percentage"], 1e-12)
	assert.InDelta(t, 25.0, agg.Statistics["extra_innings_percentage"], 1e-12)
	assert.InDelta(t, 25.0, agg.Statistics["walk_off_percentage"], 1e-12)
	assert.InDelta(t, 8.5, agg.Statistics["total_runs_average"], 1e-12)
	// totals 9, 8, 5, 12 around a mean of 8.5
	assert.InDelta(t, 6.25, agg.Statistics["score_variance"], 1e-12)
	assert.InDelta(t, 0.5, agg.Statistics["over_8_5"], 1e-12)
	assert.Equal(t, map[int]int{5: 1, 0: 1, 3: 1, 10: 1}, agg.HomeScoreDistribution)
}

func TestCalculateAggregatedResultsEmpty(t *testing.T) {
	agg := calculateAggregatedResults("run-1", "Wildcats", "Hornets", nil, 9)
	assert.Zero(t, agg.TotalSimulations)
	assert.Zero(t, agg.HomeWinProbability)
	assert.Empty(t, agg.Statistics)
}
