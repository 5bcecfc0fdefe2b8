package simulation

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseball-sim/sim-engine/models"
	"github.com/baseball-sim/sim-engine/random"
)

type mapRepository map[string]*models.Team

func (r mapRepository) FindByMascot(_ context.Context, mascot string) (*models.Team, error) {
	team, ok := r[mascot]
	if !ok {
		return nil, fmt.Errorf("mascot %q: %w", mascot, models.ErrTeamNotFound)
	}
	return team, nil
}

type recordingSink struct {
	mu        sync.Mutex
	games     []*models.Boxscore
	standings map[string]models.WonLossRecord
	fail      bool
}

func (s *recordingSink) RecordGame(_ context.Context, _ string, box *models.Boxscore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = append(s.games, box)
	if s.fail {
		return fmt.Errorf("sink unavailable")
	}
	return nil
}

func (s *recordingSink) SaveStandings(_ context.Context, _ string, standings map[string]models.WonLossRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standings = standings
	return nil
}

func twoTeamSchedule(games int) Schedule {
	schedule := make(Schedule, games)
	for i := range schedule {
		if i%2 == 0 {
			schedule[i] = Pairing{Home: "Wildcats", Away: "Hornets"}
		} else {
			schedule[i] = Pairing{Home: "Hornets", Away: "Wildcats"}
		}
	}
	return schedule
}

func newTestRepository(t *testing.T) mapRepository {
	return mapRepository{
		"Wildcats": newTestTeam(t, "Wildcats", 9, quarterHitter),
		"Hornets":  newTestTeam(t, "Hornets", 9, slugger),
	}
}

func TestRunScheduleTenGames(t *testing.T) {
	sink := &recordingSink{}
	agg := NewSeasonAggregator(newTestSimulator(t), SeasonConfig{Workers: 4, Seed: 2024, Sinks: []ResultSink{sink}})

	standings, err := agg.RunSchedule(context.Background(), twoTeamSchedule(10), newTestRepository(t))
	require.NoError(t, err)

	wildcats := standings["Wildcats"]
	hornets := standings["Hornets"]
	assert.Equal(t, 10, wildcats.Wins+wildcats.Losses)
	assert.Equal(t, 10, hornets.Wins+hornets.Losses)
	assert.Equal(t, 10, wildcats.Wins+hornets.Wins)
	assert.Equal(t, wildcats.Wins, hornets.Losses)
	assert.Equal(t, wildcats.RunsScored, hornets.RunsAllowed)
	assert.Equal(t, wildcats.RunsAllowed, hornets.RunsScored)

	assert.Len(t, sink.games, 10)
	assert.Equal(t, standings, Standings(sink.standings))

	wins, losses, err := agg.GetWonLossRecord("Wildcats")
	require.NoError(t, err)
	assert.Equal(t, wildcats.Wins, wins)
	assert.Equal(t, wildcats.Losses, losses)
}

func TestRunScheduleIndependentOfWorkers(t *testing.T) {
	repo := newTestRepository(t)
	schedule := twoTeamSchedule(40)

	var results []Standings
	var seeds [][]int64
	for _, workers := range []int{1, 3, 8} {
		sink := &recordingSink{}
		agg := NewSeasonAggregator(newTestSimulator(t), SeasonConfig{Workers: workers, Seed: 77, Sinks: []ResultSink{sink}})
		standings, err := agg.RunSchedule(context.Background(), schedule, repo)
		require.NoError(t, err)
		results = append(results, standings)

		played := make([]int64, 0, len(sink.games))
		for _, box := range sink.games {
			played = append(played, box.Seed)
		}
		slices.Sort(played)
		seeds = append(seeds, played)
	}

	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
	assert.Equal(t, seeds[0], seeds[2])
}

func TestRunScheduleUnknownTeam(t *testing.T) {
	sink := &recordingSink{}
	agg := NewSeasonAggregator(newTestSimulator(t), SeasonConfig{Workers: 2, Seed: 1, Sinks: []ResultSink{sink}})

	schedule := append(twoTeamSchedule(4), Pairing{Home: "Wildcats", Away: "Unicorns"})
	standings, err := agg.RunSchedule(context.Background(), schedule, newTestRepository(t))

	assert.ErrorIs(t, err, models.ErrTeamNotFound)
	assert.Nil(t, standings)
	assert.Empty(t, sink.games)
	assert.Empty(t, agg.Standings())

	_, _, err = agg.GetWonLossRecord("Wildcats")
	assert.ErrorIs(t, err, models.ErrTeamNotFound)
}

func TestRunScheduleRejectsInvalidSchedules(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		wantErr  error
	}{
		{"self pairing", Schedule{{Home: "Wildcats", Away: "Wildcats"}}, models.ErrInvalidSchedule},
		{"empty name", Schedule{{Home: "Wildcats", Away: ""}}, models.ErrInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			agg := NewSeasonAggregator(newTestSimulator(t), SeasonConfig{Sinks: []ResultSink{sink}})
			_, err := agg.RunSchedule(context.Background(), tt.schedule, newTestRepository(t))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, sink.games)
		})
	}
}

func TestRunScheduleRejectsUnplayableMatchupUpFront(t *testing.T) {
	repo := newTestRepository(t)
	repo["Zeros"] = newTestTeam(t, "Zeros", 9, models.StatProfile{AtBats: 10})
	repo["Blanks"] = newTestTeam(t, "Blanks", 9, models.StatProfile{AtBats: 10})

	sink := &recordingSink{}
	agg := NewSeasonAggregator(newTestSimulator(t), SeasonConfig{Workers: 2, Sinks: []ResultSink{sink}})
	schedule := append(twoTeamSchedule(6), Pairing{Home: "Zeros", Away: "Blanks"})

	_, err := agg.RunSchedule(context.Background(), schedule, repo)
	assert.ErrorIs(t, err, models.ErrScorelessMatchup)
	assert.Empty(t, sink.games)
}

func TestRunScheduleSinkFailureIsNotFatal(t *testing.T) {
	sink := &recordingSink{fail: true}
	agg := NewSeasonAggregator(newTestSimulator(t), SeasonConfig{Workers: 2, Seed: 3, Sinks: []ResultSink{sink}})

	standings, err := agg.RunSchedule(context.Background(), twoTeamSchedule(6), newTestRepository(t))
	require.NoError(t, err)
	assert.Len(t, sink.games, 6)
	assert.Equal(t, 6, standings["Wildcats"].Games())
}

func TestRunScheduleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := NewSeasonAggregator(newTestSimulator(t), SeasonConfig{Workers: 2})
	_, err := agg.RunSchedule(ctx, twoTeamSchedule(10), newTestRepository(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunScheduleAccumulates(t *testing.T) {
	sink := &recordingSink{}
	agg := NewSeasonAggregator(newTestSimulator(t), SeasonConfig{Workers: 2, Seed: 11, Sinks: []ResultSink{sink}})
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := agg.RunSchedule(ctx, twoTeamSchedule(4), repo)
	require.NoError(t, err)

	// A rejected schedule plays nothing and does not use up game numbers
	_, err = agg.RunSchedule(ctx, Schedule{{Home: "Wildcats", Away: "Unicorns"}}, repo)
	require.ErrorIs(t, err, models.ErrTeamNotFound)

	standings, err := agg.RunSchedule(ctx, twoTeamSchedule(6), repo)
	require.NoError(t, err)
	assert.Equal(t, 10, standings["Hornets"].Games())

	seeds := lo.Map(sink.games, func(box *models.Boxscore, _ int) int64 { return box.Seed })
	require.Len(t, seeds, 10)
	assert.Len(t, lo.Uniq(seeds), 10, "a seed was reused across calls")

	want := make([]int64, 10)
	for n := range want {
		want[n] = random.Derive(11, n)
	}
	assert.ElementsMatch(t, want, seeds)

	// Split runs play the same games as one run of the whole schedule
	whole := NewSeasonAggregator(newTestSimulator(t), SeasonConfig{Workers: 3, Seed: 11})
	wholeStandings, err := whole.RunSchedule(ctx, twoTeamSchedule(10), repo)
	require.NoError(t, err)
	assert.Equal(t, wholeStandings, standings)
}

func TestStandingsRanked(t *testing.T) {
	standings := Standings{
		"Wildcats": {Wins: 5, Losses: 5, RunsScored: 40, RunsAllowed: 45},
		"Hornets":  {Wins: 7, Losses: 3, RunsScored: 50, RunsAllowed: 30},
		"Owls":     {Wins: 5, Losses: 5, RunsScored: 44, RunsAllowed: 40},
		"Badgers":  {Wins: 5, Losses: 5, RunsScored: 44, RunsAllowed: 40},
	}

	ranked := standings.Ranked()
	require.Len(t, ranked, 4)

	names := make([]string, len(ranked))
	for i, row := range ranked {
		names[i] = row.Team
	}
	assert.Equal(t, []string{"Hornets", "Badgers", "Owls", "Wildcats"}, names)
	assert.InDelta(t, 0.7, ranked[0].WinPct, 1e-12)
}

func TestScheduleMascots(t *testing.T) {
	schedule := Schedule{
		{Home: "Wildcats", Away: "Hornets"},
		{Home: "Owls", Away: "Wildcats"},
		{Home: "Hornets", Away: "Owls"},
	}
	assert.Equal(t, []string{"Wildcats", "Hornets", "Owls"}, schedule.Mascots())
}
