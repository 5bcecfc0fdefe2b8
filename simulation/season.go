package simulation

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/baseball-sim/sim-engine/models"
	"github.com/baseball-sim/sim-engine/random"
)

// Pairing is one scheduled game
type Pairing struct {
	Home string `json:"home" yaml:"home"`
	Away string `json:"away" yaml:"away"`
}

// Schedule is an ordered list of games. On a fresh aggregator the position of
// a game fixes its seed.
type Schedule []Pairing

// Validate rejects empty mascots and teams scheduled against themselves
func (s Schedule) Validate() error {
	for i, p := range s {
		if p.Home == "" || p.Away == "" {
			return fmt.Errorf("%w: game %d has an empty team name", models.ErrInvalidSchedule, i+1)
		}
		if p.Home == p.Away {
			return fmt.Errorf("%w: game %d pairs %q with itself", models.ErrInvalidSchedule, i+1, p.Home)
		}
	}
	return nil
}

// Mascots returns every team named in the schedule, in first-appearance order
func (s Schedule) Mascots() []string {
	names := make([]string, 0, len(s)*2)
	for _, p := range s {
		names = append(names, p.Home, p.Away)
	}
	return lo.Uniq(names)
}

// RosterRepository resolves teams by mascot name. Unknown names fail with
// models.ErrTeamNotFound.
type RosterRepository interface {
	FindByMascot(ctx context.Context, mascot string) (*models.Team, error)
}

// ResultSink receives every completed game of a season
type ResultSink interface {
	RecordGame(ctx context.Context, seasonID string, box *models.Boxscore) error
}

// StandingsSink is an optional ResultSink extension that stores final standings
type StandingsSink interface {
	SaveStandings(ctx context.Context, seasonID string, standings map[string]models.WonLossRecord) error
}

// SeasonConfig controls a SeasonAggregator
type SeasonConfig struct {
	Workers  int
	Seed     int64
	SeasonID string
	Sinks    []ResultSink
}

// Standings maps mascot names to their records
type Standings map[string]models.WonLossRecord

// TeamStanding is one row of ranked standings
type TeamStanding struct {
	Team string `json:"team"`
	models.WonLossRecord
	WinPct float64 `json:"win_pct"`
}

// Ranked orders teams by win percentage, then run differential, then name
func (s Standings) Ranked() []TeamStanding {
	rows := lo.MapToSlice(s, func(team string, rec models.WonLossRecord) TeamStanding {
		return TeamStanding{Team: team, WonLossRecord: rec, WinPct: rec.WinPct()}
	})
	slices.SortFunc(rows, func(a, b TeamStanding) int {
		if c := cmp.Compare(b.WinPct, a.WinPct); c != 0 {
			return c
		}
		if c := cmp.Compare(b.RunDifferential(), a.RunDifferential()); c != 0 {
			return c
		}
		return cmp.Compare(a.Team, b.Team)
	})
	return rows
}

// SeasonAggregator plays a schedule on a worker pool and keeps won-loss records.
// Records are written only by the goroutine running RunSchedule.
type SeasonAggregator struct {
	sim *GameSimulator
	cfg SeasonConfig

	mu      sync.RWMutex
	records map[string]*models.WonLossRecord
	games   int // games scheduled so far; offsets seed derivation
}

// NewSeasonAggregator creates an aggregator. A zero worker count runs games
// one at a time; an empty season ID is replaced with a generated one.
func NewSeasonAggregator(sim *GameSimulator, cfg SeasonConfig) *SeasonAggregator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SeasonID == "" {
		cfg.SeasonID = uuid.NewString()
	}
	return &SeasonAggregator{
		sim:     sim,
		cfg:     cfg,
		records: make(map[string]*models.WonLossRecord),
	}
}

// SeasonID identifies this season to result sinks
func (sa *SeasonAggregator) SeasonID() string {
	return sa.cfg.SeasonID
}

// RunSchedule simulates every game of the schedule and returns the standings.
//
// All teams are resolved and every pairing validated before the first game is
// played, so a lookup failure leaves the records and sinks untouched. Records
// accumulate across calls. Games are numbered across calls, and game n of the
// season is seeded with random.Derive(cfg.Seed, n), so no two games of one
// aggregator share a seed.
func (sa *SeasonAggregator) RunSchedule(ctx context.Context, schedule Schedule, repo RosterRepository) (Standings, error) {
	logger := zerolog.Ctx(ctx)

	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	teams := make(map[string]*models.Team)
	for _, mascot := range schedule.Mascots() {
		team, err := repo.FindByMascot(ctx, mascot)
		if err != nil {
			return nil, fmt.Errorf("resolve team %q: %w", mascot, err)
		}
		teams[mascot] = team
	}

	type matchup struct{ home, away string }
	validated := make(map[matchup]bool)
	for _, p := range schedule {
		key := matchup{p.Home, p.Away}
		if validated[key] {
			continue
		}
		if err := sa.sim.Validate(ctx, teams[p.Home], teams[p.Away]); err != nil {
			return nil, err
		}
		validated[key] = true
	}

	sa.mu.Lock()
	for mascot := range teams {
		if _, ok := sa.records[mascot]; !ok {
			sa.records[mascot] = &models.WonLossRecord{}
		}
	}
	offset := sa.games
	sa.games += len(schedule)
	sa.mu.Unlock()

	tstart := time.Now()
	results := make(chan *models.Boxscore, sa.cfg.Workers)
	errc := make(chan error, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sa.cfg.Workers)
	go func() {
		for i, p := range schedule {
			if gctx.Err() != nil {
				break
			}
			home, away := teams[p.Home], teams[p.Away]
			seed := random.Derive(sa.cfg.Seed, offset+i)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				box := sa.sim.play(home, away, random.NewSource(seed))
				box.Seed = seed
				select {
				case results <- box:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		errc <- g.Wait()
		close(results)
	}()

	played := 0
	for box := range results {
		sa.record(ctx, box)
		played++
	}
	if err := <-errc; err != nil {
		logger.Warn().Err(err).Int("played", played).Int("scheduled", len(schedule)).Msg("season interrupted")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	standings := sa.Standings()
	sa.saveStandings(ctx, standings)

	logger.Info().Str("season", sa.cfg.SeasonID).Int("games", played).Int("teams", len(teams)).
		Dur("elapsed", time.Since(tstart)).Msg("season-simulated")
	return standings, nil
}

// record applies one result to the standings and forwards it to every sink
func (sa *SeasonAggregator) record(ctx context.Context, box *models.Boxscore) {
	loserScore := min(box.HomeScore, box.AwayScore)
	winnerScore := max(box.HomeScore, box.AwayScore)

	sa.mu.Lock()
	winner := sa.records[box.Winner]
	winner.Wins++
	winner.RunsScored += winnerScore
	winner.RunsAllowed += loserScore
	loser := sa.records[box.Loser]
	loser.Losses++
	loser.RunsScored += loserScore
	loser.RunsAllowed += winnerScore
	sa.mu.Unlock()

	for _, sink := range sa.cfg.Sinks {
		if err := sink.RecordGame(ctx, sa.cfg.SeasonID, box); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("season", sa.cfg.SeasonID).
				Str("home", box.Home).Str("away", box.Away).Msg("Failed to store game result")
		}
	}
}

func (sa *SeasonAggregator) saveStandings(ctx context.Context, standings Standings) {
	for _, sink := range sa.cfg.Sinks {
		ss, ok := sink.(StandingsSink)
		if !ok {
			continue
		}
		if err := ss.SaveStandings(ctx, sa.cfg.SeasonID, standings); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("season", sa.cfg.SeasonID).Msg("Failed to store standings")
		}
	}
}

// GetWonLossRecord returns a team's wins and losses so far
func (sa *SeasonAggregator) GetWonLossRecord(mascot string) (wins, losses int, err error) {
	rec, err := sa.Record(mascot)
	if err != nil {
		return 0, 0, err
	}
	return rec.Wins, rec.Losses, nil
}

// Record returns a team's full record so far
func (sa *SeasonAggregator) Record(mascot string) (models.WonLossRecord, error) {
	sa.mu.RLock()
	defer sa.mu.RUnlock()

	rec, ok := sa.records[mascot]
	if !ok {
		return models.WonLossRecord{}, fmt.Errorf("team %q: %w", mascot, models.ErrTeamNotFound)
	}
	return *rec, nil
}

// Standings returns a snapshot of every team's record
func (sa *SeasonAggregator) Standings() Standings {
	sa.mu.RLock()
	defer sa.mu.RUnlock()

	return lo.MapValues(sa.records, func(rec *models.WonLossRecord, _ string) models.WonLossRecord {
		return *rec
	})
}
