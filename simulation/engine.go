package simulation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/baseball-sim/sim-engine/models"
	"github.com/baseball-sim/sim-engine/random"
)

// GameSimulator plays single games between two teams
type GameSimulator struct {
	model   *models.OutcomeModel
	rules   models.Rules
	playLog bool
}

// SimulatorOption configures a GameSimulator
type SimulatorOption func(*GameSimulator)

// WithPlayLog records every plate appearance in the Boxscore
func WithPlayLog() SimulatorOption {
	return func(gs *GameSimulator) {
		gs.playLog = true
	}
}

// NewGameSimulator creates a simulator using the given outcome model and rules
func NewGameSimulator(model *models.OutcomeModel, rules models.Rules, opts ...SimulatorOption) (*GameSimulator, error) {
	if model == nil {
		model = models.NewOutcomeModel()
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	gs := &GameSimulator{
		model: model,
		rules: rules,
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs, nil
}

// Rules returns the rules every game is played under
func (gs *GameSimulator) Rules() models.Rules {
	return gs.rules
}

// Validate checks that a game between home and away can be played to completion.
// It runs before any simulation work so failures never leave partial results.
func (gs *GameSimulator) Validate(ctx context.Context, home, away *models.Team) error {
	logger := zerolog.Ctx(ctx)

	homeOnBase := false
	awayOnBase := false
	for _, side := range []struct {
		team   *models.Team
		label  string
		onBase *bool
	}{
		{home, "home", &homeOnBase},
		{away, "away", &awayOnBase},
	} {
		if side.team == nil || len(side.team.Lineup) == 0 {
			return fmt.Errorf("%s team: %w", side.label, models.ErrEmptyRoster)
		}

		canOut := false
		for slot, p := range side.team.Lineup {
			if p == nil {
				return fmt.Errorf("team %q: %w: nil batter in slot %d", side.team.Mascot, models.ErrInvalidLineup, slot+1)
			}
			if p.Stats.IsDegenerate() {
				logger.Warn().Str("team", side.team.Mascot).Str("player", p.Name).
					Msg("no plate appearances; using league-average profile")
			}

			d := gs.model.Distribution(p.Stats)
			if d.Prob(models.Out) > 0 {
				canOut = true
			}
			if d.Prob(models.Out) < 1 {
				*side.onBase = true
			}
		}
		if !canOut {
			return fmt.Errorf("team %q: %w: no batter can make an out", side.team.Mascot, models.ErrInvalidLineup)
		}
	}

	if !homeOnBase && !awayOnBase {
		return fmt.Errorf("%s vs %s: %w", away.Mascot, home.Mascot, models.ErrScorelessMatchup)
	}
	return nil
}

// Simulate plays one game with a random source keyed by seed. Identical teams and
// seed always produce an identical Boxscore.
func (gs *GameSimulator) Simulate(ctx context.Context, home, away *models.Team, seed int64) (*models.Boxscore, error) {
	box, err := gs.SimulateWithSource(ctx, home, away, random.NewSource(seed))
	if err != nil {
		return nil, err
	}
	box.Seed = seed
	return box, nil
}

// SimulateWithSource plays one game drawing every random value from rng
func (gs *GameSimulator) SimulateWithSource(ctx context.Context, home, away *models.Team, rng models.RandomSource) (*models.Boxscore, error) {
	if err := gs.Validate(ctx, home, away); err != nil {
		return nil, err
	}
	return gs.play(home, away, rng), nil
}

// play runs the at-bat loop; both teams must already be validated
func (gs *GameSimulator) play(home, away *models.Team, rng models.RandomSource) *models.Boxscore {
	state := models.NewGameState(gs.rules, len(home.Lineup), len(away.Lineup))

	box := &models.Boxscore{
		Home: home.Mascot,
		Away: away.Mascot,
	}

	for !state.IsGameOver() {
		batting := away
		if state.BattingHome() {
			batting = home
		}
		batter := batting.BatterAt(state.BatterIndex())
		inning, half := state.Inning, state.Half

		outcome := gs.model.Sample(batter.Stats, rng)
		runs := state.Apply(outcome, batter.Runner(), rng)

		box.PlateAppearances++
		if outcome.IsHit() {
			if half == models.Bottom {
				box.HomeHits++
			} else {
				box.AwayHits++
			}
		}

		if gs.playLog {
			outs := state.Outs
			if outcome == models.Out && outs == 0 {
				outs = 3 // the half-inning ended and reset the count
			}
			box.Plays = append(box.Plays, models.Play{
				Inning:   inning,
				Half:     half,
				BatterID: batter.ID,
				Outcome:  outcome,
				Runs:     runs,
				Outs:     outs,
			})
		}
	}

	box.HomeScore = state.HomeScore
	box.AwayScore = state.AwayScore
	box.Innings = state.Inning
	box.WalkOff = state.WalkOff
	box.LineScore = state.LineScore

	if box.HomeWon() {
		box.Winner, box.Loser = home.Mascot, away.Mascot
	} else {
		box.Winner, box.Loser = away.Mascot, home.Mascot
	}
	return box
}
