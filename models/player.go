package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Player represents a historical ballplayer and their composite career statistics.
// A Player is immutable once built; use WithStats to produce an updated snapshot.
// The same *Player may appear in the lineup of any number of teams.
type Player struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Uniform int         `json:"uniform"` // most well-known uniform number
	Stats   StatProfile `json:"stats"`
}

// StatProfile contains career batting counters
type StatProfile struct {
	AtBats     int `json:"at_bats" yaml:"at_bats"`
	Hits       int `json:"hits" yaml:"hits"`
	Walks      int `json:"walks" yaml:"walks"`
	Doubles    int `json:"doubles" yaml:"doubles"`
	Triples    int `json:"triples" yaml:"triples"`
	HomeRuns   int `json:"home_runs" yaml:"home_runs"`
	TotalBases int `json:"total_bases" yaml:"total_bases"`
}

// LeagueAverageProfile is used for batters without any plate appearances.
var LeagueAverageProfile = StatProfile{
	AtBats:     450,
	Hits:       110,
	Walks:      45,
	Doubles:    20,
	Triples:    2,
	HomeRuns:   15,
	TotalBases: 179,
}

// NewPlayer validates the counters and builds a player snapshot. An empty id
// is replaced with a generated one.
func NewPlayer(id, name string, uniform int, stats StatProfile) (*Player, error) {
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("player %q: %w", name, err)
	}
	if id == "" {
		id = uuid.New().String()
	}
	return &Player{
		ID:      id,
		Name:    name,
		Uniform: uniform,
		Stats:   stats,
	}, nil
}

// WithStats returns a new snapshot of the same player carrying updated counters.
// The receiver is left untouched so in-flight simulations keep a consistent view.
func (p *Player) WithStats(stats StatProfile) (*Player, error) {
	return NewPlayer(p.ID, p.Name, p.Uniform, stats)
}

// BattingAvg returns hits divided by at-bats, or 0.0 with no at-bats.
// Prefer OnBasePercentage and SluggingPercentage for new code.
func (p *Player) BattingAvg() float64 { return p.Stats.BattingAvg() }

// OnBasePercentage returns (hits+walks)/(at-bats+walks), or 0.0 without plate appearances.
func (p *Player) OnBasePercentage() float64 { return p.Stats.OnBasePercentage() }

// SluggingPercentage returns total bases per at-bat, or 0.0 with no at-bats.
func (p *Player) SluggingPercentage() float64 { return p.Stats.SluggingPercentage() }

// Runner returns the base runner identity for this player
func (p *Player) Runner() BaseRunner {
	return BaseRunner{PlayerID: p.ID, Name: p.Name}
}

// Validate checks the counter invariants.
func (s StatProfile) Validate() error {
	switch {
	case s.AtBats < 0 || s.Hits < 0 || s.Walks < 0 || s.Doubles < 0 ||
		s.Triples < 0 || s.HomeRuns < 0 || s.TotalBases < 0:
		return fmt.Errorf("%w: negative counter", ErrInvalidProfile)
	case s.Hits > s.AtBats:
		return fmt.Errorf("%w: %d hits in %d at-bats", ErrInvalidProfile, s.Hits, s.AtBats)
	case s.Hits < s.Doubles+s.Triples+s.HomeRuns:
		return fmt.Errorf("%w: extra-base hits exceed hits", ErrInvalidProfile)
	case s.TotalBases != s.Hits+s.Doubles+2*s.Triples+3*s.HomeRuns:
		return fmt.Errorf("%w: total bases %d, want %d", ErrInvalidProfile,
			s.TotalBases, s.Hits+s.Doubles+2*s.Triples+3*s.HomeRuns)
	}
	return nil
}

// Singles is the residual of hits that went for one base
func (s StatProfile) Singles() int {
	return s.Hits - s.Doubles - s.Triples - s.HomeRuns
}

func (s StatProfile) PlateAppearances() int {
	return s.AtBats + s.Walks
}

// IsDegenerate reports a profile with no plate appearances at all.
func (s StatProfile) IsDegenerate() bool {
	return s.AtBats == 0 && s.Walks == 0
}

func (s StatProfile) BattingAvg() float64 {
	return ratio(s.Hits, s.AtBats)
}

func (s StatProfile) OnBasePercentage() float64 {
	return ratio(s.Hits+s.Walks, s.AtBats+s.Walks)
}

func (s StatProfile) SluggingPercentage() float64 {
	return ratio(s.TotalBases, s.AtBats)
}

// OPS is on-base plus slugging
func (s StatProfile) OPS() float64 {
	return s.OnBasePercentage() + s.SluggingPercentage()
}

// IsolatedPower is slugging minus batting average (extra bases per at-bat)
func (s StatProfile) IsolatedPower() float64 {
	return s.SluggingPercentage() - s.BattingAvg()
}

// ratio divides two counters, returning 0.0 rather than failing on a zero denominator.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0.0
	}
	return float64(num) / float64(den)
}
