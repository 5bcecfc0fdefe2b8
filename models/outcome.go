package models

import (
	"fmt"
	"math"
)

// Outcome is the resolved result of a plate appearance
type Outcome int

const (
	Out Outcome = iota
	Walk
	Single
	Double
	Triple
	HomeRun

	numOutcomes = int(HomeRun) + 1
)

// DistributionTolerance bounds how far a distribution's sum may drift from 1.0.
const DistributionTolerance = 1e-9

var outcomeNames = [numOutcomes]string{"out", "walk", "single", "double", "triple", "home_run"}

// Outcomes lists every outcome in distribution order
func Outcomes() []Outcome {
	return []Outcome{Out, Walk, Single, Double, Triple, HomeRun}
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= numOutcomes {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// MarshalText encodes the outcome by name for JSON and YAML payloads
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// IsHit reports whether the outcome counts as a hit
func (o Outcome) IsHit() bool {
	return o >= Single
}

// Bases returns the bases awarded to the batter (0 for outs, 1 for walks)
func (o Outcome) Bases() int {
	switch o {
	case Walk, Single:
		return 1
	case Double:
		return 2
	case Triple:
		return 3
	case HomeRun:
		return 4
	default:
		return 0
	}
}

// Distribution holds one probability per outcome, indexed by Outcome.
type Distribution [numOutcomes]float64

// Prob returns the probability of a single outcome
func (d Distribution) Prob(o Outcome) float64 {
	return d[o]
}

func (d Distribution) Sum() float64 {
	total := 0.0
	for _, p := range d {
		total += p
	}
	return total
}

// Pick maps a uniform value in [0,1) onto the cumulative distribution.
func (d Distribution) Pick(u float64) Outcome {
	cumulative := 0.0
	last := Out
	for i, p := range d {
		if p <= 0 {
			continue
		}
		last = Outcome(i)
		cumulative += p
		if u < cumulative {
			return last
		}
	}
	// u landed in the rounding gap above the final cumulative value
	return last
}

func (d Distribution) mustBeNormalized() {
	if sum := d.Sum(); math.Abs(sum-1.0) > DistributionTolerance {
		panic(fmt.Sprintf("outcome distribution sums to %.12f", sum))
	}
}

// RandomSource supplies uniform values in [0,1). Every simulation receives its
// own source; nothing in this package touches process-wide randomness.
type RandomSource interface {
	Float64() float64
}

// OutcomeModel converts a batter's career counters into outcome probabilities.
type OutcomeModel struct {
	park   ParkFactors
	league Distribution
}

// OutcomeOption configures an OutcomeModel
type OutcomeOption func(*OutcomeModel)

// WithParkFactors scales hit and walk weights by the given park factors.
func WithParkFactors(pf ParkFactors) OutcomeOption {
	return func(m *OutcomeModel) {
		m.park = pf
	}
}

// WithLeagueProfile replaces the fallback used for batters without plate appearances.
func WithLeagueProfile(profile StatProfile) OutcomeOption {
	return func(m *OutcomeModel) {
		if !profile.IsDegenerate() && profile.Validate() == nil {
			m.league = rawDistribution(profile)
		}
	}
}

// NewOutcomeModel creates a model with neutral park factors and the league-average fallback
func NewOutcomeModel(opts ...OutcomeOption) *OutcomeModel {
	m := &OutcomeModel{
		park:   DefaultParkFactors(),
		league: rawDistribution(LeagueAverageProfile),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Distribution returns the outcome probabilities for a batter. Profiles with no
// at-bats and no walks fall back to the league-average distribution.
func (m *OutcomeModel) Distribution(profile StatProfile) Distribution {
	d := m.league
	if !profile.IsDegenerate() {
		d = rawDistribution(profile)
	}
	if !m.park.IsNeutral() {
		d = m.park.apply(d)
	}
	d.mustBeNormalized()
	return d
}

// Sample draws one outcome for the batter using a single uniform value from rng.
func (m *OutcomeModel) Sample(profile StatProfile, rng RandomSource) Outcome {
	return m.Distribution(profile).Pick(rng.Float64())
}

// rawDistribution derives per-outcome rates straight from the counters. Every
// plate appearance is a walk, one of the four hit types, or an out.
func rawDistribution(s StatProfile) Distribution {
	pa := float64(s.PlateAppearances())
	var d Distribution
	d[Out] = float64(s.AtBats-s.Hits) / pa
	d[Walk] = float64(s.Walks) / pa
	d[Single] = float64(s.Singles()) / pa
	d[Double] = float64(s.Doubles) / pa
	d[Triple] = float64(s.Triples) / pa
	d[HomeRun] = float64(s.HomeRuns) / pa
	return d
}
