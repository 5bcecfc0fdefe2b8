package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistributionFromProfile(t *testing.T) {
	// 100 PA: 10 BB, 15 1B, 5 2B, 1 3B, 4 HR, 65 outs
	profile := StatProfile{AtBats: 90, Hits: 25, Walks: 10, Doubles: 5, Triples: 1, HomeRuns: 4, TotalBases: 44}
	d := NewOutcomeModel().Distribution(profile)

	assert.InDelta(t, 0.65, d.Prob(Out), 1e-12)
	assert.InDelta(t, 0.10, d.Prob(Walk), 1e-12)
	assert.InDelta(t, 0.15, d.Prob(Single), 1e-12)
	assert.InDelta(t, 0.05, d.Prob(Double), 1e-12)
	assert.InDelta(t, 0.01, d.Prob(Triple), 1e-12)
	assert.InDelta(t, 0.04, d.Prob(HomeRun), 1e-12)
	assert.InDelta(t, 1.0, d.Sum(), DistributionTolerance)
}

func TestDistributionSumsToOne(t *testing.T) {
	profiles := []StatProfile{
		{},
		{Walks: 1},
		{AtBats: 1},
		{AtBats: 3, Hits: 1, Walks: 1, TotalBases: 1},
		{AtBats: 8399, Hits: 2873, Walks: 2062, Doubles: 506, Triples: 136, HomeRuns: 714, TotalBases: 5793},
		{AtBats: 7, Hits: 7, Triples: 7, TotalBases: 21},
	}
	outcomeModels := []*OutcomeModel{
		NewOutcomeModel(),
		NewOutcomeModel(WithParkFactors(ParkFactors{HitsFactor: 103, HRFactor: 115, WalkFactor: 97})),
	}

	for _, m := range outcomeModels {
		for _, p := range profiles {
			d := m.Distribution(p)
			assert.InDelta(t, 1.0, d.Sum(), DistributionTolerance, "profile %+v", p)
			for _, prob := range d {
				assert.GreaterOrEqual(t, prob, 0.0)
			}
		}
	}
}

func TestDegenerateProfileUsesLeagueAverage(t *testing.T) {
	m := NewOutcomeModel()
	league := m.Distribution(LeagueAverageProfile)

	assert.Equal(t, league, m.Distribution(StatProfile{}))
	assert.InDelta(t, 45.0/495.0, league.Prob(Walk), 1e-12)
	assert.InDelta(t, 15.0/495.0, league.Prob(HomeRun), 1e-12)
}

func TestWithLeagueProfile(t *testing.T) {
	custom := StatProfile{AtBats: 10, Hits: 5, TotalBases: 5}
	m := NewOutcomeModel(WithLeagueProfile(custom))
	assert.InDelta(t, 0.5, m.Distribution(StatProfile{}).Prob(Single), 1e-12)

	// Unusable league profiles are ignored
	m = NewOutcomeModel(WithLeagueProfile(StatProfile{}))
	assert.Equal(t, NewOutcomeModel().Distribution(StatProfile{}), m.Distribution(StatProfile{}))
}

func TestPick(t *testing.T) {
	d := Distribution{0.5, 0.1, 0.2, 0.1, 0.0, 0.1}

	tests := []struct {
		u    float64
		want Outcome
	}{
		{0.0, Out},
		{0.4999, Out},
		{0.5, Walk},
		{0.65, Single},
		{0.79, Single},
		{0.85, Double},
		{0.95, HomeRun},
		{0.999999, HomeRun},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Pick(tt.u), "u=%v", tt.u)
	}
}

func TestPickSkipsZeroProbability(t *testing.T) {
	d := Distribution{0, 0, 0, 0, 1, 0}
	assert.Equal(t, Triple, d.Pick(0))
	assert.Equal(t, Triple, d.Pick(math.Nextafter(1, 0)))

	// A rounding gap above the cumulative sum resolves to the last possible outcome
	short := Distribution{0.3, 0, 0.3, 0, 0, 0.3999999999}
	assert.Equal(t, HomeRun, short.Pick(0.99999999999))
}

type sequenceSource struct {
	values []float64
	next   int
}

func (s *sequenceSource) Float64() float64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

func TestSampleDrawsOnce(t *testing.T) {
	m := NewOutcomeModel()
	profile := StatProfile{AtBats: 4, Hits: 1, TotalBases: 1}
	src := &sequenceSource{values: []float64{0.1, 0.9}}

	assert.Equal(t, Out, m.Sample(profile, src))
	assert.Equal(t, Single, m.Sample(profile, src))
	assert.Equal(t, 2, src.next)
}

func TestOutcomeHelpers(t *testing.T) {
	assert.Equal(t, "home_run", HomeRun.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
	assert.False(t, Walk.IsHit())
	assert.True(t, Single.IsHit())
	assert.Equal(t, 4, HomeRun.Bases())
	assert.Equal(t, 0, Out.Bases())

	text, err := Double.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "double", string(text))
}

func TestUnnormalizedDistributionPanics(t *testing.T) {
	assert.Panics(t, func() {
		Distribution{0.5, 0.1}.mustBeNormalized()
	})
	assert.NotPanics(t, func() {
		Distribution{0.5, 0.5}.mustBeNormalized()
	})
}
