package models

import (
	"fmt"

	"github.com/samber/lo"
)

// Team represents a group of players who bat together. The lineup order is the
// batting order and is preserved for the whole game. A Team carries no mutable
// state, so one value can be shared by any number of concurrent simulations.
type Team struct {
	Mascot string    `json:"mascot"`
	City   string    `json:"city,omitempty"`
	Lineup []*Player `json:"lineup"`
}

// NewTeam builds a team from its batting order
func NewTeam(mascot, city string, lineup []*Player) (*Team, error) {
	if mascot == "" {
		return nil, fmt.Errorf("%w: empty mascot name", ErrInvalidLineup)
	}
	if len(lineup) == 0 {
		return nil, fmt.Errorf("team %q: %w", mascot, ErrEmptyRoster)
	}
	for i, p := range lineup {
		if p == nil {
			return nil, fmt.Errorf("team %q: %w: nil batter in slot %d", mascot, ErrInvalidLineup, i+1)
		}
	}

	order := make([]*Player, len(lineup))
	copy(order, lineup)

	return &Team{
		Mascot: mascot,
		City:   city,
		Lineup: order,
	}, nil
}

// BatterAt returns the batter at a cyclic lineup position
func (t *Team) BatterAt(index int) *Player {
	return t.Lineup[index%len(t.Lineup)]
}

// TeamBattingAverage is total hits over total at-bats across the lineup. Each
// player's full career counts toward every team the player belongs to.
func (t *Team) TeamBattingAverage() float64 {
	return ratio(t.sum(func(s StatProfile) int { return s.Hits }),
		t.sum(func(s StatProfile) int { return s.AtBats }))
}

func (t *Team) TeamOnBasePercentage() float64 {
	return ratio(t.sum(func(s StatProfile) int { return s.Hits + s.Walks }),
		t.sum(func(s StatProfile) int { return s.AtBats + s.Walks }))
}

func (t *Team) TeamSluggingPercentage() float64 {
	return ratio(t.sum(func(s StatProfile) int { return s.TotalBases }),
		t.sum(func(s StatProfile) int { return s.AtBats }))
}

func (t *Team) sum(field func(StatProfile) int) int {
	return lo.SumBy(t.Lineup, func(p *Player) int { return field(p.Stats) })
}
