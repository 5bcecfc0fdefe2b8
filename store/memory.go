// Package store provides roster repositories and result sinks for the
// simulation engine: in-memory, YAML league files, Postgres and Redis.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/baseball-sim/sim-engine/models"
)

// MemoryRepository holds teams in a map keyed by mascot
type MemoryRepository struct {
	mu    sync.RWMutex
	teams map[string]*models.Team
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{teams: make(map[string]*models.Team)}
}

// Register adds a team. Mascots are unique and case-sensitive.
func (r *MemoryRepository) Register(team *models.Team) error {
	if team == nil || len(team.Lineup) == 0 {
		return models.ErrEmptyRoster
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.teams[team.Mascot]; exists {
		return fmt.Errorf("mascot %q: %w", team.Mascot, models.ErrDuplicateTeam)
	}
	r.teams[team.Mascot] = team
	return nil
}

// FindByMascot returns the team registered under mascot
func (r *MemoryRepository) FindByMascot(_ context.Context, mascot string) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.teams[mascot]
	if !ok {
		return nil, fmt.Errorf("mascot %q: %w", mascot, models.ErrTeamNotFound)
	}
	return team, nil
}

// Mascots lists every registered team in sorted order
func (r *MemoryRepository) Mascots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.teams)
	slices.Sort(names)
	return names
}

// SaveTeam registers the team or replaces the existing one under its mascot
func (r *MemoryRepository) SaveTeam(_ context.Context, team *models.Team) error {
	if team == nil || len(team.Lineup) == 0 {
		return models.ErrEmptyRoster
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[team.Mascot] = team
	return nil
}
