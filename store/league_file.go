package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/baseball-sim/sim-engine/models"
	"github.com/baseball-sim/sim-engine/simulation"
)

// LeagueFile is the on-disk YAML layout of a league. Players are declared
// once and referenced by ID from any number of lineups.
type LeagueFile struct {
	Players  []PlayerEntry       `yaml:"players"`
	Teams    []TeamEntry         `yaml:"teams"`
	Schedule simulation.Schedule `yaml:"schedule,omitempty"`
	Park     *ParkEntry          `yaml:"park,omitempty"`
}

// ParkEntry is the home park's factors plus its elevation in feet
type ParkEntry struct {
	models.ParkFactors `yaml:",inline"`
	Altitude           int `yaml:"altitude,omitempty"`
}

type PlayerEntry struct {
	ID      string             `yaml:"id"`
	Name    string             `yaml:"name"`
	Uniform int                `yaml:"uniform"`
	Stats   models.StatProfile `yaml:"stats"`
}

type TeamEntry struct {
	Mascot string   `yaml:"mascot"`
	City   string   `yaml:"city"`
	Lineup []string `yaml:"lineup"` // player IDs in batting order
}

// League is a loaded league file
type League struct {
	Repository *MemoryRepository
	Players    map[string]*models.Player
	Schedule   simulation.Schedule
	Park       *models.ParkFactors
}

// LoadLeague reads and builds a league from a YAML file
func LoadLeague(path string) (*League, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read league file: %w", err)
	}
	return ParseLeague(data)
}

// ParseLeague builds a league from YAML bytes. Teams that share a player ID
// share the same *models.Player.
func ParseLeague(data []byte) (*League, error) {
	var lf LeagueFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse league file: %w", err)
	}

	players := make(map[string]*models.Player, len(lf.Players))
	for _, entry := range lf.Players {
		if entry.ID == "" {
			return nil, fmt.Errorf("player %q: missing id", entry.Name)
		}
		if _, dup := players[entry.ID]; dup {
			return nil, fmt.Errorf("player id %q declared twice", entry.ID)
		}
		p, err := models.NewPlayer(entry.ID, entry.Name, entry.Uniform, entry.Stats)
		if err != nil {
			return nil, err
		}
		players[entry.ID] = p
	}

	repo := NewMemoryRepository()
	for _, entry := range lf.Teams {
		lineup := make([]*models.Player, 0, len(entry.Lineup))
		for _, id := range entry.Lineup {
			p, ok := players[id]
			if !ok {
				return nil, fmt.Errorf("team %q: %w: unknown player %q", entry.Mascot, models.ErrInvalidLineup, id)
			}
			lineup = append(lineup, p)
		}

		team, err := models.NewTeam(entry.Mascot, entry.City, lineup)
		if err != nil {
			return nil, err
		}
		if err := repo.Register(team); err != nil {
			return nil, err
		}
	}

	if err := lf.Schedule.Validate(); err != nil {
		return nil, err
	}

	var park *models.ParkFactors
	if lf.Park != nil {
		if lf.Park.Altitude < 0 {
			return nil, fmt.Errorf("park altitude %d is below sea level", lf.Park.Altitude)
		}
		pf := lf.Park.WithAltitude(lf.Park.Altitude)
		park = &pf
	}

	return &League{
		Repository: repo,
		Players:    players,
		Schedule:   lf.Schedule,
		Park:       park,
	}, nil
}
