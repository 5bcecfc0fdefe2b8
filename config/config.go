package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/baseball-sim/sim-engine/models"
)

// Roster sources
const (
	SourceMemory   = "memory"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	Port           string `env:"PORT"            envDefault:"8081"`
	DBHost         string `env:"DB_HOST"         envDefault:"localhost"`
	DBPort         string `env:"DB_PORT"         envDefault:"5432"`
	DBUser         string `env:"DB_USER"         envDefault:"baseball_user"`
	DBPassword     string `env:"DB_PASSWORD"     envDefault:"baseball_pass"`
	DBName         string `env:"DB_NAME"         envDefault:"baseball_sim"`
	Workers        int    `env:"WORKERS"`
	SimulationRuns int    `env:"SIMULATION_RUNS" envDefault:"1000"`

	// RosterSource is one of memory, file or postgres. With postgres a league
	// file, if set, is imported into the database at startup.
	RosterSource string `env:"ROSTER_SOURCE" envDefault:"file"`
	LeagueFile   string `env:"LEAGUE_FILE"   envDefault:"league.yaml"`
	RedisURL     string `env:"REDIS_URL"`

	RegulationInnings int     `env:"REGULATION_INNINGS" envDefault:"9"`
	RunnerAggression  float64 `env:"RUNNER_AGGRESSION"  envDefault:"1.0"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY"`
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.SimulationRuns <= 0 {
		cfg.SimulationRuns = 1000
	}

	cfg.RosterSource = strings.ToLower(cfg.RosterSource)
	switch cfg.RosterSource {
	case SourceMemory, SourceFile, SourcePostgres:
	default:
		return nil, fmt.Errorf("unknown ROSTER_SOURCE %q", cfg.RosterSource)
	}
	cfg.LeagueFile = strings.TrimSpace(cfg.LeagueFile)
	if cfg.RosterSource == SourceFile && cfg.LeagueFile == "" {
		return nil, fmt.Errorf("ROSTER_SOURCE=file requires LEAGUE_FILE")
	}

	if err := cfg.Rules().Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseURL builds the postgres connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) Rules() models.Rules {
	return models.Rules{
		Innings:          c.RegulationInnings,
		RunnerAggression: c.RunnerAggression,
	}
}
