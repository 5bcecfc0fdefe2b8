package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/baseball-sim/sim-engine/models"
)

// DBTX is the subset of pgxpool.Pool used by PostgresRepository
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema creates the tables used by PostgresRepository
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		uniform INTEGER NOT NULL DEFAULT 0,
		at_bats INTEGER NOT NULL DEFAULT 0,
		hits INTEGER NOT NULL DEFAULT 0,
		walks INTEGER NOT NULL DEFAULT 0,
		doubles INTEGER NOT NULL DEFAULT 0,
		triples INTEGER NOT NULL DEFAULT 0,
		home_runs INTEGER NOT NULL DEFAULT 0,
		total_bases INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		mascot TEXT PRIMARY KEY,
		city TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS lineup_slots (
		mascot TEXT NOT NULL REFERENCES teams(mascot) ON DELETE CASCADE,
		slot INTEGER NOT NULL,
		player_id TEXT NOT NULL REFERENCES players(id),
		PRIMARY KEY (mascot, slot)
	)`,
	`CREATE TABLE IF NOT EXISTS game_results (
		id UUID PRIMARY KEY,
		season_id TEXT NOT NULL,
		home TEXT NOT NULL,
		away TEXT NOT NULL,
		home_score INTEGER NOT NULL,
		away_score INTEGER NOT NULL,
		innings INTEGER NOT NULL,
		walk_off BOOLEAN NOT NULL,
		seed BIGINT NOT NULL,
		boxscore JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS season_standings (
		season_id TEXT NOT NULL,
		mascot TEXT NOT NULL,
		wins INTEGER NOT NULL,
		losses INTEGER NOT NULL,
		runs_scored INTEGER NOT NULL,
		runs_allowed INTEGER NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (season_id, mascot)
	)`,
}

const (
	teamQuery = `SELECT mascot, city FROM teams WHERE mascot = $1`

	lineupQuery = `
		SELECT p.id, p.name, p.uniform, p.at_bats, p.hits, p.walks,
		       p.doubles, p.triples, p.home_runs, p.total_bases
		FROM lineup_slots ls
		JOIN players p ON p.id = ls.player_id
		WHERE ls.mascot = $1
		ORDER BY ls.slot`

	upsertPlayerQuery = `
		INSERT INTO players (id, name, uniform, at_bats, hits, walks, doubles, triples, home_runs, total_bases)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			uniform = EXCLUDED.uniform,
			at_bats = EXCLUDED.at_bats,
			hits = EXCLUDED.hits,
			walks = EXCLUDED.walks,
			doubles = EXCLUDED.doubles,
			triples = EXCLUDED.triples,
			home_runs = EXCLUDED.home_runs,
			total_bases = EXCLUDED.total_bases,
			updated_at = NOW()`

	upsertTeamQuery = `
		INSERT INTO teams (mascot, city) VALUES ($1, $2)
		ON CONFLICT (mascot) DO UPDATE SET city = EXCLUDED.city`

	clearLineupQuery = `DELETE FROM lineup_slots WHERE mascot = $1`

	insertSlotQuery = `INSERT INTO lineup_slots (mascot, slot, player_id) VALUES ($1, $2, $3)`

	insertGameQuery = `
		INSERT INTO game_results (
			id, season_id, home, away, home_score, away_score,
			innings, walk_off, seed, boxscore
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	upsertStandingQuery = `
		INSERT INTO season_standings (season_id, mascot, wins, losses, runs_scored, runs_allowed)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (season_id, mascot) DO UPDATE SET
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			runs_scored = EXCLUDED.runs_scored,
			runs_allowed = EXCLUDED.runs_allowed,
			updated_at = NOW()`

	standingsQuery = `
		SELECT mascot, wins, losses, runs_scored, runs_allowed
		FROM season_standings
		WHERE season_id = $1`
)

// PostgresRepository loads rosters from Postgres and stores season results.
// Player snapshots are cached by ID so every team referencing a player shares
// one *models.Player until the stored counters change.
type PostgresRepository struct {
	db DBTX

	mu      sync.Mutex
	players map[string]*models.Player
}

func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		players: make(map[string]*models.Player),
	}
}

// NewPool opens and pings a connection pool sized for the worker count
func NewPool(ctx context.Context, dbURL string, workers int) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}

	dbConfig.MaxConns = int32(max(workers*2, 4))
	dbConfig.MinConns = int32(workers / 2)
	dbConfig.MaxConnLifetime = time.Hour
	dbConfig.MaxConnIdleTime = time.Minute * 30

	db, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates any missing tables
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// FindByMascot loads a team and its batting order
func (r *PostgresRepository) FindByMascot(ctx context.Context, mascot string) (*models.Team, error) {
	var name, city string
	err := r.db.QueryRow(ctx, teamQuery, mascot).Scan(&name, &city)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mascot %q: %w", mascot, models.ErrTeamNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team %q: %w", mascot, err)
	}

	rows, err := r.db.Query(ctx, lineupQuery, mascot)
	if err != nil {
		return nil, fmt.Errorf("failed to query lineup: %w", err)
	}
	defer rows.Close()

	var lineup []*models.Player
	for rows.Next() {
		var entry PlayerEntry
		s := &entry.Stats
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Uniform, &s.AtBats, &s.Hits, &s.Walks,
			&s.Doubles, &s.Triples, &s.HomeRuns, &s.TotalBases); err != nil {
			return nil, fmt.Errorf("failed to scan lineup slot: %w", err)
		}
		p, err := r.snapshot(entry)
		if err != nil {
			return nil, err
		}
		lineup = append(lineup, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lineup: %w", err)
	}

	return models.NewTeam(name, city, lineup)
}

// snapshot returns the cached player when the stored row is unchanged, otherwise
// a new snapshot that replaces it
func (r *PostgresRepository) snapshot(entry PlayerEntry) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.players[entry.ID]; ok &&
		cached.Stats == entry.Stats && cached.Name == entry.Name && cached.Uniform == entry.Uniform {
		return cached, nil
	}
	p, err := models.NewPlayer(entry.ID, entry.Name, entry.Uniform, entry.Stats)
	if err != nil {
		return nil, err
	}
	r.players[entry.ID] = p
	return p, nil
}

// SaveTeam upserts a team, its players and its batting order in one
// transaction. The team row is written first so concurrent saves of the same
// mascot queue on its row lock.
func (r *PostgresRepository) SaveTeam(ctx context.Context, team *models.Team) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %q: %w", team.Mascot, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, upsertTeamQuery, team.Mascot, team.City); err != nil {
		return fmt.Errorf("failed to store team %q: %w", team.Mascot, err)
	}
	for _, p := range team.Lineup {
		s := p.Stats
		if _, err := tx.Exec(ctx, upsertPlayerQuery, p.ID, p.Name, p.Uniform,
			s.AtBats, s.Hits, s.Walks, s.Doubles, s.Triples, s.HomeRuns, s.TotalBases); err != nil {
			return fmt.Errorf("failed to store player %s: %w", p.ID, err)
		}
	}
	if _, err := tx.Exec(ctx, clearLineupQuery, team.Mascot); err != nil {
		return fmt.Errorf("failed to clear lineup for %q: %w", team.Mascot, err)
	}
	for slot, p := range team.Lineup {
		if _, err := tx.Exec(ctx, insertSlotQuery, team.Mascot, slot+1, p.ID); err != nil {
			return fmt.Errorf("failed to store lineup slot %d for %q: %w", slot+1, team.Mascot, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit team %q: %w", team.Mascot, err)
	}
	return nil
}

// RecordGame stores one simulated game
func (r *PostgresRepository) RecordGame(ctx context.Context, seasonID string, box *models.Boxscore) error {
	boxJSON, err := json.Marshal(box)
	if err != nil {
		return fmt.Errorf("failed to marshal boxscore: %w", err)
	}

	_, err = r.db.Exec(ctx, insertGameQuery,
		uuid.NewString(),
		seasonID,
		box.Home,
		box.Away,
		box.HomeScore,
		box.AwayScore,
		box.Innings,
		box.WalkOff,
		box.Seed,
		boxJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store game result: %w", err)
	}
	return nil
}

// SaveStandings upserts every team's record for the season
func (r *PostgresRepository) SaveStandings(ctx context.Context, seasonID string, standings map[string]models.WonLossRecord) error {
	mascots := lo.Keys(standings)
	slices.Sort(mascots)

	for _, mascot := range mascots {
		rec := standings[mascot]
		if _, err := r.db.Exec(ctx, upsertStandingQuery,
			seasonID, mascot, rec.Wins, rec.Losses, rec.RunsScored, rec.RunsAllowed); err != nil {
			return fmt.Errorf("failed to store standings for %q: %w", mascot, err)
		}
	}
	return nil
}

// ReadStandings loads the stored standings of a season; an unknown season
// yields an empty map
func (r *PostgresRepository) ReadStandings(ctx context.Context, seasonID string) (map[string]models.WonLossRecord, error) {
	rows, err := r.db.Query(ctx, standingsQuery, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings: %w", err)
	}
	defer rows.Close()

	standings := make(map[string]models.WonLossRecord)
	for rows.Next() {
		var mascot string
		var rec models.WonLossRecord
		if err := rows.Scan(&mascot, &rec.Wins, &rec.Losses, &rec.RunsScored, &rec.RunsAllowed); err != nil {
			return nil, fmt.Errorf("failed to scan standings row: %w", err)
		}
		standings[mascot] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read standings: %w", err)
	}
	return standings, nil
}
