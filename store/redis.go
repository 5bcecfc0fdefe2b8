package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baseball-sim/sim-engine/models"
)

// TTL constants
const (
	BoxscoreTTL  = 6 * time.Hour
	StandingsTTL = 24 * time.Hour
)

// RedisPublisher caches boxscores and standings in Redis and publishes each
// game to a per-season stream
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisClient parses a redis:// URL and pings the server
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// BoxscoreKey identifies one game of a season by its seed
func BoxscoreKey(seasonID string, seed int64) string {
	return fmt.Sprintf("season:%s:game:%d:boxscore", seasonID, seed)
}

// ResultsStream is the stream every game of a season is published to
func ResultsStream(seasonID string) string {
	return fmt.Sprintf("season.results.%s", seasonID)
}

// StandingsKey is the hash holding one field per team
func StandingsKey(seasonID string) string {
	return fmt.Sprintf("season:%s:standings", seasonID)
}

// gameMessage builds the stream entry for a game
func gameMessage(box *models.Boxscore, data []byte) map[string]interface{} {
	return map[string]interface{}{
		"data":       string(data),
		"home":       box.Home,
		"away":       box.Away,
		"winner":     box.Winner,
		"home_score": strconv.Itoa(box.HomeScore),
		"away_score": strconv.Itoa(box.AwayScore),
		"walk_off":   strconv.FormatBool(box.WalkOff),
	}
}

// RecordGame caches the boxscore and appends it to the season stream
func (p *RedisPublisher) RecordGame(ctx context.Context, seasonID string, box *models.Boxscore) error {
	data, err := json.Marshal(box)
	if err != nil {
		return fmt.Errorf("marshaling boxscore: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, BoxscoreKey(seasonID, box.Seed), data, BoxscoreTTL)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: ResultsStream(seasonID),
		Values: gameMessage(box, data),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing game result: %w", err)
	}
	return nil
}

// SaveStandings writes every team's record into the season standings hash
func (p *RedisPublisher) SaveStandings(ctx context.Context, seasonID string, standings map[string]models.WonLossRecord) error {
	if len(standings) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(standings))
	for mascot, rec := range standings {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record for %q: %w", mascot, err)
		}
		fields[mascot] = string(data)
	}

	key := StandingsKey(seasonID)
	pipe := p.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, StandingsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing standings: %w", err)
	}
	return nil
}

// ReadStandings loads the season standings hash. A season with no stored
// standings yields an empty map.
func (p *RedisPublisher) ReadStandings(ctx context.Context, seasonID string) (map[string]models.WonLossRecord, error) {
	raw, err := p.client.HGetAll(ctx, StandingsKey(seasonID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading standings: %w", err)
	}

	standings := make(map[string]models.WonLossRecord, len(raw))
	for mascot, data := range raw {
		var rec models.WonLossRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling record for %q: %w", mascot, err)
		}
		standings[mascot] = rec
	}
	return standings, nil
}
