package models

import "time"

// Boxscore represents the final result of one simulated game
type Boxscore struct {
	Home             string        `json:"home"`
	Away             string        `json:"away"`
	HomeScore        int           `json:"home_score"`
	AwayScore        int           `json:"away_score"`
	Winner           string        `json:"winner"`
	Loser            string        `json:"loser"`
	Innings          int           `json:"innings"`
	WalkOff          bool          `json:"walk_off"`
	Seed             int64         `json:"seed"`
	HomeHits         int           `json:"home_hits"`
	AwayHits         int           `json:"away_hits"`
	PlateAppearances int           `json:"plate_appearances"`
	LineScore        []InningScore `json:"line_score"`
	Plays            []Play        `json:"plays,omitempty"`
}

// Play records one plate appearance
type Play struct {
	Inning   int     `json:"inning"`
	Half     Half    `json:"inning_half"`
	BatterID string  `json:"batter_id"`
	Outcome  Outcome `json:"outcome"`
	Runs     int     `json:"runs,omitempty"`
	Outs     int     `json:"outs"` // outs after the play
}

// Margin returns the winning margin
func (b *Boxscore) Margin() int {
	return abs(b.HomeScore - b.AwayScore)
}

// HomeWon reports whether the home team won
func (b *Boxscore) HomeWon() bool {
	return b.HomeScore > b.AwayScore
}

// WentExtra reports whether the game needed more than the regulation innings
func (b *Boxscore) WentExtra(regulation int) bool {
	return b.Innings > regulation
}

// WonLossRecord tracks a team's results across simulated games
type WonLossRecord struct {
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	RunsScored  int `json:"runs_scored"`
	RunsAllowed int `json:"runs_allowed"`
}

func (r WonLossRecord) Games() int {
	return r.Wins + r.Losses
}

// WinPct returns wins over games played, or 0.0 before any game
func (r WonLossRecord) WinPct() float64 {
	return ratio(r.Wins, r.Games())
}

func (r WonLossRecord) RunDifferential() int {
	return r.RunsScored - r.RunsAllowed
}

// AggregatedResult represents the combined results of many simulations of one matchup
type AggregatedResult struct {
	RunID                 string             `json:"run_id"`
	Home                  string             `json:"home"`
	Away                  string             `json:"away"`
	TotalSimulations      int                `json:"total_simulations"`
	HomeWins              int                `json:"home_wins"`
	AwayWins              int                `json:"away_wins"`
	HomeWinProbability    float64            `json:"home_win_probability"`
	AwayWinProbability    float64            `json:"away_win_probability"`
	ExpectedHomeScore     float64            `json:"expected_home_score"`
	ExpectedAwayScore     float64            `json:"expected_away_score"`
	HomeScoreDistribution map[int]int        `json:"home_score_distribution"`
	AwayScoreDistribution map[int]int        `json:"away_score_distribution"`
	AverageInnings        float64            `json:"average_innings"`
	Statistics            map[string]float64 `json:"statistics"`
	CreatedAt             time.Time          `json:"created_at"`
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
