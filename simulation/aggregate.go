package simulation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/baseball-sim/sim-engine/models"
)

// calculateAggregatedResults processes all simulation results into aggregated statistics
func calculateAggregatedResults(runID, home, away string, results []*models.Boxscore, regulation int) *models.AggregatedResult {
	aggregated := &models.AggregatedResult{
		RunID:                 runID,
		Home:                  home,
		Away:                  away,
		TotalSimulations:      len(results),
		HomeScoreDistribution: make(map[int]int),
		AwayScoreDistribution: make(map[int]int),
		Statistics:            make(map[string]float64),
		CreatedAt:             time.Now(),
	}
	if len(results) == 0 {
		return aggregated
	}

	homeScores := make([]float64, len(results))
	awayScores := make([]float64, len(results))
	totals := make([]float64, len(results))
	differentials := make([]float64, len(results))
	innings := make([]float64, len(results))

	for i, result := range results {
		if result.HomeWon() {
			aggregated.HomeWins++
		} else {
			aggregated.AwayWins++
		}

		aggregated.HomeScoreDistribution[result.HomeScore]++
		aggregated.AwayScoreDistribution[result.AwayScore]++

		homeScores[i] = float64(result.HomeScore)
		awayScores[i] = float64(result.AwayScore)
		totals[i] = float64(result.HomeScore + result.AwayScore)
		differentials[i] = float64(result.HomeScore - result.AwayScore)
		innings[i] = float64(result.Innings)
	}

	totalSims := float64(aggregated.TotalSimulations)
	aggregated.HomeWinProbability = float64(aggregated.HomeWins) / totalSims
	aggregated.AwayWinProbability = float64(aggregated.AwayWins) / totalSims

	aggregated.ExpectedHomeScore = stat.Mean(homeScores, nil)
	aggregated.ExpectedAwayScore = stat.Mean(awayScores, nil)
	aggregated.AverageInnings = stat.Mean(innings, nil)

	aggregated.Statistics["total_runs_average"] = stat.Mean(totals, nil)
	aggregated.Statistics["score_variance"] = stat.PopVariance(totals, nil)
	aggregated.Statistics["run_differential_stddev"] = stat.PopStdDev(differentials, nil)
	aggregated.Statistics["blowout_percentage"] = percentage(results, func(b *models.Boxscore) bool { return b.Margin() >= 7 })
	aggregated.Statistics["one_run_game_percentage"] = percentage(results, func(b *models.Boxscore) bool { return b.Margin() == 1 })
	aggregated.Statistics["shutout_percentage"] = percentage(results, func(b *models.Boxscore) bool { return b.HomeScore == 0 || b.AwayScore == 0 })
	aggregated.Statistics["high_scoring_percentage"] = percentage(results, func(b *models.Boxscore) bool { return b.HomeScore+b.AwayScore >= 12 })
	aggregated.Statistics["extra_innings_percentage"] = percentage(results, func(b *models.Boxscore) bool { return b.WentExtra(regulation) })
	aggregated.Statistics["walk_off_percentage"] = percentage(results, func(b *models.Boxscore) bool { return b.WalkOff })
	aggregated.Statistics["over_8_5"] = overUnderProbability(results, 8.5)
	aggregated.Statistics["over_9_5"] = overUnderProbability(results, 9.5)
	aggregated.Statistics["over_10_5"] = overUnderProbability(results, 10.5)
	aggregated.Statistics["home_win_ci95"] = winProbabilityMargin(aggregated.HomeWinProbability, len(results), 95)

	return aggregated
}

// overUnderProbability returns the share of games whose combined score exceeds line
func overUnderProbability(results []*models.Boxscore, line float64) float64 {
	return percentage(results, func(b *models.Boxscore) bool { return float64(b.HomeScore+b.AwayScore) > line }) / 100.0
}

// winProbabilityMargin returns the half-width of the two-tailed confidence
// interval around p for n games, using the normal approximation.
func winProbabilityMargin(p float64, n int, confidence float64) float64 {
	if n == 0 {
		return 0.0
	}
	z := distuv.UnitNormal.Quantile((1 + confidence/100) / 2)
	return z * math.Sqrt(p*(1-p)/float64(n))
}

// percentage returns the share of results matching pred, scaled to 0-100
func percentage(results []*models.Boxscore, pred func(*models.Boxscore) bool) float64 {
	if len(results) == 0 {
		return 0.0
	}
	n := 0
	for _, r := range results {
		if pred(r) {
			n++
		}
	}
	return float64(n) / float64(len(results)) * 100.0
}
