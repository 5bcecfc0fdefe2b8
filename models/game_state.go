package models

import (
	"fmt"
)

// Half identifies which team is batting
type Half int

const (
	Top    Half = iota // away team bats
	Bottom             // home team bats
)

func (h Half) String() string {
	if h == Bottom {
		return "bottom"
	}
	return "top"
}

func (h Half) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Rules configures regulation length and baserunning
type Rules struct {
	// Innings is the regulation length; tied games continue with full extra innings.
	Innings int `json:"innings"`

	// RunnerAggression is the probability a runner on second scores on a single.
	// 1.0 always scores, 0.0 always holds at third.
	RunnerAggression float64 `json:"runner_aggression"`
}

// DefaultRules returns nine innings with runners always scoring from second on a single
func DefaultRules() Rules {
	return Rules{
		Innings:          9,
		RunnerAggression: 1.0,
	}
}

func (r Rules) Validate() error {
	if r.Innings < 1 {
		return fmt.Errorf("%w: %d regulation innings", ErrInvalidRules, r.Innings)
	}
	if r.RunnerAggression < 0 || r.RunnerAggression > 1 {
		return fmt.Errorf("%w: runner aggression %.3f outside [0,1]", ErrInvalidRules, r.RunnerAggression)
	}
	return nil
}

// GameState represents the current state of a simulated game
type GameState struct {
	Inning     int           `json:"inning"`
	Half       Half          `json:"inning_half"`
	Outs       int           `json:"outs"`
	HomeScore  int           `json:"home_score"`
	AwayScore  int           `json:"away_score"`
	Bases      BaseState     `json:"bases"`
	HomeBatter int           `json:"home_batter"` // cyclic index into the home lineup
	AwayBatter int           `json:"away_batter"` // cyclic index into the away lineup
	LineScore  []InningScore `json:"line_score"`
	IsComplete bool          `json:"is_complete"`
	WalkOff    bool          `json:"walk_off"`

	rules      Rules
	homeLength int
	awayLength int
}

// InningScore holds the runs each team scored in one inning
type InningScore struct {
	Inning     int  `json:"inning"`
	Away       int  `json:"away"`
	Home       int  `json:"home"`
	HomeBatted bool `json:"home_batted"`
}

// BaseState represents which bases are occupied
type BaseState struct {
	First  *BaseRunner `json:"first,omitempty"`
	Second *BaseRunner `json:"second,omitempty"`
	Third  *BaseRunner `json:"third,omitempty"`
}

// BaseRunner represents a player on base
type BaseRunner struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// NewGameState creates the state for a game between lineups of the given lengths.
func NewGameState(rules Rules, homeLineup, awayLineup int) *GameState {
	return &GameState{
		Inning:     1,
		Half:       Top,
		LineScore:  []InningScore{{Inning: 1}},
		rules:      rules,
		homeLength: homeLineup,
		awayLength: awayLineup,
	}
}

// Rules returns the rules this game is played under
func (gs *GameState) Rules() Rules {
	return gs.rules
}

// IsGameOver checks if the game has ended
func (gs *GameState) IsGameOver() bool {
	return gs.IsComplete
}

// IsFinalInning reports whether the current inning is the last regulation inning or later
func (gs *GameState) IsFinalInning() bool {
	return gs.Inning >= gs.rules.Innings
}

// BattingHome reports whether the home team is at bat
func (gs *GameState) BattingHome() bool {
	return gs.Half == Bottom
}

// BatterIndex returns the lineup position of the team at bat
func (gs *GameState) BatterIndex() int {
	if gs.BattingHome() {
		return gs.HomeBatter
	}
	return gs.AwayBatter
}

// Apply resolves one plate appearance for the batting team and returns the runs
// it produced. The batting order advances, the half-inning ends at three outs,
// and the game is marked complete as soon as a winner is decided.
func (gs *GameState) Apply(outcome Outcome, batter BaseRunner, rng RandomSource) int {
	if gs.IsComplete {
		return 0
	}

	var runs int
	switch outcome {
	case Walk:
		runs = gs.processWalk(batter)
	case Single:
		runs = gs.processSingle(batter, rng)
	case Double:
		runs = gs.processDouble(batter)
	case Triple:
		runs = gs.processTriple(batter)
	case HomeRun:
		runs = gs.processHomeRun()
	default:
		gs.Outs++
	}

	gs.AddRuns(runs)
	gs.advanceBatter()

	// Walk-off: the home team took the lead in its last turn at bat
	if gs.BattingHome() && gs.IsFinalInning() && gs.HomeScore > gs.AwayScore {
		gs.IsComplete = true
		gs.WalkOff = true
		return runs
	}

	if gs.IsInningOver() {
		gs.AdvanceInning()
	}
	return runs
}

// IsInningOver checks if the current half-inning is over
func (gs *GameState) IsInningOver() bool {
	return gs.Outs >= 3
}

// AdvanceInning moves to the next half-inning or inning, ending the game when
// the completed half decides it.
func (gs *GameState) AdvanceInning() {
	gs.Outs = 0
	gs.Bases.ClearBases()

	if gs.Half == Top {
		// Home team does not bat when already leading in the final inning
		if gs.IsFinalInning() && gs.HomeScore > gs.AwayScore {
			gs.IsComplete = true
			return
		}
		gs.Half = Bottom
		gs.LineScore[len(gs.LineScore)-1].HomeBatted = true
		return
	}

	if gs.IsFinalInning() && gs.HomeScore != gs.AwayScore {
		gs.IsComplete = true
		return
	}
	gs.Half = Top
	gs.Inning++
	gs.LineScore = append(gs.LineScore, InningScore{Inning: gs.Inning})
}

// AddRuns adds runs to the batting team's score and the line score
func (gs *GameState) AddRuns(runs int) {
	if runs == 0 {
		return
	}
	current := &gs.LineScore[len(gs.LineScore)-1]
	if gs.Half == Top {
		gs.AwayScore += runs
		current.Away += runs
	} else {
		gs.HomeScore += runs
		current.Home += runs
	}
}

func (gs *GameState) advanceBatter() {
	if gs.BattingHome() {
		gs.HomeBatter = (gs.HomeBatter + 1) % gs.homeLength
	} else {
		gs.AwayBatter = (gs.AwayBatter + 1) % gs.awayLength
	}
}

// processWalk forces the batter to first; runners move only when forced
func (gs *GameState) processWalk(batter BaseRunner) int {
	runs := 0
	b := &gs.Bases
	if b.First != nil {
		if b.Second != nil {
			if b.Third != nil {
				runs++ // Force runner home from third
			}
			b.Third = b.Second
		}
		b.Second = b.First
	}
	b.First = &batter
	return runs
}

// processSingle handles a single hit
func (gs *GameState) processSingle(batter BaseRunner, rng RandomSource) int {
	runs := 0
	b := &gs.Bases

	// Third base scores
	if b.Third != nil {
		runs++
		b.Third = nil
	}

	// Second base scores depending on aggression
	if b.Second != nil {
		if gs.scoresFromSecond(rng) {
			runs++
		} else {
			b.Third = b.Second
		}
		b.Second = nil
	}

	// First base to second
	if b.First != nil {
		b.Second = b.First
		b.First = nil
	}

	b.First = &batter
	return runs
}

// scoresFromSecond draws from rng only when the aggression is strictly between 0 and 1.
func (gs *GameState) scoresFromSecond(rng RandomSource) bool {
	switch aggression := gs.rules.RunnerAggression; {
	case aggression >= 1:
		return true
	case aggression <= 0:
		return false
	default:
		return rng.Float64() < aggression
	}
}

// processDouble handles a double hit
func (gs *GameState) processDouble(batter BaseRunner) int {
	runs := 0
	b := &gs.Bases

	// Third and second base score
	if b.Third != nil {
		runs++
		b.Third = nil
	}
	if b.Second != nil {
		runs++
		b.Second = nil
	}

	// First base to third
	if b.First != nil {
		b.Third = b.First
		b.First = nil
	}

	b.Second = &batter
	return runs
}

// processTriple handles a triple hit
func (gs *GameState) processTriple(batter BaseRunner) int {
	runs := gs.Bases.GetBaseCount()
	gs.Bases.ClearBases()
	gs.Bases.Third = &batter
	return runs
}

// processHomeRun scores the batter and every runner
func (gs *GameState) processHomeRun() int {
	runs := gs.Bases.GetBaseCount() + 1
	gs.Bases.ClearBases()
	return runs
}

// GetBaseRunners returns a slice of all base runners
func (bs *BaseState) GetBaseRunners() []*BaseRunner {
	var runners []*BaseRunner
	if bs.First != nil {
		runners = append(runners, bs.First)
	}
	if bs.Second != nil {
		runners = append(runners, bs.Second)
	}
	if bs.Third != nil {
		runners = append(runners, bs.Third)
	}
	return runners
}

// IsEmpty checks if all bases are empty
func (bs *BaseState) IsEmpty() bool {
	return bs.First == nil && bs.Second == nil && bs.Third == nil
}

// GetBaseCount returns the number of runners on base
func (bs *BaseState) GetBaseCount() int {
	return len(bs.GetBaseRunners())
}

// ClearBases removes all base runners
func (bs *BaseState) ClearBases() {
	bs.First = nil
	bs.Second = nil
	bs.Third = nil
}
