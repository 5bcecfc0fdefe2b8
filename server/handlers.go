package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/baseball-sim/sim-engine/models"
	"github.com/baseball-sim/sim-engine/random"
	"github.com/baseball-sim/sim-engine/simulation"
)

// ErrSeasonNotFound is returned for a season neither held in memory nor stored
var ErrSeasonNotFound = errors.New("season not found")

type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type PlayerRequest struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Uniform int                `json:"uniform"`
	Stats   models.StatProfile `json:"stats"`
}

type TeamRequest struct {
	City   string          `json:"city"`
	Lineup []PlayerRequest `json:"lineup"`
}

type PlayerResponse struct {
	*models.Player
	BattingAverage     float64 `json:"batting_average"`
	OnBasePercentage   float64 `json:"on_base_percentage"`
	SluggingPercentage float64 `json:"slugging_percentage"`
}

type TeamResponse struct {
	Mascot             string           `json:"mascot"`
	City               string           `json:"city,omitempty"`
	BattingAverage     float64          `json:"batting_average"`
	OnBasePercentage   float64          `json:"on_base_percentage"`
	SluggingPercentage float64          `json:"slugging_percentage"`
	Lineup             []PlayerResponse `json:"lineup"`
}

type GameRequest struct {
	Home string `json:"home"`
	Away string `json:"away"`
	Seed *int64 `json:"seed,omitempty"`
}

type SimulationRequest struct {
	Home           string `json:"home"`
	Away           string `json:"away"`
	SimulationRuns int    `json:"simulation_runs,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
}

type SimulationResponse struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
}

type SimulationStatus struct {
	simulation.RunStatus
	Progress float64 `json:"progress"`
}

type SeasonRequest struct {
	SeasonID string              `json:"season_id,omitempty"`
	Seed     *int64              `json:"seed,omitempty"`
	Workers  int                 `json:"workers,omitempty"`
	Schedule simulation.Schedule `json:"schedule"`
}

type SeasonResponse struct {
	SeasonID  string                    `json:"season_id"`
	Seed      int64                     `json:"seed"`
	Games     int                       `json:"games"`
	Standings []simulation.TeamStanding `json:"standings"`
}

type RecordResponse struct {
	Team string `json:"team"`
	models.WonLossRecord
	WinPct float64 `json:"win_pct"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.Checks))
	status := http.StatusOK
	for name, check := range s.Checks {
		if err := check(ctx); err != nil {
			checks[name] = "disconnected"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "connected"
	}

	health := map[string]interface{}{
		"status":      "healthy",
		"time":        time.Now().UTC(),
		"workers":     s.config.Workers,
		"active_runs": s.Engine.ActiveRuns(),
		"checks":      checks,
	}
	if status != http.StatusOK {
		health["status"] = "unhealthy"
	}
	writeJSON(w, status, health)
}

func (s *Server) teamHandler(w http.ResponseWriter, r *http.Request) {
	team, err := s.Repository.FindByMascot(r.Context(), mux.Vars(r)["mascot"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTeamResponse(team))
}

func (s *Server) saveTeamHandler(w http.ResponseWriter, r *http.Request) {
	var req TeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	lineup := make([]*models.Player, 0, len(req.Lineup))
	for _, pr := range req.Lineup {
		p, err := models.NewPlayer(pr.ID, pr.Name, pr.Uniform, pr.Stats)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		lineup = append(lineup, p)
	}
	team, err := models.NewTeam(mux.Vars(r)["mascot"], req.City, lineup)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.Repository.SaveTeam(r.Context(), team); err != nil {
		writeServiceError(w, r, err)
		return
	}

	hlogger(r).Info().Str("team", team.Mascot).Int("lineup", len(team.Lineup)).Msg("team saved")
	writeJSON(w, http.StatusOK, newTeamResponse(team))
}

func (s *Server) simulateHandler(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	home, away, err := s.resolveMatchup(r.Context(), req.Home, req.Away)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	seed, err := seedOrRandom(req.Seed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	box, err := s.GameLog.Simulate(r.Context(), home, away, seed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.metrics.AddGames(1)
	writeJSON(w, http.StatusOK, box)
}

func (s *Server) startSimulationHandler(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	home, away, err := s.resolveMatchup(r.Context(), req.Home, req.Away)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	seed, err := seedOrRandom(req.Seed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	runs := req.SimulationRuns
	if runs < 1 {
		runs = s.config.SimulationRuns
	}
	runID, err := s.Engine.StartMatchup(r.Context(), home, away, runs, seed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.metrics.IncrementMatchups()
	s.metrics.AddGames(runs)

	writeJSON(w, http.StatusAccepted, SimulationResponse{
		RunID:     runID,
		Status:    "started",
		Message:   fmt.Sprintf("Simulation started with %d runs", runs),
		Seed:      seed,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Server) simulationStatusHandler(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]
	status, exists := s.Engine.GetRunStatus(runID)
	if !exists {
		writeServiceError(w, r, fmt.Errorf("run %s: %w", runID, simulation.ErrRunNotFound))
		return
	}

	var progress float64
	if status.TotalRuns > 0 {
		progress = float64(status.CompletedRuns) / float64(status.TotalRuns)
	}
	writeJSON(w, http.StatusOK, SimulationStatus{RunStatus: status, Progress: progress})
}

func (s *Server) simulationResultHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.Engine.GetRunResult(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) seasonHandler(w http.ResponseWriter, r *http.Request) {
	var req SeasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	schedule := req.Schedule
	if len(schedule) == 0 {
		schedule = s.Schedule
	}
	if len(schedule) == 0 {
		writeError(w, "No schedule given and no league schedule configured", "invalid_schedule", http.StatusBadRequest)
		return
	}
	seed, err := seedOrRandom(req.Seed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	workers := req.Workers
	if workers < 1 {
		workers = s.config.Workers
	}

	season := simulation.NewSeasonAggregator(s.Simulator, simulation.SeasonConfig{
		Workers:  workers,
		Seed:     seed,
		SeasonID: req.SeasonID,
		Sinks:    s.Sinks,
	})

	s.mu.Lock()
	if _, exists := s.seasons[season.SeasonID()]; exists {
		s.mu.Unlock()
		writeError(w, fmt.Sprintf("Season %s already exists", season.SeasonID()), "duplicate_season", http.StatusConflict)
		return
	}
	s.seasons[season.SeasonID()] = &seasonEntry{season: season, created: time.Now()}
	s.mu.Unlock()

	standings, err := season.RunSchedule(r.Context(), schedule, s.Repository)
	if err != nil {
		s.mu.Lock()
		delete(s.seasons, season.SeasonID())
		s.mu.Unlock()
		writeServiceError(w, r, err)
		return
	}
	s.metrics.IncrementSeasons()
	s.metrics.AddGames(len(schedule))

	writeJSON(w, http.StatusOK, SeasonResponse{
		SeasonID:  season.SeasonID(),
		Seed:      seed,
		Games:     len(schedule),
		Standings: standings.Ranked(),
	})
}

func (s *Server) standingsHandler(w http.ResponseWriter, r *http.Request) {
	standings, err := s.seasonStandings(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standings.Ranked())
}

func (s *Server) recordHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	standings, err := s.seasonStandings(r.Context(), vars["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rec, ok := standings[vars["mascot"]]
	if !ok {
		writeServiceError(w, r, fmt.Errorf("team %q: %w", vars["mascot"], models.ErrTeamNotFound))
		return
	}
	writeJSON(w, http.StatusOK, RecordResponse{Team: vars["mascot"], WonLossRecord: rec, WinPct: rec.WinPct()})
}

// seasonStandings looks a season up in memory first, then in the standings
// store for seasons that were evicted or played by another instance
func (s *Server) seasonStandings(ctx context.Context, id string) (simulation.Standings, error) {
	s.mu.RLock()
	entry, ok := s.seasons[id]
	s.mu.RUnlock()
	if ok {
		return entry.season.Standings(), nil
	}

	if s.Standings != nil {
		stored, err := s.Standings.ReadStandings(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(stored) > 0 {
			return stored, nil
		}
	}
	return nil, fmt.Errorf("season %q: %w", id, ErrSeasonNotFound)
}

func (s *Server) resolveMatchup(ctx context.Context, homeName, awayName string) (home, away *models.Team, err error) {
	if homeName == "" || awayName == "" {
		return nil, nil, fmt.Errorf("%w: home and away are required", models.ErrInvalidSchedule)
	}
	if home, err = s.Repository.FindByMascot(ctx, homeName); err != nil {
		return nil, nil, err
	}
	if away, err = s.Repository.FindByMascot(ctx, awayName); err != nil {
		return nil, nil, err
	}
	return home, away, nil
}

func seedOrRandom(seed *int64) (int64, error) {
	if seed != nil {
		return *seed, nil
	}
	return random.NewSeed()
}

func newTeamResponse(team *models.Team) TeamResponse {
	lineup := make([]PlayerResponse, 0, len(team.Lineup))
	for _, p := range team.Lineup {
		lineup = append(lineup, PlayerResponse{
			Player:             p,
			BattingAverage:     p.BattingAvg(),
			OnBasePercentage:   p.OnBasePercentage(),
			SluggingPercentage: p.SluggingPercentage(),
		})
	}
	return TeamResponse{
		Mascot:             team.Mascot,
		City:               team.City,
		BattingAverage:     team.TeamBattingAverage(),
		OnBasePercentage:   team.TeamOnBasePercentage(),
		SluggingPercentage: team.TeamSluggingPercentage(),
		Lineup:             lineup,
	}
}

// writeServiceError maps engine errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrTeamNotFound),
		errors.Is(err, simulation.ErrRunNotFound),
		errors.Is(err, ErrSeasonNotFound):
		writeError(w, err.Error(), "not_found", http.StatusNotFound)
	case errors.Is(err, simulation.ErrRunIncomplete):
		writeError(w, err.Error(), "not_complete", http.StatusAccepted)
	case errors.Is(err, models.ErrDuplicateTeam):
		writeError(w, err.Error(), "conflict", http.StatusConflict)
	case errors.Is(err, models.ErrEmptyRoster),
		errors.Is(err, models.ErrInvalidLineup),
		errors.Is(err, models.ErrInvalidProfile),
		errors.Is(err, models.ErrScorelessMatchup),
		errors.Is(err, models.ErrInvalidSchedule),
		errors.Is(err, models.ErrInvalidRules):
		writeError(w, err.Error(), "invalid", http.StatusUnprocessableEntity)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, "Request canceled", "canceled", http.StatusServiceUnavailable)
	default:
		hlogger(r).Error().Err(err).Msg("request failed")
		writeError(w, "Internal server error", "internal", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message, code string, statusCode int) {
	writeJSON(w, statusCode, APIError{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding JSON")
	}
}

func hlogger(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
