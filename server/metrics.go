package server

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// Metrics tracks request and simulation counters
type Metrics struct {
	mu                sync.RWMutex
	requestCount      int64
	errorCount        int64
	totalResponseTime int64
	gamesSimulated    int64
	matchupsStarted   int64
	seasonsPlayed     int64
	startTime         time.Time
}

type MetricsResponse struct {
	System      SystemMetrics      `json:"system"`
	Application ApplicationMetrics `json:"application"`
	Simulation  SimulationMetrics  `json:"simulation"`
	Database    *DatabaseMetrics   `json:"database,omitempty"`
	Uptime      string             `json:"uptime"`
}

type SystemMetrics struct {
	GoVersion     string  `json:"go_version"`
	NumGoroutines int     `json:"num_goroutines"`
	NumCPU        int     `json:"num_cpu"`
	MemAllocMB    float64 `json:"mem_alloc_mb"`
	MemSysMB      float64 `json:"mem_sys_mb"`
	NumGC         uint32  `json:"num_gc"`
}

type ApplicationMetrics struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ErrorRate         float64 `json:"error_rate_percent"`
	AvgResponseTime   float64 `json:"avg_response_time_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type SimulationMetrics struct {
	Workers         int   `json:"workers"`
	ActiveRuns      int   `json:"active_runs"`
	GamesSimulated  int64 `json:"games_simulated"`
	MatchupsStarted int64 `json:"matchups_started"`
	SeasonsPlayed   int64 `json:"seasons_played"`
}

type DatabaseMetrics struct {
	MaxConns     int32 `json:"max_connections"`
	AcquireCount int64 `json:"acquire_count"`
	IdleConns    int32 `json:"idle_connections"`
	TotalConns   int32 `json:"total_connections"`
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// ObserveRequest counts a finished request. Responses of 500 and above count as errors.
func (m *Metrics) ObserveRequest(status int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount++
	if status >= http.StatusInternalServerError {
		m.errorCount++
	}
	m.totalResponseTime += duration.Milliseconds()
}

func (m *Metrics) AddGames(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gamesSimulated += int64(n)
}

func (m *Metrics) IncrementMatchups() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchupsStarted++
}

func (m *Metrics) IncrementSeasons() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seasonsPlayed++
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m := s.metrics
	m.mu.RLock()
	requestCount := m.requestCount
	errorCount := m.errorCount
	totalResponseTime := m.totalResponseTime
	sim := SimulationMetrics{
		GamesSimulated:  m.gamesSimulated,
		MatchupsStarted: m.matchupsStarted,
		SeasonsPlayed:   m.seasonsPlayed,
	}
	startTime := m.startTime
	m.mu.RUnlock()

	sim.Workers = s.config.Workers
	sim.ActiveRuns = s.Engine.ActiveRuns()

	uptime := time.Since(startTime)
	app := ApplicationMetrics{
		TotalRequests: requestCount,
		TotalErrors:   errorCount,
	}
	if requestCount > 0 {
		app.ErrorRate = float64(errorCount) / float64(requestCount) * 100
		app.AvgResponseTime = float64(totalResponseTime) / float64(requestCount)
	}
	if secs := uptime.Seconds(); secs > 0 {
		app.RequestsPerSecond = float64(requestCount) / secs
	}

	response := MetricsResponse{
		System: SystemMetrics{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			MemAllocMB:    float64(memStats.Alloc) / 1024 / 1024,
			MemSysMB:      float64(memStats.Sys) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Application: app,
		Simulation:  sim,
		Uptime:      formatUptime(uptime),
	}

	if s.Pool != nil {
		stat := s.Pool.Stat()
		response.Database = &DatabaseMetrics{
			MaxConns:     stat.MaxConns(),
			AcquireCount: stat.AcquireCount(),
			IdleConns:    stat.IdleConns(),
			TotalConns:   stat.TotalConns(),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
