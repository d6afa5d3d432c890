package api

import (
	"net/http"
	"time"
)

type analyticsResponse struct {
	ActiveSessions   int            `json:"active_sessions"`
	SessionsCreated  uint64         `json:"sessions_created"`
	PersonalityUsage map[string]int `json:"personality_usage"`
	Seeds            int            `json:"foundation_personalities"`
	Uptime           string         `json:"uptime"`
}

func (s *Server) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.manager.Stats()
	writeJSON(w, http.StatusOK, analyticsResponse{
		ActiveSessions:   stats.Active,
		SessionsCreated:  stats.Created,
		PersonalityUsage: stats.Usage,
		Seeds:            s.repo.Len(),
		Uptime:           time.Since(s.started).Round(time.Second).String(),
	})
}

type cleanupStatsResponse struct {
	ActiveSessions int    `json:"active_sessions"`
	Created        uint64 `json:"created"`
	Removed        uint64 `json:"removed"`
	Expired        uint64 `json:"expired"`
	IdleTTL        string `json:"idle_ttl"`
	SweepInterval  string `json:"sweep_interval"`
	// LastSweep is empty until the first expiry pass.
	LastSweep string `json:"last_sweep,omitempty"`
}

func (s *Server) cleanupStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.manager.Stats()
	out := cleanupStatsResponse{
		ActiveSessions: stats.Active,
		Created:        stats.Created,
		Removed:        stats.Removed,
		Expired:        stats.Expired,
		IdleTTL:        stats.IdleTTL.String(),
		SweepInterval:  s.sweep.String(),
	}
	if !stats.LastSweep.IsZero() {
		out.LastSweep = stats.LastSweep.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, out)
}

type cleanupResponse struct {
	Expired    int      `json:"expired"`
	SessionIDs []string `json:"session_ids"`
}

func (s *Server) manualCleanupHandler(w http.ResponseWriter, r *http.Request) {
	ids := s.manager.Expire(r.Context(), time.Now())
	if ids == nil {
		ids = []string{}
	}
	s.logger.Info("Manual session cleanup", "expired", len(ids))
	writeJSON(w, http.StatusOK, cleanupResponse{Expired: len(ids), SessionIDs: ids})
}
