package mcp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/moolen/magma/internal/store"
)

// healthStatus is one of "ok", "degraded" or "error", reported in both
// the JSON body and the HTTP status code (200/503/500 respectively).
type healthStatus string

const (
	statusOK       healthStatus = "ok"
	statusDegraded healthStatus = "degraded"
	statusError    healthStatus = "error"
)

type sessionsHealth struct {
	Active int `json:"active"`
	Max    int `json:"max"`
}

type healthBody struct {
	Status   healthStatus      `json:"status"`
	FalkorDB string            `json:"falkordb"`
	Graphs   *store.Statistics `json:"graphs,omitempty"`
	Uptime   string            `json:"uptime"`
	Sessions *sessionsHealth   `json:"sessions,omitempty"`
}

// SessionLimits configures the optional "sessions" block of the health
// response. Active is read at request time via the ActiveFn callback so
// the handler never holds a reference to the transport's session store.
type SessionLimits struct {
	Max      int
	ActiveFn func() int
}

// HealthHandler implements the GET /health contract: FalkorDB reachable
// and responsive -> ok (200); reachable but a query fails ->  degraded
// (503); unreachable -> error (500).
func (s *Server) HealthHandler(sessions *SessionLimits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := healthBody{Uptime: time.Since(s.startedAt).String()}

		ctx := r.Context()
		connected := s.store.HealthCheck(ctx)
		if !connected {
			body.Status = statusError
			body.FalkorDB = "disconnected"
			writeHealth(w, http.StatusInternalServerError, body)
			return
		}
		body.FalkorDB = "connected"

		stats, err := s.store.GetStatistics(ctx)
		if err != nil {
			body.Status = statusDegraded
			writeHealth(w, http.StatusServiceUnavailable, body)
			return
		}

		body.Status = statusOK
		body.Graphs = stats
		if sessions != nil {
			body.Sessions = &sessionsHealth{Active: sessions.ActiveFn(), Max: sessions.Max}
		}
		writeHealth(w, http.StatusOK, body)
	}
}

func writeHealth(w http.ResponseWriter, code int, body healthBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
