package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markethub/adengine/internal/budget"
	"github.com/markethub/adengine/internal/middleware"
)

// BudgetHandler handles GET /v1/budget/{campaignID} snapshot requests from
// the reporting service. Read-only: budget records are only ever written
// through the charge path.
func (s *Server) BudgetHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "/v1/budget"
	const method = "GET"

	campaignID := mux.Vars(r)["campaignID"]

	snap, err := s.Ledger.State(r.Context(), campaignID)
	switch {
	case errors.Is(err, budget.ErrUnknownCampaign):
		s.Metrics.IncrementRequests(endpoint, method, "404")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "unknown campaign", http.StatusNotFound)
		return
	case err != nil:
		logger.Error("budget snapshot", zap.String("campaign_id", campaignID), zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "503")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "budget ledger unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		logger.Error("encode budget snapshot", zap.Error(err))
	}
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
