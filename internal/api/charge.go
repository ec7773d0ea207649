package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/markethub/adengine/internal/budget"
	"github.com/markethub/adengine/internal/middleware"
)

// ChargeRequest is the body of POST /v1/charge. The click ingestion service
// calls this exactly once per billable click, after deduplicating retries
// upstream.
type ChargeRequest struct {
	CampaignID  string `json:"campaign_id"`
	ClickID     string `json:"click_id"`
	AmountMinor int64  `json:"amount_minor"`
}

// ChargeResponse reports the outcome. A rejected charge is a normal result:
// the clicked ad simply does not bill the seller further this period.
type ChargeResponse struct {
	Result budget.ChargeResult `json:"result"`
}

// ChargeHandler handles POST /v1/charge click billing requests.
func (s *Server) ChargeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ChargeHandler",
		trace.WithAttributes(
			attribute.String("http.method", "POST"),
			attribute.String("http.route", "/v1/charge"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "/v1/charge"
	const method = "POST"

	var req ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("decode charge request", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CampaignID == "" || req.AmountMinor <= 0 {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "campaign_id and positive amount_minor required", http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("campaign_id", req.CampaignID),
		attribute.String("click_id", req.ClickID),
		attribute.Int64("amount_minor", req.AmountMinor),
	)

	result, err := s.Ledger.ChargeIfRoom(ctx, req.CampaignID, req.AmountMinor)
	switch {
	case errors.Is(err, budget.ErrLedgerUnavailable):
		// Fail closed; 503 tells the ingestion service to retry with backoff.
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger unavailable")
		logger.Error("charge", zap.String("campaign_id", req.CampaignID), zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "503")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "budget ledger unavailable", http.StatusServiceUnavailable)
		return
	case errors.Is(err, budget.ErrUnknownCampaign):
		s.Metrics.IncrementRequests(endpoint, method, "404")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "unknown campaign", http.StatusNotFound)
		return
	case err != nil:
		logger.Warn("charge", zap.String("campaign_id", req.CampaignID), zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.Metrics.IncrementCharges(string(result))
	if result == budget.ChargeRejectedCapReached {
		logger.Debug("charge rejected, cap reached", zap.String("campaign_id", req.CampaignID))
	}

	if s.Analytics != nil {
		if err := s.Analytics.RecordCharge(ctx, req.CampaignID, req.ClickID, req.AmountMinor, string(result)); err != nil {
			logger.Error("record charge", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ChargeResponse{Result: result}); err != nil {
		logger.Error("encode charge response", zap.Error(err))
	}
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
