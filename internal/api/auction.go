package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/markethub/adengine/internal/budget"
	"github.com/markethub/adengine/internal/middleware"
	"github.com/markethub/adengine/internal/models"
)

// AuctionRequest is the body of POST /v1/auction. The candidate list is
// assembled by the targeting service; this engine only filters it against
// budget eligibility and runs the auction.
type AuctionRequest struct {
	PlacementID string                `json:"placement_id"`
	SlotCount   int                   `json:"slot_count"`
	Candidates  []models.BidCandidate `json:"candidates"`
}

// AuctionResponse returns the filled slots in slot order.
type AuctionResponse struct {
	RequestID string                 `json:"request_id"`
	Results   []models.AuctionResult `json:"results"`
}

// AuctionHandler handles POST /v1/auction placement requests.
func (s *Server) AuctionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "AuctionHandler",
		trace.WithAttributes(
			attribute.String("http.method", "POST"),
			attribute.String("http.route", "/v1/auction"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)
	requestID := middleware.RequestIDFromContext(ctx)

	start := time.Now()
	const endpoint = "/v1/auction"
	const method = "POST"

	var req AuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("decode auction request", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	slots := req.SlotCount
	if slots > s.Config.MaxSlots {
		slots = s.Config.MaxSlots
	}
	span.SetAttributes(
		attribute.String("placement_id", req.PlacementID),
		attribute.Int("slot_count", slots),
		attribute.Int("candidate_count", len(req.Candidates)),
	)

	// Filter to campaigns with budget room. A ledger outage makes every
	// campaign ineligible rather than risking spend past a cap.
	eligible := make([]models.BidCandidate, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		ok, err := s.Ledger.CheckEligible(ctx, c.CampaignID)
		if err != nil && errors.Is(err, budget.ErrLedgerUnavailable) {
			logger.Error("budget eligibility check", zap.String("campaign_id", c.CampaignID), zap.Error(err))
		}
		if ok {
			eligible = append(eligible, c)
		}
	}

	auctionStart := time.Now()
	results, invalid := s.Engine.Run(eligible, slots)
	s.Metrics.RecordAuctionDuration(time.Since(auctionStart))
	s.Metrics.RecordAuctionWinners(len(results))

	for _, e := range invalid {
		logger.Debug("candidate rejected", zap.String("campaign_id", e.CampaignID), zap.String("reason", e.Reason))
		s.Metrics.IncrementInvalidBids(e.Reason)
	}
	if len(results) == 0 {
		s.Metrics.IncrementNoFill()
	}

	if s.Analytics != nil && len(results) > 0 {
		if err := s.Analytics.RecordAuction(ctx, requestID, req.PlacementID, results); err != nil {
			// Reporting is best effort; the auction outcome stands.
			logger.Error("record auction", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(AuctionResponse{RequestID: requestID, Results: results}); err != nil {
		logger.Error("encode auction response", zap.Error(err))
	}
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
