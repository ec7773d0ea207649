// Package api exposes the auction and budget engine over HTTP. The handlers
// are thin orchestration: they build the eligible candidate set from the
// budget ledger, run the pure auction, and route click charges through the
// ledger's atomic primitive.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/markethub/adengine/internal/analytics"
	"github.com/markethub/adengine/internal/auction"
	"github.com/markethub/adengine/internal/budget"
	"github.com/markethub/adengine/internal/config"
	"github.com/markethub/adengine/internal/middleware"
	"github.com/markethub/adengine/internal/models"
	"github.com/markethub/adengine/internal/observability"
)

var tracer = otel.Tracer("adengine")

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger    *zap.Logger
	Engine    *auction.Engine
	Ledger    *budget.Ledger
	Campaigns *models.CampaignStore
	Analytics analytics.Service
	Metrics   observability.MetricsRegistry
	Config    config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, engine *auction.Engine, ledger *budget.Ledger, campaigns *models.CampaignStore, svc analytics.Service, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	if engine == nil {
		engine = auction.New(cfg.PriceIncrementMinor)
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Server{
		Logger:    logger,
		Engine:    engine,
		Ledger:    ledger,
		Campaigns: campaigns,
		Analytics: svc,
		Metrics:   metrics,
		Config:    cfg,
	}
}

// Router builds the HTTP routes for the engine.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithRequestLogger(s.Logger))

	r.HandleFunc("/v1/auction", s.AuctionHandler).Methods(http.MethodPost)
	r.HandleFunc("/v1/charge", s.ChargeHandler).Methods(http.MethodPost)
	r.HandleFunc("/v1/budget/{campaignID}", s.BudgetHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	return r
}
