// Package analytics persists auction and charge events to ClickHouse for the
// reporting pipeline. The engine only writes here; nothing on the serving or
// charging path reads analytics back.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/markethub/adengine/internal/models"
	"github.com/markethub/adengine/internal/observability"
)

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = fmt.Errorf("analytics unavailable")

// Service defines the interface for analytics operations. Implementations
// should return ErrUnavailable when the underlying storage is not reachable.
type Service interface {
	// RecordAuction records one row per filled slot of an auction.
	RecordAuction(ctx context.Context, requestID, placementID string, results []models.AuctionResult) error
	// RecordCharge records the outcome of a click charge.
	RecordCharge(ctx context.Context, campaignID, clickID string, amountMinor int64, result string) error
}

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB      *sql.DB
	Metrics observability.MetricsRegistry
}

// InitClickHouse connects to ClickHouse and ensures the events table exists.
func InitClickHouse(dsn string, metrics observability.MetricsRegistry) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS ad_events (
       timestamp    DateTime,
       event_type   String,
       request_id   String,
       placement_id String,
       campaign_id  String,
       slot         Int32,
       amount_minor Int64,
       result       String
   ) ENGINE=MergeTree() ORDER BY (event_type, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db, Metrics: metrics}, nil
}

// RecordAuction inserts one auction_win row per filled slot.
func (a *Analytics) RecordAuction(ctx context.Context, requestID, placementID string, results []models.AuctionResult) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	now := time.Now()
	for _, r := range results {
		_, err := a.DB.ExecContext(ctx,
			`INSERT INTO ad_events (timestamp, event_type, request_id, placement_id, campaign_id, slot, amount_minor, result)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			now, "auction_win", requestID, placementID, r.CampaignID, int32(r.Slot), r.PriceMinor, "won")
		if err != nil {
			a.countError()
			return fmt.Errorf("insert auction event: %w", err)
		}
	}
	return nil
}

// RecordCharge inserts a charge row with its outcome. Rejections are recorded
// too; the reporting side uses them to show cap pressure per campaign.
func (a *Analytics) RecordCharge(ctx context.Context, campaignID, clickID string, amountMinor int64, result string) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	_, err := a.DB.ExecContext(ctx,
		`INSERT INTO ad_events (timestamp, event_type, request_id, placement_id, campaign_id, slot, amount_minor, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now(), "charge", clickID, "", campaignID, int32(0), amountMinor, result)
	if err != nil {
		a.countError()
		return fmt.Errorf("insert charge event: %w", err)
	}
	return nil
}

func (a *Analytics) countError() {
	if a.Metrics != nil {
		a.Metrics.IncrementAnalyticsErrors()
	}
}

// Close shuts down the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
