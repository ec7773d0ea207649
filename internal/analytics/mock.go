package analytics

import (
	"context"
	"sync"

	"github.com/markethub/adengine/internal/models"
)

var _ Service = (*MockAnalytics)(nil)

// MockAnalytics is a mock implementation of Service for testing. It records
// every call so tests can assert on what would have been persisted.
type MockAnalytics struct {
	mu       sync.Mutex
	Auctions []MockAuctionEvent
	Charges  []MockChargeEvent
}

// MockAuctionEvent captures one RecordAuction call.
type MockAuctionEvent struct {
	RequestID   string
	PlacementID string
	Results     []models.AuctionResult
}

// MockChargeEvent captures one RecordCharge call.
type MockChargeEvent struct {
	CampaignID  string
	ClickID     string
	AmountMinor int64
	Result      string
}

// NewMockAnalytics creates a new mock analytics instance
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

// RecordAuction records an auction event (mock implementation)
func (m *MockAnalytics) RecordAuction(ctx context.Context, requestID, placementID string, results []models.AuctionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Auctions = append(m.Auctions, MockAuctionEvent{RequestID: requestID, PlacementID: placementID, Results: results})
	return nil
}

// RecordCharge records a charge event (mock implementation)
func (m *MockAnalytics) RecordCharge(ctx context.Context, campaignID, clickID string, amountMinor int64, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Charges = append(m.Charges, MockChargeEvent{CampaignID: campaignID, ClickID: clickID, AmountMinor: amountMinor, Result: result})
	return nil
}
