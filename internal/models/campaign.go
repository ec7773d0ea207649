package models

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Campaign carries the budget configuration for one advertising campaign.
// Targeting rules, creatives and bid inputs live in the campaign service;
// this engine only needs the daily cap and the billing time zone.
type Campaign struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DailyCapMinor int64  `json:"daily_cap_minor"` // Daily spend ceiling in minor units. Must be positive.
	Timezone      string `json:"timezone"`        // IANA zone the 24h budget window is anchored to.
	Active        bool   `json:"active"`
}

// CampaignStore is a thread-safe in-memory view of campaign budget
// configuration, loaded from Postgres at startup and refreshed by the reload
// loop. It implements budget.CapSource.
type CampaignStore struct {
	mu        sync.RWMutex
	campaigns map[string]Campaign
	locations map[string]*time.Location
}

// NewCampaignStore returns an empty CampaignStore.
func NewCampaignStore() *CampaignStore {
	return &CampaignStore{
		campaigns: make(map[string]Campaign),
		locations: make(map[string]*time.Location),
	}
}

// ReplaceAll swaps in a fresh campaign set atomically. Time zones are parsed
// once here so the charge path never pays for zone lookups; an invalid zone
// falls back to UTC.
func (s *CampaignStore) ReplaceAll(campaigns []Campaign) {
	byID := make(map[string]Campaign, len(campaigns))
	locs := make(map[string]*time.Location, len(campaigns))
	for _, c := range campaigns {
		byID[c.ID] = c
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			zap.L().Warn("invalid campaign timezone, using UTC",
				zap.String("campaign_id", c.ID),
				zap.String("timezone", c.Timezone))
			loc = time.UTC
		}
		locs[c.ID] = loc
	}

	s.mu.Lock()
	s.campaigns = byID
	s.locations = locs
	s.mu.Unlock()
}

// Get returns the campaign with the given ID.
func (s *CampaignStore) Get(id string) (Campaign, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	return c, ok
}

// Len returns the number of loaded campaigns.
func (s *CampaignStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.campaigns)
}

// BudgetConfig returns the daily cap and billing time zone for a campaign.
// Inactive and unknown campaigns report ok=false, which the ledger treats as
// ineligible.
func (s *CampaignStore) BudgetConfig(id string) (capMinor int64, loc *time.Location, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, found := s.campaigns[id]
	if !found || !c.Active || c.DailyCapMinor <= 0 {
		return 0, nil, false
	}
	return c.DailyCapMinor, s.locations[id], true
}
