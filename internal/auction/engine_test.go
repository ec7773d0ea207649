package auction

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/markethub/adengine/internal/models"
)

func TestRun_RanksByAdRankAndPricesSecondPrice(t *testing.T) {
	e := New(1)
	candidates := []models.BidCandidate{
		{CampaignID: "b", BidMinor: 300, FloorMinor: 50, CTRScore: 0.6, RelevanceScore: 0.5, LandingPageScore: 0.5},
		{CampaignID: "a", BidMinor: 500, FloorMinor: 100, CTRScore: 0.8, RelevanceScore: 0.9, LandingPageScore: 1.0},
	}

	results, invalid := e.Run(candidates, 1)
	if len(invalid) != 0 {
		t.Fatalf("unexpected invalid bids: %v", invalid)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	// QS(a) = 0.5*0.8 + 0.3*0.9 + 0.2*1.0 = 0.87, rank 435
	// QS(b) = 0.5*0.6 + 0.3*0.5 + 0.2*0.5 = 0.55, rank 165
	// price = ceil(165 / 0.87) + 1 = 190 + 1
	win := results[0]
	if win.CampaignID != "a" {
		t.Errorf("expected campaign a to win, got %s", win.CampaignID)
	}
	if win.Slot != 0 {
		t.Errorf("expected slot 0, got %d", win.Slot)
	}
	if win.PriceMinor != 191 {
		t.Errorf("expected price 191, got %d", win.PriceMinor)
	}
	if win.PriceMinor > 500 {
		t.Errorf("price %d exceeds winner's bid", win.PriceMinor)
	}
}

func TestRun_Deterministic(t *testing.T) {
	e := New(1)
	var candidates []models.BidCandidate
	for i := 0; i < 20; i++ {
		candidates = append(candidates, models.BidCandidate{
			CampaignID:       fmt.Sprintf("c%02d", i),
			BidMinor:         int64(100 + i*7),
			FloorMinor:       10,
			CTRScore:         float64(i%10) / 10,
			RelevanceScore:   float64((i*3)%10) / 10,
			LandingPageScore: float64((i*7)%10) / 10,
		})
	}

	first, _ := e.Run(candidates, 5)
	second, _ := e.Run(candidates, 5)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("auction is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestRun_TieBreaks(t *testing.T) {
	e := New(1)

	// Equal ad rank (50), higher bid wins.
	results, _ := e.Run([]models.BidCandidate{
		{CampaignID: "low-bid", BidMinor: 100, CTRScore: 1.0},  // q=0.5, rank 50
		{CampaignID: "high-bid", BidMinor: 200, CTRScore: 0.5}, // q=0.25, rank 50
	}, 2)
	if results[0].CampaignID != "high-bid" {
		t.Errorf("expected high-bid to win the rank tie, got %s", results[0].CampaignID)
	}

	// Fully identical candidates: lexicographically smaller campaign ID first.
	results, _ = e.Run([]models.BidCandidate{
		{CampaignID: "zeta", BidMinor: 100, CTRScore: 1.0},
		{CampaignID: "alpha", BidMinor: 100, CTRScore: 1.0},
	}, 2)
	if results[0].CampaignID != "alpha" {
		t.Errorf("expected alpha to win the full tie, got %s", results[0].CampaignID)
	}
}

func TestRun_LastWinnerPaysFloor(t *testing.T) {
	e := New(1)
	results, _ := e.Run([]models.BidCandidate{
		{CampaignID: "only", BidMinor: 500, FloorMinor: 120, CTRScore: 0.9, RelevanceScore: 0.9, LandingPageScore: 0.9},
	}, 3)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].PriceMinor != 120 {
		t.Errorf("expected floor price 120, got %d", results[0].PriceMinor)
	}
}

func TestRun_PriceClampedToBid(t *testing.T) {
	e := New(1)
	// Identical bids and quality: the second-price formula lands one increment
	// above the winner's own bid and must be clamped back down.
	results, _ := e.Run([]models.BidCandidate{
		{CampaignID: "a", BidMinor: 100, CTRScore: 1.0, RelevanceScore: 1.0, LandingPageScore: 1.0},
		{CampaignID: "b", BidMinor: 100, CTRScore: 1.0, RelevanceScore: 1.0, LandingPageScore: 1.0},
	}, 1)
	if results[0].PriceMinor != 100 {
		t.Errorf("expected price clamped to bid 100, got %d", results[0].PriceMinor)
	}
}

func TestRun_PriceNeverBelowFloor(t *testing.T) {
	e := New(1)
	// The runner-up's rank is tiny, so the raw second price would clear far
	// below the winner's floor.
	results, _ := e.Run([]models.BidCandidate{
		{CampaignID: "a", BidMinor: 1000, FloorMinor: 400, CTRScore: 1.0, RelevanceScore: 1.0, LandingPageScore: 1.0},
		{CampaignID: "b", BidMinor: 10, FloorMinor: 1, CTRScore: 0.1},
	}, 1)
	if results[0].PriceMinor != 400 {
		t.Errorf("expected floor 400, got %d", results[0].PriceMinor)
	}
}

func TestRun_InvalidCandidatesExcludedNotFatal(t *testing.T) {
	e := New(1)
	candidates := []models.BidCandidate{
		{CampaignID: "good", BidMinor: 200, FloorMinor: 50, CTRScore: 0.5, RelevanceScore: 0.5, LandingPageScore: 0.5},
		{CampaignID: "below-floor", BidMinor: 40, FloorMinor: 50, CTRScore: 0.5},
		{CampaignID: "bad-ctr", BidMinor: 200, CTRScore: 1.5},
		{CampaignID: "", BidMinor: 200, CTRScore: 0.5},
	}

	results, invalid := e.Run(candidates, 4)
	if len(results) != 1 || results[0].CampaignID != "good" {
		t.Fatalf("expected only the valid candidate to win, got %+v", results)
	}
	if len(invalid) != 3 {
		t.Fatalf("expected 3 invalid bids, got %d", len(invalid))
	}
	for _, ib := range invalid {
		if ib.Error() == "" {
			t.Error("invalid bid error has empty message")
		}
	}
}

func TestRun_EmptyAndZeroSlots(t *testing.T) {
	e := New(1)

	if results, invalid := e.Run(nil, 3); len(results) != 0 || len(invalid) != 0 {
		t.Errorf("empty candidates: expected no results, got %+v", results)
	}

	candidates := []models.BidCandidate{
		{CampaignID: "a", BidMinor: 100, CTRScore: 0.5},
	}
	if results, _ := e.Run(candidates, 0); len(results) != 0 {
		t.Errorf("zero slots: expected no results, got %+v", results)
	}
}

func TestRun_TruthfulnessBound(t *testing.T) {
	e := New(1)
	var candidates []models.BidCandidate
	for i := 0; i < 12; i++ {
		candidates = append(candidates, models.BidCandidate{
			CampaignID:       fmt.Sprintf("c%02d", i),
			BidMinor:         int64(50 + i*13),
			FloorMinor:       5,
			CTRScore:         float64((i*3)%11) / 10,
			RelevanceScore:   0.4,
			LandingPageScore: 0.6,
		})
	}
	results, _ := e.Run(candidates, 6)
	bids := make(map[string]int64)
	for _, c := range candidates {
		bids[c.CampaignID] = c.BidMinor
	}
	for _, r := range results {
		if r.PriceMinor > bids[r.CampaignID] {
			t.Errorf("winner %s pays %d above bid %d", r.CampaignID, r.PriceMinor, bids[r.CampaignID])
		}
	}
}

func TestRun_SlotsOrderedByRank(t *testing.T) {
	e := New(1)
	candidates := []models.BidCandidate{
		{CampaignID: "mid", BidMinor: 300, FloorMinor: 10, CTRScore: 0.5, RelevanceScore: 0.5, LandingPageScore: 0.5},
		{CampaignID: "top", BidMinor: 900, FloorMinor: 10, CTRScore: 0.9, RelevanceScore: 0.9, LandingPageScore: 0.9},
		{CampaignID: "bottom", BidMinor: 100, FloorMinor: 10, CTRScore: 0.3, RelevanceScore: 0.3, LandingPageScore: 0.3},
	}
	results, _ := e.Run(candidates, 3)
	want := []string{"top", "mid", "bottom"}
	for i, r := range results {
		if r.Slot != i {
			t.Errorf("result %d has slot %d", i, r.Slot)
		}
		if r.CampaignID != want[i] {
			t.Errorf("slot %d: expected %s, got %s", i, want[i], r.CampaignID)
		}
	}
}
