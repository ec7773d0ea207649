// Package auction implements the sponsored-listing auction for marketplace
// search and product pages.
//
// Candidates are ranked by ad rank (bid times quality score) and winners pay a
// generalized second price: the minimum amount that keeps them ahead of the
// next-ranked candidate, plus one price increment. The engine is a pure
// computation over its inputs; it holds no shared state and is safe to call
// from any number of goroutines.
package auction

import (
	"fmt"
	"math"
	"sort"

	"github.com/markethub/adengine/internal/models"
)

// DefaultIncrementMinor is the smallest currency step added on top of the
// second-price amount, in minor units.
const DefaultIncrementMinor = 1

// InvalidBidError reports a candidate that failed input validation. The
// candidate is excluded from the auction; the batch continues.
type InvalidBidError struct {
	CampaignID string
	Reason     string
}

func (e *InvalidBidError) Error() string {
	return fmt.Sprintf("invalid bid for campaign %s: %s", e.CampaignID, e.Reason)
}

// Engine runs auctions. The zero value uses DefaultIncrementMinor.
type Engine struct {
	incrementMinor int64
}

// New constructs an Engine with the given price increment in minor units.
// Non-positive increments fall back to DefaultIncrementMinor.
func New(incrementMinor int64) *Engine {
	if incrementMinor <= 0 {
		incrementMinor = DefaultIncrementMinor
	}
	return &Engine{incrementMinor: incrementMinor}
}

// scored pairs a candidate with its derived quality and rank so the sort and
// the pricing pass compute each only once.
type scored struct {
	cand    models.BidCandidate
	quality float64
	rank    float64
}

// validate reports why a candidate is unusable, or "" if it is valid.
func validate(c models.BidCandidate) string {
	switch {
	case c.CampaignID == "":
		return "missing campaign id"
	case c.BidMinor <= 0:
		return "bid must be positive"
	case c.FloorMinor < 0:
		return "floor must be non-negative"
	case c.BidMinor < c.FloorMinor:
		return "bid below floor"
	case c.CTRScore < 0 || c.CTRScore > 1:
		return "ctr score out of range"
	case c.RelevanceScore < 0 || c.RelevanceScore > 1:
		return "relevance score out of range"
	case c.LandingPageScore < 0 || c.LandingPageScore > 1:
		return "landing page score out of range"
	}
	return ""
}

// Run ranks the candidates and fills up to slotCount slots, returning one
// result per filled slot in slot order. Invalid candidates are dropped and
// reported in the second return value; they never fail the batch. An empty
// candidate set or non-positive slot count yields no results and no errors.
//
// The outcome is fully deterministic: ties on ad rank break on higher bid,
// then on lexicographically smaller campaign ID, so replaying the same inputs
// always reproduces the same winners and prices.
func (e *Engine) Run(candidates []models.BidCandidate, slotCount int) ([]models.AuctionResult, []*InvalidBidError) {
	var invalid []*InvalidBidError

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if reason := validate(c); reason != "" {
			invalid = append(invalid, &InvalidBidError{CampaignID: c.CampaignID, Reason: reason})
			continue
		}
		q := c.QualityScore()
		ranked = append(ranked, scored{cand: c, quality: q, rank: float64(c.BidMinor) * q})
	}

	if len(ranked) == 0 || slotCount <= 0 {
		return nil, invalid
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.rank != b.rank {
			return a.rank > b.rank
		}
		if a.cand.BidMinor != b.cand.BidMinor {
			return a.cand.BidMinor > b.cand.BidMinor
		}
		return a.cand.CampaignID < b.cand.CampaignID
	})

	winners := slotCount
	if winners > len(ranked) {
		winners = len(ranked)
	}

	results := make([]models.AuctionResult, 0, winners)
	for i := 0; i < winners; i++ {
		w := ranked[i]
		price := w.cand.FloorMinor
		if i+1 < len(ranked) && w.quality > 0 {
			// Pay just enough to stay ahead of the next-ranked candidate.
			price = int64(math.Ceil(ranked[i+1].rank/w.quality)) + e.incrementMinor
			if price < w.cand.FloorMinor {
				price = w.cand.FloorMinor
			}
		}
		// Truthfulness bound: never charge above the winner's own bid.
		if price > w.cand.BidMinor {
			price = w.cand.BidMinor
		}
		results = append(results, models.AuctionResult{
			Slot:       i,
			CampaignID: w.cand.CampaignID,
			PriceMinor: price,
		})
	}
	return results, invalid
}
