package models

// BidCandidate is one campaign's entry into a single auction. Candidates are
// assembled per placement request by the targeting service and are never
// persisted; the auction engine treats them as pure input.
// All monetary values are integer minor units (e.g. cents) to avoid
// floating-point drift in billing math.
type BidCandidate struct {
	CampaignID string `json:"campaign_id"` // Opaque campaign identifier, also the tie-break key.
	BidMinor   int64  `json:"bid_minor"`   // Maximum cost-per-click the seller is willing to pay.
	FloorMinor int64  `json:"floor_minor"` // Minimum clearing price for this candidate; bids never clear below it.
	// Quality inputs, each normalized to [0,1]. Produced upstream by the
	// prediction pipeline; the engine only validates and combines them.
	CTRScore         float64 `json:"ctr_score"`
	RelevanceScore   float64 `json:"relevance_score"`
	LandingPageScore float64 `json:"landing_page_score"`
}

// Quality score weights. The blend matches the ranking model used across the
// marketplace: predicted CTR dominates, landing-page experience contributes
// the least.
const (
	WeightCTR         = 0.5
	WeightRelevance   = 0.3
	WeightLandingPage = 0.2
)

// QualityScore returns the weighted quality blend in [0,1] for the candidate.
func (c BidCandidate) QualityScore() float64 {
	return WeightCTR*c.CTRScore + WeightRelevance*c.RelevanceScore + WeightLandingPage*c.LandingPageScore
}

// AdRank is the sole ranking key for auction ordering: bid times quality.
// Derived per call, never stored.
func (c BidCandidate) AdRank() float64 {
	return float64(c.BidMinor) * c.QualityScore()
}

// AuctionResult describes one filled slot. Slots are numbered from zero and
// ordered by descending ad rank.
type AuctionResult struct {
	Slot       int    `json:"slot"`
	CampaignID string `json:"campaign_id"`
	// PriceMinor is the clearing price the winner owes if the listing is
	// clicked: the generalized second-price amount, never above the winner's
	// own bid.
	PriceMinor int64 `json:"price_minor"`
}
