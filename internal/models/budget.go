package models

import "time"

// BudgetState classifies how far into its daily budget a campaign is. States
// only move forward within a budget period; the rollover into a new period
// starts the campaign back at BudgetActive.
type BudgetState string

const (
	// BudgetActive means the campaign is under 75% of its daily cap.
	BudgetActive BudgetState = "active"
	// BudgetWarning75 means spend has crossed 75% of the daily cap.
	BudgetWarning75 BudgetState = "warning_75"
	// BudgetWarning90 means spend has crossed 90% of the daily cap.
	BudgetWarning90 BudgetState = "warning_90"
	// BudgetPaused means the daily cap is fully spent. No further charges
	// commit and the campaign is excluded from auctions until the next period.
	BudgetPaused BudgetState = "paused"
)

// budgetStateByCode maps the compact numeric encoding used in the ledger's
// Redis records to the exported state names. Order matters: codes are
// monotonically increasing with spend.
var budgetStateByCode = [...]BudgetState{BudgetActive, BudgetWarning75, BudgetWarning90, BudgetPaused}

// BudgetStateFromCode converts a ledger state code into a BudgetState.
// Unknown codes map to BudgetActive so a corrupt record fails open on
// classification (charging still fails closed on the cap check itself).
func BudgetStateFromCode(code int64) BudgetState {
	if code < 0 || int(code) >= len(budgetStateByCode) {
		return BudgetActive
	}
	return budgetStateByCode[code]
}

// BudgetSnapshot is a read-only view of one campaign's budget record for the
// current period. Reporting consumers may read snapshots but never write them.
type BudgetSnapshot struct {
	CampaignID  string      `json:"campaign_id"`
	CapMinor    int64       `json:"cap_minor"`
	SpentMinor  int64       `json:"spent_minor"`
	State       BudgetState `json:"state"`
	PeriodStart time.Time   `json:"period_start"`
}
