package budget

import (
	"time"

	"go.uber.org/zap"

	"github.com/markethub/adengine/internal/models"
)

// Notifier receives threshold-crossing events. The ledger guarantees at most
// one call per (campaign, state) per budget period; delivery beyond this
// process boundary is the alerting service's concern.
type Notifier interface {
	NotifyThresholdCrossed(campaignID string, state models.BudgetState, periodStart time.Time)
}

// LogNotifier is the default Notifier: it writes threshold crossings to the
// structured log, where the alerting pipeline picks them up.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier. A nil logger uses the global one.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.L()
	}
	return &LogNotifier{logger: logger}
}

// NotifyThresholdCrossed logs the transition. Pauses log at warn so operators
// see campaigns dropping out of rotation.
func (n *LogNotifier) NotifyThresholdCrossed(campaignID string, state models.BudgetState, periodStart time.Time) {
	log := n.logger.Info
	if state == models.BudgetPaused {
		log = n.logger.Warn
	}
	log("budget threshold crossed",
		zap.String("campaign_id", campaignID),
		zap.String("state", string(state)),
		zap.Time("period_start", periodStart))
}
