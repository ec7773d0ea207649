// Package budget enforces per-campaign daily spend caps.
//
// Each campaign has one budget record per 24-hour window, keyed by the
// calendar day in the campaign's billing time zone and stored as a Redis hash.
// The critical operation is ChargeIfRoom: the read of current spend, the cap
// comparison, the increment and the threshold-state transition all execute as
// a single Lua script on the Redis server, so two clicks racing on the same
// campaign can never both observe room and both commit. Records for a new day
// are created lazily by the first charge, which is also what resets a campaign
// after midnight; expired records age out via TTL.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/markethub/adengine/internal/db"
	"github.com/markethub/adengine/internal/models"
	"github.com/markethub/adengine/internal/observability"
)

// ChargeResult is the outcome of a ChargeIfRoom call. Rejection on a full cap
// is an expected result, not an error.
type ChargeResult string

const (
	ChargeCommitted          ChargeResult = "committed"
	ChargeRejectedCapReached ChargeResult = "rejected_cap_reached"
)

var (
	// ErrLedgerUnavailable means the counter store could not be reached within
	// the ledger timeout. Charges fail closed: the caller sees a rejection and
	// may retry with its own backoff policy.
	ErrLedgerUnavailable = errors.New("budget ledger unavailable")
	// ErrUnknownCampaign means no budget configuration exists for the campaign.
	ErrUnknownCampaign = errors.New("unknown campaign")
	// ErrNonPositiveAmount rejects zero or negative charge amounts.
	ErrNonPositiveAmount = errors.New("charge amount must be positive")
)

// CapSource provides the daily cap and billing time zone per campaign.
// Implemented by models.CampaignStore.
type CapSource interface {
	BudgetConfig(campaignID string) (capMinor int64, loc *time.Location, ok bool)
}

// nowFn is used to get the current time. In production it's time.Now, but in
// tests we can replace it to simulate period rollovers.
var nowFn = time.Now

// Budget records live for two days so yesterday's record remains readable for
// reporting until well after the rollover.
const recordTTL = 48 * time.Hour

// defaultTimeout bounds every Redis round trip made by the ledger. A timeout
// is treated as store-unavailable.
const defaultTimeout = 50 * time.Millisecond

// chargeScript is the atomic check-and-increment. It runs entirely on the
// Redis server: no other command for the same key can interleave between the
// cap check and the write.
//
//	KEYS[1] budget record hash
//	ARGV[1] daily cap, ARGV[2] charge amount, ARGV[3] ttl seconds, ARGV[4] period start (unix)
//
// Returns {committed, spent, state, crossed} where crossed is the new state
// code when this charge performed an upward transition, or -1. Computing the
// transition here is what makes threshold notifications fire exactly once per
// period: only the single winning charge observes prev != next.
var chargeScript = redis.NewScript(`
local cap = tonumber(ARGV[1])
local amount = tonumber(ARGV[2])
local spent = tonumber(redis.call('HGET', KEYS[1], 'spent') or '0')
local prev = tonumber(redis.call('HGET', KEYS[1], 'state') or '0')
if prev >= 3 or spent + amount > cap then
  return {0, spent, prev, -1}
end
spent = spent + amount
local state = 0
if spent >= cap then
  state = 3
elseif spent * 100 >= cap * 90 then
  state = 2
elseif spent * 100 >= cap * 75 then
  state = 1
end
if state < prev then
  state = prev
end
redis.call('HSET', KEYS[1], 'spent', spent)
redis.call('HSET', KEYS[1], 'state', state)
redis.call('HSET', KEYS[1], 'cap', cap)
redis.call('HSET', KEYS[1], 'period_start', ARGV[4])
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[3]))
local crossed = -1
if state > prev then
  crossed = state
end
return {1, spent, state, crossed}
`)

// Ledger is the shared spend counter for all engine instances. All mutation
// of a budget record goes through ChargeIfRoom; records for different
// campaigns are independent and update fully in parallel.
type Ledger struct {
	store    *db.RedisStore
	caps     CapSource
	notifier Notifier
	metrics  observability.MetricsRegistry
	timeout  time.Duration
	logger   *zap.Logger
}

// NewLedger constructs a Ledger. notifier and metrics may be nil, in which
// case threshold crossings are only logged and metrics are dropped.
func NewLedger(store *db.RedisStore, caps CapSource, notifier Notifier, metrics observability.MetricsRegistry, timeout time.Duration, logger *zap.Logger) *Ledger {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Ledger{
		store:    store,
		caps:     caps,
		notifier: notifier,
		metrics:  metrics,
		timeout:  timeout,
		logger:   logger,
	}
}

// recordKey returns the Redis key and period start for the campaign's current
// budget window. Day boundaries follow the campaign's billing time zone, so
// the first charge after local midnight lands on a fresh key - that is the
// period reset.
func recordKey(campaignID string, loc *time.Location) (string, time.Time) {
	now := nowFn().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return fmt.Sprintf("budget:%s:%s", campaignID, now.Format("2006-01-02")), start
}

// ChargeIfRoom applies a click charge to the campaign's current budget period
// if and only if the daily cap still has room for the full amount. The check
// and the increment are one indivisible step; committed spend never exceeds
// the cap. Store failures return ErrLedgerUnavailable with a rejected result
// (fail closed).
func (l *Ledger) ChargeIfRoom(ctx context.Context, campaignID string, amountMinor int64) (ChargeResult, error) {
	if amountMinor <= 0 {
		return ChargeRejectedCapReached, ErrNonPositiveAmount
	}
	if l.store == nil || l.store.Client == nil {
		return ChargeRejectedCapReached, ErrLedgerUnavailable
	}

	capMinor, loc, ok := l.caps.BudgetConfig(campaignID)
	if !ok {
		return ChargeRejectedCapReached, ErrUnknownCampaign
	}

	key, periodStart := recordKey(campaignID, loc)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	vals, err := chargeScript.Run(ctx, l.store.Client, []string{key},
		capMinor, amountMinor, int(recordTTL.Seconds()), periodStart.Unix()).Int64Slice()
	if err != nil {
		l.logger.Error("budget charge script", zap.String("campaign_id", campaignID), zap.Error(err))
		l.metrics.IncrementLedgerErrors()
		return ChargeRejectedCapReached, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if len(vals) != 4 {
		l.metrics.IncrementLedgerErrors()
		return ChargeRejectedCapReached, fmt.Errorf("%w: unexpected script reply", ErrLedgerUnavailable)
	}

	committed, spent, crossed := vals[0] == 1, vals[1], vals[3]
	if !committed {
		return ChargeRejectedCapReached, nil
	}

	l.metrics.SetSpendTotal(campaignID, float64(spent))
	if crossed >= 0 {
		state := models.BudgetStateFromCode(crossed)
		l.metrics.IncrementThresholdTransitions(string(state))
		l.notifier.NotifyThresholdCrossed(campaignID, state, periodStart)
	}
	return ChargeCommitted, nil
}

// CheckEligible reports whether the campaign may enter auctions: its budget
// state for the current period is anything but paused. A missing record means
// nothing has been spent this period, so the campaign is eligible. Store
// failures make the campaign ineligible (fail closed) and surface
// ErrLedgerUnavailable.
func (l *Ledger) CheckEligible(ctx context.Context, campaignID string) (bool, error) {
	if l.store == nil || l.store.Client == nil {
		return false, ErrLedgerUnavailable
	}
	_, loc, ok := l.caps.BudgetConfig(campaignID)
	if !ok {
		return false, nil
	}
	key, _ := recordKey(campaignID, loc)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	code, err := l.store.Client.HGet(ctx, key, "state").Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		l.metrics.IncrementLedgerErrors()
		return false, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return models.BudgetStateFromCode(code) != models.BudgetPaused, nil
}

// State returns a read-only snapshot of the campaign's budget record for the
// current period. Campaigns that have not been charged this period report a
// fresh active record.
func (l *Ledger) State(ctx context.Context, campaignID string) (models.BudgetSnapshot, error) {
	if l.store == nil || l.store.Client == nil {
		return models.BudgetSnapshot{}, ErrLedgerUnavailable
	}
	capMinor, loc, ok := l.caps.BudgetConfig(campaignID)
	if !ok {
		return models.BudgetSnapshot{}, ErrUnknownCampaign
	}
	key, periodStart := recordKey(campaignID, loc)

	snap := models.BudgetSnapshot{
		CampaignID:  campaignID,
		CapMinor:    capMinor,
		State:       models.BudgetActive,
		PeriodStart: periodStart,
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	vals, err := l.store.Client.HMGet(ctx, key, "spent", "state").Result()
	if err != nil {
		l.metrics.IncrementLedgerErrors()
		return models.BudgetSnapshot{}, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if spent, ok := parseRedisInt(vals[0]); ok {
		snap.SpentMinor = spent
	}
	if code, ok := parseRedisInt(vals[1]); ok {
		snap.State = models.BudgetStateFromCode(code)
	}
	return snap, nil
}

// parseRedisInt interprets an HMGET reply element, which is either nil or a
// string holding an integer.
func parseRedisInt(v interface{}) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	var n int64
	if _, err := fmt.Sscan(s, &n); err != nil {
		return 0, false
	}
	return n, true
}
