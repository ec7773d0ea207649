package budget

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/markethub/adengine/internal/db"
	"github.com/markethub/adengine/internal/models"
)

// setupTestRedis spins up an in-memory Redis and wraps it in a RedisStore.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *db.RedisStore) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	store := &db.RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		Ctx:    context.Background(),
	}
	return s, store
}

// testCampaigns builds a CampaignStore with a single campaign.
func testCampaigns(id string, capMinor int64, tz string) *models.CampaignStore {
	cs := models.NewCampaignStore()
	cs.ReplaceAll([]models.Campaign{
		{ID: id, Name: "test", DailyCapMinor: capMinor, Timezone: tz, Active: true},
	})
	return cs
}

// recordingNotifier captures threshold crossings for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

type notification struct {
	campaignID  string
	state       models.BudgetState
	periodStart time.Time
}

func (n *recordingNotifier) NotifyThresholdCrossed(campaignID string, state models.BudgetState, periodStart time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{campaignID: campaignID, state: state, periodStart: periodStart})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification, len(n.events))
	copy(out, n.events)
	return out
}

// newTestLedger wires a ledger over the given store with a recording notifier.
func newTestLedger(store *db.RedisStore, caps CapSource) (*Ledger, *recordingNotifier) {
	n := &recordingNotifier{}
	l := NewLedger(store, caps, n, nil, time.Second, zap.NewNop())
	return l, n
}
