// Package rollout gates who may read match results. Scoring always runs;
// this package only controls visibility of the stored rows.
package rollout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

// Fetcher loads the current rollout row. *database.DB satisfies this.
type Fetcher interface {
	GetRolloutConfig(ctx context.Context) (*database.RolloutConfig, error)
}

// snapshot is an immutable view of the rollout row. The zero value hides
// everything, which is what a failed fetch must resolve to.
type snapshot struct {
	shadowMode       bool
	driverUIEnabled  bool
	companyUIEnabled bool
	betaIDs          map[string]bool
	fetchedAt        time.Time
	valid            bool
}

// Controller answers visibility questions from a TTL-cached snapshot so
// that hot read paths do not hit the database on every call.
type Controller struct {
	fetcher Fetcher
	ttl     time.Duration
	log     *zap.Logger

	mu   sync.RWMutex
	snap snapshot
}

// NewController creates a controller. The cache starts cold; the first
// visibility check fetches.
func NewController(fetcher Fetcher, ttl time.Duration, log *zap.Logger) *Controller {
	return &Controller{fetcher: fetcher, ttl: ttl, log: log}
}

// IsVisible reports whether match results may be shown to the given
// subject. Unknown roles and fetch failures are both hidden.
func (c *Controller) IsVisible(ctx context.Context, role database.SubjectRole, subjectID string) bool {
	snap := c.current(ctx)
	if !snap.valid || snap.shadowMode {
		return false
	}
	switch role {
	case database.RoleDriver:
		return snap.driverUIEnabled
	case database.RoleCompany:
		return snap.companyUIEnabled || snap.betaIDs[subjectID]
	default:
		return false
	}
}

// Refresh drops the cached snapshot so the next check re-fetches. Used
// after an operator edit to make it take effect immediately.
func (c *Controller) Refresh() {
	c.mu.Lock()
	c.snap = snapshot{}
	c.mu.Unlock()
}

// current returns a fresh-enough snapshot, fetching when the cache has
// expired. A fetch failure yields the hidden zero snapshot rather than
// serving a stale one past its TTL.
func (c *Controller) current(ctx context.Context) snapshot {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if snap.valid && time.Since(snap.fetchedAt) < c.ttl {
		return snap
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while this one waited for the lock
	if c.snap.valid && time.Since(c.snap.fetchedAt) < c.ttl {
		return c.snap
	}

	cfg, err := c.fetcher.GetRolloutConfig(ctx)
	if err != nil {
		c.log.Warn("rollout config fetch failed, hiding all results", zap.Error(err))
		c.snap = snapshot{}
		return c.snap
	}

	betaIDs := make(map[string]bool, len(cfg.CompanyBetaIDs))
	for _, id := range cfg.CompanyBetaIDs {
		betaIDs[id] = true
	}
	c.snap = snapshot{
		shadowMode:       cfg.ShadowMode,
		driverUIEnabled:  cfg.DriverUIEnabled,
		companyUIEnabled: cfg.CompanyUIEnabled,
		betaIDs:          betaIDs,
		fetchedAt:        time.Now(),
		valid:            true,
	}
	return c.snap
}
