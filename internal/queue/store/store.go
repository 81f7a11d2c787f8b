package store

import (
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/tunedeck/tunedeck/internal/clock"
	"github.com/tunedeck/tunedeck/internal/observability/metrics"
	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
	queuedomain "github.com/tunedeck/tunedeck/internal/queue/domain"
)

// Store is the single source of truth for the latest queue snapshot per
// tenant. It keeps exactly one record per tenant and resolves concurrent
// writes by the snapshot's embedded UpdatedAt, not by arrival order.
//
// Tier resolution happens in the caller before Put so the per-tenant lock
// is never held across an external lookup; writes to different tenants do
// not contend with each other.
type Store struct {
	slots    *xsync.Map[string, *slot]
	clk      clock.Clock
	policies plandomain.PolicyTable
	metrics  *metrics.QueueMetrics
}

// slot is the per-tenant record cell. Its mutex makes the recency
// compare-and-swap in Put a single atomic unit for one tenant.
type slot struct {
	mu     sync.Mutex
	record queuedomain.StoredRecord
	// present distinguishes "never written" from a zero record.
	present bool
	// dead marks a slot that has been removed from the map. A writer
	// holding a dead slot raced the removal and must retry against a
	// fresh one, otherwise its record would land in an unreachable cell.
	dead bool
}

func New(clk clock.Clock, policies plandomain.PolicyTable, m *metrics.QueueMetrics) *Store {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if policies == nil {
		policies = plandomain.DefaultPolicies()
	}
	return &Store{
		slots:    xsync.NewMap[string, *slot](),
		clk:      clk,
		policies: policies,
		metrics:  m,
	}
}

// Put applies the recency rule for one tenant: the write is accepted when
// no record exists or the incoming UpdatedAt is not older than the stored
// one. Equal timestamps accept the incoming write so retries stay
// idempotent. An expired-but-present record still participates in the
// comparison; a stale write racing a fresh one must not resurrect.
//
// Returns false when the write was superseded. That is a no-op, not an
// error.
func (s *Store) Put(snapshot queuedomain.QueueSnapshot, tier plandomain.Tier) bool {
	tenantID := strings.TrimSpace(snapshot.TenantID)
	if tenantID == "" {
		return false
	}

	for {
		cell, _ := s.slots.LoadOrStore(tenantID, &slot{})

		cell.mu.Lock()
		if cell.dead {
			cell.mu.Unlock()
			continue
		}

		if cell.present && snapshot.UpdatedAt.Before(cell.record.Snapshot.UpdatedAt) {
			cell.mu.Unlock()
			s.metrics.IncWrite("superseded")
			return false
		}

		policy := s.policies.For(tier)
		cell.record = queuedomain.StoredRecord{
			Snapshot:  snapshot,
			Tier:      tier,
			ExpiresAt: s.clk.Now().Add(policy.TTL),
		}
		cell.present = true
		cell.mu.Unlock()
		s.metrics.IncWrite("accepted")
		return true
	}
}

// Get returns the stored record for a tenant. A record past its expiry is
// treated identically to one that was never written. Reads never extend
// expiry.
func (s *Store) Get(tenantID string) (queuedomain.StoredRecord, bool) {
	cell, ok := s.slots.Load(strings.TrimSpace(tenantID))
	if !ok {
		return queuedomain.StoredRecord{}, false
	}

	cell.mu.Lock()
	record, present := cell.record, cell.present
	cell.mu.Unlock()

	if !present || record.Expired(s.clk.Now()) {
		return queuedomain.StoredRecord{}, false
	}
	return record, true
}

// Delete drops a tenant's record entirely.
func (s *Store) Delete(tenantID string) {
	tenantID = strings.TrimSpace(tenantID)
	cell, ok := s.slots.Load(tenantID)
	if !ok {
		return
	}
	cell.mu.Lock()
	cell.record = queuedomain.StoredRecord{}
	cell.present = false
	cell.dead = true
	s.slots.Delete(tenantID)
	cell.mu.Unlock()
}

// Sweep reclaims slots whose records are expired and returns how many it
// removed. Expiry is already enforced lazily on read; this only exists for
// memory hygiene on long-lived processes.
func (s *Store) Sweep() int {
	now := s.clk.Now()
	removed := 0
	s.slots.Range(func(tenantID string, cell *slot) bool {
		cell.mu.Lock()
		// The removal happens under the slot lock so a concurrent Put
		// either sees the record before it expires here, or retries on
		// the dead slot and lands in a fresh one.
		if cell.present && cell.record.Expired(now) {
			cell.record = queuedomain.StoredRecord{}
			cell.present = false
			cell.dead = true
			s.slots.Delete(tenantID)
			removed++
		}
		cell.mu.Unlock()
		return true
	})
	if removed > 0 {
		s.metrics.AddSwept(removed)
	}
	return removed
}

// Len reports the number of live slots, including ones pending sweep.
func (s *Store) Len() int {
	return s.slots.Size()
}
