package store

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/tunedeck/tunedeck/internal/clock"
	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
	queuedomain "github.com/tunedeck/tunedeck/internal/queue/domain"
)

var storeEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestStore(clk clock.Clock) *Store {
	return New(clk, plandomain.DefaultPolicies(), nil)
}

func snapshotAt(tenantID string, updatedAt time.Time, reason string) queuedomain.QueueSnapshot {
	return queuedomain.QueueSnapshot{
		TenantID:  tenantID,
		UpdatedAt: updatedAt,
		Queue:     []queuedomain.TrackSummary{},
		Reason:    reason,
	}
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(clock.SystemClock{})

	if !s.Put(snapshotAt("g1", storeEpoch, "live"), plandomain.TierPro) {
		t.Fatalf("first write must be accepted")
	}
	record, ok := s.Get("g1")
	if !ok {
		t.Fatalf("expected record for g1")
	}
	if record.Tier != plandomain.TierPro {
		t.Fatalf("expected pro tier on record, got %q", record.Tier)
	}
	if !record.Snapshot.UpdatedAt.Equal(storeEpoch) {
		t.Fatalf("unexpected updatedAt %v", record.Snapshot.UpdatedAt)
	}
}

func TestGetUnknownTenant(t *testing.T) {
	s := newTestStore(clock.SystemClock{})
	if _, ok := s.Get("nope"); ok {
		t.Fatalf("expected absent record")
	}
}

func TestPutRejectsOlderWrite(t *testing.T) {
	s := newTestStore(clock.SystemClock{})

	if !s.Put(snapshotAt("g1", storeEpoch.Add(time.Hour), "newer"), plandomain.TierBasic) {
		t.Fatalf("newer write must be accepted")
	}
	if s.Put(snapshotAt("g1", storeEpoch, "stale"), plandomain.TierBasic) {
		t.Fatalf("stale write must be superseded")
	}

	record, ok := s.Get("g1")
	if !ok {
		t.Fatalf("expected record")
	}
	if record.Snapshot.Reason != "newer" {
		t.Fatalf("stale write overwrote the record: %+v", record.Snapshot)
	}
}

func TestPutEqualTimestampWins(t *testing.T) {
	s := newTestStore(clock.SystemClock{})

	s.Put(snapshotAt("g1", storeEpoch, "first"), plandomain.TierBasic)
	if !s.Put(snapshotAt("g1", storeEpoch, "retry"), plandomain.TierBasic) {
		t.Fatalf("equal timestamp must be accepted so retries stay idempotent")
	}
	record, _ := s.Get("g1")
	if record.Snapshot.Reason != "retry" {
		t.Fatalf("expected incoming write to win the tie, got %q", record.Snapshot.Reason)
	}
}

func TestPutIdempotent(t *testing.T) {
	s := newTestStore(clock.SystemClock{})
	snapshot := snapshotAt("g1", storeEpoch, "live")

	s.Put(snapshot, plandomain.TierBasic)
	before, _ := s.Get("g1")
	s.Put(snapshot, plandomain.TierBasic)
	after, _ := s.Get("g1")

	if before.Snapshot.Reason != after.Snapshot.Reason ||
		!before.Snapshot.UpdatedAt.Equal(after.Snapshot.UpdatedAt) {
		t.Fatalf("duplicate put changed observable state: %+v vs %+v", before, after)
	}
}

func TestPutEmptyTenantRejected(t *testing.T) {
	s := newTestStore(clock.SystemClock{})
	if s.Put(snapshotAt("  ", storeEpoch, "live"), plandomain.TierBasic) {
		t.Fatalf("empty tenant must not be stored")
	}
}

func TestExpiryBoundary(t *testing.T) {
	clk := clock.NewManual(storeEpoch)
	policies := plandomain.PolicyTable{
		plandomain.TierFree:  {TTL: time.Minute},
		plandomain.TierBasic: {TTL: 10 * time.Minute, RealtimeEnabled: true},
	}
	s := New(clk, policies, nil)

	s.Put(snapshotAt("g1", storeEpoch, "live"), plandomain.TierBasic)

	clk.Advance(10*time.Minute - time.Second)
	if _, ok := s.Get("g1"); !ok {
		t.Fatalf("record must be present just before TTL")
	}

	clk.Advance(2 * time.Second)
	if _, ok := s.Get("g1"); ok {
		t.Fatalf("record must be absent just after TTL")
	}
}

func TestReadsDoNotExtendExpiry(t *testing.T) {
	clk := clock.NewManual(storeEpoch)
	policies := plandomain.PolicyTable{
		plandomain.TierFree: {TTL: time.Minute},
	}
	s := New(clk, policies, nil)

	s.Put(snapshotAt("g1", storeEpoch, "live"), plandomain.TierFree)
	for i := 0; i < 5; i++ {
		clk.Advance(20 * time.Second)
		s.Get("g1")
	}
	if _, ok := s.Get("g1"); ok {
		t.Fatalf("reads must not extend retention")
	}
}

func TestExpiredRecordStillBlocksStaleWrite(t *testing.T) {
	clk := clock.NewManual(storeEpoch)
	policies := plandomain.PolicyTable{
		plandomain.TierFree: {TTL: time.Minute},
	}
	s := New(clk, policies, nil)

	s.Put(snapshotAt("g1", storeEpoch.Add(time.Hour), "fresh"), plandomain.TierFree)
	clk.Advance(2 * time.Minute)

	if _, ok := s.Get("g1"); ok {
		t.Fatalf("record should be expired")
	}
	// A stale write racing the expired record must not resurrect it.
	if s.Put(snapshotAt("g1", storeEpoch, "stale"), plandomain.TierFree) {
		t.Fatalf("stale write must still lose the recency comparison against an expired record")
	}
}

func TestFreshWriteAfterExpiryRestartsTTL(t *testing.T) {
	clk := clock.NewManual(storeEpoch)
	policies := plandomain.PolicyTable{
		plandomain.TierFree: {TTL: time.Minute},
	}
	s := New(clk, policies, nil)

	s.Put(snapshotAt("g1", storeEpoch, "old"), plandomain.TierFree)
	clk.Advance(5 * time.Minute)

	if !s.Put(snapshotAt("g1", storeEpoch.Add(time.Minute), "new"), plandomain.TierFree) {
		t.Fatalf("newer write must be accepted after expiry")
	}
	if _, ok := s.Get("g1"); !ok {
		t.Fatalf("expected fresh record with restarted TTL")
	}
}

func TestSweepRemovesExpiredSlots(t *testing.T) {
	clk := clock.NewManual(storeEpoch)
	policies := plandomain.PolicyTable{
		plandomain.TierFree: {TTL: time.Minute},
		plandomain.TierPro:  {TTL: time.Hour, RealtimeEnabled: true},
	}
	s := New(clk, policies, nil)

	s.Put(snapshotAt("g1", storeEpoch, "live"), plandomain.TierFree)
	s.Put(snapshotAt("g2", storeEpoch, "live"), plandomain.TierPro)

	clk.Advance(2 * time.Minute)
	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept slot, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 remaining slot, got %d", s.Len())
	}
	if _, ok := s.Get("g2"); !ok {
		t.Fatalf("unexpired record must survive sweep")
	}
}

// A fresh write racing the sweeper must never vanish: either it lands
// before the sweep sees the slot (and is no longer expired), or it retries
// into a fresh slot after the removal.
func TestSweepDoesNotDropConcurrentFreshWrite(t *testing.T) {
	policies := plandomain.PolicyTable{
		plandomain.TierFree: {TTL: time.Minute},
	}

	for trial := 0; trial < 200; trial++ {
		clk := clock.NewManual(storeEpoch)
		s := New(clk, policies, nil)

		s.Put(snapshotAt("g1", storeEpoch, "old"), plandomain.TierFree)
		clk.Advance(2 * time.Minute)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Sweep()
		}()
		go func() {
			defer wg.Done()
			s.Put(snapshotAt("g1", storeEpoch.Add(time.Hour), "fresh"), plandomain.TierFree)
		}()
		wg.Wait()

		record, ok := s.Get("g1")
		if !ok {
			t.Fatalf("trial %d: fresh write lost to concurrent sweep", trial)
		}
		if record.Snapshot.Reason != "fresh" {
			t.Fatalf("trial %d: expected fresh record, got %+v", trial, record.Snapshot)
		}
	}
}

// Recency invariant under concurrency: after any interleaving of writes
// with distinct timestamps, the visible record is exactly the one with the
// maximum UpdatedAt.
func TestConcurrentWritesRecencyInvariant(t *testing.T) {
	const writers = 64

	for trial := 0; trial < 20; trial++ {
		s := newTestStore(clock.SystemClock{})

		timestamps := make([]time.Time, writers)
		for i := range timestamps {
			timestamps[i] = storeEpoch.Add(time.Duration(i) * time.Second)
		}
		rand.Shuffle(len(timestamps), func(i, j int) {
			timestamps[i], timestamps[j] = timestamps[j], timestamps[i]
		})

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(ts time.Time) {
				defer wg.Done()
				s.Put(snapshotAt("g1", ts, ts.String()), plandomain.TierPro)
			}(timestamps[i])
		}
		wg.Wait()

		want := storeEpoch.Add(time.Duration(writers-1) * time.Second)
		record, ok := s.Get("g1")
		if !ok {
			t.Fatalf("trial %d: record missing after concurrent writes", trial)
		}
		if !record.Snapshot.UpdatedAt.Equal(want) {
			t.Fatalf("trial %d: expected max timestamp %v, got %v",
				trial, want, record.Snapshot.UpdatedAt)
		}
	}
}

func TestConcurrentWritesAcrossTenantsIndependent(t *testing.T) {
	const tenants = 16
	const writesPerTenant = 32

	s := newTestStore(clock.SystemClock{})

	var wg sync.WaitGroup
	for tenant := 0; tenant < tenants; tenant++ {
		tenantID := fmt.Sprintf("g%d", tenant)
		for i := 0; i < writesPerTenant; i++ {
			wg.Add(1)
			go func(id string, seq int) {
				defer wg.Done()
				s.Put(snapshotAt(id, storeEpoch.Add(time.Duration(seq)*time.Second), ""), plandomain.TierBasic)
			}(tenantID, i)
		}
	}
	wg.Wait()

	want := storeEpoch.Add(time.Duration(writesPerTenant-1) * time.Second)
	for tenant := 0; tenant < tenants; tenant++ {
		tenantID := fmt.Sprintf("g%d", tenant)
		record, ok := s.Get(tenantID)
		if !ok {
			t.Fatalf("tenant %s missing", tenantID)
		}
		if !record.Snapshot.UpdatedAt.Equal(want) {
			t.Fatalf("tenant %s: expected %v, got %v", tenantID, want, record.Snapshot.UpdatedAt)
		}
	}
}

// Two writers racing: whichever write physically lands first, the visible
// state is the one with the later embedded timestamp.
func TestTwoWriterScenario(t *testing.T) {
	older := snapshotAt("g1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "")
	trackX := queuedomain.TrackSummary{Title: "trackX", Author: "someone", DurationMS: 1000}
	newer := queuedomain.QueueSnapshot{
		TenantID:  "g1",
		UpdatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Queue:     []queuedomain.TrackSummary{trackX},
	}

	for trial := 0; trial < 50; trial++ {
		s := newTestStore(clock.SystemClock{})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); s.Put(older, plandomain.TierBasic) }()
		go func() { defer wg.Done(); s.Put(newer, plandomain.TierBasic) }()
		wg.Wait()

		record, ok := s.Get("g1")
		if !ok {
			t.Fatalf("record missing")
		}
		if len(record.Snapshot.Queue) != 1 || record.Snapshot.Queue[0].Title != "trackX" {
			t.Fatalf("trial %d: expected trackX to win, got %+v", trial, record.Snapshot.Queue)
		}
	}
}
