package broker

import (
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/tunedeck/tunedeck/internal/observability/metrics"
	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
	queuedomain "github.com/tunedeck/tunedeck/internal/queue/domain"
	"go.uber.org/zap"
)

// Update is the event fanned out to subscribers on every accepted write.
type Update struct {
	TenantID string
	Snapshot queuedomain.QueueSnapshot
}

// Subscriber is a live sink for one dashboard connection. Send must not
// block; implementations back it with a buffered channel or an immediate
// error for a dead connection.
type Subscriber interface {
	ID() string
	Send(update Update) error
}

// Broker fans accepted snapshots out to subscribers joined to a tenant.
// There is no backlog: a subscriber that joins after a publish fetches the
// current snapshot through the read endpoint instead of replaying.
type Broker struct {
	topics   *xsync.Map[string, *topic]
	policies plandomain.PolicyTable
	log      *zap.Logger
	metrics  *metrics.QueueMetrics
}

type topic struct {
	mu   sync.Mutex
	subs map[string]Subscriber
	// dead marks a topic that has been removed from the map. A joiner
	// holding a dead topic raced the removal and must retry against a
	// fresh one, otherwise its subscription would never see a publish.
	dead bool
}

func New(policies plandomain.PolicyTable, log *zap.Logger, m *metrics.QueueMetrics) *Broker {
	if policies == nil {
		policies = plandomain.DefaultPolicies()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{
		topics:   xsync.NewMap[string, *topic](),
		policies: policies,
		log:      log.Named("queue.broker"),
		metrics:  m,
	}
}

// Join registers interest in a tenant. Repeated joins by the same
// subscriber are idempotent.
func (b *Broker) Join(tenantID string, sub Subscriber) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" || sub == nil {
		return
	}
	for {
		entry, _ := b.topics.LoadOrStore(tenantID, &topic{subs: make(map[string]Subscriber)})
		entry.mu.Lock()
		if entry.dead {
			entry.mu.Unlock()
			continue
		}
		_, existed := entry.subs[sub.ID()]
		entry.subs[sub.ID()] = sub
		entry.mu.Unlock()
		if !existed {
			b.metrics.IncSubscribers()
		}
		return
	}
}

// Leave deregisters interest. Safe to call for a subscriber that never
// joined.
func (b *Broker) Leave(tenantID string, sub Subscriber) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" || sub == nil {
		return
	}
	entry, ok := b.topics.Load(tenantID)
	if !ok {
		return
	}
	entry.mu.Lock()
	_, existed := entry.subs[sub.ID()]
	delete(entry.subs, sub.ID())
	// The removal happens under the topic lock so a concurrent Join
	// either lands before the emptiness check or retries on the dead
	// topic and joins a fresh one.
	if len(entry.subs) == 0 {
		entry.dead = true
		b.topics.Delete(tenantID)
	}
	entry.mu.Unlock()
	if existed {
		b.metrics.DecSubscribers()
	}
}

// Publish delivers a snapshot to every subscriber currently joined to its
// tenant, provided the tier permits realtime delivery. With no subscribers
// it is a silent no-op; nothing is queued for later. A failed send is
// logged and dropped without affecting other subscribers or the writer.
func (b *Broker) Publish(snapshot queuedomain.QueueSnapshot, tier plandomain.Tier) {
	if !b.policies.For(tier).RealtimeEnabled {
		b.metrics.IncPublish("gated")
		return
	}

	entry, ok := b.topics.Load(strings.TrimSpace(snapshot.TenantID))
	if !ok {
		b.metrics.IncPublish("idle")
		return
	}

	entry.mu.Lock()
	subs := make([]Subscriber, 0, len(entry.subs))
	for _, sub := range entry.subs {
		subs = append(subs, sub)
	}
	entry.mu.Unlock()

	if len(subs) == 0 {
		b.metrics.IncPublish("idle")
		return
	}

	update := Update{TenantID: snapshot.TenantID, Snapshot: snapshot}
	for _, sub := range subs {
		if err := sub.Send(update); err != nil {
			b.metrics.IncDelivery("dropped")
			b.log.Debug("dropped update for subscriber",
				zap.String("tenant_id", snapshot.TenantID),
				zap.String("subscriber_id", sub.ID()),
				zap.Error(err),
			)
			continue
		}
		b.metrics.IncDelivery("sent")
	}
	b.metrics.IncPublish("delivered")
}

// Subscribers reports how many subscribers are joined to a tenant.
func (b *Broker) Subscribers(tenantID string) int {
	entry, ok := b.topics.Load(strings.TrimSpace(tenantID))
	if !ok {
		return 0
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return len(entry.subs)
}
