package service

import (
	"context"
	"strings"
	"time"

	"github.com/tunedeck/tunedeck/internal/cache"
	"github.com/tunedeck/tunedeck/internal/config"
	"github.com/tunedeck/tunedeck/internal/events"
	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
	"github.com/tunedeck/tunedeck/internal/queue/broker"
	queuedomain "github.com/tunedeck/tunedeck/internal/queue/domain"
	"github.com/tunedeck/tunedeck/internal/queue/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Store    *store.Store
	Broker   *broker.Broker
	Resolver plandomain.Resolver
	Cache    cache.Cache[string, plandomain.Tier]
	Outbox   *events.Outbox `optional:"true"`
	Config   config.Config
}

// ServiceImpl wires the write path: resolve the tier (cached, outside any
// store lock), apply the recency-checked Put, record the audit event, and
// hand the snapshot to the broker. The broker enforces the realtime gate
// itself so ingestion stays tier-agnostic.
type ServiceImpl struct {
	log      *zap.Logger
	store    *store.Store
	broker   *broker.Broker
	resolver plandomain.Resolver
	cache    cache.Cache[string, plandomain.Tier]
	outbox   *events.Outbox
	cacheTTL time.Duration
}

func NewService(p Params) queuedomain.Service {
	cacheTTL := p.Config.Plan.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &ServiceImpl{
		log:      p.Log.Named("queue.service"),
		store:    p.Store,
		broker:   p.Broker,
		resolver: p.Resolver,
		cache:    p.Cache,
		outbox:   p.Outbox,
		cacheTTL: cacheTTL,
	}
}

func (s *ServiceImpl) Ingest(ctx context.Context, snapshot queuedomain.QueueSnapshot) (bool, error) {
	tenantID := strings.TrimSpace(snapshot.TenantID)
	if tenantID == "" {
		return false, queuedomain.ErrInvalidTenant
	}

	tier := s.resolveTier(ctx, tenantID)

	accepted := s.store.Put(snapshot, tier)
	if !accepted {
		s.recordEvent(ctx, events.EventSnapshotSuperseded, snapshot, tier)
		return false, nil
	}

	s.recordEvent(ctx, events.EventSnapshotIngested, snapshot, tier)
	// The broker enforces the realtime tier gate; superseded writes
	// never fan out, subscribers only see the winning snapshot.
	s.broker.Publish(snapshot, tier)
	return true, nil
}

func (s *ServiceImpl) Latest(ctx context.Context, tenantID string) (queuedomain.QueueSnapshot, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return queuedomain.QueueSnapshot{}, queuedomain.ErrInvalidTenant
	}
	record, ok := s.store.Get(tenantID)
	if !ok {
		return queuedomain.QueueSnapshot{}, queuedomain.ErrSnapshotNotFound
	}
	return record.Snapshot, nil
}

func (s *ServiceImpl) resolveTier(ctx context.Context, tenantID string) plandomain.Tier {
	if tier, ok := s.cache.Get(tenantID); ok {
		return tier
	}
	tier, err := s.resolver.ResolveTier(ctx, tenantID)
	if err != nil {
		s.log.Warn("tier resolution failed, using free",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return plandomain.TierFree
	}
	s.cache.Set(tenantID, tier, s.cacheTTL)
	return tier
}

func (s *ServiceImpl) recordEvent(ctx context.Context, eventType string, snapshot queuedomain.QueueSnapshot, tier plandomain.Tier) {
	if s.outbox == nil {
		return
	}
	payload := events.SnapshotIngestedPayload{
		TenantID:  snapshot.TenantID,
		Tier:      string(tier),
		Reason:    snapshot.Reason,
		QueueSize: len(snapshot.Queue),
		UpdatedAt: snapshot.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if snapshot.NowPlaying != nil {
		payload.NowPlaying = snapshot.NowPlaying.Title
	}
	err := s.outbox.Publish(ctx, events.Event{
		TenantID: snapshot.TenantID,
		Type:     eventType,
		Payload:  payload.ToMap(),
	})
	if err != nil {
		s.log.Warn("failed to record queue event",
			zap.String("tenant_id", snapshot.TenantID),
			zap.Error(err),
		)
	}
}
