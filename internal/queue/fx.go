package queue

import (
	"context"

	"github.com/tunedeck/tunedeck/internal/cache"
	"github.com/tunedeck/tunedeck/internal/clock"
	"github.com/tunedeck/tunedeck/internal/config"
	"github.com/tunedeck/tunedeck/internal/events"
	"github.com/tunedeck/tunedeck/internal/observability/metrics"
	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
	"github.com/tunedeck/tunedeck/internal/queue/broker"
	"github.com/tunedeck/tunedeck/internal/queue/service"
	"github.com/tunedeck/tunedeck/internal/queue/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("queue",
	fx.Provide(func(cfg config.Config) *metrics.QueueMetrics {
		return metrics.QueueWithConfig(metrics.Config{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
		})
	}),
	fx.Provide(func(clk clock.Clock, policies plandomain.PolicyTable, m *metrics.QueueMetrics) *store.Store {
		return store.New(clk, policies, m)
	}),
	fx.Provide(func(policies plandomain.PolicyTable, log *zap.Logger, m *metrics.QueueMetrics) *broker.Broker {
		return broker.New(policies, log, m)
	}),
	fx.Provide(func(clk clock.Clock) cache.Cache[string, plandomain.Tier] {
		return cache.NewTTLCache[string, plandomain.Tier](clk)
	}),
	fx.Provide(events.NewOutbox),
	fx.Provide(service.NewService),
	fx.Invoke(runSweeper),
)

func runSweeper(lc fx.Lifecycle, s *store.Store, log *zap.Logger, cfg config.Config) {
	if cfg.Store.SweepInterval <= 0 {
		return
	}
	sweeper := store.NewSweeper(s, log, cfg.Store.SweepInterval)
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go sweeper.RunForever(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
