package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tunedeck/tunedeck/internal/config"
	"github.com/tunedeck/tunedeck/internal/observability/logger"
	"github.com/tunedeck/tunedeck/internal/queue/broker"
	queuedomain "github.com/tunedeck/tunedeck/internal/queue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server carries the HTTP handler dependencies.
type Server struct {
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	queueSvc      queuedomain.Service
	broker        *broker.Broker
	genID         *snowflake.Node
	ingestLimiter *rateLimiter
}

type Params struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	QueueSvc queuedomain.Service
	Broker   *broker.Broker
	GenID    *snowflake.Node
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:           p.Config,
		db:            p.DB,
		log:           p.Log.Named("server"),
		queueSvc:      p.QueueSvc,
		broker:        p.Broker,
		genID:         p.GenID,
		ingestLimiter: newRateLimiter(p.Config.Ingest.RateLimit, p.Config.Ingest.RateWindow),
	}
}

// NewEngine builds the gin engine with the shared middleware stack.
func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	if len(cfg.HTTP.CORSOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.HTTP.CORSOrigins
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-Id")
		engine.Use(cors.New(corsCfg))
	}

	return engine
}

// RegisterAPIRoutes mounts the queue-sync API.
func (s *Server) RegisterAPIRoutes(engine *gin.Engine) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	{
		api.POST("/queue/snapshots", s.IngestAuthRequired(), s.ReceiveQueueSnapshot)
		api.GET("/queue/snapshot", s.GetQueueSnapshot)
		api.GET("/queue/stream", s.StreamQueue)
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     engine,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		// WriteTimeout stays unset by default; the SSE stream holds its
		// connection open indefinitely.
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server, engine *gin.Engine) {
		s.RegisterAPIRoutes(engine)
	}),
	fx.Invoke(RunHTTP),
)
