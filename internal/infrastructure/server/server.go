// Package server wires harbor's components into a running HTTP service.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/harborml/harbor/internal/api/http"
	"github.com/harborml/harbor/internal/api/middleware"
	"github.com/harborml/harbor/internal/dataset"
	"github.com/harborml/harbor/internal/domain/metadata"
	"github.com/harborml/harbor/internal/infrastructure/config"
	"github.com/harborml/harbor/internal/infrastructure/logging"
	"github.com/harborml/harbor/internal/infrastructure/monitoring"
	"github.com/harborml/harbor/internal/pubsub"
)

// Server wraps the HTTP router and its dependencies.
type Server struct {
	router   *gin.Engine
	meta     metadata.Store
	segments *dataset.Store
	engine   *pubsub.Engine
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a fully wired server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.NewFrom(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("initializing harbor server",
		zap.String("port", cfg.Server.Port),
		zap.String("datasets_root", cfg.Storage.DatasetsRoot),
	)

	metrics := monitoring.NewMetrics()

	meta := metadata.NewMemoryStore()

	segments, err := dataset.NewStore(cfg.Storage.DatasetsRoot, logger.Named("dataset"))
	if err != nil {
		return nil, err
	}
	segments.WithMetrics(metrics)

	engine := pubsub.NewEngine(cfg.Delivery.PushTimeout, logger.Named("delivery")).
		WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := httpapi.NewHandlers(meta, segments, engine, logger.Named("http")).
		WithMetrics(metrics)
	registerRoutes(router, handlers)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	logger.Info("server initialized")

	return &Server{
		router:   router,
		meta:     meta,
		segments: segments,
		engine:   engine,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// registerRoutes binds every API route to its handler.
func registerRoutes(router *gin.Engine, h *httpapi.Handlers) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	ns := router.Group("/namespaces")
	{
		ns.POST("", h.CreateNamespace)
		ns.GET("", h.ListNamespaces)
		ns.GET("/:ns", h.GetNamespace)
		ns.DELETE("/:ns", h.DeleteNamespace)

		topics := ns.Group("/:ns/topics")
		{
			topics.POST("", h.CreateTopic)
			topics.GET("", h.ListTopics)
			topics.DELETE("/:topic", h.DeleteTopic)
			topics.POST("/:topic/publish", h.Publish)

			subs := topics.Group("/:topic/subscriptions")
			{
				subs.POST("", h.CreateSubscription)
				subs.GET("", h.ListSubscriptions)
				subs.DELETE("/:sub", h.DeleteSubscription)
			}
		}

		datasets := ns.Group("/:ns/datasets")
		{
			datasets.POST("", h.CreateDataset)
			datasets.GET("", h.ListDatasets)
			datasets.GET("/:ds", h.GetDataset)
			datasets.DELETE("/:ds", h.DeleteDataset)
			datasets.POST("/:ds/write", h.WriteDataset)
			datasets.GET("/:ds/read", h.ReadDataset)
		}
	}
}

// Router exposes the underlying router for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close flushes buffered log entries.
func (s *Server) Close() error {
	s.logger.Info("shutting down server")
	s.logger.Sync()
	return nil
}
