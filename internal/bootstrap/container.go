package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"eeg-workload-be/internal/buffer"
	"eeg-workload-be/internal/config"
	"eeg-workload-be/internal/controller"
	"eeg-workload-be/internal/handler"
	"eeg-workload-be/internal/metrics"
	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/repository/memory"
	"eeg-workload-be/internal/service"
	"eeg-workload-be/internal/store"
	"eeg-workload-be/internal/websocket"
	"eeg-workload-be/pkg/cache"
	"eeg-workload-be/pkg/classifier"

	pktNats "eeg-workload-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	HealthController   controller.IHealthController
	SessionController  controller.ISessionController
	RealtimeController controller.IRealtimeController
	HistoryController  controller.IHistoryController
	IngestController   controller.IIngestController
	LogController      controller.ILogController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	Persistence     *service.PersistenceService

	// WebSockets
	Gateway      *websocket.Gateway
	WatchHandler *handler.WorkloadWatchHandler

	Registry *prometheus.Registry
	Logger   logger.ILogger

	pubSub *gochannel.GoChannel
	nats   *pktNats.Publisher
	redis  *redis.Client
}

// NewContainer wires the application. A nil db selects the in-memory store.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// Logging
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	gwLogger := logger.NewIsolatedLogger(cfg.App.GatewayLogFilePath)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	// Storage
	var st store.Store
	storage := "memory"
	if db != nil {
		st = store.NewGormStore(db)
		storage = "postgres"
	} else {
		st = store.NewMemoryStore()
		log.Println("[WARN] DB_CONNECTION_STRING is empty, records are kept in memory only")
	}

	// Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

	// NATS
	var bus service.EventPublisher
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			bus = natsPub
		}
	}

	// Redis
	var rdb *redis.Client
	var workloadCache *cache.WorkloadCache
	var latestStore service.LatestWorkloadStore
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		workloadCache = cache.NewWorkloadCache(rdb, cfg.App.CacheTTL)
		latestStore = workloadCache
	}

	// Classifiers
	signal, err := classifier.NewSignalProcessing(cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("signal processing classifier: %w", err)
	}
	classifiers := classifier.NewRegistry(signal)

	// Services
	buffers := buffer.NewManager(cfg.Ingest.BufferCapacity, m)
	persistence := service.NewPersistenceService(st, sysLogger, m, service.PersistenceConfig{
		BatchSize:     cfg.Persistence.BatchSize,
		FlushInterval: cfg.Persistence.FlushInterval,
	})
	sessionService := service.NewSessionService(persistence, st, buffers, memory.NewActiveSessionRepository(), sysLogger)
	realtimeService := service.NewRealtimeService(buffers)
	historyService := service.NewHistoryService(st)

	publisherService := service.NewPublisherService(service.WorkloadTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, service.WorkloadTopic, bus, latestStore, sysLogger)

	// Ingestion gateway
	hub := websocket.NewHub(cfg.Ingest.MaxConnections, gwLogger)
	go hub.Run()

	gateway := websocket.NewGateway(hub, sessionService, buffers, classifiers, persistence, publisherService, m, gwLogger, websocket.GatewayConfig{
		Secret:          cfg.Ingest.APISecret,
		AuthTimeout:     cfg.Ingest.AuthTimeout,
		PersistRaw:      cfg.Ingest.PersistRaw,
		PersistFeatures: cfg.Ingest.PersistFeatures,
		StreamName:      cfg.Ingest.StreamName,
	})

	// Controllers
	return &Container{
		HealthController:   controller.NewHealthController(storage),
		SessionController:  controller.NewSessionController(sessionService),
		RealtimeController: controller.NewRealtimeController(realtimeService, workloadCache, sysLogger),
		HistoryController:  controller.NewHistoryController(historyService),
		IngestController:   controller.NewIngestController(hub, persistence, classifiers),
		LogController:      controller.NewLogController(sysLogger, gwLogger),

		ConsumerService: consumerService,
		Persistence:     persistence,

		Gateway:      gateway,
		WatchHandler: handler.NewWorkloadWatchHandler(pubSub, service.WorkloadTopic, cfg.App.JWTSecret, sysLogger),

		Registry: reg,
		Logger:   sysLogger,

		pubSub: pubSub,
		nats:   natsPub,
		redis:  rdb,
	}, nil
}

// Shutdown closes producer connections, drains pending writes and releases
// the bus clients. Connection loops get the first share of ctx so their last
// rows are queued before the final flush.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if err := c.Gateway.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("gateway: %w", err))
	}
	if err := c.Persistence.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("persistence: %w", err))
	}
	if err := c.pubSub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event bus: %w", err))
	}
	if c.nats != nil {
		c.nats.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
