package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/factory-platform/production-service/pkg/events"
	"github.com/factory-platform/production-service/pkg/kafka"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/metrics"
	"github.com/factory-platform/production-service/pkg/middleware"
	"github.com/factory-platform/production-service/pkg/mongodb"
	"github.com/factory-platform/production-service/pkg/outbox"
	"github.com/factory-platform/production-service/pkg/tracing"

	"github.com/factory-platform/production-service/internal/api/handlers"
	"github.com/factory-platform/production-service/internal/application"
	mongoRepo "github.com/factory-platform/production-service/internal/infrastructure/mongodb"
)

const serviceName = "production-service"

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), loadConfig(), appDependencies{}, signalCh); err != nil {
		os.Exit(1)
	}
}

type tracerProvider interface {
	Shutdown(ctx context.Context) error
}

type mongoClient interface {
	Database() *mongo.Database
	Close(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

type outboxPublisher interface {
	Start(ctx context.Context) error
	Stop() error
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type stageRepository interface {
	application.StageRepository
	GetOutboxRepository() outbox.Repository
}

type appDependencies struct {
	initTracing            func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error)
	newMetrics             func(cfg *metrics.Config) *metrics.Metrics
	newMongoClient         func(ctx context.Context, cfg *mongodb.Config) (mongoClient, error)
	newKafkaProducer       func(cfg *kafka.Config) *kafka.Producer
	newBreakerProducer     func(p *kafka.Producer, logger *logging.Logger, m *metrics.Metrics) *kafka.CircuitBreakerProducer
	newEventFactory        func(source string) *events.EventFactory
	newStageRepository     func(db *mongo.Database) stageRepository
	newWorkOrderRepository func(db *mongo.Database) application.WorkOrderRepository
	newOutboxPublisher     func(repo outbox.Repository, producer outbox.EventPublisher, logger *logging.Logger, cfg *outbox.PublisherConfig) outboxPublisher
	newStageService        func(repo application.StageRepository, factory *events.EventFactory, topic string, logger *logging.Logger, m *metrics.Metrics) handlers.StageService
	newWorkOrderService    func(repo application.WorkOrderRepository, stageRepo application.StageRepository, factory *events.EventFactory, topic string, logger *logging.Logger, m *metrics.Metrics) handlers.WorkOrderService
	newHTTPServer          func(addr string, handler http.Handler) httpServer
}

func defaultDependencies() appDependencies {
	return appDependencies{
		initTracing: func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error) {
			return tracing.Initialize(ctx, cfg)
		},
		newMetrics: metrics.New,
		newMongoClient: func(ctx context.Context, cfg *mongodb.Config) (mongoClient, error) {
			return mongodb.NewClient(ctx, cfg)
		},
		newKafkaProducer:   kafka.NewProducer,
		newBreakerProducer: kafka.NewCircuitBreakerProducer,
		newEventFactory:    events.NewEventFactory,
		newStageRepository: func(db *mongo.Database) stageRepository {
			return mongoRepo.NewStageRepository(db)
		},
		newWorkOrderRepository: func(db *mongo.Database) application.WorkOrderRepository {
			return mongoRepo.NewWorkOrderRepository(db)
		},
		newOutboxPublisher: func(repo outbox.Repository, producer outbox.EventPublisher, logger *logging.Logger, cfg *outbox.PublisherConfig) outboxPublisher {
			return outbox.NewPublisher(repo, producer, logger, cfg)
		},
		newStageService: func(repo application.StageRepository, factory *events.EventFactory, topic string, logger *logging.Logger, m *metrics.Metrics) handlers.StageService {
			return application.NewStageApplicationService(repo, factory, topic, logger, m)
		},
		newWorkOrderService: func(repo application.WorkOrderRepository, stageRepo application.StageRepository, factory *events.EventFactory, topic string, logger *logging.Logger, m *metrics.Metrics) handlers.WorkOrderService {
			return application.NewWorkOrderApplicationService(repo, stageRepo, factory, topic, logger, m)
		},
		newHTTPServer: func(addr string, handler http.Handler) httpServer {
			return &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
		},
	}
}

func (d appDependencies) withDefaults() appDependencies {
	def := defaultDependencies()
	if d.initTracing == nil {
		d.initTracing = def.initTracing
	}
	if d.newMetrics == nil {
		d.newMetrics = def.newMetrics
	}
	if d.newMongoClient == nil {
		d.newMongoClient = def.newMongoClient
	}
	if d.newKafkaProducer == nil {
		d.newKafkaProducer = def.newKafkaProducer
	}
	if d.newBreakerProducer == nil {
		d.newBreakerProducer = def.newBreakerProducer
	}
	if d.newEventFactory == nil {
		d.newEventFactory = def.newEventFactory
	}
	if d.newStageRepository == nil {
		d.newStageRepository = def.newStageRepository
	}
	if d.newWorkOrderRepository == nil {
		d.newWorkOrderRepository = def.newWorkOrderRepository
	}
	if d.newOutboxPublisher == nil {
		d.newOutboxPublisher = def.newOutboxPublisher
	}
	if d.newStageService == nil {
		d.newStageService = def.newStageService
	}
	if d.newWorkOrderService == nil {
		d.newWorkOrderService = def.newWorkOrderService
	}
	if d.newHTTPServer == nil {
		d.newHTTPServer = def.newHTTPServer
	}
	return d
}

func run(ctx context.Context, config *Config, deps appDependencies, signalCh <-chan os.Signal) error {
	deps = deps.withDefaults()
	if config == nil {
		config = loadConfig()
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting production-service API")

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tp, err := deps.initTracing(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// continue without tracing
	} else if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := deps.newMetrics(metricsConfig)
	logger.Info("Metrics initialized")

	client, err := deps.newMongoClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if client != nil {
		defer client.Close(ctx)
	}
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	kafkaProducer := deps.newKafkaProducer(config.Kafka)
	breakerProducer := deps.newBreakerProducer(kafkaProducer, logger, m)
	if breakerProducer != nil {
		defer func() {
			_ = breakerProducer.Close()
		}()
	}
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	eventFactory := deps.newEventFactory("/production-service")

	var db *mongo.Database
	if client != nil {
		db = client.Database()
	}
	stageRepo := deps.newStageRepository(db)
	workOrderRepo := deps.newWorkOrderRepository(db)

	publisher := deps.newOutboxPublisher(
		stageRepo.GetOutboxRepository(),
		breakerProducer,
		logger,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := publisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		return fmt.Errorf("failed to start outbox publisher: %w", err)
	}
	defer func() {
		_ = publisher.Stop()
	}()
	logger.Info("Outbox publisher started")

	stageService := deps.newStageService(stageRepo, eventFactory, kafka.Topics.ProductionEvents, logger, m)
	workOrderService := deps.newWorkOrderService(workOrderRepo, stageRepo, eventFactory, kafka.Topics.WorkOrderEvents, logger, m)

	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		if client == nil {
			return fmt.Errorf("mongo client unavailable")
		}
		return client.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.ActorAuth(middlewareConfig.ActorAuth))

	stageHandlers := handlers.NewStageHandlers(stageService, logger)
	stageHandlers.RegisterRoutes(apiV1)

	workOrderHandlers := handlers.NewWorkOrderHandlers(workOrderService, logger)
	workOrderHandlers.RegisterRoutes(apiV1)

	srv := deps.newHTTPServer(config.ServerAddr, router)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	if signalCh == nil {
		signalCh = make(chan os.Signal, 1)
	}
	select {
	case <-signalCh:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "production_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
