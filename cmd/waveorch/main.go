package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/aescanero/waveorch/internal/application/escalation"
	"github.com/aescanero/waveorch/internal/application/lanes"
	"github.com/aescanero/waveorch/internal/application/manifests"
	"github.com/aescanero/waveorch/internal/application/orchestrator"
	"github.com/aescanero/waveorch/internal/application/workers"
	"github.com/aescanero/waveorch/internal/config"
	memoryevents "github.com/aescanero/waveorch/pkg/adapters/events/memory"
	redisevents "github.com/aescanero/waveorch/pkg/adapters/events/redis"
	yamlmanifests "github.com/aescanero/waveorch/pkg/adapters/manifests/yaml"
	"github.com/aescanero/waveorch/pkg/adapters/metrics/prometheus"
	memorystorage "github.com/aescanero/waveorch/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/waveorch/pkg/adapters/storage/redis"
	"github.com/aescanero/waveorch/pkg/adapters/waves/httpwave"
	"github.com/aescanero/waveorch/pkg/api/grpc"
	"github.com/aescanero/waveorch/pkg/api/http"
	"github.com/aescanero/waveorch/pkg/api/websocket"
	"github.com/aescanero/waveorch/pkg/ports"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting wave orchestrator",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("storage", cfg.StorageBackend))

	ctx := context.Background()

	// Initialize storage and event bus
	var (
		redisClient *goredis.Client
		eventBus    ports.EventBus
		runStore    ports.RunStore
	)

	switch cfg.StorageBackend {
	case config.StorageRedis:
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		eventBus = redisevents.NewStreamsEventBus(redisClient, cfg.Redis.RunTTL, logger)
		runStore = redisstorage.NewRunStore(redisClient, cfg.Redis.RunTTL, logger)
	default:
		eventBus = memoryevents.NewInMemoryEventBus(cfg.Orchestration.EventBufferSize, logger)
		runStore = memorystorage.NewInMemoryRunStore()
	}

	metricsCollector := prometheus.NewCollector()

	// Load manifests
	loaded, err := yamlmanifests.NewLoader(logger).LoadDir(cfg.ManifestDir)
	if err != nil {
		logger.Fatal("failed to load manifests", zap.Error(err))
	}

	repo, err := manifests.NewRepository(loaded)
	if err != nil {
		logger.Fatal("invalid manifests", zap.Error(err))
	}

	// Initialize application components
	limiter := lanes.NewLimiter(cfg.Orchestration.DefaultLaneConcurrency, metricsCollector, logger)
	dispatcher := orchestrator.NewDispatcher(cfg.Orchestration.EventBufferSize, metricsCollector, logger, eventBus)

	coordinator := orchestrator.NewCoordinator(
		repo,
		limiter,
		escalation.NewEvaluator(),
		dispatcher,
		metricsCollector,
		logger,
	)

	if err := registerRemoteWaves(coordinator, cfg, logger); err != nil {
		logger.Fatal("failed to register waves", zap.Error(err))
	}

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		cfg.Workers.QueueSize,
		coordinator,
		metricsCollector,
		logger,
		cfg.Workers.HealthCheckInterval,
	)

	runManager := orchestrator.NewManager(
		coordinator,
		workerPool,
		runStore,
		metricsCollector,
		logger,
		cfg.Timeouts.RunTimeout,
	)

	// Start worker pool
	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:    cfg.HTTPPort,
		Manager: runManager,
		Health:  workerPool.Health(),
		Logger:  logger,
	})

	// Add WebSocket handler to HTTP server
	httpServer.SetupWebSocket(websocket.NewHandler(eventBus, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("wave orchestrator started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("manifests", repo.Len()),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	grpcServer.SetServing(false)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	// Shutdown components
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := runManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("run manager shutdown error", zap.Error(err))
	}

	// lanes stay up while runs are still draining
	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error, skipping coordinator teardown", zap.Error(err))
	} else if err := coordinator.Close(shutdownCtx); err != nil {
		logger.Error("coordinator shutdown error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("wave orchestrator shut down complete")
}

// registerRemoteWaves registers an HTTP wave for every configured endpoint
func registerRemoteWaves(coordinator *orchestrator.Coordinator, cfg *config.Config, logger *zap.Logger) error {
	names := make([]string, 0, len(cfg.WaveEndpoints))
	for name := range cfg.WaveEndpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		wave := httpwave.New(name, cfg.WaveEndpoints[name], cfg.Timeouts.WaveTimeout, logger)
		if err := coordinator.Register(wave); err != nil {
			return err
		}
	}
	return nil
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
