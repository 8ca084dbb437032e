package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"trendpulse/internal/adapter/storage"
	"trendpulse/internal/config"
	"trendpulse/internal/domain/trend"
	"trendpulse/internal/server"
	"trendpulse/internal/service/detect"
	"trendpulse/internal/service/listening"
	"trendpulse/internal/service/normalize"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Close()

	// Initialize storage adapters
	rawStore, err := storage.NewRawStore(logger, cfg.Storage.Path)
	if err != nil {
		logger.Fatal("Failed to initialize raw store", zap.Error(err))
	}
	signalStore := storage.NewSignalStore(db)

	// Initialize pipeline services
	normalizer := normalize.NewNormalizer(normalize.NewEntityExtractor())
	detector := detect.NewDetector(logger, detect.DetectorConfig{
		GrowthFactor: cfg.Trend.GrowthFactor,
		MinVolume:    cfg.Trend.MinVolume,
		TopN:         cfg.Trend.TopN,
	})

	manager := listening.NewManager(
		logger,
		normalizer,
		detector,
		rawStore,
		signalStore,
		natsConn,
		listening.ManagerConfig{
			ScanInterval:     cfg.Pipeline.ScanInterval,
			ScanQuery:        cfg.Pipeline.ScanQuery,
			FetchBatchSize:   cfg.Pipeline.FetchBatchSize,
			NormalizeWorkers: cfg.Pipeline.NormalizeWorkers,
			RetentionDays:    cfg.Storage.RetentionDays,
			PurgeInterval:    cfg.Storage.PurgeInterval,
			EventsTopic:      cfg.Trend.EventsTopic,
		},
	)

	// Register platform sources
	if cfg.Twitter.BearerToken != "" {
		manager.AddSource(listening.NewTwitterSource(logger, cfg.Twitter.BearerToken))
	} else {
		logger.Warn("No Twitter bearer token configured, periodic scraping disabled for twitter")
	}

	// Log every emitted signal
	manager.RegisterSignalHandler(func(sig trend.Signal) error {
		logger.Info("trend signal emitted",
			zap.String("tag", sig.Name),
			zap.Int("currentVolume", sig.CurrentVolume),
			zap.Int("historicalVolume", sig.HistoricalVolume),
			zap.Float64("growthRate", sig.GrowthRate),
		)
		return nil
	})

	// Start the pipeline loops
	if err := manager.Start(ctx); err != nil {
		logger.Fatal("Failed to start pipeline manager", zap.Error(err))
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		logger,
		manager,
		signalStore,
		rawStore,
		natsConn,
		cfg.Trend.EventsTopic,
	)

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("Pipeline manager shutdown error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// newLogger builds a zap logger appropriate for the environment
func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
