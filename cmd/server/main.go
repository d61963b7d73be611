package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/rial-arbitrage-go/internal/api"
	"github.com/irfndi/rial-arbitrage-go/internal/api/handlers"
	"github.com/irfndi/rial-arbitrage-go/internal/cache"
	"github.com/irfndi/rial-arbitrage-go/internal/config"
	"github.com/irfndi/rial-arbitrage-go/internal/database"
	"github.com/irfndi/rial-arbitrage-go/internal/fees"
	"github.com/irfndi/rial-arbitrage-go/internal/logging"
	"github.com/irfndi/rial-arbitrage-go/internal/models"
	"github.com/irfndi/rial-arbitrage-go/internal/services"
	"github.com/irfndi/rial-arbitrage-go/internal/telemetry"
	"github.com/irfndi/rial-arbitrage-go/internal/venue"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Logging.OTLPEndpoint != "" {
		shutdownLogs, err := logging.AttachOTLP(ctx, logger, logging.OTLPConfig{
			Endpoint:       cfg.Logging.OTLPEndpoint,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: api.Version,
			Environment:    cfg.Environment,
		})
		if err != nil {
			return fmt.Errorf("failed to attach OTLP log export: %w", err)
		}
		defer shutdownWithTimeout(logger, "log export", shutdownLogs)
	}

	tracing, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownWithTimeout(logger, "telemetry", tracing.Shutdown)

	feeModel, err := buildFeeModel(cfg)
	if err != nil {
		return err
	}

	breakers := services.NewCircuitBreakerManager(breakerConfig(cfg.CircuitBreaker), logger)
	venueA, venueB := buildSources(cfg, breakers, logger)
	engine := services.NewEngine(venueA, venueB, feeModel, logger)

	deps := services.ArbitrageServiceDeps{
		Networks: services.NewNetworkSelections(),
		Logger:   logger,
	}
	dependencies := map[string]handlers.HealthChecker{}
	var history handlers.CycleHistory

	var alertGate cache.AlertGate = cache.NewInMemoryAlertGate()
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisConnection(cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()

		deps.BestStore = cache.NewRedisBestStore(redisClient.Client, cfg.Arbitrage.RetentionWindow)
		deps.Snapshots = cache.NewRedisSnapshotStore(redisClient.Client, 0)
		alertGate = cache.NewRedisAlertGate(redisClient.Client)
		dependencies["redis"] = redisClient
	} else {
		deps.BestStore = cache.NewInMemoryBestStore(cfg.Arbitrage.RetentionWindow)
	}

	if cfg.Database.Enabled {
		db, err := database.NewPostgresConnection(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		repo := database.NewCycleRepository(database.NewTracedPool(db.Pool, tracing.TracerProvider()), logger)
		deps.Recorder = repo
		history = repo
		dependencies["database"] = db
	}

	if cfg.Telegram.AlertsEnabled() {
		sender, err := services.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram sender: %w", err)
		}
		deps.Alerter = services.NewNotificationService(sender, alertGate, services.NotificationConfig{
			MinDifference: cfg.Telegram.MinDifference,
			MinNetProfit:  cfg.Telegram.MinNetProfit,
			Window:        cfg.Telegram.AlertWindow,
		}, logger)
	} else {
		logger.Info("Telegram alerts disabled")
	}

	sortSpec, err := services.ParseSortSpec(cfg.Arbitrage.SortField, cfg.Arbitrage.SortOrder)
	if err != nil {
		return fmt.Errorf("invalid arbitrage sort: %w", err)
	}

	arbitrageService := services.NewArbitrageService(engine, services.ArbitrageServiceConfig{
		RefreshInterval:   cfg.Arbitrage.RefreshInterval,
		CycleTimeout:      cfg.Arbitrage.CycleTimeout,
		DefaultInvestment: cfg.Arbitrage.Investment,
		DefaultSort:       sortSpec,
	}, deps)
	if err := arbitrageService.Start(); err != nil {
		return fmt.Errorf("failed to start arbitrage service: %w", err)
	}
	defer arbitrageService.Stop()

	router := newRouter(cfg, logger)
	api.SetupRoutes(router, api.RouteDeps{
		Arbitrage:      arbitrageService,
		Networks:       feeModel,
		History:        history,
		Dependencies:   dependencies,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"service":     cfg.Telemetry.ServiceName,
			"version":     api.Version,
			"port":        cfg.Server.Port,
			"environment": cfg.Environment,
		}).Info("Application startup")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.WithField("reason", "signal received").Info("Application shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

func newRouter(cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()))
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	return router
}

// buildFeeModel combines the configured trading fees with the withdrawal
// table file.
func buildFeeModel(cfg *config.Config) (*fees.Model, error) {
	entries, err := fees.LoadWithdrawalTable(cfg.Fees.WithdrawalTablePath)
	if err != nil {
		return nil, err
	}
	model, err := fees.NewModel(feeSchedules(cfg.Venues), entries)
	if err != nil {
		return nil, fmt.Errorf("invalid fee model: %w", err)
	}
	return model, nil
}

func feeSchedules(venues config.VenuesConfig) map[models.VenueID]models.FeeSchedule {
	schedule := func(v config.VenueConfig) models.FeeSchedule {
		return models.FeeSchedule{
			TakerFee: decimal.NewFromFloat(v.TakerFee),
			MakerFee: decimal.NewFromFloat(v.MakerFee),
		}
	}
	return map[models.VenueID]models.FeeSchedule{
		models.VenueNobitex: schedule(venues.Nobitex),
		models.VenueWallex:  schedule(venues.Wallex),
	}
}

func breakerConfig(cfg config.CircuitBreakerConfig) services.CircuitBreakerConfig {
	return services.CircuitBreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		SuccessThreshold: cfg.SuccessThreshold,
		Timeout:          cfg.Timeout,
		MaxRequests:      cfg.MaxRequests,
		ResetTimeout:     cfg.ResetTimeout,
	}
}

// buildSources creates venue A (Nobitex) and venue B (Wallex), each behind
// its own circuit breaker.
func buildSources(cfg *config.Config, breakers *services.CircuitBreakerManager, logger *logrus.Logger) (venue.QuoteSource, venue.QuoteSource) {
	client := func(id models.VenueID, v config.VenueConfig) *venue.Client {
		return venue.NewClient(id, venue.ClientConfig{
			BaseURL:           v.BaseURL,
			Timeout:           v.Timeout,
			RequestsPerSecond: v.RequestsPerSecond,
			Burst:             v.Burst,
		}, breakers.GetOrCreate(string(id)), logger)
	}

	nobitex := cfg.Venues.Nobitex
	wallex := cfg.Venues.Wallex
	a := venue.NewNobitexAdapter(client(models.VenueNobitex, nobitex), venue.NewScaling(nobitex.ScaleFactors, nobitex.PriceDivisors), logger)
	b := venue.NewWallexAdapter(client(models.VenueWallex, wallex), venue.NewScaling(wallex.ScaleFactors, wallex.PriceDivisors), logger)
	return a, b
}

func shutdownWithTimeout(logger *logrus.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.WithError(err).Errorf("Failed to shutdown %s", name)
	}
}
