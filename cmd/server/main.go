package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	catalogapp "github.com/orderhub/backend/internal/application/catalog"
	enrichmentapp "github.com/orderhub/backend/internal/application/enrichment"
	partnerapp "github.com/orderhub/backend/internal/application/partner"
	patternsapp "github.com/orderhub/backend/internal/application/patterns"
	pricingapp "github.com/orderhub/backend/internal/application/pricing"
	referenceapp "github.com/orderhub/backend/internal/application/reference"
	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/pricing"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/infrastructure/cache"
	"github.com/orderhub/backend/internal/infrastructure/config"
	"github.com/orderhub/backend/internal/infrastructure/logger"
	"github.com/orderhub/backend/internal/infrastructure/mirror"
	"github.com/orderhub/backend/internal/infrastructure/persistence"
	"github.com/orderhub/backend/internal/interfaces/http/handler"
	"github.com/orderhub/backend/internal/interfaces/http/middleware"
	"github.com/orderhub/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting OrderHub backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected and migrated")

	// Initialize caches. Redis is optional; everything degrades to
	// in-process storage when it is unreachable.
	cacheFactory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithSizeCacheConfig(sizeCacheConfig(cfg)),
		cache.WithInMemoryFallback(true),
	)

	var submissions shared.IdempotencyStore
	submissions, err = cacheFactory.CreateIdempotencyStore()
	if err != nil {
		log.Warn("Idempotency store unavailable, duplicate batch detection disabled", zap.Error(err))
		submissions = nil
	} else {
		defer func() {
			_ = submissions.Close()
		}()
	}

	// Initialize repositories
	patternRepo := persistence.NewGormLearnedPatternRepository(db.DB)
	designRepo := persistence.NewGormDesignRepository(db.DB)
	ruleRepo := persistence.NewGormRuleRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)

	var referenceRepo matching.ReferenceRepository = persistence.NewGormReferenceRepository(db.DB)
	if cfg.Cache.Enabled {
		sizeCache, err := cacheFactory.CreateSizeCache()
		if err != nil {
			log.Warn("Size cache unavailable, reference lookups go straight to the database", zap.Error(err))
		} else {
			referenceRepo = cache.NewCachedReferenceRepository(referenceRepo, sizeCache, log)
			defer func() {
				_ = sizeCache.Close()
			}()
		}
	}

	// Optional remote reference mirror for unknown devices
	var sizeMirror matching.Mirror
	if cfg.Mirror.Enabled {
		client, err := mirror.NewClient(mirror.Config{
			BaseURL: cfg.Mirror.BaseURL,
			Timeout: cfg.Mirror.Timeout,
		}, log)
		if err != nil {
			log.Fatal("Invalid mirror configuration", zap.Error(err))
		}
		sizeMirror = client
		log.Info("Reference mirror enabled", zap.String("base_url", cfg.Mirror.BaseURL))
	}

	// Wire the resolution tiers
	resolver := matching.NewResolver(
		matching.NewPredictor(patternRepo),
		matching.DefaultStrategyRegistry(),
		matching.NewReferenceLookup(referenceRepo, sizeMirror),
		designRepo,
		resolverOptions(cfg),
	)

	// Initialize application services
	pricingService := pricingapp.NewService(ruleRepo, log)
	patternService := patternsapp.NewService(patternRepo, log)
	referenceService := referenceapp.NewService(referenceRepo, designRepo, sizeMirror, log)
	productService := catalogapp.NewProductService(productRepo)
	customerService := partnerapp.NewCustomerService(customerRepo)
	enrichmentService := enrichmentapp.NewService(
		resolver,
		patternRepo,
		productRepo,
		pricing.NewResolver(ruleRepo),
		pricingService,
		log,
		enrichmentOptions(cfg),
	)

	// Build the HTTP engine and register routes
	middleware.SetupValidator()
	engine, err := router.NewEngine(cfg, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	router.NewRouter(engine).
		Register(handler.NewEnrichmentHandler(enrichmentService, submissions)).
		Register(handler.NewPatternHandler(patternService)).
		Register(handler.NewPricingHandler(pricingService)).
		Register(handler.NewReferenceHandler(referenceService)).
		Register(handler.NewProductHandler(productService)).
		Register(handler.NewCustomerHandler(customerService)).
		Register(handler.NewSystemHandler(cfg, db)).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func sizeCacheConfig(cfg *config.Config) cache.SizeCacheConfig {
	out := cache.DefaultSizeCacheConfig()
	if cfg.Cache.TTL > 0 {
		out.TTL = cfg.Cache.TTL
	}
	if cfg.Cache.MaxItems > 0 {
		out.MaxItems = cfg.Cache.MaxItems
	}
	return out
}

func resolverOptions(cfg *config.Config) matching.ResolverOptions {
	out := matching.DefaultResolverOptions()
	if cfg.Matching.LearnedFloor > 0 {
		out.LearnedFloor = cfg.Matching.LearnedFloor
	}
	if cfg.Matching.PatternConfidence > 0 {
		out.PatternConfidence = cfg.Matching.PatternConfidence
	}
	return out
}

func enrichmentOptions(cfg *config.Config) enrichmentapp.Options {
	out := enrichmentapp.DefaultOptions()
	if cfg.Pricing.TaxRate > 0 {
		out.TaxRate = decimal.NewFromFloat(cfg.Pricing.TaxRate)
	}
	if cfg.Pricing.RoundMode != "" {
		out.RoundMode = pricing.RoundMode(cfg.Pricing.RoundMode)
	}
	out.LearnOnAccept = cfg.Matching.LearnOnAccept
	out.AutoRegisterRules = cfg.Matching.AutoRegisterRules
	if cfg.Matching.MaxBatchErrors > 0 {
		out.MaxBatchErrors = cfg.Matching.MaxBatchErrors
	}
	return out
}
