package main

import (
	"context"
	"net/http"
	"os"

	"github.com/printly/printly-backend/api/routes"
	"github.com/printly/printly-backend/internal/adminauth"
	"github.com/printly/printly-backend/internal/identity"
	"github.com/printly/printly-backend/internal/messaging"
	"github.com/printly/printly-backend/internal/orders"
	"github.com/printly/printly-backend/internal/uploads"
	"github.com/printly/printly-backend/internal/verification"
	"github.com/printly/printly-backend/pkg/config"
	"github.com/printly/printly-backend/pkg/db"
	"github.com/printly/printly-backend/pkg/logger"
	"github.com/printly/printly-backend/pkg/metrics"
	"github.com/printly/printly-backend/pkg/migrate"
	"github.com/printly/printly-backend/pkg/redis"
	"github.com/printly/printly-backend/pkg/storage"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// Redis only backs rate limiting; dev setups may run without it.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, token rate limiting disabled")
	}

	blobStore, err := storage.New(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap blob storage", err)
		os.Exit(1)
	}

	shopMetrics := metrics.New()

	identitySvc, err := identity.NewService(identity.NewRepository(dbClient.DB()), shopMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	pricer := orders.Pricer{PricePerPage: cfg.Pricing.PricePerPage}
	ordersSvc, err := orders.NewService(orders.NewRepository(dbClient.DB()), identitySvc, blobStore, pricer, logg, shopMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	uploadSvc, err := uploads.NewService(blobStore, cfg.Upload, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create upload service", err)
		os.Exit(1)
	}

	verificationSvc, err := verification.NewService(verification.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}

	adminAuthSvc, err := adminauth.NewService(cfg.Admin, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create admin auth service", err)
		os.Exit(1)
	}

	var waLinks *messaging.Builder
	if cfg.Messaging.ShopWhatsApp != "" {
		waLinks, err = messaging.NewBuilder(cfg.Messaging)
		if err != nil {
			logg.Error(context.Background(), "failed to create whatsapp link builder", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "shop whatsapp number not configured, contact links disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			shopMetrics,
			identitySvc,
			uploadSvc,
			ordersSvc,
			verificationSvc,
			adminAuthSvc,
			waLinks,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
