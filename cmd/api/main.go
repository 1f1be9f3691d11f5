package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/aliasttt/bonusweb-sub000/api/routes"
	"github.com/aliasttt/bonusweb-sub000/internal/businesses"
	"github.com/aliasttt/bonusweb-sub000/internal/campaigns"
	"github.com/aliasttt/bonusweb-sub000/internal/catalog"
	"github.com/aliasttt/bonusweb-sub000/internal/customers"
	"github.com/aliasttt/bonusweb-sub000/internal/ledger"
	"github.com/aliasttt/bonusweb-sub000/internal/notifications"
	"github.com/aliasttt/bonusweb-sub000/internal/qrcodes"
	"github.com/aliasttt/bonusweb-sub000/internal/rewards"
	"github.com/aliasttt/bonusweb-sub000/internal/scan"
	"github.com/aliasttt/bonusweb-sub000/internal/verification"
	"github.com/aliasttt/bonusweb-sub000/pkg/config"
	"github.com/aliasttt/bonusweb-sub000/pkg/db"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
	"github.com/aliasttt/bonusweb-sub000/pkg/migrate"
	"github.com/aliasttt/bonusweb-sub000/pkg/pubsub"
	"github.com/aliasttt/bonusweb-sub000/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	// Pub/Sub is optional: without a project id the reward event publisher
	// is a no-op.
	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
	}

	conn := dbClient.DB()
	ledgerRepo := ledger.NewRepository(conn)
	customerRepo := customers.NewRepository(conn)
	catalogAdapter := catalog.NewAdapter(conn)
	scanGuard := scan.NewGuard(conn)

	rewardsService, err := rewards.NewService(rewards.ServiceParams{
		DB:           dbClient,
		Ledger:       ledgerRepo,
		Guard:        scanGuard,
		Catalog:      catalogAdapter,
		Customers:    customerRepo,
		Notifier:     notifications.NewPublisher(pubsubClient, logg),
		Loyalty:      cfg.Loyalty,
		ScanPassword: cfg.ScanPassword,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rewards service", err)
		os.Exit(1)
	}

	businessService := businesses.NewService(businesses.NewRepository(conn), cfg.Loyalty, cfg.ScanPassword)
	campaignService := campaigns.NewService(campaigns.NewRepository(conn))
	qrService := qrcodes.NewService(qrcodes.NewRepository(conn), catalogAdapter)
	verificationService := verification.NewService(redisClient, customerRepo, nil, cfg.Verification, logg)

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
			rewardsService,
			businessService,
			campaignService,
			qrService,
			verificationService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
