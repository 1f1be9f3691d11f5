package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/aliasttt/bonusweb-sub000/internal/ledger"
	"github.com/aliasttt/bonusweb-sub000/pkg/config"
	"github.com/aliasttt/bonusweb-sub000/pkg/db"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
)

// Verifies the wallet/ledger invariant across the whole database. Exits
// non-zero when any wallet's cached balance diverges from its ledger sum.
func main() {
	logg := logger.New(logger.Options{ServiceName: "reconcile"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconcile",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	job, err := ledger.NewReconcileJob(ledger.ReconcileJobParams{
		Logger: logg,
		DB:     dbClient.DB(),
		Repo:   ledger.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build reconcile job", err)
		os.Exit(1)
	}

	if err := job.Run(context.Background()); err != nil {
		logg.Error(context.Background(), "wallet reconciliation failed", err)
		os.Exit(1)
	}
}
