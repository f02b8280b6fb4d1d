package main

import (
	"context"
	"fmt"
	"os"

	"shop-service/config"
	"shop-service/internal/cleanup"
	"shop-service/internal/repository"
	"shop-service/pkg/database"
	"shop-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	cleanupSvc := cleanup.NewCleanupService(repository.New(db), cfg.Shop.PaymentStaleAfter, cfg.Shop.NotificationTTL, log)

	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/cleanup/main.go [payments|notifications|all]")
		fmt.Println("  payments      - expire payments stuck at the gateway")
		fmt.Println("  notifications - purge old read notifications")
		fmt.Println("  all           - run full cleanup")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "payments":
		log.Info("running stale payments cleanup")
		if err := cleanupSvc.ExpireStalePayments(ctx); err != nil {
			log.Fatal("failed to expire stale payments", zap.Error(err))
		}
	case "notifications":
		log.Info("running notifications cleanup")
		if err := cleanupSvc.PurgeReadNotifications(ctx); err != nil {
			log.Fatal("failed to purge notifications", zap.Error(err))
		}
	default:
		log.Info("running full cleanup")
		if err := cleanupSvc.RunFullCleanup(ctx); err != nil {
			log.Fatal("failed to run full cleanup", zap.Error(err))
		}
	}

	log.Info("cleanup completed successfully")
}
