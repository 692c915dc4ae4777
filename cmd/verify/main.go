package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brandbeacon/visibility-bot/internal/classifier"
	"github.com/brandbeacon/visibility-bot/internal/config"
	"github.com/brandbeacon/visibility-bot/internal/notifications"
	"github.com/brandbeacon/visibility-bot/internal/storage"
	"github.com/brandbeacon/visibility-bot/internal/visibility"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// verify sweeps the stored records and metrics for invariant violations and
// exits non-zero when any are found. It writes nothing.
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logrus.Fatalf("Failed to initialize document store: %v", err)
	}
	defer store.Close(context.Background())

	cls, err := classifier.LoadRules(cfg.ClassifierRulesPath)
	if err != nil {
		logrus.Fatalf("Failed to load classifier rules: %v", err)
	}

	service := visibility.NewService(cfg, store, cls, notifications.NewService(cfg), nil)

	violations, err := service.VerifyConsistency(ctx)
	if err != nil {
		logrus.Fatalf("Verification failed: %v", err)
	}

	if len(violations) == 0 {
		fmt.Println("OK: no invariant violations found")
		return
	}

	fmt.Printf("Found %d invariant violations:\n", len(violations))
	for _, v := range violations {
		fmt.Printf("  %s\n", v)
	}
	os.Exit(1)
}
