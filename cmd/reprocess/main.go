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

// reprocess runs a one-shot citation repair pass over the stored test
// records and exits. An optional argument narrows the pass to that user,
// overriding USER_ID.
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if len(os.Args) > 1 {
		cfg.UserID = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
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

	summary, err := service.RunCitationRepair(ctx)
	if err != nil {
		logrus.Fatalf("Citation repair failed: %v", err)
	}

	fmt.Printf("Citation repair %s finished in %s\n", summary.RunID, summary.Duration)
	fmt.Printf("  records processed:      %d\n", summary.Processed)
	fmt.Printf("  records updated:        %d\n", summary.Updated)
	fmt.Printf("  citations reclassified: %d\n", summary.CitationsChanged)
	fmt.Printf("  metrics patched:        %d\n", summary.MetricsPatched)
	fmt.Printf("  before: brand=%d earned=%d social=%d\n", summary.Before.Brand, summary.Before.Earned, summary.Before.Social)
	fmt.Printf("  after:  brand=%d earned=%d social=%d\n", summary.After.Brand, summary.After.Earned, summary.After.Social)

	if summary.Errors > 0 {
		fmt.Printf("  errors: %d\n", summary.Errors)
		os.Exit(1)
	}
}
