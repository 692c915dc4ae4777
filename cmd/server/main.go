package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brandbeacon/visibility-bot/internal/archive"
	"github.com/brandbeacon/visibility-bot/internal/classifier"
	"github.com/brandbeacon/visibility-bot/internal/config"
	"github.com/brandbeacon/visibility-bot/internal/notifications"
	"github.com/brandbeacon/visibility-bot/internal/scheduler"
	"github.com/brandbeacon/visibility-bot/internal/storage"
	"github.com/brandbeacon/visibility-bot/internal/visibility"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Brand Visibility Bot")

	ctx := context.Background()

	// Initialize document store
	store, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logrus.Fatalf("Failed to initialize document store: %v", err)
	}
	defer store.Close(context.Background())

	// Initialize run archive (optional)
	var runArchive archive.ArchiveInterface
	if cfg.StorageAccount != "" {
		runArchive, err = archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize archive: %v", err)
		}
	} else {
		logrus.Info("No storage account configured, run summaries will not be archived")
	}

	// Initialize citation classifier
	cls, err := classifier.LoadRules(cfg.ClassifierRulesPath)
	if err != nil {
		logrus.Fatalf("Failed to load classifier rules: %v", err)
	}

	// Initialize notification services
	notificationService := notifications.NewService(cfg)

	// Initialize visibility service
	visibilityService := visibility.NewService(cfg, store, cls, notificationService, runArchive)

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, visibilityService)

	// Start scheduler
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server for health checks and manual triggers
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler(store)).Methods("GET")

	// Metrics endpoint
	router.HandleFunc("/metrics", metricsHandler(visibilityService)).Methods("GET")

	// Manual trigger endpoints (for testing)
	router.HandleFunc("/trigger/aggregate", triggerAggregateHandler(visibilityService)).Methods("POST")
	router.HandleFunc("/trigger/repair", triggerRepairHandler(visibilityService)).Methods("POST")
	router.HandleFunc("/trigger/prompts", triggerPromptsHandler(visibilityService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(store *storage.MongoStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","error":"document store unreachable"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	}
}

func metricsHandler(visibilityService *visibility.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := visibilityService.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(metrics))
	}
}

func triggerAggregateHandler(visibilityService *visibility.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if _, err := visibilityService.RunReaggregation(context.Background()); err != nil {
				logrus.Errorf("Manual reaggregation trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Reaggregation triggered successfully"}`))
	}
}

func triggerRepairHandler(visibilityService *visibility.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if _, err := visibilityService.RunCitationRepair(context.Background()); err != nil {
				logrus.Errorf("Manual repair trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Citation repair triggered successfully"}`))
	}
}

func triggerPromptsHandler(visibilityService *visibility.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := visibilityService.RunPrompts(context.Background()); err != nil {
				logrus.Errorf("Manual prompt run trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Prompt run triggered successfully"}`))
	}
}
