package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/brandbeacon/visibility-bot/internal/classifier"
	"github.com/brandbeacon/visibility-bot/internal/config"
	"github.com/brandbeacon/visibility-bot/internal/extract"
	"github.com/brandbeacon/visibility-bot/internal/models"
	"github.com/brandbeacon/visibility-bot/internal/storage"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// seed loads a small fixture data set so the aggregation and repair passes
// have something to chew on during local development.
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	brands := cfg.Brands
	if len(brands) == 0 {
		brands = []string{"Netflix", "Hulu", "Disney+"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
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
	extractor := extract.New(cls)

	prompts := []models.Prompt{
		{
			ID:      "seed-p1",
			UserID:  cfg.UserID,
			Text:    "What is the best streaming service for original shows?",
			Topic:   "streaming",
			Persona: "casual viewer",
		},
		{
			ID:      "seed-p2",
			UserID:  cfg.UserID,
			Text:    "Which streaming platform has the best value for families?",
			Topic:   "pricing",
			Persona: "parent",
		},
	}

	responses := map[string]map[string]string{
		"seed-p1": {
			"chatgpt":    "Netflix leads on original shows, with a great catalog (https://www.netflix.com/originals). Hulu is a solid alternative; independent reviews at https://www.reuters.com/streaming-review agree.",
			"perplexity": "For originals, Hulu and Netflix are the usual picks. Netflix announced its slate on https://twitter.com/netflix/status/42.",
		},
		"seed-p2": {
			"chatgpt":    "Disney+ is excellent for families (https://www.disneyplus.com/plans), while Netflix offers broad appeal.",
			"perplexity": "Families often prefer Disney+; see the comparison at https://www.nytimes.com/streaming-guide.",
		},
	}

	for _, prompt := range prompts {
		if err := store.SavePrompt(ctx, &prompt); err != nil {
			logrus.Fatalf("Failed to save prompt %s: %v", prompt.ID, err)
		}

		for platform, response := range responses[prompt.ID] {
			record := models.TestRecord{
				ID:            uuid.New().String(),
				UserID:        cfg.UserID,
				PromptID:      prompt.ID,
				Platform:      platform,
				Topic:         prompt.Topic,
				Persona:       prompt.Persona,
				ResponseText:  response,
				BrandMentions: extractor.Mentions(response, brands),
				Status:        "completed",
				ExecutedAt:    time.Now().UTC(),
			}
			if err := store.SaveTestRecord(ctx, &record); err != nil {
				logrus.Fatalf("Failed to save test record for %s on %s: %v", prompt.ID, platform, err)
			}
		}
	}

	fmt.Printf("Seeded %d prompts and %d test records for brands %v\n",
		len(prompts), len(prompts)*2, brands)
}
