package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brandbeacon/visibility-bot/internal/models"
)

const (
	promptsCollection     = "prompts"
	testRecordsCollection = "test_records"
	metricsCollection     = "aggregated_metrics"
)

// MongoStore is the MongoDB-backed Store.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to MongoDB and pings it. A failed ping is returned
// as an error so startup can abort: running against an unreachable store is
// the one unrecoverable condition.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	store := &MongoStore{
		client: client,
		db:     client.Database(database),
	}

	if err := store.Ping(connectCtx); err != nil {
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	logrus.Infof("Connected to MongoDB database %s", database)
	return store, nil
}

// Ping verifies the connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (f Filter) toQuery() bson.M {
	query := bson.M{}
	if f.UserID != "" {
		query["user_id"] = f.UserID
	}
	if f.Scope != "" {
		query["scope"] = f.Scope
	}
	if f.Platform != "" {
		query["platform"] = f.Platform
	}
	return query
}

// FindPrompts returns prompts matching the filter.
func (s *MongoStore) FindPrompts(ctx context.Context, filter Filter) ([]models.Prompt, error) {
	cursor, err := s.db.Collection(promptsCollection).Find(ctx, filter.toQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}
	defer cursor.Close(ctx)

	var prompts []models.Prompt
	if err := cursor.All(ctx, &prompts); err != nil {
		return nil, fmt.Errorf("failed to decode prompts: %w", err)
	}
	return prompts, nil
}

// SavePrompt upserts a prompt by ID.
func (s *MongoStore) SavePrompt(ctx context.Context, prompt *models.Prompt) error {
	_, err := s.db.Collection(promptsCollection).ReplaceOne(
		ctx,
		bson.M{"_id": prompt.ID},
		prompt,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save prompt %s: %w", prompt.ID, err)
	}
	return nil
}

// FindTestRecords returns test records matching the filter. Records with
// missing mention fields decode to zero values, so downstream code always
// sees complete structs.
func (s *MongoStore) FindTestRecords(ctx context.Context, filter Filter) ([]models.TestRecord, error) {
	cursor, err := s.db.Collection(testRecordsCollection).Find(ctx, filter.toQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to query test records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.TestRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode test records: %w", err)
	}
	return records, nil
}

// SaveTestRecord upserts a test record by ID.
func (s *MongoStore) SaveTestRecord(ctx context.Context, record *models.TestRecord) error {
	_, err := s.db.Collection(testRecordsCollection).ReplaceOne(
		ctx,
		bson.M{"_id": record.ID},
		record,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save test record %s: %w", record.ID, err)
	}
	return nil
}

// FindAggregatedMetrics returns rollup documents matching the filter.
func (s *MongoStore) FindAggregatedMetrics(ctx context.Context, filter Filter) ([]models.AggregatedMetric, error) {
	cursor, err := s.db.Collection(metricsCollection).Find(ctx, filter.toQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregated metrics: %w", err)
	}
	defer cursor.Close(ctx)

	var metrics []models.AggregatedMetric
	if err := cursor.All(ctx, &metrics); err != nil {
		return nil, fmt.Errorf("failed to decode aggregated metrics: %w", err)
	}
	return metrics, nil
}

// ReplaceAggregatedMetric wholesale-replaces the document for the metric's
// (userID, scope, scopeValue), creating it when absent. No merge with prior
// state ever happens.
func (s *MongoStore) ReplaceAggregatedMetric(ctx context.Context, metric *models.AggregatedMetric) error {
	query := bson.M{
		"user_id":     metric.UserID,
		"scope":       metric.Scope,
		"scope_value": metric.ScopeValue,
	}
	_, err := s.db.Collection(metricsCollection).ReplaceOne(
		ctx,
		query,
		metric,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to replace metric %s/%s: %w", metric.Scope, metric.ScopeValue, err)
	}
	return nil
}

// DeleteAggregatedMetrics removes rollup documents matching the filter.
func (s *MongoStore) DeleteAggregatedMetrics(ctx context.Context, filter Filter) error {
	_, err := s.db.Collection(metricsCollection).DeleteMany(ctx, filter.toQuery())
	if err != nil {
		return fmt.Errorf("failed to delete aggregated metrics: %w", err)
	}
	return nil
}
