package visibility

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/brandbeacon/visibility-bot/internal/aggregation"
	"github.com/brandbeacon/visibility-bot/internal/archive"
	"github.com/brandbeacon/visibility-bot/internal/classifier"
	"github.com/brandbeacon/visibility-bot/internal/config"
	"github.com/brandbeacon/visibility-bot/internal/extract"
	"github.com/brandbeacon/visibility-bot/internal/models"
	"github.com/brandbeacon/visibility-bot/internal/notifications"
	"github.com/brandbeacon/visibility-bot/internal/platforms"
	"github.com/brandbeacon/visibility-bot/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service orchestrates prompt execution, metric aggregation, and citation
// repair across the stored test records.
type Service struct {
	config              *config.Config
	store               storage.Store
	classifier          *classifier.Classifier
	aggregator          *aggregation.Aggregator
	extractor           *extract.Extractor
	platforms           []platforms.Platform
	notificationService notifications.NotificationInterface
	archive             archive.ArchiveInterface
	metrics             *Metrics
	mu                  sync.RWMutex
}

// Metrics holds run metrics exposed on the /metrics endpoint.
type Metrics struct {
	LastRun             time.Time `json:"last_run"`
	LastRunDuration     string    `json:"last_run_duration"`
	MetricsWritten      int       `json:"metrics_written"`
	LastRepair          time.Time `json:"last_repair"`
	LastRepairDuration  string    `json:"last_repair_duration"`
	RecordsRepaired     int       `json:"records_repaired"`
	CitationsReassigned int       `json:"citations_reassigned"`
	Violations          int       `json:"violations"`
	ErrorCount          int       `json:"error_count"`
}

// NewService creates a new visibility service. The archive may be nil when no
// storage account is configured.
func NewService(cfg *config.Config, store storage.Store, cls *classifier.Classifier, notificationService notifications.NotificationInterface, arc archive.ArchiveInterface) *Service {
	service := &Service{
		config:              cfg,
		store:               store,
		classifier:          cls,
		aggregator:          aggregation.NewAggregator(cls),
		extractor:           extract.New(cls),
		notificationService: notificationService,
		archive:             arc,
		metrics:             &Metrics{},
	}

	service.initializePlatforms()

	return service
}

func (s *Service) initializePlatforms() {
	for _, pc := range s.config.Platforms {
		s.platforms = append(s.platforms, platforms.NewChatPlatform(pc.Name, pc.BaseURL, pc.APIKey, pc.Model))
	}
}

// RunPrompts executes every stored prompt against every enabled platform and
// stores one test record per (prompt, platform) pair. Platform failures are
// recorded as failed test records, not run failures.
func (s *Service) RunPrompts(ctx context.Context) error {
	start := time.Now()
	logrus.Info("Starting prompt execution run")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	prompts, err := s.store.FindPrompts(ctx, storage.Filter{UserID: s.config.UserID})
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	enabled := 0
	for _, p := range s.platforms {
		if p.IsEnabled() {
			enabled++
		}
	}
	logrus.Infof("Executing %d prompts against %d enabled platforms", len(prompts), enabled)

	errorCount := 0
	for _, prompt := range prompts {
		for _, platform := range s.platforms {
			if !platform.IsEnabled() {
				continue
			}

			record := models.TestRecord{
				ID:         uuid.New().String(),
				UserID:     prompt.UserID,
				PromptID:   prompt.ID,
				Platform:   platform.GetName(),
				Topic:      prompt.Topic,
				Persona:    prompt.Persona,
				Status:     "completed",
				ExecutedAt: time.Now().UTC(),
			}

			response, err := platform.Complete(ctx, prompt.Text)
			if err != nil {
				logrus.Errorf("Platform %s failed for prompt %s: %v", platform.GetName(), prompt.ID, err)
				record.Status = "failed"
				errorCount++
			} else {
				record.ResponseText = response
				record.BrandMentions = s.extractor.Mentions(response, s.config.Brands)
			}

			if err := s.store.SaveTestRecord(ctx, &record); err != nil {
				logrus.Errorf("Failed to save test record for prompt %s on %s: %v", prompt.ID, platform.GetName(), err)
				errorCount++
			}
		}
	}

	logrus.Infof("Prompt execution run completed in %v (%d errors)", time.Since(start), errorCount)
	return nil
}

// RunReaggregation recomputes every aggregated metric from the test records
// in the configured window. Each (scope, scopeValue) document is replaced
// wholesale; nothing is updated incrementally.
func (s *Service) RunReaggregation(ctx context.Context) (*models.RunSummary, error) {
	start := time.Now()
	runID := uuid.New().String()
	logrus.WithField("run_id", runID).Info("Starting reaggregation run")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	windowEnd := time.Now().UTC()
	windowStart := windowEnd.AddDate(0, 0, -s.config.AggregationWindowDays)

	records, err := s.store.FindTestRecords(ctx, storage.Filter{UserID: s.config.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to load test records: %w", err)
	}
	records = filterWindow(records, windowStart, windowEnd)
	logrus.Infof("Aggregating %d test records (window %s to %s)",
		len(records), windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"))

	summary := &models.RunSummary{
		RunID:        runID,
		TotalRecords: len(records),
		TotalPrompts: countPrompts(records),
		Scopes:       []string{models.ScopeOverall, models.ScopePlatform, models.ScopeTopic, models.ScopePersona},
		StartedAt:    start.UTC(),
	}

	// Clear the prior metric set first. Metrics are recomputed wholesale, so
	// a scope value whose records aged out of the window must not survive
	// with stale contents.
	if err := s.store.DeleteAggregatedMetrics(ctx, storage.Filter{UserID: s.config.UserID}); err != nil {
		return nil, fmt.Errorf("failed to clear prior metrics: %w", err)
	}

	for _, scope := range summary.Scopes {
		for scopeValue, group := range groupByScope(records, scope) {
			metric := s.aggregator.Aggregate(group, scope, scopeValue, windowStart, windowEnd)

			violations := aggregation.VerifyMetric(metric)
			for _, v := range violations {
				logrus.Warnf("Invariant violation: %s", v)
			}
			summary.Violations += len(violations)

			if err := s.store.ReplaceAggregatedMetric(ctx, &metric); err != nil {
				logrus.Errorf("Failed to store metric %s: %v", metric.ID, err)
				summary.Errors++
				continue
			}
			summary.MetricsWritten++
		}
	}

	for _, dc := range aggregation.TopCitedDomains(records, 5) {
		logrus.Infof("Top cited domain: %s (%d citations)", dc.Domain, dc.Count)
	}

	summary.Duration = time.Since(start).String()
	s.updateRunMetrics(summary)

	if err := s.notificationService.SendRunSummary(summary); err != nil {
		logrus.Errorf("Failed to send run summary: %v", err)
	}
	s.archiveSummary(fmt.Sprintf("runs/reaggregation-%s.json", start.Format("2006-01-02-15-04-05")), summary)

	logrus.Infof("Reaggregation run completed in %v: %d metrics written, %d violations, %d errors",
		time.Since(start), summary.MetricsWritten, summary.Violations, summary.Errors)
	return summary, nil
}

// RunCitationRepair reclassifies every stored citation from its URL, rewrites
// records whose types or derived counts changed, and patches the citation
// totals on the aggregated metrics built from those records. The pass is
// idempotent: running it again immediately reports zero updates.
func (s *Service) RunCitationRepair(ctx context.Context) (*models.RepairSummary, error) {
	start := time.Now()
	runID := uuid.New().String()
	logrus.WithField("run_id", runID).Info("Starting citation repair pass")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	records, err := s.store.FindTestRecords(ctx, storage.Filter{UserID: s.config.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to load test records: %w", err)
	}

	summary := &models.RepairSummary{
		RunID:     runID,
		StartedAt: start.UTC(),
	}

	repaired := make(map[string]models.TestRecord, len(records))
	for i := range records {
		// Work on a deep copy: mutating the fetched record in place would
		// leave no pristine version to fall back to when a save fails.
		record := cloneRecord(records[i])
		summary.Processed++
		changed := false

		for mi := range record.BrandMentions {
			mention := &record.BrandMentions[mi]

			var counted models.CitationMetrics
			for ci := range mention.Citations {
				citation := &mention.Citations[ci]
				derived := s.classifier.Classify(citation.URL, mention.BrandName)
				if citation.Type != derived {
					citation.Type = derived
					summary.CitationsChanged++
					changed = true
				}
				counted.Add(citation.Type)
				addBreakdown(&summary.After, citation.Type)
			}

			addStoredBreakdown(&summary.Before, mention.CitationMetrics)
			if counted != mention.CitationMetrics {
				mention.CitationMetrics = counted
				changed = true
			}
		}

		if changed {
			if err := s.store.SaveTestRecord(ctx, &record); err != nil {
				logrus.Errorf("Failed to save repaired record %s: %v", record.ID, err)
				summary.Errors++
				// Keep the unrepaired version for metric patching so the
				// metrics stay consistent with what is actually stored.
				repaired[records[i].ID] = records[i]
				continue
			}
			summary.Updated++
		}
		repaired[record.ID] = record
	}

	if err := s.patchMetricCitations(ctx, repaired, summary); err != nil {
		logrus.Errorf("Failed to patch metric citations: %v", err)
		summary.Errors++
	}

	summary.Duration = time.Since(start).String()
	s.updateRepairMetrics(summary)

	if err := s.notificationService.SendRepairSummary(summary); err != nil {
		logrus.Errorf("Failed to send repair summary: %v", err)
	}
	s.archiveSummary(fmt.Sprintf("runs/repair-%s.json", start.Format("2006-01-02-15-04-05")), summary)

	logrus.Infof("Citation repair completed in %v: %d/%d records updated, %d citations reclassified, %d metrics patched, %d errors",
		time.Since(start), summary.Updated, summary.Processed, summary.CitationsChanged, summary.MetricsPatched, summary.Errors)
	return summary, nil
}

// patchMetricCitations rewrites the citation columns of stored aggregated
// metrics from the repaired records they were built from. Only citation
// totals, citation share, and citation rank change; visibility, share of
// voice, position, and sentiment are left exactly as aggregated.
func (s *Service) patchMetricCitations(ctx context.Context, records map[string]models.TestRecord, summary *models.RepairSummary) error {
	metrics, err := s.store.FindAggregatedMetrics(ctx, storage.Filter{UserID: s.config.UserID})
	if err != nil {
		return fmt.Errorf("failed to load aggregated metrics: %w", err)
	}

	for i := range metrics {
		metric := metrics[i]

		counts := make(map[string]models.CitationMetrics)
		for _, id := range metric.PromptTestIDs {
			record, ok := records[id]
			if !ok {
				continue
			}
			for _, mention := range record.BrandMentions {
				acc := counts[mention.BrandName]
				for _, citation := range mention.Citations {
					acc.Add(citation.Type)
				}
				counts[mention.BrandName] = acc
			}
		}

		sumCitations := 0
		for _, c := range counts {
			sumCitations += c.TotalCitations
		}

		changed := false
		for bi := range metric.BrandMetrics {
			brand := &metric.BrandMetrics[bi]
			c := counts[brand.BrandName]
			if c.BrandCitations == brand.BrandCitations &&
				c.EarnedCitations == brand.EarnedCitations &&
				c.SocialCitations == brand.SocialCitations &&
				c.TotalCitations == brand.TotalCitations {
				continue
			}
			brand.BrandCitations = c.BrandCitations
			brand.EarnedCitations = c.EarnedCitations
			brand.SocialCitations = c.SocialCitations
			brand.TotalCitations = c.TotalCitations
			changed = true
		}

		if !changed {
			continue
		}

		for bi := range metric.BrandMetrics {
			brand := &metric.BrandMetrics[bi]
			if sumCitations > 0 {
				brand.CitationShare = round2(100 * float64(brand.TotalCitations) / float64(sumCitations))
			} else {
				brand.CitationShare = 0
			}
		}
		aggregation.AssignCitationRanks(metric.BrandMetrics)

		if err := s.store.ReplaceAggregatedMetric(ctx, &metric); err != nil {
			logrus.Errorf("Failed to store patched metric %s: %v", metric.ID, err)
			summary.Errors++
			continue
		}
		summary.MetricsPatched++
	}

	return nil
}

// VerifyConsistency sweeps stored records and metrics and returns every
// invariant violation found. It writes nothing.
func (s *Service) VerifyConsistency(ctx context.Context) ([]aggregation.Violation, error) {
	var violations []aggregation.Violation

	records, err := s.store.FindTestRecords(ctx, storage.Filter{UserID: s.config.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to load test records: %w", err)
	}
	for _, record := range records {
		violations = append(violations, aggregation.VerifyRecord(record)...)
	}

	metrics, err := s.store.FindAggregatedMetrics(ctx, storage.Filter{UserID: s.config.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregated metrics: %w", err)
	}
	for _, metric := range metrics {
		violations = append(violations, aggregation.VerifyMetric(metric)...)
	}

	s.mu.Lock()
	s.metrics.Violations = len(violations)
	s.mu.Unlock()

	return violations, nil
}

func (s *Service) archiveSummary(filename string, summary interface{}) {
	if s.archive == nil {
		return
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logrus.Errorf("Failed to marshal summary for archive: %v", err)
		return
	}
	if err := s.archive.Store(filename, data); err != nil {
		logrus.Errorf("Failed to archive %s: %v", filename, err)
	}
}

func (s *Service) updateRunMetrics(summary *models.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = summary.Duration
	s.metrics.MetricsWritten = summary.MetricsWritten
	s.metrics.Violations = summary.Violations
	s.metrics.ErrorCount = summary.Errors
}

func (s *Service) updateRepairMetrics(summary *models.RepairSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRepair = time.Now()
	s.metrics.LastRepairDuration = summary.Duration
	s.metrics.RecordsRepaired = summary.Updated
	s.metrics.CitationsReassigned = summary.CitationsChanged
	s.metrics.ErrorCount += summary.Errors
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

// cloneRecord copies a record along with its mention and citation slices.
func cloneRecord(record models.TestRecord) models.TestRecord {
	clone := record
	clone.BrandMentions = make([]models.BrandMention, len(record.BrandMentions))
	for i, mention := range record.BrandMentions {
		m := mention
		m.Citations = append([]models.Citation(nil), mention.Citations...)
		clone.BrandMentions[i] = m
	}
	return clone
}

func filterWindow(records []models.TestRecord, start, end time.Time) []models.TestRecord {
	var filtered []models.TestRecord
	for _, record := range records {
		if record.ExecutedAt.Before(start) || record.ExecutedAt.After(end) {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered
}

func countPrompts(records []models.TestRecord) int {
	prompts := make(map[string]bool)
	for _, record := range records {
		prompts[record.PromptID] = true
	}
	return len(prompts)
}

// groupByScope buckets records by the value of the given scope dimension.
// The overall scope puts everything under "all"; records with an empty value
// for a dimension are skipped for that scope.
func groupByScope(records []models.TestRecord, scope string) map[string][]models.TestRecord {
	groups := make(map[string][]models.TestRecord)
	for _, record := range records {
		var value string
		switch scope {
		case models.ScopeOverall:
			value = "all"
		case models.ScopePlatform:
			value = record.Platform
		case models.ScopeTopic:
			value = record.Topic
		case models.ScopePersona:
			value = record.Persona
		}
		if value == "" {
			continue
		}
		groups[value] = append(groups[value], record)
	}
	return groups
}

func addBreakdown(b *models.TypeBreakdown, t models.CitationType) {
	switch t {
	case models.CitationBrand:
		b.Brand++
	case models.CitationSocial:
		b.Social++
	default:
		b.Earned++
	}
}

func addStoredBreakdown(b *models.TypeBreakdown, m models.CitationMetrics) {
	b.Brand += m.BrandCitations
	b.Earned += m.EarnedCitations
	b.Social += m.SocialCitations
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
