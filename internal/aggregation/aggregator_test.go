package aggregation

import (
	"fmt"
	"testing"
	"time"

	"github.com/brandbeacon/visibility-bot/internal/classifier"
	"github.com/brandbeacon/visibility-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow() (time.Time, time.Time) {
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -30), end
}

// record builds a TestRecord for a prompt/platform pair with one mention per
// brand. Mentioned brands get position equal to their order in the list.
func record(promptID, platform string, mentionedBrands, absentBrands []string) models.TestRecord {
	rec := models.TestRecord{
		ID:       fmt.Sprintf("%s-%s", promptID, platform),
		UserID:   "user-1",
		PromptID: promptID,
		Platform: platform,
		Status:   "completed",
	}
	for i, brand := range mentionedBrands {
		rec.BrandMentions = append(rec.BrandMentions, models.BrandMention{
			BrandName:     brand,
			Mentioned:     true,
			FirstPosition: i + 1,
			MentionCount:  1,
			Sentiment:     models.SentimentPositive,
		})
	}
	for _, brand := range absentBrands {
		rec.BrandMentions = append(rec.BrandMentions, models.BrandMention{
			BrandName: brand,
			Mentioned: false,
		})
	}
	return rec
}

func TestAggregateEmptyRecords(t *testing.T) {
	agg := NewAggregator(classifier.New())
	start, end := testWindow()

	metric := agg.Aggregate(nil, models.ScopeOverall, "all", start, end)

	assert.Equal(t, 0, metric.TotalPrompts)
	assert.Equal(t, 0, metric.TotalResponses)
	assert.Equal(t, 0, metric.TotalBrands)
	assert.Empty(t, metric.BrandMetrics)
	assert.Equal(t, models.ScopeOverall, metric.Scope)
}

func TestAggregateVisibilityDeduplicatesByPrompt(t *testing.T) {
	// 2 prompts x 3 platforms = 6 records. Brand X mentioned in 4 of the 6
	// responses, covering both prompts: visibility 100, depth 66.67.
	agg := NewAggregator(classifier.New())
	start, end := testWindow()

	records := []models.TestRecord{
		record("p1", "chatgpt", []string{"X"}, nil),
		record("p1", "claude", []string{"X"}, nil),
		record("p1", "gemini", nil, []string{"X"}),
		record("p2", "chatgpt", []string{"X"}, nil),
		record("p2", "claude", []string{"X"}, nil),
		record("p2", "gemini", nil, []string{"X"}),
	}

	metric := agg.Aggregate(records, models.ScopeOverall, "all", start, end)

	assert.Equal(t, 2, metric.TotalPrompts)
	assert.Equal(t, 6, metric.TotalResponses)
	require.Len(t, metric.BrandMetrics, 1)

	brand := metric.BrandMetrics[0]
	assert.Equal(t, 2, brand.UniqueAppearances)
	assert.Equal(t, 4, brand.TotalMentions)
	assert.InDelta(t, 100.0, brand.VisibilityScore, 0.001)
	assert.InDelta(t, 66.67, brand.DepthOfMention, 0.001)
}

func TestAggregateVisibilityBound(t *testing.T) {
	agg := NewAggregator(classifier.New())
	start, end := testWindow()

	records := []models.TestRecord{
		record("p1", "chatgpt", []string{"X", "Y"}, nil),
		record("p1", "claude", []string{"X"}, []string{"Y"}),
		record("p2", "chatgpt", []string{"Y"}, []string{"X"}),
	}

	metric := agg.Aggregate(records, models.ScopeOverall, "all", start, end)

	for _, brand := range metric.BrandMetrics {
		assert.GreaterOrEqual(t, brand.VisibilityScore, 0.0)
		assert.LessOrEqual(t, brand.VisibilityScore, 100.0)
		assert.LessOrEqual(t, brand.UniqueAppearances, metric.TotalPrompts)
	}
	assert.Empty(t, VerifyMetric(metric))
}

func TestAggregateSentimentClosure(t *testing.T) {
	agg := NewAggregator(classifier.New())
	start, end := testWindow()

	rec := models.TestRecord{
		ID: "r1", PromptID: "p1", Platform: "chatgpt",
		BrandMentions: []models.BrandMention{
			{BrandName: "X", Mentioned: true, FirstPosition: 1, Sentiment: models.SentimentPositive, SentimentScore: 0.8},
			{BrandName: "Y", Mentioned: true, FirstPosition: 2, Sentiment: models.SentimentMixed, SentimentScore: 0.1},
		},
	}
	rec2 := models.TestRecord{
		ID: "r2", PromptID: "p2", Platform: "chatgpt",
		BrandMentions: []models.BrandMention{
			{BrandName: "X", Mentioned: true, FirstPosition: 1, Sentiment: models.SentimentNegative, SentimentScore: -0.6},
			{BrandName: "Y", Mentioned: false},
		},
	}

	metric := agg.Aggregate([]models.TestRecord{rec, rec2}, models.ScopeOverall, "all", start, end)

	require.Len(t, metric.BrandMetrics, 2)
	for _, brand := range metric.BrandMetrics {
		assert.Equal(t, brand.TotalMentions, brand.Sentiment.Total(), "brand %s", brand.BrandName)
	}

	x := metric.BrandMetrics[0]
	assert.Equal(t, "X", x.BrandName)
	assert.Equal(t, 1, x.Sentiment.Positive)
	assert.Equal(t, 1, x.Sentiment.Negative)
	assert.InDelta(t, 0.1, x.SentimentScore, 0.001) // mean(0.8, -0.6)
}

func TestAggregateReclassifiesCitations(t *testing.T) {
	agg := NewAggregator(classifier.New())
	start, end := testWindow()

	// Stored types are wrong on purpose: the aggregator must re-derive them
	// from the URLs.
	rec := models.TestRecord{
		ID: "r1", PromptID: "p1", Platform: "chatgpt",
		BrandMentions: []models.BrandMention{{
			BrandName: "Netflix", Mentioned: true, FirstPosition: 1,
			Sentiment: models.SentimentNeutral,
			Citations: []models.Citation{
				{URL: "https://www.netflix.com/in", Type: models.CitationEarned},
				{URL: "https://twitter.com/netflix", Type: models.CitationEarned},
				{URL: "https://www.trustpilot.com/review/netflix.com", Type: models.CitationBrand},
			},
		}},
	}

	metric := agg.Aggregate([]models.TestRecord{rec}, models.ScopeOverall, "all", start, end)

	require.Len(t, metric.BrandMetrics, 1)
	brand := metric.BrandMetrics[0]
	assert.Equal(t, 1, brand.BrandCitations)
	assert.Equal(t, 1, brand.SocialCitations)
	assert.Equal(t, 1, brand.EarnedCitations)
	assert.Equal(t, 3, brand.TotalCitations)
}

func TestAggregateRanks(t *testing.T) {
	agg := NewAggregator(classifier.New())
	start, end := testWindow()

	records := []models.TestRecord{
		record("p1", "chatgpt", []string{"First", "Second"}, []string{"Third"}),
		record("p2", "chatgpt", []string{"First"}, []string{"Second", "Third"}),
	}

	metric := agg.Aggregate(records, models.ScopeOverall, "all", start, end)

	byName := make(map[string]models.BrandAggregate)
	for _, b := range metric.BrandMetrics {
		byName[b.BrandName] = b
	}

	assert.Equal(t, 1, byName["First"].VisibilityRank)
	assert.Equal(t, 2, byName["Second"].VisibilityRank)
	assert.Equal(t, 3, byName["Third"].VisibilityRank)

	// "First" always appears at position 1, "Second" at position 2; "Third"
	// has no positions and must rank last despite its zero average.
	assert.Equal(t, 1, byName["First"].PositionRank)
	assert.Equal(t, 2, byName["Second"].PositionRank)
	assert.Equal(t, 3, byName["Third"].PositionRank)
}

func TestAggregateRankTiesKeepInputOrder(t *testing.T) {
	agg := NewAggregator(classifier.New())
	start, end := testWindow()

	records := []models.TestRecord{
		record("p1", "chatgpt", []string{"Alpha", "Beta"}, nil),
	}
	// Both brands appear once in one prompt; visibility ties at 100. Stable
	// sort keeps Alpha (observed first) at rank 1.
	metric := agg.Aggregate(records, models.ScopeOverall, "all", start, end)

	require.Len(t, metric.BrandMetrics, 2)
	assert.Equal(t, "Alpha", metric.BrandMetrics[0].BrandName)
	assert.Equal(t, 1, metric.BrandMetrics[0].VisibilityRank)
	assert.Equal(t, 2, metric.BrandMetrics[1].VisibilityRank)
}

func TestAggregateShareOfVoice(t *testing.T) {
	agg := NewAggregator(classifier.New())
	start, end := testWindow()

	records := []models.TestRecord{
		record("p1", "chatgpt", []string{"X", "Y"}, nil),
		record("p2", "chatgpt", []string{"X"}, []string{"Y"}),
		record("p3", "chatgpt", []string{"X"}, []string{"Y"}),
	}

	metric := agg.Aggregate(records, models.ScopeOverall, "all", start, end)

	byName := make(map[string]models.BrandAggregate)
	for _, b := range metric.BrandMetrics {
		byName[b.BrandName] = b
	}
	assert.InDelta(t, 75.0, byName["X"].ShareOfVoice, 0.001)
	assert.InDelta(t, 25.0, byName["Y"].ShareOfVoice, 0.001)
}

func TestVerifyMetricFlagsViolations(t *testing.T) {
	metric := models.AggregatedMetric{
		ID:           "overall:all",
		TotalPrompts: 2,
		BrandMetrics: []models.BrandAggregate{{
			BrandName:         "Broken",
			UniqueAppearances: 5, // exceeds totalPrompts
			VisibilityScore:   250,
			TotalMentions:     3,
			BrandCitations:    1,
			EarnedCitations:   1,
			SocialCitations:   0,
			TotalCitations:    5, // sum is 2
			Sentiment:         models.SentimentBreakdown{Positive: 1},
		}},
	}

	violations := VerifyMetric(metric)

	invariants := make(map[string]bool)
	for _, v := range violations {
		invariants[v.Invariant] = true
	}
	assert.True(t, invariants["visibility_bound"])
	assert.True(t, invariants["appearance_dedup"])
	assert.True(t, invariants["citation_sum"])
	assert.True(t, invariants["sentiment_closure"])
}

func TestTopCitedDomains(t *testing.T) {
	records := []models.TestRecord{{
		ID: "r1", PromptID: "p1",
		BrandMentions: []models.BrandMention{{
			BrandName: "Netflix", Mentioned: true,
			Citations: []models.Citation{
				{URL: "https://www.netflix.com/in"},
				{URL: "https://blog.netflix.com/post"},
				{URL: "https://www.trustpilot.com/review/netflix.com"},
				{URL: ""},
			},
		}},
	}}

	domains := TopCitedDomains(records, 10)

	require.Len(t, domains, 2)
	assert.Equal(t, DomainCount{Domain: "netflix.com", Count: 2}, domains[0])
	assert.Equal(t, DomainCount{Domain: "trustpilot.com", Count: 1}, domains[1])
}
