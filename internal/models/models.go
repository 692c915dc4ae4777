package models

import "time"

// CitationType buckets a cited URL by where it points: the tracked brand's
// own web properties, a social platform, or an independent ("earned") source.
type CitationType string

const (
	CitationBrand  CitationType = "brand"
	CitationSocial CitationType = "social"
	CitationEarned CitationType = "earned"
)

// Sentiment labels for a brand mention.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
	SentimentMixed    = "mixed"
)

// Aggregation scopes.
const (
	ScopeOverall  = "overall"
	ScopePlatform = "platform"
	ScopeTopic    = "topic"
	ScopePersona  = "persona"
)

// Citation is a URL reference found in a platform response. Type is derived:
// it must always be recomputable from the URL and the owning brand name, so
// repair passes reclassify it rather than trusting the stored value.
type Citation struct {
	URL     string       `json:"url" bson:"url"`
	Type    CitationType `json:"type" bson:"type"`
	Context string       `json:"context,omitempty" bson:"context,omitempty"`
}

// CitationMetrics holds per-mention citation counts by type. The fields are
// re-derived by counting Citations[].Type, never edited independently.
type CitationMetrics struct {
	BrandCitations  int `json:"brand_citations" bson:"brand_citations"`
	EarnedCitations int `json:"earned_citations" bson:"earned_citations"`
	SocialCitations int `json:"social_citations" bson:"social_citations"`
	TotalCitations  int `json:"total_citations" bson:"total_citations"`
}

// Add counts one citation of the given type.
func (m *CitationMetrics) Add(t CitationType) {
	switch t {
	case CitationBrand:
		m.BrandCitations++
	case CitationSocial:
		m.SocialCitations++
	default:
		m.EarnedCitations++
	}
	m.TotalCitations++
}

// BrandMention records how one brand appeared in a single test response.
type BrandMention struct {
	BrandName       string          `json:"brand_name" bson:"brand_name"`
	Mentioned       bool            `json:"mentioned" bson:"mentioned"`
	FirstPosition   int             `json:"first_position" bson:"first_position"` // 1-based, 0 when not mentioned
	MentionCount    int             `json:"mention_count" bson:"mention_count"`
	Sentiment       string          `json:"sentiment" bson:"sentiment"`
	SentimentScore  float64         `json:"sentiment_score" bson:"sentiment_score"` // [-1, 1]
	Citations       []Citation      `json:"citations" bson:"citations"`
	CitationMetrics CitationMetrics `json:"citation_metrics" bson:"citation_metrics"`
}

// TestRecord is one prompt executed against one LLM platform.
type TestRecord struct {
	ID            string         `json:"id" bson:"_id"`
	UserID        string         `json:"user_id" bson:"user_id"`
	PromptID      string         `json:"prompt_id" bson:"prompt_id"`
	Platform      string         `json:"platform" bson:"platform"`
	Topic         string         `json:"topic,omitempty" bson:"topic,omitempty"`
	Persona       string         `json:"persona,omitempty" bson:"persona,omitempty"`
	ResponseText  string         `json:"response_text,omitempty" bson:"response_text,omitempty"`
	BrandMentions []BrandMention `json:"brand_mentions" bson:"brand_mentions"`
	Status        string         `json:"status" bson:"status"`
	ExecutedAt    time.Time      `json:"executed_at" bson:"executed_at"`
}

// Prompt is a tracked question executed against each platform.
type Prompt struct {
	ID      string `json:"id" bson:"_id"`
	UserID  string `json:"user_id" bson:"user_id"`
	Text    string `json:"text" bson:"text"`
	Topic   string `json:"topic,omitempty" bson:"topic,omitempty"`
	Persona string `json:"persona,omitempty" bson:"persona,omitempty"`
}

// SentimentBreakdown counts mentioned instances by sentiment label.
type SentimentBreakdown struct {
	Positive int `json:"positive" bson:"positive"`
	Neutral  int `json:"neutral" bson:"neutral"`
	Negative int `json:"negative" bson:"negative"`
	Mixed    int `json:"mixed" bson:"mixed"`
}

// Total returns the sum of all sentiment buckets.
func (s SentimentBreakdown) Total() int {
	return s.Positive + s.Neutral + s.Negative + s.Mixed
}

// BrandAggregate is the per-brand rollup inside an AggregatedMetric.
type BrandAggregate struct {
	BrandName         string             `json:"brand_name" bson:"brand_name"`
	UniqueAppearances int                `json:"unique_appearances" bson:"unique_appearances"`
	TotalMentions     int                `json:"total_mentions" bson:"total_mentions"`
	VisibilityScore   float64            `json:"visibility_score" bson:"visibility_score"` // [0, 100]
	ShareOfVoice      float64            `json:"share_of_voice" bson:"share_of_voice"`
	AvgPosition       float64            `json:"avg_position" bson:"avg_position"` // 0 when never positioned
	DepthOfMention    float64            `json:"depth_of_mention" bson:"depth_of_mention"`
	CitationShare     float64            `json:"citation_share" bson:"citation_share"`
	BrandCitations    int                `json:"brand_citations" bson:"brand_citations"`
	EarnedCitations   int                `json:"earned_citations" bson:"earned_citations"`
	SocialCitations   int                `json:"social_citations" bson:"social_citations"`
	TotalCitations    int                `json:"total_citations" bson:"total_citations"`
	Sentiment         SentimentBreakdown `json:"sentiment" bson:"sentiment"`
	SentimentScore    float64            `json:"sentiment_score" bson:"sentiment_score"`
	VisibilityRank    int                `json:"visibility_rank" bson:"visibility_rank"`
	ShareOfVoiceRank  int                `json:"share_of_voice_rank" bson:"share_of_voice_rank"`
	PositionRank      int                `json:"position_rank" bson:"position_rank"`
	DepthRank         int                `json:"depth_rank" bson:"depth_rank"`
	CitationRank      int                `json:"citation_rank" bson:"citation_rank"`
}

// AggregatedMetric is the rollup document for one (scope, scopeValue). Each
// recomputation replaces the prior document wholesale; there is no
// incremental update path.
type AggregatedMetric struct {
	ID             string           `json:"id" bson:"_id"`
	UserID         string           `json:"user_id" bson:"user_id"`
	Scope          string           `json:"scope" bson:"scope"`
	ScopeValue     string           `json:"scope_value" bson:"scope_value"`
	WindowStart    time.Time        `json:"window_start" bson:"window_start"`
	WindowEnd      time.Time        `json:"window_end" bson:"window_end"`
	TotalPrompts   int              `json:"total_prompts" bson:"total_prompts"`
	TotalResponses int              `json:"total_responses" bson:"total_responses"`
	TotalBrands    int              `json:"total_brands" bson:"total_brands"`
	BrandMetrics   []BrandAggregate `json:"brand_metrics" bson:"brand_metrics"`
	PromptTestIDs  []string         `json:"prompt_test_ids" bson:"prompt_test_ids"`
	ComputedAt     time.Time        `json:"computed_at" bson:"computed_at"`
}

// TypeBreakdown is a brand/earned/social citation count snapshot, used to
// report the before/after split of a repair pass.
type TypeBreakdown struct {
	Brand  int `json:"brand" bson:"brand"`
	Earned int `json:"earned" bson:"earned"`
	Social int `json:"social" bson:"social"`
}

// Total returns the sum of all three buckets.
func (b TypeBreakdown) Total() int { return b.Brand + b.Earned + b.Social }

// Percent returns the share of the given count within the breakdown, in
// percent, or 0 for an empty breakdown.
func (b TypeBreakdown) Percent(count int) float64 {
	total := b.Total()
	if total == 0 {
		return 0
	}
	return 100 * float64(count) / float64(total)
}

// RepairSummary is the observable result of a citation repair pass.
type RepairSummary struct {
	RunID            string        `json:"run_id"`
	Processed        int           `json:"processed"`
	Updated          int           `json:"updated"`
	CitationsChanged int           `json:"citations_changed"`
	MetricsPatched   int           `json:"metrics_patched"`
	Errors           int           `json:"errors"`
	Before           TypeBreakdown `json:"before"`
	After            TypeBreakdown `json:"after"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         string        `json:"duration"`
}

// RunSummary is the observable result of a full reaggregation run.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	TotalRecords   int       `json:"total_records"`
	TotalPrompts   int       `json:"total_prompts"`
	MetricsWritten int       `json:"metrics_written"`
	Scopes         []string  `json:"scopes"`
	Violations     int       `json:"violations"`
	Errors         int       `json:"errors"`
	StartedAt      time.Time `json:"started_at"`
	Duration       string    `json:"duration"`
}
