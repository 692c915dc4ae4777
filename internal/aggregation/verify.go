package aggregation

import (
	"fmt"

	"github.com/brandbeacon/visibility-bot/internal/models"
)

// Violation is a single failed invariant found during verification.
type Violation struct {
	MetricID  string `json:"metric_id"`
	BrandName string `json:"brand_name,omitempty"`
	Invariant string `json:"invariant"`
	Detail    string `json:"detail"`
}

func (v Violation) String() string {
	if v.BrandName != "" {
		return fmt.Sprintf("%s [%s] %s: %s", v.MetricID, v.BrandName, v.Invariant, v.Detail)
	}
	return fmt.Sprintf("%s %s: %s", v.MetricID, v.Invariant, v.Detail)
}

// VerifyMetric checks a stored AggregatedMetric against the invariants the
// aggregation pipeline guarantees. A violation means a counting or
// deduplication bug upstream (historically: appearances deduplicated
// per-test instead of per-prompt, pushing visibility past 100).
func VerifyMetric(metric models.AggregatedMetric) []Violation {
	var violations []Violation

	for _, brand := range metric.BrandMetrics {
		if brand.VisibilityScore < 0 || brand.VisibilityScore > 100 {
			violations = append(violations, Violation{
				MetricID:  metric.ID,
				BrandName: brand.BrandName,
				Invariant: "visibility_bound",
				Detail:    fmt.Sprintf("visibilityScore %.2f outside [0, 100]", brand.VisibilityScore),
			})
		}
		if brand.UniqueAppearances > metric.TotalPrompts {
			violations = append(violations, Violation{
				MetricID:  metric.ID,
				BrandName: brand.BrandName,
				Invariant: "appearance_dedup",
				Detail:    fmt.Sprintf("uniqueAppearances %d exceeds totalPrompts %d", brand.UniqueAppearances, metric.TotalPrompts),
			})
		}
		sum := brand.BrandCitations + brand.EarnedCitations + brand.SocialCitations
		if sum != brand.TotalCitations {
			violations = append(violations, Violation{
				MetricID:  metric.ID,
				BrandName: brand.BrandName,
				Invariant: "citation_sum",
				Detail:    fmt.Sprintf("brand+earned+social = %d, totalCitations = %d", sum, brand.TotalCitations),
			})
		}
		if brand.Sentiment.Total() != brand.TotalMentions {
			violations = append(violations, Violation{
				MetricID:  metric.ID,
				BrandName: brand.BrandName,
				Invariant: "sentiment_closure",
				Detail:    fmt.Sprintf("sentiment buckets sum to %d, totalMentions = %d", brand.Sentiment.Total(), brand.TotalMentions),
			})
		}
	}

	return violations
}

// VerifyRecord checks a TestRecord's stored citation metrics against its
// citation list. Used by the repair pass and the verification sweep.
func VerifyRecord(record models.TestRecord) []Violation {
	var violations []Violation

	for _, mention := range record.BrandMentions {
		var counted models.CitationMetrics
		for _, c := range mention.Citations {
			counted.Add(c.Type)
		}
		if counted != mention.CitationMetrics {
			violations = append(violations, Violation{
				MetricID:  record.ID,
				BrandName: mention.BrandName,
				Invariant: "citation_metrics_derivation",
				Detail: fmt.Sprintf("stored counts %+v do not match citation list %+v",
					mention.CitationMetrics, counted),
			})
		}
	}

	return violations
}
