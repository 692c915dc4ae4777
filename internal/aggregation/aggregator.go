package aggregation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/brandbeacon/visibility-bot/internal/classifier"
	"github.com/brandbeacon/visibility-bot/internal/models"
)

// Aggregator computes per-brand rollups from test records. It is stateless:
// every call re-derives everything from the records it is given, including
// citation types, which are reclassified rather than trusted from storage.
type Aggregator struct {
	classifier *classifier.Classifier
}

// NewAggregator returns an Aggregator using the given classifier for
// citation re-derivation.
func NewAggregator(c *classifier.Classifier) *Aggregator {
	return &Aggregator{classifier: c}
}

// brandAccumulator collects raw per-brand observations before any
// percentages are computed.
type brandAccumulator struct {
	name            string
	promptsSeen     map[string]bool
	totalMentions   int
	positions       []int
	sentimentScores []float64
	sentiment       models.SentimentBreakdown
	citations       models.CitationMetrics
}

// Aggregate rolls up the given test records into a single AggregatedMetric
// for (scope, scopeValue). An empty record set is not an error: it produces
// a zeroed metric with no brand entries, so callers can represent "no data"
// directly.
//
// Visibility deduplicates by prompt: a brand mentioned in several platform
// responses to the same prompt counts as one appearance, while every
// mentioned response still counts toward totalMentions. This keeps
// visibilityScore within [0, 100] by construction.
func (a *Aggregator) Aggregate(records []models.TestRecord, scope, scopeValue string, windowStart, windowEnd time.Time) models.AggregatedMetric {
	metric := models.AggregatedMetric{
		ID:          fmt.Sprintf("%s:%s", scope, scopeValue),
		Scope:       scope,
		ScopeValue:  scopeValue,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		ComputedAt:  time.Now().UTC(),
	}
	if len(records) == 0 {
		return metric
	}
	metric.UserID = records[0].UserID
	if metric.UserID != "" {
		metric.ID = fmt.Sprintf("%s:%s:%s", metric.UserID, scope, scopeValue)
	}

	prompts := make(map[string]bool)
	accumulators := make(map[string]*brandAccumulator)
	var brandOrder []string

	for _, record := range records {
		prompts[record.PromptID] = true
		metric.PromptTestIDs = append(metric.PromptTestIDs, record.ID)

		for _, mention := range record.BrandMentions {
			acc, ok := accumulators[mention.BrandName]
			if !ok {
				acc = &brandAccumulator{
					name:        mention.BrandName,
					promptsSeen: make(map[string]bool),
				}
				accumulators[mention.BrandName] = acc
				brandOrder = append(brandOrder, mention.BrandName)
			}

			for _, citation := range mention.Citations {
				acc.citations.Add(a.classifier.Classify(citation.URL, mention.BrandName))
			}

			if !mention.Mentioned {
				continue
			}

			acc.promptsSeen[record.PromptID] = true
			acc.totalMentions++
			if mention.FirstPosition >= 1 {
				acc.positions = append(acc.positions, mention.FirstPosition)
			}
			acc.sentimentScores = append(acc.sentimentScores, mention.SentimentScore)
			switch mention.Sentiment {
			case models.SentimentPositive:
				acc.sentiment.Positive++
			case models.SentimentNegative:
				acc.sentiment.Negative++
			case models.SentimentMixed:
				acc.sentiment.Mixed++
			default:
				acc.sentiment.Neutral++
			}
		}
	}

	metric.TotalPrompts = len(prompts)
	metric.TotalResponses = len(records)
	metric.TotalBrands = len(brandOrder)

	sumMentions := 0
	sumCitations := 0
	for _, acc := range accumulators {
		sumMentions += acc.totalMentions
		sumCitations += acc.citations.TotalCitations
	}

	for _, name := range brandOrder {
		acc := accumulators[name]

		agg := models.BrandAggregate{
			BrandName:         name,
			UniqueAppearances: len(acc.promptsSeen),
			TotalMentions:     acc.totalMentions,
			BrandCitations:    acc.citations.BrandCitations,
			EarnedCitations:   acc.citations.EarnedCitations,
			SocialCitations:   acc.citations.SocialCitations,
			TotalCitations:    acc.citations.TotalCitations,
			Sentiment:         acc.sentiment,
		}

		if metric.TotalPrompts > 0 {
			agg.VisibilityScore = round2(100 * float64(agg.UniqueAppearances) / float64(metric.TotalPrompts))
		}
		agg.VisibilityScore = clamp(agg.VisibilityScore, 0, 100)

		if sumMentions > 0 {
			agg.ShareOfVoice = round2(100 * float64(acc.totalMentions) / float64(sumMentions))
		}
		if metric.TotalResponses > 0 {
			agg.DepthOfMention = round2(100 * float64(acc.totalMentions) / float64(metric.TotalResponses))
		}
		if sumCitations > 0 {
			agg.CitationShare = round2(100 * float64(acc.citations.TotalCitations) / float64(sumCitations))
		}
		agg.AvgPosition = mean(acc.positions)
		agg.SentimentScore = meanFloat(acc.sentimentScores)

		metric.BrandMetrics = append(metric.BrandMetrics, agg)
	}

	assignRanks(metric.BrandMetrics)
	return metric
}

// assignRanks sorts brands per metric and writes 1-based ranks back into the
// slice. Each rank is independent. Sorts are stable, so ties keep input
// order; avgPosition ranks ascending (a lower first position is better) with
// unpositioned brands last.
func assignRanks(brands []models.BrandAggregate) {
	rank := func(less func(i, j int) bool, set func(b *models.BrandAggregate, rank int)) {
		order := make([]int, len(brands))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool { return less(order[i], order[j]) })
		for pos, idx := range order {
			set(&brands[idx], pos+1)
		}
	}

	rank(
		func(i, j int) bool { return brands[i].VisibilityScore > brands[j].VisibilityScore },
		func(b *models.BrandAggregate, r int) { b.VisibilityRank = r },
	)
	rank(
		func(i, j int) bool { return brands[i].ShareOfVoice > brands[j].ShareOfVoice },
		func(b *models.BrandAggregate, r int) { b.ShareOfVoiceRank = r },
	)
	rank(
		func(i, j int) bool {
			pi, pj := brands[i].AvgPosition, brands[j].AvgPosition
			if pi == 0 {
				return false
			}
			if pj == 0 {
				return true
			}
			return pi < pj
		},
		func(b *models.BrandAggregate, r int) { b.PositionRank = r },
	)
	rank(
		func(i, j int) bool { return brands[i].DepthOfMention > brands[j].DepthOfMention },
		func(b *models.BrandAggregate, r int) { b.DepthRank = r },
	)
	AssignCitationRanks(brands)
}

// AssignCitationRanks recomputes only the citation rank column. The repair
// pass uses it after rewriting citation totals, leaving every other rank
// untouched.
func AssignCitationRanks(brands []models.BrandAggregate) {
	order := make([]int, len(brands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return brands[order[i]].CitationShare > brands[order[j]].CitationShare
	})
	for pos, idx := range order {
		brands[idx].CitationRank = pos + 1
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return round2(float64(sum) / float64(len(values)))
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return round2(sum / float64(len(values)))
}
