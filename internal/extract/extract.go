// Package extract turns raw platform response text into structured brand
// mention data: whether each tracked brand was mentioned, in what order, with
// what sentiment, and which URLs the response cited for it.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/brandbeacon/visibility-bot/internal/classifier"
	"github.com/brandbeacon/visibility-bot/internal/models"
)

// urlPattern matches http(s) and bare www URLs embedded in prose, stopping
// at whitespace and common delimiters.
var urlPattern = regexp.MustCompile(`(?:https?://|www\.)[^\s<>"']+`)

// Extractor derives BrandMention entries from response text.
type Extractor struct {
	classifier *classifier.Classifier
}

// New returns an Extractor that classifies extracted citations with the
// given classifier.
func New(c *classifier.Classifier) *Extractor {
	return &Extractor{classifier: c}
}

// Mentions scans the response for every tracked brand and returns one
// BrandMention per brand, in the order brands were passed in. FirstPosition
// is the 1-based order of first appearance among the mentioned brands, so
// the brand named earliest in the response gets position 1.
func (e *Extractor) Mentions(responseText string, brands []string) []models.BrandMention {
	lower := strings.ToLower(responseText)
	citations := e.citations(responseText)

	type hit struct {
		index int
		slot  int
	}
	var hits []hit

	mentions := make([]models.BrandMention, len(brands))
	for i, brand := range brands {
		mentions[i] = models.BrandMention{BrandName: brand}

		idx := firstOccurrence(lower, brand)
		if idx < 0 {
			continue
		}

		mentions[i].Mentioned = true
		mentions[i].MentionCount = occurrenceCount(lower, brand)
		mentions[i].Sentiment, mentions[i].SentimentScore = scoreSentiment(lower)
		hits = append(hits, hit{index: idx, slot: i})

		for _, c := range citations {
			mentions[i].Citations = append(mentions[i].Citations, models.Citation{
				URL:  c,
				Type: e.classifier.Classify(c, brand),
			})
		}
		for _, c := range mentions[i].Citations {
			mentions[i].CitationMetrics.Add(c.Type)
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].index < hits[b].index })
	for pos, h := range hits {
		mentions[h.slot].FirstPosition = pos + 1
	}

	return mentions
}

// citations returns the deduplicated URLs found in the response, in order of
// first appearance.
func (e *Extractor) citations(responseText string) []string {
	matches := urlPattern.FindAllString(responseText, -1)
	seen := make(map[string]bool)
	var urls []string
	for _, m := range matches {
		m = strings.TrimRight(m, classifier.TrailingPunctuation)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		urls = append(urls, m)
	}
	return urls
}

// firstOccurrence finds the brand name or its core token in the lowercased
// response, returning the earliest byte offset or -1.
func firstOccurrence(lowerText, brand string) int {
	best := -1
	for _, needle := range brandNeedles(brand) {
		if idx := strings.Index(lowerText, needle); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

// occurrenceCount counts how often the brand appears. The first-word needle
// is a prefix of the full-name needle, so counting the shortest needle alone
// covers full-name hits without counting them twice.
func occurrenceCount(lowerText, brand string) int {
	needles := brandNeedles(brand)
	if len(needles) == 0 {
		return 0
	}
	return strings.Count(lowerText, needles[len(needles)-1])
}

// brandNeedles returns the lowercase search terms for a brand: the full name
// and, when it differs, the first word. Longer product-suffixed names are
// usually referred to by their first word in model responses.
func brandNeedles(brand string) []string {
	full := strings.ToLower(strings.TrimSpace(brand))
	if full == "" {
		return nil
	}
	needles := []string{full}
	if fields := strings.Fields(full); len(fields) > 1 && len(fields[0]) >= 3 {
		needles = append(needles, fields[0])
	}
	return needles
}

var positiveWords = []string{"best", "great", "excellent", "recommended", "popular", "leading", "reliable", "top choice", "love"}
var negativeWords = []string{"worst", "bad", "avoid", "problem", "issue", "complaint", "expensive", "poor", "unreliable"}

// scoreSentiment is a keyword heuristic over the whole response. It returns
// the label plus a score in [-1, 1] proportional to the positive/negative
// word balance.
func scoreSentiment(lowerText string) (string, float64) {
	positive := 0
	negative := 0
	for _, w := range positiveWords {
		positive += strings.Count(lowerText, w)
	}
	for _, w := range negativeWords {
		negative += strings.Count(lowerText, w)
	}

	total := positive + negative
	if total == 0 {
		return models.SentimentNeutral, 0
	}

	score := float64(positive-negative) / float64(total)
	switch {
	case positive > 0 && negative > 0 && score > -0.5 && score < 0.5:
		return models.SentimentMixed, score
	case score > 0:
		return models.SentimentPositive, score
	case score < 0:
		return models.SentimentNegative, score
	default:
		return models.SentimentMixed, score
	}
}
