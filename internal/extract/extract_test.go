package extract

import (
	"testing"

	"github.com/brandbeacon/visibility-bot/internal/classifier"
	"github.com/brandbeacon/visibility-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMentionsOrderAndPositions(t *testing.T) {
	e := New(classifier.New())

	response := "For streaming, Hulu is solid but Netflix remains the most popular choice. Disney is catching up."
	mentions := e.Mentions(response, []string{"Netflix", "Hulu", "Disney"})

	require.Len(t, mentions, 3)

	byName := make(map[string]models.BrandMention)
	for _, m := range mentions {
		byName[m.BrandName] = m
	}

	assert.True(t, byName["Hulu"].Mentioned)
	assert.Equal(t, 1, byName["Hulu"].FirstPosition)
	assert.Equal(t, 2, byName["Netflix"].FirstPosition)
	assert.Equal(t, 3, byName["Disney"].FirstPosition)
}

func TestMentionsAbsentBrand(t *testing.T) {
	e := New(classifier.New())

	mentions := e.Mentions("Nothing about streaming here.", []string{"Netflix"})

	require.Len(t, mentions, 1)
	assert.False(t, mentions[0].Mentioned)
	assert.Equal(t, 0, mentions[0].FirstPosition)
	assert.Equal(t, 0, mentions[0].MentionCount)
}

func TestMentionsExtractsAndClassifiesCitations(t *testing.T) {
	e := New(classifier.New())

	response := "Netflix (https://www.netflix.com/in) is widely reviewed, see " +
		"https://www.trustpilot.com/review/netflix.com and https://twitter.com/netflix."
	mentions := e.Mentions(response, []string{"Netflix"})

	require.Len(t, mentions, 1)
	m := mentions[0]
	require.True(t, m.Mentioned)
	require.Len(t, m.Citations, 3)

	assert.Equal(t, models.CitationBrand, m.Citations[0].Type)
	assert.Equal(t, models.CitationEarned, m.Citations[1].Type)
	assert.Equal(t, models.CitationSocial, m.Citations[2].Type)

	assert.Equal(t, 3, m.CitationMetrics.TotalCitations)
	assert.Equal(t, m.CitationMetrics.BrandCitations+m.CitationMetrics.EarnedCitations+m.CitationMetrics.SocialCitations,
		m.CitationMetrics.TotalCitations)
}

func TestCitationsStripTrailingBackslash(t *testing.T) {
	e := New(classifier.New())

	response := "Netflix publishes figures at https://www.netflix.com/investors\\ every quarter."
	mentions := e.Mentions(response, []string{"Netflix"})

	require.Len(t, mentions, 1)
	require.Len(t, mentions[0].Citations, 1)
	// The stored URL must already be clean, not rely on the classifier
	// re-stripping it later.
	assert.Equal(t, "https://www.netflix.com/investors", mentions[0].Citations[0].URL)
	assert.Equal(t, models.CitationBrand, mentions[0].Citations[0].Type)
}

func TestMentionCountDoesNotDoubleCountFullNameHits(t *testing.T) {
	e := New(classifier.New())

	response := "HDFC Bank Freedom Credit Card is solid, and HDFC support is responsive."
	mentions := e.Mentions(response, []string{"HDFC Bank Freedom Credit Card"})

	require.Len(t, mentions, 1)
	require.True(t, mentions[0].Mentioned)
	// One full-name occurrence plus one bare "HDFC": two mentions, not
	// three — the full-name hit must not also be counted as a first-word
	// hit.
	assert.Equal(t, 2, mentions[0].MentionCount)
}

func TestMentionsMultiWordBrandMatchesFirstWord(t *testing.T) {
	e := New(classifier.New())

	mentions := e.Mentions("HDFC offers a competitive card lineup.", []string{"HDFC Bank Freedom Credit Card"})

	require.Len(t, mentions, 1)
	assert.True(t, mentions[0].Mentioned)
}

func TestScoreSentiment(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"positive", "this is the best and most popular service, excellent value", models.SentimentPositive},
		{"negative", "avoid this, constant problems and poor support", models.SentimentNegative},
		{"neutral", "the service streams video content over the internet", models.SentimentNeutral},
		{"mixed", "great catalog but expensive and with frequent issues", models.SentimentMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, score := scoreSentiment(tt.text)
			assert.Equal(t, tt.expected, label)
			assert.GreaterOrEqual(t, score, -1.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}
