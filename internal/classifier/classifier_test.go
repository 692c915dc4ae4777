package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brandbeacon/visibility-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		url      string
		brand    string
		expected models.CitationType
	}{
		{
			name:     "brand root domain with path",
			url:      "https://www.netflix.com/in",
			brand:    "Netflix",
			expected: models.CitationBrand,
		},
		{
			name:     "social platform profile",
			url:      "https://twitter.com/netflix",
			brand:    "Netflix",
			expected: models.CitationSocial,
		},
		{
			name:     "review site is earned even when path names the brand",
			url:      "https://www.trustpilot.com/review/netflix.com",
			brand:    "Netflix",
			expected: models.CitationEarned,
		},
		{
			name:     "trailing sentence punctuation stripped before matching",
			url:      "https://www.hdfcbank.com/personal/cards).",
			brand:    "HDFC Bank Freedom Credit Card",
			expected: models.CitationBrand,
		},
		{
			name:     "bare hostname without scheme",
			url:      "netflix.com",
			brand:    "Netflix",
			expected: models.CitationBrand,
		},
		{
			name:     "io TLD",
			url:      "https://grafana.io/docs",
			brand:    "Grafana",
			expected: models.CitationBrand,
		},
		{
			name:     "ai TLD",
			url:      "https://senso.ai",
			brand:    "Senso",
			expected: models.CitationBrand,
		},
		{
			name:     "linkedin company page",
			url:      "https://www.linkedin.com/company/netflix",
			brand:    "Netflix",
			expected: models.CitationSocial,
		},
		{
			name:     "youtube video",
			url:      "https://www.youtube.com/watch?v=abc123",
			brand:    "Netflix",
			expected: models.CitationSocial,
		},
		{
			name:     "unrelated news site",
			url:      "https://www.nytimes.com/2025/01/02/business/streaming.html",
			brand:    "Netflix",
			expected: models.CitationEarned,
		},
		{
			name:     "empty url degrades to earned",
			url:      "",
			brand:    "Netflix",
			expected: models.CitationEarned,
		},
		{
			name:     "punctuation-only url degrades to earned",
			url:      ")].",
			brand:    "Netflix",
			expected: models.CitationEarned,
		},
		{
			name:     "malformed scheme falls back to regex hostname",
			url:      "htps:/www.netflix.com)",
			brand:    "Netflix",
			expected: models.CitationEarned,
		},
		{
			name:     "brand name with empty core",
			url:      "https://example.com",
			brand:    "   ",
			expected: models.CitationEarned,
		},
		{
			name:     "single token brand",
			url:      "https://stripe.com/docs",
			brand:    "Stripe",
			expected: models.CitationBrand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.url, tt.brand))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New()

	urls := []string{
		"https://www.netflix.com/in",
		"https://twitter.com/netflix",
		"https://www.trustpilot.com/review/netflix.com",
		"https://blog.netflix.com/post",
	}

	first := make([]models.CitationType, len(urls))
	for i, u := range urls {
		first[i] = c.Classify(u, "Netflix")
	}

	// Re-classify in reverse order; batch order must not affect results.
	for i := len(urls) - 1; i >= 0; i-- {
		assert.Equal(t, first[i], c.Classify(urls[i], "Netflix"))
	}
}

func TestCoreBrandName(t *testing.T) {
	tests := []struct {
		brand    string
		expected string
	}{
		{"Netflix", "netflix"},
		{"HDFC Bank Freedom Credit Card", "hdfcbank"},
		{"Senso.ai", "sensoai"},
		{"Coca-Cola", "cocacola"},
		{"   ", ""},
		{"A B C D", "ab"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CoreBrandName(tt.brand), "brand %q", tt.brand)
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		c, err := LoadRules("")
		require.NoError(t, err)
		assert.Equal(t, models.CitationSocial, c.Classify("https://twitter.com/x", "Acme"))
	})

	t.Run("rules file overrides social domains", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := "social_domains:\n  - tiktok.com\nbrand_tlds:\n  - \".com\"\n  - \"\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		c, err := LoadRules(path)
		require.NoError(t, err)

		assert.Equal(t, models.CitationSocial, c.Classify("https://www.tiktok.com/@acme", "Acme"))
		// twitter.com is no longer in the rule set, so it falls to earned.
		assert.Equal(t, models.CitationEarned, c.Classify("https://twitter.com/acme", "Acme"))
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadRules("/nonexistent/rules.yaml")
		assert.Error(t, err)
	})
}
