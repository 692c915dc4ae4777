package classifier

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/brandbeacon/visibility-bot/internal/models"
)

// TrailingPunctuation is the set of characters LLM prose attaches to URL
// ends: closing punctuation of the sentence the URL was embedded in.
// Extraction and classification strip the same set so stored URLs match the
// classifier's notion of clean.
const TrailingPunctuation = ")].,;!?\\"

// hostFallbackPattern captures the hostname from URLs that net/url cannot
// parse (stray characters, malformed schemes). It grabs everything between
// an optional scheme/www prefix and the next path or delimiter character.
var hostFallbackPattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?([^/\\)]+)`)

// DefaultSocialDomains are the platforms whose citations count as "social"
// rather than earned coverage.
var DefaultSocialDomains = []string{
	"twitter.com",
	"linkedin.com",
	"facebook.com",
	"instagram.com",
	"youtube.com",
}

// DefaultBrandTLDs are the TLDs tried when matching a hostname against the
// brand's core name. The empty entry matches hostnames that are already bare.
var DefaultBrandTLDs = []string{".com", ".io", ".ai", ".in", ""}

// Classifier buckets citation URLs into brand, social, or earned.
// Classification is purely lexical: no network access, and the same inputs
// always produce the same category.
type Classifier struct {
	socialDomains []string
	brandTLDs     []string
}

// New returns a Classifier with the default rule set.
func New() *Classifier {
	return &Classifier{
		socialDomains: DefaultSocialDomains,
		brandTLDs:     DefaultBrandTLDs,
	}
}

// NewWithRules returns a Classifier with explicit rule sets. Empty slices
// fall back to the defaults.
func NewWithRules(socialDomains, brandTLDs []string) *Classifier {
	c := New()
	if len(socialDomains) > 0 {
		c.socialDomains = socialDomains
	}
	if len(brandTLDs) > 0 {
		c.brandTLDs = brandTLDs
	}
	return c
}

// Classify returns the citation type for a URL cited in a response about the
// given brand. It never fails: anything that cannot be positively matched to
// the brand or a social platform resolves to earned, the conservative
// default, since over-crediting brand citations inflates the tracked brand's
// score.
func (c *Classifier) Classify(rawURL, brandName string) models.CitationType {
	cleaned := strings.TrimRight(strings.TrimSpace(rawURL), TrailingPunctuation)
	if cleaned == "" {
		return models.CitationEarned
	}

	hostname := extractHostname(cleaned)
	if hostname == "" {
		return models.CitationEarned
	}

	core := CoreBrandName(brandName)
	if core != "" {
		for _, prefix := range []string{"", "www."} {
			for _, tld := range c.brandTLDs {
				if hostname == prefix+core+tld {
					return models.CitationBrand
				}
			}
		}
	}

	for _, social := range c.socialDomains {
		if strings.Contains(hostname, social) {
			return models.CitationSocial
		}
	}

	return models.CitationEarned
}

// CoreBrandName collapses a brand name to its domain-like root token:
// lowercase, at most the first two whitespace-separated words, joined and
// stripped of non-alphanumeric characters. "HDFC Bank Freedom Credit Card"
// becomes "hdfcbank", which is what the issuer's own domain is built from.
func CoreBrandName(brandName string) string {
	tokens := strings.Fields(strings.ToLower(brandName))
	if len(tokens) > 2 {
		tokens = tokens[:2]
	}
	joined := strings.Join(tokens, "")

	var b strings.Builder
	for _, r := range joined {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractHostname pulls a lowercased hostname out of a cleaned URL, falling
// back to a regex scan when standard parsing yields nothing usable.
func extractHostname(cleaned string) string {
	if u, err := url.Parse(cleaned); err == nil {
		if host := strings.ToLower(u.Hostname()); host != "" {
			return host
		}
	}

	m := hostFallbackPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return ""
	}
	host := strings.TrimRight(m[1], TrailingPunctuation)
	return strings.ToLower(host)
}
