package aggregation

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/brandbeacon/visibility-bot/internal/models"
)

// DomainCount is a cited base domain and how often it was cited.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// TopCitedDomains groups every citation in the records by base domain
// (eTLD+1, so blog.example.co.uk and www.example.co.uk both count as
// example.co.uk) and returns the n most cited, descending. Unparseable URLs
// are skipped.
func TopCitedDomains(records []models.TestRecord, n int) []DomainCount {
	counts := make(map[string]int)

	for _, record := range records {
		for _, mention := range record.BrandMentions {
			for _, citation := range mention.Citations {
				domain := baseDomain(citation.URL)
				if domain == "" {
					continue
				}
				counts[domain]++
			}
		}
	}

	domains := make([]DomainCount, 0, len(counts))
	for domain, count := range counts {
		domains = append(domains, DomainCount{Domain: domain, Count: count})
	}
	sort.Slice(domains, func(i, j int) bool {
		if domains[i].Count != domains[j].Count {
			return domains[i].Count > domains[j].Count
		}
		return domains[i].Domain < domains[j].Domain
	})

	if n > 0 && len(domains) > n {
		domains = domains[:n]
	}
	return domains
}

// baseDomain returns the registrable domain (eTLD+1) for a citation URL, or
// "" when the URL has no usable hostname.
func baseDomain(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return ""
	}

	base, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return hostname
	}
	return base
}
