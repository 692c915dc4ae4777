package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the on-disk override for the classification rule sets. Deployments
// that track brands with unusual TLDs, or additional social platforms, ship a
// rules file instead of patching code.
type Rules struct {
	SocialDomains []string `yaml:"social_domains"`
	BrandTLDs     []string `yaml:"brand_tlds"`
}

// LoadRules reads a rules file and returns a Classifier using it. An empty
// path returns the default Classifier. Missing or malformed files are
// errors: a silently half-applied rule set would reclassify citations
// differently between runs.
func LoadRules(path string) (*Classifier, error) {
	if path == "" {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier rules %s: %w", path, err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse classifier rules %s: %w", path, err)
	}

	return NewWithRules(rules.SocialDomains, rules.BrandTLDs), nil
}
