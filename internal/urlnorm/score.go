package urlnorm

import "strings"

// DefaultReputableDomains is the curated set of outlets and institutions
// treated as higher-trust when ranking results.
var DefaultReputableDomains = []string{
	"reuters.com",
	"apnews.com",
	"bbc.com",
	"bbc.co.uk",
	"nytimes.com",
	"wsj.com",
	"theguardian.com",
	"npr.org",
	"pbs.org",
	"nature.com",
	"science.org",
	"who.int",
	"cdc.gov",
	"nih.gov",
	"un.org",
	"worldbank.org",
	"oecd.org",
	"europa.eu",
	"wikipedia.org",
	"britannica.com",
}

// DomainRule awards Points to every domain Match accepts.
type DomainRule struct {
	Name   string
	Points int
	Match  func(domain string) bool
}

// Scorer ranks domains by summing the points of every matching rule.
type Scorer struct {
	reputable map[string]struct{}
	rules     []DomainRule
}

// NewScorer builds a scorer around the given reputable set. An empty set
// falls back to DefaultReputableDomains.
func NewScorer(reputable []string) *Scorer {
	if len(reputable) == 0 {
		reputable = DefaultReputableDomains
	}
	s := &Scorer{reputable: make(map[string]struct{}, len(reputable))}
	for _, domain := range reputable {
		domain = strings.ToLower(strings.Trim(strings.TrimSpace(domain), "."))
		if domain != "" {
			s.reputable[domain] = struct{}{}
		}
	}
	s.rules = []DomainRule{
		{Name: "government", Points: 5, Match: hasSuffix(".gov")},
		{Name: "education", Points: 4, Match: hasSuffix(".edu")},
		{Name: "reputable", Points: 3, Match: s.IsReputable},
		{Name: "organization", Points: 1, Match: hasSuffix(".org", ".int")},
	}
	return s
}

// Score returns the additive reputation score of domain. It is never negative.
func (s *Scorer) Score(domain string) int {
	domain = normalizeDomain(domain)
	if domain == "" {
		return 0
	}
	score := 0
	for _, rule := range s.rules {
		if rule.Match(domain) {
			score += rule.Points
		}
	}
	return score
}

// IsReputable reports whether domain is .gov, .edu, or equal to or a
// subdomain of an entry in the curated set.
func (s *Scorer) IsReputable(domain string) bool {
	domain = normalizeDomain(domain)
	if strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".edu") {
		return true
	}
	if _, ok := s.reputable[domain]; ok {
		return true
	}
	for candidate := range s.reputable {
		if strings.HasSuffix(domain, "."+candidate) {
			return true
		}
	}
	return false
}

func hasSuffix(suffixes ...string) func(string) bool {
	return func(domain string) bool {
		for _, suffix := range suffixes {
			if strings.HasSuffix(domain, suffix) {
				return true
			}
		}
		return false
	}
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host, _, found := strings.Cut(domain, ":"); found && !strings.Contains(domain, "]") {
		domain = host
	}
	return strings.TrimSuffix(domain, ".")
}
