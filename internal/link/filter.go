package link

import "strings"

// Policy is the read-only part of the crawl configuration that decides
// which links are eligible for the frontier.
type Policy struct {
	// AllowedDomains restricts links to these hosts. Empty means no
	// restriction.
	AllowedDomains []string

	// FollowExternalOnion permits links to onion hosts other than
	// StartDomain.
	FollowExternalOnion bool

	// StartDomain is the host of the seed URL.
	StartDomain string
}

// Allows reports whether raw satisfies every predicate of the policy:
// the host is an onion host, it is in AllowedDomains when that list is
// non-empty, and it equals StartDomain unless external onions are followed.
func (p Policy) Allows(raw string) bool {
	host, ok := ExtractDomain(raw)
	if !ok || !strings.HasSuffix(host, OnionSuffix) {
		return false
	}

	if len(p.AllowedDomains) > 0 && !p.isAllowedDomain(host) {
		return false
	}

	if !p.FollowExternalOnion && host != strings.ToLower(p.StartDomain) {
		return false
	}

	return true
}

func (p Policy) isAllowedDomain(host string) bool {
	for _, d := range p.AllowedDomains {
		if strings.EqualFold(strings.TrimSpace(d), host) {
			return true
		}
	}
	return false
}

// Filter returns the links the policy allows, preserving input order.
func Filter(rawLinks []string, policy Policy) []string {
	eligible := make([]string, 0, len(rawLinks))
	for _, l := range rawLinks {
		if policy.Allows(l) {
			eligible = append(eligible, l)
		}
	}
	return eligible
}
