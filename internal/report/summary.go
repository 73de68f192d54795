package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/nao1215/onioncrawl/internal/link"
	"github.com/nao1215/onioncrawl/internal/model"
)

// DomainCount is the number of stored pages of one onion host.
type DomainCount struct {
	Domain string `json:"domain"`
	Pages  int    `json:"pages"`
	Errors int    `json:"errors"`
}

// StatusCount is the number of pages answered with one HTTP status.
// Status 0 counts pages that received no response.
type StatusCount struct {
	Status int `json:"status"`
	Pages  int `json:"pages"`
}

// Failure is a page whose fetch failed.
type Failure struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
	Error string `json:"error"`
}

// Summary aggregates the stored records of a crawl.
type Summary struct {
	// Source describes where the records came from, such as a file path.
	Source string `json:"source"`

	// GeneratedAt is the UTC time the summary was built.
	GeneratedAt time.Time `json:"generated_at"`

	// Stats are the counters reported by the storage backend.
	Stats model.Stats `json:"stats"`

	// MaxDepth is the deepest level found in the records.
	MaxDepth int `json:"max_depth"`

	Statuses []StatusCount `json:"statuses"`
	Domains  []DomainCount `json:"domains"`
	Failures []Failure     `json:"failures"`

	// Pages are the records in first-saved order.
	Pages []*model.PageRecord `json:"pages,omitempty"`
}

// Summarize builds a Summary over records. stats is taken as reported by
// the store; the breakdowns are computed from records.
func Summarize(source string, records []*model.PageRecord, stats model.Stats) *Summary {
	s := &Summary{
		Source:      source,
		GeneratedAt: time.Now().UTC(),
		Stats:       stats,
		Statuses:    []StatusCount{},
		Domains:     []DomainCount{},
		Failures:    []Failure{},
		Pages:       records,
	}

	statuses := make(map[int]int)
	domains := make(map[string]*DomainCount)

	for _, r := range records {
		if r == nil {
			continue
		}
		s.MaxDepth = max(s.MaxDepth, r.Depth)
		statuses[r.HTTPStatus]++

		domain, ok := link.ExtractDomain(r.URL)
		if !ok {
			domain = "(unknown)"
		}
		dc, found := domains[domain]
		if !found {
			dc = &DomainCount{Domain: domain}
			domains[domain] = dc
		}
		dc.Pages++

		if !r.Succeeded() {
			dc.Errors++
			s.Failures = append(s.Failures, Failure{URL: r.URL, Depth: r.Depth, Error: r.ErrorString()})
		}
	}

	for status, n := range statuses {
		s.Statuses = append(s.Statuses, StatusCount{Status: status, Pages: n})
	}
	slices.SortFunc(s.Statuses, func(a, b StatusCount) int {
		return cmp.Compare(a.Status, b.Status)
	})

	for _, dc := range domains {
		s.Domains = append(s.Domains, *dc)
	}
	slices.SortFunc(s.Domains, func(a, b DomainCount) int {
		if c := cmp.Compare(b.Pages, a.Pages); c != 0 {
			return c
		}
		return cmp.Compare(a.Domain, b.Domain)
	})

	return s
}

// SuccessRate returns the share of successful pages in percent, or 0 for an
// empty crawl.
func (s *Summary) SuccessRate() float64 {
	if s.Stats.TotalPages == 0 {
		return 0
	}
	return float64(s.Stats.Successful) * 100 / float64(s.Stats.TotalPages)
}

// TopDomains returns at most n domains with the most pages.
func (s *Summary) TopDomains(n int) []DomainCount {
	if n < 0 || n >= len(s.Domains) {
		return s.Domains
	}
	return s.Domains[:n]
}
