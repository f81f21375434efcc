package places

import (
	"strings"

	"github.com/kailas-cloud/makan/internal/domain"
)

// SearchForKeyword is the plain substring search used until semantic search is ready.
// Matching is case-insensitive over every text field; results keep dataset order.
func SearchForKeyword(places []domain.Place, query string) []domain.Place {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []domain.Place{}
	}

	out := make([]domain.Place, 0)
	for _, p := range places {
		if matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p domain.Place, q string) bool {
	for _, field := range []string{p.Name, p.Category, p.Address, p.Region} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	for _, r := range p.Recommendations {
		if strings.Contains(strings.ToLower(r), q) {
			return true
		}
	}
	for _, d := range p.Descriptions {
		if strings.Contains(strings.ToLower(d), q) {
			return true
		}
	}
	return false
}
