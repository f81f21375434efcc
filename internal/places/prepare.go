package places

import (
	"strings"

	"github.com/kailas-cloud/makan/internal/domain"
)

// DefaultLocales are the description locales included in searchable text.
var DefaultLocales = []string{"en", "zh", "ms", "ta"}

// BuildDocuments prepares one searchable document per place. The description is the
// place's description in every locale, in the given order, with empty ones skipped.
func BuildDocuments(places []domain.Place, locales []string) []domain.SearchableDocument {
	if len(locales) == 0 {
		locales = DefaultLocales
	}

	docs := make([]domain.SearchableDocument, 0, len(places))
	for _, p := range places {
		docs = append(docs, domain.SearchableDocument{
			ID:              p.ID,
			Name:            p.Name,
			Description:     joinDescriptions(p.Descriptions, locales),
			Category:        p.Category,
			Address:         p.Address,
			Region:          p.Region,
			Recommendations: p.Recommendations,
		})
	}
	return docs
}

func joinDescriptions(byLocale map[string]string, locales []string) string {
	parts := make([]string, 0, len(locales))
	for _, loc := range locales {
		if d := strings.TrimSpace(byLocale[loc]); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, " ")
}
