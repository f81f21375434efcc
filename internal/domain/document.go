package domain

import "strings"

// SearchableDocument is the text body embedded for one place.
// Built once per generation cycle, never mutated afterwards.
type SearchableDocument struct {
	ID              string
	Name            string
	Description     string
	Category        string
	Address         string
	Region          string
	Recommendations []string
}

// Text joins the non-empty fields with single spaces in a fixed order:
// name, description, category, address, region, recommendations.
func (d SearchableDocument) Text() string {
	parts := make([]string, 0, 5+len(d.Recommendations))
	for _, p := range []string{d.Name, d.Description, d.Category, d.Address, d.Region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	for _, r := range d.Recommendations {
		if r = strings.TrimSpace(r); r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, " ")
}
