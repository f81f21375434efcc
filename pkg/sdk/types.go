package makan

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/makan/internal/domain"
	searchuc "github.com/kailas-cloud/makan/internal/usecase/search"
)

// SearchMode tells which engine answered a query.
type SearchMode string

// Search mode constants.
const (
	ModeSemantic SearchMode = "semantic"
	ModeKeyword  SearchMode = "keyword"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64
	Lng float64
}

// Place is a searchable food location. Descriptions are keyed by locale ("en", "zh", ...).
type Place struct {
	ID              string
	Name            string
	Category        string
	Address         string
	Region          string
	Recommendations []string
	Descriptions    map[string]string
	Location        Location
}

// SearchResult is the answer to one query, best match first.
type SearchResult struct {
	Mode   SearchMode
	Places []Place
}

// State mirrors the flags a UI needs to render search.
type State struct {
	Initializing bool
	Searching    bool
	Ready        bool
}

func placeToDomain(p Place) domain.Place {
	return domain.Place{
		ID:              p.ID,
		Name:            p.Name,
		Category:        p.Category,
		Address:         p.Address,
		Region:          p.Region,
		Recommendations: slices.Clone(p.Recommendations),
		Descriptions:    maps.Clone(p.Descriptions),
		Location:        domain.Location{Lat: p.Location.Lat, Lng: p.Location.Lng},
	}
}

func placeFromDomain(p domain.Place) Place {
	return Place{
		ID:              p.ID,
		Name:            p.Name,
		Category:        p.Category,
		Address:         p.Address,
		Region:          p.Region,
		Recommendations: slices.Clone(p.Recommendations),
		Descriptions:    maps.Clone(p.Descriptions),
		Location:        Location{Lat: p.Location.Lat, Lng: p.Location.Lng},
	}
}

func placesToDomain(in []Place) []domain.Place {
	out := make([]domain.Place, len(in))
	for i, p := range in {
		out[i] = placeToDomain(p)
	}
	return out
}

func resultFromDomain(r searchuc.Result) SearchResult {
	out := SearchResult{Mode: SearchMode(r.Mode), Places: make([]Place, len(r.Places))}
	for i, p := range r.Places {
		out.Places[i] = placeFromDomain(p)
	}
	return out
}

func stateFromDomain(s searchuc.State) State {
	return State{Initializing: s.Initializing, Searching: s.Searching, Ready: s.Ready}
}
