package places

import (
	"slices"

	"github.com/kailas-cloud/makan/internal/domain"
)

// Catalog is an immutable, ordered set of places with lookup by ID.
type Catalog struct {
	places []domain.Place
	byID   map[string]int
}

// NewCatalog validates places and indexes them. The input slice is copied.
func NewCatalog(places []domain.Place) (*Catalog, error) {
	if err := validate(places); err != nil {
		return nil, err
	}
	c := &Catalog{
		places: slices.Clone(places),
		byID:   make(map[string]int, len(places)),
	}
	for i, p := range c.places {
		c.byID[p.ID] = i
	}
	return c, nil
}

// All returns the places in dataset order.
func (c *Catalog) All() []domain.Place {
	return slices.Clone(c.places)
}

// Len returns the number of places.
func (c *Catalog) Len() int { return len(c.places) }

// Get returns the place with the given ID.
func (c *Catalog) Get(id string) (domain.Place, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Place{}, domain.ErrNotFound
	}
	return c.places[i], nil
}

// Resolve maps IDs to places, preserving order and skipping unknown IDs.
func (c *Catalog) Resolve(ids []string) []domain.Place {
	out := make([]domain.Place, 0, len(ids))
	for _, id := range ids {
		if i, ok := c.byID[id]; ok {
			out = append(out, c.places[i])
		}
	}
	return out
}
