// Package places holds the curated food place dataset and turns it into searchable documents.
package places

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/makan/internal/domain"
)

type datasetFile struct {
	Places []domain.Place `yaml:"places"`
}

// LoadFile reads a YAML dataset of the form `places: [...]` and validates it.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML dataset and validates it.
func Parse(data []byte) (*Catalog, error) {
	var file datasetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidDataset, err)
	}
	return NewCatalog(file.Places)
}

func validate(places []domain.Place) error {
	seen := make(map[string]int, len(places))
	var errs []error
	for i, p := range places {
		id := strings.TrimSpace(p.ID)
		switch {
		case id == "":
			errs = append(errs, fmt.Errorf("place #%d: id is required", i))
		case id != p.ID:
			errs = append(errs, fmt.Errorf("place %q: id has surrounding whitespace", p.ID))
		default:
			if j, dup := seen[id]; dup {
				errs = append(errs, fmt.Errorf("place %q: duplicate id (also #%d)", id, j))
			}
			seen[id] = i
		}
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("place #%d: name is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDataset, errors.Join(errs...))
	}
	return nil
}
