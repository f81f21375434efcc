package domain

// Location is a WGS84 coordinate pair used by the map scene.
type Location struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// Place is a curated food location.
type Place struct {
	ID              string            `yaml:"id" json:"id"`
	Name            string            `yaml:"name" json:"name"`
	Category        string            `yaml:"category" json:"category"`
	Address         string            `yaml:"address" json:"address"`
	Region          string            `yaml:"region" json:"region"`
	Recommendations []string          `yaml:"recommendations" json:"recommendations,omitempty"`
	Descriptions    map[string]string `yaml:"descriptions" json:"descriptions,omitempty"`
	Location        Location          `yaml:"location" json:"location"`
}
