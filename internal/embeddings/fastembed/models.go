// Package fastembed runs transformer embedding models locally through ONNX Runtime.
// Output vectors are mean pooled and L2-normalized by the model pipeline.
package fastembed

import (
	"errors"
	"strings"
)

// Provider is the metrics label for this embedder.
const Provider = "fastembed"

// DefaultModel is a small multilingual-capable default that downloads quickly.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

var (
	// ErrUnsupportedModel is returned for model names outside the known set.
	ErrUnsupportedModel = errors.New("fastembed: unsupported model")
	// ErrNotAvailable is returned when the binary was built without cgo.
	ErrNotAvailable = errors.New("fastembed: not available (binary built without cgo, use the openai provider)")
)

// Config holds local model settings.
type Config struct {
	Model     string
	CacheDir  string // model download directory
	MaxLength int    // max input tokens per text
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.CacheDir == "" {
		c.CacheDir = "local_cache"
	}
	if c.MaxLength <= 0 {
		c.MaxLength = 512
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	return c
}

// canonical names accepted in config, keyed by lowercase alias.
var modelAliases = map[string]string{
	"baai/bge-small-en-v1.5":                 "fast-bge-small-en-v1.5",
	"baai/bge-small-en":                      "fast-bge-small-en",
	"baai/bge-base-en-v1.5":                  "fast-bge-base-en-v1.5",
	"baai/bge-base-en":                       "fast-bge-base-en",
	"baai/bge-small-zh-v1.5":                 "fast-bge-small-zh-v1.5",
	"sentence-transformers/all-minilm-l6-v2": "fast-all-MiniLM-L6-v2",
	"fast-bge-small-en-v1.5":                 "fast-bge-small-en-v1.5",
	"fast-bge-small-en":                      "fast-bge-small-en",
	"fast-bge-base-en-v1.5":                  "fast-bge-base-en-v1.5",
	"fast-bge-base-en":                       "fast-bge-base-en",
	"fast-bge-small-zh-v1.5":                 "fast-bge-small-zh-v1.5",
	"fast-all-minilm-l6-v2":                  "fast-all-MiniLM-L6-v2",
}

var dimensions = map[string]int{
	"fast-bge-small-en-v1.5": 384,
	"fast-bge-small-en":      384,
	"fast-bge-base-en-v1.5":  768,
	"fast-bge-base-en":       768,
	"fast-bge-small-zh-v1.5": 512,
	"fast-all-MiniLM-L6-v2":  384,
}

// Resolve maps a configured model name to its fastembed identifier and dimension.
func Resolve(model string) (string, int, error) {
	name, ok := modelAliases[strings.ToLower(strings.TrimSpace(model))]
	if !ok {
		return "", 0, ErrUnsupportedModel
	}
	return name, dimensions[name], nil
}
