package makan

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	embedder Embedder
	locales  []string

	generateTimeout time.Duration
	searchTimeout   time.Duration
	defaultTopK     int
	maxTopK         int
	batchSize       int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithLocales selects which description locales are embedded, in order.
// Defaults to en, zh, ms, ta.
func WithLocales(locales ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.locales = locales
	})
}

// WithTimeouts overrides the indexing (default 120s) and per-query (default 10s) timeouts.
// Non-positive values keep the default.
func WithTimeouts(generate, search time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.generateTimeout = generate
		c.searchTimeout = search
	})
}

// WithTopK sets the result count used when Search gets k <= 0 and the upper bound for k.
// Defaults: 10 and 50.
func WithTopK(defaultK, maxK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = defaultK
		c.maxTopK = maxK
	})
}

// WithMaxBatchSize caps the number of texts sent to the embedder per call.
// Default: 256.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = size
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
