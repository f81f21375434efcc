package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"max below default", func(c *Config) { c.Search.MaxTopK = 5 }, "search.max_top_k"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"openai without model", func(c *Config) { c.Embedding.Provider = ProviderOpenAI }, "embedding.model"},
		{
			"openai with model",
			func(c *Config) {
				c.Embedding.Provider = ProviderOpenAI
				c.Embedding.Model = "text-embedding-3-small"
			},
			"",
		},
		{"cache without addrs", func(c *Config) { c.Cache.Enabled = true }, "cache.addrs"},
		{
			"cache with addrs",
			func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Addrs = []string{"localhost:6379"}
			},
			"",
		},
		{"negative ttl", func(c *Config) { c.Cache.TTLHours = -1 }, "cache.ttl_hours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %v does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	cfg.Embedding.Provider = "cohere"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"http.port", "embedding.provider"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 15 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("http timeouts: got %+v", cfg.HTTP)
	}
	if cfg.Dataset.Path != "data/places.yaml" {
		t.Errorf("dataset path: got %q", cfg.Dataset.Path)
	}
	if got := strings.Join(cfg.Dataset.Locales, ","); got != "en,zh,ms,ta" {
		t.Errorf("locales: got %q", got)
	}
	if cfg.Search.DefaultTopK != 10 || cfg.Search.MaxTopK != 50 {
		t.Errorf("top k: got %d/%d", cfg.Search.DefaultTopK, cfg.Search.MaxTopK)
	}
	if cfg.Search.GenerateTimeout() != 120*time.Second {
		t.Errorf("generate timeout: got %v", cfg.Search.GenerateTimeout())
	}
	if cfg.Search.SearchTimeout() != 10*time.Second {
		t.Errorf("search timeout: got %v", cfg.Search.SearchTimeout())
	}
	if cfg.Embedding.Provider != ProviderFastEmbed {
		t.Errorf("provider: got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.BatchSize != 64 {
		t.Errorf("batch size: got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Cache.ReadinessTimeout != 10 {
		t.Errorf("cache readiness: got %d", cfg.Cache.ReadinessTimeout)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Dataset:   DatasetConfig{Path: "/srv/places.yaml", Locales: []string{"en"}},
		Search:    SearchConfig{DefaultTopK: 3, MaxTopK: 7, GenerateTimeoutSec: 30, SearchTimeoutSec: 2},
		Embedding: EmbeddingConfig{Provider: ProviderOpenAI, BatchSize: 16},
		Cache:     CacheConfig{ReadinessTimeout: 1},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.WriteTimeoutSec != 60 || cfg.HTTP.ShutdownSec != 5 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Dataset.Path != "/srv/places.yaml" || len(cfg.Dataset.Locales) != 1 {
		t.Errorf("dataset overridden: %+v", cfg.Dataset)
	}
	if cfg.Search.DefaultTopK != 3 || cfg.Search.MaxTopK != 7 {
		t.Errorf("search overridden: %+v", cfg.Search)
	}
	if cfg.Search.GenerateTimeoutSec != 30 || cfg.Search.SearchTimeoutSec != 2 {
		t.Errorf("timeouts overridden: %+v", cfg.Search)
	}
	if cfg.Embedding.Provider != ProviderOpenAI || cfg.Embedding.BatchSize != 16 {
		t.Errorf("embedding overridden: %+v", cfg.Embedding)
	}
	if cfg.Cache.ReadinessTimeout != 1 {
		t.Errorf("cache overridden: %+v", cfg.Cache)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MAKAN_TEST_SET", "valkey:6380")
	t.Setenv("MAKAN_TEST_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"addr: ${MAKAN_TEST_SET}", "addr: valkey:6380"},
		{"addr: ${MAKAN_TEST_SET:-localhost:6379}", "addr: valkey:6380"},
		{"addr: ${MAKAN_TEST_EMPTY:-localhost:6379}", "addr: localhost:6379"},
		{"addr: ${MAKAN_TEST_UNSET_123}", "addr: "},
		{"no vars", "no vars"},
	}
	for _, tt := range tests {
		if got := string(expandEnvVars([]byte(tt.in))); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("MAKAN_TEST_PORT", "9090")
	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: ${MAKAN_TEST_PORT}
embedding:
  provider: openai
  model: text-embedding-3-small
  api_key: ${MAKAN_TEST_KEY:-sk-test}
cache:
  enabled: true
  addrs: [localhost:6379]
  ttl_hours: 24
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("api key: got %q", cfg.Embedding.APIKey)
	}
	if cfg.Cache.TTL() != 24*time.Hour {
		t.Errorf("ttl: got %v", cfg.Cache.TTL())
	}
	if cfg.Search.DefaultTopK != 10 {
		t.Errorf("defaults not applied: %+v", cfg.Search)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("http:\n  port: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	malformed := filepath.Join(dir, "malformed.yaml")
	if err := os.WriteFile(malformed, []byte("http: [unclosed\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	for name, path := range map[string]string{
		"missing":   filepath.Join(dir, "missing.yaml"),
		"invalid":   invalid,
		"malformed": malformed,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFile(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_ShippedConfigs(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("CACHE_ENABLED", "")

	for _, env := range []string{"local", "prod"} {
		t.Run(env, func(t *testing.T) {
			cfg, err := Load(env)
			if err != nil {
				t.Fatalf("Load(%q): %v", env, err)
			}
			if cfg.HTTP.Port != 8080 {
				t.Errorf("port: got %d", cfg.HTTP.Port)
			}
			if cfg.Embedding.Provider != ProviderFastEmbed {
				t.Errorf("provider: got %q", cfg.Embedding.Provider)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("default env: got %q", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("env: got %q", got)
	}
}

func TestProjectPath(t *testing.T) {
	if got := ProjectPath("/abs/places.yaml"); got != "/abs/places.yaml" {
		t.Errorf("absolute path changed: %q", got)
	}
	got := ProjectPath("data/places.yaml")
	if _, err := os.Stat(got); err != nil {
		t.Errorf("shipped dataset not resolved: %q (%v)", got, err)
	}
}
