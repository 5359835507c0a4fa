// Package config loads the faqindex configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/faqindex/internal/db"
	"github.com/kailas-cloud/faqindex/internal/domain"
)

// Search engine drivers.
const (
	DriverElasticsearch = "elasticsearch"
	DriverValkey        = "valkey"
)

//go:embed defaults.yaml
var defaultConfig []byte

// Config holds the faqindex configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// SourceConfig holds the document source settings.
type SourceConfig struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SearchConfig holds search engine connection and index settings.
type SearchConfig struct {
	Driver           string `yaml:"driver"` // elasticsearch, valkey (default: elasticsearch)
	URL              string `yaml:"url"`    // ES_URL
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	APIKey           string `yaml:"api_key"`
	Index            string `yaml:"index"` // INDEX_NAME
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
	TextSearch       bool   `yaml:"text_search"` // valkey only: TEXT fields need Redis 8+
	HNSWM            int    `yaml:"hnsw_m"`
	HNSWEFConstruct  int    `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          string `yaml:"provider"`
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"` // MODEL_NAME
	Dimensions        int    `yaml:"dimensions"`
	RequestDimensions bool   `yaml:"request_dimensions"`
	CacheURL          string `yaml:"cache_url"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	ProgressEvery      int   `yaml:"progress_every"`
	VerifyCount        *bool `yaml:"verify_count"` // default true
	RejectDuplicateIDs bool  `yaml:"reject_duplicate_ids"`
}

// ShouldVerifyCount reports whether the post-ingestion count check runs.
func (c IngestConfig) ShouldVerifyCount() bool {
	return c.VerifyCount == nil || *c.VerifyCount
}

// DatabaseConfig holds the application database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig holds the optional metrics server settings.
type MetricsConfig struct {
	Addr        string   `yaml:"addr"` // empty disables the server
	ShutdownSec int      `yaml:"shutdown_timeout_sec"`
	APIKeys     []string `yaml:"api_keys"` // Bearer tokens for /metrics; empty disables auth
}

// Load reads configuration by environment name (local, dev, prod).
// Without a config/<env>.yaml file the embedded defaults are used.
func Load(env string) (Config, error) {
	data := defaultConfig
	if path, ok := findConfigPath(env); ok {
		b, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, errors.Join(domain.ErrConfig, err))
		}
		data = b
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", errors.Join(domain.ErrConfig, err))
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env") into the
// process environment. Missing files are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if !fileExists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, errors.Join(domain.ErrConfig, err))
		}
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Source.TimeoutSec <= 0 {
		c.Source.TimeoutSec = 60
	}
	if c.Search.Driver == "" {
		c.Search.Driver = DriverElasticsearch
	}
	if c.Search.ReadinessTimeout <= 0 {
		c.Search.ReadinessTimeout = 30
	}
	if c.Search.HNSWM <= 0 {
		c.Search.HNSWM = 16
	}
	if c.Search.HNSWEFConstruct <= 0 {
		c.Search.HNSWEFConstruct = 200
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "tei"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = domain.DefaultVectorConfig().Dimensions
	}
	if c.Ingest.ProgressEvery <= 0 {
		c.Ingest.ProgressEvery = 100
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join("data", "faq.db")
	}
	if c.Metrics.ShutdownSec <= 0 {
		c.Metrics.ShutdownSec = 5
	}
}

// Validate checks the configuration. Every failure wraps domain.ErrConfig.
func (c *Config) Validate() error {
	var missing []string
	if c.Search.URL == "" {
		missing = append(missing, "ES_URL (search.url)")
	}
	if c.Embedding.Model == "" {
		missing = append(missing, "MODEL_NAME (embedding.model)")
	}
	if c.Search.Index == "" {
		missing = append(missing, "INDEX_NAME (search.index)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s: %w", strings.Join(missing, ", "), domain.ErrConfig)
	}

	switch c.Search.Driver {
	case DriverElasticsearch, DriverValkey:
	default:
		return fmt.Errorf("search.driver must be %q or %q, got %q: %w",
			DriverElasticsearch, DriverValkey, c.Search.Driver, domain.ErrConfig)
	}
	if !db.IsValidIdentifier(c.Search.Index) {
		return fmt.Errorf("search.index %q contains invalid characters: %w", c.Search.Index, domain.ErrConfig)
	}
	if c.Search.Driver == DriverElasticsearch && strings.ToLower(c.Search.Index) != c.Search.Index {
		return fmt.Errorf("search.index %q must be lowercase for elasticsearch: %w", c.Search.Index, domain.ErrConfig)
	}
	return nil
}

// findConfigPath locates config/<env>.yaml.
func findConfigPath(env string) (string, bool) {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path, true
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path, true
	}

	return "", false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
