package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Vector store drivers.
const (
	DriverQdrant = "qdrant"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
)

// Config holds the catalograg configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Rerank      RerankConfig      `yaml:"rerank"`
	Cache       CacheConfig       `yaml:"cache"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Weights     WeightsConfig     `yaml:"weights"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// VectorStoreConfig holds catalog vector store connection settings.
type VectorStoreConfig struct {
	Driver           string   `yaml:"driver"` // qdrant, redis, valkey (default: qdrant)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	APIKey           string   `yaml:"api_key"`
	TLS              bool     `yaml:"tls"`
	CollectionPrefix string   `yaml:"collection_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	TimeoutMs        int    `yaml:"timeout_ms"`
}

// ExtractionConfig holds the attribute extraction model settings.
// Empty APIKey and BaseURL fall back to the embedding provider's.
type ExtractionConfig struct {
	Enabled     bool    `yaml:"enabled"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TimeoutMs   int     `yaml:"timeout_ms"`
}

// RerankConfig holds the cross-encoder settings.
type RerankConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	TopK      int    `yaml:"top_k"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// CacheConfig holds the two pipeline cache settings.
type CacheConfig struct {
	EmbeddingMaxSize int `yaml:"embedding_max_size"`
	EmbeddingTTLSec  int `yaml:"embedding_ttl_sec"`
	AttributeMaxSize int `yaml:"attribute_max_size"`
	AttributeTTLSec  int `yaml:"attribute_ttl_sec"`
	SweepIntervalSec int `yaml:"sweep_interval_sec"`
}

// RetrievalConfig holds default request sizing.
type RetrievalConfig struct {
	PoolSize        int `yaml:"pool_size"`
	Limit           int `yaml:"limit"`
	DisplayCount    int `yaml:"display_count"`
	SearchTimeoutMs int `yaml:"search_timeout_ms"`
}

// WeightsConfig overrides individual rescoring weights. Nil keeps the default.
type WeightsConfig struct {
	Category   *float64 `yaml:"category"`
	Brand      *float64 `yaml:"brand"`
	Color      *float64 `yaml:"color"`
	Material   *float64 `yaml:"material"`
	Season     *float64 `yaml:"season"`
	Gender     *float64 `yaml:"gender"`
	Size       *float64 `yaml:"size"`
	Popularity *float64 `yaml:"popularity"`
	CTR        *float64 `yaml:"ctr"`
	Sales      *float64 `yaml:"sales"`
}

// RateLimitConfig holds the per-IP limit of the retrieve endpoint. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Timeout returns the embedding call timeout.
func (c EmbeddingConfig) Timeout() time.Duration { return ms(c.TimeoutMs) }

// Timeout returns the extraction call timeout.
func (c ExtractionConfig) Timeout() time.Duration { return ms(c.TimeoutMs) }

// Timeout returns the rerank call timeout.
func (c RerankConfig) Timeout() time.Duration { return ms(c.TimeoutMs) }

// SearchTimeout returns the vector search timeout.
func (c RetrievalConfig) SearchTimeout() time.Duration { return ms(c.SearchTimeoutMs) }

// EmbeddingTTL returns the embedding cache TTL.
func (c CacheConfig) EmbeddingTTL() time.Duration { return sec(c.EmbeddingTTLSec) }

// AttributeTTL returns the attribute cache TTL.
func (c CacheConfig) AttributeTTL() time.Duration { return sec(c.AttributeTTLSec) }

// SweepInterval returns the background sweep period.
func (c CacheConfig) SweepInterval() time.Duration { return sec(c.SweepIntervalSec) }

func ms(v int) time.Duration  { return time.Duration(v) * time.Millisecond }
func sec(v int) time.Duration { return time.Duration(v) * time.Second }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.VectorStore.Driver == "" {
		c.VectorStore.Driver = DriverQdrant
	}
	if c.VectorStore.ReadinessTimeout <= 0 {
		c.VectorStore.ReadinessTimeout = 10
	}
	if c.VectorStore.CollectionPrefix == "" {
		c.VectorStore.CollectionPrefix = "catalog_"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 10_000
	}

	if c.Extraction.APIKey == "" {
		c.Extraction.APIKey = c.Embedding.APIKey
	}
	if c.Extraction.BaseURL == "" {
		c.Extraction.BaseURL = c.Embedding.BaseURL
	}
	if c.Extraction.Model == "" {
		c.Extraction.Model = "gpt-4o-mini"
	}
	if c.Extraction.TimeoutMs <= 0 {
		c.Extraction.TimeoutMs = 5_000
	}

	if c.Rerank.TopK <= 0 {
		c.Rerank.TopK = 20
	}
	if c.Rerank.TimeoutMs <= 0 {
		c.Rerank.TimeoutMs = 3_000
	}

	if c.Cache.EmbeddingMaxSize <= 0 {
		c.Cache.EmbeddingMaxSize = 1000
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 3600
	}
	if c.Cache.AttributeMaxSize <= 0 {
		c.Cache.AttributeMaxSize = 500
	}
	if c.Cache.AttributeTTLSec <= 0 {
		c.Cache.AttributeTTLSec = 1800
	}
	if c.Cache.SweepIntervalSec <= 0 {
		c.Cache.SweepIntervalSec = 60
	}

	if c.Retrieval.PoolSize <= 0 {
		c.Retrieval.PoolSize = 100
	}
	if c.Retrieval.Limit <= 0 {
		c.Retrieval.Limit = 50
	}
	if c.Retrieval.DisplayCount <= 0 {
		c.Retrieval.DisplayCount = 10
	}
	if c.Retrieval.SearchTimeoutMs <= 0 {
		c.Retrieval.SearchTimeoutMs = 5_000
	}

	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.VectorStore.Driver {
	case DriverQdrant, DriverRedis, DriverValkey:
		// ok
	default:
		return fmt.Errorf("vector_store.driver must be one of qdrant, redis, valkey, got %q", c.VectorStore.Driver)
	}
	if len(c.VectorStore.Addrs) == 0 {
		return fmt.Errorf("vector_store.addrs is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Rerank.Enabled && c.Rerank.BaseURL == "" {
		return fmt.Errorf("rerank.base_url is required when rerank is enabled")
	}
	if c.Retrieval.Limit > c.Retrieval.PoolSize {
		return fmt.Errorf("retrieval.limit (%d) must not exceed retrieval.pool_size (%d)",
			c.Retrieval.Limit, c.Retrieval.PoolSize)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must not be negative, got %v", c.RateLimit.RPS)
	}
	if err := c.Weights.validate(); err != nil {
		return err
	}
	return nil
}

func (w WeightsConfig) validate() error {
	named := []struct {
		name string
		v    *float64
	}{
		{"category", w.Category}, {"brand", w.Brand}, {"color", w.Color},
		{"material", w.Material}, {"season", w.Season}, {"gender", w.Gender},
		{"size", w.Size}, {"popularity", w.Popularity}, {"ctr", w.CTR}, {"sales", w.Sales},
	}
	for _, n := range named {
		if n.v != nil && *n.v < 0 {
			return fmt.Errorf("weights.%s must not be negative, got %v", n.name, *n.v)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
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
