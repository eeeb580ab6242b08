// Package config loads and validates kasane configuration. Values are
// applied in order of increasing precedence: hardcoded defaults, a
// project config file (.kasane.yaml), then KASANE_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kasane-search/kasane/internal/search"
	"github.com/kasane-search/kasane/internal/store"
)

// Config is the complete kasane configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Sparse  SparseConfig  `yaml:"sparse" json:"sparse"`
	Vector  VectorConfig  `yaml:"vector" json:"vector"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PathsConfig configures where index state lives on disk.
type PathsConfig struct {
	// DataDir holds the persisted sparse index, vector store, and
	// metadata database. Default: .kasane in the working directory.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// SearchConfig configures fusion and result limits.
//
// Weights, the RRF constant, and alpha are configurable via:
//  1. Project config (.kasane.yaml) - per-corpus tuning
//  2. Env vars (KASANE_SPARSE_WEIGHT, KASANE_DENSE_WEIGHT,
//     KASANE_RRF_CONSTANT, KASANE_ALPHA) - highest priority
type SearchConfig struct {
	// SparseWeight is the weight for BM25 keyword matching.
	SparseWeight float64 `yaml:"sparse_weight" json:"sparse_weight"`

	// DenseWeight is the weight for vector similarity.
	DenseWeight float64 `yaml:"dense_weight" json:"dense_weight"`

	// RRFConstant is the RRF smoothing parameter (k).
	// Default: 60 (industry standard used by Azure AI Search, OpenSearch).
	// Higher values reduce the impact of rank differences.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// Alpha blends the weighted-score and RRF components:
	// final = alpha*weighted + (1-alpha)*minmax(rrf). Default: 0.7.
	Alpha float64 `yaml:"alpha" json:"alpha"`

	// DefaultLimit is used when a request leaves the limit unset.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// MaxLimit caps any request limit.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`
}

// SparseConfig configures the BM25 index.
type SparseConfig struct {
	// Backend selects the sparse index implementation.
	// Options: "memory" (default, exact scores) or "bleve".
	Backend string `yaml:"backend" json:"backend"`

	K1 float64 `yaml:"k1" json:"k1"`
	B  float64 `yaml:"b" json:"b"`

	// MinTokenLength drops tokens shorter than this many runes.
	MinTokenLength int `yaml:"min_token_length" json:"min_token_length"`
}

// VectorConfig configures the dense vector store.
type VectorConfig struct {
	// Backend selects the vector store implementation.
	// Options: "flat" (default, exact search) or "hnsw" (approximate).
	Backend string `yaml:"backend" json:"backend"`

	// Dimensions is the embedding dimensionality. Fixed for the life of
	// a store; every vector must match.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// M and EfSearch tune the HNSW graph (ignored by the flat backend).
	M        int `yaml:"m" json:"m"`
	EfSearch int `yaml:"ef_search" json:"ef_search"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level" json:"level"`

	// File redirects log output; empty means stderr.
	File string `yaml:"file" json:"file"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir: ".kasane",
		},
		Search: SearchConfig{
			SparseWeight: 0.6,
			DenseWeight:  0.4,
			RRFConstant:  60,
			Alpha:        0.7,
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		Sparse: SparseConfig{
			Backend:        "memory",
			K1:             1.2,
			B:              0.75,
			MinTokenLength: 2,
		},
		Vector: VectorConfig{
			Backend:    "flat",
			Dimensions: 384,
			M:          16,
			EfSearch:   64,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the specified directory, applying in
// order of increasing precedence:
//  1. Hardcoded defaults
//  2. Project config (.kasane.yaml or .kasane.yml in dir)
//  3. Environment variables (KASANE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .kasane.yaml or
// .kasane.yml. A missing file is fine; defaults apply.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".kasane.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".kasane.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Zero is not a
// practical value for any merged field, so zero means "unset".
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}

	if other.Search.SparseWeight != 0 {
		c.Search.SparseWeight = other.Search.SparseWeight
	}
	if other.Search.DenseWeight != 0 {
		c.Search.DenseWeight = other.Search.DenseWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.Alpha != 0 {
		c.Search.Alpha = other.Search.Alpha
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}

	if other.Sparse.Backend != "" {
		c.Sparse.Backend = other.Sparse.Backend
	}
	if other.Sparse.K1 != 0 {
		c.Sparse.K1 = other.Sparse.K1
	}
	if other.Sparse.B != 0 {
		c.Sparse.B = other.Sparse.B
	}
	if other.Sparse.MinTokenLength != 0 {
		c.Sparse.MinTokenLength = other.Sparse.MinTokenLength
	}

	if other.Vector.Backend != "" {
		c.Vector.Backend = other.Vector.Backend
	}
	if other.Vector.Dimensions != 0 {
		c.Vector.Dimensions = other.Vector.Dimensions
	}
	if other.Vector.M != 0 {
		c.Vector.M = other.Vector.M
	}
	if other.Vector.EfSearch != 0 {
		c.Vector.EfSearch = other.Vector.EfSearch
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies KASANE_* environment variables. Invalid
// values are silently ignored; the file/default value stands.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KASANE_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("KASANE_SPARSE_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 {
			c.Search.SparseWeight = w
		}
	}
	if v := os.Getenv("KASANE_DENSE_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 {
			c.Search.DenseWeight = w
		}
	}
	if v := os.Getenv("KASANE_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("KASANE_ALPHA"); v != "" {
		if a, err := strconv.ParseFloat(v, 64); err == nil && a >= 0 && a <= 1 {
			c.Search.Alpha = a
		}
	}
	if v := os.Getenv("KASANE_SPARSE_BACKEND"); v != "" {
		c.Sparse.Backend = v
	}
	if v := os.Getenv("KASANE_VECTOR_BACKEND"); v != "" {
		c.Vector.Backend = v
	}
	if v := os.Getenv("KASANE_DIMENSIONS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			c.Vector.Dimensions = d
		}
	}
	if v := os.Getenv("KASANE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the final configuration for values that would make
// the engine misbehave at query time.
func (c *Config) Validate() error {
	if c.Search.SparseWeight < 0 || c.Search.DenseWeight < 0 {
		return fmt.Errorf("search weights must be nonnegative (sparse=%v, dense=%v)",
			c.Search.SparseWeight, c.Search.DenseWeight)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0,1], got %v", c.Search.Alpha)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("max_limit (%d) must be >= default_limit (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	switch c.Sparse.Backend {
	case "memory", "bleve":
	default:
		return fmt.Errorf("unknown sparse backend %q (want memory or bleve)", c.Sparse.Backend)
	}
	if c.Sparse.K1 < 0 {
		return fmt.Errorf("k1 must be nonnegative, got %v", c.Sparse.K1)
	}
	if c.Sparse.B < 0 || c.Sparse.B > 1 {
		return fmt.Errorf("b must be in [0,1], got %v", c.Sparse.B)
	}

	switch c.Vector.Backend {
	case "flat", "hnsw":
	default:
		return fmt.Errorf("unknown vector backend %q (want flat or hnsw)", c.Vector.Backend)
	}
	if c.Vector.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", c.Vector.Dimensions)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	return nil
}

// EngineConfig converts the loaded configuration into the search
// engine's runtime policy.
func (c *Config) EngineConfig() search.EngineConfig {
	return search.EngineConfig{
		DefaultLimit: c.Search.DefaultLimit,
		MaxLimit:     c.Search.MaxLimit,
		Fusion: search.FusionConfig{
			Weights: search.Weights{
				Sparse: c.Search.SparseWeight,
				Dense:  c.Search.DenseWeight,
			},
			RRFConstant: c.Search.RRFConstant,
			Alpha:       c.Search.Alpha,
		},
	}
}

// SparseStoreConfig converts to the sparse index's runtime config.
func (c *Config) SparseStoreConfig() store.SparseConfig {
	return store.SparseConfig{
		K1:             c.Sparse.K1,
		B:              c.Sparse.B,
		MinTokenLength: c.Sparse.MinTokenLength,
	}
}

// VectorStoreConfig converts to the vector store's runtime config.
func (c *Config) VectorStoreConfig() store.VectorStoreConfig {
	return store.VectorStoreConfig{
		Dimensions: c.Vector.Dimensions,
		M:          c.Vector.M,
		EfSearch:   c.Vector.EfSearch,
	}
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
