package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	HTTP       HTTPConfig
	Detector   DetectorConfig
	Embedding  EmbeddingConfig
	Index      IndexConfig
	Identify   IdentifyConfig
	Database   DatabaseConfig
	Thresholds ThresholdsConfig
}

type HTTPConfig struct {
	Host string
	Port int
}

type DetectorConfig struct {
	URL            string // defaults to http://localhost:8000
	TimeoutSeconds int    // defaults to 60
}

type EmbeddingConfig struct {
	Model string // embedding model identifier, defaults to buffalo_l
	Dim   int    // defaults to 512
}

type IndexConfig struct {
	// Backend selects the embedding index implementation: "memory"
	// (flat/HNSW in-process) or "postgres" (pgvector queries).
	Backend string
	// HNSWThreshold is the per-account size at which the in-memory index
	// switches from flat scan to HNSW. 0 keeps the default, negative
	// disables HNSW entirely.
	HNSWThreshold int
}

type IdentifyConfig struct {
	// K is the number of nearest neighbors fetched per observation.
	K int
	// MinSimilarity overrides the per-model threshold when > 0.
	MinSimilarity float64
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty runs the in-memory store
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type ThresholdsConfig struct {
	Default float64                   `yaml:"default"`
	Models  map[string]ModelThreshold `yaml:"models"`
}

type ModelThreshold struct {
	MinSimilarity float64 `yaml:"min_similarity"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envStr reads an environment variable with a fallback default.
func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// Embedded file, so this should never happen in practice.
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	return &Config{
		HTTP: HTTPConfig{
			Host: envStr("HTTP_HOST", "0.0.0.0"),
			Port: envInt("HTTP_PORT", 8080),
		},
		Detector: DetectorConfig{
			URL:            envStr("DETECTOR_URL", "http://localhost:8000"),
			TimeoutSeconds: envInt("DETECTOR_TIMEOUT_SECONDS", 60),
		},
		Embedding: EmbeddingConfig{
			Model: envStr("EMBEDDING_MODEL", "buffalo_l"),
			Dim:   envInt("EMBEDDING_DIM", 512),
		},
		Index: IndexConfig{
			Backend:       envStr("INDEX_BACKEND", "memory"),
			HNSWThreshold: envInt("INDEX_HNSW_THRESHOLD", 0),
		},
		Identify: IdentifyConfig{
			K:             envInt("IDENTIFY_K", 10),
			MinSimilarity: envFloat("IDENTIFY_MIN_SIMILARITY", 0),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Thresholds: thresholds,
	}
}

// MinSimilarityFor resolves the identification threshold for a model:
// the IDENTIFY_MIN_SIMILARITY override wins, then the model's entry in
// thresholds.yaml, then the yaml default.
func (c *Config) MinSimilarityFor(model string) float64 {
	if c.Identify.MinSimilarity > 0 {
		return c.Identify.MinSimilarity
	}
	if t, ok := c.Thresholds.Models[model]; ok && t.MinSimilarity > 0 {
		return t.MinSimilarity
	}
	return c.Thresholds.Default
}
