// Package config collects the process configuration from the environment.
// Every value has a usable default except the generation-service API key,
// which local OpenAI-compatible deployments may also leave empty.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the full process configuration.
type Config struct {
	// Generation service.
	OpenAIAPIKey string
	Model        string
	BaseURL      string
	CallTimeout  time.Duration

	// ForceJSON runs extraction in the low-capability forced-JSON cascade.
	// Defaults to on when a custom BaseURL points at a local deployment.
	ForceJSON bool

	// Rate limiting.
	CallsPerPeriod int
	RateGranted    time.Duration

	// Vector index.
	WeaviateHost   string
	WeaviateScheme string
	WeaviateAPIKey string
	WeaviateClass  string

	// Chat history. Empty MongoURI selects the in-memory store.
	MongoURI      string
	MongoDatabase string
	UserID        string

	// Local state.
	DataDir     string
	PDFDir      string
	ArtifactDir string
	SigningKey  string
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolving home directory: %w", err)
	}
	dataDir := envOr("IRAG_DATA_DIR", filepath.Join(home, ".irag"))

	cfg := Config{
		OpenAIAPIKey: envOr("IRAG_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY")),
		Model:        os.Getenv("IRAG_MODEL"),
		BaseURL:      os.Getenv("IRAG_BASE_URL"),
		CallTimeout:  envDuration("IRAG_CALL_TIMEOUT", 0),
		ForceJSON:    envBool("IRAG_FORCE_JSON", os.Getenv("IRAG_BASE_URL") != ""),

		CallsPerPeriod: envInt("IRAG_CALLS_PER_MINUTE", 0),
		RateGranted:    time.Minute,

		WeaviateHost:   envOr("IRAG_WEAVIATE_HOST", "localhost:8080"),
		WeaviateScheme: envOr("IRAG_WEAVIATE_SCHEME", "http"),
		WeaviateAPIKey: os.Getenv("IRAG_WEAVIATE_API_KEY"),
		WeaviateClass:  os.Getenv("IRAG_WEAVIATE_CLASS"),

		MongoURI:      os.Getenv("IRAG_MONGO_URI"),
		MongoDatabase: os.Getenv("IRAG_MONGO_DATABASE"),
		UserID:        envOr("IRAG_USER_ID", "local"),

		DataDir:     dataDir,
		PDFDir:      envOr("IRAG_PDF_DIR", filepath.Join(dataDir, "pdfs")),
		ArtifactDir: envOr("IRAG_ARTIFACT_DIR", "filtered_output"),
		SigningKey:  envOr("IRAG_SCHEMA_SIGNING_KEY", "irag-local-signing-key"),
	}
	return cfg, nil
}

// SchemaDBPath is the SQLite file holding stored schemas.
func (c Config) SchemaDBPath() string {
	return filepath.Join(c.DataDir, "schemas.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
