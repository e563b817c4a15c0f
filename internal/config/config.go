// ABOUTME: Centralized configuration for the election question-answering pipeline
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/harper/electionrag/internal/models"
)

// Supported completion providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Supported passage stores
const (
	StoreSQLite   = "sqlite"
	StoreCharm    = "charm"
	StorePGVector = "pgvector"
)

// DefaultScopes is the partition mapping used when ELECTIONRAG_SCOPES is unset
const DefaultScopes = "constitution=constitution.pdf"

// Config holds all configuration for the pipeline and its backends
type Config struct {
	// Completion service settings
	LLMProvider    string
	OpenAIKey      string
	AnthropicKey   string
	ChatModel      string
	EmbeddingModel string
	CallTimeout    time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// Passage store settings
	Store           string
	DBPath          string
	DatabaseURL     string
	CharmHost       string
	CharmDBName     string
	AutoSync        bool
	VectorDimension int

	// Pipeline settings
	Domain             string
	TopK               int
	PipelineRetries    int
	MaxSteps           int
	PassageChars       int
	GradeWorkers       int
	GroundingCheck     bool
	Scopes             []models.ScopePartition
	EmbedCacheTTL      time.Duration
	ChunkSize          int
	ChunkOverlap       int
	EmbedBatchSize     int
	AnthropicMaxTokens int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	scopes, err := ParseScopes(getEnv("ELECTIONRAG_SCOPES", DefaultScopes))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LLMProvider:        strings.ToLower(getEnv("ELECTIONRAG_LLM_PROVIDER", ProviderOpenAI)),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:       os.Getenv("ANTHROPIC_API_KEY"),
		ChatModel:          getEnv("ELECTIONRAG_CHAT_MODEL", ""),
		EmbeddingModel:     getEnv("ELECTIONRAG_EMBEDDING_MODEL", "text-embedding-3-small"),
		CallTimeout:        getEnvDuration("ELECTIONRAG_CALL_TIMEOUT", 60*time.Second),
		MaxRetries:         getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryDelay:         getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),
		Store:              strings.ToLower(getEnv("ELECTIONRAG_STORE", StoreSQLite)),
		DBPath:             getEnv("ELECTIONRAG_DB_PATH", defaultDBPath()),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		CharmHost:          getEnv("CHARM_HOST", "cloud.charm.sh"),
		CharmDBName:        getEnv("CHARM_DB", "electionrag"),
		AutoSync:           getEnvBool("CHARM_AUTO_SYNC", true),
		VectorDimension:    getEnvInt("VECTOR_DIMENSION", 1536),
		Domain:             getEnv("ELECTIONRAG_DOMAIN", "the election"),
		TopK:               getEnvInt("ELECTIONRAG_TOP_K", 6),
		PipelineRetries:    getEnvInt("ELECTIONRAG_MAX_RETRIES", 3),
		MaxSteps:           getEnvInt("ELECTIONRAG_MAX_STEPS", 25),
		PassageChars:       getEnvInt("ELECTIONRAG_PASSAGE_CHARS", 300),
		GradeWorkers:       getEnvInt("ELECTIONRAG_GRADE_WORKERS", 6),
		GroundingCheck:     getEnvBool("ELECTIONRAG_GROUNDING_CHECK", false),
		Scopes:             scopes,
		EmbedCacheTTL:      getEnvDuration("ELECTIONRAG_EMBED_CACHE_TTL", 10*time.Minute),
		ChunkSize:          getEnvInt("ELECTIONRAG_CHUNK_SIZE", 1000),
		ChunkOverlap:       getEnvInt("ELECTIONRAG_CHUNK_OVERLAP", 100),
		EmbedBatchSize:     getEnvInt("ELECTIONRAG_EMBED_BATCH", 64),
		AnthropicMaxTokens: getEnvInt("ANTHROPIC_MAX_TOKENS", 1024),
	}

	return cfg, cfg.Validate()
}

// Validate bounds-checks the loaded values
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("ELECTIONRAG_LLM_PROVIDER must be openai or anthropic, got %q", c.LLMProvider)
	}
	switch c.Store {
	case StoreSQLite, StoreCharm, StorePGVector:
	default:
		return fmt.Errorf("ELECTIONRAG_STORE must be sqlite, charm or pgvector, got %q", c.Store)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.PipelineRetries < 0 || c.PipelineRetries > 10 {
		return fmt.Errorf("ELECTIONRAG_MAX_RETRIES must be 0-10, got %d", c.PipelineRetries)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("ELECTIONRAG_MAX_STEPS must be positive, got %d", c.MaxSteps)
	}
	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("ELECTIONRAG_TOP_K must be 1-100, got %d", c.TopK)
	}
	if c.PassageChars < 1 {
		return fmt.Errorf("ELECTIONRAG_PASSAGE_CHARS must be positive, got %d", c.PassageChars)
	}
	if c.GradeWorkers < 1 {
		return fmt.Errorf("ELECTIONRAG_GRADE_WORKERS must be positive, got %d", c.GradeWorkers)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("ELECTIONRAG_CALL_TIMEOUT must be positive, got %v", c.CallTimeout)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("ELECTIONRAG_CHUNK_OVERLAP must be 0 to chunk size, got %d", c.ChunkOverlap)
	}
	return nil
}

// APIKey returns the key for the configured completion provider
func (c *Config) APIKey() string {
	if c.LLMProvider == ProviderAnthropic {
		return c.AnthropicKey
	}
	return c.OpenAIKey
}

// ParseScopes parses "label=title,label=title" into scope partitions.
// The "all" label is implicit and may not be configured.
func ParseScopes(raw string) ([]models.ScopePartition, error) {
	var scopes []models.ScopePartition
	seen := make(map[models.ScopeLabel]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		label, title, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("ELECTIONRAG_SCOPES entry %q must be label=title", entry)
		}
		l := models.ScopeLabel(models.NormalizeLabel(label))
		title = strings.TrimSpace(title)
		if l == "" || title == "" {
			return nil, fmt.Errorf("ELECTIONRAG_SCOPES entry %q has an empty label or title", entry)
		}
		if l.IsAll() {
			return nil, fmt.Errorf("ELECTIONRAG_SCOPES may not redefine %q", models.ScopeAll)
		}
		if seen[l] {
			return nil, fmt.Errorf("ELECTIONRAG_SCOPES defines %q twice", l)
		}
		seen[l] = true
		scopes = append(scopes, models.ScopePartition{Label: l, Title: title})
	}

	return scopes, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "electionrag.db"
	}
	return filepath.Join(home, ".local", "share", "electionrag", "passages.db")
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
