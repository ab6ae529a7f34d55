package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingAPIKey      = errors.New("missing API key")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrUnknownVectorStore = errors.New("unknown vector store")
	ErrInvalidIndexName   = errors.New("invalid index name")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInvalidValue       = errors.New("invalid value")
)

const (
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	// ProviderAnthropic serves chat only. It has no embedding model.
	ProviderAnthropic = "anthropic"

	StorePGVector = "pgvector"
	StoreQdrant   = "qdrant"
	StoreChromem  = "chromem"

	RendererChrome = "chrome"
	RendererStatic = "static"

	SessionsMemory   = "memory"
	SessionsPostgres = "postgres"
)

type Config struct {
	OpenAIApiKey    string
	GoogleApiKey    string
	AnthropicApiKey string

	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int
	EmbedRPS           float64

	LLMProvider string
	ChatModel   string

	VectorStore   string
	IndexName     string
	DatabaseURL   string
	QdrantHost    string
	QdrantPort    int
	QdrantApiKey  string
	QdrantTLS     bool
	ChromemPath   string
	SessionStore  string
	SettingsFile  string
	CrawlOutput   string
	ChunksFile    string
	Renderer      string
	SettleDelay   time.Duration
	Port          string
	ChunkSize     int
	ChunkOverlap  int
	ChunkStrategy string
	BatchSize     int
	TopK          int
	MaxPages      int
	RetryAttempts int
	RetryDelay    time.Duration
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() *Config {
	embeddingProvider := strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderOpenAI))
	llmProvider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI))

	embeddingModel := "text-embedding-ada-002"
	if embeddingProvider == ProviderGoogle {
		embeddingModel = "gemini-embedding-001"
	}
	chatModel := "gpt-4"
	switch llmProvider {
	case ProviderGoogle:
		chatModel = "gemini-2.5-flash"
	case ProviderAnthropic:
		chatModel = "claude-sonnet-4-20250514"
	}

	return &Config{
		OpenAIApiKey:       getEnv("OPENAI_API_KEY", ""),
		GoogleApiKey:       getEnv("GOOGLE_API_KEY", ""),
		AnthropicApiKey:    getEnv("ANTHROPIC_API_KEY", ""),
		EmbeddingProvider:  embeddingProvider,
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", embeddingModel),
		EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 1536),
		EmbedRPS:           getEnvAsFloat("EMBED_RPS", 0),
		LLMProvider:        llmProvider,
		ChatModel:          getEnv("CHAT_MODEL", chatModel),
		VectorStore:        strings.ToLower(getEnv("VECTOR_STORE", StoreChromem)),
		IndexName:          getEnv("INDEX_NAME", "website_chatbot"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		QdrantHost:         getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:         getEnvAsInt("QDRANT_PORT", 6334),
		QdrantApiKey:       getEnv("QDRANT_API_KEY", ""),
		QdrantTLS:          getEnvAsBool("QDRANT_TLS", false),
		ChromemPath:        getEnv("CHROMEM_PATH", "data/chromem"),
		SessionStore:       strings.ToLower(getEnv("SESSION_STORE", SessionsMemory)),
		SettingsFile:       getEnv("SETTINGS_FILE", "config.yaml"),
		CrawlOutput:        getEnv("CRAWL_OUTPUT", "scraped_data.json"),
		ChunksFile:         getEnv("CHUNKS_FILE", "chunks.json"),
		Renderer:           strings.ToLower(getEnv("RENDERER", RendererChrome)),
		SettleDelay:        getEnvAsDuration("SETTLE_DELAY", 3*time.Second),
		Port:               getEnv("PORT", "8081"),
		ChunkSize:          getEnvAsInt("CHUNK_SIZE", 1500),
		ChunkOverlap:       getEnvAsInt("CHUNK_OVERLAP", 200),
		ChunkStrategy:      strings.ToLower(getEnv("CHUNK_STRATEGY", "window")),
		BatchSize:          getEnvAsInt("BATCH_SIZE", 100),
		TopK:               getEnvAsInt("TOP_K", 5),
		MaxPages:           getEnvAsInt("MAX_PAGES", 100),
		RetryAttempts:      getEnvAsInt("RETRY_ATTEMPTS", 5),
		RetryDelay:         getEnvAsDuration("RETRY_DELAY", 5*time.Second),
	}
}

// indexNamePattern matches names that are safe as a Postgres table, a Qdrant
// collection and a chromem collection.
var indexNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Validate checks everything that can be checked without touching the network.
func (c *Config) Validate() error {
	if err := c.validateProvider("embedding", c.EmbeddingProvider); err != nil {
		return err
	}
	if c.LLMProvider == ProviderAnthropic {
		if c.AnthropicApiKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is required for the llm provider", ErrMissingAPIKey)
		}
	} else if err := c.validateProvider("llm", c.LLMProvider); err != nil {
		return err
	}

	switch c.VectorStore {
	case StorePGVector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w when VECTOR_STORE=%s", ErrMissingDatabaseURL, StorePGVector)
		}
	case StoreQdrant:
		if c.QdrantHost == "" || c.QdrantPort <= 0 {
			return fmt.Errorf("%w: QDRANT_HOST/QDRANT_PORT", ErrInvalidValue)
		}
	case StoreChromem:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVectorStore, c.VectorStore)
	}

	if !indexNamePattern.MatchString(c.IndexName) {
		return fmt.Errorf("%w: %q must be lowercase letters, digits and underscores", ErrInvalidIndexName, c.IndexName)
	}

	if c.SessionStore == SessionsPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("%w when SESSION_STORE=%s", ErrMissingDatabaseURL, SessionsPostgres)
	}

	positive := map[string]int{
		"EMBEDDING_DIMENSION": c.EmbeddingDimension,
		"CHUNK_SIZE":          c.ChunkSize,
		"BATCH_SIZE":          c.BatchSize,
		"TOP_K":               c.TopK,
		"MAX_PAGES":           c.MaxPages,
		"RETRY_ATTEMPTS":      c.RetryAttempts,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidValue, name, v)
		}
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", ErrInvalidValue, c.ChunkOverlap)
	}
	return nil
}

func (c *Config) validateProvider(kind, provider string) error {
	switch provider {
	case ProviderOpenAI:
		if c.OpenAIApiKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for the %s provider", ErrMissingAPIKey, kind)
		}
	case ProviderGoogle:
		if c.GoogleApiKey == "" {
			return fmt.Errorf("%w: GOOGLE_API_KEY is required for the %s provider", ErrMissingAPIKey, kind)
		}
	default:
		return fmt.Errorf("%w: %s provider %q", ErrUnknownProvider, kind, provider)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("5s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
