package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values. It is loaded once at startup and
// passed by value into every component that needs it.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	APIKey            string `mapstructure:"API_KEY"`
	IncludeDebug      bool   `mapstructure:"INCLUDE_DEBUG"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB (FAQ / knowledge records).
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisStateDB  int    `mapstructure:"REDIS_STATE_DB"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`
	UseRedisCache bool   `mapstructure:"USE_REDIS_CACHE"`

	// Session state.
	SessionTTLSeconds int `mapstructure:"SESSION_TTL_SECONDS"`
	HistoryLimit      int `mapstructure:"HISTORY_LIMIT"`

	// Retrieval pipeline.
	QdrantURL         string  `mapstructure:"QDRANT_URL"`
	QdrantCollection  string  `mapstructure:"QDRANT_COLLECTION"`
	EmbedURL          string  `mapstructure:"EMBED_URL"`
	EmbedTimeout      float64 `mapstructure:"EMBED_TIMEOUT"`
	RagFactsLimit     int     `mapstructure:"RAG_FACTS_LIMIT"`
	RagFilesLimit     int     `mapstructure:"RAG_FILES_LIMIT"`
	RagMaxSnippets    int     `mapstructure:"RAG_MAX_SNIPPETS"`
	RagMinFacts       int     `mapstructure:"RAG_MIN_FACTS"`
	RagScoreThreshold float64 `mapstructure:"RAG_SCORE_THRESHOLD"`
	RagContextChars   int     `mapstructure:"RAG_CONTEXT_CHARS"`
	FAQLimit          int     `mapstructure:"FAQ_LIMIT"`
	FAQMinSimilarity  float64 `mapstructure:"FAQ_MIN_SIMILARITY"`

	// Generation collaborator.
	GeminiAPIKey    string  `mapstructure:"GEMINI_API_KEY"`
	GeminiModel     string  `mapstructure:"GEMINI_MODEL"`
	LLMDryRun       bool    `mapstructure:"LLM_DRY_RUN"`
	LLMTimeout      float64 `mapstructure:"LLM_TIMEOUT"`
	LLMCacheTTL     int     `mapstructure:"LLM_CACHE_TTL"`
	LLMCacheSize    int     `mapstructure:"LLM_CACHE_SIZE"`
	ContextHashSize int     `mapstructure:"CONTEXT_HASH_SIZE"`

	// Shelter Cloud PMS.
	ShelterToken    string  `mapstructure:"SHELTER_CLOUD_TOKEN"`
	ShelterURL      string  `mapstructure:"SHELTER_CLOUD_URL"`
	ShelterLanguage string  `mapstructure:"SHELTER_CLOUD_LANGUAGE"`
	ShelterTimeout  float64 `mapstructure:"SHELTER_CLOUD_TIMEOUT"`

	// Offer presentation.
	MaxOptions  int    `mapstructure:"MAX_OPTIONS"`
	ShownOffers int    `mapstructure:"SHOWN_OFFERS"`
	BookingURL  string `mapstructure:"BOOKING_URL"`
}

// LoadConfig initializes Viper to load config values from env, file, or defaults.
func LoadConfig() Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("API_KEY", "")
	viper.SetDefault("INCLUDE_DEBUG", true)
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)

	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "usadba")

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_STATE_DB", 0)
	viper.SetDefault("REDIS_CACHE_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("USE_REDIS_CACHE", false)

	viper.SetDefault("SESSION_TTL_SECONDS", 86400)
	viper.SetDefault("HISTORY_LIMIT", 10)

	viper.SetDefault("QDRANT_URL", "http://127.0.0.1:6333")
	viper.SetDefault("QDRANT_COLLECTION", "u4s_kb")
	viper.SetDefault("EMBED_URL", "http://127.0.0.1:8011/embed")
	viper.SetDefault("EMBED_TIMEOUT", 5.0)
	viper.SetDefault("RAG_FACTS_LIMIT", 6)
	viper.SetDefault("RAG_FILES_LIMIT", 4)
	viper.SetDefault("RAG_MAX_SNIPPETS", 8)
	viper.SetDefault("RAG_MIN_FACTS", 4)
	viper.SetDefault("RAG_SCORE_THRESHOLD", 0.2)
	viper.SetDefault("RAG_CONTEXT_CHARS", 4000)
	viper.SetDefault("FAQ_LIMIT", 3)
	viper.SetDefault("FAQ_MIN_SIMILARITY", 0.35)

	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	viper.SetDefault("LLM_DRY_RUN", false)
	viper.SetDefault("LLM_TIMEOUT", 20.0)
	viper.SetDefault("LLM_CACHE_TTL", 600)
	viper.SetDefault("LLM_CACHE_SIZE", 512)
	viper.SetDefault("CONTEXT_HASH_SIZE", 500)

	viper.SetDefault("SHELTER_CLOUD_TOKEN", "")
	viper.SetDefault("SHELTER_CLOUD_URL", "https://pms.frontdesk24.ru/api/online")
	viper.SetDefault("SHELTER_CLOUD_LANGUAGE", "ru")
	viper.SetDefault("SHELTER_CLOUD_TIMEOUT", 30.0)

	viper.SetDefault("MAX_OPTIONS", 6)
	viper.SetDefault("SHOWN_OFFERS", 3)
	viper.SetDefault("BOOKING_URL", "https://usadba4.ru/bronirovanie/")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// SessionTTL returns the session TTL as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// CacheTTL returns the answer cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.LLMCacheTTL) * time.Second
}

// IsProduction checks if the environment is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
