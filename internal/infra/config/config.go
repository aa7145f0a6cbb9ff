package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type EmbedderConfig struct {
	URL       string
	Model     string
	Timeout   time.Duration
	CacheSize int
}

type GeneratorConfig struct {
	URL               string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
}

type RerankerConfig struct {
	Enabled bool
	URL     string
	Model   string
	Timeout time.Duration
}

type ExpansionConfig struct {
	DictionaryPath string
	MaxTerms       int
}

type RetrievalConfig struct {
	TopKDense       int
	TopKLexical     int
	TopKFusion      int
	TopSynthesis    int
	RRFK            float64
	MinSimilarity   float64
	ExpansionWeight float64
	BranchTimeout   time.Duration
	ContextTokens   int
	SynthesisTokens int
}

type Config struct {
	Env                  string
	Port                 string
	OTelEnabled          bool
	DB                   DBConfig
	Embedder             EmbedderConfig
	Generator            GeneratorConfig
	Reranker             RerankerConfig
	Expansion            ExpansionConfig
	Retrieval            RetrievalConfig
	IndexRebuildInterval time.Duration
}

func Load() *Config {
	return &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnv("PORT", "9020"),
		OTelEnabled: getEnvBool("OTEL_LOGS_ENABLED", false),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "scholar-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "scholar_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "scholar_password"),
			Name:     getEnv("DB_NAME", "scholar_db"),
		},
		Embedder: EmbedderConfig{
			URL:       getEnvWithAlt("EMBEDDER_URL", "OLLAMA_URL", "http://ollama:11434"),
			Model:     getEnv("EMBEDDING_MODEL", "embeddinggemma"),
			Timeout:   getEnvSeconds("EMBEDDER_TIMEOUT_SECONDS", 30),
			CacheSize: getEnvInt("EMBEDDING_CACHE_SIZE", 512),
		},
		Generator: GeneratorConfig{
			URL:               getEnvWithAlt("GENERATOR_URL", "OLLAMA_URL", "http://ollama:11434"),
			Model:             getEnv("GENERATOR_MODEL", "gpt-oss20b"),
			Timeout:           getEnvSeconds("GENERATOR_TIMEOUT_SECONDS", 120),
			RequestsPerSecond: getEnvFloat("GENERATOR_RPS", 2.0),
		},
		Reranker: RerankerConfig{
			Enabled: getEnvBool("RERANK_ENABLED", true),
			URL:     getEnv("RERANK_URL", "http://reranker:8001"),
			Model:   getEnv("RERANK_MODEL", "bge-reranker-v2-m3"),
			Timeout: getEnvSeconds("RERANK_TIMEOUT_SECONDS", 30),
		},
		Expansion: ExpansionConfig{
			DictionaryPath: getEnv("EXPANSION_DICT_PATH", "/etc/scholar-rag/terms.json"),
			MaxTerms:       getEnvInt("EXPANSION_MAX_TERMS", 0),
		},
		Retrieval: RetrievalConfig{
			TopKDense:       getEnvInt("RETRIEVAL_TOP_K_DENSE", 25),
			TopKLexical:     getEnvInt("RETRIEVAL_TOP_K_LEXICAL", 25),
			TopKFusion:      getEnvInt("RETRIEVAL_TOP_K_FUSION", 24),
			TopSynthesis:    getEnvInt("RETRIEVAL_TOP_SYNTHESIS", 6),
			RRFK:            getEnvFloat("RETRIEVAL_RRF_K", 60),
			MinSimilarity:   getEnvFloat("RETRIEVAL_MIN_SIMILARITY", 0.3),
			ExpansionWeight: getEnvFloat("RETRIEVAL_EXPANSION_WEIGHT", 0.5),
			BranchTimeout:   getEnvSeconds("RETRIEVAL_BRANCH_TIMEOUT_SECONDS", 5),
			ContextTokens:   getEnvInt("CONTEXT_MAX_TOKENS", 4000),
			SynthesisTokens: getEnvInt("SYNTHESIS_MAX_TOKENS", 1024),
		},
		IndexRebuildInterval: getEnvSeconds("INDEX_REBUILD_INTERVAL_SECONDS", 0),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackSeconds)) * time.Second
}
