package config

import (
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL string
	Port        string
	CORSOrigins string

	// Active LLM provider selection
	LLMProvider    string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMMaxRetries  int

	// Provider credentials / endpoints
	OpenAIAPIKey    string
	AnthropicAPIKey string
	MistralAPIKey   string
	GoogleAPIKey    string
	OllamaBaseURL   string
	LMStudioBaseURL string

	// Embeddings
	EmbeddingModel string
	EmbeddingDim   int

	// Response cache
	CacheCapacity int

	// Retrieval
	KnowledgeResults int
	ScanResults      int
	ContextTopK      int
	ChunkSize        int
	ChunkOverlap     int

	// Chat
	ChatMaxHistory int

	// Autonomous agent circuit breaker
	AgentMaxIterations    int
	AgentFailureThreshold int
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8000"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		LLMProvider:    getEnv("LLM_PROVIDER", "openai"),
		LLMModel:       getEnv("LLM_MODEL", ""),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 4096),
		LLMMaxRetries:  getEnvAsInt("LLM_MAX_RETRIES", 3),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		MistralAPIKey:   getEnv("MISTRAL_API_KEY", ""),
		GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),
		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		LMStudioBaseURL: getEnv("LMSTUDIO_BASE_URL", "http://localhost:1234/v1"),

		EmbeddingModel: getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		EmbeddingDim:   getEnvAsInt("EMBEDDING_DIM", 1536),

		CacheCapacity: getEnvAsInt("CACHE_MAX_SIZE", 200),

		KnowledgeResults: getEnvAsInt("RAG_KNOWLEDGE_RESULTS", 4),
		ScanResults:      getEnvAsInt("RAG_SCAN_RESULTS", 5),
		ContextTopK:      getEnvAsInt("RAG_CONTEXT_TOP_K", 5),
		ChunkSize:        getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvAsInt("CHUNK_OVERLAP", 200),

		ChatMaxHistory: getEnvAsInt("CHAT_MAX_HISTORY", 20),

		AgentMaxIterations:    getEnvAsInt("AGENT_MAX_ITERATIONS", 8),
		AgentFailureThreshold: getEnvAsInt("AGENT_FAILURE_THRESHOLD", 3),
	}
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
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
