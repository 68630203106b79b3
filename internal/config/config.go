package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Quota    QuotaConfig
	Queue    QueueConfig
	Vector   VectorConfig
	Upload   UploadConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecret string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "openai"
	OllamaBaseURL     string
	OllamaEmbedModel  string
	OpenAIAPIKey      string
	OpenAIEmbedModel  string
	ChatProvider      string // "openai" or "ollama"
	DefaultChatModel  string
	OllamaChatModel   string
}

type QuotaConfig struct {
	DailyLimit   int
	MonthlyLimit int
}

type QueueConfig struct {
	Backend       string // "nats" or "channel"
	NatsURL       string
	IngestSubject string
}

type VectorConfig struct {
	Backend    string // "pgvector" or "qdrant"
	QdrantAddr string
}

type UploadConfig struct {
	Dir          string
	MaxFileBytes int
	TempRepoDir  string
	GithubToken  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3001"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3001"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "openai"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIEmbedModel:  getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			ChatProvider:      getEnv("CHAT_PROVIDER", "openai"),
			DefaultChatModel:  getEnv("DEFAULT_CHAT_MODEL", "gpt-4o-mini"),
			OllamaChatModel:   getEnv("OLLAMA_CHAT_MODEL", "llama3.1"),
		},
		Quota: QuotaConfig{
			DailyLimit:   getEnvAsInt("QUOTA_DAILY_LIMIT", 50),
			MonthlyLimit: getEnvAsInt("QUOTA_MONTHLY_LIMIT", 1000),
		},
		Queue: QueueConfig{
			Backend:       getEnv("QUEUE_BACKEND", "channel"),
			NatsURL:       getEnv("NATS_URL", "nats://localhost:4222"),
			IngestSubject: getEnv("INGEST_SUBJECT", "jobs.ingestion"),
		},
		Vector: VectorConfig{
			Backend:    getEnv("VECTOR_BACKEND", "pgvector"),
			QdrantAddr: getEnv("QDRANT_ADDR", "localhost:6334"),
		},
		Upload: UploadConfig{
			Dir:          getEnv("UPLOAD_DIR", "./uploads"),
			MaxFileBytes: getEnvAsInt("UPLOAD_MAX_FILE_BYTES", 5*1024*1024),
			TempRepoDir:  getEnv("TEMP_REPO_DIR", "./temp-repos"),
			GithubToken:  getEnv("GITHUB_TOKEN", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
