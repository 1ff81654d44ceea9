package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	Sandbox    SandboxConfig
	AI         AIConfig
	Generation GenerationConfig
	App        AppConfig
}

type ServerConfig struct {
	Port string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	DSN      string
	MaxConns int
}

type SandboxConfig struct {
	Image       string
	BaseDir     string
	MemoryLimit string
	CPUs        string
	ReapHours   int
}

type AIConfig struct {
	BaseURL       string
	Token         string
	FrontendModel string
	BackendModel  string
	DatabaseModel string
	APIModel      string
}

type GenerationConfig struct {
	MaxIterations int
	RateRPS       float64
	RateBurst     int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 8),
		},
		Sandbox: SandboxConfig{
			Image:       getEnv("SANDBOX_IMAGE", "aoede/sandbox:latest"),
			BaseDir:     getEnv("SANDBOX_BASE_DIR", "/tmp/aoede/sandbox"),
			MemoryLimit: getEnv("SANDBOX_MEMORY_LIMIT", "512m"),
			CPUs:        getEnv("SANDBOX_CPUS", "0.5"),
			ReapHours:   getEnvAsInt("SANDBOX_REAP_HOURS", 6),
		},
		AI: AIConfig{
			BaseURL:       getEnv("AI_BASE_URL", "https://models.inference.ai.azure.com"),
			Token:         getEnv("AI_TOKEN", ""),
			FrontendModel: getEnv("AI_FRONTEND_MODEL", "gpt-4o"),
			BackendModel:  getEnv("AI_BACKEND_MODEL", "codestral-2501"),
			DatabaseModel: getEnv("AI_DATABASE_MODEL", "gpt-4o"),
			APIModel:      getEnv("AI_API_MODEL", "gpt-4o"),
		},
		Generation: GenerationConfig{
			MaxIterations: getEnvAsInt("GENERATION_MAX_ITERATIONS", 5),
			RateRPS:       getEnvAsFloat("GENERATION_RATE_RPS", 0.2),
			RateBurst:     getEnvAsInt("GENERATION_RATE_BURST", 3),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.Generation.MaxIterations < 0 {
		return fmt.Errorf("GENERATION_MAX_ITERATIONS must be >= 0")
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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
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
		log.Printf("Warning: Invalid float for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}
