package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	// RedisAddr empty means the verdict cache runs in-process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeminiAPIKey string
	GeminiModel  string
	JudgeTimeout time.Duration

	VerdictCacheTTL   time.Duration
	VerdictCacheSweep time.Duration
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:           getEnv("API_PORT", "8080"),
		JWTKey:            []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:            time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "user"),
		DBPassword:        getEnv("DB_PASSWORD", "password"),
		DBName:            getEnv("DB_NAME", "codearena_db"),
		DBSslMode:         getEnv("DB_SSLMODE", "disable"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		JudgeTimeout:      time.Duration(getEnvAsInt("JUDGE_TIMEOUT_SECONDS", 60)) * time.Second,
		VerdictCacheTTL:   time.Duration(getEnvAsInt("VERDICT_CACHE_TTL_SECONDS", 600)) * time.Second,
		VerdictCacheSweep: time.Duration(getEnvAsInt("VERDICT_CACHE_SWEEP_SECONDS", 120)) * time.Second,
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
