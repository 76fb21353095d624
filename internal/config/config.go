package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var AppEnv Config

type Config struct {
	MongoURI          string
	DBName            string
	JWTSecret         string
	JWTPreviousSecret string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration

	RateLimitCapacity     int
	RateLimitRefillTokens int
	RateLimitRefillPeriod time.Duration

	TokenRetentionWindow time.Duration
	RetentionSweepEvery  time.Duration

	Port string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg(".env not loaded")
	}
	AppEnv = Config{
		MongoURI:          getEnvOrDefault("MONGO_URI", ""),
		DBName:            getEnvOrDefault("DB_NAME", "sichrspace"),
		JWTSecret:         getEnvOrDefault("JWT_SECRET", ""),
		JWTPreviousSecret: getEnvOrDefault("JWT_PREVIOUS_SECRET", ""),
		AccessTokenTTL:    getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL:   getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),

		RateLimitCapacity:     getIntEnv("RATE_LIMIT_CAPACITY", 10),
		RateLimitRefillTokens: getIntEnv("RATE_LIMIT_REFILL_TOKENS", 10),
		RateLimitRefillPeriod: getDurationEnv("RATE_LIMIT_REFILL_PERIOD", 60, time.Second),

		TokenRetentionWindow: getDurationEnv("TOKEN_RETENTION_DAYS", 30, 24*time.Hour),
		RetentionSweepEvery:  getDurationEnv("RETENTION_SWEEP_MINUTES", 60, time.Minute),

		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
