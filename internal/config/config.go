package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	LogLevel    string
	LogDev      bool
	RoundLength time.Duration
	RoundGrace  time.Duration
	DatabaseURL string // empty keeps ratings in memory
	NATSURL     string // empty disables result publishing
	NATSSubject string
	CORSOrigins []string
}

// Load reads the environment, after loading .env files if present.
func Load(envFiles ...string) (Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load(envFiles...)

	c := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogDev:      getEnvAsBool("LOG_DEV", false),
		RoundLength: time.Duration(getEnvAsInt("ROUND_SECONDS", 60)) * time.Second,
		RoundGrace:  getEnvAsDuration("ROUND_GRACE", 2*time.Second),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		NATSURL:     getEnv("NATS_URL", ""),
		NATSSubject: getEnv("NATS_SUBJECT", "sketchduel.rounds"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}
	if c.RoundLength <= 0 {
		return Config{}, fmt.Errorf("ROUND_SECONDS must be positive, got %s", c.RoundLength)
	}
	if c.RoundGrace < 0 {
		return Config{}, fmt.Errorf("ROUND_GRACE must not be negative, got %s", c.RoundGrace)
	}
	return c, nil
}

func (c Config) Addr() string { return ":" + c.Port }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
