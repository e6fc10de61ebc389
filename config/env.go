package config

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Env holds the connection settings read from the process environment.
type Env struct {
	DatabaseURL    string
	RedisURL       string
	RedisPassword  string
	RedisDB        int
	AdvisoryURL    string
	AdvisoryAPIKey string
}

// LoadEnv reads .env (if present) and then the process environment.
func LoadEnv() Env {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment variables")
	}

	env := Env{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		AdvisoryURL:    os.Getenv("ADVISORY_URL"),
		AdvisoryAPIKey: os.Getenv("ADVISORY_API_KEY"),
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			env.RedisDB = db
		} else {
			log.Warn("⚠️  Ignoring invalid REDIS_DB", "value", dbStr)
		}
	}
	return env
}
