package config

import (
	"os"
	"time"
)

// Server captures process-level configuration for the counting-room service.
type Server struct {
	Addr            string
	DatabaseURL     string
	RedisURL        string
	ShutdownTimeout time.Duration
	CatalogCacheTTL time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("COUNTROOM_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ShutdownTimeout: 10 * time.Second,
		CatalogCacheTTL: 5 * time.Minute,
	}
}
