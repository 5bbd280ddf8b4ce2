// Package config provides application configuration loaded from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig selects the gorm driver backing the snapshot store.
type DatabaseConfig struct {
	Driver string // sqlite, postgres, mysql
	DSN    string
	Debug  bool
}

// StoreConfig selects where the product/invoice snapshots live.
type StoreConfig struct {
	Backend       string // sql, redis, memory
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env        string
	Dev        bool
	Migrations bool
	Seed       bool
	ShopFile   string
}

// Load reads configuration from environment variables.
// Precedence: explicit env var > .env file (if loaded by main) > default.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DATABASE_DSN", "bar-stock.db"),
			Debug:  getEnvBool("DB_DEBUG", false),
		},
		Store: StoreConfig{
			Backend:       getEnv("STORE_BACKEND", "sql"),
			RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Env:        getEnv("APP_ENV", "development"),
			Dev:        getEnvBool("DEV", false),
			Migrations: getEnvBool("MIGRATIONS", false),
			Seed:       getEnvBool("DB_SEED", false),
			ShopFile:   getEnv("SHOP_CONFIG", "config/shop.toml"),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid integer for %s: %s", key, value)
			return defaultValue
		}
		return i
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
