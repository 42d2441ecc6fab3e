// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Debug    bool
	Retries  int
}

// AuthConfig holds token and bootstrap-account settings.
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	RefreshTTL    time.Duration
	RoleCacheTTL  time.Duration
	AdminEmail    string
	AdminPassword string
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	Seed       bool
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format (used by golang-migrate).
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "pos"),
			Password: getEnv("DB_PASSWORD", "pos123"),
			DBName:   getEnv("DB_NAME", "pos"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Debug:    getEnvBool("DB_DEBUG", false),
			Retries:  getEnvInt("DB_CONNECT_RETRIES", 10),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			TokenTTL:      time.Duration(getEnvInt("JWT_TTL_MINUTES", 60)) * time.Minute,
			RefreshTTL:    time.Duration(getEnvInt("JWT_REFRESH_TTL_MINUTES", 20160)) * time.Minute,
			RoleCacheTTL:  time.Duration(getEnvInt("ROLE_CACHE_TTL_SECONDS", 300)) * time.Second,
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
		App: AppConfig{
			Dev:        getEnvBool("DEV", false),
			Migrations: getEnvBool("MIGRATIONS", false),
			Seed:       getEnvBool("DB_SEED", true),
		},
	}
}

// devJWTSecret is only ever used when DEV is on.
const devJWTSecret = "dev-jwt-secret"

// Validate fills dev defaults and rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.App.Dev {
			return errors.New("config: JWT_SECRET must be set outside dev mode")
		}
		c.Auth.JWTSecret = devJWTSecret
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: JWT_TTL_MINUTES must be positive")
	}
	if c.Auth.RefreshTTL < c.Auth.TokenTTL {
		return errors.New("config: JWT_REFRESH_TTL_MINUTES must not be shorter than JWT_TTL_MINUTES")
	}
	if c.Database.Retries < 1 {
		c.Database.Retries = 1
	}
	return nil
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
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
