package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Exam struct {
		TickSeconds int    `yaml:"tick_seconds"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"exam"`

	Auth struct {
		BackendURL        string `yaml:"backend_url"`
		VerdictTTLSeconds int    `yaml:"verdict_ttl_seconds"`
		Cache             struct {
			Kind      string `yaml:"kind"`
			RedisAddr string `yaml:"redis_addr"`
		} `yaml:"cache"`
	} `yaml:"auth"`

	Nats struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	History struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"history"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

func databaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "examroom"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

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

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyConfigDefaults(&config)
	return &config, nil
}

func applyConfigDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = getEnv("PORT", "8080")
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}
	if config.Exam.TickSeconds <= 0 {
		config.Exam.TickSeconds = 1
	}
	if config.Exam.Timezone == "" {
		config.Exam.Timezone = "America/La_Paz"
	}
	if config.Auth.BackendURL == "" {
		config.Auth.BackendURL = getEnv("AUTH_BACKEND_URL", "http://localhost:3000")
	}
	if config.Auth.VerdictTTLSeconds <= 0 {
		config.Auth.VerdictTTLSeconds = 60
	}
	if config.Auth.Cache.Kind == "" {
		config.Auth.Cache.Kind = "memory"
	}
	if config.Auth.Cache.RedisAddr == "" {
		config.Auth.Cache.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	}
	if config.Nats.URL == "" {
		config.Nats.URL = getEnv("NATS_URL", "nats://localhost:4222")
	}
	if config.Nats.Stream == "" {
		config.Nats.Stream = "EXAM_EVENTS"
	}
	if config.Nats.SubjectPrefix == "" {
		config.Nats.SubjectPrefix = "exam.events"
	}
}

func (c *Config) tickPeriod() time.Duration {
	return time.Duration(c.Exam.TickSeconds) * time.Second
}

func (c *Config) verdictTTL() time.Duration {
	return time.Duration(c.Auth.VerdictTTLSeconds) * time.Second
}
