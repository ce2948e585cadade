package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the pipeline
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Warehouse (PostgreSQL wire protocol)
	Database DatabaseConfig

	// Analytic store (downstream BI inserts)
	Analytic AnalyticConfig

	// Redis (run registry)
	Redis RedisConfig

	// Run parameters
	Run RunConfig

	// Logging
	LogLevel  string
	LogFormat string
	LogDir    string

	// Monitoring
	MetricsEnabled bool
	MetricsPushURL string

	// Scheduling
	Schedule      string
	JobMaxRetries int
}

// DatabaseConfig holds warehouse connection configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// Query pacing
	QueriesPerSecond float64
	Burst            int
}

// AnalyticConfig holds ClickHouse configuration for the analytic write path
type AnalyticConfig struct {
	Enabled  bool
	Addr     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// RunConfig holds the batch parameters of one pipeline run
type RunConfig struct {
	Name           string
	Product        string // paket, warenpost
	ReferenceDate  time.Time
	DataRoot       string
	InputDir       string
	PipelineConfig string
}

// Products lists the product lines the pipeline knows how to run
var Products = []string{"paket", "warenpost"}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	refDate, refErr := parseReferenceDate(getEnv("REFERENCE_DATE", ""))

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:              getEnv("DATABASE_URL", ""),
			MaxConns:         getEnvAsInt("DB_MAX_CONNS", 4),
			MinConns:         getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
			QueriesPerSecond: getEnvAsFloat("WAREHOUSE_QPS", 2),
			Burst:            getEnvAsInt("WAREHOUSE_BURST", 1),
		},

		Analytic: AnalyticConfig{
			Enabled:  getEnvAsBool("ANALYTIC_ENABLED", false),
			Addr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "pricing"),
			User:     getEnv("CLICKHOUSE_USER", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Run: RunConfig{
			Name:           getEnv("RUN_NAME", "ship2profile"),
			Product:        strings.ToLower(getEnv("PRODUCT", "paket")),
			ReferenceDate:  refDate,
			DataRoot:       getEnv("DATA_ROOT", "./data"),
			InputDir:       getEnv("INPUT_DIR", "./data/input"),
			PipelineConfig: getEnv("PIPELINE_CONFIG", "config/pipeline/ship2profile.yaml"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogDir:    getEnv("LOG_DIR", ""),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPushURL: getEnv("METRICS_PUSH_URL", ""),

		Schedule:      getEnv("SCHEDULE", "0 0 6 2 * *"),
		JobMaxRetries: getEnvAsInt("JOB_MAX_RETRIES", 0),
	}

	if refErr != nil {
		return nil, fmt.Errorf("config validation failed: REFERENCE_DATE: %w", refErr)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if !IsKnownProduct(c.Run.Product) {
		return fmt.Errorf("PRODUCT must be one of: %s", strings.Join(Products, ", "))
	}

	if c.Database.QueriesPerSecond <= 0 {
		return fmt.Errorf("WAREHOUSE_QPS must be > 0")
	}

	return nil
}

// IsKnownProduct reports whether product is a supported product line
func IsKnownProduct(product string) bool {
	for _, p := range Products {
		if p == strings.ToLower(product) {
			return true
		}
	}
	return false
}

// RunDir returns the folder holding all datasets of the configured run
func (c *Config) RunDir() string {
	return filepath.Join(c.Run.DataRoot, c.Run.Name)
}

// parseReferenceDate parses YYYY-MM-DD and forces the first day of the month.
// An empty value means the first day of the current month.
func parseReferenceDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}

	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// ParseReferenceDate is the exported form used by CLI flags
func ParseReferenceDate(value string) (time.Time, error) {
	return parseReferenceDate(value)
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
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
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
