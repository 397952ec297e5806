package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Host   HostConfig
	Adjust AdjustConfig
	Kafka  KafkaConfig
	MSSQL  MSSQLConfig
	Redis  RedisConfig
	API    APIConfig
}

// HostConfig describes the app instance the consumers run for
type HostConfig struct {
	InstallType string
	LogLevel    string
}

// AdjustConfig holds Adjust consumer configuration
type AdjustConfig struct {
	SDKKey              string
	Environment         string
	EnabledInstallTypes string
	Redacted            bool
	Endpoint            string
	EventTokens         map[string]string
	RateLimit           float64
	QueueSize           int
	RequestTimeout      time.Duration
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers       string
	Topic         string
	ConsumerGroup string
}

// MSSQLConfig holds MS SQL configuration
type MSSQLConfig struct {
	Server   string
	Port     int
	User     string
	Password string
	Database string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           int
	Password       string
	DB             int
	DLQKey         string
	DLQMaxLen      int64
	SettingsPrefix string
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	redisPort, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	dlqMaxLen, err := strconv.ParseInt(getEnv("REDIS_DLQ_MAX_LEN", "10000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DLQ_MAX_LEN: %w", err)
	}

	mssqlPort, err := strconv.Atoi(getEnv("MSSQL_PORT", "1433"))
	if err != nil {
		return nil, fmt.Errorf("invalid MSSQL_PORT: %w", err)
	}

	redacted, err := strconv.ParseBool(getEnv("ADJUST_REDACTED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADJUST_REDACTED: %w", err)
	}

	rateLimit, err := strconv.ParseFloat(getEnv("ADJUST_RATE_LIMIT", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADJUST_RATE_LIMIT: %w", err)
	}

	queueSize, err := strconv.Atoi(getEnv("ADJUST_QUEUE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADJUST_QUEUE_SIZE: %w", err)
	}

	requestTimeout, err := time.ParseDuration(getEnv("ADJUST_REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADJUST_REQUEST_TIMEOUT: %w", err)
	}

	eventTokens, err := ParseEventTokens(getEnv("ADJUST_EVENT_TOKENS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ADJUST_EVENT_TOKENS: %w", err)
	}

	return &Config{
		Host: HostConfig{
			InstallType: getEnv("INSTALL_TYPE", "organic"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Adjust: AdjustConfig{
			SDKKey:              getEnv("ADJUST_SDK_KEY", ""),
			Environment:         getEnv("ADJUST_ENVIRONMENT", "sandbox"),
			EnabledInstallTypes: getEnv("ADJUST_ENABLED_INSTALL_TYPES", ""),
			Redacted:            redacted,
			Endpoint:            getEnv("ADJUST_ENDPOINT", "https://s2s.adjust.com"),
			EventTokens:         eventTokens,
			RateLimit:           rateLimit,
			QueueSize:           queueSize,
			RequestTimeout:      requestTimeout,
		},
		Kafka: KafkaConfig{
			Brokers:       getEnv("KAFKA_BROKERS", "localhost:9092"),
			Topic:         getEnv("KAFKA_TOPIC", "analytics"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "adjust-forwarder"),
		},
		MSSQL: MSSQLConfig{
			Server:   getEnv("MSSQL_SERVER", "localhost"),
			Port:     mssqlPort,
			User:     getEnv("MSSQL_USER", "sa"),
			Password: getEnv("MSSQL_PASSWORD", ""),
			Database: getEnv("MSSQL_DATABASE", "analyticsdb"),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           redisPort,
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             redisDB,
			DLQKey:         getEnv("REDIS_DLQ_KEY", "dlq:analytics"),
			DLQMaxLen:      dlqMaxLen,
			SettingsPrefix: getEnv("REDIS_SETTINGS_PREFIX", "settings:"),
		},
		API: APIConfig{
			Port: getEnv("API_PORT", "8080"),
		},
	}, nil
}

// ParseEventTokens parses "name=token,name2=token2" into a lookup table
func ParseEventTokens(s string) (map[string]string, error) {
	tokens := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return tokens, nil
	}

	for _, pair := range strings.Split(s, ",") {
		name, token, ok := strings.Cut(pair, "=")
		name, token = strings.TrimSpace(name), strings.TrimSpace(token)
		if !ok || name == "" || token == "" {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		tokens[name] = token
	}
	return tokens, nil
}

// GetConnectionString returns MS SQL connection string
func (c *MSSQLConfig) GetConnectionString() string {
	return fmt.Sprintf("server=%s;port=%d;user id=%s;password=%s;database=%s;encrypt=disable",
		c.Server, c.Port, c.User, c.Password, c.Database)
}

// GetRedisAddr returns Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
