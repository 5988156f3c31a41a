// Package config loads configuration for the client services from defaults,
// an optional .env file, environment variables and an optional config file,
// in that order of precedence (later sources win).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Node    NodeConfig
	Submit  SubmitConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	API     APIConfig
	Auth    AuthConfig
	Log     LogConfig
	Metrics MetricsConfig
}

// NodeConfig holds configuration for the ledger node endpoint
type NodeConfig struct {
	// URL is the JSON-RPC endpoint of the ledger node
	URL string
	// RequestTimeout bounds a single request/response round trip
	RequestTimeout time.Duration
}

// SubmitConfig holds configuration for reliable submission
type SubmitConfig struct {
	// PollInterval is the fixed wait between finality polls. It should
	// approximate the ledger close cadence.
	PollInterval time.Duration
	// VerifySignatures enables client-side signature verification before
	// a transaction is sent to the node.
	VerifySignatures bool
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// KafkaConfig holds Kafka-related configuration
type KafkaConfig struct {
	Brokers       string
	ConsumerGroup string
	// InFlight caps the number of concurrently resolving submissions
	InFlight int
}

// APIConfig holds gateway API configuration
type APIConfig struct {
	Port               string
	Version            string
	CORSAllowedOrigins []string
	// RateLimit is the number of requests allowed per RateWindow per client
	RateLimit  int
	RateWindow time.Duration
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	JWTSecret string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string
	Environment string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Namespace string
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigFile is an optional path to a yaml/toml/json config file
	ConfigFile string
	// EnvFile is an optional path to a .env file
	EnvFile string
}

// DefaultLoadOptions returns the default load options
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		EnvFile: ".env",
	}
}

// Load loads configuration using the default options
func Load() (*Config, error) {
	return LoadWithOptions(DefaultLoadOptions())
}

// LoadWithOptions loads configuration from the sources named in opts
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// A missing .env file is not an error; explicit paths must exist.
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && opts.EnvFile != ".env" {
			return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}

	config := &Config{
		Node: NodeConfig{
			URL:            getEnv("NODE_URL", "http://localhost:5005"),
			RequestTimeout: getDurationEnv("NODE_REQUEST_TIMEOUT", 10*time.Second),
		},
		Submit: SubmitConfig{
			PollInterval:     getDurationEnv("SUBMIT_POLL_INTERVAL", 4*time.Second),
			VerifySignatures: getBoolEnv("SUBMIT_VERIFY_SIGNATURES", true),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnv("KAFKA_BROKERS", "localhost:9092"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "meridian_submitter"),
			InFlight:      getIntEnv("KAFKA_IN_FLIGHT", 32),
		},
		API: APIConfig{
			Port:               getEnv("API_PORT", "8080"),
			Version:            getEnv("API_VERSION", "v1"),
			CORSAllowedOrigins: []string{getEnv("API_CORS_ORIGIN", "*")},
			RateLimit:          getIntEnv("API_RATE_LIMIT", 100),
			RateWindow:         getDurationEnv("API_RATE_WINDOW", time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("LOG_ENVIRONMENT", "development"),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "meridian"),
		},
	}

	if opts.ConfigFile != "" {
		if err := applyConfigFile(config, opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the services cannot run with
func (c *Config) Validate() error {
	if c.Node.URL == "" {
		return fmt.Errorf("node URL must not be empty")
	}
	if c.Submit.PollInterval <= 0 {
		return fmt.Errorf("submit poll interval must be positive, got %s", c.Submit.PollInterval)
	}
	if c.Node.RequestTimeout <= 0 {
		return fmt.Errorf("node request timeout must be positive, got %s", c.Node.RequestTimeout)
	}
	return nil
}

// applyConfigFile overlays values from a config file onto the config
func applyConfigFile(config *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if v.IsSet("node.url") {
		config.Node.URL = v.GetString("node.url")
	}
	if v.IsSet("node.request_timeout") {
		config.Node.RequestTimeout = v.GetDuration("node.request_timeout")
	}
	if v.IsSet("submit.poll_interval") {
		config.Submit.PollInterval = v.GetDuration("submit.poll_interval")
	}
	if v.IsSet("submit.verify_signatures") {
		config.Submit.VerifySignatures = v.GetBool("submit.verify_signatures")
	}
	if v.IsSet("redis.address") {
		config.Redis.Address = v.GetString("redis.address")
	}
	if v.IsSet("redis.password") {
		config.Redis.Password = v.GetString("redis.password")
	}
	if v.IsSet("redis.db") {
		config.Redis.DB = v.GetInt("redis.db")
	}
	if v.IsSet("kafka.brokers") {
		config.Kafka.Brokers = v.GetString("kafka.brokers")
	}
	if v.IsSet("kafka.consumer_group") {
		config.Kafka.ConsumerGroup = v.GetString("kafka.consumer_group")
	}
	if v.IsSet("kafka.in_flight") {
		config.Kafka.InFlight = v.GetInt("kafka.in_flight")
	}
	if v.IsSet("api.port") {
		config.API.Port = v.GetString("api.port")
	}
	if v.IsSet("api.cors_allowed_origins") {
		config.API.CORSAllowedOrigins = v.GetStringSlice("api.cors_allowed_origins")
	}
	if v.IsSet("api.rate_limit") {
		config.API.RateLimit = v.GetInt("api.rate_limit")
	}
	if v.IsSet("auth.jwt_secret") {
		config.Auth.JWTSecret = v.GetString("auth.jwt_secret")
	}
	if v.IsSet("log.level") {
		config.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.environment") {
		config.Log.Environment = v.GetString("log.environment")
	}
	if v.IsSet("metrics.namespace") {
		config.Metrics.Namespace = v.GetString("metrics.namespace")
	}

	return nil
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
