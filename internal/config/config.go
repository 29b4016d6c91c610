// Package config handles configuration loading and management
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	ResultsDir  string
	ProjectFile string
	LogLevel    string
	Worker      string
	MetricsFile string

	Transport  string
	RedisURL   string
	RedisQueue string

	ClickhouseEnabled    bool
	ClickhouseHost       string
	ClickhouseNativePort int
	ClickhouseUsername   string
	ClickhousePassword   string
	ClickhouseDatabase   string
	ClickhouseCluster    string

	Project *Project
}

// Load reads configuration from environment variables and .env file, then
// the project file it points at.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if the file doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {

	cfg := &Config{
		ResultsDir:         getEnv("ALLURE_RESULTS_DIR", ""),
		ProjectFile:        getEnv("ALLURE_CONFIG", DefaultProjectFile),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Worker:             getEnv("ALLURE_WORKER", DefaultWorker()),
		MetricsFile:        getEnv("ALLURE_METRICS_FILE", ""),
		Transport:          strings.ToLower(getEnv("ALLURE_TRANSPORT", TransportNone)),
		RedisURL:           getEnv("REDIS_URL", DefaultRedisURL),
		RedisQueue:         getEnv("REDIS_QUEUE", DefaultRedisQueue),
		ClickhouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickhouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickhousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		ClickhouseDatabase: getEnv("CLICKHOUSE_DATABASE", DefaultClickhouseDatabase),
		ClickhouseCluster:  getEnv("CLICKHOUSE_CLUSTER", ""),
	}

	switch cfg.Transport {
	case TransportNone, TransportStream, TransportRedis:
	default:
		return nil, fmt.Errorf("invalid ALLURE_TRANSPORT %q", cfg.Transport) //nolint:err113 // Include value for debugging
	}

	// Parse numeric values
	nativePort, err := strconv.Atoi(getEnv("CLICKHOUSE_NATIVE_PORT", "9000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLICKHOUSE_NATIVE_PORT: %w", err)
	}
	cfg.ClickhouseNativePort = nativePort

	enabled, err := strconv.ParseBool(getEnv("CLICKHOUSE_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLICKHOUSE_ENABLED: %w", err)
	}
	cfg.ClickhouseEnabled = enabled

	project, err := LoadProject(cfg.ProjectFile)
	if err != nil {
		return nil, err
	}
	cfg.Project = project

	// The environment wins over the project file.
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = project.ResultsDir
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = DefaultResultsDir
	}

	return cfg, nil
}

// DefaultWorker names the current process as hostname-pid so that workers
// sharing a host stay distinct.
func DefaultWorker() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) String() string {
	passwordDisplay := "(not set)"
	if c.ClickhousePassword != "" {
		passwordDisplay = "********"
	}

	clusterDisplay := c.ClickhouseCluster
	if clusterDisplay == "" {
		clusterDisplay = "(single-node)"
	}

	metricsDisplay := c.MetricsFile
	if metricsDisplay == "" {
		metricsDisplay = "(not set)"
	}

	return fmt.Sprintf(`Current Configuration:
======================
Results Dir:            %s
Project File:           %s
Log Level:              %s
Worker:                 %s
Metrics File:           %s
Transport:              %s
Redis URL:              %s
Redis Queue:            %s
ClickHouse Enabled:     %t
ClickHouse Host:        %s
ClickHouse Native Port: %d
ClickHouse Username:    %s
ClickHouse Password:    %s
ClickHouse Database:    %s
ClickHouse Cluster:     %s`,
		c.ResultsDir,
		c.ProjectFile,
		c.LogLevel,
		c.Worker,
		metricsDisplay,
		c.Transport,
		maskURL(c.RedisURL),
		c.RedisQueue,
		c.ClickhouseEnabled,
		c.ClickhouseHost,
		c.ClickhouseNativePort,
		c.ClickhouseUsername,
		passwordDisplay,
		c.ClickhouseDatabase,
		clusterDisplay,
	)
}

// maskURL hides the password part of a URL's user info.
func maskURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	userInfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}
	user, _, hasPassword := strings.Cut(userInfo, ":")
	if !hasPassword {
		return raw
	}
	return scheme + "://" + user + ":********@" + host
}
