// Package clickhouse stores written results in ClickHouse for trend queries
// across runs.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ethpandaops/allure-runtime/internal/config"
)

func options(cfg *config.Config, database string) *clickhouse.Options {
	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.ClickhouseHost, cfg.ClickhouseNativePort)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.ClickhouseUsername,
			Password: cfg.ClickhousePassword,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     time.Second * 30,
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Duration(10) * time.Minute,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}
}

// Connect establishes a connection to ClickHouse using native protocol
func Connect(ctx context.Context, cfg *config.Config) (driver.Conn, error) {
	// Use "default" database for initial connection
	// The results database may not exist yet
	conn, err := clickhouse.Open(options(cfg, "default"))
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return conn, nil
}

// OpenDB opens a database/sql handle on the results database, as needed by
// golang-migrate.
func OpenDB(cfg *config.Config) *sql.DB {
	return clickhouse.OpenDB(options(cfg, cfg.ClickhouseDatabase))
}

// CreateDatabase creates a database if it doesn't exist
func CreateDatabase(ctx context.Context, conn driver.Conn, dbName, cluster string) error {
	var query string
	if cluster != "" {
		query = fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` ON CLUSTER '%s'", dbName, cluster)
	} else {
		query = fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)
	}

	if err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	return nil
}

// Helper functions for building cluster-aware queries
func getClusterClause(cluster string) string {
	if cluster != "" {
		return fmt.Sprintf("ON CLUSTER '%s'", cluster)
	}
	return ""
}

func getEngineClause(cluster string) string {
	if cluster != "" {
		return `ReplicatedReplacingMergeTree('/clickhouse/{installation}/{cluster}/tables/{shard}/{database}/{table}', '{replica}')`
	}
	return "ReplacingMergeTree()"
}
