package config

const (
	// DefaultResultsDir is the directory results are written to.
	DefaultResultsDir = "allure-results"
	// DefaultProjectFile is the project file read from the working directory.
	DefaultProjectFile = "allure.yaml"
	// DefaultRedisURL is the default redis url.
	DefaultRedisURL = "redis://localhost:6379/0"
	// DefaultRedisQueue is the Redis list workers push envelopes onto.
	DefaultRedisQueue = "allure:runtime"
	// DefaultClickhouseDatabase is the database the analytics sink writes to.
	DefaultClickhouseDatabase = "allure"
	// SchemaMigrationsTable is the golang-migrate bookkeeping table.
	SchemaMigrationsTable = "schema_migrations"
)

// Transport names accepted by ALLURE_TRANSPORT.
const (
	TransportNone   = "none"
	TransportStream = "stream"
	TransportRedis  = "redis"
)
