package clickhouse

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	chmigrate "github.com/golang-migrate/migrate/v4/database/clickhouse"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationRunner applies the embedded schema migrations.
type MigrationRunner interface {
	// RunMigrations executes all pending migrations against dbName.
	RunMigrations(ctx context.Context, conn *sql.DB, dbName string) error
}

type migrationRunner struct {
	log             logrus.FieldLogger
	cluster         string
	migrationsTable string
}

// NewMigrationRunner creates a migration runner. A non-empty cluster makes
// every statement run ON CLUSTER against replicated tables.
func NewMigrationRunner(log logrus.FieldLogger, cluster, migrationsTable string) MigrationRunner {
	return &migrationRunner{
		log:             log.WithField("component", "migration_runner"),
		cluster:         cluster,
		migrationsTable: migrationsTable,
	}
}

func (r *migrationRunner) RunMigrations(ctx context.Context, conn *sql.DB, dbName string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	sourceFS, err := templateMigrations(migrationsFS, dbName, r.cluster)
	if err != nil {
		return fmt.Errorf("creating templated migrations: %w", err)
	}

	r.log.WithField("database", dbName).Debug("running migrations, please wait")

	sourceDriver, err := iofs.New(sourceFS, ".")
	if err != nil {
		return fmt.Errorf("creating source driver: %w", err)
	}

	cfg := &chmigrate.Config{
		DatabaseName:          dbName,
		MigrationsTable:       r.migrationsTable,
		MultiStatementEnabled: true,
		MultiStatementMaxSize: 1024 * 1024,
	}
	if r.cluster != "" {
		cfg.ClusterName = r.cluster
		cfg.MigrationsTableEngine = "ReplicatedMergeTree"
	}

	dbDriver, err := chmigrate.WithInstance(conn, cfg)
	if err != nil {
		return fmt.Errorf("creating clickhouse driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dbName, dbDriver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			done <- fmt.Errorf("running migrations: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("migration canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return err
		}
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading migration version: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"database": dbName,
		"version":  version,
		"dirty":    dirty,
	}).Info("Migrations applied")

	return nil
}

// templateMigrations renders every .sql file of src into an in-memory
// filesystem with the database and cluster placeholders substituted.
func templateMigrations(src fs.FS, dbName, cluster string) (fs.FS, error) {
	replacer := strings.NewReplacer(
		"${DATABASE}", fmt.Sprintf("`%s`", dbName),
		"${ON_CLUSTER}", getClusterClause(cluster),
		"${ENGINE}", getEngineClause(cluster),
	)

	files := make(map[string]string)

	err := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}

		content, err := fs.ReadFile(src, path)
		if err != nil {
			return fmt.Errorf("reading migration file %s: %w", path, err)
		}

		rendered := strings.TrimSpace(replacer.Replace(string(content)))
		if rendered == "" {
			rendered = "SELECT 1; -- No-op migration"
		}

		files[d.Name()] = rendered
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &memFS{files: files}, nil
}
