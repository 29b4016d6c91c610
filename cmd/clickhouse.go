package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/allure-runtime/internal/clickhouse"
	"github.com/ethpandaops/allure-runtime/internal/config"
	"github.com/ethpandaops/allure-runtime/internal/output"
	"github.com/ethpandaops/allure-runtime/internal/results"
	"github.com/spf13/cobra"
)

var (
	clickhouseCmd = &cobra.Command{
		Use:   "clickhouse",
		Short: "Manage the ClickHouse analytics sink",
	}

	clickhouseMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the results database and apply schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return migrateClickhouse(cmd.Context(), cfg)
		},
	}

	clickhouseImportCmd = &cobra.Command{
		Use:   "import [dir]",
		Short: "Insert an existing results directory into ClickHouse",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClickhouseImport,
	}
)

func init() {
	clickhouseCmd.AddCommand(clickhouseMigrateCmd, clickhouseImportCmd)
	rootCmd.AddCommand(clickhouseCmd)
}

func migrateClickhouse(ctx context.Context, cfg *config.Config) error {
	colors := output.NewColorHelper()

	fmt.Println(colors.Info(fmt.Sprintf("🔗 Connecting to ClickHouse at %s:%d...", cfg.ClickhouseHost, cfg.ClickhouseNativePort)))
	conn, err := clickhouse.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	if err := clickhouse.CreateDatabase(ctx, conn, cfg.ClickhouseDatabase, cfg.ClickhouseCluster); err != nil {
		return err
	}

	db := clickhouse.OpenDB(cfg)
	defer func() {
		_ = db.Close()
	}()

	runner := clickhouse.NewMigrationRunner(Logger, cfg.ClickhouseCluster, config.SchemaMigrationsTable)
	if err := runner.RunMigrations(ctx, db, cfg.ClickhouseDatabase); err != nil {
		return err
	}

	fmt.Println(colors.Success(fmt.Sprintf("✅ Database %s is up to date", cfg.ClickhouseDatabase)))
	return nil
}

func runClickhouseImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.ResultsDir
	if len(args) == 1 {
		dir = args[0]
	}

	set, err := results.NewLoader(Logger, results.DefaultConcurrency).Load(ctx, dir)
	if err != nil {
		return err
	}

	conn, err := clickhouse.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	w := clickhouse.NewWriter(Logger, conn, cfg.ClickhouseDatabase, cfg.Worker, clickhouse.DefaultBatchSize)
	replayErr := set.Replay(dir, w)
	closeErr := w.Close(ctx)
	if err := errors.Join(replayErr, closeErr); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d results and %d containers from %s\n", len(set.Results), len(set.Containers), dir)
	return nil
}
