package etl

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/redferry/redferry/catalog"
	"github.com/redferry/redferry/config"
	"github.com/redferry/redferry/storage"
	"github.com/redferry/redferry/warehouse"
	"github.com/redferry/redferry/warehouse/redshift"
)

// Engine drives a migration run: replicate missing schemas and tables
// on the destination, then migrate the data of every source table.
type Engine struct {
	config     config.Config
	source     *catalog.Reader
	reconciler *Reconciler
	migrator   *Migrator
	logger     *zap.Logger
}

// NewEngine assembles an Engine over the Redshift Data API and S3,
// using the ambient AWS credential chain.
func NewEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Engine, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS configuration: %w", err)
	}

	runnerOpts := make([]warehouse.Option, 0, 1)
	if cfg.PollTimeout > 0 {
		runnerOpts = append(runnerOpts, warehouse.WithTimeout(cfg.PollTimeout))
	}

	runner := warehouse.NewRunner(
		redshift.NewFromConfig(awsCfg, cfg.DBName, cfg.DBUser),
		logger,
		runnerOpts...,
	)
	store := storage.NewBucket(s3.NewFromConfig(awsCfg), cfg.Bucket, logger)

	return newEngine(cfg, runner, store, logger), nil
}

func newEngine(cfg config.Config, executor warehouse.Executor, store ObjectStore, logger *zap.Logger) *Engine {
	source := catalog.NewReader(executor, cfg.Source, logger)
	destination := catalog.NewReader(executor, cfg.Destination, logger)

	return &Engine{
		config:     cfg,
		source:     source,
		reconciler: NewReconciler(executor, source, destination, logger),
		migrator:   NewMigrator(executor, store, cfg, logger),
		logger:     logger,
	}
}

// Run reconciles schemas, then tables, then migrates the data of every
// table present on the source at that point. The listing is a snapshot:
// tables created on the source afterwards are not picked up.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.reconciler.ReconcileSchemas(ctx); err != nil {
		return fmt.Errorf("unable to reconcile schemas: %w", err)
	}

	if err := e.reconciler.ReconcileTables(ctx); err != nil {
		return fmt.Errorf("unable to reconcile tables: %w", err)
	}

	tables, err := e.source.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("unable to list source tables: %w", err)
	}

	e.logger.Info("Migrate tables",
		zap.Int("count", len(tables)),
		zap.String("source", e.config.Source),
		zap.String("destination", e.config.Destination))

	return e.migrator.MigrateAll(ctx, tables)
}
