package etl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/redferry/redferry/catalog"
	"github.com/redferry/redferry/warehouse"
)

// Reconciler replicates the catalog structure of the source cluster on
// the destination cluster. It only ever adds: schemas and tables
// already present on the destination are left untouched.
type Reconciler struct {
	executor    warehouse.Executor
	source      *catalog.Reader
	destination *catalog.Reader
	logger      *zap.Logger
}

// NewReconciler returns a new Reconciler instance.
func NewReconciler(executor warehouse.Executor, source, destination *catalog.Reader, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		executor:    executor,
		source:      source,
		destination: destination,
		logger:      logger,
	}
}

// ReconcileSchemas creates on the destination every schema present on
// the source and absent from the destination.
func (r *Reconciler) ReconcileSchemas(ctx context.Context) error {
	sourceSchemas, err := r.source.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("unable to list source schemas: %w", err)
	}

	destinationSchemas, err := r.destination.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("unable to list destination schemas: %w", err)
	}

	for _, schema := range missingStrings(sourceSchemas, destinationSchemas) {
		r.logger.Info("Create schema",
			zap.String("schema", schema),
			zap.String("cluster", r.destination.Cluster()))

		if _, err := r.executor.Run(ctx, r.destination.Cluster(), fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
			return fmt.Errorf("unable to create schema %s: %w", schema, err)
		}
	}

	return nil
}

// ReconcileTables replays on the destination the DDL of every source
// table missing from the destination. A table existing by name on both
// clusters is treated as already reconciled, whatever its structure.
func (r *Reconciler) ReconcileTables(ctx context.Context) error {
	sourceTables, err := r.source.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("unable to list source tables: %w", err)
	}

	destinationTables, err := r.destination.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("unable to list destination tables: %w", err)
	}

	for _, ref := range missingTables(sourceTables, destinationTables) {
		ddl, err := r.source.TableDDL(ctx, ref)
		if err != nil {
			return fmt.Errorf("unable to read DDL of table %s: %w", ref, err)
		}

		r.logger.Info("Create table",
			zap.String("table", ref.String()),
			zap.String("cluster", r.destination.Cluster()))

		if _, err := r.executor.Run(ctx, r.destination.Cluster(), ddl); err != nil {
			return fmt.Errorf("unable to create table %s: %w", ref, err)
		}
	}

	return nil
}
