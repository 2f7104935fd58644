package etl

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/redferry/redferry/catalog"
	"github.com/redferry/redferry/config"
	"github.com/redferry/redferry/warehouse"
)

// ObjectStore is the staging area between the export and load steps.
type ObjectStore interface {
	ClearPrefix(ctx context.Context, prefix string) error
	URL(prefix string) string
}

// Migrator moves table data from the source cluster to the destination
// cluster through object storage: export with UNLOAD, load with COPY,
// then delete the duplicate rows the at-least-once load introduced.
type Migrator struct {
	executor warehouse.Executor
	store    ObjectStore
	config   config.Config
	logger   *zap.Logger
}

// NewMigrator returns a new Migrator instance.
func NewMigrator(executor warehouse.Executor, store ObjectStore, cfg config.Config, logger *zap.Logger) *Migrator {
	return &Migrator{
		executor: executor,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// MigrateAll migrates every table, at most Concurrency tables in
// flight at once. The first failing table aborts the run; tables not
// yet started are skipped.
func (m *Migrator) MigrateAll(ctx context.Context, tables []catalog.TableRef) error {
	concurrency := m.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, ref := range tables {
		g.Go(func() error {
			return m.MigrateTable(ctx, ref)
		})
	}

	return g.Wait()
}

// MigrateTable exports ref from the source cluster to object storage,
// loads it into the destination and removes duplicate rows. The three
// steps run strictly in order; a failure stops the table immediately.
func (m *Migrator) MigrateTable(ctx context.Context, ref catalog.TableRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := ref.Schema + "/" + ref.Table + "/"

	m.logger.Info("Export table",
		zap.String("table", ref.String()),
		zap.String("url", m.store.URL(prefix)))

	if err := m.store.ClearPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("unable to clear prefix %s: %w", prefix, err)
	}

	if _, err := m.executor.Run(ctx, m.config.Source, unloadStatement(ref, m.store.URL(prefix), m.config.IAMRole)); err != nil {
		return fmt.Errorf("unable to export table %s: %w", ref, err)
	}

	m.logger.Info("Load table", zap.String("table", ref.String()))

	if _, err := m.executor.Run(ctx, m.config.Destination, copyStatement(ref, m.store.URL(prefix), m.config.IAMRole)); err != nil {
		return fmt.Errorf("unable to load table %s: %w", ref, err)
	}

	m.logger.Info("Deduplicate table", zap.String("table", ref.String()))

	if _, err := m.executor.Run(ctx, m.config.Destination, dedupStatement(ref)); err != nil {
		return fmt.Errorf("unable to deduplicate table %s: %w", ref, err)
	}

	return nil
}

// unloadStatement serializes the table as line-delimited JSON under url.
func unloadStatement(ref catalog.TableRef, url, iamRole string) string {
	return fmt.Sprintf("UNLOAD ('SELECT * FROM %s') TO '%s' IAM_ROLE '%s' FORMAT JSON ALLOWOVERWRITE", ref, url, iamRole)
}

// copyStatement bulk-loads every object under url, inferring the column
// mapping from the JSON keys.
func copyStatement(ref catalog.TableRef, url, iamRole string) string {
	return fmt.Sprintf("COPY %s FROM '%s' IAM_ROLE '%s' FORMAT JSON 'auto'", ref, url, iamRole)
}

// dedupStatement deletes every row sharing an id with a row carrying a
// smaller uuid, leaving exactly the minimum-uuid row per id. Running it
// again is a no-op. Requires id and uuid columns on the table.
func dedupStatement(ref catalog.TableRef) string {
	name := ref.String()
	return fmt.Sprintf("DELETE FROM %s USING %s b WHERE %s.id = b.id AND %s.uuid > b.uuid", name, name, name, name)
}
