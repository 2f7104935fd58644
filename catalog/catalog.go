package catalog

import (
	"context"
	"fmt"
	"strings"

	lk "github.com/ulule/loukoum/v3"
	"go.uber.org/zap"

	"github.com/redferry/redferry/warehouse"
)

// systemSchemas are never listed, replicated nor migrated.
var systemSchemas = []interface{}{"pg_catalog", "information_schema", "admin"}

// TableRef identifies a table within a cluster catalog.
type TableRef struct {
	Schema string
	Table  string
}

func (t TableRef) String() string {
	return t.Schema + "." + t.Table
}

// Reader lists schemas, tables and generated DDL for a single cluster.
type Reader struct {
	executor warehouse.Executor
	cluster  string
	logger   *zap.Logger
}

// NewReader returns a Reader bound to cluster.
func NewReader(executor warehouse.Executor, cluster string, logger *zap.Logger) *Reader {
	return &Reader{
		executor: executor,
		cluster:  cluster,
		logger:   logger,
	}
}

// Cluster returns the cluster identifier this Reader is bound to.
func (r *Reader) Cluster() string {
	return r.cluster
}

// ListSchemas returns the non-system schemas of the cluster.
func (r *Reader) ListSchemas(ctx context.Context) ([]string, error) {
	builder := lk.Select("schema_name").
		From("information_schema.schemata").
		Where(lk.Condition("schema_name").NotIn(systemSchemas...)).
		And(lk.Raw("schema_name NOT LIKE 'pg_%'")).
		Comment("schemas")

	rows, err := r.query(ctx, builder.String())
	if err != nil {
		return nil, fmt.Errorf("unable to list schemas of cluster %s: %w", r.cluster, err)
	}

	seen := make(map[string]struct{}, len(rows))
	schemas := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}

		if _, ok := seen[row[0]]; ok {
			continue
		}

		seen[row[0]] = struct{}{}
		schemas = append(schemas, row[0])
	}

	r.logger.Debug("Listed schemas",
		zap.String("cluster", r.cluster),
		zap.Int("count", len(schemas)))

	return schemas, nil
}

// ListTables returns every (schema, table) pair of the cluster outside
// the system schemas. Pairs are unique within a listing.
func (r *Reader) ListTables(ctx context.Context) ([]TableRef, error) {
	builder := lk.Select("table_schema", "table_name").
		From("information_schema.tables").
		Where(lk.Condition("table_schema").NotIn(systemSchemas...)).
		And(lk.Raw("table_schema NOT LIKE 'pg_%'")).
		And(lk.Condition("table_type").Equal("BASE TABLE")).
		Comment("tables")

	rows, err := r.query(ctx, builder.String())
	if err != nil {
		return nil, fmt.Errorf("unable to list tables of cluster %s: %w", r.cluster, err)
	}

	seen := make(map[TableRef]struct{}, len(rows))
	tables := make([]TableRef, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}

		ref := TableRef{Schema: row[0], Table: row[1]}
		if _, ok := seen[ref]; ok {
			continue
		}

		seen[ref] = struct{}{}
		tables = append(tables, ref)
	}

	r.logger.Debug("Listed tables",
		zap.String("cluster", r.cluster),
		zap.Int("count", len(tables)))

	return tables, nil
}

// TableDDL reconstructs the CREATE TABLE statement of ref from the
// admin.v_generate_tbl_ddl view, which must pre-exist on the cluster.
// The view emits the DDL as ordered text fragments, one row each.
func (r *Reader) TableDDL(ctx context.Context, ref TableRef) (string, error) {
	builder := lk.Select("ddl").
		From("admin.v_generate_tbl_ddl").
		Where(lk.Condition("schemaname").Equal(ref.Schema)).
		And(lk.Condition("tablename").Equal(ref.Table)).
		OrderBy(lk.Order("seq")).
		Comment("table ddl")

	rows, err := r.query(ctx, builder.String())
	if err != nil {
		return "", fmt.Errorf("unable to read DDL of table %s on cluster %s: %w", ref, r.cluster, err)
	}

	if len(rows) == 0 {
		return "", fmt.Errorf("no DDL found for table %s on cluster %s", ref, r.cluster)
	}

	fragments := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			fragments = append(fragments, row[0])
		}
	}

	return strings.Join(fragments, "\n"), nil
}

func (r *Reader) query(ctx context.Context, sql string) ([]warehouse.Row, error) {
	result, err := r.executor.Run(ctx, r.cluster, sql)
	if err != nil {
		return nil, err
	}

	return result.Rows, nil
}
