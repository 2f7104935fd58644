package etl

import (
	"context"
	"errors"
	"strings"

	"github.com/redferry/redferry/catalog"
	"github.com/redferry/redferry/warehouse"
)

type statement struct {
	cluster string
	sql     string
}

// clusterState is the in-memory catalog of one fake cluster.
type clusterState struct {
	schemas []string
	tables  []catalog.TableRef
	ddl     map[catalog.TableRef]string
}

func (s *clusterState) hasSchema(name string) bool {
	for _, schema := range s.schemas {
		if schema == name {
			return true
		}
	}
	return false
}

func (s *clusterState) hasTable(ref catalog.TableRef) bool {
	for _, table := range s.tables {
		if table == ref {
			return true
		}
	}
	return false
}

// fakeWarehouse implements warehouse.Executor over in-memory cluster
// catalogs. Catalog queries read the state, DDL statements mutate it,
// data statements (UNLOAD, COPY, DELETE) are only recorded.
type fakeWarehouse struct {
	clusters   map[string]*clusterState
	failOn     string
	statements []statement
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		clusters: map[string]*clusterState{
			"source-cluster":      {ddl: map[catalog.TableRef]string{}},
			"destination-cluster": {ddl: map[catalog.TableRef]string{}},
		},
	}
}

func (f *fakeWarehouse) Run(ctx context.Context, cluster, sql string) (warehouse.Result, error) {
	f.statements = append(f.statements, statement{cluster: cluster, sql: sql})

	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return warehouse.Result{}, errors.New("statement failed")
	}

	state, ok := f.clusters[cluster]
	if !ok {
		return warehouse.Result{}, errors.New("unknown cluster " + cluster)
	}

	switch {
	case strings.Contains(sql, "information_schema.schemata"):
		rows := make([]warehouse.Row, 0, len(state.schemas))
		for _, schema := range state.schemas {
			rows = append(rows, warehouse.Row{schema})
		}
		return warehouse.Result{Rows: rows}, nil

	case strings.Contains(sql, "information_schema.tables"):
		rows := make([]warehouse.Row, 0, len(state.tables))
		for _, ref := range state.tables {
			rows = append(rows, warehouse.Row{ref.Schema, ref.Table})
		}
		return warehouse.Result{Rows: rows}, nil

	case strings.Contains(sql, "v_generate_tbl_ddl"):
		for ref, ddl := range state.ddl {
			if strings.Contains(sql, "'"+ref.Schema+"'") && strings.Contains(sql, "'"+ref.Table+"'") {
				return warehouse.Result{Rows: []warehouse.Row{{ddl}}}, nil
			}
		}
		return warehouse.Result{}, nil

	case strings.HasPrefix(sql, "CREATE SCHEMA "):
		state.schemas = append(state.schemas, strings.TrimPrefix(sql, "CREATE SCHEMA "))
		return warehouse.Result{}, nil

	case strings.HasPrefix(sql, "CREATE TABLE "):
		name := strings.Fields(strings.TrimPrefix(sql, "CREATE TABLE "))[0]
		schema, table, _ := strings.Cut(name, ".")
		state.tables = append(state.tables, catalog.TableRef{Schema: schema, Table: table})
		return warehouse.Result{}, nil

	default:
		return warehouse.Result{}, nil
	}
}

func (f *fakeWarehouse) issued(contains string) []statement {
	matched := make([]statement, 0)
	for _, stmt := range f.statements {
		if strings.Contains(stmt.sql, contains) {
			matched = append(matched, stmt)
		}
	}
	return matched
}

// fakeStore records cleared prefixes.
type fakeStore struct {
	bucket   string
	prefixes []string
}

func (f *fakeStore) ClearPrefix(ctx context.Context, prefix string) error {
	f.prefixes = append(f.prefixes, prefix)
	return nil
}

func (f *fakeStore) URL(prefix string) string {
	return "s3://" + f.bucket + "/" + prefix
}
