package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Querier is the subset of pgx behavior the extractor needs, satisfied by
// *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSource reads one PostgreSQL schema (default "public") through a
// pgx connection pool.
type PostgresSource struct {
	pool   *pgxpool.Pool
	schema string
	logger *zap.Logger
}

func NewPostgresSource(ctx context.Context, connString, schemaName string, logger *zap.Logger, opts ...SourceOption) (*PostgresSource, error) {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if schemaName == "" {
		schemaName = "public"
	}

	var po PoolOptions
	for _, opt := range opts {
		opt(&po)
	}

	pcfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: parse conn string: %v", ErrUnreachable, err)
	}
	if po.MaxConns > 0 {
		pcfg.MaxConns = int32(po.MaxConns)
	}
	if po.MinConns > 0 {
		pcfg.MinConns = int32(po.MinConns)
	}
	if po.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = po.MaxConnLifetime
	}
	if po.MaxConnIdleTime > 0 {
		pcfg.MaxConnIdleTime = po.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create pool: %v", ErrUnreachable, err)
	}

	return &PostgresSource{pool: pool, schema: schemaName, logger: logger}, nil
}

func (s *PostgresSource) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

func (s *PostgresSource) Close() {
	s.pool.Close()
}

func (s *PostgresSource) Extract(ctx context.Context, excluded map[string]struct{}) ([]Table, error) {
	names, err := listPgTables(ctx, s.pool, s.schema)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", ErrUnreachable, err)
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		if _, skip := excluded[name]; skip {
			s.logger.Debug("table excluded", zap.String("table", name))
			continue
		}

		cols, err := queryPgColumns(ctx, s.pool, s.schema, name)
		if err != nil {
			s.logger.Warn("skipping table",
				zap.String("table", name),
				zap.Error(fmt.Errorf("%w: %v", ErrTableRead, err)))
			continue
		}
		if len(cols) == 0 {
			s.logger.Warn("skipping table without readable columns", zap.String("table", name))
			continue
		}

		tables = append(tables, Table{Name: name, Columns: cols})
	}
	return tables, nil
}

func (s *PostgresSource) SelectAll(ctx context.Context, t Table) ([][]any, error) {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quotePgIdent(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s.%s",
		strings.Join(cols, ", "), quotePgIdent(s.schema), quotePgIdent(t.Name))

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	defer rows.Close()

	out := [][]any{}
	for rows.Next() {
		values := make([]any, len(t.Columns))
		valuePointers := make([]any, len(t.Columns))
		for i := range values {
			valuePointers[i] = &values[i]
		}
		if err := rows.Scan(valuePointers...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.Name, err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", t.Name, err)
	}
	return out, nil
}

func listPgTables(ctx context.Context, conn Querier, schema string) ([]string, error) {
	rows, err := conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func queryPgColumns(ctx context.Context, conn Querier, schema, table string) ([]Column, error) {
	rows, err := conn.Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = $1
					AND tc.table_name = $2
					AND kcu.column_name = c.column_name
			) AS is_primary_key,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.SourceType, &col.Nullable, &col.IsPrimaryKey,
			&col.MaxLength, &col.NumericPrecision, &col.NumericScale); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func quotePgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
