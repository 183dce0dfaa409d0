package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLSource reads one MySQL (or MariaDB) database through database/sql.
// The DSN should carry parseTime=true so temporal columns scan as time.Time.
type MySQLSource struct {
	db     *sql.DB
	dbname string
	logger *zap.Logger
}

func NewMySQLSource(dsn, dbname string, logger *zap.Logger, opts ...SourceOption) (*MySQLSource, error) {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	var po PoolOptions
	for _, opt := range opts {
		opt(&po)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrUnreachable, err)
	}
	if po.MaxConns > 0 {
		db.SetMaxOpenConns(po.MaxConns)
	}
	if po.MinConns > 0 {
		db.SetMaxIdleConns(po.MinConns)
	}
	if po.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(po.MaxConnLifetime)
	}
	if po.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(po.MaxConnIdleTime)
	}

	return &MySQLSource{db: db, dbname: dbname, logger: logger}, nil
}

func (s *MySQLSource) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

func (s *MySQLSource) Close() {
	_ = s.db.Close()
}

func (s *MySQLSource) Extract(ctx context.Context, excluded map[string]struct{}) ([]Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`, s.dbname)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", ErrUnreachable, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan table name: %v", ErrUnreachable, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		if _, skip := excluded[name]; skip {
			s.logger.Debug("table excluded", zap.String("table", name))
			continue
		}

		cols, err := s.queryColumns(ctx, name)
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

// queryColumns reads column_type rather than data_type so width modifiers
// survive: tinyint(1) is the conventional MySQL boolean and is only
// distinguishable from wider tinyints by its display width.
func (s *MySQLSource) queryColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable = 'YES',
			(c.column_key = 'PRI'),
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position`, s.dbname, table)
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

func (s *MySQLSource) SelectAll(ctx context.Context, t Table) ([][]any, error) {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteMySQLIdent(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteMySQLIdent(t.Name))

	rows, err := s.db.QueryContext(ctx, query)
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

func quoteMySQLIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
