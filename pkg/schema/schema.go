// Package schema reads table and column metadata out of a live relational
// database into an in-memory snapshot taken once at startup. PostgreSQL and
// MySQL catalogs are supported behind the same Source interface, which also
// serves the read path so callers never touch a driver directly.
package schema

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrUnreachable wraps failures that make the whole catalog unavailable.
	// Startup treats it as fatal.
	ErrUnreachable = errors.New("schema: database unreachable")
	// ErrTableRead marks a single table whose metadata could not be read.
	// Extraction logs and skips such tables.
	ErrTableRead = errors.New("schema: table metadata unreadable")
)

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type Column struct {
	Name             string `json:"name"`
	SourceType       string `json:"source_type"`
	Nullable         bool   `json:"nullable"`
	IsPrimaryKey     bool   `json:"is_primary_key"`
	MaxLength        *int   `json:"max_length,omitempty"`
	NumericPrecision *int   `json:"numeric_precision,omitempty"`
	NumericScale     *int   `json:"numeric_scale,omitempty"`
}

// PrimaryKeys returns the names of the table's primary key columns in
// column order.
func (t Table) PrimaryKeys() []string {
	var pkeys []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pkeys = append(pkeys, c.Name)
		}
	}
	return pkeys
}

// Source is the read surface of one database: catalog metadata at startup,
// row reads at request time. Implementations are safe for concurrent use
// after construction.
type Source interface {
	// Extract enumerates the base tables of the configured schema, ordered
	// by name, with columns in ordinal order. Tables named in excluded are
	// dropped during enumeration; tables whose metadata cannot be read are
	// skipped, not fatal.
	Extract(ctx context.Context, excluded map[string]struct{}) ([]Table, error)
	// SelectAll reads every row of the table, values positionally aligned
	// with t.Columns.
	SelectAll(ctx context.Context, t Table) ([][]any, error)
	Ping(ctx context.Context) error
	Close()
}

// PoolOptions tunes a source's connection pool. Zero fields keep the
// driver defaults.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SourceOption configures a source at construction.
type SourceOption func(*PoolOptions)

// WithPool sets connection pool tuning for a source.
func WithPool(p PoolOptions) SourceOption {
	return func(o *PoolOptions) { *o = p }
}

// ExclusionSet parses the comma-separated excluded-tables config value into
// a lookup set. Entries are trimmed of surrounding space but never
// case-folded: exclusion matches the exact table name.
func ExclusionSet(csv string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, name := range strings.Split(csv, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}
