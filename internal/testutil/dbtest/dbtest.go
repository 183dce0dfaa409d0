// Package dbtest wires tests to the live databases named by TEST_DATABASE
// (PostgreSQL connection string) and TEST_MYSQL_DSN (go-sql-driver DSN).
// Tests that need a live database skip when the variable is unset.
package dbtest

import (
	"cmp"
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// PostgresConnString returns the test PostgreSQL connection string, skipping
// the test when TEST_DATABASE is unset.
func PostgresConnString(t testing.TB) string {
	connString := os.Getenv("TEST_DATABASE")
	if connString == "" {
		t.Skip("TEST_DATABASE not set")
	}
	return connString
}

// ConnectPostgres opens a plain pgx connection for seeding test tables and
// registers cleanup.
func ConnectPostgres(ctx context.Context, t testing.TB) *pgx.Conn {
	config, err := pgx.ParseConfig(PostgresConnString(t))
	require.NoError(t, err)

	config.OnNotice = func(_ *pgconn.PgConn, n *pgconn.Notice) {
		t.Logf("PostgreSQL %s: %s", n.Severity, n.Message)
	}

	conn, err := pgx.ConnectConfig(ctx, config)
	require.NoError(t, err)

	t.Cleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, conn.Close(closeCtx))
	})

	return conn
}

// MySQLDSN returns the test MySQL DSN and database name, skipping the test
// when TEST_MYSQL_DSN is unset. The database name defaults to testdb and can
// be overridden with TEST_MYSQL_DBNAME.
func MySQLDSN(t testing.TB) (dsn, dbname string) {
	dsn = os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	return dsn, cmp.Or(os.Getenv("TEST_MYSQL_DBNAME"), "testdb")
}

// ConnectMySQL opens a database/sql handle for seeding test tables and
// registers cleanup.
func ConnectMySQL(t testing.TB) *sql.DB {
	dsn, _ := MySQLDSN(t)

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}
