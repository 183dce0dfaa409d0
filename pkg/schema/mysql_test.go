package schema

import (
	"context"
	"testing"

	"github.com/nickvanderzwet/tabserve/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMySQLSourceExtract(t *testing.T) {
	ctx := context.Background()
	db := dbtest.ConnectMySQL(t)
	dsn, dbname := dbtest.MySQLDSN(t)

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS extract_products (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(10,2) NOT NULL,
			in_stock TINYINT(1) NOT NULL,
			note TEXT
		)`)
	require.NoError(t, err)
	defer db.ExecContext(ctx, "DROP TABLE IF EXISTS extract_products")

	src, err := NewMySQLSource(dsn, dbname, zap.NewNop())
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.Ping(ctx))

	tables, err := src.Extract(ctx, nil)
	require.NoError(t, err)

	var products Table
	for _, tab := range tables {
		if tab.Name == "extract_products" {
			products = tab
		}
	}
	require.NotEmpty(t, products.Name, "extract_products missing from snapshot")
	require.Len(t, products.Columns, 5)

	id := products.Columns[0]
	assert.Equal(t, "id", id.Name)
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.Nullable)

	name := products.Columns[1]
	assert.Equal(t, "varchar(255)", name.SourceType)
	require.NotNil(t, name.MaxLength)
	assert.Equal(t, 255, *name.MaxLength)

	price := products.Columns[2]
	require.NotNil(t, price.NumericPrecision)
	assert.Equal(t, 10, *price.NumericPrecision)
	require.NotNil(t, price.NumericScale)
	assert.Equal(t, 2, *price.NumericScale)

	assert.Contains(t, products.Columns[3].SourceType, "tinyint(1)")
	assert.True(t, products.Columns[4].Nullable)

	tables, err = src.Extract(ctx, ExclusionSet("extract_products"))
	require.NoError(t, err)
	for _, tab := range tables {
		assert.NotEqual(t, "extract_products", tab.Name)
	}
}

func TestMySQLSourceSelectAll(t *testing.T) {
	ctx := context.Background()
	db := dbtest.ConnectMySQL(t)
	dsn, dbname := dbtest.MySQLDSN(t)

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS select_all_products (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(64) NOT NULL
		)`)
	require.NoError(t, err)
	defer db.ExecContext(ctx, "DROP TABLE IF EXISTS select_all_products")

	_, err = db.ExecContext(ctx, "TRUNCATE select_all_products")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO select_all_products (name) VALUES ('Widget'), ('Gadget')")
	require.NoError(t, err)

	src, err := NewMySQLSource(dsn, dbname, zap.NewNop())
	require.NoError(t, err)
	defer src.Close()

	tables, err := src.Extract(ctx, nil)
	require.NoError(t, err)

	var target Table
	for _, tab := range tables {
		if tab.Name == "select_all_products" {
			target = tab
		}
	}
	require.NotEmpty(t, target.Name)

	rows, err := src.SelectAll(ctx, target)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows[0], 2)

	_, err = db.ExecContext(ctx, "TRUNCATE select_all_products")
	require.NoError(t, err)

	rows, err = src.SelectAll(ctx, target)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
