package rest

import (
	"encoding/json"
	"testing"

	"github.com/nickvanderzwet/tabserve/pkg/model"
	"github.com/nickvanderzwet/tabserve/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func intPtr(n int) *int { return &n }

func usersTable() schema.Table {
	return schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", SourceType: "integer", IsPrimaryKey: true},
			{Name: "name", SourceType: "character varying", MaxLength: intPtr(100)},
			{Name: "email", SourceType: "character varying", Nullable: true, MaxLength: intPtr(255)},
		},
	}
}

func ordersTable() schema.Table {
	return schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", SourceType: "integer", IsPrimaryKey: true},
			{Name: "total", SourceType: "numeric", Nullable: true, NumericPrecision: intPtr(10), NumericScale: intPtr(2)},
		},
	}
}

func TestNewCatalog(t *testing.T) {
	c := NewCatalog([]schema.Table{usersTable(), ordersTable()}, zap.NewNop())

	assert.Equal(t, 2, c.Len())

	b, ok := c.Lookup("users")
	require.True(t, ok)
	assert.Equal(t, "users", b.Record.Table)
	assert.Len(t, b.Record.Fields, 3)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)

	bindings := c.Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, "users", bindings[0].Table.Name)
	assert.Equal(t, "orders", bindings[1].Table.Name)
}

func TestNewCatalogSkipsTableWithEmptyType(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	broken := schema.Table{
		Name:    "broken",
		Columns: []schema.Column{{Name: "id", SourceType: ""}},
	}

	c := NewCatalog([]schema.Table{usersTable(), broken}, zap.New(core))

	assert.Equal(t, 1, c.Len())
	_, ok := c.Lookup("broken")
	assert.False(t, ok)

	entries := logs.FilterMessage("skipping table").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["table"])
}

func TestNewCatalogWarnsUnmappedType(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	docs := schema.Table{
		Name: "docs",
		Columns: []schema.Column{
			{Name: "id", SourceType: "integer", IsPrimaryKey: true},
			{Name: "search", SourceType: "tsvector", Nullable: true},
		},
	}

	c := NewCatalog([]schema.Table{docs}, zap.New(core))

	b, ok := c.Lookup("docs")
	require.True(t, ok)
	assert.Equal(t, model.FieldString, b.Record.Fields[1].Type)

	entries := logs.FilterMessage("unmapped column type, serving as string").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tsvector", entries[0].ContextMap()["source_type"])
}

func TestCatalogManifest(t *testing.T) {
	c := NewCatalog([]schema.Table{usersTable(), ordersTable()}, zap.NewNop())

	manifest := c.Manifest()
	require.Len(t, manifest, 2)

	got, err := json.Marshal(manifest[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"table": "users",
		"fields": [
			{"name": "id", "type": "integer", "required": true},
			{"name": "name", "type": "string", "required": true},
			{"name": "email", "type": "string", "required": false}
		]
	}`, string(got))

	// storage constraints belong to the detail view, not the manifest
	assert.NotContains(t, string(got), "max_length")
}

func TestCatalogDetail(t *testing.T) {
	c := NewCatalog([]schema.Table{usersTable()}, zap.NewNop())

	d, ok := c.Detail("users")
	require.True(t, ok)
	assert.Equal(t, "users", d.Table)
	assert.Equal(t, "/users", d.Endpoint)
	assert.Equal(t, []string{"id"}, d.PrimaryKeys)
	assert.Contains(t, d.DDL, `CREATE TABLE "users"`)
	assert.Contains(t, d.DDL, `"name" character varying(100) NOT NULL`)

	require.Len(t, d.Fields, 3)
	assert.Equal(t, intPtr(255), d.Fields[2].MaxLength)

	_, ok = c.Detail("missing")
	assert.False(t, ok)
}

func TestCatalogDeterministic(t *testing.T) {
	tables := []schema.Table{usersTable(), ordersTable()}

	first, err := json.Marshal(NewCatalog(tables, zap.NewNop()).Manifest())
	require.NoError(t, err)
	second, err := json.Marshal(NewCatalog(tables, zap.NewNop()).Manifest())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestCatalogBindingsAreCopied(t *testing.T) {
	c := NewCatalog([]schema.Table{usersTable()}, zap.NewNop())

	bindings := c.Bindings()
	bindings[0].Record.Table = "mutated"

	b, ok := c.Lookup("users")
	require.True(t, ok)
	assert.Equal(t, "users", b.Record.Table)
}
