package rest

import (
	"slices"

	"github.com/nickvanderzwet/tabserve/pkg/model"
	"github.com/nickvanderzwet/tabserve/pkg/schema"
	"go.uber.org/zap"
)

// Binding pairs one table with the record type its endpoint serves.
type Binding struct {
	Table  schema.Table
	Record model.RecordType
}

// Catalog is the set of table bindings built once at startup. It is
// immutable after construction and shared read-only by all handlers.
type Catalog struct {
	bindings []Binding
	byName   map[string]int
}

// NewCatalog derives a record type for every table and binds the two
// together, preserving table order. Tables whose record type cannot be
// generated are logged and left out; columns whose raw type fell back to
// string get a diagnostic.
func NewCatalog(tables []schema.Table, logger *zap.Logger) Catalog {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	c := Catalog{byName: make(map[string]int, len(tables))}
	for _, t := range tables {
		for _, col := range t.Columns {
			if _, recognized := model.MapSourceType(col.SourceType); !recognized {
				logger.Warn("unmapped column type, serving as string",
					zap.String("table", t.Name),
					zap.String("column", col.Name),
					zap.String("source_type", col.SourceType))
			}
		}

		rec, err := model.Generate(t)
		if err != nil {
			logger.Warn("skipping table", zap.String("table", t.Name), zap.Error(err))
			continue
		}

		c.byName[t.Name] = len(c.bindings)
		c.bindings = append(c.bindings, Binding{Table: t, Record: rec})
	}
	return c
}

// Bindings returns the catalog's bindings in table order.
func (c Catalog) Bindings() []Binding {
	return slices.Clone(c.bindings)
}

// Lookup returns the binding for a table name.
func (c Catalog) Lookup(table string) (Binding, bool) {
	i, ok := c.byName[table]
	if !ok {
		return Binding{}, false
	}
	return c.bindings[i], true
}

// Len returns the number of bound tables.
func (c Catalog) Len() int {
	return len(c.bindings)
}

// ManifestField is one field in the catalog manifest: just the endpoint
// contract, without storage constraints.
type ManifestField struct {
	Name     string          `json:"name"`
	Type     model.FieldType `json:"type"`
	Required bool            `json:"required"`
}

// ManifestEntry is one table in the catalog manifest.
type ManifestEntry struct {
	Table  string          `json:"table"`
	Fields []ManifestField `json:"fields"`
}

// Manifest renders the catalog in the shape served by the tables endpoint.
func (c Catalog) Manifest() []ManifestEntry {
	entries := make([]ManifestEntry, 0, len(c.bindings))
	for _, b := range c.bindings {
		entry := ManifestEntry{
			Table:  b.Record.Table,
			Fields: make([]ManifestField, 0, len(b.Record.Fields)),
		}
		for _, f := range b.Record.Fields {
			entry.Fields = append(entry.Fields, ManifestField{
				Name:     f.Name,
				Type:     f.Type,
				Required: f.Required,
			})
		}
		entries = append(entries, entry)
	}
	return entries
}

// TableDetail is the full description of one served table.
type TableDetail struct {
	Table       string        `json:"table"`
	Endpoint    string        `json:"endpoint"`
	Fields      []model.Field `json:"fields"`
	PrimaryKeys []string      `json:"primary_keys,omitempty"`
	DDL         string        `json:"ddl"`
}

// Detail renders one binding with constraints, primary keys and the
// reconstructed CREATE TABLE statement.
func (c Catalog) Detail(table string) (TableDetail, bool) {
	b, ok := c.Lookup(table)
	if !ok {
		return TableDetail{}, false
	}
	return TableDetail{
		Table:       b.Table.Name,
		Endpoint:    "/" + b.Table.Name,
		Fields:      slices.Clone(b.Record.Fields),
		PrimaryKeys: b.Table.PrimaryKeys(),
		DDL:         schema.CreateTableDDL(b.Table),
	}, true
}
