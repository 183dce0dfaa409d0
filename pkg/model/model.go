// Package model derives record types from table descriptors. A record type
// is the JSON contract of one table's endpoint: field names in column order,
// each with a semantic type drawn from a closed set and a required flag
// mirroring NOT NULL.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nickvanderzwet/tabserve/pkg/schema"
)

// ErrEmptySourceType marks a column descriptor with a blank raw type name.
// Catalogs always report one, so this points at a broken extractor.
var ErrEmptySourceType = errors.New("model: column source type is empty")

// FieldType is the semantic type of one record field.
type FieldType string

const (
	FieldInteger   FieldType = "integer"
	FieldString    FieldType = "string"
	FieldDecimal   FieldType = "decimal"
	FieldTimestamp FieldType = "timestamp"
	FieldBoolean   FieldType = "boolean"
)

type Field struct {
	Name      string    `json:"name"`
	Type      FieldType `json:"type"`
	Required  bool      `json:"required"`
	MaxLength *int      `json:"max_length,omitempty"`
	Precision *int      `json:"precision,omitempty"`
	Scale     *int      `json:"scale,omitempty"`
}

type RecordType struct {
	Table  string  `json:"table"`
	Fields []Field `json:"fields"`
}

// Generate derives the record type for a table. It is deterministic: the
// same descriptor always yields the same record type, with fields in column
// order and Required mirroring NOT NULL.
func Generate(t schema.Table) (RecordType, error) {
	rec := RecordType{Table: t.Name, Fields: make([]Field, 0, len(t.Columns))}

	for _, c := range t.Columns {
		if strings.TrimSpace(c.SourceType) == "" {
			return RecordType{}, fmt.Errorf("%w: %s.%s", ErrEmptySourceType, t.Name, c.Name)
		}

		fieldType, _ := MapSourceType(c.SourceType)
		rec.Fields = append(rec.Fields, Field{
			Name:      c.Name,
			Type:      fieldType,
			Required:  !c.Nullable,
			MaxLength: c.MaxLength,
			Precision: c.NumericPrecision,
			Scale:     c.NumericScale,
		})
	}
	return rec, nil
}
