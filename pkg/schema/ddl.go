package schema

import (
	"fmt"
	"strings"
)

// CreateTableDDL reconstructs a CREATE TABLE statement for the table as the
// startup snapshot saw it, with standard double-quoted identifiers.
// Informational only: defaults, indexes and storage options are not part of
// the snapshot, so the output is not a full dump.
func CreateTableDDL(t Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		def := fmt.Sprintf("%s %s", quotePgIdent(c.Name), columnTypeSQL(c))
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	if pkeys := t.PrimaryKeys(); len(pkeys) > 0 {
		quoted := make([]string, len(pkeys))
		for i, k := range pkeys {
			quoted[i] = quotePgIdent(k)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", quotePgIdent(t.Name), strings.Join(defs, ",\n  "))
}

// columnTypeSQL renders the column's type with its width or precision
// modifier when the catalog reported one and the raw type name does not
// already carry it (MySQL column_type does, PostgreSQL data_type does not).
func columnTypeSQL(c Column) string {
	t := c.SourceType
	if strings.ContainsRune(t, '(') {
		return t
	}

	switch {
	case c.MaxLength != nil:
		return fmt.Sprintf("%s(%d)", t, *c.MaxLength)
	case c.NumericPrecision != nil &&
		(strings.Contains(t, "numeric") || strings.Contains(t, "decimal")):
		if c.NumericScale != nil && *c.NumericScale > 0 {
			return fmt.Sprintf("%s(%d,%d)", t, *c.NumericPrecision, *c.NumericScale)
		}
		return fmt.Sprintf("%s(%d)", t, *c.NumericPrecision)
	}
	return t
}
