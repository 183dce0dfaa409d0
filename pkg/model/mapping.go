package model

import "strings"

// MapSourceType maps a raw catalog type name onto a semantic field type.
// Matching is a case-insensitive keyword scan over how PostgreSQL data_type
// and MySQL column_type spell their types. The second result is false when
// no keyword matched and the type fell back to FieldString.
func MapSourceType(sourceType string) (FieldType, bool) {
	t := strings.ToLower(sourceType)

	switch {
	// tinyint(1) is MySQL's boolean and must win over the integer keywords
	case strings.Contains(t, "tinyint(1)"), strings.Contains(t, "bool"):
		return FieldBoolean, true
	case strings.Contains(t, "int"), strings.Contains(t, "serial"):
		return FieldInteger, true
	case strings.Contains(t, "decimal"), strings.Contains(t, "numeric"),
		strings.Contains(t, "real"), strings.Contains(t, "double"),
		strings.Contains(t, "float"), strings.Contains(t, "money"):
		return FieldDecimal, true
	case strings.Contains(t, "timestamp"), strings.Contains(t, "datetime"),
		strings.Contains(t, "date"), strings.Contains(t, "time"):
		return FieldTimestamp, true
	case strings.Contains(t, "char"), strings.Contains(t, "text"),
		strings.Contains(t, "uuid"), strings.Contains(t, "json"),
		strings.Contains(t, "enum"), strings.Contains(t, "blob"),
		strings.Contains(t, "binary"), strings.Contains(t, "bytea"),
		strings.Contains(t, "bit"), strings.Contains(t, "set"):
		return FieldString, true
	default:
		return FieldString, false
	}
}
