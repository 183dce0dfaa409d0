package rest

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nickvanderzwet/tabserve/pkg/model"
)

// MarshalRows converts raw positional rows into JSON-ready records keyed by
// field name, coercing driver values onto each field's semantic type. A NULL
// in a required field stays null rather than failing the row; the count of
// such values is returned for diagnostics.
func MarshalRows(rec model.RecordType, rows [][]any) ([]map[string]any, int) {
	records := make([]map[string]any, 0, len(rows))
	violations := 0

	for _, row := range rows {
		record := make(map[string]any, len(rec.Fields))
		for i, f := range rec.Fields {
			if i >= len(row) {
				break
			}
			v := row[i]
			if v == nil {
				if f.Required {
					violations++
				}
				record[f.Name] = nil
				continue
			}
			record[f.Name] = coerceValue(f.Type, v)
		}
		records = append(records, record)
	}
	return records, violations
}

// coerceValue normalizes one driver value for JSON output. The MySQL text
// protocol hands most values over as []byte, pgx as typed Go values; both
// must land on the same JSON shape per semantic type. Values a case does
// not recognize pass through and marshal as the driver returned them.
func coerceValue(t model.FieldType, v any) any {
	switch t {
	case model.FieldInteger:
		switch val := v.(type) {
		case []byte:
			if n, err := strconv.ParseInt(string(val), 10, 64); err == nil {
				return n
			}
			return string(val)
		default:
			return v
		}
	case model.FieldDecimal:
		switch val := v.(type) {
		case []byte:
			return json.Number(val)
		case string:
			return json.Number(val)
		default:
			return v
		}
	case model.FieldBoolean:
		switch val := v.(type) {
		case bool:
			return val
		case int64:
			return val != 0
		case []byte:
			s := string(val)
			return s == "1" || strings.EqualFold(s, "true")
		default:
			return v
		}
	case model.FieldTimestamp:
		switch val := v.(type) {
		case time.Time:
			return val.Format(time.RFC3339Nano)
		case []byte:
			return string(val)
		default:
			return v
		}
	case model.FieldString:
		switch val := v.(type) {
		case []byte:
			return string(val)
		case [16]byte:
			return uuid.UUID(val).String()
		default:
			return v
		}
	}
	return v
}
