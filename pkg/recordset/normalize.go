package recordset

import (
	"math"
	"time"
)

// Normalize prepares a value for document staging. It dispatches over the
// closed set of shapes a relational row can carry:
//
//   - records, maps and slices are normalized element-wise
//   - date-only temporal values become instants anchored at UTC midnight
//   - NaN and infinite floats (missing-value sentinels) become nil
//   - every other scalar passes through unchanged
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case Record:
		return NormalizeRecord(val)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, elem := range val {
			out[k] = Normalize(elem)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = Normalize(elem)
		}
		return out
	case time.Time:
		return normalizeTime(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return val
	default:
		return v
	}
}

// NormalizeRecord normalizes every field of a record, returning a new
// record with the same field order.
func NormalizeRecord(r Record) Record {
	out := make(Record, len(r))
	for i, f := range r {
		out[i] = Field{Name: f.Name, Value: Normalize(f.Value)}
	}
	return out
}

// normalizeTime anchors date-only values at UTC midnight. Values that
// carry a clock component are passed through unchanged.
func normalizeTime(t time.Time) time.Time {
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		y, mo, d := t.Date()
		return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	}
	return t
}
