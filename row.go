package sheetq

import (
	"fmt"
	"strconv"
	"time"
)

// Position locates a materialized row in the grid. It is only valid
// relative to the grid state at the most recent materialization: any
// operation that removes rows invalidates the positions of rows below the
// removal point.
type Position struct {
	Row  int // 1-based grid row at materialization time
	Cols int // grid column count when the row was read
}

// Row is one materialized grid row: a mapping from column name to raw cell
// value, with its position carried alongside the data rather than smuggled
// into it, so a column may legitimately be named anything.
type Row struct {
	Data map[string]interface{}
	Pos  Position
}

// Has reports whether the row carries a value for the column.
func (r *Row) Has(col string) bool {
	_, ok := r.Data[col]
	return ok
}

// GetAsString returns the column value as a string, or defaultValue when
// the column is absent.
func (r *Row) GetAsString(col string, defaultValue string) string {
	v, ok := r.Data[col]
	if !ok {
		return defaultValue
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case nil:
		return defaultValue
	default:
		return fmt.Sprintf("%v", val)
	}
}

// GetAsInt64 returns the column value as an int64, or defaultValue when the
// column is absent or not convertible.
func (r *Row) GetAsInt64(col string, defaultValue int64) int64 {
	v, ok := r.Data[col]
	if !ok {
		return defaultValue
	}
	switch val := v.(type) {
	case int:
		return int64(val)
	case int64:
		return val
	case float64:
		return int64(val)
	case string:
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return int64(f)
		}
	}
	return defaultValue
}

// GetAsFloat64 returns the column value as a float64, or defaultValue when
// the column is absent or not convertible.
func (r *Row) GetAsFloat64(col string, defaultValue float64) float64 {
	v, ok := r.Data[col]
	if !ok {
		return defaultValue
	}
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetAsBool returns the column value as a bool, or defaultValue when the
// column is absent or not convertible. The strings "true", "TRUE" and "1"
// read as true; "false", "FALSE" and "0" as false.
func (r *Row) GetAsBool(col string, defaultValue bool) bool {
	v, ok := r.Data[col]
	if !ok {
		return defaultValue
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch val {
		case "true", "TRUE", "1":
			return true
		case "false", "FALSE", "0":
			return false
		}
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}
	return defaultValue
}

// GetAsTime returns the column value as a time.Time, or defaultValue when
// the column is absent or not parseable. String values are tried against
// RFC 3339, "2006-01-02 15:04:05" and "2006-01-02".
func (r *Row) GetAsTime(col string, defaultValue time.Time) time.Time {
	v, ok := r.Data[col]
	if !ok {
		return defaultValue
	}
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t
			}
		}
	}
	return defaultValue
}

// Set assigns a raw value to the column, allocating the data map when the
// row was zero-valued.
func (r *Row) Set(col string, value interface{}) {
	if r.Data == nil {
		r.Data = make(map[string]interface{})
	}
	r.Data[col] = value
}

// SetString assigns a string value.
func (r *Row) SetString(col string, value string) {
	r.Set(col, value)
}

// SetInt64 assigns an int64 value.
func (r *Row) SetInt64(col string, value int64) {
	r.Set(col, value)
}

// SetFloat64 assigns a float64 value.
func (r *Row) SetFloat64(col string, value float64) {
	r.Set(col, value)
}

// SetBool assigns a bool value.
func (r *Row) SetBool(col string, value bool) {
	r.Set(col, value)
}

// SetTime assigns a time value, stored as an RFC 3339 string.
func (r *Row) SetTime(col string, value time.Time) {
	r.Set(col, value.Format(time.RFC3339))
}
