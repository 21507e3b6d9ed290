package sheetq

import (
	"fmt"
)

// Condition is a single declarative filter on one column.
type Condition struct {
	Column   string      // heading to test
	Operator string      // ==, !=, >, >=, <, <=, in, between
	Value    interface{} // []interface{} for in, two-element list for between
}

// Match builds a Predicate that accepts rows satisfying every condition.
// A row without the named column evaluates the condition against nil.
func Match(conds ...Condition) Predicate {
	return func(row Row) bool {
		for _, cond := range conds {
			if !cond.eval(row) {
				return false
			}
		}
		return true
	}
}

// And combines predicates conjunctively. With no arguments it matches
// every row.
func And(preds ...Predicate) Predicate {
	return func(row Row) bool {
		for _, pred := range preds {
			if !pred(row) {
				return false
			}
		}
		return true
	}
}

// Or combines predicates disjunctively. With no arguments it matches no
// row.
func Or(preds ...Predicate) Predicate {
	return func(row Row) bool {
		for _, pred := range preds {
			if pred(row) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(pred Predicate) Predicate {
	return func(row Row) bool {
		return !pred(row)
	}
}

func (c Condition) eval(row Row) bool {
	value := row.Data[c.Column]

	switch c.Operator {
	case "==":
		return equalValues(value, c.Value)
	case "!=":
		return !equalValues(value, c.Value)
	case ">":
		cmp, ok := numericCompare(value, c.Value)
		return ok && cmp > 0
	case ">=":
		cmp, ok := numericCompare(value, c.Value)
		return ok && cmp >= 0
	case "<":
		cmp, ok := numericCompare(value, c.Value)
		return ok && cmp < 0
	case "<=":
		cmp, ok := numericCompare(value, c.Value)
		return ok && cmp <= 0
	case "in":
		list, ok := c.Value.([]interface{})
		if !ok {
			return false
		}
		for _, item := range list {
			if equalValues(value, item) {
				return true
			}
		}
		return false
	case "between":
		min, max, ok := betweenBounds(c.Value)
		if !ok {
			return false
		}
		lo, okLo := numericCompare(value, min)
		hi, okHi := numericCompare(value, max)
		return okLo && okHi && lo >= 0 && hi <= 0
	default:
		return false
	}
}

// Validate reports whether the condition is well formed: a known operator,
// a non-empty column, and a value shape matching the operator.
func (c Condition) Validate() error {
	switch c.Operator {
	case "==", "!=", ">", ">=", "<", "<=":
	case "in":
		if _, ok := c.Value.([]interface{}); !ok {
			return fmt.Errorf("operator %q requires a []interface{} value", c.Operator)
		}
	case "between":
		if _, _, ok := betweenBounds(c.Value); !ok {
			return fmt.Errorf("operator %q requires two bounds", c.Operator)
		}
	default:
		return fmt.Errorf("invalid operator %q", c.Operator)
	}
	if c.Column == "" {
		return fmt.Errorf("empty column name")
	}
	return nil
}

// equalValues compares loosely: numerics compare by value across types,
// anything else by string rendering. Two nils are equal.
func equalValues(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if isNumeric(a) && isNumeric(b) {
		return toFloat64(a) == toFloat64(b)
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// numericCompare orders two values when both are numeric. Ordering is
// undefined for non-numeric operands, reported via ok.
func numericCompare(a, b interface{}) (cmp int, ok bool) {
	if !isNumeric(a) || !isNumeric(b) {
		return 0, false
	}
	av, bv := toFloat64(a), toFloat64(b)
	switch {
	case av < bv:
		return -1, true
	case av > bv:
		return 1, true
	default:
		return 0, true
	}
}

func betweenBounds(v interface{}) (min, max interface{}, ok bool) {
	switch bounds := v.(type) {
	case [2]interface{}:
		return bounds[0], bounds[1], true
	case []interface{}:
		if len(bounds) == 2 {
			return bounds[0], bounds[1], true
		}
	}
	return nil, nil, false
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	default:
		return 0
	}
}
