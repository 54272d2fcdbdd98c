package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row is one untyped input record, keyed by column name.
type Row map[string]any

// Normalize returns a copy of r with not-a-number placeholders removed, so
// they read as absent rather than as values.
func (r Row) Normalize() Row {
	out := make(Row, len(r))
	for k, v := range r {
		if isNaN(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// String returns the value under key when it is a string, or "".
func (r Row) String(key string) string {
	s, _ := r[key].(string)
	return s
}

func isNaN(v any) bool {
	switch t := v.(type) {
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	}
	return false
}

// rowReader decodes typed fields out of a Row, collecting one FieldError per
// offending field instead of stopping at the first.
type rowReader struct {
	row    Row
	errors []FieldError
}

func (rr *rowReader) fail(field, rule, msg string) {
	rr.errors = append(rr.errors, FieldError{Field: field, Rule: rule, Message: msg})
}

func (rr *rowReader) has(field string) bool {
	v, ok := rr.row[field]
	return ok && v != nil
}

// str reads a required string. Non-string values are rejected, not coerced.
func (rr *rowReader) str(field string) string {
	v, ok := rr.row[field]
	if !ok || v == nil {
		rr.fail(field, "required", "is required")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		rr.fail(field, "type", fmt.Sprintf("must be a string, got %T", v))
		return ""
	}
	return s
}

func (rr *rowReader) optStr(field string) *string {
	if !rr.has(field) {
		return nil
	}
	s, ok := rr.row[field].(string)
	if !ok {
		rr.fail(field, "type", fmt.Sprintf("must be a string, got %T", rr.row[field]))
		return nil
	}
	return &s
}

// number reads a required numeric value. Numeric strings are accepted since
// tabular sources deliver every cell as text.
func (rr *rowReader) number(field string) float64 {
	v, ok := rr.row[field]
	if !ok || v == nil {
		rr.fail(field, "required", "is required")
		return 0
	}
	f, err := toFloat(v)
	if err != nil {
		rr.fail(field, "type", err.Error())
		return 0
	}
	return f
}

func (rr *rowReader) optInt(field string) *int64 {
	if !rr.has(field) {
		return nil
	}
	f, err := toFloat(rr.row[field])
	if err != nil {
		rr.fail(field, "type", err.Error())
		return nil
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		rr.fail(field, "type", fmt.Sprintf("must be a whole number, got %v", f))
		return nil
	}
	n := int64(f)
	return &n
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number, got %q", t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("must be a number, got %T", v)
}
