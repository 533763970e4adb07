// Package coerce normalizes the loosely typed values device firmware puts on
// the wire. Numeric fields arrive as JSON numbers or as numeric strings
// depending on sensor model and firmware revision; every decoder goes through
// this one contract: numbers and numeric-looking strings are accepted,
// everything else is rejected.
package coerce

import (
	"fmt"
	"strconv"
	"strings"
)

// Float64 coerces a JSON value to float64.
func Float64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("not a numeric string: %q", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// Int coerces a JSON value to int. Fractional values are rejected.
func Int(v interface{}) (int, error) {
	f, err := Float64(v)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Errorf("not an integer: %v", f)
	}
	return n, nil
}

// Int64 coerces a JSON value to int64. Fractional values are rejected.
func Int64(v interface{}) (int64, error) {
	f, err := Float64(v)
	if err != nil {
		return 0, err
	}
	n := int64(f)
	if float64(n) != f {
		return 0, fmt.Errorf("not an integer: %v", f)
	}
	return n, nil
}

// String coerces a JSON value to a string. Numbers are formatted; this covers
// identifier fields some firmware emits as numbers.
func String(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("not a string: %T", v)
	}
}

// FloatField extracts a mandatory float field from a document.
func FloatField(doc map[string]interface{}, key string) (float64, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing field %q", key)
	}
	f, err := Float64(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return f, nil
}

// IntField extracts a mandatory integer field from a document.
func IntField(doc map[string]interface{}, key string) (int, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing field %q", key)
	}
	n, err := Int(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}

// OptionalFloat extracts an optional float field; absent or null yields nil,
// a present but non-numeric value is an error.
func OptionalFloat(doc map[string]interface{}, key string) (*float64, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, err := Float64(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return &f, nil
}

// OptionalInt extracts an optional integer field.
func OptionalInt(doc map[string]interface{}, key string) (*int, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil, nil
	}
	n, err := Int(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return &n, nil
}

// OptionalString extracts an optional string field; absent or empty yields nil.
func OptionalString(doc map[string]interface{}, key string) *string {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil
	}
	s, err := String(v)
	if err != nil || s == "" {
		return nil
	}
	return &s
}
