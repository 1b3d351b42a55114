package postgres

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonParam encodes v for a JSON column. Nil pointers and nil slices are
// stored as NULL.
func jsonParam(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON column: %w", err)
	}
	return string(b), nil
}

// scanJSON decodes a JSON column into dst. NULL leaves dst untouched.
func scanJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}
	return nil
}
