package upsert

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON wraps a value stored in a JSON (or text) column.
// It binds as JSON text with ParamString, whatever type is passed with As,
// and scans back from []byte or string.
//
// Usage:
//
//	upsert.New(session).
//	    ForTable("profiles").
//	    WithIdentifier("user_id", 7, upsert.As(upsert.ParamInteger)).
//	    WithField("settings", upsert.NewJSON(settings)).
//	    Execute(ctx)
//
// Plain slices, maps and structs are bound as JSON text too; JSON is for
// values that also need to be read back through Scan.
type JSON[T any] struct {
	Data T
}

var (
	_ driver.Valuer = JSON[any]{}
	_ RawTyper      = JSON[any]{}
)

// NewJSON creates a new JSON wrapper for the given value.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{Data: v}
}

// RawType implements RawTyper.
func (j JSON[T]) RawType() ParameterType {
	return ParamString
}

// Value implements the driver.Valuer interface.
func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (j *JSON[T]) Scan(value any) error {
	var zero T
	var data []byte
	switch v := value.(type) {
	case nil:
		j.Data = zero
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("upsert: failed to scan JSON: expected []byte or string, got %T", value)
	}

	if len(data) == 0 {
		j.Data = zero
		return nil
	}
	return json.Unmarshal(data, &j.Data)
}

// MarshalJSON implements json.Marshaler.
func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Data)
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *JSON[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &j.Data)
}
