package upsert

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
)

// RawValuer is implemented by values that decide for themselves what reaches the binder.
// The returned value must be a scalar; it bypasses every other normalization step.
type RawValuer interface {
	RawValue() any
}

// RawTyper is implemented by values that carry their own parameter type.
// It overrides the type passed with As.
type RawTyper interface {
	RawType() ParameterType
}

// TimeLayout is the text form time.Time values are bound with, after conversion to UTC.
const TimeLayout = "2006-01-02 15:04:05.999999"

// normalizeValue reduces v to string, int64, float64, bool or nil.
//
// Resolution order:
//  1. RawValuer
//  2. driver.Valuer
//  3. pointers: nil binds NULL; a String or MarshalJSON method only the pointer has is used,
//     otherwise the pointer is dereferenced
//  4. plain scalars, []byte and time.Time
//  5. named scalar types (enums) as their underlying value, even when they have a String method
//  6. fmt.Stringer
//  7. slices, arrays, maps and structs as JSON text
func normalizeValue(v any) (any, error) {
	if rv, ok := v.(RawValuer); ok {
		return normalizeRaw(rv)
	}
	if dv, ok := v.(driver.Valuer); ok {
		return normalizeDriverValue(dv)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return normalizePointer(v, rv)
	}

	switch x := v.(type) {
	case nil:
		return nil, nil
	case string, int64, float64, bool:
		return x, nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.UTC().Format(TimeLayout), nil
	}

	if isScalarKind(rv.Kind()) {
		return normalizeEnum(rv)
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		return normalizeComposite(v)
	}
	return normalizeEnum(rv)
}

// normalizePointer keeps methods declared on the pointer receiver, e.g. (*big.Int).String
// or (*url.URL).String, which the dereferenced value no longer has.
func normalizePointer(v any, rv reflect.Value) (any, error) {
	if rv.IsNil() {
		return nil, nil
	}
	elem := rv.Elem()
	if isScalarKind(elem.Kind()) {
		return normalizeEnum(elem)
	}

	target := elem.Interface()
	if s, ok := v.(fmt.Stringer); ok {
		if _, byValue := target.(fmt.Stringer); !byValue {
			return s.String(), nil
		}
	}
	if _, ok := v.(json.Marshaler); ok {
		if _, byValue := target.(json.Marshaler); !byValue {
			return normalizeComposite(v)
		}
	}
	return normalizeValue(target)
}

func normalizeRaw(rv RawValuer) (any, error) {
	if isNilPointer(rv) {
		return nil, nil
	}
	switch raw := rv.RawValue().(type) {
	case nil:
		return nil, nil
	case []byte:
		return string(raw), nil
	default:
		return normalizeEnum(reflect.ValueOf(raw))
	}
}

func normalizeDriverValue(v driver.Valuer) (any, error) {
	if isNilPointer(v) {
		return nil, nil
	}
	dv, err := v.Value()
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnbindableValue, v, err)
	}
	if _, ok := dv.(driver.Valuer); ok {
		return nil, fmt.Errorf("%w: %T returned another driver.Valuer", ErrUnbindableValue, v)
	}
	return normalizeValue(dv)
}

func normalizeComposite(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnbindableValue, v, err)
	}
	return string(b), nil
}

// normalizeEnum maps a value of scalar kind, named or not, to its underlying scalar.
func normalizeEnum(rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnbindableValue, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnbindableValue, rv.Type())
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
