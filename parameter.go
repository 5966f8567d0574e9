package upsert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParameterType tells the Session how a normalized value is handed to the driver.
type ParameterType int

const (
	// ParamString binds the value as text. It is the default for every column.
	ParamString ParameterType = iota
	// ParamInteger binds the value as int64.
	ParamInteger
	// ParamBoolean binds the value as bool.
	ParamBoolean
	// ParamNull always binds NULL.
	ParamNull
	// ParamLargeObject binds the value as a byte slice.
	ParamLargeObject
	// ParamBinary binds the value as a byte slice.
	ParamBinary
	// ParamASCII binds the value as text.
	ParamASCII
)

// String returns the parameter type name.
func (t ParameterType) String() string {
	switch t {
	case ParamString:
		return "string"
	case ParamInteger:
		return "integer"
	case ParamBoolean:
		return "boolean"
	case ParamNull:
		return "null"
	case ParamLargeObject:
		return "large_object"
	case ParamBinary:
		return "binary"
	case ParamASCII:
		return "ascii"
	default:
		return "ParameterType(" + strconv.Itoa(int(t)) + ")"
	}
}

// bindParams converts every normalized value to the driver argument its type asks for.
// Columns without an entry in types are bound as ParamString.
func bindParams(params map[string]any, types map[string]ParameterType) (map[string]any, error) {
	args := make(map[string]any, len(params))
	for name, value := range params {
		arg, err := bindValue(value, types[name])
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidParameter, name, err)
		}
		args[name] = arg
	}
	return args, nil
}

// bindValue converts a scalar (string, int64, float64, bool or nil) to the Go type the driver receives.
func bindValue(value any, t ParameterType) (any, error) {
	if value == nil || t == ParamNull {
		return nil, nil
	}

	switch t {
	case ParamString, ParamASCII:
		return scalarString(value)
	case ParamInteger:
		return scalarInt(value)
	case ParamBoolean:
		return scalarBool(value)
	case ParamLargeObject, ParamBinary:
		s, err := scalarString(value)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	default:
		return nil, fmt.Errorf("unknown parameter type %s", t)
	}
}

func scalarString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("unexpected %T", value)
	}
}

func scalarInt(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case float64:
		// NaN fails the Trunc comparison; ±Inf and 2^63 fail the range check.
		if math.Trunc(v) != v || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, fmt.Errorf("%v is not an int64", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected %T", value)
	}
}

func scalarBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("unexpected %T", value)
	}
}
