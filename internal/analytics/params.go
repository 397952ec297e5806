package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ParameterValue is a primitive parameter attached to an event.
// String returns the rendering sent to the vendor.
type ParameterValue interface {
	String() string
	parameterValue()
}

type (
	String string
	Int    int64
	Float  float64
	Bool   bool
)

func (v String) String() string { return string(v) }
func (v Int) String() string    { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string  { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v Bool) String() string   { return strconv.FormatBool(bool(v)) }

func (String) parameterValue() {}
func (Int) parameterValue()    {}
func (Float) parameterValue()  {}
func (Bool) parameterValue()   {}

// ParameterFromAny converts a decoded JSON scalar into a ParameterValue.
// Whole JSON numbers become Int, the rest Float.
func ParameterFromAny(v interface{}) (ParameterValue, bool) {
	switch val := v.(type) {
	case string:
		return String(val), true
	case bool:
		return Bool(val), true
	case int:
		return Int(val), true
	case int64:
		return Int(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), true
		}
		f, err := val.Float64()
		if err != nil {
			return nil, false
		}
		return Float(f), true
	case float64:
		if val == float64(int64(val)) && val < 1e15 && val > -1e15 {
			return Int(int64(val)), true
		}
		return Float(val), true
	default:
		return nil, false
	}
}

// DecodeParams converts JSON params into parameter values. Only strings, numbers
// and booleans are accepted.
func DecodeParams(raw map[string]json.RawMessage) (map[string]ParameterValue, error) {
	if raw == nil {
		return nil, nil
	}

	params := make(map[string]ParameterValue, len(raw))
	for key, value := range raw {
		dec := json.NewDecoder(bytes.NewReader(value))
		dec.UseNumber()

		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("param %q: %w", key, err)
		}

		pv, ok := ParameterFromAny(v)
		if !ok {
			return nil, fmt.Errorf("param %q: unsupported value %s", key, string(value))
		}
		params[key] = pv
	}
	return params, nil
}
