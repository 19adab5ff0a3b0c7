package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Params holds hyperparameters keyed by their configuration name.
// Values come from YAML or JSON, so numbers may arrive as int, int64,
// uint64 or float64; the As* helpers normalise them.
type Params map[string]interface{}

// Copy returns a shallow copy of p.
func (p Params) Copy() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p overlaid with other.
func (p Params) Merge(other Params) Params {
	out := p.Copy()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON writes float values with a decimal point so UnmarshalJSON
// can tell 1.0 from 1.
func (p Params) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		out[k] = markFloats(v)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes p keeping integral literals as int, so values
// written from GetParams come back with the same types.
func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*p = nil
		return nil
	}
	out := make(Params, len(raw))
	for k, v := range raw {
		out[k] = restoreNumbers(v)
	}
	*p = out
	return nil
}

func markFloats(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		return floatNumber(x)
	case float32:
		return floatNumber(float64(x))
	case []interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = markFloats(x[i])
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k := range x {
			out[k] = markFloats(x[k])
		}
		return out
	}
	return v
}

// floatNumber leaves NaN and Inf as float64 so json.Marshal rejects them.
func floatNumber(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s)
}

func restoreNumbers(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 0); err == nil {
				return int(i)
			}
		}
		f, _ := x.Float64()
		return f
	case []interface{}:
		for i := range x {
			x[i] = restoreNumbers(x[i])
		}
		return x
	case map[string]interface{}:
		for k := range x {
			x[k] = restoreNumbers(x[k])
		}
		return x
	}
	return v
}

// AsFloat converts a configuration value to float64.
func AsFloat(name string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	}
	return 0, invalidType(name, "number", v)
}

// AsInt converts a configuration value to int. Floats are accepted only when
// they hold an integral value, since JSON decodes every number as float64.
func AsInt(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int(x), nil
		}
	}
	return 0, invalidType(name, "integer", v)
}

// AsOptionalInt is AsInt where nil means "unset" and maps to 0.
func AsOptionalInt(name string, v interface{}) (int, error) {
	if v == nil {
		return 0, nil
	}
	return AsInt(name, v)
}

// AsString converts a configuration value to string.
func AsString(name string, v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", invalidType(name, "string", v)
}

// AsBool converts a configuration value to bool.
func AsBool(name string, v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, invalidType(name, "bool", v)
}

// UnknownParam reports a parameter name the estimator does not define.
func UnknownParam(estimator, name string) error {
	return errors.NewValueError(estimator+".SetParams", fmt.Sprintf("unknown parameter %q", name))
}

// OptionalInt renders 0 as nil so GetParams round-trips "unset" values.
func OptionalInt(v int) interface{} {
	if v <= 0 {
		return nil
	}
	return v
}

func invalidType(name, want string, v interface{}) error {
	return errors.NewValueError("SetParams", fmt.Sprintf("parameter %q must be a %s, got %v (%T)", name, want, v, v))
}
