package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gorm.io/datatypes"
)

var ErrUnencodable = errors.New("value cannot be encoded as json")

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// jsonSafe rewrites NaN and Inf, which encoding/json rejects, as null.
// Slices that are already finite are returned as is.
func jsonSafe(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if finite(x) {
			return x
		}
		return nil
	case float32:
		if finite(float64(x)) {
			return x
		}
		return nil
	case []float64:
		clean := true
		for _, f := range x {
			if !finite(f) {
				clean = false
				break
			}
		}
		if clean {
			return x
		}
		out := make([]interface{}, len(x))
		for i, f := range x {
			out[i] = jsonSafe(f)
		}
		return out
	case [][]float64:
		out := make([]interface{}, len(x))
		for i, row := range x {
			out[i] = jsonSafe(row)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = jsonSafe(e)
		}
		return out
	case map[string]float64:
		out := make(map[string]interface{}, len(x))
		for k, f := range x {
			out[k] = jsonSafe(f)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = jsonSafe(e)
		}
		return out
	default:
		return v
	}
}

func marshalJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(jsonSafe(v))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return datatypes.JSON(b), nil
}

// toJSON marshals v for a nullable jsonb column. Non-finite numbers become
// null and any other unencodable value leaves the column NULL.
func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := marshalJSON(v)
	if err != nil {
		return nil
	}
	return b
}

func objectFromJSON(j datatypes.JSON) map[string]interface{} {
	if len(j) == 0 {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}

func floatsFromJSON(j datatypes.JSON) map[string]float64 {
	if len(j) == 0 {
		return nil
	}
	var out map[string]float64
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}
