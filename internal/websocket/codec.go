package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	fws "github.com/gofiber/websocket/v2"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrMalformedFrame = errors.New("malformed frame")

var cborDecoder cbor.DecMode

func init() {
	mode, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	cborDecoder = mode
}

// decodeObject turns one websocket message into a generic object. Text
// messages are JSON. Binary messages are tried as msgpack, then CBOR, and
// finally as UTF-8 JSON.
func decodeObject(messageType int, data []byte) (map[string]interface{}, error) {
	if messageType == fws.BinaryMessage {
		var obj map[string]interface{}
		if err := msgpack.Unmarshal(data, &obj); err == nil && obj != nil {
			return obj, nil
		}
		obj = nil
		if err := cborDecoder.Unmarshal(data, &obj); err == nil && obj != nil {
			return obj, nil
		}
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: unable to parse message as msgpack, cbor or json", ErrMalformedFrame)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: expected an object", ErrMalformedFrame)
	}
	return obj, nil
}

// toFloat accepts every numeric type the three codecs produce.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toMatrix converts a decoded channels x samples array.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func toMatrix(v interface{}) ([][]float64, error) {
	rows, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: sample matrix must be an array of channels", ErrMalformedFrame)
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		cols, ok := r.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: channel %d is not an array", ErrMalformedFrame, i)
		}
		ch := make([]float64, len(cols))
		for j, c := range cols {
			f, ok := toFloat(c)
			if !ok {
				return nil, fmt.Errorf("%w: channel %d sample %d is not numeric", ErrMalformedFrame, i, j)
			}
			if !finite(f) {
				return nil, fmt.Errorf("%w: channel %d sample %d is not finite", ErrMalformedFrame, i, j)
			}
			ch[j] = f
		}
		out[i] = ch
	}
	return out, nil
}
