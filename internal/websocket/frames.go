package websocket

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrUnknownFrame = errors.New("unknown message type")

type FrameKind string

const (
	KindRawSample FrameKind = "raw_sample"
	KindFeatures  FrameKind = "features"
	KindHeartbeat FrameKind = "heartbeat"
	KindUnknown   FrameKind = "unknown"
)

// Frame is one decoded producer message. The set of implementations is
// closed; anything unrecognised decodes to *UnknownFrame.
type Frame interface {
	Kind() FrameKind
	Time() time.Time
}

type RawSampleFrame struct {
	Timestamp time.Time
	// Channels is channels x samples.
	Channels [][]float64
}

type FeaturesFrame struct {
	Timestamp time.Time
	Features  map[string]float64
	// Extra holds the non-numeric payload entries.
	Extra map[string]interface{}
}

type HeartbeatFrame struct {
	Timestamp time.Time
}

type UnknownFrame struct {
	Type      string
	Timestamp time.Time
}

func (*RawSampleFrame) Kind() FrameKind   { return KindRawSample }
func (f *RawSampleFrame) Time() time.Time { return f.Timestamp }
func (*FeaturesFrame) Kind() FrameKind    { return KindFeatures }
func (f *FeaturesFrame) Time() time.Time  { return f.Timestamp }
func (*HeartbeatFrame) Kind() FrameKind   { return KindHeartbeat }
func (f *HeartbeatFrame) Time() time.Time { return f.Timestamp }
func (*UnknownFrame) Kind() FrameKind     { return KindUnknown }
func (f *UnknownFrame) Time() time.Time   { return f.Timestamp }

// Samples returns the per-channel sample count.
func (f *RawSampleFrame) Samples() int {
	if len(f.Channels) == 0 {
		return 0
	}
	return len(f.Channels[0])
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// parseTimestamp accepts ISO-8601 strings (zone-less ones are UTC) and epoch
// seconds. A missing timestamp means now.
func parseTimestamp(v interface{}, now time.Time) (time.Time, error) {
	if v == nil {
		return now, nil
	}
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), nil
		}
		for _, layout := range naiveLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", ErrMalformedFrame, s)
	}
	if f, ok := toFloat(v); ok {
		if !finite(f) {
			return time.Time{}, fmt.Errorf("%w: invalid timestamp", ErrMalformedFrame)
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: timestamp must be a string or a number", ErrMalformedFrame)
}

// DecodeFrame decodes and classifies one message received after
// authentication. A frame without a type is a raw sample.
func DecodeFrame(messageType int, data []byte, now time.Time) (Frame, error) {
	obj, err := decodeObject(messageType, data)
	if err != nil {
		return nil, err
	}
	return frameFromObject(obj, now)
}

func frameFromObject(obj map[string]interface{}, now time.Time) (Frame, error) {
	kind := string(KindRawSample)
	if t, ok := obj["type"]; ok && t != nil {
		s, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("%w: type must be a string", ErrMalformedFrame)
		}
		kind = s
	}

	ts, err := parseTimestamp(obj["timestamp"], now)
	if err != nil {
		return nil, err
	}

	switch FrameKind(kind) {
	case KindRawSample:
		payload, _ := obj["data"].(map[string]interface{})
		matrix, ok := payload["channels"]
		if !ok {
			matrix, ok = payload["eeg"]
		}
		if !ok {
			return nil, fmt.Errorf("%w: raw_sample carries no channels or eeg matrix", ErrMalformedFrame)
		}
		channels, err := toMatrix(matrix)
		if err != nil {
			return nil, err
		}
		return &RawSampleFrame{Timestamp: ts, Channels: channels}, nil

	case KindFeatures:
		payload, ok := obj["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: features payload must be an object", ErrMalformedFrame)
		}
		f := &FeaturesFrame{
			Timestamp: ts,
			Features:  make(map[string]float64, len(payload)),
			Extra:     make(map[string]interface{}),
		}
		for k, v := range payload {
			if n, ok := toFloat(v); ok {
				if !finite(n) {
					return nil, fmt.Errorf("%w: feature %q is not finite", ErrMalformedFrame, k)
				}
				f.Features[k] = n
			} else {
				f.Extra[k] = v
			}
		}
		return f, nil

	case KindHeartbeat:
		return &HeartbeatFrame{Timestamp: ts}, nil

	default:
		return &UnknownFrame{Type: kind, Timestamp: ts}, nil
	}
}

// authRequest is the first frame of every connection.
type authRequest struct {
	Secret string
	UserID string
}

func decodeAuth(messageType int, data []byte) (authRequest, error) {
	obj, err := decodeObject(messageType, data)
	if err != nil {
		return authRequest{}, err
	}
	var req authRequest
	if s, ok := obj["secret"].(string); ok {
		req.Secret = s
	} else if s, ok := obj["api_key"].(string); ok {
		req.Secret = s
	}
	req.UserID, _ = obj["user_id"].(string)
	return req, nil
}
