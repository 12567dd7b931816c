package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
)

var (
	// ErrInvalidJSON means the body is not a non-empty JSON object.
	ErrInvalidJSON = errors.New("invalid json")
	// ErrBadFields means a field is missing or cannot be coerced to its type.
	ErrBadFields = errors.New("bad fields")
)

// FieldError names the payload field that failed validation. It matches both
// ErrBadFields and the underlying cause with errors.Is.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() []error {
	return []error{ErrBadFields, e.Err}
}

var (
	errMissing     = errors.New("required")
	errNotFinite   = errors.New("must be finite")
	errOutOfRange  = errors.New("out of range")
	errUnsupported = errors.New("unsupported type")
)

// ParsePayload validates an ingestion body and builds a Reading.
//
// ts_epoch and device are optional and default to now and defaultDevice;
// temp_c and hum_pct are required. Numbers may be sent as JSON numbers or as
// numeric strings.
func ParsePayload(body []byte, now time.Time, defaultDevice string) (types.Reading, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || len(payload) == 0 {
		return types.Reading{}, ErrInvalidJSON
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return types.Reading{}, ErrInvalidJSON
	}

	r := types.Reading{
		Timestamp: now.Unix(),
		DeviceID:  defaultDevice,
	}

	if v, ok := payload["ts_epoch"]; ok {
		ts, err := coerceInt(v)
		if err != nil {
			return types.Reading{}, &FieldError{Field: "ts_epoch", Err: err}
		}
		r.Timestamp = ts
	}

	if v, ok := payload["device"]; ok && v != nil {
		device, err := coerceString(v)
		if err != nil {
			return types.Reading{}, &FieldError{Field: "device", Err: err}
		}
		r.DeviceID = device
	}

	var err error
	if r.TemperatureC, err = requiredFloat(payload, "temp_c"); err != nil {
		return types.Reading{}, err
	}
	if r.HumidityPct, err = requiredFloat(payload, "hum_pct"); err != nil {
		return types.Reading{}, err
	}
	return r, nil
}

func requiredFloat(payload map[string]any, field string) (float64, error) {
	v, ok := payload[field]
	if !ok {
		return 0, &FieldError{Field: field, Err: errMissing}
	}
	f, err := coerceFloat(v)
	if err != nil {
		return 0, &FieldError{Field: field, Err: err}
	}
	return f, nil
}

// coerceInt accepts integers, floats (truncated toward zero) and integer strings.
func coerceInt(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, errOutOfRange
		}
		return int64(f), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	default:
		return 0, fmt.Errorf("%w %T", errUnsupported, v)
	}
}

func coerceFloat(v any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch x := v.(type) {
	case json.Number:
		f, err = x.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("%w %T", errUnsupported, v)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func coerceString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("%w %T", errUnsupported, v)
	}
}
