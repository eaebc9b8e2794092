package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidIdentifier marks an abstract id that cannot become a primary key.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// NormalizeID converts an external abstract identifier (JSON string or number)
// into the integer primary key used by the store.
func NormalizeID(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing value", ErrInvalidIdentifier)
	case string:
		return parseIDString(v)
	case json.Number:
		if id, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return positiveID(id)
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidIdentifier, v.String())
		}
		return idFromFloat(f)
	case float64:
		return idFromFloat(v)
	case float32:
		return idFromFloat(float64(v))
	case int:
		return positiveID(int64(v))
	case int32:
		return positiveID(int64(v))
	case int64:
		return positiveID(v)
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d out of range", ErrInvalidIdentifier, v)
		}
		return positiveID(int64(v))
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d out of range", ErrInvalidIdentifier, v)
		}
		return positiveID(int64(v))
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidIdentifier, raw)
	}
}

func parseIDString(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidIdentifier)
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidIdentifier, trimmed)
	}
	return positiveID(id)
}

func idFromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidIdentifier, f)
	}
	return positiveID(int64(f))
}

func positiveID(id int64) (int64, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d is not a positive key", ErrInvalidIdentifier, id)
	}
	return id, nil
}
