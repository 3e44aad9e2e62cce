package rel

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/relmap/schema"
)

// Time layouts accepted when reading temporal values stored as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ToStorage normalizes a property value for storage. Integers become
// int64, floats float64, decimals string, booleans int64 0 or 1, times
// UTC time.Time, UUIDs their canonical string, and structures and arrays
// JSON text. Nil passes through.
func ToStorage(p *schema.PropDef, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch p.Type {
	case schema.TypeBool:
		b, err := toBool(v)
		if err != nil {
			return nil, err
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case schema.TypeStruct, schema.TypeArray:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s value: %w", p.Type, err)
		}
		return string(b), nil
	default:
		return Normalize(p, v)
	}
}

// FromStorage converts a stored field value back to its canonical
// property value. It accepts the representations drivers commonly return:
// integers for booleans, text or time values for timestamps, bytes for
// strings. Nil passes through.
func FromStorage(p *schema.PropDef, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch p.Type {
	case schema.TypeBool:
		return toBool(v)
	case schema.TypeStruct, schema.TypeArray:
		var data []byte
		switch v := v.(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			return v, nil
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode %s value: %w", p.Type, err)
		}
		return out, nil
	default:
		return Normalize(p, v)
	}
}

// Normalize converts a scalar value to the canonical Go type of the
// property type.
func Normalize(p *schema.PropDef, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch p.Type {
	case schema.TypeString:
		return toString(v)
	case schema.TypeInt16:
		return toInt(v, math.MinInt16, math.MaxInt16)
	case schema.TypeInt32:
		return toInt(v, math.MinInt32, math.MaxInt32)
	case schema.TypeInt64:
		return toInt(v, math.MinInt64, math.MaxInt64)
	case schema.TypeFloat32, schema.TypeFloat64:
		return toFloat(v)
	case schema.TypeDecimal:
		return toDecimal(v)
	case schema.TypeBool:
		return toBool(v)
	case schema.TypeTime:
		t, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case schema.TypeDate:
		t, err := toTime(v)
		if err != nil {
			return nil, err
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case schema.TypeUUID:
		return toUUID(v)
	case schema.TypeStruct, schema.TypeArray:
		return v, nil
	default:
		return nil, fmt.Errorf("no scalar value for %s property %q", p.Type, p.Name)
	}
}

func toString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", mismatch(v, schema.TypeString)
	}
}

func toInt(v any, lo, hi int64) (int64, error) {
	var n int64
	switch v := v.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d out of range", v)
		}
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d out of range", v)
		}
		n = int64(v)
	case float32:
		return toInt(float64(v), lo, hi)
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		n = int64(v)
	case json.Number:
		return toInt(string(v), lo, hi)
	case []byte:
		return toInt(string(v), lo, hi)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse integer: %w", err)
		}
		n = i
	default:
		return 0, mismatch(v, schema.TypeInt64)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("integer %d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case []byte:
		return toFloat(string(v))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("parse float: %w", err)
		}
		return f, nil
	default:
		return 0, mismatch(v, schema.TypeFloat64)
	}
}

func toDecimal(v any) (string, error) {
	switch v := v.(type) {
	case string:
		s := strings.TrimSpace(v)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", fmt.Errorf("parse decimal: %w", err)
		}
		return s, nil
	case []byte:
		return toDecimal(string(v))
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	default:
		return "", mismatch(v, schema.TypeDecimal)
	}
}

func toBool(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64, float64:
		n, err := toInt(v, math.MinInt64, math.MaxInt64)
		if err != nil {
			return false, err
		}
		return n != 0, nil
	case []byte:
		return toBool(string(v))
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("parse bool: %w", err)
		}
		return b, nil
	default:
		return false, mismatch(v, schema.TypeBool)
	}
}

func toTime(v any) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, mismatch(v, schema.TypeTime)
		}
		return *v, nil
	case interface{ Time() time.Time }:
		return v.Time(), nil
	case []byte:
		return toTime(string(v))
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("parse time %q: unknown layout", s)
	case int64:
		return time.Unix(v, 0), nil
	default:
		return time.Time{}, mismatch(v, schema.TypeTime)
	}
}

func toUUID(v any) (string, error) {
	switch v := v.(type) {
	case uuid.UUID:
		return v.String(), nil
	case [16]byte:
		return uuid.UUID(v).String(), nil
	case []byte:
		if len(v) == 16 {
			u, err := uuid.FromBytes(v)
			if err != nil {
				return "", err
			}
			return u.String(), nil
		}
		return toUUID(string(v))
	case string:
		u, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return "", fmt.Errorf("parse uuid: %w", err)
		}
		return u.String(), nil
	default:
		return "", mismatch(v, schema.TypeUUID)
	}
}

func mismatch(v any, t schema.DataType) error {
	return fmt.Errorf("cannot convert %T to %s", v, t)
}
