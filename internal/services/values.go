package services

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Stringify coerces a decoded JSON value to the string form used for comparisons.
//
// nil becomes "", integral numbers drop any fraction, other numbers use the shortest decimal form,
// and booleans become "true" or "false".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return canonicalNumber(string(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func canonicalNumber(s string) string {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

// ParseID reads a remote identifier from a decoded JSON value.
func ParseID(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		return strconv.ParseInt(string(t), 10, 64)
	case string:
		return strconv.ParseInt(t, 10, 64)
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("unexpected id %v (%T)", v, v)
	}
}
