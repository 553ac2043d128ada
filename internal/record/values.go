package record

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotNumeric is returned when a value cannot be read as a number.
var ErrNotNumeric = errors.New("value is not numeric")

// MultiValueSeparator joins multi-valued fields when rendered as text.
const MultiValueSeparator = `\`

// String renders a field value as text. Multi-valued fields are joined with
// the DICOM backslash delimiter.
func String(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, MultiValueSeparator)
	case []byte:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, MultiValueSeparator)
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return strings.Join(parts, MultiValueSeparator)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns the individual values of a possibly multi-valued field.
// A plain string is split on the backslash delimiter.
func Strings(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		parts := strings.Split(v, MultiValueSeparator)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return Strings(String(v))
	}
}

// Int reads a field value as an integer. Floats are truncated and numeric
// strings (DICOM IS/DS) are parsed.
func Int(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %v", ErrNotNumeric, v)
		}
		return int64(v), nil
	case []int:
		if len(v) == 1 {
			return int64(v[0]), nil
		}
	case []float64:
		if len(v) == 1 {
			return Int(v[0])
		}
	case []string:
		if len(v) == 1 {
			return Int(v[0])
		}
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Int(f)
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNotNumeric, String(value))
}

// Float reads a field value as a float.
func Float(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case []float64:
		if len(v) == 1 {
			return v[0], nil
		}
	case []string:
		if len(v) == 1 {
			return Float(v[0])
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, nil
		}
	default:
		if n, err := Int(v); err == nil {
			return float64(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNotNumeric, String(value))
}
