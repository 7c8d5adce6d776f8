package units

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/bimbridge/internal/ir"
)

// DefaultColor is applied when a visual override names no color.
var DefaultColor = [3]uint8{255, 0, 0}

// DefaultTransparency is applied when SetTransparency names no value.
const DefaultTransparency = 50

// ToString renders a wire value as host text.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// ToFloat coerces a wire value to a finite number. Strings are parsed after
// trimming whitespace; booleans, structured values, NaN and infinities are
// rejected.
func ToFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert value %q to double", x.String())
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || !finite(n) {
			return 0, fmt.Errorf("cannot convert value %q to double", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert value %v to double", v)
	}
	if !finite(f) {
		return 0, fmt.Errorf("cannot convert value %q to double", ToString(v))
	}
	return f, nil
}

// ToInt coerces a wire value to an integer. Fractional numbers are rounded
// half away from zero; values outside the int64 range are rejected.
func ToInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert value %q to integer", x)
		}
		n, ok := roundToInt(f)
		if !ok {
			return 0, fmt.Errorf("cannot convert value %q to integer", x)
		}
		return n, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert value %q to integer", ToString(v))
	}
	n, ok := roundToInt(f)
	if !ok {
		return 0, fmt.Errorf("cannot convert value %q to integer", ToString(v))
	}
	return n, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// roundToInt rounds f half away from zero and reports whether the result
// fits in an int64.
func roundToInt(f float64) (int64, bool) {
	r := math.Round(f)
	if !finite(r) || r < -(1<<63) || r >= 1<<63 {
		return 0, false
	}
	return int64(r), true
}

// ToElementID coerces a wire value to an element reference.
func ToElementID(v any) (ir.ElementID, error) {
	n, err := ToInt(v)
	if err != nil {
		return ir.InvalidElementID, fmt.Errorf("cannot convert value %v to element id", v)
	}
	return ir.ElementID(n), nil
}

// ClampColor returns the first three components of c, each clamped to
// 0..255. Missing components are 0; an empty slice yields DefaultColor.
func ClampColor(c []int) [3]uint8 {
	if len(c) == 0 {
		return DefaultColor
	}
	var out [3]uint8
	for i := 0; i < 3 && i < len(c); i++ {
		out[i] = uint8(max(0, min(255, c[i])))
	}
	return out
}

// ClampTransparency returns t clamped to 0..100, or DefaultTransparency
// when t is nil.
func ClampTransparency(t *int) int {
	if t == nil {
		return DefaultTransparency
	}
	return max(0, min(100, *t))
}
