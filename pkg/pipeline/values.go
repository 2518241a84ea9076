package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"telcochurn/pkg/dataprep"
)

// ToFloat coerces a request value to a finite number. Strings may use a
// comma decimal separator.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	case string:
		var ok bool
		if f, ok = dataprep.ParseDecimal(x); !ok {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToCategory coerces a request value to the string form used at training
// time. Numbers and booleans are stringified, so senior_citizen 0 becomes "0".
func ToCategory(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int, int32, int64:
		return fmt.Sprint(x), true
	}
	return "", false
}
