package entity

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// AnswerSet maps block ids to collected values. A missing key means
// "unanswered", which is never an error at the model level.
type AnswerSet map[string]any

// IsEmptyValue reports whether a collected value counts as "no answer":
// nil, empty string or empty slice. Zero numbers and false booleans are
// real answers.
func IsEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		return rv.Len() == 0
	}

	return false
}

// AnswerString renders a collected value as a string for comparison.
// The second return is false for values with no sensible string form.
func AnswerString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case fmt.Stringer:
		return t.String(), true
	}
	return "", false
}

// AnswerNumber coerces a collected value to a float. Returns false for
// anything that is not a finite number or a numeric string.
func AnswerNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, isFinite(t)
	case float32:
		return float64(t), isFinite(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return n, isFinite(n)
	}
	return 0, false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
