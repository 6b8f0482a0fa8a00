package form

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// IsEmptyValue reports whether v counts as empty input: nil, an empty
// string, or an empty slice, array or map.
func IsEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ToFloat converts numbers and numeric strings to float64.
func ToFloat(v any) (float64, bool) {
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
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ToString renders v for string-based validators. nil renders as "".
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// ToSlice returns the elements of a slice or array value.
func ToSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// normalizeValue maps v onto the shape a control of the given mode stores:
// a fresh []any in multiple mode, the value itself otherwise.
func normalizeValue(v any, multiple bool) any {
	if !multiple {
		return v
	}
	if v == nil {
		return []any{}
	}
	if s, ok := ToSlice(v); ok {
		out := make([]any, len(s))
		copy(out, s)
		return out
	}
	return []any{v}
}

// cloneValue copies slice values so callers cannot alias stored state.
func cloneValue(v any) any {
	if s, ok := v.([]any); ok {
		out := make([]any, len(s))
		copy(out, s)
		return out
	}
	return v
}

// sameValue compares two scalar payloads.
func sameValue(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// shallowEqual compares stored values element-wise in multiple mode.
func shallowEqual(a, b any, multiple bool) bool {
	if !multiple {
		return sameValue(a, b)
	}
	as, _ := ToSlice(a)
	bs, _ := ToSlice(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !sameValue(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if sameValue(item, v) {
			return true
		}
	}
	return false
}
