package validators

import (
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/formtree/internal/form"
)

func oneArg(name string, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s takes one argument, got %d", name, len(args))
	}
	return args[0], nil
}

// numberArg returns argument i as given and as a float. want is the
// argument count the factory expects.
func numberArg(name string, args []any, i, want int) (any, float64, error) {
	if len(args) != want {
		return nil, 0, fmt.Errorf("%s takes %d argument(s), got %d", name, want, len(args))
	}
	f, ok := form.ToFloat(args[i])
	if !ok {
		return nil, 0, fmt.Errorf("%s argument %d must be a number, got %v", name, i+1, args[i])
	}
	return args[i], f, nil
}

func intArg(name string, args []any, i, want int) (int, error) {
	_, f, err := numberArg(name, args, i, want)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%s argument %d must be a non-negative integer, got %v", name, i+1, args[i])
	}
	return int(f), nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// strictEqual is deep equality where numbers compare by value regardless of
// their Go type, so int(3) from code equals int64(3) from a rule string.
func strictEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		fa, _ := form.ToFloat(a)
		fb, _ := form.ToFloat(b)
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// looseEqual also equates a number with its string form ("3" equals 3).
func looseEqual(a, b any) bool {
	if strictEqual(a, b) {
		return true
	}
	if isNumber(a) || isNumber(b) {
		fa, okA := form.ToFloat(a)
		fb, okB := form.ToFloat(b)
		return okA && okB && fa == fb
	}
	return false
}

// valueLength counts slice members, or the characters of the NFC form of
// the value's string rendering.
func valueLength(v any) int {
	if _, isString := v.(string); !isString {
		if items, ok := form.ToSlice(v); ok {
			return len(items)
		}
	}
	return utf8.RuneCountInString(norm.NFC.String(form.ToString(v)))
}
