package validators

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/formtree/internal/form"
)

// formats checks string formats. The custom tags cover shapes the
// library has no tag for.
var formats *validator.Validate

var (
	integerRegexp     = regexp.MustCompile(`^-?[0-9]+$`)
	alphaDashRegexp   = regexp.MustCompile(`^[\p{L}\p{M}\p{N}_-]+$`)
	alphaSpacesRegexp = regexp.MustCompile(`^[\p{L}\p{M}\s]+$`)
)

func init() {
	formats = validator.New()
	_ = formats.RegisterValidation("integer", matchTag(integerRegexp))
	_ = formats.RegisterValidation("alphadash", matchTag(alphaDashRegexp))
	_ = formats.RegisterValidation("alphaspaces", matchTag(alphaSpacesRegexp))
}

func matchTag(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Register adds the built-in validators to v. Existing factories with the
// same names are replaced.
func Register(v *form.ValidatorRegistry) error {
	for name, f := range builtins() {
		if err := v.Register(name, f); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

// Default returns a validator registry with the core and built-in
// validators.
func Default() *form.ValidatorRegistry {
	v := form.NewValidatorRegistry()
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

func builtins() map[string]form.Factory {
	return map[string]form.Factory{
		"email":         formatFactory("email", "email"),
		"numeric":       formatFactory("numeric", "number"),
		"integer":       formatFactory("integer", "integer"),
		"alpha":         formatFactory("alpha", "alphaunicode"),
		"alphaNumeric":  formatFactory("alphaNumeric", "alphanumunicode"),
		"alphaDash":     formatFactory("alphaDash", "alphadash"),
		"alphaSpaces":   formatFactory("alphaSpaces", "alphaspaces"),
		"equal":         equalFactory,
		"notEqual":      notEqualFactory,
		"is":            isFactory,
		"isNot":         isNotFactory,
		"min":           boundFactory("min", "min", func(v, b float64) bool { return v >= b }, false),
		"greater":       boundFactory("greater", "min", func(v, b float64) bool { return v > b }, false),
		"max":           boundFactory("max", "max", func(v, b float64) bool { return v <= b }, true),
		"less":          boundFactory("less", "max", func(v, b float64) bool { return v < b }, true),
		"between":       betweenFactory,
		"length":        lengthFactory("length", func(n, want int) bool { return n == want }),
		"minLength":     lengthFactory("minLength", func(n, want int) bool { return n >= want }),
		"maxLength":     lengthFactory("maxLength", func(n, want int) bool { return n <= want }),
		"betweenLength": betweenLengthFactory,
		"pattern":       patternFactory,
		"confirm":       confirmFactory,
		"include":       includeFactory,
		"exclude":       excludeFactory,
		"mimes":         mimesFactory,
		"size":          sizeFactory,
		"dimensions":    dimensionsFactory,
	}
}

// check builds a synchronous validator that skips empty values.
func check(name string, fn func(value any) form.ValidationErrors) *form.Validator {
	return form.Func(name, func(_ context.Context, c form.Control) (form.ValidationErrors, error) {
		value := c.Value()
		if form.IsEmptyValue(value) {
			return nil, nil
		}
		return fn(value), nil
	})
}

// formatFactory checks the string form of the value against a tag. The
// optional argument (a locale in rule strings such as "alpha('ja')") is
// accepted and ignored; the unicode tags cover every script.
func formatFactory(name, tag string) form.Factory {
	return func(args ...any) (*form.Validator, error) {
		if len(args) > 1 {
			return nil, fmt.Errorf("%s takes at most one argument, got %d", name, len(args))
		}
		return check(name, func(value any) form.ValidationErrors {
			if formats.Var(form.ToString(value), tag) != nil {
				return form.ValidationErrors{name: true}
			}
			return nil
		}), nil
	}
}

func equalFactory(args ...any) (*form.Validator, error) {
	compared, err := oneArg("equal", args)
	if err != nil {
		return nil, err
	}
	return check("equal", func(value any) form.ValidationErrors {
		if looseEqual(value, compared) {
			return nil
		}
		return form.ValidationErrors{"equal": map[string]any{"compared": compared, "actual": value}}
	}), nil
}

func notEqualFactory(args ...any) (*form.Validator, error) {
	compared, err := oneArg("notEqual", args)
	if err != nil {
		return nil, err
	}
	return check("notEqual", func(value any) form.ValidationErrors {
		if !looseEqual(value, compared) {
			return nil
		}
		return form.ValidationErrors{"notEqual": map[string]any{"compared": compared, "actual": value}}
	}), nil
}

func isFactory(args ...any) (*form.Validator, error) {
	compared, err := oneArg("is", args)
	if err != nil {
		return nil, err
	}
	return check("is", func(value any) form.ValidationErrors {
		if strictEqual(value, compared) {
			return nil
		}
		return form.ValidationErrors{"is": map[string]any{"compared": compared, "actual": value}}
	}), nil
}

func isNotFactory(args ...any) (*form.Validator, error) {
	compared, err := oneArg("isNot", args)
	if err != nil {
		return nil, err
	}
	return check("isNot", func(value any) form.ValidationErrors {
		if !strictEqual(value, compared) {
			return nil
		}
		return form.ValidationErrors{"isNot": map[string]any{"compared": compared, "actual": value}}
	}), nil
}

// boundFactory compares the numeric value with a bound. Values that are not
// numbers fail lower bounds and pass upper bounds.
func boundFactory(name, key string, ok func(v, bound float64) bool, passNaN bool) form.Factory {
	return func(args ...any) (*form.Validator, error) {
		compared, bound, err := numberArg(name, args, 0, 1)
		if err != nil {
			return nil, err
		}
		return check(name, func(value any) form.ValidationErrors {
			v, isNum := form.ToFloat(value)
			if (!isNum && passNaN) || (isNum && ok(v, bound)) {
				return nil
			}
			return form.ValidationErrors{name: map[string]any{key: compared, "actual": value}}
		}), nil
	}
}

func betweenFactory(args ...any) (*form.Validator, error) {
	minArg, lo, err := numberArg("between", args, 0, 2)
	if err != nil {
		return nil, err
	}
	maxArg, hi, err := numberArg("between", args, 1, 2)
	if err != nil {
		return nil, err
	}
	return check("between", func(value any) form.ValidationErrors {
		if v, ok := form.ToFloat(value); ok && v >= lo && v <= hi {
			return nil
		}
		return form.ValidationErrors{"between": map[string]any{"min": minArg, "max": maxArg, "actual": value}}
	}), nil
}

func lengthFactory(name string, ok func(n, want int) bool) form.Factory {
	return func(args ...any) (*form.Validator, error) {
		want, err := intArg(name, args, 0, 1)
		if err != nil {
			return nil, err
		}
		return check(name, func(value any) form.ValidationErrors {
			n := valueLength(value)
			if ok(n, want) {
				return nil
			}
			return form.ValidationErrors{name: map[string]any{"requiredLength": want, "actualLength": n}}
		}), nil
	}
}

func betweenLengthFactory(args ...any) (*form.Validator, error) {
	lo, err := intArg("betweenLength", args, 0, 2)
	if err != nil {
		return nil, err
	}
	hi, err := intArg("betweenLength", args, 1, 2)
	if err != nil {
		return nil, err
	}
	return check("betweenLength", func(value any) form.ValidationErrors {
		n := valueLength(value)
		if n >= lo && n <= hi {
			return nil
		}
		return form.ValidationErrors{"betweenLength": map[string]any{"minLength": lo, "maxLength": hi, "actualLength": n}}
	}), nil
}

// patternFactory anchors the pattern at both ends unless it already is.
// An empty pattern accepts everything.
func patternFactory(args ...any) (*form.Validator, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("pattern takes one argument, got %d", len(args))
	}
	src, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("pattern argument must be a string, got %T", args[0])
	}
	if src == "" {
		return form.Func("pattern", func(context.Context, form.Control) (form.ValidationErrors, error) {
			return nil, nil
		}), nil
	}
	anchored := src
	if !strings.HasPrefix(anchored, "^") {
		anchored = "^" + anchored
	}
	if !strings.HasSuffix(anchored, "$") {
		anchored += "$"
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	return check("pattern", func(value any) form.ValidationErrors {
		if re.MatchString(form.ToString(value)) {
			return nil
		}
		return form.ValidationErrors{"pattern": map[string]any{"requiredPattern": anchored, "actualValue": value}}
	}), nil
}

// confirmFactory compares the value with the control found at path from the
// parent, and watches that control so edits on either side re-validate.
func confirmFactory(args ...any) (*form.Validator, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("confirm takes one argument, got %d", len(args))
	}
	path, ok := args[0].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("confirm argument must be a path, got %v", args[0])
	}
	return form.Func("confirm", func(_ context.Context, c form.Control) (form.ValidationErrors, error) {
		value := c.Value()
		if form.IsEmptyValue(value) {
			return nil, nil
		}
		parent := c.Parent()
		if parent == nil {
			return nil, nil
		}
		other := parent.Find(path)
		if other == nil {
			return nil, nil
		}
		c.WatchFor(other)
		compared := other.Value()
		if form.IsEmptyValue(compared) || strictEqual(compared, value) {
			return nil, nil
		}
		return form.ValidationErrors{"confirm": map[string]any{"compared": compared, "actualValue": value}}, nil
	}), nil
}

// includeFactory requires every listed item: as a member of a slice value,
// or as the value itself.
func includeFactory(args ...any) (*form.Validator, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("include needs at least one item")
	}
	includes := args
	return check("include", func(value any) form.ValidationErrors {
		for _, item := range includes {
			if !holds(value, item) {
				return form.ValidationErrors{"include": map[string]any{"includes": includes, "actualValue": value}}
			}
		}
		return nil
	}), nil
}

// excludeFactory rejects values holding any listed item.
func excludeFactory(args ...any) (*form.Validator, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("exclude needs at least one item")
	}
	excludes := args
	return check("exclude", func(value any) form.ValidationErrors {
		for _, item := range excludes {
			if holds(value, item) {
				return form.ValidationErrors{"exclude": map[string]any{"excludes": excludes, "actualValue": value}}
			}
		}
		return nil
	}), nil
}

func holds(value, item any) bool {
	if items, ok := form.ToSlice(value); ok {
		for _, v := range items {
			if strictEqual(v, item) {
				return true
			}
		}
		return false
	}
	return strictEqual(value, item)
}
