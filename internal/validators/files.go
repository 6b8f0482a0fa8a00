package validators

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/formtree/internal/form"
)

// FileError names an offending file by its index in the control value.
type FileError struct {
	File  any `json:"file"`
	Index int `json:"index"`
}

// mimesFactory accepts files whose type ends in one of the given MIME
// types. "*" matches any run of characters, so "image/*" accepts every
// image type.
func mimesFactory(args ...any) (*form.Validator, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("mimes needs at least one type")
	}
	mimes := make([]string, len(args))
	alts := make([]string, len(args))
	for i, a := range args {
		s, ok := a.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("mimes argument %d must be a MIME type, got %v", i+1, a)
		}
		mimes[i] = s
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(s), `\*`, ".+")
	}
	re, err := regexp.Compile(`(?i)(?:` + strings.Join(alts, "|") + `)$`)
	if err != nil {
		return nil, fmt.Errorf("mimes: %w", err)
	}
	return form.Func("mimes", func(_ context.Context, c form.Control) (form.ValidationErrors, error) {
		var bad []FileError
		for i, info := range c.FileInfos() {
			if !re.MatchString(info.Type) {
				bad = append(bad, FileError{File: info, Index: i})
			}
		}
		if len(bad) == 0 {
			return nil, nil
		}
		return form.ValidationErrors{"mimes": map[string]any{"requiredMimes": mimes, "files": bad}}, nil
	}), nil
}

var sizeRegexp = regexp.MustCompile(`(?i)^\s*([0-9]*\.?[0-9]+)\s*([kmgt]?b)?\s*$`)

var sizeUnits = map[string]float64{
	"b":  1,
	"kb": 1 << 10,
	"mb": 1 << 20,
	"gb": 1 << 30,
	"tb": 1 << 40,
}

// ParseSize reads a size limit such as 500, "2mb" or "1.5GB". A bare number
// counts megabytes. It returns the limit in bytes and its canonical form.
func ParseSize(v any) (float64, string, error) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	default:
		f, ok := form.ToFloat(v)
		if !ok {
			return 0, "", fmt.Errorf("size must be a number or a string, got %T", v)
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	m := sizeRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, "", fmt.Errorf("invalid size %q", s)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid size %q: %w", s, err)
	}
	unit := strings.ToLower(m[2])
	if unit == "" {
		unit = "mb"
	}
	return n * sizeUnits[unit], strconv.FormatFloat(n, 'f', -1, 64) + unit, nil
}

func sizeFactory(args ...any) (*form.Validator, error) {
	arg, err := oneArg("size", args)
	if err != nil {
		return nil, err
	}
	limit, maxSize, err := ParseSize(arg)
	if err != nil {
		return nil, err
	}
	return form.Func("size", func(_ context.Context, c form.Control) (form.ValidationErrors, error) {
		var bad []FileError
		for i, info := range c.FileInfos() {
			if float64(info.Size) > limit {
				bad = append(bad, FileError{File: info, Index: i})
			}
		}
		if len(bad) == 0 {
			return nil, nil
		}
		return form.ValidationErrors{"size": map[string]any{"maxSize": maxSize, "files": bad}}, nil
	}), nil
}

// dimensionKeys is the order image dimensions are checked in.
var dimensionKeys = []string{"width", "height", "ratio"}

// DimensionError reports one dimension that failed its conditions.
type DimensionError struct {
	Actual     float64     `json:"actual"`
	Conditions []Condition `json:"conditions"`
}

// dimensionsFactory checks image sizes against conditions given as a
// struct: dimensions({width: ">=100", ratio: ["<=2", ">=0.5"]}).
func dimensionsFactory(args ...any) (*form.Validator, error) {
	arg, err := oneArg("dimensions", args)
	if err != nil {
		return nil, err
	}
	raw, ok := arg.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("dimensions argument must be a struct, got %T", arg)
	}
	conditions := make(map[string][]Condition, len(raw))
	for key, spec := range raw {
		if !containsKey(dimensionKeys, key) {
			return nil, fmt.Errorf("dimensions: unknown key %q", key)
		}
		conds, err := ParseConditions(spec)
		if err != nil {
			return nil, fmt.Errorf("dimensions %s: %w", key, err)
		}
		conditions[key] = conds
	}
	return form.AsyncFunc("dimensions", func(ctx context.Context, c form.Control) (form.ValidationErrors, error) {
		infos, err := c.ImageFileInfos(ctx)
		if err != nil {
			return nil, err
		}
		var bad []FileError
		for i, info := range infos {
			actual := map[string]float64{
				"width":  float64(info.Width),
				"height": float64(info.Height),
				"ratio":  info.Ratio,
			}
			var row map[string]DimensionError
			for _, key := range dimensionKeys {
				conds, ok := conditions[key]
				if !ok || MatchAll(actual[key], conds) {
					continue
				}
				if row == nil {
					row = make(map[string]DimensionError)
				}
				row[key] = DimensionError{Actual: actual[key], Conditions: conds}
			}
			if row != nil {
				bad = append(bad, FileError{File: row, Index: i})
			}
		}
		if len(bad) == 0 {
			return nil, nil
		}
		return form.ValidationErrors{"dimensions": map[string]any{"conditions": conditions, "files": bad}}, nil
	}), nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
