package validators

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formtree/internal/form"
)

type fakeFile struct {
	name   string
	typ    string
	size   int64
	width  int
	height int
}

type fakeInspector struct{}

func (fakeInspector) DescribeFile(v any) (form.FileInfo, error) {
	f, ok := v.(fakeFile)
	if !ok {
		return form.FileInfo{}, form.ErrNotFile
	}
	return form.FileInfo{Name: f.name, Size: f.size, Type: f.typ}, nil
}

func (i fakeInspector) DescribeImageFile(_ context.Context, v any) (form.ImageFileInfo, error) {
	info, err := i.DescribeFile(v)
	if err != nil {
		return form.ImageFileInfo{}, err
	}
	f := v.(fakeFile)
	if f.width == 0 || f.height == 0 {
		return form.ImageFileInfo{}, errors.New("not an image")
	}
	return form.ImageFileInfo{
		FileInfo: info,
		Width:    f.width,
		Height:   f.height,
		Ratio:    float64(f.width) / float64(f.height),
	}, nil
}

var (
	png  = fakeFile{name: "a.png", typ: "image/png", size: 512, width: 200, height: 100}
	tall = fakeFile{name: "b.jpg", typ: "image/jpeg", size: 2048, width: 50, height: 200}
	pdf  = fakeFile{name: "c.pdf", typ: "application/pdf", size: 4096}
)

func infoOf(f fakeFile) form.FileInfo {
	return form.FileInfo{Name: f.name, Size: f.size, Type: f.typ}
}

func TestMimes(t *testing.T) {
	r := setupRegistry(t, form.WithFileInspector(fakeInspector{}))
	multiple := form.WithMultiple(true)

	assert.Nil(t, runRule(t, r, `mimes("image/*")`, []any{png, tall}, multiple))
	assert.Nil(t, runRule(t, r, `mimes("image/png", "application/pdf")`, []any{png, pdf}, multiple))
	assert.Nil(t, runRule(t, r, `mimes("image/*")`, nil, multiple))
	assert.Nil(t, runRule(t, r, `mimes("image/*")`, []any{"not a file"}, multiple))

	got := runRule(t, r, `mimes("IMAGE/*")`, []any{png, pdf}, multiple)
	assert.Equal(t, form.ValidationErrors{"mimes": map[string]any{
		"requiredMimes": []string{"IMAGE/*"},
		"files":         []FileError{{File: infoOf(pdf), Index: 1}},
	}}, got)
}

func TestSize(t *testing.T) {
	r := setupRegistry(t, form.WithFileInspector(fakeInspector{}))

	assert.Nil(t, runRule(t, r, `size("4kb")`, []any{png, tall, pdf}, form.WithMultiple(true)))

	got := runRule(t, r, `size("1kb")`, []any{png, tall}, form.WithMultiple(true))
	assert.Equal(t, form.ValidationErrors{"size": map[string]any{
		"maxSize": "1kb",
		"files":   []FileError{{File: infoOf(tall), Index: 1}},
	}}, got)

	// A single file value works without multiple mode.
	got = runRule(t, r, `size("1kb")`, pdf)
	assert.Equal(t, form.ValidationErrors{"size": map[string]any{
		"maxSize": "1kb",
		"files":   []FileError{{File: infoOf(pdf), Index: 0}},
	}}, got)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in    any
		bytes float64
		canon string
	}{
		{int64(2), 2 << 20, "2mb"},
		{"2", 2 << 20, "2mb"},
		{"1.5GB", 1.5 * (1 << 30), "1.5gb"},
		{"100b", 100, "100b"},
		{" 10 kb ", 10 << 10, "10kb"},
		{"1tb", 1 << 40, "1tb"},
	}
	for _, tt := range tests {
		n, canon, err := ParseSize(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.bytes, n, "%v", tt.in)
		assert.Equal(t, tt.canon, canon, "%v", tt.in)
	}

	for _, bad := range []any{"abc", "10xb", true, "-1mb"} {
		_, _, err := ParseSize(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestDimensions(t *testing.T) {
	r := setupRegistry(t, form.WithFileInspector(fakeInspector{}))
	rule := `dimensions({width: ">=100", ratio: ["<=2", ">=0.5"]})`

	assert.Nil(t, runRule(t, r, rule, []any{png}, form.WithMultiple(true)))

	got := runRule(t, r, rule, []any{png, tall}, form.WithMultiple(true))
	widthConds := []Condition{{Op: ">=", Amount: 100}}
	ratioConds := []Condition{{Op: "<=", Amount: 2}, {Op: ">=", Amount: 0.5}}
	assert.Equal(t, form.ValidationErrors{"dimensions": map[string]any{
		"conditions": map[string][]Condition{"width": widthConds, "ratio": ratioConds},
		"files": []FileError{{
			File: map[string]DimensionError{
				"width": {Actual: 50, Conditions: widthConds},
				"ratio": {Actual: 0.25, Conditions: ratioConds},
			},
			Index: 1,
		}},
	}}, got)
}

func TestDimensions_IsAsync(t *testing.T) {
	vs, err := Default().Resolve(`dimensions({width: 10})`)
	require.NoError(t, err)
	assert.True(t, vs[0].Async)
}

func TestDimensions_InspectionErrorIsReturned(t *testing.T) {
	r := setupRegistry(t, form.WithFileInspector(fakeInspector{}))
	f, err := form.NewField(r, form.WithMultiple(true), form.WithValue([]any{png, pdf}))
	require.NoError(t, err)
	vs, err := r.Validators().Resolve(`dimensions({width: ">=1"})`)
	require.NoError(t, err)

	_, err = vs[0].Fn(context.Background(), f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
}

func TestConditions(t *testing.T) {
	tests := []struct {
		spec  any
		value float64
		want  bool
	}{
		{">=100", 100, true},
		{">=100", 99, false},
		{">100", 100, false},
		{"<=2", 2, true},
		{"<2", 2, false},
		{"<>3", 3, false},
		{"!=3", 4, true},
		{"=3", 3, true},
		{"3", 3, true},
		{int64(3), 4, false},
		{[]any{">=1", "<=2"}, 1.5, true},
		{[]any{">=1", "<=2"}, 3, false},
	}
	for _, tt := range tests {
		conds, err := ParseConditions(tt.spec)
		require.NoError(t, err, "%v", tt.spec)
		assert.Equal(t, tt.want, MatchAll(tt.value, conds), "%v against %v", tt.spec, tt.value)
	}

	for _, bad := range []any{"wide", ">=", []any{}, true, "=>3"} {
		_, err := ParseConditions(bad)
		assert.Error(t, err, "%v", bad)
	}

	c, err := ParseCondition(">=0.5")
	require.NoError(t, err)
	assert.Equal(t, ">=0.5", c.String())
}
