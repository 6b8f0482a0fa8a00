package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formtree/internal/form"
)

func setupRegistry(t *testing.T) *form.Registry {
	t.Helper()
	r := form.NewRegistry(form.WithSessionGenerator(form.NewFixedGenerator("snapshot-test")))
	t.Cleanup(r.ResetAll)
	return r
}

func TestTake_Tree(t *testing.T) {
	r := setupRegistry(t)
	root, err := form.NewForm(r, form.WithName("signup"))
	require.NoError(t, err)
	email, err := form.NewField(r, form.WithName("email"), form.WithParent(root), form.WithRequired())
	require.NoError(t, err)
	tags, err := form.NewArray(r, form.WithName("tags"), form.WithParent(root))
	require.NoError(t, err)
	_, err = form.NewField(r, form.WithParent(tags), form.WithValue("go"))
	require.NoError(t, err)
	color, err := form.NewChoiceControl(r, form.WithName("color"), form.WithParent(root))
	require.NoError(t, err)
	_, err = form.NewChoice(r, form.WithName("red"), form.WithControl(color), form.WithValue("red"), form.WithChoiced())
	require.NoError(t, err)
	_, err = form.NewChoice(r, form.WithName("blue"), form.WithControl(color), form.WithValue("blue"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = email.ValidateSelf(ctx)
	require.NoError(t, err)

	snap := Take(root)
	assert.Equal(t, "form", snap.Kind)
	assert.Equal(t, "signup", snap.Name)
	require.Len(t, snap.Children, 3)

	e := snap.Find("email")
	require.NotNil(t, e)
	assert.True(t, e.Required)
	assert.Equal(t, []string{"required"}, e.Rules)
	assert.Equal(t, form.ControlErrors{{"required": true}}, e.Errors)
	assert.Equal(t, form.StateInvalid, e.State)

	item := snap.Find("tags[0]")
	require.NotNil(t, item)
	assert.Equal(t, "go", item.Value)

	c := snap.Find("color")
	require.NotNil(t, c)
	assert.Equal(t, "choice-control", c.Kind)
	assert.Equal(t, "red", c.Value)
	require.Len(t, c.Choices, 2)
	assert.True(t, c.Choices[0].Choiced)
	assert.False(t, c.Choices[1].Choiced)

	assert.Nil(t, snap.Find("missing"))
}

func TestTake_Watching(t *testing.T) {
	r := setupRegistry(t)
	a, err := form.NewField(r, form.WithName("a"))
	require.NoError(t, err)
	b, err := form.NewField(r, form.WithName("b"))
	require.NoError(t, err)
	require.True(t, b.WatchFor(a))

	assert.Equal(t, []int64{a.ID()}, Take(b).Watching)
	assert.Empty(t, Take(a).Watching)
}

func TestMarshal_Field(t *testing.T) {
	r := setupRegistry(t)
	f, err := form.NewField(r, form.WithName("age"), form.WithValue(3))
	require.NoError(t, err)

	out, err := Marshal(Take(f))
	require.NoError(t, err)
	assert.Equal(t,
		`{"disabled":false,"id":1,"kind":"field","name":"age","pristine":true,"readonly":false,"state":"VALID","touched":false,"validateOn":["change"],"value":3}`+"\n",
		string(out))
}

func TestMarshal_Canonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, "null"},
		{"sorted keys", map[string]any{"b": 1, "a": 2, "c": map[string]any{"z": true, "y": false}}, `{"a":2,"b":1,"c":{"y":false,"z":true}}`},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"nfc", "e\u0301", "\"\u00e9\""},
		{"float", 1.5, "1.5"},
		{"integral float", 2.0, "2"},
		{"large int", int64(9007199254740993), "9007199254740993"},
		{"array", []any{1, "x", nil}, `[1,"x",null]`},
		{"struct tags", struct {
			A int `json:"a"`
			B int `json:"-"`
		}{A: 1, B: 2}, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", string(out))
		})
	}
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 sorts after U+FF61 in UTF-8 but before it in UTF-16.
	out, err := Marshal(map[string]any{"\U0001F600": 1, "\uFF61": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uFF61\":2}\n", string(out))
}

func TestMarshal_Unsupported(t *testing.T) {
	_, err := Marshal(map[string]any{"f": func() {}})
	assert.Error(t, err)
}
