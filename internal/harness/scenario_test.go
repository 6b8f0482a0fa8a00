package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
tree:
  kind: form
  children:
    - kind: field
      name: age
      rules: "min(18)"
      validate_on: [change, blur]
      debounce_ms: 5
      value: 20
    - kind: choice-control
      name: color
      choices:
        - value: red
          choiced: true
        - value: blue
          disabled: true
steps:
  - op: emit
    path: age
    event: blur
assertions:
  - type: state
    path: age
    expect: VALID
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, KindForm, scenario.Tree.Kind)
	require.Len(t, scenario.Tree.Children, 2)

	age := scenario.Tree.Children[0]
	assert.Equal(t, "min(18)", age.Rules)
	assert.Equal(t, []string{"change", "blur"}, age.ValidateOn)
	assert.Equal(t, 5, age.DebounceMS)
	assert.Equal(t, 20, age.Value)

	color := scenario.Tree.Children[1]
	require.Len(t, color.Choices, 2)
	assert.True(t, color.Choices[0].Choiced)
	assert.True(t, color.Choices[1].Disabled)

	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, Step{Op: OpEmit, Path: "age", Event: "blur"}, scenario.Steps[0])
	assert.Equal(t, Assertion{Type: AssertState, Path: "age", Expect: "VALID"}, scenario.Assertions[0])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "Misspelled key"
tree:
  kind: field
steps:
  - op: validate
assertion:
  - type: state
    expect: VALID
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
tree: {kind: field}
steps: [{op: validate}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
tree: {kind: field}
steps: [{op: validate}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing kind",
			content: `
name: n
description: d
tree: {name: x}
steps: [{op: validate}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "tree: kind is required",
		},
		{
			name: "unknown kind",
			content: `
name: n
description: d
tree: {kind: widget}
steps: [{op: validate}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: `unknown kind "widget"`,
		},
		{
			name: "nested form",
			content: `
name: n
description: d
tree: {kind: group, children: [{kind: form, name: inner}]}
steps: [{op: validate}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "a form can only be the root",
		},
		{
			name: "unnamed group child",
			content: `
name: n
description: d
tree: {kind: form, children: [{kind: field}]}
steps: [{op: validate}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "tree.children[0]: name is required inside a form",
		},
		{
			name: "field with children",
			content: `
name: n
description: d
tree: {kind: field, children: [{kind: field}]}
steps: [{op: validate}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "a field has no children",
		},
		{
			name: "choices on a field",
			content: `
name: n
description: d
tree: {kind: field, choices: [{value: a}]}
steps: [{op: validate}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "only a choice-control has choices",
		},
		{
			name: "focus is not a timing",
			content: `
name: n
description: d
tree: {kind: field, validate_on: [focus]}
steps: [{op: validate}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: `"focus" is not a validation timing`,
		},
		{
			name: "no steps",
			content: `
name: n
description: d
tree: {kind: field}
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "steps list is required",
		},
		{
			name: "unknown op",
			content: `
name: n
description: d
tree: {kind: field}
steps: [{op: submit}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: `steps[0]: unknown op "submit"`,
		},
		{
			name: "emit without event",
			content: `
name: n
description: d
tree: {kind: field}
steps: [{op: emit}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "emit needs a known event",
		},
		{
			name: "choose without value",
			content: `
name: n
description: d
tree: {kind: choice-control}
steps: [{op: choose}]
assertions: [{type: state, expect: VALID}]
`,
			wantErr: "value is required for choose",
		},
		{
			name: "no assertions",
			content: `
name: n
description: d
tree: {kind: field}
steps: [{op: validate}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown assertion",
			content: `
name: n
description: d
tree: {kind: field}
steps: [{op: validate}]
assertions: [{type: pristine, expect: true}]
`,
			wantErr: `unknown assertion type "pristine"`,
		},
		{
			name: "unknown state",
			content: `
name: n
description: d
tree: {kind: field}
steps: [{op: validate}]
assertions: [{type: state, expect: DONE}]
`,
			wantErr: `unknown state "DONE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
