// Package harness runs conformance scenarios against form trees.
//
// A scenario builds a control tree from a fixture, applies a list of
// interactions, and checks assertions against the final state. The trace
// of each run is compared with a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: signup
//	description: "What this scenario validates"
//	tree:
//	  kind: form
//	  children:
//	    - kind: field
//	      name: email
//	      rules: email
//	      required: true
//	steps:
//	  - op: set
//	    path: email
//	    value: nope
//	  - op: emit
//	    path: email
//	    event: change
//	assertions:
//	  - type: errors
//	    path: email
//	    expect: [{email: true}]
//
// Unknown fields are rejected.
//
// # Steps
//
//   - set: assigns value to the control at path
//   - emit: forwards event to the control at path
//   - validate: validates the control at path and waits for the result
//   - validate_all: validates every control under the composite at path
//   - choose, unchoose: selects or deselects the choice whose payload is value
//   - clear_errors: clears the errors of the control at path
//   - reset: restores the initial value of the control at path
//
// # Assertion Types
//
//   - errors: the error list of the control
//   - state: the validation state, aggregated for composites
//   - value: the value of the control, disabled members included
//   - all_errors: the path-keyed errors under a composite
//   - choiced: the payloads of the selected choices
//
// Expected values compare by canonical JSON, so 3 matches 3.0.
//
// # Deterministic Testing
//
// Every scenario runs in a fresh registry with a fixed session token (the
// scenario name unless session is set). After each step the harness waits
// out the longest debounce in the tree and then every run in flight, so the
// trace records settled state.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/signup.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
