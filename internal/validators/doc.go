// Package validators provides the built-in validator library.
//
// Register adds every built-in factory to a form.ValidatorRegistry; Default
// returns a registry that already carries them. Each factory receives the
// arguments parsed from a rule segment, so "between(1, 10)" calls the
// between factory with int64(1) and int64(10).
//
// Every validator except required lets empty values pass, so optional
// controls stay valid until something is entered.
//
// ERROR RECORDS
//
// Each validator reports a single-key record named after itself:
//
//	{"min": {"min": 3, "actual": 1}}
//	{"length": {"requiredLength": 4, "actualLength": 2}}
//	{"pattern": {"requiredPattern": "^[a-z]+$", "actualValue": "A1"}}
//
// File validators (mimes, size, dimensions) list the offending files with
// their index in the control value.
package validators
