// Package rules parses compact rule strings such as
//
//	required|minLength(3)|pattern("^[a-z]+$")|between(1, 10)
//
// into segments of a validator name and a literal argument list.
//
// Arguments are evaluated as the elements of a CUE list literal. Only
// concrete data is accepted: numbers, strings, bytes, booleans, null, lists
// and structs. References, comprehensions and incomplete values are
// rejected, so a rule string can never run code.
package rules
