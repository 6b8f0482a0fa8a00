package form

import (
	"errors"
	"fmt"
)

// Error is the error type returned by configuration and tree operations.
//
// Configuration failures are fatal at setup time: they are returned from the
// constructor or attach call that caused them and never deferred into a
// control's validation state.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the name of the node involved, if any.
	Node string

	// Rule is the offending rule segment (rule resolution errors only).
	Rule string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes form errors.
type ErrorCode string

const (
	// ErrCodeRuleResolution indicates a malformed rule or an unknown validator.
	ErrCodeRuleResolution ErrorCode = "RULE_RESOLUTION"

	// ErrCodeChoiceConfig indicates a choice bound to an incompatible control.
	ErrCodeChoiceConfig ErrorCode = "CHOICE_CONFIG"

	// ErrCodeTreeStructure indicates an invalid add/remove on a composite.
	ErrCodeTreeStructure ErrorCode = "TREE_STRUCTURE"

	// ErrCodeInvalidOption indicates an option value the node cannot accept.
	ErrCodeInvalidOption ErrorCode = "INVALID_OPTION"

	// ErrCodeDestroyed indicates an operation on a destroyed node.
	ErrCodeDestroyed ErrorCode = "DESTROYED"

	// ErrCodeValueShape indicates a composite value of the wrong shape.
	ErrCodeValueShape ErrorCode = "VALUE_SHAPE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Rule != "" {
		msg = fmt.Sprintf("%s (rule=%q)", msg, e.Rule)
	}
	if e.Node != "" {
		msg = fmt.Sprintf("%s (node=%s)", msg, e.Node)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewRuleResolutionError creates an Error for a rule that cannot be resolved.
func NewRuleResolutionError(rule, message string, cause error) *Error {
	return &Error{
		Code:    ErrCodeRuleResolution,
		Message: message,
		Rule:    rule,
		Err:     cause,
	}
}

// NewChoiceConfigError creates an Error for an invalid choice binding.
func NewChoiceConfigError(node, message string) *Error {
	return &Error{
		Code:    ErrCodeChoiceConfig,
		Message: message,
		Node:    node,
	}
}

func newTreeError(node, message string) *Error {
	return &Error{
		Code:    ErrCodeTreeStructure,
		Message: message,
		Node:    node,
	}
}

func newDestroyedError(node string) *Error {
	return &Error{
		Code:    ErrCodeDestroyed,
		Message: "node has been destroyed",
		Node:    node,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsRuleResolutionError reports whether err is a rule resolution failure.
func IsRuleResolutionError(err error) bool {
	return hasCode(err, ErrCodeRuleResolution)
}

// IsChoiceConfigError reports whether err is a choice configuration failure.
func IsChoiceConfigError(err error) bool {
	return hasCode(err, ErrCodeChoiceConfig)
}

// IsTreeError reports whether err is a tree structure failure.
func IsTreeError(err error) bool {
	return hasCode(err, ErrCodeTreeStructure)
}

// IsDestroyedError reports whether err was caused by a destroyed node.
func IsDestroyedError(err error) bool {
	return hasCode(err, ErrCodeDestroyed)
}

// PanicError wraps a non-error value recovered from a panicking validator.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("validator panicked: %v", e.Value)
}

// exceptionRecord converts a validator failure into a synthetic error record.
// The record is keyed by the error's Name() when it has one.
func exceptionRecord(err error) ValidationErrors {
	key := "exception"
	var named interface{ Name() string }
	if errors.As(err, &named) && named.Name() != "" {
		key = named.Name()
	}
	return ValidationErrors{key: err}
}
