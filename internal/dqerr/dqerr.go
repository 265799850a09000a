// Package dqerr holds the error taxonomy shared by the data-quality packages.
//
// Each error type matches a sentinel through errors.Is so callers can branch
// on the class without type assertions:
//
//	if errors.Is(err, dqerr.ErrUnknownFunction) { ... }
//
// UnknownFunctionError and EvaluationError also match ErrStructural, the
// class of failures that mean a rule set cannot be applied to a dataset at
// all. A row that merely fails a check is never an error.
package dqerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownFunction  = errors.New("unknown check function")
	ErrMalformedRuleSet = errors.New("malformed rule set")
	ErrNameCollision    = errors.New("rule name collision")
	ErrEvaluation       = errors.New("rule evaluation failed")
	ErrStructural       = errors.New("structural rule failure")
)

// InvalidInputError reports an absent or malformed dataset or rule set.
type InvalidInputError struct {
	Op     string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Op, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput is shorthand for &InvalidInputError{Op: op, Reason: reason}.
func InvalidInput(op, reason string) error {
	return &InvalidInputError{Op: op, Reason: reason}
}

// UnknownFunctionError reports a rule whose function is not registered.
type UnknownFunctionError struct {
	Rule     string
	Function string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("rule %q: unknown check function %q", e.Rule, e.Function)
}

func (e *UnknownFunctionError) Is(target error) bool {
	return target == ErrUnknownFunction || target == ErrStructural
}

// MalformedRuleSetError reports an interchange document that cannot be
// parsed into rule entries. Line is 0 when unknown.
type MalformedRuleSetError struct {
	Line   int
	Reason string
	Err    error
}

func (e *MalformedRuleSetError) Error() string {
	var b strings.Builder
	b.WriteString("malformed rule set")
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedRuleSetError) Is(target error) bool { return target == ErrMalformedRuleSet }
func (e *MalformedRuleSetError) Unwrap() error { return e.Err }

// NameCollisionError reports two rules sharing a name.
type NameCollisionError struct {
	Name string
	// Sources describes the producers of the colliding rules, e.g. column names.
	Sources []string
}

func (e *NameCollisionError) Error() string {
	if len(e.Sources) == 0 {
		return fmt.Sprintf("rule name %q generated more than once", e.Name)
	}
	return fmt.Sprintf("rule name %q generated more than once (from %s)", e.Name, strings.Join(e.Sources, ", "))
}

func (e *NameCollisionError) Is(target error) bool { return target == ErrNameCollision }

// EvaluationError reports a rule that could not be evaluated against a
// dataset, e.g. because it references a missing column or its predicate
// failed. It wraps the underlying cause.
type EvaluationError struct {
	Rule     string
	Function string
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %q (%s): %v", e.Rule, e.Function, e.Err)
}

func (e *EvaluationError) Is(target error) bool {
	return target == ErrEvaluation || target == ErrStructural
}

func (e *EvaluationError) Unwrap() error { return e.Err }
