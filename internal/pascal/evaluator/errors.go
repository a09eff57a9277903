package evaluator

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedExpression is matched by every structural failure.
	ErrMalformedExpression = errors.New("malformed expression")

	// ErrDivisionByZero is an arithmetic fault: the syntax was valid but a
	// right operand of '/' evaluated to zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrOverflow is an arithmetic fault for results outside the int range.
	ErrOverflow = errors.New("integer overflow")
)

// SyntaxError describes why an expression is malformed.
type SyntaxError struct {
	// Input is the complete expression passed to Evaluate.
	Input string
	// Offset is the byte index into Input where the problem was found, or
	// -1 when the whole input is rejected for its length.
	Offset int
	// Reason is a short human readable description.
	Reason string
}

func newSyntaxError(input string, offset int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{
		Input:  input,
		Offset: offset,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed expression %q: %s (offset %d)", e.Input, e.Reason, e.Offset)
}

// Is reports whether target is ErrMalformedExpression.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrMalformedExpression
}

// ArithmeticError is returned when a well-formed expression cannot be
// computed.
type ArithmeticError struct {
	Op     byte
	Left   int
	Right  int
	Offset int
	Err    error
}

func newArithmeticError(op byte, left, right, offset int, err error) *ArithmeticError {
	return &ArithmeticError{Op: op, Left: left, Right: right, Offset: offset, Err: err}
}

// Error implements the error interface
func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("%v: %d %c %d (offset %d)", e.Err, e.Left, e.Op, e.Right, e.Offset)
}

// Unwrap returns ErrDivisionByZero or ErrOverflow.
func (e *ArithmeticError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err marks a structurally invalid expression.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedExpression)
}

// IsArithmetic reports whether err is an arithmetic fault of a well-formed
// expression.
func IsArithmetic(err error) bool {
	return errors.Is(err, ErrDivisionByZero) || errors.Is(err, ErrOverflow)
}
