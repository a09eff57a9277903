// ============================================================================
// Pascal - Klammerausdruck-Evaluator
// ============================================================================
//
// Package:     evaluator
// Description: Recursive evaluator for fully bracketed single-digit arithmetic
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

// Package evaluator validates and evaluates fully bracketed arithmetic
// expressions over single-digit operands in a single recursive pass.
//
// Accepted grammar:
//
//	Expr  := Digit | Open Expr Op Expr Close
//	Digit := '0'..'9'
//	Op    := '+' | '-' | '*' | '/'
//
// Open/Close are one of (), {} or []. A top-level bare digit is valid.
package evaluator

// DefaultMaxDepth bounds the bracket nesting accepted by an Evaluator
// created without WithMaxDepth.
const DefaultMaxDepth = 64

// minCompoundLength is the length of the shortest compound expression, "(1+2)".
const minCompoundLength = 5

// Evaluator evaluates expressions. The zero value is not usable, create one
// with New. An Evaluator holds only immutable options and may be shared
// between goroutines.
type Evaluator struct {
	strict   bool
	maxDepth int
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithStrictBrackets controls whether a closing bracket must belong to the
// same family as its opener. Strict matching is the default; lenient
// matching accepts any closer for any opener, so "(8+1]" evaluates to 9.
func WithStrictBrackets(strict bool) Option {
	return func(e *Evaluator) {
		e.strict = strict
	}
}

// WithMaxDepth sets the maximum bracket nesting depth. Values below 1 fall
// back to DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(e *Evaluator) {
		if depth < 1 {
			depth = DefaultMaxDepth
		}
		e.maxDepth = depth
	}
}

// New creates an Evaluator with strict bracket matching and DefaultMaxDepth
// unless overridden by opts.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		strict:   true,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strict reports whether bracket families must match.
func (e *Evaluator) Strict() bool {
	return e.strict
}

// MaxDepth returns the maximum accepted nesting depth.
func (e *Evaluator) MaxDepth() int {
	return e.maxDepth
}

var defaultEvaluator = New()

// Evaluate evaluates expression with the default options.
func Evaluate(expression string) (int, error) {
	return defaultEvaluator.Evaluate(expression)
}

// Evaluate validates expression and computes its value.
//
// Structural problems are reported as *SyntaxError, which matches
// ErrMalformedExpression under errors.Is. Division by zero and results that
// do not fit in an int are reported as *ArithmeticError wrapping
// ErrDivisionByZero or ErrOverflow.
func (e *Evaluator) Evaluate(expression string) (int, error) {
	r := run{evaluator: e, input: expression}
	return r.eval(0, len(expression), 0)
}

// run carries the top-level input through one evaluation so that errors can
// report offsets relative to it.
type run struct {
	evaluator *Evaluator
	input     string
}

// eval evaluates input[start:end]. depth counts the compound expressions
// enclosing it.
func (r *run) eval(start, end, depth int) (int, error) {
	s := r.input[start:end]

	// Length failures of the whole input have no single offending byte.
	lengthOffset := start
	if start == 0 && end == len(r.input) {
		lengthOffset = -1
	}

	switch n := len(s); {
	case n == 0:
		return 0, r.malformed(lengthOffset, "missing operand")
	case n == 1:
		if !isDigit(s[0]) {
			return 0, r.malformed(start, "unexpected %s, want a digit", quoteByte(s[0]))
		}
		return digitValue(s[0]), nil
	case n < minCompoundLength:
		return 0, r.malformed(lengthOffset, "%d characters cannot form an expression", n)
	}
	if depth >= r.evaluator.maxDepth {
		return 0, r.malformed(start, "nesting too deep (limit %d)", r.evaluator.maxDepth)
	}

	first, last := s[0], s[len(s)-1]
	if !isOpening(first) {
		if isDigit(first) {
			return 0, r.malformed(start, "operand is not a single digit")
		}
		return 0, r.malformed(start, "unexpected %s at start of expression", quoteByte(first))
	}
	if !isClosing(last) {
		return 0, r.malformed(end-1, "unexpected %s, want a closing bracket", quoteByte(last))
	}
	if r.evaluator.strict && closerFor(first) != last {
		return 0, r.malformed(end-1, "%s does not close %s", quoteByte(last), quoteByte(first))
	}

	split, err := r.findSplit(start, end)
	if err != nil {
		return 0, err
	}

	left, err := r.eval(start+1, split, depth+1)
	if err != nil {
		return 0, err
	}
	right, err := r.eval(split+1, end-1, depth+1)
	if err != nil {
		return 0, err
	}

	return apply(r.input[split], left, right, split)
}

// findSplit scans the interior of input[start:end] for the first operator
// at bracket depth zero that is not the very first interior character.
func (r *run) findSplit(start, end int) (int, error) {
	// Expected closers of the brackets opened so far. In lenient mode only
	// the length matters.
	var pending []byte

	for i := start + 1; i < end-1; i++ {
		c := r.input[i]
		switch {
		case isOpening(c):
			pending = append(pending, closerFor(c))
		case isClosing(c):
			if len(pending) == 0 {
				return 0, r.malformed(i, "unmatched %s", quoteByte(c))
			}
			want := pending[len(pending)-1]
			if r.evaluator.strict && c != want {
				return 0, r.malformed(i, "%s does not close %s", quoteByte(c), quoteByte(openerFor(want)))
			}
			pending = pending[:len(pending)-1]
		case isOperator(c) && len(pending) == 0 && i > start+1:
			return i, nil
		}
	}

	return 0, r.malformed(start, "no operator at top level")
}

func (r *run) malformed(offset int, format string, args ...interface{}) error {
	return newSyntaxError(r.input, offset, format, args...)
}
