// ============================================================================
// Pascal - Klammerausdruck-Evaluator
// ============================================================================
//
// Package:     harness
// Description: Case-driven verification of an evaluation function
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

// Package harness runs suites of expression cases against an evaluation
// function and reports one PASS or FAIL line per case.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/msto63/pascal/internal/pascal/evaluator"
)

// Fault names an arithmetic failure a case may expect
type Fault string

const (
	FaultDivisionByZero Fault = "division-by-zero"
	FaultOverflow       Fault = "overflow"
)

func (f Fault) sentinel() error {
	switch f {
	case FaultDivisionByZero:
		return evaluator.ErrDivisionByZero
	case FaultOverflow:
		return evaluator.ErrOverflow
	default:
		return nil
	}
}

// Case is one expression with its expected outcome. Exactly one of
// Expected, Malformed and Fault is set.
type Case struct {
	Expression string `yaml:"expression" json:"expression"`
	Expected   *int   `yaml:"expected,omitempty" json:"expected,omitempty"`
	Malformed  bool   `yaml:"malformed,omitempty" json:"malformed,omitempty"`
	Fault      Fault  `yaml:"fault,omitempty" json:"fault,omitempty"`
	Note       string `yaml:"note,omitempty" json:"note,omitempty"`
}

// WellFormed returns a case expecting value
func WellFormed(expression string, value int) Case {
	return Case{Expression: expression, Expected: &value}
}

// Malformed returns a case expecting rejection
func Malformed(expression string) Case {
	return Case{Expression: expression, Malformed: true}
}

func (c Case) validate() error {
	set := 0
	if c.Expected != nil {
		set++
	}
	if c.Malformed {
		set++
	}
	if c.Fault != "" {
		if c.Fault.sentinel() == nil {
			return fmt.Errorf("case %q: unknown fault %q", c.Expression, c.Fault)
		}
		set++
	}
	if set != 1 {
		return fmt.Errorf("case %q: exactly one of expected, malformed or fault must be set", c.Expression)
	}
	return nil
}

// Suite is a named list of cases
type Suite struct {
	Name  string `yaml:"name" json:"name"`
	Cases []Case `yaml:"cases" json:"cases"`
}

// Validate checks every case of the suite
func (s *Suite) Validate() error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite %q has no cases", s.Name)
	}
	for _, c := range s.Cases {
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultSuite returns the built-in demonstration cases
func DefaultSuite() *Suite {
	return &Suite{
		Name: "default",
		Cases: []Case{
			WellFormed("((8+7)*2)", 30),
			WellFormed("(4-(7-1))", -2),
			WellFormed("8", 8),
			WellFormed("((1+1)*(2*2))", 8),
			WellFormed("((1+9)*(2-5))", -30),
			WellFormed("((0-9)*((1+9)*(2-5)))", 270),

			Malformed(")8+)1(())"),
			Malformed("(8+())"),
			Malformed("-1"),
			Malformed("(   5    -7)"),
			Malformed("108"),
			Malformed("(8)"),
			Malformed("(+8)"),
		},
	}
}

// ParseSuite decodes a YAML suite
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse cases: %w", err)
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	return &suite, nil
}

// LoadSuite reads a YAML case file. A suite without a name is named after
// the file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases: %w", err)
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if suite.Name == "" {
		suite.Name = path
	}
	return suite, nil
}

// EvalFunc evaluates one expression
type EvalFunc func(ctx context.Context, expression string) (int, error)

// Outcome is the result of running one case
type Outcome struct {
	Case    Case   `json:"case"`
	Value   *int   `json:"value,omitempty"`
	Err     error  `json:"-"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Line returns the PASS or FAIL line for the outcome
func (o Outcome) Line() string {
	if o.Passed {
		return "PASS: " + o.Message
	}
	return "FAIL: " + o.Message
}

// Report summarizes a suite run
type Report struct {
	Suite    string        `json:"suite"`
	Outcomes []Outcome     `json:"outcomes"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether every case passed
func (r *Report) OK() bool {
	return r.Failed == 0
}

// WriteTo writes one line per case followed by a summary line
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, o := range r.Outcomes {
		n, err := fmt.Fprintln(w, o.Line())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := fmt.Fprintf(w, "%d passed, %d failed\n", r.Passed, r.Failed)
	total += int64(n)
	return total, err
}

// Run evaluates every case of suite in order. It stops early only when ctx
// is done. A suite that fails Validate is rejected before any evaluation.
func Run(ctx context.Context, eval EvalFunc, suite *Suite) (*Report, error) {
	if suite == nil {
		return nil, errors.New("no suite")
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{
		Suite:    suite.Name,
		Outcomes: make([]Outcome, 0, len(suite.Cases)),
	}

	for _, c := range suite.Cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		value, err := eval(ctx, c.Expression)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return report, ctxErr
		}

		o := judge(c, value, err)
		report.Outcomes = append(report.Outcomes, o)
		if o.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

func judge(c Case, value int, err error) Outcome {
	o := Outcome{Case: c, Err: err}
	if err == nil {
		o.Value = &value
	}

	switch {
	case c.Malformed:
		if errors.Is(err, evaluator.ErrMalformedExpression) {
			o.Passed = true
			o.Message = fmt.Sprintf("expression %s recognised as malformed", c.Expression)
		} else if err == nil {
			o.Message = fmt.Sprintf("malformed expression %s evaluated to %d", c.Expression, value)
		} else {
			o.Message = fmt.Sprintf("malformed expression %s failed: %v", c.Expression, err)
		}

	case c.Fault != "":
		if errors.Is(err, c.Fault.sentinel()) {
			o.Passed = true
			o.Message = fmt.Sprintf("expression %s failed with %s", c.Expression, c.Fault)
		} else if err == nil {
			o.Message = fmt.Sprintf("expression %s evaluated to %d (expected %s)", c.Expression, value, c.Fault)
		} else {
			o.Message = fmt.Sprintf("expression %s failed: %v (expected %s)", c.Expression, err, c.Fault)
		}

	default:
		want := *c.Expected
		switch {
		case err != nil:
			o.Message = fmt.Sprintf("expression %s wrongly rejected: %v", c.Expression, err)
		default:
			o.Passed = value == want
			o.Message = fmt.Sprintf("expression %s evaluated to %d (expected %d)", c.Expression, value, want)
		}
	}

	return o
}
