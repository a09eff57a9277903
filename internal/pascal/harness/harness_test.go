package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/msto63/pascal/internal/pascal/evaluator"
)

func evaluate(ctx context.Context, expression string) (int, error) {
	return evaluator.Evaluate(expression)
}

func TestRun_DefaultSuite(t *testing.T) {
	report, err := Run(context.Background(), evaluate, DefaultSuite())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.OK() {
		var buf bytes.Buffer
		report.WriteTo(&buf)
		t.Fatalf("default suite failed:\n%s", buf.String())
	}
	if report.Passed != len(DefaultSuite().Cases) {
		t.Errorf("Passed = %d, want %d", report.Passed, len(DefaultSuite().Cases))
	}
}

func TestReport_WriteTo(t *testing.T) {
	suite := &Suite{
		Name: "lines",
		Cases: []Case{
			WellFormed("((8+7)*2)", 30),
			Malformed("(8)"),
			WellFormed("(1+1)", 3),
			Malformed("(1+1)"),
			WellFormed("(8]", 8),
		},
	}

	report, err := Run(context.Background(), evaluate, suite)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var buf bytes.Buffer
	if _, err := report.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	want := []string{
		"PASS: expression ((8+7)*2) evaluated to 30 (expected 30)",
		"PASS: expression (8) recognised as malformed",
		"FAIL: expression (1+1) evaluated to 2 (expected 3)",
		"FAIL: malformed expression (1+1) evaluated to 2",
		"FAIL: expression (8] wrongly rejected: ",
		"2 passed, 3 failed",
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i, w := range want {
		if !strings.HasPrefix(lines[i], w) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], w)
		}
	}
	if report.OK() {
		t.Error("OK() should be false")
	}
}

func TestRun_Faults(t *testing.T) {
	suite := &Suite{Cases: []Case{
		{Expression: "(5/0)", Fault: FaultDivisionByZero},
		{Expression: "(5/1)", Fault: FaultDivisionByZero},
		{Expression: "(5/0)", Malformed: true},
	}}

	report, err := Run(context.Background(), evaluate, suite)
	if err != nil {
		t.Fatal(err)
	}

	wantPassed := []bool{true, false, false}
	for i, o := range report.Outcomes {
		if o.Passed != wantPassed[i] {
			t.Errorf("case %d: Passed = %v (%s)", i, o.Passed, o.Message)
		}
	}
	if msg := report.Outcomes[0].Message; msg != "expression (5/0) failed with division-by-zero" {
		t.Errorf("message = %q", msg)
	}
}

func TestRun_InvalidSuite(t *testing.T) {
	called := false
	eval := func(ctx context.Context, expression string) (int, error) {
		called = true
		return evaluate(ctx, expression)
	}

	tests := []struct {
		name  string
		suite *Suite
	}{
		{"nil", nil},
		{"empty", &Suite{Name: "empty"}},
		{"no expectation", &Suite{Cases: []Case{{Expression: "(1+2)"}}}},
		{"two expectations", &Suite{Cases: []Case{{Expression: "(1+2)", Malformed: true, Fault: FaultOverflow}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Run(context.Background(), eval, tt.suite)
			if err == nil {
				t.Fatalf("Run() = %+v, want an error", report)
			}
			if called {
				t.Error("Run() evaluated cases of an invalid suite")
			}
		})
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	eval := func(ctx context.Context, expression string) (int, error) {
		calls++
		cancel()
		return 0, ctx.Err()
	}

	report, err := Run(ctx, eval, DefaultSuite())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if calls != 1 || len(report.Outcomes) != 0 {
		t.Errorf("calls = %d, outcomes = %d", calls, len(report.Outcomes))
	}
}

func TestLoadSuite(t *testing.T) {
	suite, err := LoadSuite(filepath.Join("testdata", "cases.yaml"))
	if err != nil {
		t.Fatalf("LoadSuite() error = %v", err)
	}
	if suite.Name != "regression" {
		t.Errorf("Name = %q, want regression", suite.Name)
	}

	report, err := Run(context.Background(), evaluate, suite)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		var buf bytes.Buffer
		report.WriteTo(&buf)
		t.Errorf("regression suite failed:\n%s", buf.String())
	}
}

func TestParseSuite_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "cases: [\n"},
		{"empty", "name: nothing\n"},
		{"no expectation", "cases:\n  - expression: \"(1+2)\"\n"},
		{"two expectations", "cases:\n  - expression: \"(1+2)\"\n    expected: 3\n    malformed: true\n"},
		{"unknown fault", "cases:\n  - expression: \"(1+2)\"\n    fault: underflow\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSuite([]byte(tt.yaml)); err == nil {
				t.Error("ParseSuite() should fail")
			}
		})
	}
}

func TestLoadSuite_NameFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anon.yaml")
	if err := os.WriteFile(path, []byte("cases:\n  - expression: \"8\"\n    expected: 8\n"), 0644); err != nil {
		t.Fatal(err)
	}
	suite, err := LoadSuite(path)
	if err != nil {
		t.Fatal(err)
	}
	if suite.Name != path {
		t.Errorf("Name = %q, want %q", suite.Name, path)
	}
}
