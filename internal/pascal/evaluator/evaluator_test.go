package evaluator

import (
	"errors"
	"strings"
	"testing"
)

func TestEvaluate_SingleDigits(t *testing.T) {
	for d := 0; d <= 9; d++ {
		input := string(rune('0' + d))
		got, err := Evaluate(input)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", input, err)
		}
		if got != d {
			t.Errorf("Evaluate(%q) = %d, want %d", input, got, d)
		}
	}
}

func TestEvaluate_WellFormed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"digit", "8", 8},
		{"sum times two", "((8+7)*2)", 30},
		{"nested right", "(4-(7-1))", -2},
		{"two products", "((1+1)*(2*2))", 8},
		{"negative product", "((1+9)*(2-5))", -30},
		{"negative times negative", "((0-9)*((1+9)*(2-5)))", 270},
		{"simple division", "(8/2)", 4},
		{"division truncates", "(7/2)", 3},
		{"negative division truncates toward zero", "((0-7)/2)", -3},
		{"curly braces", "{1+2}", 3},
		{"square brackets", "[9*9]", 81},
		{"mixed families", "{(1+2)*[3-4]}", -3},
		{"zero", "(0*9)", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.input)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEvaluate_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"leading closer", ")8+)1(())"},
		{"empty right operand", "(8+())"},
		{"unary minus", "-1"},
		{"embedded spaces", "(   5    -7)"},
		{"multi digit", "108"},
		{"wrapped operand", "(8)"},
		{"leading operator", "(+8)"},
		{"two chars", "(8"},
		{"four chars", "(1+2"},
		{"letter", "x"},
		{"operator only", "+"},
		{"missing outer brackets", "1+2+3"},
		{"long number", "12345"},
		{"missing operator", "((1+2)(3+4))"},
		{"trailing garbage", "(1+2)3"},
		{"missing closer", "((1+2)*3"},
		{"excess closer", "(1+2))"},
		{"unmatched inside", "(1)+2)"},
		{"unclosed nesting", "((1+2+3)"},
		{"two operators", "(1+*2)"},
		{"operator at end", "(1+2+)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.input)
			if err == nil {
				t.Fatalf("Evaluate(%q) = %d, want malformed error", tt.input, got)
			}
			if !errors.Is(err, ErrMalformedExpression) {
				t.Errorf("Evaluate(%q) error = %v, want ErrMalformedExpression", tt.input, err)
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("Evaluate(%q) error type = %T, want *SyntaxError", tt.input, err)
			}
			if syntaxErr.Input != tt.input {
				t.Errorf("SyntaxError.Input = %q, want %q", syntaxErr.Input, tt.input)
			}
			if syntaxErr.Reason == "" {
				t.Error("SyntaxError.Reason should not be empty")
			}
		})
	}
}

func TestEvaluate_ShortInputsAlwaysMalformed(t *testing.T) {
	inputs := []string{"", "(8", "88", "()", "(1)", "1+2", "[9]", "(1+2", "{{}}", "9999"}
	for _, input := range inputs {
		if _, err := Evaluate(input); !IsMalformed(err) {
			t.Errorf("Evaluate(%q) error = %v, want malformed", input, err)
		}
	}
}

func TestEvaluate_ErrorOffsets(t *testing.T) {
	tests := []struct {
		input  string
		offset int
	}{
		{")8+)1(())", 0},
		{"(1)+2)", 2},
		{"(1+2))", 3},
		{"((1+2]*3)", 5},
		{"(8+1]", 4},
		{"", -1},
		{"(8)", -1},
		{"108", -1},
		{"((8)+1)", 1},
		{"(1+)", -1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Evaluate(tt.input)
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("Evaluate(%q) error = %v, want *SyntaxError", tt.input, err)
			}
			if syntaxErr.Offset != tt.offset {
				t.Errorf("Offset = %d, want %d (%s)", syntaxErr.Offset, tt.offset, syntaxErr.Reason)
			}
		})
	}
}

func TestEvaluate_ReasonFormatsBytes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"x", "unexpected 'x', want a digit"},
		{"\xff", "unexpected 0xff, want a digit"},
		{"(\xff+1)", "unexpected 0xff, want a digit"},
		{"(1+2)\x00", "unexpected 0x0, want a closing bracket"},
		{"(8+1]", "']' does not close '('"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, err := Evaluate(tt.input)
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("Evaluate(%q) error = %v, want *SyntaxError", tt.input, err)
			}
			if syntaxErr.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", syntaxErr.Reason, tt.want)
			}
		})
	}
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	inputs := []string{"(8/0)", "(8/(1-1))", "((1+1)/(0*5))"}
	for _, input := range inputs {
		_, err := Evaluate(input)
		if !errors.Is(err, ErrDivisionByZero) {
			t.Errorf("Evaluate(%q) error = %v, want ErrDivisionByZero", input, err)
		}
		if IsMalformed(err) {
			t.Errorf("Evaluate(%q) division by zero must not be reported as malformed", input)
		}
		if !IsArithmetic(err) {
			t.Errorf("IsArithmetic(%v) = false, want true", err)
		}
	}
}

func TestEvaluate_Overflow(t *testing.T) {
	// 9^(2^k): k=4 still fits, k=5 does not.
	square := func(k int) string {
		expr := "9"
		for i := 0; i < k; i++ {
			expr = "(" + expr + "*" + expr + ")"
		}
		return expr
	}

	if _, err := Evaluate(square(4)); err != nil {
		t.Fatalf("Evaluate(9^16) error = %v", err)
	}

	_, err := Evaluate(square(5))
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("Evaluate(9^32) error = %v, want ErrOverflow", err)
	}
	var arithErr *ArithmeticError
	if !errors.As(err, &arithErr) {
		t.Fatalf("error type = %T, want *ArithmeticError", err)
	}
	if arithErr.Op != '*' {
		t.Errorf("ArithmeticError.Op = %q, want '*'", arithErr.Op)
	}
}

func TestEvaluate_BracketLeniency(t *testing.T) {
	tests := []struct {
		input   string
		strict  bool
		want    int
		wantErr bool
	}{
		{"(8+1]", true, 0, true},
		{"(8+1]", false, 9, false},
		{"{(1+2]*3)", true, 0, true},
		{"{(1+2]*3)", false, 9, false},
		{"((1+2]*3)", true, 0, true},
		{"[(1+2)*{3-1}]", true, 6, false},
		{"[(1+2)*{3-1}]", false, 6, false},
	}

	for _, tt := range tests {
		name := tt.input + "/lenient"
		if tt.strict {
			name = tt.input + "/strict"
		}
		t.Run(name, func(t *testing.T) {
			e := New(WithStrictBrackets(tt.strict))
			got, err := e.Evaluate(tt.input)
			if tt.wantErr {
				if !IsMalformed(err) {
					t.Fatalf("Evaluate(%q) error = %v, want malformed", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestEvaluate_LenientStillRejectsImbalance(t *testing.T) {
	e := New(WithStrictBrackets(false))
	for _, input := range []string{")8+)1(())", "(1)+2)", "((1+2)*3", "(8+())"} {
		if _, err := e.Evaluate(input); !IsMalformed(err) {
			t.Errorf("lenient Evaluate(%q) error = %v, want malformed", input, err)
		}
	}
}

func TestEvaluate_MaxDepth(t *testing.T) {
	nested := func(levels int) string {
		expr := "1"
		for i := 0; i < levels; i++ {
			expr = "(" + expr + "+1)"
		}
		return expr
	}

	shallow := New(WithMaxDepth(1))
	if got, err := shallow.Evaluate(nested(1)); err != nil || got != 2 {
		t.Fatalf("Evaluate(depth 1) = %d, %v, want 2, nil", got, err)
	}
	_, err := shallow.Evaluate(nested(2))
	if !IsMalformed(err) {
		t.Fatalf("Evaluate(depth 2) with max 1 error = %v, want malformed", err)
	}
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) || !strings.HasPrefix(syntaxErr.Reason, "nesting too deep") {
		t.Errorf("error = %v, want nesting too deep", err)
	}

	if got, err := Evaluate(nested(DefaultMaxDepth)); err != nil || got != DefaultMaxDepth+1 {
		t.Errorf("Evaluate(depth %d) = %d, %v", DefaultMaxDepth, got, err)
	}
	if _, err := Evaluate(nested(DefaultMaxDepth + 1)); !IsMalformed(err) {
		t.Errorf("Evaluate(depth %d) error = %v, want malformed", DefaultMaxDepth+1, err)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := New()
	input := "((0-9)*((1+9)*(2-5)))"
	first, err := e.Evaluate(input)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Evaluate(input)
		if err != nil || again != first {
			t.Fatalf("Evaluate() run %d = %d, %v, want %d", i, again, err, first)
		}
	}
}

func TestEvaluate_OuterBracketFamilySwap(t *testing.T) {
	inputs := []string{"((8+7)*2)", "(4-(7-1))", "((1+1)*(2*2))", "((1+9)*(2-5))", "((0-9)*((1+9)*(2-5)))"}
	families := [][2]byte{{'{', '}'}, {'[', ']'}}

	for _, input := range inputs {
		want, err := Evaluate(input)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", input, err)
		}
		for _, f := range families {
			swapped := string(f[0]) + input[1:len(input)-1] + string(f[1])
			got, err := Evaluate(swapped)
			if err != nil {
				t.Errorf("Evaluate(%q) error = %v", swapped, err)
				continue
			}
			if got != want {
				t.Errorf("Evaluate(%q) = %d, want %d", swapped, got, want)
			}
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	e := New()
	if !e.Strict() {
		t.Error("Strict() = false, want true by default")
	}
	if e.MaxDepth() != DefaultMaxDepth {
		t.Errorf("MaxDepth() = %d, want %d", e.MaxDepth(), DefaultMaxDepth)
	}

	e = New(WithMaxDepth(0), WithStrictBrackets(false))
	if e.Strict() {
		t.Error("Strict() = true, want false")
	}
	if e.MaxDepth() != DefaultMaxDepth {
		t.Errorf("MaxDepth() = %d, want fallback %d", e.MaxDepth(), DefaultMaxDepth)
	}
}

func TestSyntaxError_Error(t *testing.T) {
	_, err := Evaluate("-1")
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, `"-1"`) {
		t.Errorf("Error() = %q, want it to quote the input", msg)
	}
}

func BenchmarkEvaluate(b *testing.B) {
	e := New()
	for i := 0; i < b.N; i++ {
		e.Evaluate("((0-9)*((1+9)*(2-5)))")
	}
}
