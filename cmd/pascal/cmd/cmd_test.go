package cmd

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

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[general]\ndata_dir = \"" + filepath.ToSlash(dir) + "\"\n\n[store]\ndisabled = true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--config", writeConfig(t)))
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestEvalCommand(t *testing.T) {
	out, _, err := execute(t, "eval", "((8+7)*2)")
	if err != nil {
		t.Fatalf("eval error = %v", err)
	}
	if strings.TrimSpace(out) != "30" {
		t.Errorf("output = %q, want 30", out)
	}
}

func TestEvalCommand_Multiple(t *testing.T) {
	out, errOut, err := execute(t, "eval", "(4-(7-1))", "(8)", "8")
	if !errors.Is(err, errReported) {
		t.Fatalf("eval error = %v, want reported failure", err)
	}
	if !strings.Contains(out, "(4-(7-1)) = -2") || !strings.Contains(out, "8 = 8") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(errOut, "(8)") {
		t.Errorf("stderr = %q, want failure for (8)", errOut)
	}
}

func TestEvalCommand_RemoteRejectsLocalFlags(t *testing.T) {
	t.Cleanup(func() {
		evalRemote, evalMaxDepth, evalNoHistory = "", 0, false
		for _, name := range []string{"remote", "max-depth", "no-history"} {
			evalCmd.Flags().Lookup(name).Changed = false
		}
	})

	tests := []struct {
		name string
		args []string
	}{
		{"max-depth", []string{"eval", "--remote", "localhost:1", "--max-depth", "3", "(1+2)"}},
		{"no-history", []string{"eval", "--remote", "localhost:1", "--no-history", "(1+2)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalMaxDepth, evalNoHistory = 0, false
			evalCmd.Flags().Lookup("max-depth").Changed = false

			out, _, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), "--remote") {
				t.Fatalf("eval error = %v, want rejection of --%s with --remote", err, tt.name)
			}
			if out != "" {
				t.Errorf("output = %q, want nothing evaluated", out)
			}
		})
	}
}

func TestCheckCommand(t *testing.T) {
	out, _, err := execute(t, "check")
	if err != nil {
		t.Fatalf("check error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "13 passed, 0 failed") {
		t.Errorf("output = %q", out)
	}
}

func TestEvaluateAll(t *testing.T) {
	ev := evaluator.New()
	eval := func(ctx context.Context, expression string, strict *bool) (int, error) {
		return ev.Evaluate(expression)
	}

	var out, errOut bytes.Buffer
	failed := evaluateAll(context.Background(), eval, nil, []string{"(1+2)", "(1+2"}, &out, &errOut)
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if out.String() != "(1+2) = 3\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("(1+2)\n\n8\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "(1+2)" || lines[1] != "8" {
		t.Errorf("readLines() = %q", lines)
	}
}
