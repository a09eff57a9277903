package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	mdwerror "github.com/msto63/pascal/foundation/core/error"
	"github.com/msto63/pascal/internal/pascal/evaluator"
	"github.com/msto63/pascal/internal/pascal/harness"
	"github.com/msto63/pascal/pkg/core/cache"
	"github.com/msto63/pascal/pkg/core/config"
	"github.com/msto63/pascal/pkg/core/logging"
)

func quietLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewFromConfig(logging.LoggerConfig{ServiceName: "test", Output: io.Discard})
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	return logger
}

func newTestService(t *testing.T, withCache bool) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logger = quietLogger(t)
	if withCache {
		cfg.Cache = cache.NewResultCache(cache.DefaultConfig())
	}
	svc := NewService(cfg)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func boolPtr(v bool) *bool { return &v }

func TestService_Evaluate(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	tests := []struct {
		name       string
		expression string
		opts       EvaluateOptions
		want       int
		wantCode   mdwerror.Code
		wantErr    error
	}{
		{name: "compound", expression: "((8+7)*2)", want: 30},
		{name: "bare digit", expression: "8", want: 8},
		{name: "negative result", expression: "(4-(7-1))", want: -2},
		{name: "truncating division", expression: "(7/2)", want: 3},
		{name: "malformed", expression: "(8+())", wantCode: mdwerror.CodeMalformedExpression, wantErr: evaluator.ErrMalformedExpression},
		{name: "mismatched strict", expression: "(8+1]", wantCode: mdwerror.CodeMalformedExpression, wantErr: evaluator.ErrMalformedExpression},
		{name: "mismatched lenient", expression: "(8+1]", opts: EvaluateOptions{Strict: boolPtr(false)}, want: 9},
		{name: "division by zero", expression: "(5/0)", wantCode: mdwerror.CodeDivisionByZero, wantErr: evaluator.ErrDivisionByZero},
		{name: "too long", expression: strings.Repeat("(", DefaultMaxExpressionLength+1), wantCode: mdwerror.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Evaluate(ctx, tt.expression, tt.opts)
			if tt.wantCode != "" {
				if err == nil {
					t.Fatalf("Evaluate(%q) = %d, want error %s", tt.expression, result.Value, tt.wantCode)
				}
				if got := mdwerror.GetCode(err); got != tt.wantCode {
					t.Errorf("code = %s, want %s", got, tt.wantCode)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expression, err)
			}
			if result.Value != tt.want {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.expression, result.Value, tt.want)
			}
			if result.ID == "" {
				t.Error("expected a history ID")
			}
		})
	}
}

func TestService_EvaluateRecordsHistory(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	ok, err := svc.Evaluate(ctx, "(1+2)", EvaluateOptions{Source: SourceCLI, RequestID: "req-1"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if _, err := svc.Evaluate(ctx, "(1+)", EvaluateOptions{Source: SourceHTTP}); err == nil {
		t.Fatal("expected malformed error")
	}
	if _, err := svc.Evaluate(ctx, "(3*3)", EvaluateOptions{NoRecord: true}); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	records, err := svc.History(ctx, 10, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("History() returned %d records, want 2", len(records))
	}

	rec, err := svc.Record(ctx, ok.ID)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.Value == nil || *rec.Value != 3 {
		t.Errorf("recorded value = %v, want 3", rec.Value)
	}
	if rec.Source != SourceCLI || rec.RequestID != "req-1" {
		t.Errorf("recorded source/request = %q/%q", rec.Source, rec.RequestID)
	}

	stats, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.History.Total != 2 || stats.History.Succeeded != 1 || stats.History.Failed != 1 {
		t.Errorf("statistics = %+v", stats.History)
	}
	if stats.History.ByErrorCode[string(mdwerror.CodeMalformedExpression)] != 1 {
		t.Errorf("by error code = %v", stats.History.ByErrorCode)
	}
	if stats.Cache != nil {
		t.Error("expected no cache statistics without a cache")
	}

	n, err := svc.ClearHistory(ctx)
	if err != nil {
		t.Fatalf("ClearHistory() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ClearHistory() = %d, want 2", n)
	}
}

func TestService_RecordNotFound(t *testing.T) {
	svc := newTestService(t, false)

	_, err := svc.Record(context.Background(), "missing")
	if !mdwerror.HasCode(err, mdwerror.CodeNotFound) {
		t.Errorf("Record() error = %v, want NOT_FOUND", err)
	}
}

func TestService_Cache(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()

	first, err := svc.Evaluate(ctx, "((1+9)*(2-5))", EvaluateOptions{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	second, err := svc.Evaluate(ctx, "((1+9)*(2-5))", EvaluateOptions{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if first.Cached || !second.Cached {
		t.Errorf("cached = %v/%v, want false/true", first.Cached, second.Cached)
	}
	if second.Value != -30 {
		t.Errorf("cached value = %d, want -30", second.Value)
	}

	// Rejections are cached too and keep their code
	for i := 0; i < 2; i++ {
		_, err := svc.Evaluate(ctx, "(9/0)", EvaluateOptions{})
		if !mdwerror.HasCode(err, mdwerror.CodeDivisionByZero) {
			t.Fatalf("Evaluate() error = %v, want DIVISION_BY_ZERO", err)
		}
	}

	// Lenient and strict results are cached separately
	if _, err := svc.Evaluate(ctx, "(8+1]", EvaluateOptions{}); err == nil {
		t.Fatal("expected strict rejection")
	}
	lenient, err := svc.Evaluate(ctx, "(8+1]", EvaluateOptions{Strict: boolPtr(false)})
	if err != nil {
		t.Fatalf("lenient Evaluate() error = %v", err)
	}
	if lenient.Cached {
		t.Error("lenient evaluation must not hit the strict entry")
	}

	stats, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.Cache == nil || stats.Cache.Hits != 2 {
		t.Errorf("cache statistics = %+v, want 2 hits", stats.Cache)
	}
}

func TestService_EvaluateCanceled(t *testing.T) {
	svc := newTestService(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Evaluate(ctx, "(1+1)", EvaluateOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Evaluate() error = %v, want context.Canceled", err)
	}
}

func TestService_Check(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	report, err := svc.Check(ctx, nil)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !report.OK() {
		var sb strings.Builder
		_, _ = report.WriteTo(&sb)
		t.Fatalf("default suite failed:\n%s", sb.String())
	}

	records, err := svc.History(ctx, 0, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Check() recorded %d evaluations, want 0", len(records))
	}

	suite := &harness.Suite{Name: "wrong", Cases: []harness.Case{harness.WellFormed("(1+1)", 3)}}
	report, err = svc.Check(ctx, suite)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.OK() || report.Failed != 1 {
		t.Errorf("report = %d passed, %d failed, want one failure", report.Passed, report.Failed)
	}
}

func TestService_CheckInvalidSuite(t *testing.T) {
	svc := newTestService(t, false)

	suite := &harness.Suite{Name: "incomplete", Cases: []harness.Case{{Expression: "(1+2)"}}}
	report, err := svc.Check(context.Background(), suite)
	if err == nil {
		t.Fatalf("Check() = %+v, want an error", report)
	}
	if !mdwerror.HasCode(err, mdwerror.CodeInvalidInput) {
		t.Errorf("Check() error code = %s, want %s", mdwerror.GetCode(err), mdwerror.CodeInvalidInput)
	}
}

func TestService_Ping(t *testing.T) {
	svc := newTestService(t, false)
	if err := svc.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := svc.PingStore(context.Background()); err != nil {
		t.Errorf("PingStore() error = %v", err)
	}
}

func TestFromEvaluation(t *testing.T) {
	_, err := evaluator.Evaluate("(8+x)")
	coded := FromEvaluation(err)

	var mdwErr *mdwerror.Error
	if !errors.As(coded, &mdwErr) {
		t.Fatalf("FromEvaluation() = %T, want *mdwerror.Error", coded)
	}
	if mdwErr.Code() != mdwerror.CodeMalformedExpression {
		t.Errorf("code = %s", mdwErr.Code())
	}
	if mdwErr.Severity() != mdwerror.SeverityLow {
		t.Errorf("severity = %s", mdwErr.Severity())
	}
	if _, ok := mdwErr.Details()["offset"]; !ok {
		t.Error("expected offset detail")
	}

	if FromEvaluation(nil) != nil {
		t.Error("FromEvaluation(nil) must be nil")
	}
	if got := mdwerror.GetCode(FromEvaluation(errors.New("boom"))); got != mdwerror.CodeInternal {
		t.Errorf("unknown error code = %s, want INTERNAL", got)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.Evaluator.Lenient = true

	svc, err := NewFromConfig(cfg, quietLogger(t))
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	defer svc.Close()

	if svc.Strict() {
		t.Error("expected lenient default")
	}
	if svc.MaxDepth() != cfg.Evaluator.MaxDepth {
		t.Errorf("MaxDepth() = %d, want %d", svc.MaxDepth(), cfg.Evaluator.MaxDepth)
	}

	result, err := svc.Evaluate(context.Background(), "(8+1]", EvaluateOptions{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if _, err := svc.Record(context.Background(), result.ID); err != nil {
		t.Errorf("Record() error = %v", err)
	}
}

func TestService_EvaluateTimer(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewFromConfig(logging.LoggerConfig{ServiceName: "test", Level: "trace", Output: &buf})
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Logger = logger
	svc := NewService(cfg)
	t.Cleanup(func() { _ = svc.Close() })

	_, err = svc.Evaluate(context.Background(), "((8+7)*2)", EvaluateOptions{NoRecord: true})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"message":"evaluate completed"`, `"operation":"evaluate"`, `"level":"trace"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}
