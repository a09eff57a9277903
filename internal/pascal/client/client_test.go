package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/test/bufconn"

	mdwerror "github.com/msto63/pascal/foundation/core/error"
	"github.com/msto63/pascal/internal/pascal/evaluator"
	"github.com/msto63/pascal/internal/pascal/harness"
	"github.com/msto63/pascal/internal/pascal/server"
	"github.com/msto63/pascal/internal/pascal/service"
	"github.com/msto63/pascal/pkg/core/logging"
)

func newTestClient(t *testing.T, strict *bool) *Client {
	t.Helper()
	logger, err := logging.NewFromConfig(logging.LoggerConfig{ServiceName: "test", Output: io.Discard})
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}

	svcCfg := service.DefaultConfig()
	svcCfg.Logger = logger
	svc := service.NewService(svcCfg)
	t.Cleanup(func() { _ = svc.Close() })

	srv := server.New(server.DefaultConfig(), svc, logger)
	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = srv.GRPC().Serve(lis) }()
	t.Cleanup(srv.GRPC().Stop)

	cfg := DefaultConfig("passthrough:///bufnet")
	cfg.Strict = strict
	c, err := Dial(cfg, logger, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Evaluate(t *testing.T) {
	c := newTestClient(t, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		expression string
		want       int
		wantErr    error
		wantCode   codes.Code
	}{
		{name: "compound", expression: "((8+7)*2)", want: 30},
		{name: "digit", expression: "8", want: 8},
		{name: "malformed", expression: ")8+)1(())", wantErr: evaluator.ErrMalformedExpression, wantCode: codes.InvalidArgument},
		{name: "division by zero", expression: "(9/(1-1))", wantErr: evaluator.ErrDivisionByZero, wantCode: codes.FailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Evaluate(ctx, tt.expression)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Evaluate(%q) error = %v, want %v", tt.expression, err, tt.wantErr)
				}
				remote, ok := AsRemote(err)
				if !ok {
					t.Fatalf("error %T is not a RemoteError", err)
				}
				if remote.GRPCCode != tt.wantCode {
					t.Errorf("gRPC code = %v, want %v", remote.GRPCCode, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expression, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.expression, got, tt.want)
			}
		})
	}
}

// nestedProduct returns (9*(9*(...))) with n nines
func nestedProduct(n int) string {
	expr := "9"
	for i := 1; i < n; i++ {
		expr = "(9*" + expr + ")"
	}
	return expr
}

func TestClient_EvaluateLargeValue(t *testing.T) {
	c := newTestClient(t, nil)
	ctx := context.Background()

	expr := nestedProduct(17)
	if strings.Count(expr, "9") != 17 {
		t.Fatalf("nestedProduct(17) = %q", expr)
	}

	want, err := evaluator.Evaluate(expr)
	if err != nil {
		t.Fatalf("local Evaluate() error = %v", err)
	}
	if want != 16677181699666569 {
		t.Fatalf("local Evaluate() = %d, want 9^17", want)
	}

	got, err := c.Evaluate(ctx, expr)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got != want {
		t.Errorf("Evaluate() = %d, want %d", got, want)
	}

	records, err := c.History(ctx, 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(records) != 1 || records[0].Value == nil {
		t.Fatalf("History() = %+v, want one record with a value", records)
	}
	if *records[0].Value != want {
		t.Errorf("recorded value = %d, want %d", *records[0].Value, want)
	}
}

func TestClient_BracketMode(t *testing.T) {
	lenient := false
	c := newTestClient(t, &lenient)

	got, err := c.Evaluate(context.Background(), "(8+1]")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got != 9 {
		t.Errorf("Evaluate() = %d, want 9", got)
	}
}

func TestClient_RunsHarness(t *testing.T) {
	c := newTestClient(t, nil)

	report, err := harness.Run(context.Background(), c.EvalFunc(), harness.DefaultSuite())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.OK() {
		for _, o := range report.Outcomes {
			if !o.Passed {
				t.Error(o.Line())
			}
		}
	}
}

func TestClient_CheckHistoryHealth(t *testing.T) {
	c := newTestClient(t, nil)
	ctx := context.Background()

	summary, err := c.Check(ctx)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if summary.Failed != 0 || summary.Passed != len(harness.DefaultSuite().Cases) {
		t.Errorf("summary = %d passed, %d failed", summary.Passed, summary.Failed)
	}

	if _, err := c.Evaluate(ctx, "(2*(3+4))"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	records, err := c.History(ctx, 5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(records) != 1 || records[0].Value == nil || *records[0].Value != 14 {
		t.Errorf("History() = %+v", records)
	}

	if err := c.Health(ctx); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestRemoteError_Is(t *testing.T) {
	err := &RemoteError{Code: mdwerror.CodeArithmeticOverflow, Message: "overflow", GRPCCode: codes.FailedPrecondition}
	if !errors.Is(err, evaluator.ErrOverflow) {
		t.Error("expected overflow match")
	}
	if errors.Is(err, evaluator.ErrMalformedExpression) {
		t.Error("unexpected malformed match")
	}

	canceled := &RemoteError{Code: mdwerror.CodeTimeout, GRPCCode: codes.Canceled}
	if !errors.Is(canceled, context.Canceled) {
		t.Error("expected context.Canceled match")
	}
}
