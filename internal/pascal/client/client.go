// Package client is the gRPC client of the evaluator service.
package client

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	mdwerror "github.com/msto63/pascal/foundation/core/error"
	"github.com/msto63/pascal/internal/pascal/evaluator"
	"github.com/msto63/pascal/internal/pascal/harness"
	"github.com/msto63/pascal/internal/pascal/server"
	"github.com/msto63/pascal/internal/pascal/store"
	coreGrpc "github.com/msto63/pascal/pkg/core/grpc"
	"github.com/msto63/pascal/pkg/core/logging"
)

// Config holds client configuration
type Config struct {
	Address string
	// Timeout bounds each call that has no earlier deadline
	Timeout time.Duration
	// Strict overrides the server's bracket matching mode when set
	Strict *bool
}

// DefaultConfig returns a configuration for address
func DefaultConfig(address string) Config {
	return Config{
		Address: address,
		Timeout: 10 * time.Second,
	}
}

// Client calls a remote evaluator service
type Client struct {
	conn   *grpc.ClientConn
	config Config
}

// Dial creates a client. The connection is established on the first call.
func Dial(cfg Config, logger *logging.Logger, opts ...grpc.DialOption) (*Client, error) {
	grpcCfg := coreGrpc.DefaultClientConfig(cfg.Address)
	if cfg.Timeout > 0 {
		grpcCfg.Timeout = cfg.Timeout
	}

	conn, err := coreGrpc.Dial(grpcCfg, logger, opts...)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to connect to evaluator").
			WithCode(mdwerror.CodeServiceUnavailable).
			WithDetail("address", cfg.Address)
	}

	return &Client{conn: conn, config: cfg}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) callContext(ctx context.Context, strict *bool) (context.Context, context.CancelFunc) {
	if strict != nil {
		mode := "lenient"
		if *strict {
			mode = "strict"
		}
		ctx = metadata.AppendToOutgoingContext(ctx, server.BracketModeHeader, mode)
	}
	if _, ok := ctx.Deadline(); ok || c.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.Timeout)
}

// Evaluate evaluates expression remotely. Failures are *RemoteError and
// match the evaluator sentinel errors under errors.Is.
func (c *Client) Evaluate(ctx context.Context, expression string) (int, error) {
	return c.EvaluateWith(ctx, expression, c.config.Strict)
}

// EvaluateWith evaluates expression with an explicit bracket mode; nil
// leaves the choice to the server.
func (c *Client) EvaluateWith(ctx context.Context, expression string, strict *bool) (int, error) {
	ctx, cancel := c.callContext(ctx, strict)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, server.EvaluateMethod, wrapperspb.String(expression), out); err != nil {
		return 0, toRemoteError(err)
	}
	value, err := server.ValueFromStruct(out)
	if err != nil {
		return 0, mdwerror.Wrap(err, "malformed evaluate response").
			WithCode(mdwerror.CodeInternal).
			WithOperation("client.Evaluate")
	}
	return value, nil
}

// EvalFunc adapts the client to the harness
func (c *Client) EvalFunc() harness.EvalFunc {
	return c.Evaluate
}

// CheckSummary is the server-side result of the built-in suite
type CheckSummary struct {
	Suite    string
	Passed   int
	Failed   int
	Outcomes []CheckOutcome
}

// CheckOutcome is one case of a CheckSummary
type CheckOutcome struct {
	Expression string
	Passed     bool
	Message    string
}

// Check runs the built-in suite on the server
func (c *Client) Check(ctx context.Context) (*CheckSummary, error) {
	ctx, cancel := c.callContext(ctx, nil)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, server.CheckMethod, &emptypb.Empty{}, out); err != nil {
		return nil, toRemoteError(err)
	}

	f := out.GetFields()
	summary := &CheckSummary{
		Suite:  f["suite"].GetStringValue(),
		Passed: int(f["passed"].GetNumberValue()),
		Failed: int(f["failed"].GetNumberValue()),
	}
	for _, v := range f["outcomes"].GetListValue().GetValues() {
		o := v.GetStructValue().GetFields()
		summary.Outcomes = append(summary.Outcomes, CheckOutcome{
			Expression: o["expression"].GetStringValue(),
			Passed:     o["passed"].GetBoolValue(),
			Message:    o["message"].GetStringValue(),
		})
	}
	return summary, nil
}

// History returns up to limit recorded evaluations, newest first
func (c *Client) History(ctx context.Context, limit int) ([]*store.Record, error) {
	ctx, cancel := c.callContext(ctx, nil)
	defer cancel()

	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, server.HistoryMethod, wrapperspb.Int64(int64(limit)), out); err != nil {
		return nil, toRemoteError(err)
	}

	records := make([]*store.Record, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		records = append(records, server.RecordFromStruct(v.GetStructValue()))
	}
	return records, nil
}

// Health checks the gRPC health service of the evaluator
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.callContext(ctx, nil)
	defer cancel()

	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: server.ServiceName})
	if err != nil {
		return toRemoteError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return &RemoteError{
			Code:     mdwerror.CodeServiceUnavailable,
			Message:  "evaluator is " + resp.GetStatus().String(),
			GRPCCode: codes.Unavailable,
		}
	}
	return nil
}

// RemoteError is a failure reported by the server
type RemoteError struct {
	Code     mdwerror.Code
	Message  string
	GRPCCode codes.Code
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Is matches the evaluator sentinels and context errors
func (e *RemoteError) Is(target error) bool {
	switch target {
	case evaluator.ErrMalformedExpression:
		return e.Code == mdwerror.CodeMalformedExpression
	case evaluator.ErrDivisionByZero:
		return e.Code == mdwerror.CodeDivisionByZero
	case evaluator.ErrOverflow:
		return e.Code == mdwerror.CodeArithmeticOverflow
	case context.Canceled:
		return e.GRPCCode == codes.Canceled
	case context.DeadlineExceeded:
		return e.GRPCCode == codes.DeadlineExceeded
	}
	return false
}

func toRemoteError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return &RemoteError{
		Code:     mdwerror.GetCode(coreGrpc.FromStatus(err)),
		Message:  st.Message(),
		GRPCCode: st.Code(),
	}
}

// AsRemote extracts a RemoteError from err
func AsRemote(err error) (*RemoteError, bool) {
	var remote *RemoteError
	ok := errors.As(err, &remote)
	return remote, ok
}
