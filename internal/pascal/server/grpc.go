package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/msto63/pascal/internal/pascal/harness"
	"github.com/msto63/pascal/internal/pascal/service"
	"github.com/msto63/pascal/internal/pascal/store"
	coreGrpc "github.com/msto63/pascal/pkg/core/grpc"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "pascal.v1.EvaluatorService"

// Full method names
const (
	EvaluateMethod = "/" + ServiceName + "/Evaluate"
	CheckMethod    = "/" + ServiceName + "/Check"
	HistoryMethod  = "/" + ServiceName + "/History"
)

// BracketModeHeader selects "strict" or "lenient" bracket matching for a
// single Evaluate call. Without it the server default applies.
const BracketModeHeader = "x-bracket-mode"

// EvaluatorServer is the server API of the evaluator service
type EvaluatorServer interface {
	Evaluate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Check(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	History(context.Context, *wrapperspb.Int64Value) (*structpb.ListValue, error)
}

// EvaluatorServiceDesc describes the evaluator service. Messages are
// protobuf well-known types, so no generated code is required.
var EvaluatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EvaluatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "Check", Handler: checkHandler},
		{MethodName: "History", Handler: historyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pascal/v1/evaluator.proto",
}

func evaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluatorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EvaluateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EvaluatorServer).Evaluate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func checkHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluatorServer).Check(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CheckMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EvaluatorServer).Check(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func historyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluatorServer).History(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HistoryMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EvaluatorServer).History(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterEvaluatorServer registers impl on s
func RegisterEvaluatorServer(s grpc.ServiceRegistrar, impl EvaluatorServer) {
	s.RegisterService(&EvaluatorServiceDesc, impl)
}

// grpcService adapts the service to EvaluatorServer
type grpcService struct {
	svc *service.Service
}

// NewEvaluatorServer returns an EvaluatorServer backed by svc
func NewEvaluatorServer(svc *service.Service) EvaluatorServer {
	return &grpcService{svc: svc}
}

func (g *grpcService) Evaluate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	opts := service.EvaluateOptions{
		Strict:    bracketMode(ctx),
		Source:    service.SourceGRPC,
		RequestID: coreGrpc.GetRequestID(ctx),
	}

	result, err := g.svc.Evaluate(ctx, req.GetValue(), opts)
	if err != nil {
		return nil, coreGrpc.ToStatus(err)
	}

	out, err := structpb.NewStruct(map[string]interface{}{
		"id":          result.ID,
		"expression":  result.Expression,
		"value":       FormatValue(result.Value),
		"strict":      result.Strict,
		"cached":      result.Cached,
		"duration_ms": durationMillis(result.Duration),
	})
	if err != nil {
		return nil, coreGrpc.ToStatus(err)
	}
	return out, nil
}

func (g *grpcService) Check(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	report, err := g.svc.Check(ctx, nil)
	if err != nil {
		return nil, coreGrpc.ToStatus(err)
	}

	out, err := structpb.NewStruct(reportMap(report))
	if err != nil {
		return nil, coreGrpc.ToStatus(err)
	}
	return out, nil
}

func (g *grpcService) History(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.ListValue, error) {
	records, err := g.svc.History(ctx, int(req.GetValue()), 0)
	if err != nil {
		return nil, coreGrpc.ToStatus(err)
	}

	items := make([]interface{}, 0, len(records))
	for _, rec := range records {
		items = append(items, RecordMap(rec))
	}

	out, err := structpb.NewList(items)
	if err != nil {
		return nil, coreGrpc.ToStatus(err)
	}
	return out, nil
}

// bracketMode reads the per-call bracket matching override
func bracketMode(ctx context.Context) *bool {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}
	values := md.Get(BracketModeHeader)
	if len(values) == 0 {
		return nil
	}

	var strict bool
	switch strings.ToLower(values[0]) {
	case "strict":
		strict = true
	case "lenient":
		strict = false
	default:
		return nil
	}
	return &strict
}

func reportMap(report *harness.Report) map[string]interface{} {
	outcomes := make([]interface{}, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		outcomes = append(outcomes, map[string]interface{}{
			"expression": o.Case.Expression,
			"passed":     o.Passed,
			"message":    o.Message,
		})
	}
	return map[string]interface{}{
		"suite":       report.Suite,
		"passed":      report.Passed,
		"failed":      report.Failed,
		"duration_ms": durationMillis(report.Duration),
		"outcomes":    outcomes,
	}
}

// RecordMap flattens a history record for structpb
func RecordMap(rec *store.Record) map[string]interface{} {
	m := map[string]interface{}{
		"id":          rec.ID,
		"expression":  rec.Expression,
		"strict":      rec.Strict,
		"source":      rec.Source,
		"duration_ms": durationMillis(rec.Duration),
		"created_at":  rec.CreatedAt.Format(time.RFC3339Nano),
	}
	if rec.Value != nil {
		m["value"] = FormatValue(*rec.Value)
	}
	if rec.ErrorCode != "" {
		m["error_code"] = rec.ErrorCode
		m["error_message"] = rec.ErrorMessage
	}
	if rec.RequestID != "" {
		m["request_id"] = rec.RequestID
	}
	return m
}

// RecordFromStruct restores a history record from its structpb form
func RecordFromStruct(s *structpb.Struct) *store.Record {
	f := s.GetFields()
	rec := &store.Record{
		ID:           f["id"].GetStringValue(),
		Expression:   f["expression"].GetStringValue(),
		Strict:       f["strict"].GetBoolValue(),
		Source:       f["source"].GetStringValue(),
		RequestID:    f["request_id"].GetStringValue(),
		ErrorCode:    f["error_code"].GetStringValue(),
		ErrorMessage: f["error_message"].GetStringValue(),
		Duration:     time.Duration(f["duration_ms"].GetNumberValue() * float64(time.Millisecond)),
	}
	if _, ok := f["value"]; ok {
		if value, err := ValueFromStruct(s); err == nil {
			rec.Value = &value
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, f["created_at"].GetStringValue()); err == nil {
		rec.CreatedAt = ts
	}
	return rec
}

// FormatValue renders an evaluation result for the wire. Results travel as
// decimal strings since a structpb number is a double and cannot hold
// every int exactly.
func FormatValue(v int) string {
	return strconv.Itoa(v)
}

// ValueFromStruct parses the "value" field written by FormatValue
func ValueFromStruct(s *structpb.Struct) (int, error) {
	raw, ok := s.GetFields()["value"]
	if !ok {
		return 0, fmt.Errorf("response has no value")
	}
	text, ok := raw.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return 0, fmt.Errorf("value has type %T, want string", raw.GetKind())
	}
	return strconv.Atoi(text.StringValue)
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
