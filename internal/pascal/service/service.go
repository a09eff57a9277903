// ============================================================================
// Pascal - Klammerausdruck-Evaluator
// ============================================================================
//
// Package:     service
// Description: Evaluation service shared by CLI, gRPC, HTTP and REPL
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/pascal/foundation/core/error"
	mdwlog "github.com/msto63/pascal/foundation/core/log"
	"github.com/msto63/pascal/internal/pascal/evaluator"
	"github.com/msto63/pascal/internal/pascal/harness"
	"github.com/msto63/pascal/internal/pascal/store"
	"github.com/msto63/pascal/pkg/core/cache"
	"github.com/msto63/pascal/pkg/core/logging"
)

// DefaultMaxExpressionLength bounds the input accepted by Evaluate
const DefaultMaxExpressionLength = 4096

// Sources recorded with each evaluation
const (
	SourceCLI       = "cli"
	SourceGRPC      = "grpc"
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
	SourceREPL      = "repl"
	SourceCheck     = "check"
)

// Config holds the service configuration
type Config struct {
	// Strict is the default bracket matching mode
	Strict              bool
	MaxDepth            int
	MaxExpressionLength int

	// Store records evaluations; nil uses an in-memory store
	Store store.Store
	// Cache memoizes outcomes; nil disables caching
	Cache  *cache.ResultCache
	Logger *logging.Logger
}

// DefaultConfig returns strict matching with default limits
func DefaultConfig() Config {
	return Config{
		Strict:              true,
		MaxDepth:            evaluator.DefaultMaxDepth,
		MaxExpressionLength: DefaultMaxExpressionLength,
	}
}

// EvaluateOptions tune a single evaluation
type EvaluateOptions struct {
	// Strict overrides the default bracket matching mode when set
	Strict    *bool
	Source    string
	RequestID string
	// NoRecord skips the history store
	NoRecord bool
}

// Result is a successful evaluation
type Result struct {
	ID         string        `json:"id,omitempty"`
	Expression string        `json:"expression"`
	Value      int           `json:"value"`
	Strict     bool          `json:"strict"`
	Cached     bool          `json:"cached"`
	Duration   time.Duration `json:"duration"`
}

// Statistics combines history and cache statistics
type Statistics struct {
	History *store.Statistics `json:"history"`
	Cache   *cache.Stats      `json:"cache,omitempty"`
}

// Service evaluates expressions and keeps their history
type Service struct {
	strict    *evaluator.Evaluator
	lenient   *evaluator.Evaluator
	defStrict bool
	maxLength int
	store     store.Store
	cache     *cache.ResultCache
	logger    *logging.Logger
}

// NewService creates a new evaluation service
func NewService(cfg Config) *Service {
	if cfg.MaxExpressionLength <= 0 {
		cfg.MaxExpressionLength = DefaultMaxExpressionLength
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New("pascal")
	}

	return &Service{
		strict:    evaluator.New(evaluator.WithStrictBrackets(true), evaluator.WithMaxDepth(cfg.MaxDepth)),
		lenient:   evaluator.New(evaluator.WithStrictBrackets(false), evaluator.WithMaxDepth(cfg.MaxDepth)),
		defStrict: cfg.Strict,
		maxLength: cfg.MaxExpressionLength,
		store:     cfg.Store,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
	}
}

// Strict returns the default bracket matching mode
func (s *Service) Strict() bool {
	return s.defStrict
}

// MaxDepth returns the nesting limit
func (s *Service) MaxDepth() int {
	return s.strict.MaxDepth()
}

// Evaluate validates and evaluates expression. Failures are coded errors:
// MALFORMED_EXPRESSION, DIVISION_BY_ZERO, ARITHMETIC_OVERFLOW or
// INVALID_INPUT for oversized input. Evaluations are recorded in the
// history unless opts.NoRecord is set; a failing store is logged, not
// returned.
func (s *Service) Evaluate(ctx context.Context, expression string, opts EvaluateOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(expression) > s.maxLength {
		return nil, mdwerror.Newf("expression too long: %d bytes, limit %d", len(expression), s.maxLength).
			WithCode(mdwerror.CodeInvalidInput).
			WithSeverity(mdwerror.SeverityLow).
			WithOperation("evaluate").
			WithRequestID(opts.RequestID)
	}

	strict := s.defStrict
	if opts.Strict != nil {
		strict = *opts.Strict
	}
	ev := s.lenient
	if strict {
		ev = s.strict
	}

	timer := s.logger.StartTimer("evaluate").
		WithLevel(mdwlog.LevelTrace).
		WithField("expression", expression).
		WithField("strict", strict)
	value, cached, evalErr := s.evaluate(ev, expression)
	duration := timer.Stop()

	err := FromEvaluation(evalErr)
	if coded, ok := err.(*mdwerror.Error); ok && opts.RequestID != "" {
		coded.WithRequestID(opts.RequestID)
	}

	result := &Result{
		Expression: expression,
		Value:      value,
		Strict:     strict,
		Cached:     cached,
		Duration:   duration,
	}

	if !opts.NoRecord {
		result.ID = s.record(ctx, result, err, opts)
	}

	s.log(result, err, opts)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) evaluate(ev *evaluator.Evaluator, expression string) (int, bool, error) {
	if s.cache != nil {
		if outcome, ok := s.cache.Get(ev.Strict(), ev.MaxDepth(), expression); ok {
			return outcome.Value, true, outcome.Err
		}
	}

	value, err := ev.Evaluate(expression)

	if s.cache != nil {
		s.cache.Set(ev.Strict(), ev.MaxDepth(), expression, cache.Outcome{Value: value, Err: err})
	}
	return value, false, err
}

func (s *Service) record(ctx context.Context, result *Result, err error, opts EvaluateOptions) string {
	rec := &store.Record{
		ID:         uuid.New().String(),
		Expression: result.Expression,
		Strict:     result.Strict,
		Duration:   result.Duration,
		Source:     opts.Source,
		RequestID:  opts.RequestID,
	}
	if err != nil {
		rec.ErrorCode = mdwerror.GetCode(err).String()
		rec.ErrorMessage = err.Error()
	} else {
		v := result.Value
		rec.Value = &v
	}

	if storeErr := s.store.Add(ctx, rec); storeErr != nil {
		s.logger.Error("Failed to record evaluation",
			"expression", result.Expression,
			"error", storeErr.Error(),
		)
		return ""
	}
	return rec.ID
}

func (s *Service) log(result *Result, err error, opts EvaluateOptions) {
	kv := []interface{}{
		"expression", result.Expression,
		"strict", result.Strict,
		"cached", result.Cached,
		"source", opts.Source,
		"duration", result.Duration.String(),
	}
	if opts.RequestID != "" {
		kv = append(kv, "request_id", opts.RequestID)
	}

	switch {
	case err == nil:
		s.logger.Debug("Expression evaluated", append(kv, "value", result.Value)...)
	case mdwerror.HasCode(err, mdwerror.CodeMalformedExpression):
		s.logger.Info("Expression rejected", append(kv, "error", err.Error())...)
	default:
		s.logger.Warn("Expression evaluation failed", append(kv, "error", err.Error())...)
	}
}

// EvalFunc adapts the service to the harness; evaluations are not recorded
func (s *Service) EvalFunc(opts EvaluateOptions) harness.EvalFunc {
	opts.NoRecord = true
	return func(ctx context.Context, expression string) (int, error) {
		result, err := s.Evaluate(ctx, expression, opts)
		if err != nil {
			return 0, err
		}
		return result.Value, nil
	}
}

// Check runs suite against the service, or the default suite when nil
func (s *Service) Check(ctx context.Context, suite *harness.Suite) (*harness.Report, error) {
	if suite == nil {
		suite = harness.DefaultSuite()
	}
	if err := suite.Validate(); err != nil {
		return nil, mdwerror.Wrap(err, "invalid suite").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("service.Check")
	}

	report, err := harness.Run(ctx, s.EvalFunc(EvaluateOptions{Source: SourceCheck}), suite)
	if err != nil {
		return report, err
	}

	s.logger.Info("Check completed",
		"suite", report.Suite,
		"passed", report.Passed,
		"failed", report.Failed,
		"duration", report.Duration.String(),
	)
	return report, nil
}

// History returns recorded evaluations newest first
func (s *Service) History(ctx context.Context, limit, offset int) ([]*store.Record, error) {
	records, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, fromStore(err, "history")
	}
	return records, nil
}

// Record returns one recorded evaluation
func (s *Service) Record(ctx context.Context, id string) (*store.Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fromStore(err, "record").WithDetail("id", id)
	}
	return rec, nil
}

// ClearHistory removes all recorded evaluations
func (s *Service) ClearHistory(ctx context.Context) (int64, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return 0, fromStore(err, "clear_history")
	}
	s.logger.Info("History cleared", "removed", n)
	return n, nil
}

// Statistics returns history and cache statistics
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	hist, err := s.store.Statistics(ctx)
	if err != nil {
		return nil, fromStore(err, "statistics")
	}

	stats := &Statistics{History: hist}
	if s.cache != nil {
		cs := s.cache.Stats()
		stats.Cache = &cs
	}
	return stats, nil
}

// canary is evaluated by Ping
const (
	canary      = "((8+7)*2)"
	canaryValue = 30
)

// Ping verifies the evaluator with a known expression
func (s *Service) Ping(ctx context.Context) error {
	value, err := s.strict.Evaluate(canary)
	if err != nil {
		return err
	}
	if value != canaryValue {
		return mdwerror.Newf("canary %s evaluated to %d, want %d", canary, value, canaryValue).
			WithCode(mdwerror.CodeInternal)
	}
	return nil
}

// PingStore verifies the history store
func (s *Service) PingStore(ctx context.Context) error {
	_, err := s.store.Statistics(ctx)
	return err
}

// Close closes the store and the cache
func (s *Service) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return s.store.Close()
}
