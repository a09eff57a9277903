package service

import (
	"errors"

	mdwerror "github.com/msto63/pascal/foundation/core/error"
	"github.com/msto63/pascal/internal/pascal/evaluator"
	"github.com/msto63/pascal/internal/pascal/store"
)

// FromEvaluation converts an evaluator error into a coded error. The
// original error stays in the chain, so errors.Is against the evaluator
// sentinels keeps working.
func FromEvaluation(err error) error {
	if err == nil {
		return nil
	}

	var syntaxErr *evaluator.SyntaxError
	if errors.As(err, &syntaxErr) {
		return mdwerror.Wrap(err, "evaluate").
			WithCode(mdwerror.CodeMalformedExpression).
			WithSeverity(mdwerror.SeverityLow).
			WithOperation("evaluate").
			WithDetail("offset", syntaxErr.Offset).
			WithDetail("reason", syntaxErr.Reason)
	}

	var arithErr *evaluator.ArithmeticError
	if errors.As(err, &arithErr) {
		code := mdwerror.CodeArithmeticOverflow
		if errors.Is(err, evaluator.ErrDivisionByZero) {
			code = mdwerror.CodeDivisionByZero
		}
		return mdwerror.Wrap(err, "evaluate").
			WithCode(code).
			WithSeverity(mdwerror.SeverityMedium).
			WithOperation("evaluate").
			WithDetail("offset", arithErr.Offset).
			WithDetail("operator", string(arithErr.Op))
	}

	return mdwerror.Wrap(err, "evaluate").
		WithCode(mdwerror.CodeInternal).
		WithOperation("evaluate")
}

func fromStore(err error, operation string) *mdwerror.Error {
	if errors.Is(err, store.ErrNotFound) {
		return mdwerror.Wrap(err, operation).
			WithCode(mdwerror.CodeNotFound).
			WithSeverity(mdwerror.SeverityLow).
			WithOperation(operation)
	}
	return mdwerror.Wrap(err, operation).
		WithCode(mdwerror.CodeDatabaseError).
		WithSeverity(mdwerror.SeverityHigh).
		WithOperation(operation)
}
