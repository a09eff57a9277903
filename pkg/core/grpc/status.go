package grpc

import (
	"context"
	"errors"

	mdwerror "github.com/msto63/pascal/foundation/core/error"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is reported in the ErrorInfo detail of every mapped status
const ErrorDomain = "pascal"

// CodeFor maps an error code to a gRPC status code
func CodeFor(code mdwerror.Code) codes.Code {
	switch code {
	case mdwerror.CodeMalformedExpression, mdwerror.CodeInvalidInput, mdwerror.CodeInvalidConfig:
		return codes.InvalidArgument
	case mdwerror.CodeDivisionByZero, mdwerror.CodeArithmeticOverflow:
		return codes.FailedPrecondition
	case mdwerror.CodeNotFound:
		return codes.NotFound
	case mdwerror.CodeTimeout:
		return codes.DeadlineExceeded
	case mdwerror.CodeServiceUnavailable, mdwerror.CodeDatabaseError:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// ToStatus converts err into a gRPC status error. The error code travels as
// the Reason of an ErrorInfo detail so that FromStatus can restore it.
// Context errors map to Canceled and DeadlineExceeded.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	code := mdwerror.GetCode(err)
	st := status.New(CodeFor(code), err.Error())

	info := &errdetails.ErrorInfo{
		Reason: code.String(),
		Domain: ErrorDomain,
	}
	var coded *mdwerror.Error
	if errors.As(err, &coded) {
		info.Metadata = map[string]string{}
		if op := coded.Operation(); op != "" {
			info.Metadata["operation"] = op
		}
		if id := coded.RequestID(); id != "" {
			info.Metadata["request_id"] = id
		}
	}

	if detailed, detailErr := st.WithDetails(info); detailErr == nil {
		st = detailed
	}
	return st.Err()
}

// FromStatus restores a coded error from a gRPC status error. Errors that
// are not status errors are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	code := codeFromStatus(st)
	return mdwerror.New(st.Message()).
		WithCode(code).
		WithSeverity(severityFor(code)).
		WithDetail("grpc_code", st.Code().String())
}

func codeFromStatus(st *status.Status) mdwerror.Code {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			if code := mdwerror.Code(info.GetReason()); code.IsValid() {
				return code
			}
		}
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return mdwerror.CodeInvalidInput
	case codes.NotFound:
		return mdwerror.CodeNotFound
	case codes.DeadlineExceeded, codes.Canceled:
		return mdwerror.CodeTimeout
	case codes.Unavailable:
		return mdwerror.CodeServiceUnavailable
	default:
		return mdwerror.CodeInternal
	}
}

func severityFor(code mdwerror.Code) mdwerror.Severity {
	if code.IsClientError() {
		return mdwerror.SeverityLow
	}
	switch code {
	case mdwerror.CodeServiceUnavailable, mdwerror.CodeDatabaseError:
		return mdwerror.SeverityHigh
	default:
		return mdwerror.SeverityMedium
	}
}
