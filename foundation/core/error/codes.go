// File: codes.go
// Title: Error Code Definitions
// Description: Defines standardized error codes for consistent error
//              classification across the Pascal CLI, gateway and services.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-19
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with core error codes
// - 2026-10-19 v0.2.0: Expression evaluation codes

package error

import "net/http"

// Code represents a structured error code for categorizing errors
type Code string

const (
	// Generic codes
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeTimeout      Code = "TIMEOUT"

	// Expression evaluation
	CodeMalformedExpression Code = "MALFORMED_EXPRESSION"
	CodeDivisionByZero      Code = "DIVISION_BY_ZERO"
	CodeArithmeticOverflow  Code = "ARITHMETIC_OVERFLOW"

	// Storage
	CodeDatabaseError Code = "DATABASE_ERROR"

	// Service
	CodeServiceUnavailable    Code = "SERVICE_UNAVAILABLE"
	CodeServiceInitialization Code = "SERVICE_INITIALIZATION"

	// Configuration
	CodeConfigError   Code = "CONFIG_ERROR"
	CodeInvalidConfig Code = "INVALID_CONFIG"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// IsValid checks if the error code is a known valid code
func (c Code) IsValid() bool {
	switch c {
	case CodeUnknown, CodeInternal, CodeNotFound, CodeInvalidInput, CodeTimeout,
		CodeMalformedExpression, CodeDivisionByZero, CodeArithmeticOverflow,
		CodeDatabaseError,
		CodeServiceUnavailable, CodeServiceInitialization,
		CodeConfigError, CodeInvalidConfig:
		return true
	default:
		return false
	}
}

// Category returns the high-level category of the error code
func (c Code) Category() string {
	switch c {
	case CodeMalformedExpression:
		return "syntax"
	case CodeDivisionByZero, CodeArithmeticOverflow:
		return "arithmetic"
	case CodeDatabaseError:
		return "database"
	case CodeServiceUnavailable, CodeServiceInitialization:
		return "service"
	case CodeConfigError, CodeInvalidConfig:
		return "configuration"
	case CodeInvalidInput:
		return "validation"
	default:
		return "generic"
	}
}

// HTTPStatus returns the appropriate HTTP status code for this error code
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput, CodeMalformedExpression:
		return http.StatusBadRequest
	case CodeDivisionByZero, CodeArithmeticOverflow:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeServiceUnavailable, CodeDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the code describes a problem with the
// caller's input rather than with the platform.
func (c Code) IsClientError() bool {
	status := c.HTTPStatus()
	return status >= 400 && status < 500
}
