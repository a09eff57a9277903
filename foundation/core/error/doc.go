// Package error provides coded, contextual errors for the Pascal platform.
//
// Package: error
// Title: Pascal Error Handling
// Description: Structured errors carrying a code, a severity, the failing
//              operation and free-form details. Codes map onto HTTP status
//              codes so that every surface (CLI, HTTP gateway, gRPC service)
//              reports the same classification of a failure.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-19
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with contextual errors and codes
// - 2026-10-19 v0.2.0: Evaluation codes, stack traces and i18n keys removed
//
// Usage:
//   import mdwerror "github.com/msto63/pascal/foundation/core/error"
//
//   err := mdwerror.Wrap(cause, "expression rejected").
//     WithCode(mdwerror.CodeMalformedExpression).
//     WithOperation("service.Evaluate").
//     WithDetail("offset", 3)
//
//   if mdwerror.HasCode(err, mdwerror.CodeMalformedExpression) {
//     // answer 400
//   }
package error
