// Package log provides structured logging for the Pascal platform.
//
// Package: log
// Title: Pascal Structured Logging
// Description: Leveled, structured logging with JSON, text, console and
//              logfmt output, persistent context fields, request IDs and
//              operation timers. Coded errors from the error package are
//              logged with their code and at a level derived from their
//              severity.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-19
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with structured logging and error integration
// - 2026-10-19 v0.2.0: Removed async buffering and audit level
//
// Usage:
//   import mdwlog "github.com/msto63/pascal/foundation/core/log"
//
//   logger := mdwlog.NewWithConfig(mdwlog.Config{
//     Level:  mdwlog.LevelInfo,
//     Format: mdwlog.FormatJSON,
//     Name:   "pascal",
//   }).WithRequestID("req-123")
//
//   logger.Info("expression evaluated", mdwlog.Fields{"value": 30})
//
//   timer := logger.StartTimer("evaluate")
//   // ... evaluate
//   timer.Stop()
package log
