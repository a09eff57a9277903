// File: severity.go
// Title: Error Severity Levels
// Description: Defines severity levels for errors. Loggers use the severity
//              to pick the level an error is reported at.
// Author: msto63
// Version: v0.1.0
// Created: 2025-01-24
// Modified: 2025-01-24
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with severity levels

package error

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow indicates a problem with caller input, such as a
	// malformed expression
	SeverityLow Severity = iota

	// SeverityMedium indicates a failed operation with a clear cause
	SeverityMedium

	// SeverityHigh indicates a failing dependency, such as the history store
	SeverityHigh

	// SeverityCritical indicates the process cannot continue
	SeverityCritical
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// IsHigherThan reports whether s is more severe than other
func (s Severity) IsHigherThan(other Severity) bool {
	return s > other
}
