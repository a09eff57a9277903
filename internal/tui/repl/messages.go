// ============================================================================
// Pascal - Klammerausdruck-Evaluator
// ============================================================================
//
// Package:     repl
// Description: Message types for async evaluation in the REPL
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package repl

import (
	"time"
)

// Entry is one evaluated input line
type Entry struct {
	Expression string
	Value      int
	Err        error
	Strict     bool
	Duration   time.Duration
	Timestamp  time.Time
}

// OK reports whether the expression evaluated to a value
func (e Entry) OK() bool {
	return e.Err == nil
}

// evalResultMsg is sent when an evaluation finished
type evalResultMsg struct {
	entry Entry
}

// historySavedMsg is sent after the input history was written
type historySavedMsg struct {
	err error
}
