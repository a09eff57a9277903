// ============================================================================
// Pascal - Klammerausdruck-Evaluator
// ============================================================================
//
// Package:     store
// Description: Persistence of evaluated expressions
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// DefaultListLimit applies when List is called with a limit <= 0
const DefaultListLimit = 50

// Record is one evaluated expression. Value is nil when evaluation failed,
// in which case ErrorCode and ErrorMessage describe the failure.
type Record struct {
	ID           string        `json:"id"`
	Expression   string        `json:"expression"`
	Value        *int          `json:"value,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Strict       bool          `json:"strict"`
	Duration     time.Duration `json:"duration"`
	Source       string        `json:"source,omitempty"`
	RequestID    string        `json:"request_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Succeeded reports whether the expression evaluated to a value
func (r *Record) Succeeded() bool {
	return r.Value != nil
}

// Statistics summarizes the stored history
type Statistics struct {
	Total       int64            `json:"total"`
	Succeeded   int64            `json:"succeeded"`
	Failed      int64            `json:"failed"`
	ByErrorCode map[string]int64 `json:"by_error_code"`
	BySource    map[string]int64 `json:"by_source"`
	AvgDuration time.Duration    `json:"avg_duration"`
}

// Store defines the interface for evaluation history persistence
type Store interface {
	Add(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns records newest first
	List(ctx context.Context, limit, offset int) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	// Clear removes all records and returns how many were removed
	Clear(ctx context.Context) (int64, error)
	Statistics(ctx context.Context) (*Statistics, error)
	Close() error
}

func prepare(rec *Record) error {
	if rec.ID == "" {
		return errors.New("record ID is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
