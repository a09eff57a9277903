package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in memory. It backs tests and runs with
// persistence disabled.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	seq     map[string]uint64
	next    uint64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		seq:     make(map[string]uint64),
	}
}

// Add stores a copy of rec
func (m *MemoryStore) Add(ctx context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; exists {
		return errDuplicate(rec.ID)
	}
	m.next++
	m.records[rec.ID] = copyRecord(rec)
	m.seq[rec.ID] = m.next
	return nil
}

// Get retrieves a copy of a record
func (m *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

// List returns records newest first
func (m *MemoryStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return m.seq[all[i].ID] > m.seq[all[j].ID]
	})

	if offset < 0 {
		offset = 0
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + normalizeLimit(limit)
	if end > len(all) {
		end = len(all)
	}

	out := make([]*Record, 0, end-offset)
	for _, rec := range all[offset:end] {
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

// Delete removes a record
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	delete(m.seq, id)
	return nil
}

// Clear removes all records
func (m *MemoryStore) Clear(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.records))
	m.records = make(map[string]*Record)
	m.seq = make(map[string]uint64)
	return n, nil
}

// Statistics returns history statistics
func (m *MemoryStore) Statistics(ctx context.Context) (*Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Statistics{
		ByErrorCode: make(map[string]int64),
		BySource:    make(map[string]int64),
	}

	var total time.Duration
	for _, rec := range m.records {
		stats.Total++
		total += rec.Duration
		if rec.Succeeded() {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		if rec.ErrorCode != "" {
			stats.ByErrorCode[rec.ErrorCode]++
		}
		if rec.Source != "" {
			stats.BySource[rec.Source]++
		}
	}
	if stats.Total > 0 {
		stats.AvgDuration = total / time.Duration(stats.Total)
	}
	return stats, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

func copyRecord(rec *Record) *Record {
	c := *rec
	if rec.Value != nil {
		v := *rec.Value
		c.Value = &v
	}
	return &c
}

type errDuplicate string

func (e errDuplicate) Error() string {
	return "record " + string(e) + " already exists"
}
