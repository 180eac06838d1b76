package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]Record
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{docs: map[string]map[string]Record{}, now: time.Now}
}

func (m *Memory) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" || rec.PartitionKey == "" {
		return fmt.Errorf("upsert: id and partitionKey are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[rec.PartitionKey]
	if !ok {
		doc = map[string]Record{}
		m.docs[rec.PartitionKey] = doc
	}
	rec.UpdatedAt = m.now()
	doc[rec.ID] = cloneRecord(rec)
	return nil
}

func (m *Memory) Get(ctx context.Context, docID, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.docs[docID][id]
	if !ok {
		return Record{}, fmt.Errorf("record %q in %q: %w", id, docID, ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (m *Memory) Query(ctx context.Context, docID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[docID]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", docID, ErrNotFound)
	}
	out := make([]Record, 0, len(doc))
	for _, r := range doc {
		out = append(out, cloneRecord(r))
	}
	sortRecords(out)
	return out, nil
}

func (m *Memory) Documents(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.docs))
	for id := range m.docs {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (m *Memory) DeleteDocument(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[docID]; !ok {
		return fmt.Errorf("document %q: %w", docID, ErrNotFound)
	}
	delete(m.docs, docID)
	return nil
}

func cloneRecord(r Record) Record {
	r.TOCEntries = slices.Clone(r.TOCEntries)
	r.Requirements = slices.Clone(r.Requirements)
	return r
}
