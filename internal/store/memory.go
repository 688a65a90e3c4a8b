package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by unit tests and the
// STORE_BACKEND=memory configuration. Semantics mirror PostgresStore:
// append-only versions plus an atomically advanced latest view.
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[artifactKey]*Artifact
	latest    map[pointerKey]time.Time
	runs      []*RunRecord
}

type artifactKey struct {
	symbol string
	kind   Kind
	asOf   time.Time
}

type pointerKey struct {
	symbol string
	kind   Kind
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		artifacts: make(map[artifactKey]*Artifact),
		latest:    make(map[pointerKey]time.Time),
	}
}

// Put appends one artifact version.
func (s *MemoryStore) Put(_ context.Context, a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	cp.Payload = append([]byte(nil), a.Payload...)
	s.artifacts[artifactKey{a.Symbol, a.Kind, a.AsOf.UTC()}] = &cp
	return nil
}

// Get retrieves one exact artifact version.
func (s *MemoryStore) Get(_ context.Context, symbol string, kind Kind, asOf time.Time) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[artifactKey{symbol, kind, asOf.UTC()}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// GetLatest resolves the latest pointer and returns that artifact.
func (s *MemoryStore) GetLatest(_ context.Context, symbol string, kind Kind) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asOf, ok := s.latest[pointerKey{symbol, kind}]
	if !ok {
		return nil, ErrNotFound
	}
	a, ok := s.artifacts[artifactKey{symbol, kind, asOf}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// AdvanceLatest moves all latest pointers for the symbol atomically.
func (s *MemoryStore) AdvanceLatest(_ context.Context, symbol string, kinds []Kind, asOf time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range kinds {
		s.latest[pointerKey{symbol, kind}] = asOf.UTC()
	}
	return nil
}

// PutRun persists a pipeline run report.
func (s *MemoryStore) PutRun(_ context.Context, r *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.Report = append([]byte(nil), r.Report...)
	for i, existing := range s.runs {
		if existing.ID == r.ID {
			s.runs[i] = &cp
			return nil
		}
	}
	s.runs = append(s.runs, &cp)
	return nil
}

// LatestRun returns the most recently finished run record.
func (s *MemoryStore) LatestRun(context.Context) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runs) == 0 {
		return nil, ErrNotFound
	}
	latest := s.runs[0]
	for _, r := range s.runs[1:] {
		if r.FinishedAt.After(latest.FinishedAt) {
			latest = r
		}
	}
	cp := *latest
	return &cp, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() {}
