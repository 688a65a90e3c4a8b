package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind names an artifact category. Each pipeline run writes one artifact
// per kind per symbol; older versions are never overwritten.
type Kind string

const (
	KindRaw       Kind = "raw"
	KindFeatures  Kind = "features"
	KindForecast  Kind = "forecast"
	KindInsight   Kind = "insight"
	KindSentiment Kind = "sentiment"
	KindModel     Kind = "model"
)

// Artifact is one versioned, append-only pipeline output. AsOf is the run
// timestamp and doubles as the version key: (symbol, kind, as_of) is unique.
type Artifact struct {
	Symbol      string    `json:"symbol"`
	Kind        Kind      `json:"kind"`
	AsOf        time.Time `json:"as_of"`
	Payload     []byte    `json:"payload"`
	GeneratedAt time.Time `json:"generated_at"`
}

// RunRecord is the persisted report of one pipeline run.
type RunRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Report     []byte    `json:"report"`
}

// ErrNotFound is returned when no artifact (or latest pointer) exists for
// the requested key.
var ErrNotFound = errors.New("artifact not found")

// StoreError wraps a persistence failure with the operation that caused it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store is the artifact persistence port. Writes are append-only; readers
// see a consistent "latest" view per symbol and kind that only moves
// forward when AdvanceLatest commits.
// ⭐ SSOT: all pipeline output persistence goes through this interface
type Store interface {
	// Put appends one artifact version. Re-putting the same
	// (symbol, kind, as_of) replaces the payload, which keeps retried
	// runs idempotent.
	Put(ctx context.Context, a *Artifact) error

	// Get retrieves one exact artifact version.
	Get(ctx context.Context, symbol string, kind Kind, asOf time.Time) (*Artifact, error)

	// GetLatest resolves the latest pointer for (symbol, kind) and returns
	// that artifact. ErrNotFound when the pointer was never advanced.
	GetLatest(ctx context.Context, symbol string, kind Kind) (*Artifact, error)

	// AdvanceLatest moves the latest pointers for one symbol to the given
	// as_of versions in a single transaction: readers never observe a
	// half-advanced symbol.
	AdvanceLatest(ctx context.Context, symbol string, kinds []Kind, asOf time.Time) error

	// PutRun persists a pipeline run report.
	PutRun(ctx context.Context, r *RunRecord) error

	// LatestRun returns the most recently finished run record.
	LatestRun(ctx context.Context) (*RunRecord, error)

	// Close releases underlying resources.
	Close()
}
