package domain

import (
	"errors"
	"fmt"
)

// Pipeline stage errors. Every one of them is fatal to a run.
var (
	// ErrConfig signals missing or invalid configuration.
	ErrConfig = errors.New("configuration error")
	// ErrNetwork signals a failed document source read.
	ErrNetwork = errors.New("network error")
	// ErrParse signals a malformed document payload.
	ErrParse = errors.New("parse error")
	// ErrModelLoad signals an embedding model that cannot be resolved or loaded.
	ErrModelLoad = errors.New("model load error")
	// ErrIndexProvision signals a failed index delete or create.
	ErrIndexProvision = errors.New("index provision error")
	// ErrIngestion signals an embedding or write failure inside the ingestion loop.
	ErrIngestion = errors.New("ingestion error")
	// ErrCountMismatch signals that the engine holds a different number of documents than were written.
	ErrCountMismatch = errors.New("indexed document count mismatch")
	// ErrDatabaseInit signals a failed auxiliary database initialisation.
	ErrDatabaseInit = errors.New("database init error")
)

var (
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrDuplicateID signals repeated document ids in a fetched collection.
	ErrDuplicateID = errors.New("duplicate document id")
)

// StageError tags a cause with one of the stage sentinels.
// errors.Is matches both the sentinel and the cause.
type StageError struct {
	Kind error
	Err  error
}

func (e *StageError) Error() string { return e.Kind.Error() + ": " + e.Err.Error() }

func (e *StageError) Unwrap() []error { return []error{e.Kind, e.Err} }

// NewStageError wraps err with a stage sentinel. A nil err yields nil.
func NewStageError(kind, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Err: err}
}

// IngestionError reports the document that aborted an ingestion run.
type IngestionError struct {
	Position   int // 1-based position in the fetched sequence
	DocumentID string
	Step       string // "embed" or "write"
	Err        error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("%s: document %d (id %q): %s: %v",
		ErrIngestion.Error(), e.Position, e.DocumentID, e.Step, e.Err)
}

func (e *IngestionError) Unwrap() []error { return []error{ErrIngestion, e.Err} }

// CountMismatchError carries both sides of a failed count verification.
type CountMismatchError struct {
	Written int
	Indexed int64
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%s: wrote %d, index reports %d", ErrCountMismatch.Error(), e.Written, e.Indexed)
}

func (e *CountMismatchError) Unwrap() error { return ErrCountMismatch }
