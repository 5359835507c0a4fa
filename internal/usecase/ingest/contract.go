package ingest

import (
	"context"

	"github.com/kailas-cloud/faqindex/internal/domain"
)

// Encoder maps text to a dense vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Sink writes a single document to the index and returns the engine key.
type Sink interface {
	Write(ctx context.Context, index string, doc *domain.Document) (string, error)
}
