package pipeline

import (
	"context"

	"github.com/kailas-cloud/faqindex/internal/domain"
	"github.com/kailas-cloud/faqindex/internal/domain/schema"
	"github.com/kailas-cloud/faqindex/internal/usecase/ingest"
)

// DocumentSource fetches the document collection.
type DocumentSource interface {
	Fetch(ctx context.Context) ([]domain.Document, error)
}

// ModelLoader loads the embedding model.
type ModelLoader interface {
	LoadModel(ctx context.Context) (ingest.Encoder, error)
}

// ModelLoaderFunc adapts a function to ModelLoader.
type ModelLoaderFunc func(ctx context.Context) (ingest.Encoder, error)

// LoadModel calls f.
func (f ModelLoaderFunc) LoadModel(ctx context.Context) (ingest.Encoder, error) { return f(ctx) }

// IndexProvisioner recreates the index.
type IndexProvisioner interface {
	Setup(ctx context.Context, name string, sch schema.Schema) error
}

// DocumentIngester embeds and writes documents.
type DocumentIngester interface {
	IndexDocuments(ctx context.Context, index string, docs []domain.Document, model ingest.Encoder) (int, error)
}

// IndexCounter reads back the number of indexed documents.
type IndexCounter interface {
	Refresh(ctx context.Context, index string) error
	Count(ctx context.Context, index string) (int64, error)
}

// DatabaseInitializer prepares the application database.
type DatabaseInitializer interface {
	Init(ctx context.Context) error
}
