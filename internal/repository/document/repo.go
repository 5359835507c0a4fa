// Package document writes knowledge base documents to the search index.
package document

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/faqindex/internal/domain"
)

// store is the consumer interface for documents (ISP).
type store interface {
	IndexDocument(ctx context.Context, index string, body []byte) (string, error)
	Refresh(ctx context.Context, index string) error
	Count(ctx context.Context, index string) (int64, error)
}

// Repo writes one document per request.
type Repo struct {
	store store
	dims  int
}

// New creates a document repository. Every written vector must have dims components.
func New(s store, dims int) *Repo {
	return &Repo{store: s, dims: dims}
}

// Write stores doc in index and returns the engine-assigned key.
// The vector length is checked against the schema before the request is sent.
func (r *Repo) Write(ctx context.Context, index string, doc *domain.Document) (string, error) {
	if got := len(doc.QuestionTextVector); got != r.dims {
		return "", fmt.Errorf("%s has %d components, index expects %d: %w",
			domain.VectorField, got, r.dims, domain.ErrVectorDimMismatch)
	}

	data, err := json.Marshal(buildJSONDoc(doc))
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	key, err := r.store.IndexDocument(ctx, index, data)
	if err != nil {
		return "", fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	return key, nil
}

// Refresh makes all writes visible to Count.
func (r *Repo) Refresh(ctx context.Context, index string) error {
	if err := r.store.Refresh(ctx, index); err != nil {
		return fmt.Errorf("refresh %s: %w", index, err)
	}
	return nil
}

// Count returns the number of documents the engine holds in index.
func (r *Repo) Count(ctx context.Context, index string) (int64, error) {
	n, err := r.store.Count(ctx, index)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", index, err)
	}
	return n, nil
}
