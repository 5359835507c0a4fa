// Package embedding resolves the sentence embedding model used by the pipeline.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/faqindex/internal/domain"
)

// sampleText is embedded once at load time to resolve the model and learn its output size.
const sampleText = "model load check"

// Model is a loaded embedding model. Encode is deterministic for a given
// model and holds no per-call state, so a Model may be reused across runs.
type Model struct {
	name     string
	dims     int
	embedder domain.Embedder
}

// Load resolves the model behind embedder by encoding a sample string.
// When dims is positive the model must produce vectors of exactly that size.
// Every failure is a domain.ErrModelLoad stage error.
func Load(ctx context.Context, name string, dims int, embedder domain.Embedder) (*Model, error) {
	if name == "" {
		return nil, domain.NewStageError(domain.ErrModelLoad, errors.New("model name is required"))
	}
	if embedder == nil {
		return nil, domain.NewStageError(domain.ErrModelLoad, errors.New("embedding provider is not configured"))
	}

	res, err := embedder.Embed(ctx, sampleText)
	if err != nil {
		return nil, domain.NewStageError(domain.ErrModelLoad, fmt.Errorf("resolve model %q: %w", name, err))
	}

	got := len(res.Embedding)
	if got == 0 {
		return nil, domain.NewStageError(domain.ErrModelLoad, fmt.Errorf("model %q returned an empty vector", name))
	}
	if dims > 0 && got != dims {
		return nil, domain.NewStageError(domain.ErrModelLoad,
			fmt.Errorf("model %q produces %d-dim vectors, index expects %d: %w",
				name, got, dims, domain.ErrVectorDimMismatch))
	}

	return &Model{name: name, dims: got, embedder: embedder}, nil
}

// Name returns the model identifier.
func (m *Model) Name() string { return m.name }

// Dimensions returns the vector size produced by Encode.
func (m *Model) Dimensions() int { return m.dims }

// Encode maps text to its embedding.
func (m *Model) Encode(ctx context.Context, text string) ([]float32, error) {
	res, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return res.Embedding, nil
}
