package embedding

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/faqindex/internal/domain"
)

// Usage is the token consumption accumulated by an InstrumentedEmbedder.
type Usage struct {
	Requests     int64
	PromptTokens int64
	TotalTokens  int64
}

// InstrumentedEmbedder wraps an Embedder with logging and per-run usage accounting.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger

	requests     atomic.Int64
	promptTokens atomic.Int64
	totalTokens  atomic.Int64
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Embed delegates to the inner embedder and records usage.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	p.requests.Add(1)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.promptTokens.Add(int64(result.PromptTokens))
	p.totalTokens.Add(int64(result.TotalTokens))

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// Usage returns the accumulated counters.
func (p *InstrumentedEmbedder) Usage() Usage {
	return Usage{
		Requests:     p.requests.Load(),
		PromptTokens: p.promptTokens.Load(),
		TotalTokens:  p.totalTokens.Load(),
	}
}
