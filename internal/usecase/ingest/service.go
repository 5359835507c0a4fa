// Package ingest embeds documents and writes them to the search index one at a time.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/faqindex/internal/domain"
	"github.com/kailas-cloud/faqindex/internal/logger"
	"github.com/kailas-cloud/faqindex/internal/metrics"
)

// DefaultProgressEvery is the number of documents between progress log lines.
const DefaultProgressEvery = 100

// Step names reported in domain.IngestionError.
const (
	StepEmbed = "embed"
	StepWrite = "write"
)

// Service is the sequential ingestion driver.
type Service struct {
	sink          Sink
	progressEvery int
}

// New creates an ingestion driver writing through sink.
func New(sink Sink) *Service {
	return &Service{sink: sink, progressEvery: DefaultProgressEvery}
}

// WithProgressEvery configures how often progress is logged.
func (s *Service) WithProgressEvery(n int) *Service {
	if n > 0 {
		s.progressEvery = n
	}
	return s
}

// IndexDocuments embeds each document, sets its vector in place and writes it,
// strictly in input order. The first failure aborts the run with a
// *domain.IngestionError; documents before it stay in the index.
// Returns the number of documents written.
func (s *Service) IndexDocuments(
	ctx context.Context, index string, docs []domain.Document, model Encoder,
) (int, error) {
	log := logger.FromContext(ctx).With(zap.String("index", index))
	log.Info("Ingestion started", zap.Int("documents", len(docs)))

	start := time.Now()
	written := 0
	indexed := metrics.DocumentsIndexedTotal.WithLabelValues(index)

	for i := range docs {
		doc := &docs[i]
		pos := i + 1

		if err := ctx.Err(); err != nil {
			return written, &domain.IngestionError{Position: pos, DocumentID: doc.ID, Step: StepEmbed, Err: err}
		}

		if err := embedDocument(ctx, model, doc); err != nil {
			return written, &domain.IngestionError{Position: pos, DocumentID: doc.ID, Step: StepEmbed, Err: err}
		}

		if _, err := s.sink.Write(ctx, index, doc); err != nil {
			return written, &domain.IngestionError{Position: pos, DocumentID: doc.ID, Step: StepWrite, Err: err}
		}

		written++
		indexed.Inc()

		if written%s.progressEvery == 0 {
			log.Info("Ingestion progress",
				zap.Int("written", written),
				zap.Int("total", len(docs)),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
	}

	log.Info("Ingestion finished",
		zap.Int("written", written),
		zap.Duration("duration", time.Since(start)),
	)
	return written, nil
}

// embedDocument computes the document vector from its embedding input.
func embedDocument(ctx context.Context, model Encoder, doc *domain.Document) error {
	vec, err := model.Encode(ctx, doc.EmbeddingInput())
	if err != nil {
		return err
	}
	doc.QuestionTextVector = vec
	return nil
}
