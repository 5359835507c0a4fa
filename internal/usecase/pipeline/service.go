// Package pipeline orchestrates a full indexing run:
// fetch, model load, index provisioning, ingestion, verification, database init.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/faqindex/internal/domain"
	"github.com/kailas-cloud/faqindex/internal/domain/schema"
	"github.com/kailas-cloud/faqindex/internal/logger"
	"github.com/kailas-cloud/faqindex/internal/metrics"
	"github.com/kailas-cloud/faqindex/internal/usecase/ingest"
)

// Stage names used in logs and metrics.
const (
	StageFetch     = "fetch"
	StageModelLoad = "model_load"
	StageProvision = "provision"
	StageIngest    = "ingest"
	StageVerify    = "verify"
	StageDBInit    = "db_init"
)

// Options configures a run.
type Options struct {
	Index  string
	Schema schema.Schema
	// VerifyCount compares the engine document count with the number written.
	VerifyCount bool
	// RejectDuplicateIDs fails the run before any write when ids repeat.
	RejectDuplicateIDs bool
}

// Result summarises a successful run.
type Result struct {
	Fetched    int
	Written    int
	Indexed    int64 // -1 when verification is disabled
	Duplicates []string
	Duration   time.Duration
}

// Service runs the indexing pipeline.
type Service struct {
	source      DocumentSource
	models      ModelLoader
	provisioner IndexProvisioner
	ingester    DocumentIngester
	counter     IndexCounter
	database    DatabaseInitializer
	opts        Options
}

// New creates a pipeline. counter may be nil when opts.VerifyCount is false.
func New(
	source DocumentSource,
	models ModelLoader,
	provisioner IndexProvisioner,
	ingester DocumentIngester,
	counter IndexCounter,
	database DatabaseInitializer,
	opts Options,
) *Service {
	return &Service{
		source:      source,
		models:      models,
		provisioner: provisioner,
		ingester:    ingester,
		counter:     counter,
		database:    database,
		opts:        opts,
	}
}

// Run executes every stage once, in order, stopping at the first failure.
func (s *Service) Run(ctx context.Context) (Result, error) {
	log := logger.FromContext(ctx).With(zap.String("index", s.opts.Index))
	start := time.Now()
	res := Result{Indexed: -1}

	var docs []domain.Document
	err := s.stage(ctx, StageFetch, func(ctx context.Context) error {
		var err error
		docs, err = s.source.Fetch(ctx)
		return err
	})
	if err != nil {
		return res, err
	}
	res.Fetched = len(docs)
	metrics.DocumentsFetched.Set(float64(len(docs)))

	res.Duplicates = domain.DuplicateIDs(docs)
	if len(res.Duplicates) > 0 {
		log.Warn("Document ids are not unique, each occurrence is indexed separately",
			zap.Int("duplicated_ids", len(res.Duplicates)),
			zap.Strings("ids", truncate(res.Duplicates, 20)),
		)
		if s.opts.RejectDuplicateIDs {
			return res, domain.NewStageError(domain.ErrIngestion,
				fmt.Errorf("%d ids occur more than once: %w", len(res.Duplicates), domain.ErrDuplicateID))
		}
	}

	var model ingest.Encoder
	err = s.stage(ctx, StageModelLoad, func(ctx context.Context) error {
		var err error
		model, err = s.models.LoadModel(ctx)
		return err
	})
	if err != nil {
		return res, err
	}

	if err := s.stage(ctx, StageProvision, func(ctx context.Context) error {
		return s.provisioner.Setup(ctx, s.opts.Index, s.opts.Schema)
	}); err != nil {
		return res, err
	}

	err = s.stage(ctx, StageIngest, func(ctx context.Context) error {
		var err error
		res.Written, err = s.ingester.IndexDocuments(ctx, s.opts.Index, docs, model)
		return err
	})
	if err != nil {
		return res, err
	}

	if s.opts.VerifyCount && s.counter != nil {
		if err := s.stage(ctx, StageVerify, func(ctx context.Context) error {
			n, err := s.verify(ctx, res.Written)
			res.Indexed = n
			return err
		}); err != nil {
			return res, err
		}
	}

	if err := s.InitDatabase(ctx); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	log.Info("Pipeline finished",
		zap.Int("fetched", res.Fetched),
		zap.Int("written", res.Written),
		zap.Int64("indexed", res.Indexed),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Provision only recreates the index.
func (s *Service) Provision(ctx context.Context) error {
	return s.stage(ctx, StageProvision, func(ctx context.Context) error {
		return s.provisioner.Setup(ctx, s.opts.Index, s.opts.Schema)
	})
}

// InitDatabase only runs the database initialiser.
func (s *Service) InitDatabase(ctx context.Context) error {
	if s.database == nil {
		return nil
	}
	return s.stage(ctx, StageDBInit, s.database.Init)
}

func (s *Service) verify(ctx context.Context, written int) (int64, error) {
	if err := s.counter.Refresh(ctx, s.opts.Index); err != nil {
		return -1, domain.NewStageError(domain.ErrCountMismatch, fmt.Errorf("refresh: %w", err))
	}
	n, err := s.counter.Count(ctx, s.opts.Index)
	if err != nil {
		return -1, domain.NewStageError(domain.ErrCountMismatch, fmt.Errorf("count: %w", err))
	}
	metrics.IndexDocumentCount.WithLabelValues(s.opts.Index).Set(float64(n))
	if n != int64(written) {
		return n, &domain.CountMismatchError{Written: written, Indexed: n}
	}
	return n, nil
}

// stage runs fn with timing, metrics and start/end logging.
func (s *Service) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	log := logger.FromContext(ctx).With(zap.String("stage", name))
	log.Info("Stage started")

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)
	metrics.StageDuration.WithLabelValues(name).Observe(duration.Seconds())

	if err != nil {
		metrics.StageFailuresTotal.WithLabelValues(name).Inc()
		if errors.Is(err, context.Canceled) {
			log.Warn("Stage cancelled", zap.Duration("duration", duration))
		}
		return err
	}

	log.Info("Stage finished", zap.Duration("duration", duration))
	return nil
}

func truncate(ids []string, n int) []string {
	if len(ids) <= n {
		return ids
	}
	return ids[:n]
}
