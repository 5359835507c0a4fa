// Package index provisions the knowledge base index on the search engine.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/faqindex/internal/db"
	"github.com/kailas-cloud/faqindex/internal/domain"
	"github.com/kailas-cloud/faqindex/internal/domain/schema"
	"github.com/kailas-cloud/faqindex/internal/logger"
)

// ErrFieldsUnsupported is returned by Fields when the engine cannot report its mapping.
var ErrFieldsUnsupported = errors.New("engine does not expose index mappings")

// store is the consumer interface for index provisioning (ISP).
type store interface {
	Ping(ctx context.Context) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// HNSWConfig HNSW index parameters. Engines without HNSW tuning ignore them.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Provisioner deletes and recreates the knowledge base index.
type Provisioner struct {
	store store
	hnsw  HNSWConfig
}

// New creates a provisioner.
func New(s store) *Provisioner {
	return &Provisioner{store: s, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (p *Provisioner) WithHNSW(cfg HNSWConfig) *Provisioner {
	if cfg.M > 0 {
		p.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		p.hnsw.EFConstruct = cfg.EFConstruct
	}
	return p
}

// Setup drops the named index if it exists and creates it from sch.
// Every document previously in the index is lost. Calling Setup twice leaves
// the same empty index as calling it once. Failures are domain.ErrIndexProvision.
func (p *Provisioner) Setup(ctx context.Context, name string, sch schema.Schema) error {
	log := logger.FromContext(ctx).With(zap.String("index", name))

	if err := sch.Validate(); err != nil {
		return provisionErr(fmt.Errorf("invalid schema: %w", err))
	}

	if err := p.store.Ping(ctx); err != nil {
		return provisionErr(fmt.Errorf("engine unreachable: %w", err))
	}

	textSearch := p.store.SupportsTextSearch(ctx)
	if !textSearch {
		log.Warn("Engine lacks full-text search, text fields are indexed as tags")
	}

	def, err := buildIndex(name, sch, textSearch, p.hnsw)
	if err != nil {
		return provisionErr(err)
	}

	start := time.Now()
	switch err := p.store.DropIndex(ctx, name); {
	case err == nil:
		log.Info("Existing index deleted")
	case errors.Is(err, db.ErrIndexNotFound):
		log.Debug("No existing index to delete")
	default:
		return provisionErr(fmt.Errorf("delete index %s: %w", name, err))
	}

	if err := p.store.CreateIndex(ctx, def); err != nil {
		return provisionErr(fmt.Errorf("create index %s: %w", name, err))
	}

	log.Info("Index created",
		zap.Int("fields", len(def.Fields)),
		zap.Int("shards", def.Shards),
		zap.Int("replicas", def.Replicas),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Exists reports whether the named index is present.
func (p *Provisioner) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := p.store.IndexExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", name, err)
	}
	return ok, nil
}

// Fields reads back the field mapping of the named index, sorted by name.
func (p *Provisioner) Fields(ctx context.Context, name string) ([]schema.Field, error) {
	mr, ok := p.store.(db.MappingReader)
	if !ok {
		return nil, ErrFieldsUnsupported
	}

	fields, err := mr.IndexFields(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", name, err)
	}
	return fieldsFromIndex(fields)
}

func provisionErr(err error) error {
	return domain.NewStageError(domain.ErrIndexProvision, err)
}
