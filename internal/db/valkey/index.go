package valkey

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/kailas-cloud/faqindex/internal/db"
)

const scanCount = 500

// KeyPrefix returns the key prefix under which documents of index are stored.
func KeyPrefix(index string) string {
	return index + ":"
}

// CreateIndex creates an FT index from the given definition.
// Without explicit prefixes the index covers KeyPrefix(def.Name).
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index and every document stored under its prefix.
// Documents are purged even when the index itself is already gone.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	var dropErr error
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if !isRedisErr(err, "unknown index name") && !isRedisErr(err, "not found") {
			return &db.Error{Op: db.OpDropIndex, Err: err}
		}
		dropErr = db.ErrIndexNotFound
	}

	if err := s.purge(ctx, KeyPrefix(name)+"*"); err != nil {
		return err
	}
	return dropErr
}

// IndexExists checks index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "not found") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// SupportsTextSearch reports whether TEXT fields are enabled (Redis 8+; valkey-search 1.0 lacks them).
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return s.textSearch
}

func (s *Store) purge(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanCount).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return &db.Error{Op: db.OpScan, Err: err}
		}
		if len(res.Elements) > 0 {
			del := s.b().Del().Key(res.Elements...).Build()
			if err := s.do(ctx, del).Error(); err != nil {
				return &db.Error{Op: db.OpDel, Err: err}
			}
		}
		cursor = res.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if idx.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	args := []string{idx.Name}

	storage := idx.StorageType
	if storage == "" {
		storage = db.StorageJSON
	}
	args = append(args, "ON", string(storage))

	prefixes := idx.Prefixes
	if len(prefixes) == 0 {
		prefixes = []string{KeyPrefix(idx.Name)}
	}
	args = append(args, "PREFIX", strconv.Itoa(len(prefixes)))
	args = append(args, prefixes...)

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i], storage)
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *db.IndexField, storage db.StorageType) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	name, alias := f.Name, f.Alias
	// JSON documents are addressed by path; keep the plain name as the attribute.
	if storage == db.StorageJSON && !strings.HasPrefix(name, "$") {
		if alias == "" {
			alias = name
		}
		name = "$." + name
	}

	args := []string{name}
	if alias != "" {
		args = append(args, "AS", alias)
	}

	switch f.Type {
	case db.IndexFieldText:
		args = append(args, "TEXT")

	case db.IndexFieldTag:
		args = append(args, "TAG", "CASESENSITIVE")

	case db.IndexFieldVector:
		vectorArgs, err := buildVectorFieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, vectorArgs...)

	default:
		return nil, errors.New("unknown field type")
	}

	return args, nil
}

func buildVectorFieldArgs(f *db.IndexField) ([]string, error) {
	if f.VectorDim <= 0 {
		return nil, errors.New("vector DIM must be positive")
	}

	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorHNSW
	}

	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}

	if algo == db.VectorHNSW {
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	}

	result := make([]string, 0, 3+len(attrs))
	result = append(result, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	result = append(result, attrs...)

	return result, nil
}
