package index

import (
	"fmt"

	"github.com/kailas-cloud/faqindex/internal/db"
	"github.com/kailas-cloud/faqindex/internal/domain/schema"
)

// buildIndex converts an engine-neutral schema into an IndexDefinition.
// Without text search support (valkey-search 1.0) text fields are indexed as tags.
func buildIndex(name string, sch schema.Schema, textSearchEnabled bool, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).OnJSON().Shards(sch.Shards).Replicas(sch.Replicas)

	for _, f := range sch.Fields {
		switch f.Type {
		case schema.Text:
			if textSearchEnabled {
				b.Text(f.Name)
			} else {
				b.Tag(f.Name)
			}
		case schema.Keyword:
			b.Tag(f.Name)
		case schema.DenseVector:
			dist, err := distanceMetric(f.Similarity)
			if err != nil {
				return nil, err
			}
			if f.Indexed {
				b.VectorHNSW(f.Name, f.Dims, dist, hnsw.M, hnsw.EFConstruct)
				continue
			}
			b.Field(db.IndexField{
				Name:           f.Name,
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorHNSW,
				VectorDim:      f.Dims,
				VectorDistance: dist,
			})
		default:
			return nil, fmt.Errorf("unknown field type: %s", f.Type)
		}
	}

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid index definition: %w", err)
	}
	return def, nil
}

// fieldsFromIndex converts engine fields back to schema fields.
func fieldsFromIndex(fields []db.IndexField) ([]schema.Field, error) {
	out := make([]schema.Field, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		switch f.Type {
		case db.IndexFieldText:
			out = append(out, schema.Field{Name: f.FieldName(), Type: schema.Text})
		case db.IndexFieldTag:
			out = append(out, schema.Field{Name: f.FieldName(), Type: schema.Keyword})
		case db.IndexFieldVector:
			sim, err := similarity(f.VectorDistance)
			if err != nil {
				return nil, err
			}
			out = append(out, schema.Field{
				Name:       f.FieldName(),
				Type:       schema.DenseVector,
				Dims:       f.VectorDim,
				Similarity: sim,
				Indexed:    f.VectorIndexed,
			})
		default:
			return nil, fmt.Errorf("unknown index field type: %s", f.Type)
		}
	}
	return out, nil
}

func distanceMetric(s schema.Similarity) (db.DistanceMetric, error) {
	switch s {
	case schema.Cosine:
		return db.DistanceCosine, nil
	case schema.DotProduct:
		return db.DistanceIP, nil
	case schema.L2Norm:
		return db.DistanceL2, nil
	default:
		return "", fmt.Errorf("unknown similarity: %q", s)
	}
}

func similarity(d db.DistanceMetric) (schema.Similarity, error) {
	switch d {
	case db.DistanceCosine:
		return schema.Cosine, nil
	case db.DistanceIP:
		return schema.DotProduct, nil
	case db.DistanceL2:
		return schema.L2Norm, nil
	default:
		return "", fmt.Errorf("unknown distance metric: %q", d)
	}
}
