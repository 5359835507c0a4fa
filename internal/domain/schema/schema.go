// Package schema describes the knowledge base index independently of the search engine.
package schema

import (
	"errors"
	"fmt"
)

// FieldType is the indexing type of a field.
type FieldType string

// Field type constants.
const (
	// Text is a full-text searchable field.
	Text FieldType = "text"
	// Keyword is an exact-match categorical field.
	Keyword FieldType = "keyword"
	// DenseVector is a fixed-length float vector compared by similarity.
	DenseVector FieldType = "dense_vector"
)

// Similarity is the vector comparison metric.
type Similarity string

// Similarity constants.
const (
	Cosine     Similarity = "cosine"
	DotProduct Similarity = "dot_product"
	L2Norm     Similarity = "l2_norm"
)

// Field is one entry of the field-mapping table.
type Field struct {
	Name       string
	Type       FieldType
	Dims       int        // DenseVector only
	Similarity Similarity // DenseVector only
	Indexed    bool       // DenseVector only
}

// Schema is the complete index configuration. It is recreated wholesale on every run.
type Schema struct {
	Shards   int
	Replicas int
	Fields   []Field
}

// KnowledgeBase returns the FAQ index schema with a vector field of the given dimensionality.
func KnowledgeBase(dims int) Schema {
	return Schema{
		Shards:   1,
		Replicas: 0,
		Fields: []Field{
			{Name: "text", Type: Text},
			{Name: "section", Type: Text},
			{Name: "question", Type: Text},
			{Name: "course", Type: Keyword},
			{Name: "id", Type: Keyword},
			{Name: "question_text_vector", Type: DenseVector, Dims: dims, Similarity: Cosine, Indexed: true},
		},
	}
}

// Validate checks that the schema is well-formed.
func (s Schema) Validate() error {
	if s.Shards < 1 {
		return fmt.Errorf("shards must be positive, got %d", s.Shards)
	}
	if s.Replicas < 0 {
		return fmt.Errorf("replicas must not be negative, got %d", s.Replicas)
	}
	if len(s.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("field name is required at index %d", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case Text, Keyword:
		case DenseVector:
			if f.Dims <= 0 {
				return fmt.Errorf("vector field %s requires positive dims", f.Name)
			}
			switch f.Similarity {
			case Cosine, DotProduct, L2Norm:
			default:
				return fmt.Errorf("vector field %s: unknown similarity %q", f.Name, f.Similarity)
			}
		default:
			return fmt.Errorf("field %s: unknown type %q", f.Name, f.Type)
		}
	}
	return nil
}

// VectorField returns the first dense vector field.
func (s Schema) VectorField() (Field, bool) {
	for _, f := range s.Fields {
		if f.Type == DenseVector {
			return f, true
		}
	}
	return Field{}, false
}
