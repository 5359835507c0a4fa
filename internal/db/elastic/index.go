package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/kailas-cloud/faqindex/internal/db"
)

// Elasticsearch mapping type names.
const (
	typeText        = "text"
	typeKeyword     = "keyword"
	typeDenseVector = "dense_vector"
)

type createIndexBody struct {
	Settings indexSettings `json:"settings"`
	Mappings mappings      `json:"mappings"`
}

type indexSettings struct {
	NumberOfShards   int `json:"number_of_shards"`
	NumberOfReplicas int `json:"number_of_replicas"`
}

type mappings struct {
	Properties map[string]property `json:"properties"`
}

type property struct {
	Type       string `json:"type"`
	Dims       int    `json:"dims,omitempty"`
	Index      *bool  `json:"index,omitempty"`
	Similarity string `json:"similarity,omitempty"`
}

// CreateIndex creates an index with settings and mappings derived from def.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	body, err := buildCreateBody(def)
	if err != nil {
		return err
	}

	res, err := s.client.Indices.Create(def.Name,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err := checkResponse(db.OpESCreateIndex, res, err); err != nil {
		if errorType(err) == "resource_already_exists_exception" {
			return db.ErrIndexExists
		}
		return err
	}
	_ = res.Body.Close()
	return nil
}

// DropIndex deletes an index. A missing index yields db.ErrIndexNotFound.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	res, err := s.client.Indices.Delete([]string{name},
		s.client.Indices.Delete.WithContext(ctx),
	)
	if err := checkResponse(db.OpESDeleteIndex, res, err); err != nil {
		if errorType(err) == "index_not_found_exception" || isStatus(err, http.StatusNotFound) {
			return db.ErrIndexNotFound
		}
		return err
	}
	_ = res.Body.Close()
	return nil
}

// IndexExists checks index existence with HEAD /{index}.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := s.client.Indices.Exists([]string{name},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, &db.Error{Op: db.OpESIndexExists, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &db.Error{Op: db.OpESIndexExists, Err: &ResponseError{StatusCode: res.StatusCode}}
	}
}

// SupportsTextSearch is always true: text fields are native to Elasticsearch.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return true
}

// IndexFields reads back the index mapping as engine-neutral fields, sorted by name.
func (s *Store) IndexFields(ctx context.Context, name string) ([]db.IndexField, error) {
	res, err := s.client.Indices.GetMapping(
		s.client.Indices.GetMapping.WithContext(ctx),
		s.client.Indices.GetMapping.WithIndex(name),
	)
	if err := checkResponse(db.OpESGetMapping, res, err); err != nil {
		if errorType(err) == "index_not_found_exception" {
			return nil, db.ErrIndexNotFound
		}
		return nil, err
	}

	var parsed map[string]struct {
		Mappings mappings `json:"mappings"`
	}
	if err := decodeBody(res, &parsed); err != nil {
		return nil, &db.Error{Op: db.OpESGetMapping, Err: err}
	}
	m, ok := parsed[name]
	if !ok {
		return nil, db.ErrIndexNotFound
	}

	fields := make([]db.IndexField, 0, len(m.Mappings.Properties))
	for fieldName, p := range m.Mappings.Properties {
		f, err := fieldFromProperty(fieldName, p)
		if err != nil {
			return nil, &db.Error{Op: db.OpESGetMapping, Err: err}
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields, nil
}

func buildCreateBody(def *db.IndexDefinition) ([]byte, error) {
	if def == nil {
		return nil, errors.New("index definition is required")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid index definition: %w", err)
	}

	props := make(map[string]property, len(def.Fields))
	for i := range def.Fields {
		f := &def.Fields[i]
		p, err := propertyFromField(f)
		if err != nil {
			return nil, err
		}
		props[f.FieldName()] = p
	}

	body := createIndexBody{
		Settings: indexSettings{
			NumberOfShards:   def.Shards,
			NumberOfReplicas: def.Replicas,
		},
		Mappings: mappings{Properties: props},
	}
	if body.Settings.NumberOfShards == 0 {
		body.Settings.NumberOfShards = 1
	}
	return json.Marshal(body)
}

func propertyFromField(f *db.IndexField) (property, error) {
	switch f.Type {
	case db.IndexFieldText:
		return property{Type: typeText}, nil
	case db.IndexFieldTag:
		return property{Type: typeKeyword}, nil
	case db.IndexFieldVector:
		sim, err := similarity(f.VectorDistance)
		if err != nil {
			return property{}, err
		}
		indexed := f.VectorIndexed
		return property{
			Type:       typeDenseVector,
			Dims:       f.VectorDim,
			Index:      &indexed,
			Similarity: sim,
		}, nil
	default:
		return property{}, fmt.Errorf("unsupported field type %s for %q", f.Type, f.Name)
	}
}

func fieldFromProperty(name string, p property) (db.IndexField, error) {
	switch p.Type {
	case typeText:
		return db.IndexField{Name: name, Type: db.IndexFieldText}, nil
	case typeKeyword:
		return db.IndexField{Name: name, Type: db.IndexFieldTag}, nil
	case typeDenseVector:
		dist, err := distance(p.Similarity)
		if err != nil {
			return db.IndexField{}, err
		}
		// dense_vector fields are indexed unless explicitly disabled
		indexed := p.Index == nil || *p.Index
		return db.IndexField{
			Name:           name,
			Type:           db.IndexFieldVector,
			VectorDim:      p.Dims,
			VectorDistance: dist,
			VectorIndexed:  indexed,
		}, nil
	default:
		return db.IndexField{}, fmt.Errorf("unsupported mapping type %q for %q", p.Type, name)
	}
}

func similarity(d db.DistanceMetric) (string, error) {
	switch d {
	case db.DistanceCosine, "":
		return "cosine", nil
	case db.DistanceIP:
		return "dot_product", nil
	case db.DistanceL2:
		return "l2_norm", nil
	default:
		return "", fmt.Errorf("unsupported distance metric %q", d)
	}
}

func distance(sim string) (db.DistanceMetric, error) {
	switch sim {
	case "cosine", "":
		return db.DistanceCosine, nil
	case "dot_product", "max_inner_product":
		return db.DistanceIP, nil
	case "l2_norm":
		return db.DistanceL2, nil
	default:
		return "", fmt.Errorf("unsupported similarity %q", sim)
	}
}

func isStatus(err error, code int) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
