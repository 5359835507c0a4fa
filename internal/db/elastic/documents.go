package elastic

import (
	"bytes"
	"context"
	"errors"

	"github.com/kailas-cloud/faqindex/internal/db"
)

// IndexDocument writes one document with an engine-assigned _id and returns it.
func (s *Store) IndexDocument(ctx context.Context, index string, body []byte) (string, error) {
	res, err := s.client.Index(index, bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
	)
	if err := checkResponse(db.OpESIndex, res, err); err != nil {
		return "", err
	}

	var parsed struct {
		ID     string `json:"_id"`
		Result string `json:"result"`
	}
	if err := decodeBody(res, &parsed); err != nil {
		return "", &db.Error{Op: db.OpESIndex, Err: err}
	}
	if parsed.ID == "" {
		return "", &db.Error{Op: db.OpESIndex, Err: errors.New("response carries no _id")}
	}
	return parsed.ID, nil
}

// Refresh makes every indexed document visible to search and count.
func (s *Store) Refresh(ctx context.Context, index string) error {
	res, err := s.client.Indices.Refresh(
		s.client.Indices.Refresh.WithContext(ctx),
		s.client.Indices.Refresh.WithIndex(index),
	)
	if err := checkResponse(db.OpESRefresh, res, err); err != nil {
		return err
	}
	_ = res.Body.Close()
	return nil
}

// Count returns the number of searchable documents in index.
func (s *Store) Count(ctx context.Context, index string) (int64, error) {
	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(index),
	)
	if err := checkResponse(db.OpESCount, res, err); err != nil {
		if errorType(err) == "index_not_found_exception" {
			return 0, db.ErrIndexNotFound
		}
		return 0, err
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := decodeBody(res, &parsed); err != nil {
		return 0, &db.Error{Op: db.OpESCount, Err: err}
	}
	return parsed.Count, nil
}
