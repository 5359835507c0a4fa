// Package source fetches the FAQ document collection.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/faqindex/internal/domain"
	"github.com/kailas-cloud/faqindex/internal/logger"
)

// DefaultURL is the published documents-with-ids collection of the course FAQ.
const DefaultURL = "https://github.com/DataTalksClub/llm-zoomcamp/blob/main/03-vector-search/eval/documents-with-ids.json?raw=1"

// maxBodySize caps the payload read from the source.
const maxBodySize = 64 << 20

// Source reads the document collection with a single GET.
type Source struct {
	url    string
	client *http.Client
}

// New creates a Source for url. A nil client gets a 60s-timeout default.
func New(url string, client *http.Client) *Source {
	if url == "" {
		url = DefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Source{url: url, client: client}
}

// URL returns the address the source reads from.
func (s *Source) URL() string { return s.url }

// Fetch performs one GET and returns the documents in payload order.
// Transport failures and non-2xx statuses are domain.ErrNetwork stage errors;
// a body that is not a JSON array of document objects is domain.ErrParse.
// No retry, no pagination, no caching.
func (s *Source) Fetch(ctx context.Context) ([]domain.Document, error) {
	log := logger.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, domain.NewStageError(domain.ErrNetwork, fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewStageError(domain.ErrNetwork, fmt.Errorf("get %s: %w", s.url, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewStageError(domain.ErrNetwork,
			fmt.Errorf("get %s: unexpected status %d", s.url, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, domain.NewStageError(domain.ErrNetwork, fmt.Errorf("read body: %w", err))
	}
	if len(body) > maxBodySize {
		return nil, domain.NewStageError(domain.ErrParse, fmt.Errorf("payload exceeds %d bytes", maxBodySize))
	}

	docs, err := Parse(body)
	if err != nil {
		return nil, err
	}

	log.Info("Documents fetched",
		zap.String("url", s.url),
		zap.Int("documents", len(docs)),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return docs, nil
}

// Parse decodes a JSON array of document objects, preserving order.
func Parse(data []byte) ([]domain.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, domain.NewStageError(domain.ErrParse, errors.New("payload is not a JSON array"))
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, domain.NewStageError(domain.ErrParse, fmt.Errorf("decode array: %w", err))
	}

	docs := make([]domain.Document, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, domain.NewStageError(domain.ErrParse, fmt.Errorf("element %d is not an object", i))
		}
		var doc domain.Document
		if err := json.Unmarshal(item, &doc); err != nil {
			return nil, domain.NewStageError(domain.ErrParse, fmt.Errorf("decode element %d: %w", i, err))
		}
		doc.QuestionTextVector = nil
		docs = append(docs, doc)
	}
	return docs, nil
}
