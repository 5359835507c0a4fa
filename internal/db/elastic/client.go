// Package elastic implements db.Engine on Elasticsearch via the official go-elasticsearch client.
package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"

	"github.com/kailas-cloud/faqindex/internal/db"
)

// Compile-time checks.
var (
	_ db.Engine        = (*Store)(nil)
	_ db.MappingReader = (*Store)(nil)
)

// Config holds connection parameters for an Elasticsearch store.
type Config struct {
	URL      string
	Username string
	Password string
	APIKey   string
	// Transport overrides the HTTP transport (tests, custom TLS).
	Transport http.RoundTripper
}

// Store implements db.Engine via the low-level esapi client.
type Store struct {
	client *elasticsearch.Client
}

// NewStore creates an Elasticsearch store. No request is made until the first call.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("url is required")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity with GET /.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Info(s.client.Info.WithContext(ctx))
	if err := checkResponse(db.OpESInfo, res, err); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	_ = res.Body.Close()
	return nil
}

// Close is a no-op: the client keeps no state beyond the pooled HTTP transport.
func (s *Store) Close() {}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// apiError is the error envelope returned by Elasticsearch.
type apiError struct {
	Status int `json:"status"`
	Error  struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// ResponseError is a non-2xx Elasticsearch response.
type ResponseError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s: %s", e.StatusCode, e.Type, e.Reason)
}

// checkResponse turns a transport error or an error status into a *db.Error.
// On success the caller still owns res.Body.
func checkResponse(op string, res *esapi.Response, err error) error {
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	if !res.IsError() {
		return nil
	}
	defer func() { _ = res.Body.Close() }()

	respErr := &ResponseError{StatusCode: res.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var parsed apiError
	if json.Unmarshal(body, &parsed) == nil {
		respErr.Type = parsed.Error.Type
		respErr.Reason = parsed.Error.Reason
	}
	return &db.Error{Op: op, Err: respErr}
}

// errorType extracts the Elasticsearch error type from a checkResponse error.
func errorType(err error) string {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.Type
	}
	return ""
}

func decodeBody(res *esapi.Response, v any) error {
	defer func() { _ = res.Body.Close() }()
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
