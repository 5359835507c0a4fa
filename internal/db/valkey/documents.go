package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/faqindex/internal/db"
)

const (
	defaultRefreshTimeout = 5 * time.Second
	defaultRefreshPoll    = 50 * time.Millisecond
)

// IndexDocument stores body as a JSON document under KeyPrefix(index) plus a random UUID.
func (s *Store) IndexDocument(ctx context.Context, index string, body []byte) (string, error) {
	key := KeyPrefix(index) + uuid.NewString()
	cmd := s.b().Arbitrary("JSON.SET").Keys(key).Args("$", string(body)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return "", &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return key, nil
}

// Refresh waits until the search module has caught up with every JSON.SET so far.
// Some valkey-search builds index writes in the background; FT.INFO reports
// that through "indexing", "backfill_in_progress" or "percent_indexed".
func (s *Store) Refresh(ctx context.Context, index string) error {
	timeout, poll := s.refreshTimeout, s.refreshPoll
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	if poll <= 0 {
		poll = defaultRefreshPoll
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		raw, err := s.ftInfo(ctx, index)
		if err != nil {
			return err
		}
		if !stillIndexing(raw) {
			return nil
		}
		select {
		case <-ctx.Done():
			return &db.Error{Op: db.OpIndexInfo, Err: fmt.Errorf("index %s still indexing: %w", index, ctx.Err())}
		case <-ticker.C:
		}
	}
}

// Count returns num_docs reported by FT.INFO.
func (s *Store) Count(ctx context.Context, index string) (int64, error) {
	raw, err := s.ftInfo(ctx, index)
	if err != nil {
		return 0, err
	}
	return parseNumDocs(raw)
}

func (s *Store) ftInfo(ctx context.Context, index string) ([]rueidis.RedisMessage, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(index).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "not found") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return raw, nil
}

// stillIndexing scans a flat FT.INFO reply for a background indexing marker.
func stillIndexing(raw []rueidis.RedisMessage) bool {
	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		switch key {
		case "indexing", "backfill_in_progress":
			if n, err := raw[i+1].AsInt64(); err == nil && n != 0 {
				return true
			}
		case "percent_indexed":
			if f, err := raw[i+1].AsFloat64(); err == nil && f < 1 {
				return true
			}
		}
	}
	return false
}

// parseNumDocs scans the flat FT.INFO reply for num_docs.
// Redis reports it as a bulk string, Valkey as an integer; AsInt64 accepts both.
func parseNumDocs(raw []rueidis.RedisMessage) (int64, error) {
	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil || key != "num_docs" {
			continue
		}
		n, err := raw[i+1].AsInt64()
		if err != nil {
			return 0, fmt.Errorf("parse num_docs: %w", err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("num_docs missing from FT.INFO reply")
}
