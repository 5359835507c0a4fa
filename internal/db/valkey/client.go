// Package valkey implements db.Engine on Valkey or Redis with the search module, via rueidis.
package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/faqindex/internal/db"
)

// Compile-time checks.
var (
	_ db.Engine  = (*Store)(nil)
	_ db.KVStore = (*Store)(nil)
)

// Config holds connection parameters for a Valkey store.
type Config struct {
	// URL is a redis:// or rediss:// connection string. Takes precedence over Addrs.
	URL      string
	Addrs    []string
	Password string
	// TextSearch enables TEXT fields in FT.CREATE (Redis 8+ only).
	TextSearch bool
}

// Store implements db.Engine via rueidis.
type Store struct {
	client     rueidis.Client
	textSearch bool

	// Refresh bounds; zero means defaultRefreshTimeout and defaultRefreshPoll.
	refreshTimeout time.Duration
	refreshPoll    time.Duration
}

// NewStore creates a Valkey store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	var opt rueidis.ClientOption
	switch {
	case cfg.URL != "":
		parsed, err := rueidis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		opt = parsed
	case len(cfg.Addrs) > 0:
		opt = rueidis.ClientOption{InitAddress: cfg.Addrs, Password: cfg.Password}
	default:
		return nil, fmt.Errorf("url or addrs is required")
	}
	opt.DisableCache = true
	opt.AlwaysRESP2 = true // FT.INFO parsing expects RESP2 array format

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, textSearch: cfg.TextSearch}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for valkey: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr checks if err is a server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
