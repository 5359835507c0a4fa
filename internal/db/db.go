package db

import (
	"context"
	"time"
)

// Engine is the search engine facade combining all sub-interfaces.
type Engine interface {
	Pinger
	IndexManager
	DocumentStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// MappingReader reads back the field mapping of an existing index.
// Optional: not every engine exposes it.
type MappingReader interface {
	IndexFields(ctx context.Context, name string) ([]IndexField, error)
}

// DocumentStore writes and counts JSON documents in an index.
type DocumentStore interface {
	// IndexDocument stores body under an engine-assigned key and returns that key.
	IndexDocument(ctx context.Context, index string, body []byte) (string, error)
	// Refresh makes every write so far visible to Count.
	Refresh(ctx context.Context, index string) error
	Count(ctx context.Context, index string) (int64, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
