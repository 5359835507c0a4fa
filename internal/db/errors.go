package db

import "errors"

// Sentinel errors for engine operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op constants name the engine command for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpJSONSet     = "JSON.SET"
	OpDel         = "DEL"
	OpScan        = "SCAN"
	OpGet         = "GET"
	OpSet         = "SET"

	OpESInfo        = "GET /"
	OpESCreateIndex = "PUT /{index}"
	OpESDeleteIndex = "DELETE /{index}"
	OpESIndexExists = "HEAD /{index}"
	OpESGetMapping  = "GET /{index}/_mapping"
	OpESIndex       = "POST /{index}/_doc"
	OpESRefresh     = "POST /{index}/_refresh"
	OpESCount       = "GET /{index}/_count"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
