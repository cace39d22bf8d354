package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound      = errors.New("db: key not found")
	ErrKeyExists        = errors.New("db: key already exists")
	ErrIndexExists      = errors.New("db: index already exists")
	ErrIndexUnsupported = errors.New("db: secondary indexes not supported")
)

// Op constants name the failing command or statement for error context.
const (
	OpPing        = "PING"
	OpCreateIndex = "FT.CREATE"
	OpJSONSet     = "JSON.SET"
	OpJSONGet     = "JSON.GET"
	OpCreateTable = "CREATE TABLE"
	OpInsert      = "INSERT"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
