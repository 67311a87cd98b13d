// Package vgconfig defines the plain options record the engine consumes.
// Parsing it from a file or environment is out of scope (spec §1); the
// caller builds an Options value however it likes and hands it to the
// constructors in internal/dbpool, internal/bulkload, and internal/notify.
package vgconfig

import "time"

// Database holds connection parameters for the relational backend.
type Database struct {
	DSN string

	AdminPoolSize          int32
	SharedReadPoolSize     int32
	DedicatedWritePoolSize int32

	AdminPoolTimeout  time.Duration
	ReadPoolTimeout   time.Duration
	WritePoolTimeout  time.Duration
}

// DefaultDatabase returns sane pool sizes per spec §4.4 ("admin: small;
// shared-read: large; dedicated-write: small").
func DefaultDatabase(dsn string) Database {
	return Database{
		DSN:                    dsn,
		AdminPoolSize:          4,
		SharedReadPoolSize:     32,
		DedicatedWritePoolSize: 8,
		AdminPoolTimeout:       10 * time.Second,
		ReadPoolTimeout:        30 * time.Second,
		WritePoolTimeout:       0, // bulk loads: no deadline unless the caller sets one
	}
}

// TablePrefix scopes all table names for one installation (spec §4.3).
type Schema struct {
	TablePrefix string
}

// BulkLoad holds defaults for the C6 pipeline.
type BulkLoad struct {
	BatchSize        int
	ProgressInterval time.Duration
	Unlogged         bool
	ConcurrentIndex  bool
	MaxPathDepth     int
}

// DefaultBulkLoad matches spec §4.6/§4.9 defaults ("tens of thousands",
// "a few hundred").
func DefaultBulkLoad() BulkLoad {
	return BulkLoad{
		BatchSize:        50_000,
		ProgressInterval: 5 * time.Second,
		Unlogged:         false,
		ConcurrentIndex:  false,
		MaxPathDepth:     300,
	}
}

// NotifierBackend selects the C11 implementation.
type NotifierBackend int

const (
	NotifierInProcess NotifierBackend = iota
	NotifierPGListenNotify
)

// Options is the top-level record the engine core consumes (spec §6).
type Options struct {
	Database          Database
	Schema            Schema
	BulkLoad          BulkLoad
	NotifierBackend   NotifierBackend
	MaxConflictRetries int
	TermCacheCapacity  int64
}

// Default returns an Options value with every section set to its
// documented default, for the dsn given.
func Default(dsn string) Options {
	return Options{
		Database:           DefaultDatabase(dsn),
		Schema:             Schema{TablePrefix: "vg"},
		BulkLoad:           DefaultBulkLoad(),
		NotifierBackend:    NotifierInProcess,
		MaxConflictRetries: 3,
		TermCacheCapacity:  300_000,
	}
}
