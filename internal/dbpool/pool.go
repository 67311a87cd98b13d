// Package dbpool implements C4: the set of pgxpool.Pool instances the
// engine draws connections from. It generalizes the teacher's Storage
// interface (pkg/store/storage.go: one interface in front of one
// embedded-KV handle) to three independently-sized pgxpool.Pool handles
// fronting one PostgreSQL database, because spec §4.4 calls for
// admin/shared-read/dedicated-write pools with different lifetimes and
// sizes rather than one shared handle.
package dbpool

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aleksaelezovic/vitalgraph/internal/vgconfig"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
)

// Pool names one of the three pools a Set manages (spec §4.4).
type Pool int

const (
	Admin Pool = iota
	SharedRead
	DedicatedWrite
)

func (p Pool) String() string {
	switch p {
	case Admin:
		return "admin"
	case SharedRead:
		return "shared-read"
	case DedicatedWrite:
		return "dedicated-write"
	default:
		return "unknown"
	}
}

// Set wraps the three pools used across the engine: a small pool for DDL
// and admin operations, a large pool for concurrent SPARQL reads, and a
// small pool reserved for write transactions so write connections are
// never starved by read traffic.
type Set struct {
	admin *pgxpool.Pool
	read  *pgxpool.Pool
	write *pgxpool.Pool
}

// Open builds all three pools from cfg and pings each, failing fast if
// any cannot connect (spec §4.4, §6: "database connection parameters").
func Open(ctx context.Context, cfg vgconfig.Database) (*Set, error) {
	const op = "dbpool.Open"

	admin, err := newPool(ctx, cfg.DSN, cfg.AdminPoolSize)
	if err != nil {
		return nil, vgerr.New(vgerr.Connectivity, op, fmt.Errorf("admin pool: %w", err))
	}
	read, err := newPool(ctx, cfg.DSN, cfg.SharedReadPoolSize)
	if err != nil {
		admin.Close()
		return nil, vgerr.New(vgerr.Connectivity, op, fmt.Errorf("shared-read pool: %w", err))
	}
	write, err := newPool(ctx, cfg.DSN, cfg.DedicatedWritePoolSize)
	if err != nil {
		admin.Close()
		read.Close()
		return nil, vgerr.New(vgerr.Connectivity, op, fmt.Errorf("dedicated-write pool: %w", err))
	}

	return &Set{admin: admin, read: read, write: write}, nil
}

func newPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Close closes all three pools. Safe to call once during shutdown.
func (s *Set) Close() {
	s.admin.Close()
	s.read.Close()
	s.write.Close()
}

// Pool returns the raw *pgxpool.Pool for which, for callers (internal/txn,
// internal/schema) that need direct pgx access rather than a leased
// connection.
func (s *Set) Pool(which Pool) *pgxpool.Pool {
	switch which {
	case Admin:
		return s.admin
	case SharedRead:
		return s.read
	case DedicatedWrite:
		return s.write
	default:
		return nil
	}
}

// Acquire leases one connection from the named pool. Callers must call
// Release on the returned connection.
func (s *Set) Acquire(ctx context.Context, which Pool) (*pgxpool.Conn, error) {
	p := s.Pool(which)
	if p == nil {
		return nil, vgerr.Errorf(vgerr.Internal, "dbpool.Acquire", "unknown pool %v", which)
	}
	conn, err := p.Acquire(ctx)
	if err != nil {
		return nil, vgerr.New(vgerr.Connectivity, "dbpool.Acquire", err)
	}
	return conn, nil
}

// Stats reports the pool's current total and idle connection counts, for
// admin/observability surfaces.
func (s *Set) Stats(which Pool) (total, idle int32) {
	p := s.Pool(which)
	if p == nil {
		return 0, 0
	}
	st := p.Stat()
	return st.TotalConns(), st.IdleConns()
}
