// Package txn implements C5, the transaction manager. It generalizes the
// teacher's Begin/Commit/Rollback triad (pkg/store/storage.go's Storage
// and Transaction interfaces; internal/storage/badger.go's concrete
// badger.Txn wrapper) from a boolean writable flag plus one KV txn object
// to a full Txn value that owns one dedicated connection and a pgx.Tx for
// its lifetime, with the counters and dirty-cache bookkeeping spec §4.5
// mandates.
package txn

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aleksaelezovic/vitalgraph/internal/dbpool"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
)

// Txn is a single write transaction: one dedicated connection, one pgx.Tx,
// and the bookkeeping spec §4.5 requires (id, start time, active flag,
// counters, dirtied caches).
type Txn struct {
	ID        uuid.UUID
	StartedAt time.Time

	active atomic.Bool

	QuadsAdded int64
	TermsAdded int64

	mu          sync.Mutex
	dirtyCaches map[string]struct{} // space IDs whose cache entries this Txn may have invalidated

	conn *pgxpool.Conn
	pgTx pgx.Tx
}

// IsActive reports whether the transaction has neither committed nor
// rolled back.
func (t *Txn) IsActive() bool { return t.active.Load() }

// Tx exposes the underlying pgx.Tx for callers (internal/bulkload,
// internal/quadapi, internal/sparql/translate) that need to issue SQL
// within this transaction's scope.
func (t *Txn) Tx() pgx.Tx { return t.pgTx }

// MarkCacheDirty records that spaceID's term-cache entries may need
// invalidation once this Txn's outcome is known (spec §4.5's "the set of
// caches it has mutated").
func (t *Txn) MarkCacheDirty(spaceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dirtyCaches == nil {
		t.dirtyCaches = make(map[string]struct{})
	}
	t.dirtyCaches[spaceID] = struct{}{}
}

// DirtySpaces returns the set of space IDs MarkCacheDirty recorded.
func (t *Txn) DirtySpaces() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.dirtyCaches))
	for id := range t.dirtyCaches {
		out = append(out, id)
	}
	return out
}

// Manager tracks the set of active transactions and owns the dedicated
// write pool they draw connections from.
type Manager struct {
	pools *dbpool.Set

	mu     sync.Mutex
	active map[uuid.UUID]*Txn
}

// NewManager builds a Manager bound to pools' dedicated-write pool.
func NewManager(pools *dbpool.Set) *Manager {
	return &Manager{pools: pools, active: make(map[uuid.UUID]*Txn)}
}

// Begin leases a connection from the dedicated-write pool and starts a
// pgx.Tx, registering the resulting Txn in the active set (spec §4.5).
func (m *Manager) Begin(ctx context.Context) (*Txn, error) {
	const op = "txn.Begin"
	conn, err := m.pools.Acquire(ctx, dbpool.DedicatedWrite)
	if err != nil {
		return nil, err
	}
	pgTx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, vgerr.New(vgerr.Connectivity, op, err)
	}

	t := &Txn{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		conn:      conn,
		pgTx:      pgTx,
	}
	t.active.Store(true)

	m.mu.Lock()
	m.active[t.ID] = t
	m.mu.Unlock()

	return t, nil
}

// Commit commits t's pgx.Tx, releases its connection, and removes it from
// the active set. Commit on an already-inactive Txn is an error (spec
// §4.5's is_active flag).
func (m *Manager) Commit(ctx context.Context, t *Txn) error {
	if !t.active.CompareAndSwap(true, false) {
		return vgerr.New(vgerr.Internal, "txn.Commit", vgerr.ErrNotActive)
	}
	err := t.pgTx.Commit(ctx)
	t.conn.Release()
	m.forget(t.ID)
	if err != nil {
		return vgerr.New(vgerr.Conflict, "txn.Commit", err)
	}
	return nil
}

// Rollback rolls back t's pgx.Tx, releases its connection, and removes it
// from the active set. Rollback is idempotent: calling it on an already
// inactive Txn is a no-op, so defer Rollback() after a successful Commit
// is always safe.
func (m *Manager) Rollback(ctx context.Context, t *Txn) error {
	if !t.active.CompareAndSwap(true, false) {
		return nil
	}
	err := t.pgTx.Rollback(ctx)
	t.conn.Release()
	m.forget(t.ID)
	if err != nil {
		return vgerr.New(vgerr.Internal, "txn.Rollback", err)
	}
	return nil
}

func (m *Manager) forget(id uuid.UUID) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// RollbackAll rolls back every currently active transaction, used during
// shutdown or after a fatal connectivity error (spec §4.5). It snapshots
// the active set under a short-held lock before rolling each Txn back, so
// concurrent Begin/Commit calls never race a live map iteration.
func (m *Manager) RollbackAll(ctx context.Context) []error {
	m.mu.Lock()
	snapshot := make([]*Txn, 0, len(m.active))
	for _, t := range m.active {
		snapshot = append(snapshot, t)
	}
	m.mu.Unlock()

	var errs []error
	for _, t := range snapshot {
		if err := m.Rollback(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// WithTxn runs fn inside a new Txn, committing on a nil return and
// rolling back otherwise — the scoped-resource form of Begin/Commit/
// Rollback, modeled directly on the teacher's write-transaction call
// pattern in internal/storage/badger.go.
func (m *Manager) WithTxn(ctx context.Context, fn func(*Txn) error) error {
	t, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		_ = m.Rollback(ctx, t)
		return err
	}
	return m.Commit(ctx, t)
}

// Active reports the number of currently active transactions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
