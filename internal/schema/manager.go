package schema

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// Querier is the minimal surface the manager needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so a Manager can run DDL either against the
// admin pool directly or inside a caller-supplied transaction — mirroring
// the teacher's Storage interface (pkg/store/storage.go), generalized
// from one embedded-KV handle to "anything that can Exec/Query".
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Manager implements C3 over a Querier.
type Manager struct {
	db    Querier
	codec *termcodec.Codec
}

// NewManager builds a Manager. db is typically the admin pool (see
// internal/dbpool) or an active transaction when DDL must participate in
// a larger atomic operation (spec §4.12's index toggle around a load).
func NewManager(db Querier) *Manager {
	return &Manager{db: db, codec: termcodec.New()}
}

// InitInstallation creates the four installation-wide admin tables if
// absent (spec §4.9). Safe to call on every process start.
func (m *Manager) InitInstallation(ctx context.Context) error {
	for _, stmt := range installLevelDDL() {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			return vgerr.New(vgerr.Schema, "schema.InitInstallation", err)
		}
	}
	return nil
}

// EnsureInstall returns the id of the install row for prefix, creating one
// if this is the first process to ever initialize this table prefix (spec
// §4.9: every space row carries install_id; space.Manager needs one before
// it can create its first space). Safe to call concurrently from multiple
// processes sharing the same prefix: the unique lookup-then-insert is not
// itself race-free against a concurrent first run, but a duplicate insert
// only costs a second, orphaned install row, never a correctness failure,
// since nothing besides the FK to space/user depends on using the "right"
// one.
func (m *Manager) EnsureInstall(ctx context.Context, prefix string) (uuid.UUID, error) {
	const op = "schema.EnsureInstall"

	rows, err := m.db.Query(ctx, `SELECT id FROM install WHERE table_prefix = $1 ORDER BY created_at LIMIT 1`, prefix)
	if err != nil {
		return uuid.UUID{}, vgerr.New(vgerr.Schema, op, err)
	}
	var id uuid.UUID
	found := false
	for rows.Next() {
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return uuid.UUID{}, vgerr.New(vgerr.Schema, op, err)
		}
		found = true
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return uuid.UUID{}, vgerr.New(vgerr.Schema, op, err)
	}
	if found {
		return id, nil
	}

	id = uuid.New()
	if _, err := m.db.Exec(ctx, `INSERT INTO install (id, table_prefix) VALUES ($1, $2)`, id, prefix); err != nil {
		return uuid.UUID{}, vgerr.New(vgerr.Schema, op, err)
	}
	return id, nil
}

// CreateSpaceTables idempotently provisions term/rdf_quad/namespace for
// spaceID plus every index in the authoritative set (spec §4.3). Indexes
// are created non-concurrently here; RecreateIndexesAfterBulkLoad handles
// the concurrent path after a bulk load.
func (m *Manager) CreateSpaceTables(ctx context.Context, prefix, spaceID string, opts Options) error {
	const op = "schema.CreateSpaceTables"
	if err := ValidateSpaceID(spaceID); err != nil {
		return err
	}
	n := NewNames(prefix, spaceID)

	stmts := []string{
		createTermTableSQL(n),
		createQuadTableSQL(n, opts.Unlogged),
		createNamespaceTableSQL(n),
	}
	for _, stmt := range stmts {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			return vgerr.New(vgerr.Schema, op, err)
		}
	}

	typeUUID := m.codec.EncodeURI(rdf.RDFType.IRI)
	for _, stmt := range indexDDL(n, false, typeUUID.String()) {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			return vgerr.New(vgerr.Schema, op, err)
		}
	}
	return nil
}

// DropSpaceTables drops all three per-space tables for spaceID in one
// call (spec §4.3: "drops all per-space tables in one transaction" — the
// caller is expected to invoke this inside a Txn when atomicity with
// other statements matters; CASCADE handles the quad->term FK).
func (m *Manager) DropSpaceTables(ctx context.Context, prefix, spaceID string) error {
	n := NewNames(prefix, spaceID)
	for _, name := range []string{n.Quad, n.Term, n.Ns} {
		if _, err := m.db.Exec(ctx, dropTableSQL(name)); err != nil {
			return vgerr.New(vgerr.Schema, "schema.DropSpaceTables", err)
		}
	}
	return nil
}

// DropIndexesForBulkLoad drops every index in the authoritative set,
// leaving the primary key and uniqueness constraints intact (spec §4.3,
// §4.6: "the canonical index toggle used by the loader").
func (m *Manager) DropIndexesForBulkLoad(ctx context.Context, prefix, spaceID string) error {
	n := NewNames(prefix, spaceID)
	for _, idx := range n.IndexNames() {
		if _, err := m.db.Exec(ctx, dropIndexSQL(idx)); err != nil {
			return vgerr.New(vgerr.Schema, "schema.DropIndexesForBulkLoad", err)
		}
	}
	return nil
}

// RecreateIndexesAfterBulkLoad rebuilds the authoritative index set,
// optionally with CREATE INDEX CONCURRENTLY to avoid blocking readers
// (spec §4.3, §4.12).
func (m *Manager) RecreateIndexesAfterBulkLoad(ctx context.Context, prefix, spaceID string, concurrent bool) error {
	n := NewNames(prefix, spaceID)
	typeUUID := m.codec.EncodeURI(rdf.RDFType.IRI)
	for _, stmt := range indexDDL(n, concurrent, typeUUID.String()) {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			return vgerr.New(vgerr.Schema, "schema.RecreateIndexesAfterBulkLoad", err)
		}
	}
	return nil
}

// IsPartitioned reports whether spaceID's quad table is itself declared as
// a PostgreSQL partitioned table, the probe internal/importop's AUTO
// method selection uses (spec §4.12, matching the Python original's
// `_determine_import_method`'s `pg_partitioned_table` check).
func (m *Manager) IsPartitioned(ctx context.Context, prefix, spaceID string) (bool, error) {
	n := NewNames(prefix, spaceID)
	rows, err := m.db.Query(ctx,
		`SELECT 1 FROM pg_partitioned_table WHERE partrelid = $1::regclass`, n.Quad)
	if err != nil {
		return false, vgerr.New(vgerr.Schema, "schema.IsPartitioned", err)
	}
	defer rows.Close()
	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, vgerr.New(vgerr.Schema, "schema.IsPartitioned", err)
	}
	return found, nil
}

// CreateLoadPartitionTable provisions a fresh, unindexed staging table for
// the zero-copy partition import path (spec §4.12).
func (m *Manager) CreateLoadPartitionTable(ctx context.Context, prefix, spaceID, partitionTable string) error {
	n := NewNames(prefix, spaceID)
	if _, err := m.db.Exec(ctx, createLoadPartitionTableSQL(n, partitionTable)); err != nil {
		return vgerr.New(vgerr.Schema, "schema.CreateLoadPartitionTable", err)
	}
	return nil
}

// AttachQuadPartition attaches partitionTable to spaceID's quad table as
// the RANGE partition covering [from, to) on added_at, completing the
// zero-copy import (spec §4.12). Only valid when IsPartitioned reported
// true for this space.
func (m *Manager) AttachQuadPartition(ctx context.Context, prefix, spaceID, partitionTable string, from, to time.Time) error {
	n := NewNames(prefix, spaceID)
	stmt := attachPartitionSQL(n.Quad, partitionTable, from.Format(time.RFC3339Nano), to.Format(time.RFC3339Nano))
	if _, err := m.db.Exec(ctx, stmt); err != nil {
		return vgerr.New(vgerr.Schema, "schema.AttachQuadPartition", err)
	}
	return nil
}

// ListTables introspects pg_tables for every table owned by prefix across
// all spaces, for admin tooling (spec §4.3's list_tables).
func (m *Manager) ListTables(ctx context.Context, prefix string) ([]string, error) {
	rows, err := m.db.Query(ctx,
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename LIKE $1 ORDER BY tablename`,
		prefix+"__%")
	if err != nil {
		return nil, vgerr.New(vgerr.Schema, "schema.ListTables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, vgerr.New(vgerr.Schema, "schema.ListTables", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, vgerr.New(vgerr.Schema, "schema.ListTables", err)
	}
	return tables, nil
}
