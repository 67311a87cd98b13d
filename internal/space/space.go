// Package space implements C10: the admin-facing lifecycle for a space
// (create/delete/list/exists/count), layered on C3's schema.Manager the
// way the teacher's cmd/trigo wires one store.TripleStore per process —
// generalized here to many independently-provisioned spaces sharing one
// PostgreSQL database, each with its own term/quad tables.
package space

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aleksaelezovic/vitalgraph/internal/notify"
	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/vgconfig"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
)

// Querier is the minimal surface Manager needs against the admin pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Info describes one registered space (spec §4.10).
type Info struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Manager implements C10 over the admin pool and an installation ID
// (every space row references install(id), per internal/schema/ddl.go).
type Manager struct {
	db        Querier
	schema    *schema.Manager
	installID string
	prefix    string
	notifier  notify.Notifier
}

// NewManager builds a space.Manager. pool is expected to be C4's admin
// pool (internal/dbpool.Set.Pool(dbpool.Admin)); n may be nil, in which
// case lifecycle events are simply not published.
func NewManager(pool *pgxpool.Pool, installID, tablePrefix string, n notify.Notifier) *Manager {
	return &Manager{
		db:        pool,
		schema:    schema.NewManager(pool),
		installID: installID,
		prefix:    tablePrefix,
		notifier:  n,
	}
}

// Create registers spaceID, provisions its tables via schema.Manager, and
// publishes notify.ChannelSpace/notify.ChannelSpaces on success (spec
// §4.10). Rejects a duplicate or too-long identifier; schema.Manager
// itself enforces the charset/length rule CreateSpaceTables shares with
// ValidateSpaceID.
func (m *Manager) Create(ctx context.Context, spaceID, name, description string, opts schema.Options) error {
	const op = "space.Create"
	if err := schema.ValidateSpaceID(spaceID); err != nil {
		return err
	}

	exists, err := m.Exists(ctx, spaceID)
	if err != nil {
		return err
	}
	if exists {
		return vgerr.New(vgerr.Validation, op, vgerr.ErrSpaceExists)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return vgerr.New(vgerr.Connectivity, op, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO space (id, install_id, name, description) VALUES ($1, $2, $3, $4)`,
		spaceID, m.installID, name, description); err != nil {
		return vgerr.New(vgerr.Integrity, op, err)
	}

	txSchema := schema.NewManager(tx)
	if err := txSchema.CreateSpaceTables(ctx, m.prefix, spaceID, opts); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return vgerr.New(vgerr.Conflict, op, err)
	}

	notify.PublishBestEffort(ctx, m.notifier, notify.ChannelSpace, notify.Event{Action: "created", ID: spaceID})
	notify.PublishBestEffort(ctx, m.notifier, notify.ChannelSpaces, notify.Event{Action: "list_changed"})
	return nil
}

// Delete drops spaceID's admin row and its per-space tables in one
// transaction, rejecting an unknown space (spec §4.10).
func (m *Manager) Delete(ctx context.Context, spaceID string) error {
	const op = "space.Delete"
	exists, err := m.Exists(ctx, spaceID)
	if err != nil {
		return err
	}
	if !exists {
		return vgerr.New(vgerr.Validation, op, vgerr.ErrNoSuchSpace)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return vgerr.New(vgerr.Connectivity, op, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	txSchema := schema.NewManager(tx)
	if err := txSchema.DropSpaceTables(ctx, m.prefix, spaceID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM graph WHERE space_id = $1`, spaceID); err != nil {
		return vgerr.New(vgerr.Integrity, op, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM space WHERE id = $1`, spaceID); err != nil {
		return vgerr.New(vgerr.Integrity, op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return vgerr.New(vgerr.Conflict, op, err)
	}

	notify.PublishBestEffort(ctx, m.notifier, notify.ChannelSpace, notify.Event{Action: "deleted", ID: spaceID})
	notify.PublishBestEffort(ctx, m.notifier, notify.ChannelSpaces, notify.Event{Action: "list_changed"})
	return nil
}

// Exists reports whether spaceID is registered.
func (m *Manager) Exists(ctx context.Context, spaceID string) (bool, error) {
	var exists bool
	err := m.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM space WHERE id = $1)`, spaceID).Scan(&exists)
	if err != nil {
		return false, vgerr.New(vgerr.Internal, "space.Exists", err)
	}
	return exists, nil
}

// List returns every registered space, ordered by creation time.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	const op = "space.List"
	rows, err := m.db.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM space WHERE install_id = $1 ORDER BY created_at`,
		m.installID)
	if err != nil {
		return nil, vgerr.New(vgerr.Internal, op, err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var i Info
		if err := rows.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, vgerr.New(vgerr.Internal, op, err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, vgerr.New(vgerr.Internal, op, err)
	}
	return out, nil
}

// GetQuadCount reports the number of quads currently stored in spaceID
// (spec §4.10), delegating the actual count to the per-space quad table
// schema.Manager already knows the name of.
func (m *Manager) GetQuadCount(ctx context.Context, spaceID string) (int64, error) {
	n := schema.NewNames(m.prefix, spaceID)
	var count int64
	err := m.db.QueryRow(ctx, `SELECT count(*) FROM `+pgIdent(n.Quad)).Scan(&count)
	if err != nil {
		return 0, vgerr.New(vgerr.Internal, "space.GetQuadCount", err)
	}
	return count, nil
}

func pgIdent(name string) string {
	return `"` + name + `"`
}

// DefaultOptions exposes vgconfig's bulk-load unlogged/concurrent-index
// defaults as schema.Options, for callers (cmd/vitalgraphd) that create a
// space without tuning those flags explicitly.
func DefaultOptions(cfg vgconfig.BulkLoad) schema.Options {
	return schema.Options{Unlogged: cfg.Unlogged, ConcurrentIndex: cfg.ConcurrentIndex}
}
