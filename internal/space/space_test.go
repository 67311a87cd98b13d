package space

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/vgconfig"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
)

// fakeRow is a pgx.Row stand-in that scans a fixed set of values in order.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch v := d.(type) {
		case *bool:
			*v = r.vals[i].(bool)
		case *int64:
			*v = r.vals[i].(int64)
		default:
			panic("fakeRow: unsupported scan target")
		}
	}
	return nil
}

// fakeAdmin records issued statements and serves canned QueryRow results,
// enough to exercise space.Manager's read paths and its pre-transaction
// validation without a live database.
type fakeAdmin struct {
	stmts    []string
	rowFor   func(sql string, args ...any) pgx.Row
	beginErr error
}

func (f *fakeAdmin) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	return pgconn.NewCommandTag(""), nil
}

func (f *fakeAdmin) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.stmts = append(f.stmts, sql)
	return nil, nil
}

func (f *fakeAdmin) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.stmts = append(f.stmts, sql)
	if f.rowFor != nil {
		return f.rowFor(sql, args...)
	}
	return fakeRow{}
}

func (f *fakeAdmin) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, f.beginErr
}

func TestManager_Exists(t *testing.T) {
	fa := &fakeAdmin{rowFor: func(sql string, args ...any) pgx.Row {
		return fakeRow{vals: []any{true}}
	}}
	m := &Manager{db: fa, schema: schema.NewManager(fa), installID: "inst", prefix: "vg"}

	ok, err := m.Exists(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected Exists to report true")
	}
}

func TestManager_Create_RejectsInvalidSpaceID(t *testing.T) {
	fa := &fakeAdmin{}
	m := &Manager{db: fa, schema: schema.NewManager(fa), installID: "inst", prefix: "vg"}

	err := m.Create(context.Background(), "Bad Id", "name", "", schema.Options{})
	if err == nil {
		t.Fatal("expected an error for an invalid space id")
	}
	if len(fa.stmts) != 0 {
		t.Fatalf("expected no statements issued before validation fails, got %d", len(fa.stmts))
	}
}

func TestManager_Create_RejectsDuplicate(t *testing.T) {
	fa := &fakeAdmin{rowFor: func(sql string, args ...any) pgx.Row {
		return fakeRow{vals: []any{true}}
	}}
	m := &Manager{db: fa, schema: schema.NewManager(fa), installID: "inst", prefix: "vg"}

	err := m.Create(context.Background(), "s1", "name", "", schema.Options{})
	if !errors.Is(err, vgerr.ErrSpaceExists) {
		t.Fatalf("expected ErrSpaceExists, got %v", err)
	}
}

func TestManager_Delete_RejectsUnknownSpace(t *testing.T) {
	fa := &fakeAdmin{rowFor: func(sql string, args ...any) pgx.Row {
		return fakeRow{vals: []any{false}}
	}}
	m := &Manager{db: fa, schema: schema.NewManager(fa), installID: "inst", prefix: "vg"}

	err := m.Delete(context.Background(), "nope")
	if !errors.Is(err, vgerr.ErrNoSuchSpace) {
		t.Fatalf("expected ErrNoSuchSpace, got %v", err)
	}
}

func TestManager_GetQuadCount(t *testing.T) {
	fa := &fakeAdmin{rowFor: func(sql string, args ...any) pgx.Row {
		return fakeRow{vals: []any{int64(42)}}
	}}
	m := &Manager{db: fa, schema: schema.NewManager(fa), installID: "inst", prefix: "vg"}

	n, err := m.GetQuadCount(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 42 {
		t.Errorf("GetQuadCount = %d, want 42", n)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions(vgconfig.BulkLoad{Unlogged: true, ConcurrentIndex: true})
	if !opts.Unlogged || !opts.ConcurrentIndex {
		t.Errorf("DefaultOptions did not carry through bulk-load flags: %+v", opts)
	}
}

func TestInfo_FieldsRoundTrip(t *testing.T) {
	now := time.Now()
	i := Info{ID: "s1", Name: "n", Description: "d", CreatedAt: now, UpdatedAt: now}
	if i.ID != "s1" || i.Name != "n" {
		t.Fatalf("unexpected Info: %+v", i)
	}
}
