package schema

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeQuerier records every statement it is asked to Exec, so tests can
// assert on the DDL a Manager method issues without a live database.
type fakeQuerier struct {
	stmts   []string
	execErr error
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag(""), nil
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.stmts = append(f.stmts, sql)
	return nil, nil
}

func TestManager_CreateSpaceTables_IssuesTablesThenIndexes(t *testing.T) {
	fq := &fakeQuerier{}
	m := NewManager(fq)

	if err := m.CreateSpaceTables(context.Background(), "vg", "s1", Options{}); err != nil {
		t.Fatal(err)
	}

	if len(fq.stmts) != 3+10 {
		t.Fatalf("expected 3 table statements + 10 index statements, got %d", len(fq.stmts))
	}
	for i, want := range []string{"term", "rdf_quad", "namespace"} {
		if !strings.Contains(fq.stmts[i], want) {
			t.Errorf("statement %d = %q, want it to mention %q", i, fq.stmts[i], want)
		}
	}
	for _, stmt := range fq.stmts[3:] {
		if !strings.Contains(stmt, "CREATE") || !strings.Contains(stmt, "INDEX") {
			t.Errorf("expected an index statement, got %q", stmt)
		}
	}
}

func TestManager_CreateSpaceTables_RejectsBadSpaceID(t *testing.T) {
	fq := &fakeQuerier{}
	m := NewManager(fq)
	if err := m.CreateSpaceTables(context.Background(), "vg", "Bad Id", Options{}); err == nil {
		t.Fatal("expected an error for an invalid space id")
	}
	if len(fq.stmts) != 0 {
		t.Fatalf("expected no statements to be issued for an invalid space id, got %d", len(fq.stmts))
	}
}

func TestManager_CreateSpaceTables_UnloggedOption(t *testing.T) {
	fq := &fakeQuerier{}
	m := NewManager(fq)
	if err := m.CreateSpaceTables(context.Background(), "vg", "s1", Options{Unlogged: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fq.stmts[1], "UNLOGGED") {
		t.Errorf("expected the quad table statement to request UNLOGGED, got %q", fq.stmts[1])
	}
}

func TestManager_DropIndexesForBulkLoad_DropsAuthoritativeSet(t *testing.T) {
	fq := &fakeQuerier{}
	m := NewManager(fq)
	if err := m.DropIndexesForBulkLoad(context.Background(), "vg", "s1"); err != nil {
		t.Fatal(err)
	}
	n := NewNames("vg", "s1")
	if len(fq.stmts) != len(n.IndexNames()) {
		t.Fatalf("expected one DROP INDEX per authoritative index, got %d", len(fq.stmts))
	}
	for _, stmt := range fq.stmts {
		if !strings.HasPrefix(stmt, "DROP INDEX IF EXISTS") {
			t.Errorf("unexpected statement: %q", stmt)
		}
	}
}

func TestManager_RecreateIndexesAfterBulkLoad_Concurrent(t *testing.T) {
	fq := &fakeQuerier{}
	m := NewManager(fq)
	if err := m.RecreateIndexesAfterBulkLoad(context.Background(), "vg", "s1", true); err != nil {
		t.Fatal(err)
	}
	for _, stmt := range fq.stmts {
		if !strings.Contains(stmt, "CONCURRENTLY") {
			t.Errorf("expected CONCURRENTLY in %q", stmt)
		}
	}
}

func TestManager_DropSpaceTables_DropsAllThreeInOrder(t *testing.T) {
	fq := &fakeQuerier{}
	m := NewManager(fq)
	if err := m.DropSpaceTables(context.Background(), "vg", "s1"); err != nil {
		t.Fatal(err)
	}
	if len(fq.stmts) != 3 {
		t.Fatalf("expected 3 drop statements, got %d", len(fq.stmts))
	}
	// quad dropped before term, since quad FKs reference term.
	if !strings.Contains(fq.stmts[0], "rdf_quad") {
		t.Errorf("expected rdf_quad dropped first, got %q", fq.stmts[0])
	}
}
