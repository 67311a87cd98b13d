package quadapi

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

type fakeQuerier struct {
	stmts []string
	args  [][]any
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.stmts = append(f.stmts, sql)
	f.args = append(f.args, args)
	return &emptyRows{}, nil
}

// emptyRows is a no-op pgx.Rows that yields zero rows, enough for tests
// that only assert on the SQL text a method generates.
type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(dest ...any) error                       { return nil }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                           { return nil }
func (emptyRows) Conn() *pgx.Conn                               { return nil }

func sampleQuad() *rdf.Quad {
	return rdf.NewQuad(
		rdf.NewNamedNode("http://ex/a"),
		rdf.NewNamedNode("http://ex/p"),
		rdf.NewLiteral("hello"),
		rdf.GlobalGraph,
	)
}

func TestAPI_AddQuad_InsertsTermsBeforeQuad(t *testing.T) {
	fq := &fakeQuerier{}
	api := New()
	if err := api.AddQuad(context.Background(), fq, "vg", "s1", sampleQuad()); err != nil {
		t.Fatal(err)
	}
	if len(fq.stmts) != 5 { // 4 distinct terms + 1 quad row
		t.Fatalf("expected 5 statements (4 term inserts + 1 quad insert), got %d: %v", len(fq.stmts), fq.stmts)
	}
	last := fq.stmts[len(fq.stmts)-1]
	if !strings.Contains(last, "rdf_quad") {
		t.Errorf("expected the final statement to insert into the quad table, got %q", last)
	}
}

func TestAPI_AddQuad_RejectsBadPredicateKind(t *testing.T) {
	fq := &fakeQuerier{}
	api := New()
	bad := rdf.NewQuad(
		rdf.NewNamedNode("http://ex/a"),
		rdf.NewLiteral("not-a-uri"),
		rdf.NewLiteral("hello"),
		rdf.GlobalGraph,
	)
	if err := api.AddQuad(context.Background(), fq, "vg", "s1", bad); err == nil {
		t.Fatal("expected an error for a non-URI predicate")
	}
	if len(fq.stmts) != 0 {
		t.Fatalf("expected no statements to be issued for an invalid quad, got %d", len(fq.stmts))
	}
}

func TestAPI_RemoveQuad_DeletesByAllFourPositions(t *testing.T) {
	fq := &fakeQuerier{}
	api := New()
	if err := api.RemoveQuad(context.Background(), fq, "vg", "s1", sampleQuad()); err != nil {
		t.Fatal(err)
	}
	if len(fq.stmts) != 1 {
		t.Fatalf("expected one DELETE statement, got %d", len(fq.stmts))
	}
	if !strings.Contains(fq.stmts[0], "subject_uuid = $1") || !strings.Contains(fq.stmts[0], "graph_uuid = $4") {
		t.Errorf("unexpected DELETE statement: %q", fq.stmts[0])
	}
}

func TestAPI_CountQuads_WildcardPatternHasNoWhere(t *testing.T) {
	fq := &fakeQuerier{}
	api := New()
	if _, err := api.CountQuads(context.Background(), fq, "vg", "s1", Pattern{}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(fq.stmts[0], "WHERE") {
		t.Errorf("expected no WHERE clause for an all-wildcard pattern, got %q", fq.stmts[0])
	}
}
