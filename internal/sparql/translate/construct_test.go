package translate

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aleksaelezovic/vitalgraph/internal/sparql/algebra"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// fakeConstructRows is a pgx.Rows stub whose Scan assigns preset values
// positionally, mirroring scanBinding's dest layout (uuid, lex, kind,
// datatype, lang per variable) without a real database.
type fakeConstructRows struct {
	data [][]any
	idx  int
}

func (r *fakeConstructRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakeConstructRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	for i, d := range dest {
		v := row[i]
		switch d := d.(type) {
		case **string:
			if v == nil {
				*d = nil
			} else {
				s := v.(string)
				*d = &s
			}
		case *int16:
			*d = v.(int16)
		}
	}
	return nil
}

func (r *fakeConstructRows) Close()                                       {}
func (r *fakeConstructRows) Err() error                                   { return nil }
func (r *fakeConstructRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeConstructRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeConstructRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeConstructRows) RawValues() [][]byte                          { return nil }
func (r *fakeConstructRows) Conn() *pgx.Conn                              { return nil }

type fakeConstructQuerier struct {
	rows *fakeConstructRows
}

func (f *fakeConstructQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeConstructQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return f.rows, nil
}

func TestMaterializeConstructInstantiatesTemplateAndDedups(t *testing.T) {
	bgp := &algebra.BGP{Patterns: []*parser.TriplePattern{
		{Subject: varPos("s"), Predicate: termPos("http://ex/p"), Object: varPos("o")},
	}}
	tmpl := []*parser.TriplePattern{
		{Subject: varOrVar("s"), Predicate: termOrVar(rdf.NewNamedNode("http://ex/type")), Object: termOrVar(rdf.NewNamedNode("http://ex/Thing"))},
	}
	construct := &algebra.Construct{Template: tmpl, Input: bgp}

	// compileBGP's Vars come back sorted, so for {"o","s"} the scan
	// layout is o's five columns, then s's.
	rows := &fakeConstructRows{
		idx: -1,
		data: [][]any{
			{nil, "http://ex/o1", int16(1), nil, nil, nil, "http://ex/a", int16(1), nil, nil},
			{nil, "http://ex/o2", int16(1), nil, nil, nil, "http://ex/a", int16(1), nil, nil}, // same ?s, duplicate triple
			{nil, "http://ex/o3", int16(1), nil, nil, nil, "http://ex/b", int16(1), nil, nil},
		},
	}
	db := &fakeConstructQuerier{rows: rows}

	triples, err := MaterializeConstruct(context.Background(), termcodec.New(), db, "vg", "s1", construct)
	if err != nil {
		t.Fatalf("MaterializeConstruct: %v", err)
	}
	if len(triples) != 2 {
		t.Fatalf("expected 2 deduplicated triples from 3 rows (one duplicate), got %d: %+v", len(triples), triples)
	}
	wantPredicate := rdf.NewNamedNode("http://ex/type").String()
	wantObject := rdf.NewNamedNode("http://ex/Thing").String()
	seenSubjects := map[string]bool{}
	for _, tr := range triples {
		seenSubjects[tr.Subject.String()] = true
		if tr.Predicate.String() != wantPredicate {
			t.Fatalf("expected the constant predicate to carry through, got %s", tr.Predicate.String())
		}
		if tr.Object.String() != wantObject {
			t.Fatalf("expected the constant object to carry through, got %s", tr.Object.String())
		}
	}
	wantA, wantB := rdf.NewNamedNode("http://ex/a").String(), rdf.NewNamedNode("http://ex/b").String()
	if !seenSubjects[wantA] || !seenSubjects[wantB] {
		t.Fatalf("expected subjects http://ex/a and http://ex/b, got %+v", seenSubjects)
	}
}

func TestMaterializeConstructSkipsRowsWithUnboundTemplateVar(t *testing.T) {
	bgp := &algebra.BGP{Patterns: []*parser.TriplePattern{
		{Subject: varPos("s"), Predicate: termPos("http://ex/p"), Object: varPos("o")},
	}}
	// Template references ?n, which the WHERE clause never binds.
	tmpl := []*parser.TriplePattern{
		{Subject: varOrVar("s"), Predicate: termOrVar(rdf.NewNamedNode("http://ex/type")), Object: varOrVar("n")},
	}
	construct := &algebra.Construct{Template: tmpl, Input: bgp}

	rows := &fakeConstructRows{
		idx: -1,
		data: [][]any{
			{nil, "http://ex/o1", int16(1), nil, nil, nil, "http://ex/a", int16(1), nil, nil},
		},
	}
	db := &fakeConstructQuerier{rows: rows}

	triples, err := MaterializeConstruct(context.Background(), termcodec.New(), db, "vg", "s1", construct)
	if err != nil {
		t.Fatalf("MaterializeConstruct: %v", err)
	}
	if len(triples) != 0 {
		t.Fatalf("expected no triples when the template's object variable is never bound, got %+v", triples)
	}
}
