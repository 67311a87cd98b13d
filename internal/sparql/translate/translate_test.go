package translate

import (
	"strings"
	"testing"

	"github.com/aleksaelezovic/vitalgraph/internal/sparql/algebra"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

func compileQuery(t *testing.T, sparql string) *Plan {
	t.Helper()
	q, err := parser.NewParser(sparql).Parse()
	if err != nil {
		t.Fatalf("parse(%q): %v", sparql, err)
	}
	node, err := algebra.FromAST(q)
	if err != nil {
		t.Fatalf("FromAST: %v", err)
	}
	plan, err := Compile(termcodec.New(), "vg", "s1", node)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return plan
}

func TestCompileSimpleBGP(t *testing.T) {
	plan := compileQuery(t, `SELECT ?s ?o WHERE { ?s <http://ex/p> ?o }`)
	if len(plan.Vars) != 2 || plan.Vars[0] != "s" || plan.Vars[1] != "o" {
		t.Fatalf("unexpected Vars: %v", plan.Vars)
	}
	if !strings.Contains(plan.SQL, "vg__s1__rdf_quad") {
		t.Fatalf("expected the quad table name in SQL, got: %s", plan.SQL)
	}
	if len(plan.Args) != 1 {
		t.Fatalf("expected exactly 1 bound constant (the predicate), got %d: %v", len(plan.Args), plan.Args)
	}
}

func TestCompileOptionalLeftJoin(t *testing.T) {
	plan := compileQuery(t, `
		SELECT ?p ?e WHERE {
			?p <http://ex/type> <http://ex/Person> .
			OPTIONAL { ?p <http://ex/email> ?e }
		}`)
	if !strings.Contains(strings.ToUpper(plan.SQL), "LEFT JOIN") {
		t.Fatalf("expected a LEFT JOIN for the OPTIONAL block, got: %s", plan.SQL)
	}
}

func TestCompileUnionAllUnderlyingUnion(t *testing.T) {
	plan := compileQuery(t, `
		SELECT ?s WHERE {
			{ ?s <http://ex/p> "a" } UNION { ?s <http://ex/p> "b" }
		}`)
	if !strings.Contains(strings.ToUpper(plan.SQL), "UNION ALL") {
		t.Fatalf("expected UNION ALL for SPARQL UNION, got: %s", plan.SQL)
	}
}

func TestCompileMinusNotExists(t *testing.T) {
	plan := compileQuery(t, `
		SELECT ?s WHERE {
			?s <http://ex/p> ?o
			MINUS { ?s <http://ex/excluded> "x" }
		}`)
	upper := strings.ToUpper(plan.SQL)
	if !strings.Contains(upper, "NOT EXISTS") {
		t.Fatalf("expected MINUS to translate to NOT EXISTS, got: %s", plan.SQL)
	}
}

func TestCompileGroupByHavingAggregates(t *testing.T) {
	plan := compileQuery(t, `
		SELECT ?d (COUNT(?p) AS ?n) WHERE { ?p <http://ex/dept> ?d }
		GROUP BY ?d HAVING (COUNT(?p) > 1)`)
	upper := strings.ToUpper(plan.SQL)
	if !strings.Contains(upper, "GROUP BY") {
		t.Fatalf("expected GROUP BY in SQL, got: %s", plan.SQL)
	}
	if !strings.Contains(upper, "HAVING") {
		t.Fatalf("expected HAVING in SQL, got: %s", plan.SQL)
	}
	if !strings.Contains(upper, "COUNT(") {
		t.Fatalf("expected a COUNT(...) aggregate in SQL, got: %s", plan.SQL)
	}
}

func TestCompilePropertyPathRecursiveCTE(t *testing.T) {
	plan := compileQuery(t, `SELECT ?y WHERE { <http://ex/a> <http://ex/knows>+ ?y }`)
	upper := strings.ToUpper(plan.SQL)
	if !strings.Contains(upper, "WITH RECURSIVE") {
		t.Fatalf("expected a recursive CTE for the one-or-more path, got: %s", plan.SQL)
	}
}

func TestCompileBindFilter(t *testing.T) {
	plan := compileQuery(t, `
		SELECT ?s ?len WHERE {
			?s <http://ex/p> ?o .
			BIND(STRLEN(?o) AS ?len)
			FILTER(?len > 4)
		}`)
	if !strings.Contains(plan.SQL, "WHERE") {
		t.Fatalf("expected a WHERE clause for the FILTER, got: %s", plan.SQL)
	}
	if len(plan.Vars) != 2 || plan.Vars[1] != "len" {
		t.Fatalf("expected ?len to be a projected variable, got: %v", plan.Vars)
	}
}

func TestCompileAskProducesExistsCheck(t *testing.T) {
	q, err := parser.NewParser(`ASK { ?s <http://ex/p> ?o }`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	node, err := algebra.FromAST(q)
	if err != nil {
		t.Fatalf("FromAST: %v", err)
	}
	plan, err := Compile(termcodec.New(), "vg", "s1", node)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	upper := strings.ToUpper(plan.SQL)
	if !strings.Contains(upper, "EXISTS") {
		t.Fatalf("expected ASK to compile to an existence check, got: %s", plan.SQL)
	}
	if len(plan.Vars) != 1 || plan.Vars[0] != "result" {
		t.Fatalf("expected ASK's Plan.Vars to be [\"result\"], got %v", plan.Vars)
	}
}

func TestCompileValuesJoin(t *testing.T) {
	plan := compileQuery(t, `
		SELECT ?s ?o WHERE {
			?s <http://ex/p> ?o .
			VALUES ?o { "a" "b" }
		}`)
	var sawA, sawB bool
	for _, a := range plan.Args {
		if s, ok := a.(string); ok {
			if s == "a" {
				sawA = true
			}
			if s == "b" {
				sawB = true
			}
		}
	}
	if !sawA || !sawB {
		t.Fatalf("expected the VALUES rows' literals \"a\"/\"b\" among bind args, got: %v", plan.Args)
	}
	if !strings.Contains(strings.ToUpper(plan.SQL), "UNION ALL") {
		t.Fatalf("expected the VALUES rows to compile to a UNION ALL subselect, got: %s", plan.SQL)
	}
}

func TestCompileGraphScopesQuadGraphColumn(t *testing.T) {
	plan := compileQuery(t, `
		SELECT ?s WHERE { GRAPH <http://g/1> { ?s <http://ex/p> ?o } }`)
	if !strings.Contains(plan.SQL, "graph_uuid") {
		t.Fatalf("expected the graph-context column to be constrained, got: %s", plan.SQL)
	}
}

func graphRef(iri string) algebra.GraphRef {
	return algebra.GraphRef{IRI: rdf.NewNamedNode(iri)}
}

func TestCompileGraphScopedThreadsScopeThroughFilter(t *testing.T) {
	bgp := &algebra.BGP{Patterns: []*parser.TriplePattern{
		{Subject: varPos("s"), Predicate: termPos("http://ex/p"), Object: varPos("o")},
	}}
	graph := &algebra.Graph{
		Name: graphRef("http://g/1"),
		Input: &algebra.Filter{
			Input:     bgp,
			Condition: &algebra.VarExpr{Name: "o"},
		},
	}
	c := newCtx(termcodec.New(), "vg", "s1")
	rel, err := compile(c, graph)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(rel.SQL, "graph_uuid") {
		t.Fatalf("expected the FILTER's underlying BGP to still carry the graph restriction, got: %s", rel.SQL)
	}
	if !strings.Contains(strings.ToUpper(rel.SQL), "WHERE") {
		t.Fatalf("expected the FILTER condition to still apply on top of the scoped BGP, got: %s", rel.SQL)
	}
}

func TestCompileGraphScopedThreadsScopeThroughJoin(t *testing.T) {
	left := &algebra.BGP{Patterns: []*parser.TriplePattern{
		{Subject: varPos("s"), Predicate: termPos("http://ex/p"), Object: varPos("o")},
	}}
	right := &algebra.BGP{Patterns: []*parser.TriplePattern{
		{Subject: varPos("s"), Predicate: termPos("http://ex/q"), Object: varPos("r")},
	}}
	graph := &algebra.Graph{
		Name:  graphRef("http://g/1"),
		Input: &algebra.Join{Left: left, Right: right},
	}
	c := newCtx(termcodec.New(), "vg", "s1")
	rel, err := compile(c, graph)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if n := strings.Count(rel.SQL, "graph_uuid"); n < 2 {
		t.Fatalf("expected both joined BGPs to carry the graph restriction, got %d occurrences in: %s", n, rel.SQL)
	}
}

func TestCompileGraphScopedRejectsUnsupportedShapeInsteadOfSilentlyUnscoping(t *testing.T) {
	left := &algebra.BGP{Patterns: []*parser.TriplePattern{
		{Subject: varPos("s"), Predicate: termPos("http://ex/p"), Object: varPos("o")},
	}}
	right := &algebra.BGP{Patterns: []*parser.TriplePattern{
		{Subject: varPos("s"), Predicate: termPos("http://ex/excluded"), Object: termPos("http://ex/x")},
	}}
	graph := &algebra.Graph{
		Name:  graphRef("http://g/1"),
		Input: &algebra.Minus{Left: left, Right: right},
	}
	c := newCtx(termcodec.New(), "vg", "s1")
	_, err := compile(c, graph)
	if err == nil {
		t.Fatalf("expected an error for a GRAPH block around an unsupported shape (MINUS), got a relation instead")
	}
	if !strings.Contains(err.Error(), "unsupported construct") {
		t.Fatalf("expected an 'unsupported construct' error, got: %v", err)
	}
}
