package translate

import (
	"testing"

	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

func termOrVar(t rdf.Term) parser.TermOrVariable {
	return parser.TermOrVariable{Term: t}
}

func varOrVar(name string) parser.TermOrVariable {
	return parser.TermOrVariable{Variable: &parser.Variable{Name: name}}
}

func TestGroundQuadsDefaultsToGlobalGraph(t *testing.T) {
	codec := termcodec.New()
	patterns := []*parser.TriplePattern{
		{
			Subject:   termOrVar(rdf.NewNamedNode("http://ex/a")),
			Predicate: termOrVar(rdf.NewNamedNode("http://ex/p")),
			Object:    termOrVar(rdf.NewLiteral("x")),
		},
	}
	quads, err := groundQuads(codec, "s1", patterns, nil)
	if err != nil {
		t.Fatalf("groundQuads: %v", err)
	}
	if len(quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(quads))
	}
	if !quads[0].Graph.Equals(rdf.GlobalGraph) {
		t.Fatalf("expected graph-less INSERT DATA to default to the global graph, got %v", quads[0].Graph)
	}
}

func TestGroundQuadsUsesExplicitGraph(t *testing.T) {
	codec := termcodec.New()
	g := rdf.NewNamedNode("http://ex/g1")
	patterns := []*parser.TriplePattern{
		{
			Subject:   termOrVar(rdf.NewNamedNode("http://ex/a")),
			Predicate: termOrVar(rdf.NewNamedNode("http://ex/p")),
			Object:    termOrVar(rdf.NewLiteral("x")),
		},
	}
	quads, err := groundQuads(codec, "s1", patterns, g)
	if err != nil {
		t.Fatalf("groundQuads: %v", err)
	}
	if !quads[0].Graph.Equals(g) {
		t.Fatalf("expected the explicit WITH/GRAPH IRI, got %v", quads[0].Graph)
	}
}

func TestGroundQuadsRejectsVariables(t *testing.T) {
	codec := termcodec.New()
	patterns := []*parser.TriplePattern{
		{
			Subject:   varOrVar("s"),
			Predicate: termOrVar(rdf.NewNamedNode("http://ex/p")),
			Object:    termOrVar(rdf.NewLiteral("x")),
		},
	}
	if _, err := groundQuads(codec, "s1", patterns, nil); err == nil {
		t.Fatalf("expected an error for a variable inside INSERT/DELETE DATA")
	}
}

func TestGraphPatternNilMeansNoRestriction(t *testing.T) {
	p := graphPattern(nil)
	if p.Graph != nil {
		t.Fatalf("expected a nil-graph CLEAR/DROP pattern to leave Graph unset, got %v", p.Graph)
	}
}

func TestGraphPatternNamesGraph(t *testing.T) {
	g := rdf.NewNamedNode("http://ex/g1")
	p := graphPattern(g)
	got, ok := p.Graph.(rdf.Term)
	if !ok || !got.Equals(g) {
		t.Fatalf("expected the pattern to restrict to %v, got %v", g, p.Graph)
	}
}

func TestInstantiateTemplateSkipsUnboundVariable(t *testing.T) {
	binding := map[string]rdf.Term{
		"s": rdf.NewNamedNode("http://ex/a"),
	}
	tmpl := []*parser.TriplePattern{
		{
			Subject:   varOrVar("s"),
			Predicate: termOrVar(rdf.NewNamedNode("http://ex/name")),
			Object:    varOrVar("n"), // unbound
		},
	}
	quads, ok := instantiateTemplate(tmpl, binding, nil)
	if ok {
		t.Fatalf("expected instantiateTemplate to report no ground quads when ?n is unbound, got %v", quads)
	}
	if len(quads) != 0 {
		t.Fatalf("expected zero quads for an unbound template variable, got %d", len(quads))
	}
}

func TestInstantiateTemplateSubstitutesBoundVariables(t *testing.T) {
	binding := map[string]rdf.Term{
		"s": rdf.NewNamedNode("http://ex/a"),
		"n": rdf.NewLiteral("Alice"),
	}
	tmpl := []*parser.TriplePattern{
		{
			Subject:   varOrVar("s"),
			Predicate: termOrVar(rdf.NewNamedNode("http://ex/name")),
			Object:    varOrVar("n"),
		},
	}
	quads, ok := instantiateTemplate(tmpl, binding, nil)
	if !ok || len(quads) != 1 {
		t.Fatalf("expected exactly 1 ground quad, got ok=%v quads=%v", ok, quads)
	}
	if !quads[0].Subject.Equals(binding["s"]) || !quads[0].Object.Equals(binding["n"]) {
		t.Fatalf("template substitution produced unexpected quad: %+v", quads[0])
	}
	if !quads[0].Graph.Equals(rdf.GlobalGraph) {
		t.Fatalf("expected the default graph to be the global graph, got %v", quads[0].Graph)
	}
}

func TestResolveTermOrVariable(t *testing.T) {
	binding := map[string]rdf.Term{"x": rdf.NewLiteral("v")}

	term, ok := resolveTermOrVariable(termOrVar(rdf.NewNamedNode("http://ex/a")), binding)
	if !ok || term.String() != "<http://ex/a>" {
		t.Fatalf("expected a concrete term to resolve to itself, got %v ok=%v", term, ok)
	}

	term, ok = resolveTermOrVariable(varOrVar("x"), binding)
	if !ok || !term.Equals(binding["x"]) {
		t.Fatalf("expected ?x to resolve from the binding, got %v ok=%v", term, ok)
	}

	_, ok = resolveTermOrVariable(varOrVar("missing"), binding)
	if ok {
		t.Fatalf("expected an unbound variable to resolve with ok=false")
	}
}
