package bulkload

import (
	"testing"

	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

func TestLineParser_BasicTriple(t *testing.T) {
	p := NewLineParser()
	q, ok, err := p.ParseLine(`<http://ex/a> <http://ex/p> <http://ex/b> .`)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a quad")
	}
	if nn, ok := q.Subject.(*rdf.NamedNode); !ok || nn.IRI != "http://ex/a" {
		t.Errorf("subject = %v", q.Subject)
	}
	if !q.Graph.Equals(rdf.GlobalGraph) {
		t.Errorf("expected default statement to fall into the global graph, got %v", q.Graph)
	}
}

func TestLineParser_QuadWithExplicitGraph(t *testing.T) {
	p := NewLineParser()
	q, ok, err := p.ParseLine(`<http://ex/a> <http://ex/p> <http://ex/b> <http://ex/g> .`)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a quad")
	}
	want := rdf.NewNamedNode("http://ex/g")
	if !q.Graph.Equals(want) {
		t.Errorf("graph = %v, want %v", q.Graph, want)
	}
}

func TestLineParser_BlankNodeSubjectAndObject(t *testing.T) {
	p := NewLineParser()
	q, ok, err := p.ParseLine(`_:b0 <http://ex/p> _:b1 .`)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a quad")
	}
	if _, isBlank := q.Subject.(*rdf.BlankNode); !isBlank {
		t.Errorf("expected a blank node subject, got %T", q.Subject)
	}
	if _, isBlank := q.Object.(*rdf.BlankNode); !isBlank {
		t.Errorf("expected a blank node object, got %T", q.Object)
	}
}

func TestLineParser_LiteralWithLanguageAndDatatype(t *testing.T) {
	p := NewLineParser()
	q, ok, err := p.ParseLine(`<http://ex/a> <http://ex/p> "hello"@en .`)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a quad")
	}
	lit, isLit := q.Object.(*rdf.Literal)
	if !isLit || lit.Language != "en" {
		t.Errorf("expected a language-tagged literal, got %v", q.Object)
	}

	q2, ok, err := p.ParseLine(`<http://ex/a> <http://ex/p> "42"^^<http://www.w3.org/2001/XMLSchema#integer> .`)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a quad")
	}
	lit2, isLit := q2.Object.(*rdf.Literal)
	if !isLit || lit2.Datatype == nil || lit2.Datatype.IRI != rdf.XSDInteger.IRI {
		t.Errorf("expected an xsd:integer literal, got %v", q2.Object)
	}
}

func TestLineParser_BlankCommentAndDirectiveLinesSkip(t *testing.T) {
	p := NewLineParser()
	for _, line := range []string{"", "   ", "# a comment", "@prefix ex: <http://ex/> ."} {
		_, ok, err := p.ParseLine(line)
		if err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
		if ok {
			t.Errorf("line %q: expected no quad", line)
		}
	}
}

func TestLineParser_PrefixedNameExpandsAfterDirective(t *testing.T) {
	p := NewLineParser()
	if _, ok, err := p.ParseLine(`@prefix ex: <http://ex/> .`); err != nil || ok {
		t.Fatalf("unexpected directive result: ok=%v err=%v", ok, err)
	}
	q, ok, err := p.ParseLine(`ex:a ex:p ex:b .`)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a quad")
	}
	if nn, ok := q.Subject.(*rdf.NamedNode); !ok || nn.IRI != "http://ex/a" {
		t.Errorf("subject = %v", q.Subject)
	}
}

func TestLineParser_UndefinedPrefixErrors(t *testing.T) {
	p := NewLineParser()
	_, _, err := p.ParseLine(`ex:a ex:p ex:b .`)
	if err == nil {
		t.Fatal("expected an error for an undefined prefix")
	}
}

func TestLineParser_NumericLiterals(t *testing.T) {
	p := NewLineParser()
	q, ok, err := p.ParseLine(`<http://ex/a> <http://ex/p> 42 .`)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a quad")
	}
	lit := q.Object.(*rdf.Literal)
	if lit.Datatype.IRI != rdf.XSDInteger.IRI {
		t.Errorf("expected xsd:integer for a bare integer, got %v", lit.Datatype)
	}

	q2, _, err := p.ParseLine(`<http://ex/a> <http://ex/p> 4.2 .`)
	if err != nil {
		t.Fatal(err)
	}
	lit2 := q2.Object.(*rdf.Literal)
	if lit2.Datatype.IRI != rdf.XSDDouble.IRI {
		t.Errorf("expected xsd:double for a decimal, got %v", lit2.Datatype)
	}
}

func TestLineParser_MissingTerminatingDotErrors(t *testing.T) {
	p := NewLineParser()
	_, _, err := p.ParseLine(`<http://ex/a> <http://ex/p> <http://ex/b>`)
	if err == nil {
		t.Fatal("expected an error for a statement missing its terminating '.'")
	}
}
