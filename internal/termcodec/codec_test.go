package termcodec

import (
	"testing"

	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

func TestEncodeURI_Deterministic(t *testing.T) {
	c := New()
	a := c.EncodeURI("http://ex/a")
	b := c.EncodeURI("http://ex/a")
	if a != b {
		t.Fatalf("same URI produced different UUIDs: %v != %v", a, b)
	}
	other := c.EncodeURI("http://ex/b")
	if a == other {
		t.Fatalf("different URIs collided")
	}
}

func TestEncodeBlankNode_ScopedPerSpace(t *testing.T) {
	c := New()
	s1 := c.EncodeBlankNode("space1", "b0")
	s2 := c.EncodeBlankNode("space2", "b0")
	if s1 == s2 {
		t.Fatalf("same blank node label collided across spaces")
	}
	again := c.EncodeBlankNode("space1", "b0")
	if s1 != again {
		t.Fatalf("same (space, label) produced different UUIDs")
	}
}

func TestEncodeLiteral_KindsDontCollide(t *testing.T) {
	c := New()
	plain := c.EncodeLiteral("hello", "", "")
	lang := c.EncodeLiteral("hello", "", "en")
	typed := c.EncodeLiteral("hello", rdf.XSDInteger.IRI, "")
	if plain == lang || plain == typed || lang == typed {
		t.Fatalf("distinct literal kinds collided")
	}
}

func TestEncodeLiteral_LangCaseInsensitive(t *testing.T) {
	c := New()
	a := c.EncodeLiteral("hello", "", "EN")
	b := c.EncodeLiteral("hello", "", "en")
	if a != b {
		t.Fatalf("language tags should compare case-insensitively")
	}
}

func TestRoundTrip_URI(t *testing.T) {
	c := New()
	term := rdf.NewNamedNode("http://ex/a")
	enc, err := c.Encode("s1", term)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equals(term) {
		t.Fatalf("round trip mismatch: %v != %v", decoded, term)
	}
}

func TestRoundTrip_LangLiteral(t *testing.T) {
	c := New()
	term := rdf.NewLiteralWithLanguage("world", "EN")
	enc, err := c.Encode("s1", term)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	expected := rdf.NewLiteralWithLanguage("world", "en")
	if !decoded.Equals(expected) {
		t.Fatalf("round trip mismatch (modulo language case): %v != %v", decoded, expected)
	}
}

func TestEncode_BlankNode(t *testing.T) {
	c := New()
	term := rdf.NewBlankNode("b1")
	enc, err := c.Encode("space1", term)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Kind != rdf.TermTypeBlankNode {
		t.Fatalf("expected blank node kind, got %v", enc.Kind)
	}
	decoded, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equals(term) {
		t.Fatalf("round trip mismatch: %v != %v", decoded, term)
	}
}
