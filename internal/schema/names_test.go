package schema

import (
	"strings"
	"testing"
)

func TestValidateSpaceID(t *testing.T) {
	cases := []struct {
		id      string
		wantErr bool
	}{
		{"s1", false},
		{"my_space", false},
		{"", true},
		{"Space1", true}, // uppercase not allowed
		{"1space", true}, // must start with a letter
		{strings.Repeat("a", MaxSpaceIDLength+1), true},
	}
	for _, tc := range cases {
		err := ValidateSpaceID(tc.id)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateSpaceID(%q): err=%v, wantErr=%v", tc.id, err, tc.wantErr)
		}
	}
}

func TestNewNames_Derivation(t *testing.T) {
	n := NewNames("vg", "s1")
	if n.Term != "vg__s1__term" {
		t.Errorf("Term = %q", n.Term)
	}
	if n.Quad != "vg__s1__rdf_quad" {
		t.Errorf("Quad = %q", n.Quad)
	}
	if n.Ns != "vg__s1__namespace" {
		t.Errorf("Ns = %q", n.Ns)
	}
}

func TestNewNames_IndexSetMatchesSpec(t *testing.T) {
	n := NewNames("vg", "s1")
	idx := n.IndexNames()
	if len(idx) != 10 {
		t.Fatalf("expected 10 indexes (uuid, lex, s, p, o, g, po, sp, gspo, typechk), got %d", len(idx))
	}
	seen := make(map[string]bool)
	for _, name := range idx {
		if seen[name] {
			t.Errorf("duplicate index name %q", name)
		}
		seen[name] = true
		if !strings.HasPrefix(name, "vg__s1__") {
			t.Errorf("index name %q not scoped to space", name)
		}
	}
}

func TestNewNames_DifferentSpacesDontCollide(t *testing.T) {
	a := NewNames("vg", "s1")
	b := NewNames("vg", "s2")
	if a.Term == b.Term || a.Quad == b.Quad {
		t.Fatalf("table names for different spaces collided")
	}
}
