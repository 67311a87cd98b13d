package quadapi

import (
	"regexp"
	"strings"
	"testing"

	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

func TestBuildPredicate_AllWildcardsProducesEmptyWhere(t *testing.T) {
	codec := termcodec.New()
	n := schema.NewNames("vg", "s1")
	where, joins, args, err := buildPredicate(codec, "s1", n, Pattern{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if where != "" || len(joins) != 0 || len(args) != 0 {
		t.Fatalf("expected no predicate for an all-wildcard pattern, got where=%q joins=%v args=%v", where, joins, args)
	}
}

func TestBuildPredicate_ConcreteTermBindsEquality(t *testing.T) {
	codec := termcodec.New()
	n := schema.NewNames("vg", "s1")
	pat := Pattern{Predicate: rdf.NewNamedNode("http://ex/p")}
	where, joins, args, err := buildPredicate(codec, "s1", n, pat, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(where, "q.predicate_uuid = $1") {
		t.Errorf("where = %q", where)
	}
	if len(joins) != 0 {
		t.Errorf("expected no joins for a concrete term, got %v", joins)
	}
	if len(args) != 1 {
		t.Fatalf("expected one bound arg, got %v", args)
	}
}

func TestBuildPredicate_RegexAddsJoinAndOperator(t *testing.T) {
	codec := termcodec.New()
	n := schema.NewNames("vg", "s1")
	pat := Pattern{Object: regexp.MustCompile("^http://ex/")}
	where, joins, args, err := buildPredicate(codec, "s1", n, pat, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(joins) != 1 {
		t.Fatalf("expected one join for a regex position, got %v", joins)
	}
	if !strings.Contains(where, "o_re.lex ~ $1") {
		t.Errorf("where = %q", where)
	}
	if args[0] != "^http://ex/" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildPredicate_MixedPositionsIncrementPlaceholders(t *testing.T) {
	codec := termcodec.New()
	n := schema.NewNames("vg", "s1")
	pat := Pattern{
		Subject: rdf.NewNamedNode("http://ex/a"),
		Object:  regexp.MustCompile("hello"),
	}
	where, joins, args, err := buildPredicate(codec, "s1", n, pat, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(where, "$1") || !strings.Contains(where, "$2") {
		t.Fatalf("expected both placeholders to appear, got %q", where)
	}
	if len(joins) != 1 || len(args) != 2 {
		t.Fatalf("joins=%v args=%v", joins, args)
	}
}

func TestBuildPredicate_InvalidPositionTypeErrors(t *testing.T) {
	codec := termcodec.New()
	n := schema.NewNames("vg", "s1")
	pat := Pattern{Subject: 42}
	_, _, _, err := buildPredicate(codec, "s1", n, pat, 1)
	if err == nil {
		t.Fatal("expected an error for a pattern position that is neither term, regexp, nor nil")
	}
}
