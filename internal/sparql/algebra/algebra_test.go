package algebra

import (
	"testing"

	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
)

func fromASTString(t *testing.T, q string) Node {
	t.Helper()
	query, err := parser.NewParser(q).Parse()
	if err != nil {
		t.Fatalf("parse(%q): %v", q, err)
	}
	node, err := FromAST(query)
	if err != nil {
		t.Fatalf("FromAST: %v", err)
	}
	return node
}

// children returns a node's direct algebra-tree children, in an order
// meaningful for Left/Right-style nodes.
func children(n Node) []Node {
	switch v := n.(type) {
	case nil:
		return nil
	case *BGP, *Values:
		return nil
	case *Join:
		return []Node{v.Left, v.Right}
	case *LeftJoin:
		return []Node{v.Left, v.Right}
	case *Union:
		return []Node{v.Left, v.Right}
	case *Minus:
		return []Node{v.Left, v.Right}
	case *Filter:
		return []Node{v.Input}
	case *Extend:
		return []Node{v.Input}
	case *Graph:
		return []Node{v.Input}
	case *Project:
		return []Node{v.Input}
	case *Distinct:
		return []Node{v.Input}
	case *Reduced:
		return []Node{v.Input}
	case *Slice:
		return []Node{v.Input}
	case *OrderBy:
		return []Node{v.Input}
	case *Group:
		return []Node{v.Input}
	case *Select:
		return []Node{v.Input}
	case *Ask:
		return []Node{v.Input}
	case *Construct:
		return []Node{v.Input}
	case *Path:
		return nil
	default:
		return nil
	}
}

// findFirst does a pre-order search for the first node satisfying want,
// returning nil if none is found.
func findFirst(n Node, want func(Node) bool) Node {
	if n == nil {
		return nil
	}
	if want(n) {
		return n
	}
	for _, c := range children(n) {
		if found := findFirst(c, want); found != nil {
			return found
		}
	}
	return nil
}

func isType[T Node](n Node) bool {
	_, ok := n.(T)
	return ok
}

func TestFromASTSelectBindFilter(t *testing.T) {
	node := fromASTString(t, `
		SELECT ?s ?len WHERE {
			GRAPH <http://g/1> {
				?s <http://ex/p> ?o .
				BIND(STRLEN(?o) AS ?len)
				FILTER(?len > 4)
			}
		}`)

	sel, ok := node.(*Select)
	if !ok {
		t.Fatalf("top-level node = %T, want *Select", node)
	}
	if len(sel.Vars) != 2 || sel.Vars[0] != "s" || sel.Vars[1] != "len" {
		t.Fatalf("unexpected Select.Vars: %v", sel.Vars)
	}

	graphNode := findFirst(sel.Input, isType[*Graph])
	if graphNode == nil {
		t.Fatalf("expected a Graph node scoping the BGP to http://g/1")
	}
	g := graphNode.(*Graph)
	if g.Name.IRI == nil || g.Name.IRI.IRI != "http://g/1" {
		t.Fatalf("unexpected Graph.Name: %+v", g.Name)
	}

	filterNode := findFirst(sel.Input, isType[*Filter])
	if filterNode == nil {
		t.Fatalf("expected a Filter node for FILTER(?len > 4)")
	}
	if _, ok := filterNode.(*Filter).Input.(*Extend); !ok {
		t.Fatalf("expected the Filter to sit directly above the BIND's Extend, got %T", filterNode.(*Filter).Input)
	}

	bgpNode := findFirst(sel.Input, func(n Node) bool {
		b, ok := n.(*BGP)
		return ok && len(b.Patterns) == 1
	})
	if bgpNode == nil {
		t.Fatalf("expected a 1-pattern BGP for ?s <http://ex/p> ?o")
	}
}

func TestFromASTOptionalChain(t *testing.T) {
	node := fromASTString(t, `
		SELECT ?p ?c WHERE {
			?p a <http://ex/Person> .
			OPTIONAL { ?p <http://ex/email> ?e }
			OPTIONAL { ?p <http://ex/phone> ?ph }
			BIND(COALESCE(?e, ?ph, "none") AS ?c)
		}`)

	sel := node.(*Select)
	extendNode := findFirst(sel.Input, isType[*Extend])
	if extendNode == nil || extendNode.(*Extend).Var != "c" {
		t.Fatalf("expected an Extend(?c) node for the BIND, got %+v", extendNode)
	}
	outerLJNode := findFirst(sel.Input, isType[*LeftJoin])
	if outerLJNode == nil {
		t.Fatalf("expected at least one LeftJoin for the OPTIONAL blocks")
	}
	outerLJ := outerLJNode.(*LeftJoin)
	if _, ok := outerLJ.Left.(*LeftJoin); !ok {
		t.Fatalf("expected two OPTIONALs to nest as LeftJoin(LeftJoin(...), ...), got Left=%T", outerLJ.Left)
	}
}

func TestFromASTUnionAndMinus(t *testing.T) {
	node := fromASTString(t, `
		SELECT ?s WHERE {
			{ ?s <http://ex/p> "a" } UNION { ?s <http://ex/p> "b" }
			MINUS { ?s <http://ex/excluded> true }
		}`)
	sel := node.(*Select)
	minusNode := findFirst(sel.Input, isType[*Minus])
	if minusNode == nil {
		t.Fatalf("expected a Minus node for the MINUS block")
	}
	if findFirst(minusNode.(*Minus).Left, isType[*Union]) == nil {
		t.Fatalf("expected the Minus's left side to contain the UNION")
	}
}

func TestFromASTGroupByHaving(t *testing.T) {
	node := fromASTString(t, `
		SELECT ?d (COUNT(?p) AS ?n) WHERE { ?p <http://ex/dept> ?d }
		GROUP BY ?d HAVING (COUNT(?p) > 1)`)
	sel := node.(*Select)
	groupNode := findFirst(sel.Input, isType[*Group])
	if groupNode == nil {
		t.Fatalf("expected a Group node for GROUP BY ?d")
	}
	group := groupNode.(*Group)
	if len(group.Keys) != 1 {
		t.Fatalf("unexpected group keys: %+v", group.Keys)
	}
	keyVar, ok := group.Keys[0].Expr.(*VarExpr)
	if !ok || keyVar.Name != "d" {
		t.Fatalf("expected GROUP BY ?d to key on VarExpr(d), got %+v", group.Keys[0].Expr)
	}
	if len(group.Aggregates) != 1 || group.Aggregates[0].Function != "COUNT" || group.Aggregates[0].Var != "n" {
		t.Fatalf("unexpected aggregates: %+v", group.Aggregates)
	}
	if len(group.Having) != 1 {
		t.Fatalf("expected 1 HAVING condition pushed onto the Group, got %d", len(group.Having))
	}
}

func TestFromASTConstruct(t *testing.T) {
	node := fromASTString(t, `
		CONSTRUCT { ?s <http://ex/upper> ?U } WHERE {
			?s <http://ex/name> ?n . BIND(UCASE(?n) AS ?U)
		}`)
	c, ok := node.(*Construct)
	if !ok {
		t.Fatalf("top-level node = %T, want *Construct", node)
	}
	if len(c.Template) != 1 {
		t.Fatalf("expected 1 template triple, got %d", len(c.Template))
	}
	if findFirst(c.Input, isType[*Extend]) == nil {
		t.Fatalf("expected Construct.Input to carry the BIND as an Extend somewhere")
	}
}

func TestFromASTAsk(t *testing.T) {
	node := fromASTString(t, `ASK { ?s <http://ex/p> ?o }`)
	ask, ok := node.(*Ask)
	if !ok {
		t.Fatalf("top-level node = %T, want *Ask", node)
	}
	if findFirst(ask.Input, isType[*BGP]) == nil {
		t.Fatalf("expected Ask.Input to contain a BGP")
	}
}

func TestFromASTPropertyPath(t *testing.T) {
	node := fromASTString(t, `SELECT ?y WHERE { <http://ex/a> <http://ex/knows>+ ?y }`)
	sel := node.(*Select)
	pathNode := findFirst(sel.Input, isType[*Path])
	if pathNode == nil {
		t.Fatalf("expected a Path node for the property path pattern")
	}
	path := pathNode.(*Path)
	if path.MaxDepth != DefaultMaxPathDepth {
		t.Fatalf("MaxDepth = %d, want default %d", path.MaxDepth, DefaultMaxPathDepth)
	}
	if path.Path.Op != parser.PathOneOrMore {
		t.Fatalf("Path.Path.Op = %v, want PathOneOrMore", path.Path.Op)
	}
}

func TestFromASTValues(t *testing.T) {
	node := fromASTString(t, `
		SELECT ?s ?o WHERE {
			?s <http://ex/p> ?o .
			VALUES ?o { "a" "b" UNDEF }
		}`)
	sel := node.(*Select)
	valuesNode := findFirst(sel.Input, isType[*Values])
	if valuesNode == nil {
		t.Fatalf("expected a Values node for the VALUES block")
	}
	values := valuesNode.(*Values)
	if len(values.Rows) != 3 {
		t.Fatalf("expected 3 VALUES rows, got %d", len(values.Rows))
	}
	if !values.Rows[2][0].Undef {
		t.Fatalf("expected the UNDEF row to be marked Undef")
	}
}
