package translate

import (
	"sort"

	"github.com/aleksaelezovic/vitalgraph/internal/sparql/algebra"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
)

// Optimize rewrites node before compilation, the way the retrieved
// trigo internal/sparql/optimizer package walks a parsed query and
// builds a QueryPlan instead of compiling the AST verbatim. Four
// rewrites run here: BGP triple-pattern reordering by estimated
// selectivity, FILTER pushdown below JOIN where a condition only
// touches one side, collapsing adjacent Project nodes, and constant
// folding, which in this translator means ctx.encode's per-compile
// codec.Encode memoization rather than an AST rewrite (a constant
// term's UUID is looked up once no matter how many patterns repeat
// it). Optimize runs once, bottom-up, over the whole tree Compile is
// about to lower.
func Optimize(node algebra.Node) algebra.Node {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *algebra.BGP:
		reorderBGP(n)
		return n
	case *algebra.Join:
		n.Left = Optimize(n.Left)
		n.Right = Optimize(n.Right)
		return n
	case *algebra.LeftJoin:
		n.Left = Optimize(n.Left)
		n.Right = Optimize(n.Right)
		return n
	case *algebra.Union:
		n.Left = Optimize(n.Left)
		n.Right = Optimize(n.Right)
		return n
	case *algebra.Minus:
		n.Left = Optimize(n.Left)
		n.Right = Optimize(n.Right)
		return n
	case *algebra.Filter:
		n.Input = Optimize(n.Input)
		return pushdownFilter(n)
	case *algebra.Extend:
		n.Input = Optimize(n.Input)
		return n
	case *algebra.Graph:
		n.Input = Optimize(n.Input)
		return n
	case *algebra.Values:
		return n
	case *algebra.Path:
		return n
	case *algebra.Group:
		n.Input = Optimize(n.Input)
		return n
	case *algebra.OrderBy:
		n.Input = Optimize(n.Input)
		return n
	case *algebra.Slice:
		n.Input = Optimize(n.Input)
		return n
	case *algebra.Project:
		n.Input = Optimize(n.Input)
		return collapseProject(n)
	case *algebra.Distinct:
		n.Input = Optimize(n.Input)
		return n
	case *algebra.Reduced:
		n.Input = Optimize(n.Input)
		return n
	default:
		return node
	}
}

// reorderBGP sorts a basic graph pattern's triple patterns so the most
// selective ones run first, the same heuristic as the retrieved
// trigo optimizer's reorderBySelectivity/estimateSelectivity: a bound
// subject is the strongest filter (few quads share a subject), bound
// predicate and object are weaker (many quads share either), and the
// fully-unbound pattern is the weakest. Running selective patterns
// first in the self-join keeps the intermediate row count small
// before joining in the broader patterns, a cheap stand-in for a real
// cost-based planner (Postgres's own planner still picks the final
// join order; this only changes which alias it sees the rows from
// first).
func reorderBGP(bgp *algebra.BGP) {
	sort.SliceStable(bgp.Patterns, func(i, j int) bool {
		return estimateSelectivity(bgp.Patterns[i]) < estimateSelectivity(bgp.Patterns[j])
	})
}

func estimateSelectivity(tp *parser.TriplePattern) float64 {
	sel := 1.0
	if !tp.Subject.IsVariable() {
		sel *= 0.01
	}
	if !tp.Predicate.IsVariable() {
		sel *= 0.1
	}
	if !tp.Object.IsVariable() {
		sel *= 0.1
	}
	return sel
}

// pushdownFilter moves f below a Join/LeftJoin when its condition only
// references variables bound by one side, so the restriction applies
// before the join widens the row set instead of after. A condition
// that spans both sides (a join condition disguised as a FILTER)
// is left in place.
func pushdownFilter(f *algebra.Filter) algebra.Node {
	vars := exprVars(f.Condition)
	if len(vars) == 0 {
		return f
	}
	switch inner := f.Input.(type) {
	case *algebra.Join:
		leftVars := boundVars(inner.Left)
		if subsetOf(vars, leftVars) {
			inner.Left = &algebra.Filter{Input: inner.Left, Condition: f.Condition}
			return inner
		}
		rightVars := boundVars(inner.Right)
		if subsetOf(vars, rightVars) {
			inner.Right = &algebra.Filter{Input: inner.Right, Condition: f.Condition}
			return inner
		}
	case *algebra.LeftJoin:
		// Only push into the preserved side: pushing into Right would
		// drop Left rows that have no Right match but still satisfy
		// the filter, changing OPTIONAL's preservation semantics.
		leftVars := boundVars(inner.Left)
		if subsetOf(vars, leftVars) {
			inner.Left = &algebra.Filter{Input: inner.Left, Condition: f.Condition}
			return inner
		}
	}
	return f
}

// collapseProject merges Project(Project(x, _), outer) into a single
// Project(x, outer): the inner projection's variable list is
// redundant once an outer Project narrows the row shape further.
func collapseProject(p *algebra.Project) *algebra.Project {
	if inner, ok := p.Input.(*algebra.Project); ok {
		p.Input = inner.Input
	}
	return p
}

func subsetOf(vars, bound []string) bool {
	boundSet := make(map[string]bool, len(bound))
	for _, v := range bound {
		boundSet[v] = true
	}
	for _, v := range vars {
		if !boundSet[v] {
			return false
		}
	}
	return true
}

// exprVars collects every variable an expression reads, used to
// decide whether a FILTER can be pushed below a join. EXISTS/NOT
// EXISTS patterns introduce their own scope and are not walked: a
// variable only appearing inside one is not a dependency of the
// outer row.
func exprVars(e algebra.Expr) []string {
	var out []string
	var walk func(algebra.Expr)
	walk = func(e algebra.Expr) {
		switch ex := e.(type) {
		case *algebra.VarExpr:
			out = append(out, ex.Name)
		case *algebra.UnaryExpr:
			walk(ex.Operand)
		case *algebra.BinaryExpr:
			walk(ex.Left)
			walk(ex.Right)
		case *algebra.CallExpr:
			for _, a := range ex.Args {
				walk(a)
			}
		case *algebra.InExpr:
			walk(ex.Expr)
			for _, a := range ex.List {
				walk(a)
			}
		case *algebra.ExistsExpr:
			// opaque: treated as depending on nothing from the outer
			// row for push-down purposes, so a filter combining it
			// with a plain variable test is never pushed by itself.
		}
	}
	walk(e)
	return out
}

// boundVars reports every variable a compiled node exposes, mirroring
// the Vars each compile* function returns without actually compiling
// the node, so the optimizer can decide pushdown eligibility ahead of
// SQL generation.
func boundVars(n algebra.Node) []string {
	switch x := n.(type) {
	case *algebra.BGP:
		seen := map[string]bool{}
		var out []string
		add := func(tov parser.TermOrVariable) {
			if tov.IsVariable() && !seen[tov.Variable.Name] {
				seen[tov.Variable.Name] = true
				out = append(out, tov.Variable.Name)
			}
		}
		for _, tp := range x.Patterns {
			add(tp.Subject)
			add(tp.Predicate)
			add(tp.Object)
		}
		return out
	case *algebra.Join:
		return union(boundVars(x.Left), boundVars(x.Right))
	case *algebra.LeftJoin:
		return union(boundVars(x.Left), boundVars(x.Right))
	case *algebra.Union:
		return union(boundVars(x.Left), boundVars(x.Right))
	case *algebra.Minus:
		return boundVars(x.Left)
	case *algebra.Filter:
		return boundVars(x.Input)
	case *algebra.Extend:
		return append(boundVars(x.Input), x.Var)
	case *algebra.Graph:
		vars := boundVars(x.Input)
		if x.Name.Var != "" {
			vars = append(vars, x.Name.Var)
		}
		return vars
	case *algebra.Path:
		var out []string
		if x.Subject.IsVariable() {
			out = append(out, x.Subject.Variable.Name)
		}
		if x.Object.IsVariable() {
			out = append(out, x.Object.Variable.Name)
		}
		return out
	case *algebra.Values:
		return append([]string(nil), x.Vars...)
	case *algebra.Group:
		var out []string
		for _, k := range x.Keys {
			if k.Var != "" {
				out = append(out, k.Var)
			}
		}
		for _, a := range x.Aggregates {
			out = append(out, a.Var)
		}
		return out
	case *algebra.OrderBy:
		return boundVars(x.Input)
	case *algebra.Slice:
		return boundVars(x.Input)
	case *algebra.Project:
		return append([]string(nil), x.Vars...)
	case *algebra.Distinct:
		return boundVars(x.Input)
	case *algebra.Reduced:
		return boundVars(x.Input)
	default:
		return nil
	}
}

// union is defined in translate.go and shared with compileJoin/
// compileLeftJoin, whose output column order depends on its sort.
