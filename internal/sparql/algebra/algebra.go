// Package algebra defines the closed SPARQL algebra node family that
// internal/sparql/translate lowers to SQL, and FromAST, the converter
// that builds it from internal/sparql/parser's AST. No package outside
// sparql/parser and sparql/algebra ever imports the parser's concrete
// types; translate and everything above it sees only this algebra.
//
// This generalizes the teacher's internal/sparql/optimizer tree (a
// thin wrapper that rewrites the parser's GraphPattern/Expression nodes
// in place) into a genuinely separate intermediate representation, the
// way pkg/sparql/evaluator/evaluator.go's "Plan" separates query shape
// from evaluation strategy in the larger teacher parser.
package algebra

import (
	"fmt"

	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// Node is any algebra tree node.
type Node interface {
	algebraNode()
}

// BGP is a basic graph pattern: a conjunction of triple patterns (and
// property paths) evaluated in one scope.
type BGP struct {
	Patterns []*parser.TriplePattern
}

func (*BGP) algebraNode() {}

// Join is an inner join of Left and Right on shared variables.
type Join struct {
	Left, Right Node
}

func (*Join) algebraNode() {}

// LeftJoin is SPARQL OPTIONAL: every Left row preserved, Right columns
// filled when Filter (evaluated against the joined row) holds.
type LeftJoin struct {
	Left, Right Node
	Filter      Expr // nil if OPTIONAL carried no extra FILTER
}

func (*LeftJoin) algebraNode() {}

// Union is SPARQL UNION: the row sets of Left and Right, concatenated.
type Union struct {
	Left, Right Node
}

func (*Union) algebraNode() {}

// Minus is SPARQL MINUS: Left rows that share no compatible binding with
// any Right row.
type Minus struct {
	Left, Right Node
}

func (*Minus) algebraNode() {}

// Filter restricts Input to rows where Condition evaluates true.
type Filter struct {
	Input     Node
	Condition Expr
}

func (*Filter) algebraNode() {}

// Extend is BIND: adds a new binding for Var computed from Expr over
// each row of Input.
type Extend struct {
	Input Node
	Var   string
	Expr  Expr
}

func (*Extend) algebraNode() {}

// Graph restricts Input to the named graph Name resolves to (a constant
// IRI or a variable).
type Graph struct {
	Input Node
	Name  GraphRef
}

func (*Graph) algebraNode() {}

// GraphRef is either a bound graph IRI or a variable naming one.
type GraphRef struct {
	IRI *rdf.NamedNode
	Var string // empty when IRI is set
}

// Path is a single triple pattern whose predicate is a property path,
// lowered separately from BGP because its SQL shape is a recursive CTE
// rather than a join (spec.md §4.9's path operators).
type Path struct {
	Subject  parser.TermOrVariable
	Path     *parser.PropertyPath
	Object   parser.TermOrVariable
	MaxDepth int
}

func (*Path) algebraNode() {}

// DefaultMaxPathDepth bounds recursive CTE depth for unbounded path
// operators (*, +) absent a caller-supplied override. Paths longer than
// the bound are cut off without an error. internal/vgconfig.BulkLoad
// carries a sibling MaxPathDepth with the same default.
const DefaultMaxPathDepth = 300

// Values is an inline data block: each Row supplies bindings for Vars,
// any of which may be unbound (UNDEF).
type Values struct {
	Vars []string
	Rows [][]ValueCell
}

func (*Values) algebraNode() {}

// ValueCell is one VALUES table cell: a bound term, or unbound (UNDEF).
type ValueCell struct {
	Term  rdf.Term
	Undef bool
}

// Project restricts the row shape to Vars, in order.
type Project struct {
	Input Node
	Vars  []string
}

func (*Project) algebraNode() {}

// Distinct deduplicates Input's rows.
type Distinct struct {
	Input Node
}

func (*Distinct) algebraNode() {}

// Reduced permits (but does not require) deduplication of Input's rows.
type Reduced struct {
	Input Node
}

func (*Reduced) algebraNode() {}

// Slice applies LIMIT/OFFSET to Input.
type Slice struct {
	Input  Node
	Offset int
	Limit  int // -1 means unbounded
}

func (*Slice) algebraNode() {}

// OrderBy sorts Input by Conditions, in order, each possibly descending.
type OrderBy struct {
	Input      Node
	Conditions []OrderCondition
}

func (*OrderBy) algebraNode() {}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr       Expr
	Descending bool
}

// Group partitions Input's rows by Keys and computes Aggregates per
// partition, with an optional Having filter over the aggregated row.
type Group struct {
	Input      Node
	Keys       []GroupKey
	Aggregates []AggregateBinding
	Having     []Expr
}

func (*Group) algebraNode() {}

// GroupKey is one GROUP BY expression, optionally bound to a variable
// (`GROUP BY (?a + ?b AS ?sum)`).
type GroupKey struct {
	Expr Expr
	Var  string // empty if this key introduces no new variable
}

// AggregateBinding is one `AGG(...) AS ?v` entry, attached to a Group.
type AggregateBinding struct {
	Var      string
	Function string
	Distinct bool
	Expr     Expr // nil for COUNT(*)
	Wildcard bool
	Separator string
}

// Select is a top-level SELECT query: Project (possibly wrapped in
// Distinct/Reduced/Slice/OrderBy) over Input.
type Select struct {
	Input    Node
	Vars     []string
	Extra    []AggregateBinding // SELECT-list (AGG(...) AS ?v) entries not covered by a Group; FromAST never sets it
	Distinct bool
	Reduced  bool
}

func (*Select) algebraNode() {}

// Ask is a top-level ASK query.
type Ask struct {
	Input Node
}

func (*Ask) algebraNode() {}

// Describe is a top-level DESCRIBE query.
type Describe struct {
	Resources []rdf.Term     // concrete resources named directly
	Vars      []string       // variables bound by Input whose values are described
	Input     Node           // nil if Describe names only concrete Resources
}

func (*Describe) algebraNode() {}

// Construct is a top-level CONSTRUCT query.
type Construct struct {
	Template []*parser.TriplePattern
	Input    Node
}

func (*Construct) algebraNode() {}

// Update is a top-level SPARQL Update request: a sequence of Operations
// applied in order, atomically, inside one transaction (spec.md §4.9).
type Update struct {
	Operations []*UpdateOp
}

func (*Update) algebraNode() {}

// UpdateOp is one lowered update operation.
type UpdateOp struct {
	Kind        parser.UpdateKind
	InsertData  []*parser.TriplePattern
	DeleteData  []*parser.TriplePattern
	DeleteTmpl  []*parser.TriplePattern
	InsertTmpl  []*parser.TriplePattern
	Where       Node
	GraphIRI    *rdf.NamedNode
	SourceGraph *rdf.NamedNode
	DestGraph   *rdf.NamedNode
	Silent      bool
	LoadSource  string
}

// Expr is any algebra-level scalar expression.
type Expr interface {
	exprNode()
}

// ConstExpr wraps a literal or bound value.
type ConstExpr struct{ Term rdf.Term }

func (*ConstExpr) exprNode() {}

// VarExpr references a bound (or unbound, yielding SPARQL's "unbound
// error" semantics downstream) variable.
type VarExpr struct{ Name string }

func (*VarExpr) exprNode() {}

// UnaryExpr applies Op to Operand.
type UnaryExpr struct {
	Op      parser.Operator
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// BinaryExpr applies Op to Left and Right.
type BinaryExpr struct {
	Op          parser.Operator
	Left, Right Expr
}

func (*BinaryExpr) exprNode() {}

// CallExpr is a built-in or custom function application.
type CallExpr struct {
	Function string
	Args     []Expr
}

func (*CallExpr) exprNode() {}

// InExpr is `expr IN (list)` / `expr NOT IN (list)`.
type InExpr struct {
	Expr    Expr
	List    []Expr
	Negated bool
}

func (*InExpr) exprNode() {}

// ExistsExpr is EXISTS/NOT EXISTS { pattern } used as a boolean value.
type ExistsExpr struct {
	Pattern Node
	Negated bool
}

func (*ExistsExpr) exprNode() {}

// FromAST converts a parsed query into the closed algebra family.
// Unknown AST shapes are programmer errors, not user errors: this
// function should only ever see nodes the parser itself produced, so a
// failure here names the offending Go type directly.
func FromAST(q *parser.Query) (Node, error) {
	switch q.QueryType {
	case parser.QueryTypeSelect:
		return fromSelect(q.Select)
	case parser.QueryTypeAsk:
		where, err := fromGraphPattern(q.Ask.Where)
		if err != nil {
			return nil, err
		}
		return &Ask{Input: where}, nil
	case parser.QueryTypeConstruct:
		where, err := fromGraphPattern(q.Construct.Where)
		if err != nil {
			return nil, err
		}
		return &Construct{Template: q.Construct.Template, Input: where}, nil
	case parser.QueryTypeDescribe:
		return fromDescribe(q.Describe)
	case parser.QueryTypeUpdate:
		return fromUpdate(q.Update)
	default:
		return nil, fmt.Errorf("unsupported construct: %T", q.QueryType)
	}
}

func fromDescribe(d *parser.DescribeQuery) (Node, error) {
	out := &Describe{}
	for _, r := range d.Resources {
		out.Resources = append(out.Resources, r)
	}
	if d.Where != nil {
		where, err := fromGraphPattern(d.Where)
		if err != nil {
			return nil, err
		}
		out.Input = where
	}
	return out, nil
}

func fromUpdate(ops []*parser.UpdateOperation) (Node, error) {
	out := &Update{}
	for _, op := range ops {
		uop := &UpdateOp{
			Kind:        op.Kind,
			InsertData:  op.InsertData,
			DeleteData:  op.DeleteData,
			DeleteTmpl:  op.DeleteTmpl,
			InsertTmpl:  op.InsertTmpl,
			GraphIRI:    op.GraphIRI,
			SourceGraph: op.SourceGraph,
			DestGraph:   op.DestGraph,
			Silent:      op.Silent,
			LoadSource:  op.LoadSource,
		}
		if op.Where != nil {
			where, err := fromGraphPattern(op.Where)
			if err != nil {
				return nil, err
			}
			uop.Where = where
		}
		out.Operations = append(out.Operations, uop)
	}
	return out, nil
}

func fromSelect(sq *parser.SelectQuery) (Node, error) {
	var node Node
	var err error
	if sq.Where != nil {
		node, err = fromGraphPattern(sq.Where)
		if err != nil {
			return nil, err
		}
	} else {
		node = &BGP{}
	}

	if sq.Values != nil {
		node = &Join{Left: node, Right: fromValuesClause(sq.Values)}
	}

	if len(sq.GroupBy) > 0 || hasSelectAggregates(sq) {
		group := &Group{Input: node}
		for _, ge := range sq.GroupBy {
			if be, ok := ge.(*parser.BindExpr); ok {
				expr, err := fromExpr(be.Expr)
				if err != nil {
					return nil, err
				}
				group.Keys = append(group.Keys, GroupKey{Expr: expr, Var: be.Variable.Name})
				continue
			}
			expr, err := fromExpr(ge)
			if err != nil {
				return nil, err
			}
			group.Keys = append(group.Keys, GroupKey{Expr: expr})
		}
		for _, ab := range sq.Aggregates {
			binding, err := fromAggregateBind(ab)
			if err != nil {
				return nil, err
			}
			group.Aggregates = append(group.Aggregates, binding)
		}
		for _, h := range sq.Having {
			expr, err := fromExpr(h)
			if err != nil {
				return nil, err
			}
			group.Having = append(group.Having, expr)
		}
		node = group
	}

	if len(sq.OrderBy) > 0 {
		ob := &OrderBy{Input: node}
		for _, oc := range sq.OrderBy {
			expr, err := fromExpr(oc.Expression)
			if err != nil {
				return nil, err
			}
			ob.Conditions = append(ob.Conditions, OrderCondition{Expr: expr, Descending: !oc.Ascending})
		}
		node = ob
	}

	limit := -1
	offset := 0
	if sq.Limit != nil {
		limit = *sq.Limit
	}
	if sq.Offset != nil {
		offset = *sq.Offset
	}
	if limit >= 0 || offset > 0 {
		node = &Slice{Input: node, Limit: limit, Offset: offset}
	}

	sel := &Select{Input: node, Distinct: sq.Distinct, Reduced: sq.Reduced}
	for _, v := range sq.Variables {
		sel.Vars = append(sel.Vars, v.Name)
	}
	for _, ab := range sq.Aggregates {
		if len(sq.GroupBy) == 0 && !hasGroupAggregates(sq) {
			// No real GROUP BY: this is a SELECT-list aggregate over the
			// whole result set, computed by the single-partition Group
			// built above; nothing is added to Extra.
		}
		sel.Vars = append(sel.Vars, ab.Variable.Name)
	}
	return sel, nil
}

// hasSelectAggregates reports whether the SELECT list itself uses
// aggregate expressions, which implicitly groups the whole result into
// one partition even without an explicit GROUP BY.
func hasSelectAggregates(sq *parser.SelectQuery) bool {
	return len(sq.Aggregates) > 0
}

func hasGroupAggregates(sq *parser.SelectQuery) bool {
	return len(sq.GroupBy) > 0
}

func fromAggregateBind(ab *parser.AggregateBind) (AggregateBinding, error) {
	binding := AggregateBinding{
		Var:       ab.Variable.Name,
		Function:  ab.Aggregate.Function,
		Distinct:  ab.Aggregate.Distinct,
		Wildcard:  ab.Aggregate.Wildcard,
		Separator: ab.Aggregate.Separator,
	}
	if ab.Aggregate.Expr != nil {
		expr, err := fromExpr(ab.Aggregate.Expr)
		if err != nil {
			return AggregateBinding{}, err
		}
		binding.Expr = expr
	}
	return binding, nil
}

func fromValuesClause(vc *parser.ValuesClause) *Values {
	v := &Values{}
	for _, variable := range vc.Variables {
		v.Vars = append(v.Vars, variable.Name)
	}
	for _, row := range vc.Rows {
		var cells []ValueCell
		for _, cell := range row {
			if cell.Term == nil && cell.Variable == nil {
				cells = append(cells, ValueCell{Undef: true})
				continue
			}
			cells = append(cells, ValueCell{Term: cell.Term})
		}
		v.Rows = append(v.Rows, cells)
	}
	return v
}

// fromGraphPattern lowers a parsed WHERE body into the algebra tree,
// folding filters/binds/values attached at this scope into Filter/
// Extend/Join nodes wrapping the scope's joined children.
func fromGraphPattern(gp *parser.GraphPattern) (Node, error) {
	var bgpPatterns []*parser.TriplePattern
	var node Node
	for _, tp := range gp.Patterns {
		if tp.Path == nil {
			bgpPatterns = append(bgpPatterns, tp)
			continue
		}
		pathNode := &Path{Subject: tp.Subject, Path: tp.Path, Object: tp.Object, MaxDepth: DefaultMaxPathDepth}
		if node == nil {
			node = pathNode
		} else {
			node = &Join{Left: node, Right: pathNode}
		}
	}
	bgp := &BGP{Patterns: bgpPatterns}
	if node == nil {
		node = bgp
	} else {
		node = &Join{Left: bgp, Right: node}
	}

	for _, child := range gp.Children {
		childNode, err := fromChildPattern(child)
		if err != nil {
			return nil, err
		}
		switch child.Type {
		case parser.GraphPatternTypeOptional:
			node = &LeftJoin{Left: node, Right: childNode}
		case parser.GraphPatternTypeMinus:
			node = &Minus{Left: node, Right: childNode}
		case parser.GraphPatternTypeUnion:
			node = &Join{Left: node, Right: childNode}
		default:
			node = &Join{Left: node, Right: childNode}
		}
	}

	if gp.Values != nil {
		node = &Join{Left: node, Right: fromValuesClause(gp.Values)}
	}

	for _, b := range gp.Binds {
		expr, err := fromExpr(b.Expression)
		if err != nil {
			return nil, err
		}
		node = &Extend{Input: node, Var: b.Variable.Name, Expr: expr}
	}

	for _, f := range gp.Filters {
		expr, err := fromExpr(f.Expression)
		if err != nil {
			return nil, err
		}
		node = &Filter{Input: node, Condition: expr}
	}

	return node, nil
}

// fromChildPattern lowers one nested GraphPattern (a UNION arm, an
// OPTIONAL/MINUS body, or a GRAPH block) to an algebra node, applying
// its own Graph wrapper when it is a GRAPH pattern, and lowering a UNION's
// two arms to a Union node. A UNION with more than two arms arrives from
// the parser as left-nested two-arm UNION patterns; an arm that is itself
// a UNION is lowered recursively here.
func fromChildPattern(gp *parser.GraphPattern) (Node, error) {
	if gp.Type == parser.GraphPatternTypeUnion {
		if len(gp.Children) != 2 {
			return nil, fmt.Errorf("unsupported construct: UNION with %d arms", len(gp.Children))
		}
		arm := func(c *parser.GraphPattern) (Node, error) {
			if c.Type == parser.GraphPatternTypeUnion {
				return fromChildPattern(c)
			}
			return fromGraphPattern(c)
		}
		left, err := arm(gp.Children[0])
		if err != nil {
			return nil, err
		}
		right, err := arm(gp.Children[1])
		if err != nil {
			return nil, err
		}
		return &Union{Left: left, Right: right}, nil
	}

	node, err := fromGraphPattern(gp)
	if err != nil {
		return nil, err
	}

	if gp.Type == parser.GraphPatternTypeGraph {
		ref := GraphRef{}
		if gp.Graph.Variable != nil {
			ref.Var = gp.Graph.Variable.Name
		} else {
			ref.IRI = gp.Graph.IRI
		}
		node = &Graph{Input: node, Name: ref}
	}

	return node, nil
}

// fromExpr lowers a parsed Expression into the algebra's Expr family.
func fromExpr(e parser.Expression) (Expr, error) {
	switch v := e.(type) {
	case *parser.VariableExpression:
		return &VarExpr{Name: v.Variable.Name}, nil
	case *parser.LiteralExpression:
		return &ConstExpr{Term: v.Literal}, nil
	case *parser.UnaryExpression:
		operand, err := fromExpr(v.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: v.Operator, Operand: operand}, nil
	case *parser.BinaryExpression:
		left, err := fromExpr(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := fromExpr(v.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: v.Operator, Left: left, Right: right}, nil
	case *parser.FunctionCallExpression:
		args := make([]Expr, 0, len(v.Arguments))
		for _, a := range v.Arguments {
			ae, err := fromExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return &CallExpr{Function: v.Function, Args: args}, nil
	case *parser.InExpression:
		inner, err := fromExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		list := make([]Expr, 0, len(v.List))
		for _, item := range v.List {
			ie, err := fromExpr(item)
			if err != nil {
				return nil, err
			}
			list = append(list, ie)
		}
		return &InExpr{Expr: inner, List: list, Negated: v.Negated}, nil
	case *parser.ExistsExpression:
		pattern, err := fromGraphPattern(v.Pattern)
		if err != nil {
			return nil, err
		}
		return &ExistsExpr{Pattern: pattern, Negated: v.Negated}, nil
	case *parser.AggregateExpression:
		// Reached only when an aggregate expression is nested inside a
		// larger expression tree rather than a top-level SELECT-list/
		// GROUP BY entry; translate handles it as a scalar subquery.
		args := []Expr{}
		if v.Expr != nil {
			inner, err := fromExpr(v.Expr)
			if err != nil {
				return nil, err
			}
			args = append(args, inner)
		}
		return &CallExpr{Function: "AGG_" + v.Function, Args: args}, nil
	default:
		return nil, fmt.Errorf("unsupported construct: %T", e)
	}
}
