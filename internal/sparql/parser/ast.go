package parser

import (
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// Query represents a SPARQL query
type Query struct {
	QueryType QueryType
	Select    *SelectQuery
	Construct *ConstructQuery
	Ask       *AskQuery
	Describe  *DescribeQuery
	Update    []*UpdateOperation
}

// QueryType represents the type of SPARQL query
type QueryType int

const (
	QueryTypeSelect QueryType = iota
	QueryTypeConstruct
	QueryTypeAsk
	QueryTypeDescribe
	QueryTypeUpdate
)

// SelectQuery represents a SELECT query
type SelectQuery struct {
	Variables  []*Variable       // Variables to select (* for all)
	Aggregates []*AggregateBind  // SELECT-list (AGG(...) AS ?v) entries
	Distinct   bool              // DISTINCT modifier
	Reduced    bool              // REDUCED modifier
	Where      *GraphPattern     // WHERE clause
	GroupBy    []Expression      // GROUP BY expressions
	Having     []Expression      // HAVING conditions
	OrderBy    []*OrderCondition // ORDER BY clause
	Limit      *int              // LIMIT clause
	Offset     *int              // OFFSET clause
	Values     *ValuesClause     // inline VALUES clause, if present
}

// AggregateBind is one `(AGG(expr) AS ?v)` entry in a SELECT list.
type AggregateBind struct {
	Aggregate *AggregateExpression
	Variable  *Variable
}

// AggregateExpression represents an aggregate function application:
// COUNT, SUM, AVG, MIN, MAX, GROUP_CONCAT, SAMPLE.
type AggregateExpression struct {
	Function string
	Distinct bool
	Expr     Expression // nil for COUNT(*)
	Wildcard bool
	Separator string // GROUP_CONCAT's SEPARATOR, if given
}

func (e *AggregateExpression) expressionNode() {}

// ValuesClause represents an inline VALUES data block.
type ValuesClause struct {
	Variables []*Variable
	Rows      [][]TermOrVariable // UNDEF encoded as a zero TermOrVariable with Term == nil, Variable == nil
}

// UpdateOperation is one SPARQL 1.1 Update operation.
type UpdateOperation struct {
	Kind        UpdateKind
	InsertData  []*TriplePattern // INSERT DATA
	DeleteData  []*TriplePattern // DELETE DATA
	DeleteTmpl  []*TriplePattern // DELETE/INSERT WHERE: delete template
	InsertTmpl  []*TriplePattern // DELETE/INSERT WHERE: insert template
	Where       *GraphPattern    // WHERE clause for modify forms
	GraphIRI    *rdf.NamedNode   // CREATE/DROP/CLEAR target, LOAD destination
	SourceGraph *rdf.NamedNode   // ADD/MOVE/COPY source
	DestGraph   *rdf.NamedNode   // ADD/MOVE/COPY destination
	Silent      bool
	LoadSource  string // LOAD <source>
}

// UpdateKind enumerates the SPARQL 1.1 Update forms spec.md §4.9 names.
type UpdateKind int

const (
	UpdateInsertData UpdateKind = iota
	UpdateDeleteData
	UpdateModify // INSERT/DELETE ... WHERE
	UpdateLoad
	UpdateClear
	UpdateDrop
	UpdateCreate
	UpdateAdd
	UpdateMove
	UpdateCopy
)

// ConstructQuery represents a CONSTRUCT query
type ConstructQuery struct {
	Template []*TriplePattern // CONSTRUCT template
	Where    *GraphPattern    // WHERE clause
}

// AskQuery represents an ASK query
type AskQuery struct {
	Where *GraphPattern // WHERE clause
}

// DescribeQuery represents a DESCRIBE query
type DescribeQuery struct {
	Resources []*rdf.NamedNode // Resources to describe
	Where     *GraphPattern     // WHERE clause (optional)
}

// GraphPattern represents a graph pattern
type GraphPattern struct {
	Type     GraphPatternType
	Patterns []*TriplePattern // For basic graph patterns
	Filters  []*Filter         // FILTER expressions
	Binds    []*Bind           // BIND expressions
	Children []*GraphPattern   // For complex patterns (UNION, OPTIONAL, etc.)
	Graph    *GraphTerm        // For GRAPH patterns
	Values   *ValuesClause     // inline VALUES block nested in this pattern, if any
}

// GraphPatternType represents the type of graph pattern
type GraphPatternType int

const (
	GraphPatternTypeBasic GraphPatternType = iota
	GraphPatternTypeUnion
	GraphPatternTypeOptional
	GraphPatternTypeGraph
	GraphPatternTypeMinus
)

// TriplePattern represents a triple pattern with possible variables. Path
// is non-nil when Predicate is a property path rather than a plain
// term/variable (spec.md §4.9's path operators).
type TriplePattern struct {
	Subject   TermOrVariable
	Predicate TermOrVariable
	Object    TermOrVariable
	Path      *PropertyPath
	GraphHint *rdf.NamedNode // graph of the enclosing GRAPH block in an update template; nil outside one
}

// PropertyPath represents a SPARQL 1.1 property path expression:
// sequence (p1/p2), alternative (p1|p2), inverse (^p), one-or-more (p+),
// zero-or-more (p*), zero-or-one (p?), and negated property sets (!p,
// !(p1|p2|^p3)).
type PropertyPath struct {
	Op       PathOp
	Pred     *rdf.NamedNode  // leaf: a single predicate IRI
	Left     *PropertyPath   // sequence/alternative left operand
	Right    *PropertyPath   // sequence/alternative right operand
	Sub      *PropertyPath   // inverse/one-or-more/zero-or-more/zero-or-one operand
	Negated  []*rdf.NamedNode // negated property set members
	NegInv   []*rdf.NamedNode // negated property set members applied in inverse direction
}

// PathOp enumerates property path operators.
type PathOp int

const (
	PathPredicate PathOp = iota // leaf IRI
	PathSequence                // p1/p2
	PathAlternative             // p1|p2
	PathInverse                 // ^p
	PathOneOrMore               // p+
	PathZeroOrMore              // p*
	PathZeroOrOne               // p?
	PathNegatedSet              // !p or !(p1|p2|^p3)
)

// TermOrVariable can be either an RDF term or a variable
type TermOrVariable struct {
	Term     rdf.Term
	Variable *Variable
}

// IsVariable returns true if this is a variable
func (t *TermOrVariable) IsVariable() bool {
	return t.Variable != nil
}

// Variable represents a SPARQL variable
type Variable struct {
	Name string
}

// GraphTerm represents a graph name (can be IRI or variable)
type GraphTerm struct {
	IRI      *rdf.NamedNode
	Variable *Variable
}

// Filter represents a FILTER expression
type Filter struct {
	Expression Expression
}

// Bind represents a BIND expression (assigns an expression to a variable)
type Bind struct {
	Expression Expression
	Variable   *Variable
}

// Expression represents a SPARQL expression
type Expression interface {
	expressionNode()
}

// BinaryExpression represents a binary operation
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

func (e *BinaryExpression) expressionNode() {}

// UnaryExpression represents a unary operation
type UnaryExpression struct {
	Operator Operator
	Operand  Expression
}

func (e *UnaryExpression) expressionNode() {}

// VariableExpression represents a variable in an expression
type VariableExpression struct {
	Variable *Variable
}

func (e *VariableExpression) expressionNode() {}

// LiteralExpression represents a literal value in an expression
type LiteralExpression struct {
	Literal rdf.Term
}

func (e *LiteralExpression) expressionNode() {}

// FunctionCallExpression represents a function call
type FunctionCallExpression struct {
	Function  string
	Arguments []Expression
}

func (e *FunctionCallExpression) expressionNode() {}

// ExistsExpression represents EXISTS { pattern } / NOT EXISTS { pattern },
// usable both as a FILTER condition and as a boolean-valued expression.
type ExistsExpression struct {
	Pattern  *GraphPattern
	Negated  bool
}

func (e *ExistsExpression) expressionNode() {}

// InExpression represents `expr IN (list)` / `expr NOT IN (list)`.
type InExpression struct {
	Expr    Expression
	List    []Expression
	Negated bool
}

func (e *InExpression) expressionNode() {}

// Operator represents an operator in expressions
type Operator int

const (
	// Logical operators
	OpAnd Operator = iota
	OpOr
	OpNot

	// Comparison operators
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual

	// Arithmetic operators
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide

	// String operators
	OpRegex
	OpStr
	OpLang
	OpDatatype

	// Numeric operators
	OpIsNumeric
	OpAbs
	OpCeil
	OpFloor
	OpRound
)

// OrderCondition represents an ORDER BY condition
type OrderCondition struct {
	Expression Expression
	Ascending  bool
}
