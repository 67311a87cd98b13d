package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// Parser parses SPARQL queries and updates with a hand-rolled recursive
// descent scanner (no lexer pass, no parser generator), matching the
// teacher's original approach (internal/nquads/parser.go) generalized from
// N-Quads tokens to full SPARQL 1.1 query/update grammar: expressions,
// property paths, aggregates, VALUES, and the nine update forms.
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string // Maps prefix to IRI
}

// NewParser creates a new SPARQL parser
func NewParser(input string) *Parser {
	return &Parser{
		input:    input,
		pos:      0,
		length:   len(input),
		prefixes: make(map[string]string),
	}
}

// WithPrefixes seeds the parser's prefix map before parsing, letting a
// caller resolve a query against namespaces registered out-of-band (spec
// §3's per-space Namespace table, consulted when a query omits a PREFIX
// declaration it previously registered).
func (p *Parser) WithPrefixes(prefixes map[string]string) *Parser {
	for k, v := range prefixes {
		if _, exists := p.prefixes[k]; !exists {
			p.prefixes[k] = v
		}
	}
	return p
}

// Parse parses a SPARQL query or update
func (p *Parser) Parse() (*Query, error) {
	p.skipWhitespace()
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if p.peekKeyword("INSERT") || p.peekKeyword("DELETE") || p.peekKeyword("LOAD") ||
		p.peekKeyword("CLEAR") || p.peekKeyword("DROP") || p.peekKeyword("CREATE") ||
		p.peekKeyword("ADD") || p.peekKeyword("MOVE") || p.peekKeyword("COPY") ||
		p.peekKeyword("WITH") {
		ops, err := p.parseUpdate()
		if err != nil {
			return nil, err
		}
		return &Query{QueryType: QueryTypeUpdate, Update: ops}, nil
	}

	queryType, err := p.parseQueryType()
	if err != nil {
		return nil, err
	}

	query := &Query{QueryType: queryType}
	switch queryType {
	case QueryTypeSelect:
		q, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		query.Select = q
	case QueryTypeAsk:
		q, err := p.parseAsk()
		if err != nil {
			return nil, err
		}
		query.Ask = q
	case QueryTypeConstruct:
		q, err := p.parseConstruct()
		if err != nil {
			return nil, err
		}
		query.Construct = q
	case QueryTypeDescribe:
		q, err := p.parseDescribe()
		if err != nil {
			return nil, err
		}
		query.Describe = q
	default:
		return nil, fmt.Errorf("query type not yet implemented: %v", queryType)
	}

	return query, nil
}

// parsePrologue consumes leading PREFIX/BASE declarations.
func (p *Parser) parsePrologue() error {
	for {
		p.skipWhitespace()
		if p.matchKeyword("PREFIX") {
			if err := p.skipPrefix(); err != nil {
				return err
			}
		} else if p.matchKeyword("BASE") {
			if err := p.skipBase(); err != nil {
				return err
			}
		} else {
			return nil
		}
	}
}

// parseQueryType determines the query type
func (p *Parser) parseQueryType() (QueryType, error) {
	p.skipWhitespace()

	if p.matchKeyword("SELECT") {
		return QueryTypeSelect, nil
	}
	if p.matchKeyword("CONSTRUCT") {
		return QueryTypeConstruct, nil
	}
	if p.matchKeyword("ASK") {
		return QueryTypeAsk, nil
	}
	if p.matchKeyword("DESCRIBE") {
		return QueryTypeDescribe, nil
	}

	return 0, fmt.Errorf("expected query type (SELECT, CONSTRUCT, ASK, DESCRIBE)")
}

// parseSelect parses a SELECT query, including aggregate projections,
// GROUP BY/HAVING, ORDER BY, LIMIT/OFFSET, and a trailing VALUES clause.
func (p *Parser) parseSelect() (*SelectQuery, error) {
	query := &SelectQuery{}

	if p.matchKeyword("DISTINCT") {
		query.Distinct = true
	} else if p.matchKeyword("REDUCED") {
		query.Reduced = true
	}

	if err := p.parseSelectProjection(query); err != nil {
		return nil, err
	}

	p.matchKeyword("WHERE")

	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	query.Where = where

	if p.matchKeyword("GROUP") {
		if !p.matchKeyword("BY") {
			return nil, fmt.Errorf("expected BY after GROUP")
		}
		groupBy, err := p.parseGroupByExpressions()
		if err != nil {
			return nil, err
		}
		query.GroupBy = groupBy
	}

	if p.matchKeyword("HAVING") {
		having, err := p.parseHavingExpressions()
		if err != nil {
			return nil, err
		}
		query.Having = having
	}

	if p.matchKeyword("ORDER") {
		if !p.matchKeyword("BY") {
			return nil, fmt.Errorf("expected BY after ORDER")
		}
		orderBy, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		query.OrderBy = orderBy
	}

	if p.matchKeyword("LIMIT") {
		limit, err := p.parseInteger()
		if err != nil {
			return nil, err
		}
		query.Limit = &limit
	}

	if p.matchKeyword("OFFSET") {
		offset, err := p.parseInteger()
		if err != nil {
			return nil, err
		}
		query.Offset = &offset
	}

	p.skipWhitespace()
	if p.matchKeyword("VALUES") {
		vc, err := p.parseValuesClause()
		if err != nil {
			return nil, err
		}
		query.Values = vc
	}

	return query, nil
}

// parseSelectProjection parses the SELECT list: `*`, bare variables, and
// `(expr AS ?v)` / `(AGG(...) AS ?v)` entries.
func (p *Parser) parseSelectProjection(query *SelectQuery) error {
	p.skipWhitespace()

	if p.peek() == '*' {
		p.advance()
		return nil
	}

	hasProjection := false
	for {
		p.skipWhitespace()
		ch := p.peek()

		if ch == '(' {
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return err
			}
			p.skipWhitespace()
			if !p.matchKeyword("AS") {
				return fmt.Errorf("expected AS in SELECT expression")
			}
			p.skipWhitespace()
			v, err := p.parseVariable()
			if err != nil {
				return err
			}
			p.skipWhitespace()
			if p.peek() != ')' {
				return fmt.Errorf("expected ')' to close SELECT expression")
			}
			p.advance()

			if agg, ok := expr.(*AggregateExpression); ok {
				query.Aggregates = append(query.Aggregates, &AggregateBind{Aggregate: agg, Variable: v})
			} else {
				query.Aggregates = append(query.Aggregates, &AggregateBind{
					Aggregate: &AggregateExpression{Function: "", Expr: expr},
					Variable:  v,
				})
			}
			hasProjection = true
			continue
		}

		if ch != '?' && ch != '$' {
			break
		}
		v, err := p.parseVariable()
		if err != nil {
			return err
		}
		query.Variables = append(query.Variables, v)
		hasProjection = true
	}

	if !hasProjection {
		return fmt.Errorf("expected at least one variable, expression, or *")
	}
	return nil
}

// parseAsk parses an ASK query
func (p *Parser) parseAsk() (*AskQuery, error) {
	query := &AskQuery{}

	if !p.matchKeyword("WHERE") {
		// WHERE is optional per the grammar but required in practice when
		// a '{' directly follows.
		p.skipWhitespace()
		if p.peek() != '{' {
			return nil, fmt.Errorf("expected WHERE clause")
		}
	}

	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	query.Where = where
	return query, nil
}

// parseDescribe parses a DESCRIBE query: `*` or a resource list of IRIs
// and prefixed names, and an optional WHERE clause (spec §4.9's one-hop
// expansion is applied downstream by the translator, not the parser).
// Variables are not read as resources: the list ends at the first token
// that is neither an IRI nor a prefixed name.
func (p *Parser) parseDescribe() (*DescribeQuery, error) {
	query := &DescribeQuery{}

	p.skipWhitespace()
	if p.peek() == '*' {
		p.advance()
	} else {
		for {
			p.skipWhitespace()
			ch := p.peek()
			if ch == '<' {
				iri, err := p.parseIRI()
				if err != nil {
					return nil, err
				}
				query.Resources = append(query.Resources, rdf.NewNamedNode(iri))
				continue
			}
			if ch == ':' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
				if p.peekKeyword("WHERE") {
					break
				}
				iri, err := p.parsePrefixedName()
				if err != nil {
					return nil, err
				}
				query.Resources = append(query.Resources, rdf.NewNamedNode(iri))
				continue
			}
			break
		}
	}

	p.skipWhitespace()
	if p.matchKeyword("WHERE") {
		where, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		query.Where = where
	}
	return query, nil
}

// parseConstruct parses a CONSTRUCT query
func (p *Parser) parseConstruct() (*ConstructQuery, error) {
	query := &ConstructQuery{}

	p.skipWhitespace()

	if p.matchKeyword("WHERE") {
		where, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		if len(where.Filters) > 0 {
			return nil, fmt.Errorf("CONSTRUCT WHERE cannot contain FILTER expressions")
		}
		query.Where = where
		query.Template = where.Patterns
		return query, nil
	}

	if p.peek() != '{' {
		return nil, fmt.Errorf("expected '{' to start CONSTRUCT template or WHERE keyword")
	}
	p.advance()

	var template []*TriplePattern
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}
		pattern, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		template = append(template, pattern)

		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}
	query.Template = template

	if !p.matchKeyword("WHERE") {
		return nil, fmt.Errorf("expected WHERE clause")
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	query.Where = where
	return query, nil
}

// ---------------------------------------------------------------------
// SPARQL 1.1 Update
// ---------------------------------------------------------------------

// parseUpdate parses a `;`-separated sequence of update operations.
func (p *Parser) parseUpdate() ([]*UpdateOperation, error) {
	var ops []*UpdateOperation
	for {
		p.skipWhitespace()
		if p.pos >= p.length {
			break
		}
		// WITH <iri> DELETE/INSERT ... WHERE is equivalent to setting the
		// default graph for the operation; the named graph is folded into
		// GraphIRI for the translator to apply to the WHERE/templates.
		var withGraph *rdf.NamedNode
		if p.matchKeyword("WITH") {
			iri, err := p.parseIRIOrPrefixedName()
			if err != nil {
				return nil, err
			}
			withGraph = rdf.NewNamedNode(iri)
		}

		op, err := p.parseOneUpdate(withGraph)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)

		p.skipWhitespace()
		if p.peek() == ';' {
			p.advance()
			continue
		}
		break
	}
	return ops, nil
}

func (p *Parser) parseOneUpdate(withGraph *rdf.NamedNode) (*UpdateOperation, error) {
	switch {
	case p.matchKeyword("INSERT"):
		p.skipWhitespace()
		if p.matchKeyword("DATA") {
			tmpl, err := p.parseQuadTemplate()
			if err != nil {
				return nil, err
			}
			return &UpdateOperation{Kind: UpdateInsertData, InsertData: tmpl}, nil
		}
		insertTmpl, err := p.parseTripleTemplateBlock()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		var deleteTmpl []*TriplePattern
		if p.matchKeyword("DELETE") {
			deleteTmpl, err = p.parseTripleTemplateBlock()
			if err != nil {
				return nil, err
			}
		}
		if !p.matchKeyword("WHERE") {
			return nil, fmt.Errorf("expected WHERE after INSERT template")
		}
		where, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		return &UpdateOperation{Kind: UpdateModify, InsertTmpl: insertTmpl, DeleteTmpl: deleteTmpl, Where: where, GraphIRI: withGraph}, nil

	case p.matchKeyword("DELETE"):
		p.skipWhitespace()
		if p.matchKeyword("DATA") {
			tmpl, err := p.parseQuadTemplate()
			if err != nil {
				return nil, err
			}
			return &UpdateOperation{Kind: UpdateDeleteData, DeleteData: tmpl}, nil
		}
		if p.matchKeyword("WHERE") {
			// DELETE WHERE { pattern } deletes exactly the pattern's bindings.
			where, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			return &UpdateOperation{Kind: UpdateModify, DeleteTmpl: where.Patterns, Where: where, GraphIRI: withGraph}, nil
		}
		deleteTmpl, err := p.parseTripleTemplateBlock()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		var insertTmpl []*TriplePattern
		if p.matchKeyword("INSERT") {
			insertTmpl, err = p.parseTripleTemplateBlock()
			if err != nil {
				return nil, err
			}
		}
		if !p.matchKeyword("WHERE") {
			return nil, fmt.Errorf("expected WHERE after DELETE template")
		}
		where, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		return &UpdateOperation{Kind: UpdateModify, DeleteTmpl: deleteTmpl, InsertTmpl: insertTmpl, Where: where, GraphIRI: withGraph}, nil

	case p.matchKeyword("LOAD"):
		silent := p.matchKeyword("SILENT")
		src, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		op := &UpdateOperation{Kind: UpdateLoad, LoadSource: src, Silent: silent}
		p.skipWhitespace()
		if p.matchKeyword("INTO") {
			if !p.matchKeyword("GRAPH") {
				return nil, fmt.Errorf("expected GRAPH after INTO")
			}
			iri, err := p.parseIRIOrPrefixedName()
			if err != nil {
				return nil, err
			}
			op.GraphIRI = rdf.NewNamedNode(iri)
		}
		return op, nil

	case p.matchKeyword("CLEAR"):
		silent := p.matchKeyword("SILENT")
		graphIRI, err := p.parseGraphRefAll()
		if err != nil {
			return nil, err
		}
		return &UpdateOperation{Kind: UpdateClear, GraphIRI: graphIRI, Silent: silent}, nil

	case p.matchKeyword("DROP"):
		silent := p.matchKeyword("SILENT")
		graphIRI, err := p.parseGraphRefAll()
		if err != nil {
			return nil, err
		}
		return &UpdateOperation{Kind: UpdateDrop, GraphIRI: graphIRI, Silent: silent}, nil

	case p.matchKeyword("CREATE"):
		silent := p.matchKeyword("SILENT")
		if !p.matchKeyword("GRAPH") {
			return nil, fmt.Errorf("expected GRAPH after CREATE")
		}
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		return &UpdateOperation{Kind: UpdateCreate, GraphIRI: rdf.NewNamedNode(iri), Silent: silent}, nil

	case p.peekKeyword("ADD"), p.peekKeyword("MOVE"), p.peekKeyword("COPY"):
		// peekKeyword leaves the keyword in place; parseAddMoveCopy
		// consumes it and picks the UpdateKind from it.
		return p.parseAddMoveCopy(withGraph)

	default:
		return p.parseAddMoveCopy(withGraph)
	}
}

// parseAddMoveCopy handles ADD/MOVE/COPY, which share `[SILENT] src TO dst`
// shape and were awkward to fold into the switch above because each
// keyword needs its own UpdateKind.
func (p *Parser) parseAddMoveCopy(_ *rdf.NamedNode) (*UpdateOperation, error) {
	var kind UpdateKind
	switch {
	case p.matchKeyword("ADD"):
		kind = UpdateAdd
	case p.matchKeyword("MOVE"):
		kind = UpdateMove
	case p.matchKeyword("COPY"):
		kind = UpdateCopy
	default:
		return nil, fmt.Errorf("unrecognized update operation")
	}
	silent := p.matchKeyword("SILENT")
	src, err := p.parseGraphRefOrDefault()
	if err != nil {
		return nil, err
	}
	if !p.matchKeyword("TO") {
		return nil, fmt.Errorf("expected TO in ADD/MOVE/COPY")
	}
	dst, err := p.parseGraphRefOrDefault()
	if err != nil {
		return nil, err
	}
	return &UpdateOperation{Kind: kind, SourceGraph: src, DestGraph: dst, Silent: silent}, nil
}

// parseGraphRefAll parses CLEAR/DROP's target: GRAPH <iri> | DEFAULT |
// NAMED | ALL. DEFAULT/NAMED/ALL are returned as a NamedNode holding a
// synthetic marker IRI (DefaultGraphMarker, NamedGraphsMarker,
// AllGraphsMarker) for the translator to interpret (spec §4.9's UPDATE
// forms).
func (p *Parser) parseGraphRefAll() (*rdf.NamedNode, error) {
	p.skipWhitespace()
	switch {
	case p.matchKeyword("GRAPH"):
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(iri), nil
	case p.matchKeyword("DEFAULT"):
		return rdf.NewNamedNode(DefaultGraphMarker), nil
	case p.matchKeyword("NAMED"):
		return rdf.NewNamedNode(NamedGraphsMarker), nil
	case p.matchKeyword("ALL"):
		return rdf.NewNamedNode(AllGraphsMarker), nil
	default:
		return nil, fmt.Errorf("expected GRAPH/DEFAULT/NAMED/ALL")
	}
}

// parseGraphRefOrDefault parses ADD/MOVE/COPY's endpoints: GRAPH <iri> or
// DEFAULT.
func (p *Parser) parseGraphRefOrDefault() (*rdf.NamedNode, error) {
	p.skipWhitespace()
	if p.matchKeyword("DEFAULT") {
		return rdf.NewNamedNode(DefaultGraphMarker), nil
	}
	p.matchKeyword("GRAPH")
	iri, err := p.parseIRIOrPrefixedName()
	if err != nil {
		return nil, err
	}
	return rdf.NewNamedNode(iri), nil
}

// Marker IRIs used in place of a real graph reference for CLEAR/DROP/ADD
// targets that name a class of graphs rather than one graph.
const (
	DefaultGraphMarker = "urn:vitalgraph:update-target:default"
	NamedGraphsMarker  = "urn:vitalgraph:update-target:named"
	AllGraphsMarker    = "urn:vitalgraph:update-target:all"
)

// parseQuadTemplate parses the `{ ... }` block of INSERT/DELETE DATA,
// which may contain GRAPH <iri> { triples } blocks. Variables are not
// rejected here; DATA forms admit none, and the translator's groundQuads
// rejects a pattern that contains one.
func (p *Parser) parseQuadTemplate() ([]*TriplePattern, error) {
	gp, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	return flattenTemplate(gp), nil
}

// parseTripleTemplateBlock parses a `{ triples }` template used by
// DELETE/INSERT (non-DATA) forms.
func (p *Parser) parseTripleTemplateBlock() ([]*TriplePattern, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, fmt.Errorf("expected '{' to start update template")
	}
	p.advance()

	var out []*TriplePattern
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}
		if p.matchKeyword("GRAPH") {
			iri, err := p.parseIRIOrPrefixedName()
			if err != nil {
				return nil, err
			}
			sub, err := p.parseTripleTemplateBlock()
			if err != nil {
				return nil, err
			}
			for _, t := range sub {
				t.GraphHint = rdf.NewNamedNode(iri)
			}
			out = append(out, sub...)
			continue
		}
		t, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}
	return out, nil
}

// flattenTemplate collects every triple pattern reachable from gp
// (including nested GRAPH blocks), tagging each with the graph it
// appeared under.
func flattenTemplate(gp *GraphPattern) []*TriplePattern {
	var out []*TriplePattern
	out = append(out, gp.Patterns...)
	for _, child := range gp.Children {
		sub := flattenTemplate(child)
		if child.Type == GraphPatternTypeGraph && child.Graph != nil && child.Graph.IRI != nil {
			for _, t := range sub {
				t.GraphHint = child.Graph.IRI
			}
		}
		out = append(out, sub...)
	}
	return out
}

// parseIRIOrPrefixedName parses either a <...> IRI or a prefixed name.
func (p *Parser) parseIRIOrPrefixedName() (string, error) {
	p.skipWhitespace()
	if p.peek() == '<' {
		return p.parseIRI()
	}
	return p.parsePrefixedName()
}

// ---------------------------------------------------------------------
// Graph patterns (WHERE bodies)
// ---------------------------------------------------------------------

func (p *Parser) parseGraphPattern() (*GraphPattern, error) {
	p.skipWhitespace()

	if p.peek() != '{' {
		return nil, fmt.Errorf("expected '{' to start graph pattern")
	}
	p.advance()

	pattern := &GraphPattern{Type: GraphPatternTypeBasic}

	for {
		p.skipWhitespace()

		if p.peek() == '}' {
			p.advance()
			break
		}

		if p.matchKeyword("GRAPH") {
			gp, err := p.parseGraphGraphPattern()
			if err != nil {
				return nil, err
			}
			pattern.Children = append(pattern.Children, gp)
			continue
		}

		if p.matchKeyword("FILTER") {
			filter, err := p.parseFilter()
			if err != nil {
				return nil, err
			}
			pattern.Filters = append(pattern.Filters, filter)
			continue
		}

		if p.matchKeyword("BIND") {
			bind, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			pattern.Binds = append(pattern.Binds, bind)
			continue
		}

		if p.matchKeyword("VALUES") {
			vc, err := p.parseValuesClause()
			if err != nil {
				return nil, err
			}
			pattern.Values = vc
			continue
		}

		if p.matchKeyword("OPTIONAL") {
			inner, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			inner.Type = GraphPatternTypeOptional
			pattern.Children = append(pattern.Children, inner)
			continue
		}

		if p.matchKeyword("MINUS") {
			inner, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			inner.Type = GraphPatternTypeMinus
			pattern.Children = append(pattern.Children, inner)
			continue
		}

		if p.peek() == '{' {
			nested, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}

			p.skipWhitespace()
			for p.matchKeyword("UNION") {
				rightPattern, err := p.parseGraphPattern()
				if err != nil {
					return nil, err
				}
				nested = &GraphPattern{
					Type:     GraphPatternTypeUnion,
					Children: []*GraphPattern{nested, rightPattern},
				}
				p.skipWhitespace()
			}
			pattern.Children = append(pattern.Children, nested)
			continue
		}

		triple, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		pattern.Patterns = append(pattern.Patterns, triple)

		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}

	return pattern, nil
}

// parseGraphGraphPattern parses a GRAPH <iri> { ... } or GRAPH ?var { ... } pattern
func (p *Parser) parseGraphGraphPattern() (*GraphPattern, error) {
	p.skipWhitespace()

	graphTerm := &GraphTerm{}
	if p.peek() == '?' || p.peek() == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		graphTerm.Variable = v
	} else {
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		graphTerm.IRI = rdf.NewNamedNode(iri)
	}

	inner, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	inner.Type = GraphPatternTypeGraph
	inner.Graph = graphTerm
	return inner, nil
}

// parseTriplePattern parses one triple pattern, including a property path
// in predicate position (spec.md §4.9 path operators).
func (p *Parser) parseTriplePattern() (*TriplePattern, error) {
	p.skipWhitespace()

	subject, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("failed to parse subject: %w", err)
	}

	p.skipWhitespace()
	path, predicate, err := p.parsePredicate()
	if err != nil {
		return nil, fmt.Errorf("failed to parse predicate: %w", err)
	}

	p.skipWhitespace()
	object, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object: %w", err)
	}

	return &TriplePattern{
		Subject:   *subject,
		Predicate: predicate,
		Object:    *object,
		Path:      path,
	}, nil
}

// parsePredicate parses a predicate position: a variable, the `a`
// shorthand, or a (possibly compound) property path expression.
func (p *Parser) parsePredicate() (*PropertyPath, TermOrVariable, error) {
	p.skipWhitespace()
	if p.peek() == '?' || p.peek() == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, TermOrVariable{}, err
		}
		return nil, TermOrVariable{Variable: v}, nil
	}

	path, err := p.parsePathAlternative()
	if err != nil {
		return nil, TermOrVariable{}, err
	}
	if simple := path.asSimplePredicate(); simple != nil {
		return nil, TermOrVariable{Term: simple}, nil
	}
	return path, TermOrVariable{}, nil
}

// asSimplePredicate returns the bare IRI this path represents if it
// carries no path operator at all (a plain predicate), nil otherwise.
func (pp *PropertyPath) asSimplePredicate() *rdf.NamedNode {
	if pp.Op == PathPredicate {
		return pp.Pred
	}
	return nil
}

// parsePathAlternative: PathSequence ('|' PathSequence)*
func (p *Parser) parsePathAlternative() (*PropertyPath, error) {
	left, err := p.parsePathSequence()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	for p.peek() == '|' {
		p.advance()
		right, err := p.parsePathSequence()
		if err != nil {
			return nil, err
		}
		left = &PropertyPath{Op: PathAlternative, Left: left, Right: right}
		p.skipWhitespace()
	}
	return left, nil
}

// parsePathSequence: PathEltOrInverse ('/' PathEltOrInverse)*
func (p *Parser) parsePathSequence() (*PropertyPath, error) {
	left, err := p.parsePathEltOrInverse()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	for p.peek() == '/' {
		p.advance()
		right, err := p.parsePathEltOrInverse()
		if err != nil {
			return nil, err
		}
		left = &PropertyPath{Op: PathSequence, Left: left, Right: right}
		p.skipWhitespace()
	}
	return left, nil
}

// parsePathEltOrInverse: '^' PathPrimary PathMod? | PathPrimary PathMod?
func (p *Parser) parsePathEltOrInverse() (*PropertyPath, error) {
	p.skipWhitespace()
	var inv bool
	if p.peek() == '^' {
		p.advance()
		inv = true
	}
	prim, err := p.parsePathPrimary()
	if err != nil {
		return nil, err
	}
	if inv {
		prim = &PropertyPath{Op: PathInverse, Sub: prim}
	}
	return p.parsePathMod(prim)
}

// parsePathMod applies a trailing '*'/'+'/'?' modifier, if present.
func (p *Parser) parsePathMod(prim *PropertyPath) (*PropertyPath, error) {
	p.skipWhitespace()
	switch p.peek() {
	case '*':
		p.advance()
		return &PropertyPath{Op: PathZeroOrMore, Sub: prim}, nil
	case '+':
		p.advance()
		return &PropertyPath{Op: PathOneOrMore, Sub: prim}, nil
	case '?':
		// Ambiguous with the optional-object-of-SELECT '?' used for
		// variables; only consume if not immediately followed by an
		// identifier character (which would start a new variable token).
		if p.pos+1 < p.length {
			next := p.input[p.pos+1]
			if (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') || next == '_' {
				return prim, nil
			}
		}
		p.advance()
		return &PropertyPath{Op: PathZeroOrOne, Sub: prim}, nil
	default:
		return prim, nil
	}
}

// parsePathPrimary: iri | 'a' | '!' PathNegatedPropertySet | '(' Path ')'
func (p *Parser) parsePathPrimary() (*PropertyPath, error) {
	p.skipWhitespace()
	ch := p.peek()

	if ch == '(' {
		p.advance()
		inner, err := p.parsePathAlternative()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' to close path group")
		}
		p.advance()
		return inner, nil
	}

	if ch == '!' {
		p.advance()
		return p.parsePathNegatedPropertySet()
	}

	if ch == 'a' && !p.isPrefixedNameContinuation(1) {
		p.advance()
		return &PropertyPath{Op: PathPredicate, Pred: rdf.RDFType}, nil
	}

	iri, err := p.parseIRIOrPrefixedName()
	if err != nil {
		return nil, err
	}
	return &PropertyPath{Op: PathPredicate, Pred: rdf.NewNamedNode(iri)}, nil
}

// isPrefixedNameContinuation reports whether the byte `offset` ahead of
// the current position could continue a prefixed name/local name, used to
// disambiguate the bare `a` (rdf:type) shorthand from a prefix named `a`.
func (p *Parser) isPrefixedNameContinuation(offset int) bool {
	idx := p.pos + offset
	if idx >= p.length {
		return false
	}
	ch := p.input[idx]
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-' || ch == ':'
}

// parsePathNegatedPropertySet: PathOneInPropertySet | '(' (...'|'...)? ')'
func (p *Parser) parsePathNegatedPropertySet() (*PropertyPath, error) {
	p.skipWhitespace()
	pp := &PropertyPath{Op: PathNegatedSet}

	addOne := func() error {
		p.skipWhitespace()
		inv := false
		if p.peek() == '^' {
			p.advance()
			inv = true
		}
		var iri string
		var err error
		if p.peek() == 'a' && !p.isPrefixedNameContinuation(1) {
			p.advance()
			iri = rdf.RDFType.IRI
		} else {
			iri, err = p.parseIRIOrPrefixedName()
			if err != nil {
				return err
			}
		}
		if inv {
			pp.NegInv = append(pp.NegInv, rdf.NewNamedNode(iri))
		} else {
			pp.Negated = append(pp.Negated, rdf.NewNamedNode(iri))
		}
		return nil
	}

	if p.peek() == '(' {
		p.advance()
		p.skipWhitespace()
		if p.peek() != ')' {
			if err := addOne(); err != nil {
				return nil, err
			}
			p.skipWhitespace()
			for p.peek() == '|' {
				p.advance()
				if err := addOne(); err != nil {
					return nil, err
				}
				p.skipWhitespace()
			}
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' to close negated property set")
		}
		p.advance()
		return pp, nil
	}

	if err := addOne(); err != nil {
		return nil, err
	}
	return pp, nil
}

// parseTermOrVariable parses either an RDF term or a variable
func (p *Parser) parseTermOrVariable() (*TermOrVariable, error) {
	p.skipWhitespace()

	ch := p.peek()

	if ch == '?' || ch == '$' {
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Variable: variable}, nil
	}

	if ch == '<' {
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	}

	if ch == '"' || ch == '\'' {
		literal, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: literal}, nil
	}

	if ch == '_' {
		blankNode, err := p.parseBlankNode()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: blankNode}, nil
	}

	if ch >= '0' && ch <= '9' || ch == '-' || ch == '+' {
		literal, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: literal}, nil
	}

	if p.peekKeyword("true") || p.peekKeyword("false") {
		b := p.matchKeyword("true")
		if !b {
			p.matchKeyword("false")
		}
		return &TermOrVariable{Term: rdf.NewLiteralWithDatatype(boolStr(b), rdf.XSDBoolean)}, nil
	}

	if ch == 'a' && !p.isPrefixedNameContinuation(1) {
		p.advance()
		return &TermOrVariable{Term: rdf.RDFType}, nil
	}

	if ch == ':' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		prefixedName, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: rdf.NewNamedNode(prefixedName)}, nil
	}

	return nil, fmt.Errorf("unexpected character: %c", ch)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// parseVariable parses a SPARQL variable
func (p *Parser) parseVariable() (*Variable, error) {
	if p.peek() != '?' && p.peek() != '$' {
		return nil, fmt.Errorf("expected variable starting with ? or $")
	}
	p.advance()

	name := p.readWhile(func(ch byte) bool {
		return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '_'
	})

	if name == "" {
		return nil, fmt.Errorf("invalid variable name")
	}

	return &Variable{Name: name}, nil
}

// parseIRI parses an IRI enclosed in < >
func (p *Parser) parseIRI() (string, error) {
	if p.peek() != '<' {
		return "", fmt.Errorf("expected '<' to start IRI")
	}
	p.advance()

	iri := p.readWhile(func(ch byte) bool {
		return ch != '>'
	})

	if p.peek() != '>' {
		return "", fmt.Errorf("expected '>' to end IRI")
	}
	p.advance()

	return iri, nil
}

// parseStringLiteral parses a string literal, including an optional
// `@lang` tag or `^^<datatype>`/`^^prefix:name` suffix.
func (p *Parser) parseStringLiteral() (*rdf.Literal, error) {
	quote := p.peek()
	if quote != '"' && quote != '\'' {
		return nil, fmt.Errorf("expected quote to start string literal")
	}

	long := p.pos+2 < p.length && p.input[p.pos+1] == quote && p.input[p.pos+2] == quote
	var value string
	if long {
		p.pos += 3
		start := p.pos
		for p.pos+2 < p.length && !(p.input[p.pos] == quote && p.input[p.pos+1] == quote && p.input[p.pos+2] == quote) {
			p.pos++
		}
		value = p.input[start:p.pos]
		p.pos += 3
	} else {
		p.advance()
		start := p.pos
		for p.pos < p.length {
			if p.input[p.pos] == '\\' && p.pos+1 < p.length {
				p.pos += 2
				continue
			}
			if p.input[p.pos] == quote {
				break
			}
			p.pos++
		}
		value = unescapeString(p.input[start:p.pos])
		if p.peek() != quote {
			return nil, fmt.Errorf("expected quote to end string literal")
		}
		p.advance()
	}

	if p.peek() == '@' {
		p.advance()
		lang := p.readWhile(func(ch byte) bool {
			return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
				(ch >= '0' && ch <= '9') || ch == '-'
		})
		return rdf.NewLiteralWithLanguage(value, lang), nil
	}
	if p.pos+1 < p.length && p.input[p.pos] == '^' && p.input[p.pos+1] == '^' {
		p.pos += 2
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(iri)), nil
	}

	return rdf.NewLiteral(value), nil
}

func unescapeString(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// parseBlankNode parses a blank node
func (p *Parser) parseBlankNode() (*rdf.BlankNode, error) {
	if p.peek() != '_' {
		return nil, fmt.Errorf("expected '_' to start blank node")
	}
	p.advance()

	if p.peek() != ':' {
		return nil, fmt.Errorf("expected ':' after '_' in blank node")
	}
	p.advance()

	id := p.readWhile(func(ch byte) bool {
		return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '_'
	})

	return rdf.NewBlankNode(id), nil
}

// parseNumericLiteral parses a numeric literal
func (p *Parser) parseNumericLiteral() (*rdf.Literal, error) {
	numStr := p.readWhile(func(ch byte) bool {
		return (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E'
	})

	if !strings.Contains(numStr, ".") && !strings.Contains(numStr, "e") && !strings.Contains(numStr, "E") {
		if _, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return rdf.NewLiteralWithDatatype(numStr, rdf.XSDInteger), nil
		}
	}
	if strings.Contains(numStr, "e") || strings.Contains(numStr, "E") {
		return rdf.NewLiteralWithDatatype(numStr, rdf.XSDDouble), nil
	}
	return rdf.NewLiteralWithDatatype(numStr, rdf.XSDDecimal), nil
}

// ---------------------------------------------------------------------
// Expressions (FILTER / BIND / HAVING / GROUP BY / ORDER BY / SELECT)
// ---------------------------------------------------------------------

// parseFilter parses a FILTER constraint into a real expression tree.
func (p *Parser) parseFilter() (*Filter, error) {
	p.skipWhitespace()

	if p.matchKeyword("NOT") {
		p.skipWhitespace()
		if !p.matchKeyword("EXISTS") {
			return nil, fmt.Errorf("expected EXISTS after NOT in FILTER")
		}
		gp, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		return &Filter{Expression: &ExistsExpression{Pattern: gp, Negated: true}}, nil
	}
	if p.matchKeyword("EXISTS") {
		gp, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		return &Filter{Expression: &ExistsExpression{Pattern: gp}}, nil
	}

	expr, err := p.parseExpressionOrBracketed()
	if err != nil {
		return nil, err
	}
	return &Filter{Expression: expr}, nil
}

// parseExpressionOrBracketed parses a FILTER/HAVING condition, which is
// either `(expr)` or a bare built-in-call expression like `isBLANK(?x)`.
func (p *Parser) parseExpressionOrBracketed() (Expression, error) {
	p.skipWhitespace()
	if p.peek() == '(' {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' to close expression")
		}
		p.advance()
		return expr, nil
	}
	return p.parseUnaryExpression()
}

// parseBind parses BIND(<expression> AS ?variable)
func (p *Parser) parseBind() (*Bind, error) {
	p.skipWhitespace()
	if p.peek() != '(' {
		return nil, fmt.Errorf("expected '(' after BIND")
	}
	p.advance()

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if !p.matchKeyword("AS") {
		return nil, fmt.Errorf("expected AS keyword in BIND expression")
	}
	p.skipWhitespace()

	variable, err := p.parseVariable()
	if err != nil {
		return nil, fmt.Errorf("expected variable after AS in BIND: %w", err)
	}

	p.skipWhitespace()
	if p.peek() != ')' {
		return nil, fmt.Errorf("expected ')' to close BIND expression")
	}
	p.advance()

	return &Bind{Expression: expr, Variable: variable}, nil
}

// parseGroupByExpressions parses a GROUP BY clause into expressions,
// accepting bare variables and `(expr AS ?v)`/`(expr)` forms.
func (p *Parser) parseGroupByExpressions() ([]Expression, error) {
	var out []Expression
	for {
		p.skipWhitespace()
		ch := p.peek()
		if ch != '?' && ch != '$' && ch != '(' {
			break
		}

		if ch == '(' {
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			p.skipWhitespace()
			if p.matchKeyword("AS") {
				p.skipWhitespace()
				v, err := p.parseVariable()
				if err != nil {
					return nil, err
				}
				expr = &BindExpr{Expr: expr, Variable: v}
			}
			p.skipWhitespace()
			if p.peek() != ')' {
				return nil, fmt.Errorf("expected ')' to close GROUP BY expression")
			}
			p.advance()
			out = append(out, expr)
		} else {
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			out = append(out, &VariableExpression{Variable: v})
		}
		p.skipWhitespace()
	}
	return out, nil
}

// BindExpr wraps a GROUP BY expression that also names an output
// variable (`GROUP BY (?a + ?b AS ?sum)`), distinct from a WHERE-clause
// BIND because it is scoped to the grouping key rather than the input
// rows.
type BindExpr struct {
	Expr     Expression
	Variable *Variable
}

func (e *BindExpr) expressionNode() {}

// parseHavingExpressions parses the HAVING clause as a conjunction of
// boolean expressions.
func (p *Parser) parseHavingExpressions() ([]Expression, error) {
	var out []Expression
	for {
		p.skipWhitespace()
		if p.peek() != '(' && !p.peekKeyword("NOT") && !p.peekKeyword("EXISTS") {
			break
		}
		expr, err := p.parseExpressionOrBracketed()
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
		p.skipWhitespace()
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("expected at least one condition in HAVING")
	}
	return out, nil
}

// parseOrderBy parses the ORDER BY clause with real expressions.
func (p *Parser) parseOrderBy() ([]*OrderCondition, error) {
	var conditions []*OrderCondition

	for {
		p.skipWhitespace()

		ascending := true
		hasDirection := false
		if p.matchKeyword("DESC") {
			ascending = false
			hasDirection = true
		} else if p.matchKeyword("ASC") {
			ascending = true
			hasDirection = true
		}

		p.skipWhitespace()
		ch := p.peek()
		if ch != '?' && ch != '$' && ch != '(' {
			if hasDirection {
				return nil, fmt.Errorf("expected expression after ASC/DESC")
			}
			break
		}

		var expr Expression
		var err error
		if hasDirection {
			expr, err = p.parseExpressionOrBracketed()
		} else if ch == '(' {
			p.advance()
			expr, err = p.parseExpression()
			if err == nil {
				p.skipWhitespace()
				if p.peek() != ')' {
					err = fmt.Errorf("expected ')' to close ORDER BY expression")
				} else {
					p.advance()
				}
			}
		} else {
			v, verr := p.parseVariable()
			err = verr
			expr = &VariableExpression{Variable: v}
		}
		if err != nil {
			return nil, err
		}

		conditions = append(conditions, &OrderCondition{Expression: expr, Ascending: ascending})

		p.skipWhitespace()
		if p.peekKeyword("LIMIT") || p.peekKeyword("OFFSET") || p.peekKeyword("VALUES") || p.pos >= p.length {
			break
		}
	}

	return conditions, nil
}

// parseValuesClause parses `VALUES (?x ?y) { (t1 t2) (t3 t4) }` or the
// single-variable short form `VALUES ?x { t1 t2 }`.
func (p *Parser) parseValuesClause() (*ValuesClause, error) {
	p.skipWhitespace()
	vc := &ValuesClause{}

	if p.peek() == '(' {
		p.advance()
		for {
			p.skipWhitespace()
			if p.peek() == ')' {
				p.advance()
				break
			}
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			vc.Variables = append(vc.Variables, v)
			p.skipWhitespace()
		}
	} else {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		vc.Variables = []*Variable{v}
	}

	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, fmt.Errorf("expected '{' to start VALUES data block")
	}
	p.advance()

	multiCol := len(vc.Variables) > 1
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}

		var row []TermOrVariable
		if multiCol {
			if p.peek() != '(' {
				return nil, fmt.Errorf("expected '(' to start VALUES row")
			}
			p.advance()
			for {
				p.skipWhitespace()
				if p.peek() == ')' {
					p.advance()
					break
				}
				tv, err := p.parseValueOrUndef()
				if err != nil {
					return nil, err
				}
				row = append(row, tv)
				p.skipWhitespace()
			}
		} else {
			tv, err := p.parseValueOrUndef()
			if err != nil {
				return nil, err
			}
			row = []TermOrVariable{tv}
		}
		vc.Rows = append(vc.Rows, row)
	}

	return vc, nil
}

// parseValueOrUndef parses one VALUES cell: a term, or UNDEF (encoded as
// the zero TermOrVariable).
func (p *Parser) parseValueOrUndef() (TermOrVariable, error) {
	p.skipWhitespace()
	if p.matchKeyword("UNDEF") {
		return TermOrVariable{}, nil
	}
	tv, err := p.parseTermOrVariable()
	if err != nil {
		return TermOrVariable{}, err
	}
	return *tv, nil
}

// parseExpression is the entry point for a full boolean/arithmetic
// expression: ConditionalOrExpression.
func (p *Parser) parseExpression() (Expression, error) {
	return p.parseConditionalOr()
}

func (p *Parser) parseConditionalOr() (Expression, error) {
	left, err := p.parseConditionalAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.pos+1 < p.length && p.input[p.pos] == '|' && p.input[p.pos+1] == '|' {
			p.pos += 2
			right, err := p.parseConditionalAnd()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpOr, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseConditionalAnd() (Expression, error) {
	left, err := p.parseValueLogical()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.pos+1 < p.length && p.input[p.pos] == '&' && p.input[p.pos+1] == '&' {
			p.pos += 2
			right, err := p.parseValueLogical()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpAnd, Right: right}
			continue
		}
		break
	}
	return left, nil
}

// parseValueLogical: RelationalExpression, including IN / NOT IN.
func (p *Parser) parseValueLogical() (Expression, error) {
	left, err := p.parseNumericExpression()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()

	if p.matchKeyword("NOT") {
		p.skipWhitespace()
		if !p.matchKeyword("IN") {
			return nil, fmt.Errorf("expected IN after NOT in expression")
		}
		list, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &InExpression{Expr: left, List: list, Negated: true}, nil
	}
	if p.matchKeyword("IN") {
		list, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &InExpression{Expr: left, List: list}, nil
	}

	var op Operator
	matched := true
	switch {
	case p.pos+1 < p.length && p.input[p.pos] == '=' && p.input[p.pos+1] != '=':
		op = OpEqual
		p.pos++
	case p.pos+1 < p.length && p.input[p.pos] == '!' && p.input[p.pos+1] == '=':
		op = OpNotEqual
		p.pos += 2
	case p.pos+1 < p.length && p.input[p.pos] == '<' && p.input[p.pos+1] == '=':
		op = OpLessThanOrEqual
		p.pos += 2
	case p.pos+1 < p.length && p.input[p.pos] == '>' && p.input[p.pos+1] == '=':
		op = OpGreaterThanOrEqual
		p.pos += 2
	case p.peek() == '<':
		op = OpLessThan
		p.pos++
	case p.peek() == '>':
		op = OpGreaterThan
		p.pos++
	default:
		matched = false
	}
	if !matched {
		return left, nil
	}

	right, err := p.parseNumericExpression()
	if err != nil {
		return nil, err
	}
	return &BinaryExpression{Left: left, Operator: op, Right: right}, nil
}

func (p *Parser) parseExpressionList() ([]Expression, error) {
	p.skipWhitespace()
	if p.peek() != '(' {
		return nil, fmt.Errorf("expected '(' to start expression list")
	}
	p.advance()
	var out []Expression
	for {
		p.skipWhitespace()
		if p.peek() == ')' {
			p.advance()
			break
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
		p.skipWhitespace()
		if p.peek() == ',' {
			p.advance()
		}
	}
	return out, nil
}

func (p *Parser) parseNumericExpression() (Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		ch := p.peek()
		if ch == '+' || ch == '-' {
			// Don't consume a unary sign that belongs to a following
			// numeric literal token glued onto this operator position is
			// impossible here since we've already parsed a full operand;
			// always treat +/- at this level as additive.
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			op := OpAdd
			if ch == '-' {
				op = OpSubtract
			}
			left = &BinaryExpression{Left: left, Operator: op, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expression, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		ch := p.peek()
		if ch == '*' || ch == '/' {
			p.advance()
			right, err := p.parseUnaryExpression()
			if err != nil {
				return nil, err
			}
			op := OpMultiply
			if ch == '/' {
				op = OpDivide
			}
			left = &BinaryExpression{Left: left, Operator: op, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseUnaryExpression() (Expression, error) {
	p.skipWhitespace()
	switch p.peek() {
	case '!':
		p.advance()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpNot, Operand: operand}, nil
	case '-':
		// A leading '-' directly against a digit is a signed numeric
		// literal, handled in parsePrimaryExpression; otherwise it's
		// unary negation of a sub-expression.
		if p.pos+1 < p.length && p.input[p.pos+1] >= '0' && p.input[p.pos+1] <= '9' {
			return p.parsePrimaryExpression()
		}
		p.advance()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpSubtract, Operand: operand}, nil
	case '+':
		if p.pos+1 < p.length && p.input[p.pos+1] >= '0' && p.input[p.pos+1] <= '9' {
			return p.parsePrimaryExpression()
		}
		p.advance()
		return p.parseUnaryExpression()
	default:
		return p.parsePrimaryExpression()
	}
}

// builtinFuncs is the closed family of zero/one/two/N-ary built-ins from
// spec.md §4.9, matched case-insensitively against a leading identifier.
var builtinFuncs = map[string]int{
	"BOUND": 1, "ISIRI": 1, "ISURI": 1, "ISBLANK": 1, "ISLITERAL": 1, "ISNUMERIC": 1,
	"STR": 1, "LANG": 1, "DATATYPE": 1, "LANGMATCHES": 2, "SAMETERM": 2,
	"STRLEN": 1, "SUBSTR": -1, "UCASE": 1, "LCASE": 1, "CONCAT": -1,
	"CONTAINS": 2, "STRSTARTS": 2, "STRENDS": 2, "STRBEFORE": 2, "STRAFTER": 2,
	"REPLACE": -1, "REGEX": -1, "ENCODE_FOR_URI": 1,
	"ABS": 1, "CEIL": 1, "FLOOR": 1, "ROUND": 1, "RAND": 0,
	"NOW": 0, "YEAR": 1, "MONTH": 1, "DAY": 1, "HOURS": 1, "MINUTES": 1, "SECONDS": 1,
	"MD5": 1, "SHA1": 1, "SHA256": 1, "SHA384": 1, "SHA512": 1,
	"URI": 1, "IRI": 1, "BNODE": -1, "STRDT": 2, "STRLANG": 2,
	"STRUUID": 0, "UUID": 0, "IF": 3, "COALESCE": -1,
}

// aggregateFuncs is the closed family of aggregate functions (spec.md
// §4.9's GROUP BY section).
var aggregateFuncs = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
	"GROUP_CONCAT": true, "SAMPLE": true,
}

func (p *Parser) parsePrimaryExpression() (Expression, error) {
	p.skipWhitespace()
	ch := p.peek()

	if ch == '(' {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' to close expression")
		}
		p.advance()
		return expr, nil
	}

	if ch == '?' || ch == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &VariableExpression{Variable: v}, nil
	}

	if ch == '"' || ch == '\'' {
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return &LiteralExpression{Literal: lit}, nil
	}

	if ch == '<' {
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return &LiteralExpression{Literal: rdf.NewNamedNode(iri)}, nil
	}

	if ch >= '0' && ch <= '9' || ((ch == '-' || ch == '+') && p.pos+1 < p.length && p.input[p.pos+1] >= '0' && p.input[p.pos+1] <= '9') {
		lit, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &LiteralExpression{Literal: lit}, nil
	}

	if p.matchKeyword("true") {
		return &LiteralExpression{Literal: rdf.NewLiteralWithDatatype("true", rdf.XSDBoolean)}, nil
	}
	if p.matchKeyword("false") {
		return &LiteralExpression{Literal: rdf.NewLiteralWithDatatype("false", rdf.XSDBoolean)}, nil
	}

	if p.matchKeyword("NOT") {
		p.skipWhitespace()
		if !p.matchKeyword("EXISTS") {
			return nil, fmt.Errorf("expected EXISTS after NOT")
		}
		gp, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		return &ExistsExpression{Pattern: gp, Negated: true}, nil
	}
	if p.matchKeyword("EXISTS") {
		gp, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		return &ExistsExpression{Pattern: gp}, nil
	}

	// Aggregate or plain function call / prefixed-name constant.
	name := p.readIdentifier()
	if name == "" {
		return nil, fmt.Errorf("unexpected character in expression: %c", ch)
	}
	upper := strings.ToUpper(name)

	if aggregateFuncs[upper] {
		return p.parseAggregateCall(upper)
	}

	if _, ok := builtinFuncs[upper]; ok {
		args, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		return &FunctionCallExpression{Function: upper, Arguments: args}, nil
	}

	// A bare identifier followed by ':' is a prefixed-name IRI constant;
	// otherwise it's an unrecognized (but still lowered-through) custom
	// IRI function call, e.g. <http://example/fn>(?x). readIdentifier
	// stopped before ':' so reconstruct via parsePrefixedName by
	// rewinding.
	if p.peek() == ':' {
		p.pos -= len(name)
		iri, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		if p.peek() == '(' {
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return &FunctionCallExpression{Function: iri, Arguments: args}, nil
		}
		return &LiteralExpression{Literal: rdf.NewNamedNode(iri)}, nil
	}

	return nil, fmt.Errorf("unrecognized expression token: %s", name)
}

// readIdentifier reads a bare alphabetic identifier (function name or
// prefix), without consuming a following ':'.
func (p *Parser) readIdentifier() string {
	return p.readWhile(func(ch byte) bool {
		return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
	})
}

// parseCallArgs parses a parenthesized, comma-separated argument list.
func (p *Parser) parseCallArgs() ([]Expression, error) {
	p.skipWhitespace()
	if p.peek() != '(' {
		return nil, fmt.Errorf("expected '(' to start function call arguments")
	}
	p.advance()
	var args []Expression
	for {
		p.skipWhitespace()
		if p.peek() == ')' {
			p.advance()
			break
		}
		// REGEX's flags argument and similar string-literal-only
		// positions parse as ordinary expressions since string literals
		// are valid primary expressions.
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, expr)
		p.skipWhitespace()
		if p.peek() == ',' {
			p.advance()
		}
	}
	return args, nil
}

// parseAggregateCall parses COUNT/SUM/AVG/MIN/MAX/GROUP_CONCAT/SAMPLE.
func (p *Parser) parseAggregateCall(fn string) (*AggregateExpression, error) {
	p.skipWhitespace()
	if p.peek() != '(' {
		return nil, fmt.Errorf("expected '(' after aggregate function %s", fn)
	}
	p.advance()

	agg := &AggregateExpression{Function: fn}

	p.skipWhitespace()
	if p.matchKeyword("DISTINCT") {
		agg.Distinct = true
	}

	p.skipWhitespace()
	if p.peek() == '*' {
		p.advance()
		agg.Wildcard = true
	} else {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		agg.Expr = expr
	}

	p.skipWhitespace()
	if fn == "GROUP_CONCAT" && p.matchKeyword(";") {
		// not standard syntax; separator uses ';' SEPARATOR = "..."
	}
	if p.peek() == ';' {
		p.advance()
		p.skipWhitespace()
		if !p.matchKeyword("SEPARATOR") {
			return nil, fmt.Errorf("expected SEPARATOR after ';' in GROUP_CONCAT")
		}
		p.skipWhitespace()
		if p.peek() != '=' {
			return nil, fmt.Errorf("expected '=' after SEPARATOR")
		}
		p.advance()
		p.skipWhitespace()
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		agg.Separator = lit.Value
	}

	p.skipWhitespace()
	if p.peek() != ')' {
		return nil, fmt.Errorf("expected ')' to close aggregate call")
	}
	p.advance()

	return agg, nil
}

// parseInteger parses an integer
func (p *Parser) parseInteger() (int, error) {
	p.skipWhitespace()

	neg := false
	if p.peek() == '-' {
		neg = true
		p.advance()
	}
	numStr := p.readWhile(func(ch byte) bool {
		return ch >= '0' && ch <= '9'
	})

	if numStr == "" {
		return 0, fmt.Errorf("expected integer")
	}
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, err
	}
	if neg {
		n = -n
	}
	return n, nil
}

// ---------------------------------------------------------------------
// Low-level scanning helpers
// ---------------------------------------------------------------------

func (p *Parser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) advance() {
	if p.pos < p.length {
		p.pos++
	}
}

func (p *Parser) skipWhitespace() {
	for p.pos < p.length {
		ch := p.input[p.pos]

		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}

		if ch == '#' {
			p.pos++
			for p.pos < p.length && p.input[p.pos] != '\n' && p.input[p.pos] != '\r' {
				p.pos++
			}
			continue
		}

		break
	}
}

func (p *Parser) readWhile(predicate func(byte) bool) string {
	start := p.pos
	for p.pos < p.length && predicate(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// matchKeyword consumes keyword (case-insensitively, word-bounded) if the
// input at the current position starts with it.
func (p *Parser) matchKeyword(keyword string) bool {
	p.skipWhitespace()

	remaining := p.input[p.pos:]
	pattern := `(?i)^` + regexp.QuoteMeta(keyword) + `\b`
	matched, _ := regexp.MatchString(pattern, remaining)

	if matched {
		p.pos += len(keyword)
		return true
	}
	return false
}

// peekKeyword reports whether keyword matches at the current position
// without consuming it.
func (p *Parser) peekKeyword(keyword string) bool {
	p.skipWhitespace()
	remaining := p.input[p.pos:]
	pattern := `(?i)^` + regexp.QuoteMeta(keyword) + `\b`
	matched, _ := regexp.MatchString(pattern, remaining)
	return matched
}

// skipPrefix parses and stores a PREFIX declaration (prefix: <iri>)
func (p *Parser) skipPrefix() error {
	p.skipWhitespace()

	prefixStart := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		p.advance()
	}
	prefix := p.input[prefixStart:p.pos]

	if p.pos >= p.length {
		return fmt.Errorf("expected ':' in PREFIX declaration")
	}
	p.advance()

	p.skipWhitespace()

	if p.peek() != '<' {
		return fmt.Errorf("expected '<' to start IRI in PREFIX declaration")
	}
	p.advance()

	iriStart := p.pos
	for p.pos < p.length && p.input[p.pos] != '>' {
		p.advance()
	}
	iri := p.input[iriStart:p.pos]

	if p.pos >= p.length {
		return fmt.Errorf("expected '>' to end IRI in PREFIX declaration")
	}
	p.advance()

	p.prefixes[prefix] = iri
	return nil
}

// skipBase skips a BASE declaration (<iri>)
func (p *Parser) skipBase() error {
	p.skipWhitespace()

	if p.peek() != '<' {
		return fmt.Errorf("expected '<' to start IRI in BASE declaration")
	}
	p.advance()

	for p.pos < p.length && p.input[p.pos] != '>' {
		p.advance()
	}

	if p.pos >= p.length {
		return fmt.Errorf("expected '>' to end IRI in BASE declaration")
	}
	p.advance()

	return nil
}

// parsePrefixedName parses a prefixed name (like :foo or prefix:foo) and expands it to a full IRI
func (p *Parser) parsePrefixedName() (string, error) {
	prefixStart := p.pos
	for p.pos < p.length {
		ch := p.input[p.pos]
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-') {
			break
		}
		p.advance()
	}
	prefix := p.input[prefixStart:p.pos]

	if p.peek() != ':' {
		return "", fmt.Errorf("expected ':' in prefixed name")
	}
	p.advance()

	localStart := p.pos
	for p.pos < p.length {
		ch := p.input[p.pos]
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-') {
			break
		}
		p.advance()
	}
	local := p.input[localStart:p.pos]

	baseIRI, ok := p.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix: '%s'", prefix)
	}

	return baseIRI + local, nil
}
