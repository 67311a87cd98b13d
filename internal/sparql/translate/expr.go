package translate

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/algebra"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// termRef names the five SQL expressions that together represent one
// bound variable's term value at some point in a compiled query.
type termRef struct {
	UUID, Lex, Kind, Datatype, Lang string
}

// scope maps a SPARQL variable name to its termRef at the relation
// currently being built, resolved from one or two joined aliases.
type scope map[string]termRef

func joinScope(alias1 string, vars1 []string, alias2 string, vars2 []string) scope {
	s := make(scope, len(vars1)+len(vars2))
	for _, v := range vars1 {
		u, l, k, d, g := cols(alias1, v)
		s[v] = termRef{u, l, k, d, g}
	}
	for _, v := range vars2 {
		u, l, k, d, g := cols(alias2, v)
		s[v] = termRef{u, l, k, d, g}
	}
	return s
}

// literalTermRef builds a termRef for a constant term, inlining its
// value as SQL literals bound through ctx.bind so it composes with
// variable termRefs uniformly.
func literalTermRef(c *ctx, t rdf.Term) (termRef, error) {
	enc, err := c.encode(t)
	if err != nil {
		return termRef{}, err
	}
	dt := "NULL::text"
	if enc.Datatype != "" {
		dt = c.bind(enc.Datatype) + "::text"
	}
	lang := "NULL::text"
	if enc.Lang != "" {
		lang = c.bind(enc.Lang) + "::text"
	}
	return termRef{
		UUID:     c.bind(enc.UUID) + "::uuid",
		Lex:      c.bind(enc.Lex) + "::text",
		Kind:     c.bind(int16(enc.Kind)) + "::smallint",
		Datatype: dt,
		Lang:     lang,
	}, nil
}

// exprToTermSQL lowers e to a termRef: the five SQL fragments that,
// together, evaluate to the term e produces for a given row.
func exprToTermSQL(c *ctx, e algebra.Expr, s scope) (termRef, error) {
	switch v := e.(type) {
	case *algebra.VarExpr:
		ref, ok := s[v.Name]
		if !ok {
			return nullTermRef(), nil
		}
		return ref, nil
	case *algebra.ConstExpr:
		return literalTermRef(c, v.Term)
	case *algebra.CallExpr:
		return callTermSQL(c, v, s)
	case *algebra.BinaryExpr:
		return binaryTermSQL(c, v, s)
	case *algebra.UnaryExpr:
		return unaryTermSQL(c, v, s)
	default:
		boolSQL, err := exprToBoolSQL(c, e, s)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(boolSQL), nil
	}
}

func nullTermRef() termRef {
	return termRef{"NULL::uuid", "NULL::text", "NULL::smallint", "NULL::text", "NULL::text"}
}

// boolTermFromSQL wraps a plain boolean SQL expression as an
// xsd:boolean literal term (used when an expression position receives
// a logical result, e.g. BIND(?x = ?y AS ?eq)).
func boolTermFromSQL(boolSQL string) termRef {
	lex := fmt.Sprintf("(CASE WHEN %s THEN 'true' ELSE 'false' END)", boolSQL)
	return termRef{"NULL::uuid", lex, "3::smallint", fmt.Sprintf("%q::text", rdf.XSDBoolean.IRI), "NULL::text"}
}

// ebvSQL computes a term's SPARQL effective boolean value as a plain
// SQL boolean expression.
func ebvSQL(t termRef) string {
	return fmt.Sprintf(`(CASE
		WHEN %s IS NULL THEN NULL
		WHEN %s = %q THEN (%s = 'true' OR %s = '1')
		WHEN %s IN (%q, %q, %q, %q) THEN (%s::numeric <> 0)
		ELSE (length(%s) > 0)
	END)`,
		t.Lex,
		t.Datatype, rdf.XSDBoolean.IRI, t.Lex, t.Lex,
		t.Datatype, rdf.XSDInteger.IRI, rdf.XSDDecimal.IRI, rdf.XSDDouble.IRI, numericDatatypePlaceholder, t.Lex,
		t.Lex)
}

// numericDatatypePlaceholder pads ebvSQL's IN-list to 4 entries without
// a 5th meaningful datatype; xsd:float is folded into the double case
// since PostgreSQL numeric casts accept both identically.
const numericDatatypePlaceholder = "http://www.w3.org/2001/XMLSchema#float"

// exprToBoolSQL lowers e to a plain SQL boolean expression (for FILTER/
// HAVING/ON conditions), via each operator's natural truth value.
func exprToBoolSQL(c *ctx, e algebra.Expr, s scope) (string, error) {
	switch v := e.(type) {
	case *algebra.BinaryExpr:
		return binaryBoolSQL(c, v, s)
	case *algebra.UnaryExpr:
		return unaryBoolSQL(c, v, s)
	case *algebra.InExpr:
		return inBoolSQL(c, v, s)
	case *algebra.ExistsExpr:
		return existsBoolSQL(c, v, s)
	case *algebra.CallExpr:
		switch v.Function {
		case "BOUND":
			if len(v.Args) != 1 {
				return "", vgerr.New(vgerr.SPARQL, "translate.BOUND", fmt.Errorf("expects 1 argument"))
			}
			ref, err := exprToTermSQL(c, v.Args[0], s)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(%s IS NOT NULL OR %s IS NOT NULL)", ref.UUID, ref.Lex), nil
		default:
			ref, err := callTermSQL(c, v, s)
			if err != nil {
				return "", err
			}
			return ebvSQL(ref), nil
		}
	default:
		ref, err := exprToTermSQL(c, e, s)
		if err != nil {
			return "", err
		}
		return ebvSQL(ref), nil
	}
}

func unaryBoolSQL(c *ctx, u *algebra.UnaryExpr, s scope) (string, error) {
	inner, err := exprToBoolSQL(c, u.Operand, s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(NOT %s)", inner), nil
}

func unaryTermSQL(c *ctx, u *algebra.UnaryExpr, s scope) (termRef, error) {
	ref, err := exprToTermSQL(c, u.Operand, s)
	if err != nil {
		return termRef{}, err
	}
	lex := fmt.Sprintf("(-1 * %s::numeric)::text", ref.Lex)
	return termRef{"NULL::uuid", lex, "3::smallint", fmt.Sprintf("%q::text", numericResultDatatype(ref)), "NULL::text"}, nil
}

func binaryBoolSQL(c *ctx, b *algebra.BinaryExpr, s scope) (string, error) {
	switch b.Op {
	case parser.OpAnd:
		l, err := exprToBoolSQL(c, b.Left, s)
		if err != nil {
			return "", err
		}
		r, err := exprToBoolSQL(c, b.Right, s)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s AND %s)", l, r), nil
	case parser.OpOr:
		l, err := exprToBoolSQL(c, b.Left, s)
		if err != nil {
			return "", err
		}
		r, err := exprToBoolSQL(c, b.Right, s)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s OR %s)", l, r), nil
	}

	lt, err := exprToTermSQL(c, b.Left, s)
	if err != nil {
		return "", err
	}
	rt, err := exprToTermSQL(c, b.Right, s)
	if err != nil {
		return "", err
	}

	switch b.Op {
	case parser.OpEqual:
		return fmt.Sprintf("(%s)", termEqualSQL(lt, rt)), nil
	case parser.OpNotEqual:
		return fmt.Sprintf("(NOT (%s))", termEqualSQL(lt, rt)), nil
	case parser.OpLessThan:
		return comparisonSQL(lt, rt, "<"), nil
	case parser.OpLessThanOrEqual:
		return comparisonSQL(lt, rt, "<="), nil
	case parser.OpGreaterThan:
		return comparisonSQL(lt, rt, ">"), nil
	case parser.OpGreaterThanOrEqual:
		return comparisonSQL(lt, rt, ">="), nil
	default:
		return "", vgerr.Errorf(vgerr.SPARQL, "translate.binaryBool", "unsupported boolean operator %v", b.Op)
	}
}

// termEqualSQL implements SPARQL term equality: literals compare by
// (lex, datatype, lang); IRIs/blank nodes by uuid identity, which is
// already content-addressed so a straight uuid comparison suffices.
func termEqualSQL(l, r termRef) string {
	return fmt.Sprintf("(COALESCE(%s = %s, false) OR (%s = %s AND COALESCE(%s,'') = COALESCE(%s,'') AND COALESCE(%s,'') = COALESCE(%s,'')))",
		l.UUID, r.UUID, l.Lex, r.Lex, l.Datatype, r.Datatype, l.Lang, r.Lang)
}

func comparisonSQL(l, r termRef, op string) string {
	return fmt.Sprintf("(%s::numeric %s %s::numeric)", l.Lex, op, r.Lex)
}

func binaryTermSQL(c *ctx, b *algebra.BinaryExpr, s scope) (termRef, error) {
	lt, err := exprToTermSQL(c, b.Left, s)
	if err != nil {
		return termRef{}, err
	}
	rt, err := exprToTermSQL(c, b.Right, s)
	if err != nil {
		return termRef{}, err
	}
	var op string
	switch b.Op {
	case parser.OpAdd:
		op = "+"
	case parser.OpSubtract:
		op = "-"
	case parser.OpMultiply:
		op = "*"
	case parser.OpDivide:
		op = "/"
	default:
		boolSQL, err := binaryBoolSQL(c, b, s)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(boolSQL), nil
	}
	lex := fmt.Sprintf("(%s::numeric %s %s::numeric)::text", lt.Lex, op, rt.Lex)
	return termRef{"NULL::uuid", lex, "3::smallint", fmt.Sprintf("%q::text", numericResultDatatype(lt)), "NULL::text"}, nil
}

// numericResultDatatype returns xsd:decimal as the arithmetic result
// datatype for every operand; xsd:double (or any other numeric type) is
// not promoted, and SPARQL's full promotion lattice is not implemented.
func numericResultDatatype(t termRef) string {
	return rdf.XSDDecimal.IRI
}

func inBoolSQL(c *ctx, in *algebra.InExpr, s scope) (string, error) {
	left, err := exprToTermSQL(c, in.Expr, s)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, item := range in.List {
		it, err := exprToTermSQL(c, item, s)
		if err != nil {
			return "", err
		}
		parts = append(parts, termEqualSQL(left, it))
	}
	joined := "false"
	if len(parts) > 0 {
		joined = "(" + joinOr(parts) + ")"
	}
	if in.Negated {
		return fmt.Sprintf("(NOT %s)", joined), nil
	}
	return joined, nil
}

func joinOr(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += " OR " + p
	}
	return out
}

func existsBoolSQL(c *ctx, ex *algebra.ExistsExpr, s scope) (string, error) {
	inner, err := compile(c, ex.Pattern)
	if err != nil {
		return "", err
	}
	alias := c.alias("exists")
	var corr []string
	for v, ref := range s {
		if !contains(inner.Vars, v) {
			continue
		}
		innerU, _, _, _, _ := cols(alias, v)
		corr = append(corr, fmt.Sprintf("%s = %s", innerU, ref.UUID))
	}
	where := ""
	if len(corr) > 0 {
		where = " WHERE " + joinAnd(corr)
	}
	sql := fmt.Sprintf("EXISTS (SELECT 1 FROM (%s) AS %s%s)", inner.SQL, alias, where)
	if ex.Negated {
		return fmt.Sprintf("(NOT %s)", sql), nil
	}
	return sql, nil
}

func joinAnd(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += " AND " + p
	}
	return out
}

// strTermRef builds a plain xsd:string-literal termRef from a SQL text
// expression, the default result shape for the string-returning builtins.
func strTermRef(lexSQL string) termRef {
	return termRef{"NULL::uuid", lexSQL, "3::smallint", fmt.Sprintf("%q::text", rdf.XSDString.IRI), "NULL::text"}
}

// typedTermRef builds a literal termRef with an explicit datatype IRI,
// used by the numeric and date/time builtins.
func typedTermRef(lexSQL, datatype string) termRef {
	return termRef{"NULL::uuid", lexSQL, "3::smallint", fmt.Sprintf("%q::text", datatype), "NULL::text"}
}

// uriTermRef builds a URI-kind termRef. Constructed URIs have no stored
// UUID (the quad/term tables are never consulted to materialize them),
// which is fine: termEqualSQL falls back to lexical comparison whenever
// either side's UUID is unset.
func uriTermRef(lexSQL string) termRef {
	return termRef{"NULL::uuid", lexSQL, "1::smallint", "NULL::text", "NULL::text"}
}

// blankTermRef builds a blank-node-kind termRef for BNODE().
func blankTermRef(lexSQL string) termRef {
	return termRef{"NULL::uuid", lexSQL, "2::smallint", "NULL::text", "NULL::text"}
}

// stringFnTermRef wraps resultLexSQL as a literal that carries src's
// datatype and language tag forward, matching SPARQL's rule that
// lexical-transform builtins (UCASE, SUBSTR, ...) preserve the
// argument's language tag.
func stringFnTermRef(resultLexSQL string, src termRef) termRef {
	return termRef{"NULL::uuid", resultLexSQL, src.Kind, src.Datatype, src.Lang}
}

// numericDatatypesSQL lists the numeric XSD datatype IRIs recognized for
// ISNUMERIC/arithmetic coercion (spec §4.1's "numeric" tag).
func numericDatatypesSQL(c *ctx, col string) string {
	return fmt.Sprintf("%s IN (%s, %s, %s, %s)", col,
		c.bind(rdf.XSDInteger.IRI), c.bind(rdf.XSDDecimal.IRI), c.bind(rdf.XSDDouble.IRI), c.bind(numericDatatypePlaceholder))
}

// callTermSQL dispatches a SPARQL built-in function call to its SQL
// lowering. Each built-in has exactly one canonical lowering (spec
// §4.9), matching the closed, tagged-dispatch style of the teacher's
// evaluateFunctionCall switch (pkg/sparql/evaluator/functions.go), but
// emitting a SQL expression tree instead of evaluating in-process.
func callTermSQL(c *ctx, call *algebra.CallExpr, s scope) (termRef, error) {
	funcName := strings.ToUpper(call.Function)
	args := call.Args

	arg := func(i int) (termRef, error) { return exprToTermSQL(c, args[i], s) }
	requireArgs := func(n int) error {
		if len(args) != n {
			return vgerr.Errorf(vgerr.SPARQL, "translate.call", "%s expects %d argument(s), got %d", funcName, n, len(args))
		}
		return nil
	}

	switch funcName {
	case "ISURI", "ISIRI":
		if err := requireArgs(1); err != nil {
			return termRef{}, err
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(fmt.Sprintf("(%s = 1)", a.Kind)), nil
	case "ISBLANK":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(fmt.Sprintf("(%s = 2)", a.Kind)), nil
	case "ISLITERAL":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(fmt.Sprintf("(%s = 3)", a.Kind)), nil
	case "ISNUMERIC":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(fmt.Sprintf("(%s)", numericDatatypesSQL(c, a.Datatype))), nil

	case "STR":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return strTermRef(a.Lex), nil
	case "LANG":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return strTermRef(fmt.Sprintf("COALESCE(%s, '')", a.Lang)), nil
	case "DATATYPE":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		dt := fmt.Sprintf("COALESCE(%s, CASE WHEN COALESCE(%s, '') <> '' THEN %s ELSE %s END)",
			a.Datatype, a.Lang, c.bind(rdf.RDFLangString.IRI), c.bind(rdf.XSDString.IRI))
		return uriTermRef(dt), nil
	case "LANGMATCHES":
		if err := requireArgs(2); err != nil {
			return termRef{}, err
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		b, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		sql := fmt.Sprintf("(%s = '*' OR lower(%s) = lower(%s) OR lower(%s) LIKE lower(%s) || '-%%')",
			b.Lex, a.Lex, b.Lex, a.Lex, b.Lex)
		return boolTermFromSQL(sql), nil
	case "SAMETERM":
		if err := requireArgs(2); err != nil {
			return termRef{}, err
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		b, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(termEqualSQL(a, b)), nil

	case "STRLEN":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return typedTermRef(fmt.Sprintf("length(%s)::text", a.Lex), rdf.XSDInteger.IRI), nil
	case "UCASE":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return stringFnTermRef(fmt.Sprintf("upper(%s)", a.Lex), a), nil
	case "LCASE":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return stringFnTermRef(fmt.Sprintf("lower(%s)", a.Lex), a), nil
	case "SUBSTR":
		if len(args) < 2 || len(args) > 3 {
			return termRef{}, vgerr.Errorf(vgerr.SPARQL, "translate.call", "SUBSTR expects 2 or 3 arguments")
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		start, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		if len(args) == 3 {
			length, err := arg(2)
			if err != nil {
				return termRef{}, err
			}
			return stringFnTermRef(fmt.Sprintf("substr(%s, (%s::numeric)::int, (%s::numeric)::int)", a.Lex, start.Lex, length.Lex), a), nil
		}
		return stringFnTermRef(fmt.Sprintf("substr(%s, (%s::numeric)::int)", a.Lex, start.Lex), a), nil
	case "CONCAT":
		var parts []string
		for i := range args {
			r, err := arg(i)
			if err != nil {
				return termRef{}, err
			}
			parts = append(parts, r.Lex)
		}
		return strTermRef(fmt.Sprintf("(%s)", strings.Join(parts, " || "))), nil
	case "CONTAINS":
		if err := requireArgs(2); err != nil {
			return termRef{}, err
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		b, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(fmt.Sprintf("(position(%s in %s) > 0)", b.Lex, a.Lex)), nil
	case "STRSTARTS":
		if err := requireArgs(2); err != nil {
			return termRef{}, err
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		b, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(fmt.Sprintf("starts_with(%s, %s)", a.Lex, b.Lex)), nil
	case "STRENDS":
		if err := requireArgs(2); err != nil {
			return termRef{}, err
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		b, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		return boolTermFromSQL(fmt.Sprintf("(right(%s, length(%s)) = %s)", a.Lex, b.Lex, b.Lex)), nil
	case "STRBEFORE":
		if err := requireArgs(2); err != nil {
			return termRef{}, err
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		b, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		sql := fmt.Sprintf("(CASE WHEN position(%s in %s) > 0 THEN left(%s, position(%s in %s) - 1) ELSE '' END)", b.Lex, a.Lex, a.Lex, b.Lex, a.Lex)
		return stringFnTermRef(sql, a), nil
	case "STRAFTER":
		if err := requireArgs(2); err != nil {
			return termRef{}, err
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		b, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		sql := fmt.Sprintf("(CASE WHEN position(%s in %s) > 0 THEN substr(%s, position(%s in %s) + length(%s)) ELSE '' END)",
			b.Lex, a.Lex, a.Lex, b.Lex, a.Lex, b.Lex)
		return stringFnTermRef(sql, a), nil
	case "REPLACE":
		if len(args) < 3 || len(args) > 4 {
			return termRef{}, vgerr.Errorf(vgerr.SPARQL, "translate.call", "REPLACE expects 3 or 4 arguments")
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		pattern, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		repl, err := arg(2)
		if err != nil {
			return termRef{}, err
		}
		flags := "'g'"
		if len(args) == 4 {
			f, err := arg(3)
			if err != nil {
				return termRef{}, err
			}
			flags = fmt.Sprintf("(%s || 'g')", f.Lex)
		}
		return stringFnTermRef(fmt.Sprintf("regexp_replace(%s, %s, %s, %s)", a.Lex, pattern.Lex, repl.Lex, flags), a), nil
	case "REGEX":
		if len(args) < 2 || len(args) > 3 {
			return termRef{}, vgerr.Errorf(vgerr.SPARQL, "translate.call", "REGEX expects 2 or 3 arguments")
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		pattern, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		op := "~"
		if len(args) == 3 {
			if ce, ok := args[2].(*algebra.ConstExpr); ok {
				if lit, ok := ce.Term.(*rdf.Literal); ok && strings.Contains(lit.Value, "i") {
					op = "~*"
				}
			}
		}
		return boolTermFromSQL(fmt.Sprintf("(%s %s %s)", a.Lex, op, pattern.Lex)), nil
	case "ENCODE_FOR_URI":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return strTermRef(fmt.Sprintf("%s(%s)", schema.EncodeForURIFunc, a.Lex)), nil

	case "ABS":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return typedTermRef(fmt.Sprintf("abs(%s::numeric)::text", a.Lex), numericResultDatatype(a)), nil
	case "CEIL":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return typedTermRef(fmt.Sprintf("ceil(%s::numeric)::text", a.Lex), rdf.XSDInteger.IRI), nil
	case "FLOOR":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return typedTermRef(fmt.Sprintf("floor(%s::numeric)::text", a.Lex), rdf.XSDInteger.IRI), nil
	case "ROUND":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return typedTermRef(fmt.Sprintf("round(%s::numeric)::text", a.Lex), rdf.XSDInteger.IRI), nil
	case "RAND":
		return typedTermRef("random()::text", rdf.XSDDouble.IRI), nil

	case "NOW":
		return typedTermRef("to_char(now() at time zone 'UTC', 'YYYY-MM-DD\"T\"HH24:MI:SS.US\"Z\"')", rdf.XSDDateTime.IRI), nil
	case "YEAR", "MONTH", "DAY", "HOURS", "MINUTES", "SECONDS":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		field := map[string]string{"YEAR": "year", "MONTH": "month", "DAY": "day", "HOURS": "hour", "MINUTES": "minute", "SECONDS": "second"}[funcName]
		return typedTermRef(fmt.Sprintf("extract(%s from %s::timestamptz)::text", field, a.Lex), rdf.XSDInteger.IRI), nil

	case "MD5":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return strTermRef(fmt.Sprintf("md5(%s)", a.Lex)), nil
	case "SHA1", "SHA256", "SHA384", "SHA512":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		alg := strings.ToLower(funcName)
		return strTermRef(fmt.Sprintf("encode(digest(%s, %s), 'hex')", a.Lex, c.bind(alg))), nil

	case "URI", "IRI":
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return uriTermRef(a.Lex), nil
	case "BNODE":
		if len(args) == 0 {
			return blankTermRef("('b' || replace(gen_random_uuid()::text, '-', ''))"), nil
		}
		a, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		return blankTermRef(a.Lex), nil
	case "STRDT":
		if err := requireArgs(2); err != nil {
			return termRef{}, err
		}
		lex, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		dt, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		return termRef{"NULL::uuid", lex.Lex, "3::smallint", dt.Lex, "NULL::text"}, nil
	case "STRLANG":
		if err := requireArgs(2); err != nil {
			return termRef{}, err
		}
		lex, err := arg(0)
		if err != nil {
			return termRef{}, err
		}
		lang, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		return termRef{"NULL::uuid", lex.Lex, "3::smallint", c.bind(rdf.RDFLangString.IRI), fmt.Sprintf("lower(%s)", lang.Lex)}, nil
	case "STRUUID":
		return strTermRef("gen_random_uuid()::text"), nil
	case "UUID":
		return uriTermRef("('urn:uuid:' || gen_random_uuid()::text)"), nil
	case "IF":
		if err := requireArgs(3); err != nil {
			return termRef{}, err
		}
		condSQL, err := exprToBoolSQL(c, args[0], s)
		if err != nil {
			return termRef{}, err
		}
		thenRef, err := arg(1)
		if err != nil {
			return termRef{}, err
		}
		elseRef, err := arg(2)
		if err != nil {
			return termRef{}, err
		}
		return termRef{
			UUID:     fmt.Sprintf("(CASE WHEN %s THEN %s ELSE %s END)", condSQL, thenRef.UUID, elseRef.UUID),
			Lex:      fmt.Sprintf("(CASE WHEN %s THEN %s ELSE %s END)", condSQL, thenRef.Lex, elseRef.Lex),
			Kind:     fmt.Sprintf("(CASE WHEN %s THEN %s ELSE %s END)", condSQL, thenRef.Kind, elseRef.Kind),
			Datatype: fmt.Sprintf("(CASE WHEN %s THEN %s ELSE %s END)", condSQL, thenRef.Datatype, elseRef.Datatype),
			Lang:     fmt.Sprintf("(CASE WHEN %s THEN %s ELSE %s END)", condSQL, thenRef.Lang, elseRef.Lang),
		}, nil
	case "COALESCE":
		if len(args) == 0 {
			return termRef{}, vgerr.Errorf(vgerr.SPARQL, "translate.call", "COALESCE expects at least 1 argument")
		}
		refs := make([]termRef, len(args))
		for i := range args {
			r, err := arg(i)
			if err != nil {
				return termRef{}, err
			}
			refs[i] = r
		}
		pick := func(sel func(termRef) string) string {
			sql := sel(refs[len(refs)-1])
			for i := len(refs) - 2; i >= 0; i-- {
				sql = fmt.Sprintf("(CASE WHEN %s IS NOT NULL THEN %s ELSE %s END)", refs[i].Lex, sel(refs[i]), sql)
			}
			return sql
		}
		return termRef{
			UUID:     pick(func(t termRef) string { return t.UUID }),
			Lex:      pick(func(t termRef) string { return t.Lex }),
			Kind:     pick(func(t termRef) string { return t.Kind }),
			Datatype: pick(func(t termRef) string { return t.Datatype }),
			Lang:     pick(func(t termRef) string { return t.Lang }),
		}, nil

	default:
		return termRef{}, vgerr.Errorf(vgerr.SPARQL, "translate.call", "unsupported function: %s", call.Function)
	}
}
