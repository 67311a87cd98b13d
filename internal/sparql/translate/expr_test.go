package translate

import (
	"strings"
	"testing"

	"github.com/aleksaelezovic/vitalgraph/internal/sparql/algebra"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

func newTestCtx() *ctx {
	return newCtx(termcodec.New(), "vg", "s1")
}

func constExpr(t rdf.Term) *algebra.ConstExpr {
	return &algebra.ConstExpr{Term: t}
}

func TestExprToTermSQLVarFallsBackToNull(t *testing.T) {
	c := newTestCtx()
	ref, err := exprToTermSQL(c, &algebra.VarExpr{Name: "missing"}, scope{})
	if err != nil {
		t.Fatalf("exprToTermSQL: %v", err)
	}
	if ref.UUID != "NULL::uuid" || ref.Lex != "NULL::text" {
		t.Fatalf("expected an unbound variable to lower to a null term, got %+v", ref)
	}
}

func TestExprToTermSQLConstBindsLiteral(t *testing.T) {
	c := newTestCtx()
	ref, err := exprToTermSQL(c, constExpr(rdf.NewLiteral("hello")), scope{})
	if err != nil {
		t.Fatalf("exprToTermSQL: %v", err)
	}
	if len(c.args) == 0 {
		t.Fatalf("expected the literal's encoded value to be bound as an argument")
	}
	if !strings.HasSuffix(ref.Lex, "::text") {
		t.Fatalf("unexpected Lex SQL: %s", ref.Lex)
	}
}

func TestBinaryBoolSQLEquality(t *testing.T) {
	c := newTestCtx()
	s := scope{"x": nullTermRef()}
	b := &algebra.BinaryExpr{Op: parser.OpEqual, Left: &algebra.VarExpr{Name: "x"}, Right: constExpr(rdf.NewLiteral("a"))}
	sql, err := exprToBoolSQL(c, b, s)
	if err != nil {
		t.Fatalf("exprToBoolSQL: %v", err)
	}
	if !strings.Contains(sql, "OR") {
		t.Fatalf("expected termEqualSQL's uuid-or-lexical form, got: %s", sql)
	}
}

func TestBinaryBoolSQLAndOr(t *testing.T) {
	c := newTestCtx()
	s := scope{}
	and := &algebra.BinaryExpr{
		Op:    parser.OpAnd,
		Left:  constExpr(rdf.NewLiteralWithDatatype("true", rdf.XSDBoolean)),
		Right: constExpr(rdf.NewLiteralWithDatatype("false", rdf.XSDBoolean)),
	}
	sql, err := exprToBoolSQL(c, and, s)
	if err != nil {
		t.Fatalf("exprToBoolSQL(AND): %v", err)
	}
	if !strings.Contains(sql, "AND") {
		t.Fatalf("expected an AND in the compiled SQL, got: %s", sql)
	}
}

func TestBinaryTermSQLArithmetic(t *testing.T) {
	c := newTestCtx()
	s := scope{}
	b := &algebra.BinaryExpr{
		Op:    parser.OpAdd,
		Left:  constExpr(rdf.NewLiteralWithDatatype("1", rdf.XSDInteger)),
		Right: constExpr(rdf.NewLiteralWithDatatype("2", rdf.XSDInteger)),
	}
	ref, err := binaryTermSQL(c, b, s)
	if err != nil {
		t.Fatalf("binaryTermSQL: %v", err)
	}
	if !strings.Contains(ref.Lex, "+") {
		t.Fatalf("expected an addition expression, got: %s", ref.Lex)
	}
	if !strings.Contains(ref.Datatype, rdf.XSDDecimal.IRI) {
		t.Fatalf("expected xsd:decimal as the arithmetic result datatype, got: %s", ref.Datatype)
	}
}

func TestCallTermSQLStrlenAndUcase(t *testing.T) {
	c := newTestCtx()
	s := scope{}
	call := &algebra.CallExpr{Function: "STRLEN", Args: []algebra.Expr{constExpr(rdf.NewLiteral("abc"))}}
	ref, err := callTermSQL(c, call, s)
	if err != nil {
		t.Fatalf("callTermSQL(STRLEN): %v", err)
	}
	if !strings.Contains(ref.Lex, "length(") {
		t.Fatalf("expected a length(...) call, got: %s", ref.Lex)
	}
	if !strings.Contains(ref.Datatype, rdf.XSDInteger.IRI) {
		t.Fatalf("expected xsd:integer result datatype, got: %s", ref.Datatype)
	}

	ucase := &algebra.CallExpr{Function: "UCASE", Args: []algebra.Expr{constExpr(rdf.NewLiteral("abc"))}}
	ref2, err := callTermSQL(c, ucase, s)
	if err != nil {
		t.Fatalf("callTermSQL(UCASE): %v", err)
	}
	if !strings.Contains(ref2.Lex, "upper(") {
		t.Fatalf("expected an upper(...) call, got: %s", ref2.Lex)
	}
}

func TestCallTermSQLBoundChecksUUIDOrLex(t *testing.T) {
	c := newTestCtx()
	s := scope{"x": nullTermRef()}
	sql, err := exprToBoolSQL(c, &algebra.CallExpr{Function: "BOUND", Args: []algebra.Expr{&algebra.VarExpr{Name: "x"}}}, s)
	if err != nil {
		t.Fatalf("exprToBoolSQL(BOUND): %v", err)
	}
	if !strings.Contains(sql, "IS NOT NULL") {
		t.Fatalf("expected a null-check for BOUND, got: %s", sql)
	}
}

func TestCallTermSQLRejectsWrongArity(t *testing.T) {
	c := newTestCtx()
	_, err := callTermSQL(c, &algebra.CallExpr{Function: "SAMETERM", Args: []algebra.Expr{constExpr(rdf.NewLiteral("a"))}}, scope{})
	if err == nil {
		t.Fatalf("expected SAMETERM with 1 argument to be rejected")
	}
}

func TestCallTermSQLUnknownFunction(t *testing.T) {
	c := newTestCtx()
	_, err := callTermSQL(c, &algebra.CallExpr{Function: "NOSUCHFUNC"}, scope{})
	if err == nil {
		t.Fatalf("expected an unsupported-function error")
	}
}

func TestCallTermSQLCoalescePicksFirstBound(t *testing.T) {
	c := newTestCtx()
	s := scope{}
	call := &algebra.CallExpr{Function: "COALESCE", Args: []algebra.Expr{
		&algebra.VarExpr{Name: "missing"},
		constExpr(rdf.NewLiteral("fallback")),
	}}
	ref, err := callTermSQL(c, call, s)
	if err != nil {
		t.Fatalf("callTermSQL(COALESCE): %v", err)
	}
	if !strings.Contains(ref.Lex, "CASE WHEN") {
		t.Fatalf("expected a CASE WHEN chain for COALESCE, got: %s", ref.Lex)
	}
}

func TestInBoolSQLMembership(t *testing.T) {
	c := newTestCtx()
	in := &algebra.InExpr{
		Expr: constExpr(rdf.NewLiteral("a")),
		List: []algebra.Expr{constExpr(rdf.NewLiteral("a")), constExpr(rdf.NewLiteral("b"))},
	}
	sql, err := inBoolSQL(c, in, scope{})
	if err != nil {
		t.Fatalf("inBoolSQL: %v", err)
	}
	if !strings.Contains(sql, "OR") {
		t.Fatalf("expected an OR-joined membership test, got: %s", sql)
	}

	in.Negated = true
	sql, err = inBoolSQL(c, in, scope{})
	if err != nil {
		t.Fatalf("inBoolSQL(NOT IN): %v", err)
	}
	if !strings.HasPrefix(sql, "(NOT ") {
		t.Fatalf("expected NOT IN to negate the membership test, got: %s", sql)
	}
}

func TestUnaryBoolSQLNegation(t *testing.T) {
	c := newTestCtx()
	u := &algebra.UnaryExpr{Op: parser.OpNot, Operand: constExpr(rdf.NewLiteralWithDatatype("true", rdf.XSDBoolean))}
	sql, err := exprToBoolSQL(c, u, scope{})
	if err != nil {
		t.Fatalf("exprToBoolSQL(NOT): %v", err)
	}
	if !strings.Contains(sql, "NOT") {
		t.Fatalf("expected a NOT in the compiled SQL, got: %s", sql)
	}
}
