// Package translate implements C9: lowering the closed algebra family
// from internal/sparql/algebra into PostgreSQL SQL text, the way the
// retrieved cayleygraph/cayley graph/sql/postgres.go QuadStore builds
// one SELECT per quad-store query by hand rather than through an ORM.
// Every algebra.Node becomes a derived-table SELECT exposing, for each
// SPARQL variable the node binds, five columns (`<var>__uuid`,
// `<var>__lex`, `<var>__kind`, `<var>__dt`, `<var>__lang`) so relations
// compose uniformly through ordinary joins regardless of which operator
// produced them.
package translate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/algebra"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// Relation is a compiled SQL fragment: a full SELECT statement (no
// trailing semicolon) whose output column list follows the 5-columns-
// per-variable convention, plus the set of variables it binds, in a
// stable order for callers that project by position.
type Relation struct {
	SQL  string
	Vars []string
}

// ctx threads per-translation state: the bind arguments accumulated so
// far (PostgreSQL numbers placeholders globally, not per-subquery), a
// counter for derived-table aliases, and the space/codec the query runs
// against.
type ctx struct {
	codec       *termcodec.Codec
	spaceID     string
	names       schema.Names
	args        []any
	aliasSeq    int
	encodeCache map[string]termcodec.EncodedTerm
}

func newCtx(codec *termcodec.Codec, prefix, spaceID string) *ctx {
	return &ctx{codec: codec, spaceID: spaceID, names: schema.NewNames(prefix, spaceID)}
}

func (c *ctx) bind(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

func (c *ctx) alias(prefix string) string {
	c.aliasSeq++
	return fmt.Sprintf("%s%d", prefix, c.aliasSeq)
}

// encode memoizes codec.Encode per (spaceID, term) within one compilation,
// the translate.optimize.go "constant folding" pass: a constant repeated
// across a query's patterns (a common rdf:type or a shared subject)
// otherwise re-derives the same UUIDv5 hash once per occurrence.
func (c *ctx) encode(t rdf.Term) (termcodec.EncodedTerm, error) {
	key := t.String()
	if c.encodeCache == nil {
		c.encodeCache = make(map[string]termcodec.EncodedTerm)
	}
	if enc, ok := c.encodeCache[key]; ok {
		return enc, nil
	}
	enc, err := c.codec.Encode(c.spaceID, t)
	if err != nil {
		return termcodec.EncodedTerm{}, err
	}
	c.encodeCache[key] = enc
	return enc, nil
}

// cols returns the 5 column names a variable contributes to a SELECT
// list or join condition at the given table alias.
func cols(alias, v string) (uuidCol, lexCol, kindCol, dtCol, langCol string) {
	return alias + "." + v + "__uuid", alias + "." + v + "__lex", alias + "." + v + "__kind", alias + "." + v + "__dt", alias + "." + v + "__lang"
}

func selectList(alias string, vars []string) string {
	var parts []string
	for _, v := range vars {
		u, l, k, d, g := cols(alias, v)
		parts = append(parts, fmt.Sprintf("%s AS %s__uuid, %s AS %s__lex, %s AS %s__kind, %s AS %s__dt, %s AS %s__lang",
			u, v, l, v, k, v, d, v, g, v))
	}
	if len(parts) == 0 {
		return "1 AS dummy__col"
	}
	return strings.Join(parts, ", ")
}

// Plan is the final compiled artifact for a SELECT/ASK/CONSTRUCT/
// DESCRIBE query: a runnable SQL statement, its bind arguments, and the
// output variable order a caller should decode columns in.
type Plan struct {
	SQL  string
	Args []any
	Vars []string
}

// Compile lowers node (produced by algebra.FromAST) into a Plan against
// the given space.
func Compile(codec *termcodec.Codec, prefix, spaceID string, node algebra.Node) (*Plan, error) {
	c := newCtx(codec, prefix, spaceID)

	switch n := node.(type) {
	case *algebra.Select:
		n.Input = Optimize(n.Input)
		rel, err := compileSelectTop(c, n)
		if err != nil {
			return nil, err
		}
		return &Plan{SQL: rel.SQL, Args: c.args, Vars: rel.Vars}, nil
	case *algebra.Ask:
		n.Input = Optimize(n.Input)
		inner, err := compile(c, n.Input)
		if err != nil {
			return nil, err
		}
		sql := fmt.Sprintf("SELECT EXISTS (%s) AS result", inner.SQL)
		return &Plan{SQL: sql, Args: c.args, Vars: []string{"result"}}, nil
	case *algebra.Describe:
		n.Input = Optimize(n.Input)
		rel, err := compileDescribe(c, n)
		if err != nil {
			return nil, err
		}
		return &Plan{SQL: rel.SQL, Args: c.args, Vars: rel.Vars}, nil
	case *algebra.Construct:
		return nil, vgerr.Errorf(vgerr.SPARQL, "translate.Compile", "CONSTRUCT has no standalone SQL plan; call translate.MaterializeConstruct, which runs the WHERE query and instantiates the template")
	default:
		return nil, vgerr.Errorf(vgerr.SPARQL, "translate.Compile", "unsupported top-level construct: %T", node)
	}
}

func compileSelectTop(c *ctx, sel *algebra.Select) (*Relation, error) {
	inner, err := compile(c, sel.Input)
	if err != nil {
		return nil, err
	}

	vars := sel.Vars
	if len(vars) == 0 {
		vars = inner.Vars
	}
	alias := c.alias("sel")
	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s", selectList(alias, filterKnown(vars, inner.Vars)), inner.SQL, alias)
	if sel.Distinct {
		sql = strings.Replace(sql, "SELECT ", "SELECT DISTINCT ", 1)
	}
	return &Relation{SQL: sql, Vars: vars}, nil
}

// filterKnown keeps only the vars inner actually binds, in the order
// requested, so a SELECT list never references a column a derived
// table doesn't have (a projected but never-bound variable is simply
// always-unbound in SPARQL and decodes to NULL downstream).
func filterKnown(want, have []string) []string {
	haveSet := make(map[string]bool, len(have))
	for _, v := range have {
		haveSet[v] = true
	}
	var out []string
	for _, v := range want {
		if haveSet[v] {
			out = append(out, v)
		}
	}
	return out
}

func compileDescribe(c *ctx, d *algebra.Describe) (*Relation, error) {
	// Collect subject candidates: concrete resources plus, if a WHERE
	// clause is present, the bound values of d.Vars. One-hop symmetric
	// expansion (every quad where the candidate appears as subject or
	// object) is applied as a UNION over two CountQuads-style scans.
	n := c.names

	var subjectExprs []string
	for _, r := range d.Resources {
		enc, err := c.encode(r)
		if err != nil {
			return nil, vgerr.New(vgerr.Validation, "translate.Describe", err)
		}
		subjectExprs = append(subjectExprs, c.bind(enc.UUID))
	}

	var fromVars *Relation
	if d.Input != nil {
		inner, err := compile(c, d.Input)
		if err != nil {
			return nil, err
		}
		fromVars = inner
	}

	var unionParts []string
	for _, expr := range subjectExprs {
		unionParts = append(unionParts, describeOneHopSQL(n, expr))
	}
	if fromVars != nil {
		alias := c.alias("dv")
		for _, v := range d.Vars {
			if !contains(fromVars.Vars, v) {
				continue
			}
			u, _, _, _, _ := cols(alias, v)
			part := fmt.Sprintf("SELECT q.subject_uuid, q.predicate_uuid, q.object_uuid, q.graph_uuid FROM %q AS q, (%s) AS %s WHERE q.subject_uuid = %s OR q.object_uuid = %s",
				n.Quad, fromVars.SQL, alias, u, u)
			unionParts = append(unionParts, part)
		}
	}

	if len(unionParts) == 0 {
		return &Relation{SQL: fmt.Sprintf("SELECT NULL::uuid AS s__uuid, NULL::text AS s__lex, NULL::smallint AS s__kind, NULL::text AS s__dt, NULL::text AS s__lang WHERE false"), Vars: []string{"s", "p", "o"}}, nil
	}

	union := strings.Join(unionParts, " UNION ")
	outer := c.alias("desc")
	sql := fmt.Sprintf(`SELECT
		st.uuid AS s__uuid, st.lex AS s__lex, st.kind AS s__kind, st.datatype AS s__dt, st.lang AS s__lang,
		pt.uuid AS p__uuid, pt.lex AS p__lex, pt.kind AS p__kind, pt.datatype AS p__dt, pt.lang AS p__lang,
		ot.uuid AS o__uuid, ot.lex AS o__lex, ot.kind AS o__kind, ot.datatype AS o__dt, ot.lang AS o__lang
		FROM (%s) AS %s(subject_uuid, predicate_uuid, object_uuid, graph_uuid)
		JOIN %q AS st ON st.uuid = %s.subject_uuid
		JOIN %q AS pt ON pt.uuid = %s.predicate_uuid
		JOIN %q AS ot ON ot.uuid = %s.object_uuid`,
		union, outer, n.Term, outer, n.Term, outer, n.Term, outer)
	return &Relation{SQL: sql, Vars: []string{"s", "p", "o"}}, nil
}

func describeOneHopSQL(n schema.Names, boundExpr string) string {
	return fmt.Sprintf(`SELECT subject_uuid, predicate_uuid, object_uuid, graph_uuid FROM %q WHERE subject_uuid = %s OR object_uuid = %s`,
		n.Quad, boundExpr, boundExpr)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// compile lowers any inner (non-top-level) algebra.Node to a Relation.
func compile(c *ctx, node algebra.Node) (*Relation, error) {
	switch n := node.(type) {
	case *algebra.BGP:
		return compileBGP(c, n)
	case *algebra.Join:
		return compileJoin(c, n)
	case *algebra.LeftJoin:
		return compileLeftJoin(c, n)
	case *algebra.Union:
		return compileUnion(c, n)
	case *algebra.Minus:
		return compileMinus(c, n)
	case *algebra.Filter:
		return compileFilter(c, n)
	case *algebra.Extend:
		return compileExtend(c, n)
	case *algebra.Graph:
		return compileGraph(c, n)
	case *algebra.Path:
		return compilePath(c, n)
	case *algebra.Values:
		return compileValues(c, n)
	case *algebra.Group:
		return compileGroup(c, n)
	case *algebra.OrderBy:
		return compileOrderBy(c, n)
	case *algebra.Slice:
		return compileSlice(c, n)
	case *algebra.Project:
		inner, err := compile(c, n.Input)
		if err != nil {
			return nil, err
		}
		alias := c.alias("proj")
		vars := filterKnown(n.Vars, inner.Vars)
		return &Relation{SQL: fmt.Sprintf("SELECT %s FROM (%s) AS %s", selectList(alias, vars), inner.SQL, alias), Vars: vars}, nil
	case *algebra.Distinct:
		inner, err := compile(c, n.Input)
		if err != nil {
			return nil, err
		}
		alias := c.alias("dist")
		return &Relation{SQL: fmt.Sprintf("SELECT DISTINCT %s FROM (%s) AS %s", selectList(alias, inner.Vars), inner.SQL, alias), Vars: inner.Vars}, nil
	case *algebra.Reduced:
		return compile(c, n.Input)
	default:
		return nil, vgerr.Errorf(vgerr.SPARQL, "translate.compile", "unsupported construct: %T", node)
	}
}

// compileBGP lowers a basic graph pattern to an N-way self-join over the
// quad table, one alias per triple pattern, equating repeated variable
// occurrences, then joining the term table once per bound variable to
// expose its lex/kind/datatype/lang.
func compileBGP(c *ctx, bgp *algebra.BGP) (*Relation, error) {
	n := c.names

	if len(bgp.Patterns) == 0 {
		return &Relation{SQL: "SELECT 1 AS dummy__col", Vars: nil}, nil
	}

	type varOcc struct {
		alias string
		col   string
	}
	varOccs := make(map[string][]varOcc)

	var froms []string
	var conds []string

	for i, tp := range bgp.Patterns {
		alias := fmt.Sprintf("q%d", i)
		froms = append(froms, fmt.Sprintf("%q AS %s", n.Quad, alias))

		positions := []struct {
			col string
			tov parser.TermOrVariable
		}{
			{"subject_uuid", tp.Subject},
			{"predicate_uuid", tp.Predicate},
			{"object_uuid", tp.Object},
		}
		for _, pos := range positions {
			if pos.tov.IsVariable() {
				name := pos.tov.Variable.Name
				varOccs[name] = append(varOccs[name], varOcc{alias, pos.col})
				continue
			}
			enc, err := c.encode(pos.tov.Term)
			if err != nil {
				return nil, vgerr.New(vgerr.Validation, "translate.BGP", err)
			}
			conds = append(conds, fmt.Sprintf("%s.%s = %s", alias, pos.col, c.bind(enc.UUID)))
		}
	}

	for _, occs := range varOccs {
		for i := 1; i < len(occs); i++ {
			conds = append(conds, fmt.Sprintf("%s.%s = %s.%s", occs[0].alias, occs[0].col, occs[i].alias, occs[i].col))
		}
	}

	var vars []string
	for v := range varOccs {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	var termJoins []string
	var selectCols []string
	for _, v := range vars {
		tAlias := c.alias("t")
		occ := varOccs[v][0]
		termJoins = append(termJoins, fmt.Sprintf("JOIN %q AS %s ON %s.uuid = %s.%s", n.Term, tAlias, tAlias, occ.alias, occ.col))
		selectCols = append(selectCols, fmt.Sprintf("%s.uuid AS %s__uuid, %s.lex AS %s__lex, %s.kind AS %s__kind, %s.datatype AS %s__dt, %s.lang AS %s__lang",
			tAlias, v, tAlias, v, tAlias, v, tAlias, v, tAlias, v))
	}

	sql := "SELECT "
	if len(selectCols) == 0 {
		sql += "1 AS dummy__col"
	} else {
		sql += strings.Join(selectCols, ", ")
	}
	sql += " FROM " + strings.Join(froms, ", ")
	for _, j := range termJoins {
		sql += " " + j
	}
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}

	return &Relation{SQL: sql, Vars: vars}, nil
}

// compileJoin inner-joins Left and Right on every variable they share;
// when they share none, the join degenerates to a cross join (SPARQL's
// join of disjoint-domain mappings is always compatible).
func compileJoin(c *ctx, j *algebra.Join) (*Relation, error) {
	left, err := compile(c, j.Left)
	if err != nil {
		return nil, err
	}
	right, err := compile(c, j.Right)
	if err != nil {
		return nil, err
	}
	return joinRelations(c, left, right)
}

// joinRelations inner-joins two already-compiled relations on every
// variable they share, shared by compileJoin and compileGraphScoped
// (the latter compiles Left/Right itself, with the graph restriction
// threaded through their leaves, before combining them here).
func joinRelations(c *ctx, left, right *Relation) (*Relation, error) {
	lAlias, rAlias := c.alias("l"), c.alias("r")
	shared := intersect(left.Vars, right.Vars)

	var conds []string
	for _, v := range shared {
		lu, _, _, _, _ := cols(lAlias, v)
		ru, _, _, _, _ := cols(rAlias, v)
		conds = append(conds, fmt.Sprintf("%s = %s", lu, ru))
	}

	allVars := union(left.Vars, right.Vars)
	var selectCols []string
	for _, v := range allVars {
		if contains(left.Vars, v) {
			selectCols = append(selectCols, colRefs(lAlias, v)...)
		} else {
			selectCols = append(selectCols, colRefs(rAlias, v)...)
		}
	}

	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s, (%s) AS %s", strings.Join(selectCols, ", "), left.SQL, lAlias, right.SQL, rAlias)
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	return &Relation{SQL: sql, Vars: allVars}, nil
}

// compileLeftJoin outer-joins Right onto Left, preserving every Left
// row and filling Right's columns with NULL where no match (or the
// extra Filter condition fails) exists — SPARQL OPTIONAL.
func compileLeftJoin(c *ctx, lj *algebra.LeftJoin) (*Relation, error) {
	left, err := compile(c, lj.Left)
	if err != nil {
		return nil, err
	}
	right, err := compile(c, lj.Right)
	if err != nil {
		return nil, err
	}
	return leftJoinRelations(c, left, right, lj.Filter)
}

// leftJoinRelations left-joins two already-compiled relations, shared
// by compileLeftJoin and compileGraphScoped.
func leftJoinRelations(c *ctx, left, right *Relation, filter algebra.Expr) (*Relation, error) {
	lAlias, rAlias := c.alias("l"), c.alias("r")
	shared := intersect(left.Vars, right.Vars)

	var conds []string
	for _, v := range shared {
		lu, _, _, _, _ := cols(lAlias, v)
		ru, _, _, _, _ := cols(rAlias, v)
		conds = append(conds, fmt.Sprintf("%s = %s", lu, ru))
	}
	if filter != nil {
		scope := joinScope(lAlias, left.Vars, rAlias, right.Vars)
		filterSQL, err := exprToBoolSQL(c, filter, scope)
		if err != nil {
			return nil, err
		}
		conds = append(conds, filterSQL)
	}
	onClause := "TRUE"
	if len(conds) > 0 {
		onClause = strings.Join(conds, " AND ")
	}

	allVars := union(left.Vars, right.Vars)
	var selectCols []string
	for _, v := range allVars {
		if contains(left.Vars, v) {
			selectCols = append(selectCols, colRefs(lAlias, v)...)
		} else {
			selectCols = append(selectCols, colRefs(rAlias, v)...)
		}
	}

	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s LEFT JOIN (%s) AS %s ON %s",
		strings.Join(selectCols, ", "), left.SQL, lAlias, right.SQL, rAlias, onClause)
	return &Relation{SQL: sql, Vars: allVars}, nil
}

// compileUnion concatenates Left and Right, padding each side with
// typed NULLs for variables the other side doesn't bind.
func compileUnion(c *ctx, u *algebra.Union) (*Relation, error) {
	left, err := compile(c, u.Left)
	if err != nil {
		return nil, err
	}
	right, err := compile(c, u.Right)
	if err != nil {
		return nil, err
	}
	return unionRelations(c, left, right)
}

// unionRelations concatenates two already-compiled relations, shared
// by compileUnion and compileGraphScoped.
func unionRelations(c *ctx, left, right *Relation) (*Relation, error) {
	allVars := union(left.Vars, right.Vars)
	lAlias, rAlias := c.alias("ul"), c.alias("ur")

	leftSel := unionSideSelect(lAlias, allVars, left.Vars)
	rightSel := unionSideSelect(rAlias, allVars, right.Vars)

	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s UNION ALL SELECT %s FROM (%s) AS %s",
		leftSel, left.SQL, lAlias, rightSel, right.SQL, rAlias)
	return &Relation{SQL: sql, Vars: allVars}, nil
}

func unionSideSelect(alias string, allVars, haveVars []string) string {
	var parts []string
	for _, v := range allVars {
		if contains(haveVars, v) {
			parts = append(parts, strings.Join(colRefs(alias, v), ", "))
		} else {
			parts = append(parts, fmt.Sprintf("NULL::uuid AS %s__uuid, NULL::text AS %s__lex, NULL::smallint AS %s__kind, NULL::text AS %s__dt, NULL::text AS %s__lang", v, v, v, v, v))
		}
	}
	return strings.Join(parts, ", ")
}

// compileMinus removes Left rows compatible with some Right row that
// shares a variable; sharing no variable at all makes MINUS a no-op
// per SPARQL 1.1's domain-intersection rule.
func compileMinus(c *ctx, m *algebra.Minus) (*Relation, error) {
	left, err := compile(c, m.Left)
	if err != nil {
		return nil, err
	}
	right, err := compile(c, m.Right)
	if err != nil {
		return nil, err
	}

	shared := intersect(left.Vars, right.Vars)
	if len(shared) == 0 {
		return left, nil
	}

	lAlias, rAlias := c.alias("ml"), c.alias("mr")
	var conds []string
	for _, v := range shared {
		lu, _, _, _, _ := cols(lAlias, v)
		ru, _, _, _, _ := cols(rAlias, v)
		conds = append(conds, fmt.Sprintf("%s = %s", lu, ru))
	}

	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s WHERE NOT EXISTS (SELECT 1 FROM (%s) AS %s WHERE %s)",
		selectList(lAlias, left.Vars), left.SQL, lAlias, right.SQL, rAlias, strings.Join(conds, " AND "))
	return &Relation{SQL: sql, Vars: left.Vars}, nil
}

// compileFilter wraps Input in a WHERE clause testing Condition's
// effective boolean value.
func compileFilter(c *ctx, f *algebra.Filter) (*Relation, error) {
	inner, err := compile(c, f.Input)
	if err != nil {
		return nil, err
	}
	return filterRelation(c, inner, f.Condition)
}

// filterRelation wraps an already-compiled relation in a WHERE clause
// testing condition's effective boolean value, shared by compileFilter
// and compileGraphScoped.
func filterRelation(c *ctx, inner *Relation, condition algebra.Expr) (*Relation, error) {
	alias := c.alias("filt")
	scope := joinScope(alias, inner.Vars, "", nil)
	cond, err := exprToBoolSQL(c, condition, scope)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s WHERE %s", selectList(alias, inner.Vars), inner.SQL, alias, cond)
	return &Relation{SQL: sql, Vars: inner.Vars}, nil
}

// compileExtend adds a new bound variable computed from Expr (BIND).
func compileExtend(c *ctx, e *algebra.Extend) (*Relation, error) {
	inner, err := compile(c, e.Input)
	if err != nil {
		return nil, err
	}
	return extendRelation(c, inner, e)
}

// extendRelation adds e's computed variable to an already-compiled
// relation, shared by compileExtend and compileGraphScoped.
func extendRelation(c *ctx, inner *Relation, e *algebra.Extend) (*Relation, error) {
	alias := c.alias("ext")
	scope := joinScope(alias, inner.Vars, "", nil)
	term, err := exprToTermSQL(c, e.Expr, scope)
	if err != nil {
		return nil, err
	}

	vars := append(append([]string{}, inner.Vars...), e.Var)
	sql := fmt.Sprintf("SELECT %s, %s AS %s__uuid, %s AS %s__lex, %s AS %s__kind, %s AS %s__dt, %s AS %s__lang FROM (%s) AS %s",
		selectList(alias, inner.Vars),
		term.UUID, e.Var, term.Lex, e.Var, term.Kind, e.Var, term.Datatype, e.Var, term.Lang, e.Var,
		inner.SQL, alias)
	return &Relation{SQL: sql, Vars: vars}, nil
}

// compileGraph restricts Input to quads in a specific named graph,
// binding Name's variable form to the matched graph term if it names
// one.
func compileGraph(c *ctx, g *algebra.Graph) (*Relation, error) {
	// Graph scope restriction is applied at the BGP level via an extra
	// predicate over graph_uuid; since this translator's BGP doesn't
	// carry a graph column by default (the default dataset is the union
	// of all graphs), GRAPH is implemented by compiling its Input with
	// the graph constraint threaded directly into the leaf BGP(s)
	// instead of compiling Input first and restricting it afterward —
	// there is no single derived column to filter on once subject/
	// predicate/object have already been joined away from their source
	// quad row.
	return compileGraphScoped(c, g.Input, g.Name)
}

// compileGraphScoped compiles input the way compile does, except every
// leaf BGP is compiled via compileBGPInGraph instead of compileBGP, so
// the graph_uuid restriction reaches every quad the block reads (spec
// §4.9: GRAPH "restricts the graph-context column of every quad inside
// the block"). Shapes whose leaves compileGraphScoped doesn't know how
// to recurse into are rejected rather than silently compiled without
// the restriction.
func compileGraphScoped(c *ctx, input algebra.Node, ref algebra.GraphRef) (*Relation, error) {
	switch n := input.(type) {
	case *algebra.BGP:
		return compileBGPInGraph(c, n, ref)
	case *algebra.Filter:
		inner, err := compileGraphScoped(c, n.Input, ref)
		if err != nil {
			return nil, err
		}
		return filterRelation(c, inner, n.Condition)
	case *algebra.Extend:
		inner, err := compileGraphScoped(c, n.Input, ref)
		if err != nil {
			return nil, err
		}
		return extendRelation(c, inner, n)
	case *algebra.Join:
		left, err := compileGraphScoped(c, n.Left, ref)
		if err != nil {
			return nil, err
		}
		right, err := compileGraphScoped(c, n.Right, ref)
		if err != nil {
			return nil, err
		}
		return joinRelations(c, left, right)
	case *algebra.LeftJoin:
		left, err := compileGraphScoped(c, n.Left, ref)
		if err != nil {
			return nil, err
		}
		right, err := compileGraphScoped(c, n.Right, ref)
		if err != nil {
			return nil, err
		}
		return leftJoinRelations(c, left, right, n.Filter)
	case *algebra.Union:
		left, err := compileGraphScoped(c, n.Left, ref)
		if err != nil {
			return nil, err
		}
		right, err := compileGraphScoped(c, n.Right, ref)
		if err != nil {
			return nil, err
		}
		return unionRelations(c, left, right)
	default:
		return nil, vgerr.Errorf(vgerr.SPARQL, "translate.Graph", "unsupported construct inside GRAPH: %T", input)
	}
}

// compileBGPInGraph is compileBGP with every pattern alias additionally
// constrained to graph_uuid = the resolved graph, and ref's variable (if
// any) bound to that graph term.
func compileBGPInGraph(c *ctx, bgp *algebra.BGP, ref algebra.GraphRef) (*Relation, error) {
	n := c.names

	var graphExpr string
	graphIsVar := ref.IRI == nil
	if !graphIsVar {
		enc, err := c.encode(ref.IRI)
		if err != nil {
			return nil, vgerr.New(vgerr.Validation, "translate.Graph", err)
		}
		graphExpr = c.bind(enc.UUID)
	}

	type varOcc struct {
		alias string
		col   string
	}
	varOccs := make(map[string][]varOcc)
	var froms []string
	var conds []string
	var graphOccs []string

	for i, tp := range bgp.Patterns {
		alias := fmt.Sprintf("gq%d", i)
		froms = append(froms, fmt.Sprintf("%q AS %s", n.Quad, alias))
		graphOccs = append(graphOccs, alias+".graph_uuid")

		positions := []struct {
			col string
			tov parser.TermOrVariable
		}{
			{"subject_uuid", tp.Subject},
			{"predicate_uuid", tp.Predicate},
			{"object_uuid", tp.Object},
		}
		for _, pos := range positions {
			if pos.tov.IsVariable() {
				name := pos.tov.Variable.Name
				varOccs[name] = append(varOccs[name], varOcc{alias, pos.col})
				continue
			}
			enc, err := c.encode(pos.tov.Term)
			if err != nil {
				return nil, vgerr.New(vgerr.Validation, "translate.Graph", err)
			}
			conds = append(conds, fmt.Sprintf("%s.%s = %s", alias, pos.col, c.bind(enc.UUID)))
		}
		if !graphIsVar {
			conds = append(conds, fmt.Sprintf("%s.graph_uuid = %s", alias, graphExpr))
		}
	}
	for i := 1; i < len(graphOccs); i++ {
		conds = append(conds, fmt.Sprintf("%s = %s", graphOccs[0], graphOccs[i]))
	}
	for _, occs := range varOccs {
		for i := 1; i < len(occs); i++ {
			conds = append(conds, fmt.Sprintf("%s.%s = %s.%s", occs[0].alias, occs[0].col, occs[i].alias, occs[i].col))
		}
	}

	var vars []string
	for v := range varOccs {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	if graphIsVar && ref.Var != "" {
		vars = append(vars, ref.Var)
	}

	var termJoins []string
	var selectCols []string
	for _, v := range vars {
		if graphIsVar && v == ref.Var {
			tAlias := c.alias("gt")
			termJoins = append(termJoins, fmt.Sprintf("JOIN %q AS %s ON %s.uuid = %s", n.Term, tAlias, tAlias, graphOccs[0]))
			selectCols = append(selectCols, fmt.Sprintf("%s.uuid AS %s__uuid, %s.lex AS %s__lex, %s.kind AS %s__kind, %s.datatype AS %s__dt, %s.lang AS %s__lang",
				tAlias, v, tAlias, v, tAlias, v, tAlias, v, tAlias, v))
			continue
		}
		tAlias := c.alias("t")
		occ := varOccs[v][0]
		termJoins = append(termJoins, fmt.Sprintf("JOIN %q AS %s ON %s.uuid = %s.%s", n.Term, tAlias, tAlias, occ.alias, occ.col))
		selectCols = append(selectCols, fmt.Sprintf("%s.uuid AS %s__uuid, %s.lex AS %s__lex, %s.kind AS %s__kind, %s.datatype AS %s__dt, %s.lang AS %s__lang",
			tAlias, v, tAlias, v, tAlias, v, tAlias, v, tAlias, v))
	}

	sql := "SELECT "
	if len(selectCols) == 0 {
		sql += "1 AS dummy__col"
	} else {
		sql += strings.Join(selectCols, ", ")
	}
	sql += " FROM " + strings.Join(froms, ", ")
	for _, j := range termJoins {
		sql += " " + j
	}
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	return &Relation{SQL: sql, Vars: vars}, nil
}

// compileValues builds a literal VALUES derived table for an inline
// data block.
func compileValues(c *ctx, v *algebra.Values) (*Relation, error) {
	if len(v.Rows) == 0 {
		return &Relation{SQL: "SELECT 1 AS dummy__col WHERE false", Vars: nil}, nil
	}

	var rowSQLs []string
	for _, row := range v.Rows {
		var cellParts []string
		for i, cell := range row {
			varName := v.Vars[i]
			if cell.Undef {
				cellParts = append(cellParts, fmt.Sprintf("NULL::uuid AS %s__uuid, NULL::text AS %s__lex, NULL::smallint AS %s__kind, NULL::text AS %s__dt, NULL::text AS %s__lang",
					varName, varName, varName, varName, varName))
				continue
			}
			enc, err := c.encode(cell.Term)
			if err != nil {
				return nil, vgerr.New(vgerr.Validation, "translate.Values", err)
			}
			cellParts = append(cellParts, valuesCellSQL(c, varName, enc))
		}
		rowSQLs = append(rowSQLs, "SELECT "+strings.Join(cellParts, ", "))
	}
	return &Relation{SQL: strings.Join(rowSQLs, " UNION ALL "), Vars: v.Vars}, nil
}

func valuesCellSQL(c *ctx, varName string, enc termcodec.EncodedTerm) string {
	dt := "NULL::text"
	if enc.Datatype != "" {
		dt = c.bind(enc.Datatype) + "::text"
	}
	lang := "NULL::text"
	if enc.Lang != "" {
		lang = c.bind(enc.Lang) + "::text"
	}
	return fmt.Sprintf("%s::uuid AS %s__uuid, %s::text AS %s__lex, %s::smallint AS %s__kind, %s AS %s__dt, %s AS %s__lang",
		c.bind(enc.UUID), varName, c.bind(enc.Lex), varName, c.bind(int16(enc.Kind)), varName, dt, varName, lang, varName)
}

// compileSlice applies LIMIT/OFFSET.
func compileSlice(c *ctx, s *algebra.Slice) (*Relation, error) {
	inner, err := compile(c, s.Input)
	if err != nil {
		return nil, err
	}
	sql := inner.SQL
	if s.Limit >= 0 {
		sql += fmt.Sprintf(" LIMIT %d", s.Limit)
	}
	if s.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", s.Offset)
	}
	return &Relation{SQL: sql, Vars: inner.Vars}, nil
}

// collatedOrderKeys returns three SQL key expressions that together sort
// ref by datatype-aware collation (spec §4.9's ORDER BY rule: numeric
// comparison for numeric datatypes, lexicographic otherwise). The sort
// direction applies to all three keys, so numeric rows sort before
// non-numeric rows in ascending order and after them in descending
// order; within each group the comparison is then numeric or plain text
// respectively.
func collatedOrderKeys(c *ctx, ref termRef) []string {
	isNum := numericDatatypesSQL(c, ref.Datatype)
	return []string{
		fmt.Sprintf("(CASE WHEN %s THEN 0 ELSE 1 END)", isNum),
		fmt.Sprintf("(CASE WHEN %s THEN %s::numeric END)", isNum, ref.Lex),
		fmt.Sprintf("(CASE WHEN NOT (%s) THEN %s END)", isNum, ref.Lex),
	}
}

// compileOrderBy sorts Input by each condition's collated key, matching
// spec §4.9 ("datatype-aware collation for numeric literals").
func compileOrderBy(c *ctx, ob *algebra.OrderBy) (*Relation, error) {
	inner, err := compile(c, ob.Input)
	if err != nil {
		return nil, err
	}
	alias := c.alias("ord")
	scope := joinScope(alias, inner.Vars, "", nil)

	var orderParts []string
	for _, cond := range ob.Conditions {
		ref, err := exprToTermSQL(c, cond.Expr, scope)
		if err != nil {
			return nil, err
		}
		dir := "ASC"
		if cond.Descending {
			dir = "DESC"
		}
		for _, k := range collatedOrderKeys(c, ref) {
			orderParts = append(orderParts, k+" "+dir)
		}
	}
	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s", selectList(alias, inner.Vars), inner.SQL, alias)
	if len(orderParts) > 0 {
		sql += " ORDER BY " + strings.Join(orderParts, ", ")
	}
	return &Relation{SQL: sql, Vars: inner.Vars}, nil
}

// aggregateTermSQL lowers one AGG(...) AS ?v binding to the termRef its
// SQL aggregate expression produces, evaluated against the pre-group
// scope so the resulting expression is usable directly inside both the
// grouped SELECT list and a HAVING clause (spec §4.9's aggregate family).
func aggregateTermSQL(c *ctx, ab algebra.AggregateBinding, s scope) (termRef, error) {
	distinctKw := ""
	if ab.Distinct {
		distinctKw = "DISTINCT "
	}

	switch strings.ToUpper(ab.Function) {
	case "COUNT":
		if ab.Wildcard || ab.Expr == nil {
			return typedTermRef("COUNT(*)::text", rdf.XSDInteger.IRI), nil
		}
		ref, err := exprToTermSQL(c, ab.Expr, s)
		if err != nil {
			return termRef{}, err
		}
		return typedTermRef(fmt.Sprintf("COUNT(%s%s)::text", distinctKw, ref.UUID), rdf.XSDInteger.IRI), nil
	case "SUM":
		ref, err := exprToTermSQL(c, ab.Expr, s)
		if err != nil {
			return termRef{}, err
		}
		return typedTermRef(fmt.Sprintf("COALESCE(SUM(%s%s::numeric), 0)::text", distinctKw, ref.Lex), rdf.XSDDecimal.IRI), nil
	case "AVG":
		ref, err := exprToTermSQL(c, ab.Expr, s)
		if err != nil {
			return termRef{}, err
		}
		return typedTermRef(fmt.Sprintf("AVG(%s%s::numeric)::text", distinctKw, ref.Lex), rdf.XSDDecimal.IRI), nil
	case "MIN", "MAX":
		ref, err := exprToTermSQL(c, ab.Expr, s)
		if err != nil {
			return termRef{}, err
		}
		return minMaxTermRef(c, ref, strings.ToUpper(ab.Function) == "MAX"), nil
	case "SAMPLE":
		ref, err := exprToTermSQL(c, ab.Expr, s)
		if err != nil {
			return termRef{}, err
		}
		pick := func(col string) string { return fmt.Sprintf("(ARRAY_AGG(%s))[1]", col) }
		return termRef{pick(ref.UUID), pick(ref.Lex), pick(ref.Kind), pick(ref.Datatype), pick(ref.Lang)}, nil
	case "GROUP_CONCAT":
		ref, err := exprToTermSQL(c, ab.Expr, s)
		if err != nil {
			return termRef{}, err
		}
		sep := ab.Separator
		if sep == "" {
			sep = " "
		}
		return strTermRef(fmt.Sprintf("STRING_AGG(%s%s, %s)", distinctKw, ref.Lex, c.bind(sep))), nil
	default:
		return termRef{}, vgerr.Errorf(vgerr.SPARQL, "translate.aggregate", "unsupported aggregate: %s", ab.Function)
	}
}

// minMaxTermRef picks the whole term (all 5 columns, in lockstep) whose
// collated key sorts first/last, so MIN/MAX preserve the winning row's
// kind/datatype/lang instead of just its lexical form.
func minMaxTermRef(c *ctx, ref termRef, max bool) termRef {
	keys := collatedOrderKeys(c, ref)
	dir := "ASC"
	if max {
		dir = "DESC"
	}
	orderBy := fmt.Sprintf("ORDER BY %s %s, %s %s, %s %s", keys[0], dir, keys[1], dir, keys[2], dir)
	pick := func(col string) string { return fmt.Sprintf("(ARRAY_AGG(%s %s))[1]", col, orderBy) }
	return termRef{pick(ref.UUID), pick(ref.Lex), pick(ref.Kind), pick(ref.Datatype), pick(ref.Lang)}
}

// compileGroup lowers GROUP BY/aggregates/HAVING (spec §4.9). Grouping
// keys are matched on all 5 term columns so that two terms differing
// only in datatype or language never fall into the same bucket; HAVING
// conditions are evaluated directly against the pre-group scope (the
// same aggregate SQL text used in the SELECT list) since PostgreSQL does
// not allow HAVING to reference SELECT-list aliases.
func compileGroup(c *ctx, g *algebra.Group) (*Relation, error) {
	inner, err := compile(c, g.Input)
	if err != nil {
		return nil, err
	}
	alias := c.alias("grp")
	preScope := joinScope(alias, inner.Vars, "", nil)

	var groupKeyExprs []string
	var vars []string
	havingScope := scope{}
	var selectCols []string

	for _, k := range g.Keys {
		ref, err := exprToTermSQL(c, k.Expr, preScope)
		if err != nil {
			return nil, err
		}
		groupKeyExprs = append(groupKeyExprs, ref.UUID, ref.Lex, ref.Kind, ref.Datatype, ref.Lang)

		varName := k.Var
		if varName == "" {
			if ve, ok := k.Expr.(*algebra.VarExpr); ok {
				varName = ve.Name
			}
		}
		if varName != "" {
			vars = append(vars, varName)
			havingScope[varName] = ref
			selectCols = append(selectCols, fmt.Sprintf("%s AS %s__uuid, %s AS %s__lex, %s AS %s__kind, %s AS %s__dt, %s AS %s__lang",
				ref.UUID, varName, ref.Lex, varName, ref.Kind, varName, ref.Datatype, varName, ref.Lang, varName))
		}
	}

	for _, ab := range g.Aggregates {
		ref, err := aggregateTermSQL(c, ab, preScope)
		if err != nil {
			return nil, err
		}
		vars = append(vars, ab.Var)
		havingScope[ab.Var] = ref
		selectCols = append(selectCols, fmt.Sprintf("%s AS %s__uuid, %s AS %s__lex, %s AS %s__kind, %s AS %s__dt, %s AS %s__lang",
			ref.UUID, ab.Var, ref.Lex, ab.Var, ref.Kind, ab.Var, ref.Datatype, ab.Var, ref.Lang, ab.Var))
	}

	if len(selectCols) == 0 {
		selectCols = append(selectCols, "1 AS dummy__col")
	}

	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s", strings.Join(selectCols, ", "), inner.SQL, alias)
	if len(groupKeyExprs) > 0 {
		sql += " GROUP BY " + strings.Join(groupKeyExprs, ", ")
	}

	if len(g.Having) > 0 {
		var havingConds []string
		for _, h := range g.Having {
			cond, err := exprToBoolSQL(c, h, havingScope)
			if err != nil {
				return nil, err
			}
			havingConds = append(havingConds, cond)
		}
		sql += " HAVING " + strings.Join(havingConds, " AND ")
	}

	return &Relation{SQL: sql, Vars: vars}, nil
}

// compilePath lowers a property-path triple pattern to SQL. Fixed
// (sequence/alternative/inverse/zero-or-one/negated-set) operators
// compose as nested subqueries over an (from_uuid, to_uuid) edge
// relation; the unbounded operators (+, *) become a recursive CTE keyed
// on the starting node with a depth counter standing in for the
// visited-set cycle guard. Recursion stops at maxDepth steps without an
// error; paths longer than that are not returned.
func compilePath(c *ctx, p *algebra.Path) (*Relation, error) {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = algebra.DefaultMaxPathDepth
	}

	edgeSQL, err := compilePathEdges(c, p.Path, maxDepth)
	if err != nil {
		return nil, err
	}

	ea := c.alias("pe")
	var conds []string
	var vars []string
	var selectCols []string

	if p.Subject.IsVariable() {
		v := p.Subject.Variable.Name
		vars = append(vars, v)
		ta := c.alias("pt")
		selectCols = append(selectCols, fmt.Sprintf("%s.uuid AS %s__uuid, %s.lex AS %s__lex, %s.kind AS %s__kind, %s.datatype AS %s__dt, %s.lang AS %s__lang",
			ta, v, ta, v, ta, v, ta, v, ta, v))
		conds = append(conds, fmt.Sprintf("%s.uuid = %s.from_uuid", ta, ea))
		edgeSQL = fmt.Sprintf("%s JOIN %q AS %s ON %s.uuid = %s.from_uuid", edgeSQL, c.names.Term, ta, ta, ea)
	} else {
		enc, err := c.encode(p.Subject.Term)
		if err != nil {
			return nil, vgerr.New(vgerr.Validation, "translate.Path", err)
		}
		conds = append(conds, fmt.Sprintf("%s.from_uuid = %s", ea, c.bind(enc.UUID)))
	}

	if p.Object.IsVariable() {
		v := p.Object.Variable.Name
		vars = append(vars, v)
		ta := c.alias("pt")
		selectCols = append(selectCols, fmt.Sprintf("%s.uuid AS %s__uuid, %s.lex AS %s__lex, %s.kind AS %s__kind, %s.datatype AS %s__dt, %s.lang AS %s__lang",
			ta, v, ta, v, ta, v, ta, v, ta, v))
		conds = append(conds, fmt.Sprintf("%s.uuid = %s.to_uuid", ta, ea))
		edgeSQL = fmt.Sprintf("%s JOIN %q AS %s ON %s.uuid = %s.to_uuid", edgeSQL, c.names.Term, ta, ta, ea)
	} else {
		enc, err := c.encode(p.Object.Term)
		if err != nil {
			return nil, vgerr.New(vgerr.Validation, "translate.Path", err)
		}
		conds = append(conds, fmt.Sprintf("%s.to_uuid = %s", ea, c.bind(enc.UUID)))
	}

	if len(selectCols) == 0 {
		selectCols = append(selectCols, "1 AS dummy__col")
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selectCols, ", "), edgeSQL)
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	return &Relation{SQL: sql, Vars: vars}, nil
}

// compilePathEdges lowers one property-path expression (possibly nested)
// to a SELECT yielding (from_uuid, to_uuid) pairs, wrapped as "(...) AS
// <alias>" so the caller can reference it as a FROM-clause relation.
func compilePathEdges(c *ctx, p *parser.PropertyPath, maxDepth int) (string, error) {
	n := c.names
	switch p.Op {
	case parser.PathPredicate:
		enc, err := c.encode(p.Pred)
		if err != nil {
			return "", vgerr.New(vgerr.Validation, "translate.Path", err)
		}
		alias := c.alias("pp")
		return fmt.Sprintf("(SELECT subject_uuid AS from_uuid, object_uuid AS to_uuid FROM %q WHERE predicate_uuid = %s) AS %s",
			n.Quad, c.bind(enc.UUID), alias), nil
	case parser.PathInverse:
		sub, err := compilePathEdges(c, p.Sub, maxDepth)
		if err != nil {
			return "", err
		}
		alias := c.alias("pinv")
		return fmt.Sprintf("(SELECT to_uuid AS from_uuid, from_uuid AS to_uuid FROM %s) AS %s", sub, alias), nil
	case parser.PathSequence:
		l, err := compilePathEdges(c, p.Left, maxDepth)
		if err != nil {
			return "", err
		}
		r, err := compilePathEdges(c, p.Right, maxDepth)
		if err != nil {
			return "", err
		}
		alias := c.alias("pseq")
		return fmt.Sprintf("(SELECT l.from_uuid AS from_uuid, r.to_uuid AS to_uuid FROM %s AS l JOIN %s AS r ON l.to_uuid = r.from_uuid) AS %s",
			l, r, alias), nil
	case parser.PathAlternative:
		l, err := compilePathEdges(c, p.Left, maxDepth)
		if err != nil {
			return "", err
		}
		r, err := compilePathEdges(c, p.Right, maxDepth)
		if err != nil {
			return "", err
		}
		alias := c.alias("palt")
		return fmt.Sprintf("(SELECT from_uuid, to_uuid FROM %s UNION SELECT from_uuid, to_uuid FROM %s) AS %s", l, r, alias), nil
	case parser.PathZeroOrOne:
		sub, err := compilePathEdges(c, p.Sub, maxDepth)
		if err != nil {
			return "", err
		}
		alias := c.alias("p01")
		return fmt.Sprintf(`(SELECT from_uuid, to_uuid FROM %s
			UNION SELECT from_uuid, from_uuid FROM %s
			UNION SELECT to_uuid, to_uuid FROM %s) AS %s`, sub, sub, sub, alias), nil
	case parser.PathOneOrMore, parser.PathZeroOrMore:
		base, err := compilePathEdges(c, p.Sub, maxDepth)
		if err != nil {
			return "", err
		}
		cteName := c.alias("ppath")
		baseCase := fmt.Sprintf("SELECT from_uuid, to_uuid, 1 AS depth FROM %s", base)
		if p.Op == parser.PathZeroOrMore {
			baseCase = fmt.Sprintf("%s UNION SELECT from_uuid, from_uuid, 0 FROM %s UNION SELECT to_uuid, to_uuid, 0 FROM %s", baseCase, base, base)
		}
		rec := fmt.Sprintf(`(WITH RECURSIVE %s(from_uuid, to_uuid, depth) AS (
			%s
			UNION
			SELECT r.from_uuid, e.to_uuid, r.depth + 1
			FROM %s AS r JOIN %s AS e ON r.to_uuid = e.from_uuid
			WHERE r.depth < %d
		) SELECT DISTINCT from_uuid, to_uuid FROM %s) AS %s`,
			cteName, baseCase, cteName, base, maxDepth, cteName, c.alias("ppr"))
		return rec, nil
	case parser.PathNegatedSet:
		var excluded []string
		for _, pred := range p.Negated {
			enc, err := c.encode(pred)
			if err != nil {
				return "", vgerr.New(vgerr.Validation, "translate.Path", err)
			}
			excluded = append(excluded, c.bind(enc.UUID))
		}
		forward := ""
		if len(excluded) > 0 {
			forward = fmt.Sprintf("SELECT subject_uuid AS from_uuid, object_uuid AS to_uuid FROM %q WHERE predicate_uuid NOT IN (%s)", n.Quad, strings.Join(excluded, ", "))
		} else {
			forward = fmt.Sprintf("SELECT subject_uuid AS from_uuid, object_uuid AS to_uuid FROM %q", n.Quad)
		}
		if len(p.NegInv) == 0 {
			alias := c.alias("pneg")
			return fmt.Sprintf("(%s) AS %s", forward, alias), nil
		}
		var excludedInv []string
		for _, pred := range p.NegInv {
			enc, err := c.encode(pred)
			if err != nil {
				return "", vgerr.New(vgerr.Validation, "translate.Path", err)
			}
			excludedInv = append(excludedInv, c.bind(enc.UUID))
		}
		inverse := fmt.Sprintf("SELECT object_uuid AS from_uuid, subject_uuid AS to_uuid FROM %q WHERE predicate_uuid IN (%s)", n.Quad, strings.Join(excludedInv, ", "))
		alias := c.alias("pneg")
		return fmt.Sprintf("(%s UNION %s) AS %s", forward, inverse, alias), nil
	default:
		return "", vgerr.Errorf(vgerr.SPARQL, "translate.Path", "unsupported path operator: %v", p.Op)
	}
}

func intersect(a, b []string) []string {
	bs := make(map[string]bool, len(b))
	for _, v := range b {
		bs[v] = true
	}
	var out []string
	for _, v := range a {
		if bs[v] {
			out = append(out, v)
		}
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func colRefs(alias, v string) []string {
	u, l, k, d, g := cols(alias, v)
	return []string{
		fmt.Sprintf("%s AS %s__uuid", u, v),
		fmt.Sprintf("%s AS %s__lex", l, v),
		fmt.Sprintf("%s AS %s__kind", k, v),
		fmt.Sprintf("%s AS %s__dt", d, v),
		fmt.Sprintf("%s AS %s__lang", g, v),
	}
}
