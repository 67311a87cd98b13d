package translate

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/aleksaelezovic/vitalgraph/internal/quadapi"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/algebra"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/parser"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// ExecuteUpdate runs every operation in upd against db, in order, inside
// the caller's transaction (spec §4.9's "lowered to DML inside one
// *txn.Txn"). db is usually a (*txn.Txn).Tx(); it satisfies both
// quadapi.Querier and pgx.Tx's Query/Exec subset.
func ExecuteUpdate(ctx context.Context, codec *termcodec.Codec, api *quadapi.API, db quadapi.Querier, prefix, spaceID string, upd *algebra.Update) error {
	for _, op := range upd.Operations {
		if err := executeOp(ctx, codec, api, db, prefix, spaceID, op); err != nil {
			if op.Silent {
				continue
			}
			return err
		}
	}
	return nil
}

func executeOp(ctx context.Context, codec *termcodec.Codec, api *quadapi.API, db quadapi.Querier, prefix, spaceID string, op *algebra.UpdateOp) error {
	switch op.Kind {
	case parser.UpdateInsertData:
		quads, err := groundQuads(codec, spaceID, op.InsertData, op.GraphIRI)
		if err != nil {
			return err
		}
		return api.AddQuads(ctx, db, prefix, spaceID, quads)
	case parser.UpdateDeleteData:
		quads, err := groundQuads(codec, spaceID, op.DeleteData, op.GraphIRI)
		if err != nil {
			return err
		}
		for _, q := range quads {
			if err := api.RemoveQuad(ctx, db, prefix, spaceID, q); err != nil {
				return err
			}
		}
		return nil
	case parser.UpdateModify:
		return executeModify(ctx, codec, api, db, prefix, spaceID, op)
	case parser.UpdateLoad:
		return vgerr.Errorf(vgerr.SPARQL, "translate.LOAD", "LOAD is not supported by this translator; use internal/importop to ingest %s", op.LoadSource)
	case parser.UpdateClear:
		_, err := api.RemoveQuadsByPattern(ctx, db, prefix, spaceID, graphPattern(op.GraphIRI))
		return err
	case parser.UpdateDrop:
		_, err := api.RemoveQuadsByPattern(ctx, db, prefix, spaceID, graphPattern(op.GraphIRI))
		return err
	case parser.UpdateCreate:
		return createGraphRow(ctx, db, prefix, spaceID, op.GraphIRI, codec)
	case parser.UpdateAdd:
		return copyGraph(ctx, api, db, prefix, spaceID, op.SourceGraph, op.DestGraph)
	case parser.UpdateMove:
		if err := copyGraph(ctx, api, db, prefix, spaceID, op.SourceGraph, op.DestGraph); err != nil {
			return err
		}
		_, err := api.RemoveQuadsByPattern(ctx, db, prefix, spaceID, graphPattern(op.SourceGraph))
		return err
	case parser.UpdateCopy:
		if _, err := api.RemoveQuadsByPattern(ctx, db, prefix, spaceID, graphPattern(op.DestGraph)); err != nil {
			return err
		}
		return copyGraph(ctx, api, db, prefix, spaceID, op.SourceGraph, op.DestGraph)
	default:
		return vgerr.Errorf(vgerr.SPARQL, "translate.ExecuteUpdate", "unsupported update kind: %v", op.Kind)
	}
}

// groundQuads lowers INSERT DATA/DELETE DATA triple patterns (which carry
// no variables) into quads, defaulting to the global graph when no GRAPH
// clause scopes the block.
func groundQuads(codec *termcodec.Codec, spaceID string, patterns []*parser.TriplePattern, graphIRI *rdf.NamedNode) ([]*rdf.Quad, error) {
	graph := rdf.Term(rdf.GlobalGraph)
	if graphIRI != nil {
		graph = graphIRI
	}
	out := make([]*rdf.Quad, 0, len(patterns))
	for _, tp := range patterns {
		if tp.Subject.IsVariable() || tp.Predicate.IsVariable() || tp.Object.IsVariable() {
			return nil, vgerr.Errorf(vgerr.SPARQL, "translate.groundQuads", "INSERT/DELETE DATA blocks may not contain variables")
		}
		g := graph
		if tp.GraphHint != nil {
			g = tp.GraphHint
		}
		out = append(out, rdf.NewQuad(tp.Subject.Term, tp.Predicate.Term, tp.Object.Term, g))
	}
	return out, nil
}

// graphPattern builds the quadapi.Pattern CLEAR/DROP restricts to: every
// quad in a specific named graph, every quad in the global graph for the
// parser's DefaultGraphMarker, or every quad in the store for
// AllGraphsMarker or a nil graphIRI.
func graphPattern(graphIRI *rdf.NamedNode) quadapi.Pattern {
	if graphIRI == nil {
		return quadapi.Pattern{}
	}
	switch graphIRI.IRI {
	case parser.DefaultGraphMarker:
		return quadapi.Pattern{Graph: rdf.Term(rdf.GlobalGraph)}
	case parser.AllGraphsMarker:
		return quadapi.Pattern{}
	}
	return quadapi.Pattern{Graph: rdf.Term(graphIRI)}
}

// createGraphRow registers graphIRI in the per-space graph admin table so
// C10's GetQuadCount/List machinery can enumerate empty graphs (spec
// §4.10); CREATE GRAPH on an already-registered graph is idempotent.
func createGraphRow(ctx context.Context, db quadapi.Querier, prefix, spaceID string, graphIRI *rdf.NamedNode, codec *termcodec.Codec) error {
	if graphIRI == nil {
		return vgerr.Errorf(vgerr.SPARQL, "translate.CREATE", "CREATE GRAPH requires an explicit graph IRI")
	}
	enc, err := codec.Encode(spaceID, graphIRI)
	if err != nil {
		return vgerr.New(vgerr.Validation, "translate.CREATE", err)
	}
	stmt := `INSERT INTO graph (space_id, graph_uuid) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err = db.Exec(ctx, stmt, spaceID, enc.UUID)
	if err != nil {
		return vgerr.New(vgerr.Internal, "translate.CREATE", err)
	}
	return nil
}

// copyGraph copies every quad from src into dst (ADD/MOVE/COPY share this
// core; MOVE/COPY additionally clear source/destination around the
// call). A missing source graph simply copies zero quads rather than
// failing, matching SPARQL 1.1's treatment of an empty source.
func copyGraph(ctx context.Context, api *quadapi.API, db quadapi.Querier, prefix, spaceID string, src, dst *rdf.NamedNode) error {
	if src == nil || dst == nil {
		return vgerr.Errorf(vgerr.SPARQL, "translate.copyGraph", "ADD/MOVE/COPY require explicit source and destination graphs")
	}
	seq, err := api.Quads(ctx, db, prefix, spaceID, quadapi.Pattern{Graph: rdf.Term(src)})
	if err != nil {
		return err
	}
	var batch []*rdf.Quad
	for q := range seq {
		batch = append(batch, rdf.NewQuad(q.Subject, q.Predicate, q.Object, dst))
	}
	if len(batch) == 0 {
		return nil
	}
	return api.AddQuads(ctx, db, prefix, spaceID, batch)
}

// executeModify runs a DELETE/INSERT ... WHERE update: it compiles Where
// like any read query, pulls every solution row, substitutes each
// solution's bindings into DeleteTmpl/InsertTmpl (skipping a delete
// triple that still contains an unbound variable, per SPARQL 1.1 §3.1.3),
// and applies the resulting ground quads.
func executeModify(ctx context.Context, codec *termcodec.Codec, api *quadapi.API, db quadapi.Querier, prefix, spaceID string, op *algebra.UpdateOp) error {
	c := newCtx(codec, prefix, spaceID)
	rel, err := compile(c, Optimize(op.Where))
	if err != nil {
		return err
	}

	rows, err := db.Query(ctx, rel.SQL, c.args...)
	if err != nil {
		return vgerr.New(vgerr.Internal, "translate.Modify", err)
	}
	defer rows.Close()

	var toDelete, toInsert []*rdf.Quad
	for rows.Next() {
		binding, err := scanBinding(rows, rel.Vars, codec)
		if err != nil {
			return err
		}
		if op.DeleteTmpl != nil {
			quads, ok := instantiateTemplate(op.DeleteTmpl, binding, op.GraphIRI)
			if ok {
				toDelete = append(toDelete, quads...)
			}
		}
		if op.InsertTmpl != nil {
			quads, ok := instantiateTemplate(op.InsertTmpl, binding, op.GraphIRI)
			if ok {
				toInsert = append(toInsert, quads...)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return vgerr.New(vgerr.Internal, "translate.Modify", err)
	}

	for _, q := range toDelete {
		if err := api.RemoveQuad(ctx, db, prefix, spaceID, q); err != nil {
			return err
		}
	}
	if len(toInsert) > 0 {
		if err := api.AddQuads(ctx, db, prefix, spaceID, toInsert); err != nil {
			return err
		}
	}
	return nil
}

// scanBinding reads one result row into a variable->term map, decoding
// each variable's 5-column group via codec.Decode.
func scanBinding(rows pgx.Rows, vars []string, codec *termcodec.Codec) (map[string]rdf.Term, error) {
	dest := make([]any, 0, len(vars)*5)
	raw := make([]termScanCell, len(vars))
	for i := range vars {
		dest = append(dest, &raw[i].uuid, &raw[i].lex, &raw[i].kind, &raw[i].datatype, &raw[i].lang)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, vgerr.New(vgerr.Internal, "translate.scanBinding", err)
	}

	binding := make(map[string]rdf.Term, len(vars))
	for i, v := range vars {
		cell := raw[i]
		if cell.lex == nil {
			continue
		}
		enc := termcodec.EncodedTerm{Lex: *cell.lex, Kind: rdf.TermType(cell.kind)}
		if cell.datatype != nil {
			enc.Datatype = *cell.datatype
		}
		if cell.lang != nil {
			enc.Lang = *cell.lang
		}
		term, err := codec.Decode(enc)
		if err != nil {
			return nil, vgerr.New(vgerr.Internal, "translate.scanBinding", err)
		}
		binding[v] = term
	}
	return binding, nil
}

type termScanCell struct {
	uuid     *string
	lex      *string
	kind     int16
	datatype *string
	lang     *string
}

// instantiateTemplate substitutes binding into tmpl, skipping each pattern
// that still has an unbound variable in it (such a triple is simply
// skipped for this solution, per SPARQL 1.1's update semantics); ok is
// false only when no pattern could be instantiated.
func instantiateTemplate(tmpl []*parser.TriplePattern, binding map[string]rdf.Term, graphIRI *rdf.NamedNode) ([]*rdf.Quad, bool) {
	graph := rdf.Term(rdf.GlobalGraph)
	if graphIRI != nil {
		graph = graphIRI
	}
	out := make([]*rdf.Quad, 0, len(tmpl))
	for _, tp := range tmpl {
		s, ok := resolveTermOrVariable(tp.Subject, binding)
		if !ok {
			continue
		}
		p, ok := resolveTermOrVariable(tp.Predicate, binding)
		if !ok {
			continue
		}
		o, ok := resolveTermOrVariable(tp.Object, binding)
		if !ok {
			continue
		}
		out = append(out, rdf.NewQuad(s, p, o, graph))
	}
	return out, len(out) > 0
}

func resolveTermOrVariable(tov parser.TermOrVariable, binding map[string]rdf.Term) (rdf.Term, bool) {
	if !tov.IsVariable() {
		return tov.Term, true
	}
	t, ok := binding[tov.Variable.Name]
	return t, ok
}
