package quadapi

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// Querier is the subset of pgx.Tx/*pgxpool.Pool the API needs, mirroring
// internal/schema.Querier so both packages accept either a pool or an
// in-flight transaction interchangeably.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// API implements C7 over a space's term/rdf_quad tables.
type API struct {
	codec *termcodec.Codec
}

// New builds an API.
func New() *API {
	return &API{codec: termcodec.New()}
}

// AddQuad inserts q's terms (if new) and the quad row itself, idempotent
// under ON CONFLICT DO NOTHING (spec §3: "No quad may reference a term
// UUID absent from the term table; this is enforced structurally by
// inserting terms first in the same transaction").
func (a *API) AddQuad(ctx context.Context, db Querier, prefix, spaceID string, q *rdf.Quad) error {
	return a.AddQuads(ctx, db, prefix, spaceID, []*rdf.Quad{q})
}

// AddQuads is the batch form of AddQuad, inserting every distinct term
// once before inserting the quad rows.
func (a *API) AddQuads(ctx context.Context, db Querier, prefix, spaceID string, quads []*rdf.Quad) error {
	const op = "quadapi.AddQuads"
	n := schema.NewNames(prefix, spaceID)

	terms := make(map[uuid.UUID]termcodec.EncodedTerm)
	for _, q := range quads {
		if err := validateQuadShape(q); err != nil {
			return vgerr.New(vgerr.Validation, op, err)
		}
		for _, t := range []rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph} {
			enc, err := a.codec.Encode(spaceID, t)
			if err != nil {
				return vgerr.New(vgerr.Validation, op, err)
			}
			terms[enc.UUID] = enc
		}
	}

	for _, enc := range terms {
		var datatype, lang any
		if enc.Datatype != "" {
			datatype = enc.Datatype
		}
		if enc.Lang != "" {
			lang = enc.Lang
		}
		stmt := fmt.Sprintf(`INSERT INTO %q (uuid, lex, kind, datatype, lang) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (uuid) DO NOTHING`, n.Term)
		if _, err := db.Exec(ctx, stmt, enc.UUID, enc.Lex, int16(enc.Kind), datatype, lang); err != nil {
			return vgerr.New(vgerr.Internal, op, err)
		}
	}

	for _, q := range quads {
		s, _ := a.codec.Encode(spaceID, q.Subject)
		p, _ := a.codec.Encode(spaceID, q.Predicate)
		o, _ := a.codec.Encode(spaceID, q.Object)
		g, _ := a.codec.Encode(spaceID, q.Graph)
		stmt := fmt.Sprintf(`INSERT INTO %q (subject_uuid, predicate_uuid, object_uuid, graph_uuid) VALUES ($1, $2, $3, $4) ON CONFLICT (subject_uuid, predicate_uuid, object_uuid, graph_uuid) DO NOTHING`, n.Quad)
		if _, err := db.Exec(ctx, stmt, s.UUID, p.UUID, o.UUID, g.UUID); err != nil {
			return vgerr.New(vgerr.Integrity, op, err)
		}
	}
	return nil
}

// RemoveQuad deletes exactly the quad described by q, if present.
func (a *API) RemoveQuad(ctx context.Context, db Querier, prefix, spaceID string, q *rdf.Quad) error {
	const op = "quadapi.RemoveQuad"
	n := schema.NewNames(prefix, spaceID)
	s, err := a.codec.Encode(spaceID, q.Subject)
	if err != nil {
		return vgerr.New(vgerr.Validation, op, err)
	}
	p, err := a.codec.Encode(spaceID, q.Predicate)
	if err != nil {
		return vgerr.New(vgerr.Validation, op, err)
	}
	o, err := a.codec.Encode(spaceID, q.Object)
	if err != nil {
		return vgerr.New(vgerr.Validation, op, err)
	}
	g, err := a.codec.Encode(spaceID, q.Graph)
	if err != nil {
		return vgerr.New(vgerr.Validation, op, err)
	}
	stmt := fmt.Sprintf(`DELETE FROM %q WHERE subject_uuid = $1 AND predicate_uuid = $2 AND object_uuid = $3 AND graph_uuid = $4`, n.Quad)
	if _, err := db.Exec(ctx, stmt, s.UUID, p.UUID, o.UUID, g.UUID); err != nil {
		return vgerr.New(vgerr.Internal, op, err)
	}
	return nil
}

// RemoveQuadsByPattern deletes every quad matching pattern, returning the
// number of rows removed.
func (a *API) RemoveQuadsByPattern(ctx context.Context, db Querier, prefix, spaceID string, pattern Pattern) (int64, error) {
	const op = "quadapi.RemoveQuadsByPattern"
	n := schema.NewNames(prefix, spaceID)

	where, joins, args, err := buildPredicate(a.codec, spaceID, n, pattern, 1)
	if err != nil {
		return 0, vgerr.New(vgerr.Validation, op, err)
	}

	stmt := fmt.Sprintf(`DELETE FROM %q AS q`, n.Quad)
	if len(joins) > 0 {
		// DELETE doesn't support arbitrary joins in standard SQL; fall back
		// to a USING clause referencing the same join sources.
		stmt = fmt.Sprintf(`DELETE FROM %q AS q USING %s`, n.Quad, strings.Join(joins, ", "))
	}
	if where != "" {
		stmt += " WHERE " + where
	}

	tag, err := db.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, vgerr.New(vgerr.Internal, op, err)
	}
	return tag.RowsAffected(), nil
}

// CountQuads returns the number of quads matching pattern via COUNT(*),
// letting the planner choose the most selective index (spec §4.7).
func (a *API) CountQuads(ctx context.Context, db Querier, prefix, spaceID string, pattern Pattern) (int64, error) {
	const op = "quadapi.CountQuads"
	n := schema.NewNames(prefix, spaceID)

	where, joins, args, err := buildPredicate(a.codec, spaceID, n, pattern, 1)
	if err != nil {
		return 0, vgerr.New(vgerr.Validation, op, err)
	}

	stmt := fmt.Sprintf(`SELECT COUNT(*) FROM %q AS q`, n.Quad)
	if len(joins) > 0 {
		stmt = fmt.Sprintf(`SELECT COUNT(*) FROM %q AS q, %s`, n.Quad, strings.Join(joins, ", "))
	}
	if where != "" {
		stmt += " WHERE " + where
	}

	var count int64
	rows, err := db.Query(ctx, stmt, args...)
	if err != nil {
		return 0, vgerr.New(vgerr.Internal, op, err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, vgerr.New(vgerr.Internal, op, err)
		}
	}
	return count, rows.Err()
}

// Quads returns a pull iterator over every quad matching pattern,
// yielding the decoded quad alongside its four resolved UUIDs in (s, p,
// o, g) order. The returned iter.Seq2 owns the underlying pgx.Rows and
// closes it once the caller stops ranging (spec §4.7's async-sequence
// contract, expressed as a Go 1.23 range-over-func iterator).
func (a *API) Quads(ctx context.Context, db Querier, prefix, spaceID string, pattern Pattern) (iter.Seq2[*rdf.Quad, []uuid.UUID], error) {
	const op = "quadapi.Quads"
	n := schema.NewNames(prefix, spaceID)

	where, joins, args, err := buildPredicate(a.codec, spaceID, n, pattern, 1)
	if err != nil {
		return nil, vgerr.New(vgerr.Validation, op, err)
	}

	stmt := fmt.Sprintf(`SELECT q.subject_uuid, q.predicate_uuid, q.object_uuid, q.graph_uuid,
		st.lex, st.kind, st.datatype, st.lang,
		pt.lex, pt.kind, pt.datatype, pt.lang,
		ot.lex, ot.kind, ot.datatype, ot.lang,
		gt.lex, gt.kind, gt.datatype, gt.lang
		FROM %q AS q
		JOIN %q AS st ON st.uuid = q.subject_uuid
		JOIN %q AS pt ON pt.uuid = q.predicate_uuid
		JOIN %q AS ot ON ot.uuid = q.object_uuid
		JOIN %q AS gt ON gt.uuid = q.graph_uuid`,
		n.Quad, n.Term, n.Term, n.Term, n.Term)
	if len(joins) > 0 {
		stmt += ", " + strings.Join(joins, ", ")
	}
	if where != "" {
		stmt += " WHERE " + where
	}

	rows, err := db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, vgerr.New(vgerr.Internal, op, err)
	}

	codec := a.codec
	return func(yield func(*rdf.Quad, []uuid.UUID) bool) {
		defer rows.Close()
		for rows.Next() {
			var sID, pID, oID, gID uuid.UUID
			var sRow, pRow, oRow, gRow termcodec.EncodedTerm
			var sDT, sLang, pDT, pLang, oDT, oLang, gDT, gLang *string
			if err := rows.Scan(
				&sID, &pID, &oID, &gID,
				&sRow.Lex, &sRow.Kind, &sDT, &sLang,
				&pRow.Lex, &pRow.Kind, &pDT, &pLang,
				&oRow.Lex, &oRow.Kind, &oDT, &oLang,
				&gRow.Lex, &gRow.Kind, &gDT, &gLang,
			); err != nil {
				return
			}
			fillOptional(&sRow, sDT, sLang)
			fillOptional(&pRow, pDT, pLang)
			fillOptional(&oRow, oDT, oLang)
			fillOptional(&gRow, gDT, gLang)

			subject, err1 := codec.Decode(sRow)
			predicate, err2 := codec.Decode(pRow)
			object, err3 := codec.Decode(oRow)
			graph, err4 := codec.Decode(gRow)
			if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
				return
			}

			q := rdf.NewQuad(subject, predicate, object, graph)
			if !yield(q, []uuid.UUID{sID, pID, oID, gID}) {
				return
			}
		}
	}, nil
}

func fillOptional(row *termcodec.EncodedTerm, dt, lang *string) {
	if dt != nil {
		row.Datatype = *dt
	}
	if lang != nil {
		row.Lang = *lang
	}
}

// validateQuadShape enforces spec §3's positional kind invariants:
// predicate must be a URI, subject must be URI or blank node, graph must
// be a URI.
func validateQuadShape(q *rdf.Quad) error {
	if _, ok := q.Predicate.(*rdf.NamedNode); !ok {
		return fmt.Errorf("%w: predicate must be a URI, got %T", vgerr.ErrInvalidTermPlace, q.Predicate)
	}
	switch q.Subject.(type) {
	case *rdf.NamedNode, *rdf.BlankNode:
	default:
		return fmt.Errorf("%w: subject must be a URI or blank node, got %T", vgerr.ErrInvalidTermPlace, q.Subject)
	}
	if _, ok := q.Graph.(*rdf.NamedNode); !ok {
		return fmt.Errorf("%w: graph must be a URI, got %T", vgerr.ErrInvalidTermPlace, q.Graph)
	}
	return nil
}
