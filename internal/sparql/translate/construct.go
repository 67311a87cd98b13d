package translate

import (
	"context"

	"github.com/aleksaelezovic/vitalgraph/internal/quadapi"
	"github.com/aleksaelezovic/vitalgraph/internal/sparql/algebra"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// MaterializeConstruct runs construct's WHERE clause against db and
// instantiates its template for every solution row, the way
// executeModify does for DELETE/INSERT ... WHERE (spec §4.9: "for each
// row instantiate the template into RDF triples; deduplicate the
// produced triples"). Unlike Compile, this executes the query itself
// rather than returning a standalone Plan, since the template must be
// re-applied per row before the result set exists.
func MaterializeConstruct(ctx context.Context, codec *termcodec.Codec, db quadapi.Querier, prefix, spaceID string, construct *algebra.Construct) ([]*rdf.Triple, error) {
	const op = "translate.MaterializeConstruct"

	c := newCtx(codec, prefix, spaceID)
	rel, err := compile(c, Optimize(construct.Input))
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, rel.SQL, c.args...)
	if err != nil {
		return nil, vgerr.New(vgerr.Internal, op, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var out []*rdf.Triple
	for rows.Next() {
		binding, err := scanBinding(rows, rel.Vars, codec)
		if err != nil {
			return nil, err
		}
		quads, ok := instantiateTemplate(construct.Template, binding, nil)
		if !ok {
			continue
		}
		for _, q := range quads {
			key := q.Subject.String() + "\x00" + q.Predicate.String() + "\x00" + q.Object.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, rdf.NewTriple(q.Subject, q.Predicate, q.Object))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, vgerr.New(vgerr.Internal, op, err)
	}
	return out, nil
}
