package quadapi

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// buildPredicate lowers pattern into a WHERE fragment (placeholders
// starting at startIdx), any extra FROM-list join sources a regex
// position needs, and the bind arguments for both, in that order. A
// concrete position becomes an equality test against its resolved UUID;
// a regex position becomes a join to the term table testing the joined
// lexical form with PostgreSQL's `~` operator; a wildcard position
// contributes nothing.
func buildPredicate(codec *termcodec.Codec, spaceID string, n schema.Names, p Pattern, startIdx int) (where string, joins []string, args []any, err error) {
	positions := []struct {
		col   string
		pos   PatternPos
		alias string
	}{
		{"subject_uuid", p.Subject, "s_re"},
		{"predicate_uuid", p.Predicate, "p_re"},
		{"object_uuid", p.Object, "o_re"},
		{"graph_uuid", p.Graph, "g_re"},
	}

	var conds []string
	idx := startIdx
	for _, pp := range positions {
		if isWildcard(pp.pos) {
			continue
		}
		if re, ok := isRegex(pp.pos); ok {
			joins = append(joins, fmt.Sprintf(`%q AS %s`, n.Term, pp.alias))
			conds = append(conds, fmt.Sprintf(`%s.uuid = q.%s AND %s.lex ~ $%d`, pp.alias, pp.col, pp.alias, idx))
			args = append(args, re.String())
			idx++
			continue
		}
		term, ok := pp.pos.(rdf.Term)
		if !ok {
			return "", nil, nil, fmt.Errorf("pattern position %s: %T is neither a term, a regexp, nor nil", pp.col, pp.pos)
		}
		enc, encErr := codec.Encode(spaceID, term)
		if encErr != nil {
			return "", nil, nil, fmt.Errorf("pattern position %s: %w", pp.col, encErr)
		}
		conds = append(conds, fmt.Sprintf(`q.%s = $%d`, pp.col, idx))
		args = append(args, enc.UUID)
		idx++
	}

	return strings.Join(conds, " AND "), joins, args, nil
}
