// Package quadapi implements C7, the quad-level read/write surface atop
// a space's tables. Pattern generalizes the teacher's
// store.Pattern/store.Variable (pkg/store/query.go: "Subject/Predicate/
// Object/Graph any — rdf.Term or Variable") from a two-state pattern
// position (bound term or SPARQL variable) to the three-state position
// spec.md §4.7 requires: concrete term, wildcard, or a lexical regex.
package quadapi

import "regexp"

// PatternPos is one position of a Pattern: nil (wildcard), an rdf.Term
// (concrete match), or a *regexp.Regexp (applied to the position's
// lexical form via a join to the term table).
type PatternPos any

// Pattern is a quad pattern where any position may be unbound. Graph
// being nil means "any graph", matching spec.md §4.7's "quads(space,
// pattern)" semantics.
type Pattern struct {
	Subject   PatternPos
	Predicate PatternPos
	Object    PatternPos
	Graph     PatternPos
}

// isRegex reports whether pos is a lexical regex constraint.
func isRegex(pos PatternPos) (*regexp.Regexp, bool) {
	re, ok := pos.(*regexp.Regexp)
	return re, ok
}

// isWildcard reports whether pos leaves the position unconstrained.
func isWildcard(pos PatternPos) bool {
	return pos == nil
}
