// Package schema implements C3: derivation of per-space table/index names
// and the DDL that creates, drops, and re-indexes them. The package mirrors
// the Flavor pattern in the retrieved cayleygraph/cayley
// graph/sql/postgres.go: constant DDL text plus a generated index list kept
// as package-level data so the manager can drop/recreate indexes by name
// without consulting the catalog, and the idempotent "create if not
// exists, check existing config" style of paraglidehq/usid's Migrate.
package schema

import (
	"fmt"
	"regexp"

	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
)

// MaxSpaceIDLength bounds space identifiers so every derived table/index
// name fits PostgreSQL's 63-byte identifier limit (spec §3, §4.3).
const MaxSpaceIDLength = 24

var spaceIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateSpaceID enforces the identifier-length and charset constraint
// from spec §3 ("short identifier... length-constrained so derived table
// names fit identifier limits").
func ValidateSpaceID(spaceID string) error {
	if len(spaceID) == 0 || len(spaceID) > MaxSpaceIDLength {
		return vgerr.New(vgerr.Validation, "schema.ValidateSpaceID", vgerr.ErrIdentifierTooLong)
	}
	if !spaceIDPattern.MatchString(spaceID) {
		return vgerr.Errorf(vgerr.Validation, "schema.ValidateSpaceID",
			"space id %q must match %s", spaceID, spaceIDPattern.String())
	}
	return nil
}

// Names is the full set of identifiers derived for one space, computed
// once and reused by every DDL statement (spec §4.3:
// "{install_prefix}__{space_id}__{logical_name}").
type Names struct {
	Prefix  string
	SpaceID string

	Term    string
	Quad    string
	Ns      string

	IdxTermUUID    string
	IdxTermLex     string
	IdxQuadS       string
	IdxQuadP       string
	IdxQuadO       string
	IdxQuadG       string
	IdxQuadPO      string
	IdxQuadSP      string
	IdxQuadGSPO    string
	IdxQuadTypeChk string
}

// NewNames derives every table and index name for (prefix, spaceID).
func NewNames(prefix, spaceID string) Names {
	base := fmt.Sprintf("%s__%s__", prefix, spaceID)
	n := Names{
		Prefix:  prefix,
		SpaceID: spaceID,
		Term:    base + "term",
		Quad:    base + "rdf_quad",
		Ns:      base + "namespace",
	}
	n.IdxTermUUID = n.Term + "_uuid_uidx"
	n.IdxTermLex = n.Term + "_lex_idx"
	n.IdxQuadS = n.Quad + "_s_idx"
	n.IdxQuadP = n.Quad + "_p_idx"
	n.IdxQuadO = n.Quad + "_o_idx"
	n.IdxQuadG = n.Quad + "_g_idx"
	n.IdxQuadPO = n.Quad + "_po_idx"
	n.IdxQuadSP = n.Quad + "_sp_idx"
	n.IdxQuadGSPO = n.Quad + "_gspo_idx"
	n.IdxQuadTypeChk = n.Quad + "_typechk_idx"
	return n
}

// IndexNames lists every index name this space owns, in the canonical
// order drop/recreate cycles use (spec §4.3: "the schema manager owns the
// authoritative list of index names").
func (n Names) IndexNames() []string {
	return []string{
		n.IdxTermUUID,
		n.IdxTermLex,
		n.IdxQuadS,
		n.IdxQuadP,
		n.IdxQuadO,
		n.IdxQuadG,
		n.IdxQuadPO,
		n.IdxQuadSP,
		n.IdxQuadGSPO,
		n.IdxQuadTypeChk,
	}
}

// Installation-level table names, fixed for the life of an installation
// (spec §4.9 "Persisted state layout").
const (
	TableInstall = "install"
	TableSpace   = "space"
	TableGraph   = "graph"
	TableUser    = `"user"`
)
