package schema

import "fmt"

// Options controls how CreateSpaceTables materializes the quad table
// (spec §4.3: "options include unlogged: bool... concurrent_indexes:
// bool").
type Options struct {
	Unlogged         bool
	ConcurrentIndex  bool
}

// createTermTableSQL is the per-space term table: one row per distinct
// term, UUID as primary key, lex/kind/datatype/lang mirroring
// termcodec.EncodedTerm (spec §3, §4.1).
func createTermTableSQL(n Names) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	uuid     UUID NOT NULL,
	lex      TEXT NOT NULL,
	kind     SMALLINT NOT NULL,
	datatype TEXT,
	lang     TEXT,
	CONSTRAINT %s PRIMARY KEY (uuid)
)`, quoteIdent(n.Term), quoteIdent(n.Term+"_pk"))
}

// createQuadTableSQL is the per-space quad table: four UUID term
// references plus an insertion timestamp (spec §3's Quad type). unlogged
// trades crash safety for bulk-load throughput (spec §4.6).
func createQuadTableSQL(n Names, unlogged bool) string {
	kw := "TABLE"
	if unlogged {
		kw = "UNLOGGED TABLE"
	}
	return fmt.Sprintf(`CREATE %s IF NOT EXISTS %s (
	subject_uuid   UUID NOT NULL REFERENCES %s(uuid),
	predicate_uuid UUID NOT NULL REFERENCES %s(uuid),
	object_uuid    UUID NOT NULL REFERENCES %s(uuid),
	graph_uuid     UUID NOT NULL REFERENCES %s(uuid),
	added_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT %s UNIQUE (subject_uuid, predicate_uuid, object_uuid, graph_uuid)
)`, kw, quoteIdent(n.Quad), quoteIdent(n.Term), quoteIdent(n.Term), quoteIdent(n.Term), quoteIdent(n.Term),
		quoteIdent(n.Quad+"_spog_uq"))
}

// createNamespaceTableSQL records prefix->URI bindings used by
// SPARQL-text round-tripping and admin tooling; not read by the
// translator itself (spec §4.9 "Persisted state layout").
func createNamespaceTableSQL(n Names) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	prefix TEXT NOT NULL,
	uri    TEXT NOT NULL,
	CONSTRAINT %s PRIMARY KEY (prefix)
)`, quoteIdent(n.Ns), quoteIdent(n.Ns+"_pk"))
}

// indexDDL returns the authoritative CREATE INDEX statements for n, in
// the order IndexNames() reports them (spec §4.3's index set). typeIRIUUID
// is the encoded UUID of rdf:type, baked into the partial type-check
// index's predicate.
func indexDDL(n Names, concurrent bool, typeIRIUUID string) []string {
	c := ""
	if concurrent {
		c = "CONCURRENTLY "
	}
	return []string{
		fmt.Sprintf(`CREATE UNIQUE INDEX %s%s ON %s (uuid)`, c, quoteIdent(n.IdxTermUUID), quoteIdent(n.Term)),
		fmt.Sprintf(`CREATE INDEX %s%s ON %s (lower(lex) text_pattern_ops)`, c, quoteIdent(n.IdxTermLex), quoteIdent(n.Term)),
		fmt.Sprintf(`CREATE INDEX %s%s ON %s (subject_uuid)`, c, quoteIdent(n.IdxQuadS), quoteIdent(n.Quad)),
		fmt.Sprintf(`CREATE INDEX %s%s ON %s (predicate_uuid)`, c, quoteIdent(n.IdxQuadP), quoteIdent(n.Quad)),
		fmt.Sprintf(`CREATE INDEX %s%s ON %s (object_uuid)`, c, quoteIdent(n.IdxQuadO), quoteIdent(n.Quad)),
		fmt.Sprintf(`CREATE INDEX %s%s ON %s (graph_uuid)`, c, quoteIdent(n.IdxQuadG), quoteIdent(n.Quad)),
		fmt.Sprintf(`CREATE INDEX %s%s ON %s (predicate_uuid, object_uuid)`, c, quoteIdent(n.IdxQuadPO), quoteIdent(n.Quad)),
		fmt.Sprintf(`CREATE INDEX %s%s ON %s (subject_uuid, predicate_uuid)`, c, quoteIdent(n.IdxQuadSP), quoteIdent(n.Quad)),
		fmt.Sprintf(`CREATE INDEX %s%s ON %s (graph_uuid, subject_uuid, predicate_uuid, object_uuid)`, c, quoteIdent(n.IdxQuadGSPO), quoteIdent(n.Quad)),
		fmt.Sprintf(`CREATE INDEX %s%s ON %s (subject_uuid, object_uuid) WHERE predicate_uuid = '%s'`, c, quoteIdent(n.IdxQuadTypeChk), quoteIdent(n.Quad), typeIRIUUID),
	}
}

// dropIndexSQL drops one index by name, tolerant of it already being
// absent (spec §4.3's drop_indexes_for_bulk_load is idempotent).
func dropIndexSQL(name string) string {
	return fmt.Sprintf(`DROP INDEX IF EXISTS %s`, quoteIdent(name))
}

func dropTableSQL(name string) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, quoteIdent(name))
}

// createLoadPartitionTableSQL builds a fresh, unindexed staging table with
// the same columns and term-table foreign keys as the space's quad table,
// for the zero-copy partition import path (spec §4.12's "load into a
// fresh, unindexed partition, then attach it... in O(1)"). It deliberately
// does not go through "LIKE quadTable INCLUDING INDEXES" because that
// would copy the quad table's full secondary-index set, defeating the
// point of an unindexed staging table.
func createLoadPartitionTableSQL(n Names, partitionTable string) string {
	return fmt.Sprintf(`CREATE UNLOGGED TABLE %s (
	subject_uuid   UUID NOT NULL REFERENCES %s(uuid),
	predicate_uuid UUID NOT NULL REFERENCES %s(uuid),
	object_uuid    UUID NOT NULL REFERENCES %s(uuid),
	graph_uuid     UUID NOT NULL REFERENCES %s(uuid),
	added_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT %s UNIQUE (subject_uuid, predicate_uuid, object_uuid, graph_uuid)
)`, quoteIdent(partitionTable), quoteIdent(n.Term), quoteIdent(n.Term), quoteIdent(n.Term), quoteIdent(n.Term),
		quoteIdent(partitionTable+"_spog_uq"))
}

// attachPartitionSQL attaches partitionTable to the space's quad table as
// the RANGE partition covering [from, to) on added_at. Only valid when the
// quad table was itself declared PARTITION BY RANGE (added_at) ahead of
// time — schema.Manager.IsPartitioned gates callers on this.
func attachPartitionSQL(quadTable, partitionTable string, from, to string) string {
	return fmt.Sprintf(`ALTER TABLE %s ATTACH PARTITION %s FOR VALUES FROM ('%s') TO ('%s')`,
		quoteIdent(quadTable), quoteIdent(partitionTable), from, to)
}

func quoteIdent(name string) string {
	if len(name) > 0 && name[0] == '"' {
		return name
	}
	return `"` + name + `"`
}

// EncodeForURIFunc is the name of the installation-wide SQL helper that
// lowers SPARQL's ENCODE_FOR_URI builtin (spec §4.9); it lives at the
// install level rather than per-space because percent-encoding has no
// space-scoped state.
const EncodeForURIFunc = "vitalgraph_encode_for_uri"

// installLevelDDL creates the four installation-wide admin tables (spec
// §4.9) plus the pgcrypto extension and helper functions the translator's
// hash and URI-encoding builtins rely on. These are created once per
// installation, never per space.
func installLevelDDL() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s(in_text TEXT) RETURNS TEXT AS $$
	SELECT string_agg(
		CASE WHEN chr IN ('-', '_', '.', '~') OR chr ~ '[A-Za-z0-9]' THEN chr
		ELSE upper('%%' || to_hex(get_byte(convert_to(chr, 'UTF8'), 0)))
		END, '')
	FROM regexp_split_to_table(in_text, '') AS chr
$$ LANGUAGE sql IMMUTABLE`, EncodeForURIFunc),
		`CREATE TABLE IF NOT EXISTS install (
	id          UUID NOT NULL,
	table_prefix TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT install_pk PRIMARY KEY (id)
)`,
		`CREATE TABLE IF NOT EXISTS space (
	id          TEXT NOT NULL,
	install_id  UUID NOT NULL REFERENCES install(id),
	name        TEXT NOT NULL,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT space_pk PRIMARY KEY (id)
)`,
		`CREATE TABLE IF NOT EXISTS graph (
	id          BIGSERIAL NOT NULL,
	space_id    TEXT NOT NULL REFERENCES space(id),
	graph_uuid  UUID NOT NULL,
	CONSTRAINT graph_pk PRIMARY KEY (id),
	CONSTRAINT graph_space_graph_uq UNIQUE (space_id, graph_uuid)
)`,
		`CREATE TABLE IF NOT EXISTS "user" (
	id            BIGSERIAL NOT NULL,
	install_id    UUID NOT NULL REFERENCES install(id),
	username      TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT user_pk PRIMARY KEY (id),
	CONSTRAINT user_username_uq UNIQUE (username)
)`,
	}
}
