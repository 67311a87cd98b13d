package bulkload

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/gzip"

	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/termcache"
	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
	"github.com/aleksaelezovic/vitalgraph/internal/vgconfig"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// Progress is reported to the caller's callback at cfg.ProgressInterval
// (spec §4.6, §4.12).
type Progress struct {
	QuadsLoaded int64
	TermsLoaded int64
	Elapsed     time.Duration
}

// Report summarizes a completed load.
type Report struct {
	QuadsLoaded int64
	TermsLoaded int64
	LinesSkipped int64
	Elapsed     time.Duration
}

// Loader streams an N-Triples/N-Quads file into a space's term and quad
// tables. It does not toggle indexes itself (spec §4.6: "the loader
// itself does not toggle indexes" — that is internal/importop's job,
// delegating to internal/schema).
type Loader struct {
	codec        *termcodec.Codec
	cache        *termcache.Cache
	cfg          vgconfig.BulkLoad
	defaultGraph rdf.Term
}

// New builds a Loader. cache is stored but not consulted by LoadFile or
// LoadFileInto: every term's UUID is computed by the codec, and terms are
// deduplicated only within the current batch, so a term seen in an
// earlier batch is queued again (the ON CONFLICT merge absorbs the
// repeat). cache may be nil. The default graph context for graph-less statements
// is spec §3's distinguished global graph; override it with
// WithDefaultGraph for a request-scoped import graph (spec §4.12).
func New(cache *termcache.Cache, cfg vgconfig.BulkLoad) *Loader {
	return &Loader{codec: termcodec.New(), cache: cache, cfg: cfg, defaultGraph: rdf.GlobalGraph}
}

// WithDefaultGraph returns a shallow copy of l whose graph-less statements
// resolve to g instead of the global graph (spec §4.12's per-import graph
// URI).
func (l *Loader) WithDefaultGraph(g rdf.Term) *Loader {
	cp := *l
	cp.defaultGraph = g
	return &cp
}

// termRow is one row queued for the term table.
type termRow struct {
	enc termcodec.EncodedTerm
}

// quadRow is one row queued for the quad table.
type quadRow struct {
	s, p, o, g uuid.UUID
}

// LoadFile streams r (transparently gunzipped if it starts with the gzip
// magic bytes) into spaceID's tables within tx, calling onProgress at
// cfg.ProgressInterval. The caller owns tx's lifetime: on any error,
// LoadFile returns early and leaves rollback to the caller (spec §4.6:
// "a partial failure... rolls back the batch").
func (l *Loader) LoadFile(ctx context.Context, tx pgx.Tx, prefix, spaceID string, r io.Reader, onProgress func(Progress)) (Report, error) {
	n := schema.NewNames(prefix, spaceID)
	return l.loadFileInto(ctx, tx, prefix, spaceID, n.Quad, r, onProgress)
}

// LoadFileInto behaves like LoadFile but writes quad rows into quadTable
// instead of the space's live rdf_quad table. internal/importop's
// partition method uses this to stage a load into a fresh, unindexed
// table before attaching it (spec §4.12).
func (l *Loader) LoadFileInto(ctx context.Context, tx pgx.Tx, prefix, spaceID, quadTable string, r io.Reader, onProgress func(Progress)) (Report, error) {
	return l.loadFileInto(ctx, tx, prefix, spaceID, quadTable, r, onProgress)
}

func (l *Loader) loadFileInto(ctx context.Context, tx pgx.Tx, prefix, spaceID, quadTable string, r io.Reader, onProgress func(Progress)) (Report, error) {
	const op = "bulkload.LoadFile"
	start := time.Now()

	reader, err := MaybeGunzip(r)
	if err != nil {
		return Report{}, vgerr.New(vgerr.Validation, op, err)
	}

	n := schema.NewNames(prefix, spaceID)
	parser := NewLineParser()
	if l.defaultGraph != nil {
		parser.DefaultGraph = l.defaultGraph
	}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	seen := make(map[uuid.UUID]struct{}, l.cfg.BatchSize)
	var termBatch []termRow
	var quadBatch []quadRow

	var rep Report
	lastProgress := start

	flush := func() error {
		if len(termBatch) > 0 {
			if err := l.flushTerms(ctx, tx, n.Term, termBatch); err != nil {
				return err
			}
			rep.TermsLoaded += int64(len(termBatch))
			termBatch = termBatch[:0]
		}
		if len(quadBatch) > 0 {
			if err := l.flushQuads(ctx, tx, quadTable, quadBatch); err != nil {
				return err
			}
			rep.QuadsLoaded += int64(len(quadBatch))
			quadBatch = quadBatch[:0]
		}
		return nil
	}

	resolve := func(term rdf.Term) (uuid.UUID, error) {
		enc, err := l.codec.Encode(spaceID, term)
		if err != nil {
			return uuid.UUID{}, err
		}
		if _, dup := seen[enc.UUID]; !dup {
			seen[enc.UUID] = struct{}{}
			termBatch = append(termBatch, termRow{enc: enc})
		}
		return enc.UUID, nil
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		quad, ok, perr := parser.ParseLine(line)
		if perr != nil {
			return rep, vgerr.Errorf(vgerr.Validation, op, "line %d %q: %v", lineNo, line, perr)
		}
		if !ok {
			rep.LinesSkipped++
			continue
		}

		sID, err := resolve(quad.Subject)
		if err != nil {
			return rep, vgerr.New(vgerr.Validation, op, err)
		}
		pID, err := resolve(quad.Predicate)
		if err != nil {
			return rep, vgerr.New(vgerr.Validation, op, err)
		}
		oID, err := resolve(quad.Object)
		if err != nil {
			return rep, vgerr.New(vgerr.Validation, op, err)
		}
		gID, err := resolve(quad.Graph)
		if err != nil {
			return rep, vgerr.New(vgerr.Validation, op, err)
		}
		quadBatch = append(quadBatch, quadRow{s: sID, p: pID, o: oID, g: gID})

		if len(quadBatch) >= l.cfg.BatchSize {
			if err := flush(); err != nil {
				return rep, err
			}
			seen = make(map[uuid.UUID]struct{}, l.cfg.BatchSize)
		}

		if onProgress != nil && time.Since(lastProgress) >= l.cfg.ProgressInterval {
			onProgress(Progress{QuadsLoaded: rep.QuadsLoaded, TermsLoaded: rep.TermsLoaded, Elapsed: time.Since(start)})
			lastProgress = time.Now()
		}
	}
	if err := scanner.Err(); err != nil {
		return rep, vgerr.New(vgerr.Internal, op, err)
	}
	if err := flush(); err != nil {
		return rep, err
	}

	rep.Elapsed = time.Since(start)
	if onProgress != nil {
		onProgress(Progress{QuadsLoaded: rep.QuadsLoaded, TermsLoaded: rep.TermsLoaded, Elapsed: rep.Elapsed})
	}
	return rep, nil
}

// flushTerms bulk-loads rows via COPY into a temp table, then merges them
// into the real term table with ON CONFLICT DO NOTHING, the same
// stage-then-merge shape as the retrieved cayleygraph/cayley
// runChanTxPostgres (CREATE TEMP TABLE ... LIKE ... INCLUDING ALL, COPY
// in, INSERT ... SELECT ... ON CONFLICT), adapted from database/sql+pq to
// pgx.Tx.CopyFrom.
func (l *Loader) flushTerms(ctx context.Context, tx pgx.Tx, table string, rows []termRow) error {
	tmp := "tmp_load_term"
	if _, err := tx.Exec(ctx, fmt.Sprintf(`CREATE TEMP TABLE IF NOT EXISTS %s (LIKE %q INCLUDING ALL) ON COMMIT DROP`, tmp, table)); err != nil {
		return vgerr.New(vgerr.Internal, "bulkload.flushTerms", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, tmp)); err != nil {
		return vgerr.New(vgerr.Internal, "bulkload.flushTerms", err)
	}

	source := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		var datatype, lang any
		if r.enc.Datatype != "" {
			datatype = r.enc.Datatype
		}
		if r.enc.Lang != "" {
			lang = r.enc.Lang
		}
		return []any{r.enc.UUID, r.enc.Lex, int16(r.enc.Kind), datatype, lang}, nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tmp}, []string{"uuid", "lex", "kind", "datatype", "lang"}, source); err != nil {
		return vgerr.New(vgerr.Internal, "bulkload.flushTerms", err)
	}

	mergeSQL := fmt.Sprintf(`INSERT INTO %q SELECT * FROM %s ON CONFLICT (uuid) DO NOTHING`, table, tmp)
	if _, err := tx.Exec(ctx, mergeSQL); err != nil {
		return vgerr.New(vgerr.Integrity, "bulkload.flushTerms", err)
	}
	return nil
}

// flushQuads mirrors flushTerms for the quad table, guarding against
// duplicate (s,p,o,g) tuples the same way.
func (l *Loader) flushQuads(ctx context.Context, tx pgx.Tx, table string, rows []quadRow) error {
	tmp := "tmp_load_quad"
	if _, err := tx.Exec(ctx, fmt.Sprintf(`CREATE TEMP TABLE IF NOT EXISTS %s (LIKE %q INCLUDING ALL) ON COMMIT DROP`, tmp, table)); err != nil {
		return vgerr.New(vgerr.Internal, "bulkload.flushQuads", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, tmp)); err != nil {
		return vgerr.New(vgerr.Internal, "bulkload.flushQuads", err)
	}

	source := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{r.s, r.p, r.o, r.g, time.Now()}, nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tmp}, []string{"subject_uuid", "predicate_uuid", "object_uuid", "graph_uuid", "added_at"}, source); err != nil {
		return vgerr.New(vgerr.Internal, "bulkload.flushQuads", err)
	}

	mergeSQL := fmt.Sprintf(`INSERT INTO %q SELECT * FROM %s ON CONFLICT (subject_uuid, predicate_uuid, object_uuid, graph_uuid) DO NOTHING`, table, tmp)
	if _, err := tx.Exec(ctx, mergeSQL); err != nil {
		return vgerr.New(vgerr.Integrity, "bulkload.flushQuads", err)
	}
	return nil
}

// MaybeGunzip sniffs the gzip magic bytes (0x1f 0x8b) and wraps r in a
// klauspost/compress/gzip reader when present, otherwise returns r
// unwrapped. klauspost's gzip is already the teacher's own dependency
// (its decompression path is faster than compress/gzip for large
// exports, which is exactly the bulk-load use case). internal/importop
// reuses this for validate-first streaming.
func MaybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return gz, nil
	}
	return br, nil
}
