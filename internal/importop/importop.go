// Package importop implements C12, the end-to-end file import
// orchestration spec §4.12 describes: validate-first, then
// partition/traditional/auto loading with index drop/rebuild, reporting
// progress and a final summary. It is glue over internal/bulkload and
// internal/schema, grounded on the Python original's
// vitalgraph/ops/graph_import_op.py (GraphImportOp._determine_import_method,
// _perform_partition_import, _perform_traditional_import) — a feature the
// distilled spec kept in prose but the teacher repo has no equivalent of,
// so the orchestration shape here is adapted from the original rather
// than the teacher.
package importop

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aleksaelezovic/vitalgraph/internal/bulkload"
	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/termcache"
	"github.com/aleksaelezovic/vitalgraph/internal/txn"
	"github.com/aleksaelezovic/vitalgraph/internal/vgconfig"
	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
	"github.com/aleksaelezovic/vitalgraph/pkg/rdf"
)

// Method selects how Importer.Run moves data into the live quad table
// (spec §4.12).
type Method string

const (
	MethodPartition   Method = "partition"
	MethodTraditional Method = "traditional"
	MethodAuto        Method = "auto"
)

// Format names the wire format of the input file (spec §6).
type Format string

const (
	FormatNTriples Format = "nt"
	FormatNQuads   Format = "nq"
)

// Request describes one import call (spec §4.12's inputs).
type Request struct {
	SpaceID       string
	GraphURI      string // default graph if empty (spec §3: the distinguished global graph)
	FilePath      string
	Format        Format // "" auto-detects from the file extension
	BatchSize     int    // 0 uses the configured default
	ValidateFirst bool
	Method        Method
}

// Progress is re-exported from internal/bulkload so callers configuring
// onProgress don't need to import both packages.
type Progress = bulkload.Progress

// Report is the final summary returned after a successful Run (spec
// §4.12: "file size, detected format, triple count, terms created,
// elapsed, warnings").
type Report struct {
	FilePath       string
	FileSizeBytes  int64
	FileSizeHuman  string
	FormatDetected Format
	MethodUsed     Method
	TripleCount    int64
	TermsCreated   int64
	Elapsed        time.Duration
	Warnings       []string
	Validation     *ValidationReport
}

// Importer implements C12 over a schema.Manager (index toggle, partition
// probing), a txn.Manager (the load's own transaction), and a shared term
// cache (spec §4.6's UUID resolution).
type Importer struct {
	prefix string
	schema *schema.Manager
	txns   *txn.Manager
	cache  *termcache.Cache
	cfg    vgconfig.BulkLoad
}

// NewImporter builds an Importer. schemaMgr must be bound to the admin
// pool (so partition probing and index DDL run outside the load's own
// Txn); txnMgr drives the dedicated-write pool the load itself uses.
func NewImporter(prefix string, schemaMgr *schema.Manager, txnMgr *txn.Manager, cache *termcache.Cache, cfg vgconfig.BulkLoad) *Importer {
	return &Importer{prefix: prefix, schema: schemaMgr, txns: txnMgr, cache: cache, cfg: cfg}
}

// Run orchestrates validate-first (optional) -> method selection -> load
// -> index rebuild, per spec §4.12.
func (im *Importer) Run(ctx context.Context, req Request, onProgress func(Progress)) (*Report, error) {
	const op = "importop.Run"

	rep := &Report{FilePath: req.FilePath}

	if req.ValidateFirst {
		v, err := Validate(req.FilePath)
		if err != nil {
			return nil, err
		}
		rep.Validation = v
		if !v.IsValid {
			return rep, vgerr.Errorf(vgerr.Validation, op, "validation failed: %s", v.ErrorMessage)
		}
		rep.Warnings = append(rep.Warnings, v.Warnings...)
		rep.FormatDetected = v.FormatDetected
	}

	info, err := os.Stat(req.FilePath)
	if err != nil {
		return rep, vgerr.New(vgerr.Validation, op, err)
	}
	rep.FileSizeBytes = info.Size()
	rep.FileSizeHuman = humanize.Bytes(uint64(info.Size()))

	if rep.FormatDetected == "" {
		rep.FormatDetected = req.Format
	}
	if rep.FormatDetected == "" {
		rep.FormatDetected = detectFormat(req.FilePath)
	}

	method, err := im.resolveMethod(ctx, req.Method, req.SpaceID)
	if err != nil {
		return rep, err
	}
	rep.MethodUsed = method

	cfg := im.cfg
	if req.BatchSize > 0 {
		cfg.BatchSize = req.BatchSize
	}
	loader := bulkload.New(im.cache, cfg).WithDefaultGraph(rdf.NewNamedNode(req.DefaultGraphURI()))

	var loadRep bulkload.Report
	switch method {
	case MethodPartition:
		loadRep, err = im.runPartitionImport(ctx, req, loader, onProgress)
	default:
		loadRep, err = im.runTraditionalImport(ctx, req, loader, onProgress)
	}
	if err != nil {
		return rep, err
	}

	rep.TripleCount = loadRep.QuadsLoaded
	rep.TermsCreated = loadRep.TermsLoaded
	rep.Elapsed = loadRep.Elapsed
	if loadRep.LinesSkipped > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("skipped %d blank/comment/directive lines", loadRep.LinesSkipped))
	}
	return rep, nil
}

// resolveMethod implements spec §4.12's AUTO probe: partition when the
// space's quad table is already declared as a partitioned table,
// traditional otherwise. An explicit PARTITION request that turns out to
// be unsupported falls back to TRADITIONAL rather than failing, matching
// "When unsupported, fall back to traditional."
func (im *Importer) resolveMethod(ctx context.Context, requested Method, spaceID string) (Method, error) {
	switch requested {
	case MethodTraditional, "":
		return MethodTraditional, nil
	case MethodPartition:
		ok, err := im.schema.IsPartitioned(ctx, im.prefix, spaceID)
		if err != nil {
			return "", err
		}
		if ok {
			return MethodPartition, nil
		}
		return MethodTraditional, nil
	case MethodAuto:
		ok, err := im.schema.IsPartitioned(ctx, im.prefix, spaceID)
		if err != nil {
			return "", err
		}
		if ok {
			return MethodPartition, nil
		}
		return MethodTraditional, nil
	default:
		return "", vgerr.Errorf(vgerr.Configuration, "importop.resolveMethod", "unknown import method %q", requested)
	}
}

// runTraditionalImport is spec §4.12's "traditional" path: drop indexes
// through the schema manager (on its own Querier, before the load's Txn
// opens, so the drop is not rolled back if the load fails), run the
// loader within one Txn, commit, then recreate indexes (optionally
// concurrently, outside the Txn since CREATE INDEX CONCURRENTLY cannot
// run inside one).
func (im *Importer) runTraditionalImport(ctx context.Context, req Request, loader *bulkload.Loader, onProgress func(Progress)) (bulkload.Report, error) {
	const op = "importop.runTraditionalImport"

	if err := im.schema.DropIndexesForBulkLoad(ctx, im.prefix, req.SpaceID); err != nil {
		return bulkload.Report{}, err
	}

	var rep bulkload.Report
	err := im.txns.WithTxn(ctx, func(t *txn.Txn) error {
		f, ferr := os.Open(req.FilePath)
		if ferr != nil {
			return vgerr.New(vgerr.Validation, op, ferr)
		}
		defer f.Close()

		r, lerr := loader.LoadFile(ctx, t.Tx(), im.prefix, req.SpaceID, f, onProgress)
		rep = r
		t.QuadsAdded += r.QuadsLoaded
		t.TermsAdded += r.TermsLoaded
		t.MarkCacheDirty(req.SpaceID)
		return lerr
	})
	if err != nil {
		return rep, err
	}

	if err := im.schema.RecreateIndexesAfterBulkLoad(ctx, im.prefix, req.SpaceID, im.cfg.ConcurrentIndex); err != nil {
		return rep, err
	}
	return rep, nil
}

// runPartitionImport is spec §4.12's zero-copy path: load into a fresh,
// unindexed staging table, then ALTER TABLE ... ATTACH PARTITION it onto
// the live quad table in O(1) — no bulk rewrite, no index drop/rebuild on
// the already-indexed live partitions. Falls back to runTraditionalImport
// if the space turns out not to be partitioned (resolveMethod should have
// already screened this, but Run always calls through here defensively).
func (im *Importer) runPartitionImport(ctx context.Context, req Request, loader *bulkload.Loader, onProgress func(Progress)) (bulkload.Report, error) {
	const op = "importop.runPartitionImport"

	supported, err := im.schema.IsPartitioned(ctx, im.prefix, req.SpaceID)
	if err != nil {
		return bulkload.Report{}, err
	}
	if !supported {
		return im.runTraditionalImport(ctx, req, loader, onProgress)
	}

	from := time.Now()
	partitionTable := fmt.Sprintf("%s__%s__rdf_quad_p_%d", im.prefix, req.SpaceID, from.UnixNano())

	if err := im.schema.CreateLoadPartitionTable(ctx, im.prefix, req.SpaceID, partitionTable); err != nil {
		return bulkload.Report{}, err
	}

	var rep bulkload.Report
	err = im.txns.WithTxn(ctx, func(t *txn.Txn) error {
		f, ferr := os.Open(req.FilePath)
		if ferr != nil {
			return vgerr.New(vgerr.Validation, op, ferr)
		}
		defer f.Close()

		r, lerr := loader.LoadFileInto(ctx, t.Tx(), im.prefix, req.SpaceID, partitionTable, f, onProgress)
		rep = r
		t.QuadsAdded += r.QuadsLoaded
		t.TermsAdded += r.TermsLoaded
		t.MarkCacheDirty(req.SpaceID)
		return lerr
	})
	if err != nil {
		return rep, err
	}

	to := time.Now()
	if err := im.schema.AttachQuadPartition(ctx, im.prefix, req.SpaceID, partitionTable, from, to); err != nil {
		return rep, vgerr.New(vgerr.Schema, op, err)
	}
	return rep, nil
}

// detectFormat infers the wire format from the file extension, tolerating
// a trailing .gz (spec §6: "detected by a .gz extension or magic bytes").
func detectFormat(path string) Format {
	lower := strings.ToLower(path)
	lower = strings.TrimSuffix(lower, ".gz")
	if strings.HasSuffix(lower, ".nq") {
		return FormatNQuads
	}
	return FormatNTriples
}

// DefaultGraphURI returns req's graph context, falling back to spec §3's
// distinguished global graph when the request left it blank.
func (req Request) DefaultGraphURI() string {
	if req.GraphURI != "" {
		return req.GraphURI
	}
	return rdf.GlobalGraph.IRI
}
