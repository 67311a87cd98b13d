// Command vitalgraphd is a thin admin CLI over the VitalGraph engine,
// modeled on the teacher's cmd/trigo dispatch-by-os.Args[1] style. It
// wires the connection pool set, schema manager, space manager, and
// import orchestrator together for manual exercising of the admin
// surface (spec §6); it is not a server and carries no HTTP/REPL layer.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aleksaelezovic/vitalgraph/internal/dbpool"
	"github.com/aleksaelezovic/vitalgraph/internal/importop"
	"github.com/aleksaelezovic/vitalgraph/internal/notify"
	"github.com/aleksaelezovic/vitalgraph/internal/schema"
	"github.com/aleksaelezovic/vitalgraph/internal/space"
	"github.com/aleksaelezovic/vitalgraph/internal/termcache"
	"github.com/aleksaelezovic/vitalgraph/internal/txn"
	"github.com/aleksaelezovic/vitalgraph/internal/vgconfig"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	dsn := os.Getenv("VITALGRAPH_DSN")
	if dsn == "" {
		dsn = "postgres://localhost:5432/vitalgraph"
	}
	cfg := vgconfig.Default(dsn)

	ctx := context.Background()
	pools, err := dbpool.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pools.Close()

	schemaMgr := schema.NewManager(pools.Pool(dbpool.Admin))
	if err := schemaMgr.InitInstallation(ctx); err != nil {
		log.Fatalf("init installation: %v", err)
	}
	installID, err := schemaMgr.EnsureInstall(ctx, cfg.Schema.TablePrefix)
	if err != nil {
		log.Fatalf("ensure install row: %v", err)
	}

	notifier := newNotifier(cfg, pools)
	spaceMgr := space.NewManager(pools.Pool(dbpool.Admin), installID.String(), cfg.Schema.TablePrefix, notifier)

	switch cmd := os.Args[1]; cmd {
	case "init":
		fmt.Printf("installation ready (prefix=%q, install_id=%s)\n", cfg.Schema.TablePrefix, installID)
	case "create-space":
		runCreateSpace(ctx, spaceMgr, cfg, os.Args[2:])
	case "delete-space":
		runDeleteSpace(ctx, spaceMgr, os.Args[2:])
	case "list-spaces":
		runListSpaces(ctx, spaceMgr)
	case "list-tables":
		runListTables(ctx, schemaMgr, cfg)
	case "rebuild-indexes":
		runRebuildIndexes(ctx, schemaMgr, cfg, os.Args[2:])
	case "import":
		runImport(ctx, schemaMgr, pools, cfg, os.Args[2:])
	default:
		fmt.Printf("unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: vitalgraphd <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  init                                   - create installation-wide tables")
	fmt.Println("  create-space <id> <name> [description] - register a new space")
	fmt.Println("  delete-space <id>                      - drop a space and its tables")
	fmt.Println("  list-spaces                            - list registered spaces")
	fmt.Println("  list-tables                            - list every table this prefix owns")
	fmt.Println("  rebuild-indexes <space-id>              - drop and recreate a space's indexes")
	fmt.Println("  import <space-id> <file> [graph-uri]    - bulk load an N-Triples/N-Quads file")
}

func newNotifier(cfg vgconfig.Options, pools *dbpool.Set) notify.Notifier {
	if cfg.NotifierBackend == vgconfig.NotifierPGListenNotify {
		return notify.NewPGListenNotify(pools.Pool(dbpool.Admin))
	}
	return notify.NewInProcess()
}

func runCreateSpace(ctx context.Context, spaceMgr *space.Manager, cfg vgconfig.Options, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: vitalgraphd create-space <id> <name> [description]")
		os.Exit(1)
	}
	id, name := args[0], args[1]
	description := ""
	if len(args) > 2 {
		description = args[2]
	}
	opts := space.DefaultOptions(cfg.BulkLoad)
	if err := spaceMgr.Create(ctx, id, name, description, opts); err != nil {
		log.Fatalf("create-space: %v", err)
	}
	fmt.Printf("space %q created\n", id)
}

func runDeleteSpace(ctx context.Context, spaceMgr *space.Manager, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: vitalgraphd delete-space <id>")
		os.Exit(1)
	}
	if err := spaceMgr.Delete(ctx, args[0]); err != nil {
		log.Fatalf("delete-space: %v", err)
	}
	fmt.Printf("space %q deleted\n", args[0])
}

func runListSpaces(ctx context.Context, spaceMgr *space.Manager) {
	spaces, err := spaceMgr.List(ctx)
	if err != nil {
		log.Fatalf("list-spaces: %v", err)
	}
	if len(spaces) == 0 {
		fmt.Println("no spaces registered")
		return
	}
	for _, s := range spaces {
		count, err := spaceMgr.GetQuadCount(ctx, s.ID)
		if err != nil {
			log.Fatalf("list-spaces: quad count for %q: %v", s.ID, err)
		}
		fmt.Printf("%-24s %-30s quads=%-10d created=%s\n", s.ID, s.Name, count, s.CreatedAt.Format(time.RFC3339))
	}
}

func runListTables(ctx context.Context, schemaMgr *schema.Manager, cfg vgconfig.Options) {
	tables, err := schemaMgr.ListTables(ctx, cfg.Schema.TablePrefix)
	if err != nil {
		log.Fatalf("list-tables: %v", err)
	}
	for _, t := range tables {
		fmt.Println(t)
	}
}

func runRebuildIndexes(ctx context.Context, schemaMgr *schema.Manager, cfg vgconfig.Options, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: vitalgraphd rebuild-indexes <space-id>")
		os.Exit(1)
	}
	spaceID := args[0]
	if err := schemaMgr.DropIndexesForBulkLoad(ctx, cfg.Schema.TablePrefix, spaceID); err != nil {
		log.Fatalf("rebuild-indexes: drop: %v", err)
	}
	if err := schemaMgr.RecreateIndexesAfterBulkLoad(ctx, cfg.Schema.TablePrefix, spaceID, cfg.BulkLoad.ConcurrentIndex); err != nil {
		log.Fatalf("rebuild-indexes: recreate: %v", err)
	}
	fmt.Printf("indexes rebuilt for space %q\n", spaceID)
}

func runImport(ctx context.Context, schemaMgr *schema.Manager, pools *dbpool.Set, cfg vgconfig.Options, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: vitalgraphd import <space-id> <file> [graph-uri]")
		os.Exit(1)
	}
	spaceID, path := args[0], args[1]
	graphURI := ""
	if len(args) > 2 {
		graphURI = args[2]
	}

	cache, err := termcache.New(cfg.TermCacheCapacity)
	if err != nil {
		log.Fatalf("import: term cache: %v", err)
	}
	txnMgr := txn.NewManager(pools)
	importer := importop.NewImporter(cfg.Schema.TablePrefix, schemaMgr, txnMgr, cache, cfg.BulkLoad)

	req := importop.Request{
		SpaceID:       spaceID,
		GraphURI:      graphURI,
		FilePath:      path,
		ValidateFirst: true,
		Method:        importop.MethodAuto,
	}

	report, err := importer.Run(ctx, req, func(p importop.Progress) {
		fmt.Printf("  ... %d quads, %d terms, %s elapsed\n", p.QuadsLoaded, p.TermsLoaded, p.Elapsed.Round(time.Second))
	})
	if err != nil {
		log.Fatalf("import: %v", err)
	}

	fmt.Printf("imported %s (%s, %s) into space %q using %s method\n",
		report.FilePath, report.FileSizeHuman, report.FormatDetected, spaceID, report.MethodUsed)
	fmt.Printf("  triples=%d terms=%d elapsed=%s\n", report.TripleCount, report.TermsCreated, report.Elapsed.Round(time.Millisecond))
	for _, w := range report.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
