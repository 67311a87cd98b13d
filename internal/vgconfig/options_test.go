package vgconfig

import "testing"

func TestDefaultDatabasePoolSizing(t *testing.T) {
	db := DefaultDatabase("postgres://localhost/vg")
	if db.AdminPoolSize >= db.SharedReadPoolSize {
		t.Fatalf("expected the admin pool to be smaller than the shared-read pool, got admin=%d read=%d", db.AdminPoolSize, db.SharedReadPoolSize)
	}
	if db.DedicatedWritePoolSize >= db.SharedReadPoolSize {
		t.Fatalf("expected the dedicated-write pool to be smaller than the shared-read pool, got write=%d read=%d", db.DedicatedWritePoolSize, db.SharedReadPoolSize)
	}
	if db.WritePoolTimeout != 0 {
		t.Fatalf("expected bulk-load writes to have no default deadline, got %v", db.WritePoolTimeout)
	}
}

func TestDefaultOptionsWiresEverySection(t *testing.T) {
	opts := Default("postgres://localhost/vg")
	if opts.Database.DSN != "postgres://localhost/vg" {
		t.Fatalf("expected the DSN to pass through unchanged, got %q", opts.Database.DSN)
	}
	if opts.Schema.TablePrefix == "" {
		t.Fatalf("expected a non-empty default table prefix")
	}
	if opts.NotifierBackend != NotifierInProcess {
		t.Fatalf("expected the in-process notifier to be the default backend")
	}
	if opts.BulkLoad.MaxPathDepth != 300 {
		t.Fatalf("expected the default path-traversal depth cap to match the translator's default, got %d", opts.BulkLoad.MaxPathDepth)
	}
	if opts.MaxConflictRetries <= 0 {
		t.Fatalf("expected a positive default retry count")
	}
	if opts.TermCacheCapacity <= 0 {
		t.Fatalf("expected a positive default term cache capacity")
	}
}
