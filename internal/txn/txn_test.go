package txn

import (
	"sort"
	"testing"

	"github.com/google/uuid"
)

func TestTxn_MarkCacheDirty_Dedupes(t *testing.T) {
	tx := &Txn{ID: uuid.New()}
	tx.MarkCacheDirty("s1")
	tx.MarkCacheDirty("s2")
	tx.MarkCacheDirty("s1")

	got := tx.DirtySpaces()
	sort.Strings(got)
	if len(got) != 2 || got[0] != "s1" || got[1] != "s2" {
		t.Fatalf("DirtySpaces() = %v, want [s1 s2]", got)
	}
}

func TestTxn_IsActive(t *testing.T) {
	tx := &Txn{ID: uuid.New()}
	if tx.IsActive() {
		t.Fatalf("expected a freshly constructed Txn to be inactive until Begin sets it")
	}
	tx.active.Store(true)
	if !tx.IsActive() {
		t.Fatalf("expected IsActive to reflect the active flag")
	}
}

func TestManager_Active_EmptyInitially(t *testing.T) {
	m := NewManager(nil)
	if m.Active() != 0 {
		t.Fatalf("expected a fresh Manager to have zero active transactions")
	}
}

func TestManager_forget_RemovesFromActiveSet(t *testing.T) {
	m := NewManager(nil)
	id := uuid.New()
	m.active[id] = &Txn{ID: id}
	if m.Active() != 1 {
		t.Fatalf("expected one active transaction after manual insert")
	}
	m.forget(id)
	if m.Active() != 0 {
		t.Fatalf("expected forget to remove the transaction")
	}
}
