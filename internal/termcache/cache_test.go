package termcache

import (
	"testing"

	"github.com/google/uuid"

	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
)

func TestCache_PutGetUUID(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	key := LexKey("s1", 1, "http://ex/a", "", "")
	id := uuid.New()
	c.PutUUID(key, id, "s1", false)
	c.Wait()

	got, ok := c.GetUUID(key)
	if !ok {
		t.Fatalf("expected hit after put")
	}
	if got != id {
		t.Fatalf("expected %v, got %v", id, got)
	}
}

func TestCache_MissFallsThrough(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, ok := c.GetUUID("nonexistent")
	if ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestCache_InvalidateSpace(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	id := uuid.New()
	key := LexKey("s1", 2, "b0", "", "")
	c.PutUUID(key, id, "s1", true)
	c.PutTerm(id, Entry{Term: termcodec.EncodedTerm{UUID: id, Lex: "b0"}})
	c.Wait()

	if _, ok := c.GetTerm(id); !ok {
		t.Fatalf("expected term to be cached before invalidation")
	}

	c.InvalidateSpace("s1")
	c.Wait()

	if _, ok := c.GetTerm(id); ok {
		t.Fatalf("expected blank-node term to be evicted after space invalidation")
	}
}

func TestCache_StatsTrackHitsAndMisses(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, _ = c.GetUUID("miss")
	key := LexKey("s1", 1, "http://ex/a", "", "")
	c.PutUUID(key, uuid.New(), "s1", false)
	c.Wait()
	_, _ = c.GetUUID(key)

	hits, misses, _ := c.Stats()
	if hits == 0 {
		t.Errorf("expected at least one hit to be recorded")
	}
	if misses == 0 {
		t.Errorf("expected at least one miss to be recorded")
	}
}
