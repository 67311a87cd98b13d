// Package termcache implements C2: a bounded, two-way, process-wide cache
// mapping lexical term keys to UUIDs and UUIDs back to full terms. The
// teacher's own dependency graph already pulls in
// github.com/dgraph-io/ristretto/v2 (Badger uses it internally for block
// caching); this package promotes it to a direct dependency because it is
// exactly the concurrent, counter-instrumented, bounded-capacity cache
// spec §4.2 calls for ("bounded... LRU-ish... hits, misses, size"),
// sparing us a hand-rolled LRU the teacher never needed.
package termcache

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"

	"github.com/aleksaelezovic/vitalgraph/internal/termcodec"
)

// Entry is the uuid->term direction's cached value.
type Entry struct {
	Term termcodec.EncodedTerm
}

// Cache is the process-wide term cache. The database (via internal/schema
// and internal/quadapi) remains the source of truth; a miss here always
// falls back to a codec computation or a database lookup (spec §4.2).
type Cache struct {
	lex  *ristretto.Cache[string, uuid.UUID]
	uid  *ristretto.Cache[uuid.UUID, Entry]

	mu          sync.Mutex
	spaceBlanks map[string][]uuid.UUID // spaceID -> blank-node UUIDs minted for it
}

// New builds a Cache with the given approximate entry capacity (spec
// §4.2 default: "hundreds of thousands").
func New(capacity int64) (*Cache, error) {
	if capacity <= 0 {
		capacity = 300_000
	}
	lex, err := ristretto.NewCache(&ristretto.Config[string, uuid.UUID]{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	uid, err := ristretto.NewCache(&ristretto.Config[uuid.UUID, Entry]{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		lex.Close()
		return nil, err
	}
	return &Cache{
		lex:         lex,
		uid:         uid,
		spaceBlanks: make(map[string][]uuid.UUID),
	}, nil
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.lex.Close()
	c.uid.Close()
}

// LexKey builds the cache key for the lex+kind+dtype+lang tuple (spec
// §4.2). Kept as a standalone function so callers building keys for a
// lookup and a subsequent Put use an identical encoding.
func LexKey(spaceID string, kind byte, lex, datatype, lang string) string {
	return spaceID + "\x00" + string([]byte{kind}) + "\x00" + lex + "\x00" + datatype + "\x00" + lang
}

// GetUUID looks up a previously resolved lexical key.
func (c *Cache) GetUUID(key string) (uuid.UUID, bool) {
	return c.lex.Get(key)
}

// PutUUID records key -> id. isBlank and spaceID let the cache track
// blank-node UUIDs for later space-scoped invalidation.
func (c *Cache) PutUUID(key string, id uuid.UUID, spaceID string, isBlank bool) {
	c.lex.Set(key, id, 1)
	if isBlank {
		c.mu.Lock()
		c.spaceBlanks[spaceID] = append(c.spaceBlanks[spaceID], id)
		c.mu.Unlock()
	}
}

// GetTerm looks up a previously resolved UUID.
func (c *Cache) GetTerm(id uuid.UUID) (Entry, bool) {
	return c.uid.Get(id)
}

// PutTerm records id -> term.
func (c *Cache) PutTerm(id uuid.UUID, entry Entry) {
	c.uid.Set(id, entry, 1)
}

// InvalidateSpace evicts every blank-node UUID minted for spaceID. This is
// O(blank nodes ever seen for that space) because Ristretto has no native
// prefix eviction; acceptable since space deletion is rare DDL, not a hot
// path (spec §4.2).
func (c *Cache) InvalidateSpace(spaceID string) {
	c.mu.Lock()
	ids := c.spaceBlanks[spaceID]
	delete(c.spaceBlanks, spaceID)
	c.mu.Unlock()

	for _, id := range ids {
		c.uid.Del(id)
	}
}

// Stats reports hits, misses, and the approximate number of keys
// currently tracked, summed across both directions (spec §4.2).
func (c *Cache) Stats() (hits, misses, size uint64) {
	lm, um := c.lex.Metrics, c.uid.Metrics
	if lm != nil {
		hits += lm.Hits()
		misses += lm.Misses()
		size += lm.KeysAdded() - lm.KeysEvicted()
	}
	if um != nil {
		hits += um.Hits()
		misses += um.Misses()
		size += um.KeysAdded() - um.KeysEvicted()
	}
	return hits, misses, size
}

// Wait blocks until all pending Set calls have been applied, used by
// tests that assert on Stats() immediately after a burst of writes.
func (c *Cache) Wait() {
	c.lex.Wait()
	c.uid.Wait()
}
