package llm

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity bounds the response cache when no capacity is
// configured. Repeated scans of the same page hit the same fingerprints, so
// even a small cache removes most duplicate model calls.
const DefaultCacheCapacity = 200

// Fingerprint identifies a cacheable unit of work: one provider, one model,
// one normalized prompt. Identical triples always produce identical keys.
func Fingerprint(provider, model, prompt string) string {
	sum := md5.Sum([]byte(provider + "::" + model + "::" + strings.TrimSpace(prompt)))
	return hex.EncodeToString(sum[:])
}

// Cache is a bounded LRU over generated responses. It is an optimization
// only: a cold cache produces the same results as a warm one, just slower.
type Cache struct {
	entries *lru.Cache[string, string]
}

func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	entries, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached response for a fingerprint. A hit refreshes the
// entry's recency.
func (c *Cache) Get(fingerprint string) (string, bool) {
	return c.entries.Get(fingerprint)
}

// Put stores a response, evicting the least-recently-used entry at capacity.
func (c *Cache) Put(fingerprint, response string) {
	c.entries.Add(fingerprint, response)
}

func (c *Cache) Len() int { return c.entries.Len() }

func (c *Cache) Purge() { c.entries.Purge() }
