package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("openai", "gpt-4o-mini", "analyze this page")
	b := Fingerprint("openai", "gpt-4o-mini", "analyze this page")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestFingerprintNormalizesWhitespace(t *testing.T) {
	a := Fingerprint("openai", "gpt-4o-mini", "analyze this page")
	b := Fingerprint("openai", "gpt-4o-mini", "  analyze this page\n")
	assert.Equal(t, a, b)
}

func TestFingerprintVariesByComponent(t *testing.T) {
	base := Fingerprint("openai", "gpt-4o-mini", "prompt")
	assert.NotEqual(t, base, Fingerprint("anthropic", "gpt-4o-mini", "prompt"))
	assert.NotEqual(t, base, Fingerprint("openai", "gpt-4o", "prompt"))
	assert.NotEqual(t, base, Fingerprint("openai", "gpt-4o-mini", "other prompt"))
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	cache.Put("a", "1")
	cache.Put("b", "2")
	cache.Put("c", "3")

	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry evicted at capacity+1")
	_, ok = cache.Get("b")
	assert.True(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestCacheGetRefreshesRecency(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	cache.Put("a", "1")
	cache.Put("b", "2")

	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Put("c", "3")

	_, ok = cache.Get("a")
	assert.True(t, ok, "recently read entry survives eviction")
	_, ok = cache.Get("b")
	assert.False(t, ok, "least recently used entry evicted")
}

func TestCacheDefaultCapacity(t *testing.T) {
	cache, err := NewCache(0)
	require.NoError(t, err)

	for i := 0; i < DefaultCacheCapacity+10; i++ {
		cache.Put(Fingerprint("openai", "gpt-4o-mini", string(rune(i))), "x")
	}
	assert.Equal(t, DefaultCacheCapacity, cache.Len())
}
