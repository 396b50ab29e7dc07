package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	c := NewTTLCache[int, string](time.Minute, 10)
	c.now = func() time.Time { return now }

	c.Set(1, "one")
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "one", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestTTLCacheEvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	c := NewTTLCache[string, int](time.Hour, 2)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(time.Second)
	c.Set("b", 2)
	now = now.Add(time.Second)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestTTLCacheOverwriteDoesNotEvict(t *testing.T) {
	t.Parallel()

	c := NewTTLCache[string, int](time.Hour, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	assert.Equal(t, 2, c.Len())
	v, _ := c.Get("a")
	assert.Equal(t, 3, v)
	_, ok := c.Get("b")
	assert.True(t, ok)
}
