package cache

import (
	"testing"
	"time"

	businessdomain "github.com/smallbiznis/bizplannaija/internal/business/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache(t *testing.T) {
	c := NewTTLCache[int](time.Minute, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1, 0)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache[string](time.Minute, time.Minute)
	c.Set("k", "v", 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestBusinessCacheBySlug(t *testing.T) {
	c := NewBusinessCache()

	c.SetBySlug(businessdomain.Business{Name: "no slug"})
	_, ok := c.GetBySlug("")
	assert.False(t, ok)

	c.SetBySlug(businessdomain.Business{Slug: "mama-put", Name: "Mama Put"})

	got, ok := c.GetBySlug(" Mama-Put ")
	require.True(t, ok)
	assert.Equal(t, "Mama Put", got.Name)

	c.Invalidate("", "mama-put")
	_, ok = c.GetBySlug("mama-put")
	assert.False(t, ok)
}
