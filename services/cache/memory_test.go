package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()

	err := c.Set("key", []byte("value"), time.Minute)
	assert.NoError(t, err)

	value, err := c.Get("key")
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()

	_, err := c.Get("absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiration(t *testing.T) {
	c := NewMemoryCache()

	c.Set("key", []byte("value"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get("key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()

	c.Set("key", []byte("value"), time.Minute)
	assert.NoError(t, c.Delete("key"))

	_, err := c.Get("key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheCopiesValue(t *testing.T) {
	c := NewMemoryCache()

	original := []byte("value")
	c.Set("key", original, time.Minute)
	original[0] = 'X'

	value, err := c.Get("key")
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value, "cached value must not alias the caller's slice")
}

func TestMemoryCacheSize(t *testing.T) {
	c := NewMemoryCache()
	assert.Equal(t, 0, c.Size())

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)
	assert.Equal(t, 2, c.Size())

	c.Delete("a")
	assert.Equal(t, 1, c.Size())
}
