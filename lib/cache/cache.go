package cache

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// entry is one stored value. expiresAt is the absolute expiry time in unix
// nanoseconds, or zero for entries without expiry.
type entry struct {
	value     []byte
	expiresAt int64
}

// expired reports whether the entry is past its expiry at the given time.
func (e entry) expired(now int64) bool {
	return e.expiresAt != 0 && now >= e.expiresAt
}

type cacheImpl struct {
	entries *xsync.MapOf[string, entry]
}

// NewCache creates an empty in-memory cache. Expired entries are collected
// lazily on access, so an entry past its expiry may still occupy memory
// until it is read or overwritten.
func NewCache() ICache {
	return &cacheImpl{
		entries: xsync.NewMapOf[string, entry](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache/interface.go)
// --------------------------------------------------------------------------

func (c *cacheImpl) Set(key string, value []byte) {
	c.entries.Store(key, entry{value: value})
}

func (c *cacheImpl) SetE(key string, value []byte, expireIn uint64) {
	if expireIn == 0 {
		c.Set(key, value)
		return
	}
	expiresAt := time.Now().Add(time.Duration(expireIn) * time.Second).UnixNano()
	c.entries.Store(key, entry{value: value, expiresAt: expiresAt})
}

func (c *cacheImpl) Get(key string) ([]byte, bool) {
	e, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	if e.expired(time.Now().UnixNano()) {
		// Collect lazily; a concurrent overwrite wins over the delete
		c.entries.Compute(key, func(current entry, loaded bool) (entry, bool) {
			if loaded && current.expired(time.Now().UnixNano()) {
				return entry{}, true
			}
			return current, !loaded
		})
		return nil, false
	}
	return e.value, true
}

func (c *cacheImpl) Delete(key string) bool {
	e, ok := c.entries.LoadAndDelete(key)
	return ok && !e.expired(time.Now().UnixNano())
}

func (c *cacheImpl) Size() int {
	return c.entries.Size()
}
