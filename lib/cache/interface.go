package cache

// ICache defines the operations of the in-memory cache engine backing a
// server node. All implementations must be safe for concurrent use.
type ICache interface {
	// Set stores a value under the given key, overwriting any previous value
	Set(key string, value []byte)

	// SetE stores a value that expires expireIn seconds after the write.
	// expireIn zero behaves like Set
	SetE(key string, value []byte, expireIn uint64)

	// Get returns the value stored under the key and whether it exists.
	// Expired entries are reported as missing
	Get(key string) ([]byte, bool)

	// Delete removes the key and reports whether a live entry was removed
	Delete(key string) bool

	// Size returns the number of entries currently held, including entries
	// that have expired but have not been collected yet
	Size() int
}
