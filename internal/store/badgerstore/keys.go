package badgerstore

import "sync"

// Key prefixes for each entity kind.
const (
	userPrefix   = "user:"
	bookPrefix   = "book:"
	reviewPrefix = "review:"
)

// Secondary index names.
const (
	indexGoogleID = "google_id"
	indexEmail    = "email"
	indexISBN     = "isbn"
	indexBookUser = "book_user"
)

// keyPool provides reusable byte slices for building lookup keys.
// This reduces allocations on the hot path of read operations.
var keyPool = sync.Pool{
	New: func() any {
		// Pre-allocate 128 bytes which covers most key sizes:
		// - Prefix (5-7 bytes)
		// - "idx:" (4 bytes)
		// - Index name (5-9 bytes)
		// - ":" (1 byte)
		// - Value/ID (up to ~60 bytes for book_user pairs)
		return make([]byte, 0, 128)
	},
}

// entityKey returns a freshly allocated primary key.
// Keys passed to txn.Set or txn.Delete must not be pooled: Badger keeps
// them until the transaction commits.
func entityKey(prefix, id string) []byte {
	return []byte(prefix + id)
}

// indexKey returns a freshly allocated index key.
func indexKey(prefix, indexName, value string) []byte {
	return []byte(prefix + "idx:" + indexName + ":" + value)
}

// buildKey constructs a lookup key from prefix and suffix using a pooled buffer.
// The returned slice is valid until releaseKey is called.
//
//	key := buildKey(bookPrefix, bookID)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// buildIndexKey constructs an index lookup key using a pooled buffer.
// The returned slice is valid until releaseKey is called.
func buildIndexKey(prefix, indexName, value string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, "idx:"...)
	buf = append(buf, indexName...)
	buf = append(buf, ':')
	buf = append(buf, value...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	// Avoid keeping oversized buffers in the pool
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
