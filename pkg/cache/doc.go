// Package cache provides a generic, concurrency-safe LRU cache for values
// that own resources and must be released when they leave memory.
//
// The entitlement service keeps one live engine per signed-in user. Each
// engine holds a trial countdown and a change-feed subscription, so the set
// of cached engines has to stay bounded and every dropped engine has to be
// torn down. LRU covers both: it evicts the least recently used entry past
// its capacity and hands every removed value to an evict callback.
//
// # Usage
//
//	engines := cache.NewLRU[uuid.UUID, *entitlement.Engine](10_000,
//		cache.WithEvictCallback(func(_ uuid.UUID, e *entitlement.Engine) {
//			e.Teardown()
//		}),
//	)
//
//	engines.Put(userID, engine)      // may evict and tear down the oldest engine
//	e, ok := engines.Get(userID)     // marks userID as recently used
//	e, ok = engines.Peek(userID)     // does not touch recency
//	engines.Remove(userID)           // tears the engine down
//	engines.Purge()                  // tears everything down
//
// RemoveIf deletes an entry only if it still holds the expected value. This
// lets a caller undo its own insert without racing a concurrent replacement:
//
//	engines.RemoveIf(userID, func(cur *entitlement.Engine) bool { return cur == e })
//
// # Eviction callbacks
//
// The callback runs for capacity evictions, Remove, RemoveIf and Purge. It
// does not run when Put replaces a value under an existing key; Put returns
// the previous value instead. Callbacks run after the cache lock is released,
// so they may block or use the cache again.
//
// # Complexity
//
// Get, Peek, Put and Remove are O(1). Purge is O(n).
package cache
