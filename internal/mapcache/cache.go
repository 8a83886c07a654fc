// Package mapcache is the in-memory, process-lifetime index pairing mapper
// interface files with their statement files. The two directions are always
// updated together: a broken pairing is fully removed, never left half-known.
package mapcache

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/Greenplumwine/mbnav/internal/types"
)

// Cache is the bidirectional mapping index. All operations are synchronous
// and O(1) beyond the snapshot cost of the defensive copies handed to
// enumerating callers.
type Cache struct {
	mu      sync.RWMutex
	forward map[string]string // interface path -> statement path
	reverse map[string]string // statement path -> interface path

	// Content fingerprints let the invalidation controller drop change
	// events whose bytes are identical to what was last resolved.
	fingerprints map[string]uint64
}

// New creates an empty cache. A fresh process always starts empty and
// rebuilds lazily or through an explicit full rescan.
func New() *Cache {
	return &Cache{
		forward:      make(map[string]string),
		reverse:      make(map[string]string),
		fingerprints: make(map[string]uint64),
	}
}

// Get returns the statement path mapped to interfacePath.
func (c *Cache) Get(interfacePath string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.forward[interfacePath]
	return p, ok
}

// GetReverse returns the interface path mapped to statementPath.
func (c *Cache) GetReverse(statementPath string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.reverse[statementPath]
	return p, ok
}

// Put commits a resolved pairing in both directions. A path already mapped
// to a different counterpart has its stale pairing removed first, keeping
// the bijection invariant.
func (c *Cache) Put(m types.Mapping) {
	if m.InterfacePath == "" || m.StatementPath == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.forward[m.InterfacePath]; ok && old != m.StatementPath {
		delete(c.reverse, old)
	}
	if old, ok := c.reverse[m.StatementPath]; ok && old != m.InterfacePath {
		delete(c.forward, old)
	}
	c.forward[m.InterfacePath] = m.StatementPath
	c.reverse[m.StatementPath] = m.InterfacePath
}

// Remove evicts the pairing that path participates in, whichever side it is,
// removing both directions and any fingerprints.
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if statement, ok := c.forward[path]; ok {
		delete(c.forward, path)
		delete(c.reverse, statement)
		delete(c.fingerprints, statement)
	}
	if iface, ok := c.reverse[path]; ok {
		delete(c.reverse, path)
		delete(c.forward, iface)
		delete(c.fingerprints, iface)
	}
	delete(c.fingerprints, path)
}

// Clear empties the cache. Used only by an explicit full-rescan request,
// never implicitly.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forward = make(map[string]string)
	c.reverse = make(map[string]string)
	c.fingerprints = make(map[string]uint64)
}

// Len returns the number of cached pairings.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.forward)
}

// Mappings returns a defensive copy of the interface -> statement map.
// External code never sees the internal maps.
func (c *Cache) Mappings() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.forward))
	for k, v := range c.forward {
		out[k] = v
	}
	return out
}

// ReverseMappings returns a defensive copy of the statement -> interface map.
func (c *Cache) ReverseMappings() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.reverse))
	for k, v := range c.reverse {
		out[k] = v
	}
	return out
}

// SetFingerprint records the content hash path had when its pairing was
// last resolved.
func (c *Cache) SetFingerprint(path string, content []byte) {
	sum := xxhash.Sum64(content)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fingerprints[path] = sum
}

// UnchangedSince reports whether path's recorded fingerprint matches
// content. False when no fingerprint is known.
func (c *Cache) UnchangedSince(path string, content []byte) bool {
	c.mu.RLock()
	sum, ok := c.fingerprints[path]
	c.mu.RUnlock()
	return ok && sum == xxhash.Sum64(content)
}
