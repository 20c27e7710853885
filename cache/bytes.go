// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package cache

import (
	"slices"

	"github.com/qianbin/directcache"
)

// Bytes is a fixed-capacity cache for binary blobs keyed by byte keys.
// It fronts random point reads of a kv store, so the capacity is bounded
// in bytes rather than entry count.
type Bytes struct {
	c     *directcache.Cache
	stats Stats
}

// NewBytes creates a byte cache capped at sizeBytes.
func NewBytes(sizeBytes int) *Bytes {
	return &Bytes{c: directcache.New(sizeBytes)}
}

// Set caches val under key. Oversized entries are silently skipped.
func (b *Bytes) Set(key, val []byte) {
	_ = b.c.Set(key, val)
}

// Get returns a copy of the cached blob.
func (b *Bytes) Get(key []byte) (val []byte, ok bool) {
	if b.c.AdvGet(key, func(cached []byte) {
		val = slices.Clone(cached)
	}, false) {
		b.stats.Hit()
		return val, true
	}
	b.stats.Miss()
	return nil, false
}

// Remove evicts the entry of key, if any.
func (b *Bytes) Remove(key []byte) {
	b.c.Del(key)
}

// GetOrLoad returns the cached blob, or loads, caches and returns it on miss.
func (b *Bytes) GetOrLoad(key []byte, load func() ([]byte, error)) ([]byte, error) {
	if val, ok := b.Get(key); ok {
		return val, nil
	}
	val, err := load()
	if err != nil {
		return nil, err
	}
	b.Set(key, val)
	return val, nil
}

// Stats returns hits and misses and whether the hit rate changed
// since the last call.
func (b *Bytes) Stats() (bool, int64, int64) {
	return b.stats.Stats()
}
