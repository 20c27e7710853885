// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// messageCache keeps marshaled frames keyed by journal sequence, so a
// row fanned out to many subscribers is encoded once.
type messageCache struct {
	cache *lru.Cache
	mu    sync.RWMutex
}

func newMessageCache(cacheSize int) *messageCache {
	if cacheSize > 1000 {
		cacheSize = 1000
	}
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		// lru.New only throws an error if the number is less than 1
		panic(fmt.Errorf("failed to create message cache: %v", err))
	}
	return &messageCache{
		cache: cache,
	}
}

// GetOrAdd returns the frame of the given sequence, marshaling and
// caching it on a miss. The second return value reports whether the
// frame was newly generated.
func (mc *messageCache) GetOrAdd(seq uint64, createMessage func() ([]byte, error)) ([]byte, bool, error) {
	mc.mu.RLock()
	msg, ok := mc.cache.Get(seq)
	mc.mu.RUnlock()
	if ok {
		return msg.([]byte), false, nil
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	msg, ok = mc.cache.Get(seq)
	if ok {
		return msg.([]byte), false, nil
	}

	msg, err := createMessage()
	if err != nil {
		return nil, false, err
	}
	mc.cache.Add(seq, msg)
	return msg.([]byte), true, nil
}
