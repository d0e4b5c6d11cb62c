// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides the transcript cache used to avoid re-fetching
// captions for a video that was already asked about.
//
// Two implementations are shipped: MemoryCache (process local, TTL and entry
// bound) and RedisCache (shared between replicas, TTL only). Both are safe for
// concurrent use; concurrent writers of the same key race benignly and the
// last write wins.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache stores string values by key.
type Cache interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value string) error
}

// MemoryCache is an in-process Cache with a time-to-live and an upper bound
// on the number of entries. When full, the entry closest to expiry is evicted.
type MemoryCache struct {
	mu         sync.Mutex
	items      *gocache.Cache
	ttl        time.Duration
	maxEntries int
}

// NewMemoryCache creates a MemoryCache. A non-positive ttl keeps entries until
// evicted; a non-positive maxEntries removes the bound.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	expiration := ttl
	cleanup := ttl
	if ttl <= 0 {
		expiration = gocache.NoExpiration
		cleanup = 0
	}
	return &MemoryCache{
		items:      gocache.New(expiration, cleanup),
		ttl:        expiration,
		maxEntries: maxEntries,
	}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("unexpected cached type %T for key %s", v, key)
	}
	return s, true, nil
}

// Put implements Cache.
func (m *MemoryCache) Put(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxEntries > 0 {
		if _, exists := m.items.Get(key); !exists {
			m.items.DeleteExpired()
			for m.items.ItemCount() >= m.maxEntries {
				m.evictOne()
			}
		}
	}
	m.items.Set(key, value, m.ttl)
	return nil
}

// Len returns the number of entries, expired ones included until cleanup.
func (m *MemoryCache) Len() int {
	return m.items.ItemCount()
}

// evictOne removes the entry with the earliest expiration. Entries that never
// expire are only chosen when nothing else is left.
func (m *MemoryCache) evictOne() {
	var victim string
	var earliest int64
	found := false
	for k, item := range m.items.Items() {
		exp := item.Expiration
		if exp == 0 {
			exp = 1<<63 - 1
		}
		if !found || exp < earliest {
			victim, earliest, found = k, exp, true
		}
	}
	if found {
		m.items.Delete(victim)
	}
}
