/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package cache provides table schema caching for DQL.

Schema Cache Overview:
======================

Every planned statement needs the target table's description: its key
attributes and indexes decide which index a query drives. Fetching the
description from the store per statement would double the round trips
of an interactive session, so descriptions are cached here.

Features:
=========

  - LRU eviction when cache is full
  - TTL-based expiration
  - Invalidation on DDL statements
  - Thread-safe operations
  - Configurable cache size

Cache Invalidation:
===================

The cache is invalidated when:
  - CREATE, DROP, or ALTER is executed on a cached table
  - The TTL expires for a cached entry
  - The cache reaches its size limit (LRU eviction)

Usage Example:
==============

	schemas := cache.New(cache.DefaultConfig())

	if desc, ok := schemas.Get("forum"); ok {
		return desc
	}
	desc, err := ts.DescribeTable(ctx, "forum")
	schemas.Set(desc)
*/
package cache

import (
	"container/list"
	"sync"
	"time"

	"dql/internal/store"
)

// Config holds the configuration for the schema cache.
type Config struct {
	// MaxEntries is the maximum number of cached descriptions.
	// When exceeded, the least recently used entries are evicted.
	MaxEntries int

	// TTL is the time-to-live for cached entries.
	// Entries older than TTL are considered expired.
	TTL time.Duration

	// Enabled controls whether caching is active.
	Enabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 256,
		TTL:        time.Minute,
		Enabled:    true,
	}
}

// entry represents one cached table description.
type entry struct {
	table     string
	desc      *store.TableDescription
	expiresAt time.Time
	element   *list.Element
}

// SchemaCache caches table descriptions with LRU eviction and TTL
// expiration.
type SchemaCache struct {
	config Config

	mu sync.Mutex

	// cache maps table names to entries
	cache map[string]*entry

	// lru tracks access order for LRU eviction
	lru *list.List

	// stats tracks cache performance
	hits   int64
	misses int64
}

// New creates a new SchemaCache with the given configuration.
func New(config Config) *SchemaCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 256
	}
	if config.TTL <= 0 {
		config.TTL = time.Minute
	}
	return &SchemaCache{
		config: config,
		cache:  make(map[string]*entry),
		lru:    list.New(),
	}
}

// Get retrieves a cached table description. Returns the description
// and true if found and not expired, nil and false otherwise.
func (sc *SchemaCache) Get(table string) (*store.TableDescription, bool) {
	if !sc.config.Enabled {
		return nil, false
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	e, ok := sc.cache[table]
	if !ok {
		sc.misses++
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		sc.removeEntry(e)
		sc.misses++
		return nil, false
	}

	sc.lru.MoveToFront(e.element)
	sc.hits++
	return e.desc, true
}

// Set caches a table description under its own name.
func (sc *SchemaCache) Set(desc *store.TableDescription) {
	if !sc.config.Enabled || desc == nil {
		return
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if e, ok := sc.cache[desc.Name]; ok {
		e.desc = desc
		e.expiresAt = time.Now().Add(sc.config.TTL)
		sc.lru.MoveToFront(e.element)
		return
	}

	for len(sc.cache) >= sc.config.MaxEntries {
		sc.evictOldest()
	}

	e := &entry{
		table:     desc.Name,
		desc:      desc,
		expiresAt: time.Now().Add(sc.config.TTL),
	}
	e.element = sc.lru.PushFront(e)
	sc.cache[desc.Name] = e
}

// Invalidate drops the cached description of one table. Called after
// DDL statements.
func (sc *SchemaCache) Invalidate(table string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if e, ok := sc.cache[table]; ok {
		sc.removeEntry(e)
	}
}

// InvalidateAll clears the entire cache.
func (sc *SchemaCache) InvalidateAll() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.cache = make(map[string]*entry)
	sc.lru = list.New()
}

// removeEntry removes an entry from the cache (must hold lock).
func (sc *SchemaCache) removeEntry(e *entry) {
	delete(sc.cache, e.table)
	sc.lru.Remove(e.element)
}

// evictOldest removes the least recently used entry (must hold lock).
func (sc *SchemaCache) evictOldest() {
	elem := sc.lru.Back()
	if elem == nil {
		return
	}
	sc.removeEntry(elem.Value.(*entry))
}

// Stats holds cache statistics.
type Stats struct {
	Hits       int64
	Misses     int64
	Entries    int
	MaxEntries int
	HitRate    float64
}

// Stats returns current cache statistics.
func (sc *SchemaCache) Stats() Stats {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	total := sc.hits + sc.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(sc.hits) / float64(total)
	}

	return Stats{
		Hits:       sc.hits,
		Misses:     sc.misses,
		Entries:    len(sc.cache),
		MaxEntries: sc.config.MaxEntries,
		HitRate:    hitRate,
	}
}

// SetEnabled enables or disables the cache.
func (sc *SchemaCache) SetEnabled(enabled bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config.Enabled = enabled
	if !enabled {
		sc.cache = make(map[string]*entry)
		sc.lru = list.New()
	}
}
