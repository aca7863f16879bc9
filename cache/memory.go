// Copyright 2023 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package cache provides stores for formatted documents
// that satisfy [markdown.Cache].
package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'markdown.cache'.
func tracer() tracing.Trace {
	return tracing.Select("markdown.cache")
}

// ErrNotFound is returned by Get when there is no live entry for a key.
var ErrNotFound = errors.New("cache: no such entry")

type entry struct {
	value   string
	expires time.Time
}

// Memory is an in-process cache.
// The zero value is an empty cache ready to use.
// It is safe to use from multiple goroutines.
type Memory struct {
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func (m *Memory) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// lookup returns the entry for key, dropping it if it has expired.
// m.mu must be held.
func (m *Memory) lookup(key string) (entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return entry{}, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return entry{}, false
	}
	return e, true
}

// Has reports whether a live entry exists for key.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok
}

// Get returns the value stored for key or [ErrNotFound].
func (m *Memory) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

// Store sets the value for key, expiring after ttl.
func (m *Memory) Store(key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]entry)
	}
	m.entries[key] = entry{value: value, expires: m.now().Add(ttl)}
	return nil
}

// Len returns the number of entries, including expired ones
// that have not been looked up since they expired.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
