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

package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/markdown"
)

var (
	_ markdown.Cache = (*Memory)(nil)
	_ markdown.Cache = (*Bolt)(nil)
)

// clock is a settable time source.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newClock() *clock {
	return &clock{t: time.Date(2023, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func TestMemory(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "markdown.cache")
	defer teardown()

	clk := newClock()
	m := &Memory{Now: clk.now}
	assert.False(t, m.Has("k"))
	_, err := m.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Store("k", "<p>v</p>", time.Hour))
	assert.True(t, m.Has("k"))
	v, err := m.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "<p>v</p>", v)
	assert.Equal(t, 1, m.Len())

	clk.t = clk.t.Add(59 * time.Minute)
	assert.True(t, m.Has("k"))

	clk.t = clk.t.Add(time.Minute)
	assert.False(t, m.Has("k"), "entry should expire at its deadline")
	assert.Equal(t, 0, m.Len(), "expired entry should be dropped on lookup")
}

func TestMemoryOverwrite(t *testing.T) {
	m := new(Memory)
	require.NoError(t, m.Store("k", "old", time.Hour))
	require.NoError(t, m.Store("k", "new", time.Hour))
	v, err := m.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, m.Len())
}

func openTestBolt(t *testing.T) *Bolt {
	t.Helper()
	c, err := OpenBolt(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
	})
	return c
}

func TestBolt(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "markdown.cache")
	defer teardown()

	c := openTestBolt(t)
	clk := newClock()
	c.now = clk.now

	assert.False(t, c.Has("k"))
	_, err := c.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Store("k", "<h1>Hello</h1>\n\n", markdown.CacheTTL))
	assert.True(t, c.Has("k"))
	v, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hello</h1>\n\n", v)

	clk.t = clk.t.Add(markdown.CacheTTL)
	assert.False(t, c.Has("k"))
	_, err = c.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoltEmptyValue(t *testing.T) {
	c := openTestBolt(t)
	require.NoError(t, c.Store("empty", "", time.Hour))
	assert.True(t, c.Has("empty"))
	v, err := c.Get("empty")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestBoltPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, c.Store("k", "v", time.Hour))
	require.NoError(t, c.Close())

	c, err = OpenBolt(path)
	require.NoError(t, err)
	defer c.Close()
	v, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFormatterWithBolt(t *testing.T) {
	c := openTestBolt(t)
	f := markdown.New(&markdown.Options{Cache: c})
	const text = "# Hello"
	want := f.Format(text)
	assert.True(t, c.Has(markdown.CacheKey(text)))
	assert.Equal(t, want, f.Format(text))
}
