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

package markdown

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Cache stores formatted documents.
// Package zombiezen.com/go/markdown/cache has implementations.
type Cache interface {
	// Has reports whether a live entry exists for key.
	Has(key string) bool
	// Get returns the entry for key.
	Get(key string) (string, error)
	// Store sets the entry for key, to expire after ttl.
	Store(key, value string, ttl time.Duration) error
}

// TextFormatter is a text-to-text transformation.
// [*Formatter] is a TextFormatter.
type TextFormatter interface {
	Format(text string) string
}

// ChainTTL is how long a [Chain] asks its [Cache] to keep a result.
const ChainTTL = time.Hour

// Chain applies a sequence of text formatters in order,
// optionally memoizing the final result.
type Chain struct {
	cache      Cache
	formatters []TextFormatter
}

// NewChain returns a Chain that runs formatters in the order given.
// cache may be nil.
func NewChain(cache Cache, formatters ...TextFormatter) *Chain {
	return &Chain{
		cache:      cache,
		formatters: formatters,
	}
}

// Add appends a formatter to the end of the chain.
func (c *Chain) Add(tf TextFormatter) {
	c.formatters = append(c.formatters, tf)
}

// Format runs text through every formatter of the chain.
func (c *Chain) Format(text string) string {
	if c.cache == nil {
		return c.format(text)
	}
	sum := md5.Sum([]byte(text))
	key := hex.EncodeToString(sum[:])
	if c.cache.Has(key) {
		if out, err := c.cache.Get(key); err == nil {
			return out
		}
	}
	out := c.format(text)
	if err := c.cache.Store(key, out, ChainTTL); err != nil {
		tracer().Errorf("markdown: cache store %s: %v", key, err)
	}
	return out
}

func (c *Chain) format(text string) string {
	for _, tf := range c.formatters {
		text = tf.Format(text)
	}
	return text
}
