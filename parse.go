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

// Package markdown converts classic Markdown to HTML.
//
// The dialect is the one described by John Gruber's original Markdown:
// headings, horizontal rules, lists, indented code blocks, block quotes,
// paragraphs, reference links and images, automatic links and emphasis.
// Block-level HTML written in the document is passed through untouched.
//
// A [Formatter] is the entry point.
// Its inline and block stages can be extended
// with [LineFormatter] and [BlockFormatter] values.
package markdown

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"go4.org/bytereplacer"
)

// tabStopSize is the number of spaces a tab is expanded to.
const tabStopSize = 4

var (
	lineEndingReplacer = bytereplacer.New("\r\n", "\n", "\r", "\n", "\t", strings.Repeat(" ", tabStopSize))
	blankLineRE        = regexp.MustCompile(`(?m)^[ ]+$`)
)

// Format converts a Markdown document to HTML.
// It never fails: text that does not form valid Markdown syntax
// is copied to the output.
func (f *Formatter) Format(text string) string {
	if f.opts.Cache == nil {
		return f.format(text)
	}
	key := CacheKey(text)
	if f.opts.Cache.Has(key) {
		html, err := f.opts.Cache.Get(key)
		if err == nil {
			tracer().Debugf("markdown: cache hit for %s", key)
			return html
		}
		tracer().Debugf("markdown: cache get %s: %v", key, err)
	}
	html := f.format(text)
	if err := f.opts.Cache.Store(key, html, CacheTTL); err != nil {
		tracer().Errorf("markdown: cache store %s: %v", key, err)
	}
	return html
}

// CacheKey returns the key under which the result
// of formatting text is cached.
func CacheKey(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (f *Formatter) format(text string) string {
	s := f.newState()
	text = prepare(text)
	text = s.blocks.protect(text, true)
	text = s.refs.collect(text)
	for _, lf := range f.lines.formatters {
		if p, ok := lf.(Preparer); ok {
			text = p.Prepare(s, text)
		}
	}
	return reveal(s.formatBlock(text))
}

// prepare normalizes line endings and whitespace-only lines
// and escapes backslash-escaped punctuation.
func prepare(text string) string {
	text = sanitize(text)
	text = replace(lineEndingReplacer, text)
	text = blankLineRE.ReplaceAllString(text, "")
	return Escape(text)
}

// sanitize replaces NUL and runes from the reserved private use range
// with the Unicode replacement character.
func sanitize(text string) string {
	if strings.IndexFunc(text, isForbidden) < 0 {
		return text
	}
	return strings.Map(func(c rune) rune {
		if isForbidden(c) {
			return '\uFFFD'
		}
		return c
	}, text)
}

func isForbidden(c rune) bool {
	return c == 0 || isReserved(c)
}
