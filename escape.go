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
	"go4.org/bytereplacer"
)

// Escapable is the set of ASCII punctuation characters
// that a preceding backslash makes literal.
const Escapable = "\\`*_{}[]()#+-.!"

// Placeholders are single runes taken from the start of the Unicode
// private use area. The whole range up to reservedEnd is off limits to input.
const (
	placeholderBase = '\uE000'
	reservedEnd     = '\uE0FF'
)

var (
	// escaper maps "\*" to the placeholder for '*'.
	escaper *bytereplacer.Replacer
	// unescaper is the exact inverse of escaper.
	unescaper *bytereplacer.Replacer
	// shielder maps a bare '*' to the placeholder for '*'.
	shielder *bytereplacer.Replacer
	// revealer maps the placeholder for '*' to a bare '*'.
	revealer *bytereplacer.Replacer
)

func init() {
	var esc, unesc, shield, reveal []string
	for i := 0; i < len(Escapable); i++ {
		c := string(Escapable[i])
		p := placeholder(Escapable[i])
		esc = append(esc, `\`+c, p)
		unesc = append(unesc, p, `\`+c)
		shield = append(shield, c, p)
		reveal = append(reveal, p, c)
	}
	escaper = bytereplacer.New(esc...)
	unescaper = bytereplacer.New(unesc...)
	shielder = bytereplacer.New(shield...)
	revealer = bytereplacer.New(reveal...)
}

// placeholder returns the private sequence that stands in for c.
// c must be a member of [Escapable].
func placeholder(c byte) string {
	for i := 0; i < len(Escapable); i++ {
		if Escapable[i] == c {
			return string(rune(placeholderBase + i))
		}
	}
	panic("not an escapable character")
}

// Escape replaces every backslash-escaped character from [Escapable]
// with a private placeholder that no Markdown pattern matches.
func Escape(s string) string {
	return replace(escaper, s)
}

// Unescape is the inverse of [Escape]:
// it turns placeholders back into their backslash-escaped forms.
// Unescape(Escape(s)) == s for any s that does not already contain
// runes from the reserved private use range.
func Unescape(s string) string {
	return replace(unescaper, s)
}

// shield replaces bare Markdown punctuation with placeholders
// so that rendered text (code, attribute values)
// is not picked up by later patterns.
func shield(s string) string {
	return replace(shielder, s)
}

// reveal turns every placeholder into the literal character it stands for.
// It is the last step of formatting.
func reveal(s string) string {
	return replace(revealer, s)
}

func replace(r *bytereplacer.Replacer, s string) string {
	// Replace may reuse its argument, so always hand it a fresh copy.
	return string(r.Replace([]byte(s)))
}

// isReserved reports whether c belongs to the private range
// used for placeholders and block keys.
func isReserved(c rune) bool {
	return placeholderBase <= c && c <= reservedEnd
}
