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
	"regexp"
	"strings"

	"go4.org/bytereplacer"
)

// codeEscaper escapes the characters that are significant in HTML text.
var codeEscaper = bytereplacer.New(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// escapeHTML escapes text that is placed verbatim into an element,
// like the content of a code span.
func escapeHTML(s string) string {
	return replace(codeEscaper, s)
}

// entityRE matches an HTML character reference at the start of a string.
var entityRE = regexp.MustCompile(`^&#?[xX]?(?:[0-9a-fA-F]+|\w+);`)

// encodeAmpsAndAngles entity-escapes '&' and '<'
// unless they already begin an entity or a tag.
func encodeAmpsAndAngles(s string) string {
	if !strings.ContainsAny(s, "&<") {
		return s
	}
	sb := new(strings.Builder)
	sb.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if entityRE.MatchString(s[i:]) {
				sb.WriteByte(c)
			} else {
				sb.WriteString("&amp;")
			}
		case '<':
			if i+1 < len(s) && isTagStart(s[i+1]) {
				sb.WriteByte(c)
			} else {
				sb.WriteString("&lt;")
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isTagStart(c byte) bool {
	return 'a' <= c && c <= 'z' || c == '/' || c == '?' || c == '$' || c == '!'
}

var quoteEscaper = bytereplacer.New(`"`, "&quot;")

// escapeAttr makes s safe to place inside a double-quoted attribute.
// It is idempotent: existing entities are left alone.
func escapeAttr(s string) string {
	s = encodeAmpsAndAngles(s)
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return replace(quoteEscaper, s)
}

// EscapeAttribute escapes s for use inside a double-quoted attribute
// of HTML produced by a [LineFormatter].
// The result is also protected from further Markdown processing.
func EscapeAttribute(s string) string {
	return shield(escapeAttr(s))
}
