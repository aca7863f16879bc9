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
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"golang.org/x/net/html/atom"
)

// protectedTags is the set of block-level elements
// that are hidden from Markdown processing when they start a line.
var protectedTags = map[atom.Atom]struct{}{
	atom.P:          {},
	atom.Div:        {},
	atom.H1:         {},
	atom.H2:         {},
	atom.H3:         {},
	atom.H4:         {},
	atom.H5:         {},
	atom.H6:         {},
	atom.Blockquote: {},
	atom.Pre:        {},
	atom.Code:       {},
	atom.Table:      {},
	atom.Dl:         {},
	atom.Ol:         {},
	atom.Ul:         {},
	atom.Script:     {},
	atom.Noscript:   {},
	atom.Form:       {},
	atom.Fieldset:   {},
	atom.Iframe:     {},
	atom.Math:       {},
	atom.Ins:        {},
	atom.Del:        {},
}

// tagREs holds, for each protected element,
// a pattern matching its opening and closing tags.
var tagREs = make(map[atom.Atom]*regexp.Regexp, len(protectedTags))

func init() {
	for a := range protectedTags {
		tagREs[a] = regexp.MustCompile(`(?i)<(/?)` + a.String() + `(?:[\s/][^>]*)?>`)
	}
}

var (
	openTagRE  = regexp.MustCompile(`(?m)^<([A-Za-z][A-Za-z0-9]*)`)
	hrTagRE    = regexp.MustCompile(`(?im)^[ ]{0,3}<hr\b[^<>]*?/?>[ \t]*$`)
	commentRE  = regexp.MustCompile(`(?s)[ ]{0,3}<!(?:--.*?--\s*)+>[ \t]*`)
	blockKeyRE = regexp.MustCompile(`\n*` + keyPrefix + `[0-9a-f]{16}` + keySuffix + `\n*`)
)

// Block keys are framed by runes from the reserved private use range,
// so they cannot occur in (sanitized) input.
const (
	keyPrefix = "\uE0F0"
	keySuffix = "\uE0F1"
	keyLen    = len(keyPrefix) + 16 + len(keySuffix)
)

// blockRecord is a protected region of text.
// For element records, content is the text between the tags
// and may contain the keys of other records.
type blockRecord struct {
	open    string
	content string
	close   string
}

func (rec *blockRecord) raw() string {
	return rec.open + rec.content + rec.close
}

// blockStore is an arena of protected HTML regions.
// Each region is addressed by a key derived from its content.
// A blockStore lives for a single formatting call.
type blockStore struct {
	records []blockRecord
	byKey   map[string]int
}

func newBlockStore() *blockStore {
	return &blockStore{byKey: make(map[string]int)}
}

// add stores rec and returns its key.
// Identical regions share a key.
func (s *blockStore) add(rec blockRecord) string {
	raw := rec.raw()
	for seed := 0; ; seed++ {
		h := fnv.New64a()
		if seed > 0 {
			fmt.Fprintf(h, "%d\x00", seed)
		}
		h.Write([]byte(raw))
		key := fmt.Sprintf("%s%016x%s", keyPrefix, h.Sum64(), keySuffix)
		i, exists := s.byKey[key]
		if !exists {
			s.byKey[key] = len(s.records)
			s.records = append(s.records, rec)
			return key
		}
		if s.records[i].raw() == raw {
			return key
		}
	}
}

// has reports whether key names a stored region.
func (s *blockStore) has(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// lookup returns the HTML for key with every nested key resolved.
func (s *blockStore) lookup(key string) (string, error) {
	i, ok := s.byKey[key]
	if !ok {
		return "", &ProtectionError{Key: key}
	}
	rec := &s.records[i]
	if !strings.Contains(rec.content, keyPrefix) {
		return rec.raw(), nil
	}
	var err error
	content := blockKeyRE.ReplaceAllStringFunc(rec.content, func(m string) string {
		k := strings.Trim(m, "\n")
		nested, lookupErr := s.lookup(k)
		if lookupErr != nil {
			err = lookupErr
			return m
		}
		return "\n" + strings.TrimRight(nested, "\n") + "\n"
	})
	if err != nil {
		return "", err
	}
	return rec.open + content + rec.close, nil
}

// resolve is like lookup but panics with a [*ProtectionError]
// if the key was never stored.
func (s *blockStore) resolve(key string) string {
	html, err := s.lookup(key)
	if err != nil {
		panic(err)
	}
	return html
}

// isBlockKey reports whether chunk consists of a single block key.
func isBlockKey(chunk string) bool {
	return len(chunk) == keyLen && strings.HasPrefix(chunk, keyPrefix) && strings.HasSuffix(chunk, keySuffix)
}

// protect replaces every block-level HTML element, <hr> and comment
// with a key on a line of its own, surrounded by blank lines.
// If verbatim is true, the regions are stored with their escapes undone,
// which preserves backslashes in raw HTML written by the author.
func (s *blockStore) protect(text string, verbatim bool) string {
	text = s.protectElements(text, verbatim)
	text = s.protectStandalone(text, hrTagRE, verbatim)
	text = s.protectStandalone(text, commentRE, verbatim)
	return text
}

func (s *blockStore) store(rec blockRecord, verbatim bool) string {
	if verbatim {
		rec.open = Unescape(rec.open)
		rec.content = Unescape(rec.content)
		rec.close = Unescape(rec.close)
	}
	return "\n\n" + s.add(rec) + "\n\n"
}

// protectElements hides elements from protectedTags
// whose opening tag starts a line and whose matching closing tag
// ends a line. Nested elements of the same name are balanced.
func (s *blockStore) protectElements(text string, verbatim bool) string {
	if !strings.Contains(text, "<") {
		return text
	}
	sb := new(strings.Builder)
	last := 0
	for _, loc := range openTagRE.FindAllStringSubmatchIndex(text, -1) {
		start := loc[0]
		if start < last {
			continue
		}
		a := atom.Lookup([]byte(strings.ToLower(text[loc[2]:loc[3]])))
		if _, ok := protectedTags[a]; !ok {
			continue
		}
		openEnd, closeStart, end, ok := matchElement(text, start, a)
		if !ok {
			continue
		}
		sb.WriteString(text[last:start])
		sb.WriteString(s.store(blockRecord{
			open:    text[start:openEnd],
			content: text[openEnd:closeStart],
			close:   text[closeStart:end],
		}, verbatim))
		last = end
	}
	if last == 0 {
		return text
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// matchElement finds the extent of the element a whose opening tag
// begins at start. The closing tag must end a line.
// end includes trailing spaces and line breaks.
func matchElement(text string, start int, a atom.Atom) (openEnd, closeStart, end int, ok bool) {
	re := tagREs[a]
	first := re.FindStringSubmatchIndex(text[start:])
	if first == nil || first[0] != 0 || first[3] > first[2] {
		return 0, 0, 0, false
	}
	openEnd = start + first[1]
	if strings.HasSuffix(text[start:openEnd], "/>") {
		end, ok = lineEnd(text, openEnd)
		return openEnd, openEnd, end, ok
	}
	tags := re.FindAllStringSubmatchIndex(text[openEnd:], -1)
	depth := 1
	for _, loc := range tags {
		tag := text[openEnd+loc[0] : openEnd+loc[1]]
		switch {
		case loc[3] > loc[2]:
			depth--
		case !strings.HasSuffix(tag, "/>"):
			depth++
		}
		if depth > 0 {
			continue
		}
		if end, ok = lineEnd(text, openEnd+loc[1]); ok {
			return openEnd, openEnd + loc[0], end, true
		}
		// A closing tag in the middle of a line does not end the element.
		depth = 1
	}

	// Unbalanced: take the first closing tag that ends a line.
	for _, loc := range tags {
		if loc[3] == loc[2] {
			continue
		}
		if end, ok = lineEnd(text, openEnd+loc[1]); ok {
			return openEnd, openEnd + loc[0], end, true
		}
	}
	return 0, 0, 0, false
}

// lineEnd reports whether only horizontal space remains
// on the line that contains pos and returns the position
// after that space and the following line breaks.
func lineEnd(text string, pos int) (int, bool) {
	for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t') {
		pos++
	}
	if pos < len(text) && text[pos] != '\n' {
		return pos, false
	}
	return skipBlankLines(text, pos), true
}

// protectStandalone hides matches of re that sit in a block of their own:
// preceded by a blank line or the start of text,
// and followed by a blank line or the end of text.
func (s *blockStore) protectStandalone(text string, re *regexp.Regexp, verbatim bool) string {
	sb := new(strings.Builder)
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start < last || !blankBefore(text, start) || !blankAfter(text, end) {
			continue
		}
		end = skipBlankLines(text, end)
		sb.WriteString(text[last:start])
		sb.WriteString(s.store(blockRecord{open: text[start:end]}, verbatim))
		last = end
	}
	if last == 0 {
		return text
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// skipBlankLines returns the position after at most two line breaks
// starting at pos.
func skipBlankLines(text string, pos int) int {
	for n := 0; n < 2 && pos < len(text) && text[pos] == '\n'; n++ {
		pos++
	}
	return pos
}

func blankBefore(text string, pos int) bool {
	return pos == 0 || pos == 1 && text[0] == '\n' || strings.HasSuffix(text[:pos], "\n\n")
}

func blankAfter(text string, pos int) bool {
	rest := text[pos:]
	return rest == "" || rest == "\n" || strings.HasPrefix(rest, "\n\n")
}
