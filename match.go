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
)

// Match is a successful match of a formatter's pattern.
// Group numbers are relative to the formatter's own pattern,
// so the same [LineFormatter] sees the same numbering
// no matter where it sits in the registry.
type Match struct {
	source string
	// loc holds start/end pairs: the whole match first,
	// then one pair per capturing group.
	// A negative start marks a group that did not participate.
	loc []int
}

// Text returns the whole matched text.
func (m *Match) Text() string {
	return m.source[m.loc[0]:m.loc[1]]
}

// Group returns the text of capturing group i
// or the empty string if the group did not participate in the match.
func (m *Match) Group(i int) string {
	if !m.Has(i) {
		return ""
	}
	return m.source[m.loc[2*i]:m.loc[2*i+1]]
}

// Has reports whether capturing group i participated in the match.
// It distinguishes an empty group from an absent one.
func (m *Match) Has(i int) bool {
	return 2*i+1 < len(m.loc) && m.loc[2*i] >= 0
}

// NumGroups returns the number of capturing groups in the pattern.
func (m *Match) NumGroups() int {
	return len(m.loc)/2 - 1
}

// replaceAllSubmatchFunc replaces every match of re in s
// with the result of calling f.
func replaceAllSubmatchFunc(re *regexp.Regexp, s string, f func(*Match) string) string {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	sb := new(strings.Builder)
	sb.Grow(len(s))
	last := 0
	for _, loc := range locs {
		sb.WriteString(s[last:loc[0]])
		sb.WriteString(f(&Match{source: s, loc: loc}))
		last = loc[1]
	}
	sb.WriteString(s[last:])
	return sb.String()
}
