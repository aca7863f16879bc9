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

	"golang.org/x/text/cases"
)

// LinkDefinition is the data of a link reference definition
// like `[id]: http://example.com/ "Title"`.
// Destination is already attribute-escaped; Title is quote-escaped.
type LinkDefinition struct {
	Destination  string
	Title        string
	TitlePresent bool
}

// ReferenceMap is a mapping of normalized reference ids to link definitions.
type ReferenceMap map[string]LinkDefinition

// NormalizeReference returns the key under which a reference id is stored.
// Ids are case-insensitive and runs of whitespace compare equal.
func NormalizeReference(id string) string {
	return cases.Fold().String(strings.Join(strings.Fields(id), " "))
}

// Lookup returns the definition for id, matched case-insensitively.
func (m ReferenceMap) Lookup(id string) (LinkDefinition, bool) {
	def, ok := m[NormalizeReference(id)]
	return def, ok
}

// Add records a definition for id.
// In case of conflicts,
// Add will not replace an existing definition
// and reports false, so the first definition in source order wins.
func (m ReferenceMap) Add(id string, def LinkDefinition) bool {
	key := NormalizeReference(id)
	if _, exists := m[key]; key == "" || exists {
		return false
	}
	m[key] = def
	return true
}

// referenceDefinitionRE matches one link reference definition:
// up to three spaces of indent, the bracketed id, a colon,
// the destination optionally in angle brackets
// and an optional title on the same or the following line.
var referenceDefinitionRE = regexp.MustCompile(`(?m)^[ ]{0,3}\[([^\]\n]+)\]:[ ]*\n?[ ]*<?([^\s>]+)>?(?:(?:[ ]+\n?|\n)[ ]*["(](.*?)[")])?[ ]*(?:\n+|\z)`)

// collect removes every link reference definition from text
// and adds it to m.
func (m ReferenceMap) collect(text string) string {
	return replaceAllSubmatchFunc(referenceDefinitionRE, text, func(sm *Match) string {
		def := LinkDefinition{
			Destination:  encodeAmpsAndAngles(sm.Group(2)),
			TitlePresent: sm.Has(3),
		}
		if def.TitlePresent {
			def.Title = strings.ReplaceAll(sm.Group(3), `"`, "&quot;")
		}
		if !m.Add(sm.Group(1), def) {
			tracer().Debugf("markdown: duplicate reference [%s] ignored", sm.Group(1))
		}
		return ""
	})
}
