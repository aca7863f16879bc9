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
	"strconv"
	"strings"

	"github.com/shurcooL/sanitized_anchor_name"
	"golang.org/x/net/html"
)

// anchor returns a document-unique id for a heading
// whose rendered content is content.
func (s *State) anchor(content string) string {
	name := sanitized_anchor_name.Create(plainText(reveal(content)))
	if s.anchors == nil {
		s.anchors = make(map[string]int)
	}
	n := s.anchors[name]
	s.anchors[name] = n + 1
	if n > 0 {
		name += "-" + strconv.Itoa(n)
	}
	return name
}

// plainText returns the decoded text of an HTML fragment without its tags.
func plainText(fragment string) string {
	tok := html.NewTokenizer(strings.NewReader(fragment))
	sb := new(strings.Builder)
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(tok.Text())
		}
	}
}
