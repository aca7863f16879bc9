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

// Package normhtml normalizes HTML fragments for comparison in tests.
// Two fragments that a browser would lay out the same way
// normalize to the same string in most cases:
// whitespace around block elements is dropped,
// runs of whitespace outside of <pre> collapse to one space,
// attributes are sorted and character references are decoded.
package normhtml

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

var textEscaper = bytereplacer.New(
	"&", "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

// Normalize returns the normalized form of the HTML fragment s.
func Normalize(s string) string {
	n := &normalizer{tok: html.NewTokenizerFragment(strings.NewReader(s), "div")}
	n.run()
	return n.out.String()
}

type normalizer struct {
	tok     *html.Tokenizer
	out     strings.Builder
	last    html.TokenType
	lastTag atom.Atom
	pre     int
}

func (n *normalizer) run() {
	n.last = html.StartTagToken
	for {
		tt := n.tok.Next()
		switch tt {
		case html.ErrorToken:
			return
		case html.TextToken:
			n.text(string(n.tok.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			n.startTag()
		case html.EndTagToken:
			n.endTag()
		case html.CommentToken:
			n.out.WriteString("<!--")
			n.out.WriteString(strings.TrimSpace(string(n.tok.Text())))
			n.out.WriteString("-->")
		}
		n.last = tt
		if tt == html.SelfClosingTagToken {
			n.last = html.EndTagToken
		}
	}
}

func (n *normalizer) text(data string) {
	afterTag := n.last == html.StartTagToken || n.last == html.EndTagToken
	if afterTag && n.lastTag == atom.Br {
		data = strings.TrimLeft(data, "\n")
	}
	if n.pre == 0 {
		data = whitespaceRE.ReplaceAllLiteralString(data, " ")
		if afterTag && isBlock(n.lastTag) {
			if n.last == html.StartTagToken {
				data = strings.TrimLeftFunc(data, unicode.IsSpace)
			} else {
				data = strings.TrimSpace(data)
			}
		}
	}
	n.out.Write(textEscaper.Replace([]byte(data)))
}

func (n *normalizer) startTag() {
	name, hasAttr := n.tok.TagName()
	a := atom.Lookup(name)
	if a == atom.Pre {
		n.pre++
	}
	if isBlock(a) {
		n.trimRight()
	}
	n.out.WriteString("<")
	n.out.Write(name)
	if hasAttr {
		var attrs []html.Attribute
		for more := true; more; {
			var k, v []byte
			k, v, more = n.tok.TagAttr()
			attrs = append(attrs, html.Attribute{Key: string(k), Val: string(v)})
		}
		sort.Slice(attrs, func(i, j int) bool {
			return attrs[i].Key < attrs[j].Key
		})
		for _, attr := range attrs {
			n.out.WriteString(" ")
			n.out.WriteString(attr.Key)
			if attr.Val != "" {
				n.out.WriteString(`="`)
				n.out.WriteString(html.EscapeString(attr.Val))
				n.out.WriteString(`"`)
			}
		}
	}
	n.out.WriteString(">")
	n.lastTag = a
}

func (n *normalizer) endTag() {
	name, _ := n.tok.TagName()
	a := atom.Lookup(name)
	switch {
	case a == atom.Pre:
		if n.pre > 0 {
			n.pre--
		}
	case isBlock(a):
		n.trimRight()
	}
	n.out.WriteString("</")
	n.out.Write(name)
	n.out.WriteString(">")
	n.lastTag = a
}

func (n *normalizer) trimRight() {
	s := strings.TrimRightFunc(n.out.String(), unicode.IsSpace)
	n.out.Reset()
	n.out.WriteString(s)
}

var blockTags = map[atom.Atom]struct{}{
	atom.Blockquote: {},
	atom.Body:       {},
	atom.Dd:         {},
	atom.Del:        {},
	atom.Div:        {},
	atom.Dl:         {},
	atom.Dt:         {},
	atom.Fieldset:   {},
	atom.Form:       {},
	atom.H1:         {},
	atom.H2:         {},
	atom.H3:         {},
	atom.H4:         {},
	atom.H5:         {},
	atom.H6:         {},
	atom.Hr:         {},
	atom.Iframe:     {},
	atom.Ins:        {},
	atom.Li:         {},
	atom.Math:       {},
	atom.Noscript:   {},
	atom.Ol:         {},
	atom.P:          {},
	atom.Pre:        {},
	atom.Script:     {},
	atom.Table:      {},
	atom.Tbody:      {},
	atom.Td:         {},
	atom.Th:         {},
	atom.Thead:      {},
	atom.Tr:         {},
	atom.Ul:         {},
}

func isBlock(a atom.Atom) bool {
	_, ok := blockTags[a]
	return ok
}
