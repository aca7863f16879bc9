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
	"strconv"
	"strings"
)

// A BlockFormatter is a stage of block formatting.
// It receives the text of a sequence of blocks
// and returns it with the blocks it recognizes rendered as HTML.
// Rendered HTML should be hidden from later stages with [State.Protect].
type BlockFormatter interface {
	FormatBlock(s *State, text string) string
}

// BlockFunc is a function that implements [BlockFormatter].
type BlockFunc func(s *State, text string) string

// FormatBlock calls f(s, text).
func (f BlockFunc) FormatBlock(s *State, text string) string {
	return f(s, text)
}

// formatBlock runs the block stages in order:
// headings and horizontal rules first,
// then the registered stages (lists, code blocks, block quotes, extensions)
// and finally paragraphs.
func (s *State) formatBlock(text string) string {
	text = formatHeadings(s, text)
	text = formatRules(s, text)
	for _, bf := range s.f.blocks {
		text = bf.FormatBlock(s, text)
	}
	return formatParagraphs(s, text)
}

var (
	atxHeadingRE    = regexp.MustCompile(`(?m)^(#{1,6})[ ]*(.+?)[ ]*#*(?:\n+|\z)`)
	setextHeadingRE = regexp.MustCompile(`(?m)^(.+?)[ ]*\n(=+|-+)[ ]*(?:\n+|\z)`)
)

func formatHeadings(s *State, text string) string {
	text = replaceAllSubmatchFunc(atxHeadingRE, text, func(m *Match) string {
		return s.headingHTML(len(m.Group(1)), m.Group(2))
	})
	return replaceAllSubmatchFunc(setextHeadingRE, text, func(m *Match) string {
		level := 2
		if m.Group(2)[0] == '=' {
			level = 1
		}
		return s.headingHTML(level, m.Group(1))
	})
}

func (s *State) headingHTML(level int, text string) string {
	n := strconv.Itoa(level)
	sb := new(strings.Builder)
	sb.WriteString("<h")
	sb.WriteString(n)
	content := s.FormatLine(text)
	if s.f.opts.HeadingIDs {
		sb.WriteString(` id="`)
		sb.WriteString(EscapeAttribute(s.anchor(content)))
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	sb.WriteString(content)
	sb.WriteString("</h")
	sb.WriteString(n)
	sb.WriteString(">\n\n")
	return sb.String()
}

var ruleRE = regexp.MustCompile(`(?m)^[ ]{0,2}(?:(?:\*[ ]{0,2}){3,}|(?:-[ ]{0,2}){3,}|(?:_[ ]{0,2}){3,})[ ]*$`)

// formatRules replaces horizontal rules with <hr /> in a block of its own.
func formatRules(s *State, text string) string {
	return ruleRE.ReplaceAllLiteralString(text, "\n<hr />\n")
}

var (
	listMarkerRE = regexp.MustCompile(`^([ ]*)([*+-]|\d+\.)[ ]+`)
	outdentRE    = regexp.MustCompile(`(?m)^[ ]{1,4}`)
)

// outdent removes one level of indentation from every line of text.
func outdent(text string) string {
	return outdentRE.ReplaceAllLiteralString(text, "")
}

func isListItem(line string) bool {
	return listMarkerRE.MatchString(line)
}

// formatLists renders every list in text.
// A list starts at a line with a bullet or number marker
// indented by at most three spaces.
func formatLists(s *State, text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		m := listMarkerRE.FindStringSubmatch(lines[i])
		if m == nil || len(m[1]) > 3 {
			out = append(out, lines[i])
			i++
			continue
		}
		end := listEnd(lines, i)
		out = append(out, s.listHTML(lines[i:end]))
		i = end
	}
	return strings.Join(out, "\n")
}

// listEnd returns the index of the first line after the list
// that starts at lines[start].
// A list continues through blank lines
// as long as the next non-blank line is indented or is a list item.
func listEnd(lines []string, start int) int {
	i := start + 1
	for i < len(lines) {
		if lines[i] != "" {
			i++
			continue
		}
		next := i
		for next < len(lines) && lines[next] == "" {
			next++
		}
		if next == len(lines) || !strings.HasPrefix(lines[next], " ") && !isListItem(lines[next]) {
			return i
		}
		i = next
	}
	return i
}

type listItem struct {
	lines []string
	loose bool
}

func (s *State) listHTML(lines []string) string {
	first := listMarkerRE.FindStringSubmatch(lines[0])
	indent := len(first[1])
	tag := "ul"
	if c := first[2][0]; '0' <= c && c <= '9' {
		tag = "ol"
	}

	var items []*listItem
	var curr *listItem
	for i, line := range lines {
		if m := listMarkerRE.FindStringSubmatch(line); m != nil && len(m[1]) <= indent {
			curr = &listItem{lines: []string{line[len(m[0]):]}}
			curr.loose = i > 0 && lines[i-1] == ""
			items = append(items, curr)
			continue
		}
		curr.lines = append(curr.lines, line)
		if line == "" {
			curr.loose = true
		}
	}

	sb := new(strings.Builder)
	sb.WriteString("<" + tag + ">\n")
	for _, item := range items {
		sb.WriteString("<li>")
		sb.WriteString(s.listItemHTML(item))
		sb.WriteString("</li>\n")
	}
	sb.WriteString("</" + tag + ">")
	return sb.String()
}

// listItemHTML renders the content of a list item.
// Loose items are formatted as blocks.
// Tight items are formatted as a single line,
// except for any nested lists.
func (s *State) listItemHTML(item *listItem) string {
	for len(item.lines) > 0 && item.lines[len(item.lines)-1] == "" {
		item.lines = item.lines[:len(item.lines)-1]
	}
	content := outdent(strings.Join(item.lines, "\n"))
	if item.loose {
		return s.Protect(s.FormatBlock(content + "\n"))
	}

	if s.depth < s.f.opts.MaxDepth {
		s.depth++
		content = formatLists(s, content)
		s.depth--
	}
	content = strings.Trim(s.Protect(content), "\n")
	chunks := blankLinesRE.Split(content, -1)
	for i, chunk := range chunks {
		if !isBlockKey(chunk) {
			chunks[i] = s.FormatLine(strings.TrimRight(chunk, " \n"))
		}
	}
	return strings.Join(chunks, "\n")
}

func isCodeLine(line string) bool {
	return strings.HasPrefix(line, strings.Repeat(" ", tabStopSize))
}

// formatCodeBlocks renders runs of lines indented by four or more spaces
// that follow a blank line or the start of text.
func formatCodeBlocks(s *State, text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		if !isCodeLine(lines[i]) || i > 0 && lines[i-1] != "" {
			out = append(out, lines[i])
			i++
			continue
		}
		last := i
		for j := i; j < len(lines) && (lines[j] == "" || isCodeLine(lines[j])); j++ {
			if lines[j] != "" {
				last = j
			}
		}
		code := outdent(strings.Join(lines[i:last+1], "\n"))
		out = append(out, "", "<pre><code>"+shieldCode(code)+"\n</code></pre>", "")
		i = last + 1
	}
	return strings.Join(out, "\n")
}

var quotePrefixRE = regexp.MustCompile(`^[ ]*>[ ]?`)

func isQuoteLine(line string) bool {
	return quotePrefixRE.MatchString(line)
}

// formatBlockQuotes renders runs of lines starting with '>'.
// A block quote also takes in the lines that directly follow it
// and any later '>' lines separated from it only by blank lines.
func formatBlockQuotes(s *State, text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		if !isQuoteLine(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		end := i
		for {
			for end < len(lines) && lines[end] != "" {
				end++
			}
			next := end
			for next < len(lines) && lines[next] == "" {
				next++
			}
			if next == len(lines) || !isQuoteLine(lines[next]) {
				break
			}
			end = next
		}
		quoted := make([]string, 0, end-i)
		for _, line := range lines[i:end] {
			quoted = append(quoted, quotePrefixRE.ReplaceAllLiteralString(line, ""))
		}
		content := s.Protect(s.FormatBlock(strings.Join(quoted, "\n") + "\n"))
		out = append(out, "<blockquote>\n"+strings.Trim(content, "\n")+"\n</blockquote>", "")
		i = end
	}
	return strings.Join(out, "\n")
}

var blankLinesRE = regexp.MustCompile(`\n{2,}`)

// formatParagraphs is the last block stage.
// It splits text at blank lines.
// Chunks that are keys of protected blocks become the protected HTML
// and every other chunk is formatted as a paragraph.
func formatParagraphs(s *State, text string) string {
	text = strings.Trim(s.Protect(text), "\n")
	sb := new(strings.Builder)
	trailing := 0
	for _, chunk := range blankLinesRE.Split(text, -1) {
		var html string
		switch {
		case isBlockKey(chunk):
			html = s.blocks.resolve(chunk)
		case strings.TrimSpace(chunk) == "":
			continue
		default:
			html = "<p>" + s.FormatLine(strings.TrimLeft(chunk, " ")) + "</p>"
		}
		if sb.Len() > 0 {
			// Separate blocks by exactly one blank line.
			sb.WriteString("\n\n"[min(trailing, 2):])
		}
		sb.WriteString(html)
		trailing = len(html) - len(strings.TrimRight(html, "\n"))
	}
	return sb.String()
}
