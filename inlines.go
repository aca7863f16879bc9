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

// A LineFormatter renders one kind of inline span.
//
// Every registered LineFormatter contributes its pattern
// as one alternative of a single regular expression
// that is evaluated once over each line of text.
// When several alternatives match at the same position,
// the formatter registered earliest wins.
type LineFormatter interface {
	// Name identifies the formatter in errors and traces.
	Name() string
	// Pattern returns the formatter's regular expression in RE2 syntax.
	// It must not match the empty string.
	Pattern() string
	// FormatMatch returns the HTML for a match of the pattern.
	FormatMatch(s *State, m *Match) string
}

// A Preparer is a [LineFormatter] that needs to see
// the whole document before any block is formatted,
// for example to collect definitions.
type Preparer interface {
	LineFormatter
	Prepare(s *State, text string) string
}

// lineEngine is a compiled, ordered set of line formatters.
type lineEngine struct {
	formatters []LineFormatter
	re         *regexp.Regexp
	// groups[i] is the index of the capturing group
	// that wraps the i'th formatter's pattern.
	groups []int
	// sizes[i] is the number of capturing groups in the i'th pattern.
	sizes []int
}

func compileLineEngine(formatters []LineFormatter) (*lineEngine, error) {
	e := &lineEngine{
		formatters: formatters,
		groups:     make([]int, len(formatters)),
		sizes:      make([]int, len(formatters)),
	}
	sb := new(strings.Builder)
	next := 1
	for i, lf := range formatters {
		if err := checkLineFormatter(lf); err != nil {
			return nil, err
		}
		re := regexp.MustCompile(lf.Pattern())
		e.groups[i] = next
		e.sizes[i] = re.NumSubexp()
		next += 1 + e.sizes[i]
		if i > 0 {
			sb.WriteString("|")
		}
		sb.WriteString("(")
		sb.WriteString(lf.Pattern())
		sb.WriteString(")")
	}
	if len(formatters) > 0 {
		e.re = regexp.MustCompile(sb.String())
	}
	return e, nil
}

// checkLineFormatter reports whether lf can take part in a lineEngine.
func checkLineFormatter(lf LineFormatter) error {
	if lf == nil {
		return &ConfigError{Err: ErrNilFormatter}
	}
	re, err := regexp.Compile(lf.Pattern())
	if err != nil {
		return &ConfigError{Formatter: lf.Name(), Err: err}
	}
	if re.MatchString("") {
		return &ConfigError{Formatter: lf.Name(), Err: ErrEmptyMatch}
	}
	return nil
}

// format runs every formatter over line in a single pass
// and turns the remaining line breaks into <br /> elements.
func (e *lineEngine) format(s *State, line string) string {
	if e.re != nil {
		line = replaceAllSubmatchFunc(e.re, line, func(m *Match) string {
			for i, g := range e.groups {
				if m.loc[2*g] < 0 {
					continue
				}
				sub := &Match{
					source: m.source,
					loc:    m.loc[2*g : 2*(g+e.sizes[i]+1)],
				}
				return e.formatters[i].FormatMatch(s, sub)
			}
			panic("unreachable")
		})
	}
	return strings.ReplaceAll(line, "\n", "<br />")
}

// StandardLineFormatters returns the built-in inline formatters
// in precedence order: code spans, images, image references, links,
// link references, automatic links, automatic e-mail links,
// raw inline tags, strong emphasis and emphasis.
func StandardLineFormatters() []LineFormatter {
	return []LineFormatter{
		codeSpanFormatter{},
		imageFormatter{},
		imageReferenceFormatter{},
		linkFormatter{},
		linkReferenceFormatter{},
		autoLinkFormatter{},
		autoEmailFormatter{},
		inlineTagFormatter{},
		strongFormatter{},
		emphasisFormatter{},
	}
}

// destination matches an optionally angle-bracketed link destination,
// followed by an optional double-quoted title.
const destination = `\(\s*<?([^\s)>]*)>?(?:\s+"(.*?)")?\s*\)`

// linkText matches bracketed link text, which may contain an image.
const linkText = `\[((?:[^\[\]]|!\[[^\]]*\]\([^)]*\))+)\]`

// Delimited content must neither start nor end with whitespace.
const delimited = `(\S(?:.*?\S)??)`

type codeSpanFormatter struct{}

func (codeSpanFormatter) Name() string    { return "code" }
func (codeSpanFormatter) Pattern() string { return "``[ ]?(.+?)[ ]?``|`([^`]+)`" }

func (codeSpanFormatter) FormatMatch(s *State, m *Match) string {
	code := m.Group(1)
	if !m.Has(1) {
		code = strings.Trim(m.Group(2), " ")
	}
	return "<code>" + shieldCode(code) + "</code>"
}

// shieldCode prepares text for display inside a code element.
// Escaped characters get their backslashes back,
// since backslashes are literal in code.
func shieldCode(code string) string {
	return shield(escapeHTML(Unescape(code)))
}

type imageFormatter struct{}

func (imageFormatter) Name() string    { return "image" }
func (imageFormatter) Pattern() string { return `!\[([^\]]*)\]` + destination }

func (imageFormatter) FormatMatch(s *State, m *Match) string {
	return imageHTML(m.Group(2), m.Group(3), m.Has(3), m.Group(1))
}

type imageReferenceFormatter struct{}

func (imageReferenceFormatter) Name() string    { return "image reference" }
func (imageReferenceFormatter) Pattern() string { return `!\[([^\]]*)\]\s?\[([^\]]*)\]` }

func (imageReferenceFormatter) FormatMatch(s *State, m *Match) string {
	def, ok := s.lookupReference(m.Group(2), m.Group(1))
	if !ok {
		return m.Text()
	}
	return imageHTML(def.Destination, def.Title, def.TitlePresent, m.Group(1))
}

func imageHTML(src, title string, titlePresent bool, alt string) string {
	sb := new(strings.Builder)
	sb.WriteString(`<img src="`)
	sb.WriteString(EscapeAttribute(src))
	sb.WriteString(`"`)
	if titlePresent {
		sb.WriteString(` title="`)
		sb.WriteString(EscapeAttribute(title))
		sb.WriteString(`"`)
	}
	sb.WriteString(` alt="`)
	sb.WriteString(EscapeAttribute(alt))
	sb.WriteString(`" />`)
	return sb.String()
}

type linkFormatter struct{}

func (linkFormatter) Name() string    { return "link" }
func (linkFormatter) Pattern() string { return linkText + destination }

func (linkFormatter) FormatMatch(s *State, m *Match) string {
	return linkHTML(m.Group(2), m.Group(3), m.Has(3), s.FormatLine(m.Group(1)))
}

type linkReferenceFormatter struct{}

func (linkReferenceFormatter) Name() string    { return "link reference" }
func (linkReferenceFormatter) Pattern() string { return linkText + `\s?\[([^\]]*)\]` }

func (linkReferenceFormatter) FormatMatch(s *State, m *Match) string {
	def, ok := s.lookupReference(m.Group(2), m.Group(1))
	if !ok {
		return m.Text()
	}
	return linkHTML(def.Destination, def.Title, def.TitlePresent, s.FormatLine(m.Group(1)))
}

func linkHTML(href, title string, titlePresent bool, content string) string {
	sb := new(strings.Builder)
	sb.WriteString(`<a href="`)
	sb.WriteString(EscapeAttribute(href))
	sb.WriteString(`"`)
	if titlePresent {
		sb.WriteString(` title="`)
		sb.WriteString(EscapeAttribute(title))
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	sb.WriteString(content)
	sb.WriteString("</a>")
	return sb.String()
}

type autoLinkFormatter struct{}

func (autoLinkFormatter) Name() string    { return "autolink" }
func (autoLinkFormatter) Pattern() string { return `<((?:https?|ftp)://[^>\s]+)>` }

func (autoLinkFormatter) FormatMatch(s *State, m *Match) string {
	url := EscapeAttribute(m.Group(1))
	return `<a href="` + url + `">` + url + `</a>`
}

type autoEmailFormatter struct{}

func (autoEmailFormatter) Name() string { return "autoemail" }
func (autoEmailFormatter) Pattern() string {
	return `<(?:mailto:)?([-.\w+]+@[-\w]+(?:\.[-\w]+)*)>`
}

func (autoEmailFormatter) FormatMatch(s *State, m *Match) string {
	addr := m.Group(1)
	return `<a href="` + s.obfuscate("mailto:"+addr) + `">` + s.obfuscate(addr) + `</a>`
}

// obfuscate encodes each character of addr at random
// as itself, a decimal character reference or a hexadecimal one.
func (s *State) obfuscate(addr string) string {
	sb := new(strings.Builder)
	for _, c := range addr {
		switch s.intn(3) {
		case 0:
			sb.WriteString("&#")
			sb.WriteString(strconv.Itoa(int(c)))
			sb.WriteString(";")
		case 1:
			sb.WriteRune(c)
		default:
			sb.WriteString("&#x")
			sb.WriteString(strconv.FormatInt(int64(c), 16))
			sb.WriteString(";")
		}
	}
	return sb.String()
}

// inlineTagFormatter passes raw inline HTML tags through untouched,
// so that attribute values are not mistaken for emphasis.
type inlineTagFormatter struct{}

func (inlineTagFormatter) Name() string    { return "inline tag" }
func (inlineTagFormatter) Pattern() string { return `</?[A-Za-z][A-Za-z0-9]*(?:\s[^<>]*)?/?>` }

func (inlineTagFormatter) FormatMatch(s *State, m *Match) string {
	return m.Text()
}

type strongFormatter struct{}

func (strongFormatter) Name() string { return "strong" }
func (strongFormatter) Pattern() string {
	return `\*\*\*` + delimited + `\*\*\*|___` + delimited + `___|` +
		`\*\*` + delimited + `\*\*|__` + delimited + `__`
}

func (strongFormatter) FormatMatch(s *State, m *Match) string {
	for i := 1; i <= 2; i++ {
		if m.Has(i) {
			return "<strong><em>" + s.FormatLine(m.Group(i)) + "</em></strong>"
		}
	}
	content := m.Group(3)
	if !m.Has(3) {
		content = m.Group(4)
	}
	return "<strong>" + s.FormatLine(content) + "</strong>"
}

type emphasisFormatter struct{}

func (emphasisFormatter) Name() string    { return "emphasis" }
func (emphasisFormatter) Pattern() string {
	return `\*` + emphasisContent(`\*`) + `\*|_` + emphasisContent(`_`) + `_`
}

// emphasisContent returns a group matching the content of emphasis
// delimited by d. The content may hold strong emphasis or a lone d
// followed by a space, but no other d, and may not span lines.
func emphasisContent(d string) string {
	strong := d + d + `[^` + d + `\n]+` + d + d
	edge := `[^\s` + d + `]|` + strong
	token := `[^` + d + `\n]|` + strong + `|` + d + `[ ]`
	return `((?:` + edge + `)(?:(?:` + token + `)*?(?:` + edge + `))??)`
}

func (emphasisFormatter) FormatMatch(s *State, m *Match) string {
	content := m.Group(1)
	if !m.Has(1) {
		content = m.Group(2)
	}
	return "<em>" + s.FormatLine(content) + "</em>"
}
