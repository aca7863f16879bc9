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
	"html/template"
	"math/rand"
	"time"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'markdown'.
func tracer() tracing.Trace {
	return tracing.Select("markdown")
}

// DefaultMaxDepth is the nesting depth used when [Options.MaxDepth] is zero.
const DefaultMaxDepth = 16

// CacheTTL is how long a [Formatter] asks its [Cache] to keep a result.
const CacheTTL = 52 * 7 * 24 * time.Hour

// Options is the set of optional parameters to [New].
type Options struct {
	// Cache, if not nil, memoizes results by a hash of the input.
	Cache Cache
	// HeadingIDs adds an id attribute derived from the heading text
	// to every heading.
	HeadingIDs bool
	// MaxDepth bounds how deeply lists and block quotes
	// are formatted recursively.
	// Content nested deeper is formatted as plain paragraphs.
	MaxDepth int
	// Rand returns a random number in [0, n).
	// It chooses how e-mail addresses are obfuscated.
	// If nil, math/rand.Intn is used.
	Rand func(n int) int
}

// Formatter converts Markdown to HTML.
//
// A Formatter is safe to use from multiple goroutines,
// except that its methods that register formatters
// must not be called concurrently with other methods.
type Formatter struct {
	opts   Options
	lines  *lineEngine
	blocks []BlockFormatter
}

// New returns a Formatter with the standard line and block formatters.
// A nil opts is treated the same as the zero value.
func New(opts *Options) *Formatter {
	f := new(Formatter)
	if opts != nil {
		f.opts = *opts
	}
	if f.opts.MaxDepth <= 0 {
		f.opts.MaxDepth = DefaultMaxDepth
	}
	if f.opts.Rand == nil {
		f.opts.Rand = rand.Intn
	}
	lines, err := compileLineEngine(StandardLineFormatters())
	if err != nil {
		panic(err)
	}
	f.lines = lines
	f.blocks = []BlockFormatter{
		BlockFunc(formatLists),
		BlockFunc(formatCodeBlocks),
		BlockFunc(formatBlockQuotes),
	}
	return f
}

// PrependLineFormatter registers lf ahead of every registered line formatter,
// so that it takes precedence over them.
func (f *Formatter) PrependLineFormatter(lf LineFormatter) error {
	return f.setLineFormatters(append([]LineFormatter{lf}, f.lines.formatters...))
}

// AppendLineFormatter registers lf after every registered line formatter.
func (f *Formatter) AppendLineFormatter(lf LineFormatter) error {
	list := make([]LineFormatter, 0, len(f.lines.formatters)+1)
	list = append(list, f.lines.formatters...)
	return f.setLineFormatters(append(list, lf))
}

func (f *Formatter) setLineFormatters(list []LineFormatter) error {
	lines, err := compileLineEngine(list)
	if err != nil {
		return err
	}
	f.lines = lines
	return nil
}

// AddBlockFormatter registers bf as a block stage
// that runs after the block quote stage and before paragraphs are formed.
// Stages run in the order they were added.
func (f *Formatter) AddBlockFormatter(bf BlockFormatter) error {
	if bf == nil {
		return &ConfigError{Err: ErrNilFormatter}
	}
	if fn, ok := bf.(BlockFunc); ok && fn == nil {
		return &ConfigError{Err: ErrNilFormatter}
	}
	f.blocks = append(f.blocks, bf)
	return nil
}

// HTML formats text and marks the result as safe
// for use in an [html/template].
func (f *Formatter) HTML(text string) template.HTML {
	return template.HTML(f.Format(text))
}

// FuncMap returns template functions named "markdown" and "md"
// that format their argument with f.
func (f *Formatter) FuncMap() template.FuncMap {
	return template.FuncMap{
		"markdown": f.HTML,
		"md":       f.HTML,
	}
}

// State is the mutable state of a single call to [Formatter.Format].
// It holds the link reference definitions and protected HTML blocks
// of the document being formatted
// and is shared by every nested block of that document.
type State struct {
	f           *Formatter
	refs        ReferenceMap
	blocks      *blockStore
	depth       int
	inlineDepth int
	anchors     map[string]int
}

func (f *Formatter) newState() *State {
	return &State{
		f:      f,
		refs:   make(ReferenceMap),
		blocks: newBlockStore(),
	}
}

// Depth returns the current block nesting depth.
// The document itself is at depth zero.
func (s *State) Depth() int {
	return s.depth
}

// References returns the link reference definitions of the document.
// The map must not be modified.
func (s *State) References() ReferenceMap {
	return s.refs
}

// Reference looks up a link reference definition by id.
func (s *State) Reference(id string) (LinkDefinition, bool) {
	return s.refs.Lookup(id)
}

func (s *State) lookupReference(id, text string) (LinkDefinition, bool) {
	if id == "" {
		id = text
	}
	def, ok := s.refs.Lookup(id)
	if !ok {
		tracer().Debugf("markdown: unresolved reference [%s]", id)
	}
	return def, ok
}

// Protect hides block-level HTML in text from further formatting.
// Each protected region is replaced by an opaque key
// on a line of its own, which is resolved when paragraphs are formed.
func (s *State) Protect(text string) string {
	return s.blocks.protect(text, false)
}

// FormatLine formats inline Markdown in text.
func (s *State) FormatLine(text string) string {
	if s.inlineDepth >= s.f.opts.MaxDepth {
		tracer().Debugf("markdown: inline nesting deeper than %d left as text", s.f.opts.MaxDepth)
		return text
	}
	s.inlineDepth++
	defer func() { s.inlineDepth-- }()
	return s.f.lines.format(s, text)
}

// FormatBlock formats text as a nested sequence of blocks,
// for example the content of a list item.
func (s *State) FormatBlock(text string) string {
	if s.depth >= s.f.opts.MaxDepth {
		tracer().Debugf("markdown: block nesting deeper than %d formatted as paragraphs", s.f.opts.MaxDepth)
		return formatParagraphs(s, text)
	}
	s.depth++
	defer func() { s.depth-- }()
	return s.formatBlock(text)
}

func (s *State) intn(n int) int {
	return s.f.opts.Rand(n)
}
