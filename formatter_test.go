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

package markdown_test

import (
	"errors"
	"html/template"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/google/go-cmp/cmp"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/net/html"
	"zombiezen.com/go/markdown"
	"zombiezen.com/go/markdown/cache"
	"zombiezen.com/go/markdown/internal/golden"
	"zombiezen.com/go/markdown/internal/normhtml"
)

func TestGolden(t *testing.T) {
	cases, err := golden.Load()
	if err != nil {
		t.Fatal(err)
	}
	f := markdown.New(nil)
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			got := normhtml.Normalize(f.Format(c.Markdown))
			want := normhtml.Normalize(c.HTML)
			if got == want {
				return
			}
			diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(splitTags(want)),
				B:        difflib.SplitLines(splitTags(got)),
				FromFile: "want",
				ToFile:   "got",
				Context:  3,
			})
			if err != nil {
				t.Fatal(err)
			}
			t.Errorf("Input:\n%s\nOutput:\n%s", c.Markdown, diff)
		})
	}
}

// splitTags puts every tag of normalized HTML on a line of its own.
func splitTags(s string) string {
	return strings.ReplaceAll(s, "><", ">\n<") + "\n"
}

func parseHTML(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func textContent(n *html.Node) string {
	sb := new(strings.Builder)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func TestFormatProperties(t *testing.T) {
	f := markdown.New(nil)
	tests := []struct {
		text string
		want string
	}{
		{"# Hello", "<h1>Hello</h1>\n\n"},
		{"*italic*", "<p><em>italic</em></p>"},
		{"\\*not emphasis\\*", "<p>*not emphasis*</p>"},
		{`[text](http://example.com "Title")`, `<p><a href="http://example.com" title="Title">text</a></p>`},
		{"", ""},
	}
	for _, test := range tests {
		if got := f.Format(test.text); got != test.want {
			t.Errorf("Format(%q) = %q; want %q", test.text, got, test.want)
		}
	}
}

func TestFormatEmailDecodes(t *testing.T) {
	f := markdown.New(nil)
	links := cascadia.MustCompile("p > a")
	for i := 0; i < 20; i++ {
		out := f.Format("<user@example.com>")
		decoded := html.UnescapeString(out)
		if want := `<p><a href="mailto:user@example.com">user@example.com</a></p>`; decoded != want {
			t.Errorf("UnescapeString(Format(...)) = %q; want %q", decoded, want)
		}
		found := links.MatchAll(parseHTML(t, out))
		if len(found) != 1 {
			t.Fatalf("Format(...) = %q; want a single link in a paragraph", out)
		}
		if got, want := attr(found[0], "href"), "mailto:user@example.com"; got != want {
			t.Errorf("href = %q (from %q); want %q", got, out, want)
		}
		if got, want := textContent(found[0]), "user@example.com"; got != want {
			t.Errorf("link text = %q (from %q); want %q", got, out, want)
		}
	}
}

func TestFormatStructure(t *testing.T) {
	tests := []struct {
		text     string
		selector string
		count    int
	}{
		{"* a\n* b", "ul > li", 2},
		{"* a\n* b", "p", 0},
		{"1. a\n2. b\n3. c", "ol > li", 3},
		{"> outer\n>\n> > inner", "blockquote > blockquote", 1},
		{"> outer\n>\n> > inner", "blockquote > blockquote > p", 1},
		{"* a\n    * b\n    * c\n* d", "ul > li > ul > li", 2},
		{"> * a\n> * b", "blockquote > ul > li", 2},
		{"Title\n=====\n\ntext", "body > h1, body > p", 2},
	}
	f := markdown.New(nil)
	for _, test := range tests {
		out := f.Format(test.text)
		sel := cascadia.MustCompile(test.selector)
		if got := len(sel.MatchAll(parseHTML(t, out))); got != test.count {
			t.Errorf("Format(%q) = %q; matches %q %d times, want %d", test.text, out, test.selector, got, test.count)
		}
	}
}

type countingCache struct {
	mu      sync.Mutex
	entries map[string]string
	gets    int
	stores  int
	ttl     time.Duration
}

func (c *countingCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func (c *countingCache) Get(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.entries[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (c *countingCache) Store(key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	c.stores++
	c.ttl = ttl
	c.entries[key] = value
	return nil
}

func TestFormatCache(t *testing.T) {
	c := new(countingCache)
	f := markdown.New(&markdown.Options{Cache: c})
	const text = "Some *text*"
	first := f.Format(text)
	if c.stores != 1 || c.gets != 0 {
		t.Errorf("after first Format: %d stores, %d gets; want 1 store, 0 gets", c.stores, c.gets)
	}
	if c.ttl != markdown.CacheTTL {
		t.Errorf("stored with ttl %v; want %v", c.ttl, markdown.CacheTTL)
	}
	if got := c.entries[markdown.CacheKey(text)]; got != first {
		t.Errorf("cache entry = %q; want %q", got, first)
	}
	second := f.Format(text)
	if c.stores != 1 || c.gets != 1 {
		t.Errorf("after second Format: %d stores, %d gets; want 1 store, 1 get", c.stores, c.gets)
	}
	if second != first {
		t.Errorf("second Format = %q; want %q", second, first)
	}
}

func TestCacheKey(t *testing.T) {
	// SHA-1 of "abc".
	const want = "a9993e364706816aba3e25717850c26c9cd0d89d"
	if got := markdown.CacheKey("abc"); got != want {
		t.Errorf("CacheKey(\"abc\") = %q; want %q", got, want)
	}
}

type textFunc func(string) string

func (f textFunc) Format(text string) string { return f(text) }

func TestChain(t *testing.T) {
	calls := 0
	shout := textFunc(func(s string) string {
		calls++
		return strings.ToUpper(s)
	})
	mem := new(cache.Memory)
	chain := markdown.NewChain(mem, shout)
	chain.Add(markdown.New(nil))

	for i := 0; i < 2; i++ {
		if got, want := chain.Format("*hi*"), "<p><em>HI</em></p>"; got != want {
			t.Errorf("chain.Format(\"*hi*\") #%d = %q; want %q", i+1, got, want)
		}
	}
	if calls != 1 {
		t.Errorf("first formatter called %d times; want 1", calls)
	}
	if mem.Len() != 1 {
		t.Errorf("cache has %d entries; want 1", mem.Len())
	}
}

func TestFormatConcurrent(t *testing.T) {
	const text = "# Title\n\n" +
		"* one\n* two\n\n" +
		"> quoted [link][ref]\n\n" +
		"<div>\nraw\n</div>\n\n" +
		"[ref]: /somewhere\n"
	f := markdown.New(nil)
	want := f.Format(text)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if got := f.Format(text); got != want {
					t.Errorf("concurrent Format = %q; want %q", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

type mentionFormatter struct{}

func (mentionFormatter) Name() string    { return "mention" }
func (mentionFormatter) Pattern() string { return `@(\w+)` }

func (mentionFormatter) FormatMatch(s *markdown.State, m *markdown.Match) string {
	return `<a href="/u/` + markdown.EscapeAttribute(m.Group(1)) + `">@` + m.Group(1) + `</a>`
}

type patternFormatter string

func (p patternFormatter) Name() string    { return "broken" }
func (p patternFormatter) Pattern() string { return string(p) }

func (p patternFormatter) FormatMatch(s *markdown.State, m *markdown.Match) string {
	return m.Text()
}

func TestRegisterLineFormatter(t *testing.T) {
	const want = `<p>hi <a href="/u/bob">@bob</a> and <em>you</em></p>`
	register := map[string]func(*markdown.Formatter, markdown.LineFormatter) error{
		"Prepend": (*markdown.Formatter).PrependLineFormatter,
		"Append":  (*markdown.Formatter).AppendLineFormatter,
	}
	for name, reg := range register {
		t.Run(name, func(t *testing.T) {
			f := markdown.New(nil)
			if err := reg(f, mentionFormatter{}); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want, f.Format("hi @bob and *you*")); diff != "" {
				t.Errorf("Format (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegisterLineFormatterErrors(t *testing.T) {
	tests := []struct {
		name     string
		lf       markdown.LineFormatter
		wantName string
		wantErr  error
	}{
		{name: "Nil", lf: nil, wantErr: markdown.ErrNilFormatter},
		{name: "EmptyMatch", lf: patternFormatter(`a*`), wantName: "broken", wantErr: markdown.ErrEmptyMatch},
		{name: "BadPattern", lf: patternFormatter(`(`), wantName: "broken"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := markdown.New(nil)
			err := f.PrependLineFormatter(test.lf)
			var cerr *markdown.ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("PrependLineFormatter(...) = %v; want *ConfigError", err)
			}
			if cerr.Formatter != test.wantName {
				t.Errorf("ConfigError.Formatter = %q; want %q", cerr.Formatter, test.wantName)
			}
			if test.wantErr != nil && !errors.Is(err, test.wantErr) {
				t.Errorf("PrependLineFormatter(...) = %v; want %v", err, test.wantErr)
			}
			if got, want := f.Format("*still works*"), "<p><em>still works</em></p>"; got != want {
				t.Errorf("after failed registration, Format = %q; want %q", got, want)
			}
		})
	}
}

func TestAddBlockFormatter(t *testing.T) {
	f := markdown.New(nil)
	err := f.AddBlockFormatter(markdown.BlockFunc(func(s *markdown.State, text string) string {
		return strings.ReplaceAll(text, "%%%", s.Protect(`<div class="sep"></div>`))
	}))
	if err != nil {
		t.Fatal(err)
	}
	got := f.Format("a\n\n%%%\n\nb")
	want := "<p>a</p>\n\n<div class=\"sep\"></div>\n\n<p>b</p>"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format (-want +got):\n%s", diff)
	}
}

func TestAddBlockFormatterNil(t *testing.T) {
	f := markdown.New(nil)
	for _, bf := range []markdown.BlockFormatter{nil, markdown.BlockFunc(nil)} {
		if err := f.AddBlockFormatter(bf); !errors.Is(err, markdown.ErrNilFormatter) {
			t.Errorf("AddBlockFormatter(%#v) = %v; want %v", bf, err, markdown.ErrNilFormatter)
		}
	}
}

// countFormatter replaces {{count}} with the number of
// link reference definitions in the document.
type countFormatter struct {
	n int
}

func (c *countFormatter) Name() string    { return "count" }
func (c *countFormatter) Pattern() string { return `\{\{count\}\}` }

func (c *countFormatter) Prepare(s *markdown.State, text string) string {
	c.n = len(s.References())
	return text
}

func (c *countFormatter) FormatMatch(s *markdown.State, m *markdown.Match) string {
	return strconv.Itoa(c.n)
}

func TestPreparer(t *testing.T) {
	f := markdown.New(nil)
	if err := f.AppendLineFormatter(new(countFormatter)); err != nil {
		t.Fatal(err)
	}
	got := f.Format("[a]: /x\n[b]: /y\n\n{{count}}")
	if want := "<p>2</p>"; got != want {
		t.Errorf("Format = %q; want %q", got, want)
	}
}

func TestFuncMap(t *testing.T) {
	f := markdown.New(nil)
	tmpl := template.Must(template.New("page").Funcs(f.FuncMap()).Parse(
		`<article>{{markdown .Body}}</article><aside>{{md .Note}}</aside>`,
	))
	sb := new(strings.Builder)
	err := tmpl.Execute(sb, struct{ Body, Note string }{"*x*", "<y>"})
	if err != nil {
		t.Fatal(err)
	}
	want := "<article><p><em>x</em></p></article><aside><p><y></p></aside>"
	if got := sb.String(); got != want {
		t.Errorf("template output = %q; want %q", got, want)
	}
}
