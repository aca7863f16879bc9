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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"foo", "foo"},
		{"Foo", "foo"},
		{"FOO BAR", "foo bar"},
		{"  foo \n\t bar ", "foo bar"},
		{"Straße", "strasse"},
	}
	for _, test := range tests {
		if got := NormalizeReference(test.id); got != test.want {
			t.Errorf("NormalizeReference(%q) = %q; want %q", test.id, got, test.want)
		}
	}
}

func TestReferenceMapAdd(t *testing.T) {
	m := make(ReferenceMap)
	if !m.Add("Example", LinkDefinition{Destination: "/first"}) {
		t.Error("first Add(\"Example\", ...) = false; want true")
	}
	if m.Add("example", LinkDefinition{Destination: "/second"}) {
		t.Error("second Add(\"example\", ...) = true; want false")
	}
	if m.Add("  ", LinkDefinition{Destination: "/blank"}) {
		t.Error("Add(\"  \", ...) = true; want false")
	}
	got, ok := m.Lookup("EXAMPLE")
	if !ok || got.Destination != "/first" {
		t.Errorf("Lookup(\"EXAMPLE\") = %+v, %t; want /first, true", got, ok)
	}
	if _, ok := m.Lookup("missing"); ok {
		t.Error("Lookup(\"missing\") reported found")
	}
}

func TestCollect(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantText string
		want     ReferenceMap
	}{
		{
			name:     "Empty",
			text:     "",
			wantText: "",
			want:     ReferenceMap{},
		},
		{
			name: "TitleAndAngleBrackets",
			text: "[a]: http://x.com/?a&b \"T\"\n" +
				"[B]: <http://y.com>\n" +
				"\n" +
				"text\n",
			wantText: "text\n",
			want: ReferenceMap{
				"a": {Destination: "http://x.com/?a&amp;b", Title: "T", TitlePresent: true},
				"b": {Destination: "http://y.com"},
			},
		},
		{
			name:     "TitleOnNextLine",
			text:     "[id]: /url\n    (Parenthesized)\n",
			wantText: "",
			want: ReferenceMap{
				"id": {Destination: "/url", Title: "Parenthesized", TitlePresent: true},
			},
		},
		{
			name:     "QuoteInTitle",
			text:     "[q]: /u \"say \"hi\"\"\n",
			wantText: "",
			want: ReferenceMap{
				"q": {Destination: "/u", Title: "say &quot;hi&quot;", TitlePresent: true},
			},
		},
		{
			name:     "FirstWins",
			text:     "[x]: /one\n[X]: /two\n",
			wantText: "",
			want: ReferenceMap{
				"x": {Destination: "/one"},
			},
		},
		{
			name:     "TooMuchIndent",
			text:     "    [x]: /code\n",
			wantText: "    [x]: /code\n",
			want:     ReferenceMap{},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := make(ReferenceMap)
			gotText := m.collect(test.text)
			if diff := cmp.Diff(test.wantText, gotText); diff != "" {
				t.Errorf("remaining text (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.want, m); diff != "" {
				t.Errorf("references (-want +got):\n%s", diff)
			}
		})
	}
}
