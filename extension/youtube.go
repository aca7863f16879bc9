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

// Package extension provides optional formatters
// for use with a [markdown.Formatter].
package extension

import (
	"zombiezen.com/go/markdown"
)

// YouTube is a line formatter that embeds a YouTube video
// written as [youtube](VIDEO_ID).
// Register it with [markdown.Formatter.PrependLineFormatter]
// so that it takes precedence over ordinary links.
type YouTube struct{}

// Name returns "youtube".
func (YouTube) Name() string { return "youtube" }

// Pattern matches a YouTube embed.
func (YouTube) Pattern() string { return `\[youtube\]\(([^()\s]+)\)` }

// FormatMatch returns the player markup for the video id in group 1.
func (YouTube) FormatMatch(s *markdown.State, m *markdown.Match) string {
	return `<div class="youtubeWrapper"><iframe class="youtube" src="http://www.youtube.com/embed/` +
		markdown.EscapeAttribute(m.Group(1)) +
		`" frameborder="0" allowfullscreen></iframe></div>`
}
