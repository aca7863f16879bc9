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

package extension

import (
	"regexp"
	"strings"

	"go4.org/bytereplacer"
)

// DefaultThumbnailTemplate is the markup a [Thumbnail] produces.
// {dir} and {script} are replaced by the thumbnail's directory and script,
// $1 by the label and $2 by the image path.
// The result still contains a Markdown image,
// so a Thumbnail must run before the Markdown formatter.
const DefaultThumbnailTemplate = `<a href="{dir}$2" class="thumbnail">![$1]({dir}{script}$2)<span>$1</span></a>`

var thumbnailRE = regexp.MustCompile(`!\[thumbnail:(.+?)\]\((.+?)\)`)

// Thumbnail rewrites ![thumbnail:LABEL](PATH) into a linked thumbnail image.
// It is a [markdown.TextFormatter]
// meant to be placed before the Markdown formatter in a [markdown.Chain].
type Thumbnail struct {
	template string
}

// NewThumbnail returns a Thumbnail that links to images under dir
// and loads their thumbnails through script.
// If template is empty, [DefaultThumbnailTemplate] is used.
func NewThumbnail(dir, script, template string) *Thumbnail {
	if template == "" {
		template = DefaultThumbnailTemplate
	}
	r := bytereplacer.New(
		"{dir}", strings.ReplaceAll(dir, "$", "$$"),
		"{script}", strings.ReplaceAll(script, "$", "$$"),
	)
	return &Thumbnail{template: string(r.Replace([]byte(template)))}
}

// Format rewrites every thumbnail in text
// that is not escaped by a preceding backslash.
func (t *Thumbnail) Format(text string) string {
	locs := thumbnailRE.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	var out []byte
	last := 0
	for _, loc := range locs {
		if loc[0] > 0 && text[loc[0]-1] == '\\' {
			continue
		}
		out = append(out, text[last:loc[0]]...)
		out = thumbnailRE.ExpandString(out, t.template, text, loc)
		last = loc[1]
	}
	out = append(out, text[last:]...)
	return string(out)
}
