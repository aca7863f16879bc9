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

// Package golden provides sample documents with their expected HTML.
package golden

import (
	_ "embed"
	"encoding/json"
)

// Case is a Markdown document and the HTML it formats to.
// HTML is compared after normalization,
// so insignificant whitespace does not matter.
type Case struct {
	Name     string `json:"name"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

//go:embed cases.json
var casesData []byte

// Load returns the sample documents.
func Load() ([]Case, error) {
	var cases []Case
	if err := json.Unmarshal(casesData, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}
