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
	"errors"
	"fmt"
)

var (
	// ErrNilFormatter is reported when a nil formatter is registered.
	ErrNilFormatter = errors.New("nil formatter")
	// ErrEmptyMatch is reported when a line formatter's pattern
	// matches the empty string.
	ErrEmptyMatch = errors.New("pattern matches empty string")
	// ErrBlockNotFound is the cause of every [*ProtectionError].
	ErrBlockNotFound = errors.New("html block not found")
)

// ConfigError is returned when a formatter cannot be registered.
type ConfigError struct {
	// Formatter is the name of the rejected formatter, if known.
	Formatter string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Formatter == "" {
		return fmt.Sprintf("markdown: register formatter: %v", e.Err)
	}
	return fmt.Sprintf("markdown: register formatter %q: %v", e.Formatter, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ProtectionError is the panic value raised when
// a protected HTML block is looked up by a key that was never stored.
// It always indicates a bug in a block formatter,
// never a problem with the input text.
type ProtectionError struct {
	Key string
}

func (e *ProtectionError) Error() string {
	return fmt.Sprintf("markdown: resolve protected block %+q: %v", e.Key, ErrBlockNotFound)
}

func (e *ProtectionError) Unwrap() error {
	return ErrBlockNotFound
}
