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

// Package config reads the configuration file of the mdhtml command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/npillmayer/schuko/tracing"
	"gopkg.in/yaml.v3"
)

// Config is the content of a configuration file.
type Config struct {
	// Trace is the trace level: "Debug", "Info" or "Error".
	Trace      string `yaml:"trace"`
	HeadingIDs bool   `yaml:"heading_ids"`
	MaxDepth   int    `yaml:"max_depth"`
	YouTube    bool   `yaml:"youtube"`

	Cache struct {
		// Path is the location of the cache database.
		// Caching is disabled if it is empty.
		Path string `yaml:"path"`
	} `yaml:"cache"`

	Thumbnail Thumbnail `yaml:"thumbnail"`
}

// Thumbnail configures thumbnail rewriting.
type Thumbnail struct {
	Dir      string `yaml:"dir"`
	Script   string `yaml:"script"`
	Template string `yaml:"template"`
}

// Enabled reports whether thumbnail rewriting was configured.
func (t Thumbnail) Enabled() bool {
	return t.Dir != "" || t.Script != ""
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Trace: "Error"}
}

// Load reads a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses configuration file content.
// Unknown keys are an error.
// Keys that are absent keep their values from [Default].
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("parse config: max_depth is negative (%d)", cfg.MaxDepth)
	}
	if _, err := ParseLevel(cfg.Trace); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ParseLevel converts a trace level name to a [tracing.TraceLevel].
// Names are case-insensitive.
func ParseLevel(name string) (tracing.TraceLevel, error) {
	switch strings.ToLower(name) {
	case "debug":
		return tracing.LevelDebug, nil
	case "info":
		return tracing.LevelInfo, nil
	case "error", "":
		return tracing.LevelError, nil
	default:
		return tracing.LevelError, fmt.Errorf("unknown trace level %q", name)
	}
}
