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

// mdhtml converts Markdown documents to HTML.
//
// Usage:
//
//	mdhtml [flags] [FILE ...]
//
// With no files, mdhtml reads standard input.
// The HTML of each document is written to standard output.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/npillmayer/schuko/tracing"
	"zombiezen.com/go/markdown"
	"zombiezen.com/go/markdown/cache"
	"zombiezen.com/go/markdown/extension"
	"zombiezen.com/go/markdown/internal/config"
)

// tracer traces with key 'mdhtml'.
func tracer() tracing.Trace {
	return tracing.Select("mdhtml")
}

// errUsage is returned by run for invalid command lines.
var errUsage = errors.New("usage error")

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "mdhtml:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fset := flag.NewFlagSet("mdhtml", flag.ContinueOnError)
	fset.SetOutput(stderr)
	configPath := fset.String("config", "", "read configuration from `file`")
	cachePath := fset.String("cache", "", "cache formatted documents in the database at `path`")
	youtube := fset.Bool("youtube", false, "expand [youtube](id) embeds")
	thumbDir := fset.String("thumbnail-dir", "", "image `directory` for ![thumbnail:label](path)")
	thumbScript := fset.String("thumbnail-script", "", "thumbnail generator `url` prefix")
	headingIDs := fset.Bool("heading-ids", false, "add id attributes to headings")
	trace := fset.String("trace", "", "trace `level` [Debug|Info|Error]")
	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cache":
			cfg.Cache.Path = *cachePath
		case "youtube":
			cfg.YouTube = *youtube
		case "thumbnail-dir":
			cfg.Thumbnail.Dir = *thumbDir
		case "thumbnail-script":
			cfg.Thumbnail.Script = *thumbScript
		case "heading-ids":
			cfg.HeadingIDs = *headingIDs
		case "trace":
			cfg.Trace = *trace
		}
	})
	level, err := config.ParseLevel(cfg.Trace)
	if err != nil {
		fmt.Fprintln(stderr, "mdhtml:", err)
		return errUsage
	}
	for _, key := range []string{"mdhtml", "markdown", "markdown.cache"} {
		tracing.Select(key).SetTraceLevel(level)
	}

	tf, closeCache, err := newFormatter(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	if fset.NArg() == 0 {
		if f, ok := stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			fmt.Fprintln(stderr, "mdhtml: reading Markdown from terminal (end input with Ctrl-D)")
		}
		return convert(stdout, stdin, tf)
	}
	for _, path := range fset.Args() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = convert(stdout, f, tf)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// newFormatter builds the formatting pipeline described by cfg.
// The returned function releases the cache, if any.
func newFormatter(cfg *config.Config) (markdown.TextFormatter, func(), error) {
	opts := &markdown.Options{
		HeadingIDs: cfg.HeadingIDs,
		MaxDepth:   cfg.MaxDepth,
	}
	closeCache := func() {}
	if cfg.Cache.Path != "" {
		c, err := cache.OpenBolt(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		opts.Cache = c
		closeCache = func() {
			if err := c.Close(); err != nil {
				tracer().Errorf("close cache: %v", err)
			}
		}
	}
	f := markdown.New(opts)
	if cfg.YouTube {
		if err := f.PrependLineFormatter(extension.YouTube{}); err != nil {
			closeCache()
			return nil, nil, err
		}
	}
	if !cfg.Thumbnail.Enabled() {
		return f, closeCache, nil
	}
	thumb := extension.NewThumbnail(cfg.Thumbnail.Dir, cfg.Thumbnail.Script, cfg.Thumbnail.Template)
	return markdown.NewChain(nil, thumb, f), closeCache, nil
}

func convert(dst io.Writer, src io.Reader, tf markdown.TextFormatter) error {
	input, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	tracer().Debugf("formatting %d bytes", len(input))
	html := tf.Format(string(input))
	if _, err := io.WriteString(dst, html); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if len(html) > 0 && html[len(html)-1] != '\n' {
		if _, err := io.WriteString(dst, "\n"); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
