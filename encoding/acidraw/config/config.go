// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package config loads the merge engine's tunable options from a YAML
// file: the collapse policy default, the original-file split threshold,
// and whether new delta stats trailers are written zstd-compressed.
package config

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"gopkg.in/yaml.v2"
)

// Options is the merge engine's file-backed configuration.
type Options struct {
	// Collapse is the default value of Options.Collapse (acidraw.Options)
	// for callers that don't override it per-read.
	Collapse bool `yaml:"collapse"`

	// OriginalSplitRows caps how many rows of a pre-ACID original file a
	// single split reads before the directory-layout scanner hands the
	// remainder to another split. 0 means "no cap, one split per file".
	OriginalSplitRows int64 `yaml:"original_split_rows"`

	// DeltaStatsCompression selects whether new delta stats trailers are
	// written zstd-compressed; see stats.Write.
	DeltaStatsCompression bool `yaml:"delta_stats_compression"`
}

// DefaultOptions is used by any caller that does not load a config file.
var DefaultOptions = Options{
	Collapse:              false,
	OriginalSplitRows:     0,
	DeltaStatsCompression: false,
}

// Load reads and parses a YAML options file at path.
func Load(ctx context.Context, path string) (opts Options, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return Options{}, errors.E(err, path)
	}
	defer file.CloseAndReport(ctx, in, &err)

	dec := yaml.NewDecoder(in.Reader(ctx))
	opts = DefaultOptions
	if err := dec.Decode(&opts); err != nil {
		return Options{}, errors.E(err, fmt.Sprintf("config.Load %s: parse", path))
	}
	if verr := opts.Validate(); verr != nil {
		return Options{}, fmt.Errorf("config.Load %s: %v", path, verr)
	}
	return opts, nil
}

// Validate reports whether opts is internally consistent.
func (o Options) Validate() error {
	if o.OriginalSplitRows < 0 {
		return fmt.Errorf("original_split_rows must be >= 0, got %d", o.OriginalSplitRows)
	}
	return nil
}
