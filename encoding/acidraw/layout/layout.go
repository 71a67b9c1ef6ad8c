// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package layout parses and lists the on-disk directory conventions a
// transactional table uses to hold a bucket's original files, delta
// directories, and flush-length marker sidecars. It never interprets
// file contents; acidraw.Merger's collaborators do that.
package layout

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/acidmerge/encoding/acidraw"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

var originalFileRe = regexp.MustCompile(`^bucket_(\d+)(?:_copy_(\d+))?$`)

// ListOriginalFiles lists every physical file of bucket under root, in
// deterministic order: the base copy first, then "_copy_N" files ordered
// by increasing N. The result is ready to hand to an acidraw.Merger's
// OriginalFileSource.
func ListOriginalFiles(ctx context.Context, root string, bucket int32) ([]acidraw.OriginalFile, error) {
	want := fmt.Sprintf("bucket_%d", bucket)
	var files []acidraw.OriginalFile

	lister := file.List(ctx, root, false /*recursive*/)
	for lister.Scan() {
		base := basename(lister.Path())
		m := originalFileRe.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || fmt.Sprintf("bucket_%d", n) != want {
			continue
		}
		copyIndex := 0
		if m[2] != "" {
			copyIndex, err = strconv.Atoi(m[2])
			if err != nil {
				continue
			}
		}
		files = append(files, acidraw.OriginalFile{Path: lister.Path(), CopyIndex: copyIndex})
	}
	if err := lister.Err(); err != nil {
		return nil, errors.E(err, fmt.Sprintf("ListOriginalFiles %s", root))
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].CopyIndex < files[j].CopyIndex })
	return files, nil
}

// DeltaDirInfo is the result of parsing a delta directory's name.
type DeltaDirInfo struct {
	MinTxn        int64
	MaxTxn        int64
	StatementID   int32 // -1 if the directory name carries none.
	IsDeleteDelta bool
}

var deltaDirRe = regexp.MustCompile(`^(delete_)?delta_(\d+)_(\d+)(?:_(\d+))?$`)

// ParseDeltaDir parses a delta directory's basename, e.g.
// "delta_0000001_0000005" or "delete_delta_0000003_0000003_0001".
func ParseDeltaDir(name string) (DeltaDirInfo, bool) {
	m := deltaDirRe.FindStringSubmatch(name)
	if m == nil {
		return DeltaDirInfo{}, false
	}
	minTxn, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return DeltaDirInfo{}, false
	}
	maxTxn, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return DeltaDirInfo{}, false
	}
	info := DeltaDirInfo{MinTxn: minTxn, MaxTxn: maxTxn, StatementID: -1, IsDeleteDelta: m[1] != ""}
	if m[4] != "" {
		stmt, err := strconv.Atoi(m[4])
		if err != nil {
			return DeltaDirInfo{}, false
		}
		info.StatementID = int32(stmt)
	}
	return info, true
}

// FindDeltaFile returns the bucket's file within deltaDir, or ok=false if
// the delta directory contributes nothing to this bucket (a delta is
// bucketed the same way a base directory is: "bucket_N").
func FindDeltaFile(ctx context.Context, deltaDir string, bucket int32) (path string, ok bool, err error) {
	want := fmt.Sprintf("bucket_%d", bucket)
	lister := file.List(ctx, deltaDir, false)
	for lister.Scan() {
		if basename(lister.Path()) == want {
			return lister.Path(), true, nil
		}
	}
	if err := lister.Err(); err != nil {
		return "", false, errors.E(err, fmt.Sprintf("FindDeltaFile %s", deltaDir))
	}
	return "", false, nil
}

// FlushLengthPath returns the path of deltaFile's flush-length marker
// sidecar, written once the delta's writer has durably flushed and never
// rewritten afterwards.
func FlushLengthPath(deltaFile string) string {
	return deltaFile + "_flush_length"
}

// ReadFlushLength reads deltaFile's flush-length marker, returning
// ok=false if no marker exists, in which case the delta's own on-disk
// size is its length (acidraw.DeltaSource.FlushLength 0: no cap).
func ReadFlushLength(ctx context.Context, deltaFile string) (length int64, ok bool, err error) {
	path := FlushLengthPath(deltaFile)
	if _, statErr := file.Stat(ctx, path); statErr != nil {
		return 0, false, nil
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, false, errors.E(err, path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var buf [32]byte
	n, err := in.Reader(ctx).Read(buf[:])
	if err != nil && n == 0 {
		return 0, false, errors.E(err, path)
	}
	length, parseErr := strconv.ParseInt(strings.TrimSpace(string(buf[:n])), 10, 64)
	if parseErr != nil {
		return 0, false, errors.E(parseErr, path)
	}
	return length, true, nil
}

func basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
