// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package stats decodes a delta file's embedded summary statistics
// trailer: the insert/update/delete counts a compaction driver consults
// to decide whether a delta carries only inserts (and can skip base
// key-index lookups) without reading the delta's rows.
package stats

import (
	"context"
	"encoding/binary"
	"fmt"
	"io/ioutil"

	"github.com/grailbio/acidmerge/encoding/acidraw"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/zstd"
)

// trailerMagic identifies the trailer format: 4 bytes, then a 1-byte
// compression flag (0 = raw, 1 = zstd), then 3 little-endian uint64
// counters (inserts, updates, deletes).
var trailerMagic = [4]byte{'A', 'S', 'T', '1'}

// Write serializes stats into the trailer format Read expects. compress
// selects whether the payload (everything after the magic+flag byte) is
// zstd-compressed; a delta writer can use this to keep large stats
// blocks small, though at this size it is rarely worthwhile.
func Write(stats acidraw.DeltaStats, compress bool) ([]byte, error) {
	payload := make([]byte, 3*8)
	binary.LittleEndian.PutUint64(payload[0:8], uint64(stats.Inserts))
	binary.LittleEndian.PutUint64(payload[8:16], uint64(stats.Updates))
	binary.LittleEndian.PutUint64(payload[16:24], uint64(stats.Deletes))

	flag := byte(0)
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errors.E(err, "stats.Write: zstd.NewWriter")
		}
		payload = enc.EncodeAll(payload, nil)
		if err := enc.Close(); err != nil {
			return nil, errors.E(err, "stats.Write: zstd encoder close")
		}
		flag = 1
	}
	out := make([]byte, 0, len(trailerMagic)+1+len(payload))
	out = append(out, trailerMagic[:]...)
	out = append(out, flag)
	out = append(out, payload...)
	return out, nil
}

// Read decodes a delta's summary statistics trailer from path.
func Read(ctx context.Context, path string) (stats acidraw.DeltaStats, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return acidraw.DeltaStats{}, errors.E(err, path)
	}
	defer file.CloseAndReport(ctx, in, &err)

	data, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		return acidraw.DeltaStats{}, errors.E(err, path)
	}
	return decode(data, path)
}

func decode(data []byte, path string) (acidraw.DeltaStats, error) {
	if len(data) < len(trailerMagic)+1 {
		return acidraw.DeltaStats{}, fmt.Errorf("stats.Read %s: trailer too short (%d bytes)", path, len(data))
	}
	var magic [4]byte
	copy(magic[:], data[:4])
	if magic != trailerMagic {
		return acidraw.DeltaStats{}, fmt.Errorf("stats.Read %s: bad magic %q", path, magic)
	}
	flag := data[4]
	payload := data[5:]

	switch flag {
	case 0:
		// raw
	case 1:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return acidraw.DeltaStats{}, errors.E(err, path+": zstd.NewReader")
		}
		defer dec.Close()
		payload, err = dec.DecodeAll(payload, nil)
		if err != nil {
			return acidraw.DeltaStats{}, errors.E(err, path+": zstd decode")
		}
	default:
		return acidraw.DeltaStats{}, fmt.Errorf("stats.Read %s: unknown compression flag %d", path, flag)
	}
	if len(payload) != 3*8 {
		return acidraw.DeltaStats{}, fmt.Errorf("stats.Read %s: decoded payload has %d bytes, want %d", path, len(payload), 3*8)
	}
	return acidraw.DeltaStats{
		Inserts: int64(binary.LittleEndian.Uint64(payload[0:8])),
		Updates: int64(binary.LittleEndian.Uint64(payload[8:16])),
		Deletes: int64(binary.LittleEndian.Uint64(payload[16:24])),
	}, nil
}
