// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"testing"

	"github.com/grailbio/acidmerge/encoding/acidraw"
	"github.com/grailbio/testutil/expect"
)

func TestWriteDecodeRoundTripRaw(t *testing.T) {
	in := acidraw.DeltaStats{Inserts: 3, Updates: 7, Deletes: 1}
	data, err := Write(in, false)
	expect.NoError(t, err)
	out, err := decode(data, "test")
	expect.NoError(t, err)
	expect.EQ(t, in, out)
}

func TestWriteDecodeRoundTripCompressed(t *testing.T) {
	in := acidraw.DeltaStats{Inserts: 1000, Updates: 0, Deletes: 42}
	data, err := Write(in, true)
	expect.NoError(t, err)
	out, err := decode(data, "test")
	expect.NoError(t, err)
	expect.EQ(t, in, out)
}

func TestDecodeBadMagic(t *testing.T) {
	_, err := decode([]byte("garbage-not-a-trailer"), "test")
	expect.NotNil(t, err)
}

func TestDecodeTruncated(t *testing.T) {
	_, err := decode([]byte{'A', 'S'}, "test")
	expect.NotNil(t, err)
}
