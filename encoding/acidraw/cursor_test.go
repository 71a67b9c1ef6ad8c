// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

import (
	"context"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestCursorBasic(t *testing.T) {
	ctx := context.Background()
	events := []FakeEvent{
		{Operation: OpInsert, OriginalTxn: 1, Bucket: 0, RowID: 0, CurrentTxn: 1, Payload: "a"},
		{Operation: OpInsert, OriginalTxn: 1, Bucket: 0, RowID: 1, CurrentTxn: 1, Payload: "b"},
		{Operation: OpInsert, OriginalTxn: 1, Bucket: 0, RowID: 2, CurrentTxn: 1, Payload: "c"},
	}
	reader := NewFakeReader(events, 0, true)
	rr, err := reader.Open(ctx, ReadOptions{})
	expect.NoError(t, err)

	c := NewCursor(rr, nil, nil, 0, 0)
	expect.NoError(t, c.AdvanceToMinKey())
	expect.NotNil(t, c.HeadRecord())
	expect.EQ(t, int64(0), c.HeadKey().RowID)

	var got []int64
	for rec := c.HeadRecord(); rec != nil; rec, err = c.Next(rec) {
		expect.NoError(t, err)
		got = append(got, rec.RowID)
	}
	expect.EQ(t, 3, len(got))
	expect.EQ(t, int64(2), got[2])
	expect.NoError(t, c.Close())
}

func TestCursorMinMaxKeyClipping(t *testing.T) {
	ctx := context.Background()
	events := []FakeEvent{
		{Operation: OpInsert, OriginalTxn: 0, Bucket: 0, RowID: 0, CurrentTxn: 0, Payload: "a"},
		{Operation: OpInsert, OriginalTxn: 0, Bucket: 0, RowID: 1, CurrentTxn: 0, Payload: "b"},
		{Operation: OpInsert, OriginalTxn: 0, Bucket: 0, RowID: 2, CurrentTxn: 0, Payload: "c"},
		{Operation: OpInsert, OriginalTxn: 0, Bucket: 0, RowID: 3, CurrentTxn: 0, Payload: "d"},
	}
	reader := NewFakeReader(events, 0, true)
	rr, err := reader.Open(ctx, ReadOptions{})
	expect.NoError(t, err)

	min := RecordIdentifier{0, 0, 0}
	max := RecordIdentifier{0, 0, 2}
	c := NewCursor(rr, &min, &max, 0, 0)
	expect.NoError(t, c.AdvanceToMinKey())

	var got []int64
	for rec := c.HeadRecord(); rec != nil; {
		got = append(got, rec.RowID)
		rec, err = c.Next(rec)
		expect.NoError(t, err)
	}
	expect.EQ(t, []int64{1, 2}, got)
}
