// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

import (
	"context"
	"testing"

	"github.com/grailbio/testutil/expect"
)

type fakeValidTxnList struct {
	invalid map[int64]bool
}

func (v fakeValidTxnList) IsValid(txnID int64) bool { return !v.invalid[txnID] }

func drainMerger(t *testing.T, m *Merger) []*Event {
	var out []*Event
	for {
		key := m.CreateKey()
		val := m.CreateValue()
		ok, err := m.Next(&key, val)
		expect.NoError(t, err)
		if !ok {
			break
		}
		cp := *val
		out = append(out, &cp)
	}
	return out
}

func TestMergerBaseOnlyNoCollapse(t *testing.T) {
	ctx := context.Background()
	base := NewFakeReader([]FakeEvent{
		{Operation: OpInsert, OriginalTxn: 1, Bucket: 0, RowID: 0, CurrentTxn: 1, Payload: "a"},
		{Operation: OpInsert, OriginalTxn: 1, Bucket: 0, RowID: 1, CurrentTxn: 1, Payload: "b"},
	}, 0, true)

	m, err := NewMerger(ctx, Options{Bucket: 0}, base, nil, nil)
	expect.NoError(t, err)
	got := drainMerger(t, m)
	expect.EQ(t, 2, len(got))
	expect.EQ(t, "a", got[0].Row.(FakeRow).Payload)
	expect.EQ(t, "b", got[1].Row.(FakeRow).Payload)
	expect.NoError(t, m.Close())
}

func TestMergerBaseAndDeltaUpdateCollapse(t *testing.T) {
	ctx := context.Background()
	base := NewFakeReader([]FakeEvent{
		{Operation: OpInsert, OriginalTxn: 1, Bucket: 0, RowID: 0, CurrentTxn: 1, Payload: "orig"},
	}, 0, true)
	delta := NewFakeReader([]FakeEvent{
		{Operation: OpUpdate, OriginalTxn: 1, Bucket: 0, RowID: 0, CurrentTxn: 2, Payload: "updated"},
	}, 0, true)

	m, err := NewMerger(ctx, Options{Bucket: 0, Collapse: true}, base, nil, []DeltaSource{
		{StatementID: 1, Reader: delta},
	})
	expect.NoError(t, err)
	got := drainMerger(t, m)
	expect.EQ(t, 1, len(got))
	expect.EQ(t, "updated", got[0].Row.(FakeRow).Payload)
	expect.NoError(t, m.Close())
}

func TestMergerInvalidTxnFiltered(t *testing.T) {
	ctx := context.Background()
	base := NewFakeReader([]FakeEvent{
		{Operation: OpInsert, OriginalTxn: 1, Bucket: 0, RowID: 0, CurrentTxn: 1, Payload: "orig"},
	}, 0, true)
	delta := NewFakeReader([]FakeEvent{
		{Operation: OpUpdate, OriginalTxn: 1, Bucket: 0, RowID: 0, CurrentTxn: 2, Payload: "uncommitted"},
	}, 0, true)

	m, err := NewMerger(ctx, Options{
		Bucket:       0,
		Collapse:     true,
		ValidTxnList: fakeValidTxnList{invalid: map[int64]bool{2: true}},
	}, base, nil, []DeltaSource{
		{StatementID: 1, Reader: delta},
	})
	expect.NoError(t, err)
	got := drainMerger(t, m)
	expect.EQ(t, 1, len(got))
	expect.EQ(t, "orig", got[0].Row.(FakeRow).Payload)
	expect.NoError(t, m.Close())
}

func TestMergerMultiStatementSameRowCollapseAlways(t *testing.T) {
	ctx := context.Background()
	base := NewFakeReader(nil, 0, true)
	delta1 := NewFakeReader([]FakeEvent{
		{Operation: OpUpdate, OriginalTxn: 1, Bucket: 0, RowID: 0, CurrentTxn: 5, Payload: "stmt1"},
	}, 0, true)
	delta2 := NewFakeReader([]FakeEvent{
		{Operation: OpUpdate, OriginalTxn: 1, Bucket: 0, RowID: 0, CurrentTxn: 5, Payload: "stmt2"},
	}, 0, true)

	// Collapse is false, but two statements of the *same* transaction
	// touching the same row must still collapse to the higher statementId.
	m, err := NewMerger(ctx, Options{Bucket: 0, Collapse: false}, base, nil, []DeltaSource{
		{StatementID: 1, Reader: delta1},
		{StatementID: 2, Reader: delta2},
	})
	expect.NoError(t, err)
	got := drainMerger(t, m)
	expect.EQ(t, 1, len(got))
	expect.EQ(t, "stmt2", got[0].Row.(FakeRow).Payload)
	expect.NoError(t, m.Close())
}

func TestMergerOriginalCompaction(t *testing.T) {
	ctx := context.Background()
	originalSrc := NewFakeOriginalFileSource([]FakeOriginalFile{
		{Path: "bbbbb_0", Payloads: []string{"a", "b"}},
		{Path: "bbbbb_0_copy_1", Payloads: []string{"c"}},
	})
	base := NewFakeReader(nil, 0, false) // stripes unused in compacting mode.

	m, err := NewMerger(ctx, Options{
		Bucket:     3,
		IsOriginal: true,
		Copying:    CompactionOptions{Compacting: true},
	}, base, originalSrc, nil)
	expect.NoError(t, err)
	expect.True(t, m.Compacting())
	got := drainMerger(t, m)
	expect.EQ(t, 3, len(got))
	expect.EQ(t, "a", got[0].Row.(FakeRow).Payload)
	expect.EQ(t, "c", got[2].Row.(FakeRow).Payload)
	expect.NoError(t, m.Close())
}

func TestMergerOriginalSplitSecondCopy(t *testing.T) {
	ctx := context.Background()
	originalSrc := NewFakeOriginalFileSource([]FakeOriginalFile{
		{Path: "bbbbb_0", Payloads: []string{"a", "b"}},
		{Path: "bbbbb_0_copy_1", Payloads: []string{"c", "d", "e"}},
	})
	base := NewFakeReader(nil, 0, false)

	m, err := NewMerger(ctx, Options{
		Bucket:     3,
		IsOriginal: true,
		Copying:    CompactionOptions{Compacting: false, CopyIndex: 1, BucketPath: "bbbbb_0_copy_1"},
	}, base, originalSrc, nil)
	expect.NoError(t, err)
	expect.False(t, m.Compacting())
	got := drainMerger(t, m)
	expect.EQ(t, 3, len(got))
	expect.EQ(t, int64(2), got[0].RowID)
	expect.NoError(t, m.Close())
}
