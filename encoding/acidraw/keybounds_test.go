// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestSplitStripes(t *testing.T) {
	stripes := []StripeInfo{
		{StartOffset: 0, EndOffset: 100, NumRows: 10},
		{StartOffset: 100, EndOffset: 200, NumRows: 10},
		{StartOffset: 200, EndOffset: 300, NumRows: 10},
	}
	first, count, isTail := splitStripes(stripes, 0, 300)
	expect.EQ(t, 0, first)
	expect.EQ(t, 3, count)
	expect.True(t, isTail)

	first, count, isTail = splitStripes(stripes, 100, 200)
	expect.EQ(t, 1, first)
	expect.EQ(t, 1, count)
	expect.False(t, isTail)

	first, count, isTail = splitStripes(stripes, 250, 1000)
	expect.EQ(t, 3, first)
	expect.EQ(t, 0, count)
	expect.True(t, isTail)
}

func TestACIDKeyBounds(t *testing.T) {
	stripes := []StripeInfo{
		{StartOffset: 0, EndOffset: 100, NumRows: 10},
		{StartOffset: 100, EndOffset: 200, NumRows: 10},
		{StartOffset: 200, EndOffset: 300, NumRows: 10},
	}
	keyIndex := []RecordIdentifier{
		{0, 0, 9},
		{0, 0, 19},
		{0, 0, 29},
	}

	iv, err := ACIDKeyBounds(stripes, keyIndex, 100, 200)
	expect.NoError(t, err)
	expect.NotNil(t, iv.MinKey)
	expect.NotNil(t, iv.MaxKey)
	expect.EQ(t, int64(9), iv.MinKey.RowID)
	expect.EQ(t, int64(19), iv.MaxKey.RowID)

	iv, err = ACIDKeyBounds(stripes, keyIndex, 0, 300)
	expect.NoError(t, err)
	expect.True(t, iv.MinKey == nil)
	expect.True(t, iv.MaxKey == nil)

	_, err = ACIDKeyBounds(stripes, keyIndex[:2], 0, 300)
	expect.NotNil(t, err)
}

func TestOriginalKeyBounds(t *testing.T) {
	stripes := []StripeInfo{
		{StartOffset: 0, EndOffset: 100, NumRows: 10},
		{StartOffset: 100, EndOffset: 200, NumRows: 20},
		{StartOffset: 200, EndOffset: 300, NumRows: 5},
	}
	iv := OriginalKeyBounds(stripes, 3, 100, 200)
	expect.NotNil(t, iv.MinKey)
	expect.NotNil(t, iv.MaxKey)
	expect.EQ(t, int64(9), iv.MinKey.RowID)
	expect.EQ(t, int64(29), iv.MaxKey.RowID)
	expect.EQ(t, int32(3), iv.MinKey.Bucket)

	iv = OriginalKeyBounds(stripes, 3, 0, 300)
	expect.True(t, iv.MinKey == nil)
	expect.True(t, iv.MaxKey == nil)

	// A split wholly inside one stripe produces an empty window: known
	// limitation, see keybounds.go.
	iv = OriginalKeyBounds(stripes, 3, 10, 50)
	expect.NotNil(t, iv.MinKey)
	expect.NotNil(t, iv.MaxKey)
	expect.EQ(t, iv.MinKey.RowID, iv.MaxKey.RowID)
}
