// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

// This file derives a split's (minKey, maxKey) from stripe layout, in the
// two variants described by the data model: ACID files embed a key index
// (one RecordIdentifier per stripe), while pre-ACID "original" files carry
// no index and must have keys synthesized from cumulative row counts.

// splitStripes walks stripes in file order and partitions them against
// [offset, maxOffset): firstStripe is the count of stripes that start
// strictly before offset, stripeCount is the count of stripes whose start
// falls in [offset, maxOffset); maxOffset <= 0 means unbounded, as in
// ReadOptions. isTail is true iff no stripe remains in the file after
// firstStripe+stripeCount, i.e. this split extends to EOF.
func splitStripes(stripes []StripeInfo, offset, maxOffset int64) (firstStripe, stripeCount int, isTail bool) {
	for _, s := range stripes {
		if s.StartOffset < offset {
			firstStripe++
		} else {
			break
		}
	}
	for i := firstStripe; i < len(stripes); i++ {
		if s := stripes[i]; s.StartOffset >= offset && (maxOffset <= 0 || s.StartOffset < maxOffset) {
			stripeCount++
		} else {
			break
		}
	}
	isTail = firstStripe+stripeCount >= len(stripes)
	return
}

// ACIDKeyBounds derives (minKey, maxKey) for a split of a native ACID
// file (base or delta) that carries a per-stripe key index, where
// keyIndex[i] is the last key written in stripe i.
func ACIDKeyBounds(stripes []StripeInfo, keyIndex []RecordIdentifier, offset, maxOffset int64) (KeyInterval, error) {
	if len(keyIndex) != len(stripes) {
		return KeyInterval{}, invariantf("ACIDKeyBounds", "key index has %d entries, want %d (one per stripe)", len(keyIndex), len(stripes))
	}
	firstStripe, stripeCount, isTail := splitStripes(stripes, offset, maxOffset)

	var iv KeyInterval
	if firstStripe > 0 {
		k := keyIndex[firstStripe-1]
		iv.MinKey = &k
	}
	if !isTail {
		k := keyIndex[firstStripe+stripeCount-1]
		iv.MaxKey = &k
	}
	return iv, nil
}

// OriginalKeyBounds derives (minKey, maxKey) for a split of a pre-ACID
// "original" file, synthesizing keys as (0, bucket, rowOffset-1) and
// (0, bucket, rowOffset+rowLength-1) from cumulative stripe row counts.
//
// Known limitation (carried forward from the source system, see
// DESIGN.md): if both offset and maxOffset fall within a single stripe,
// stripeCount is 0, rowLength stays 0, and the returned maxKey equals
// minKey -- an empty window. Callers must tolerate this rather than treat
// it as an error.
func OriginalKeyBounds(stripes []StripeInfo, bucket int32, offset, maxOffset int64) KeyInterval {
	firstStripe, stripeCount, isTail := splitStripes(stripes, offset, maxOffset)

	var rowOffset, rowLength int64
	for i := 0; i < firstStripe; i++ {
		rowOffset += stripes[i].NumRows
	}
	for i := firstStripe; i < firstStripe+stripeCount; i++ {
		rowLength += stripes[i].NumRows
	}

	var iv KeyInterval
	if firstStripe > 0 {
		k := RecordIdentifier{OriginalTxn: 0, Bucket: bucket, RowID: rowOffset - 1}
		iv.MinKey = &k
	}
	if !isTail {
		k := RecordIdentifier{OriginalTxn: 0, Bucket: bucket, RowID: rowOffset + rowLength - 1}
		iv.MaxKey = &k
	}
	return iv
}
