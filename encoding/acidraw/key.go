// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

// This file adds comparison methods to RecordIdentifier and ReaderKey.
// The ordering mirrors biopb.Coord's Compare/LT/GE family of methods, but
// the fields and the tie-break rules are specific to the ACID raw-record
// merge: ReaderKey orders currentTxn and statementId *descending*, so that
// among events touching the same row the most recent mutation sorts
// first.

// RecordIdentifier identifies a logical row across its history:
// (originalTxn, bucket, rowId). Two RecordIdentifiers with the same triple
// refer to the same row, possibly at different points in the row's
// mutation history.
type RecordIdentifier struct {
	OriginalTxn int64
	Bucket      int32
	RowID       int64
}

// Compare returns a negative, zero, or positive value as r sorts before,
// equal to, or after r1, lexicographically on (OriginalTxn, Bucket, RowID).
func (r RecordIdentifier) Compare(r1 RecordIdentifier) int {
	if r.OriginalTxn != r1.OriginalTxn {
		return cmpInt64(r.OriginalTxn, r1.OriginalTxn)
	}
	if r.Bucket != r1.Bucket {
		return cmpInt32(r.Bucket, r1.Bucket)
	}
	return cmpInt64(r.RowID, r1.RowID)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ReaderKey is the composite sort key that induces a global total order
// over every event source feeding a Merger: the RecordIdentifier triple,
// plus (currentTxn, statementId) ordered *descending* so that the highest-
// precedence mutation of a row sorts first.
type ReaderKey struct {
	RecordIdentifier
	CurrentTxn  int64
	StatementID int32
}

// SetAll overwrites every field of k.
func (k *ReaderKey) SetAll(originalTxn int64, bucket int32, rowID int64, currentTxn int64, statementID int32) {
	k.OriginalTxn = originalTxn
	k.Bucket = bucket
	k.RowID = rowID
	k.CurrentTxn = currentTxn
	k.StatementID = statementID
}

// Compare returns a negative, zero, or positive value as k sorts before,
// equal to, or after k1, under the total order:
//  1. OriginalTxn ascending
//  2. Bucket ascending
//  3. RowID ascending
//  4. CurrentTxn descending
//  5. StatementID descending
func (k ReaderKey) Compare(k1 ReaderKey) int {
	if c := k.RecordIdentifier.Compare(k1.RecordIdentifier); c != 0 {
		return c
	}
	if k.CurrentTxn != k1.CurrentTxn {
		return cmpInt64(k1.CurrentTxn, k.CurrentTxn)
	}
	return cmpInt32(k1.StatementID, k.StatementID)
}

// CompareRow compares k against a bare RecordIdentifier, e.g. a
// KeyInterval bound, using only the first three fields. It returns 0 when
// k ties with r on those three fields; CurrentTxn and StatementID play no
// part. Callers that need strict "k > bound" semantics (advance_to_min_key's
// exclusive lower bound) get that directly from CompareRow(bound) > 0.
func (k ReaderKey) CompareRow(r RecordIdentifier) int {
	return k.RecordIdentifier.Compare(r)
}

// IsSameRow reports whether k and k1 identify the same row mutated by the
// same transaction: compareRow == 0 and CurrentTxn equal. This is the
// "same-txn collapse" predicate, which must hold regardless of the
// Merger's collapse policy (only multi-statement transactions can produce
// more than one event satisfying it for a single row).
func (k ReaderKey) IsSameRow(k1 ReaderKey) bool {
	return k.RecordIdentifier.Compare(k1.RecordIdentifier) == 0 && k.CurrentTxn == k1.CurrentTxn
}

// Equal reports whether every field of k and k1 matches, consistent with
// Compare (equality requires StatementID equal too).
func (k ReaderKey) Equal(k1 ReaderKey) bool {
	return k.Compare(k1) == 0 && k.StatementID == k1.StatementID
}

// KeyInterval is an open-lower, closed-upper window over RecordIdentifiers:
// a nil bound means unbounded on that side.
type KeyInterval struct {
	MinKey *RecordIdentifier
	MaxKey *RecordIdentifier
}

// Contains reports whether k's row projection lies in the interval:
// (MinKey == nil || k > MinKey) && (MaxKey == nil || k <= MaxKey).
func (iv KeyInterval) Contains(k ReaderKey) bool {
	if iv.MinKey != nil && k.CompareRow(*iv.MinKey) <= 0 {
		return false
	}
	if iv.MaxKey != nil && k.CompareRow(*iv.MaxKey) > 0 {
		return false
	}
	return true
}
