// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

import "context"

// ReadOptions mirrors the columnar reader's read-options bundle: column
// selection, predicate pushdown, and a byte range. The merger never
// interprets SearchArgument; it only forwards or strips it.
type ReadOptions struct {
	// Offset and MaxOffset bound the byte range to read, [Offset,
	// MaxOffset). MaxOffset == 0 means unbounded.
	Offset    int64
	MaxOffset int64

	// Columns, if non-empty, restricts which payload columns are
	// materialized. Forwarded unchanged to the base reader; delta readers
	// receive each name prefixed with "row." (see buildEventOptions).
	Columns []string

	// SearchArgument is an opaque predicate-pushdown expression. The
	// merger strips it (sets it to nil) before handing ReadOptions to a
	// delta that carries updates or deletes; see Merger construction.
	SearchArgument interface{}
}

// StripeInfo is one physical stripe's byte range and row count, as laid
// out by the columnar writer.
type StripeInfo struct {
	StartOffset int64
	EndOffset   int64
	NumRows     int64
}

// StripeReader is the columnar file reader's contract towards this
// package. It is an external collaborator: this package never implements
// it against a real file format, only against the in-memory FakeReader
// used by tests.
type StripeReader interface {
	// Stripes returns the file's stripe layout in file order.
	Stripes() []StripeInfo

	// KeyIndex returns one RecordIdentifier per stripe -- the last key
	// written in that stripe -- for ACID files that embed a key index.
	// ok is false for pre-ACID "original" files, which carry no index.
	KeyIndex() (index []RecordIdentifier, ok bool)

	// Open returns a RowReader over the rows selected by opts. Open does
	// not itself perform any row reads.
	Open(ctx context.Context, opts ReadOptions) (RowReader, error)
}

// RowReader reads rows sequentially from one physical file, in row order.
type RowReader interface {
	// Next reads the next row into scratch and returns it. It returns
	// (nil, nil) at end of stream. scratch may be nil, in which case Next
	// allocates a fresh Event.
	Next(scratch *Event) (*Event, error)

	// RowNumber returns the file-local, 0-based row number of the record
	// most recently returned by Next.
	RowNumber() int64

	// Close releases resources held by the reader. Idempotent.
	Close() error
}

// RowProgressor is an optional RowReader capability: a fraction in [0,1]
// of the file consumed so far. Merger.GetProgress reports this for the
// base reader only; progress through deltas is not surfaced (spec.md
// §7: "acceptable for coarse UIs only").
type RowProgressor interface {
	Progress() float64
}

// ValidTxnList is the transaction snapshot oracle: it decides which
// transaction ids are visible to the current read snapshot.
type ValidTxnList interface {
	IsValid(txnID int64) bool
}

// AllTxnsValid is a ValidTxnList that admits every transaction. Useful in
// tests and for readers that do not need snapshot isolation.
type AllTxnsValid struct{}

// IsValid always returns true.
func (AllTxnsValid) IsValid(int64) bool { return true }
