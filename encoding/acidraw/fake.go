// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

import "context"

// This file is only for unittests. It stands in for the columnar reader
// and the directory-layout scanner, the same way bamprovider's
// fakeProvider stands in for an actual BAM index.

// FakeRow is the payload a FakeReader hands back for a record's Row field.
// Tests compare it by value, so it carries whatever the test cares about
// beyond the envelope (originalTxn, bucket, rowId, currentTxn).
type FakeRow struct {
	Payload string
}

// FakeEvent is one record of a FakeReader's fixed in-memory event list.
type FakeEvent struct {
	Operation   Operation
	OriginalTxn int64
	Bucket      int32
	RowID       int64
	CurrentTxn  int64
	Payload     string
}

// FakeReader is an in-memory StripeReader that yields a fixed list of
// events, laid out into stripes of NewFakeReader's stripeRows rows. It is only for unittests;
// this package never implements StripeReader against a real file format.
type FakeReader struct {
	events   []FakeEvent
	stripes  []StripeInfo
	keyIndex []RecordIdentifier
	hasIndex bool
}

// NewFakeReader builds a FakeReader whose rows are events, split into
// stripes of stripeRows rows each (the last stripe may be shorter).
// hasIndex controls whether KeyIndex reports a per-stripe key index, i.e.
// whether this reader simulates an ACID file (true) or a pre-ACID
// original file (false).
func NewFakeReader(events []FakeEvent, stripeRows int, hasIndex bool) *FakeReader {
	if stripeRows <= 0 {
		stripeRows = len(events)
		if stripeRows == 0 {
			stripeRows = 1
		}
	}
	r := &FakeReader{events: events, hasIndex: hasIndex}
	var offset int64
	for start := 0; start < len(events); start += stripeRows {
		end := start + stripeRows
		if end > len(events) {
			end = len(events)
		}
		n := int64(end - start)
		r.stripes = append(r.stripes, StripeInfo{StartOffset: offset, EndOffset: offset + n, NumRows: n})
		if hasIndex {
			last := events[end-1]
			r.keyIndex = append(r.keyIndex, RecordIdentifier{OriginalTxn: last.OriginalTxn, Bucket: last.Bucket, RowID: last.RowID})
		}
		offset += n
	}
	return r
}

// Stripes implements StripeReader.
func (r *FakeReader) Stripes() []StripeInfo { return r.stripes }

// KeyIndex implements StripeReader.
func (r *FakeReader) KeyIndex() ([]RecordIdentifier, bool) {
	if !r.hasIndex {
		return nil, false
	}
	return r.keyIndex, true
}

// Open implements StripeReader. opts.Offset/MaxOffset select a row range
// directly (the fake has no bytes, so "offset" means "row number").
func (r *FakeReader) Open(ctx context.Context, opts ReadOptions) (RowReader, error) {
	start := opts.Offset
	end := opts.MaxOffset
	if end <= 0 || end > int64(len(r.events)) {
		end = int64(len(r.events))
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return &fakeRowReader{events: r.events[start:end]}, nil
}

type fakeRowReader struct {
	events []FakeEvent
	pos    int64
	closed bool
}

// Next implements RowReader.
func (fr *fakeRowReader) Next(scratch *Event) (*Event, error) {
	if fr.closed || fr.pos >= int64(len(fr.events)) {
		return nil, nil
	}
	e := fr.events[fr.pos]
	fr.pos++
	if scratch == nil {
		scratch = &Event{}
	}
	scratch.Operation = e.Operation
	scratch.OriginalTxn = e.OriginalTxn
	scratch.Bucket = e.Bucket
	scratch.RowID = e.RowID
	scratch.CurrentTxn = e.CurrentTxn
	scratch.Row = FakeRow{Payload: e.Payload}
	return scratch, nil
}

// RowNumber implements RowReader.
func (fr *fakeRowReader) RowNumber() int64 { return fr.pos - 1 }

// Progress implements RowProgressor.
func (fr *fakeRowReader) Progress() float64 {
	if len(fr.events) == 0 {
		return 1.0
	}
	return float64(fr.pos) / float64(len(fr.events))
}

// Close implements RowReader. Idempotent.
func (fr *fakeRowReader) Close() error {
	fr.closed = true
	return nil
}

// FakeOriginalFile is one physical file in a FakeOriginalFileSource: a
// name and its fixed row payloads.
type FakeOriginalFile struct {
	Path     string
	Payloads []string
}

// FakeOriginalFileSource is an in-memory OriginalFileSource over a fixed
// list of physical files, in the order given to NewFakeOriginalFileSource.
type FakeOriginalFileSource struct {
	files []FakeOriginalFile
}

// NewFakeOriginalFileSource builds a FakeOriginalFileSource over files, in
// deterministic order ("bbbbb_0", "bbbbb_0_copy_1", ...).
func NewFakeOriginalFileSource(files []FakeOriginalFile) *FakeOriginalFileSource {
	return &FakeOriginalFileSource{files: files}
}

// Files implements OriginalFileSource.
func (s *FakeOriginalFileSource) Files() []OriginalFile {
	out := make([]OriginalFile, len(s.files))
	for i, f := range s.files {
		out[i] = OriginalFile{Path: f.Path, CopyIndex: i}
	}
	return out
}

// RowCount implements OriginalFileSource.
func (s *FakeOriginalFileSource) RowCount(ctx context.Context, f OriginalFile) (int64, error) {
	for _, cand := range s.files {
		if cand.Path == f.Path {
			return int64(len(cand.Payloads)), nil
		}
	}
	return 0, invariantf("FakeOriginalFileSource.RowCount", "no such file %q", f.Path)
}

// Open implements OriginalFileSource. The fake ignores opts entirely: it
// always yields every row of the named file in order.
func (s *FakeOriginalFileSource) Open(ctx context.Context, f OriginalFile, opts ReadOptions) (RowReader, error) {
	for _, cand := range s.files {
		if cand.Path == f.Path {
			return &fakeOriginalRowReader{payloads: cand.Payloads}, nil
		}
	}
	return nil, invariantf("FakeOriginalFileSource.Open", "no such file %q", f.Path)
}

type fakeOriginalRowReader struct {
	payloads []string
	pos      int64
	closed   bool
}

// Next implements RowReader. Original files carry no envelope; only Row
// is meaningful, the rest is filled in by OriginalCursor.
func (fr *fakeOriginalRowReader) Next(scratch *Event) (*Event, error) {
	if fr.closed || fr.pos >= int64(len(fr.payloads)) {
		return nil, nil
	}
	p := fr.payloads[fr.pos]
	fr.pos++
	if scratch == nil {
		scratch = &Event{}
	}
	scratch.Row = FakeRow{Payload: p}
	return scratch, nil
}

// RowNumber implements RowReader.
func (fr *fakeOriginalRowReader) RowNumber() int64 { return fr.pos - 1 }

// Close implements RowReader. Idempotent.
func (fr *fakeOriginalRowReader) Close() error {
	fr.closed = true
	return nil
}
