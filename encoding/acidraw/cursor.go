// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

// mergeCursor is the contract the Merger is built against. Cursor and
// OriginalCursor are its two implementations: a sum type expressed as an
// interface with two concrete members, per the polymorphic-cursor design
// note. Compaction vs. split mode within OriginalCursor is a further
// split into two constructors rather than an internal flag soup.
type mergeCursor interface {
	// AdvanceToMinKey must be called exactly once, before the first call
	// to Next, to skip any records at or below minKey.
	AdvanceToMinKey() error

	// Next reads the next record, reusing scratch to avoid allocation
	// when non-nil. It returns the new head record, or nil at end of
	// cursor (exhaustion or crossing maxKey).
	Next(scratch *Event) (*Event, error)

	// HeadRecord returns the record most recently produced by Next or
	// AdvanceToMinKey, or nil if the cursor is exhausted.
	HeadRecord() *Event

	// HeadKey returns the ReaderKey of HeadRecord. Only meaningful while
	// HeadRecord is non-nil.
	HeadKey() ReaderKey

	// Close releases the cursor's underlying file reader(s). Idempotent.
	Close() error
}

// advanceToMinKey implements the shared initialization-latch logic used
// by both Cursor and OriginalCursor: read ahead past every record whose
// row projection is <= minKey, i.e. skip records at or below the
// exclusive lower bound.
func advanceToMinKey(c mergeCursor, minKey *RecordIdentifier) error {
	scratch := &Event{}
	for {
		rec, err := c.Next(scratch)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		if minKey == nil || c.HeadKey().CompareRow(*minKey) > 0 {
			return nil
		}
		// Recycle the buffer we just read into for the next read.
		scratch = rec
	}
}

// Cursor is a one-record-lookahead reader over a single ACID file
// (base or delta), clipped to (minKey, maxKey].
type Cursor struct {
	reader      RowReader
	minKey      *RecordIdentifier
	maxKey      *RecordIdentifier
	bucket      int32
	statementID int32

	headRecord       *Event
	headKey          ReaderKey
	advancedToMinKey bool
	closed           bool
}

// NewCursor binds a Cursor to an already-opened RowReader. NewCursor does
// not itself read anything; call AdvanceToMinKey before first use.
func NewCursor(reader RowReader, minKey, maxKey *RecordIdentifier, bucket, statementID int32) *Cursor {
	return &Cursor{
		reader:      reader,
		minKey:      minKey,
		maxKey:      maxKey,
		bucket:      bucket,
		statementID: statementID,
	}
}

// Bucket returns the bucket this cursor was constructed for.
func (c *Cursor) Bucket() int32 { return c.bucket }

// StatementID returns the statement id this cursor tags every record with.
func (c *Cursor) StatementID() int32 { return c.statementID }

// HeadRecord implements mergeCursor.
func (c *Cursor) HeadRecord() *Event { return c.headRecord }

// HeadKey implements mergeCursor.
func (c *Cursor) HeadKey() ReaderKey { return c.headKey }

// AdvanceToMinKey implements mergeCursor.
func (c *Cursor) AdvanceToMinKey() error {
	if c.advancedToMinKey {
		return nil
	}
	c.advancedToMinKey = true
	return advanceToMinKey(c, c.minKey)
}

// Next implements mergeCursor.
func (c *Cursor) Next(scratch *Event) (*Event, error) {
	if c.closed {
		return nil, nil
	}
	rec, err := c.reader.Next(scratch)
	if err != nil {
		c.fail()
		return nil, wrapIO("Cursor.Next", err)
	}
	if rec == nil {
		c.finish()
		return nil, nil
	}
	c.headKey.SetAll(rec.OriginalTxn, rec.Bucket, rec.RowID, rec.CurrentTxn, c.statementID)
	if c.maxKey != nil && c.headKey.CompareRow(*c.maxKey) > 0 {
		c.finish()
		return nil, nil
	}
	c.headRecord = rec
	return rec, nil
}

// finish marks the cursor exhausted (EOF or crossed maxKey) and closes
// the underlying reader.
func (c *Cursor) finish() {
	c.headRecord = nil
	_ = c.Close()
}

// fail marks the cursor poisoned after an I/O error; it is still closed,
// but must never be read from again.
func (c *Cursor) fail() {
	c.headRecord = nil
	_ = c.Close()
}

// Close implements mergeCursor. Idempotent.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.reader.Close()
}

// Progress reports the underlying reader's RowProgressor value, or 1.0
// once the cursor has finished (so a consumer polling after the stream
// ends sees completion rather than a stale fraction).
func (c *Cursor) Progress() float64 {
	if c.closed {
		return 1.0
	}
	if p, ok := c.reader.(RowProgressor); ok {
		return p.Progress()
	}
	return 0
}
