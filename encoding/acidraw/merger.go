// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

import (
	"context"

	"github.com/biogo/store/llrb"
	"v.io/x/lib/vlog"
)

// DeltaStats is a delta file's embedded ACID summary statistics, as
// decoded by the stats package from the delta's trailer.
type DeltaStats struct {
	Inserts int64
	Updates int64
	Deletes int64
}

// DeltaSource is one delta directory's contribution to a Merger: the
// bucket's file within that directory (already located by the
// directory-layout utilities), its statement id, the durable
// flush-length marker, and its summary statistics.
type DeltaSource struct {
	StatementID int32
	Reader      StripeReader
	FlushLength int64 // 0 means: use the file's own size, no cap.
	Stats       DeltaStats
}

// CompactionOptions mirrors mergerOptions from spec.md's wiring surface:
// the parameters that distinguish a plain split read from a full-bucket
// compaction pass over original files.
type CompactionOptions struct {
	CopyIndex  int
	Compacting bool
	BucketPath string // only meaningful for a split (non-compacting) read.
}

// Options configures a Merger.
type Options struct {
	Collapse     bool
	IsOriginal   bool
	Bucket       int32
	ValidTxnList ValidTxnList
	ReadOptions  ReadOptions
	Copying      CompactionOptions
}

// registryEntry is one pending cursor's slot in the ordered registry. seq
// breaks ties between cursors whose ReaderKey happens to compare equal,
// mirroring mergeLeaf.Compare's "l.seq - l1.seq" tie-break in the
// teacher's llrb-based k-way merge.
type registryEntry struct {
	key    ReaderKey
	cursor mergeCursor
	seq    int64
}

func (e *registryEntry) Compare(other llrb.Comparable) int {
	o := other.(*registryEntry)
	if c := e.key.Compare(o.key); c != 0 {
		return c
	}
	if e.seq != o.seq {
		return int(e.seq - o.seq)
	}
	return 0
}

// Merger performs the multi-way merge of a base cursor and one cursor per
// delta, in ReaderKey order, applying transaction-validity filtering and
// the collapse policy.
type Merger struct {
	readers llrb.Tree // of *registryEntry; the pending set, minus primary.
	seq     int64

	primary       mergeCursor
	secondaryKey  ReaderKey
	haveSecondary bool

	prevKey  ReaderKey
	havePrev bool

	extraValue *Event // single recycled record buffer.

	collapse     bool
	validTxnList ValidTxnList
	bounds       KeyInterval
	columns      int
	closed       bool

	baseCursor mergeCursor // kept for GetProgress even after it leaves primary.
	baseOffset int64
	baseLength int64

	compacting bool
}

// progressor is the subset of mergeCursor that can report fractional
// progress through its underlying file; both Cursor and OriginalCursor
// implement it.
type progressor interface {
	Progress() float64
}

// buildEventOptions derives the read options used for every delta: the
// byte range's upper bound is lifted (MaxOffset 0, replaced per delta by
// its flush-length cap below) while Offset is carried over from base
// unchanged, and payload columns are named as wrapped envelope fields.
func buildEventOptions(base ReadOptions) ReadOptions {
	opts := base
	opts.MaxOffset = 0
	if len(base.Columns) > 0 {
		cols := make([]string, len(base.Columns))
		for i, c := range base.Columns {
			cols[i] = "row." + c
		}
		opts.Columns = cols
	}
	return opts
}

// NewMerger builds a Merger over an optional base and a set of deltas,
// implementing spec.md 4.5's five construction steps: derive event
// options, build the base cursor (original or ACID variant, per
// opts.IsOriginal), build one cursor per delta clipped to the base's
// bounds with pushdown stripped for deltas carrying updates or deletes,
// then seed primary/secondary from the resulting registry.
func NewMerger(
	ctx context.Context,
	opts Options,
	base StripeReader,
	originalSrc OriginalFileSource,
	deltas []DeltaSource,
) (*Merger, error) {
	m := &Merger{
		collapse:     opts.Collapse,
		validTxnList: opts.ValidTxnList,
		compacting:   opts.IsOriginal && opts.Copying.Compacting,
	}
	if m.validTxnList == nil {
		m.validTxnList = AllTxnsValid{}
	}
	eventOpts := buildEventOptions(opts.ReadOptions)

	if base != nil {
		var baseCursor mergeCursor
		var err error
		if opts.IsOriginal {
			baseCursor, err = newOriginalBaseCursor(ctx, opts, base, originalSrc)
		} else {
			baseCursor, err = newACIDBaseCursor(ctx, opts, base)
		}
		if err != nil {
			return nil, err
		}
		if err := baseCursor.AdvanceToMinKey(); err != nil {
			return nil, err
		}
		m.bounds = KeyInterval{MinKey: cursorMinKey(baseCursor), MaxKey: cursorMaxKey(baseCursor)}
		if baseCursor.HeadRecord() != nil {
			m.register(baseCursor)
		}
		m.baseCursor = baseCursor
		m.baseOffset = opts.ReadOptions.Offset
		m.baseLength = opts.ReadOptions.MaxOffset - opts.ReadOptions.Offset
	}

	for _, d := range deltas {
		deltaOpts := eventOpts
		if d.FlushLength > 0 {
			deltaOpts.MaxOffset = d.FlushLength
		}
		if d.Stats.Deletes > 0 || d.Stats.Updates > 0 {
			deltaOpts.SearchArgument = nil
		}
		reader, err := d.Reader.Open(ctx, deltaOpts)
		if err != nil {
			return nil, wrapIO("NewMerger", err)
		}
		cur := NewCursor(reader, m.bounds.MinKey, m.bounds.MaxKey, opts.Bucket, d.StatementID)
		if err := cur.AdvanceToMinKey(); err != nil {
			return nil, err
		}
		if cur.HeadRecord() != nil {
			m.register(cur)
		}
	}

	if least := m.extractLeast(); least != nil {
		m.primary = least.cursor
		m.columns = len(opts.ReadOptions.Columns) + 5
	} else {
		m.primary = nil
		m.columns = 0
	}
	m.recomputeSecondary()
	vlog.VI(1).Infof("NewMerger: bucket %d, %d deltas, collapse=%v, bounds=%+v", opts.Bucket, len(deltas), opts.Collapse, m.bounds)
	return m, nil
}

func cursorMinKey(c mergeCursor) *RecordIdentifier {
	switch v := c.(type) {
	case *Cursor:
		return v.minKey
	case *OriginalCursor:
		return v.minKey
	default:
		return nil
	}
}

func cursorMaxKey(c mergeCursor) *RecordIdentifier {
	switch v := c.(type) {
	case *Cursor:
		return v.maxKey
	case *OriginalCursor:
		return v.maxKey
	default:
		return nil
	}
}

func newACIDBaseCursor(ctx context.Context, opts Options, base StripeReader) (*Cursor, error) {
	keyIndex, ok := base.KeyIndex()
	if !ok {
		return nil, invariantf("NewMerger", "base reader for bucket %d has no key index but IsOriginal=false", opts.Bucket)
	}
	iv, err := ACIDKeyBounds(base.Stripes(), keyIndex, opts.ReadOptions.Offset, opts.ReadOptions.MaxOffset)
	if err != nil {
		return nil, err
	}
	reader, err := base.Open(ctx, opts.ReadOptions)
	if err != nil {
		return nil, wrapIO("NewMerger", err)
	}
	return NewCursor(reader, iv.MinKey, iv.MaxKey, opts.Bucket, 0), nil
}

func newOriginalBaseCursor(ctx context.Context, opts Options, base StripeReader, originalSrc OriginalFileSource) (*OriginalCursor, error) {
	if opts.Copying.Compacting {
		return NewOriginalCursorCompacting(ctx, originalSrc, opts.Bucket, 0, opts.ReadOptions)
	}
	iv := OriginalKeyBounds(base.Stripes(), opts.Bucket, opts.ReadOptions.Offset, opts.ReadOptions.MaxOffset)
	target := OriginalFile{Path: opts.Copying.BucketPath, CopyIndex: opts.Copying.CopyIndex}
	return NewOriginalCursorSplit(ctx, originalSrc, target, opts.Bucket, 0, iv.MinKey, iv.MaxKey, opts.ReadOptions)
}

// register inserts c into the pending registry, keyed by its current head.
//
// REQUIRES: c.HeadRecord() != nil.
func (m *Merger) register(c mergeCursor) {
	m.seq++
	m.readers.Insert(&registryEntry{key: c.HeadKey(), cursor: c, seq: m.seq})
}

// extractLeast removes and returns the least-keyed entry in the
// registry, or nil if the registry is empty.
func (m *Merger) extractLeast() *registryEntry {
	var least *registryEntry
	m.readers.Do(func(item llrb.Comparable) bool {
		least = item.(*registryEntry)
		return false
	})
	if least == nil {
		return nil
	}
	m.readers.DeleteMin()
	return least
}

// recomputeSecondary sets secondaryKey to the registry's current least
// key, per the invariant that it always equals the least key in readers.
func (m *Merger) recomputeSecondary() {
	var least *registryEntry
	m.readers.Do(func(item llrb.Comparable) bool {
		least = item.(*registryEntry)
		return false
	})
	m.haveSecondary = least != nil
	if least != nil {
		m.secondaryKey = least.key
	}
}

// Next advances the merge by one emitted event. It returns false (with a
// nil error) at end of stream.
func (m *Merger) Next(outKey *ReaderKey, outRecord *Event) (bool, error) {
	for {
		if m.primary == nil {
			return false, nil
		}
		current := m.primary.HeadRecord()
		*outKey = m.primary.HeadKey()

		next, err := m.primary.Next(m.extraValue)
		if err != nil {
			vlog.Errorf("Merger.Next: cursor for bucket %d failed: %v", current.Bucket, err)
			return false, err
		}
		m.extraValue = current

		dominated := next == nil
		if !dominated && m.haveSecondary && m.primary.HeadKey().Compare(m.secondaryKey) > 0 {
			dominated = true
		}
		if dominated {
			if next != nil {
				m.register(m.primary)
			}
			if least := m.extractLeast(); least != nil {
				m.primary = least.cursor
			} else {
				m.primary = nil
			}
			m.recomputeSecondary()
		}

		if !m.validTxnList.IsValid(outKey.CurrentTxn) {
			continue
		}

		isSameRow := m.havePrev && m.prevKey.IsSameRow(*outKey)
		var keysSame bool
		switch {
		case m.collapse || isSameRow:
			keysSame = (m.collapse && m.havePrev && m.prevKey.CompareRow(outKey.RecordIdentifier) == 0) || isSameRow
		default:
			keysSame = false
		}
		if !keysSame {
			m.prevKey = *outKey
			m.havePrev = true
		}

		*outRecord = *current

		if keysSame {
			continue
		}
		return true, nil
	}
}

// GetProgress returns the base reader's fractional progress, or 1.0 if
// there is no base (spec.md §4.6/§7: progress ignores delta consumption).
func (m *Merger) GetProgress() float64 {
	if m.baseCursor == nil {
		return 1.0
	}
	if p, ok := m.baseCursor.(progressor); ok {
		return p.Progress()
	}
	return 0
}

// GetPos returns the base split's starting offset plus progress scaled
// by the split's byte length, or 0 if there is no base.
func (m *Merger) GetPos() int64 {
	if m.baseCursor == nil {
		return 0
	}
	return m.baseOffset + int64(m.GetProgress()*float64(m.baseLength))
}

// Compacting reports whether this Merger was built to compact an entire
// logical bucket's original files, as opposed to reading a byte-range
// split of one physical file. A compaction driver uses this to decide
// whether a finished Merger's output replaces every physical file of the
// bucket or only the one file it split.
func (m *Merger) Compacting() bool { return m.compacting }

// Bounds returns the merger-wide (minKey, maxKey), derived from the base
// cursor (after any original-mode rowId shifting), or the zero
// KeyInterval (unbounded) if there is no base.
func (m *Merger) Bounds() KeyInterval { return m.bounds }

// Columns returns the number of columns this merger reads: 0 if there is
// no content to stream.
func (m *Merger) Columns() int { return m.columns }

// CreateKey returns a zero-value ReaderKey suitable for passing to Next.
func (m *Merger) CreateKey() ReaderKey { return ReaderKey{} }

// CreateValue returns a zero-value Event suitable for passing to Next.
func (m *Merger) CreateValue() *Event { return &Event{} }

// Close closes the primary cursor and every cursor still registered.
// Idempotent.
func (m *Merger) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	var firstErr error
	if m.primary != nil {
		if err := m.primary.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.primary = nil
	}
	m.readers.Do(func(item llrb.Comparable) bool {
		e := item.(*registryEntry)
		if err := e.cursor.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	m.readers = llrb.Tree{}
	return firstErr
}
