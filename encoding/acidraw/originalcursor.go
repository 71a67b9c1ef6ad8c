// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

import "context"

// OriginalFile identifies one physical file of a logical pre-ACID bucket,
// e.g. "bbbbb_0" (CopyIndex 0) or "bbbbb_0_copy_3" (CopyIndex 3).
type OriginalFile struct {
	Path      string
	CopyIndex int
}

// OriginalFileSource is the directory-layout/columnar-reader surface
// OriginalCursor is built against: enumerating a logical bucket's
// physical files in deterministic order, reporting each file's row
// count (from per-file statistics), and opening one for reading.
type OriginalFileSource interface {
	// Files returns every physical file of one logical bucket, in
	// deterministic order ("bbbbb_0", "bbbbb_0_copy_1", ...).
	Files() []OriginalFile

	// RowCount returns f's total row count without opening it for
	// sequential reads.
	RowCount(ctx context.Context, f OriginalFile) (int64, error)

	// Open returns a RowReader over f's rows.
	Open(ctx context.Context, f OriginalFile, opts ReadOptions) (RowReader, error)
}

// OriginalCursor presents a pre-ACID physical file, or the full
// concatenation of a logical bucket's physical files, as an ACID event
// stream of INSERTs with originalTxn=0, currentTxn=0, and a bucket-global
// rowId that stays contiguous across the concatenation.
type OriginalCursor struct {
	ctx         context.Context
	src         OriginalFileSource
	bucket      int32
	statementID int32
	opts        ReadOptions

	minKey *RecordIdentifier
	maxKey *RecordIdentifier

	compacting     bool
	remainingFiles []OriginalFile // files not yet opened; compaction mode only

	current              RowReader
	rowIdOffset          int64
	numRowsInCurrentFile int64

	headRecord       *Event
	headKey          ReaderKey
	advancedToMinKey bool
	closed           bool
	openErr          error
}

// NewOriginalCursorCompacting constructs an OriginalCursor that processes
// an entire logical bucket in one split: every physical file of the
// bucket is read in order, and rowIds are contiguous across all of them.
func NewOriginalCursorCompacting(ctx context.Context, src OriginalFileSource, bucket, statementID int32, opts ReadOptions) (*OriginalCursor, error) {
	files := src.Files()
	if len(files) == 0 {
		return nil, invariantf("NewOriginalCursorCompacting", "bucket %d has no original files", bucket)
	}
	oc := &OriginalCursor{
		ctx:            ctx,
		src:            src,
		bucket:         bucket,
		statementID:    statementID,
		opts:           opts,
		compacting:     true,
		remainingFiles: files,
	}
	return oc, nil
}

// NewOriginalCursorSplit constructs an OriginalCursor for a byte-range
// split of a single physical file belonging to a logical bucket. minKey
// and maxKey are the caller-supplied bounds (possibly nil); they are
// shifted or synthesized per the rowId offset of the target file within
// its logical bucket.
func NewOriginalCursorSplit(
	ctx context.Context,
	src OriginalFileSource,
	target OriginalFile,
	bucket, statementID int32,
	minKey, maxKey *RecordIdentifier,
	opts ReadOptions,
) (*OriginalCursor, error) {
	files := src.Files()
	idx := -1
	for i, f := range files {
		if f.Path == target.Path {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, invariantf("NewOriginalCursorSplit", "file %q not found among bucket %d's original files", target.Path, bucket)
	}
	isLastFileForThisBucket := idx == len(files)-1

	var rowIdOffset int64
	if target.CopyIndex > 0 {
		for i := 0; i < idx; i++ {
			n, err := src.RowCount(ctx, files[i])
			if err != nil {
				return nil, wrapIO("NewOriginalCursorSplit", err)
			}
			rowIdOffset += n
		}
	}

	if rowIdOffset > 0 {
		if minKey != nil {
			shifted := *minKey
			shifted.RowID += rowIdOffset
			minKey = &shifted
		} else {
			k := RecordIdentifier{OriginalTxn: 0, Bucket: bucket, RowID: rowIdOffset - 1}
			minKey = &k
		}
		if maxKey != nil {
			shifted := *maxKey
			shifted.RowID += rowIdOffset
			maxKey = &shifted
		}
	}

	numRowsInThisFile, err := src.RowCount(ctx, files[idx])
	if err != nil {
		return nil, wrapIO("NewOriginalCursorSplit", err)
	}
	if !isLastFileForThisBucket && maxKey == nil {
		k := RecordIdentifier{OriginalTxn: 0, Bucket: bucket, RowID: rowIdOffset + numRowsInThisFile - 1}
		maxKey = &k
	}

	reader, err := src.Open(ctx, files[idx], opts)
	if err != nil {
		return nil, wrapIO("NewOriginalCursorSplit", err)
	}
	return &OriginalCursor{
		ctx:                  ctx,
		src:                  src,
		bucket:               bucket,
		statementID:          statementID,
		opts:                 opts,
		minKey:               minKey,
		maxKey:               maxKey,
		current:              reader,
		rowIdOffset:          rowIdOffset,
		numRowsInCurrentFile: numRowsInThisFile,
	}, nil
}

// Bucket returns the bucket this cursor was constructed for.
func (oc *OriginalCursor) Bucket() int32 { return oc.bucket }

// StatementID returns the statement id this cursor tags every record with.
func (oc *OriginalCursor) StatementID() int32 { return oc.statementID }

// HeadRecord implements mergeCursor.
func (oc *OriginalCursor) HeadRecord() *Event { return oc.headRecord }

// HeadKey implements mergeCursor.
func (oc *OriginalCursor) HeadKey() ReaderKey { return oc.headKey }

// AdvanceToMinKey implements mergeCursor.
func (oc *OriginalCursor) AdvanceToMinKey() error {
	if oc.advancedToMinKey {
		return nil
	}
	oc.advancedToMinKey = true
	return advanceToMinKey(oc, oc.minKey)
}

// Next implements mergeCursor. It draws from the current physical file;
// on EOF, in compaction mode, it advances rowIdOffset and opens the next
// bucket-matching file.
func (oc *OriginalCursor) Next(scratch *Event) (*Event, error) {
	if oc.closed {
		return nil, nil
	}
	for {
		if oc.current == nil {
			if !oc.openNextFile() {
				oc.finish()
				if oc.openErr != nil {
					return nil, oc.openErr
				}
				return nil, nil
			}
		}
		rec, err := oc.current.Next(scratch)
		if err != nil {
			oc.fail()
			return nil, wrapIO("OriginalCursor.Next", err)
		}
		if rec == nil {
			if err := oc.current.Close(); err != nil {
				oc.fail()
				return nil, wrapIO("OriginalCursor.Next", err)
			}
			oc.rowIdOffset += oc.numRowsInCurrentFile
			oc.current = nil
			continue
		}
		rowID := oc.rowIdOffset + oc.current.RowNumber()
		rec.Operation = OpInsert
		rec.OriginalTxn = 0
		rec.CurrentTxn = 0
		rec.Bucket = oc.bucket
		rec.RowID = rowID
		oc.headKey.SetAll(0, oc.bucket, rowID, 0, oc.statementID)
		if oc.maxKey != nil && oc.headKey.CompareRow(*oc.maxKey) > 0 {
			oc.finish()
			return nil, nil
		}
		oc.headRecord = rec
		return rec, nil
	}
}

// openNextFile opens the next bucket-matching file in compaction mode.
// It returns false when there is nothing left to open (including: not
// compacting, and the single split file was already consumed).
func (oc *OriginalCursor) openNextFile() bool {
	if !oc.compacting || len(oc.remainingFiles) == 0 {
		return false
	}
	f := oc.remainingFiles[0]
	oc.remainingFiles = oc.remainingFiles[1:]
	n, err := oc.src.RowCount(oc.ctx, f)
	if err != nil {
		oc.openErr = wrapIO("OriginalCursor.openNextFile", err)
		return false
	}
	r, err := oc.src.Open(oc.ctx, f, oc.opts)
	if err != nil {
		oc.openErr = wrapIO("OriginalCursor.openNextFile", err)
		return false
	}
	oc.current = r
	oc.numRowsInCurrentFile = n
	return true
}

func (oc *OriginalCursor) finish() {
	oc.headRecord = nil
	_ = oc.Close()
}

func (oc *OriginalCursor) fail() {
	oc.headRecord = nil
	_ = oc.Close()
}

// Close implements mergeCursor. Idempotent.
func (oc *OriginalCursor) Close() error {
	if oc.closed {
		return nil
	}
	oc.closed = true
	var err error
	if oc.current != nil {
		err = oc.current.Close()
		oc.current = nil
	}
	return err
}

// Progress reports the current physical file's RowProgressor value, or
// 1.0 once the cursor has finished. It does not account for remaining
// files in compaction mode, consistent with spec.md §7's "coarse UIs
// only" caveat for progress reporting.
func (oc *OriginalCursor) Progress() float64 {
	if oc.closed {
		return 1.0
	}
	if oc.current == nil {
		return 0
	}
	if p, ok := oc.current.(RowProgressor); ok {
		return p.Progress()
	}
	return 0
}
