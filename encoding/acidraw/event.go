// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

// Operation is the mutation kind carried by an Event's envelope.
type Operation int32

// Operation values match the on-disk event envelope encoding.
const (
	OpInsert Operation = 0
	OpUpdate Operation = 1
	OpDelete Operation = 2
)

func (op Operation) String() string {
	switch op {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is an ACID event envelope: the fixed leading fields written by
// every ACID file (base or delta), plus the opaque user payload. Row is
// whatever the columnar reader handed back for the payload columns; the
// merger never inspects it.
type Event struct {
	Operation   Operation
	OriginalTxn int64
	Bucket      int32
	RowID       int64
	CurrentTxn  int64
	Row         interface{}
}

// Identifier returns the RecordIdentifier this event's envelope encodes.
func (e *Event) Identifier() RecordIdentifier {
	return RecordIdentifier{OriginalTxn: e.OriginalTxn, Bucket: e.Bucket, RowID: e.RowID}
}

// IsDelete reports whether e's operation is a DELETE.
func IsDelete(e *Event) bool {
	return e.Operation == OpDelete
}
