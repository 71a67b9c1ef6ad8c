// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package acidraw

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvariantError reports a violation of a Merger/Cursor invariant, e.g. a
// compaction split that arrives with an inconsistent (offset, maxOffset,
// minKey, maxKey), or a bucket with no original files despite a split
// claiming it. It is always a bug in the caller or in the columnar
// reader's layout, never a data condition to recover from.
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("acidraw: invariant violated in %s: %s", e.Op, e.Msg)
}

func invariantf(op, format string, args ...interface{}) error {
	return &InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// wrapIO wraps an I/O error observed while opening or reading a cursor's
// underlying file with the operation that failed. Once a cursor produces
// a wrapIO error it is poisoned: the caller must not call Next on it
// again, and should close the owning Merger.
func wrapIO(op string, err error) error {
	return errors.Wrap(err, op)
}
