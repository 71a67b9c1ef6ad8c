// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package acidraw implements the merge engine for a transactional table
// whose contents are stored as one immutable base dataset plus a
// time-ordered sequence of delta datasets of insert/update/delete events.
//
// A Merger presents, for a single bucket of a single split, a
// deterministically ordered stream of events across the base and every
// delta, filtered to the split's key range and to currently valid
// transactions. The columnar file reader, directory layout, and
// transaction snapshot oracle are supplied by the caller through the
// StripeReader, ValidTxnList and layout helper types; this package owns
// only the merge itself.
package acidraw
