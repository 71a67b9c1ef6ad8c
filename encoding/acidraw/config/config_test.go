// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions.Validate())
	assert.NoError(t, Options{OriginalSplitRows: 100}.Validate())
	assert.Error(t, Options{OriginalSplitRows: -1}.Validate())
}

func TestDefaultOptions(t *testing.T) {
	assert.False(t, DefaultOptions.Collapse)
	assert.Equal(t, int64(0), DefaultOptions.OriginalSplitRows)
}
