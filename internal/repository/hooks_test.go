// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHooksBeforeAfter(t *testing.T) {
	h := &Hooks{}

	ctx, err := h.Before(context.Background(), "SELECT 1", 1, 2)
	assert.NoError(t, err)
	assert.NotNil(t, ctx.Value(ctxKeyBegin))

	ctx, err = h.After(ctx, "SELECT 1", 1, 2)
	assert.NoError(t, err)
	assert.NotNil(t, ctx)
}

func TestHooksAfterPanicsWithoutBefore(t *testing.T) {
	h := &Hooks{}
	assert.Panics(t, func() {
		h.After(context.Background(), "SELECT 1")
	})
}
