// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package routeinfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversineKm_SamePoint(t *testing.T) {
	require.InDelta(t, 0, haversineKm(53.4, -2.2, 53.4, -2.2), 1e-9)
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// London to Paris is approximately 344 km.
	d := haversineKm(51.5074, -0.1278, 48.8566, 2.3522)
	require.InDelta(t, 344, d, 10)
}

func TestLogistic_Symmetric(t *testing.T) {
	require.InDelta(t, 0.5, logistic(0), 1e-9)
	require.Greater(t, logistic(1), 0.5)
	require.Less(t, logistic(-1), 0.5)
}
