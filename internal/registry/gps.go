// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package registry

import (
	"math"

	"github.com/meshrank/meshrank/internal/model"
)

// validateGPS applies the node registry's GPS acceptance rules: both
// coordinates finite, not the null island (0,0), and within WGS-84 range.
func validateGPS(lat, lon float64) (model.GPS, string, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return model.GPS{}, ReasonGPSNotFinite, false
	}
	g := model.GPS{Lat: lat, Lon: lon}
	if lat == 0 && lon == 0 {
		return model.GPS{}, ReasonGPSZeroPoint, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return model.GPS{}, ReasonGPSOutOfRange, false
	}
	return g, "", true
}
