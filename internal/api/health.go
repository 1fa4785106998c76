// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"net/http"
	"time"
)

// getHealth godoc
// @summary  Report ingest liveness
// @tags     health
// @produce  json
// @success  200 {object} model.Health
// @router   /api/health [get]
func (api *RestApi) getHealth(rw http.ResponseWriter, r *http.Request) {
	h, err := api.Metrics.Health(r.Context(), api.DBPath, api.RfPackets, api.Devices, time.Now())
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, h)
}
