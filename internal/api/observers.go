// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/meshrank/meshrank/internal/model"
)

// rankedObserversTTL bounds how stale a cached ranking may be; short enough
// that a newly-registered observer shows up within one polling interval.
const rankedObserversTTL = 10 * time.Second

// getRankedObservers godoc
// @summary  List observers ranked by packet count
// @tags     observers
// @produce  json
// @param    windowHours query int false "lookback window in hours (default 24)"
// @success  200 {array} model.RankedObserver
// @router   /api/observers/ranked [get]
func (api *RestApi) getRankedObservers(rw http.ResponseWriter, r *http.Request) {
	windowHours := 24
	if v := r.URL.Query().Get("windowHours"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			windowHours = parsed
		}
	}

	sinceMs := time.Now().Add(-time.Duration(windowHours) * time.Hour).UnixMilli()

	var queryErr error
	cacheKey := fmt.Sprintf("ranked:%d", windowHours)
	cached := api.cache.Get(cacheKey, func() (interface{}, time.Duration, int) {
		ranked, err := api.Observers.GetRankedObservers(r.Context(), sinceMs)
		if err != nil {
			queryErr = err
			return []model.RankedObserver{}, 0, 0
		}
		return ranked, rankedObserversTTL, len(ranked) * 64
	})
	if queryErr != nil {
		handleError(queryErr, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, cached)
}
