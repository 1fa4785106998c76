// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"net/http"
	"strconv"
)

// getRecentMessages godoc
// @summary  List recently seen messages
// @tags     messages
// @produce  json
// @param    channel query string false "channel name filter"
// @param    limit   query int    false "max rows, default 100, capped at 500"
// @success  200 {array} model.Message
// @router   /api/messages/recent [get]
func (api *RestApi) getRecentMessages(rw http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	msgs, err := api.Messages.Recent(r.Context(), channel, limit)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, msgs)
}
