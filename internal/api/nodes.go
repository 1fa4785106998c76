// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// getNode godoc
// @summary  Look up one node by public key
// @tags     nodes
// @produce  json
// @param    pub path string true "64-hex node public key"
// @success  200 {object} model.Node
// @failure  404 {object} ErrorResponse
// @router   /api/nodes/{pub} [get]
func (api *RestApi) getNode(rw http.ResponseWriter, r *http.Request) {
	pub := strings.ToUpper(mux.Vars(r)["pub"])

	node, found, err := api.Devices.GetNode(r.Context(), pub)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	if !found {
		handleError(fmt.Errorf("node %q not found", pub), http.StatusNotFound, rw)
		return
	}
	writeJSON(rw, node)
}
