// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"encoding/json"
	"net/http"
)

// errorBody is the flat error shape used across the Control plane (spec
// §4.11's endpoints are unwrapped JSON, not a {data,error,meta} envelope).
type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a flat {"error": message} body. code is accepted for
// call-site symmetry with model.ActionResult's error codes but isn't
// currently part of the Control plane's wire shape.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorBody{Error: message})
}
