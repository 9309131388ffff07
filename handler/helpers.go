// Package handler implements the §6 HTTP surface: thin handlers that
// authenticate (via middleware.AuthMiddleware, mounted in the router),
// authorize ownership, call into the core packages, and shape JSON
// responses per the §7 envelope.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/f0rbit/timeline/apierr"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeBody parses the JSON request body into v, returning apierr.KindEmptyBody
// on an empty body and apierr.InvalidFormat on malformed JSON.
func decodeBody(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return &apierr.Error{Kind: apierr.KindEmptyBody, Label: apierr.LabelBadRequest, Status: 400, Message: "request body is required"}
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apierr.InvalidFormat("malformed JSON body: " + err.Error())
	}
	return nil
}
