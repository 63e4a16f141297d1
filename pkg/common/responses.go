package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	pkgerrors "docgraph/pkg/errors"
)

// MaxRequestBodyBytes bounds every JSON request body
const MaxRequestBodyBytes = 1 << 20

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// RespondNoContent sends an empty 204
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// ListResponse wraps collection results with their count
type ListResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

// ParseJSONBody decodes a size-limited JSON body into v. Unknown fields and
// trailing data are rejected. Failures are InvalidArgument errors.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return pkgerrors.NewInvalidArgumentError("request body is required")
		case errors.As(err, &maxErr):
			return pkgerrors.NewInvalidArgumentError("request body too large")
		default:
			return pkgerrors.NewInvalidArgumentError("invalid request body: " + err.Error())
		}
	}
	if decoder.More() {
		return pkgerrors.NewInvalidArgumentError("request body must contain a single JSON object")
	}
	return nil
}
