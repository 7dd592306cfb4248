package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/suspectuso/nft-staking/internal/staking"
)

const (
	jsonContentType = "application/json; charset=utf-8"
	maxBodySize     = 1 << 20
)

// errorBody is the wire form of a failed request
type errorBody struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// handlerFunc is an http.HandlerFunc that returns an error
type handlerFunc func(http.ResponseWriter, *http.Request) error

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", staking.ErrInvalidMessage, fmt.Sprintf(format, args...))
}

// statusOf maps a ledger error kind to its HTTP status
func statusOf(kind string) int {
	switch kind {
	case "Unauthorized":
		return http.StatusForbidden
	case "InvalidToken", "MissingIntent", "InvalidAddress", "InvalidMessage":
		return http.StatusBadRequest
	case "DuplicateRequest", "AlreadyInitialized":
		return http.StatusConflict
	case "NotInitialized":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) int {
	kind := staking.KindOf(err)
	status := statusOf(kind)
	reason := err.Error()
	if status == http.StatusInternalServerError {
		// storage details stay in the log
		reason = "internal error"
	}
	writeJSONStatus(w, status, &errorBody{Kind: kind, Reason: reason})
	return status
}

func writeJSON(w http.ResponseWriter, obj interface{}) error {
	return writeJSONStatus(w, http.StatusOK, obj)
}

func writeJSONStatus(w http.ResponseWriter, status int, obj interface{}) error {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(obj)
}

// parseJSON decodes a request body in strict mode
func parseJSON(r io.Reader, v interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r, maxBodySize))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
