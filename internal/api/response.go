package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/nepremicnine/internal/logging"
	"github.com/erazemk/nepremicnine/internal/market"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeDomainError maps a market error to its HTTP status. Anything
// unclassified is logged and reported as an internal error.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := http.StatusInternalServerError, "internal", "internal error"

	switch {
	case errors.Is(err, market.ErrAlreadyDecided):
		status, code, message = http.StatusConflict, "already_decided", "this offer is no longer available"
	case errors.Is(err, market.ErrValidation):
		status, code, message = http.StatusBadRequest, "validation", err.Error()
	case errors.Is(err, market.ErrVerificationRequired):
		status, code, message = http.StatusForbidden, "verification_required", err.Error()
	case errors.Is(err, market.ErrAuthorization):
		status, code, message = http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, market.ErrStateConflict):
		status, code, message = http.StatusConflict, "state_conflict", err.Error()
	case errors.Is(err, market.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
	default:
		logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}

	jsonResponse(w, status, errorResponse{Error: message, Code: code})
}

// maxJSONBody caps request bodies decoded by decodeJSON.
const maxJSONBody = 64 << 10

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses a numeric path parameter, writing a 400 if it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// emptyIfNil keeps list endpoints returning [] instead of null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
