// Package respond writes the JSON envelope every endpoint answers with.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/apperrors"
)

// JSON writes data inside a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, api.Envelope{Success: true, Data: data})
}

// NoContent writes an empty success envelope.
func NoContent(w http.ResponseWriter) {
	write(w, http.StatusOK, api.Envelope{Success: true})
}

// Error writes err inside a failure envelope. Unclassified errors are logged
// and reported without their message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	body := &api.Error{Code: apperrors.CodeOf(err), Message: "internal error"}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", body.Code,
			"error", err,
		)
	}
	write(w, status, api.Envelope{Success: false, Error: body})
}

// Decode reads a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("invalid request body: %v", err)
	}
	return nil
}

func write(w http.ResponseWriter, status int, env api.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
