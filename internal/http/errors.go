package http

import (
	"errors"
	"net/http"

	"tripspese/internal/core"
	"tripspese/internal/log"
)

// writeError maps a ledger error to its status. Storage causes are logged
// but never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation failed", Errors: ve.Messages()})
	case errors.Is(err, core.ErrValidation):
		writeMessage(w, http.StatusBadRequest, "Validation failed")
	case errors.Is(err, core.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "Invalid password")
	case errors.Is(err, core.ErrInvalidID):
		writeMessage(w, http.StatusBadRequest, "Invalid expense ID")
	case errors.Is(err, core.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Expense not found or already deleted")
	default:
		errorType := log.ErrorTypeInternal
		if errors.Is(err, core.ErrStorage) {
			errorType = log.ErrorTypeDatabase
		}
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, errorType, op, nil)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
