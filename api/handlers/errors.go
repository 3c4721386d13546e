package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// statusFor maps a program error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, escrow.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, escrow.ErrInsufficientFunds),
		errors.Is(err, escrow.ErrConfigNotInitialized),
		errors.Is(err, escrow.ErrConfigAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrMathOverflow),
		errors.Is(err, escrow.ErrNoPoints),
		errors.Is(err, escrow.ErrInvalidInsiderShares),
		errors.Is(err, escrow.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, escrow.ErrMissingRemainingAccounts),
		errors.Is(err, escrow.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeProgramError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("handlers: request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
		writeError(w, status, "internal", "internal error")
		return
	}
	writeError(w, status, escrow.Code(err), err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid request body: "+err.Error())
		return false
	}
	return true
}
