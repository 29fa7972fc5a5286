package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"chronicles/native/assets"
	"chronicles/native/bank"
	"chronicles/native/issuance"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps an engine error onto an HTTP status via its kind.
func statusFor(err error) int {
	switch {
	case errors.Is(err, issuance.ErrNotInitialized),
		errors.Is(err, issuance.ErrAlreadyInitialized),
		errors.Is(err, issuance.ErrCollectionNotSet):
		return http.StatusConflict
	case errors.Is(err, issuance.ErrRuggedUserNotFound),
		errors.Is(err, assets.ErrNotFound),
		errors.Is(err, assets.ErrCollectionMissing):
		return http.StatusNotFound
	case errors.Is(err, bank.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, issuance.ErrProgramPaused):
		return http.StatusServiceUnavailable
	}
	switch issuance.KindOf(err) {
	case issuance.KindAuthorization:
		return http.StatusForbidden
	case issuance.KindConfiguration, issuance.KindInput:
		return http.StatusBadRequest
	case issuance.KindStateGate, issuance.KindConflict:
		return http.StatusConflict
	case issuance.KindArithmetic, issuance.KindExternalEngine:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := issuance.KindOf(err)
	if status >= http.StatusInternalServerError && kind == issuance.KindInternal {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResponse{Error: http.StatusText(status), Kind: string(kind)})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: string(kind)})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: string(issuance.KindInput)})
}
