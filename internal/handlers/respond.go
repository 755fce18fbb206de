package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"authkit-session/internal/common/errors"
	"authkit-session/internal/common/logging"
)

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusFor maps an AppError type to the HTTP status the host answers with.
func statusFor(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeLoginRequired, errors.ErrTypeNoSession, errors.ErrTypeRefresh, errors.ErrTypeCodeExchange:
		return http.StatusUnauthorized
	case errors.ErrTypeValidation:
		return http.StatusBadRequest
	case errors.ErrTypeLockTimeout:
		return http.StatusServiceUnavailable
	case errors.ErrTypeConnection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", err, logging.Field{Key: "status", Value: status})
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}

	resp := errorResponse{Error: err.Error(), Type: string(errors.GetType(err))}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		resp.Error = appErr.Message
		resp.Code = appErr.Code
	}
	writeJSON(w, status, resp)
}
