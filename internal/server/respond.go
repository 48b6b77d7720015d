package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "worktrack/internal/platform/errors"
	"worktrack/internal/platform/remote"
)

const (
	codeConflict      = remote.CodeConflict
	codeNotFound      = remote.CodeNotFound
	codeSessionClosed = remote.CodeSessionClosed
	codeInvalidInput  = remote.CodeInvalidInput
	codeInternal      = remote.CodeInternal
)

const maxBody = 1 << 20

func errorBody(msg, code string) remote.ErrorBody {
	return remote.ErrorBody{Error: msg, Code: code}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto status codes and error codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error(), codeInvalidInput))
	case errors.Is(err, apperrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error(), codeNotFound))
	case errors.Is(err, apperrors.ErrActiveSessionExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error(), codeConflict))
	case errors.Is(err, apperrors.ErrSessionClosed):
		writeJSON(w, http.StatusConflict, errorBody(err.Error(), codeSessionClosed))
	case errors.Is(err, apperrors.ErrTransient):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error(), codeInternal))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error(), codeInternal))
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return errors.Join(apperrors.ErrInvalidInput, err)
	}
	return nil
}
