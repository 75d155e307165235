package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/tkd-registrar/internal/registration"
	"github.com/sells-group/tkd-registrar/internal/store"
)

const maxBodyBytes = 1 << 20

// requestError is a validation failure raised by a handler.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.As(err, new(*requestError)), errors.Is(err, registration.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, registration.ErrInvalidTransition),
		errors.Is(err, registration.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, registration.ErrIncompleteData), errors.Is(err, registration.ErrUnclassified):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorResponse(r, err)
	writeJSON(w, status, errorBody{Error: msg})
}

// errorResponse returns the status for err and the message safe to show the
// client. Internal errors are logged and masked.
func errorResponse(r *http.Request, err error) (int, string) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		return status, err.Error()
	}
	zap.L().Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	return status, "internal error"
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}
