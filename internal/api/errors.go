package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/soochol/storylens/internal/storylens"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storylens.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storylens.ErrValidation), errors.Is(err, storylens.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, storylens.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError renders err with the status statusFor picks. Internal errors
// are logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch status := statusFor(err); status {
	case http.StatusNotFound:
		writeNotFound(w, r)
	case http.StatusInternalServerError:
		slog.Error("api: request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		writeInternalError(w)
	default:
		writeJSON(w, status, map[string]string{
			"error":  http.StatusText(status),
			"detail": err.Error(),
		})
	}
}

func writeNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error":   "Not Found",
		"message": "The requested resource was not found",
		"path":    r.URL.Path,
	})
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Internal Server Error",
		"message": "An unexpected error occurred",
	})
}

// recoverer turns handler panics into the JSON 500 body. Aborted handlers
// are re-panicked so net/http can drop the connection.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("api: panic serving request",
				"method", r.Method, "path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()), "panic", rec)
			writeInternalError(w)
		}()
		next.ServeHTTP(w, r)
	})
}
