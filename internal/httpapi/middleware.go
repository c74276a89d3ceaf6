package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/imgdedup/internal/resource"
)

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// RequestID returns the request ID stored by the request ID middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// requestIDMiddleware generates a UUID per request and adds it to the context.
// A well-formed incoming X-Request-ID is kept.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), contextKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs request method, path, status, and latency.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", RequestID(r.Context()),
			)
		})
	}
}

// recoveryMiddleware catches panics and returns 500.
func (a *api) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: 0}
		defer func() {
			if rec := recover(); rec != nil {
				a.logger.ErrorContext(r.Context(), "panic recovered", "error", rec, "request_id", RequestID(r.Context()))
				if rw.statusCode == 0 {
					a.writeError(rw, http.StatusInternalServerError, "internal", "internal server error")
				}
			}
		}()
		next.ServeHTTP(rw, r)
	})
}

// admissionMiddleware bounds request rate, concurrency and upload memory.
func (a *api) admissionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := r.ContentLength
		if size < 0 || size > a.cfg.MaxUploadBytes {
			size = a.cfg.MaxUploadBytes
		}

		release, err := a.cfg.Admission.Admit(r.Context(), size)
		switch {
		case err == nil:
			defer release()
			next.ServeHTTP(w, r)
		case errors.Is(err, resource.ErrRateLimited):
			w.Header().Set("Retry-After", strconv.Itoa(1))
			a.writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
		default:
			w.Header().Set("Retry-After", strconv.Itoa(1))
			a.writeError(w, http.StatusServiceUnavailable, "overloaded", err.Error())
		}
	})
}

// bodyLimitMiddleware caps request bodies at MaxUploadBytes.
func (a *api) bodyLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > a.cfg.MaxUploadBytes {
			a.writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
		next.ServeHTTP(w, r)
	})
}

// applyMiddleware applies middleware in reverse order so the first in the list runs first.
func applyMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
