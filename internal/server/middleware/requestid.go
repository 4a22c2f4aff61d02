// Package middleware provides HTTP middleware for request identification and access logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// requestIDKey is the context key for storing the request ID.
const requestIDKey ContextKey = "requestID"

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID. A well-formed UUID sent by the client is reused;
// anything else is replaced. The ID is echoed in the response header and stored in the context.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(strings.TrimSpace(r.Header.Get(RequestIDHeader)))
			if err != nil || id == uuid.Nil {
				id = uuid.New()
			}

			w.Header().Set(RequestIDHeader, id.String())
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID extracts the request ID from the request context. It returns uuid.Nil when the
// RequestID middleware did not run.
func GetRequestID(r *http.Request) uuid.UUID {
	id, ok := r.Context().Value(requestIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
