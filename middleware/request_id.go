package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header used to propagate request IDs between services
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID and stores it in the context where
// GetRequestIDFromContext can find it. An ID supplied by the caller in the
// X-Request-ID header is reused so IDs stay stable across service hops; the
// chosen ID is echoed back in the response header either way.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
