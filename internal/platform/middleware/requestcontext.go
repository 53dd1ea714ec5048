// Package middleware provides the platform middleware shared by both servers.
package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"cohort/pkg/requestcontext"
)

// RequestContext stamps every request with a correlation ID, the request
// time, and client metadata, all reachable through pkg/requestcontext.
// The request time is captured once so every store and token TTL decision
// within one request sees the same clock reading.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		ctx = requestcontext.WithClientMetadata(ctx, clientIP(r), r.UserAgent())

		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	// Trust X-Forwarded-For only for its first hop; dev deployments sit
	// behind no proxy and fall through to RemoteAddr.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
