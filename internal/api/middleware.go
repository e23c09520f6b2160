package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Sayrikey1/Code-and-Clause/internal/auth"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
)

// CallerHeader carries the validated identity set by the upstream
// authenticating proxy. This service performs no authentication itself.
const CallerHeader = "X-Caller-ID"

type contextKey string

const callerIDKey contextKey = "caller_id"

// CallerID returns the caller identity attached by the middleware.
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(callerIDKey).(string)
	return id
}

// withLogging logs method, path, status, and duration per request.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info("%s %s -> %d (%s)", r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}

// withCaller extracts the validated caller id and checks the policy for the
// given operation before passing the request on.
func withCaller(policy *auth.Policy, op string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID := r.Header.Get(CallerHeader)
		if callerID == "" {
			writeError(w, http.StatusUnauthorized, "missing caller identity")
			return
		}
		if !policy.IsOpAllowed(callerID, op) {
			writeError(w, http.StatusForbidden, "caller is not allowed to perform this operation")
			return
		}
		ctx := context.WithValue(r.Context(), callerIDKey, callerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
