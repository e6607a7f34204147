package httpinterface

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID propagates the request id given by the client, or a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  requestIDFromContext(r.Context()),
		}).Debug("http request")
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				log.WithFields(log.Fields{
					"panic":      rvr,
					"path":       r.URL.Path,
					"request_id": requestIDFromContext(r.Context()),
				}).Errorf("panic recovered: %s", debug.Stack())
				writeErrorBody(w, http.StatusInternalServerError, errorBody{
					Error:   "internal",
					Message: "internal error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticateRequest(secret, r)
			if err != nil {
				log.WithError(err).WithField(
					"request_id", requestIDFromContext(r.Context()),
				).Debug("unauthenticated request")
				writeErrorBody(w, http.StatusUnauthorized, errorBody{
					Error:   "unauthenticated",
					Message: err.Error(),
				})
				return
			}

			ctx := withPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticateRequest(secret []byte, r *http.Request) (domain.Principal, error) {
	token, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", err
	}
	return ParseToken(secret, token)
}
