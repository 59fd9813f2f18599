package httpapi

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/signalsfoundry/orbiter/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with a request id, taken from the
// X-Request-ID header when present, and logs it on completion.
func requestLogger(base logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			if incoming := r.Header.Get(requestIDHeader); incoming != "" {
				ctx = logging.ContextWithRequestID(ctx, incoming)
			}
			ctx, reqLog := logging.WithRequestLogger(ctx, base.With(logging.String("path", r.URL.Path)))
			ctx = logging.ContextWithLogger(ctx, reqLog)
			w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.Int("status", rec.status),
				logging.Duration("duration", time.Since(start)),
			}
			if r.URL.Path == "/healthz" {
				reqLog.Debug(ctx, "request", fields...)
				return
			}
			reqLog.Info(ctx, "request", fields...)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
