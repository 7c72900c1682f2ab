package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tjfontaine/pipeline-library/internal/api/wire"
	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

// TimeoutMiddleware bounds each request's context by timeout. Handlers and
// stores stop cooperatively through ctx; when a handler gives up after the
// deadline without writing anything, the client gets a 503 error body.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			next.ServeHTTP(tw, r.WithContext(ctx))

			if !tw.written && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				AddLogField(r.Context(), "timeout", timeout.String())
				wire.WriteError(w, domain.ErrServer("request timed out").
					WithStatusCode(http.StatusServiceUnavailable))
			}
		})
	}
}

type timeoutWriter struct {
	http.ResponseWriter
	written bool
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.written = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.written = true
	return tw.ResponseWriter.Write(b)
}
