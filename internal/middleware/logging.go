// Package middleware wraps the HTTP handlers the CLI serves next to a prompt.
package middleware

import (
	"net/http"
	"time"

	"github.com/benvon/saveprompt/internal/logger"
	"go.uber.org/zap"
)

// ScrapeLogging logs each request to the metrics endpoint at debug level
func ScrapeLogging(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Debug("Metrics scrape",
				zap.String("method", r.Method),
				zap.String("path", logger.SanitizeString(r.URL.Path, 0)),
				zap.Int("status_code", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
