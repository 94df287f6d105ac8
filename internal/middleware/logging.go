// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// statusRecorder captures the response code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LogMiddleware logs every HTTP request with its method, path, status and
// duration through Logrus.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("http request")
		})
	}
}

// LogSocketConnect records a WebSocket upgrade. roomCode may be empty when
// the client connects before creating or joining a room.
func LogSocketConnect(logger *logrus.Logger, remoteAddr, roomCode string) {
	logger.WithFields(logrus.Fields{
		"remote": remoteAddr,
		"room":   roomCode,
	}).Info("socket connected")
}

// LogSocketDisconnect records a WebSocket teardown with the close reason,
// if any.
func LogSocketDisconnect(logger *logrus.Logger, remoteAddr, roomCode string, err error) {
	fields := logrus.Fields{
		"remote": remoteAddr,
		"room":   roomCode,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("socket disconnected")
}
