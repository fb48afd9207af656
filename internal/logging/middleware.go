// ABOUTME: HTTP request logging middleware.
// ABOUTME: Captures method, path, status, duration, and capped bodies into request_logs and the zap logger.

package logging

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/2389/dic/internal/auth"
	"github.com/2389/dic/internal/store"
)

const maxBodySize = 10 * 1024 // 10KB limit for body capture

// Recorder persists request logs. *store.Store implements it.
type Recorder interface {
	LogRequest(log *store.RequestLog) error
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	if rw.body.Len() < maxBodySize {
		toCopy := len(b)
		if rw.body.Len()+toCopy > maxBodySize {
			toCopy = maxBodySize - rw.body.Len()
		}
		rw.body.Write(b[:toCopy])
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack implements http.Hijacker to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.written = true
	return h.Hijack()
}

// Flush implements http.Flusher for streamed responses.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func skip(path string) bool {
	return path == "/healthz" || path == "/favicon.ico" || strings.HasPrefix(path, "/static/")
}

// Middleware logs HTTP requests to rec (if non-nil) and logger.
func Middleware(rec Recorder, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var requestBody string
			if r.Body != nil {
				bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
				if err == nil {
					requestBody = string(bodyBytes)
					// Restore the full body: the captured prefix followed by the rest.
					r.Body = struct {
						io.Reader
						io.Closer
					}{io.MultiReader(bytes.NewReader(bodyBytes), r.Body), r.Body}
				}
			}

			start := time.Now()
			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			ip := r.RemoteAddr
			if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
				ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
			}

			entry := &store.RequestLog{
				Timestamp:    start,
				Area:         AreaFromPath(r.URL.Path),
				Method:       r.Method,
				Path:         r.URL.Path,
				StatusCode:   wrapped.statusCode,
				DurationMs:   int(duration.Milliseconds()),
				SessionID:    auth.SessionFromContext(r.Context()),
				IPAddress:    ip,
				UserAgent:    r.Header.Get("User-Agent"),
				RequestBody:  requestBody,
				ResponseBody: wrapped.body.String(),
			}
			if entry.StatusCode >= 400 {
				entry.Error = http.StatusText(entry.StatusCode)
			}

			logger.Info("request",
				zap.String("method", entry.Method),
				zap.String("path", entry.Path),
				zap.Int("status", entry.StatusCode),
				zap.Duration("duration", duration),
				zap.String("area", entry.Area),
				zap.String("session", entry.SessionID))

			if rec != nil {
				// Fire and forget
				go func() {
					if err := rec.LogRequest(entry); err != nil {
						logger.Warn("failed to record request", zap.Error(err))
					}
				}()
			}
		})
	}
}
