// ABOUTME: Tests for HTTP request logging middleware and logger construction.
// ABOUTME: Verifies body capture limits, recorded entries, skipped paths, and the file sink.

package logging

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2389/dic/internal/auth"
	"github.com/2389/dic/internal/store"
)

type fakeRecorder struct {
	logs chan *store.RequestLog
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{logs: make(chan *store.RequestLog, 8)}
}

func (f *fakeRecorder) LogRequest(l *store.RequestLog) error {
	f.logs <- l
	return nil
}

func (f *fakeRecorder) next(t *testing.T) *store.RequestLog {
	t.Helper()
	select {
	case l := <-f.logs:
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("no request log recorded")
		return nil
	}
}

func newWrapped() (*httptest.ResponseRecorder, *responseWriter) {
	rr := httptest.NewRecorder()
	return rr, &responseWriter{ResponseWriter: rr, statusCode: 200, body: &bytes.Buffer{}}
}

func TestResponseWriter_BuffersResponseBody(t *testing.T) {
	tests := []struct {
		name           string
		responseBody   string
		expectedCapped bool
	}{
		{"small response", "Hello, World!", false},
		{"response at limit", strings.Repeat("x", maxBodySize), false},
		{"response exceeds limit", strings.Repeat("x", maxBodySize+1000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, wrapped := newWrapped()

			n, err := wrapped.Write([]byte(tt.responseBody))
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if n != len(tt.responseBody) {
				t.Errorf("Write() returned %d, want %d", n, len(tt.responseBody))
			}

			buffered := wrapped.body.String()
			if len(buffered) > maxBodySize {
				t.Errorf("Buffered body size %d exceeds maxBodySize %d", len(buffered), maxBodySize)
			}
			if tt.expectedCapped && len(buffered) != maxBodySize {
				t.Errorf("Expected buffered body to be capped at %d, got %d", maxBodySize, len(buffered))
			}
		})
	}
}

func TestResponseWriter_CapturesStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		explicit bool
		code     int
	}{
		{"explicit status", true, http.StatusCreated},
		{"implicit status", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, wrapped := newWrapped()
			if tt.explicit {
				wrapped.WriteHeader(tt.code)
			}
			wrapped.Write([]byte("body"))

			if wrapped.statusCode != tt.code {
				t.Errorf("statusCode = %d, want %d", wrapped.statusCode, tt.code)
			}
		})
	}
}

func TestResponseWriter_Hijack(t *testing.T) {
	_, wrapped := newWrapped()

	// httptest.ResponseRecorder doesn't implement Hijacker
	_, _, err := wrapped.Hijack()
	if err != http.ErrNotSupported {
		t.Errorf("Hijack() error = %v, want %v", err, http.ErrNotSupported)
	}
}

func TestMiddleware_RecordsRequest(t *testing.T) {
	rec := newFakeRecorder()
	handler := auth.Middleware(Middleware(rec, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false}`))
	})))

	req := httptest.NewRequest("POST", "/editor/buffer", strings.NewReader("text=[oops"))
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	l := rec.next(t)
	if l.Area != "editor" || l.Method != "POST" || l.Path != "/editor/buffer" {
		t.Errorf("unexpected entry %+v", l)
	}
	if l.StatusCode != http.StatusUnprocessableEntity || l.Error != "Unprocessable Entity" {
		t.Errorf("status = %d error = %q", l.StatusCode, l.Error)
	}
	if l.RequestBody != "text=[oops" || l.ResponseBody != `{"success":false}` {
		t.Errorf("bodies = %q / %q", l.RequestBody, l.ResponseBody)
	}
	if l.IPAddress != "10.0.0.1" || l.UserAgent != "test-agent" {
		t.Errorf("client = %q / %q", l.IPAddress, l.UserAgent)
	}
	if l.SessionID == "" {
		t.Error("expected the session ID to be recorded")
	}
}

func TestMiddleware_SkipsPaths(t *testing.T) {
	for _, path := range []string{"/healthz", "/favicon.ico", "/static/editor.js"} {
		t.Run(path, func(t *testing.T) {
			rec := newFakeRecorder()
			handler := Middleware(rec, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))

			if rr.Code != http.StatusOK {
				t.Errorf("Status code = %d, want %d", rr.Code, http.StatusOK)
			}
			select {
			case l := <-rec.logs:
				t.Errorf("unexpected log for %s: %+v", path, l)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestMiddleware_RestoresFullRequestBody(t *testing.T) {
	rec := newFakeRecorder()
	original := strings.Repeat("y", maxBodySize+500)
	var handlerReadBody string

	handler := Middleware(rec, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		handlerReadBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/schemas", strings.NewReader(original)))

	if handlerReadBody != original {
		t.Errorf("handler read %d bytes, want %d", len(handlerReadBody), len(original))
	}
	if l := rec.next(t); len(l.RequestBody) != maxBodySize {
		t.Errorf("captured %d bytes, want %d", len(l.RequestBody), maxBodySize)
	}
}

func TestAreaFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "page"},
		{"/editor/buffer", "editor"},
		{"/editor/ws", "ws"},
		{"/api/generate-schema", "api"},
		{"/unknown", "unknown"},
	}
	for _, tt := range tests {
		if got := AreaFromPath(tt.path); got != tt.want {
			t.Errorf("AreaFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	if _, _, err := NewLogger(Options{Level: "loud"}); err == nil {
		t.Error("NewLogger() accepted an invalid level")
	}

	path := filepath.Join(t.TempDir(), "dic.log")
	var stderr bytes.Buffer
	logger, closeFn, err := NewLogger(Options{Level: "info", File: path, Stderr: &stderr})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Debug("hidden")
	logger.Info("schema saved")
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"schema saved"`) || strings.Contains(string(data), "hidden") {
		t.Errorf("log file = %s", data)
	}
	if !strings.Contains(stderr.String(), "schema saved") {
		t.Errorf("stderr = %s", stderr.String())
	}
}
