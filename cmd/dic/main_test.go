// ABOUTME: Tests for CLI commands and server wiring.
// ABOUTME: Verifies health check, session cookies, the editor and API routes, and the offline commands.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2389/dic/internal/auth"
	"github.com/2389/dic/internal/generate"
	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/session"
	"github.com/2389/dic/internal/store"
)

// isolate keeps config loading away from the developer's environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("os.Chdir() error = %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DIC_DB_PATH", "DIC_PORT", "DIC_REMOTE_GENERATE_URL", "DIC_REMOTE_SCHEMAS_URL"} {
		t.Setenv(key, "")
	}
	return dir
}

func newTestServer(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "dic.db"), nil)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	gen, err := generate.New(generate.Config{Provider: generate.ProviderStatic})
	if err != nil {
		t.Fatalf("generate.New() error = %v", err)
	}
	sessions := session.NewManager(func(id string) *session.Session {
		return session.New(id, session.Config{Generator: gen, Library: st})
	})
	t.Cleanup(sessions.Close)
	return newServer(st, sessions, gen, st, nil), st
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, response body: %s", err, rr.Body.String())
	}
	if resp["ok"] != true {
		t.Errorf("ok = %v, want true", resp["ok"])
	}
}

func TestServer_SessionsAreIsolated(t *testing.T) {
	srv, _ := newTestServer(t)

	// First visit issues a session cookie.
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rr.Code)
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	add := httptest.NewRequest("POST", "/editor/add/text", nil)
	add.AddCookie(cookie)
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, add)
	if !strings.Contains(rr.Body.String(), "New Text Component") {
		t.Fatalf("add response missing component: %s", rr.Body.String())
	}

	// The same session sees the component, a new one does not.
	again := httptest.NewRequest("GET", "/", nil)
	again.AddCookie(cookie)
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, again)
	if !strings.Contains(rr.Body.String(), "New Text Component") {
		t.Error("session lost its schema")
	}

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if strings.Contains(rr.Body.String(), "New Text Component") {
		t.Error("fresh session should start empty")
	}
}

func TestServer_APIAndRequestLogs(t *testing.T) {
	srv, st := newTestServer(t)

	body := strings.NewReader(`{"prompt":"registration form"}`)
	req := httptest.NewRequest("POST", "/api/generate-schema", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	form := url.Values{"prompt": {""}}
	req = httptest.NewRequest("POST", "/editor/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("blank prompt status = %d, want 400", rr.Code)
	}

	// Request logs are written asynchronously.
	var logs []*store.RequestLog
	for i := 0; i < 50; i++ {
		logs, _ = st.GetRequestLogs(&store.RequestLogQuery{Limit: 10})
		if len(logs) >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(logs) < 2 {
		t.Fatalf("got %d request logs, want 2", len(logs))
	}
	areas := map[string]bool{}
	for _, l := range logs {
		areas[l.Area] = true
	}
	if !areas["api"] || !areas["editor"] {
		t.Errorf("areas = %v, want api and editor", areas)
	}
}

// run executes the CLI and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderCmd(t *testing.T) {
	dir := isolate(t)
	jsonPath := filepath.Join(dir, "ui.json")
	os.WriteFile(jsonPath, []byte(`[{"type":"text","content":"Hello","variant":"h1"},{"type":"bogus"}]`), 0o644)
	yamlPath := filepath.Join(dir, "ui.yaml")
	os.WriteFile(yamlPath, []byte("- type: text\n  content: From YAML\n  variant: h2\n"), 0o644)

	tests := []struct {
		name string
		args []string
		want []string
		deny []string
	}{
		{
			name: "json preview",
			args: []string{"render", jsonPath},
			want: []string{">Hello</h1>", "Unknown component type: bogus"},
			deny: []string{"draggable"},
		},
		{
			name: "interactive",
			args: []string{"render", "--interactive", jsonPath},
			want: []string{`draggable="true"`, `data-mode="interactive"`},
		},
		{
			name: "yaml",
			args: []string{"render", yamlPath},
			want: []string{">From YAML</h2>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("render error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q", w)
				}
			}
			for _, d := range tt.deny {
				if strings.Contains(out, d) {
					t.Errorf("output should not contain %q", d)
				}
			}
		})
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"type":"text"}`), 0o644)
	if _, err := run(t, "render", bad); err == nil {
		t.Error("expected an error for a non-array document")
	}
}

func TestFmtCmd(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "ui.json")
	os.WriteFile(path, []byte(`[{"variant":"p","content":"x","type":"text"}]`), 0o644)

	out, err := run(t, "fmt", path)
	if err != nil {
		t.Fatalf("fmt error = %v", err)
	}
	want := "[\n  {\n    \"type\": \"text\",\n    \"content\": \"x\",\n    \"variant\": \"p\"\n  }\n]\n"
	if out != want {
		t.Errorf("fmt output = %q, want %q", out, want)
	}

	if _, err := run(t, "fmt", "-w", path); err != nil {
		t.Fatalf("fmt -w error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != want {
		t.Errorf("rewritten file = %q, want %q", data, want)
	}

	yamlPath := filepath.Join(dir, "ui.yml")
	os.WriteFile(yamlPath, []byte("- type: text\n"), 0o644)
	if _, err := run(t, "fmt", "-w", yamlPath); err == nil {
		t.Error("expected fmt -w to refuse YAML input")
	}
}

func TestGenerateListExport(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "dic.db")

	out, err := run(t, "generate", "--db", dbPath, "--save", "Contact", "a", "contact", "form")
	if err != nil {
		t.Fatalf("generate error = %v", err)
	}
	generated, err := schema.Parse(out)
	if err != nil {
		t.Fatalf("generate output does not parse: %v\n%s", err, out)
	}
	if len(generated) == 0 {
		t.Fatal("generate produced an empty schema")
	}

	out, err = run(t, "list", "--db", dbPath)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, "Contact") {
		t.Errorf("list output missing saved schema:\n%s", out)
	}

	out, err = run(t, "list", "--db", dbPath, "--search", "nothing-matches")
	if err != nil {
		t.Fatalf("list --search error = %v", err)
	}
	if !strings.Contains(out, "No saved schemas") {
		t.Errorf("expected empty listing, got:\n%s", out)
	}

	st, err := store.New(dbPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := st.List(context.Background())
	st.Close()
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries = %v, err = %v", entries, err)
	}

	target := filepath.Join(dir, "out.json")
	if _, err := run(t, "export", "--db", dbPath, "--out", target, entries[0].ID); err != nil {
		t.Fatalf("export error = %v", err)
	}
	exported, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := schema.Parse(string(exported))
	if err != nil {
		t.Fatalf("exported file does not parse: %v", err)
	}
	if !schema.Equal(parsed, entries[0].Schema) {
		t.Error("exported schema differs from the saved one")
	}

	if _, err := run(t, "export", "--db", dbPath, "missing-id"); err == nil {
		t.Error("expected an error for an unknown id")
	}
}

func TestExportEntry_Empty(t *testing.T) {
	lib := &memLibrary{entries: map[string]library.Entry{"e1": {ID: "e1", Name: "Empty", Schema: schema.Schema{}}}}
	var out bytes.Buffer
	err := exportEntry(context.Background(), &out, lib, "e1", filepath.Join(t.TempDir(), "x.json"))
	if err == nil || !strings.Contains(err.Error(), "no schema to export") {
		t.Errorf("err = %v, want no schema to export", err)
	}
}

func TestLogsCmd(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "dic.db")

	out, err := run(t, "logs", "--db", dbPath)
	if err != nil {
		t.Fatalf("logs error = %v", err)
	}
	if !strings.Contains(out, "No requests recorded") {
		t.Errorf("expected empty log output, got:\n%s", out)
	}

	st, err := store.New(dbPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	st.LogRequest(&store.RequestLog{Area: "editor", Method: "POST", Path: "/editor/add/text", StatusCode: 200, DurationMs: 3})
	st.LogRequest(&store.RequestLog{Area: "api", Method: "GET", Path: "/api/schemas", StatusCode: 500, DurationMs: 7})
	st.Close()

	out, err = run(t, "logs", "--db", dbPath, "--area", "editor")
	if err != nil {
		t.Fatalf("logs error = %v", err)
	}
	if !strings.Contains(out, "/editor/add/text") || strings.Contains(out, "/api/schemas") {
		t.Errorf("area filter not applied:\n%s", out)
	}

	out, err = run(t, "logs", "--db", dbPath, "--stats")
	if err != nil {
		t.Fatalf("logs --stats error = %v", err)
	}
	if !strings.Contains(strings.ToUpper(out), "REQUESTS") {
		t.Errorf("stats output missing header:\n%s", out)
	}

	out, err = run(t, "logs", "--db", dbPath, "--top", "1")
	if err != nil {
		t.Fatalf("logs --top error = %v", err)
	}
	if !strings.Contains(out, "/") {
		t.Errorf("top output missing endpoint:\n%s", out)
	}
}

func TestInvalidDBPathRejected(t *testing.T) {
	isolate(t)
	if _, err := run(t, "list", "--db", "../../etc/dic.db"); err == nil {
		t.Error("expected path traversal to be rejected")
	}
}

type memLibrary struct {
	entries map[string]library.Entry
}

func (m *memLibrary) Save(_ context.Context, e library.Entry) (library.Entry, error) {
	m.entries[e.ID] = e
	return e, nil
}

func (m *memLibrary) List(context.Context) ([]library.Entry, error) {
	var out []library.Entry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *memLibrary) Get(_ context.Context, id string) (library.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return library.Entry{}, library.ErrNotFound
	}
	return e, nil
}

func (m *memLibrary) Delete(_ context.Context, id string) error {
	delete(m.entries, id)
	return nil
}
