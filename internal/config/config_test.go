// ABOUTME: Tests for configuration loading and database path handling.
// ABOUTME: Covers defaults, env overrides, config files, and path validation.

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, key := range []string{"DIC_PORT", "DIC_DB_PATH", "DIC_LOG_LEVEL", "DIC_GENERATE_PROVIDER",
		"DIC_GENERATE_MODEL", "OPENAI_MODEL", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DIC_NOTICE_TTL", "DIC_REMOTE_TIMEOUT"} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolateEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.NoticeTTL != 3*time.Second {
		t.Errorf("NoticeTTL = %v, want 3s", cfg.NoticeTTL)
	}
	if cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("Remote.Timeout = %v, want 30s", cfg.Remote.Timeout)
	}
	if cfg.SessionIdle != 30*time.Minute {
		t.Errorf("SessionIdle = %v, want 30m", cfg.SessionIdle)
	}
	if cfg.Generate.Provider != "auto" {
		t.Errorf("Generate.Provider = %q, want auto", cfg.Generate.Provider)
	}
	if runtime.GOOS != "windows" {
		want := filepath.Join(dir, "data", "dic", "dic.db")
		if cfg.DBPath != want {
			t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv("DIC_PORT", "8123")
	t.Setenv("DIC_DB_PATH", filepath.Join(dir, "custom.db"))
	t.Setenv("DIC_GENERATE_PROVIDER", "anthropic")
	t.Setenv("DIC_NOTICE_TTL", "5s")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_MODEL", "gpt-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8123" {
		t.Errorf("Port = %q, want 8123", cfg.Port)
	}
	if cfg.DBPath != filepath.Join(dir, "custom.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Generate.Provider != "anthropic" || cfg.Generate.Model != "gpt-test" {
		t.Errorf("Generate = %+v", cfg.Generate)
	}
	if cfg.OpenAIKey != "sk-openai" || cfg.AnthropicKey != "sk-ant" {
		t.Errorf("keys = %q %q", cfg.OpenAIKey, cfg.AnthropicKey)
	}
	if cfg.NoticeTTL != 5*time.Second {
		t.Errorf("NoticeTTL = %v, want 5s", cfg.NoticeTTL)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "dic.yaml")
	content := `port: "7000"
db_path: ` + filepath.Join(dir, "file.db") + `
log_level: debug
generate:
  provider: static
remote:
  generate_url: http://localhost:9000/api
  timeout: 10s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "7000" || cfg.LogLevel != "debug" || cfg.Generate.Provider != "static" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Remote.GenerateURL != "http://localhost:9000/api" || cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("Remote = %+v", cfg.Remote)
	}

	// Environment wins over the file.
	t.Setenv("DIC_PORT", "7001")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "7001" {
		t.Errorf("Port = %q, want env override 7001", cfg.Port)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad port", "DIC_PORT", "http", "invalid port"},
		{"bad provider", "DIC_GENERATE_PROVIDER", "bard", "invalid generate.provider"},
		{"bad db path", "DIC_DB_PATH", "../escape.db", "cannot contain '..'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	dir := isolateEnv(t)

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() with a missing explicit config file succeeded")
	}
}

func TestValidateDBPath_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"dic.db", "dic.db"},
		{"./data/dic.db", "data/dic.db"},
		{"/tmp/dic.db", "/tmp/dic.db"},
		{"  dic.db  ", "dic.db"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ValidateDBPath(tt.input)
			if err != nil {
				t.Fatalf("ValidateDBPath(%q) error = %v", tt.input, err)
			}
			if runtime.GOOS != "windows" && got != tt.want {
				t.Errorf("ValidateDBPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateDBPath_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"dot", "."},
		{"root", "/"},
		{"traversal", "../../etc/passwd"},
		{"git directory", ".git/dic.db"},
		{"env file", ".env"},
		{"node_modules", "node_modules/dic.db"},
		{"secret", "/tmp/secret/dic.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateDBPath(tt.input); err == nil {
				t.Errorf("ValidateDBPath(%q) = nil error, want error", tt.input)
			}
		})
	}
}
