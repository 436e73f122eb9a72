package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, FileName)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend.Kind != BackendSQLite {
		t.Errorf("default backend = %q, want %q", cfg.Backend.Kind, BackendSQLite)
	}
	if cfg.Backend.DBPath != ".scenenav/scenes.db" {
		t.Errorf("default db path = %q", cfg.Backend.DBPath)
	}
	if cfg.Engine != (Engine{TimelineMargin: 5, MaxAttempts: 5, PrewarmTarget: 8}) {
		t.Errorf("default engine = %+v", cfg.Engine)
	}
	if cfg.Catalog.PageSize != 8 || cfg.Catalog.NearbyLimit != 16 {
		t.Errorf("default catalog = %+v", cfg.Catalog)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadLayered_MissingFiles(t *testing.T) {
	cfg, err := LoadLayered("/nonexistent/a.yaml", "/nonexistent/b.yaml")
	if err != nil {
		t.Fatalf("LoadLayered() error = %v", err)
	}
	if *cfg != DefaultConfig() {
		t.Errorf("LoadLayered(missing) = %+v, want defaults", *cfg)
	}
}

func TestLoadLayered_Priority(t *testing.T) {
	user := writeFile(t, t.TempDir(), `
backend:
  kind: http
  api_url: https://api.example.org
  timeout: 10s
engine:
  prewarm_target: 12
`)
	project := writeFile(t, t.TempDir(), `
backend:
  timeout: 45s
catalog:
  page_size: 20
`)

	cfg, err := LoadLayered(user, project)
	if err != nil {
		t.Fatalf("LoadLayered() error = %v", err)
	}
	if cfg.Backend.Kind != BackendHTTP || cfg.Backend.APIURL != "https://api.example.org" {
		t.Errorf("backend = %+v, want user layer values", cfg.Backend)
	}
	if cfg.Backend.Timeout != 45*time.Second {
		t.Errorf("timeout = %v, want project override 45s", cfg.Backend.Timeout)
	}
	if cfg.Engine.PrewarmTarget != 12 {
		t.Errorf("prewarm = %d, want 12", cfg.Engine.PrewarmTarget)
	}
	// Unset fields keep their defaults.
	if cfg.Engine.MaxAttempts != 5 || cfg.Catalog.NearbyLimit != 16 {
		t.Errorf("unset fields lost defaults: %+v %+v", cfg.Engine, cfg.Catalog)
	}
	if cfg.Catalog.PageSize != 20 {
		t.Errorf("page size = %d, want 20", cfg.Catalog.PageSize)
	}
}

func TestLoadLayered_EmptyAndCommentOnly(t *testing.T) {
	empty := writeFile(t, t.TempDir(), "")
	comment := writeFile(t, t.TempDir(), "# nothing here\n")
	cfg, err := LoadLayered(empty, comment)
	if err != nil {
		t.Fatalf("LoadLayered() error = %v", err)
	}
	if *cfg != DefaultConfig() {
		t.Errorf("got %+v, want defaults", *cfg)
	}
}

func TestLoadLayered_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid yaml", "{{invalid yaml"},
		{"unknown field", "backend:\n  flavour: mint\n"},
		{"bad duration", "backend:\n  timeout: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), tt.body)
			if _, err := LoadLayered(p); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Backend.Kind = "ftp" }, "backend.kind"},
		{"sqlite without path", func(c *Config) { c.Backend.DBPath = "" }, "db_path"},
		{"http without url", func(c *Config) { c.Backend.Kind = BackendHTTP }, "api_url"},
		{"http with bad url", func(c *Config) {
			c.Backend.Kind = BackendHTTP
			c.Backend.APIURL = "ftp://x"
		}, "api_url"},
		{"http ok", func(c *Config) {
			c.Backend.Kind = BackendHTTP
			c.Backend.APIURL = "http://localhost:8080"
		}, ""},
		{"zero timeout", func(c *Config) { c.Backend.Timeout = 0 }, "backend.timeout"},
		{"zero attempts", func(c *Config) { c.Engine.MaxAttempts = 0 }, "max_attempts"},
		{"negative margin", func(c *Config) { c.Engine.TimelineMargin = -1 }, "timeline_margin"},
		{"zero page size", func(c *Config) { c.Catalog.PageSize = 0 }, "page_size"},
		{"zero nearby", func(c *Config) { c.Catalog.NearbyLimit = 0 }, "nearby_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SCENENAV_BACKEND", "http")
	t.Setenv("SCENENAV_API", "https://scenes.example.org")
	t.Setenv("SCENENAV_DB", "/tmp/x.db")
	t.Setenv("SCENENAV_TIMEOUT", "3s")
	t.Setenv("SCENENAV_PAGE_SIZE", "4")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Backend.Kind != BackendHTTP || cfg.Backend.APIURL != "https://scenes.example.org" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Backend.DBPath != "/tmp/x.db" || cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Catalog.PageSize != 4 {
		t.Errorf("page size = %d, want 4", cfg.Catalog.PageSize)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	for _, kv := range [][2]string{{"SCENENAV_TIMEOUT", "later"}, {"SCENENAV_PAGE_SIZE", "many"}} {
		t.Run(kv[0], func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			cfg := DefaultConfig()
			if err := cfg.ApplyEnv(); err == nil {
				t.Fatalf("%s=%s accepted", kv[0], kv[1])
			}
		})
	}
}

func TestResolve_UsesExplicitConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	p := writeFile(t, t.TempDir(), "catalog:\n  nearby_limit: 3\n")
	t.Setenv("SCENENAV_CONFIG", p)
	t.Setenv("SCENENAV_BACKEND", "")

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Catalog.NearbyLimit != 3 {
		t.Errorf("nearby limit = %d, want 3", cfg.Catalog.NearbyLimit)
	}
}

func TestPresent(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())
	explicit := writeFile(t, t.TempDir(), "engine:\n  max_attempts: 2\n")
	t.Setenv("SCENENAV_CONFIG", explicit)

	got := Present(DefaultPaths()...)
	if len(got) != 1 || got[0] != explicit {
		t.Fatalf("Present() = %v, want [%s]", got, explicit)
	}

	if err := os.WriteFile(filepath.Join(home, FileName), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got = Present(DefaultPaths()...)
	if len(got) != 2 || got[0] != filepath.Join(home, FileName) {
		t.Fatalf("Present() = %v, want home file first", got)
	}
	if len(Present(home)) != 0 {
		t.Fatal("a directory is not a config file")
	}
}

func TestResolve_InvalidAfterEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	t.Setenv("SCENENAV_CONFIG", "")
	t.Setenv("SCENENAV_BACKEND", "carrier-pigeon")
	if _, err := Resolve(); err == nil {
		t.Fatal("Resolve() accepted an unknown backend")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir on Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
