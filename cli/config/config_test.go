package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `log:
  level: debug

resolvers:
  temp_dir: /var/tmp/hostside
  gs:
    endpoint: http://127.0.0.1:4443
    region: auto
    s3_path_style: true
  s3:
    enabled: true
    region: us-east-1
  http:
    headers:
      Authorization: Bearer token123
  https:
    enabled: true

filters:
  mode: prefix
  include: [com.example]
  exclude: [com.example.flaky]

collector:
  backend: fs
  path: ./device-out
  patterns: ["^perf_", "\\.trace$"]
  output: ./artifacts

report:
  dataset: hostside
  backend: s3
  path: reports/prefix
  region: us-east-1

notify:
  type: webhook
  url: https://hooks.example.com/hostside
  headers:
    X-Token: abc
  timeout: 10s
  retries: 3
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "log.level", cfg.Log.Level, "debug")
	assertEqual(t, "resolvers.temp_dir", cfg.Resolvers.TempDir, "/var/tmp/hostside")
	assertEqual(t, "resolvers.gs.endpoint", cfg.Resolvers.GS.Endpoint, "http://127.0.0.1:4443")
	if !cfg.Resolvers.GS.S3PathStyle {
		t.Error("expected resolvers.gs.s3_path_style=true")
	}
	if !IsEnabled(cfg.Resolvers.S3.Enabled, false) || !IsEnabled(cfg.Resolvers.HTTPS.Enabled, false) {
		t.Error("expected s3 and https registrations enabled")
	}
	assertEqual(t, "resolvers.http.headers", cfg.Resolvers.HTTP.Headers["Authorization"], "Bearer token123")

	assertEqual(t, "filters.mode", cfg.Filters.Mode, "prefix")
	if len(cfg.Filters.Include) != 1 || len(cfg.Filters.Exclude) != 1 {
		t.Errorf("filters = %+v", cfg.Filters)
	}

	assertEqual(t, "collector.path", cfg.Collector.Path, "./device-out")
	if len(cfg.Collector.Patterns) != 2 || cfg.Collector.Patterns[1] != `\.trace$` {
		t.Errorf("collector.patterns = %q", cfg.Collector.Patterns)
	}
	assertEqual(t, "report.backend", cfg.Report.Backend, "s3")

	assertEqual(t, "notify.type", cfg.Notify.Type, "webhook")
	if cfg.Notify.Timeout.Duration != 10*time.Second {
		t.Errorf("notify.timeout = %v", cfg.Notify.Timeout.Duration)
	}
	if cfg.Notify.Retries == nil || *cfg.Notify.Retries != 3 {
		t.Errorf("notify.retries = %v", cfg.Notify.Retries)
	}
}

func TestLoad_EmptyAndCommentsOnly(t *testing.T) {
	for _, content := range []string{"", "   \n  \n", "# comment\n# another\n"} {
		cfg, err := Load(writeTemp(t, content))
		if err != nil {
			t.Fatalf("Load(%q): %v", content, err)
		}
		if cfg.Log.Level != "" || IsEnabled(cfg.Resolvers.HTTPS.Enabled, false) {
			t.Errorf("expected zero config, got %+v", cfg)
		}
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeTemp(t, "log: [unclosed\n")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("HOSTSIDE_NOTIFY_URL", "https://hooks.example.com/x")
	cfg, err := Load(writeTemp(t, "notify:\n  type: webhook\n  url: ${HOSTSIDE_NOTIFY_URL}\n"))
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, "notify.url", cfg.Notify.URL, "https://hooks.example.com/x")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	for _, content := range []string{
		"bogus_key: should_fail\n",
		"collector:\n  backend: fs\n  unknown_field: bad\n",
	} {
		_, err := Load(writeTemp(t, content))
		if err == nil {
			t.Fatalf("expected error for %q", content)
		}
		if !strings.Contains(err.Error(), "bogus_key") && !strings.Contains(err.Error(), "unknown_field") {
			t.Errorf("error should name the unknown key, got: %v", err)
		}
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := map[string]string{
		"filter mode": "filters:\n  mode: regex\n",
		"backend":     "collector:\n  backend: ftp\n",
		"notify type": "notify:\n  type: kafka\n",
		"retries":     "notify:\n  type: webhook\n  retries: -1\n",
		"duration":    "notify:\n  timeout: soon\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, content)); err == nil {
				t.Errorf("expected error for %q", content)
			}
		})
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	cfg, err := Load(writeTemp(t, "notify:\n  type: redis\n  url: redis://localhost:6379/0\n  retries: 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Notify.Retries == nil || *cfg.Notify.Retries != 0 {
		t.Errorf("retries = %v, want pointer to 0", cfg.Notify.Retries)
	}

	cfg, err = Load(writeTemp(t, "notify:\n  type: redis\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Notify.Retries != nil {
		t.Errorf("retries = %v, want nil", *cfg.Notify.Retries)
	}
}

func TestIsEnabled(t *testing.T) {
	on, off := true, false
	if IsEnabled(nil, false) || !IsEnabled(nil, true) {
		t.Error("nil must fall back to the default")
	}
	if !IsEnabled(&on, false) || IsEnabled(&off, true) {
		t.Error("explicit value must win")
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
