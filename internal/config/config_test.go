package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jmerrifield20/neosconnect/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "neosconnect.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestLoad_defaults(t *testing.T) {
	chdirForTest(t, t.TempDir())

	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8081" || cfg.Timeout != 10*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RateLimit.RPS != 0 || len(cfg.Routes) != 0 {
		t.Errorf("expected no pacing and no route overrides, got %+v", cfg)
	}
}

func TestLoad_fileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
base_url: https://neos.example.com
timeout: 3s
rate_limit:
  rps: 5
  burst: 2
username: editor
password: secret
routes:
  core:
    service:
      nodes: /custom/nodes
`)
	t.Setenv("NEOSCONNECT_TIMEOUT", "7s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("username", "", "")
	if err := flags.Parse([]string{"--username", "admin"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path, flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://neos.example.com" {
		t.Errorf("base_url: %q", cfg.BaseURL)
	}
	if cfg.Timeout != 7*time.Second {
		t.Errorf("env should override file timeout, got %s", cfg.Timeout)
	}
	if cfg.Username != "admin" || cfg.Password != "secret" {
		t.Errorf("credentials: %q / %q", cfg.Username, cfg.Password)
	}
	if cfg.RateLimit.RPS != 5 || cfg.RateLimit.Burst != 2 {
		t.Errorf("rate limit: %+v", cfg.RateLimit)
	}
	if got := cfg.Routes["core.service.nodes"]; got != "/custom/nodes" {
		t.Errorf("route override: %q (all: %v)", got, cfg.Routes)
	}
}

func TestLoad_explicitFileMustExist(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_rejectsInvalid(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"relative base url", "base_url: /neos\n", "base_url"},
		{"zero timeout", "timeout: 0s\n", "timeout"},
		{"negative rps", "rate_limit:\n  rps: -1\n", "rps"},
		{"username without password", "username: editor\n", "password"},
		{"negative cache ttl", "resource_cache_ttl: -1s\n", "resource_cache_ttl"},
		{"unknown route", "routes:\n  core:\n    nope: /x\n", "core.nope"},
		{"protocol relative route", "routes:\n  core:\n    login: //evil.example.com/login\n", "login"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.body), nil)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tc.field)) {
				t.Errorf("error %q does not mention %q", err, tc.field)
			}
		})
	}
}

func TestNewClient_appliesOverrides(t *testing.T) {
	path := writeConfig(t, `
base_url: https://neos.example.com
token: tok-1
routes:
  ui:
    service:
      changeBaseWorkspace: /custom/change-base
`)
	cfg, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c, err := cfg.NewClient(zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := c.Routes().UI.Service.ChangeBaseWorkspace; got != "/custom/change-base" {
		t.Errorf("route: %q", got)
	}
	if got := c.Routes().Core.Service.Nodes; got != "/neos/service/nodes" {
		t.Errorf("untouched route changed: %q", got)
	}
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
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
