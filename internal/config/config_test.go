package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"BRIEFSEARCH_CONFIG", "CACHE_BACKEND", "OUTPUT_WIDTH", "USER_AGENT",
		"GOOGLE_CSE_API_KEY", "GOOGLE_API_KEY", "GOOGLE_CSE_ID", "REPUTABLE_DOMAINS",
		"FETCH_TIMEOUT_SECONDS", "POLITENESS_DELAY_MS",
	} {
		unsetIfSet(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.CacheBackend != "file" || cfg.CacheDir != "cache" {
		t.Fatalf("unexpected cache defaults: %s %s", cfg.CacheBackend, cfg.CacheDir)
	}
	if cfg.FetchTimeout() != 15*time.Second {
		t.Fatalf("expected 15s fetch timeout, got %v", cfg.FetchTimeout())
	}
	if cfg.PolitenessDelay() != 500*time.Millisecond {
		t.Fatalf("expected 500ms politeness delay, got %v", cfg.PolitenessDelay())
	}
	if cfg.OutputWidth != 100 {
		t.Fatalf("expected width 100, got %d", cfg.OutputWidth)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Fatalf("unexpected user agent: %s", cfg.UserAgent)
	}
	if cfg.GoogleCSEEnabled() {
		t.Fatal("google cse should be disabled without credentials")
	}
	if cfg.ListenAddress() != ":8080" {
		t.Fatalf("unexpected listen address: %s", cfg.ListenAddress())
	}
}

func TestLoadGoogleCredentialsFallback(t *testing.T) {
	unsetIfSet(t, "GOOGLE_CSE_API_KEY")
	t.Setenv("GOOGLE_API_KEY", "key-from-generic")
	t.Setenv("GOOGLE_CSE_ID", "engine")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GoogleCSEAPIKey != "key-from-generic" || !cfg.GoogleCSEEnabled() {
		t.Fatalf("expected generic google key to enable cse, got %+v", cfg.GoogleCSEAPIKey)
	}
}

func TestLoadBraveSettings(t *testing.T) {
	unsetIfSet(t, "BRIEFSEARCH_CONFIG")
	t.Setenv("BRAVE_API_KEY", " brave-key ")
	t.Setenv("BRAVE_BASE_URL", "https://brave.test/res/v1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BraveAPIKey != "brave-key" || cfg.BraveBaseURL != "https://brave.test/res/v1" {
		t.Fatalf("unexpected brave settings: %q %q", cfg.BraveAPIKey, cfg.BraveBaseURL)
	}
}

func TestLoadAcceptsMemoryCacheBackend(t *testing.T) {
	unsetIfSet(t, "BRIEFSEARCH_CONFIG")
	t.Setenv("CACHE_BACKEND", "Memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CacheBackend != "memory" {
		t.Fatalf("expected memory backend, got %q", cfg.CacheBackend)
	}
}

func TestLoadRejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown cache backend")
	}
}

func TestLoadRequiresBucketForGCS(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "gcs")
	t.Setenv("CACHE_GCS_BUCKET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when CACHE_GCS_BUCKET is missing")
	}
}

func TestLoadRequiresTokenForLibsql(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "sql")
	t.Setenv("CACHE_DATABASE_URL", "libsql://cache.example.turso.io")
	t.Setenv("CACHE_DATABASE_AUTH_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when libsql token is missing")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "briefsearch.yaml")
	content := []byte(`
cache_backend: none
output_width: 72
reputable_domains: [example.com, example.org]
fetch_timeout_seconds: 5
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BRIEFSEARCH_CONFIG", path)
	t.Setenv("FETCH_TIMEOUT_SECONDS", "9")
	unsetIfSet(t, "CACHE_BACKEND")
	unsetIfSet(t, "OUTPUT_WIDTH")
	unsetIfSet(t, "REPUTABLE_DOMAINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CacheBackend != "none" {
		t.Fatalf("expected file cache backend override, got %s", cfg.CacheBackend)
	}
	if cfg.OutputWidth != 72 {
		t.Fatalf("expected width from file, got %d", cfg.OutputWidth)
	}
	if len(cfg.ReputableDomains) != 2 || cfg.ReputableDomains[0] != "example.com" {
		t.Fatalf("unexpected reputable domains: %v", cfg.ReputableDomains)
	}
	if cfg.FetchTimeoutSeconds != 9 {
		t.Fatalf("expected env to win over file, got %d", cfg.FetchTimeoutSeconds)
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	t.Setenv("BRIEFSEARCH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestParseList(t *testing.T) {
	got := parseList(" a.com, ,b.org ,")
	if len(got) != 2 || got[0] != "a.com" || got[1] != "b.org" {
		t.Fatalf("unexpected list: %v", got)
	}
}

func unsetIfSet(t *testing.T, key string) {
	t.Helper()
	if value, ok := os.LookupEnv(key); ok {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset env %s: %v", key, err)
		}
		t.Cleanup(func() { os.Setenv(key, value) })
	}
}
