package goguard

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	cfg.Endpoints.BaseURL = "https://api.example.com"

	if err := validateConfig(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateConfigRejectsMissingBaseURL(t *testing.T) {
	cfg := defaultConfig()
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for missing BaseURL")
	}
}

func TestValidateConfigRejectsBadPaths(t *testing.T) {
	cfg := defaultConfig()
	cfg.Endpoints.BaseURL = "https://api.example.com"
	cfg.Endpoints.Refresh = "auth/refresh"

	err := validateConfig(cfg)
	if err == nil || !strings.Contains(err.Error(), "paths") {
		t.Fatalf("err = %v, want path validation failure", err)
	}
}

func TestValidateConfigRejectsZeroTimeout(t *testing.T) {
	cfg := defaultConfig()
	cfg.Endpoints.BaseURL = "https://api.example.com"
	cfg.HTTP.RequestTimeout = 0

	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestValidateConfigRejectsCollidingStorageKeys(t *testing.T) {
	cfg := defaultConfig()
	cfg.Endpoints.BaseURL = "https://api.example.com"
	cfg.Storage.RefreshTokenKey = cfg.Storage.TokenKey

	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for colliding storage keys")
	}
}

func TestCloneConfigIsolatesMutableFields(t *testing.T) {
	cfg := defaultConfig()
	cfg.Endpoints.BaseURL = "https://api.example.com"
	cfg.Authority.Hierarchy = map[string]int{"admin": 5}

	clone := cloneConfig(cfg)
	clone.Authority.AdminRoles[0] = "changed"
	clone.Authority.Hierarchy["admin"] = 99

	if cfg.Authority.AdminRoles[0] == "changed" {
		t.Fatal("clone shares AdminRoles backing array")
	}
	if cfg.Authority.Hierarchy["admin"] != 5 {
		t.Fatal("clone shares Hierarchy map")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	backend := newTestBackend(t)

	builder := New().WithBaseURL(backend.url())
	guard, err := builder.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(guard.Close)

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected build failure without BaseURL")
	}
}

func TestBuilderRejectsDuplicateRoutes(t *testing.T) {
	backend := newTestBackend(t)

	_, err := New().
		WithBaseURL(backend.url()).
		WithRoute(RouteRule{Route: "/a"}).
		WithRoute(RouteRule{Route: "/a"}).
		Build()
	if err == nil {
		t.Fatal("expected build failure for duplicate route")
	}
}

func TestBuilderDefaultsHTTPTimeout(t *testing.T) {
	backend := newTestBackend(t)

	cfg := defaultConfig()
	cfg.Endpoints.BaseURL = backend.url()
	cfg.HTTP.RequestTimeout = 3 * time.Second

	guard, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(guard.Close)

	if got := guard.Coordinator().httpClient.Timeout; got != 3*time.Second {
		t.Fatalf("client timeout = %v, want 3s", got)
	}
}
