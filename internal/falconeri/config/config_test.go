package config

import "testing"

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FALCONERI_ADMIN_PASSWORD", "secret")

	_, err := Load()
	if err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_RequiresAdminPassword(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("FALCONERI_ADMIN_PASSWORD", "")

	_, err := Load()
	if err == nil {
		t.Error("expected error when FALCONERI_ADMIN_PASSWORD is missing")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("FALCONERI_ADMIN_PASSWORD", "secret")
	t.Setenv("FALCONERI_NAMESPACE", "")
	t.Setenv("FALCONERI_LOG_LEVEL", "")
	t.Setenv("FALCONERI_PORT", "")
	t.Setenv("FALCONERI_OTEL_ENDPOINT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Namespace != "default" {
		t.Errorf("expected default namespace, got %s", cfg.Namespace)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.HTTPPort != 8089 {
		t.Errorf("expected default port 8089, got %d", cfg.HTTPPort)
	}
	if cfg.OTELEndpoint != "" {
		t.Errorf("expected empty OTEL endpoint, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://custom/db")
	t.Setenv("FALCONERI_ADMIN_PASSWORD", "secret")
	t.Setenv("FALCONERI_NAMESPACE", "batch")
	t.Setenv("FALCONERI_LOG_LEVEL", "debug")
	t.Setenv("FALCONERI_PORT", "9999")
	t.Setenv("FALCONERI_OTEL_ENDPOINT", "otel-collector:4317")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://custom/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.Namespace != "batch" {
		t.Errorf("expected namespace batch, got %s", cfg.Namespace)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.HTTPPort)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTEL endpoint otel-collector:4317, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("FALCONERI_ADMIN_PASSWORD", "secret")
	t.Setenv("FALCONERI_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid port")
	}
}
