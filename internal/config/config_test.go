package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg := Load()

	if cfg.DBDriver != "sqlite" {
		t.Errorf("unexpected default driver %q", cfg.DBDriver)
	}
	if cfg.DBMaxOpenConns != 25 || cfg.DBMaxIdleConns != 5 {
		t.Errorf("unexpected default pool %d/%d", cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	}
	if cfg.OAuthStateExpiry != 10*time.Minute {
		t.Errorf("unexpected state expiry %s", cfg.OAuthStateExpiry)
	}
	if cfg.SyncInterval("notion") != 30*time.Minute {
		t.Errorf("unexpected notion interval %s", cfg.SyncInterval("notion"))
	}
	if cfg.SyncInterval("somethingelse") != time.Hour {
		t.Errorf("unexpected fallback interval %s", cfg.SyncInterval("somethingelse"))
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("DB_MAX_IDLE_CONNS", "2")
	t.Setenv("OAUTH_STATE_EXPIRY", "5m")
	t.Setenv("SYNC_INTERVAL_NOTION", "15m")

	cfg := Load()

	if cfg.DBMaxOpenConns != 4 || cfg.DBMaxIdleConns != 2 {
		t.Errorf("unexpected pool %d/%d", cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	}
	if cfg.OAuthStateExpiry != 5*time.Minute {
		t.Errorf("unexpected state expiry %s", cfg.OAuthStateExpiry)
	}
	if cfg.SyncInterval("notion") != 15*time.Minute {
		t.Errorf("unexpected notion interval %s", cfg.SyncInterval("notion"))
	}
}

func TestSanitizedDropsSecrets(t *testing.T) {
	setRequiredEnv(t)
	cfg := Load()

	safe := cfg.Sanitized()
	if safe.JWTSecret != "" {
		t.Error("sanitized config leaked the jwt secret")
	}
	if safe.AppURL != cfg.AppURL {
		t.Error("sanitized config lost a public field")
	}
}
