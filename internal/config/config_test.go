package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTOSAVE_DEBOUNCE_MS", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg := Load()
	if cfg.AutosaveDebounce != 2*time.Second {
		t.Fatalf("debounce = %v, want 2s", cfg.AutosaveDebounce)
	}
	if cfg.StorageDriver != StorageFile {
		t.Fatalf("storage driver = %q, want %q", cfg.StorageDriver, StorageFile)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTOSAVE_DEBOUNCE_MS", "500")
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("MAX_DB_CONNS", "not-a-number")

	cfg := Load()
	if cfg.AutosaveDebounce != 500*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.AutosaveDebounce)
	}
	if cfg.StorageDriver != StorageSQLite {
		t.Fatalf("storage driver = %q", cfg.StorageDriver)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.MaxDBConns != 4 {
		t.Fatalf("max conns = %d, want fallback 4", cfg.MaxDBConns)
	}
}

func TestProgressKeys(t *testing.T) {
	key := CacheKey.QuizProgressKey("abc-123")
	if key != "quiz_progress_abc-123" {
		t.Fatalf("key = %q", key)
	}
	if got := CacheKey.RedisProgressKey(key); got != "player:quiz_progress_abc-123" {
		t.Fatalf("redis key = %q", got)
	}
}

func TestLoadGeolocationStatic(t *testing.T) {
	t.Setenv("GEOLOCATION_STATIC", " -8.65,115.22 ")
	if got := Load().GeolocationStatic; got != "-8.65,115.22" {
		t.Fatalf("GeolocationStatic = %q", got)
	}
}
