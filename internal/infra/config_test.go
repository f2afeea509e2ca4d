package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("MODEL_CACHE_TTL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
	if cfg.StorageDriver != "none" {
		t.Fatalf("StorageDriver mismatch: got %q", cfg.StorageDriver)
	}
	if cfg.ModelCacheTTL != 5*time.Minute {
		t.Fatalf("ModelCacheTTL mismatch: got %s", cfg.ModelCacheTTL)
	}
	if cfg.CostImagePerScene != 1 {
		t.Fatalf("CostImagePerScene mismatch: got %d", cfg.CostImagePerScene)
	}
}

func TestLoadConfigRequiresDatabaseOutsideLocal(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigLocalNeedsNothing(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if !cfg.IsLocal() || cfg.JWTSecret == "" {
		t.Fatalf("unexpected local config: %+v", cfg)
	}
}

func TestLoadConfigParsesDurationsAndBools(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "MINIO")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("STALE_RUN_AFTER", "45m")
	t.Setenv("SWEEP_INTERVAL", "not-a-duration")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageDriver != "minio" || !cfg.MinioUseSSL {
		t.Fatalf("minio settings mismatch: %q %v", cfg.StorageDriver, cfg.MinioUseSSL)
	}
	if cfg.StaleRunAfter != 45*time.Minute {
		t.Fatalf("StaleRunAfter mismatch: got %s", cfg.StaleRunAfter)
	}
	if cfg.SweepInterval != time.Minute {
		t.Fatalf("SweepInterval should fall back, got %s", cfg.SweepInterval)
	}
}

func TestLoadConfigRejectsUnknownStorageDriver(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "s3-glacier")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestLoadConfigMinioRequiresEndpoint(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "minio")
	t.Setenv("MINIO_ENDPOINT", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when MINIO_ENDPOINT is missing")
	}
}

func TestLoadConfigLists(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("SUPPORTED_LANGUAGES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if len(cfg.Languages) == 0 || cfg.Languages[0] != "en" {
		t.Fatalf("Languages = %v", cfg.Languages)
	}
}
