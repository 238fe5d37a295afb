package shared

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "STORAGE", "REDIS_ADDR", "RABBITMQ_URL", "CACHE_TTL_SECONDS", "BOOKING_DELETE_POLICY", "SEED_WORKERS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.AppEnv != "prod" || c.Storage != "mysql" || c.HTTPAddr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.RedisAddr != "" || c.RabbitURL != "" {
		t.Fatalf("optional backends should default off: %+v", c)
	}
	if c.CacheTTL != 15*time.Minute || c.LockTTL != 10*time.Second || c.DeletePolicy != "restrict" || c.SeedWorkers != 4 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "Memory")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("HTTP_RATE_LIMIT_RPS", "25")
	t.Setenv("SEED_WORKERS", "0")
	t.Setenv("REDIS_DB", "nope")
	c := Load()
	if c.Storage != "memory" || c.CacheTTL != time.Minute || c.RateLimitRPS != 25 {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.SeedWorkers != 1 || c.RedisDB != 0 {
		t.Fatalf("bad values not corrected: %+v", c)
	}
}

func TestLoad_UnknownStorage(t *testing.T) {
	t.Setenv("STORAGE", "sqlite")
	if c := Load(); c.Storage != "mysql" {
		t.Fatalf("storage: %q", c.Storage)
	}
}
