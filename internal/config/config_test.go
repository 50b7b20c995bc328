package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWith(viper.New(), false)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("default driver want sqlite got %s", cfg.Database.Driver)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("default port want 8080 got %s", cfg.Server.Port)
	}
	if cfg.Security.CartRateLimit.MaxRequests != 120 {
		t.Fatalf("default cart rate limit want 120 got %d", cfg.Security.CartRateLimit.MaxRequests)
	}
	if cfg.Queue.Queues["default"] != 10 {
		t.Fatalf("default queue weight want 10 got %d", cfg.Queue.Queues["default"])
	}
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("SECURITY_CART_RATE_LIMIT_MAX_REQUESTS", "5")

	cfg, err := LoadWith(viper.New(), false)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Server.Port != "9191" {
		t.Fatalf("env port want 9191 got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("env driver want postgres got %s", cfg.Database.Driver)
	}
	if cfg.Security.CartRateLimit.MaxRequests != 5 {
		t.Fatalf("env rate limit want 5 got %d", cfg.Security.CartRateLimit.MaxRequests)
	}
}
