package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfigDefaults(t *testing.T) {
	cfg := PostgresPoolConfig{}.withDefaults()
	if cfg.MaxOpenConns <= 0 || cfg.MaxIdleConns <= 0 {
		t.Fatalf("expected positive pool defaults, got %+v", cfg)
	}
	if cfg.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("expected 30m lifetime default, got %v", cfg.ConnMaxLifetime)
	}
	if cfg.PingTimeout <= 0 {
		t.Fatalf("expected positive ping timeout default, got %v", cfg.PingTimeout)
	}
}

func TestPostgresPoolConfigKeepsExplicitValues(t *testing.T) {
	cfg := PostgresPoolConfig{MaxOpenConns: 5, MaxIdleConns: 2, PingTimeout: time.Second}.withDefaults()
	if cfg.MaxOpenConns != 5 || cfg.MaxIdleConns != 2 || cfg.PingTimeout != time.Second {
		t.Fatalf("explicit values were overridden: %+v", cfg)
	}
}
