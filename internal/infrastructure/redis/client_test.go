package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/nerrad567/authgate/internal/infrastructure/config"
)

func testConfig(addr string) config.RedisConfig {
	return config.RedisConfig{
		Addr:         addr,
		DialTimeout:  500,
		ReadTimeout:  500,
		WriteTimeout: 500,
	}
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(t.Context(), testConfig(mr.Addr()))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Universal().Set(t.Context(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Errorf("stored value = %q, want v", got)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(t.Context(), testConfig(addr))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheck_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(t.Context(), testConfig(mr.Addr()))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	mr.Close()

	if err := client.HealthCheck(t.Context()); err == nil {
		t.Error("HealthCheck() expected error after server stopped")
	}
}

func TestClose(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(t.Context(), testConfig(mr.Addr()))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := client.HealthCheck(t.Context()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestBuildOptions(t *testing.T) {
	opts := buildOptions(config.RedisConfig{
		Addr:        "cache:6379",
		Username:    "svc",
		Password:    "pw",
		DB:          3,
		DialTimeout: 1500,
	})

	if len(opts.Addrs) != 1 || opts.Addrs[0] != "cache:6379" {
		t.Errorf("Addrs = %v", opts.Addrs)
	}
	if opts.DB != 3 || opts.Username != "svc" || opts.Password != "pw" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.DialTimeout != 1500*time.Millisecond {
		t.Errorf("DialTimeout = %v, want 1.5s", opts.DialTimeout)
	}
}
