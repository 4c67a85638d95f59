package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devconnect/realtime-service/config"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Addr != ":5000" {
		t.Errorf("addr = %q, want :5000", cfg.Server.Addr)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Auth.HandshakeTimeout != 10*time.Second {
		t.Errorf("handshake timeout = %v, want 10s", cfg.Auth.HandshakeTimeout)
	}
	if cfg.Chat.HistoryLimit != 50 {
		t.Errorf("history limit = %d, want 50", cfg.Chat.HistoryLimit)
	}
	if cfg.Level.Level() != slog.LevelInfo {
		t.Errorf("level = %v, want info", cfg.Level.Level())
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  addr: \":9999\"\nstore:\n  driver: memory\nlog:\n  level: debug\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q, want :9999", cfg.Server.Addr)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.Level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", cfg.Level.Level())
	}
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig accepted a missing file")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := config.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
