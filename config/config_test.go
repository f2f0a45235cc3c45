package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_URL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	if cfg.Player != want.Player || cfg.Server != want.Server || cfg.DB != want.DB || cfg.Log != want.Log {
		t.Errorf("Load(\"\") = %+v, want defaults %+v", cfg, want)
	}
	if got := cfg.DatabaseDSN(); got != filepath.Join(cfg.DataDir, "conversations.db") {
		t.Errorf("DatabaseDSN() = %q", got)
	}
}

func TestLoad_Layers(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_URL", "")

	path := writeFile(t, dir, "vn.yaml", `
player:
  chunk_size: 8
  type_delay: 40ms
  story: harbor.lua
server:
  addr: ":9000"
log:
  level: DEBUG
`)
	// .env sets a variable the environment leaves alone.
	writeFile(t, dir, ".env", "VN_LOG_FORMAT=json\nVN_SERVER_ADDR=:7000\n")
	t.Setenv("VN_SERVER_ADDR", ":6000")
	t.Setenv("VN_CHUNK_SEED", "99")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tests := []struct {
		name      string
		got, want any
	}{
		{"chunk size from yaml", cfg.Player.ChunkSize, 8},
		{"type delay from yaml", cfg.Player.TypeDelay, 40 * time.Millisecond},
		{"story from yaml", cfg.Player.Story, "harbor.lua"},
		{"fallback tail default", cfg.Player.FallbackTail, 50},
		{"seed from env", cfg.Player.ChunkSeed, int64(99)},
		{"env beats .env and yaml", cfg.Server.Addr, ":6000"},
		{"format from .env", cfg.Log.Format, "json"},
		{"level normalized", cfg.Log.Level, "debug"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/vn")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://u:p@db:5432/vn" {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.DatabaseDSN() != cfg.DB.DSN {
		t.Errorf("DatabaseDSN() = %q", cfg.DatabaseDSN())
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}

	bad := writeFile(t, dir, "bad.yaml", "player: [\n")
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed yaml")
	}

	t.Setenv("VN_TRANSPORT", "carrier-pigeon")
	t.Setenv("VN_CHUNK_SIZE", "-1")
	_, err := Load("")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.transport", "player.chunk_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestSessionID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := SessionID(dir)
	if err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	if !strings.HasPrefix(first, "session_") {
		t.Errorf("SessionID() = %q, want session_ prefix", first)
	}
	second, err := SessionID(dir)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("SessionID not stable: %q then %q", first, second)
	}
}
