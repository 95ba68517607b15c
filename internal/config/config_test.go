package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default() should validate cleanly: %v", err)
	}
}

func TestEmbeddedDefaultParses(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Engine.Width != 72 || cfg.Engine.Height != 18 {
		t.Errorf("Unexpected default dimensions: %dx%d", cfg.Engine.Width, cfg.Engine.Height)
	}
	if cfg.Bridge.RenderQueueCapacity != 4096 {
		t.Errorf("Unexpected default queue capacity: %d", cfg.Bridge.RenderQueueCapacity)
	}
}

func TestLoadCustomPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	src := `
engine:
  width: 40
  height: 12
  monsters: 2
bridge:
  render_queue_capacity: 256
  input_buffer: 8
  arena_size: 65536
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Engine.Width != 40 || cfg.Engine.Monsters != 2 {
		t.Errorf("Custom values not applied: %+v", cfg.Engine)
	}
	// Unset sections keep built-in defaults.
	if cfg.SSH.Address != ":2222" {
		t.Errorf("Missing section should keep its default, got %q", cfg.SSH.Address)
	}
}

func TestLoadMissingCustomPathFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("An explicitly named missing config should be an error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"queue not power of two", func(c *Config) { c.Bridge.RenderQueueCapacity = 1000 }, "power of two"},
		{"tiny map", func(c *Config) { c.Engine.Width = 4 }, "too small"},
		{"negative monsters", func(c *Config) { c.Engine.Monsters = -1 }, "monster"},
		{"zero input buffer", func(c *Config) { c.Bridge.InputBuffer = 0 }, "input_buffer"},
		{"arena too small", func(c *Config) { c.Bridge.ArenaSize = 10 }, "arena_size"},
		{"bad difficulty", func(c *Config) { c.Difficulty = "nightmare" }, "difficulty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := Default()
	base := cfg.Engine.Monsters

	ApplyPreset(&cfg, DifficultyEasy)
	if cfg.Engine.Monsters >= base {
		t.Errorf("Easy should thin the monsters: %d -> %d", base, cfg.Engine.Monsters)
	}

	cfg = Default()
	ApplyPreset(&cfg, DifficultyHard)
	if cfg.Engine.Monsters <= base {
		t.Errorf("Hard should add monsters: %d -> %d", base, cfg.Engine.Monsters)
	}

	cfg = Default()
	ApplyPreset(&cfg, DifficultyNormal)
	if cfg.Engine.Monsters != base {
		t.Errorf("Normal should leave the count alone: %d -> %d", base, cfg.Engine.Monsters)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := ExpandHome("~/x/y.db")
	if got != filepath.Join(home, "x", "y.db") {
		t.Errorf("ExpandHome() = %q", got)
	}
	if ExpandHome("/abs/path") != "/abs/path" {
		t.Error("Absolute paths should pass through untouched")
	}
}
