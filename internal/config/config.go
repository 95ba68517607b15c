// Package config provides YAML-based configuration loading for the
// dungeon session host.
package config

import "fmt"

// Config is the full configuration tree.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	Paths      PathsConfig      `yaml:"paths"`
	SSH        SSHConfig        `yaml:"ssh"`
	Difficulty DifficultyPreset `yaml:"difficulty"`
}

// EngineConfig tunes the simulation.
type EngineConfig struct {
	Width    int   `yaml:"width"`
	Height   int   `yaml:"height"`
	Monsters int   `yaml:"monsters"`
	Seed     int64 `yaml:"seed"` // 0 means random per session
}

// BridgeConfig sizes the cross-context plumbing.
type BridgeConfig struct {
	RenderQueueCapacity int `yaml:"render_queue_capacity"` // must be a power of two
	InputBuffer         int `yaml:"input_buffer"`
	ArenaSize           int `yaml:"arena_size"`
}

// PathsConfig names on-disk locations.
type PathsConfig struct {
	Database  string `yaml:"database"`
	Snapshots string `yaml:"snapshots"`
	Scripts   string `yaml:"scripts"`
}

// SSHConfig configures the network serving mode.
type SSHConfig struct {
	Address     string `yaml:"address"`
	HostKeyPath string `yaml:"host_key_path"`
	IdleMinutes int    `yaml:"idle_minutes"`
}

// Validate rejects configurations the bridge cannot run with.
func (c Config) Validate() error {
	if c.Engine.Width < 16 || c.Engine.Height < 8 {
		return fmt.Errorf("config: map %dx%d is too small", c.Engine.Width, c.Engine.Height)
	}
	if c.Engine.Monsters < 0 {
		return fmt.Errorf("config: negative monster count %d", c.Engine.Monsters)
	}
	q := c.Bridge.RenderQueueCapacity
	if q < 2 || q&(q-1) != 0 {
		return fmt.Errorf("config: render_queue_capacity %d is not a power of two", q)
	}
	if c.Bridge.InputBuffer <= 0 {
		return fmt.Errorf("config: input_buffer must be positive, got %d", c.Bridge.InputBuffer)
	}
	if c.Bridge.ArenaSize < c.Engine.Width*c.Engine.Height*2 {
		return fmt.Errorf("config: arena_size %d cannot hold one %dx%d level",
			c.Bridge.ArenaSize, c.Engine.Width, c.Engine.Height)
	}
	if !validPreset(c.Difficulty) {
		return fmt.Errorf("config: unknown difficulty %q", c.Difficulty)
	}
	return nil
}
