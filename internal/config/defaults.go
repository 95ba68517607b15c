package config

import (
	_ "embed"
)

//go:embed defaults/rogue.yaml
var defaultRogueYAML []byte

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Width:    72,
			Height:   18,
			Monsters: 6,
		},
		Bridge: BridgeConfig{
			RenderQueueCapacity: 4096,
			InputBuffer:         32,
			ArenaSize:           1 << 20,
		},
		Paths: PathsConfig{
			Database:  "~/.rogue/rogue.db",
			Snapshots: "~/.rogue/snapshots",
		},
		SSH: SSHConfig{
			Address:     ":2222",
			HostKeyPath: "~/.rogue/host_key",
			IdleMinutes: 30,
		},
		Difficulty: DifficultyNormal,
	}
}

// DefaultYAML returns the embedded default YAML, for `rogue config dump`.
func DefaultYAML() []byte {
	return defaultRogueYAML
}
