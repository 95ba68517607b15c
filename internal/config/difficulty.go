package config

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
)

func validPreset(p DifficultyPreset) bool {
	switch p {
	case "", DifficultyEasy, DifficultyNormal, DifficultyHard:
		return true
	}
	return false
}

// ApplyPreset adjusts the monster population for a preset. The empty
// preset leaves the configuration untouched.
func ApplyPreset(cfg *Config, preset DifficultyPreset) {
	switch preset {
	case DifficultyEasy:
		cfg.Engine.Monsters = max(1, cfg.Engine.Monsters/2)
	case DifficultyHard:
		cfg.Engine.Monsters = cfg.Engine.Monsters * 2
	}
	cfg.Difficulty = preset
}
