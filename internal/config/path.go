package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.conf location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "rhea", "config.conf"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "rhea", "config.conf"), nil
}

// StateDir selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func StateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "rhea"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for state fallback")
	}
	return filepath.Join(home, ".local", "state", "rhea"), nil
}

// resolveStatePaths fills any unset state file locations under the state
// directory.
func resolveStatePaths(cfg *Config) error {
	if cfg.Paths.Vocabulary != "" && cfg.Paths.VoiceLog != "" &&
		cfg.Paths.Preferences != "" && cfg.Paths.ReplayCases != "" {
		return nil
	}

	dir, err := StateDir()
	if err != nil {
		return err
	}
	if cfg.Paths.Vocabulary == "" {
		cfg.Paths.Vocabulary = filepath.Join(dir, "vocabulary.json")
	}
	if cfg.Paths.VoiceLog == "" {
		cfg.Paths.VoiceLog = filepath.Join(dir, "voice.jsonl")
	}
	if cfg.Paths.Preferences == "" {
		cfg.Paths.Preferences = filepath.Join(dir, "preferences.json")
	}
	if cfg.Paths.ReplayCases == "" {
		cfg.Paths.ReplayCases = filepath.Join(dir, "replay.json")
	}
	return nil
}
