package learner

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// Preferences is the cross-session profile. It survives Stop and feeds
// both stuck detection and shortcut offers.
type Preferences struct {
	FavoritePlugins          map[string]int `json:"favoritePlugins,omitempty"`
	AverageActionIntervalSec float64        `json:"averageActionIntervalSec,omitempty"`
	CommonSequences          [][]string     `json:"commonSequences,omitempty"`
}

func (p Preferences) clone() Preferences {
	out := Preferences{AverageActionIntervalSec: p.AverageActionIntervalSec}
	if p.FavoritePlugins != nil {
		out.FavoritePlugins = make(map[string]int, len(p.FavoritePlugins))
		for k, v := range p.FavoritePlugins {
			out.FavoritePlugins[k] = v
		}
	}
	for _, seq := range p.CommonSequences {
		out.CommonSequences = append(out.CommonSequences, append([]string(nil), seq...))
	}
	return out
}

// loadPreferences reads the profile; a missing or malformed file means a
// fresh profile, never a startup failure.
func loadPreferences(path string, logger *slog.Logger) Preferences {
	if path == "" {
		return Preferences{}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("preferences unreadable, starting fresh", "error", err.Error())
		}
		return Preferences{}
	}
	var prefs Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		logger.Warn("preferences malformed, starting fresh", "error", err.Error())
		return Preferences{}
	}
	return prefs
}

// savePreferences writes the profile best-effort; the caller holds the lock.
func (l *Learner) savePreferences() {
	if l.prefsPath == "" {
		return
	}
	raw, err := json.MarshalIndent(l.prefs, "", "  ")
	if err != nil {
		l.logger.Warn("encode preferences failed", "error", err.Error())
		return
	}
	if err := os.MkdirAll(filepath.Dir(l.prefsPath), 0o700); err != nil {
		l.logger.Warn("ensure preferences dir failed", "error", err.Error())
		return
	}
	if err := os.WriteFile(l.prefsPath, raw, 0o600); err != nil {
		l.logger.Warn("write preferences failed", "error", err.Error())
	}
}
