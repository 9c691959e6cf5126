package scoring

import (
	"encoding/json"
	"log/slog"
	"os"
)

// Preferences holds the buyer's desired equipment set. Equipment scores
// reward listings that carry these items.
type Preferences struct {
	Desired map[string]struct{}
}

// Empty reports whether no desired equipment was configured.
func (p Preferences) Empty() bool {
	return len(p.Desired) == 0
}

type preferencesFile struct {
	DesiredEquipment []string `json:"desired_equipment"`
}

// LoadPreferences reads the desired-equipment document. A missing or
// unreadable file degrades to empty preferences with a warning; scoring
// then simply leaves the equipment score unset.
func LoadPreferences(path string, logger *slog.Logger) Preferences {
	prefs := Preferences{Desired: map[string]struct{}{}}

	raw, err := os.ReadFile(path)
	if err != nil {
		warn(logger, "preferences file unavailable, equipment scores disabled", "path", path, "error", err)
		return prefs
	}

	var parsed preferencesFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		warn(logger, "preferences file malformed, equipment scores disabled", "path", path, "error", err)
		return prefs
	}

	for _, item := range parsed.DesiredEquipment {
		if item != "" {
			prefs.Desired[item] = struct{}{}
		}
	}

	return prefs
}

func warn(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}
