package spawn

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestPath returns the deterministic path spec.md §6 describes:
// `<manifestRoot>/<sessionId>/manifest.json`.
func ManifestPath(manifestRoot, sessionID string) string {
	return filepath.Join(expandHome(manifestRoot), sessionID, "manifest.json")
}

// writeManifest validates m and writes it to path, creating parent
// directories as needed. This is local file I/O, not a subprocess
// invocation, so it stays on encoding/json + os rather than an external
// collaborator (see DESIGN.md).
func writeManifest(path string, m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func expandHome(path string) string {
	if path == "~" || len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
