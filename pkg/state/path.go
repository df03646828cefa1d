package state

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// BaseDir returns the directory used for persistent state.
//
// Default:
// - system user cache dir + "/assistanthub"
// - os.TempDir() + "/assistanthub" when no cache dir can be found
func BaseDir() string {
	if d := strings.TrimSpace(userCacheDir()); d != "" {
		return filepath.Join(d, "assistanthub")
	}
	return filepath.Join(os.TempDir(), "assistanthub")
}

func RemindersFile() string {
	return filepath.Join(BaseDir(), "reminders.json")
}

func AccountsFile() string {
	return filepath.Join(BaseDir(), "accounts.json")
}

func userCacheDir() string {
	if d, err := os.UserCacheDir(); err == nil && strings.TrimSpace(d) != "" {
		return d
	}

	switch runtime.GOOS {
	case "windows":
		if d := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); d != "" {
			return d
		}
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, "AppData", "Local")
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, "Library", "Caches")
		}
	default:
		if d := strings.TrimSpace(os.Getenv("XDG_CACHE_HOME")); d != "" {
			return d
		}
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, ".cache")
		}
	}

	return ""
}
