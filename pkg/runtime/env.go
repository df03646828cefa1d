package runtime

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env.local then .env from dir (cwd when empty) and every
// parent directory up to the filesystem root.
//
// It only sets vars that are not already set, matching godotenv's behavior.
// Files that fail to parse are reported and skipped.
func LoadDotEnv(logPrefix, dir string) []string {
	if IsDotEnvDisabled() {
		return nil
	}
	if strings.TrimSpace(dir) == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		} else {
			dir = "."
		}
	}
	dir, _ = filepath.Abs(dir)

	var paths []string
	for d := dir; ; {
		paths = append(paths, filepath.Join(d, ".env.local"), filepath.Join(d, ".env"))
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}

	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			log.Printf("%s failed to load %s: %v", logPrefix, p, err)
			continue
		}
		log.Printf("%s loaded env from %s", logPrefix, p)
		loaded = append(loaded, p)
	}
	return loaded
}

func IsDotEnvDisabled() bool {
	v := strings.TrimSpace(os.Getenv("ASSISTANTHUB_DOTENV"))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "0", "false", "off", "no":
		return true
	default:
		return false
	}
}
