package litetable

import (
	"os"
	"path/filepath"
)

const (
	// HomeEnv overrides the LiteTable home directory.
	HomeEnv = "LITETABLE_DIR"

	homeDirName = ".litetable"
)

// GetLitetableDir returns the directory holding litetable.conf and, by default, the data of
// every table: $LITETABLE_DIR when set, otherwise ~/.litetable.
func GetLitetableDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", IOError(err, "cannot locate the LiteTable directory")
	}
	return filepath.Join(home, homeDirName), nil
}
