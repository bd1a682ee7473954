package paths

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.starmark.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".starmark")
}

// ConfigPath returns the config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// DBPath returns the plugin-owned starmark.db path.
func DBPath() string {
	return filepath.Join(BaseDir(), "starmark.db")
}

// LockPath returns the lock file path for the dev daemon.
func LockPath() string {
	return filepath.Join(BaseDir(), "LOCK")
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// LogPath returns the daemon log file path.
func LogPath() string {
	return filepath.Join(LogDir(), "starmarkd.log")
}

// EnsureDirs creates the data directory tree with proper permissions.
func EnsureDirs() error {
	for _, d := range []string{BaseDir(), LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
