package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDataDir returns where the pebble backend keeps its lists when no
// directory is configured. XDG_DATA_HOME wins when set; otherwise the
// platform's conventional per-user location is used, falling back to
// ./data when there is no home directory.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "deque")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "deque")
	case "windows":
		return filepath.Join(home, "AppData", "Local", "deque")
	}
	if isDir(filepath.Join(home, ".local", "share")) {
		return filepath.Join(home, ".local", "share", "deque")
	}
	return filepath.Join(home, ".deque")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
