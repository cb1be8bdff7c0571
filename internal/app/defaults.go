package app

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - ZIPATCH_CONFIG_PATH: config file location (default: $XDG_CONFIG_HOME/zipatch.toml)
//   - ZIPATCH_HOME: base directory for zipatch data (default: $XDG_DATA_HOME/zipatch)
//
// downloads_dir is the XDG download directory and destination_dir is the
// Steam library when one exists, otherwise the home directory.
func GetDefaults() (map[string]string, error) {
	baseDir := getBaseDir()
	return map[string]string{
		"config_path":     getConfigPath(),
		"base_dir":        baseDir,
		"log_dir":         filepath.Join(baseDir, "log"),
		"downloads_dir":   xdg.UserDirs.Download,
		"destination_dir": getDestinationDir(),
	}, nil
}

// getConfigPath returns the config file path, checking ZIPATCH_CONFIG_PATH env var first.
func getConfigPath() string {
	if path := os.Getenv("ZIPATCH_CONFIG_PATH"); path != "" {
		return path
	}
	return filepath.Join(xdg.ConfigHome, "zipatch.toml")
}

// getBaseDir returns the base directory for zipatch data, checking ZIPATCH_HOME env var first.
func getBaseDir() string {
	if path := os.Getenv("ZIPATCH_HOME"); path != "" {
		return path
	}
	return filepath.Join(xdg.DataHome, "zipatch")
}

func getDestinationDir() string {
	steam := filepath.Join(xdg.DataHome, "Steam", "steamapps", "common")
	if info, err := os.Stat(steam); err == nil && info.IsDir() {
		return steam
	}
	return xdg.Home
}
