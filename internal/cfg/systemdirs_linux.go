package cfg

import (
	"os"
	"path/filepath"
)

const (
	appFolderName = "zenfilter"
)

// On Linux, we use the XDG Base Directory Specification:
// https://specifications.freedesktop.org/basedir-spec/basedir-spec-latest.html#variables

func getConfigDir() (string, error) {
	if os.Getenv("XDG_CONFIG_HOME") != "" {
		return filepath.Join(os.Getenv("XDG_CONFIG_HOME"), appFolderName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", appFolderName), nil
}
