package cfg

import (
	"os"
	"path/filepath"
)

const (
	appFolderName = "zenfilter"
	configDirName = "Config"
)

func getConfigDir() (string, error) {
	if os.Getenv("LOCALAPPDATA") != "" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appFolderName, configDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, "AppData", "Local", appFolderName, configDirName), nil
}
