//go:build !linux && !windows

package cfg

import (
	"os"
	"path/filepath"
)

const (
	appFolderName = "zenfilter"
)

func getConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, appFolderName), nil
}
