// Package logger configures the standard logger used across the module.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	appName = "zenfilter"
)

// Config describes the rotating log file.
type Config struct {
	// File is the log file path. An empty path selects application.log in the default logs directory.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func newFileLogger(config Config) (*lumberjack.Logger, error) {
	filename := config.File
	if filename == "" {
		logsDir, err := DefaultLogsDir()
		if err != nil {
			return nil, fmt.Errorf("get logs directory: %w", err)
		}
		filename = filepath.Join(logsDir, "application.log")
	} else if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAgeDays,
		Compress:   config.Compress,
	}, nil
}

// DefaultLogsDir returns the platform logs directory, creating it if needed.
func DefaultLogsDir() (string, error) {
	var path string
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		path = filepath.Join(os.Getenv("LOCALAPPDATA"), appName, "Logs")
	case "darwin":
		path = filepath.Join(homeDir, "Library", "Logs", appName)
	default:
		path = filepath.Join(homeDir, ".local", "share", appName, "logs")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}

	return path, nil
}
