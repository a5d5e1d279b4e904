//go:build prod

package logger

import (
	"fmt"
	"io"
	"log"
)

// SetupLogger directs log output to the rotating log file.
func SetupLogger(config Config) (io.Closer, error) {
	fileLogger, err := newFileLogger(config)
	if err != nil {
		return nil, fmt.Errorf("create file logger: %w", err)
	}

	log.SetOutput(fileLogger)

	return fileLogger, nil
}
