package logger

import (
	"os"
	"path/filepath"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	rotateMaxSizeMB  = 10
	rotateMaxBackups = 3
	rotateMaxAgeDays = 28
)

// RotatingFile returns a size-rotated writer for path. The parent directory
// is created if missing. Close the writer on shutdown.
func RotatingFile(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotateMaxSizeMB,
		MaxBackups: rotateMaxBackups,
		MaxAge:     rotateMaxAgeDays,
		Compress:   true,
	}, nil
}
