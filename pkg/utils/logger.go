package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig controls the process logger. An empty FileLocation logs to
// stdout only; with one set, output goes to a size-rotated file as well.
type LogConfig struct {
	Level        string `json:"level" yaml:"level"`
	Format       string `json:"format" yaml:"format"`
	FileLocation string `json:"file_location,omitempty" yaml:"file_location,omitempty"`
	MaxSizeMB    int    `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	MaxBackups   int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays   int    `json:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// NewLogger builds a logrus logger from config. Unknown levels fall back to
// info rather than failing the whole invocation.
func NewLogger(config LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(config.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(config.Format)) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	writers := []io.Writer{os.Stdout}
	if config.FileLocation != "" {
		if err := os.MkdirAll(filepath.Dir(config.FileLocation), 0o755); err != nil {
			return nil, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.FileLocation,
			MaxSize:    maxInt(1, config.MaxSizeMB),
			MaxBackups: maxInt(0, config.MaxBackups),
			MaxAge:     maxInt(0, config.MaxAgeDays),
			Compress:   true,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
