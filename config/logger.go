package config

import "mbobook/pkg/logger"

// Logger builds the process logger described by c.
func (c LogConfig) Logger() (*logger.Logger, error) {
	opts := []logger.Options{logger.WithLoggingLevel(logger.Level(c.Level))}
	if c.File != "" {
		opts = append(opts, logger.WithFile(c.File, c.MaxSizeMB, c.MaxBackups))
	}
	return logger.NewLogger(opts...)
}
