package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

// Logger is the application-wide structured logger.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// LogFilePath returns the path to the backend log file.
func LogFilePath() string {
	return filepath.Join("logs", "abstract-api.log")
}

// InitLogging prepares the log file and points Logger at stdout plus the file.
// The returned file, if any, should be closed on shutdown.
func InitLogging(level string) (*os.File, io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	logPath := filepath.Dir(LogFilePath())
	if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
		LogWriter = os.Stdout
		Logger = zerolog.New(LogWriter).Level(lvl).With().Timestamp().Logger()
		Logger.Warn().Err(err).Msg("failed to create logs directory")
		return nil, LogWriter
	}

	logFile, err := os.OpenFile(LogFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		LogWriter = os.Stdout
		Logger = zerolog.New(LogWriter).Level(lvl).With().Timestamp().Logger()
		Logger.Warn().Err(err).Msg("failed to open log file")
		return nil, LogWriter
	}

	LogWriter = io.MultiWriter(os.Stdout, logFile)
	Logger = zerolog.New(LogWriter).Level(lvl).With().Timestamp().Logger()
	return logFile, LogWriter
}
