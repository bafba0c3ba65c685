package flog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Level represents a log level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// rotatingFileMaxSizeMB and rotatingFileBackups match the 10MiB x 5 rotation
// the client and wrapper processes use for their own log files.
const (
	rotatingFileMaxSizeMB = 10
	rotatingFileBackups   = 5
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// InitClient installs a rotating client.log under logDir and returns the
// logger so the caller can also attach it as the process-wide global.
// Mirrors the original's client.py:prepare_log_file.
func InitClient(logDir string) zerolog.Logger {
	return initRotating(logDir, "client.log")
}

// InitWrapper installs a rotating wrapper.log in the job's working
// directory. Mirrors AbstractWrapper.prepare_log_file.
func InitWrapper(workDir string) zerolog.Logger {
	return initRotating(workDir, "wrapper.log")
}

func initRotating(dir, filename string) zerolog.Logger {
	writer := &lumberjack.Logger{
		Filename:   dir + string(os.PathSeparator) + filename,
		MaxSize:    rotatingFileMaxSizeMB,
		MaxBackups: rotatingFileBackups,
	}
	Logger = zerolog.New(writer).With().Timestamp().Logger()
	return Logger
}

// WithComponent creates a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithJobID creates a child logger tagged with a job identifier.
func WithJobID(identifier string) zerolog.Logger {
	return Logger.With().Str("job_id", identifier).Logger()
}

// WithCallsign creates a child logger tagged with a site callsign.
func WithCallsign(callsign string) zerolog.Logger {
	return Logger.With().Str("callsign", callsign).Logger()
}

func Info(msg string) { Logger.Info().Msg(msg) }

func Debug(msg string) { Logger.Debug().Msg(msg) }

func Warn(msg string) { Logger.Warn().Msg(msg) }

func Error(msg string) { Logger.Error().Msg(msg) }

func Errorf(format string, err error) { Logger.Error().Err(err).Msg(format) }

func Fatal(msg string) { Logger.Fatal().Msg(msg) }
