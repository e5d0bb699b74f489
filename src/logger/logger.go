package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Level  string
	File   string // empty, "none" or "disabled" means console only
	Format string // "pretty" for a console writer, JSON otherwise
}

var Logger zerolog.Logger
var logFile *os.File

func InitLogger(opts Options) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFile = nil
	if opts.File != "" && opts.File != "none" && opts.File != "disabled" {
		logFile, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Error().Err(err).Str("log_file", opts.File).Msg("Failed to open log file, using stdout only")
			logFile = nil
		}
	}

	Logger = zerolog.New(newWriter(opts.Format, os.Stdout, logFile)).With().
		Timestamp().
		Logger()

	log.Logger = Logger

	Logger.Info().
		Str("log_level", level.String()).
		Bool("log_file", logFile != nil).
		Msg("Logger initialized")
}

func newWriter(format string, console io.Writer, file *os.File) io.Writer {
	var writers []io.Writer

	if format == "pretty" {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
		})
	} else {
		writers = append(writers, console)
	}

	if file != nil {
		writers = append(writers, file)
	}

	return io.MultiWriter(writers...)
}

func CloseLogger() {
	if logFile != nil {
		_ = logFile.Sync()
		_ = logFile.Close()
		logFile = nil
	}
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
