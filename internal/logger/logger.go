package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Level is the minimum severity a logger will emit.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	}
	return "UNKNOWN"
}

// Logger is the logging interface passed into every component constructor.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
	Fatal(format string, v ...any)
}

// Config selects the sink and level. Empty fields fall back to the
// IRAG_LOG_OUTPUT, IRAG_LOG_FILE and IRAG_LOG_LEVEL environment variables,
// then to a file under ~/.irag. Stdout is never used: the MCP transport
// owns it.
type Config struct {
	Output   string // "file" or "stderr"
	FilePath string
	Level    string
}

type stdLogger struct {
	logger *log.Logger
	level  Level
}

// New creates a logger from the given configuration.
func New(cfg Config) (Logger, error) {
	output := cfg.Output
	if output == "" {
		output = os.Getenv("IRAG_LOG_OUTPUT")
	}
	if output == "" {
		output = "file"
	}

	var writer io.Writer
	switch output {
	case "stderr":
		writer = os.Stderr
	case "file":
		path := cfg.FilePath
		if path == "" {
			path = os.Getenv("IRAG_LOG_FILE")
		}
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolving home directory: %w", err)
			}
			dir := filepath.Join(home, ".irag")
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating log directory: %w", err)
			}
			path = filepath.Join(dir, "irag.log")
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		writer = file
	default:
		return nil, fmt.Errorf("invalid log output %q (expected 'file' or 'stderr')", output)
	}

	levelStr := cfg.Level
	if levelStr == "" {
		levelStr = os.Getenv("IRAG_LOG_LEVEL")
	}

	return &stdLogger{
		logger: log.New(writer, "", log.LstdFlags),
		level:  parseLevel(levelStr),
	}, nil
}

// NewNoOp returns a logger that discards everything. Used in tests.
func NewNoOp() Logger {
	return &stdLogger{logger: log.New(io.Discard, "", 0), level: FatalLevel}
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func (l *stdLogger) Debug(format string, v ...any) { l.emit(DebugLevel, format, v...) }
func (l *stdLogger) Info(format string, v ...any)  { l.emit(InfoLevel, format, v...) }
func (l *stdLogger) Warn(format string, v ...any)  { l.emit(WarnLevel, format, v...) }
func (l *stdLogger) Error(format string, v ...any) { l.emit(ErrorLevel, format, v...) }

func (l *stdLogger) Fatal(format string, v ...any) {
	l.emit(FatalLevel, format, v...)
	os.Exit(1)
}

func (l *stdLogger) emit(level Level, format string, v ...any) {
	if level < l.level {
		return
	}
	l.logger.Printf("[%s] %s", level, fmt.Sprintf(format, v...))
}
