package utils

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CustomLogger is a logger type that embeds zap.Logger to provide logging functionalities with additional features.
type CustomLogger struct {
	zap.Logger // Embedding Logger (composition)
}

const (
	// LogTrace we need a more detailed log level to make DEBUG logs not so verbose.
	// DEBUG logs work on the level of a whole cycle, and TRACE logs work on the level of archive entries.
	LogTrace zapcore.Level = -3
)

// LogOptions selects the sinks and the formatting of the logger built by NewLogger.
type LogOptions struct {
	// FilePath is the append-only log file; empty disables the file sink.
	FilePath string
	// JSON switches the file sink to JSON lines instead of the console format.
	JSON bool
	// Dev enables development formatting on the console with time stamps and callers.
	Dev bool
	// Verbose enables DEBUG-level logging.
	Verbose bool
	// Trace enables TRACE-level logging (implies Verbose).
	Trace bool
	// Quiet disables the console sink, only the file gets the records.
	Quiet bool
}

// Wrap turns a plain zap logger into a CustomLogger; used by tests with observer cores.
func Wrap(l *zap.Logger) *CustomLogger {
	return &CustomLogger{*l}
}

// Nop returns a logger that discards everything.
func Nop() *CustomLogger {
	return Wrap(zap.NewNop())
}

// Trace logs a message at trace level with optional structured fields.
func (l *CustomLogger) Trace(msg string, fields ...zap.Field) {
	l.Log(LogTrace, msg, fields...)
}

// Named returns a child logger with the given name segment, keeping the CustomLogger type.
func (l *CustomLogger) Named(name string) *CustomLogger {
	return Wrap(l.Logger.Named(name))
}

// With returns a child logger with the given fields attached to every record.
func (l *CustomLogger) With(fields ...zap.Field) *CustomLogger {
	return Wrap(l.Logger.With(fields...))
}

// Close flushes the buffered records. Sync errors on stderr/stdout are expected on some platforms
// and are only reported, never fatal.
func (l *CustomLogger) Close() {
	if err := l.Sync(); err != nil {
		log.Println("Expected error while syncing the logger: ", err)
	}
}

// NewLogger builds the program logger: an append-only file sink (timestamp, level, message)
// teed with a console sink on stderr.
func NewLogger(opts LogOptions) (*CustomLogger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Trace {
		level = zap.NewAtomicLevelAt(LogTrace)
	} else if opts.Verbose {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	var cores []zapcore.Core
	if opts.FilePath != "" {
		// zap opens plain paths with O_APPEND|O_CREATE, so restarts keep the history
		sink, _, err := zap.Open(opts.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open the log file '%s': %w", opts.FilePath, err)
		}
		cores = append(cores, zapcore.NewCore(fileEncoder(opts.JSON), sink, level))
	}
	if !opts.Quiet {
		cores = append(cores, zapcore.NewCore(consoleEncoder(opts.Dev), zapcore.Lock(os.Stderr), level))
	}
	if len(cores) == 0 {
		return Nop(), nil
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.WithCaller(opts.Dev), zap.AddStacktrace(zapcore.FatalLevel))
	return Wrap(logger), nil
}

// fileEncoder produces one line per record with the time stamp, the level and the message.
func fileEncoder(json bool) zapcore.Encoder {
	config := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    TraceLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if json {
		config.EncodeDuration = zapcore.SecondsDurationEncoder
		return zapcore.NewJSONEncoder(config)
	}
	config.ConsoleSeparator = " - "
	return zapcore.NewConsoleEncoder(config)
}

// consoleEncoder constructs console-friendly output; development mode adds time stamps and callers.
func consoleEncoder(dev bool) zapcore.Encoder {
	if dev {
		return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			// Keys can be anything except the empty string.
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      "C",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    TraceLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		})
	}
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "message",                     // Set the key for the log message
		LevelKey:       "level",                       // Leave blank to omit the log level
		TimeKey:        "",                            // Leave blank to omit the timestamp
		NameKey:        "logger",                      // Component name
		EncodeLevel:    IconLevelEncoder,              // instead of zapcore.CapitalLevelEncoder
		EncodeDuration: zapcore.StringDurationEncoder, // Format for durations
		EncodeName:     zapcore.FullNameEncoder,
	})
}

// IconLevelEncoder serializes a Level to an icon - only for more important levels.
func IconLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == zapcore.ErrorLevel || l == zapcore.FatalLevel { // Check if it's an error message
		enc.AppendString("❌") // Prepend the symbol to the message
	} else if l == zapcore.WarnLevel {
		enc.AppendString("⚠️") // Prepend the symbol to the message
	} else if l == zapcore.InfoLevel {
		enc.AppendString("ℹ️") // Prepend the symbol to the message
	} else if l == LogTrace {
		enc.AppendString("TRACE")
	}
}

// TraceLevelEncoder adds TRACE level serialization, otherwise it prints LEVEL(-3)
func TraceLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == LogTrace {
		enc.AppendString("TRACE")
	} else {
		enc.AppendString(l.CapitalString())
	}
}
