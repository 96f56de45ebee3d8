package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

// LogFormat enumerates supported log encoders.
type LogFormat string

const (
	// LogLevelDebug emits every message.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo emits informational messages and above.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn emits warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError emits errors only.
	LogLevelError LogLevel = "error"

	// LogFormatStructured encodes log entries as JSON.
	LogFormatStructured LogFormat = "structured"
	// LogFormatConsole encodes log entries for humans.
	LogFormatConsole LogFormat = "console"
)

const (
	unsupportedLogLevelTemplateConstant  = "unsupported log level %q"
	unsupportedLogFormatTemplateConstant = "unsupported log format %q"
	consoleTimeLayoutConstant            = "15:04:05"
)

// LoggerOutputs groups the diagnostic logger with the console logger used for operator-facing output.
// The console logger is a no-op unless the console format is selected.
type LoggerOutputs struct {
	DiagnosticLogger *zap.Logger
	ConsoleLogger    *zap.Logger
}

// LoggerFactory builds zap loggers from configuration values.
type LoggerFactory struct{}

// NewLoggerFactory constructs a LoggerFactory.
func NewLoggerFactory() LoggerFactory {
	return LoggerFactory{}
}

// CreateLoggerOutputs creates loggers writing to standard error.
func (factory LoggerFactory) CreateLoggerOutputs(requestedLevel LogLevel, requestedFormat LogFormat) (LoggerOutputs, error) {
	zapLevel, levelError := parseLogLevel(requestedLevel)
	if levelError != nil {
		return LoggerOutputs{}, levelError
	}

	normalizedFormat := LogFormat(strings.ToLower(strings.TrimSpace(string(requestedFormat))))
	switch normalizedFormat {
	case LogFormatStructured:
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stderr), zapLevel)
		return LoggerOutputs{DiagnosticLogger: zap.New(core), ConsoleLogger: zap.NewNop()}, nil
	case LogFormatConsole:
		diagnosticConfig := zap.NewDevelopmentEncoderConfig()
		diagnosticConfig.EncodeTime = zapcore.TimeEncoderOfLayout(consoleTimeLayoutConstant)
		diagnosticCore := zapcore.NewCore(zapcore.NewConsoleEncoder(diagnosticConfig), zapcore.Lock(os.Stderr), zapLevel)

		consoleConfig := zapcore.EncoderConfig{MessageKey: "message", LineEnding: zapcore.DefaultLineEnding}
		consoleWriter := zapcore.AddSync(NewFlushingWriter(bufio.NewWriter(os.Stderr)))
		consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), consoleWriter, zapLevel)

		return LoggerOutputs{DiagnosticLogger: zap.New(diagnosticCore), ConsoleLogger: zap.New(consoleCore)}, nil
	default:
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedFormat)
	}
}

func parseLogLevel(requestedLevel LogLevel) (zapcore.Level, error) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(string(requestedLevel)))) {
	case LogLevelDebug:
		return zapcore.DebugLevel, nil
	case LogLevelInfo:
		return zapcore.InfoLevel, nil
	case LogLevelWarn:
		return zapcore.WarnLevel, nil
	case LogLevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLevel)
	}
}
