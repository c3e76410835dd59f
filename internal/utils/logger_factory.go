package utils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	unsupportedLogLevelTemplateConstant  = "unsupported log level %q"
	unsupportedLogFormatTemplateConstant = "unsupported log format %q"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

// Supported logging levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported logging output formats.
type LogFormat string

// Supported logging formats.
const (
	LogFormatStructured LogFormat = "structured"
	LogFormatConsole    LogFormat = "console"
)

// LoggerOutputs groups the loggers produced for one configuration.
type LoggerOutputs struct {
	DiagnosticLogger *zap.Logger
	ConsoleLogger    *zap.Logger
}

// LoggerFactory builds zap loggers from configuration values.
type LoggerFactory struct{}

// NewLoggerFactory constructs a LoggerFactory instance.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLoggerOutputs builds the diagnostic and console loggers for the requested level and format.
func (factory *LoggerFactory) CreateLoggerOutputs(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (LoggerOutputs, error) {
	zapLevel, levelError := parseLogLevel(requestedLogLevel)
	if levelError != nil {
		return LoggerOutputs{}, levelError
	}

	normalizedFormat := LogFormat(strings.ToLower(strings.TrimSpace(string(requestedLogFormat))))
	switch normalizedFormat {
	case LogFormatStructured:
		diagnosticLogger := buildLogger(zapcore.NewJSONEncoder(structuredEncoderConfiguration()), zapLevel)
		return LoggerOutputs{DiagnosticLogger: diagnosticLogger, ConsoleLogger: zap.NewNop()}, nil
	case LogFormatConsole:
		consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfiguration())
		diagnosticLogger := buildLogger(consoleEncoder, zapLevel)
		consoleLogger := buildLogger(zapcore.NewConsoleEncoder(consoleEncoderConfiguration()), zapLevel)
		return LoggerOutputs{DiagnosticLogger: diagnosticLogger, ConsoleLogger: consoleLogger}, nil
	default:
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogFormatTemplateConstant, string(requestedLogFormat))
	}
}

func parseLogLevel(requestedLogLevel LogLevel) (zapcore.Level, error) {
	normalizedLevel := LogLevel(strings.ToLower(strings.TrimSpace(string(requestedLogLevel))))
	switch normalizedLevel {
	case LogLevelDebug:
		return zapcore.DebugLevel, nil
	case LogLevelInfo:
		return zapcore.InfoLevel, nil
	case LogLevelWarn:
		return zapcore.WarnLevel, nil
	case LogLevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InvalidLevel, fmt.Errorf(unsupportedLogLevelTemplateConstant, string(requestedLogLevel))
	}
}

func buildLogger(encoder zapcore.Encoder, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}

func structuredEncoderConfiguration() zapcore.EncoderConfig {
	configuration := zap.NewProductionEncoderConfig()
	configuration.EncodeTime = zapcore.ISO8601TimeEncoder
	return configuration
}

func consoleEncoderConfiguration() zapcore.EncoderConfig {
	configuration := zap.NewDevelopmentEncoderConfig()
	configuration.TimeKey = ""
	configuration.CallerKey = ""
	configuration.EncodeLevel = zapcore.CapitalLevelEncoder
	return configuration
}
