package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant           = "debug"
	logLevelInfoStringConstant            = "info"
	logLevelWarnStringConstant            = "warn"
	logLevelErrorStringConstant           = "error"
	logFormatStructuredStringConstant     = "structured"
	logFormatConsoleStringConstant        = "console"
	jsonZapEncodingStringConstant         = "json"
	consoleZapEncodingStringConstant      = "console"
	unsupportedLogLevelTemplateConstant   = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant  = "unsupported log format: %s"
	logDirectoryCreationTemplateConstant  = "unable to create log directory: %w"
	logFileCreationTemplateConstant       = "unable to create log file: %w"
	logFileTimestampLayoutConstant        = "2006-01-02 15-04-05"
	logFileNameTemplateConstant           = "%s %s.log"
	logDirectoryPermissionsConstant       = 0o755
	logFilePermissionOpenFlagsDescriptor  = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	logFilePermissionModeNumericConstant  = 0o644
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct{}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

var logFormatEncodingMapping = map[LogFormat]string{
	LogFormatStructured: jsonZapEncodingStringConstant,
	LogFormatConsole:    consoleZapEncodingStringConstant,
}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLogLevel, levelExists := logLevelMapping[requestedLogLevel]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	encoding, formatExists := logFormatEncodingMapping[requestedLogFormat]
	if !formatExists {
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLogLevel)
	configuration.Encoding = encoding

	logger, buildError := configuration.Build()
	if buildError != nil {
		return nil, buildError
	}

	return logger, nil
}

// CreateFileBackedLogger produces a zap.Logger that duplicates output into a
// timestamped log file under logDirectory, returning the resolved file path.
// The file name follows the "<timestamp> <application>.log" convention so a
// directory of runs sorts chronologically.
func (factory *LoggerFactory) CreateFileBackedLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat, logDirectory string, applicationName string, currentTime time.Time) (*zap.Logger, string, error) {
	zapLogLevel, levelExists := logLevelMapping[requestedLogLevel]
	if !levelExists {
		return nil, "", fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	encoding, formatExists := logFormatEncodingMapping[requestedLogFormat]
	if !formatExists {
		return nil, "", fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	if directoryError := os.MkdirAll(logDirectory, logDirectoryPermissionsConstant); directoryError != nil {
		return nil, "", fmt.Errorf(logDirectoryCreationTemplateConstant, directoryError)
	}

	logFileName := fmt.Sprintf(logFileNameTemplateConstant, currentTime.Format(logFileTimestampLayoutConstant), applicationName)
	logFilePath := filepath.Join(logDirectory, logFileName)
	logFile, openError := os.OpenFile(logFilePath, logFilePermissionOpenFlagsDescriptor, logFilePermissionModeNumericConstant)
	if openError != nil {
		return nil, "", fmt.Errorf(logFileCreationTemplateConstant, openError)
	}

	encoderConfiguration := zap.NewProductionEncoderConfig()
	var encoder zapcore.Encoder
	if encoding == consoleZapEncodingStringConstant {
		encoder = zapcore.NewConsoleEncoder(encoderConfiguration)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfiguration)
	}

	combinedCore := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zapLogLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(logFile), zapLogLevel),
	)

	return zap.New(combinedCore), logFilePath, nil
}
