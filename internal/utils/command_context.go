package utils

import "context"

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	logFilePathContextKeyConstant           = commandContextKey("logFilePath")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	if !configurationFilePathAvailable {
		return "", false
	}
	return configurationFilePath, true
}

// WithLogFilePath attaches the resolved log file path to the provided context.
func (accessor CommandContextAccessor) WithLogFilePath(parentContext context.Context, logFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, logFilePathContextKeyConstant, logFilePath)
}

// LogFilePath extracts the resolved log file path from the provided context.
func (accessor CommandContextAccessor) LogFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	logFilePath, logFilePathAvailable := executionContext.Value(logFilePathContextKeyConstant).(string)
	if !logFilePathAvailable {
		return "", false
	}
	return logFilePath, true
}
