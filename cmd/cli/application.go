package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/envpath"
	"github.com/deskware/win_scripts/internal/pybuild"
	"github.com/deskware/win_scripts/internal/utils"
	"github.com/deskware/win_scripts/internal/winget"
	"github.com/deskware/win_scripts/internal/workflow"
)

const (
	applicationNameConstant             = "win-scripts"
	applicationShortDescriptionConstant = "Command-line interface for Windows setup automation"
	applicationLongDescriptionConstant  = "win-scripts manages persistent environment variables, the Path registry value, package installation, Python packaging, and YAML-defined setup workflows."

	configFileFlagNameConstant  = "config"
	configFileFlagUsageConstant = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant    = "log-level"
	logLevelFlagUsageConstant   = "Override the configured log level."
	logFormatFlagNameConstant   = "log-format"
	logFormatFlagUsageConstant  = "Override the configured log format (structured or console)."
	logDirectoryFlagNameLiteral = "log-dir"
	logDirectoryFlagUsageText   = "Directory for timestamped log files; stderr-only logging when empty."

	commonConfigurationKeyConstant    = "common"
	commonLogLevelConfigKeyConstant   = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant  = commonConfigurationKeyConstant + ".log_format"
	commonLogDirectoryConfigKeyLabel  = commonConfigurationKeyConstant + ".log_directory"
	environmentPrefixConstant         = "WINSCRIPTS"
	configurationNameConstant         = "config"
	configurationTypeConstant         = "yaml"
	defaultConfigurationSearchPathDot = "."

	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	logFileFieldConstant                    = "log_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "win-scripts CLI executed"
	rootCommandDebugMessageConstant         = "win-scripts CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	LogDirectory string `mapstructure:"log_directory"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	logDirectoryFlagValue  string
	logFilePath            string
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathDot},
	)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logDirectoryFlagValue, logDirectoryFlagNameLiteral, "", logDirectoryFlagUsageText)

	environmentBuilder := envpath.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
	}
	environmentCommand, environmentBuildError := environmentBuilder.Build()
	if environmentBuildError == nil {
		cobraCommand.AddCommand(environmentCommand)
	}

	installBuilder := winget.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
	}
	installCommand, installBuildError := installBuilder.Build()
	if installBuildError == nil {
		cobraCommand.AddCommand(installCommand)
	}

	pybuildBuilder := pybuild.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
	}
	pybuildCommand, pybuildBuildError := pybuildBuilder.Build()
	if pybuildBuildError == nil {
		cobraCommand.AddCommand(pybuildCommand)
	}

	workflowBuilder := workflow.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
	}
	workflowCommand, workflowBuildError := workflowBuilder.Build()
	if workflowBuildError == nil {
		cobraCommand.AddCommand(workflowCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
		commonLogDirectoryConfigKeyLabel: "",
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	if application.persistentFlagChanged(command, logDirectoryFlagNameLiteral) {
		application.configuration.Common.LogDirectory = application.logDirectoryFlagValue
	}

	if creationError := application.createConfiguredLogger(); creationError != nil {
		return creationError
	}

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		if len(application.logFilePath) > 0 {
			updatedContext = application.commandContextAccessor.WithLogFilePath(updatedContext, application.logFilePath)
		}
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

// createConfiguredLogger builds either a stderr logger or, when a log
// directory is configured, a logger that also writes a timestamped file.
func (application *Application) createConfiguredLogger() error {
	logDirectory := strings.TrimSpace(application.configuration.Common.LogDirectory)
	if len(logDirectory) == 0 {
		createdLogger, creationError := application.loggerFactory.CreateLogger(
			utils.LogLevel(application.configuration.Common.LogLevel),
			utils.LogFormat(application.configuration.Common.LogFormat),
		)
		if creationError != nil {
			return fmt.Errorf(loggerCreationErrorTemplateConstant, creationError)
		}
		application.logger = createdLogger
		return nil
	}

	createdLogger, logFilePath, creationError := application.loggerFactory.CreateFileBackedLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
		logDirectory,
		applicationNameConstant,
		time.Now(),
	)
	if creationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, creationError)
	}
	application.logger = createdLogger
	application.logFilePath = logFilePath
	application.logger.Info(configurationInitializedMessageConstant, zap.String(logFileFieldConstant, logFilePath))
	return nil
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
