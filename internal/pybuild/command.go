package pybuild

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/execshell"
)

const (
	commandUseConstant              = "pybuild"
	commandShortDescriptionConstant = "Package a Python script into a one-file executable"
	commandLongDescriptionConstant  = "pybuild creates a virtual environment, upgrades pip, installs requirements, and runs PyInstaller to produce a single-file executable."
	commandErrorTemplateConstant    = "python build failed: %w"
	unexpectedArgumentsMessage      = "pybuild does not accept positional arguments"

	flagScriptNameConstant          = "script"
	flagScriptDescriptionConstant   = "Entry script to package"
	flagVenvNameConstant            = "venv"
	flagVenvDescriptionConstant     = "Virtual environment directory"
	flagRequirementsNameConstant    = "requirements"
	flagRequirementsDescription     = "Requirements file to install before building"
	flagNameNameConstant            = "name"
	flagNameDescriptionConstant     = "Executable name (defaults to the script name)"
	flagIconNameConstant            = "icon"
	flagIconDescriptionConstant     = "Icon file embedded into the executable"
	flagNoConsoleNameConstant       = "no-console"
	flagNoConsoleDescriptionLiteral = "Build a windowed executable without a console"
	flagDistNameConstant            = "dist"
	flagDistDescriptionConstant     = "Output directory for the built executable"

	defaultVenvDirectoryConstant = ".venv"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessage)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the pybuild command.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	Executor       PythonExecutor
}

// Build constructs the pybuild command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(flagScriptNameConstant, "", flagScriptDescriptionConstant)
	command.Flags().String(flagVenvNameConstant, defaultVenvDirectoryConstant, flagVenvDescriptionConstant)
	command.Flags().String(flagRequirementsNameConstant, "", flagRequirementsDescription)
	command.Flags().String(flagNameNameConstant, "", flagNameDescriptionConstant)
	command.Flags().String(flagIconNameConstant, "", flagIconDescriptionConstant)
	command.Flags().Bool(flagNoConsoleNameConstant, false, flagNoConsoleDescriptionLiteral)
	command.Flags().String(flagDistNameConstant, defaultDistDirectoryConstant, flagDistDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	entryScript, _ := command.Flags().GetString(flagScriptNameConstant)
	venvPath, _ := command.Flags().GetString(flagVenvNameConstant)
	requirementsPath, _ := command.Flags().GetString(flagRequirementsNameConstant)
	applicationName, _ := command.Flags().GetString(flagNameNameConstant)
	iconPath, _ := command.Flags().GetString(flagIconNameConstant)
	hideConsole, _ := command.Flags().GetBool(flagNoConsoleNameConstant)
	distDirectory, _ := command.Flags().GetString(flagDistNameConstant)

	logger := builder.resolveLogger()
	pipeline, pipelineError := builder.resolvePipeline(logger)
	if pipelineError != nil {
		return pipelineError
	}

	buildOptions := BuildOptions{
		EntryScript:     strings.TrimSpace(entryScript),
		ApplicationName: applicationName,
		IconPath:        iconPath,
		HideConsole:     hideConsole,
		DistDirectory:   distDirectory,
	}

	if _, runError := pipeline.Run(command.Context(), venvPath, requirementsPath, buildOptions); runError != nil {
		return fmt.Errorf(commandErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolvePipeline(logger *zap.Logger) (*Pipeline, error) {
	if builder.Executor != nil {
		return NewPipeline(Dependencies{Logger: logger, Executor: builder.Executor})
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner)
	if executorError != nil {
		return nil, executorError
	}
	return NewPipeline(Dependencies{Logger: logger, Executor: shellExecutor})
}
