package winget

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/execshell"
)

const (
	commandUseConstant              = "install"
	commandShortDescriptionConstant = "Install packages through winget"
	commandLongDescriptionConstant  = "install resolves each package identifier through winget, skipping packages that are already present."
	commandErrorTemplateConstant    = "package installation failed: %w"
	missingArgumentsMessageConstant = "install requires at least one package identifier"

	packageInstalledMessageConstant      = "Installed package"
	packageAlreadyPresentMessageConstant = "Package already installed"
	packageIdentifierFieldConstant       = "package_identifier"
)

var errMissingArguments = errors.New(missingArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the install command.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	Executor       PackageExecutor
}

// Build constructs the install command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	packageIdentifiers := []string{}
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) > 0 {
			packageIdentifiers = append(packageIdentifiers, trimmedArgument)
		}
	}
	if len(packageIdentifiers) == 0 {
		return errMissingArguments
	}

	logger := builder.resolveLogger()
	manager, managerError := builder.resolveManager(logger)
	if managerError != nil {
		return managerError
	}

	for _, packageIdentifier := range packageIdentifiers {
		installed, ensureError := manager.EnsurePackage(command.Context(), packageIdentifier)
		if ensureError != nil {
			return fmt.Errorf(commandErrorTemplateConstant, ensureError)
		}
		if installed {
			logger.Info(packageInstalledMessageConstant, zap.String(packageIdentifierFieldConstant, packageIdentifier))
		} else {
			logger.Info(packageAlreadyPresentMessageConstant, zap.String(packageIdentifierFieldConstant, packageIdentifier))
		}
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

func (builder *CommandBuilder) resolveManager(logger *zap.Logger) (*Manager, error) {
	if builder.Executor != nil {
		return NewManager(builder.Executor)
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner)
	if executorError != nil {
		return nil, executorError
	}
	return NewManager(shellExecutor)
}
