package envpath

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/execshell"
	"github.com/deskware/win_scripts/internal/registry"
	"github.com/deskware/win_scripts/internal/utils"
	"github.com/deskware/win_scripts/internal/utils/flags"
)

const (
	envCommandUseConstant              = "env"
	envCommandShortDescriptionConstant = "Manage persistent environment variables and the Path value"
	envCommandLongDescriptionConstant  = "env registers environment variables in the Windows registry and keeps the Path value deduplicated, symbolic, and deterministically ordered."

	ensureCommandUseConstant              = "ensure"
	ensureCommandShortDescriptionConstant = "Register a variable and reference it from Path"
	ensureCommandLongDescriptionConstant  = "ensure writes NAME=VALUE into the chosen registry scope, removes rival variables bound to the same value, and rewrites Path to reference %NAME% instead of the literal path."
	ensureErrorTemplateConstant           = "environment variable registration failed: %w"

	pathCommandUseConstant              = "path"
	pathCommandShortDescriptionConstant = "Inspect or reconcile the Path registry value"

	pathShowCommandUseConstant              = "show"
	pathShowCommandShortDescriptionConstant = "Print the stored Path value one entry per line"
	pathShowErrorTemplateConstant           = "reading Path failed: %w"

	pathReconcileCommandUseConstant              = "reconcile"
	pathReconcileCommandShortDescriptionConstant = "Deduplicate and reorder the stored Path value"
	pathReconcileErrorTemplateConstant           = "path reconciliation failed: %w"

	unexpectedArgumentsMessageConstant = "env subcommands do not accept positional arguments"

	flagNameNameConstant         = "name"
	flagNameDescriptionConstant  = "Environment variable name"
	flagValueNameConstant        = "value"
	flagValueDescriptionConstant = "Directory the variable points at"
	flagScopeNameConstant        = "scope"
	flagScopeDescriptionConstant = "Registry scope to operate on"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

var scopeChoiceValues = []string{string(registry.ScopeUser), string(registry.ScopeMachine)}

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the env command tree.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	RegistryClient RegistryClient
}

// Build constructs the env command with its ensure and path subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	envCommand := &cobra.Command{
		Use:   envCommandUseConstant,
		Short: envCommandShortDescriptionConstant,
		Long:  envCommandLongDescriptionConstant,
	}

	scopeUsage := flags.FormatChoiceUsage(string(registry.ScopeUser), scopeChoiceValues, flagScopeDescriptionConstant)

	ensureCommand := &cobra.Command{
		Use:   ensureCommandUseConstant,
		Short: ensureCommandShortDescriptionConstant,
		Long:  ensureCommandLongDescriptionConstant,
		RunE:  builder.runEnsure,
	}
	ensureCommand.Flags().String(flagNameNameConstant, "", flagNameDescriptionConstant)
	ensureCommand.Flags().String(flagValueNameConstant, "", flagValueDescriptionConstant)
	ensureCommand.Flags().String(flagScopeNameConstant, string(registry.ScopeUser), scopeUsage)

	pathCommand := &cobra.Command{
		Use:   pathCommandUseConstant,
		Short: pathCommandShortDescriptionConstant,
	}

	pathShowCommand := &cobra.Command{
		Use:   pathShowCommandUseConstant,
		Short: pathShowCommandShortDescriptionConstant,
		RunE:  builder.runPathShow,
	}
	pathShowCommand.Flags().String(flagScopeNameConstant, string(registry.ScopeUser), scopeUsage)

	pathReconcileCommand := &cobra.Command{
		Use:   pathReconcileCommandUseConstant,
		Short: pathReconcileCommandShortDescriptionConstant,
		RunE:  builder.runPathReconcile,
	}
	pathReconcileCommand.Flags().String(flagScopeNameConstant, string(registry.ScopeUser), scopeUsage)

	pathCommand.AddCommand(pathShowCommand, pathReconcileCommand)
	envCommand.AddCommand(ensureCommand, pathCommand)

	return envCommand, nil
}

func (builder *CommandBuilder) runEnsure(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	scope, scopeError := parseScopeFlag(command)
	if scopeError != nil {
		return scopeError
	}

	variableName, _ := command.Flags().GetString(flagNameNameConstant)
	variableValue, _ := command.Flags().GetString(flagValueNameConstant)

	service, serviceError := builder.resolveService()
	if serviceError != nil {
		return serviceError
	}

	ensureError := service.EnsureGlobalVariable(command.Context(), strings.TrimSpace(variableName), strings.TrimSpace(variableValue), scope)
	if ensureError != nil {
		return fmt.Errorf(ensureErrorTemplateConstant, ensureError)
	}
	return nil
}

func (builder *CommandBuilder) runPathShow(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	scope, scopeError := parseScopeFlag(command)
	if scopeError != nil {
		return scopeError
	}

	service, serviceError := builder.resolveService()
	if serviceError != nil {
		return serviceError
	}

	currentPath, readError := service.CurrentPath(command.Context(), scope)
	if readError != nil {
		return fmt.Errorf(pathShowErrorTemplateConstant, readError)
	}

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	for _, pathEntry := range splitPathList(currentPath) {
		fmt.Fprintln(outputWriter, pathEntry)
	}
	return nil
}

func (builder *CommandBuilder) runPathReconcile(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	scope, scopeError := parseScopeFlag(command)
	if scopeError != nil {
		return scopeError
	}

	service, serviceError := builder.resolveService()
	if serviceError != nil {
		return serviceError
	}

	reconcileError := service.NormalizePath(command.Context(), scope)
	if reconcileError != nil {
		return fmt.Errorf(pathReconcileErrorTemplateConstant, reconcileError)
	}
	return nil
}

func parseScopeFlag(command *cobra.Command) (registry.Scope, error) {
	scopeValue, _ := command.Flags().GetString(flagScopeNameConstant)
	return registry.ParseScope(scopeValue)
}

func (builder *CommandBuilder) resolveService() (*Service, error) {
	logger := builder.resolveLogger()

	registryClient, clientError := builder.resolveRegistryClient(logger)
	if clientError != nil {
		return nil, clientError
	}

	return NewService(Dependencies{Logger: logger, RegistryClient: registryClient})
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

func (builder *CommandBuilder) resolveRegistryClient(logger *zap.Logger) (RegistryClient, error) {
	if builder.RegistryClient != nil {
		return builder.RegistryClient, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner)
	if executorError != nil {
		return nil, executorError
	}

	return registry.NewClient(shellExecutor)
}
