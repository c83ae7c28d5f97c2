package execshell

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "logger not configured"
	commandRunnerNotConfiguredMessageConstant = "command runner not configured"
	commandFailedTemplateConstant             = "%s exited with code %d"
	commandFailedStderrTemplateConstant       = "%s exited with code %d: %s"
	commandExecutionFailedTemplateConstant    = "unable to execute %s: %v"
	executorCommandNameStringConstant         = "reg"
	executorWingetNameStringConstant          = "winget"
	executorPythonNameStringConstant          = "python"
	executorGitNameStringConstant             = "git"
	executorTasklistNameStringConstant        = "tasklist"
	executorTaskkillNameStringConstant        = "taskkill"
	executorWhereNameStringConstant           = "where"
	executorCurlNameStringConstant            = "curl"
)

// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// CommandName identifies a supported external tool.
type CommandName string

// Supported external tool enumerations.
const (
	CommandReg      CommandName = CommandName(executorCommandNameStringConstant)
	CommandWinget   CommandName = CommandName(executorWingetNameStringConstant)
	CommandPython   CommandName = CommandName(executorPythonNameStringConstant)
	CommandGit      CommandName = CommandName(executorGitNameStringConstant)
	CommandTasklist CommandName = CommandName(executorTasklistNameStringConstant)
	CommandTaskkill CommandName = CommandName(executorTaskkillNameStringConstant)
	CommandWhere    CommandName = CommandName(executorWhereNameStringConstant)
	CommandCurl     CommandName = CommandName(executorCurlNameStringConstant)
)

// CommandDetails describes a single invocation of an external tool. When
// ExecutablePath is set it names the binary to spawn instead of resolving the
// tool name against the process PATH, which lets callers pin a specific
// interpreter such as a virtual environment's python.exe.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	ExecutablePath       string
}

// ShellCommand combines a CommandName with specific invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner represents the ability to run shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a command that completed with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error renders the failed command with its exit code and captured standard error.
func (failure CommandFailedError) Error() string {
	formatter := CommandMessageFormatter{}
	commandLabel := formatter.formatCommandLabel(failure.Command)
	trimmedStandardError := formatter.formatStandardErrorSuffix(failure.Result.StandardError)
	if len(trimmedStandardError) == 0 {
		return fmt.Sprintf(commandFailedTemplateConstant, commandLabel, failure.Result.ExitCode)
	}
	return fmt.Sprintf(commandFailedStderrTemplateConstant, commandLabel, failure.Result.ExitCode, failure.Result.StandardError)
}

// CommandExecutionError reports a command that could not be spawned at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error renders the command label together with the underlying spawn failure.
func (failure CommandExecutionError) Error() string {
	formatter := CommandMessageFormatter{}
	return fmt.Sprintf(commandExecutionFailedTemplateConstant, formatter.formatCommandLabel(failure.Command), failure.Cause)
}

// Unwrap exposes the underlying spawn failure.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor coordinates external tool execution with structured logging.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	formatter CommandMessageFormatter
	observers []CommandEventObserver
}

// NewShellExecutor constructs a ShellExecutor from the provided logger and runner.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, observers ...CommandEventObserver) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	attachedObservers := make([]CommandEventObserver, 0, len(observers))
	for _, observer := range observers {
		if observer == nil {
			continue
		}
		attachedObservers = append(attachedObservers, observer)
	}
	if len(attachedObservers) == 0 {
		attachedObservers = append(attachedObservers, NewNoopCommandEventObserver())
	}

	return &ShellExecutor{
		logger:    logger,
		runner:    runner,
		formatter: CommandMessageFormatter{},
		observers: attachedObservers,
	}, nil
}

// Execute runs the supplied command and translates failures into typed errors.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if executor.formatter.shouldLogStartMessage(command) {
		executor.logger.Debug(executor.formatter.BuildStartedMessage(command))
	}
	executor.notifyStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executionFailure := CommandExecutionError{Command: command, Cause: runError}
		executor.logger.Error(executor.formatter.BuildExecutionFailureMessage(command, runError))
		executor.notifyExecutionFailed(command, runError)
		return ExecutionResult{}, executionFailure
	}

	if executionResult.ExitCode != 0 {
		commandFailure := CommandFailedError{Command: command, Result: executionResult}
		executor.logger.Error(executor.formatter.BuildFailureMessage(command, executionResult))
		executor.notifyCompleted(command, executionResult)
		return executionResult, commandFailure
	}

	executor.logger.Debug(executor.formatter.BuildSuccessMessage(command))
	executor.notifyCompleted(command, executionResult)
	return executionResult, nil
}

// ExecuteReg runs reg.exe with the provided details.
func (executor *ShellExecutor) ExecuteReg(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandReg, Details: details})
}

// ExecuteWinget runs the winget package manager with the provided details.
func (executor *ShellExecutor) ExecuteWinget(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandWinget, Details: details})
}

// ExecutePython runs the python interpreter with the provided details.
func (executor *ShellExecutor) ExecutePython(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandPython, Details: details})
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteTasklist runs the process listing tool with the provided details.
func (executor *ShellExecutor) ExecuteTasklist(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandTasklist, Details: details})
}

// ExecuteTaskkill runs the process termination tool with the provided details.
func (executor *ShellExecutor) ExecuteTaskkill(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandTaskkill, Details: details})
}

// ExecuteWhere runs the executable lookup tool with the provided details.
func (executor *ShellExecutor) ExecuteWhere(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandWhere, Details: details})
}

// ExecuteCurl runs curl with the provided details.
func (executor *ShellExecutor) ExecuteCurl(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandCurl, Details: details})
}

func (executor *ShellExecutor) notifyStarted(command ShellCommand) {
	for _, observer := range executor.observers {
		observer.CommandStarted(command)
	}
}

func (executor *ShellExecutor) notifyCompleted(command ShellCommand, result ExecutionResult) {
	for _, observer := range executor.observers {
		observer.CommandCompleted(command, result)
	}
}

func (executor *ShellExecutor) notifyExecutionFailed(command ShellCommand, failure error) {
	for _, observer := range executor.observers {
		observer.CommandExecutionFailed(command, failure)
	}
}
