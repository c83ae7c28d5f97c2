package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	regQuerySubcommandNameConstant  = "query"
	regAddSubcommandNameConstant    = "add"
	regDeleteSubcommandNameConstant = "delete"
	regValueNameFlagConstant        = "/v"
)

const (
	regQueryStartTemplateConstant             = "Reading registry value %s under %s"
	regQuerySuccessTemplateConstant           = "Read registry value %s under %s"
	regQueryFailureTemplateConstant           = "Failed to read registry value %s under %s (exit code %d%s)"
	regQueryExecutionFailureTemplateConstant  = "Unable to read registry value %s under %s: %s"
	regAddStartTemplateConstant               = "Writing registry value %s under %s"
	regAddSuccessTemplateConstant             = "Wrote registry value %s under %s"
	regAddFailureTemplateConstant             = "Failed to write registry value %s under %s (exit code %d%s)"
	regAddExecutionFailureTemplateConstant    = "Unable to write registry value %s under %s: %s"
	regDeleteStartTemplateConstant            = "Deleting registry value %s under %s"
	regDeleteSuccessTemplateConstant          = "Deleted registry value %s under %s"
	regDeleteFailureTemplateConstant          = "Failed to delete registry value %s under %s (exit code %d%s)"
	regDeleteExecutionFailureTemplateConstant = "Unable to delete registry value %s under %s: %s"
	regEntireKeyLabelConstant                 = "all values"
)

const (
	wingetInstallSubcommandNameConstant = "install"
	wingetUpgradeSubcommandNameConstant = "upgrade"
	wingetListSubcommandNameConstant    = "list"
	wingetIdentifierFlagConstant        = "--id"
)

const (
	wingetInstallStartTemplateConstant            = "Installing package %s"
	wingetInstallSuccessTemplateConstant          = "Installed package %s"
	wingetInstallFailureTemplateConstant          = "Failed to install package %s (exit code %d%s)"
	wingetInstallExecutionFailureTemplateConstant = "Unable to install package %s: %s"
	wingetUpgradeStartTemplateConstant            = "Upgrading package %s"
	wingetUpgradeSuccessTemplateConstant          = "Upgraded package %s"
	wingetUpgradeFailureTemplateConstant          = "Failed to upgrade package %s (exit code %d%s)"
	wingetUpgradeExecutionFailureTemplateConstant = "Unable to upgrade package %s: %s"
	wingetListStartTemplateConstant               = "Checking installation state for package %s"
	wingetListSuccessTemplateConstant             = "Checked installation state for package %s"
	wingetListFailureTemplateConstant             = "Package %s is not installed (exit code %d%s)"
	wingetListExecutionFailureTemplateConstant    = "Unable to check installation state for package %s: %s"
)

const (
	pythonModuleFlagConstant          = "-m"
	pythonVenvModuleNameConstant      = "venv"
	pythonPipModuleNameConstant       = "pip"
	pythonInstallerModuleNameConstant = "PyInstaller"
)

const (
	pythonVenvStartTemplateConstant                = "Creating virtual environment at %s"
	pythonVenvSuccessTemplateConstant              = "Created virtual environment at %s"
	pythonVenvFailureTemplateConstant              = "Failed to create virtual environment at %s (exit code %d%s)"
	pythonVenvExecutionFailureTemplateConstant     = "Unable to create virtual environment at %s: %s"
	pythonPipStartTemplateConstant                 = "Installing Python packages (%s)"
	pythonPipSuccessTemplateConstant               = "Installed Python packages (%s)"
	pythonPipFailureTemplateConstant               = "Failed to install Python packages (%s) (exit code %d%s)"
	pythonPipExecutionFailureTemplateConstant      = "Unable to install Python packages (%s): %s"
	pythonBundleStartTemplateConstant              = "Bundling executable from %s"
	pythonBundleSuccessTemplateConstant            = "Bundled executable from %s"
	pythonBundleFailureTemplateConstant            = "Failed to bundle executable from %s (exit code %d%s)"
	pythonBundleExecutionFailureTemplateConstant   = "Unable to bundle executable from %s: %s"
	messageFormatterMinimumArgumentCountConstant   = 2
	messageFormatterSubcommandArgumentIndexMinimum = 1
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) shouldLogStartMessage(command ShellCommand) bool {
	if command.Name != CommandReg {
		return true
	}
	if len(command.Details.Arguments) == 0 {
		return true
	}
	// Registry reads happen on every reconciliation pass; narrating each one
	// drowns the interesting writes.
	return strings.TrimSpace(command.Details.Arguments[0]) != regQuerySubcommandNameConstant
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandReg:
		return formatter.describeRegMessage(command, result, failure, stage)
	case CommandWinget:
		return formatter.describeWingetMessage(command, result, failure, stage)
	case CommandPython:
		return formatter.describePythonMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeRegMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < messageFormatterMinimumArgumentCountConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(arguments[0])
	keyPath := formatter.ensureValue(arguments[messageFormatterSubcommandArgumentIndexMinimum])
	valueName := strings.TrimSpace(findFlagValue(arguments, regValueNameFlagConstant))
	if len(valueName) == 0 {
		valueName = regEntireKeyLabelConstant
	}

	switch subcommand {
	case regQuerySubcommandNameConstant:
		return formatter.renderStageMessage(stage, result, failure,
			fmt.Sprintf(regQueryStartTemplateConstant, valueName, keyPath),
			fmt.Sprintf(regQuerySuccessTemplateConstant, valueName, keyPath),
			regQueryFailureTemplateConstant, regQueryExecutionFailureTemplateConstant, valueName, keyPath)
	case regAddSubcommandNameConstant:
		return formatter.renderStageMessage(stage, result, failure,
			fmt.Sprintf(regAddStartTemplateConstant, valueName, keyPath),
			fmt.Sprintf(regAddSuccessTemplateConstant, valueName, keyPath),
			regAddFailureTemplateConstant, regAddExecutionFailureTemplateConstant, valueName, keyPath)
	case regDeleteSubcommandNameConstant:
		return formatter.renderStageMessage(stage, result, failure,
			fmt.Sprintf(regDeleteStartTemplateConstant, valueName, keyPath),
			fmt.Sprintf(regDeleteSuccessTemplateConstant, valueName, keyPath),
			regDeleteFailureTemplateConstant, regDeleteExecutionFailureTemplateConstant, valueName, keyPath)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeWingetMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(arguments[0])
	packageIdentifier := formatter.ensureValue(findFlagValue(arguments, wingetIdentifierFlagConstant))

	switch subcommand {
	case wingetInstallSubcommandNameConstant:
		return formatter.renderStageMessage(stage, result, failure,
			fmt.Sprintf(wingetInstallStartTemplateConstant, packageIdentifier),
			fmt.Sprintf(wingetInstallSuccessTemplateConstant, packageIdentifier),
			wingetInstallFailureTemplateConstant, wingetInstallExecutionFailureTemplateConstant, packageIdentifier)
	case wingetUpgradeSubcommandNameConstant:
		return formatter.renderStageMessage(stage, result, failure,
			fmt.Sprintf(wingetUpgradeStartTemplateConstant, packageIdentifier),
			fmt.Sprintf(wingetUpgradeSuccessTemplateConstant, packageIdentifier),
			wingetUpgradeFailureTemplateConstant, wingetUpgradeExecutionFailureTemplateConstant, packageIdentifier)
	case wingetListSubcommandNameConstant:
		return formatter.renderStageMessage(stage, result, failure,
			fmt.Sprintf(wingetListStartTemplateConstant, packageIdentifier),
			fmt.Sprintf(wingetListSuccessTemplateConstant, packageIdentifier),
			wingetListFailureTemplateConstant, wingetListExecutionFailureTemplateConstant, packageIdentifier)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describePythonMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	moduleName := strings.TrimSpace(findFlagValue(arguments, pythonModuleFlagConstant))

	switch moduleName {
	case pythonVenvModuleNameConstant:
		environmentPath := formatter.ensureValue(formatter.lastNonFlagArgument(arguments))
		return formatter.renderStageMessage(stage, result, failure,
			fmt.Sprintf(pythonVenvStartTemplateConstant, environmentPath),
			fmt.Sprintf(pythonVenvSuccessTemplateConstant, environmentPath),
			pythonVenvFailureTemplateConstant, pythonVenvExecutionFailureTemplateConstant, environmentPath)
	case pythonPipModuleNameConstant:
		installTarget := formatter.ensureValue(formatter.lastNonFlagArgument(arguments))
		return formatter.renderStageMessage(stage, result, failure,
			fmt.Sprintf(pythonPipStartTemplateConstant, installTarget),
			fmt.Sprintf(pythonPipSuccessTemplateConstant, installTarget),
			pythonPipFailureTemplateConstant, pythonPipExecutionFailureTemplateConstant, installTarget)
	case pythonInstallerModuleNameConstant:
		entryScript := formatter.ensureValue(formatter.lastNonFlagArgument(arguments))
		return formatter.renderStageMessage(stage, result, failure,
			fmt.Sprintf(pythonBundleStartTemplateConstant, entryScript),
			fmt.Sprintf(pythonBundleSuccessTemplateConstant, entryScript),
			pythonBundleFailureTemplateConstant, pythonBundleExecutionFailureTemplateConstant, entryScript)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) renderStageMessage(stage messageStage, result ExecutionResult, failure error, startMessage string, successMessage string, failureTemplate string, executionFailureTemplate string, subjects ...any) string {
	switch stage {
	case messageStageStart:
		return startMessage
	case messageStageSuccess:
		return successMessage
	case messageStageFailure:
		failureArguments := append(append([]any{}, subjects...), result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		return fmt.Sprintf(failureTemplate, failureArguments...)
	case messageStageExecutionFailure:
		executionArguments := append(append([]any{}, subjects...), formatter.describeFailure(failure))
		return fmt.Sprintf(executionFailureTemplate, executionArguments...)
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) lastNonFlagArgument(arguments []string) string {
	for index := len(arguments) - 1; index >= 0; index-- {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag && index+1 < len(arguments) {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}
