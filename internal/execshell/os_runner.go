package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
)

// OSCommandRunner spawns external tools through os/exec.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run spawns the command and captures its output streams. A non-zero exit
// code is reported through the result, not as an error; only spawn failures
// surface as errors.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executablePath := string(command.Name)
	if len(command.Details.ExecutablePath) > 0 {
		executablePath = command.Details.ExecutablePath
	}

	spawnedCommand := exec.CommandContext(executionContext, executablePath, command.Details.Arguments...)
	if len(command.Details.WorkingDirectory) > 0 {
		spawnedCommand.Dir = command.Details.WorkingDirectory
	}
	spawnedCommand.Env = mergedEnvironment(command.Details.EnvironmentVariables)

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	spawnedCommand.Stdout = &standardOutputBuffer
	spawnedCommand.Stderr = &standardErrorBuffer

	runError := spawnedCommand.Run()
	if runError != nil {
		exitError := &exec.ExitError{}
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		return ExecutionResult{
			StandardOutput: standardOutputBuffer.String(),
			StandardError:  standardErrorBuffer.String(),
			ExitCode:       exitError.ExitCode(),
		}, nil
	}

	return ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
		ExitCode:       0,
	}, nil
}

// mergedEnvironment layers the override variables over the parent process
// environment in deterministic order. Later entries win inside os/exec, so
// overrides always take effect.
func mergedEnvironment(overrideVariables map[string]string) []string {
	childEnvironment := os.Environ()
	if len(overrideVariables) == 0 {
		return childEnvironment
	}

	overrideNames := make([]string, 0, len(overrideVariables))
	for overrideName := range overrideVariables {
		overrideNames = append(overrideNames, overrideName)
	}
	sort.Strings(overrideNames)

	for _, overrideName := range overrideNames {
		childEnvironment = append(childEnvironment, overrideName+"="+overrideVariables[overrideName])
	}
	return childEnvironment
}
