package pybuild_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/execshell"
	"github.com/deskware/win_scripts/internal/pybuild"
)

type scriptedPythonExecutor struct {
	failOnInvocation    int
	invocationError     error
	recordedInvocations []execshell.CommandDetails
}

func (executor *scriptedPythonExecutor) ExecutePython(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedInvocations = append(executor.recordedInvocations, details)
	if executor.invocationError != nil && len(executor.recordedInvocations) == executor.failOnInvocation {
		return execshell.ExecutionResult{ExitCode: 1}, executor.invocationError
	}
	return execshell.ExecutionResult{}, nil
}

func newPipelineForTest(testInstance *testing.T, executor pybuild.PythonExecutor) *pybuild.Pipeline {
	testInstance.Helper()
	pipeline, creationError := pybuild.NewPipeline(pybuild.Dependencies{Logger: zap.NewNop(), Executor: executor})
	require.NoError(testInstance, creationError)
	return pipeline
}

func TestNewPipelineValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  pybuild.Dependencies
		expectedError error
	}{
		{
			name:          "missing_logger",
			dependencies:  pybuild.Dependencies{Executor: &scriptedPythonExecutor{}},
			expectedError: pybuild.ErrLoggerNotConfigured,
		},
		{
			name:          "missing_executor",
			dependencies:  pybuild.Dependencies{Logger: zap.NewNop()},
			expectedError: pybuild.ErrExecutorNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			pipeline, creationError := pybuild.NewPipeline(testCase.dependencies)
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
			require.Nil(testInstance, pipeline)
		})
	}
}

func TestRunSequencesEveryStep(testInstance *testing.T) {
	executor := &scriptedPythonExecutor{}
	pipeline := newPipelineForTest(testInstance, executor)

	executablePath, runError := pipeline.Run(context.Background(), ".venv", "requirements.txt", pybuild.BuildOptions{
		EntryScript: "app.py",
		HideConsole: true,
		IconPath:    "app.ico",
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, filepath.Join("dist", "app.exe"), executablePath)

	require.Len(testInstance, executor.recordedInvocations, 4)
	require.Equal(testInstance, []string{"-m", "venv", ".venv"}, executor.recordedInvocations[0].Arguments)
	require.Equal(testInstance, []string{"-m", "pip", "install", "--upgrade", "pip"}, executor.recordedInvocations[1].Arguments)
	require.Equal(testInstance, []string{"-m", "pip", "install", "-r", "requirements.txt"}, executor.recordedInvocations[2].Arguments)
	require.Equal(testInstance, []string{
		"-m", "PyInstaller", "--onefile", "--noconsole", "--icon", "app.ico",
		"--name", "app", "--distpath", "dist", "app.py",
	}, executor.recordedInvocations[3].Arguments)
}

func TestRunTargetsVenvInterpreterAfterCreation(testInstance *testing.T) {
	executor := &scriptedPythonExecutor{}
	pipeline := newPipelineForTest(testInstance, executor)

	_, runError := pipeline.Run(context.Background(), ".venv", "requirements.txt", pybuild.BuildOptions{EntryScript: "app.py"})
	require.NoError(testInstance, runError)
	require.Len(testInstance, executor.recordedInvocations, 4)

	venvInterpreter := filepath.Join(".venv", "Scripts", "python.exe")
	venvScripts := filepath.Join(".venv", "Scripts")

	require.Empty(testInstance, executor.recordedInvocations[0].ExecutablePath)
	for _, invocation := range executor.recordedInvocations[1:] {
		require.Equal(testInstance, venvInterpreter, invocation.ExecutablePath)
		require.Equal(testInstance, ".venv", invocation.EnvironmentVariables["VIRTUAL_ENV"])
		require.True(testInstance, strings.HasPrefix(
			invocation.EnvironmentVariables["PATH"],
			venvScripts+string(os.PathListSeparator),
		))
	}
}

func TestRunSkipsRequirementsWhenUnset(testInstance *testing.T) {
	executor := &scriptedPythonExecutor{}
	pipeline := newPipelineForTest(testInstance, executor)

	_, runError := pipeline.Run(context.Background(), ".venv", "", pybuild.BuildOptions{EntryScript: "tool.py"})
	require.NoError(testInstance, runError)
	require.Len(testInstance, executor.recordedInvocations, 3)
}

func TestRunAbortsAtFirstFailure(testInstance *testing.T) {
	executor := &scriptedPythonExecutor{
		failOnInvocation: 2,
		invocationError: execshell.CommandFailedError{
			Command: execshell.ShellCommand{Name: execshell.CommandPython},
			Result:  execshell.ExecutionResult{ExitCode: 1},
		},
	}
	pipeline := newPipelineForTest(testInstance, executor)

	_, runError := pipeline.Run(context.Background(), ".venv", "requirements.txt", pybuild.BuildOptions{EntryScript: "app.py"})
	require.Error(testInstance, runError)
	require.Contains(testInstance, runError.Error(), "upgrading pip")
	require.Len(testInstance, executor.recordedInvocations, 2)
}

func TestBuildExecutableRequiresEntryScript(testInstance *testing.T) {
	pipeline := newPipelineForTest(testInstance, &scriptedPythonExecutor{})

	_, buildError := pipeline.BuildExecutable(context.Background(), ".venv", pybuild.BuildOptions{})
	require.ErrorIs(testInstance, buildError, pybuild.ErrEntryScriptRequired)
}

func TestBuildExecutableHonorsExplicitNameAndDist(testInstance *testing.T) {
	executor := &scriptedPythonExecutor{}
	pipeline := newPipelineForTest(testInstance, executor)

	executablePath, buildError := pipeline.BuildExecutable(context.Background(), ".venv", pybuild.BuildOptions{
		EntryScript:     "entry.py",
		ApplicationName: "installer",
		DistDirectory:   "build/out",
	})
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, filepath.Join("build/out", "installer.exe"), executablePath)
}
