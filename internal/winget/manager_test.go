package winget_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deskware/win_scripts/internal/execshell"
	"github.com/deskware/win_scripts/internal/winget"
)

const installedListingOutputConstant = "Name    Id        Version\n" +
	"-----------------------------\n" +
	"Git     Git.Git   2.45.1\n"

type scriptedPackageExecutor struct {
	resultsBySubcommand map[string]execshell.ExecutionResult
	errorsBySubcommand  map[string]error
	recordedArguments   [][]string
}

func (executor *scriptedPackageExecutor) ExecuteWinget(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedArguments = append(executor.recordedArguments, details.Arguments)
	subcommand := details.Arguments[0]
	return executor.resultsBySubcommand[subcommand], executor.errorsBySubcommand[subcommand]
}

func newManagerForTest(testInstance *testing.T, executor winget.PackageExecutor) *winget.Manager {
	testInstance.Helper()
	manager, creationError := winget.NewManager(executor)
	require.NoError(testInstance, creationError)
	return manager
}

func TestNewManagerRequiresExecutor(testInstance *testing.T) {
	manager, creationError := winget.NewManager(nil)
	require.ErrorIs(testInstance, creationError, winget.ErrExecutorNotConfigured)
	require.Nil(testInstance, manager)
}

func TestInstallPackageBuildsSilentInvocation(testInstance *testing.T) {
	executor := &scriptedPackageExecutor{}
	manager := newManagerForTest(testInstance, executor)

	require.NoError(testInstance, manager.InstallPackage(context.Background(), "Git.Git"))
	require.Len(testInstance, executor.recordedArguments, 1)
	require.Equal(testInstance, []string{
		"install", "--id", "Git.Git", "--exact", "--silent",
		"--accept-package-agreements", "--accept-source-agreements",
	}, executor.recordedArguments[0])
}

func TestInstallPackageRequiresIdentifier(testInstance *testing.T) {
	manager := newManagerForTest(testInstance, &scriptedPackageExecutor{})
	require.ErrorIs(testInstance, manager.InstallPackage(context.Background(), "  "), winget.ErrPackageIdentifierRequired)
}

func TestIsPackageInstalled(testInstance *testing.T) {
	testCases := []struct {
		name              string
		listResult        execshell.ExecutionResult
		listError         error
		expectedInstalled bool
	}{
		{
			name:              "identifier_present_in_listing",
			listResult:        execshell.ExecutionResult{StandardOutput: installedListingOutputConstant},
			expectedInstalled: true,
		},
		{
			name:              "marker_reports_absence",
			listResult:        execshell.ExecutionResult{StandardOutput: "No installed package found matching input criteria.\n"},
			expectedInstalled: false,
		},
		{
			name: "nonzero_exit_reports_absence",
			listError: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandWinget},
				Result:  execshell.ExecutionResult{ExitCode: 1},
			},
			expectedInstalled: false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedPackageExecutor{
				resultsBySubcommand: map[string]execshell.ExecutionResult{"list": testCase.listResult},
				errorsBySubcommand:  map[string]error{"list": testCase.listError},
			}
			manager := newManagerForTest(testInstance, executor)

			installed, presenceError := manager.IsPackageInstalled(context.Background(), "Git.Git")
			require.NoError(testInstance, presenceError)
			require.Equal(testInstance, testCase.expectedInstalled, installed)
		})
	}
}

func TestEnsurePackageSkipsInstalledPackage(testInstance *testing.T) {
	executor := &scriptedPackageExecutor{
		resultsBySubcommand: map[string]execshell.ExecutionResult{"list": {StandardOutput: installedListingOutputConstant}},
	}
	manager := newManagerForTest(testInstance, executor)

	installed, ensureError := manager.EnsurePackage(context.Background(), "Git.Git")
	require.NoError(testInstance, ensureError)
	require.False(testInstance, installed)
	require.Len(testInstance, executor.recordedArguments, 1)
}

func TestEnsurePackageInstallsMissingPackage(testInstance *testing.T) {
	executor := &scriptedPackageExecutor{
		resultsBySubcommand: map[string]execshell.ExecutionResult{"list": {StandardOutput: "No installed package found matching input criteria.\n"}},
	}
	manager := newManagerForTest(testInstance, executor)

	installed, ensureError := manager.EnsurePackage(context.Background(), "Git.Git")
	require.NoError(testInstance, ensureError)
	require.True(testInstance, installed)
	require.Len(testInstance, executor.recordedArguments, 2)
	require.Equal(testInstance, "install", executor.recordedArguments[1][0])
}
