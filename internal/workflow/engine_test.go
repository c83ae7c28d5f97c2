package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/execshell"
	"github.com/deskware/win_scripts/internal/fsops"
	"github.com/deskware/win_scripts/internal/pybuild"
	"github.com/deskware/win_scripts/internal/registry"
	"github.com/deskware/win_scripts/internal/workerpool"
	"github.com/deskware/win_scripts/internal/workflow"
)

type recordedCall struct {
	operation string
	argument  string
}

type fakeServices struct {
	calls        []recordedCall
	failingCall  string
	injectedFail error
}

func (services *fakeServices) record(operation string, argument string) error {
	services.calls = append(services.calls, recordedCall{operation: operation, argument: argument})
	if services.failingCall == operation {
		return services.injectedFail
	}
	return nil
}

func (services *fakeServices) EnsureGlobalVariable(executionContext context.Context, variableName string, variableValue string, scope registry.Scope) error {
	return services.record("ensure-envvar", variableName)
}

func (services *fakeServices) NormalizePath(executionContext context.Context, scope registry.Scope) error {
	return services.record("reconcile-path", string(scope))
}

func (services *fakeServices) EnsurePackage(executionContext context.Context, packageIdentifier string) (bool, error) {
	return true, services.record("install-package", packageIdentifier)
}

func (services *fakeServices) Run(executionContext context.Context, venvPath string, requirementsPath string, options pybuild.BuildOptions) (string, error) {
	return "dist/app.exe", services.record("build-python-app", options.EntryScript)
}

func (services *fakeServices) DownloadFile(executionContext context.Context, sourceURL string, destinationPath string) error {
	return services.record("download-file", sourceURL)
}

func (services *fakeServices) ExtractToDirectory(archivePath string, destinationRoot string) error {
	return services.record("extract-archive", archivePath)
}

func (services *fakeServices) Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, services.record("run-command", string(command.Name))
}

func (services *fakeServices) ScanDirectory(executionContext context.Context, rootPath string) (fsops.DirectoryScan, error) {
	return fsops.DirectoryScan{FileCount: 3, TotalSize: 1024}, nil
}

func (services *fakeServices) KillByImageName(executionContext context.Context, imageName string) error {
	return services.record("kill-process", imageName)
}

func (services *fakeServices) WaitForPort(executionContext context.Context, hostAddress string, port int) error {
	return services.record("wait-for-port", hostAddress)
}

func (services *fakeServices) EnsureLine(filePath string, requiredLine string) (bool, error) {
	return true, services.record("ensure-line", filePath)
}

type recordingReporter struct {
	rows [][]string
}

func (reporter *recordingReporter) RecordStep(stepName string, operation workflow.Operation, stepStatus string) error {
	reporter.rows = append(reporter.rows, []string{stepName, string(operation), stepStatus})
	return nil
}

func newEngineForTest(testInstance *testing.T, services *fakeServices, pool *workerpool.Pool) *workflow.Engine {
	testInstance.Helper()
	return newEngineWithReporter(testInstance, services, pool, nil)
}

func newEngineWithReporter(testInstance *testing.T, services *fakeServices, pool *workerpool.Pool, reporter workflow.RunReporter) *workflow.Engine {
	testInstance.Helper()
	engine, creationError := workflow.NewEngine(workflow.Dependencies{
		Logger:      zap.NewNop(),
		Environment: services,
		Packages:    services,
		Python:      services,
		Downloader:  services,
		Extractor:   services,
		Commands:    services,
		Processes:   services,
		Network:     services,
		Text:        services,
		Scanner:     services,
		Reporter:    reporter,
		Pool:        pool,
	})
	require.NoError(testInstance, creationError)
	return engine
}

func TestNewEngineValidatesDependencies(testInstance *testing.T) {
	engine, creationError := workflow.NewEngine(workflow.Dependencies{})
	require.ErrorIs(testInstance, creationError, workflow.ErrLoggerNotConfigured)
	require.Nil(testInstance, engine)

	engine, creationError = workflow.NewEngine(workflow.Dependencies{Logger: zap.NewNop()})
	require.ErrorIs(testInstance, creationError, workflow.ErrEnvironmentNotConfigured)
	require.Nil(testInstance, engine)
}

func TestRunDispatchesEveryOperationInOrder(testInstance *testing.T) {
	services := &fakeServices{}
	engine := newEngineForTest(testInstance, services, nil)

	definition := workflow.Definition{
		Name: "full setup",
		Steps: []workflow.Step{
			{Name: "envvar", Operation: workflow.OperationEnsureEnvvar, VariableName: "JAVA_HOME", VariableValue: `C:\jdk`},
			{Name: "path", Operation: workflow.OperationReconcilePath, Scope: "machine"},
			{Name: "package", Operation: workflow.OperationInstallPackage, PackageIdentifier: "Git.Git"},
			{Name: "command", Operation: workflow.OperationRunCommand, Command: "git", Arguments: []string{"--version"}},
			{Name: "build", Operation: workflow.OperationBuildPythonApp, EntryScript: "app.py"},
			{Name: "download", Operation: workflow.OperationDownloadFile, SourceURL: "https://example.com/tool.zip", DestinationPath: "tool.zip"},
			{Name: "extract", Operation: workflow.OperationExtractArchive, ArchivePath: "tool.zip", DirectoryPath: "tool"},
			{Name: "stop", Operation: workflow.OperationKillProcess, ImageName: "oldtool.exe"},
			{Name: "wait", Operation: workflow.OperationWaitForPort, Host: "127.0.0.1", Port: 8080, TimeoutSeconds: 1},
			{Name: "line", Operation: workflow.OperationEnsureLine, FilePath: "hosts.txt", Line: "127.0.0.1 tool.local"},
		},
	}

	require.NoError(testInstance, engine.Run(context.Background(), definition))
	require.Equal(testInstance, []recordedCall{
		{operation: "ensure-envvar", argument: "JAVA_HOME"},
		{operation: "reconcile-path", argument: "machine"},
		{operation: "install-package", argument: "Git.Git"},
		{operation: "run-command", argument: "git"},
		{operation: "build-python-app", argument: "app.py"},
		{operation: "download-file", argument: "https://example.com/tool.zip"},
		{operation: "extract-archive", argument: "tool.zip"},
		{operation: "kill-process", argument: "oldtool.exe"},
		{operation: "wait-for-port", argument: "127.0.0.1"},
		{operation: "ensure-line", argument: "hosts.txt"},
	}, services.calls)
}

func TestRunRecordsStepOutcomes(testInstance *testing.T) {
	stepFailure := errors.New("installation refused")
	services := &fakeServices{failingCall: "install-package", injectedFail: stepFailure}
	reporter := &recordingReporter{}
	engine := newEngineWithReporter(testInstance, services, nil, reporter)

	definition := workflow.Definition{
		Name: "reported setup",
		Steps: []workflow.Step{
			{Name: "envvar", Operation: workflow.OperationEnsureEnvvar, VariableName: "JAVA_HOME", VariableValue: `C:\jdk`},
			{Name: "package", Operation: workflow.OperationInstallPackage, PackageIdentifier: "Git.Git"},
		},
	}

	require.ErrorIs(testInstance, engine.Run(context.Background(), definition), stepFailure)
	require.Equal(testInstance, [][]string{
		{"envvar", "ensure-envvar", "ok"},
		{"package", "install-package", "failed"},
	}, reporter.rows)
}

func TestCSVRunReporterWritesHeaderAndRows(testInstance *testing.T) {
	memoryFileSystem := afero.NewMemMapFs()
	reporter, creationError := workflow.NewCSVRunReporter(memoryFileSystem, "report.csv")
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, reporter.RecordStep("envvar", workflow.OperationEnsureEnvvar, "ok"))
	require.NoError(testInstance, reporter.RecordStep("package", workflow.OperationInstallPackage, "failed"))

	reportContent, readError := afero.ReadFile(memoryFileSystem, "report.csv")
	require.NoError(testInstance, readError)
	require.Equal(testInstance,
		"step,operation,status\nenvvar,ensure-envvar,ok\npackage,install-package,failed\n",
		string(reportContent),
	)
}

func TestRunStopsAtFirstFailingStep(testInstance *testing.T) {
	stepFailure := errors.New("installation refused")
	services := &fakeServices{failingCall: "install-package", injectedFail: stepFailure}
	engine := newEngineForTest(testInstance, services, nil)

	definition := workflow.Definition{
		Name: "partial setup",
		Steps: []workflow.Step{
			{Name: "envvar", Operation: workflow.OperationEnsureEnvvar, VariableName: "JAVA_HOME", VariableValue: `C:\jdk`},
			{Name: "package", Operation: workflow.OperationInstallPackage, PackageIdentifier: "Git.Git"},
			{Name: "path", Operation: workflow.OperationReconcilePath},
		},
	}

	runError := engine.Run(context.Background(), definition)
	require.ErrorIs(testInstance, runError, stepFailure)
	require.Contains(testInstance, runError.Error(), "step package")
	require.Len(testInstance, services.calls, 2)
}

func TestRunRejectsUnknownScope(testInstance *testing.T) {
	services := &fakeServices{}
	engine := newEngineForTest(testInstance, services, nil)

	definition := workflow.Definition{
		Steps: []workflow.Step{{Name: "path", Operation: workflow.OperationReconcilePath, Scope: "solar-system"}},
	}
	require.ErrorIs(testInstance, engine.Run(context.Background(), definition), registry.ErrUnknownScope)
}

func TestRunMonitorsDirectoryDuringStep(testInstance *testing.T) {
	monitorPool, poolError := workerpool.NewPool(1, 2)
	require.NoError(testInstance, poolError)
	defer monitorPool.Shutdown()

	services := &fakeServices{}
	engine := newEngineForTest(testInstance, services, monitorPool)

	definition := workflow.Definition{
		Steps: []workflow.Step{{
			Name:              "package",
			Operation:         workflow.OperationInstallPackage,
			PackageIdentifier: "Git.Git",
			MonitorDirectory:  `C:\Program Files\Git`,
		}},
	}
	require.NoError(testInstance, engine.Run(context.Background(), definition))
	require.Len(testInstance, services.calls, 1)
}

func TestRunCommandExecutesWorkflowFile(testInstance *testing.T) {
	memoryFileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "setup.yaml", []byte(sampleDefinitionYAMLConstant), 0o644))

	services := &fakeServices{}
	builder := &workflow.CommandBuilder{
		FileSystem: memoryFileSystem,
		Engine:     newEngineForTest(testInstance, services, nil),
	}

	workflowCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	workflowCommand.SetArgs([]string{"run", "--file", "setup.yaml"})
	workflowCommand.SetOut(&bytes.Buffer{})
	workflowCommand.SetErr(&bytes.Buffer{})
	require.NoError(testInstance, workflowCommand.ExecuteContext(context.Background()))
	require.Len(testInstance, services.calls, 3)
}

func TestRunCommandRequiresFileFlag(testInstance *testing.T) {
	builder := &workflow.CommandBuilder{Engine: newEngineForTest(testInstance, &fakeServices{}, nil)}

	workflowCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	workflowCommand.SetArgs([]string{"run"})
	workflowCommand.SetOut(&bytes.Buffer{})
	workflowCommand.SetErr(&bytes.Buffer{})
	require.Error(testInstance, workflowCommand.ExecuteContext(context.Background()))
}
