package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/execshell"
	"github.com/deskware/win_scripts/internal/fsops"
	"github.com/deskware/win_scripts/internal/pybuild"
	"github.com/deskware/win_scripts/internal/registry"
	"github.com/deskware/win_scripts/internal/workerpool"
)

const (
	loggerMissingMessageConstant      = "logger not configured"
	environmentMissingMessageConstant = "environment service not configured"
	packagesMissingMessageConstant    = "package manager not configured"
	pythonMissingMessageConstant      = "python builder not configured"
	downloaderMissingMessageConstant  = "downloader not configured"
	extractorMissingMessageConstant   = "archive extractor not configured"
	commandsMissingMessageConstant    = "command executor not configured"
	processesMissingMessageConstant   = "process controller not configured"
	networkMissingMessageConstant     = "port waiter not configured"
	textMissingMessageConstant        = "line editor not configured"

	stepFailureTemplateConstant = "step %s: %w"

	stepStatusSucceededConstant = "ok"
	stepStatusFailedConstant    = "failed"

	workflowStartedMessageConstant   = "Starting workflow"
	workflowFinishedMessageConstant  = "Workflow finished"
	stepStartedMessageConstant       = "Running step"
	stepFinishedMessageConstant      = "Step finished"
	directorySizeMessageConstant     = "Monitored directory size"
	reportWriteFailedMessageConstant = "Recording step outcome failed"
	workflowNameFieldConstant        = "workflow_name"
	stepNameFieldConstant            = "step_name"
	operationFieldConstant           = "operation"
	directoryFieldConstant           = "directory"
	fileCountFieldConstant           = "file_count"
	totalSizeFieldConstant           = "total_size_bytes"

	monitorPollIntervalConstant  = 2 * time.Second
	defaultVenvDirectoryConstant = ".venv"
)

// EnvironmentService keeps registry-backed environment variables consistent.
type EnvironmentService interface {
	EnsureGlobalVariable(executionContext context.Context, variableName string, variableValue string, scope registry.Scope) error
	NormalizePath(executionContext context.Context, scope registry.Scope) error
}

// PackageManager installs packages when they are missing.
type PackageManager interface {
	EnsurePackage(executionContext context.Context, packageIdentifier string) (bool, error)
}

// PythonBuilder runs the python packaging pipeline.
type PythonBuilder interface {
	Run(executionContext context.Context, venvPath string, requirementsPath string, options pybuild.BuildOptions) (string, error)
}

// FileDownloader fetches remote files.
type FileDownloader interface {
	DownloadFile(executionContext context.Context, sourceURL string, destinationPath string) error
}

// ArchiveExtractor unpacks archives.
type ArchiveExtractor interface {
	ExtractToDirectory(archivePath string, destinationRoot string) error
}

// CommandExecutor runs arbitrary external commands.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// DirectoryScanner measures directory trees for progress reporting.
type DirectoryScanner interface {
	ScanDirectory(executionContext context.Context, rootPath string) (fsops.DirectoryScan, error)
}

// ProcessController terminates processes by image name.
type ProcessController interface {
	KillByImageName(executionContext context.Context, imageName string) error
}

// PortWaiter blocks until a TCP endpoint accepts connections.
type PortWaiter interface {
	WaitForPort(executionContext context.Context, hostAddress string, port int) error
}

// LineEditor guarantees a line is present in a text file.
type LineEditor interface {
	EnsureLine(filePath string, requiredLine string) (bool, error)
}

// RunReporter persists per-step outcomes for later inspection.
type RunReporter interface {
	RecordStep(stepName string, operation Operation, stepStatus string) error
}

// Dependencies carries the services an Engine dispatches steps to.
type Dependencies struct {
	Logger      *zap.Logger
	Environment EnvironmentService
	Packages    PackageManager
	Python      PythonBuilder
	Downloader  FileDownloader
	Extractor   ArchiveExtractor
	Commands    CommandExecutor
	Processes   ProcessController
	Network     PortWaiter
	Text        LineEditor
	Scanner     DirectoryScanner
	Reporter    RunReporter
	Pool        *workerpool.Pool
}

// Validation errors for engine construction.
var (
	ErrLoggerNotConfigured      = errors.New(loggerMissingMessageConstant)
	ErrEnvironmentNotConfigured = errors.New(environmentMissingMessageConstant)
	ErrPackagesNotConfigured    = errors.New(packagesMissingMessageConstant)
	ErrPythonNotConfigured      = errors.New(pythonMissingMessageConstant)
	ErrDownloaderNotConfigured  = errors.New(downloaderMissingMessageConstant)
	ErrExtractorNotConfigured   = errors.New(extractorMissingMessageConstant)
	ErrCommandsNotConfigured    = errors.New(commandsMissingMessageConstant)
	ErrProcessesNotConfigured   = errors.New(processesMissingMessageConstant)
	ErrNetworkNotConfigured     = errors.New(networkMissingMessageConstant)
	ErrTextNotConfigured        = errors.New(textMissingMessageConstant)
)

// Engine runs workflow definitions sequentially, stopping at the first
// failing step.
type Engine struct {
	logger      *zap.Logger
	environment EnvironmentService
	packages    PackageManager
	python      PythonBuilder
	downloader  FileDownloader
	extractor   ArchiveExtractor
	commands    CommandExecutor
	processes   ProcessController
	network     PortWaiter
	text        LineEditor
	scanner     DirectoryScanner
	reporter    RunReporter
	pool        *workerpool.Pool
}

// NewEngine validates dependencies and builds an Engine. Scanner, Reporter,
// and Pool are optional; without them directory monitoring and run reporting
// are skipped.
func NewEngine(dependencies Dependencies) (*Engine, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Environment == nil {
		return nil, ErrEnvironmentNotConfigured
	}
	if dependencies.Packages == nil {
		return nil, ErrPackagesNotConfigured
	}
	if dependencies.Python == nil {
		return nil, ErrPythonNotConfigured
	}
	if dependencies.Downloader == nil {
		return nil, ErrDownloaderNotConfigured
	}
	if dependencies.Extractor == nil {
		return nil, ErrExtractorNotConfigured
	}
	if dependencies.Commands == nil {
		return nil, ErrCommandsNotConfigured
	}
	if dependencies.Processes == nil {
		return nil, ErrProcessesNotConfigured
	}
	if dependencies.Network == nil {
		return nil, ErrNetworkNotConfigured
	}
	if dependencies.Text == nil {
		return nil, ErrTextNotConfigured
	}

	return &Engine{
		logger:      dependencies.Logger,
		environment: dependencies.Environment,
		packages:    dependencies.Packages,
		python:      dependencies.Python,
		downloader:  dependencies.Downloader,
		extractor:   dependencies.Extractor,
		commands:    dependencies.Commands,
		processes:   dependencies.Processes,
		network:     dependencies.Network,
		text:        dependencies.Text,
		scanner:     dependencies.Scanner,
		reporter:    dependencies.Reporter,
		pool:        dependencies.Pool,
	}, nil
}

// Run executes every step of the definition in order. The first failing step
// aborts the run with an error naming the step.
func (engine *Engine) Run(executionContext context.Context, definition Definition) error {
	engine.logger.Info(workflowStartedMessageConstant, zap.String(workflowNameFieldConstant, definition.Name))

	for _, step := range definition.Steps {
		engine.logger.Info(stepStartedMessageConstant,
			zap.String(stepNameFieldConstant, step.Name),
			zap.String(operationFieldConstant, string(step.Operation)),
		)

		stopMonitoring := engine.startDirectoryMonitor(executionContext, step)
		stepError := engine.runStep(executionContext, step)
		stopMonitoring()
		engine.recordStepOutcome(step, stepError)

		if stepError != nil {
			return fmt.Errorf(stepFailureTemplateConstant, step.Name, stepError)
		}
		engine.logger.Info(stepFinishedMessageConstant, zap.String(stepNameFieldConstant, step.Name))
	}

	engine.logger.Info(workflowFinishedMessageConstant, zap.String(workflowNameFieldConstant, definition.Name))
	return nil
}

func (engine *Engine) runStep(executionContext context.Context, step Step) error {
	switch step.Operation {
	case OperationEnsureEnvvar:
		scope, scopeError := resolveScope(step.Scope)
		if scopeError != nil {
			return scopeError
		}
		return engine.environment.EnsureGlobalVariable(executionContext, step.VariableName, step.VariableValue, scope)
	case OperationReconcilePath:
		scope, scopeError := resolveScope(step.Scope)
		if scopeError != nil {
			return scopeError
		}
		return engine.environment.NormalizePath(executionContext, scope)
	case OperationInstallPackage:
		_, ensureError := engine.packages.EnsurePackage(executionContext, step.PackageIdentifier)
		return ensureError
	case OperationRunCommand:
		shellCommand := execshell.ShellCommand{
			Name:    execshell.CommandName(step.Command),
			Details: execshell.CommandDetails{Arguments: step.Arguments},
		}
		_, executionError := engine.commands.Execute(executionContext, shellCommand)
		return executionError
	case OperationBuildPythonApp:
		buildOptions := pybuild.BuildOptions{
			EntryScript:     step.EntryScript,
			ApplicationName: step.ApplicationName,
			IconPath:        step.IconPath,
			HideConsole:     step.HideConsole,
			DistDirectory:   step.DistDirectory,
		}
		venvPath := step.VenvPath
		if len(venvPath) == 0 {
			venvPath = defaultVenvDirectoryConstant
		}
		_, buildError := engine.python.Run(executionContext, venvPath, step.RequirementsPath, buildOptions)
		return buildError
	case OperationDownloadFile:
		return engine.downloader.DownloadFile(executionContext, step.SourceURL, step.DestinationPath)
	case OperationExtractArchive:
		return engine.extractor.ExtractToDirectory(step.ArchivePath, step.DirectoryPath)
	case OperationKillProcess:
		return engine.processes.KillByImageName(executionContext, step.ImageName)
	case OperationWaitForPort:
		waitContext := executionContext
		if step.TimeoutSeconds > 0 {
			var cancelWait context.CancelFunc
			waitContext, cancelWait = context.WithTimeout(executionContext, time.Duration(step.TimeoutSeconds)*time.Second)
			defer cancelWait()
		}
		return engine.network.WaitForPort(waitContext, step.Host, step.Port)
	case OperationEnsureLine:
		_, ensureError := engine.text.EnsureLine(step.FilePath, step.Line)
		return ensureError
	default:
		return fmt.Errorf(unknownOperationTemplateConstant, string(step.Operation))
	}
}

// recordStepOutcome appends the step's result to the run report when a
// reporter is attached. Reporting never fails the run.
func (engine *Engine) recordStepOutcome(step Step, stepError error) {
	if engine.reporter == nil {
		return
	}
	stepStatus := stepStatusSucceededConstant
	if stepError != nil {
		stepStatus = stepStatusFailedConstant
	}
	if recordError := engine.reporter.RecordStep(step.Name, step.Operation, stepStatus); recordError != nil {
		engine.logger.Warn(reportWriteFailedMessageConstant,
			zap.String(stepNameFieldConstant, step.Name),
			zap.Error(recordError),
		)
	}
}

// startDirectoryMonitor polls the step's monitored directory on a background
// worker until the returned stop function is called, then logs the final
// measurement. Monitoring is best-effort: it never fails the step.
func (engine *Engine) startDirectoryMonitor(executionContext context.Context, step Step) func() {
	if len(step.MonitorDirectory) == 0 || engine.scanner == nil || engine.pool == nil {
		return func() {}
	}

	monitorContext, cancelMonitor := context.WithCancel(executionContext)
	monitorFuture, submitError := engine.pool.Submit(func() (any, error) {
		latestScan := fsops.DirectoryScan{}
		pollTicker := time.NewTicker(monitorPollIntervalConstant)
		defer pollTicker.Stop()
		for {
			scanResult, scanError := engine.scanner.ScanDirectory(monitorContext, step.MonitorDirectory)
			if scanError == nil {
				latestScan = scanResult
			}
			select {
			case <-monitorContext.Done():
				return latestScan, nil
			case <-pollTicker.C:
			}
		}
	})
	if submitError != nil {
		cancelMonitor()
		return func() {}
	}

	return func() {
		cancelMonitor()
		monitorResult, monitorError := monitorFuture.Wait(context.Background())
		if monitorError != nil {
			return
		}
		finalScan, isScan := monitorResult.(fsops.DirectoryScan)
		if !isScan {
			return
		}
		engine.logger.Info(directorySizeMessageConstant,
			zap.String(directoryFieldConstant, step.MonitorDirectory),
			zap.Int64(fileCountFieldConstant, finalScan.FileCount),
			zap.Int64(totalSizeFieldConstant, finalScan.TotalSize),
		)
	}
}

func resolveScope(scopeValue string) (registry.Scope, error) {
	if len(scopeValue) == 0 {
		return registry.ScopeUser, nil
	}
	return registry.ParseScope(scopeValue)
}
