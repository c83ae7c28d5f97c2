package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/archive"
	"github.com/deskware/win_scripts/internal/envpath"
	"github.com/deskware/win_scripts/internal/execshell"
	"github.com/deskware/win_scripts/internal/fsops"
	"github.com/deskware/win_scripts/internal/netinfo"
	"github.com/deskware/win_scripts/internal/procs"
	"github.com/deskware/win_scripts/internal/pybuild"
	"github.com/deskware/win_scripts/internal/registry"
	"github.com/deskware/win_scripts/internal/textops"
	"github.com/deskware/win_scripts/internal/winget"
	"github.com/deskware/win_scripts/internal/workerpool"
)

const (
	commandUseConstant              = "workflow"
	commandShortDescriptionConstant = "Run YAML-defined setup workflows"

	runCommandUseConstant              = "run"
	runCommandShortDescriptionConstant = "Execute the steps of a workflow file in order"
	runCommandLongDescriptionConstant  = "run reads a YAML workflow file and executes its steps sequentially, stopping at the first failure."
	runCommandErrorTemplateConstant    = "workflow run failed: %w"
	readFileFailureTemplateConstant    = "reading workflow file %s: %w"
	missingFileMessageConstant         = "workflow run requires --file"

	flagFileNameConstant          = "file"
	flagFileDescriptionConstant   = "Path of the workflow YAML file"
	flagReportNameConstant        = "report"
	flagReportDescriptionConstant = "Optional CSV file recording per-step outcomes"

	monitorPoolWorkerCountConstant   = 1
	monitorPoolQueueCapacityConstant = 4
)

var errMissingFile = errors.New(missingFileMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the workflow command tree.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	FileSystem     afero.Fs
	Engine         *Engine
}

// Build constructs the workflow command with its run subcommand.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	workflowCommand := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
	}

	runCommand := &cobra.Command{
		Use:   runCommandUseConstant,
		Short: runCommandShortDescriptionConstant,
		Long:  runCommandLongDescriptionConstant,
		RunE:  builder.runWorkflow,
	}
	runCommand.Flags().String(flagFileNameConstant, "", flagFileDescriptionConstant)
	runCommand.Flags().String(flagReportNameConstant, "", flagReportDescriptionConstant)

	workflowCommand.AddCommand(runCommand)
	return workflowCommand, nil
}

func (builder *CommandBuilder) runWorkflow(command *cobra.Command, arguments []string) error {
	definitionFilePath, _ := command.Flags().GetString(flagFileNameConstant)
	if len(strings.TrimSpace(definitionFilePath)) == 0 {
		return errMissingFile
	}

	definitionContent, readError := afero.ReadFile(builder.resolveFileSystem(), definitionFilePath)
	if readError != nil {
		return fmt.Errorf(readFileFailureTemplateConstant, definitionFilePath, readError)
	}

	definition, parseError := ParseDefinition(definitionContent)
	if parseError != nil {
		return parseError
	}

	reportFilePath, _ := command.Flags().GetString(flagReportNameConstant)
	engine, monitorPool, engineError := builder.resolveEngine(strings.TrimSpace(reportFilePath))
	if engineError != nil {
		return engineError
	}
	if monitorPool != nil {
		defer monitorPool.Shutdown()
	}

	if runError := engine.Run(command.Context(), definition); runError != nil {
		return fmt.Errorf(runCommandErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) resolveFileSystem() afero.Fs {
	if builder.FileSystem != nil {
		return builder.FileSystem
	}
	return afero.NewOsFs()
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

// netinfoPortWaiter adapts the netinfo package functions to the PortWaiter
// interface the engine dispatches to.
type netinfoPortWaiter struct{}

func (netinfoPortWaiter) WaitForPort(executionContext context.Context, hostAddress string, port int) error {
	return netinfo.WaitForPort(executionContext, hostAddress, port)
}

// resolveEngine wires the full service graph behind the workflow operations.
// The returned pool, when non-nil, is owned by the caller and must be shut
// down after the run.
func (builder *CommandBuilder) resolveEngine(reportFilePath string) (*Engine, *workerpool.Pool, error) {
	if builder.Engine != nil {
		return builder.Engine, nil, nil
	}

	logger := builder.resolveLogger()

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner)
	if executorError != nil {
		return nil, nil, executorError
	}

	registryClient, registryError := registry.NewClient(shellExecutor)
	if registryError != nil {
		return nil, nil, registryError
	}

	environmentService, environmentError := envpath.NewService(envpath.Dependencies{Logger: logger, RegistryClient: registryClient})
	if environmentError != nil {
		return nil, nil, environmentError
	}

	packageManager, packageError := winget.NewManager(shellExecutor)
	if packageError != nil {
		return nil, nil, packageError
	}

	pythonPipeline, pipelineError := pybuild.NewPipeline(pybuild.Dependencies{Logger: logger, Executor: shellExecutor})
	if pipelineError != nil {
		return nil, nil, pipelineError
	}

	fileManager, managerError := fsops.NewManager(builder.resolveFileSystem())
	if managerError != nil {
		return nil, nil, managerError
	}

	fileDownloader, downloaderError := fsops.NewDownloader(fileManager, http.DefaultClient)
	if downloaderError != nil {
		return nil, nil, downloaderError
	}

	fileArchiver, archiverError := archive.NewArchiver(builder.resolveFileSystem())
	if archiverError != nil {
		return nil, nil, archiverError
	}

	processInspector, inspectorError := procs.NewInspector(shellExecutor)
	if inspectorError != nil {
		return nil, nil, inspectorError
	}

	lineEditor, editorError := textops.NewEditor(builder.resolveFileSystem())
	if editorError != nil {
		return nil, nil, editorError
	}

	var runReporter RunReporter
	if len(reportFilePath) > 0 {
		csvReporter, reporterError := NewCSVRunReporter(builder.resolveFileSystem(), reportFilePath)
		if reporterError != nil {
			return nil, nil, reporterError
		}
		runReporter = csvReporter
	}

	monitorPool, poolError := workerpool.NewPool(monitorPoolWorkerCountConstant, monitorPoolQueueCapacityConstant)
	if poolError != nil {
		return nil, nil, poolError
	}

	engine, engineError := NewEngine(Dependencies{
		Logger:      logger,
		Environment: environmentService,
		Packages:    packageManager,
		Python:      pythonPipeline,
		Downloader:  fileDownloader,
		Extractor:   fileArchiver,
		Commands:    shellExecutor,
		Processes:   processInspector,
		Network:     netinfoPortWaiter{},
		Text:        lineEditor,
		Scanner:     fileManager,
		Reporter:    runReporter,
		Pool:        monitorPool,
	})
	if engineError != nil {
		monitorPool.Shutdown()
		return nil, nil, engineError
	}
	return engine, monitorPool, nil
}
