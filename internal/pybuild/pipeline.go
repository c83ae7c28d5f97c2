package pybuild

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/execshell"
)

const (
	executorMissingMessageConstant   = "python executor not configured"
	loggerMissingMessageConstant     = "logger not configured"
	entryScriptMissingMessageLiteral = "entry script must not be empty"

	moduleFlagConstant          = "-m"
	venvModuleConstant          = "venv"
	pipModuleConstant           = "pip"
	pyinstallerModuleConstant   = "PyInstaller"
	pipInstallSubcommand        = "install"
	pipUpgradeFlagConstant      = "--upgrade"
	pipRequirementsFlagConstant = "-r"
	onefileFlagConstant         = "--onefile"
	windowedFlagConstant        = "--noconsole"
	iconFlagConstant            = "--icon"
	nameFlagConstant            = "--name"
	distPathFlagConstant        = "--distpath"

	venvScriptsDirectoryConstant = "Scripts"
	venvInterpreterNameConstant  = "python.exe"
	pathVariableNameConstant     = "PATH"
	virtualEnvVariableConstant   = "VIRTUAL_ENV"
	executableSuffixConstant     = ".exe"
	defaultDistDirectoryConstant = "dist"

	createVenvFailureTemplateConstant  = "creating virtual environment %s: %w"
	upgradePipFailureTemplateConstant  = "upgrading pip in %s: %w"
	installReqsFailureTemplateConstant = "installing requirements %s: %w"
	buildFailureTemplateConstant       = "building executable from %s: %w"

	venvCreatedMessageConstant     = "Created virtual environment"
	pipUpgradedMessageConstant     = "Upgraded pip"
	requirementsMessageConstant    = "Installed requirements"
	executableBuiltMessageConstant = "Built one-file executable"
	venvPathFieldConstant          = "venv_path"
	requirementsPathFieldConstant  = "requirements_path"
	entryScriptFieldConstant       = "entry_script"
	executablePathFieldConstant    = "executable_path"
)

var (
	// ErrExecutorNotConfigured indicates the pipeline was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrLoggerNotConfigured indicates the pipeline was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerMissingMessageConstant)
	// ErrEntryScriptRequired indicates a build was requested without an entry script.
	ErrEntryScriptRequired = errors.New(entryScriptMissingMessageLiteral)
)

// PythonExecutor is the subset of shell execution the pipeline drives.
type PythonExecutor interface {
	ExecutePython(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// BuildOptions configures a one-file executable build.
type BuildOptions struct {
	EntryScript      string
	ApplicationName  string
	IconPath         string
	HideConsole      bool
	DistDirectory    string
	WorkingDirectory string
}

// Dependencies carries the collaborators required by the pipeline.
type Dependencies struct {
	Logger   *zap.Logger
	Executor PythonExecutor
}

// Pipeline sequences the python tooling that turns a script into a
// distributable executable: venv creation, pip upgrade, requirements
// installation, and a PyInstaller build. The first failing step aborts the
// run.
type Pipeline struct {
	logger   *zap.Logger
	executor PythonExecutor
}

// NewPipeline validates dependencies and builds a Pipeline.
func NewPipeline(dependencies Dependencies) (*Pipeline, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Pipeline{logger: dependencies.Logger, executor: dependencies.Executor}, nil
}

// CreateVirtualEnvironment creates a virtual environment at venvPath.
func (pipeline *Pipeline) CreateVirtualEnvironment(executionContext context.Context, venvPath string) error {
	creationDetails := execshell.CommandDetails{Arguments: []string{moduleFlagConstant, venvModuleConstant, venvPath}}
	if _, creationError := pipeline.executor.ExecutePython(executionContext, creationDetails); creationError != nil {
		return fmt.Errorf(createVenvFailureTemplateConstant, venvPath, creationError)
	}
	pipeline.logger.Info(venvCreatedMessageConstant, zap.String(venvPathFieldConstant, venvPath))
	return nil
}

// UpgradePip upgrades pip inside the virtual environment at venvPath.
func (pipeline *Pipeline) UpgradePip(executionContext context.Context, venvPath string) error {
	upgradeDetails := execshell.CommandDetails{
		Arguments:            []string{moduleFlagConstant, pipModuleConstant, pipInstallSubcommand, pipUpgradeFlagConstant, pipModuleConstant},
		ExecutablePath:       venvInterpreterPath(venvPath),
		EnvironmentVariables: venvEnvironment(venvPath),
	}
	if _, upgradeError := pipeline.executor.ExecutePython(executionContext, upgradeDetails); upgradeError != nil {
		return fmt.Errorf(upgradePipFailureTemplateConstant, venvPath, upgradeError)
	}
	pipeline.logger.Info(pipUpgradedMessageConstant, zap.String(venvPathFieldConstant, venvPath))
	return nil
}

// InstallRequirements installs the requirements file into the virtual
// environment at venvPath.
func (pipeline *Pipeline) InstallRequirements(executionContext context.Context, venvPath string, requirementsPath string) error {
	installDetails := execshell.CommandDetails{
		Arguments:            []string{moduleFlagConstant, pipModuleConstant, pipInstallSubcommand, pipRequirementsFlagConstant, requirementsPath},
		ExecutablePath:       venvInterpreterPath(venvPath),
		EnvironmentVariables: venvEnvironment(venvPath),
	}
	if _, installError := pipeline.executor.ExecutePython(executionContext, installDetails); installError != nil {
		return fmt.Errorf(installReqsFailureTemplateConstant, requirementsPath, installError)
	}
	pipeline.logger.Info(requirementsMessageConstant,
		zap.String(venvPathFieldConstant, venvPath),
		zap.String(requirementsPathFieldConstant, requirementsPath),
	)
	return nil
}

// BuildExecutable runs a one-file PyInstaller build and returns the expected
// executable path.
func (pipeline *Pipeline) BuildExecutable(executionContext context.Context, venvPath string, options BuildOptions) (string, error) {
	trimmedEntryScript := strings.TrimSpace(options.EntryScript)
	if len(trimmedEntryScript) == 0 {
		return "", ErrEntryScriptRequired
	}

	buildArguments := []string{moduleFlagConstant, pyinstallerModuleConstant, onefileFlagConstant}
	if options.HideConsole {
		buildArguments = append(buildArguments, windowedFlagConstant)
	}
	if len(strings.TrimSpace(options.IconPath)) > 0 {
		buildArguments = append(buildArguments, iconFlagConstant, options.IconPath)
	}

	applicationName := strings.TrimSpace(options.ApplicationName)
	if len(applicationName) == 0 {
		applicationName = strings.TrimSuffix(filepath.Base(trimmedEntryScript), filepath.Ext(trimmedEntryScript))
	}
	buildArguments = append(buildArguments, nameFlagConstant, applicationName)

	distDirectory := strings.TrimSpace(options.DistDirectory)
	if len(distDirectory) == 0 {
		distDirectory = defaultDistDirectoryConstant
	}
	buildArguments = append(buildArguments, distPathFlagConstant, distDirectory, trimmedEntryScript)

	buildDetails := execshell.CommandDetails{
		Arguments:            buildArguments,
		WorkingDirectory:     options.WorkingDirectory,
		ExecutablePath:       venvInterpreterPath(venvPath),
		EnvironmentVariables: venvEnvironment(venvPath),
	}
	if _, buildError := pipeline.executor.ExecutePython(executionContext, buildDetails); buildError != nil {
		return "", fmt.Errorf(buildFailureTemplateConstant, trimmedEntryScript, buildError)
	}

	executablePath := filepath.Join(distDirectory, applicationName+executableSuffixConstant)
	pipeline.logger.Info(executableBuiltMessageConstant,
		zap.String(entryScriptFieldConstant, trimmedEntryScript),
		zap.String(executablePathFieldConstant, executablePath),
	)
	return executablePath, nil
}

// Run drives the full pipeline: venv, pip upgrade, requirements, build. An
// empty requirementsPath skips the requirements step.
func (pipeline *Pipeline) Run(executionContext context.Context, venvPath string, requirementsPath string, options BuildOptions) (string, error) {
	if creationError := pipeline.CreateVirtualEnvironment(executionContext, venvPath); creationError != nil {
		return "", creationError
	}
	if upgradeError := pipeline.UpgradePip(executionContext, venvPath); upgradeError != nil {
		return "", upgradeError
	}
	if len(strings.TrimSpace(requirementsPath)) > 0 {
		if installError := pipeline.InstallRequirements(executionContext, venvPath, requirementsPath); installError != nil {
			return "", installError
		}
	}
	return pipeline.BuildExecutable(executionContext, venvPath, options)
}

// venvInterpreterPath names the interpreter the venv creation step installed.
// Steps after creation must spawn this binary directly: running the bare
// python command would resolve against the parent PATH and target the system
// interpreter instead of the venv.
func venvInterpreterPath(venvPath string) string {
	return filepath.Join(venvPath, venvScriptsDirectoryConstant, venvInterpreterNameConstant)
}

// venvEnvironment mirrors what venv activation scripts export: VIRTUAL_ENV
// set to the venv root and the venv's script directory prepended to the
// inherited PATH so console entry points resolve inside the venv first.
func venvEnvironment(venvPath string) map[string]string {
	venvScriptsDirectory := filepath.Join(venvPath, venvScriptsDirectoryConstant)
	return map[string]string{
		virtualEnvVariableConstant: venvPath,
		pathVariableNameConstant:   venvScriptsDirectory + string(os.PathListSeparator) + os.Getenv(pathVariableNameConstant),
	}
}
