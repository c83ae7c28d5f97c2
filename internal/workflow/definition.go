package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	parseFailureTemplateConstant     = "parsing workflow definition: %w"
	invalidStepTemplateConstant      = "step %d (%s): %w"
	unknownOperationTemplateConstant = "unknown operation %q"
	missingFieldTemplateConstant     = "operation %s requires %s"
	invalidPortTemplateConstant      = "operation %s requires a positive port"
	emptyDefinitionMessageConstant   = "workflow defines no steps"
	missingStepNameMessageConstant   = "step name must not be empty"
)

// Operation identifies a supported workflow step type.
type Operation string

// Supported workflow operations.
const (
	OperationEnsureEnvvar   Operation = "ensure-envvar"
	OperationReconcilePath  Operation = "reconcile-path"
	OperationInstallPackage Operation = "install-package"
	OperationRunCommand     Operation = "run-command"
	OperationBuildPythonApp Operation = "build-python-app"
	OperationDownloadFile   Operation = "download-file"
	OperationExtractArchive Operation = "extract-archive"
	OperationKillProcess    Operation = "kill-process"
	OperationWaitForPort    Operation = "wait-for-port"
	OperationEnsureLine     Operation = "ensure-line"
)

// ErrEmptyDefinition indicates a workflow without steps.
var ErrEmptyDefinition = errors.New(emptyDefinitionMessageConstant)

// Step is one ordered unit of a workflow. The operation decides which fields
// are consulted.
type Step struct {
	Name      string    `yaml:"name"`
	Operation Operation `yaml:"operation"`

	VariableName  string `yaml:"variable_name,omitempty"`
	VariableValue string `yaml:"variable_value,omitempty"`
	Scope         string `yaml:"scope,omitempty"`

	PackageIdentifier string `yaml:"package_id,omitempty"`

	Command   string   `yaml:"command,omitempty"`
	Arguments []string `yaml:"arguments,omitempty"`

	EntryScript      string `yaml:"entry_script,omitempty"`
	VenvPath         string `yaml:"venv_path,omitempty"`
	RequirementsPath string `yaml:"requirements_path,omitempty"`
	ApplicationName  string `yaml:"application_name,omitempty"`
	IconPath         string `yaml:"icon_path,omitempty"`
	HideConsole      bool   `yaml:"hide_console,omitempty"`
	DistDirectory    string `yaml:"dist_directory,omitempty"`

	SourceURL       string `yaml:"source_url,omitempty"`
	DestinationPath string `yaml:"destination_path,omitempty"`

	ArchivePath   string `yaml:"archive_path,omitempty"`
	DirectoryPath string `yaml:"directory_path,omitempty"`

	ImageName string `yaml:"image_name,omitempty"`

	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`

	FilePath string `yaml:"file_path,omitempty"`
	Line     string `yaml:"line,omitempty"`

	MonitorDirectory string `yaml:"monitor_directory,omitempty"`
}

// Definition is an ordered workflow parsed from YAML.
type Definition struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// ParseDefinition decodes and validates a YAML workflow document.
func ParseDefinition(definitionContent []byte) (Definition, error) {
	var definition Definition
	if unmarshalError := yaml.Unmarshal(definitionContent, &definition); unmarshalError != nil {
		return Definition{}, fmt.Errorf(parseFailureTemplateConstant, unmarshalError)
	}

	if len(definition.Steps) == 0 {
		return Definition{}, fmt.Errorf(parseFailureTemplateConstant, ErrEmptyDefinition)
	}

	for stepIndex, step := range definition.Steps {
		if validationError := validateStep(step); validationError != nil {
			return Definition{}, fmt.Errorf(invalidStepTemplateConstant, stepIndex+1, step.Name, validationError)
		}
	}
	return definition, nil
}

func validateStep(step Step) error {
	if len(strings.TrimSpace(step.Name)) == 0 {
		return errors.New(missingStepNameMessageConstant)
	}

	switch step.Operation {
	case OperationEnsureEnvvar:
		return requireFields(step.Operation, map[string]string{
			"variable_name":  step.VariableName,
			"variable_value": step.VariableValue,
		})
	case OperationReconcilePath:
		return nil
	case OperationInstallPackage:
		return requireFields(step.Operation, map[string]string{"package_id": step.PackageIdentifier})
	case OperationRunCommand:
		return requireFields(step.Operation, map[string]string{"command": step.Command})
	case OperationBuildPythonApp:
		return requireFields(step.Operation, map[string]string{"entry_script": step.EntryScript})
	case OperationDownloadFile:
		return requireFields(step.Operation, map[string]string{
			"source_url":       step.SourceURL,
			"destination_path": step.DestinationPath,
		})
	case OperationExtractArchive:
		return requireFields(step.Operation, map[string]string{
			"archive_path":   step.ArchivePath,
			"directory_path": step.DirectoryPath,
		})
	case OperationKillProcess:
		return requireFields(step.Operation, map[string]string{"image_name": step.ImageName})
	case OperationWaitForPort:
		if fieldError := requireFields(step.Operation, map[string]string{"host": step.Host}); fieldError != nil {
			return fieldError
		}
		if step.Port <= 0 {
			return fmt.Errorf(invalidPortTemplateConstant, string(step.Operation))
		}
		return nil
	case OperationEnsureLine:
		return requireFields(step.Operation, map[string]string{
			"file_path": step.FilePath,
			"line":      step.Line,
		})
	default:
		return fmt.Errorf(unknownOperationTemplateConstant, string(step.Operation))
	}
}

func requireFields(operation Operation, fieldValues map[string]string) error {
	missingFields := []string{}
	for fieldName, fieldValue := range fieldValues {
		if len(strings.TrimSpace(fieldValue)) == 0 {
			missingFields = append(missingFields, fieldName)
		}
	}
	if len(missingFields) == 0 {
		return nil
	}
	sort.Strings(missingFields)
	return fmt.Errorf(missingFieldTemplateConstant, string(operation), strings.Join(missingFields, ", "))
}
