package envpath

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/registry"
)

const (
	pathValueNameConstant = "Path"

	loggerMissingMessageConstant         = "logger not configured"
	registryClientMissingMessageConstant = "registry client not configured"
	variableNameMissingMessageConstant   = "variable name must not be empty"
	variableValueMissingMessageConstant  = "variable value must not be empty"

	readPathFailureTemplateConstant      = "reading %s from %s scope: %w"
	writePathFailureTemplateConstant     = "writing %s to %s scope: %w"
	writeVariableFailureTemplateConstant = "writing variable %s in %s scope: %w"
	listVariablesFailureTemplateConstant = "listing variables in %s scope: %w"
	deleteRivalFailureTemplateConstant   = "deleting variable %s in %s scope: %w"

	variableWrittenMessageConstant   = "Registered environment variable"
	rivalVariableRemovedMessage      = "Removed variable bound to the same value"
	pathRewrittenMessageConstant     = "Rewrote Path value"
	pathUnchangedMessageConstant     = "Path value already reconciled"
	variableNameFieldConstant        = "variable_name"
	variableValueFieldConstant       = "variable_value"
	scopeFieldConstant               = "scope"
	entryCountFieldConstant          = "entry_count"
	removedVariableNameFieldConstant = "removed_variable_name"
)

var (
	// ErrLoggerNotConfigured indicates service construction without a logger.
	ErrLoggerNotConfigured = errors.New(loggerMissingMessageConstant)
	// ErrRegistryClientNotConfigured indicates service construction without a registry client.
	ErrRegistryClientNotConfigured = errors.New(registryClientMissingMessageConstant)
	// ErrVariableNameRequired indicates an operation was invoked with an empty variable name.
	ErrVariableNameRequired = errors.New(variableNameMissingMessageConstant)
	// ErrVariableValueRequired indicates an operation was invoked with an empty variable value.
	ErrVariableValueRequired = errors.New(variableValueMissingMessageConstant)
)

// RegistryClient is the subset of registry operations the service drives.
type RegistryClient interface {
	GetValue(executionContext context.Context, scope registry.Scope, valueName string) (registry.Value, error)
	SetValue(executionContext context.Context, scope registry.Scope, valueName string, valueData string, valueType registry.ValueType) error
	DeleteValue(executionContext context.Context, scope registry.Scope, valueName string) error
	ListValues(executionContext context.Context, scope registry.Scope) ([]registry.Value, error)
}

// Dependencies carries the collaborators required by the service.
type Dependencies struct {
	Logger         *zap.Logger
	RegistryClient RegistryClient
}

// Service keeps named environment variables and the Path value consistent
// inside a registry scope.
type Service struct {
	logger         *zap.Logger
	registryClient RegistryClient
}

// NewService validates dependencies and builds a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.RegistryClient == nil {
		return nil, ErrRegistryClientNotConfigured
	}
	return &Service{logger: dependencies.Logger, registryClient: dependencies.RegistryClient}, nil
}

// EnsureGlobalVariable registers variableName=variableValue in the scope,
// removes any other variable bound to the same value, and reconciles the Path
// value so the directory is reachable through the %variableName% alias.
// Calling it twice with the same arguments leaves the registry unchanged on
// the second call.
func (service *Service) EnsureGlobalVariable(executionContext context.Context, variableName string, variableValue string, scope registry.Scope) error {
	if len(strings.TrimSpace(variableName)) == 0 {
		return ErrVariableNameRequired
	}
	if len(strings.TrimSpace(variableValue)) == 0 {
		return ErrVariableValueRequired
	}

	if removalError := service.removeRivalVariables(executionContext, variableName, variableValue, scope); removalError != nil {
		return removalError
	}

	if writeError := service.registryClient.SetValue(executionContext, scope, variableName, variableValue, registry.TypeString); writeError != nil {
		return fmt.Errorf(writeVariableFailureTemplateConstant, variableName, scope, writeError)
	}
	service.logger.Info(variableWrittenMessageConstant,
		zap.String(variableNameFieldConstant, variableName),
		zap.String(variableValueFieldConstant, variableValue),
		zap.String(scopeFieldConstant, string(scope)),
	)

	return service.EnsurePathReferences(executionContext, variableName, variableValue, scope)
}

// EnsurePathReferences rewrites the scope's Path value so it references
// %variableName% instead of the literal variableValue, with duplicates
// collapsed and entries in deterministic group order. The value is written as
// REG_EXPAND_SZ only when the reconciled string differs from the stored one.
func (service *Service) EnsurePathReferences(executionContext context.Context, variableName string, variableValue string, scope registry.Scope) error {
	if len(strings.TrimSpace(variableName)) == 0 {
		return ErrVariableNameRequired
	}
	if len(strings.TrimSpace(variableValue)) == 0 {
		return ErrVariableValueRequired
	}

	currentPath, readError := service.readPathValue(executionContext, scope)
	if readError != nil {
		return readError
	}

	snapshot, snapshotError := service.buildSnapshot(executionContext, scope)
	if snapshotError != nil {
		return snapshotError
	}
	snapshot[variableName] = variableValue

	reconciler, reconcilerError := NewReconciler(snapshot)
	if reconcilerError != nil {
		return reconcilerError
	}
	reconciledPath := reconciler.Reconcile(currentPath, variableName, variableValue)

	return service.writePathValue(executionContext, scope, currentPath, reconciledPath)
}

// CurrentPath returns the scope's stored Path string, empty when the value
// does not exist yet.
func (service *Service) CurrentPath(executionContext context.Context, scope registry.Scope) (string, error) {
	return service.readPathValue(executionContext, scope)
}

// NormalizePath applies canonicalization, deduplication, and group ordering
// to the scope's Path value without introducing a new alias.
func (service *Service) NormalizePath(executionContext context.Context, scope registry.Scope) error {
	currentPath, readError := service.readPathValue(executionContext, scope)
	if readError != nil {
		return readError
	}

	snapshot, snapshotError := service.buildSnapshot(executionContext, scope)
	if snapshotError != nil {
		return snapshotError
	}

	reconciler, reconcilerError := NewReconciler(snapshot)
	if reconcilerError != nil {
		return reconcilerError
	}
	normalizedPath := reconciler.Normalize(currentPath)

	return service.writePathValue(executionContext, scope, currentPath, normalizedPath)
}

func (service *Service) removeRivalVariables(executionContext context.Context, variableName string, variableValue string, scope registry.Scope) error {
	storedValues, listError := service.registryClient.ListValues(executionContext, scope)
	if listError != nil {
		return fmt.Errorf(listVariablesFailureTemplateConstant, scope, listError)
	}

	for _, storedValue := range storedValues {
		if strings.EqualFold(storedValue.Name, variableName) {
			continue
		}
		if strings.EqualFold(storedValue.Name, pathValueNameConstant) {
			continue
		}
		if normalizeResolvedPath(storedValue.Data) != normalizeResolvedPath(variableValue) {
			continue
		}
		if deletionError := service.registryClient.DeleteValue(executionContext, scope, storedValue.Name); deletionError != nil {
			return fmt.Errorf(deleteRivalFailureTemplateConstant, storedValue.Name, scope, deletionError)
		}
		service.logger.Info(rivalVariableRemovedMessage,
			zap.String(removedVariableNameFieldConstant, storedValue.Name),
			zap.String(variableValueFieldConstant, variableValue),
			zap.String(scopeFieldConstant, string(scope)),
		)
	}
	return nil
}

// buildSnapshot treats the registry scope as the source of truth for variable
// resolution rather than the process environment.
func (service *Service) buildSnapshot(executionContext context.Context, scope registry.Scope) (EnvironmentSnapshot, error) {
	storedValues, listError := service.registryClient.ListValues(executionContext, scope)
	if listError != nil {
		return nil, fmt.Errorf(listVariablesFailureTemplateConstant, scope, listError)
	}

	snapshot := make(EnvironmentSnapshot, len(storedValues))
	for _, storedValue := range storedValues {
		if strings.EqualFold(storedValue.Name, pathValueNameConstant) {
			continue
		}
		snapshot[storedValue.Name] = storedValue.Data
	}
	return snapshot, nil
}

func (service *Service) readPathValue(executionContext context.Context, scope registry.Scope) (string, error) {
	storedValue, readError := service.registryClient.GetValue(executionContext, scope, pathValueNameConstant)
	if readError != nil {
		if errors.Is(readError, registry.ErrValueNotFound) {
			return "", nil
		}
		return "", fmt.Errorf(readPathFailureTemplateConstant, pathValueNameConstant, scope, readError)
	}
	return storedValue.Data, nil
}

func (service *Service) writePathValue(executionContext context.Context, scope registry.Scope, currentPath string, reconciledPath string) error {
	if reconciledPath == currentPath {
		service.logger.Debug(pathUnchangedMessageConstant, zap.String(scopeFieldConstant, string(scope)))
		return nil
	}

	if writeError := service.registryClient.SetValue(executionContext, scope, pathValueNameConstant, reconciledPath, registry.TypeExpandString); writeError != nil {
		return fmt.Errorf(writePathFailureTemplateConstant, pathValueNameConstant, scope, writeError)
	}
	service.logger.Info(pathRewrittenMessageConstant,
		zap.String(scopeFieldConstant, string(scope)),
		zap.Int(entryCountFieldConstant, len(splitPathList(reconciledPath))),
	)
	return nil
}
