package winget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deskware/win_scripts/internal/execshell"
)

const (
	executorMissingMessageConstant  = "winget executor not configured"
	packageIdentifierMissingMessage = "package identifier must not be empty"

	installSubcommandConstant         = "install"
	listSubcommandConstant            = "list"
	identifierFlagConstant            = "--id"
	exactMatchFlagConstant            = "--exact"
	silentFlagConstant                = "--silent"
	acceptPackageAgreementsFlag       = "--accept-package-agreements"
	acceptSourceAgreementsFlag        = "--accept-source-agreements"
	installFailureTemplateConstant    = "installing package %s: %w"
	presenceCheckFailureTemplateLabel = "checking package %s: %w"

	noInstalledPackageMarkerConstant = "No installed package found"
)

var (
	// ErrExecutorNotConfigured indicates the manager was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrPackageIdentifierRequired indicates an operation was invoked with an empty package identifier.
	ErrPackageIdentifierRequired = errors.New(packageIdentifierMissingMessage)
)

// PackageExecutor is the subset of shell execution the manager drives.
type PackageExecutor interface {
	ExecuteWinget(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Manager installs packages and checks their presence through winget.
type Manager struct {
	executor PackageExecutor
}

// NewManager builds a Manager over the supplied executor.
func NewManager(executor PackageExecutor) (*Manager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Manager{executor: executor}, nil
}

// InstallPackage installs packageIdentifier silently, accepting package and
// source agreements so the run needs no interaction.
func (manager *Manager) InstallPackage(executionContext context.Context, packageIdentifier string) error {
	trimmedIdentifier := strings.TrimSpace(packageIdentifier)
	if len(trimmedIdentifier) == 0 {
		return ErrPackageIdentifierRequired
	}

	installArguments := []string{
		installSubcommandConstant,
		identifierFlagConstant, trimmedIdentifier,
		exactMatchFlagConstant,
		silentFlagConstant,
		acceptPackageAgreementsFlag,
		acceptSourceAgreementsFlag,
	}
	if _, installError := manager.executor.ExecuteWinget(executionContext, execshell.CommandDetails{Arguments: installArguments}); installError != nil {
		return fmt.Errorf(installFailureTemplateConstant, trimmedIdentifier, installError)
	}
	return nil
}

// IsPackageInstalled reports whether packageIdentifier shows up in the
// installed package listing. winget exits nonzero when nothing matches, so a
// command failure counts as "not installed".
func (manager *Manager) IsPackageInstalled(executionContext context.Context, packageIdentifier string) (bool, error) {
	trimmedIdentifier := strings.TrimSpace(packageIdentifier)
	if len(trimmedIdentifier) == 0 {
		return false, ErrPackageIdentifierRequired
	}

	listArguments := []string{listSubcommandConstant, identifierFlagConstant, trimmedIdentifier, exactMatchFlagConstant}
	listingResult, listingError := manager.executor.ExecuteWinget(executionContext, execshell.CommandDetails{Arguments: listArguments})
	if listingError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(listingError, &commandFailure) {
			return false, nil
		}
		return false, fmt.Errorf(presenceCheckFailureTemplateLabel, trimmedIdentifier, listingError)
	}

	if strings.Contains(listingResult.StandardOutput, noInstalledPackageMarkerConstant) {
		return false, nil
	}
	return containsIdentifierRow(listingResult.StandardOutput, trimmedIdentifier), nil
}

// EnsurePackage installs packageIdentifier unless it is already present.
// Returns true when an installation was performed.
func (manager *Manager) EnsurePackage(executionContext context.Context, packageIdentifier string) (bool, error) {
	alreadyInstalled, presenceError := manager.IsPackageInstalled(executionContext, packageIdentifier)
	if presenceError != nil {
		return false, presenceError
	}
	if alreadyInstalled {
		return false, nil
	}
	if installError := manager.InstallPackage(executionContext, packageIdentifier); installError != nil {
		return false, installError
	}
	return true, nil
}

// containsIdentifierRow scans winget's tabular listing for a row carrying the
// package identifier as a standalone column value.
func containsIdentifierRow(listingOutput string, packageIdentifier string) bool {
	for _, listingLine := range strings.Split(listingOutput, "\n") {
		for _, lineField := range strings.Fields(listingLine) {
			if strings.EqualFold(lineField, packageIdentifier) {
				return true
			}
		}
	}
	return false
}
