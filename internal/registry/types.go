package registry

import (
	"errors"
	"fmt"
	"strings"
)

const (
	scopeUserStringConstant    = "user"
	scopeMachineStringConstant = "machine"
	userEnvironmentKeyPath     = `HKCU\Environment`
	machineEnvironmentKeyPath  = `HKLM\SYSTEM\CurrentControlSet\Control\Session Manager\Environment`
	unknownScopeMessage        = "unknown registry scope"
	valueNotFoundMessage       = "registry value not found"
	valueTypeStringConstant    = "REG_SZ"
	valueTypeExpandConstant    = "REG_EXPAND_SZ"
)

// Scope identifies whether an environment variable lives in the per-user or
// machine-wide registry hive.
type Scope string

// Supported registry scopes.
const (
	ScopeUser    Scope = Scope(scopeUserStringConstant)
	ScopeMachine Scope = Scope(scopeMachineStringConstant)
)

// ValueType enumerates the registry value types the client writes.
type ValueType string

// Supported registry value types.
const (
	TypeString       ValueType = ValueType(valueTypeStringConstant)
	TypeExpandString ValueType = ValueType(valueTypeExpandConstant)
)

// Value is a single named registry value together with its type and data.
type Value struct {
	Name string
	Type ValueType
	Data string
}

// ErrUnknownScope indicates an unsupported scope string was supplied.
var ErrUnknownScope = errors.New(unknownScopeMessage)

// ErrValueNotFound indicates the requested registry value does not exist.
var ErrValueNotFound = errors.New(valueNotFoundMessage)

// ParseScope converts a user-supplied scope string into a Scope.
func ParseScope(scopeValue string) (Scope, error) {
	normalizedScope := strings.ToLower(strings.TrimSpace(scopeValue))
	switch Scope(normalizedScope) {
	case ScopeUser:
		return ScopeUser, nil
	case ScopeMachine:
		return ScopeMachine, nil
	default:
		return Scope(""), fmt.Errorf("%w: %s", ErrUnknownScope, scopeValue)
	}
}

// EnvironmentKeyPath returns the registry key path holding environment
// variables for the scope.
func (scope Scope) EnvironmentKeyPath() (string, error) {
	switch scope {
	case ScopeUser:
		return userEnvironmentKeyPath, nil
	case ScopeMachine:
		return machineEnvironmentKeyPath, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownScope, string(scope))
	}
}
