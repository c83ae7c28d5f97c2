package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deskware/win_scripts/internal/execshell"
)

const (
	regQuerySubcommandConstant         = "query"
	regAddSubcommandConstant           = "add"
	regDeleteSubcommandConstant        = "delete"
	regValueNameFlagConstant           = "/v"
	regValueTypeFlagConstant           = "/t"
	regValueDataFlagConstant           = "/d"
	regForceFlagConstant               = "/f"
	regExecutorMissingMessageConstant  = "registry executor not configured"
	regValueNotFoundExitCodeConstant   = 1
	registryOperationTemplateConstant  = "registry %s for %s in %s scope failed: %w"
	registryOperationGetLabelConstant  = "read"
	registryOperationSetLabelConstant  = "write"
	registryOperationDelLabelConstant  = "delete"
	registryOperationListLabelConstant = "enumeration"
	registryListAllValuesLabelConstant = "all values"
)

var knownValueTypeTokens = []string{
	valueTypeExpandConstant,
	valueTypeStringConstant,
	"REG_MULTI_SZ",
	"REG_DWORD",
	"REG_QWORD",
	"REG_BINARY",
}

// ErrExecutorNotConfigured indicates the client was constructed without a command executor.
var ErrExecutorNotConfigured = errors.New(regExecutorMissingMessageConstant)

// RegExecutor abstracts the subset of the shell executor needed to drive reg.exe.
type RegExecutor interface {
	ExecuteReg(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client performs registry reads and writes exclusively through the reg.exe
// command-line tool.
type Client struct {
	executor RegExecutor
}

// NewClient constructs a registry client around the provided executor.
func NewClient(executor RegExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// GetValue reads a single named value from the scope's environment key.
// ErrValueNotFound is returned when the value does not exist.
func (client *Client) GetValue(executionContext context.Context, scope Scope, valueName string) (Value, error) {
	keyPath, keyPathError := scope.EnvironmentKeyPath()
	if keyPathError != nil {
		return Value{}, keyPathError
	}

	executionResult, executionError := client.executor.ExecuteReg(executionContext, execshell.CommandDetails{
		Arguments: []string{regQuerySubcommandConstant, keyPath, regValueNameFlagConstant, valueName},
	})
	if executionError != nil {
		if isValueNotFoundFailure(executionError) {
			return Value{}, fmt.Errorf("%w: %s", ErrValueNotFound, valueName)
		}
		return Value{}, fmt.Errorf(registryOperationTemplateConstant, registryOperationGetLabelConstant, valueName, scope, executionError)
	}

	parsedValues := parseQueryOutput(executionResult.StandardOutput)
	for _, parsedValue := range parsedValues {
		if strings.EqualFold(parsedValue.Name, valueName) {
			return parsedValue, nil
		}
	}

	return Value{}, fmt.Errorf("%w: %s", ErrValueNotFound, valueName)
}

// SetValue writes a named value of the requested type into the scope's environment key.
func (client *Client) SetValue(executionContext context.Context, scope Scope, valueName string, valueData string, valueType ValueType) error {
	keyPath, keyPathError := scope.EnvironmentKeyPath()
	if keyPathError != nil {
		return keyPathError
	}

	_, executionError := client.executor.ExecuteReg(executionContext, execshell.CommandDetails{
		Arguments: []string{
			regAddSubcommandConstant, keyPath,
			regValueNameFlagConstant, valueName,
			regValueTypeFlagConstant, string(valueType),
			regValueDataFlagConstant, valueData,
			regForceFlagConstant,
		},
	})
	if executionError != nil {
		return fmt.Errorf(registryOperationTemplateConstant, registryOperationSetLabelConstant, valueName, scope, executionError)
	}
	return nil
}

// DeleteValue removes a named value from the scope's environment key. Deleting
// a value that does not exist reports ErrValueNotFound.
func (client *Client) DeleteValue(executionContext context.Context, scope Scope, valueName string) error {
	keyPath, keyPathError := scope.EnvironmentKeyPath()
	if keyPathError != nil {
		return keyPathError
	}

	_, executionError := client.executor.ExecuteReg(executionContext, execshell.CommandDetails{
		Arguments: []string{regDeleteSubcommandConstant, keyPath, regValueNameFlagConstant, valueName, regForceFlagConstant},
	})
	if executionError != nil {
		if isValueNotFoundFailure(executionError) {
			return fmt.Errorf("%w: %s", ErrValueNotFound, valueName)
		}
		return fmt.Errorf(registryOperationTemplateConstant, registryOperationDelLabelConstant, valueName, scope, executionError)
	}
	return nil
}

// ListValues enumerates every value stored under the scope's environment key.
func (client *Client) ListValues(executionContext context.Context, scope Scope) ([]Value, error) {
	keyPath, keyPathError := scope.EnvironmentKeyPath()
	if keyPathError != nil {
		return nil, keyPathError
	}

	executionResult, executionError := client.executor.ExecuteReg(executionContext, execshell.CommandDetails{
		Arguments: []string{regQuerySubcommandConstant, keyPath},
	})
	if executionError != nil {
		return nil, fmt.Errorf(registryOperationTemplateConstant, registryOperationListLabelConstant, registryListAllValuesLabelConstant, scope, executionError)
	}

	return parseQueryOutput(executionResult.StandardOutput), nil
}

func isValueNotFoundFailure(executionError error) bool {
	commandFailure := execshell.CommandFailedError{}
	if !errors.As(executionError, &commandFailure) {
		return false
	}
	return commandFailure.Result.ExitCode == regValueNotFoundExitCodeConstant
}

// parseQueryOutput extracts value rows from reg query output. Rows have the
// shape "    <name>    <TYPE>    <data>"; the key path header and blank lines
// are skipped.
func parseQueryOutput(queryOutput string) []Value {
	parsedValues := []Value{}
	for _, outputLine := range strings.Split(queryOutput, "\n") {
		trimmedLine := strings.TrimRight(outputLine, "\r")
		if len(strings.TrimSpace(trimmedLine)) == 0 {
			continue
		}
		if !strings.HasPrefix(trimmedLine, " ") && !strings.HasPrefix(trimmedLine, "\t") {
			continue
		}

		parsedValue, parsed := parseValueLine(strings.TrimSpace(trimmedLine))
		if parsed {
			parsedValues = append(parsedValues, parsedValue)
		}
	}
	return parsedValues
}

func parseValueLine(valueLine string) (Value, bool) {
	for _, typeToken := range knownValueTypeTokens {
		tokenIndex := indexOfToken(valueLine, typeToken)
		if tokenIndex < 0 {
			continue
		}

		valueName := strings.TrimSpace(valueLine[:tokenIndex])
		valueData := strings.TrimLeft(valueLine[tokenIndex+len(typeToken):], " \t")
		if len(valueName) == 0 {
			return Value{}, false
		}
		return Value{Name: valueName, Type: ValueType(typeToken), Data: valueData}, true
	}
	return Value{}, false
}

// indexOfToken finds typeToken delimited by whitespace so value names that
// merely contain a type string are not misparsed.
func indexOfToken(valueLine string, typeToken string) int {
	searchOffset := 0
	for searchOffset < len(valueLine) {
		relativeIndex := strings.Index(valueLine[searchOffset:], typeToken)
		if relativeIndex < 0 {
			return -1
		}
		absoluteIndex := searchOffset + relativeIndex
		leftBoundaryOK := absoluteIndex == 0 || valueLine[absoluteIndex-1] == ' ' || valueLine[absoluteIndex-1] == '\t'
		rightEdge := absoluteIndex + len(typeToken)
		rightBoundaryOK := rightEdge == len(valueLine) || valueLine[rightEdge] == ' ' || valueLine[rightEdge] == '\t'
		if leftBoundaryOK && rightBoundaryOK {
			return absoluteIndex
		}
		searchOffset = absoluteIndex + len(typeToken)
	}
	return -1
}
