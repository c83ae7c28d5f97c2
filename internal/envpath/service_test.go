package envpath_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskware/win_scripts/internal/envpath"
	"github.com/deskware/win_scripts/internal/registry"
)

type fakeRegistryClient struct {
	valuesByScope map[registry.Scope]map[string]registry.Value
	writeCount    int
}

func newFakeRegistryClient() *fakeRegistryClient {
	return &fakeRegistryClient{valuesByScope: map[registry.Scope]map[string]registry.Value{}}
}

func (client *fakeRegistryClient) scopeValues(scope registry.Scope) map[string]registry.Value {
	if client.valuesByScope[scope] == nil {
		client.valuesByScope[scope] = map[string]registry.Value{}
	}
	return client.valuesByScope[scope]
}

func (client *fakeRegistryClient) GetValue(executionContext context.Context, scope registry.Scope, valueName string) (registry.Value, error) {
	storedValue, exists := client.scopeValues(scope)[valueName]
	if !exists {
		return registry.Value{}, registry.ErrValueNotFound
	}
	return storedValue, nil
}

func (client *fakeRegistryClient) SetValue(executionContext context.Context, scope registry.Scope, valueName string, valueData string, valueType registry.ValueType) error {
	client.scopeValues(scope)[valueName] = registry.Value{Name: valueName, Type: valueType, Data: valueData}
	client.writeCount++
	return nil
}

func (client *fakeRegistryClient) DeleteValue(executionContext context.Context, scope registry.Scope, valueName string) error {
	if _, exists := client.scopeValues(scope)[valueName]; !exists {
		return registry.ErrValueNotFound
	}
	delete(client.scopeValues(scope), valueName)
	return nil
}

func (client *fakeRegistryClient) ListValues(executionContext context.Context, scope registry.Scope) ([]registry.Value, error) {
	listedValues := make([]registry.Value, 0, len(client.scopeValues(scope)))
	for _, storedValue := range client.scopeValues(scope) {
		listedValues = append(listedValues, storedValue)
	}
	return listedValues, nil
}

func newServiceForTest(testInstance *testing.T, client envpath.RegistryClient) *envpath.Service {
	testInstance.Helper()
	service, creationError := envpath.NewService(envpath.Dependencies{Logger: zap.NewNop(), RegistryClient: client})
	require.NoError(testInstance, creationError)
	return service
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  envpath.Dependencies
		expectedError error
	}{
		{
			name:          "missing_logger",
			dependencies:  envpath.Dependencies{RegistryClient: newFakeRegistryClient()},
			expectedError: envpath.ErrLoggerNotConfigured,
		},
		{
			name:          "missing_registry_client",
			dependencies:  envpath.Dependencies{Logger: zap.NewNop()},
			expectedError: envpath.ErrRegistryClientNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, creationError := envpath.NewService(testCase.dependencies)
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
			require.Nil(testInstance, service)
		})
	}
}

func TestEnsureGlobalVariableValidatesArguments(testInstance *testing.T) {
	service := newServiceForTest(testInstance, newFakeRegistryClient())

	require.ErrorIs(testInstance,
		service.EnsureGlobalVariable(context.Background(), " ", `C:\OldTool`, registry.ScopeUser),
		envpath.ErrVariableNameRequired)
	require.ErrorIs(testInstance,
		service.EnsureGlobalVariable(context.Background(), "path_oldtool", "", registry.ScopeUser),
		envpath.ErrVariableValueRequired)
}

func TestEnsureGlobalVariableEndToEnd(testInstance *testing.T) {
	client := newFakeRegistryClient()
	client.scopeValues(registry.ScopeUser)["Path"] = registry.Value{
		Name: "Path",
		Type: registry.TypeExpandString,
		Data: `C:\Windows;C:\Windows\System32;C:\OldTool`,
	}
	service := newServiceForTest(testInstance, client)

	ensureError := service.EnsureGlobalVariable(context.Background(), "path_oldtool", `C:\OldTool`, registry.ScopeUser)
	require.NoError(testInstance, ensureError)

	registeredVariable := client.scopeValues(registry.ScopeUser)["path_oldtool"]
	require.Equal(testInstance, registry.TypeString, registeredVariable.Type)
	require.Equal(testInstance, `C:\OldTool`, registeredVariable.Data)

	rewrittenPath := client.scopeValues(registry.ScopeUser)["Path"]
	require.Equal(testInstance, registry.TypeExpandString, rewrittenPath.Type)
	require.Equal(testInstance, `C:\Windows\System32;C:\Windows;%path_oldtool%`, rewrittenPath.Data)
	require.NotContains(testInstance, rewrittenPath.Data, `C:\OldTool`)
}

func TestEnsureGlobalVariableSecondCallLeavesRegistryUnchanged(testInstance *testing.T) {
	client := newFakeRegistryClient()
	client.scopeValues(registry.ScopeUser)["Path"] = registry.Value{
		Name: "Path",
		Type: registry.TypeExpandString,
		Data: `C:\Windows;C:\OldTool`,
	}
	service := newServiceForTest(testInstance, client)

	require.NoError(testInstance, service.EnsureGlobalVariable(context.Background(), "path_oldtool", `C:\OldTool`, registry.ScopeUser))
	pathAfterFirstCall := client.scopeValues(registry.ScopeUser)["Path"].Data
	writesAfterFirstCall := client.writeCount

	require.NoError(testInstance, service.EnsureGlobalVariable(context.Background(), "path_oldtool", `C:\OldTool`, registry.ScopeUser))
	require.Equal(testInstance, pathAfterFirstCall, client.scopeValues(registry.ScopeUser)["Path"].Data)
	// The second pass re-registers the variable but must not rewrite Path.
	require.Equal(testInstance, writesAfterFirstCall+1, client.writeCount)
}

func TestEnsureGlobalVariableRemovesRivalsBoundToSameValue(testInstance *testing.T) {
	client := newFakeRegistryClient()
	client.scopeValues(registry.ScopeUser)["OLD_TOOL_DIR"] = registry.Value{Name: "OLD_TOOL_DIR", Type: registry.TypeString, Data: `C:\OldTool`}
	client.scopeValues(registry.ScopeUser)["UNRELATED"] = registry.Value{Name: "UNRELATED", Type: registry.TypeString, Data: `C:\Other`}
	service := newServiceForTest(testInstance, client)

	require.NoError(testInstance, service.EnsureGlobalVariable(context.Background(), "path_oldtool", `C:\OldTool`, registry.ScopeUser))

	userValues := client.scopeValues(registry.ScopeUser)
	require.NotContains(testInstance, userValues, "OLD_TOOL_DIR")
	require.Contains(testInstance, userValues, "UNRELATED")
	require.Contains(testInstance, userValues, "path_oldtool")
}

func TestEnsurePathReferencesCreatesPathWhenMissing(testInstance *testing.T) {
	client := newFakeRegistryClient()
	service := newServiceForTest(testInstance, client)

	require.NoError(testInstance, service.EnsurePathReferences(context.Background(), "NEW_TOOL", `E:\NewTool`, registry.ScopeMachine))

	machinePath := client.scopeValues(registry.ScopeMachine)["Path"]
	require.Equal(testInstance, registry.TypeExpandString, machinePath.Type)
	require.Equal(testInstance, "%NEW_TOOL%", machinePath.Data)
}

func TestEnsurePathReferencesCanonicalizesUsingScopeVariables(testInstance *testing.T) {
	client := newFakeRegistryClient()
	client.scopeValues(registry.ScopeUser)["JAVA_HOME"] = registry.Value{Name: "JAVA_HOME", Type: registry.TypeString, Data: `C:\jdk`}
	client.scopeValues(registry.ScopeUser)["Path"] = registry.Value{
		Name: "Path",
		Type: registry.TypeExpandString,
		Data: `C:\jdk\bin;%JAVA_HOME%;C:\Windows`,
	}
	service := newServiceForTest(testInstance, client)

	require.NoError(testInstance, service.EnsurePathReferences(context.Background(), "JAVA_HOME", `C:\jdk`, registry.ScopeUser))

	rewrittenPath := client.scopeValues(registry.ScopeUser)["Path"].Data
	require.Equal(testInstance, `C:\Windows;%JAVA_HOME%\bin;%JAVA_HOME%`, rewrittenPath)
}

func TestNormalizePathLeavesReconciledValueUntouched(testInstance *testing.T) {
	client := newFakeRegistryClient()
	client.scopeValues(registry.ScopeUser)["Path"] = registry.Value{
		Name: "Path",
		Type: registry.TypeExpandString,
		Data: `C:\Windows\System32;C:\Windows`,
	}
	service := newServiceForTest(testInstance, client)
	writesBeforeNormalize := client.writeCount

	require.NoError(testInstance, service.NormalizePath(context.Background(), registry.ScopeUser))
	require.Equal(testInstance, writesBeforeNormalize, client.writeCount)
}

func TestCurrentPathReturnsEmptyWhenValueMissing(testInstance *testing.T) {
	service := newServiceForTest(testInstance, newFakeRegistryClient())

	currentPath, readError := service.CurrentPath(context.Background(), registry.ScopeUser)
	require.NoError(testInstance, readError)
	require.Empty(testInstance, currentPath)
}
