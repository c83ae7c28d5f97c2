package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deskware/win_scripts/internal/utils"
)

type loaderTestConfiguration struct {
	Common struct {
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"common"`
}

func TestLoadConfigurationAppliesDefaultsWhenFileMissing(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader("config", "yaml", "WINSCRIPTS", []string{testInstance.TempDir()})

	var configuration loaderTestConfiguration
	loadedConfiguration, loadError := loader.LoadConfiguration("", map[string]any{
		"common.log_level":  "info",
		"common.log_format": "structured",
	}, &configuration)
	require.NoError(testInstance, loadError)
	require.Empty(testInstance, loadedConfiguration.ConfigFileUsed)
	require.Equal(testInstance, "info", configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", configuration.Common.LogFormat)
}

func TestLoadConfigurationPrefersExplicitFileOverDefaults(testInstance *testing.T) {
	configurationFilePath := filepath.Join(testInstance.TempDir(), "config.yaml")
	configurationContent := []byte("common:\n  log_level: debug\n")
	require.NoError(testInstance, os.WriteFile(configurationFilePath, configurationContent, 0o644))

	loader := utils.NewConfigurationLoader("config", "yaml", "WINSCRIPTS", nil)

	var configuration loaderTestConfiguration
	loadedConfiguration, loadError := loader.LoadConfiguration(configurationFilePath, map[string]any{
		"common.log_level":  "info",
		"common.log_format": "structured",
	}, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, configurationFilePath, loadedConfiguration.ConfigFileUsed)
	require.Equal(testInstance, "debug", configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", configuration.Common.LogFormat)
}

func TestLoadConfigurationPrefersEnvironmentOverFile(testInstance *testing.T) {
	configurationFilePath := filepath.Join(testInstance.TempDir(), "config.yaml")
	configurationContent := []byte("common:\n  log_level: debug\n")
	require.NoError(testInstance, os.WriteFile(configurationFilePath, configurationContent, 0o644))
	testInstance.Setenv("WINSCRIPTS_COMMON_LOG_LEVEL", "warn")

	loader := utils.NewConfigurationLoader("config", "yaml", "WINSCRIPTS", nil)

	var configuration loaderTestConfiguration
	_, loadError := loader.LoadConfiguration(configurationFilePath, map[string]any{
		"common.log_level": "info",
	}, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", configuration.Common.LogLevel)
}

func TestLoadConfigurationRejectsMalformedFile(testInstance *testing.T) {
	configurationFilePath := filepath.Join(testInstance.TempDir(), "config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("common: ["), 0o644))

	loader := utils.NewConfigurationLoader("config", "yaml", "WINSCRIPTS", nil)

	var configuration loaderTestConfiguration
	_, loadError := loader.LoadConfiguration(configurationFilePath, nil, &configuration)
	require.Error(testInstance, loadError)
}
