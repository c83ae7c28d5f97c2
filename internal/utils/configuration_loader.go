package utils

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	configurationKeyDotSeparator        = "."
	environmentKeyUnderscoreSeparator   = "_"
	configurationReadTemplateConstant   = "reading configuration: %w"
	configurationDecodeTemplateConstant = "decoding configuration: %w"
)

// ConfigurationLoader resolves typed configuration from files, environment
// variables, and defaults, in ascending precedence: defaults, then a config
// file discovered on the search paths (or named explicitly), then
// prefix-scoped environment variables.
type ConfigurationLoader struct {
	configurationName string
	configurationType string
	environmentPrefix string
	searchPaths       []string
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader searching the supplied paths for
// <configurationName>.<configurationType>, with environment overrides read
// from variables named <environmentPrefix>_SECTION_KEY.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string{}, searchPaths...),
	}
}

// LoadConfiguration populates targetConfiguration. A missing configuration
// file is not an error; defaults and environment overrides still apply.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)
	for _, searchPath := range loader.searchPaths {
		viperInstance.AddConfigPath(searchPath)
	}
	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	}

	loader.bindEnvironment(viperInstance)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	readError := viperInstance.MergeInConfig()
	if readError != nil {
		if _, configurationFileMissing := readError.(viper.ConfigFileNotFoundError); !configurationFileMissing {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadTemplateConstant, readError)
		}
	}

	if decodeError := viperInstance.Unmarshal(targetConfiguration); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeTemplateConstant, decodeError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

// bindEnvironment maps dotted configuration keys onto prefix-scoped
// environment variable names, e.g. common.log_level becomes
// WINSCRIPTS_COMMON_LOG_LEVEL under the WINSCRIPTS prefix.
func (loader *ConfigurationLoader) bindEnvironment(viperInstance *viper.Viper) {
	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeyDotSeparator, environmentKeyUnderscoreSeparator))
	viperInstance.AutomaticEnv()
}
