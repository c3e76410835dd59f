package utils

import (
	"bytes"
	"errors"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant       = "_"
	configurationKeySeparatorConstant     = "."
	missingConfigurationNameErrorConstant = "configuration name not provided"
)

// LoadedConfiguration describes the configuration sources resolved during loading.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader merges embedded defaults, configuration files, and environment variables.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// NewConfigurationLoader constructs a ConfigurationLoader instance.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       searchPaths,
	}
}

// SetEmbeddedConfiguration registers embedded default configuration content merged at lowest priority.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(content []byte, contentType string) {
	loader.embeddedConfiguration = content
	loader.embeddedConfigurationType = contentType
}

// LoadConfiguration resolves configuration values into the provided target structure.
func (loader *ConfigurationLoader) LoadConfiguration(explicitFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	if len(strings.TrimSpace(loader.configurationName)) == 0 {
		return LoadedConfiguration{}, errors.New(missingConfigurationNameErrorConstant)
	}

	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(loader.embeddedConfiguration) > 0 {
		embeddedType := loader.embeddedConfigurationType
		if len(embeddedType) == 0 {
			embeddedType = loader.configurationType
		}
		viperInstance.SetConfigType(embeddedType)
		if readError := viperInstance.ReadConfig(bytes.NewReader(loader.embeddedConfiguration)); readError != nil {
			return LoadedConfiguration{}, readError
		}
		viperInstance.SetConfigType(loader.configurationType)
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
	viperInstance.AutomaticEnv()

	configurationFileUsed := ""
	if len(strings.TrimSpace(explicitFilePath)) > 0 {
		fileViper := viper.New()
		fileViper.SetConfigFile(explicitFilePath)
		if readError := fileViper.ReadInConfig(); readError != nil {
			return LoadedConfiguration{}, readError
		}
		if mergeError := viperInstance.MergeConfigMap(fileViper.AllSettings()); mergeError != nil {
			return LoadedConfiguration{}, mergeError
		}
		configurationFileUsed = explicitFilePath
	} else if len(loader.searchPaths) > 0 {
		fileViper := viper.New()
		fileViper.SetConfigName(loader.configurationName)
		fileViper.SetConfigType(loader.configurationType)
		for _, searchPath := range loader.searchPaths {
			if len(strings.TrimSpace(searchPath)) == 0 {
				continue
			}
			fileViper.AddConfigPath(searchPath)
		}
		if readError := fileViper.ReadInConfig(); readError == nil {
			if mergeError := viperInstance.MergeConfigMap(fileViper.AllSettings()); mergeError != nil {
				return LoadedConfiguration{}, mergeError
			}
			configurationFileUsed = fileViper.ConfigFileUsed()
		} else {
			var notFoundError viper.ConfigFileNotFoundError
			if !errors.As(readError, &notFoundError) {
				return LoadedConfiguration{}, readError
			}
		}
	}

	if target != nil {
		weaklyTypedDecoding := func(decoderConfig *mapstructure.DecoderConfig) {
			decoderConfig.WeaklyTypedInput = true
		}
		if unmarshalError := viperInstance.Unmarshal(target, weaklyTypedDecoding); unmarshalError != nil {
			return LoadedConfiguration{}, unmarshalError
		}
	}

	return LoadedConfiguration{ConfigFileUsed: configurationFileUsed}, nil
}
