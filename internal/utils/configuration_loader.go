package utils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant        = "_"
	configurationKeySeparatorConstant      = "."
	overlayFileNameTemplateConstant        = "%s.%s.%s"
	embeddedConfigurationReadErrorTemplate = "unable to read embedded configuration: %w"
	configurationReadErrorTemplate         = "unable to read configuration file %s: %w"
	overlayReadErrorTemplate               = "unable to read configuration overlay %s: %w"
	configurationDecodeErrorTemplate       = "unable to decode configuration: %w"
)

// LoadedConfiguration reports which files contributed to a loaded configuration.
type LoadedConfiguration struct {
	ConfigFileUsed  string
	OverlayFileUsed string
	Environment     string
}

// ConfigurationLoader merges embedded defaults, configuration files, environment overlays and
// environment variables into a target structure.
type ConfigurationLoader struct {
	configurationName       string
	configurationType       string
	environmentPrefix       string
	searchPaths             []string
	embeddedConfiguration   []byte
	embeddedFormat          string
	environmentSelectionKey string
}

// NewConfigurationLoader constructs a loader searching searchPaths in order for <name>.<type>.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string{}, searchPaths...),
	}
}

// SetEmbeddedConfiguration registers configuration content merged below any file on disk.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationFormat string) {
	loader.embeddedConfiguration = append([]byte{}, configurationData...)
	loader.embeddedFormat = configurationFormat
}

// SetEnvironmentSelectionKey names the key whose value selects a <name>.<environment>.<type> overlay
// placed next to the configuration file in use.
func (loader *ConfigurationLoader) SetEnvironmentSelectionKey(key string) {
	loader.environmentSelectionKey = strings.TrimSpace(key)
}

// LoadConfiguration decodes the merged configuration into target. An explicit configurationFilePath
// wins over the search paths.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	configurationStore := viper.New()
	configurationStore.SetConfigType(loader.configurationType)

	for key, value := range defaultValues {
		configurationStore.SetDefault(key, value)
	}

	if len(loader.embeddedConfiguration) > 0 {
		embeddedFormat := loader.embeddedFormat
		if len(embeddedFormat) == 0 {
			embeddedFormat = loader.configurationType
		}
		configurationStore.SetConfigType(embeddedFormat)
		if readError := configurationStore.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationReadErrorTemplate, readError)
		}
		configurationStore.SetConfigType(loader.configurationType)
	}

	metadata := LoadedConfiguration{}
	trimmedFilePath := strings.TrimSpace(configurationFilePath)
	if len(trimmedFilePath) > 0 {
		configurationStore.SetConfigFile(trimmedFilePath)
		if readError := configurationStore.MergeInConfig(); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplate, trimmedFilePath, readError)
		}
		metadata.ConfigFileUsed = trimmedFilePath
	} else if discoveredPath := loader.discoverConfigurationFile(); len(discoveredPath) > 0 {
		configurationStore.SetConfigFile(discoveredPath)
		if readError := configurationStore.MergeInConfig(); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplate, discoveredPath, readError)
		}
		metadata.ConfigFileUsed = discoveredPath
	}

	if len(loader.environmentPrefix) > 0 {
		configurationStore.SetEnvPrefix(loader.environmentPrefix)
	}
	configurationStore.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
	configurationStore.AutomaticEnv()

	if len(loader.environmentSelectionKey) > 0 {
		environment := strings.TrimSpace(configurationStore.GetString(loader.environmentSelectionKey))
		metadata.Environment = environment
		if overlayPath := loader.overlayFilePath(metadata.ConfigFileUsed, environment); len(overlayPath) > 0 {
			configurationStore.SetConfigFile(overlayPath)
			if readError := configurationStore.MergeInConfig(); readError != nil {
				return LoadedConfiguration{}, fmt.Errorf(overlayReadErrorTemplate, overlayPath, readError)
			}
			metadata.OverlayFileUsed = overlayPath
		}
	}

	if decodeError := configurationStore.Unmarshal(target); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplate, decodeError)
	}
	return metadata, nil
}

func (loader *ConfigurationLoader) discoverConfigurationFile() string {
	fileName := loader.configurationName + configurationKeySeparatorConstant + loader.configurationType
	for _, searchPath := range loader.searchPaths {
		trimmedSearchPath := strings.TrimSpace(searchPath)
		if len(trimmedSearchPath) == 0 {
			continue
		}
		candidatePath := filepath.Join(trimmedSearchPath, fileName)
		if regularFileExists(candidatePath) {
			return candidatePath
		}
	}
	return ""
}

func (loader *ConfigurationLoader) overlayFilePath(configFileUsed string, environment string) string {
	if len(environment) == 0 {
		return ""
	}
	overlayName := fmt.Sprintf(overlayFileNameTemplateConstant, loader.configurationName, environment, loader.configurationType)

	candidateDirectories := make([]string, 0, len(loader.searchPaths)+1)
	if len(configFileUsed) > 0 {
		candidateDirectories = append(candidateDirectories, filepath.Dir(configFileUsed))
	}
	candidateDirectories = append(candidateDirectories, loader.searchPaths...)

	for _, directory := range candidateDirectories {
		if len(strings.TrimSpace(directory)) == 0 {
			continue
		}
		candidatePath := filepath.Join(directory, overlayName)
		if regularFileExists(candidatePath) {
			return candidatePath
		}
	}
	return ""
}

func regularFileExists(path string) bool {
	fileInfo, statError := os.Stat(path)
	if statError != nil {
		return false
	}
	return fileInfo.Mode().IsRegular()
}
