package cli

import (
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/tyemirov/gitflow/internal/flowerrors"
	"github.com/tyemirov/gitflow/internal/utils"
)

const (
	duplicateOperationConfigurationTemplateConstant = "duplicate configuration for operation %q"
	missingOperationConfigurationTemplateConstant   = "missing configuration for operation %q"
	embeddedConfigurationInvalidTemplateConstant    = "embedded configuration is not valid YAML: %w"
	unknownEnvironmentReasonTemplateConstant        = "environment %q is not one of %s"
	environmentSettingNameConstant                  = "common.environment"
	environmentDevelopmentConstant                  = "development"
	environmentTestConstant                         = "test"
	environmentProductionConstant                   = "production"
	mapstructureTagNameConstant                     = "mapstructure"
)

var supportedEnvironments = []string{environmentDevelopmentConstant, environmentTestConstant, environmentProductionConstant}

// DuplicateOperationConfigurationError indicates that the configuration file defines the same operation multiple times.
type DuplicateOperationConfigurationError struct {
	OperationName string
}

// Error implements the error interface.
func (errorDetails DuplicateOperationConfigurationError) Error() string {
	return fmt.Sprintf(duplicateOperationConfigurationTemplateConstant, errorDetails.OperationName)
}

// MissingOperationConfigurationError indicates that a referenced operation configuration is absent.
type MissingOperationConfigurationError struct {
	OperationName string
}

// Error implements the error interface.
func (errorDetails MissingOperationConfigurationError) Error() string {
	return fmt.Sprintf(missingOperationConfigurationTemplateConstant, errorDetails.OperationName)
}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common     ApplicationCommonConfiguration      `mapstructure:"common"`
	Operations []ApplicationOperationConfiguration `mapstructure:"operations"`
}

// ApplicationCommonConfiguration stores logging defaults and the deployment environment shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	Environment string `mapstructure:"environment"`
}

// ApplicationOperationConfiguration captures reusable operation defaults from the configuration file.
type ApplicationOperationConfiguration struct {
	Name    string         `mapstructure:"operation"`
	Options map[string]any `mapstructure:"with"`
}

// OperationConfigurations stores reusable operation defaults indexed by normalized operation name.
type OperationConfigurations struct {
	entries map[string]map[string]any
}

// MergeDefaults ensures default operation configurations are available when not overridden.
func (configurations OperationConfigurations) MergeDefaults(defaults OperationConfigurations) OperationConfigurations {
	if len(defaults.entries) == 0 {
		return configurations
	}
	if configurations.entries == nil {
		configurations.entries = map[string]map[string]any{}
	}
	for defaultName, defaultOptions := range defaults.entries {
		if _, exists := configurations.entries[defaultName]; exists {
			continue
		}
		configurations.entries[defaultName] = copyOptions(defaultOptions)
	}
	return configurations
}

type configurationInitializationPlan struct {
	DirectoryPath string
	FilePath      string
}

func newOperationConfigurations(definitions []ApplicationOperationConfiguration) (OperationConfigurations, error) {
	entries := make(map[string]map[string]any)
	for definitionIndex := range definitions {
		normalizedName := normalizeOperationName(definitions[definitionIndex].Name)
		if len(normalizedName) == 0 {
			continue
		}
		if _, exists := entries[normalizedName]; exists {
			return OperationConfigurations{}, DuplicateOperationConfigurationError{OperationName: normalizedName}
		}
		entries[normalizedName] = copyOptions(definitions[definitionIndex].Options)
	}
	return OperationConfigurations{entries: entries}, nil
}

// Lookup returns the configuration options for the provided operation name or an error if the configuration is absent.
func (configurations OperationConfigurations) Lookup(operationName string) (map[string]any, error) {
	normalizedName := normalizeOperationName(operationName)
	if len(normalizedName) == 0 {
		return nil, MissingOperationConfigurationError{OperationName: operationName}
	}

	options, exists := configurations.entries[normalizedName]
	if !exists {
		return nil, MissingOperationConfigurationError{OperationName: normalizedName}
	}
	return copyOptions(options), nil
}

func (configurations OperationConfigurations) decode(operationName string, target any) error {
	if target == nil {
		return nil
	}

	options, lookupError := configurations.Lookup(operationName)
	if lookupError != nil {
		return lookupError
	}
	if len(options) == 0 {
		return nil
	}

	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          mapstructureTagNameConstant,
		Result:           target,
		WeaklyTypedInput: true,
	})
	if decoderError != nil {
		return decoderError
	}
	return decoder.Decode(options)
}

func copyOptions(options map[string]any) map[string]any {
	copied := make(map[string]any, len(options))
	for optionKey, optionValue := range options {
		copied[optionKey] = optionValue
	}
	return copied
}

func normalizeOperationName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func loadEmbeddedOperationConfigurations() OperationConfigurations {
	configurationData, configurationType := EmbeddedDefaultConfiguration()
	if len(configurationData) == 0 {
		return OperationConfigurations{}
	}

	loader := utils.NewConfigurationLoader(configurationNameConstant, configurationTypeConstant, environmentPrefixConstant, nil)
	loader.SetEmbeddedConfiguration(configurationData, configurationType)

	var configuration ApplicationConfiguration
	if _, loadError := loader.LoadConfiguration("", nil, &configuration); loadError != nil {
		return OperationConfigurations{}
	}

	embeddedConfigurations, configurationError := newOperationConfigurations(configuration.Operations)
	if configurationError != nil {
		return OperationConfigurations{}
	}
	return embeddedConfigurations
}

// validateConfigurationContent confirms the content parses as a YAML document with the expected top-level sections.
func validateConfigurationContent(configurationContent []byte) error {
	var document ApplicationConfiguration
	var rawDocument map[string]any
	if unmarshalError := yaml.Unmarshal(configurationContent, &rawDocument); unmarshalError != nil {
		return fmt.Errorf(embeddedConfigurationInvalidTemplateConstant, unmarshalError)
	}
	if decodeError := mapstructure.Decode(rawDocument, &document); decodeError != nil {
		return fmt.Errorf(embeddedConfigurationInvalidTemplateConstant, decodeError)
	}
	if _, operationsError := newOperationConfigurations(document.Operations); operationsError != nil {
		return fmt.Errorf(embeddedConfigurationInvalidTemplateConstant, operationsError)
	}
	return nil
}

func normalizeEnvironment(rawEnvironment string) (string, error) {
	environment := strings.ToLower(strings.TrimSpace(rawEnvironment))
	if len(environment) == 0 {
		return environmentDevelopmentConstant, nil
	}
	for _, supportedEnvironment := range supportedEnvironments {
		if environment == supportedEnvironment {
			return environment, nil
		}
	}
	return "", flowerrors.ConfigurationError{
		Setting:  environmentSettingNameConstant,
		Reason:   fmt.Sprintf(unknownEnvironmentReasonTemplateConstant, rawEnvironment, strings.Join(supportedEnvironments, ", ")),
		Sentinel: flowerrors.ErrUnknownEnvironment,
	}
}
