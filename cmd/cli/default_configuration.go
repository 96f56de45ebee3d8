package cli

import (
	_ "embed"
)

const embeddedConfigurationTypeConstant = "yaml"

//go:embed config.yaml
var embeddedDefaultConfiguration []byte

// EmbeddedDefaultConfiguration returns the configuration shipped with the binary and its format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return append([]byte{}, embeddedDefaultConfiguration...), embeddedConfigurationTypeConstant
}
