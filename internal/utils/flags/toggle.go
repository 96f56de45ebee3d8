package flags

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const (
	toggleFlagTypeConstant          = "toggle"
	toggleImplicitValueConstant     = "true"
	toggleUnsupportedValueTemplate  = "unsupported toggle value %q (use true/false, yes/no or on/off)"
	choiceUsageTemplateConstant     = "%s (choices: %s; default %s)"
	choiceUsageSeparatorConstant    = ", "
	longFlagPrefixConstant          = "--"
	flagValueAssignmentConstant     = "="
	negatedTogglePrefixConstant     = "no-"
	negatedToggleReplacementTrailer = "=false"
)

type toggleValue struct {
	target *bool
}

func (value *toggleValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *toggleValue) Set(rawValue string) error {
	parsedValue, parseError := parseToggleValue(rawValue)
	if parseError != nil {
		return parseError
	}
	*value.target = parsedValue
	return nil
}

func (value *toggleValue) Type() string {
	return toggleFlagTypeConstant
}

// AddToggleFlag registers a boolean flag that accepts true/false, yes/no and on/off. A bare flag means true.
// When target is nil the flag owns its storage.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || flagSet.Lookup(name) != nil {
		return
	}
	if target == nil {
		target = new(bool)
	}
	*target = defaultValue

	flag := flagSet.VarPF(&toggleValue{target: target}, name, shorthand, usage)
	flag.NoOptDefVal = toggleImplicitValueConstant
	flag.DefValue = strconv.FormatBool(defaultValue)
}

func parseToggleValue(rawValue string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(rawValue)) {
	case "true", "yes", "on", "1", "y":
		return true, nil
	case "false", "no", "off", "0", "n":
		return false, nil
	default:
		return false, fmt.Errorf(toggleUnsupportedValueTemplate, rawValue)
	}
}

// FormatChoiceUsage appends the accepted choices and default to a usage string.
func FormatChoiceUsage(defaultChoice string, choices []string, usage string) string {
	return fmt.Sprintf(choiceUsageTemplateConstant, usage, strings.Join(choices, choiceUsageSeparatorConstant), defaultChoice)
}

// NormalizeToggleArguments rewrites --no-<toggle> into --<toggle>=false for the named toggles.
func NormalizeToggleArguments(arguments []string, toggleNames ...string) []string {
	if len(arguments) == 0 {
		return nil
	}
	knownToggles := make(map[string]struct{}, len(toggleNames))
	for _, toggleName := range toggleNames {
		knownToggles[toggleName] = struct{}{}
	}

	normalizedArguments := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		if strings.HasPrefix(argument, longFlagPrefixConstant+negatedTogglePrefixConstant) && !strings.Contains(argument, flagValueAssignmentConstant) {
			toggleName := strings.TrimPrefix(argument, longFlagPrefixConstant+negatedTogglePrefixConstant)
			if _, known := knownToggles[toggleName]; known {
				normalizedArguments = append(normalizedArguments, longFlagPrefixConstant+toggleName+negatedToggleReplacementTrailer)
				continue
			}
		}
		normalizedArguments = append(normalizedArguments, argument)
	}
	return normalizedArguments
}
